package batch

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"skillpulse/internal/cache"
	"skillpulse/internal/domain"
	"skillpulse/internal/metrics"
)

// RunEngagement folds recent interaction events into skill and user
// counters. Counter writes are non-destructive increments; the derived
// engagement score is last-write-wins. A failure on one entity is logged and
// skipped, never failing the batch.
func (j *Jobs) RunEngagement(ctx context.Context) (domain.TaskResult, error) {
	now := j.now()
	processed := 0

	skillSince := j.claimWindow(&j.skillMark, j.opt.EngagementWindow, now)
	skills, err := j.events.SkillEngagement(ctx, skillSince, now)
	if err != nil {
		j.releaseWindow(&j.skillMark, skillSince, now)
		return domain.TaskResult{}, fmt.Errorf("query skill engagement: %w", err)
	}
	for _, e := range skills {
		score := metrics.EngagementScore(e.Counts)
		if err := j.profiles.ApplySkillEngagement(ctx, e.SkillID, e.Counts, score); err != nil {
			log.Error().Err(err).Str("skill", e.SkillID).Msg("apply skill engagement failed; skipping")
			continue
		}
		j.cache.DeletePattern("skill:*" + e.SkillID + "*")
		processed++
	}

	userSince := j.claimWindow(&j.userMark, j.opt.ActivityWindow, now)
	users, err := j.events.UserActivity(ctx, userSince, now)
	if err != nil {
		j.releaseWindow(&j.userMark, userSince, now)
		return domain.TaskResult{}, fmt.Errorf("query user activity: %w", err)
	}
	for _, a := range users {
		score := metrics.ActivityScore(a.TotalEvents, a.DistinctTypes)
		if err := j.profiles.ApplyUserActivity(ctx, a.UserID, score, a.LastActivity); err != nil {
			log.Error().Err(err).Str("user", a.UserID).Msg("apply user activity failed; skipping")
			continue
		}
		j.cache.DeletePattern("user:*" + a.UserID + "*")
		processed++
	}

	if ranks, err := j.profiles.TopUsersByEngagement(ctx, j.opt.LeaderboardLimit); err != nil {
		log.Error().Err(err).Msg("leaderboard refresh failed")
	} else {
		j.cache.Set("leaderboard:engagement", ranks, cache.MediumTTL)
	}

	log.Info().Int("skills", len(skills)).Int("users", len(users)).Msg("engagement metrics batch completed")
	return domain.TaskResult{Success: true, Message: "engagement metrics processed", ProcessedItems: processed}, nil
}
