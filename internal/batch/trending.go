package batch

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"skillpulse/internal/cache"
	"skillpulse/internal/domain"
	"skillpulse/internal/metrics"
)

const trendingCacheKey = "trending:skills"

// RunTrending recomputes the windowed trending ranking, caches it with a
// short TTL and writes each item's score back to the skill row. Idempotent:
// recomputing the same window is a pure overwrite.
func (j *Jobs) RunTrending(ctx context.Context) (domain.TaskResult, error) {
	items, err := j.computeTrending(ctx)
	if err != nil {
		return domain.TaskResult{}, err
	}
	j.cache.Set(trendingCacheKey, items, cache.TrendingTTL)

	now := j.now()
	processed := 0
	for _, it := range items {
		if err := j.profiles.SetTrendingScore(ctx, it.SkillID, it.Score, now); err != nil {
			log.Error().Err(err).Str("skill", it.SkillID).Msg("set trending score failed; skipping")
			continue
		}
		processed++
	}

	log.Info().Int("items", len(items)).Msg("trending content updated")
	return domain.TaskResult{Success: true, Message: "trending content updated", ProcessedItems: processed}, nil
}

func (j *Jobs) computeTrending(ctx context.Context) ([]domain.TrendingItem, error) {
	now := j.now()
	since := now.AddDate(0, 0, -j.opt.TrendingWindowDays)
	items, err := j.events.TrendingSkills(ctx, since, now)
	if err != nil {
		return nil, fmt.Errorf("query trending skills: %w", err)
	}
	for i := range items {
		items[i].Score = metrics.TrendingScore(items[i].Counts)
	}
	return metrics.RankTrending(items, j.opt.TrendingLimit), nil
}
