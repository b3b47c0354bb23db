package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"skillpulse/internal/cache"
	"skillpulse/internal/domain"
)

const digestWindow = 24 * time.Hour

// RunDigest creates one summary notification per user with enough unread
// notifications. A per-user cache marker with a 24h TTL enforces at most one
// digest per user per day; the marker check is best-effort, not
// transactional, which is accepted for overlapping runs.
func (j *Jobs) RunDigest(ctx context.Context) (domain.TaskResult, error) {
	now := j.now()
	candidates, err := j.notifications.DigestCandidates(ctx, now.Add(-digestWindow), j.opt.DigestMinUnread)
	if err != nil {
		return domain.TaskResult{}, fmt.Errorf("query digest candidates: %w", err)
	}

	created := 0
	for _, c := range candidates {
		key := "digest_sent:" + c.UserID
		if j.cache.Exists(key) {
			continue
		}
		data := map[string]any{
			"message":      fmt.Sprintf("You have %d unread notifications", c.UnreadCount),
			"unread_count": c.UnreadCount,
			"types":        c.Types,
			"digest_date":  now.UTC().Format(time.RFC3339),
		}
		if _, err := j.notifier.Create(ctx, c.UserID, "daily_digest", "system", c.UserID, data); err != nil {
			log.Error().Err(err).Str("user", c.UserID).Msg("create digest notification failed; skipping")
			continue
		}
		j.cache.Set(key, true, cache.LongTTL)
		created++
	}

	log.Info().Int("candidates", len(candidates)).Int("created", created).Msg("notification digests processed")
	return domain.TaskResult{Success: true, Message: "notification digests processed", ProcessedItems: created}, nil
}
