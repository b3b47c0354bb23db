package batch

import (
	"context"

	"github.com/rs/zerolog/log"

	"skillpulse/internal/cache"
	"skillpulse/internal/domain"
)

// RunCacheMaintenance inspects cache performance and re-warms the trending
// entry when the hit rate drops below the configured threshold. Diagnostic
// only: it never returns an error, so its loop stays on the normal cadence.
func (j *Jobs) RunCacheMaintenance(ctx context.Context) (domain.TaskResult, error) {
	stats := j.cache.Stats()
	log.Info().
		Int("keys", stats.Keys).
		Uint64("hits", stats.Hits).
		Uint64("misses", stats.Misses).
		Float64("hit_rate", stats.HitRate).
		Msg("cache stats")

	warmed := 0
	if stats.HitRate < j.opt.WarmHitRatePct {
		items, err := j.computeTrending(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("cache warm failed")
		} else {
			j.cache.Set(trendingCacheKey, items, cache.TrendingTTL)
			warmed = len(items)
			log.Info().Float64("hit_rate", stats.HitRate).Msg("warmed trending cache due to low hit rate")
		}
	}

	return domain.TaskResult{Success: true, Message: "cache maintenance completed", ProcessedItems: warmed}, nil
}
