// Package metrics holds the pure scoring math used by the batch jobs.
package metrics

import (
	"sort"

	"skillpulse/internal/domain"
)

// EngagementScore weights windowed interaction counts into a single score:
// views*1 + likes*3 + downloads*5 + comments*4 + unique_users*2.
func EngagementScore(c domain.EventCounts) int {
	return c.Views + c.Likes*3 + c.Downloads*5 + c.Comments*4 + c.UniqueUsers*2
}

// TrendingScore weights windowed counts for ranking:
// views + 2*likes + 3*downloads + 1.5*comments.
func TrendingScore(c domain.EventCounts) float64 {
	return float64(c.Views) + 2*float64(c.Likes) + 3*float64(c.Downloads) + 1.5*float64(c.Comments)
}

// ActivityScore is the per-user daily metric: event volume scaled by the
// variety of event types.
func ActivityScore(totalEvents, distinctTypes int) int {
	return totalEvents * distinctTypes
}

// RankTrending sorts items by score descending, breaking ties by the most
// recent activity, and truncates to limit (limit <= 0 means no truncation).
func RankTrending(items []domain.TrendingItem, limit int) []domain.TrendingItem {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].LatestActivity.After(items[j].LatestActivity)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
