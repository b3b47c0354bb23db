package batch

import (
	"context"
	"sync"
	"time"

	"skillpulse/internal/cache"
	"skillpulse/internal/config"
	"skillpulse/internal/store"
)

// Notifier is the notification-creation collaborator. The delivery side
// lives outside this subsystem.
type Notifier interface {
	Create(ctx context.Context, userID, ntype, refType, refID string, data map[string]any) (string, error)
}

// Options carries the aggregation knobs; zero fields fall back to the
// platform defaults.
type Options struct {
	EngagementWindow   time.Duration
	ActivityWindow     time.Duration
	TrendingWindowDays int
	TrendingLimit      int
	LeaderboardLimit   int
	DigestMinUnread    int
	WarmHitRatePct     float64
}

func (o Options) withDefaults() Options {
	if o.EngagementWindow <= 0 {
		o.EngagementWindow = time.Hour
	}
	if o.ActivityWindow <= 0 {
		o.ActivityWindow = 24 * time.Hour
	}
	if o.TrendingWindowDays <= 0 {
		o.TrendingWindowDays = 1
	}
	if o.TrendingLimit <= 0 {
		o.TrendingLimit = 50
	}
	if o.LeaderboardLimit <= 0 {
		o.LeaderboardLimit = 50
	}
	if o.DigestMinUnread <= 0 {
		o.DigestMinUnread = 5
	}
	if o.WarmHitRatePct <= 0 {
		o.WarmHitRatePct = 60
	}
	return o
}

// Jobs binds the aggregation passes to their store/cache/notifier handles.
// Every handle is injected so RunNow is testable with fakes.
type Jobs struct {
	events        store.EventStore
	profiles      store.ProfileStore
	notifications store.NotificationStore
	cache         cache.Cache
	notifier      Notifier
	opt           Options
	now           func() time.Time

	// Watermarks bound the engagement windows so back-to-back runs never
	// fold the same event into the counters twice.
	wmMu      sync.Mutex
	skillMark time.Time
	userMark  time.Time
}

func NewJobs(events store.EventStore, profiles store.ProfileStore, notifications store.NotificationStore, c cache.Cache, notifier Notifier, opt Options) *Jobs {
	return &Jobs{
		events:        events,
		profiles:      profiles,
		notifications: notifications,
		cache:         c,
		notifier:      notifier,
		opt:           opt.withDefaults(),
		now:           time.Now,
	}
}

// Tasks returns the five built-in task descriptors bound to j, with cadence
// taken from cadences (keyed by task name).
func (j *Jobs) Tasks(cadences map[string]config.Cadence) []Task {
	mk := func(name, alias string, run RunFunc) Task {
		c := cadences[name]
		return Task{Name: name, Alias: alias, Interval: c.Interval, Backoff: c.Backoff, Run: run}
	}
	return []Task{
		mk("engagement_metrics", "engagement", j.RunEngagement),
		mk("trending_content", "trending", j.RunTrending),
		mk("notification_digest", "notifications", j.RunDigest),
		mk("cache_maintenance", "cache_maintenance", j.RunCacheMaintenance),
		mk("analytics_aggregation", "analytics", j.RunAnalytics),
	}
}

// claimWindow atomically advances a watermark to now and returns the window
// start: the previous watermark, clamped so the first run (or a long gap)
// never reaches back further than the configured window.
func (j *Jobs) claimWindow(mark *time.Time, window time.Duration, now time.Time) time.Time {
	j.wmMu.Lock()
	defer j.wmMu.Unlock()
	since := *mark
	if min := now.Add(-window); since.Before(min) {
		since = min
	}
	*mark = now
	return since
}

// releaseWindow rolls a watermark back after a failed query so the events in
// the claimed window are retried next run. Only applies if no later run has
// claimed past us.
func (j *Jobs) releaseWindow(mark *time.Time, since, claimed time.Time) {
	j.wmMu.Lock()
	defer j.wmMu.Unlock()
	if mark.Equal(claimed) {
		*mark = since
	}
}
