// Package store holds the persistence contracts the batch jobs consume and
// their sqlite implementation.
package store

import (
	"context"
	"time"

	"skillpulse/internal/domain"
)

// EventStore reads and prunes the raw interaction event log.
type EventStore interface {
	// SkillEngagement aggregates per-skill interaction counts for events in
	// (since, until].
	SkillEngagement(ctx context.Context, since, until time.Time) ([]domain.SkillEngagement, error)
	// UserActivity aggregates per-user event volume and type variety for
	// events in (since, until].
	UserActivity(ctx context.Context, since, until time.Time) ([]domain.UserActivity, error)
	// TrendingSkills returns raw windowed counts per skill with the latest
	// activity time; scoring and ranking happen in the caller.
	TrendingSkills(ctx context.Context, since, until time.Time) ([]domain.TrendingItem, error)
	// DailyStats aggregates counts and unique users per event type for
	// events in [dayStart, dayEnd).
	DailyStats(ctx context.Context, dayStart, dayEnd time.Time) ([]domain.DailyStat, error)
	DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Insert(ctx context.Context, e domain.Event) error
}

// ProfileStore owns the derived counters on skills and users. All writes are
// atomic upserts; nothing reads a row back to modify it.
type ProfileStore interface {
	ApplySkillEngagement(ctx context.Context, skillID string, counts domain.EventCounts, score int) error
	ApplyUserActivity(ctx context.Context, userID string, activityScore int, lastActivity time.Time) error
	SetTrendingScore(ctx context.Context, skillID string, score float64, at time.Time) error
	TopUsersByEngagement(ctx context.Context, limit int) ([]domain.UserRank, error)
}

// NotificationStore reads unread groupings and writes digest notifications.
type NotificationStore interface {
	DigestCandidates(ctx context.Context, since time.Time, minUnread int) ([]domain.DigestCandidate, error)
	Create(ctx context.Context, n domain.Notification) (string, error)
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
