package domain

import "time"

// EventCounts holds windowed interaction counts for one entity.
type EventCounts struct {
	Views       int
	Likes       int
	Downloads   int
	Comments    int
	UniqueUsers int
}

// Event is a single interaction event as recorded by the platform.
type Event struct {
	ID        int64
	EventType string
	UserID    string
	SkillID   string
	Timestamp time.Time
}

type SkillEngagement struct {
	SkillID string
	Counts  EventCounts
}

type UserActivity struct {
	UserID        string
	TotalEvents   int
	DistinctTypes int
	LastActivity  time.Time
}

type TrendingItem struct {
	SkillID        string      `json:"skill_id"`
	Counts         EventCounts `json:"-"`
	Score          float64     `json:"trending_score"`
	LatestActivity time.Time   `json:"latest_activity"`
}

type DigestCandidate struct {
	UserID      string
	UnreadCount int
	Types       []string
	LatestAt    time.Time
}

type DailyStat struct {
	EventType   string `json:"event_type"`
	Count       int    `json:"count"`
	UniqueUsers int    `json:"unique_users"`
}

type UserRank struct {
	UserID string `json:"user_id"`
	Score  int    `json:"engagement_score"`
}

type Notification struct {
	ID            string
	UserID        string
	Type          string
	ReferenceType string
	ReferenceID   string
	Data          []byte
	Read          bool
	CreatedAt     time.Time
}

// TaskResult is returned by every batch invocation, scheduled or on-demand.
type TaskResult struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	ProcessedItems int    `json:"processed_items"`
}

type CleanupSummary struct {
	DaysOld              int   `json:"days_old"`
	EventsDeleted        int64 `json:"events_deleted"`
	NotificationsDeleted int64 `json:"notifications_deleted"`
}
