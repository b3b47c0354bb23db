package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"skillpulse/internal/domain"
)

// Digest-able notification types, mirroring what the request layer emits.
var digestTypes = []string{"like_received", "comment_received", "follower_added"}

// EnsureSchema creates tables if they don't exist. Timestamps are stored as
// unix seconds so window comparisons and aggregates stay plain integers.
func EnsureSchema(db *sql.DB) error {
	schema := `
PRAGMA journal_mode=WAL;
CREATE TABLE IF NOT EXISTS analytics_events (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  event_type TEXT NOT NULL,
  user_id TEXT NOT NULL,
  skill_id TEXT NOT NULL DEFAULT '',
  ts INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_ts ON analytics_events(ts);
CREATE INDEX IF NOT EXISTS idx_events_skill_ts ON analytics_events(skill_id, ts);
CREATE TABLE IF NOT EXISTS skills (
  id TEXT PRIMARY KEY,
  views_count INTEGER NOT NULL DEFAULT 0,
  likes_count INTEGER NOT NULL DEFAULT 0,
  downloads_count INTEGER NOT NULL DEFAULT 0,
  comments_count INTEGER NOT NULL DEFAULT 0,
  engagement_score INTEGER NOT NULL DEFAULT 0,
  trending_score REAL NOT NULL DEFAULT 0,
  last_engagement_update INTEGER,
  trending_updated_at INTEGER
);
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  daily_activity_score INTEGER NOT NULL DEFAULT 0,
  total_engagement_score INTEGER NOT NULL DEFAULT 0,
  last_activity INTEGER
);
CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  notification_type TEXT NOT NULL,
  reference_type TEXT NOT NULL DEFAULT '',
  reference_id TEXT NOT NULL DEFAULT '',
  data BLOB,
  read INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notifications_unread ON notifications(read, created_at, user_id);
`
	_, err := db.Exec(schema)
	return err
}

// SQLite implements EventStore, ProfileStore and NotificationStore over one
// database handle.
type SQLite struct{ db *sql.DB }

func NewSQLite(db *sql.DB) *SQLite { return &SQLite{db: db} }

func (s *SQLite) Insert(ctx context.Context, e domain.Event) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO analytics_events (event_type, user_id, skill_id, ts) VALUES (?,?,?,?)`,
		e.EventType, e.UserID, e.SkillID, e.Timestamp.Unix())
	return err
}

func (s *SQLite) SkillEngagement(ctx context.Context, since, until time.Time) ([]domain.SkillEngagement, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT skill_id,
       SUM(CASE WHEN event_type='skill_view' THEN 1 ELSE 0 END),
       SUM(CASE WHEN event_type='skill_like' THEN 1 ELSE 0 END),
       SUM(CASE WHEN event_type='skill_download' THEN 1 ELSE 0 END),
       SUM(CASE WHEN event_type='skill_comment' THEN 1 ELSE 0 END),
       COUNT(DISTINCT user_id)
FROM analytics_events
WHERE skill_id != '' AND ts > ? AND ts <= ?
  AND event_type IN ('skill_view','skill_like','skill_download','skill_comment')
GROUP BY skill_id`, since.Unix(), until.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SkillEngagement
	for rows.Next() {
		var e domain.SkillEngagement
		if err := rows.Scan(&e.SkillID, &e.Counts.Views, &e.Counts.Likes, &e.Counts.Downloads, &e.Counts.Comments, &e.Counts.UniqueUsers); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLite) UserActivity(ctx context.Context, since, until time.Time) ([]domain.UserActivity, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT user_id, COUNT(*), COUNT(DISTINCT event_type), MAX(ts)
FROM analytics_events
WHERE user_id != '' AND ts > ? AND ts <= ?
GROUP BY user_id`, since.Unix(), until.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.UserActivity
	for rows.Next() {
		var a domain.UserActivity
		var last int64
		if err := rows.Scan(&a.UserID, &a.TotalEvents, &a.DistinctTypes, &last); err != nil {
			return nil, err
		}
		a.LastActivity = time.Unix(last, 0).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLite) TrendingSkills(ctx context.Context, since, until time.Time) ([]domain.TrendingItem, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT skill_id,
       SUM(CASE WHEN event_type='skill_view' THEN 1 ELSE 0 END),
       SUM(CASE WHEN event_type='skill_like' THEN 1 ELSE 0 END),
       SUM(CASE WHEN event_type='skill_download' THEN 1 ELSE 0 END),
       SUM(CASE WHEN event_type='skill_comment' THEN 1 ELSE 0 END),
       COUNT(DISTINCT user_id),
       MAX(ts)
FROM analytics_events
WHERE skill_id != '' AND ts > ? AND ts <= ?
  AND event_type IN ('skill_view','skill_like','skill_download','skill_comment')
GROUP BY skill_id`, since.Unix(), until.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TrendingItem
	for rows.Next() {
		var it domain.TrendingItem
		var last int64
		if err := rows.Scan(&it.SkillID, &it.Counts.Views, &it.Counts.Likes, &it.Counts.Downloads, &it.Counts.Comments, &it.Counts.UniqueUsers, &last); err != nil {
			return nil, err
		}
		it.LatestActivity = time.Unix(last, 0).UTC()
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *SQLite) DailyStats(ctx context.Context, dayStart, dayEnd time.Time) ([]domain.DailyStat, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT event_type, COUNT(*), COUNT(DISTINCT user_id)
FROM analytics_events
WHERE ts >= ? AND ts < ?
GROUP BY event_type`, dayStart.Unix(), dayEnd.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DailyStat
	for rows.Next() {
		var d domain.DailyStat
		if err := rows.Scan(&d.EventType, &d.Count, &d.UniqueUsers); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *SQLite) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM analytics_events WHERE ts < ?`, cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLite) ApplySkillEngagement(ctx context.Context, skillID string, c domain.EventCounts, score int) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO skills (id, views_count, likes_count, downloads_count, comments_count, engagement_score, last_engagement_update)
VALUES (?,?,?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET
  views_count = views_count + excluded.views_count,
  likes_count = likes_count + excluded.likes_count,
  downloads_count = downloads_count + excluded.downloads_count,
  comments_count = comments_count + excluded.comments_count,
  engagement_score = excluded.engagement_score,
  last_engagement_update = excluded.last_engagement_update`,
		skillID, c.Views, c.Likes, c.Downloads, c.Comments, score, time.Now().Unix())
	return err
}

func (s *SQLite) ApplyUserActivity(ctx context.Context, userID string, activityScore int, lastActivity time.Time) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO users (id, daily_activity_score, total_engagement_score, last_activity)
VALUES (?,?,?,?)
ON CONFLICT(id) DO UPDATE SET
  daily_activity_score = excluded.daily_activity_score,
  total_engagement_score = total_engagement_score + excluded.total_engagement_score,
  last_activity = excluded.last_activity`,
		userID, activityScore, activityScore, lastActivity.Unix())
	return err
}

func (s *SQLite) SetTrendingScore(ctx context.Context, skillID string, score float64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO skills (id, trending_score, trending_updated_at) VALUES (?,?,?)
ON CONFLICT(id) DO UPDATE SET
  trending_score = excluded.trending_score,
  trending_updated_at = excluded.trending_updated_at`,
		skillID, score, at.Unix())
	return err
}

func (s *SQLite) TopUsersByEngagement(ctx context.Context, limit int) ([]domain.UserRank, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, total_engagement_score FROM users
ORDER BY total_engagement_score DESC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.UserRank
	for rows.Next() {
		var r domain.UserRank
		if err := rows.Scan(&r.UserID, &r.Score); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLite) DigestCandidates(ctx context.Context, since time.Time, minUnread int) ([]domain.DigestCandidate, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT user_id, COUNT(*), GROUP_CONCAT(DISTINCT notification_type), MAX(created_at)
FROM notifications
WHERE read = 0 AND created_at >= ?
  AND notification_type IN ('`+strings.Join(digestTypes, "','")+`')
GROUP BY user_id
HAVING COUNT(*) >= ?`, since.Unix(), minUnread)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DigestCandidate
	for rows.Next() {
		var c domain.DigestCandidate
		var types string
		var latest int64
		if err := rows.Scan(&c.UserID, &c.UnreadCount, &types, &latest); err != nil {
			return nil, err
		}
		c.Types = strings.Split(types, ",")
		c.LatestAt = time.Unix(latest, 0).UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLite) Create(ctx context.Context, n domain.Notification) (string, error) {
	id := n.ID
	if id == "" {
		id = "ntf_" + uuid.NewString()
	}
	created := n.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO notifications (id, user_id, notification_type, reference_type, reference_id, data, read, created_at)
VALUES (?,?,?,?,?,?,?,?)`,
		id, n.UserID, n.Type, n.ReferenceType, n.ReferenceID, n.Data, n.Read, created.Unix())
	return id, err
}

func (s *SQLite) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE read = 1 AND created_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
