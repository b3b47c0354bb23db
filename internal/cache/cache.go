// Package cache defines the key-value cache contract the batch jobs depend
// on, plus an in-process implementation.
package cache

import "time"

// TTL tiers shared by the jobs and whatever request layer sits in front.
const (
	DefaultTTL  = time.Hour
	ShortTTL    = 5 * time.Minute
	MediumTTL   = 30 * time.Minute
	LongTTL     = 24 * time.Hour
	TrendingTTL = 15 * time.Minute
)

type Stats struct {
	Keys    int     `json:"keys"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"` // percent; 100 when there is no traffic yet
}

type Cache interface {
	Get(key string) (any, bool)
	Set(key string, val any, ttl time.Duration)
	Exists(key string) bool
	Delete(key string) bool
	// DeletePattern removes all keys matching a path.Match style glob and
	// returns how many were removed.
	DeletePattern(pattern string) int
	Stats() Stats
}
