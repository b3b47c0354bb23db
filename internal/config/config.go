package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	yaml "go.yaml.in/yaml/v3"
)

// Cadence is one task's normal interval and its error backoff.
type Cadence struct {
	Interval time.Duration
	Backoff  time.Duration
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type CacheConfig struct {
	Size int `yaml:"size"`
}

type BatchConfig struct {
	// Autostart is a pointer so an omitted key keeps the default (true)
	// while an explicit false disables it.
	Autostart   *bool                  `yaml:"autostart"`
	JoinTimeout string                 `yaml:"join_timeout"`
	Tasks       map[string]TaskCadence `yaml:"tasks"`
}

// TaskCadence overrides one task's cadence. Durations are Go duration
// strings, e.g. "5m" or "300s".
type TaskCadence struct {
	Interval string `yaml:"interval"`
	Backoff  string `yaml:"backoff"`
}

type JobsConfig struct {
	EngagementWindow   string  `yaml:"engagement_window"`
	ActivityWindow     string  `yaml:"activity_window"`
	TrendingWindowDays int     `yaml:"trending_window_days"`
	TrendingLimit      int     `yaml:"trending_limit"`
	LeaderboardLimit   int     `yaml:"leaderboard_limit"`
	DigestMinUnread    int     `yaml:"digest_min_unread"`
	WarmHitRatePct     float64 `yaml:"warm_hit_rate_pct"`
}

type fileConfig struct {
	HTTP  HTTPConfig  `yaml:"http"`
	DB    DBConfig    `yaml:"db"`
	Cache CacheConfig `yaml:"cache"`
	Batch BatchConfig `yaml:"batch"`
	Jobs  JobsConfig  `yaml:"jobs"`
}

// Config is the resolved runtime configuration with all durations parsed
// and defaults applied.
type Config struct {
	HTTPAddr  string
	DBPath    string
	CacheSize int

	Autostart   bool
	JoinTimeout time.Duration
	Cadences    map[string]Cadence

	EngagementWindow   time.Duration
	ActivityWindow     time.Duration
	TrendingWindowDays int
	TrendingLimit      int
	LeaderboardLimit   int
	DigestMinUnread    int
	WarmHitRatePct     float64
}

// Default cadences for the built-in tasks (normal interval / error backoff).
var defaultCadences = map[string]Cadence{
	"engagement_metrics":    {Interval: 300 * time.Second, Backoff: 60 * time.Second},
	"trending_content":      {Interval: 900 * time.Second, Backoff: 300 * time.Second},
	"notification_digest":   {Interval: 3600 * time.Second, Backoff: 600 * time.Second},
	"cache_maintenance":     {Interval: 1800 * time.Second, Backoff: 600 * time.Second},
	"analytics_aggregation": {Interval: 600 * time.Second, Backoff: 300 * time.Second},
}

func Default() Config {
	cadences := make(map[string]Cadence, len(defaultCadences))
	for name, c := range defaultCadences {
		cadences[name] = c
	}
	return Config{
		HTTPAddr:           ":8080",
		DBPath:             "skillpulse.db",
		CacheSize:          4096,
		Autostart:          true,
		JoinTimeout:        10 * time.Second,
		Cadences:           cadences,
		EngagementWindow:   time.Hour,
		ActivityWindow:     24 * time.Hour,
		TrendingWindowDays: 1,
		TrendingLimit:      50,
		LeaderboardLimit:   50,
		DigestMinUnread:    5,
		WarmHitRatePct:     60,
	}
}

// Load reads a YAML config file and overlays it on the defaults. An empty
// path returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		// An empty document decodes to io.EOF; an empty file keeps the
		// defaults.
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg.apply(fc)
}

func (cfg Config) apply(fc fileConfig) (Config, error) {
	if fc.HTTP.Addr != "" {
		cfg.HTTPAddr = fc.HTTP.Addr
	}
	if fc.DB.Path != "" {
		cfg.DBPath = fc.DB.Path
	}
	if fc.Cache.Size > 0 {
		cfg.CacheSize = fc.Cache.Size
	}

	if fc.Batch.Autostart != nil {
		cfg.Autostart = *fc.Batch.Autostart
	}

	var err error
	if cfg.JoinTimeout, err = parseDurationOrDefault("batch.join_timeout", fc.Batch.JoinTimeout, cfg.JoinTimeout); err != nil {
		return cfg, err
	}

	for name, tc := range fc.Batch.Tasks {
		cur, ok := cfg.Cadences[name]
		if !ok {
			return cfg, fmt.Errorf("batch.tasks: unknown task %q", name)
		}
		if cur.Interval, err = parseDurationOrDefault("batch.tasks."+name+".interval", tc.Interval, cur.Interval); err != nil {
			return cfg, err
		}
		if cur.Backoff, err = parseDurationOrDefault("batch.tasks."+name+".backoff", tc.Backoff, cur.Backoff); err != nil {
			return cfg, err
		}
		cfg.Cadences[name] = cur
	}

	if cfg.EngagementWindow, err = parseDurationOrDefault("jobs.engagement_window", fc.Jobs.EngagementWindow, cfg.EngagementWindow); err != nil {
		return cfg, err
	}
	if cfg.ActivityWindow, err = parseDurationOrDefault("jobs.activity_window", fc.Jobs.ActivityWindow, cfg.ActivityWindow); err != nil {
		return cfg, err
	}
	if fc.Jobs.TrendingWindowDays != 0 {
		if fc.Jobs.TrendingWindowDays < 1 || fc.Jobs.TrendingWindowDays > 30 {
			return cfg, fmt.Errorf("jobs.trending_window_days: must be 1..30, got %d", fc.Jobs.TrendingWindowDays)
		}
		cfg.TrendingWindowDays = fc.Jobs.TrendingWindowDays
	}
	if fc.Jobs.TrendingLimit > 0 {
		cfg.TrendingLimit = fc.Jobs.TrendingLimit
	}
	if fc.Jobs.LeaderboardLimit > 0 {
		cfg.LeaderboardLimit = fc.Jobs.LeaderboardLimit
	}
	if fc.Jobs.DigestMinUnread > 0 {
		cfg.DigestMinUnread = fc.Jobs.DigestMinUnread
	}
	if fc.Jobs.WarmHitRatePct > 0 {
		cfg.WarmHitRatePct = fc.Jobs.WarmHitRatePct
	}
	return cfg, nil
}

func parseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: duration must be > 0", path)
	}
	return d, nil
}
