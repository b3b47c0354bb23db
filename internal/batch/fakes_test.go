package batch

import (
	"context"
	"errors"
	"sync"
	"time"

	"skillpulse/internal/cache"
	"skillpulse/internal/domain"
)

// fakeEvents aggregates over an in-memory event slice, honoring the same
// (since, until] window semantics as the sqlite store.
type fakeEvents struct {
	mu        sync.Mutex
	events    []domain.Event
	failQuery bool
}

var errStoreDown = errors.New("store unavailable")

func (f *fakeEvents) add(e domain.Event) {
	f.mu.Lock()
	f.events = append(f.events, e)
	f.mu.Unlock()
}

func skillEventCounted(t string) bool {
	switch t {
	case "skill_view", "skill_like", "skill_download", "skill_comment":
		return true
	}
	return false
}

func (f *fakeEvents) SkillEngagement(ctx context.Context, since, until time.Time) ([]domain.SkillEngagement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failQuery {
		return nil, errStoreDown
	}
	counts := map[string]*domain.EventCounts{}
	users := map[string]map[string]bool{}
	for _, e := range f.events {
		if e.SkillID == "" || !skillEventCounted(e.EventType) {
			continue
		}
		if !e.Timestamp.After(since) || e.Timestamp.After(until) {
			continue
		}
		c := counts[e.SkillID]
		if c == nil {
			c = &domain.EventCounts{}
			counts[e.SkillID] = c
			users[e.SkillID] = map[string]bool{}
		}
		switch e.EventType {
		case "skill_view":
			c.Views++
		case "skill_like":
			c.Likes++
		case "skill_download":
			c.Downloads++
		case "skill_comment":
			c.Comments++
		}
		users[e.SkillID][e.UserID] = true
	}
	var out []domain.SkillEngagement
	for id, c := range counts {
		c.UniqueUsers = len(users[id])
		out = append(out, domain.SkillEngagement{SkillID: id, Counts: *c})
	}
	return out, nil
}

func (f *fakeEvents) UserActivity(ctx context.Context, since, until time.Time) ([]domain.UserActivity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failQuery {
		return nil, errStoreDown
	}
	type acc struct {
		total int
		types map[string]bool
		last  time.Time
	}
	byUser := map[string]*acc{}
	for _, e := range f.events {
		if e.UserID == "" || !e.Timestamp.After(since) || e.Timestamp.After(until) {
			continue
		}
		a := byUser[e.UserID]
		if a == nil {
			a = &acc{types: map[string]bool{}}
			byUser[e.UserID] = a
		}
		a.total++
		a.types[e.EventType] = true
		if e.Timestamp.After(a.last) {
			a.last = e.Timestamp
		}
	}
	var out []domain.UserActivity
	for id, a := range byUser {
		out = append(out, domain.UserActivity{UserID: id, TotalEvents: a.total, DistinctTypes: len(a.types), LastActivity: a.last})
	}
	return out, nil
}

func (f *fakeEvents) TrendingSkills(ctx context.Context, since, until time.Time) ([]domain.TrendingItem, error) {
	skills, err := f.SkillEngagement(ctx, since, until)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.TrendingItem
	for _, s := range skills {
		it := domain.TrendingItem{SkillID: s.SkillID, Counts: s.Counts}
		for _, e := range f.events {
			if e.SkillID == s.SkillID && e.Timestamp.After(it.LatestActivity) {
				it.LatestActivity = e.Timestamp
			}
		}
		out = append(out, it)
	}
	return out, nil
}

func (f *fakeEvents) DailyStats(ctx context.Context, dayStart, dayEnd time.Time) ([]domain.DailyStat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failQuery {
		return nil, errStoreDown
	}
	counts := map[string]int{}
	users := map[string]map[string]bool{}
	for _, e := range f.events {
		if e.Timestamp.Before(dayStart) || !e.Timestamp.Before(dayEnd) {
			continue
		}
		counts[e.EventType]++
		if users[e.EventType] == nil {
			users[e.EventType] = map[string]bool{}
		}
		users[e.EventType][e.UserID] = true
	}
	var out []domain.DailyStat
	for t, n := range counts {
		out = append(out, domain.DailyStat{EventType: t, Count: n, UniqueUsers: len(users[t])})
	}
	return out, nil
}

func (f *fakeEvents) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failQuery {
		return 0, errStoreDown
	}
	var kept []domain.Event
	var deleted int64
	for _, e := range f.events {
		if e.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	f.events = kept
	return deleted, nil
}

func (f *fakeEvents) Insert(ctx context.Context, e domain.Event) error {
	f.add(e)
	return nil
}

type fakeProfiles struct {
	mu          sync.Mutex
	skillCounts map[string]domain.EventCounts
	skillScores map[string]int
	trending    map[string]float64
	userTotals  map[string]int
	failSkills  map[string]bool
	applyCalls  int
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{
		skillCounts: map[string]domain.EventCounts{},
		skillScores: map[string]int{},
		trending:    map[string]float64{},
		userTotals:  map[string]int{},
		failSkills:  map[string]bool{},
	}
}

func (f *fakeProfiles) ApplySkillEngagement(ctx context.Context, skillID string, c domain.EventCounts, score int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applyCalls++
	if f.failSkills[skillID] {
		return errStoreDown
	}
	cur := f.skillCounts[skillID]
	cur.Views += c.Views
	cur.Likes += c.Likes
	cur.Downloads += c.Downloads
	cur.Comments += c.Comments
	cur.UniqueUsers += c.UniqueUsers
	f.skillCounts[skillID] = cur
	f.skillScores[skillID] = score
	return nil
}

func (f *fakeProfiles) ApplyUserActivity(ctx context.Context, userID string, score int, lastActivity time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userTotals[userID] += score
	return nil
}

func (f *fakeProfiles) SetTrendingScore(ctx context.Context, skillID string, score float64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trending[skillID] = score
	return nil
}

func (f *fakeProfiles) TopUsersByEngagement(ctx context.Context, limit int) ([]domain.UserRank, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.UserRank
	for id, score := range f.userTotals {
		out = append(out, domain.UserRank{UserID: id, Score: score})
	}
	return out, nil
}

type fakeNotifications struct {
	mu         sync.Mutex
	candidates []domain.DigestCandidate
	deleted    int64
	failDelete bool
}

func (f *fakeNotifications) DigestCandidates(ctx context.Context, since time.Time, minUnread int) ([]domain.DigestCandidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.DigestCandidate
	for _, c := range f.candidates {
		if c.UnreadCount >= minUnread {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeNotifications) Create(ctx context.Context, n domain.Notification) (string, error) {
	return "ntf_fake", nil
}

func (f *fakeNotifications) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete {
		return 0, errStoreDown
	}
	return f.deleted, nil
}

type notifierCall struct {
	UserID string
	Type   string
	Data   map[string]any
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notifierCall
	fail  bool
}

func (f *fakeNotifier) Create(ctx context.Context, userID, ntype, refType, refID string, data map[string]any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", errStoreDown
	}
	f.calls = append(f.calls, notifierCall{UserID: userID, Type: ntype, Data: data})
	return "ntf_fake", nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeCache is a plain map cache with a settable hit rate so maintenance
// behavior can be pinned.
type fakeCache struct {
	mu      sync.Mutex
	data    map[string]fakeEntry
	hitRate float64
}

type fakeEntry struct {
	val       any
	ttl       time.Duration
	expiresAt time.Time
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string]fakeEntry{}, hitRate: 100}
}

func (f *fakeCache) Get(key string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.data[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.val, true
}

func (f *fakeCache) Set(key string, val any, ttl time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = fakeEntry{val: val, ttl: ttl, expiresAt: time.Now().Add(ttl)}
}

func (f *fakeCache) Exists(key string) bool {
	_, ok := f.Get(key)
	return ok
}

func (f *fakeCache) Delete(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	delete(f.data, key)
	return ok
}

func (f *fakeCache) DeletePattern(pattern string) int {
	return 0
}

func (f *fakeCache) Stats() cache.Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cache.Stats{Keys: len(f.data), HitRate: f.hitRate}
}

func (f *fakeCache) ttlOf(key string) (time.Duration, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.data[key]
	return e.ttl, ok
}
