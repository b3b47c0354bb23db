package cache

import (
	"path"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type entry struct {
	val       any
	expiresAt time.Time
}

// LRU is a size-bounded TTL cache. The underlying expirable LRU is capped at
// the longest tier; per-entry deadlines shorter than that are enforced lazily
// on read.
type LRU struct {
	lru    *expirable.LRU[string, entry]
	hits   atomic.Uint64
	misses atomic.Uint64
}

func NewLRU(size int) *LRU {
	if size <= 0 {
		size = 4096
	}
	return &LRU{lru: expirable.NewLRU[string, entry](size, nil, LongTTL)}
}

func (c *LRU) Get(key string) (any, bool) {
	e, ok := c.lru.Get(key)
	if !ok || time.Now().After(e.expiresAt) {
		if ok {
			c.lru.Remove(key)
		}
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return e.val, true
}

func (c *LRU) Set(key string, val any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c.lru.Add(key, entry{val: val, expiresAt: time.Now().Add(ttl)})
}

// Exists reports whether the key is live without counting toward hit/miss
// stats or refreshing recency.
func (c *LRU) Exists(key string) bool {
	e, ok := c.lru.Peek(key)
	if !ok {
		return false
	}
	if time.Now().After(e.expiresAt) {
		c.lru.Remove(key)
		return false
	}
	return true
}

func (c *LRU) Delete(key string) bool {
	return c.lru.Remove(key)
}

func (c *LRU) DeletePattern(pattern string) int {
	n := 0
	for _, key := range c.lru.Keys() {
		ok, err := path.Match(pattern, key)
		if err != nil {
			return n
		}
		if ok && c.lru.Remove(key) {
			n++
		}
	}
	return n
}

func (c *LRU) Stats() Stats {
	s := Stats{
		Keys:   c.lru.Len(),
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total) * 100
	} else {
		s.HitRate = 100
	}
	return s
}
