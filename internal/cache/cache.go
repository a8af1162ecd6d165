package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// entry is a cached payload with its insertion time.
// seq breaks ties between entries inserted at the same instant.
type entry[V any] struct {
	value      V
	insertedAt time.Time
	seq        uint64
}

// Stats is a point-in-time view of cache counters.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hitRate"`
	Size    int     `json:"size"`
}

// Cache is a TTL key/value cache bounded to MaxSize entries. When full, the
// entry with the oldest insertion time is evicted. Failed lookups are never
// stored.
type Cache[V any] struct {
	ttl     time.Duration
	maxSize int
	now     func() time.Time

	mu      sync.RWMutex
	entries map[string]entry[V]
	seq     uint64

	hits   atomic.Int64
	misses atomic.Int64

	sweepMu sync.Mutex
	stopCh  chan struct{}
	doneCh  chan struct{}
}

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func New[V any](ttl time.Duration, maxSize int, opts ...Option) *Cache[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if maxSize <= 0 {
		maxSize = 1
	}
	return &Cache[V]{
		ttl:     ttl,
		maxSize: maxSize,
		now:     o.now,
		entries: make(map[string]entry[V], maxSize),
	}
}

// Get returns the payload for key if present and younger than the TTL.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.expired(e, c.now()) {
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	c.hits.Add(1)
	return e.value, true
}

// Set inserts or overwrites key with the current time.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldestLocked()
	}

	c.seq++
	c.entries[key] = entry[V]{value: value, insertedAt: c.now(), seq: c.seq}
}

func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache[V]) Stats() Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return Stats{Hits: hits, Misses: misses, HitRate: rate, Size: c.Len()}
}

// Sweep removes every expired entry and reports how many were dropped.
func (c *Cache[V]) Sweep() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		if c.expired(e, now) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Start runs Sweep every interval until Stop is called. Calling Start on a
// cache that is already sweeping is a no-op.
func (c *Cache[V]) Start(interval time.Duration) {
	c.sweepMu.Lock()
	defer c.sweepMu.Unlock()
	if c.stopCh != nil {
		return
	}
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})

	go func(stop <-chan struct{}, done chan<- struct{}) {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.Sweep()
			}
		}
	}(c.stopCh, c.doneCh)
}

// Stop halts the background sweep and waits for it to exit.
func (c *Cache[V]) Stop() {
	c.sweepMu.Lock()
	defer c.sweepMu.Unlock()
	if c.stopCh == nil {
		return
	}
	close(c.stopCh)
	<-c.doneCh
	c.stopCh, c.doneCh = nil, nil
}

func (c *Cache[V]) expired(e entry[V], now time.Time) bool {
	return now.Sub(e.insertedAt) > c.ttl
}

func (c *Cache[V]) evictOldestLocked() {
	var (
		oldestKey string
		oldest    entry[V]
		found     bool
	)
	for k, e := range c.entries {
		if !found || e.insertedAt.Before(oldest.insertedAt) ||
			(e.insertedAt.Equal(oldest.insertedAt) && e.seq < oldest.seq) {
			oldestKey, oldest, found = k, e, true
		}
	}
	if found {
		delete(c.entries, oldestKey)
	}
}
