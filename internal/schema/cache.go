package schema

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"askdb.dev/askdb/internal/logger"
	"askdb.dev/askdb/internal/metrics"
)

// Describer produces the schema description for a filter.
type Describer interface {
	Describe(ctx context.Context, filter Filter) string
}

type cacheEntry struct {
	text    string
	expires time.Time
}

// CachedDescriber keeps rendered descriptions for ttl, keyed by dialect and
// filter. Unavailability results are never stored so a recovered database is
// picked up on the next call. A ttl of zero disables caching.
type CachedDescriber struct {
	intro  *Introspector
	ttl    time.Duration
	logger *logger.Logger
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
	group   singleflight.Group
}

func NewCachedDescriber(intro *Introspector, ttl time.Duration, log *logger.Logger) *CachedDescriber {
	if log == nil {
		log = logger.NewNop()
	}
	return &CachedDescriber{
		intro:   intro,
		ttl:     ttl,
		logger:  log,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

func (c *CachedDescriber) Describe(ctx context.Context, filter Filter) string {
	if c.ttl <= 0 {
		return c.intro.Describe(ctx, filter)
	}

	key := c.intro.Dialect() + "|" + filter.Key()
	if text, ok := c.lookup(key); ok {
		metrics.ObserveSchemaCache(true)
		return text
	}
	metrics.ObserveSchemaCache(false)

	v, _, _ := c.group.Do(key, func() (interface{}, error) {
		if text, ok := c.lookup(key); ok {
			return text, nil
		}
		snap, err := c.intro.Snapshot(ctx, filter)
		if err != nil {
			c.logger.Warn("schema introspection unavailable", "error", err)
			return err.Error(), nil
		}
		text := Render(snap)
		c.mu.Lock()
		c.entries[key] = cacheEntry{text: text, expires: c.now().Add(c.ttl)}
		c.mu.Unlock()
		return text, nil
	})
	return v.(string)
}

// Invalidate drops every cached description.
func (c *CachedDescriber) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
	c.logger.Info("schema cache invalidated")
}

func (c *CachedDescriber) lookup(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if c.now().After(e.expires) {
		delete(c.entries, key)
		return "", false
	}
	return e.text, true
}
