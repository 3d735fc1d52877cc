package contentcache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"newsforge/internal/logging"
)

const (
	defaultFuzzyThreshold      = 0.8
	defaultFuzzyReuseThreshold = 0.85
	defaultCandidateLimit      = 100
)

// Options tunes fuzzy matching and durable-tier scanning.
type Options struct {
	// FuzzyThreshold is the minimum similarity FindSimilar accepts when the
	// caller does not supply one.
	FuzzyThreshold float64
	// FuzzyReuseThreshold is the minimum similarity GetOrGenerateWithFuzzy
	// accepts before reusing a near-match instead of generating.
	FuzzyReuseThreshold float64
	// DurableCandidateLimit bounds how many durable entries a fuzzy scan loads.
	DurableCandidateLimit int
}

func (o Options) withDefaults() Options {
	if o.FuzzyThreshold <= 0 {
		o.FuzzyThreshold = defaultFuzzyThreshold
	}
	if o.FuzzyReuseThreshold <= 0 {
		o.FuzzyReuseThreshold = defaultFuzzyReuseThreshold
	}
	if o.DurableCandidateLimit <= 0 {
		o.DurableCandidateLimit = defaultCandidateLimit
	}
	return o
}

// Stats summarizes the in-process tier. Durable-only entries are not counted,
// so the cost figure is an approximation used for savings reporting.
type Stats struct {
	Entries   int
	CostSaved float64
}

// Cache memoizes generation output for one channel scope.
type Cache struct {
	scope   string
	durable DurableTier
	logger  *slog.Logger
	opts    Options

	mu      sync.RWMutex
	entries map[string]Entry

	flight singleflight.Group

	now func() time.Time
}

// New constructs a cache for the given channel scope. The durable tier may be
// nil, in which case the cache is purely in-process.
func New(scope string, durable DurableTier, logger *slog.Logger, opts Options) *Cache {
	return &Cache{
		scope:   scope,
		durable: durable,
		logger:  logging.NewComponentLogger(logger, "contentcache"),
		opts:    opts.withDefaults(),
		entries: make(map[string]Entry),
		now:     time.Now,
	}
}

// Scope returns the channel this cache is bound to.
func (c *Cache) Scope() string {
	return c.scope
}

// Get reads the in-process tier only. Expired entries count as misses and are
// dropped from memory; the durable copy is cleaned up on the next durable read.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return "", false
	}
	if entry.Expired(c.now()) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return "", false
	}
	return entry.Value, true
}

// GetAsync reads the in-process tier, then the durable tier. Durable hits are
// promoted into memory.
func (c *Cache) GetAsync(ctx context.Context, key string) (string, bool, error) {
	if value, ok := c.Get(key); ok {
		return value, true, nil
	}
	entry, ok, err := c.durableLookup(ctx, key)
	if err != nil || !ok {
		return "", false, err
	}
	return entry.Value, true, nil
}

// Set writes both tiers directly.
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration, cost float64) error {
	entry := c.makeEntry(key, value, ttl, cost)
	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()

	if c.durable == nil {
		return nil
	}
	if err := c.durable.PutCacheEntry(ctx, entry); err != nil {
		return fmt.Errorf("persist cache entry: %w", err)
	}
	return nil
}

// GetOrGenerate returns the cached value for key, generating and storing it on
// a miss. Concurrent callers for the same key share a single generation.
func (c *Cache) GetOrGenerate(ctx context.Context, key string, ttl time.Duration, cost float64, generate func(context.Context) (string, error)) (string, error) {
	if value, ok := c.Get(key); ok {
		return value, nil
	}

	value, err, _ := c.flight.Do(key, func() (any, error) {
		// Re-check both tiers: another flight may have stored the value
		// between the caller's miss and this execution.
		if value, ok := c.Get(key); ok {
			return value, nil
		}
		if entry, ok, err := c.durableLookup(ctx, key); err != nil {
			c.logger.Warn("durable cache read failed",
				logging.String("cache_key", key),
				logging.Error(err))
		} else if ok {
			return entry.Value, nil
		}

		generated, err := generate(ctx)
		if err != nil {
			return "", err
		}
		if err := c.Set(ctx, key, generated, ttl, cost); err != nil {
			c.logger.Warn("cache store failed",
				logging.String("cache_key", key),
				logging.Error(err))
		}
		return generated, nil
	})
	if err != nil {
		return "", err
	}
	return value.(string), nil
}

// InvalidateByPrefix removes every entry whose key starts with prefix from
// both tiers and returns the number of in-process entries removed.
func (c *Cache) InvalidateByPrefix(ctx context.Context, prefix string) (int, error) {
	c.mu.Lock()
	removed := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			removed++
		}
	}
	c.mu.Unlock()

	if c.durable != nil {
		if _, err := c.durable.DeleteCacheEntriesByPrefix(ctx, c.scope, prefix); err != nil {
			return removed, fmt.Errorf("invalidate durable entries: %w", err)
		}
	}
	return removed, nil
}

// GetStats reports the entry count and accumulated cost savings of the
// in-process tier.
func (c *Cache) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	stats := Stats{Entries: len(c.entries)}
	for _, entry := range c.entries {
		stats.CostSaved += entry.CostSaved
	}
	return stats
}

func (c *Cache) makeEntry(key, value string, ttl time.Duration, cost float64) Entry {
	now := c.now().UTC()
	return Entry{
		ChannelID: c.scope,
		Key:       key,
		Value:     value,
		CostSaved: cost,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// durableLookup reads the durable tier, deleting expired entries best-effort
// and promoting live hits into memory.
func (c *Cache) durableLookup(ctx context.Context, key string) (Entry, bool, error) {
	if c.durable == nil {
		return Entry{}, false, nil
	}
	entry, err := c.durable.GetCacheEntry(ctx, c.scope, key)
	if err != nil {
		return Entry{}, false, fmt.Errorf("read durable cache: %w", err)
	}
	if entry == nil {
		return Entry{}, false, nil
	}
	if entry.Expired(c.now()) {
		if err := c.durable.DeleteCacheEntry(ctx, c.scope, key); err != nil {
			c.logger.Debug("expired entry cleanup failed",
				logging.String("cache_key", key),
				logging.Error(err))
		}
		return Entry{}, false, nil
	}
	c.mu.Lock()
	c.entries[key] = *entry
	c.mu.Unlock()
	return *entry, true, nil
}
