package contentcache

import (
	"context"
	"time"

	"newsforge/internal/logging"
	"newsforge/internal/textutil"
)

// Match is a fuzzy-retrieval result.
type Match struct {
	Entry      Entry
	Similarity float64
}

// FindSimilar returns the best-scoring unexpired entry whose normalized key
// reaches the threshold, scanning in-process entries plus a bounded number of
// recent durable entries. A threshold of zero uses the configured default.
func (c *Cache) FindSimilar(ctx context.Context, key string, threshold float64) (*Match, error) {
	if threshold <= 0 {
		threshold = c.opts.FuzzyThreshold
	}
	target := textutil.Normalize(key)
	now := c.now()

	var best *Match
	consider := func(entry Entry) {
		if entry.Expired(now) {
			return
		}
		score := textutil.Similarity(target, textutil.Normalize(entry.Key))
		if score < threshold {
			return
		}
		if best == nil || score > best.Similarity {
			best = &Match{Entry: entry, Similarity: score}
		}
	}

	c.mu.RLock()
	memoryKeys := make(map[string]struct{}, len(c.entries))
	for _, entry := range c.entries {
		memoryKeys[entry.Key] = struct{}{}
		consider(entry)
	}
	c.mu.RUnlock()

	if c.durable != nil {
		candidates, err := c.durable.RecentCacheEntries(ctx, c.scope, c.opts.DurableCandidateLimit)
		if err != nil {
			// Memory-tier matches are still usable when the durable scan fails.
			c.logger.Warn("durable fuzzy scan failed", logging.Error(err))
		} else {
			for _, entry := range candidates {
				if _, seen := memoryKeys[entry.Key]; seen {
					continue
				}
				consider(entry)
			}
		}
	}
	return best, nil
}

// GetOrGenerateWithFuzzy tries an exact hit, then a fuzzy hit at or above
// threshold, and finally falls back to GetOrGenerate.
func (c *Cache) GetOrGenerateWithFuzzy(ctx context.Context, key string, ttl time.Duration, cost float64, threshold float64, generate func(context.Context) (string, error)) (string, error) {
	if value, ok, err := c.GetAsync(ctx, key); err == nil && ok {
		return value, nil
	} else if err != nil {
		c.logger.Warn("exact lookup failed, continuing to fuzzy",
			logging.String("cache_key", key),
			logging.Error(err))
	}

	if threshold <= 0 {
		threshold = c.opts.FuzzyReuseThreshold
	}
	match, err := c.FindSimilar(ctx, key, threshold)
	if err == nil && match != nil {
		c.logger.Debug("fuzzy cache hit",
			logging.String("cache_key", key),
			logging.String("matched_key", match.Entry.Key),
			logging.Float64("similarity", match.Similarity))
		return match.Entry.Value, nil
	}

	return c.GetOrGenerate(ctx, key, ttl, cost, generate)
}
