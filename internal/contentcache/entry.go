package contentcache

import (
	"context"
	"time"
)

// Entry is a cached value scoped to a channel, unique per (scope, key).
type Entry struct {
	ChannelID string
	Key       string
	Value     string
	CostSaved float64
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the entry's TTL has elapsed at the given instant.
func (e Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// DurableTier is the persistence capability the cache needs from its backing
// store. Absent entries are returned as nil without error.
type DurableTier interface {
	GetCacheEntry(ctx context.Context, scope, key string) (*Entry, error)
	PutCacheEntry(ctx context.Context, entry Entry) error
	DeleteCacheEntry(ctx context.Context, scope, key string) error
	RecentCacheEntries(ctx context.Context, scope string, limit int) ([]Entry, error)
	DeleteCacheEntriesByPrefix(ctx context.Context, scope, prefix string) (int64, error)
}
