package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"newsforge/internal/contentcache"
)

const cacheColumns = "channel_id, cache_key, value, cost_saved, created_at, expires_at"

// GetCacheEntry fetches one cache entry. Missing entries return nil.
func (s *Store) GetCacheEntry(ctx context.Context, scope, key string) (*contentcache.Entry, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+cacheColumns+` FROM cache_entries WHERE channel_id = ? AND cache_key = ?`,
		scope, key,
	)
	entry, err := scanCacheEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cache entry: %w", err)
	}
	return entry, nil
}

// PutCacheEntry inserts or replaces a cache entry keyed by (channel, key).
func (s *Store) PutCacheEntry(ctx context.Context, entry contentcache.Entry) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO cache_entries (`+cacheColumns+`)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(channel_id, cache_key) DO UPDATE SET
             value = excluded.value,
             cost_saved = excluded.cost_saved,
             created_at = excluded.created_at,
             expires_at = excluded.expires_at`,
		entry.ChannelID,
		entry.Key,
		entry.Value,
		entry.CostSaved,
		formatTime(entry.CreatedAt),
		formatTime(entry.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("put cache entry: %w", err)
	}
	return nil
}

// DeleteCacheEntry removes a single cache entry.
func (s *Store) DeleteCacheEntry(ctx context.Context, scope, key string) error {
	_, err := s.db.ExecContext(
		ctx,
		`DELETE FROM cache_entries WHERE channel_id = ? AND cache_key = ?`,
		scope, key,
	)
	if err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

// RecentCacheEntries returns the most recently written entries for a scope,
// bounding the candidate set for fuzzy scans.
func (s *Store) RecentCacheEntries(ctx context.Context, scope string, limit int) ([]contentcache.Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+cacheColumns+` FROM cache_entries WHERE channel_id = ? ORDER BY created_at DESC LIMIT ?`,
		scope, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent cache entries: %w", err)
	}
	defer rows.Close()

	var entries []contentcache.Entry
	for rows.Next() {
		entry, err := scanCacheEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// DeleteCacheEntriesByPrefix removes every entry in a scope whose key starts
// with prefix and returns the number removed.
func (s *Store) DeleteCacheEntriesByPrefix(ctx context.Context, scope, prefix string) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM cache_entries WHERE channel_id = ? AND cache_key LIKE ? ESCAPE '\'`,
		scope, escapeLike(prefix)+"%",
	)
	if err != nil {
		return 0, fmt.Errorf("delete cache entries by prefix: %w", err)
	}
	return res.RowsAffected()
}

// CacheEntryCount returns the number of durable entries in a scope.
func (s *Store) CacheEntryCount(ctx context.Context, scope string) (int, error) {
	var count int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM cache_entries WHERE channel_id = ?`,
		scope,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count cache entries: %w", err)
	}
	return count, nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}

func scanCacheEntry(scanner interface{ Scan(dest ...any) error }) (*contentcache.Entry, error) {
	var (
		channelID  string
		cacheKey   string
		value      string
		costSaved  float64
		createdRaw string
		expiresRaw string
	)
	if err := scanner.Scan(&channelID, &cacheKey, &value, &costSaved, &createdRaw, &expiresRaw); err != nil {
		return nil, err
	}
	entry := &contentcache.Entry{
		ChannelID: channelID,
		Key:       cacheKey,
		Value:     value,
		CostSaved: costSaved,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		entry.CreatedAt = created
	}
	if expires, err := parseTimeString(expiresRaw); err == nil {
		entry.ExpiresAt = expires
	}
	return entry, nil
}
