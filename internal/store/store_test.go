package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"newsforge/internal/assetindex"
	"newsforge/internal/contentcache"
	"newsforge/internal/production"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenPath(filepath.Join(t.TempDir(), "newsforge.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

func TestSaveAndGetJobRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	completed := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	job := &production.Job{
		ID:              "job-1",
		ChannelID:       "chan-1",
		UserID:          "user-1",
		DateKey:         "2026-08-28",
		Status:          production.StatusCompleted,
		CurrentStep:     3,
		SelectedItemIDs: []string{"item-1", "item-2"},
		Script: []production.ScriptLine{
			{Speaker: "anna", Text: "Markets opened higher."},
			{Speaker: "ben", Text: "Tech led the rally."},
		},
		ViralHook: "You won't believe the open",
		Metadata:  &production.Metadata{Title: "Daily Brief", Description: "d", Tags: []string{"news"}},
		Segments: []production.Segment{
			{Speaker: "anna", Text: "Markets opened higher.", AudioRef: "file:///a0", VideoRef: "https://v/0"},
			{Speaker: "ben", Text: "Tech led the rally.", AudioRef: "file:///a1"},
		},
		Videos: production.VideoAssets{
			Wide:  []string{"https://v/wide"},
			Roles: map[string][]string{"anna": {"https://v/0"}},
		},
		ThumbnailURLs: []string{"file:///thumb"},
		CreatedAt:     completed.Add(-time.Hour),
		UpdatedAt:     completed,
		CompletedAt:   &completed,
	}
	if err := store.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}

	loaded, err := store.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if loaded == nil {
		t.Fatal("job missing")
	}
	if loaded.Status != production.StatusCompleted || loaded.CurrentStep != 3 {
		t.Fatalf("status/step = %s/%d", loaded.Status, loaded.CurrentStep)
	}
	if len(loaded.Script) != 2 || loaded.Script[1].Speaker != "ben" {
		t.Fatalf("script round trip failed: %+v", loaded.Script)
	}
	if len(loaded.Segments) != 2 || loaded.Segments[0].VideoRef != "https://v/0" || loaded.Segments[1].VideoRef != "" {
		t.Fatalf("segments round trip failed: %+v", loaded.Segments)
	}
	if loaded.Metadata == nil || loaded.Metadata.Title != "Daily Brief" {
		t.Fatalf("metadata round trip failed: %+v", loaded.Metadata)
	}
	if len(loaded.Videos.Roles["anna"]) != 1 || len(loaded.Videos.Wide) != 1 {
		t.Fatalf("videos round trip failed: %+v", loaded.Videos)
	}
	if loaded.CompletedAt == nil || !loaded.CompletedAt.Equal(completed) {
		t.Fatalf("completed at = %v", loaded.CompletedAt)
	}

	// Upsert replaces, not duplicates.
	job.Status = production.StatusFailed
	job.ErrorMessage = "voice backend down"
	if err := store.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob upsert: %v", err)
	}
	loaded, err = store.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if loaded.Status != production.StatusFailed || loaded.ErrorMessage != "voice backend down" {
		t.Fatalf("upsert failed: %s %q", loaded.Status, loaded.ErrorMessage)
	}
}

func TestGetJobAbsent(t *testing.T) {
	store := openTestStore(t)
	job, err := store.GetJob(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job != nil {
		t.Fatalf("expected nil for absent job, got %+v", job)
	}
}

func TestJobsByChannel(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"job-1", "job-2"} {
		job := &production.Job{ID: id, ChannelID: "chan-1", Status: production.StatusCreated, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
		if err := store.SaveJob(ctx, job); err != nil {
			t.Fatalf("SaveJob: %v", err)
		}
	}
	other := &production.Job{ID: "job-3", ChannelID: "chan-2", Status: production.StatusCreated, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	if err := store.SaveJob(ctx, other); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}

	jobs, err := store.JobsByChannel(ctx, "chan-1", 10)
	if err != nil {
		t.Fatalf("JobsByChannel: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("jobs = %d, want 2", len(jobs))
	}
}

func TestCacheEntryLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	put := func(key string) {
		t.Helper()
		err := store.PutCacheEntry(ctx, contentcache.Entry{
			ChannelID: "chan-1",
			Key:       key,
			Value:     "v:" + key,
			CostSaved: 0.08,
			CreatedAt: now,
			ExpiresAt: now.Add(time.Hour),
		})
		if err != nil {
			t.Fatalf("PutCacheEntry(%s): %v", key, err)
		}
	}
	put("script:a")
	put("script:b")
	put("hook:a")

	entry, err := store.GetCacheEntry(ctx, "chan-1", "script:a")
	if err != nil {
		t.Fatalf("GetCacheEntry: %v", err)
	}
	if entry == nil || entry.Value != "v:script:a" {
		t.Fatalf("round trip failed: %+v", entry)
	}
	if !entry.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("expires at = %v", entry.ExpiresAt)
	}

	// Same (scope, key) upserts.
	put("script:a")
	count, err := store.CacheEntryCount(ctx, "chan-1")
	if err != nil {
		t.Fatalf("CacheEntryCount: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}

	// Scope isolation.
	if entry, err := store.GetCacheEntry(ctx, "chan-2", "script:a"); err != nil || entry != nil {
		t.Fatalf("cross-scope read: %+v, %v", entry, err)
	}

	recent, err := store.RecentCacheEntries(ctx, "chan-1", 2)
	if err != nil {
		t.Fatalf("RecentCacheEntries: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("recent = %d, want limit 2", len(recent))
	}

	removed, err := store.DeleteCacheEntriesByPrefix(ctx, "chan-1", "script:")
	if err != nil {
		t.Fatalf("DeleteCacheEntriesByPrefix: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	if entry, err := store.GetCacheEntry(ctx, "chan-1", "hook:a"); err != nil || entry == nil {
		t.Fatalf("unrelated prefix should survive: %+v, %v", entry, err)
	}

	if err := store.DeleteCacheEntry(ctx, "chan-1", "hook:a"); err != nil {
		t.Fatalf("DeleteCacheEntry: %v", err)
	}
	count, err = store.CacheEntryCount(ctx, "chan-1")
	if err != nil {
		t.Fatalf("CacheEntryCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("count = %d, want 0", count)
	}
}

func TestPrefixDeleteEscapesLikeWildcards(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	for _, key := range []string{"a_b:1", "axb:1"} {
		err := store.PutCacheEntry(ctx, contentcache.Entry{
			ChannelID: "chan-1", Key: key, Value: "v",
			CreatedAt: now, ExpiresAt: now.Add(time.Hour),
		})
		if err != nil {
			t.Fatalf("PutCacheEntry: %v", err)
		}
	}

	removed, err := store.DeleteCacheEntriesByPrefix(ctx, "chan-1", "a_b")
	if err != nil {
		t.Fatalf("DeleteCacheEntriesByPrefix: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1 (underscore must not act as a wildcard)", removed)
	}
}

func TestAssetLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	record := assetindex.Record{
		ID:              "asset-1",
		ChannelID:       "chan-1",
		Type:            assetindex.AssetVideo,
		URL:             "https://cdn.example/a.mp4",
		ProductionID:    "job-1",
		DialogueText:    "Markets opened higher.",
		SceneType:       "presenter",
		ShotType:        "talking-head",
		DurationSeconds: 4.5,
		Resolution:      "720p",
		AspectRatio:     "16:9",
		CreatedAt:       now,
	}
	if err := store.InsertAsset(ctx, record); err != nil {
		t.Fatalf("InsertAsset: %v", err)
	}

	loaded, err := store.GetAsset(ctx, "asset-1")
	if err != nil {
		t.Fatalf("GetAsset: %v", err)
	}
	if loaded == nil || loaded.DialogueText != record.DialogueText || loaded.AspectRatio != "16:9" {
		t.Fatalf("round trip failed: %+v", loaded)
	}
	if loaded.LastUsedAt != nil {
		t.Fatalf("fresh asset has LastUsedAt = %v", loaded.LastUsedAt)
	}

	usedAt := now.Add(time.Hour)
	if err := store.MarkAssetUsed(ctx, "asset-1", usedAt); err != nil {
		t.Fatalf("MarkAssetUsed: %v", err)
	}
	if err := store.MarkAssetUsed(ctx, "asset-1", usedAt.Add(time.Hour)); err != nil {
		t.Fatalf("MarkAssetUsed: %v", err)
	}
	loaded, err = store.GetAsset(ctx, "asset-1")
	if err != nil {
		t.Fatalf("GetAsset: %v", err)
	}
	if loaded.UseCount != 2 {
		t.Fatalf("use count = %d, want 2", loaded.UseCount)
	}
	if loaded.LastUsedAt == nil {
		t.Fatal("expected LastUsedAt to be stamped")
	}

	if err := store.MarkAssetUsed(ctx, "missing", usedAt); err == nil {
		t.Fatal("expected error for unknown asset")
	}

	byChannel, err := store.AssetsByChannel(ctx, "chan-1", assetindex.AssetVideo, 10)
	if err != nil {
		t.Fatalf("AssetsByChannel: %v", err)
	}
	if len(byChannel) != 1 {
		t.Fatalf("assets = %d, want 1", len(byChannel))
	}
	if assets, err := store.AssetsByChannel(ctx, "chan-1", assetindex.AssetAudio, 10); err != nil || len(assets) != 0 {
		t.Fatalf("type filter failed: %d, %v", len(assets), err)
	}
}

func TestPopularAssetsOrdering(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	insert := func(id string, assetType assetindex.AssetType, uses int) {
		t.Helper()
		if err := store.InsertAsset(ctx, assetindex.Record{
			ID: id, ChannelID: "chan-1", Type: assetType,
			URL: "https://cdn.example/" + id, CreatedAt: now,
		}); err != nil {
			t.Fatalf("InsertAsset(%s): %v", id, err)
		}
		for i := 0; i < uses; i++ {
			if err := store.MarkAssetUsed(ctx, id, now); err != nil {
				t.Fatalf("MarkAssetUsed(%s): %v", id, err)
			}
		}
	}
	insert("video-hot", assetindex.AssetVideo, 5)
	insert("video-cold", assetindex.AssetVideo, 1)
	insert("audio-warm", assetindex.AssetAudio, 3)

	popular, err := store.PopularAssets(ctx, "chan-1", assetindex.AssetVideo, 10)
	if err != nil {
		t.Fatalf("PopularAssets: %v", err)
	}
	if len(popular) != 2 || popular[0].ID != "video-hot" {
		t.Fatalf("unexpected ordering: %+v", popular)
	}

	// Empty type spans all asset types.
	all, err := store.PopularAssets(ctx, "chan-1", "", 10)
	if err != nil {
		t.Fatalf("PopularAssets: %v", err)
	}
	if len(all) != 3 || all[0].ID != "video-hot" || all[1].ID != "audio-warm" {
		t.Fatalf("unexpected ordering across types: %+v", all)
	}
}

func TestReopenKeepsSchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "newsforge.db")
	store, err := OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	job := &production.Job{ID: "job-1", ChannelID: "chan-1", Status: production.StatusCreated, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	if err := store.SaveJob(context.Background(), job); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := OpenPath(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	loaded, err := reopened.GetJob(context.Background(), "job-1")
	if err != nil || loaded == nil {
		t.Fatalf("GetJob after reopen: %+v, %v", loaded, err)
	}
}
