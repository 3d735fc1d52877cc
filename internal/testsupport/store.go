package testsupport

import (
	"context"
	"testing"

	"newsforge/internal/config"
	"newsforge/internal/production"
	"newsforge/internal/store"
)

// MustOpenStore opens a store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// SaveJob persists a job for tests, failing on error.
func SaveJob(t testing.TB, st *store.Store, job *production.Job) {
	t.Helper()

	if err := st.SaveJob(context.Background(), job); err != nil {
		t.Fatalf("store.SaveJob: %v", err)
	}
}
