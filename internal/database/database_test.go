package database

import (
	"context"
	"path/filepath"
	"testing"
)

// newTestManager opens a fresh database under t.TempDir with the embedded
// schema applied.
func newTestManager(t *testing.T) *Manager {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.duckdb")

	mgr, err := New(dbPath, "")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() {
		mgr.Close()
	})

	if err := mgr.Initialize(context.Background(), false); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}

	return mgr
}
