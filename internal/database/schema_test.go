package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestInitialize_IgnoreExistsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager(t)

	// Schema is already applied by the helper; a second run must succeed.
	if err := mgr.Initialize(ctx, true); err != nil {
		t.Fatalf("second initialize with ignore-exists failed: %v", err)
	}

	// Objects are intact afterwards.
	h, err := mgr.Handle(ctx, "check")
	if err != nil {
		t.Fatalf("failed to acquire handle: %v", err)
	}
	if err := h.AddToWatchlist(ctx, "SPY", ""); err != nil {
		t.Fatalf("watchlist unusable after re-initialize: %v", err)
	}
	symbols, err := h.ListWatchlist(ctx)
	if err != nil {
		t.Fatalf("failed to list watchlist: %v", err)
	}
	if len(symbols) != 1 || symbols[0] != "SPY" {
		t.Fatalf("expected [SPY], got %v", symbols)
	}
}

func TestInitialize_FailsOnExistingObjects(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager(t)

	if err := mgr.Initialize(ctx, false); err == nil {
		t.Fatal("expected second initialize without ignore-exists to fail")
	}
}

func TestInitialize_SchemaFileOverride(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	schemaPath := filepath.Join(dir, "schema.sql")
	schema := "CREATE TABLE notes (id BIGINT PRIMARY KEY, body VARCHAR NOT NULL);\n"
	if err := os.WriteFile(schemaPath, []byte(schema), 0o644); err != nil {
		t.Fatalf("failed to write schema file: %v", err)
	}

	mgr, err := New(filepath.Join(dir, "override.duckdb"), schemaPath)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	defer mgr.Close()

	if err := mgr.Initialize(ctx, false); err != nil {
		t.Fatalf("failed to initialize from schema file: %v", err)
	}

	h, err := mgr.Handle(ctx, "check")
	if err != nil {
		t.Fatalf("failed to acquire handle: %v", err)
	}
	if err := h.Exec(ctx, `INSERT INTO notes (id, body) VALUES (1, 'hello')`); err != nil {
		t.Fatalf("override schema table unusable: %v", err)
	}
}

func TestInitialize_MissingSchemaFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	mgr, err := New(filepath.Join(dir, "missing.duckdb"), filepath.Join(dir, "nope.sql"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	defer mgr.Close()

	if err := mgr.Initialize(ctx, false); err == nil {
		t.Fatal("expected initialize to fail for unreadable schema file")
	}
}

func TestSplitSQLStatements(t *testing.T) {
	sql := `
		-- leading comment
		CREATE TABLE a (id BIGINT);

		CREATE TABLE b (
			id BIGINT -- trailing comment line is kept
		);
		INSERT INTO a VALUES (1)
	`

	statements := splitSQLStatements(sql)
	if len(statements) != 3 {
		t.Fatalf("expected 3 statements, got %d: %q", len(statements), statements)
	}
	if statements[2] != "INSERT INTO a VALUES (1)" {
		t.Fatalf("unexpected final statement: %q", statements[2])
	}
}
