package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestHandle_DistinctPerOwner(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager(t)

	h1, err := mgr.Handle(ctx, "worker-1")
	if err != nil {
		t.Fatalf("failed to acquire handle: %v", err)
	}
	h2, err := mgr.Handle(ctx, "worker-2")
	if err != nil {
		t.Fatalf("failed to acquire handle: %v", err)
	}

	if h1 == h2 {
		t.Fatal("expected distinct owners to receive distinct handles")
	}

	again, err := mgr.Handle(ctx, "worker-1")
	if err != nil {
		t.Fatalf("failed to re-acquire handle: %v", err)
	}
	if again != h1 {
		t.Fatal("expected same owner to receive the same handle")
	}
}

func TestHandle_ConcurrentFirstAcquire(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager(t)

	const workers = 16
	handles := make([]*Handle, workers)
	shared := make([]*Handle, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			h, err := mgr.Handle(ctx, fmt.Sprintf("worker-%d", i))
			if err != nil {
				t.Errorf("failed to acquire handle: %v", err)
				return
			}
			handles[i] = h

			sh, err := mgr.Handle(ctx, "shared")
			if err != nil {
				t.Errorf("failed to acquire shared handle: %v", err)
				return
			}
			shared[i] = sh
		}(i)
	}
	wg.Wait()

	seen := make(map[*Handle]bool)
	for i, h := range handles {
		if h == nil {
			t.Fatalf("missing handle for worker %d", i)
		}
		if seen[h] {
			t.Fatal("two owners received the same handle")
		}
		seen[h] = true
	}

	for i := 1; i < workers; i++ {
		if shared[i] != shared[0] {
			t.Fatal("shared owner received more than one handle")
		}
	}
}

func TestHandle_BatchCommitVisibility(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager(t)

	writer, err := mgr.Handle(ctx, "writer")
	if err != nil {
		t.Fatalf("failed to acquire handle: %v", err)
	}
	reader, err := mgr.Handle(ctx, "reader")
	if err != nil {
		t.Fatalf("failed to acquire handle: %v", err)
	}

	for _, symbol := range []string{"AAPL", "MSFT", "NVDA"} {
		if err := writer.ExecDeferred(ctx, `INSERT INTO watchlist (symbol) VALUES (?)`, symbol); err != nil {
			t.Fatalf("failed to batch insert: %v", err)
		}
	}
	if !writer.InBatch() {
		t.Fatal("expected an open batch after ExecDeferred")
	}

	// The writer sees its own uncommitted rows.
	rows, err := writer.Select(ctx, `SELECT symbol FROM watchlist ORDER BY symbol`)
	if err != nil {
		t.Fatalf("failed to select from writer: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected writer to see 3 rows, got %d", len(rows))
	}

	// Another owner does not.
	rows, err = reader.Select(ctx, `SELECT symbol FROM watchlist`)
	if err != nil {
		t.Fatalf("failed to select from reader: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected reader to see 0 uncommitted rows, got %d", len(rows))
	}

	if err := writer.Commit(); err != nil {
		t.Fatalf("failed to commit batch: %v", err)
	}
	if writer.InBatch() {
		t.Fatal("expected no open batch after Commit")
	}

	rows, err = reader.Select(ctx, `SELECT symbol FROM watchlist`)
	if err != nil {
		t.Fatalf("failed to select from reader: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected reader to see 3 committed rows, got %d", len(rows))
	}
}

func TestHandle_RollbackDiscardsBatch(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager(t)

	h, err := mgr.Handle(ctx, "writer")
	if err != nil {
		t.Fatalf("failed to acquire handle: %v", err)
	}

	if err := h.ExecDeferred(ctx, `INSERT INTO watchlist (symbol) VALUES (?)`, "TSLA"); err != nil {
		t.Fatalf("failed to batch insert: %v", err)
	}
	if err := h.Rollback(); err != nil {
		t.Fatalf("failed to roll back: %v", err)
	}

	row, err := h.SelectOne(ctx, `SELECT symbol FROM watchlist WHERE symbol = ?`, "TSLA")
	if err != nil {
		t.Fatalf("failed to select: %v", err)
	}
	if row != nil {
		t.Fatal("expected rolled back row to be absent")
	}
}

func TestHandle_SelectOneNoRows(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager(t)

	h, err := mgr.Handle(ctx, "reader")
	if err != nil {
		t.Fatalf("failed to acquire handle: %v", err)
	}

	row, err := h.SelectOne(ctx, `SELECT * FROM tickers WHERE symbol = ?`, "NOPE")
	if err != nil {
		t.Fatalf("expected no error for zero matches, got %v", err)
	}
	if row != nil {
		t.Fatalf("expected nil row for zero matches, got %v", row)
	}
}

func TestHandle_SelectReturnsColumnKeyedRows(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager(t)

	h, err := mgr.Handle(ctx, "reader")
	if err != nil {
		t.Fatalf("failed to acquire handle: %v", err)
	}

	if err := h.AddToWatchlist(ctx, "AMD", "semis"); err != nil {
		t.Fatalf("failed to add to watchlist: %v", err)
	}

	row, err := h.SelectOne(ctx, `SELECT symbol, notes FROM watchlist WHERE symbol = ?`, "AMD")
	if err != nil {
		t.Fatalf("failed to select: %v", err)
	}
	if row == nil {
		t.Fatal("expected a row")
	}
	if row["symbol"] != "AMD" {
		t.Fatalf("expected symbol AMD, got %v", row["symbol"])
	}
	if row["notes"] != "semis" {
		t.Fatalf("expected notes 'semis', got %v", row["notes"])
	}
}

func TestHandle_ReleasedHandleFailsAndAccessorReopens(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager(t)

	h, err := mgr.Handle(ctx, "worker")
	if err != nil {
		t.Fatalf("failed to acquire handle: %v", err)
	}

	if err := mgr.Release("worker"); err != nil {
		t.Fatalf("failed to release handle: %v", err)
	}

	// Direct use of the released handle is a usage error.
	if _, err := h.Select(ctx, `SELECT 1`); !errors.Is(err, ErrHandleClosed) {
		t.Fatalf("expected ErrHandleClosed, got %v", err)
	}
	if err := h.Exec(ctx, `INSERT INTO watchlist (symbol) VALUES ('X')`); !errors.Is(err, ErrHandleClosed) {
		t.Fatalf("expected ErrHandleClosed, got %v", err)
	}

	// The accessor hands out a fresh working session.
	fresh, err := mgr.Handle(ctx, "worker")
	if err != nil {
		t.Fatalf("failed to re-acquire handle: %v", err)
	}
	if fresh == h {
		t.Fatal("expected a fresh handle after release")
	}
	if _, err := fresh.Select(ctx, `SELECT 1`); err != nil {
		t.Fatalf("fresh handle failed: %v", err)
	}
}

func TestHandle_ReleaseRollsBackPendingBatch(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager(t)

	h, err := mgr.Handle(ctx, "writer")
	if err != nil {
		t.Fatalf("failed to acquire handle: %v", err)
	}

	if err := h.ExecDeferred(ctx, `INSERT INTO watchlist (symbol) VALUES (?)`, "GME"); err != nil {
		t.Fatalf("failed to batch insert: %v", err)
	}
	if err := mgr.Release("writer"); err != nil {
		t.Fatalf("failed to release handle: %v", err)
	}

	fresh, err := mgr.Handle(ctx, "writer")
	if err != nil {
		t.Fatalf("failed to re-acquire handle: %v", err)
	}
	row, err := fresh.SelectOne(ctx, `SELECT symbol FROM watchlist WHERE symbol = ?`, "GME")
	if err != nil {
		t.Fatalf("failed to select: %v", err)
	}
	if row != nil {
		t.Fatal("expected pending batch to be rolled back on release")
	}
}

func TestManager_ReleaseUnknownOwnerIsNoop(t *testing.T) {
	mgr := newTestManager(t)

	if err := mgr.Release("never-acquired"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}
