package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// Row is a generic result record keyed by column name.
type Row map[string]any

// Handle is one owner's dedicated database session. A handle is not safe for
// concurrent use; it belongs to the owner that acquired it. Mutating
// statements run autocommit unless the handle has an open batch, started by
// ExecDeferred and finished by Commit or Rollback. Reads through the same
// handle observe the open batch; other handles do not.
type Handle struct {
	owner string
	conn  *sql.Conn

	mu     sync.Mutex
	tx     *sql.Tx
	closed bool
}

// Owner returns the key this handle was acquired under.
func (h *Handle) Owner() string {
	return h.owner
}

// Conn exposes the raw session for callers that need the driver surface
// directly. The session stays owned by the manager; do not close it.
func (h *Handle) Conn() *sql.Conn {
	return h.conn
}

// InBatch reports whether a deferred batch is open on this handle.
func (h *Handle) InBatch() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tx != nil
}

// Select runs a read query with positional binds and returns all result rows
// in order.
func (h *Handle) Select(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := h.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to run query: %w", err)
	}
	defer rows.Close()

	return collectRows(rows)
}

// SelectOne runs a read query and returns the first result row, or nil when
// the query matches nothing.
func (h *Handle) SelectOne(ctx context.Context, query string, args ...any) (Row, error) {
	rows, err := h.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to run query: %w", err)
	}
	defer rows.Close()

	records, err := collectRows(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// Exec runs a mutating statement. If a deferred batch is open the statement
// joins it; otherwise it takes effect immediately.
func (h *Handle) Exec(ctx context.Context, query string, args ...any) error {
	if _, err := h.exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to execute statement: %w", err)
	}
	return nil
}

// ExecDeferred runs a mutating statement inside the handle's batch
// transaction, opening one if needed. The batch stays invisible to other
// handles until Commit.
func (h *Handle) ExecDeferred(ctx context.Context, query string, args ...any) error {
	if err := h.begin(ctx); err != nil {
		return err
	}
	return h.Exec(ctx, query, args...)
}

// BeginBatch opens the batch transaction explicitly so that following Exec
// calls and store helpers join it. Opening an already-open batch is a no-op.
func (h *Handle) BeginBatch(ctx context.Context) error {
	return h.begin(ctx)
}

// Commit makes the open batch visible. Committing without an open batch is
// a no-op.
func (h *Handle) Commit() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHandleClosed
	}
	if h.tx == nil {
		return nil
	}

	tx := h.tx
	h.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// Rollback discards the open batch. Rolling back without an open batch is a
// no-op.
func (h *Handle) Rollback() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHandleClosed
	}
	if h.tx == nil {
		return nil
	}

	tx := h.tx
	h.tx = nil
	if err := tx.Rollback(); err != nil {
		return fmt.Errorf("failed to roll back batch: %w", err)
	}
	return nil
}

// begin opens the batch transaction if none is pending.
func (h *Handle) begin(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHandleClosed
	}
	if h.tx != nil {
		return nil
	}

	tx, err := h.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch: %w", err)
	}
	h.tx = tx
	return nil
}

// close rolls back any pending batch and returns the session to the pool.
// Called by the manager on Release and Close.
func (h *Handle) close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	if h.tx != nil {
		tx := h.tx
		h.tx = nil
		if err := tx.Rollback(); err != nil {
			h.conn.Close()
			return fmt.Errorf("failed to roll back pending batch: %w", err)
		}
	}
	return h.conn.Close()
}

// query routes reads through the open batch when one exists.
func (h *Handle) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHandleClosed
	}
	tx := h.tx
	h.mu.Unlock()

	if tx != nil {
		return tx.QueryContext(ctx, query, args...)
	}
	return h.conn.QueryContext(ctx, query, args...)
}

// exec routes writes through the open batch when one exists.
func (h *Handle) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHandleClosed
	}
	tx := h.tx
	h.mu.Unlock()

	if tx != nil {
		return tx.ExecContext(ctx, query, args...)
	}
	return h.conn.ExecContext(ctx, query, args...)
}

// queryRowScan runs a single-row query and scans it into dest, routing
// through the open batch when one exists.
func (h *Handle) queryRowScan(ctx context.Context, query string, args []any, dest ...any) error {
	rows, err := h.query(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return sql.ErrNoRows
	}
	if err := rows.Scan(dest...); err != nil {
		return err
	}
	return rows.Close()
}

// collectRows drains a result set into generic records, preserving order.
func collectRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	var records []Row
	for rows.Next() {
		values := make([]any, len(cols))
		scans := make([]any, len(cols))
		for i := range values {
			scans[i] = &values[i]
		}
		if err := rows.Scan(scans...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		record := make(Row, len(cols))
		for i, col := range cols {
			record[col] = values[i]
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return records, nil
}
