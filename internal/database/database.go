package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/marcboeker/go-duckdb/v2"
	"github.com/rs/zerolog/log"
)

// ErrHandleClosed is returned when a released handle is used again.
// Re-acquiring through Manager.Handle opens a fresh session instead.
var ErrHandleClosed = errors.New("database: handle is closed")

// Manager owns the connection pool for a single DuckDB file and hands out
// one dedicated session per owner key. Owners are caller-chosen identities
// (worker names, goroutine-scoped tokens); each owner sees exactly one
// handle until it is released.
type Manager struct {
	pool       *sql.DB
	path       string
	schemaPath string

	mu      sync.Mutex
	handles map[string]*Handle
}

// New opens the database file and verifies the connection. schemaPath may be
// empty, in which case Initialize applies the embedded default schema.
func New(path, schemaPath string) (*Manager, error) {
	pool, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := pool.Ping(); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Each owner pins its own session; no cap on open sessions.
	pool.SetMaxIdleConns(4)

	log.Debug().Str("path", path).Msg("Database connection established")

	return &Manager{
		pool:       pool,
		path:       path,
		schemaPath: schemaPath,
		handles:    make(map[string]*Handle),
	}, nil
}

// Path returns the database file path.
func (m *Manager) Path() string {
	return m.path
}

// Handle returns the handle owned by the given key, opening a dedicated
// session on first use. Subsequent calls from the same owner return the same
// handle until Release; distinct owners always receive distinct handles.
func (m *Manager) Handle(ctx context.Context, owner string) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h, ok := m.handles[owner]; ok {
		return h, nil
	}

	conn, err := m.pool.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open session for %q: %w", owner, err)
	}

	h := &Handle{owner: owner, conn: conn}
	m.handles[owner] = h

	log.Debug().Str("owner", owner).Msg("Database session opened")
	return h, nil
}

// Release closes the owner's handle and forgets it. A pending batch is
// rolled back. Releasing an owner without a handle is a no-op.
func (m *Manager) Release(owner string) error {
	m.mu.Lock()
	h, ok := m.handles[owner]
	delete(m.handles, owner)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return h.close()
}

// Close releases every open handle and the underlying pool.
func (m *Manager) Close() error {
	m.mu.Lock()
	handles := m.handles
	m.handles = make(map[string]*Handle)
	m.mu.Unlock()

	var firstErr error
	for owner, h := range handles {
		if err := h.close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close session for %q: %w", owner, err)
		}
	}

	if err := m.pool.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to close database: %w", err)
	}
	return firstErr
}
