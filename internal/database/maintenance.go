package database

import (
	"context"
	"fmt"
)

// Checkpoint flushes the write-ahead log into the database file.
func (m *Manager) Checkpoint(ctx context.Context) error {
	if m == nil || m.pool == nil {
		return fmt.Errorf("database not initialized")
	}

	if _, err := m.pool.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return fmt.Errorf("failed to checkpoint database: %w", err)
	}

	return nil
}

// Analyze refreshes planner statistics.
func (m *Manager) Analyze(ctx context.Context) error {
	if m == nil || m.pool == nil {
		return fmt.Errorf("database not initialized")
	}

	if _, err := m.pool.ExecContext(ctx, "ANALYZE"); err != nil {
		return fmt.Errorf("failed to analyze database: %w", err)
	}

	return nil
}
