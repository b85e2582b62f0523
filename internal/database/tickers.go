package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Ticker is a tracked underlying.
type Ticker struct {
	ID        int64     `json:"id"`
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name,omitempty"`
	Sector    string    `json:"sector,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UpsertTicker stores a ticker, updating name and sector on conflict, and
// fills in its ID.
func (h *Handle) UpsertTicker(ctx context.Context, t *Ticker) error {
	err := h.queryRowScan(ctx, `
		INSERT INTO tickers (symbol, name, sector) VALUES (?, ?, ?)
		ON CONFLICT (symbol) DO UPDATE SET name = excluded.name, sector = excluded.sector
		RETURNING id
	`, []any{t.Symbol, t.Name, t.Sector}, &t.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert ticker: %w", err)
	}
	return nil
}

// GetTicker retrieves a ticker by symbol, or nil when unknown.
func (h *Handle) GetTicker(ctx context.Context, symbol string) (*Ticker, error) {
	t := &Ticker{}
	var name, sector sql.NullString

	err := h.queryRowScan(ctx, `
		SELECT id, symbol, name, sector, created_at FROM tickers WHERE symbol = ?
	`, []any{symbol}, &t.ID, &t.Symbol, &name, &sector, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticker: %w", err)
	}

	t.Name = nullStringValue(name)
	t.Sector = nullStringValue(sector)
	return t, nil
}

// AddToWatchlist puts a symbol under active research. Adding an existing
// symbol refreshes its notes.
func (h *Handle) AddToWatchlist(ctx context.Context, symbol, notes string) error {
	_, err := h.exec(ctx, `
		INSERT INTO watchlist (symbol, notes) VALUES (?, ?)
		ON CONFLICT (symbol) DO UPDATE SET notes = excluded.notes
	`, symbol, notes)
	if err != nil {
		return fmt.Errorf("failed to add %s to watchlist: %w", symbol, err)
	}
	return nil
}

// RemoveFromWatchlist drops a symbol from active research.
func (h *Handle) RemoveFromWatchlist(ctx context.Context, symbol string) error {
	if _, err := h.exec(ctx, `DELETE FROM watchlist WHERE symbol = ?`, symbol); err != nil {
		return fmt.Errorf("failed to remove %s from watchlist: %w", symbol, err)
	}
	return nil
}

// ListWatchlist returns watched symbols in the order they were added.
func (h *Handle) ListWatchlist(ctx context.Context) ([]string, error) {
	rows, err := h.query(ctx, `SELECT symbol FROM watchlist ORDER BY added_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list watchlist: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate watchlist: %w", err)
	}
	return symbols, nil
}
