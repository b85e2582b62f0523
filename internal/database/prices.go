package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PriceBar is one OHLCV bar for an underlying.
type PriceBar struct {
	Underlying string    `json:"underlying"`
	QuotedAt   time.Time `json:"quoted_at"`
	Open       *float64  `json:"open,omitempty"`
	High       *float64  `json:"high,omitempty"`
	Low        *float64  `json:"low,omitempty"`
	Close      float64   `json:"close"`
	Volume     *int64    `json:"volume,omitempty"`
}

// InsertPriceBar stores one bar. Joins the handle's open batch when one
// exists, so ingest loops can defer the commit across a whole session.
func (h *Handle) InsertPriceBar(ctx context.Context, bar *PriceBar) error {
	_, err := h.exec(ctx, `
		INSERT INTO underlying_prices (underlying, quoted_at, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, bar.Underlying, bar.QuotedAt, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
	if err != nil {
		return fmt.Errorf("failed to insert price bar: %w", err)
	}
	return nil
}

// LatestPrice returns the newest bar for an underlying, or nil when no bars
// exist.
func (h *Handle) LatestPrice(ctx context.Context, underlying string) (*PriceBar, error) {
	rows, err := h.query(ctx, `
		SELECT underlying, quoted_at, open, high, low, close, volume
		FROM underlying_prices
		WHERE underlying = ?
		ORDER BY quoted_at DESC
		LIMIT 1
	`, underlying)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest price: %w", err)
	}
	defer rows.Close()

	bars, err := scanPriceBars(rows)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, nil
	}
	return bars[0], nil
}

// ListPriceBars returns bars for an underlying in [from, to], oldest first.
func (h *Handle) ListPriceBars(ctx context.Context, underlying string, from, to time.Time) ([]*PriceBar, error) {
	rows, err := h.query(ctx, `
		SELECT underlying, quoted_at, open, high, low, close, volume
		FROM underlying_prices
		WHERE underlying = ? AND quoted_at >= ? AND quoted_at <= ?
		ORDER BY quoted_at ASC
	`, underlying, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list price bars: %w", err)
	}
	defer rows.Close()

	return scanPriceBars(rows)
}

func scanPriceBars(rows *sql.Rows) ([]*PriceBar, error) {
	var bars []*PriceBar
	for rows.Next() {
		bar := &PriceBar{}
		var open, high, low sql.NullFloat64
		var volume sql.NullInt64

		if err := rows.Scan(&bar.Underlying, &bar.QuotedAt, &open, &high, &low, &bar.Close, &volume); err != nil {
			return nil, fmt.Errorf("failed to scan price bar: %w", err)
		}

		bar.Open = nullFloat64ToPtr(open)
		bar.High = nullFloat64ToPtr(high)
		bar.Low = nullFloat64ToPtr(low)
		bar.Volume = nullInt64ToPtr(volume)

		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate price bars: %w", err)
	}
	return bars, nil
}
