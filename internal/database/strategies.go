package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// LegSide is the direction of one strategy leg.
type LegSide string

const (
	LegSideBuy  LegSide = "buy"
	LegSideSell LegSide = "sell"
)

// Strategy is a multi-leg options position under research.
type Strategy struct {
	ID           int64          `json:"id"`
	Name         string         `json:"name"`
	Underlying   string         `json:"underlying"`
	StrategyType string         `json:"strategy_type"`
	OpenedAt     time.Time      `json:"opened_at"`
	ClosedAt     *time.Time     `json:"closed_at,omitempty"`
	NetDebit     *float64       `json:"net_debit,omitempty"`
	Notes        string         `json:"notes,omitempty"`
	Legs         []*StrategyLeg `json:"legs,omitempty"`
}

// StrategyLeg is a single contract position inside a strategy.
type StrategyLeg struct {
	StrategyID     int64    `json:"strategy_id"`
	LegNo          int      `json:"leg_no"`
	ContractSymbol string   `json:"contract_symbol"`
	Side           LegSide  `json:"side"`
	Quantity       int      `json:"quantity"`
	FillPrice      *float64 `json:"fill_price,omitempty"`
}

// CreateStrategy stores a strategy and all of its legs atomically. When the
// handle has no open batch, one is opened and committed here; a caller with
// its own batch keeps control of the commit.
func (h *Handle) CreateStrategy(ctx context.Context, s *Strategy) error {
	if len(s.Legs) == 0 {
		return fmt.Errorf("strategy requires at least one leg")
	}

	ownBatch := !h.InBatch()
	if ownBatch {
		if err := h.begin(ctx); err != nil {
			return err
		}
	}

	if err := h.createStrategyRows(ctx, s); err != nil {
		if ownBatch {
			if rbErr := h.Rollback(); rbErr != nil {
				return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
			}
		}
		return err
	}

	if ownBatch {
		return h.Commit()
	}
	return nil
}

func (h *Handle) createStrategyRows(ctx context.Context, s *Strategy) error {
	if s.OpenedAt.IsZero() {
		s.OpenedAt = time.Now()
	}

	err := h.queryRowScan(ctx, `
		INSERT INTO strategies (name, underlying, strategy_type, opened_at, net_debit, notes)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`, []any{s.Name, s.Underlying, s.StrategyType, s.OpenedAt, s.NetDebit, s.Notes}, &s.ID)
	if err != nil {
		return fmt.Errorf("failed to insert strategy: %w", err)
	}

	for i, leg := range s.Legs {
		leg.StrategyID = s.ID
		if leg.LegNo == 0 {
			leg.LegNo = i + 1
		}
		if _, err := h.exec(ctx, `
			INSERT INTO strategy_legs (strategy_id, leg_no, contract_symbol, side, quantity, fill_price)
			VALUES (?, ?, ?, ?, ?, ?)
		`, leg.StrategyID, leg.LegNo, leg.ContractSymbol, leg.Side, leg.Quantity, leg.FillPrice); err != nil {
			return fmt.Errorf("failed to insert strategy leg %d: %w", leg.LegNo, err)
		}
	}

	return nil
}

// GetStrategy loads a strategy with its legs, or nil when the ID is unknown.
func (h *Handle) GetStrategy(ctx context.Context, id int64) (*Strategy, error) {
	s := &Strategy{}
	var closedAt sql.NullTime
	var netDebit sql.NullFloat64
	var notes sql.NullString

	err := h.queryRowScan(ctx, `
		SELECT id, name, underlying, strategy_type, opened_at, closed_at, net_debit, notes
		FROM strategies WHERE id = ?
	`, []any{id}, &s.ID, &s.Name, &s.Underlying, &s.StrategyType, &s.OpenedAt, &closedAt, &netDebit, &notes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get strategy: %w", err)
	}

	s.ClosedAt = nullTimeToPtr(closedAt)
	s.NetDebit = nullFloat64ToPtr(netDebit)
	s.Notes = nullStringValue(notes)

	rows, err := h.query(ctx, `
		SELECT strategy_id, leg_no, contract_symbol, side, quantity, fill_price
		FROM strategy_legs
		WHERE strategy_id = ?
		ORDER BY leg_no ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list strategy legs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		leg := &StrategyLeg{}
		var fillPrice sql.NullFloat64
		if err := rows.Scan(&leg.StrategyID, &leg.LegNo, &leg.ContractSymbol, &leg.Side, &leg.Quantity, &fillPrice); err != nil {
			return nil, fmt.Errorf("failed to scan strategy leg: %w", err)
		}
		leg.FillPrice = nullFloat64ToPtr(fillPrice)
		s.Legs = append(s.Legs, leg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate strategy legs: %w", err)
	}
	return s, nil
}

// CloseStrategy marks a strategy closed at the given time.
func (h *Handle) CloseStrategy(ctx context.Context, id int64, closedAt time.Time) error {
	if _, err := h.exec(ctx, `UPDATE strategies SET closed_at = ? WHERE id = ?`, closedAt, id); err != nil {
		return fmt.Errorf("failed to close strategy: %w", err)
	}
	return nil
}

// ListOpenStrategies returns strategies without a close time for an
// underlying, newest first. Legs are not loaded.
func (h *Handle) ListOpenStrategies(ctx context.Context, underlying string) ([]*Strategy, error) {
	rows, err := h.query(ctx, `
		SELECT id, name, underlying, strategy_type, opened_at, closed_at, net_debit, notes
		FROM strategies
		WHERE underlying = ? AND closed_at IS NULL
		ORDER BY opened_at DESC
	`, underlying)
	if err != nil {
		return nil, fmt.Errorf("failed to list open strategies: %w", err)
	}
	defer rows.Close()

	var strategies []*Strategy
	for rows.Next() {
		s := &Strategy{}
		var closedAt sql.NullTime
		var netDebit sql.NullFloat64
		var notes sql.NullString
		if err := rows.Scan(&s.ID, &s.Name, &s.Underlying, &s.StrategyType, &s.OpenedAt, &closedAt, &netDebit, &notes); err != nil {
			return nil, fmt.Errorf("failed to scan strategy: %w", err)
		}
		s.ClosedAt = nullTimeToPtr(closedAt)
		s.NetDebit = nullFloat64ToPtr(netDebit)
		s.Notes = nullStringValue(notes)
		strategies = append(strategies, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate strategies: %w", err)
	}
	return strategies, nil
}
