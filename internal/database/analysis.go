package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Score is one analysis result for a strategy.
type Score struct {
	StrategyID int64     `json:"strategy_id"`
	ScoredAt   time.Time `json:"scored_at"`
	Score      float64   `json:"score"`
	MaxProfit  *float64  `json:"max_profit,omitempty"`
	MaxLoss    *float64  `json:"max_loss,omitempty"`
	Breakeven  *float64  `json:"breakeven,omitempty"`
	POP        *float64  `json:"pop,omitempty"`
	Model      string    `json:"model,omitempty"`
}

// RecordScore stores an analysis result.
func (h *Handle) RecordScore(ctx context.Context, s *Score) error {
	if s.ScoredAt.IsZero() {
		s.ScoredAt = time.Now()
	}
	_, err := h.exec(ctx, `
		INSERT INTO strategy_scores (strategy_id, scored_at, score, max_profit, max_loss, breakeven, pop, model)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, s.StrategyID, s.ScoredAt, s.Score, s.MaxProfit, s.MaxLoss, s.Breakeven, s.POP, s.Model)
	if err != nil {
		return fmt.Errorf("failed to record score: %w", err)
	}
	return nil
}

// LatestScore returns the newest score for a strategy, or nil when it has
// never been scored.
func (h *Handle) LatestScore(ctx context.Context, strategyID int64) (*Score, error) {
	s := &Score{}
	var maxProfit, maxLoss, breakeven, pop sql.NullFloat64
	var model sql.NullString

	err := h.queryRowScan(ctx, `
		SELECT strategy_id, scored_at, score, max_profit, max_loss, breakeven, pop, model
		FROM strategy_scores
		WHERE strategy_id = ?
		ORDER BY scored_at DESC
		LIMIT 1
	`, []any{strategyID}, &s.StrategyID, &s.ScoredAt, &s.Score, &maxProfit, &maxLoss, &breakeven, &pop, &model)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest score: %w", err)
	}

	s.MaxProfit = nullFloat64ToPtr(maxProfit)
	s.MaxLoss = nullFloat64ToPtr(maxLoss)
	s.Breakeven = nullFloat64ToPtr(breakeven)
	s.POP = nullFloat64ToPtr(pop)
	s.Model = nullStringValue(model)

	return s, nil
}

// ListScores returns all scores for a strategy, newest first.
func (h *Handle) ListScores(ctx context.Context, strategyID int64) ([]*Score, error) {
	rows, err := h.query(ctx, `
		SELECT strategy_id, scored_at, score, max_profit, max_loss, breakeven, pop, model
		FROM strategy_scores
		WHERE strategy_id = ?
		ORDER BY scored_at DESC
	`, strategyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list scores: %w", err)
	}
	defer rows.Close()

	var scores []*Score
	for rows.Next() {
		s := &Score{}
		var maxProfit, maxLoss, breakeven, pop sql.NullFloat64
		var model sql.NullString
		if err := rows.Scan(&s.StrategyID, &s.ScoredAt, &s.Score, &maxProfit, &maxLoss, &breakeven, &pop, &model); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		s.MaxProfit = nullFloat64ToPtr(maxProfit)
		s.MaxLoss = nullFloat64ToPtr(maxLoss)
		s.Breakeven = nullFloat64ToPtr(breakeven)
		s.POP = nullFloat64ToPtr(pop)
		s.Model = nullStringValue(model)
		scores = append(scores, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scores: %w", err)
	}
	return scores, nil
}
