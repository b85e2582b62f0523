package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// OptionType identifies the contract right.
type OptionType string

const (
	OptionTypeCall OptionType = "call"
	OptionTypePut  OptionType = "put"
)

// Contract is one option chain snapshot row.
type Contract struct {
	ID           int64      `json:"id"`
	Symbol       string     `json:"symbol"`
	Underlying   string     `json:"underlying"`
	OptionType   OptionType `json:"option_type"`
	Strike       float64    `json:"strike"`
	Expiry       time.Time  `json:"expiry"`
	Bid          *float64   `json:"bid,omitempty"`
	Ask          *float64   `json:"ask,omitempty"`
	Last         *float64   `json:"last,omitempty"`
	Volume       *int64     `json:"volume,omitempty"`
	OpenInterest *int64     `json:"open_interest,omitempty"`
	ImpliedVol   *float64   `json:"implied_vol,omitempty"`
	Delta        *float64   `json:"delta,omitempty"`
	Gamma        *float64   `json:"gamma,omitempty"`
	Theta        *float64   `json:"theta,omitempty"`
	Vega         *float64   `json:"vega,omitempty"`
	QuotedAt     time.Time  `json:"quoted_at"`
}

const contractColumns = `id, symbol, underlying, option_type, strike, expiry, bid, ask, last, volume, open_interest, implied_vol, delta, gamma, theta, vega, quoted_at`

// InsertContract stores a chain snapshot row and fills in its ID. Joins the
// handle's open batch when one exists.
func (h *Handle) InsertContract(ctx context.Context, c *Contract) error {
	err := h.queryRowScan(ctx, `
		INSERT INTO option_contracts (symbol, underlying, option_type, strike, expiry, bid, ask, last, volume, open_interest, implied_vol, delta, gamma, theta, vega, quoted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, []any{c.Symbol, c.Underlying, c.OptionType, c.Strike, c.Expiry, c.Bid, c.Ask, c.Last, c.Volume, c.OpenInterest, c.ImpliedVol, c.Delta, c.Gamma, c.Theta, c.Vega, c.QuotedAt}, &c.ID)
	if err != nil {
		return fmt.Errorf("failed to insert contract: %w", err)
	}
	return nil
}

// LatestContract returns the most recent snapshot for a contract symbol, or
// nil when the symbol has never been seen.
func (h *Handle) LatestContract(ctx context.Context, symbol string) (*Contract, error) {
	rows, err := h.query(ctx, fmt.Sprintf(`
		SELECT %s FROM option_contracts
		WHERE symbol = ?
		ORDER BY quoted_at DESC
		LIMIT 1
	`, contractColumns), symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}
	defer rows.Close()

	contracts, err := scanContracts(rows)
	if err != nil {
		return nil, err
	}
	if len(contracts) == 0 {
		return nil, nil
	}
	return contracts[0], nil
}

// ListChain returns the latest snapshot of every contract on an underlying
// for one expiry, ordered by strike then type.
func (h *Handle) ListChain(ctx context.Context, underlying string, expiry time.Time) ([]*Contract, error) {
	rows, err := h.query(ctx, fmt.Sprintf(`
		SELECT %s FROM option_contracts oc
		WHERE underlying = ? AND expiry = ?
		  AND quoted_at = (SELECT MAX(quoted_at) FROM option_contracts WHERE symbol = oc.symbol)
		ORDER BY strike ASC, option_type ASC
	`, contractColumns), underlying, expiry)
	if err != nil {
		return nil, fmt.Errorf("failed to list chain: %w", err)
	}
	defer rows.Close()

	return scanContracts(rows)
}

func scanContracts(rows *sql.Rows) ([]*Contract, error) {
	var contracts []*Contract
	for rows.Next() {
		c := &Contract{}
		var bid, ask, last, iv, delta, gamma, theta, vega sql.NullFloat64
		var volume, openInterest sql.NullInt64

		if err := rows.Scan(&c.ID, &c.Symbol, &c.Underlying, &c.OptionType, &c.Strike, &c.Expiry,
			&bid, &ask, &last, &volume, &openInterest, &iv, &delta, &gamma, &theta, &vega, &c.QuotedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contract: %w", err)
		}

		c.Bid = nullFloat64ToPtr(bid)
		c.Ask = nullFloat64ToPtr(ask)
		c.Last = nullFloat64ToPtr(last)
		c.Volume = nullInt64ToPtr(volume)
		c.OpenInterest = nullInt64ToPtr(openInterest)
		c.ImpliedVol = nullFloat64ToPtr(iv)
		c.Delta = nullFloat64ToPtr(delta)
		c.Gamma = nullFloat64ToPtr(gamma)
		c.Theta = nullFloat64ToPtr(theta)
		c.Vega = nullFloat64ToPtr(vega)

		contracts = append(contracts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contracts: %w", err)
	}
	return contracts, nil
}
