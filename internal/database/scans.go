package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ScanStatus represents the status of a scanner run.
type ScanStatus string

const (
	ScanStatusRunning   ScanStatus = "running"
	ScanStatusCompleted ScanStatus = "completed"
	ScanStatusFailed    ScanStatus = "failed"
)

// ScanRun records one execution of a chain scanner.
type ScanRun struct {
	ID              int64      `json:"id"`
	Scanner         string     `json:"scanner"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	Status          ScanStatus `json:"status"`
	ContractsSeen   int64      `json:"contracts_seen"`
	CandidatesFound int64      `json:"candidates_found"`
	LastError       string     `json:"last_error,omitempty"`
}

// StartScanRun records the beginning of a scanner execution.
func (h *Handle) StartScanRun(ctx context.Context, scanner string) (*ScanRun, error) {
	run := &ScanRun{
		Scanner:   scanner,
		StartedAt: time.Now(),
		Status:    ScanStatusRunning,
	}

	err := h.queryRowScan(ctx, `
		INSERT INTO scan_runs (scanner, started_at, status)
		VALUES (?, ?, ?)
		RETURNING id
	`, []any{run.Scanner, run.StartedAt, run.Status}, &run.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to start scan run: %w", err)
	}
	return run, nil
}

// FinishScanRun closes out a scanner execution with its counts. A non-nil
// runErr marks the run failed and stores the message.
func (h *Handle) FinishScanRun(ctx context.Context, id int64, seen, found int64, runErr error) error {
	status := ScanStatusCompleted
	var message any
	if runErr != nil {
		status = ScanStatusFailed
		message = runErr.Error()
	}

	if _, err := h.exec(ctx, `
		UPDATE scan_runs
		SET finished_at = ?, status = ?, contracts_seen = ?, candidates_found = ?, error = ?
		WHERE id = ?
	`, time.Now(), status, seen, found, message, id); err != nil {
		return fmt.Errorf("failed to finish scan run: %w", err)
	}
	return nil
}

// GetScanRun retrieves a scan run by ID, or nil when unknown.
func (h *Handle) GetScanRun(ctx context.Context, id int64) (*ScanRun, error) {
	run := &ScanRun{}
	var finishedAt sql.NullTime
	var lastError sql.NullString

	err := h.queryRowScan(ctx, `
		SELECT id, scanner, started_at, finished_at, status, contracts_seen, candidates_found, error
		FROM scan_runs WHERE id = ?
	`, []any{id}, &run.ID, &run.Scanner, &run.StartedAt, &finishedAt, &run.Status, &run.ContractsSeen, &run.CandidatesFound, &lastError)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan run: %w", err)
	}

	run.FinishedAt = nullTimeToPtr(finishedAt)
	run.LastError = nullStringValue(lastError)
	return run, nil
}

// CachePut stores a scanner payload under its request fingerprint,
// replacing any previous entry.
func (h *Handle) CachePut(ctx context.Context, key, payload string) error {
	_, err := h.exec(ctx, `
		INSERT INTO scan_cache (cache_key, payload, cached_at) VALUES (?, ?, ?)
		ON CONFLICT (cache_key) DO UPDATE SET payload = excluded.payload, cached_at = excluded.cached_at
	`, key, payload, time.Now())
	if err != nil {
		return fmt.Errorf("failed to put cache entry: %w", err)
	}
	return nil
}

// CacheGet returns the payload stored under key when it is younger than
// maxAge. The second return value reports whether a fresh entry was found.
func (h *Handle) CacheGet(ctx context.Context, key string, maxAge time.Duration) (string, bool, error) {
	var payload string
	var cachedAt time.Time

	err := h.queryRowScan(ctx, `
		SELECT payload, cached_at FROM scan_cache WHERE cache_key = ?
	`, []any{key}, &payload, &cachedAt)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get cache entry: %w", err)
	}

	if time.Since(cachedAt) > maxAge {
		return "", false, nil
	}
	return payload, true, nil
}
