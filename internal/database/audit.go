package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditEvent is one append-only audit trail entry.
type AuditEvent struct {
	EventID    string    `json:"event_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Actor      string    `json:"actor,omitempty"`
	Action     string    `json:"action"`
	Entity     string    `json:"entity,omitempty"`
	Detail     string    `json:"detail,omitempty"`
}

// RecordAudit appends an audit event and returns its generated ID.
func (h *Handle) RecordAudit(ctx context.Context, actor, action, entity, detail string) (string, error) {
	eventID := uuid.NewString()
	_, err := h.exec(ctx, `
		INSERT INTO audit_log (event_id, occurred_at, actor, action, entity, detail)
		VALUES (?, ?, ?, ?, ?, ?)
	`, eventID, time.Now(), actor, action, entity, detail)
	if err != nil {
		return "", fmt.Errorf("failed to record audit event: %w", err)
	}
	return eventID, nil
}

// RecentAuditEvents returns the newest events, most recent first.
func (h *Handle) RecentAuditEvents(ctx context.Context, limit int) ([]*AuditEvent, error) {
	rows, err := h.query(ctx, `
		SELECT event_id, occurred_at, actor, action, entity, detail
		FROM audit_log
		ORDER BY occurred_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var events []*AuditEvent
	for rows.Next() {
		e := &AuditEvent{}
		var actor, entity, detail sql.NullString
		if err := rows.Scan(&e.EventID, &e.OccurredAt, &actor, &e.Action, &entity, &detail); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		e.Actor = nullStringValue(actor)
		e.Entity = nullStringValue(entity)
		e.Detail = nullStringValue(detail)
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit events: %w", err)
	}
	return events, nil
}
