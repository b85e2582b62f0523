package database

import (
	"database/sql"
	"time"
)

// nullInt64ToPtr converts a sql.NullInt64 to a pointer (nil if not valid)
func nullInt64ToPtr(n sql.NullInt64) *int64 {
	if n.Valid {
		return &n.Int64
	}
	return nil
}

// nullFloat64ToPtr converts a sql.NullFloat64 to a pointer (nil if not valid)
func nullFloat64ToPtr(n sql.NullFloat64) *float64 {
	if n.Valid {
		return &n.Float64
	}
	return nil
}

// nullTimeToPtr converts a sql.NullTime to a pointer (nil if not valid)
func nullTimeToPtr(n sql.NullTime) *time.Time {
	if n.Valid {
		return &n.Time
	}
	return nil
}

// nullStringValue converts a sql.NullString to a string (empty if not valid)
func nullStringValue(n sql.NullString) string {
	if n.Valid {
		return n.String
	}
	return ""
}
