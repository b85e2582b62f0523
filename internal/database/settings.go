package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// GetSetting retrieves a setting value by key. Missing keys return an empty
// string, not an error.
func (h *Handle) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := h.queryRowScan(ctx, "SELECT value FROM settings WHERE key = ?", []any{key}, &value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, nil
}

// GetSettingJSON retrieves a setting and unmarshals it from JSON.
func (h *Handle) GetSettingJSON(ctx context.Context, key string, v any) error {
	value, err := h.GetSetting(ctx, key)
	if err != nil {
		return err
	}
	if value == "" {
		return nil
	}
	return json.Unmarshal([]byte(value), v)
}

// SetSetting stores a setting value.
func (h *Handle) SetSetting(ctx context.Context, key, value string) error {
	_, err := h.exec(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}

// SetSettingJSON stores a setting as JSON.
func (h *Handle) SetSettingJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal setting %s: %w", key, err)
	}
	return h.SetSetting(ctx, key, string(data))
}

// GetAllSettings retrieves all settings.
func (h *Handle) GetAllSettings(ctx context.Context) (map[string]string, error) {
	rows, err := h.query(ctx, "SELECT key, value FROM settings")
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings[key] = value
	}

	return settings, rows.Err()
}

// DeleteSetting removes a setting.
func (h *Handle) DeleteSetting(ctx context.Context, key string) error {
	if _, err := h.exec(ctx, "DELETE FROM settings WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	return nil
}

// Default settings
var DefaultSettings = map[string]any{
	"log.max_size_mb":        50,
	"log.max_backups":        5,
	"log.max_age_days":       30,
	"log.compress":           true,
	"scan.cache_ttl_minutes": 15,
	"scan.chain_batch_size":  500,
	"analysis.model":         "bsm", // scoring model identifier
	"analysis.min_pop":       0.6,
	"audit.retention_days":   365,
}

// InitializeDefaults sets default values for settings that don't exist.
func (h *Handle) InitializeDefaults(ctx context.Context) error {
	for key, value := range DefaultSettings {
		existing, err := h.GetSetting(ctx, key)
		if err != nil {
			return err
		}
		if existing == "" {
			if err := h.SetSettingJSON(ctx, key, value); err != nil {
				return err
			}
		}
	}
	return nil
}
