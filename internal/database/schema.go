package database

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

//go:embed schema.sql
var defaultSchema string

// DefaultSchema returns the embedded schema SQL used when no schema file is
// configured.
func DefaultSchema() string {
	return defaultSchema
}

// Initialize applies the schema to the database. The schema comes from the
// configured schema file when set, otherwise from the embedded default.
// With ignoreExists, statements failing because the object already exists are
// skipped, making a second initialization a no-op; without it the first such
// failure aborts.
func (m *Manager) Initialize(ctx context.Context, ignoreExists bool) error {
	schemaSQL := defaultSchema
	if m.schemaPath != "" {
		data, err := os.ReadFile(m.schemaPath)
		if err != nil {
			return fmt.Errorf("failed to read schema file: %w", err)
		}
		schemaSQL = string(data)
	}

	log.Info().Str("path", m.path).Bool("ignore_exists", ignoreExists).Msg("Applying database schema")

	statements := splitSQLStatements(schemaSQL)
	applied := 0
	for i, stmt := range statements {
		if _, err := m.pool.ExecContext(ctx, stmt); err != nil {
			if ignoreExists && isAlreadyExists(err) {
				log.Debug().Int("statement", i+1).Msg("Schema object already exists, skipping")
				continue
			}
			return fmt.Errorf("schema statement %d failed: %w", i+1, err)
		}
		applied++
	}

	log.Info().Int("applied", applied).Int("total", len(statements)).Msg("Database schema applied")
	return nil
}

// isAlreadyExists matches the engine's catalog error for duplicate objects.
func isAlreadyExists(err error) bool {
	return err != nil && strings.Contains(err.Error(), "already exists")
}

// splitSQLStatements splits a SQL string into individual statements.
// It handles comments and only returns non-empty statements.
func splitSQLStatements(sql string) []string {
	var statements []string
	var current strings.Builder

	lines := strings.SplitSeq(sql, "\n")
	for line := range lines {
		trimmed := strings.TrimSpace(line)
		// Skip empty lines and comments
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")

		// Check if line ends with semicolon (statement complete)
		if strings.HasSuffix(trimmed, ";") {
			stmt := strings.TrimSpace(current.String())
			if stmt != "" && stmt != ";" {
				statements = append(statements, stmt)
			}
			current.Reset()
		}
	}

	// Handle any remaining content without trailing semicolon
	if remaining := strings.TrimSpace(current.String()); remaining != "" {
		statements = append(statements, remaining)
	}

	return statements
}
