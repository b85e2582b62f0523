package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/quantfold/optdb/internal/config"
	"github.com/quantfold/optdb/internal/database"
	"github.com/quantfold/optdb/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// CLI flags
var (
	dbPath     string
	schemaPath string
	logFile    string
	verbosity  int

	ignoreExists bool
)

// baseLogLevel is the configured level before verbosity flags raise it.
var baseLogLevel = "info"

const cliOwner = "cli"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "optdb: %v\n", err)
		os.Exit(1)
	}

	baseLogLevel = cfg.LogLevel

	rootCmd := &cobra.Command{
		Use:   "optdb",
		Short: "Optdb - options research database",
		Long:  `Optdb manages a DuckDB file holding options research data: contracts, prices, strategies, scores, scans, and an audit trail.`,
	}

	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", cfg.DatabasePath, "Database file path (or set OPTDB_PATH)")
	rootCmd.PersistentFlags().StringVarP(&schemaPath, "schema", "s", cfg.SchemaPath, "Schema SQL file; empty uses the built-in schema (or set OPTDB_SCHEMA)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", cfg.LogFile, "Log file path; empty logs beside the database (or set OPTDB_LOG_FILE)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v debug, -vv trace)")

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Apply the schema and seed default settings",
		RunE:  runInit,
	}
	initCmd.Flags().BoolVar(&ignoreExists, "ignore-exists", true, "Skip schema objects that already exist instead of failing")
	rootCmd.AddCommand(initCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "query <sql>",
		Short: "Run a read query and print the rows as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runQuery,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "maintain",
		Short: "Checkpoint the database and refresh planner statistics",
		RunE:  runMaintain,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("optdb %s (commit: %s, built: %s)\n", version, commit, date)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func logLevel() string {
	switch verbosity {
	case 0:
		return baseLogLevel
	case 1:
		return "debug"
	default:
		return "trace"
	}
}

func logPath() string {
	if logFile != "" {
		return logFile
	}
	return logging.FilePathForDB(dbPath)
}

func runInit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	logging.Apply(ctx, logLevel(), nil, logPath())

	mgr, err := database.New(dbPath, schemaPath)
	if err != nil {
		return err
	}
	defer mgr.Close()

	if err := mgr.Initialize(ctx, ignoreExists); err != nil {
		return err
	}

	h, err := mgr.Handle(ctx, cliOwner)
	if err != nil {
		return err
	}

	if err := h.InitializeDefaults(ctx); err != nil {
		return err
	}

	if _, err := h.RecordAudit(ctx, cliOwner, "initialize", "schema", dbPath); err != nil {
		return err
	}

	log.Info().Str("path", dbPath).Msg("Database initialized")
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	mgr, err := database.New(dbPath, schemaPath)
	if err != nil {
		return err
	}
	defer mgr.Close()

	h, err := mgr.Handle(ctx, cliOwner)
	if err != nil {
		return err
	}

	loader := config.NewLoader(h)
	logging.Apply(ctx, logLevel(), loader, logPath())

	rows, err := h.Select(ctx, args[0])
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode rows: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func runMaintain(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	mgr, err := database.New(dbPath, schemaPath)
	if err != nil {
		return err
	}
	defer mgr.Close()

	h, err := mgr.Handle(ctx, cliOwner)
	if err != nil {
		return err
	}

	loader := config.NewLoader(h)
	logging.Apply(ctx, logLevel(), loader, logPath())

	if err := mgr.Checkpoint(ctx); err != nil {
		return err
	}
	if err := mgr.Analyze(ctx); err != nil {
		return err
	}

	if _, err := h.RecordAudit(ctx, cliOwner, "maintain", "database", dbPath); err != nil {
		return err
	}

	log.Info().Str("path", dbPath).Msg("Database maintenance complete")
	return nil
}
