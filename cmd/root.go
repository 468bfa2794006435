package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/pqorm/config"
	"github.com/ridoystarlord/pqorm/database"
	"github.com/ridoystarlord/pqorm/loader"
	"github.com/ridoystarlord/pqorm/logging"
	"github.com/ridoystarlord/pqorm/schema"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pqorm",
	Short: "Keep PostgreSQL tables in line with their declarations and query them",
	Long: `pqorm syncs declared tables into PostgreSQL (additive only: tables,
columns, renames, types, defaults, NOT NULL and indexes) and runs simple
queries through its statement builder.

Examples:

  pqorm init
  pqorm diff
  pqorm sync --workers 4
  pqorm query users --where "age > ?" --arg 18
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		logger = logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
		slog.SetDefault(logger)
		return nil
	},
}

// Execute runs the CLI
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Println("❌", err)
		os.Exit(1)
	}
}

// Register subcommands
func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(createSchemaCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(queryCmd)
}

func connect(ctx context.Context) (database.Driver, error) {
	db, err := database.Connect(ctx, cfg.Driver, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return db, nil
}

// loadTables reads file, or the configured schema file when file is empty.
func loadTables(file string) ([]*schema.Table, error) {
	if file == "" {
		file = cfg.SchemaFile
	}
	tables, err := loader.LoadTablesFromYAML(file)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", file, err)
	}
	return tables, nil
}

func schemaOr(flag string) string {
	if flag != "" {
		return flag
	}
	return cfg.Schema
}
