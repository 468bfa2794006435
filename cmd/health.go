package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/pqorm/introspect"
	"github.com/ridoystarlord/pqorm/runner"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check database connectivity",
	Long: `Check if the database is accessible and responsive.

Examples:
  pqorm health                    # Check default database connection
  pqorm health --timeout 10s      # Set custom timeout
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkDatabaseHealth(cmd.Context()); err != nil {
			return fmt.Errorf("database health check failed: %w", err)
		}
		fmt.Println("✅ Database is healthy and accessible")
		return nil
	},
}

var healthTimeout time.Duration

func init() {
	healthCmd.Flags().DurationVarP(&healthTimeout, "timeout", "t", 5*time.Second, "Timeout for health check")
}

func checkDatabaseHealth(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	db, err := connect(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	res, err := db.Query(ctx, "SELECT current_database()::text AS db, version() AS version")
	if err != nil {
		return fmt.Errorf("failed to query server: %w", err)
	}
	if len(res.Rows) > 0 {
		fmt.Printf("🐘 %v on %v\n", res.Rows[0]["db"], res.Rows[0]["version"])
	}

	exists, err := introspect.TableExists(ctx, db, cfg.Schema, runner.HistoryTable)
	if err != nil {
		return fmt.Errorf("failed to check %s: %w", runner.HistoryTable, err)
	}
	if !exists {
		fmt.Printf("⚠️  No sync history in schema %s\n", cfg.Schema)
		fmt.Println("   Run 'pqorm sync --history' to record changes")
		return nil
	}

	records, err := runner.History(ctx, db, cfg.Schema, 1, "")
	if err != nil {
		return err
	}
	if len(records) > 0 {
		fmt.Printf("📊 Last sync: %s (%s)\n", records[0].Table, records[0].SyncedAt.Format(time.RFC3339))
	}
	return nil
}
