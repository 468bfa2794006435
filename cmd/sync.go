package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/pqorm/runner"
)

var (
	syncFile    string
	syncDryRun  bool
	syncDebug   bool
	syncWorkers int
	syncSchema  string
	syncHistory bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Bring the database in line with the schema file",
	Long: `Create missing tables, columns and indexes, apply renames, and
update column types, defaults and NOT NULL. Nothing is ever dropped.

Examples:
  pqorm sync                         # Sync schema.yaml
  pqorm sync -f tables.yaml -w 4     # Sync 4 tables at a time
  pqorm sync --dry-run               # Print the DDL without running it
  pqorm sync --history               # Record every change in pqorm_sync_history
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd.Context())
	},
}

func init() {
	syncCmd.Flags().StringVarP(&syncFile, "file", "f", "", "Schema file to use (default: $PQORM_SCHEMA_FILE or schema.yaml)")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Print the DDL that would be executed without applying it")
	syncCmd.Flags().BoolVar(&syncDebug, "debug", false, "Log every statement")
	syncCmd.Flags().IntVarP(&syncWorkers, "workers", "w", 1, "Number of tables synced concurrently")
	syncCmd.Flags().StringVarP(&syncSchema, "schema", "s", "", "Schema for tables that do not name one (default: $PQORM_SCHEMA)")
	syncCmd.Flags().BoolVar(&syncHistory, "history", false, "Record each table's changes in the history table")
}

func runSync(ctx context.Context) error {
	tables, err := loadTables(syncFile)
	if err != nil {
		return err
	}

	db, err := connect(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	schemaName := schemaOr(syncSchema)
	if syncHistory && !syncDryRun {
		if err := runner.EnsureHistory(ctx, db, schemaName); err != nil {
			return err
		}
	}

	s := runner.New(db,
		runner.WithSchema(schemaName),
		runner.WithLogger(logger),
		runner.WithDryRun(syncDryRun),
		runner.WithDebug(syncDebug),
	)

	start := time.Now()
	reports, syncErr := s.SyncAll(ctx, tables, syncWorkers)
	elapsed := time.Since(start)

	failures := 0
	for _, report := range reports {
		if report == nil {
			continue
		}
		printReport(report, syncDryRun)
		failures += len(report.Failures)

		if syncHistory && !syncDryRun {
			if err := runner.RecordSync(ctx, db, schemaName, report); err != nil {
				logger.Warn("could not record sync history", "table", report.Table, "error", err)
			}
		}
	}

	if syncErr != nil {
		return fmt.Errorf("sync failed: %w", syncErr)
	}
	if failures > 0 {
		return fmt.Errorf("%d statement(s) failed", failures)
	}

	if syncDryRun {
		fmt.Println("🔍 Dry run complete, nothing was applied")
	} else {
		color.Green("✅ %d table(s) in sync (%v)", len(tables), elapsed.Round(time.Millisecond))
	}
	return nil
}

func printReport(report *runner.Report, dryRun bool) {
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	red := color.New(color.FgRed, color.Bold)

	name := report.Schema + "." + report.Table
	switch {
	case report.Created:
		green.Printf("➕ %s created\n", name)
	case report.Changed():
		yellow.Printf("⚡ %s updated\n", name)
	default:
		fmt.Printf("✔️  %s unchanged\n", name)
	}

	verb := "applied"
	if dryRun {
		verb = "planned"
	}
	for _, stmt := range report.Statements {
		printSQL("   "+verb+": ", stmt)
	}
	for _, d := range report.Diagnostics {
		yellow.Printf("   ⚠️  %s\n", d)
	}
	for _, f := range report.Failures {
		red.Printf("   ❌ %s: %v\n", f.Statement, f.Err)
	}
}
