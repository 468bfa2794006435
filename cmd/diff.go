package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/pqorm/runner"
)

var (
	diffFile   string
	diffSchema string
	diffPlain  bool
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show the DDL a sync would run",
	Long: `Compare the schema file with the database and print the statements
a sync would execute. Nothing is changed.

Examples:
  pqorm diff                    # Show planned changes per table
  pqorm diff --plain > up.sql   # Only the statements, one per line
  pqorm diff -f custom.yaml     # Use a custom schema file
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		tables, err := loadTables(diffFile)
		if err != nil {
			return err
		}
		db, err := connect(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		s := runner.New(db,
			runner.WithSchema(schemaOr(diffSchema)),
			runner.WithLogger(logger),
			runner.WithDryRun(true),
		)
		reports, err := s.SyncAll(ctx, tables, 1)
		if err != nil {
			return err
		}

		if diffPlain {
			for _, r := range reports {
				for _, stmt := range r.Statements {
					fmt.Println(stmt + ";")
				}
			}
			return nil
		}

		changed := 0
		for _, r := range reports {
			if r.Changed() || len(r.Diagnostics) > 0 {
				changed++
			}
		}
		if changed == 0 {
			fmt.Println("✅ No differences found between schema and database")
			return nil
		}

		fmt.Println("📋 Planned changes")
		fmt.Println(strings.Repeat("=", 50))
		for _, r := range reports {
			if r.Changed() || len(r.Diagnostics) > 0 {
				printReport(r, true)
			}
		}
		color.Yellow("\n%d of %d table(s) differ; run 'pqorm sync' to apply", changed, len(reports))
		return nil
	},
}

func init() {
	diffCmd.Flags().StringVarP(&diffFile, "file", "f", "", "Schema file to use (default: $PQORM_SCHEMA_FILE or schema.yaml)")
	diffCmd.Flags().StringVarP(&diffSchema, "schema", "s", "", "Schema for tables that do not name one (default: $PQORM_SCHEMA)")
	diffCmd.Flags().BoolVar(&diffPlain, "plain", false, "Print only the SQL statements")
}
