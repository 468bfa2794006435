package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/pqorm/runner"
)

var (
	historyLimit    int
	historyTable    string
	historyDetailed bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded sync history",
	Long: `Show the changes recorded by 'pqorm sync --history', newest first.

Examples:
  pqorm history                    # Show the last 20 syncs
  pqorm history --limit 0          # Show everything
  pqorm history --table users      # Only tables whose name contains "users"
  pqorm history --detailed         # Include the executed statements
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := connect(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		records, err := runner.History(ctx, db, cfg.Schema, historyLimit, historyTable)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("📋 No sync history found")
			return nil
		}

		fmt.Println("📋 Sync History")
		fmt.Println(strings.Repeat("=", 60))
		for i, record := range records {
			showHistoryRecord(i+1, record, historyDetailed)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "Number of records to show (0 for all)")
	historyCmd.Flags().StringVarP(&historyTable, "table", "t", "", "Filter by table name")
	historyCmd.Flags().BoolVarP(&historyDetailed, "detailed", "d", false, "Show statements and checksums")
}

func showHistoryRecord(n int, record runner.HistoryRecord, detailed bool) {
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	blue := color.New(color.FgBlue, color.Bold)
	cyan := color.New(color.FgCyan)
	red := color.New(color.FgRed)

	fmt.Printf("\n%d. ", n)
	if record.Status == "success" {
		green.Print("✅ ")
	} else {
		yellow.Print("⚠️ ")
	}
	blue.Printf("%s\n", record.Table)

	cyan.Printf("   📅 Synced: %s\n", record.SyncedAt.Format("2006-01-02 15:04:05"))
	if record.Duration > 0 {
		cyan.Printf("   ⏱️  Duration: %v\n", record.Duration)
	}
	if record.ExecutedBy != "" {
		cyan.Printf("   👤 User: %s\n", record.ExecutedBy)
	}
	if record.Error != "" {
		red.Printf("   💥 Errors: %s\n", record.Error)
	}
	if !detailed {
		return
	}
	cyan.Printf("   🔐 Checksum: %s\n", record.Checksum)
	for _, stmt := range strings.Split(record.Statements, "\n") {
		if stmt != "" {
			printSQL("   ", stmt)
		}
	}
}
