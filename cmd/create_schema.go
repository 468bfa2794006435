package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/pqorm/runner"
)

var createSchemaCmd = &cobra.Command{
	Use:   "create-schema NAME",
	Short: "Create a schema if it does not exist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := connect(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := runner.New(db, runner.WithLogger(logger)).CreateSchema(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("✅ Schema %s ready\n", args[0])
		return nil
	},
}
