package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/pqorm/validator"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the schema file",
	Long: `Validate your schema file before syncing it.

Checks include:
- Table and column naming (PostgreSQL identifier rules, reserved keywords)
- Types the synchronizer cannot compare (changes to them are never applied)
- Default values that do not fit their type
- Index and unique entries referencing undeclared columns
- Renames that can never fire
- Existing tables (when DATABASE_URL is set)

Examples:
  pqorm validate                       # Validate schema.yaml
  pqorm validate --file custom.yaml    # Validate a custom schema file
  pqorm validate --format json         # Output validation results as JSON
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := validateSchema(cmd.Context())
		if err != nil {
			return fmt.Errorf("schema validation failed: %w", err)
		}
		if validateFormat == "json" {
			err = outputJSON(os.Stdout, result)
		} else {
			outputText(result)
		}
		if err == nil && !result.Valid {
			err = fmt.Errorf("schema has %d error(s)", len(result.Errors))
		}
		return err
	},
}

var (
	validateSchemaFile string
	validateFormat     string
)

func init() {
	validateCmd.Flags().StringVarP(&validateSchemaFile, "file", "f", "", "Schema file to validate (default: $PQORM_SCHEMA_FILE or schema.yaml)")
	validateCmd.Flags().StringVar(&validateFormat, "format", "text", "Output format (text, json)")
}

func validateSchema(ctx context.Context) (*validator.ValidationResult, error) {
	tables, err := loadTables(validateSchemaFile)
	if err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		logger.Debug("DATABASE_URL not set, validating offline")
		return validator.NewSchemaValidator(nil, cfg.Schema).ValidateSchemaWithoutDB(tables), nil
	}

	db, err := connect(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return validator.NewSchemaValidator(db, cfg.Schema).ValidateSchema(ctx, tables)
}

func outputJSON(w io.Writer, result *validator.ValidationResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func outputText(result *validator.ValidationResult) {
	if result.Valid {
		color.Green("✅ Schema validation passed!")
	} else {
		color.Red("❌ Schema validation failed!")
	}

	printFindings("🔴 Errors", result.Errors)
	printFindings("🟡 Warnings", result.Warnings)
	printFindings("🔵 Info", result.Info)

	fmt.Printf("\n📊 Summary:\n")
	fmt.Printf("  • Errors: %d\n", len(result.Errors))
	fmt.Printf("  • Warnings: %d\n", len(result.Warnings))
	fmt.Printf("  • Info: %d\n", len(result.Info))

	if result.Valid {
		fmt.Printf("\n🎉 Your schema is valid and ready to sync!\n")
	} else {
		fmt.Printf("\n💡 Fix the errors above before syncing.\n")
	}
}

func printFindings(title string, findings []validator.ValidationError) {
	if len(findings) == 0 {
		return
	}
	fmt.Printf("\n%s (%d):\n", title, len(findings))
	for i, f := range findings {
		fmt.Printf("  %d. ", i+1)
		if f.Table != "" {
			fmt.Printf("[%s]", f.Table)
		}
		if f.Column != "" {
			fmt.Printf(".%s", f.Column)
		}
		if f.Index != "" {
			fmt.Printf(" (index: %s)", f.Index)
		}
		fmt.Printf(": %s\n", f.Message)
	}
}
