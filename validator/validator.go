package validator

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ridoystarlord/pqorm/database"
	"github.com/ridoystarlord/pqorm/diff"
	"github.com/ridoystarlord/pqorm/introspect"
	"github.com/ridoystarlord/pqorm/schema"
	"github.com/ridoystarlord/pqorm/utils"
)

// maxIdentifier is the longest identifier Postgres keeps untruncated.
const maxIdentifier = 63

// ValidationError represents a validation error with details
type ValidationError struct {
	Type     string `json:"type"`
	Table    string `json:"table,omitempty"`
	Column   string `json:"column,omitempty"`
	Index    string `json:"index,omitempty"`
	Message  string `json:"message"`
	Severity string `json:"severity"` // "error", "warning", "info"
}

// ValidationResult contains all validation results
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Errors   []ValidationError `json:"errors"`
	Warnings []ValidationError `json:"warnings"`
	Info     []ValidationError `json:"info"`
}

func newResult() *ValidationResult {
	return &ValidationResult{
		Valid:    true,
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
		Info:     []ValidationError{},
	}
}

func (r *ValidationResult) add(e ValidationError) {
	switch e.Severity {
	case "error":
		r.Errors = append(r.Errors, e)
	case "warning":
		r.Warnings = append(r.Warnings, e)
	default:
		r.Info = append(r.Info, e)
	}
}

// SchemaValidator checks table declarations before they are synced.
type SchemaValidator struct {
	db     database.Querier
	schema string
}

// NewSchemaValidator creates a validator. db may be nil, in which case only
// ValidateSchemaWithoutDB is useful.
func NewSchemaValidator(db database.Querier, defaultSchema string) *SchemaValidator {
	if defaultSchema == "" {
		defaultSchema = "public"
	}
	return &SchemaValidator{db: db, schema: defaultSchema}
}

// ValidateSchema validates the declarations and reports which tables
// already exist in the database.
func (v *SchemaValidator) ValidateSchema(ctx context.Context, tables []*schema.Table) (*ValidationResult, error) {
	if v.db == nil {
		return nil, fmt.Errorf("validate schema: no database connection")
	}
	result := v.ValidateSchemaWithoutDB(tables)

	for _, t := range tables {
		if t == nil || t.Name == "" {
			continue
		}
		schemaName := v.schemaFor(t)
		exists, err := introspect.TableExists(ctx, v.db, schemaName, t.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to check table %s: %w", t.Name, err)
		}
		if exists {
			result.add(ValidationError{
				Type:     "table_exists",
				Table:    t.Name,
				Message:  fmt.Sprintf("Table '%s.%s' already exists and will be altered in place", schemaName, t.Name),
				Severity: "info",
			})
		}
	}
	return result, nil
}

// ValidateSchemaWithoutDB validates declarations without a connection.
func (v *SchemaValidator) ValidateSchemaWithoutDB(tables []*schema.Table) *ValidationResult {
	result := newResult()

	seen := make(map[string]bool)
	for _, t := range tables {
		if t == nil {
			result.add(ValidationError{Type: "nil_table", Message: "Table declaration is empty", Severity: "error"})
			continue
		}

		key := v.schemaFor(t) + "." + t.Name
		if seen[key] {
			result.add(ValidationError{
				Type:     "duplicate_table",
				Table:    t.Name,
				Message:  fmt.Sprintf("Table '%s' is declared more than once", key),
				Severity: "error",
			})
			continue
		}
		seen[key] = true

		v.validateTable(t, result)
	}

	result.Valid = len(result.Errors) == 0
	return result
}

func (v *SchemaValidator) schemaFor(t *schema.Table) string {
	if t.Schema != "" {
		return t.Schema
	}
	return v.schema
}

func (v *SchemaValidator) validateTable(t *schema.Table, result *ValidationResult) {
	if err := validateIdentifier("table", t.Name); err != nil {
		result.add(ValidationError{Type: "table_name", Table: t.Name, Message: err.Error(), Severity: "error"})
	} else if isReserved(t.Name) {
		result.add(ValidationError{
			Type:     "table_name",
			Table:    t.Name,
			Message:  fmt.Sprintf("table name '%s' is a reserved keyword", t.Name),
			Severity: "error",
		})
	}

	if len(t.Columns) == 0 {
		result.add(ValidationError{
			Type:     "no_columns",
			Table:    t.Name,
			Message:  fmt.Sprintf("Table '%s' must have at least one column", t.Name),
			Severity: "error",
		})
		return
	}

	v.validateColumns(t, result)
	v.validateIndexes(t, result)
}

func (v *SchemaValidator) validateColumns(t *schema.Table, result *ValidationResult) {
	columnNames := make(map[string]bool)

	for _, column := range t.Columns {
		if columnNames[column.Name] {
			result.add(ValidationError{
				Type:     "duplicate_column",
				Table:    t.Name,
				Column:   column.Name,
				Message:  fmt.Sprintf("Duplicate column name '%s' in table '%s'", column.Name, t.Name),
				Severity: "error",
			})
			continue
		}
		columnNames[column.Name] = true

		if err := validateIdentifier("column", column.Name); err != nil {
			result.add(ValidationError{Type: "column_name", Table: t.Name, Column: column.Name, Message: err.Error(), Severity: "error"})
		}

		if strings.TrimSpace(column.Type) == "" {
			result.add(ValidationError{
				Type:     "data_type",
				Table:    t.Name,
				Column:   column.Name,
				Message:  fmt.Sprintf("Column '%s' has no type", column.Name),
				Severity: "error",
			})
			continue
		}

		if _, mapped := schema.CanonicalType(column.Type); !mapped && !column.TypeLock {
			result.add(ValidationError{
				Type:     "unmapped_type",
				Table:    t.Name,
				Column:   column.Name,
				Message:  fmt.Sprintf("Type '%s' is not compared against the database; changes to it are never applied", column.Type),
				Severity: "warning",
			})
		}

		if column.Default != nil {
			if err := validateDefaultValue(column.Type, *column.Default); err != nil {
				result.add(ValidationError{Type: "default_value", Table: t.Name, Column: column.Name, Message: err.Error(), Severity: "warning"})
			}
		}

		if column.OldName != "" && column.OldName == column.Name {
			result.add(ValidationError{
				Type:     "old_name",
				Table:    t.Name,
				Column:   column.Name,
				Message:  fmt.Sprintf("Column '%s' lists itself as its old name", column.Name),
				Severity: "warning",
			})
		}

		if column.TypeLock {
			result.add(ValidationError{
				Type:     "type_lock",
				Table:    t.Name,
				Column:   column.Name,
				Message:  fmt.Sprintf("Column '%s' is type-locked; only missing columns and renames are applied", column.Name),
				Severity: "info",
			})
		}
	}

	for _, column := range t.Columns {
		if column.OldName != "" && column.OldName != column.Name && columnNames[column.OldName] {
			result.add(ValidationError{
				Type:     "old_name",
				Table:    t.Name,
				Column:   column.Name,
				Message:  fmt.Sprintf("Old name '%s' of column '%s' is also declared as a column; the rename never fires", column.OldName, column.Name),
				Severity: "warning",
			})
		}
	}

	if pk := t.PrimaryKeyName(); !columnNames[pk] {
		result.add(ValidationError{
			Type:     "no_primary_key",
			Table:    t.Name,
			Column:   pk,
			Message:  fmt.Sprintf("Table '%s' does not declare its primary key column '%s'", t.Name, pk),
			Severity: "warning",
		})
	}
}

// validateDefaultValue checks that a default fits the declared type.
// Raw defaults are not checked.
func validateDefaultValue(dataType, defaultValue string) error {
	if strings.HasPrefix(defaultValue, utils.RawPrefix) {
		return nil
	}

	switch base := schema.BaseType(dataType); {
	case base == "boolean":
		switch strings.ToLower(strings.TrimSpace(defaultValue)) {
		case "t", "true", "y", "yes", "on", "1", "f", "false", "n", "no", "off", "0":
			return nil
		}
		return fmt.Errorf("boolean type should have true/false default value, got '%s'", defaultValue)
	case schema.IsNumeric(dataType):
		if _, err := strconv.ParseFloat(defaultValue, 64); err != nil {
			return fmt.Errorf("numeric type cannot have non-numeric default value '%s'", defaultValue)
		}
		if base != "numeric" && base != "decimal" && strings.Contains(defaultValue, ".") {
			return fmt.Errorf("integer type cannot have decimal default value '%s'", defaultValue)
		}
	}
	return nil
}

func (v *SchemaValidator) validateIndexes(t *schema.Table, result *ValidationResult) {
	indexNames := make(map[string]bool)

	check := func(entries []string, kind string) {
		for _, entry := range entries {
			cols := schema.IndexColumns(entry)
			if len(cols) == 0 {
				result.add(ValidationError{
					Type:     kind + "_empty",
					Table:    t.Name,
					Index:    entry,
					Message:  fmt.Sprintf("Empty %s entry in table '%s'", kind, t.Name),
					Severity: "error",
				})
				continue
			}

			name := diff.IndexName(t.Name, entry)
			if indexNames[name] {
				result.add(ValidationError{
					Type:     "duplicate_index",
					Table:    t.Name,
					Index:    name,
					Message:  fmt.Sprintf("Duplicate index name '%s' in table '%s'", name, t.Name),
					Severity: "warning",
				})
				continue
			}
			indexNames[name] = true

			if raw := fmt.Sprintf("%s_%s_idx", t.Name, strings.Join(cols, "_")); len(raw) > maxIdentifier {
				result.add(ValidationError{
					Type:     "index_name",
					Table:    t.Name,
					Index:    name,
					Message:  fmt.Sprintf("Index name '%s' is too long and is truncated to '%s'", raw, name),
					Severity: "warning",
				})
			}

			for _, columnName := range cols {
				if _, ok := t.Column(columnName); !ok {
					result.add(ValidationError{
						Type:     kind + "_column_not_found",
						Table:    t.Name,
						Index:    name,
						Column:   columnName,
						Message:  fmt.Sprintf("Index '%s' references non-existent column '%s' in table '%s'", name, columnName, t.Name),
						Severity: "error",
					})
				}
			}
		}
	}

	check(t.Index, "index")
	check(t.Unique, "unique")
}

var reservedKeywords = map[string]bool{
	"user": true, "order": true, "group": true, "table": true, "index": true,
	"view": true, "schema": true, "select": true, "where": true, "from": true,
}

func isReserved(name string) bool {
	return reservedKeywords[strings.ToLower(name)]
}

// validateIdentifier applies the Postgres rules for unquoted identifiers.
func validateIdentifier(kind, name string) error {
	if name == "" {
		return fmt.Errorf("%s name cannot be empty", kind)
	}
	if len(name) > maxIdentifier {
		return fmt.Errorf("%s name '%s' is too long (max %d characters)", kind, name, maxIdentifier)
	}
	if c := name[0]; c >= '0' && c <= '9' {
		return fmt.Errorf("%s name '%s' cannot start with a digit", kind, name)
	}
	for _, char := range name {
		if !((char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '_') {
			return fmt.Errorf("%s name '%s' contains invalid character '%c'", kind, name, char)
		}
	}
	return nil
}
