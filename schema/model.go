// Package schema describes the declared (program-side) table structure the
// synchronizer converges the database towards.
package schema

import (
	"fmt"
	"strings"
)

// DefaultPrimaryKey is used when a table does not name its primary key.
const DefaultPrimaryKey = "id"

// Table is a declared table: ordered columns plus simple indexes.
type Table struct {
	Name string
	// Schema overrides the synchronizer's schema when set.
	Schema     string
	PrimaryKey string
	Columns    []Column
	// Index and Unique hold column names; a comma-joined entry such as
	// "a,b" declares a composite index.
	Index  []string
	Unique []string
}

// Column is a declared column. Type uses the vocabulary understood by
// CanonicalType, optionally with a size such as "varchar(40)".
type Column struct {
	Name    string
	Type    string
	NotNull bool
	Default *string
	// OldName triggers a rename when only the old name exists in the
	// database.
	OldName string
	// TypeLock leaves type, default and nullability to the operator.
	TypeLock bool
	// NoDefault disables the automatic 0 / '' default.
	NoDefault bool
}

// NewColumn returns a NOT NULL column, the declared default.
func NewColumn(name, typ string) Column {
	return Column{Name: name, Type: typ, NotNull: true}
}

// Ptr is a helper for Column.Default.
func Ptr(s string) *string {
	return &s
}

// PrimaryKeyName returns the primary key column name.
func (t *Table) PrimaryKeyName() string {
	if t.PrimaryKey == "" {
		return DefaultPrimaryKey
	}
	return t.PrimaryKey
}

// Column looks a declared column up by name.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// IndexColumns splits an index entry into its column names.
func IndexColumns(entry string) []string {
	var cols []string
	for _, c := range strings.Split(entry, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cols = append(cols, c)
		}
	}
	return cols
}

// Validate reports structural problems that make the table unusable.
func (t *Table) Validate() error {
	if t == nil {
		return &ConfigurationError{Reason: "no table definition"}
	}
	if strings.TrimSpace(t.Name) == "" {
		return &ConfigurationError{Reason: "table name is empty"}
	}
	if len(t.Columns) == 0 {
		return &ConfigurationError{Table: t.Name, Reason: "no columns declared"}
	}

	seen := make(map[string]bool, len(t.Columns))
	for i, c := range t.Columns {
		if strings.TrimSpace(c.Name) == "" {
			return &ConfigurationError{Table: t.Name, Reason: fmt.Sprintf("column #%d has no name", i+1)}
		}
		if seen[c.Name] {
			return &ConfigurationError{Table: t.Name, Reason: fmt.Sprintf("duplicate column %q", c.Name)}
		}
		seen[c.Name] = true
		if strings.TrimSpace(c.Type) == "" {
			return &ConfigurationError{Table: t.Name, Reason: fmt.Sprintf("column %q has no type", c.Name)}
		}
	}
	return nil
}

// ConfigurationError is a malformed table declaration. It aborts the sync
// of that table before any DDL is issued.
type ConfigurationError struct {
	Table  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Table == "" {
		return "schema: " + e.Reason
	}
	return fmt.Sprintf("schema: table %q: %s", e.Table, e.Reason)
}
