// Package diff compares a declared table with its introspected state and
// plans the additive DDL operations that converge them.
package diff

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ridoystarlord/pqorm/introspect"
	"github.com/ridoystarlord/pqorm/schema"
)

type OperationType string

const (
	CreateTable       OperationType = "CREATE_TABLE"
	RenameColumn      OperationType = "RENAME_COLUMN"
	AddColumn         OperationType = "ADD_COLUMN"
	AlterType         OperationType = "ALTER_TYPE"
	SetDefault        OperationType = "SET_DEFAULT"
	SetNotNull        OperationType = "SET_NOT_NULL"
	CreateIndex       OperationType = "CREATE_INDEX"
	CreateUniqueIndex OperationType = "CREATE_UNIQUE_INDEX"
)

// maxIdentifier is NAMEDATALEN-1; Postgres truncates longer names.
const maxIdentifier = 63

type Operation struct {
	Type  OperationType
	Table string
	// Column is the affected column, under its new name for RENAME_COLUMN.
	Column  string
	OldName string         // for RENAME_COLUMN
	Def     *schema.Column // for ADD_COLUMN, ALTER_TYPE, SET_DEFAULT
	Create  *schema.Table  // for CREATE_TABLE
	Index   *Index         // for CREATE_INDEX, CREATE_UNIQUE_INDEX
}

type Index struct {
	Name    string
	Columns []string
}

// CreateTablePlan plans a table that does not exist yet.
func CreateTablePlan(t *schema.Table) Operation {
	return Operation{Type: CreateTable, Table: t.Name, Create: t}
}

// Columns reconciles every declared column against the introspected ones.
// The returned diagnostics describe columns that were left alone.
//
// Per column: a rename fires only when the new name is missing and the old
// one exists; a missing column is added and needs no further checks; a
// type-locked or unmapped column is not compared; otherwise type, default
// and nullability are compared in that order. Columns are never dropped and
// nullability is only ever tightened.
func Columns(t *schema.Table, existing map[string]introspect.Column) ([]Operation, []string) {
	var ops []Operation
	var diags []string

	for i := range t.Columns {
		col := &t.Columns[i]
		cur, ok := existing[col.Name]

		if col.OldName != "" && col.OldName != col.Name {
			if old, found := existing[col.OldName]; found {
				if ok {
					diags = append(diags, fmt.Sprintf(
						"%s: both %s and %s exist; rename skipped", t.Name, col.OldName, col.Name))
				} else {
					ops = append(ops, Operation{Type: RenameColumn, Table: t.Name, Column: col.Name, OldName: col.OldName})
					// The renamed column is the current one for the rest of the pass.
					cur, ok = old, true
				}
			}
		}

		if !ok {
			ops = append(ops, Operation{Type: AddColumn, Table: t.Name, Column: col.Name, Def: col})
			continue
		}

		if col.TypeLock {
			continue
		}
		canonical, mapped := schema.CanonicalType(col.Type)
		if !mapped {
			continue
		}

		if !TypeMatches(col.Type, canonical, cur) {
			ops = append(ops, Operation{Type: AlterType, Table: t.Name, Column: col.Name, Def: col})
		}

		if col.Default != nil && !DefaultMatches(col.Type, *col.Default, cur.Default) {
			ops = append(ops, Operation{Type: SetDefault, Table: t.Name, Column: col.Name, Def: col})
		}

		if col.NotNull && cur.Nullable {
			ops = append(ops, Operation{Type: SetNotNull, Table: t.Name, Column: col.Name})
		}
	}

	return ops, diags
}

// IndexName is the name every managed index gets:
// {table}_{columns joined by _}_idx, cut to the same character boundary
// Postgres uses when it truncates identifiers.
func IndexName(table, entry string) string {
	name := fmt.Sprintf("%s_%s_idx", table, strings.Join(schema.IndexColumns(entry), "_"))
	if len(name) > maxIdentifier {
		end := maxIdentifier
		for end > 0 && !utf8.RuneStart(name[end]) {
			end--
		}
		name = name[:end]
	}
	return name
}

// Indexes plans the declared indexes and unique indexes that are missing
// from existing (a set of index names). Entries referencing undeclared
// columns are skipped with a diagnostic. Indexes are never dropped.
func Indexes(t *schema.Table, existing map[string]bool) ([]Operation, []string) {
	var ops []Operation
	var diags []string
	planned := map[string]bool{}

	plan := func(entries []string, typ OperationType) {
		for _, entry := range entries {
			cols := schema.IndexColumns(entry)
			if len(cols) == 0 {
				diags = append(diags, fmt.Sprintf("%s: empty index entry %q skipped", t.Name, entry))
				continue
			}

			missing := ""
			for _, c := range cols {
				if _, ok := t.Column(c); !ok {
					missing = c
					break
				}
			}
			if missing != "" {
				diags = append(diags, fmt.Sprintf("%s: column %s is not declared, cannot create index %q", t.Name, missing, entry))
				continue
			}

			name := IndexName(t.Name, entry)
			if existing[name] {
				continue
			}
			if planned[name] {
				diags = append(diags, fmt.Sprintf("%s: index %s declared twice", t.Name, name))
				continue
			}
			planned[name] = true
			ops = append(ops, Operation{Type: typ, Table: t.Name, Index: &Index{Name: name, Columns: cols}})
		}
	}

	plan(t.Index, CreateIndex)
	plan(t.Unique, CreateUniqueIndex)
	return ops, diags
}
