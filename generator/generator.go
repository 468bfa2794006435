// Package generator renders planned operations as Postgres DDL.
package generator

import (
	"fmt"
	"strings"

	"github.com/ridoystarlord/pqorm/diff"
	"github.com/ridoystarlord/pqorm/schema"
	"github.com/ridoystarlord/pqorm/utils"
)

// GenerateSQL renders every operation against schemaName.
func GenerateSQL(schemaName string, ops []diff.Operation) ([]string, error) {
	var sqlStatements []string
	for _, op := range ops {
		stmt, err := Statement(schemaName, op)
		if err != nil {
			return nil, err
		}
		sqlStatements = append(sqlStatements, stmt)
	}
	return sqlStatements, nil
}

// Statement renders a single operation.
func Statement(schemaName string, op diff.Operation) (string, error) {
	table := qualified(schemaName, op.Table)

	switch op.Type {
	case diff.CreateTable:
		if op.Create == nil {
			return "", fmt.Errorf("generate CREATE TABLE %s: no table definition", table)
		}
		return generateCreateTable(table, op.Create), nil

	case diff.RenameColumn:
		return fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s", table, op.OldName, op.Column), nil

	case diff.AddColumn:
		if op.Def == nil {
			return "", fmt.Errorf("generate ADD COLUMN %s.%s: no column definition", table, op.Column)
		}
		return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", table, columnClause(*op.Def)), nil

	case diff.AlterType:
		if op.Def == nil {
			return "", fmt.Errorf("generate ALTER TYPE %s.%s: no column definition", table, op.Column)
		}
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s", table, op.Column, op.Def.Type), nil

	case diff.SetDefault:
		if op.Def == nil || op.Def.Default == nil {
			return "", fmt.Errorf("generate SET DEFAULT %s.%s: no default", table, op.Column)
		}
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s", table, op.Column, utils.Quote(*op.Def.Default)), nil

	case diff.SetNotNull:
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET NOT NULL", table, op.Column), nil

	case diff.CreateIndex, diff.CreateUniqueIndex:
		if op.Index == nil {
			return "", fmt.Errorf("generate CREATE INDEX on %s: index is nil", table)
		}
		unique := ""
		if op.Type == diff.CreateUniqueIndex {
			unique = "UNIQUE "
		}
		return fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s (%s)",
			unique, op.Index.Name, table, strings.Join(op.Index.Columns, ",")), nil
	}

	return "", fmt.Errorf("unsupported operation: %s", op.Type)
}

// CreateSchema renders CREATE SCHEMA IF NOT EXISTS.
func CreateSchema(name string) string {
	return fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", name)
}

func generateCreateTable(table string, t *schema.Table) string {
	pk := t.PrimaryKeyName()
	clauses := make([]string, 0, len(t.Columns))
	for _, col := range t.Columns {
		if col.Name == pk {
			clauses = append(clauses, fmt.Sprintf("%s %s PRIMARY KEY", col.Name, col.Type))
			continue
		}
		clauses = append(clauses, columnClause(col))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(clauses, ", "))
}

// columnClause renders "name type [NOT NULL] [DEFAULT v]" with the automatic
// default applied.
func columnClause(col schema.Column) string {
	clause := col.Name + " " + col.Type
	if col.NotNull {
		clause += " NOT NULL"
	}
	if def, ok := col.EffectiveDefault(); ok {
		clause += " DEFAULT " + utils.Quote(def)
	}
	return clause
}

func qualified(schemaName, table string) string {
	if schemaName == "" {
		return table
	}
	return schemaName + "." + table
}
