// Package introspect reads the live structure of a table from the catalog
// views.
package introspect

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ridoystarlord/pqorm/database"
)

// Column is one row of information_schema.columns.
type Column struct {
	Name      string
	DataType  string
	Default   *string
	MaxLength *int64
	Precision *int64
	Scale     *int64
	Nullable  bool
}

const tableExistsQuery = `SELECT table_name::text AS table_name
	FROM information_schema.tables
	WHERE table_catalog = current_database() AND table_schema = $1 AND table_name = $2`

const columnsQuery = `SELECT
		column_name::text AS column_name,
		data_type::text AS data_type,
		column_default::text AS column_default,
		character_maximum_length::bigint AS character_maximum_length,
		numeric_precision::bigint AS numeric_precision,
		numeric_scale::bigint AS numeric_scale,
		(is_nullable = 'YES') AS is_nullable
	FROM information_schema.columns
	WHERE table_catalog = current_database() AND table_schema = $1 AND table_name = $2
	ORDER BY ordinal_position`

const indexNamesQuery = `SELECT indexname::text AS indexname
	FROM pg_indexes
	WHERE schemaname = $1 AND tablename = $2`

// TableExists reports whether schemaName.table exists in the current database.
func TableExists(ctx context.Context, q database.Querier, schemaName, table string) (bool, error) {
	r, err := q.Query(ctx, tableExistsQuery, schemaName, table)
	if err != nil {
		return false, fmt.Errorf("querying tables: %w", err)
	}
	return len(r.Rows) > 0, nil
}

// Columns fetches every column of the table in one query, keyed by name.
func Columns(ctx context.Context, q database.Querier, schemaName, table string) (map[string]Column, error) {
	r, err := q.Query(ctx, columnsQuery, schemaName, table)
	if err != nil {
		return nil, fmt.Errorf("querying columns: %w", err)
	}

	cols := make(map[string]Column, len(r.Rows))
	for _, row := range r.Rows {
		c := Column{
			Name:      asString(row["column_name"]),
			DataType:  asString(row["data_type"]),
			Default:   asStringPtr(row["column_default"]),
			MaxLength: asInt64Ptr(row["character_maximum_length"]),
			Precision: asInt64Ptr(row["numeric_precision"]),
			Scale:     asInt64Ptr(row["numeric_scale"]),
			Nullable:  asBool(row["is_nullable"]),
		}
		if c.Name == "" {
			return nil, fmt.Errorf("scanning column: missing column_name in %v", row)
		}
		cols[c.Name] = c
	}
	return cols, nil
}

// IndexNames returns the names of every index on the table.
func IndexNames(ctx context.Context, q database.Querier, schemaName, table string) (map[string]bool, error) {
	r, err := q.Query(ctx, indexNamesQuery, schemaName, table)
	if err != nil {
		return nil, fmt.Errorf("querying indexes: %w", err)
	}

	names := make(map[string]bool, len(r.Rows))
	for _, row := range r.Rows {
		names[asString(row["indexname"])] = true
	}
	return names, nil
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

func asStringPtr(v any) *string {
	if v == nil {
		return nil
	}
	s := asString(v)
	return &s
}

func asInt64Ptr(v any) *int64 {
	var n int64
	switch x := v.(type) {
	case nil:
		return nil
	case int64:
		n = x
	case int32:
		n = int64(x)
	case int:
		n = int64(x)
	case string, []byte:
		parsed, err := strconv.ParseInt(asString(x), 10, 64)
		if err != nil {
			return nil
		}
		n = parsed
	default:
		return nil
	}
	return &n
}

func asBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		b, _ := strconv.ParseBool(x)
		return b || x == "YES"
	case []byte:
		return asBool(string(x))
	}
	return false
}
