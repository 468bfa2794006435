// Package orm builds and runs single SQL statements against a PostgreSQL
// table, pools the builders, coordinates transactions and wraps a declared
// table in a small repository API.
package orm

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ridoystarlord/pqorm/database"
	"github.com/ridoystarlord/pqorm/utils"
)

const (
	cmdSelect = "SELECT"
	cmdInsert = "INSERT"
	cmdUpdate = "UPDATE"
	cmdDelete = "DELETE"
)

// statement holds the rendered fragments of one SQL statement. where and
// join accumulate across calls, the other fragments are replaced.
type statement struct {
	command string
	fields  string
	values  string
	where   string
	join    string
	group   string
	order   string
	limit   string
}

// Builder accumulates the clauses of one statement and executes it. A
// builder is owned by one caller at a time; a pooled builder goes back to
// its ORM after every Exec and must not be used afterwards.
type Builder struct {
	db     database.Querier
	table  string
	schema string

	orm       *ORM
	idle      bool
	fetchOnly bool

	unit statement
	err  error
}

// NewBuilder returns a builder that is not attached to any pool.
func NewBuilder(db database.Querier, table, schema string) *Builder {
	return &Builder{db: db, table: table, schema: schema}
}

// Model rebinds the builder to another table. An empty schema keeps the
// current one.
func (b *Builder) Model(table, schema string) *Builder {
	b.table = table
	if schema != "" {
		b.schema = schema
	}
	return b
}

func (b *Builder) Table() string  { return b.table }
func (b *Builder) Schema() string { return b.schema }

// Fetch switches the builder to fetch-only mode: Exec returns the rendered
// SQL instead of running it.
func (b *Builder) Fetch() *Builder {
	b.fetchOnly = true
	return b
}

// Run leaves fetch-only mode.
func (b *Builder) Run() *Builder {
	b.fetchOnly = false
	return b
}

// Err returns the first argument error recorded since the last reset.
func (b *Builder) Err() error { return b.err }

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Where appends the conditions, joined with AND, to the WHERE clause.
func (b *Builder) Where(conds ...Condition) *Builder {
	parts := make([]string, 0, len(conds))
	for _, c := range conds {
		s, err := c.render()
		if err != nil {
			b.fail(err)
			continue
		}
		if s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return b
	}
	if b.unit.where != "" {
		b.unit.where += " AND "
	}
	b.unit.where += strings.Join(parts, " AND ")
	return b
}

// WhereSQL appends a template whose ? placeholders take the quoted args.
func (b *Builder) WhereSQL(template string, args ...any) *Builder {
	return b.Where(Raw{Template: template, Args: args})
}

// WhereMap appends a loosely typed condition map, see MapConditions.
func (b *Builder) WhereMap(cond map[string]any) *Builder {
	return b.Where(MapConditions(cond)...)
}

// Join appends "<joinType> JOIN schema.table ON on". An empty joinType is
// INNER; a table that is already schema-qualified is used as is.
func (b *Builder) Join(table, on, joinType string) *Builder {
	if joinType == "" {
		joinType = "INNER"
	}
	if !strings.Contains(table, ".") {
		table = b.schema + "." + table
	}
	b.unit.join += fmt.Sprintf("%s JOIN %s ON %s ", joinType, table, on)
	return b
}

func (b *Builder) LeftJoin(table, on string) *Builder  { return b.Join(table, on, "LEFT") }
func (b *Builder) RightJoin(table, on string) *Builder { return b.Join(table, on, "RIGHT") }

func (b *Builder) Group(expr string) *Builder {
	b.unit.group = "GROUP BY " + expr + " "
	return b
}

func (b *Builder) Order(expr string) *Builder {
	b.unit.order = "ORDER BY " + expr + " "
	return b
}

func (b *Builder) Limit(count, offset int) *Builder {
	b.unit.limit = "LIMIT " + strconv.Itoa(count) + " OFFSET " + strconv.Itoa(offset)
	return b
}

// Reset clears every clause and any recorded argument error. Fetch-only
// mode is kept.
func (b *Builder) Reset() {
	b.unit = statement{}
	b.err = nil
}

// Render returns the SQL text of the current statement, or "" when no
// command has been set.
func (b *Builder) Render() string {
	u := &b.unit
	target := b.schema + "." + b.table

	switch u.command {
	case cmdSelect:
		where := ""
		if u.where != "" {
			where = "WHERE " + u.where
		}
		return fmt.Sprintf("SELECT %s FROM %s %s%s %s%s%s;",
			u.fields, target, u.join, where, u.group, u.order, u.limit)
	case cmdDelete:
		if u.where == "" {
			return "DELETE FROM " + target + ";"
		}
		return "DELETE FROM " + target + " WHERE " + u.where + ";"
	case cmdUpdate:
		if u.where == "" {
			return "UPDATE " + target + " SET " + u.values + ";"
		}
		return "UPDATE " + target + " SET " + u.values + " WHERE " + u.where + ";"
	case cmdInsert:
		return "INSERT INTO " + target + " (" + u.fields + ") VALUES " + u.values + ";"
	}
	return ""
}

// Exec renders and resets the statement, then runs it. In fetch-only mode
// the SQL text is returned in Result.SQL and nothing is executed. Otherwise
// a pooled builder is returned to its pool once the driver call is over,
// whatever its outcome.
func (b *Builder) Exec(ctx context.Context) (*database.Result, error) {
	sql, err := b.Render(), b.err
	b.Reset()

	if b.fetchOnly {
		if err != nil {
			return nil, err
		}
		return &database.Result{SQL: sql}, nil
	}

	defer b.release()
	if err != nil {
		return nil, err
	}
	if sql == "" {
		return nil, fmt.Errorf("%w: no command to execute", ErrArgument)
	}

	res, err := b.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("orm: %s %s.%s: %w", commandOf(sql), b.schema, b.table, err)
	}
	return res, nil
}

func (b *Builder) release() {
	if b.orm != nil {
		b.orm.release(b)
	}
}

func commandOf(sql string) string {
	if i := strings.IndexByte(sql, ' '); i > 0 {
		return strings.ToLower(sql[:i])
	}
	return "exec"
}

// Select runs a SELECT of the given fields, "*" when none are given.
func (b *Builder) Select(ctx context.Context, fields ...string) (*database.Result, error) {
	b.unit.command = cmdSelect
	b.unit.fields = "*"
	if len(fields) > 0 {
		b.unit.fields = strings.Join(fields, ",")
	}
	return b.Exec(ctx)
}

// Delete removes the rows matching the WHERE clause; all rows when there is
// none.
func (b *Builder) Delete(ctx context.Context) (*database.Result, error) {
	b.unit.command = cmdDelete
	return b.Exec(ctx)
}

// Insert writes one record. Keys are emitted in sorted order.
func (b *Builder) Insert(ctx context.Context, record map[string]any) (*database.Result, error) {
	if len(record) == 0 {
		b.fail(fmt.Errorf("%w: insert needs at least one field", ErrArgument))
		return b.Exec(ctx)
	}
	keys := sortedKeys(record)
	b.unit.command = cmdInsert
	b.unit.fields = strings.Join(keys, ",")
	b.unit.values = tuple(keys, record)
	return b.Exec(ctx)
}

// InsertAll writes several records in one statement. Every record must
// carry exactly the keys of the first one.
func (b *Builder) InsertAll(ctx context.Context, records []map[string]any) (*database.Result, error) {
	if len(records) == 0 || len(records[0]) == 0 {
		b.fail(fmt.Errorf("%w: data must be a non-empty list of records", ErrArgument))
		return b.Exec(ctx)
	}

	keys := sortedKeys(records[0])
	tuples := make([]string, len(records))
	for i, rec := range records {
		if !sameKeys(keys, rec) {
			b.fail(fmt.Errorf("%w: record %d does not have the fields of record 0", ErrArgument, i))
			return b.Exec(ctx)
		}
		tuples[i] = tuple(keys, rec)
	}

	b.unit.command = cmdInsert
	b.unit.fields = strings.Join(keys, ",")
	b.unit.values = strings.Join(tuples, ",")
	return b.Exec(ctx)
}

// Update sets the given columns on the rows matching the WHERE clause.
func (b *Builder) Update(ctx context.Context, values map[string]any) (*database.Result, error) {
	if len(values) == 0 {
		b.fail(fmt.Errorf("%w: update needs at least one field", ErrArgument))
		return b.Exec(ctx)
	}
	pairs := make([]string, 0, len(values))
	for _, k := range sortedKeys(values) {
		pairs = append(pairs, k+"="+utils.Quote(values[k]))
	}
	return b.UpdateSQL(ctx, strings.Join(pairs, ","))
}

// UpdateSQL runs an UPDATE with a pre-rendered SET fragment.
func (b *Builder) UpdateSQL(ctx context.Context, set string) (*database.Result, error) {
	if strings.TrimSpace(set) == "" {
		b.fail(fmt.Errorf("%w: empty SET clause", ErrArgument))
		return b.Exec(ctx)
	}
	b.unit.command = cmdUpdate
	b.unit.values = set
	return b.Exec(ctx)
}

// Count returns the number of rows matching the WHERE clause.
func (b *Builder) Count(ctx context.Context) (int64, error) {
	fetchOnly, target := b.fetchOnly, b.schema+"."+b.table
	res, err := b.Select(ctx, "COUNT(*) as total")
	if err != nil {
		return 0, err
	}
	if fetchOnly {
		return 0, nil
	}
	if len(res.Rows) == 0 {
		return 0, fmt.Errorf("orm: count on %s returned no rows", target)
	}
	return toInt64(res.Rows[0]["total"])
}

func tuple(keys []string, record map[string]any) string {
	vals := make([]string, len(keys))
	for i, k := range keys {
		vals[i] = utils.Quote(record[k])
	}
	return "(" + strings.Join(vals, ",") + ")"
}

func sameKeys(keys []string, record map[string]any) bool {
	if len(record) != len(keys) {
		return false
	}
	for _, k := range keys {
		if _, ok := record[k]; !ok {
			return false
		}
	}
	return true
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	case []byte:
		return strconv.ParseInt(string(n), 10, 64)
	}
	return 0, fmt.Errorf("orm: unexpected count value %v (%T)", v, v)
}
