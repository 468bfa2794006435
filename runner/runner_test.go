package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/pqorm/database"
	"github.com/ridoystarlord/pqorm/database/dbtest"
	"github.com/ridoystarlord/pqorm/logging"
	"github.com/ridoystarlord/pqorm/schema"
)

func usersTable() *schema.Table {
	name := schema.NewColumn("name", "varchar(40)")
	name.Default = schema.Ptr("")
	return &schema.Table{
		Name: "users",
		Columns: []schema.Column{
			schema.NewColumn("id", "varchar(20)"),
			name,
			schema.NewColumn("age", "integer"),
		},
	}
}

func column(name, dataType string, maxLen any, def any, nullable bool) map[string]any {
	return map[string]any{
		"column_name":              name,
		"data_type":                dataType,
		"column_default":           def,
		"character_maximum_length": maxLen,
		"numeric_precision":        nil,
		"numeric_scale":            nil,
		"is_nullable":              nullable,
	}
}

func existingUsers(cols ...map[string]any) *dbtest.Recorder {
	return dbtest.New().
		On("information_schema.tables", dbtest.Rows(map[string]any{"table_name": "users"})).
		On("information_schema.columns", dbtest.Rows(cols...)).
		On("pg_indexes", dbtest.Rows(map[string]any{"indexname": "users_pkey"}))
}

func newSync(rec *dbtest.Recorder, opts ...Option) *Synchronizer {
	return New(rec, append([]Option{WithLogger(logging.Discard())}, opts...)...)
}

func TestSyncAddsMissingColumnOnly(t *testing.T) {
	rec := existingUsers(
		column("id", "character varying", int64(20), nil, false),
		column("name", "character varying", int64(40), "''::character varying", false),
	)

	report, err := newSync(rec).Sync(context.Background(), usersTable())
	require.NoError(t, err)

	ddl := rec.DDL()
	require.Len(t, ddl, 1)
	assert.Equal(t, "ALTER TABLE public.users ADD COLUMN age integer NOT NULL DEFAULT $$0$$", ddl[0])
	assert.Equal(t, ddl, report.Statements)
	assert.False(t, report.Created)
	assert.Empty(t, report.Failures)
}

func TestSyncConvergedTableIssuesNothing(t *testing.T) {
	rec := existingUsers(
		column("id", "character varying", int64(20), nil, false),
		column("name", "character varying", int64(40), "''::character varying", false),
		column("age", "integer", nil, "0", false),
	)

	report, err := newSync(rec).Sync(context.Background(), usersTable())
	require.NoError(t, err)
	assert.Empty(t, rec.DDL())
	assert.False(t, report.Changed())
}

func TestSyncTypeLockIssuesNoAlter(t *testing.T) {
	tbl := usersTable()
	tbl.Columns[1].TypeLock = true

	rec := existingUsers(
		column("id", "character varying", int64(20), nil, false),
		column("name", "text", nil, nil, true),
		column("age", "integer", nil, "0", false),
	)

	_, err := newSync(rec).Sync(context.Background(), tbl)
	require.NoError(t, err)
	for _, stmt := range rec.DDL() {
		assert.NotContains(t, stmt, "ALTER COLUMN name")
	}
}

func TestSyncCreatesMissingTableAndIndexes(t *testing.T) {
	tbl := usersTable()
	tbl.Index = []string{"name"}
	tbl.Unique = []string{"id,name"}

	rec := dbtest.New()
	report, err := newSync(rec).Sync(context.Background(), tbl)
	require.NoError(t, err)
	assert.True(t, report.Created)

	ddl := rec.DDL()
	require.Len(t, ddl, 3)
	assert.True(t, strings.HasPrefix(ddl[0], "CREATE TABLE IF NOT EXISTS public.users ("))
	assert.Equal(t, "CREATE INDEX IF NOT EXISTS users_name_idx ON public.users (name)", ddl[1])
	assert.Equal(t, "CREATE UNIQUE INDEX IF NOT EXISTS users_id_name_idx ON public.users (id,name)", ddl[2])

	for _, stmt := range rec.Statements() {
		assert.NotContains(t, stmt, "information_schema.columns")
	}
}

func TestSyncIndexesAreIdempotent(t *testing.T) {
	tbl := usersTable()
	tbl.Index = []string{"name"}
	cols := []map[string]any{
		column("id", "character varying", int64(20), nil, false),
		column("name", "character varying", int64(40), "''::character varying", false),
		column("age", "integer", nil, "0", false),
	}

	first := existingUsers(cols...)
	_, err := newSync(first).Sync(context.Background(), tbl)
	require.NoError(t, err)
	require.Equal(t, []string{"CREATE INDEX IF NOT EXISTS users_name_idx ON public.users (name)"}, first.DDL())

	second := dbtest.New().
		On("information_schema.tables", dbtest.Rows(map[string]any{"table_name": "users"})).
		On("information_schema.columns", dbtest.Rows(cols...)).
		On("pg_indexes", dbtest.Rows(
			map[string]any{"indexname": "users_pkey"},
			map[string]any{"indexname": "users_name_idx"},
		))
	_, err = newSync(second).Sync(context.Background(), tbl)
	require.NoError(t, err)
	assert.Empty(t, second.DDL())
}

func TestSyncInvalidDeclarationSendsNothing(t *testing.T) {
	rec := dbtest.New()
	_, err := newSync(rec).Sync(context.Background(), &schema.Table{Name: "empty"})

	var cfgErr *schema.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Empty(t, rec.Statements())
}

func TestSyncTypeAlterationFailureSkipsColumn(t *testing.T) {
	tbl := usersTable()
	tbl.Columns[2].Default = schema.Ptr("1")

	boom := errors.New("cannot cast type text to integer")
	rec := existingUsers(
		column("id", "character varying", int64(20), nil, false),
		column("name", "character varying", int64(40), "''::character varying", true),
		column("age", "text", nil, nil, true),
	).Fail("ALTER COLUMN age TYPE", boom)

	report, err := newSync(rec).Sync(context.Background(), tbl)
	require.NoError(t, err)

	require.Len(t, report.Failures, 1)
	var typeErr *TypeAlterationError
	require.ErrorAs(t, report.Failures[0].Err, &typeErr)
	assert.Equal(t, "age", typeErr.Column)
	assert.ErrorIs(t, report.Failures[0].Err, boom)

	// age is abandoned after its type change fails, name still converges.
	assert.Equal(t, []string{"ALTER TABLE public.users ALTER COLUMN name SET NOT NULL"}, report.Statements)
	for _, stmt := range rec.DDL() {
		assert.NotContains(t, stmt, "ALTER COLUMN age SET")
	}
}

func TestSyncRenamesColumn(t *testing.T) {
	tbl := usersTable()
	tbl.Columns[1].OldName = "username"

	rec := existingUsers(
		column("id", "character varying", int64(20), nil, false),
		column("username", "character varying", int64(40), "''::character varying", false),
		column("age", "integer", nil, "0", false),
	)
	report, err := newSync(rec).Sync(context.Background(), tbl)
	require.NoError(t, err)
	assert.Equal(t, []string{"ALTER TABLE public.users RENAME COLUMN username TO name"}, report.Statements)
}

func TestSyncIntrospectionFailureAborts(t *testing.T) {
	boom := errors.New("connection reset")
	rec := dbtest.New().Fail("information_schema.tables", boom)

	_, err := newSync(rec).Sync(context.Background(), usersTable())
	require.ErrorIs(t, err, boom)
	assert.Empty(t, rec.DDL())
}

func TestSyncDryRunExecutesNoDDL(t *testing.T) {
	rec := dbtest.New()
	report, err := newSync(rec, WithDryRun(true), WithSchema("app")).Sync(context.Background(), usersTable())
	require.NoError(t, err)

	assert.Empty(t, rec.DDL())
	require.NotEmpty(t, report.Statements)
	assert.True(t, strings.HasPrefix(report.Statements[0], "CREATE TABLE IF NOT EXISTS app.users"))
}

func TestSyncAll(t *testing.T) {
	orders := &schema.Table{Name: "orders", Schema: "shop", Columns: []schema.Column{schema.NewColumn("id", "bigint")}}

	rec := dbtest.New()
	reports, err := newSync(rec).SyncAll(context.Background(), []*schema.Table{usersTable(), orders}, 2)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "users", reports[0].Table)
	assert.Equal(t, "shop", reports[1].Schema)
	assert.True(t, reports[1].Created)
}

// slowTable delays every query that mentions table.
type slowTable struct {
	*dbtest.Recorder
	table string
	delay time.Duration
}

func (s slowTable) Query(ctx context.Context, sql string, args ...any) (*database.Result, error) {
	if strings.Contains(sql+fmt.Sprint(args...), s.table) {
		time.Sleep(s.delay)
	}
	return s.Recorder.Query(ctx, sql, args...)
}

func TestSyncAllTimesEachTable(t *testing.T) {
	orders := &schema.Table{Name: "orders", Columns: []schema.Column{schema.NewColumn("id", "bigint")}}
	db := slowTable{Recorder: dbtest.New(), table: "orders", delay: 20 * time.Millisecond}

	s := New(db, WithLogger(logging.Discard()))
	reports, err := s.SyncAll(context.Background(), []*schema.Table{usersTable(), orders}, 1)
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.GreaterOrEqual(t, reports[1].Elapsed, 20*time.Millisecond)
	assert.Less(t, reports[0].Elapsed, reports[1].Elapsed)
}

func TestSyncAllValidatesEverythingFirst(t *testing.T) {
	rec := dbtest.New()
	_, err := newSync(rec).SyncAll(context.Background(), []*schema.Table{usersTable(), {Name: "broken"}}, 4)
	require.Error(t, err)
	assert.Empty(t, rec.Statements())
}

func TestCreateSchema(t *testing.T) {
	rec := dbtest.New()
	require.NoError(t, newSync(rec).CreateSchema(context.Background(), "tenant_1"))
	assert.Equal(t, []string{"CREATE SCHEMA IF NOT EXISTS tenant_1"}, rec.DDL())

	assert.Error(t, newSync(rec).CreateSchema(context.Background(), ""))
}
