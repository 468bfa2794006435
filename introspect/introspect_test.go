package introspect

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ridoystarlord/pqorm/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDriver(t *testing.T) (*database.SQLDriver, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return database.NewSQLDriver(db), mock
}

func TestTableExists(t *testing.T) {
	drv, mock := newDriver(t)
	mock.ExpectQuery("FROM information_schema.tables").
		WithArgs("public", "users").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("users"))
	mock.ExpectQuery("FROM information_schema.tables").
		WithArgs("public", "ghosts").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}))

	ok, err := TableExists(context.Background(), drv, "public", "users")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = TableExists(context.Background(), drv, "public", "ghosts")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestColumns(t *testing.T) {
	drv, mock := newDriver(t)
	cols := []string{
		"column_name", "data_type", "column_default",
		"character_maximum_length", "numeric_precision", "numeric_scale", "is_nullable",
	}
	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("public", "users").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("id", "character varying", nil, int64(20), nil, nil, false).
			AddRow("balance", "numeric", "0", nil, int64(12), int64(2), false).
			AddRow("bio", "text", []byte("''::text"), nil, nil, nil, true))

	got, err := Columns(context.Background(), drv, "public", "users")
	require.NoError(t, err)
	require.Len(t, got, 3)

	id := got["id"]
	assert.Equal(t, "character varying", id.DataType)
	assert.Nil(t, id.Default)
	require.NotNil(t, id.MaxLength)
	assert.EqualValues(t, 20, *id.MaxLength)
	assert.False(t, id.Nullable)

	balance := got["balance"]
	assert.EqualValues(t, 12, *balance.Precision)
	assert.EqualValues(t, 2, *balance.Scale)
	assert.Equal(t, "0", *balance.Default)

	bio := got["bio"]
	assert.Equal(t, "''::text", *bio.Default)
	assert.True(t, bio.Nullable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIndexNames(t *testing.T) {
	drv, mock := newDriver(t)
	mock.ExpectQuery("FROM pg_indexes").
		WithArgs("public", "users").
		WillReturnRows(sqlmock.NewRows([]string{"indexname"}).
			AddRow("users_pkey").
			AddRow("users_username_idx"))

	got, err := IndexNames(context.Background(), drv, "public", "users")
	require.NoError(t, err)
	assert.True(t, got["users_username_idx"])
	assert.True(t, got["users_pkey"])
	assert.False(t, got["users_email_idx"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConversions(t *testing.T) {
	assert.EqualValues(t, 40, *asInt64Ptr(int32(40)))
	assert.EqualValues(t, 7, *asInt64Ptr("7"))
	assert.Nil(t, asInt64Ptr("x"))
	assert.Nil(t, asInt64Ptr(nil))
	assert.True(t, asBool("YES"))
	assert.True(t, asBool([]byte("true")))
	assert.False(t, asBool("NO"))
}
