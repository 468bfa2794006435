package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
)

// SQLDriver adapts a *sql.DB (normally lib/pq) to the Driver contract.
type SQLDriver struct {
	db *sql.DB
}

// NewSQLDriver wraps an already opened *sql.DB.
func NewSQLDriver(db *sql.DB) *SQLDriver {
	return &SQLDriver{db: db}
}

// OpenSQL opens dsn with lib/pq and pings it.
func OpenSQL(ctx context.Context, dsn string) (*SQLDriver, error) {
	db, err := sql.Open(DriverPQ, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &SQLDriver{db: db}, nil
}

func (d *SQLDriver) Query(ctx context.Context, query string, args ...any) (*Result, error) {
	return sqlQuery(ctx, d.db, query, args...)
}

func (d *SQLDriver) Acquire(ctx context.Context) (Conn, error) {
	c, err := d.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to acquire connection: %w", err)
	}
	return &sqlConn{conn: c}, nil
}

func (d *SQLDriver) Close() {
	d.db.Close()
}

type sqlConn struct {
	conn *sql.Conn
}

func (c *sqlConn) Query(ctx context.Context, query string, args ...any) (*Result, error) {
	return sqlQuery(ctx, c.conn, query, args...)
}

func (c *sqlConn) Release() {
	c.conn.Close()
}

type sqlQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func sqlQuery(ctx context.Context, q sqlQuerier, query string, args ...any) (*Result, error) {
	if !returnsRows(query) {
		res, err := q.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			// DDL has no meaningful count.
			n = 0
		}
		return &Result{RowCount: n, SQL: query}, nil
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var records []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		record := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				record[col] = string(b)
				continue
			}
			record[col] = values[i]
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &Result{Rows: records, RowCount: int64(len(records)), SQL: query}, nil
}

// returnsRows reports whether query produces a result set and therefore has
// to go through QueryContext.
func returnsRows(query string) bool {
	q := strings.ToUpper(strings.TrimSpace(query))
	for _, prefix := range []string{"SELECT", "WITH", "SHOW", "VALUES", "TABLE", "EXPLAIN"} {
		if strings.HasPrefix(q, prefix) {
			return true
		}
	}
	return strings.Contains(q, " RETURNING ")
}
