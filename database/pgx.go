package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxDriver adapts a pgxpool.Pool to the Driver contract.
type PgxDriver struct {
	pool *pgxpool.Pool
}

// NewPgxDriver wraps an existing pool.
func NewPgxDriver(pool *pgxpool.Pool) *PgxDriver {
	return &PgxDriver{pool: pool}
}

// OpenPgx creates a pool for url and checks that the server answers.
func OpenPgx(ctx context.Context, url string) (*PgxDriver, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &PgxDriver{pool: pool}, nil
}

func (d *PgxDriver) Query(ctx context.Context, sql string, args ...any) (*Result, error) {
	return pgxQuery(ctx, d.pool, sql, args...)
}

func (d *PgxDriver) Acquire(ctx context.Context) (Conn, error) {
	c, err := d.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to acquire connection: %w", err)
	}
	return &pgxConn{conn: c}, nil
}

func (d *PgxDriver) Close() {
	d.pool.Close()
}

type pgxConn struct {
	conn *pgxpool.Conn
}

func (c *pgxConn) Query(ctx context.Context, sql string, args ...any) (*Result, error) {
	return pgxQuery(ctx, c.conn, sql, args...)
}

func (c *pgxConn) Release() {
	c.conn.Release()
}

type pgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func pgxQuery(ctx context.Context, q pgxQuerier, sql string, args ...any) (*Result, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}

	records, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, err
	}

	// CollectRows closed rows, so the command tag is final.
	return &Result{
		Rows:     records,
		RowCount: rows.CommandTag().RowsAffected(),
		SQL:      sql,
	}, nil
}
