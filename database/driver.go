// Package database defines the driver contract the builder and the schema
// synchronizer talk to, plus adapters for pgx and database/sql.
package database

import "context"

// Result is what a statement produced: the returned rows keyed by column
// name and the number of rows the command touched (or returned).
type Result struct {
	Rows     []map[string]any
	RowCount int64

	// SQL is the statement text. Fetch-only builders return it without
	// executing anything.
	SQL string
}

// Querier runs one SQL statement with optional bind parameters.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (*Result, error)
}

// Conn is a dedicated connection checked out of a Driver. It must be
// released exactly once.
type Conn interface {
	Querier
	Release()
}

// Driver is a pooled database handle.
type Driver interface {
	Querier
	// Acquire checks out a dedicated connection, e.g. for a transaction.
	Acquire(ctx context.Context) (Conn, error)
	// Close releases the whole pool.
	Close()
}
