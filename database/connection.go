package database

import (
	"context"
	"fmt"
	"strings"
)

// Driver names accepted by Connect.
const (
	DriverPgx = "pgx"
	DriverPQ  = "postgres"
)

// Connect opens a pooled connection with the named driver and pings it.
// An empty name selects pgx.
func Connect(ctx context.Context, driverName, url string) (Driver, error) {
	if url == "" {
		return nil, fmt.Errorf("DATABASE_URL not set in environment")
	}

	switch strings.ToLower(driverName) {
	case "", DriverPgx:
		return OpenPgx(ctx, url)
	case DriverPQ, "pq":
		return OpenSQL(ctx, url)
	default:
		return nil, fmt.Errorf("unknown driver %q (want %q or %q)", driverName, DriverPgx, DriverPQ)
	}
}
