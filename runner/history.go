package runner

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os/user"
	"strings"
	"time"

	"github.com/ridoystarlord/pqorm/database"
)

// HistoryTable records every sync pass that issued DDL.
const HistoryTable = "pqorm_sync_history"

// HistoryRecord is one row of HistoryTable.
type HistoryRecord struct {
	ID         int64
	Table      string
	SyncedAt   time.Time
	Duration   time.Duration
	ExecutedBy string
	Status     string
	Statements string
	Checksum   string
	Error      string
}

// EnsureHistory creates HistoryTable in schemaName if it is missing.
func EnsureHistory(ctx context.Context, q database.Querier, schemaName string) error {
	_, err := q.Query(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
		id BIGSERIAL PRIMARY KEY,
		table_name TEXT NOT NULL,
		synced_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		duration_ms BIGINT NOT NULL DEFAULT 0,
		executed_by TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		statements TEXT NOT NULL DEFAULT '',
		checksum TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT ''
	)`, schemaName, HistoryTable))
	if err != nil {
		return fmt.Errorf("creating %s: %w", HistoryTable, err)
	}
	return nil
}

// RecordSync stores the outcome of one pass along with its Elapsed time.
// Passes that changed nothing and had no failures are not recorded.
func RecordSync(ctx context.Context, q database.Querier, schemaName string, report *Report) error {
	if report == nil || (!report.Changed() && len(report.Failures) == 0) {
		return nil
	}

	status := "success"
	var errs []string
	for _, f := range report.Failures {
		errs = append(errs, f.Err.Error())
	}
	if len(errs) > 0 {
		status = "partial"
	}
	statements := strings.Join(report.Statements, "\n")

	_, err := q.Query(ctx, fmt.Sprintf(`INSERT INTO %s.%s
		(table_name, duration_ms, executed_by, status, statements, checksum, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`, schemaName, HistoryTable),
		report.Schema+"."+report.Table,
		report.Elapsed.Milliseconds(),
		currentUser(),
		status,
		statements,
		checksum(statements),
		strings.Join(errs, "; "),
	)
	if err != nil {
		return fmt.Errorf("recording sync of %s: %w", report.Table, err)
	}
	return nil
}

// History returns the newest records first. A non-empty tableFilter keeps
// tables whose name contains it; limit <= 0 means no limit.
func History(ctx context.Context, q database.Querier, schemaName string, limit int, tableFilter string) ([]HistoryRecord, error) {
	query := fmt.Sprintf(`SELECT id, table_name, synced_at, duration_ms, executed_by,
		status, statements, checksum, error_message
	FROM %s.%s`, schemaName, HistoryTable)

	var args []any
	if tableFilter != "" {
		args = append(args, "%"+tableFilter+"%")
		query += fmt.Sprintf(" WHERE table_name ILIKE $%d", len(args))
	}
	query += " ORDER BY synced_at DESC, id DESC"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	r, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sync history: %w", err)
	}

	records := make([]HistoryRecord, 0, len(r.Rows))
	for _, row := range r.Rows {
		rec := HistoryRecord{
			ID:         toInt64(row["id"]),
			Table:      toString(row["table_name"]),
			Duration:   time.Duration(toInt64(row["duration_ms"])) * time.Millisecond,
			ExecutedBy: toString(row["executed_by"]),
			Status:     toString(row["status"]),
			Statements: toString(row["statements"]),
			Checksum:   toString(row["checksum"]),
			Error:      toString(row["error_message"]),
		}
		if ts, ok := row["synced_at"].(time.Time); ok {
			rec.SyncedAt = ts
		}
		records = append(records, rec)
	}
	return records, nil
}

func currentUser() string {
	u, err := user.Current()
	if err != nil {
		return "unknown"
	}
	return u.Username
}

func checksum(content string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(content)))
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	}
	return 0
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	}
	return ""
}
