// Package runner brings live PostgreSQL tables in line with their
// declarations. It is additive only: it creates tables, columns and
// indexes, renames columns, and widens types, defaults and NOT NULL, but
// never drops anything.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ridoystarlord/pqorm/database"
	"github.com/ridoystarlord/pqorm/diff"
	"github.com/ridoystarlord/pqorm/generator"
	"github.com/ridoystarlord/pqorm/introspect"
	"github.com/ridoystarlord/pqorm/schema"
)

// Synchronizer runs sync passes against one database.
type Synchronizer struct {
	db     database.Querier
	schema string
	logger *slog.Logger
	dryRun bool
	debug  bool
}

type Option func(*Synchronizer)

// WithSchema sets the schema used for tables that do not name one.
func WithSchema(name string) Option {
	return func(s *Synchronizer) {
		if name != "" {
			s.schema = name
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Synchronizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDryRun plans and records statements without executing any DDL.
// Catalog reads still run.
func WithDryRun(on bool) Option {
	return func(s *Synchronizer) { s.dryRun = on }
}

// WithDebug logs every statement at info level instead of debug.
func WithDebug(on bool) Option {
	return func(s *Synchronizer) { s.debug = on }
}

func New(db database.Querier, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		db:     db,
		schema: "public",
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Failure is a statement that did not apply. The pass carried on without it.
type Failure struct {
	Column    string
	Statement string
	Err       error
}

// Report describes one table's pass.
type Report struct {
	Table   string
	Schema  string
	Created bool
	// Statements lists the DDL that ran, or would run in dry-run mode.
	Statements  []string
	Failures    []Failure
	Diagnostics []string
	// Elapsed is the wall time of this table's pass.
	Elapsed time.Duration
}

// Changed reports whether the pass issued any DDL.
func (r *Report) Changed() bool { return len(r.Statements) > 0 }

// TypeAlterationError is an ALTER COLUMN ... TYPE the server rejected,
// typically because existing data cannot be cast.
type TypeAlterationError struct {
	Table     string
	Column    string
	Statement string
	Err       error
}

func (e *TypeAlterationError) Error() string {
	return fmt.Sprintf("altering type of %s.%s: %v", e.Table, e.Column, e.Err)
}

func (e *TypeAlterationError) Unwrap() error { return e.Err }

func (s *Synchronizer) schemaFor(t *schema.Table) string {
	if t.Schema != "" {
		return t.Schema
	}
	return s.schema
}

// Sync runs one pass for t. An invalid declaration is returned as a
// *schema.ConfigurationError before any statement is sent. Failures of
// single columns or indexes are collected in the report; catalog reads and
// CREATE TABLE abort the pass.
func (s *Synchronizer) Sync(ctx context.Context, t *schema.Table) (*Report, error) {
	if err := t.Validate(); err != nil {
		s.logger.Error("invalid table declaration", "error", err)
		return nil, err
	}

	schemaName := s.schemaFor(t)
	report := &Report{Table: t.Name, Schema: schemaName}
	start := time.Now()
	defer func() { report.Elapsed = time.Since(start) }()
	log := s.logger.With("table", schemaName+"."+t.Name)

	exists, err := introspect.TableExists(ctx, s.db, schemaName, t.Name)
	if err != nil {
		return report, err
	}

	indexes := map[string]bool{}
	if !exists {
		stmt, err := generator.Statement(schemaName, diff.CreateTablePlan(t))
		if err != nil {
			return report, err
		}
		if err := s.exec(ctx, log, report, stmt); err != nil {
			return report, fmt.Errorf("creating table %s.%s: %w", schemaName, t.Name, err)
		}
		report.Created = true
	} else {
		existing, err := introspect.Columns(ctx, s.db, schemaName, t.Name)
		if err != nil {
			return report, err
		}
		ops, diags := diff.Columns(t, existing)
		s.diagnose(log, report, diags)
		if err := s.apply(ctx, log, report, ops); err != nil {
			return report, err
		}

		if indexes, err = introspect.IndexNames(ctx, s.db, schemaName, t.Name); err != nil {
			return report, err
		}
	}

	ops, diags := diff.Indexes(t, indexes)
	s.diagnose(log, report, diags)
	if err := s.apply(ctx, log, report, ops); err != nil {
		return report, err
	}

	log.Info("table synchronized",
		"created", report.Created,
		"statements", len(report.Statements),
		"failures", len(report.Failures),
		"dry_run", s.dryRun)
	return report, nil
}

func (s *Synchronizer) diagnose(log *slog.Logger, report *Report, diags []string) {
	for _, d := range diags {
		log.Warn(d)
	}
	report.Diagnostics = append(report.Diagnostics, diags...)
}

// apply runs ops in order. Once a statement for a column fails, the
// remaining ops for that column are skipped.
func (s *Synchronizer) apply(ctx context.Context, log *slog.Logger, report *Report, ops []diff.Operation) error {
	broken := map[string]bool{}
	for _, op := range ops {
		if op.Column != "" && broken[op.Column] {
			continue
		}

		stmt, err := generator.Statement(report.Schema, op)
		if err == nil {
			err = s.exec(ctx, log, report, stmt)
		}
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if op.Type == diff.AlterType {
			err = &TypeAlterationError{Table: report.Table, Column: op.Column, Statement: stmt, Err: err}
		}
		log.Error("statement failed", "column", op.Column, "sql", stmt, "error", err)
		report.Failures = append(report.Failures, Failure{Column: op.Column, Statement: stmt, Err: err})
		if op.Column != "" {
			broken[op.Column] = true
		}
	}
	return nil
}

func (s *Synchronizer) exec(ctx context.Context, log *slog.Logger, report *Report, stmt string) error {
	level := slog.LevelDebug
	if s.debug {
		level = slog.LevelInfo
	}
	log.Log(ctx, level, "ddl", "sql", stmt, "dry_run", s.dryRun)

	if !s.dryRun {
		if _, err := s.db.Query(ctx, stmt); err != nil {
			return err
		}
	}
	report.Statements = append(report.Statements, stmt)
	return nil
}

// SyncAll syncs tables concurrently, at most workers at a time. Every
// declaration is validated before any statement is sent. The reports are
// in table order; a table that aborted has a partial report or nil.
func (s *Synchronizer) SyncAll(ctx context.Context, tables []*schema.Table, workers int) ([]*Report, error) {
	for _, t := range tables {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	if workers < 1 {
		workers = 1
	}

	reports := make([]*Report, len(tables))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, t := range tables {
		i, t := i, t
		g.Go(func() error {
			report, err := s.Sync(ctx, t)
			reports[i] = report
			if err != nil {
				return fmt.Errorf("sync %s: %w", t.Name, err)
			}
			return nil
		})
	}
	return reports, g.Wait()
}

// CreateSchema creates the named schema if it does not exist.
func (s *Synchronizer) CreateSchema(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("create schema: empty name")
	}
	report := &Report{Schema: name}
	if err := s.exec(ctx, s.logger, report, generator.CreateSchema(name)); err != nil {
		return fmt.Errorf("create schema %s: %w", name, err)
	}
	return nil
}
