package orm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ridoystarlord/pqorm/database"
)

// DefaultMaxIdle bounds the number of idle builders kept for reuse.
const DefaultMaxIdle = 2048

const defaultSchema = "public"

// ORM hands out builders bound to a driver and keeps released ones for
// reuse. It is safe for concurrent use.
type ORM struct {
	logger  *slog.Logger
	maxIdle int

	mu     sync.Mutex
	db     database.Driver
	schema string
	idle   []*Builder
}

type Option func(*ORM)

// WithSchema sets the default schema, "public" otherwise.
func WithSchema(name string) Option {
	return func(o *ORM) {
		if name != "" {
			o.schema = name
		}
	}
}

// WithMaxIdle sets the idle pool capacity. Zero disables reuse.
func WithMaxIdle(n int) Option {
	return func(o *ORM) {
		if n >= 0 {
			o.maxIdle = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *ORM) {
		if l != nil {
			o.logger = l
		}
	}
}

func New(db database.Driver, opts ...Option) *ORM {
	o := &ORM{
		db:      db,
		schema:  defaultSchema,
		maxIdle: DefaultMaxIdle,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *ORM) DB() database.Driver {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.db
}

// SetDB swaps the driver used by builders handed out from now on.
func (o *ORM) SetDB(db database.Driver) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.db = db
}

func (o *ORM) Schema() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.schema
}

func (o *ORM) SetSchema(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.schema = name
}

func (o *ORM) Logger() *slog.Logger { return o.logger }

// Model checks out a builder bound to table. An empty schema selects the
// ORM default. The builder returns to the pool on its next Exec.
func (o *ORM) Model(table, schema string) *Builder {
	o.mu.Lock()
	defer o.mu.Unlock()

	if schema == "" {
		schema = o.schema
	}
	var b *Builder
	if n := len(o.idle); n > 0 {
		b = o.idle[n-1]
		o.idle[n-1] = nil
		o.idle = o.idle[:n-1]
	} else {
		b = &Builder{orm: o}
	}
	b.db, b.table, b.schema = o.db, table, schema
	b.idle, b.fetchOnly = false, false
	return b
}

// Idle reports how many builders wait for reuse.
func (o *ORM) Idle() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.idle)
}

func (o *ORM) release(b *Builder) {
	b.Reset()

	o.mu.Lock()
	defer o.mu.Unlock()
	if b.idle || len(o.idle) >= o.maxIdle {
		return
	}
	b.idle = true
	o.idle = append(o.idle, b)
}

// Close closes the underlying driver.
func (o *ORM) Close() {
	if db := o.DB(); db != nil {
		db.Close()
	}
}

// Outcome lets transaction work report a logical failure without an error.
type Outcome struct {
	Failed bool
	ErrMsg string
}

// TxResult is the uniform result of a transaction. ErrMsg is empty on
// commit; Value and Command are only set on commit.
type TxResult struct {
	Value   any
	Command *database.Result
	ErrMsg  string
}

func (r *TxResult) OK() bool { return r.ErrMsg == "" }

// TxFunc is the body of a transaction. tx runs on the transaction's
// connection; rebind it with tx.Model for other tables.
type TxFunc func(ctx context.Context, tx *Builder) (any, error)

const defaultTxFailure = "Transaction failed."

// Transaction runs work between BEGIN and COMMIT on a dedicated connection.
// Errors from work, a returned *Outcome with Failed set, and driver errors
// roll back and are reported in TxResult.ErrMsg. Only a nil work is
// returned as an error.
func (o *ORM) Transaction(ctx context.Context, work TxFunc, schema string) (*TxResult, error) {
	if work == nil {
		return nil, fmt.Errorf("%w: transaction work is nil", ErrArgument)
	}
	if schema == "" {
		schema = o.Schema()
	}

	res := &TxResult{}
	conn, err := o.DB().Acquire(ctx)
	if err != nil {
		res.ErrMsg = err.Error()
		return res, nil
	}
	defer conn.Release()

	committed := false
	defer func() {
		if !committed {
			o.rollback(ctx, conn)
		}
	}()

	if _, err := conn.Query(ctx, "BEGIN"); err != nil {
		res.ErrMsg = err.Error()
		return res, nil
	}

	value, err := work(ctx, NewBuilder(conn, "", schema))
	if err == nil {
		err = outcomeError(value)
	}
	if err != nil {
		res.ErrMsg = err.Error()
		return res, nil
	}

	cmd, err := conn.Query(ctx, "COMMIT")
	if err != nil {
		res.ErrMsg = err.Error()
		return res, nil
	}
	committed = true
	res.Value, res.Command = value, cmd
	return res, nil
}

func (o *ORM) rollback(ctx context.Context, conn database.Conn) {
	if _, err := conn.Query(context.WithoutCancel(ctx), "ROLLBACK"); err != nil {
		o.logger.Warn("rollback failed", "error", err)
	}
}

func outcomeError(value any) error {
	out, ok := value.(*Outcome)
	if !ok || out == nil || !out.Failed {
		return nil
	}
	if out.ErrMsg == "" {
		return errors.New(defaultTxFailure)
	}
	return errors.New(out.ErrMsg)
}
