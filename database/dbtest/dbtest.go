// Package dbtest provides a scripted, recording database.Driver for tests.
package dbtest

import (
	"context"
	"strings"
	"sync"

	"github.com/ridoystarlord/pqorm/database"
)

// Recorder records every statement it receives and answers with the first
// scripted response whose substring occurs in the statement. Unmatched
// statements succeed with an empty result.
type Recorder struct {
	mu         sync.Mutex
	statements []string
	args       [][]any
	responses  []response

	// AcquireErr makes Acquire fail.
	AcquireErr error
	acquired   int
	released   int
}

type response struct {
	contains string
	result   *database.Result
	err      error
}

// New returns an empty Recorder.
func New() *Recorder {
	return &Recorder{}
}

// On answers statements containing substr with result.
func (r *Recorder) On(substr string, result *database.Result) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, response{contains: substr, result: result})
	return r
}

// Fail makes statements containing substr return err.
func (r *Recorder) Fail(substr string, err error) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, response{contains: substr, err: err})
	return r
}

// Rows builds a result holding rows.
func Rows(rows ...map[string]any) *database.Result {
	return &database.Result{Rows: rows, RowCount: int64(len(rows))}
}

// Affected builds a result reporting n touched rows.
func Affected(n int64) *database.Result {
	return &database.Result{RowCount: n}
}

func (r *Recorder) Query(ctx context.Context, sql string, args ...any) (*database.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.statements = append(r.statements, sql)
	r.args = append(r.args, args)

	for _, resp := range r.responses {
		if !strings.Contains(sql, resp.contains) {
			continue
		}
		if resp.err != nil {
			return nil, resp.err
		}
		res := *resp.result
		res.SQL = sql
		return &res, nil
	}
	return &database.Result{SQL: sql}, nil
}

func (r *Recorder) Acquire(ctx context.Context) (database.Conn, error) {
	if r.AcquireErr != nil {
		return nil, r.AcquireErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.acquired++
	r.mu.Unlock()
	return &conn{r: r}, nil
}

func (r *Recorder) Close() {}

// Statements returns every statement received so far, in order.
func (r *Recorder) Statements() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.statements...)
}

// Args returns the bind parameters of the i-th statement.
func (r *Recorder) Args(i int) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.args[i]
}

// DDL returns the received statements that are not catalog reads.
func (r *Recorder) DDL() []string {
	var out []string
	for _, s := range r.Statements() {
		if !strings.HasPrefix(strings.TrimSpace(s), "SELECT") {
			out = append(out, s)
		}
	}
	return out
}

// Acquired and Released count dedicated connection check-outs and releases.
func (r *Recorder) Acquired() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acquired
}

func (r *Recorder) Released() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.released
}

type conn struct {
	r *Recorder
}

func (c *conn) Query(ctx context.Context, sql string, args ...any) (*database.Result, error) {
	return c.r.Query(ctx, sql, args...)
}

func (c *conn) Release() {
	c.r.mu.Lock()
	defer c.r.mu.Unlock()
	c.r.released++
}
