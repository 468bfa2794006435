package orm

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/ridoystarlord/pqorm/runner"
	"github.com/ridoystarlord/pqorm/schema"
)

// DefaultPageSize is the List page size when none is given.
const DefaultPageSize = 20

// Repository is the record-level API of one declared table.
type Repository struct {
	orm   *ORM
	table *schema.Table

	// PrimaryKey is the column AutoID fills in.
	PrimaryKey string
	// AutoID assigns NewID() to records inserted without a primary key.
	AutoID bool
	// IDPrefix is prepended to generated IDs.
	IDPrefix string
	// NewID generates primary keys; dashless UUIDv7 by default.
	NewID func() string

	SelectFields []string
	PageSize     int
}

// NewRepository binds table to o. The table only needs a name for record
// access; Sync also needs its columns.
func NewRepository(o *ORM, table *schema.Table) *Repository {
	r := &Repository{
		orm:        o,
		table:      table,
		PrimaryKey: table.PrimaryKeyName(),
		AutoID:     true,
		PageSize:   DefaultPageSize,
	}
	r.NewID = r.makeID
	return r
}

func (r *Repository) Table() *schema.Table { return r.table }

// Model checks out a builder for the repository's table.
func (r *Repository) Model() *Builder {
	return r.orm.Model(r.table.Name, r.table.Schema)
}

func (r *Repository) makeID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return r.IDPrefix + strings.ReplaceAll(id.String(), "-", "")
}

func (r *Repository) assignID(record map[string]any) any {
	if _, ok := record[r.PrimaryKey]; !ok && r.AutoID {
		record[r.PrimaryKey] = r.NewID()
	}
	return record[r.PrimaryKey]
}

// Insert writes record and returns its primary key. A generated ID is also
// stored in record.
func (r *Repository) Insert(ctx context.Context, record map[string]any) (any, error) {
	id := r.assignID(record)
	res, err := r.Model().Insert(ctx, record)
	if err != nil {
		return nil, err
	}
	if res.RowCount <= 0 {
		return nil, ErrNoRowsAffected
	}
	return id, nil
}

// InsertAll writes records in one statement and returns their primary keys
// in order.
func (r *Repository) InsertAll(ctx context.Context, records []map[string]any) ([]any, error) {
	ids := make([]any, len(records))
	for i, rec := range records {
		ids[i] = r.assignID(rec)
	}
	res, err := r.Model().InsertAll(ctx, records)
	if err != nil {
		return nil, err
	}
	if res.RowCount <= 0 {
		return nil, ErrNoRowsAffected
	}
	return ids, nil
}

// Update sets data on the rows matching cond and returns how many changed.
func (r *Repository) Update(ctx context.Context, cond, data map[string]any) (int64, error) {
	res, err := r.Model().WhereMap(cond).Update(ctx, data)
	if err != nil {
		return 0, err
	}
	return res.RowCount, nil
}

// ListOptions selects a page of List results. A zero PageSize uses the
// repository page size from offset 0.
type ListOptions struct {
	PageSize int
	Offset   int
	Order    string
	Fields   []string
}

func (r *Repository) List(ctx context.Context, cond map[string]any, opts ListOptions) ([]map[string]any, error) {
	b := r.Model().WhereMap(cond)
	if opts.PageSize > 0 {
		b.Limit(opts.PageSize, opts.Offset)
	} else {
		b.Limit(r.PageSize, 0)
	}
	if opts.Order != "" {
		b.Order(opts.Order)
	}

	fields := opts.Fields
	if len(fields) == 0 {
		fields = r.SelectFields
	}
	res, err := b.Select(ctx, fields...)
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}

// Get returns the first row matching cond, or nil when there is none.
func (r *Repository) Get(ctx context.Context, cond map[string]any, fields ...string) (map[string]any, error) {
	if len(fields) == 0 {
		fields = r.SelectFields
	}
	res, err := r.Model().WhereMap(cond).Select(ctx, fields...)
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, nil
	}
	return res.Rows[0], nil
}

// Delete removes the rows matching cond. An empty cond deletes every row.
func (r *Repository) Delete(ctx context.Context, cond map[string]any) (int64, error) {
	res, err := r.Model().WhereMap(cond).Delete(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowCount, nil
}

func (r *Repository) Count(ctx context.Context, cond map[string]any) (int64, error) {
	return r.Model().WhereMap(cond).Count(ctx)
}

// RepoTxFunc is the body of a repository transaction. Setting out.Failed
// rolls the transaction back with out.ErrMsg.
type RepoTxFunc func(ctx context.Context, tx *Builder, repo *Repository, out *Outcome) error

// Transaction runs fn in a transaction whose builder starts bound to the
// repository's table.
func (r *Repository) Transaction(ctx context.Context, fn RepoTxFunc) (*TxResult, error) {
	var work TxFunc
	if fn != nil {
		work = func(ctx context.Context, tx *Builder) (any, error) {
			out := &Outcome{}
			if err := fn(ctx, tx.Model(r.table.Name, ""), r, out); err != nil {
				return nil, err
			}
			return out, nil
		}
	}
	return r.orm.Transaction(ctx, work, r.table.Schema)
}

func (r *Repository) synchronizer(opts []runner.Option) *runner.Synchronizer {
	base := []runner.Option{
		runner.WithSchema(r.orm.Schema()),
		runner.WithLogger(r.orm.Logger()),
	}
	return runner.New(r.orm.DB(), append(base, opts...)...)
}

// Sync brings the live table in line with the declaration, see
// runner.Synchronizer.
func (r *Repository) Sync(ctx context.Context, opts ...runner.Option) (*runner.Report, error) {
	return r.synchronizer(opts).Sync(ctx, r.table)
}

// CreateSchema creates the named schema if it does not exist.
func (r *Repository) CreateSchema(ctx context.Context, name string) error {
	return r.synchronizer(nil).CreateSchema(ctx, name)
}
