package orm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/pqorm/database/dbtest"
)

// render runs a terminal operation in fetch-only mode and returns its SQL.
func render(t *testing.T, op func(b *Builder) (string, error), build func(b *Builder)) string {
	t.Helper()
	b := NewBuilder(dbtest.New(), "users", "public").Fetch()
	if build != nil {
		build(b)
	}
	sql, err := op(b)
	require.NoError(t, err)
	return sql
}

func selectSQL(fields ...string) func(b *Builder) (string, error) {
	return func(b *Builder) (string, error) {
		res, err := b.Select(context.Background(), fields...)
		if err != nil {
			return "", err
		}
		return res.SQL, nil
	}
}

func TestRenderSelect(t *testing.T) {
	tests := []struct {
		name   string
		fields []string
		build  func(b *Builder)
		want   string
	}{
		{
			name: "empty",
			want: "SELECT * FROM public.users  ;",
		},
		{
			name: "where map in sorted key order",
			build: func(b *Builder) {
				b.WhereMap(map[string]any{"name": "bob", "age": map[string]any{">": 18}})
			},
			want: "SELECT * FROM public.users WHERE age > 18 AND name=$$bob$$ ;",
		},
		{
			name: "where calls accumulate",
			build: func(b *Builder) {
				b.Where(Eq{Column: "a", Value: 1}).WhereSQL("b > ? OR c = ?", 2, "x")
			},
			want: "SELECT * FROM public.users WHERE a=1 AND b > 2 OR c = $$x$$ ;",
		},
		{
			name: "limit replaces",
			build: func(b *Builder) {
				b.Limit(10, 5).Limit(20, 0)
			},
			want: "SELECT * FROM public.users  LIMIT 20 OFFSET 0;",
		},
		{
			name:   "joins accumulate in call order",
			fields: []string{"users.id", "orders.total"},
			build: func(b *Builder) {
				b.Join("orders", "orders.user_id=users.id", "").LeftJoin("billing.cards", "cards.user_id=users.id")
			},
			want: "SELECT users.id,orders.total FROM public.users INNER JOIN public.orders ON orders.user_id=users.id " +
				"LEFT JOIN billing.cards ON cards.user_id=users.id  ;",
		},
		{
			name:   "group order limit",
			fields: []string{"dept", "COUNT(*)"},
			build: func(b *Builder) {
				b.Group("dept").Order("dept DESC").Order("dept").Limit(5, 0)
			},
			want: "SELECT dept,COUNT(*) FROM public.users  GROUP BY dept ORDER BY dept LIMIT 5 OFFSET 0;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, render(t, selectSQL(tt.fields...), tt.build))
		})
	}
}

func TestRenderWrites(t *testing.T) {
	ctx := context.Background()

	got := render(t, func(b *Builder) (string, error) {
		res, err := b.Delete(ctx)
		return res.SQL, err
	}, nil)
	assert.Equal(t, "DELETE FROM public.users;", got)

	got = render(t, func(b *Builder) (string, error) {
		res, err := b.WhereMap(map[string]any{"id": []string{"a", "b"}}).Delete(ctx)
		return res.SQL, err
	}, nil)
	assert.Equal(t, "DELETE FROM public.users WHERE id IN ($$a$$,$$b$$);", got)

	got = render(t, func(b *Builder) (string, error) {
		res, err := b.Where(Eq{Column: "id", Value: "u1"}).Update(ctx, map[string]any{"b": 2, "a": "x"})
		return res.SQL, err
	}, nil)
	assert.Equal(t, "UPDATE public.users SET a=$$x$$,b=2 WHERE id=$$u1$$;", got)

	got = render(t, func(b *Builder) (string, error) {
		res, err := b.UpdateSQL(ctx, "visits=visits+1")
		return res.SQL, err
	}, nil)
	assert.Equal(t, "UPDATE public.users SET visits=visits+1;", got)

	got = render(t, func(b *Builder) (string, error) {
		res, err := b.Insert(ctx, map[string]any{"name": "bob", "age": 3, "created": "@now()"})
		return res.SQL, err
	}, nil)
	assert.Equal(t, "INSERT INTO public.users (age,created,name) VALUES (3,now(),$$bob$$);", got)

	got = render(t, func(b *Builder) (string, error) {
		res, err := b.InsertAll(ctx, []map[string]any{
			{"id": 1, "name": "a"},
			{"name": "b", "id": 2},
		})
		return res.SQL, err
	}, nil)
	assert.Equal(t, "INSERT INTO public.users (id,name) VALUES (1,$$a$$),(2,$$b$$);", got)
}

func TestRenderWithoutCommand(t *testing.T) {
	b := NewBuilder(dbtest.New(), "users", "public")
	b.Where(Eq{Column: "a", Value: 1})
	assert.Equal(t, "", b.Render())
}

func TestExecResetsStatement(t *testing.T) {
	ctx := context.Background()
	b := NewBuilder(dbtest.New(), "users", "public").Fetch()

	_, err := b.Where(Eq{Column: "a", Value: 1}).Group("a").Order("a").Limit(1, 2).Select(ctx)
	require.NoError(t, err)

	res, err := b.Select(ctx)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM public.users  ;", res.SQL)
}

func TestArgumentErrorsSurfaceFromExec(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		run  func(b *Builder) error
	}{
		{"placeholder mismatch", func(b *Builder) error {
			_, err := b.WhereSQL("a = ? AND b = ?", 1).Select(ctx)
			return err
		}},
		{"empty in list", func(b *Builder) error {
			_, err := b.Where(In{Column: "id"}).Select(ctx)
			return err
		}},
		{"empty insert", func(b *Builder) error {
			_, err := b.Insert(ctx, map[string]any{})
			return err
		}},
		{"empty insert all", func(b *Builder) error {
			_, err := b.InsertAll(ctx, nil)
			return err
		}},
		{"non-uniform insert all", func(b *Builder) error {
			_, err := b.InsertAll(ctx, []map[string]any{{"a": 1}, {"b": 2}})
			return err
		}},
		{"empty update", func(b *Builder) error {
			_, err := b.Update(ctx, nil)
			return err
		}},
		{"no command", func(b *Builder) error {
			_, err := b.Exec(ctx)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := dbtest.New()
			err := tt.run(NewBuilder(rec, "users", "public"))
			require.ErrorIs(t, err, ErrArgument)
			assert.Empty(t, rec.Statements())
		})
	}
}

func TestArgumentErrorIsClearedByExec(t *testing.T) {
	ctx := context.Background()
	b := NewBuilder(dbtest.New(), "users", "public").Fetch()

	_, err := b.WhereSQL("a = ?").Select(ctx)
	require.ErrorIs(t, err, ErrArgument)

	res, err := b.Select(ctx)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM public.users  ;", res.SQL)
}

func TestExecWrapsDriverErrors(t *testing.T) {
	boom := errors.New("relation does not exist")
	rec := dbtest.New().Fail("public.users", boom)

	_, err := NewBuilder(rec, "users", "public").Select(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "select public.users")
}

func TestCount(t *testing.T) {
	tests := []struct {
		name  string
		total any
	}{
		{"int64", int64(42)},
		{"string", "42"},
		{"bytes", []byte("42")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := dbtest.New().On("COUNT(*)", dbtest.Rows(map[string]any{"total": tt.total}))
			n, err := NewBuilder(rec, "users", "public").Where(Eq{Column: "active", Value: true}).Count(context.Background())
			require.NoError(t, err)
			assert.Equal(t, int64(42), n)
			assert.Equal(t, []string{"SELECT COUNT(*) as total FROM public.users WHERE active=true ;"}, rec.Statements())
		})
	}
}

func TestModelRebinds(t *testing.T) {
	b := NewBuilder(dbtest.New(), "users", "public").Fetch()
	res, err := b.Model("orders", "shop").Select(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM shop.orders  ;", res.SQL)

	res, err = b.Model("items", "").Select(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM shop.items  ;", res.SQL)
}

func TestInsertRendersTimestamps(t *testing.T) {
	at := time.Date(2026, 10, 16, 13, 4, 2, 297711638, time.UTC)
	b := NewBuilder(dbtest.New(), "events", "public").Fetch()
	res, err := b.Insert(context.Background(), map[string]any{"at": at, "payload": []byte{0xde, 0xad}})
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO public.events (at,payload) VALUES ($$2026-10-16T13:04:02.297711638Z$$,'\xdead'::bytea);`, res.SQL)

	res, err = b.Where(Eq{Column: "at", Value: time.Now()}).Select(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, res.SQL, "m=")
}
