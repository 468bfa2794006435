package orm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConditionRender(t *testing.T) {
	tests := []struct {
		name string
		cond Condition
		want string
	}{
		{"eq string", Eq{Column: "name", Value: "bob"}, "name=$$bob$$"},
		{"eq number", Eq{Column: "age", Value: 3}, "age=3"},
		{"eq raw", Eq{Column: "updated", Value: "@created"}, "updated=created"},
		{"eq nil", Eq{Column: "deleted_at"}, "deleted_at IS NULL"},
		{"in", In{Column: "id", Values: []any{1, "a"}}, "id IN (1,$$a$$)"},
		{"op", Op{Column: "age", Operator: ">=", Value: 18}, "age >= 18"},
		{"raw", Raw{Template: "a = ? OR b LIKE ?", Args: []any{1, "x%"}}, "a = 1 OR b LIKE $$x%$$"},
		{"raw verbatim", Raw{Template: "a IS NOT NULL"}, "a IS NOT NULL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cond.render()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConditionRenderErrors(t *testing.T) {
	for _, c := range []Condition{
		In{Column: "id"},
		Op{Column: "age", Value: 1},
		Raw{Template: "a = ?"},
		Raw{Template: "a = 1", Args: []any{2}},
	} {
		_, err := c.render()
		assert.ErrorIs(t, err, ErrArgument, "%#v", c)
	}
}

func TestMapConditions(t *testing.T) {
	conds := MapConditions(map[string]any{
		"status": []string{"new", "paid"},
		"age":    map[string]any{"<": 65, ">": 18},
		"name":   "bob",
		"data":   []byte("raw"),
	})

	require.Len(t, conds, 5)
	assert.Equal(t, Op{Column: "age", Operator: "<", Value: 65}, conds[0])
	assert.Equal(t, Op{Column: "age", Operator: ">", Value: 18}, conds[1])
	assert.Equal(t, Eq{Column: "data", Value: "raw"}, conds[2])
	assert.Equal(t, Eq{Column: "name", Value: "bob"}, conds[3])
	assert.Equal(t, In{Column: "status", Values: []any{"new", "paid"}}, conds[4])
}
