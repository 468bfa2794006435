package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalType(t *testing.T) {
	tests := []struct {
		declared string
		want     string
		ok       bool
	}{
		{"varchar(40)", "character varying", true},
		{"VARCHAR(40)", "character varying", true},
		{"char(2)", "character", true},
		{"text", "text", true},
		{"decimal(10,2)", "numeric", true},
		{"numeric", "numeric", true},
		{"integer", "integer", true},
		{"bigint", "bigint", true},
		{"boolean", "boolean", true},
		{"bytea", "bytea", true},
		{"time", "time without time zone", true},
		{"timestamp", "timestamp without time zone", true},
		{"timestamptz", "timestamp with time zone", true},
		{"integer[]", "", false},
		{"jsonb", "", false},
		{"serial", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.declared, func(t *testing.T) {
			got, ok := CanonicalType(tt.declared)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQualifier(t *testing.T) {
	assert.Equal(t, "40", Qualifier("varchar(40)"))
	assert.Equal(t, "10,2", Qualifier("numeric(10, 2)"))
	assert.Equal(t, "", Qualifier("text"))
	assert.Equal(t, "", Qualifier("varchar(40"))
	assert.Equal(t, "varchar", BaseType(" VarChar(40) "))
	assert.Equal(t, "integer", BaseType("integer[]"))
}

func TestTakesQualifier(t *testing.T) {
	assert.True(t, TakesQualifier("character varying"))
	assert.True(t, TakesQualifier("character"))
	assert.True(t, TakesQualifier("numeric"))
	assert.False(t, TakesQualifier("text"))
	assert.False(t, TakesQualifier("integer"))
}

func TestAutoDefault(t *testing.T) {
	v, ok := AutoDefault("bigint")
	assert.True(t, ok)
	assert.Equal(t, "0", v)

	v, ok = AutoDefault("varchar(20)")
	assert.True(t, ok)
	assert.Equal(t, "", v)

	_, ok = AutoDefault("timestamp")
	assert.False(t, ok)
	_, ok = AutoDefault("text[]")
	assert.False(t, ok)
}

func TestEffectiveDefault(t *testing.T) {
	c := NewColumn("n", "integer")
	v, ok := c.EffectiveDefault()
	assert.True(t, ok)
	assert.Equal(t, "0", v)

	c.Default = Ptr("5")
	v, _ = c.EffectiveDefault()
	assert.Equal(t, "5", v)

	c = NewColumn("s", "text")
	c.NoDefault = true
	_, ok = c.EffectiveDefault()
	assert.False(t, ok)
}

func TestCanonicalDefault(t *testing.T) {
	tests := []struct {
		typ, value, want string
	}{
		{"boolean", "t", "true"},
		{"boolean", "TRUE", "true"},
		{"boolean", "f", "false"},
		{"varchar(40)", "", "''::character varying"},
		{"varchar(40)", "abc", "'abc'::character varying"},
		{"text", "it's", "'it''s'::text"},
		{"char(2)", "ab", "'ab'::bpchar"},
		{"date", "2024-01-01", "'2024-01-01'::date"},
		{"timestamp", "2024-01-01 00:00:00", "'2024-01-01 00:00:00'::timestamp without time zone"},
		{"integer", "0", "0"},
		{"integer", "-1", "'-1'::integer"},
		{"numeric(10,2)", "1.5", "1.5"},
		{"timestamptz", "@now()", "now()"},
		{"jsonb", "{}", "{}"},
	}
	for _, tt := range tests {
		t.Run(tt.typ+"/"+tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalDefault(tt.typ, tt.value))
		})
	}
}
