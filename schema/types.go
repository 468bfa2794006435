package schema

import (
	"strings"

	"github.com/ridoystarlord/pqorm/utils"
)

// canonicalTypes maps the declared vocabulary to information_schema
// data_type names.
var canonicalTypes = map[string]string{
	"varchar": "character varying",
	"char":    "character",
	"text":    "text",

	"decimal":  "numeric",
	"numeric":  "numeric",
	"integer":  "integer",
	"smallint": "smallint",
	"bigint":   "bigint",

	"boolean": "boolean",

	"bytea": "bytea",

	"date":        "date",
	"time":        "time without time zone",
	"timestamp":   "timestamp without time zone",
	"timestamptz": "timestamp with time zone",
}

// Canonical types compared together with their (size) or (precision,scale).
var qualifiedTypes = map[string]bool{
	"character varying": true,
	"character":         true,
	"numeric":           true,
}

var numericTypes = map[string]bool{
	"smallint": true, "integer": true, "bigint": true, "decimal": true, "numeric": true,
}

var stringTypes = map[string]bool{
	"char": true, "varchar": true, "text": true,
}

// Defaults of these types are stored with an explicit cast. The value is
// the type name Postgres prints in column_default.
var castDefaults = map[string]string{
	"varchar":     "character varying",
	"char":        "bpchar",
	"text":        "text",
	"bytea":       "bytea",
	"date":        "date",
	"time":        "time without time zone",
	"timestamp":   "timestamp without time zone",
	"timestamptz": "timestamp with time zone",
}

// BaseType strips the size suffix and array brackets: "VARCHAR(40)" is
// "varchar".
func BaseType(declared string) string {
	t := strings.ToLower(strings.TrimSpace(declared))
	if i := strings.IndexAny(t, "(["); i > 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}

// Qualifier returns the bracket contents without spaces: "numeric(10, 2)"
// gives "10,2", "text" gives "".
func Qualifier(declared string) string {
	open := strings.Index(declared, "(")
	if open < 0 {
		return ""
	}
	end := strings.Index(declared[open:], ")")
	if end < 0 {
		return ""
	}
	return strings.ReplaceAll(declared[open+1:open+end], " ", "")
}

// IsArray reports whether the declared type is an array type.
func IsArray(declared string) bool {
	return strings.Contains(declared, "[")
}

// CanonicalType maps a declared type to the engine's type name. ok is false
// for types outside the vocabulary, and for arrays, whose data_type is
// reported as ARRAY.
func CanonicalType(declared string) (string, bool) {
	if IsArray(declared) {
		return "", false
	}
	t, ok := canonicalTypes[BaseType(declared)]
	return t, ok
}

// TakesQualifier reports whether a canonical type is compared together
// with its bracketed size or precision.
func TakesQualifier(canonical string) bool {
	return qualifiedTypes[canonical]
}

// IsNumeric reports whether the declared type belongs to the numeric family.
func IsNumeric(declared string) bool {
	return !IsArray(declared) && numericTypes[BaseType(declared)]
}

// IsString reports whether the declared type belongs to the string family.
func IsString(declared string) bool {
	return !IsArray(declared) && stringTypes[BaseType(declared)]
}

// AutoDefault is the default given to new columns that declare none: 0 for
// numbers, '' for strings.
func AutoDefault(declared string) (string, bool) {
	switch {
	case IsNumeric(declared):
		return "0", true
	case IsString(declared):
		return "", true
	}
	return "", false
}

// EffectiveDefault is the default used when the column is created: the
// declared one, else the automatic one unless NoDefault is set.
func (c Column) EffectiveDefault() (string, bool) {
	if c.Default != nil {
		return *c.Default, true
	}
	if c.NoDefault {
		return "", false
	}
	return AutoDefault(c.Type)
}

// CanonicalDefault renders a declared default the way Postgres reports it
// in information_schema.columns.column_default.
func CanonicalDefault(declared, value string) string {
	if strings.HasPrefix(value, utils.RawPrefix) {
		return strings.TrimPrefix(value, utils.RawPrefix)
	}

	base := BaseType(declared)
	if base == "boolean" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "t", "true", "y", "yes", "on", "1":
			return "true"
		}
		return "false"
	}

	if cast, ok := castDefaults[base]; ok {
		return "'" + strings.ReplaceAll(value, "'", "''") + "'::" + cast
	}

	// Negative numeric constants are printed with a cast.
	if numericTypes[base] && strings.HasPrefix(value, "-") {
		return "'" + value + "'::" + canonicalTypes[base]
	}
	return value
}
