package diff

import (
	"strconv"
	"strings"

	"github.com/ridoystarlord/pqorm/introspect"
	"github.com/ridoystarlord/pqorm/schema"
)

// TypeMatches compares a declared type, already mapped to canonical,
// with the introspected column. Qualified types also compare their size
// (character types) or precision and scale (numeric).
func TypeMatches(declared, canonical string, col introspect.Column) bool {
	if col.DataType != canonical {
		return false
	}
	if !schema.TakesQualifier(canonical) {
		return true
	}

	q := schema.Qualifier(declared)
	switch canonical {
	case "numeric":
		if q == "" {
			return col.Precision == nil
		}
		parts := strings.SplitN(q, ",", 2)
		precision, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return false
		}
		var scale int64
		if len(parts) == 2 {
			if scale, err = strconv.ParseInt(parts[1], 10, 64); err != nil {
				return false
			}
		}
		return equalInt(col.Precision, precision) && equalInt(col.Scale, scale)

	default:
		if q == "" {
			// varchar is unbounded, char means char(1).
			if canonical == "character" {
				return equalInt(col.MaxLength, 1)
			}
			return col.MaxLength == nil
		}
		n, err := strconv.ParseInt(q, 10, 64)
		if err != nil {
			return false
		}
		return equalInt(col.MaxLength, n)
	}
}

// DefaultMatches compares a declared default with column_default.
func DefaultMatches(declared, value string, current *string) bool {
	if current == nil {
		return false
	}
	want := schema.CanonicalDefault(declared, value)
	if *current == want {
		return true
	}
	if schema.IsNumeric(declared) {
		a, okA := numericValue(want)
		b, okB := numericValue(*current)
		return okA && okB && a == b
	}
	return false
}

// numericValue parses 0, 0.00, '-1'::integer and (-1).
func numericValue(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "::"); i > 0 {
		s = s[:i]
	}
	s = strings.Trim(s, "'()")
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

func equalInt(p *int64, n int64) bool {
	return p != nil && *p == n
}
