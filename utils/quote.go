package utils

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// RawPrefix marks a string value that must be embedded without quoting.
const RawPrefix = "@"

// Quote renders v as an inline SQL literal. Strings are wrapped in $$
// dollar quotes, unless they start with RawPrefix, in which case the prefix
// is stripped and the rest is emitted verbatim (column references, function
// calls). Times are written as RFC 3339 with nanoseconds and byte slices as
// bytea hex literals. Other values are rendered with their default textual
// form.
//
// Quote is not a sanitizer. Callers must never route untrusted input through
// the raw prefix, and a string containing "$$" cannot be dollar-quoted
// safely; pass such values as bind parameters instead.
func Quote(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		if strings.HasPrefix(x, RawPrefix) {
			return x[len(RawPrefix):]
		}
		return "$$" + x + "$$"
	case time.Time:
		return "$$" + x.Format(time.RFC3339Nano) + "$$"
	case []byte:
		return `'\x` + hex.EncodeToString(x) + `'::bytea`
	case fmt.Stringer:
		return Quote(x.String())
	default:
		return fmt.Sprint(x)
	}
}

// Raw marks expr for verbatim embedding by Quote.
func Raw(expr string) string {
	return RawPrefix + expr
}
