package cmd

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/fatih/color"
)

var sqlLexer = func() chroma.Lexer {
	l := lexers.Get("PostgreSQL")
	if l == nil {
		l = lexers.Get("SQL")
	}
	if l == nil {
		l = lexers.Fallback
	}
	return chroma.Coalesce(l)
}()

// highlightSQL colours sql for a 256-colour terminal. Output is left plain
// when colours are disabled (NO_COLOR, not a TTY).
func highlightSQL(sql string) string {
	if color.NoColor {
		return sql
	}
	iter, err := sqlLexer.Tokenise(nil, sql)
	if err != nil {
		return sql
	}
	var b strings.Builder
	if err := formatters.TTY256.Format(&b, styles.Get("monokai"), iter); err != nil {
		return sql
	}
	return b.String()
}

func printSQL(indent, sql string) {
	fmt.Println(indent + highlightSQL(sql))
}
