package schema

import (
	"fmt"
	"reflect"
	"strings"
)

// Namer lets a struct choose its table name for FromStruct.
type Namer interface {
	TableName() string
}

// FromStruct builds a table declaration from the `db` tags of a struct:
//
//	type User struct {
//		ID       string `db:"id,type:varchar(20),primary"`
//		Username string `db:"username,type:varchar(40),unique"`
//		Note     string `db:"note,type:text,null,nodefault"`
//	}
//
// Recognised options: type:, default:, old:, null, typelock, nodefault,
// primary, index, unique. Fields without a tag or tagged "-" are skipped.
func FromStruct(v any) (*Table, error) {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("expected a struct, got %T", v)}
	}

	table := &Table{Name: strings.ToLower(t.Name())}
	if n, ok := v.(Namer); ok {
		table.Name = n.TableName()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		col, flags, err := parseDBTag(field.Name, tag)
		if err != nil {
			return nil, fmt.Errorf("error parsing tag on %s.%s: %w", t.Name(), field.Name, err)
		}
		table.Columns = append(table.Columns, col)
		if flags.primary {
			table.PrimaryKey = col.Name
		}
		if flags.index {
			table.Index = append(table.Index, col.Name)
		}
		if flags.unique {
			table.Unique = append(table.Unique, col.Name)
		}
	}

	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

type tagFlags struct {
	primary, index, unique bool
}

func parseDBTag(fieldName, tag string) (Column, tagFlags, error) {
	col := NewColumn(strings.ToLower(fieldName), "")
	var flags tagFlags

	for i, part := range splitTag(tag) {
		part = strings.TrimSpace(part)
		switch {
		case part == "primary":
			flags.primary = true
		case part == "index":
			flags.index = true
		case part == "unique":
			flags.unique = true
		case part == "null":
			col.NotNull = false
		case part == "typelock":
			col.TypeLock = true
		case part == "nodefault":
			col.NoDefault = true
		case strings.HasPrefix(part, "type:"):
			col.Type = strings.TrimPrefix(part, "type:")
		case strings.HasPrefix(part, "default:"):
			col.Default = Ptr(strings.TrimPrefix(part, "default:"))
		case strings.HasPrefix(part, "old:"):
			col.OldName = strings.TrimPrefix(part, "old:")
		case i == 0:
			if part != "" {
				col.Name = part
			}
		default:
			return col, flags, fmt.Errorf("unknown option %q", part)
		}
	}

	return col, flags, nil
}

// splitTag splits on commas outside parentheses so that
// "type:numeric(10,2)" stays one option.
func splitTag(tag string) []string {
	var parts []string
	depth, start := 0, 0
	for i, r := range tag {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, tag[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, tag[start:])
}
