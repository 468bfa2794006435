package orm

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/ridoystarlord/pqorm/utils"
)

// Condition is one predicate of a WHERE clause.
type Condition interface {
	render() (string, error)
}

// Eq matches Column against a single value. A nil value renders IS NULL.
type Eq struct {
	Column string
	Value  any
}

// In matches Column against a list of values.
type In struct {
	Column string
	Values []any
}

// Op compares Column to Value with an arbitrary operator such as >= or LIKE.
type Op struct {
	Column   string
	Operator string
	Value    any
}

// Raw is a SQL fragment whose ? placeholders are replaced, in order, by the
// quoted arguments.
type Raw struct {
	Template string
	Args     []any
}

func (c Eq) render() (string, error) {
	if c.Value == nil {
		return c.Column + " IS NULL", nil
	}
	return c.Column + "=" + utils.Quote(c.Value), nil
}

func (c In) render() (string, error) {
	if len(c.Values) == 0 {
		return "", fmt.Errorf("%w: IN list for %s is empty", ErrArgument, c.Column)
	}
	quoted := make([]string, len(c.Values))
	for i, v := range c.Values {
		quoted[i] = utils.Quote(v)
	}
	return c.Column + " IN (" + strings.Join(quoted, ",") + ")", nil
}

func (c Op) render() (string, error) {
	if strings.TrimSpace(c.Operator) == "" {
		return "", fmt.Errorf("%w: missing operator for %s", ErrArgument, c.Column)
	}
	return c.Column + " " + c.Operator + " " + utils.Quote(c.Value), nil
}

func (c Raw) render() (string, error) {
	parts := strings.Split(c.Template, "?")
	if len(parts)-1 != len(c.Args) {
		return "", fmt.Errorf("%w: %q has %d placeholders but %d arguments",
			ErrArgument, c.Template, len(parts)-1, len(c.Args))
	}

	var b strings.Builder
	b.WriteString(parts[0])
	for i, arg := range c.Args {
		b.WriteString(utils.Quote(arg))
		b.WriteString(parts[i+1])
	}
	return b.String(), nil
}

// MapConditions converts a loosely typed condition map. Slices become In,
// nested maps become one Op per operator and everything else becomes Eq.
// Keys and operators are visited in sorted order.
func MapConditions(m map[string]any) []Condition {
	conds := make([]Condition, 0, len(m))
	for _, key := range sortedKeys(m) {
		switch v := m[key].(type) {
		case map[string]any:
			for _, op := range sortedKeys(v) {
				conds = append(conds, Op{Column: key, Operator: op, Value: v[op]})
			}
		case []byte:
			conds = append(conds, Eq{Column: key, Value: string(v)})
		default:
			if values, ok := asList(v); ok {
				conds = append(conds, In{Column: key, Values: values})
				continue
			}
			conds = append(conds, Eq{Column: key, Value: v})
		}
	}
	return conds
}

func asList(v any) ([]any, bool) {
	if list, ok := v.([]any); ok {
		return list, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	list := make([]any, rv.Len())
	for i := range list {
		list[i] = rv.Index(i).Interface()
	}
	return list, true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
