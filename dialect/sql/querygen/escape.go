package querygen

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Literals describes how a dialect renders literal values.
type Literals struct {
	// String returns s as a complete, quoted literal.
	String func(s string) string
	// Bytes returns b as a binary literal.
	Bytes       func(b []byte) string
	True, False string
	// TimeLayout formats time.Time values before quoting.
	TimeLayout string
}

// QuoteString doubles single quotes. Dialects that treat backslash as an
// escape character must use QuoteStringBackslash instead.
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(strings.ReplaceAll(s, "\x00", ""), "'", "''") + "'"
}

// QuoteStringBackslash escapes backslashes, then doubles single quotes.
func QuoteStringBackslash(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// HexBytes renders X'..'.
func HexBytes(b []byte) string {
	return "X'" + hex.EncodeToString(b) + "'"
}

// QuoteIdent wraps name in q, doubling any embedded q.
func QuoteIdent(q, name string) string {
	return q + strings.ReplaceAll(name, q, q+q) + q
}

// DefaultLiterals are ANSI literals.
var DefaultLiterals = Literals{
	String:     QuoteString,
	Bytes:      HexBytes,
	True:       "TRUE",
	False:      "FALSE",
	TimeLayout: "2006-01-02 15:04:05.999999",
}

func (l Literals) escape(v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return "NULL", nil
	case bool:
		if v {
			return l.True, nil
		}
		return l.False, nil
	case string:
		return l.String(v), nil
	case []byte:
		if v == nil {
			return "NULL", nil
		}
		return l.Bytes(v), nil
	case int:
		return strconv.FormatInt(int64(v), 10), nil
	case int8:
		return strconv.FormatInt(int64(v), 10), nil
	case int16:
		return strconv.FormatInt(int64(v), 10), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float32:
		return formatFloat(float64(v), 32)
	case float64:
		return formatFloat(v, 64)
	case time.Time:
		return l.String(v.Format(l.TimeLayout)), nil
	case []string:
		return escapeList(l, v)
	case []any:
		return escapeList(l, v)
	case fmt.Stringer:
		return l.String(v.String()), nil
	default:
		return "", fmt.Errorf("querygen: cannot escape value of type %T", v)
	}
}

func formatFloat(f float64, bits int) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("querygen: cannot escape non-finite float %v", f)
	}
	return strconv.FormatFloat(f, 'g', -1, bits), nil
}

func escapeList[T any](l Literals, vs []T) (string, error) {
	parts := make([]string, len(vs))
	for i, v := range vs {
		s, err := l.escape(v)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return "(" + strings.Join(parts, ", ") + ")", nil
}

// Operator is a dialect independent comparison operator.
type Operator string

// Operators.
const (
	Eq         Operator = "eq"
	Ne         Operator = "ne"
	Like       Operator = "like"
	NotLike    Operator = "notLike"
	ILike      Operator = "iLike"
	NotILike   Operator = "notILike"
	Regexp     Operator = "regexp"
	NotRegexp  Operator = "notRegexp"
	IRegexp    Operator = "iRegexp"
	NotIRegexp Operator = "notIRegexp"
)

// OperatorTable maps operators to dialect keywords. It is built once and
// never mutated.
type OperatorTable struct {
	m map[Operator]string
}

// BaseOperators are supported by every dialect.
var BaseOperators = map[Operator]string{
	Eq:      "=",
	Ne:      "<>",
	Like:    "LIKE",
	NotLike: "NOT LIKE",
}

// NewOperatorTable returns BaseOperators extended (or overridden) by
// overrides. The input maps are copied.
func NewOperatorTable(overrides map[Operator]string) OperatorTable {
	m := make(map[Operator]string, len(BaseOperators)+len(overrides))
	for k, v := range BaseOperators {
		m[k] = v
	}
	for k, v := range overrides {
		m[k] = v
	}
	return OperatorTable{m: m}
}

// Lookup returns the keyword for op.
func (t OperatorTable) Lookup(op Operator) (string, bool) {
	s, ok := t.m[op]
	return s, ok
}

// WithLowerVariants returns names followed by their lower-cased forms,
// for catalogs that compare schema names case-sensitively.
func WithLowerVariants(names ...string) []string {
	lower := cases.Lower(language.Und)
	out := make([]string, 0, 2*len(names))
	out = append(out, names...)
	for _, n := range names {
		if l := lower.String(n); l != n {
			out = append(out, l)
		}
	}
	return out
}

// Upper folds an unquoted identifier the way upper-casing catalogs store it.
func Upper(name string) string {
	return cases.Upper(language.Und).String(name)
}
