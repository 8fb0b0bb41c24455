package querygen

import (
	"fmt"
	"strings"
)

// Join assembles SQL fragments into one statement. A fragment is a string,
// nil, or a slice of fragments ([]string or []any) which is flattened.
// Empty fragments are dropped, the rest are trimmed and joined with a
// single space. No space is inserted before ",", ";" or ")" nor after "(",
// and a run of trailing semicolons collapses into one.
func Join(fragments ...any) string {
	var parts []string
	for _, f := range fragments {
		parts = appendFragment(parts, f)
	}
	var sb strings.Builder
	for _, p := range parts {
		if sb.Len() > 0 && !tight(sb.String(), p) {
			sb.WriteByte(' ')
		}
		sb.WriteString(p)
	}
	return terminate(sb.String())
}

func appendFragment(parts []string, f any) []string {
	switch f := f.(type) {
	case nil:
	case string:
		if s := strings.TrimSpace(f); s != "" {
			parts = append(parts, s)
		}
	case []string:
		for _, s := range f {
			parts = appendFragment(parts, s)
		}
	case []any:
		for _, s := range f {
			parts = appendFragment(parts, s)
		}
	case fmt.Stringer:
		parts = appendFragment(parts, f.String())
	default:
		panic(fmt.Sprintf("querygen: unsupported fragment type %T", f))
	}
	return parts
}

func tight(prev, next string) bool {
	if strings.HasSuffix(prev, "(") {
		return true
	}
	switch next[0] {
	case ',', ';', ')':
		return true
	}
	return false
}

func terminate(s string) string {
	if !strings.HasSuffix(s, ";") {
		return s
	}
	s = strings.TrimRight(s, "; \t\n")
	if s == "" {
		return ""
	}
	return s + ";"
}

// Unless returns frag when cond is false, and an empty fragment otherwise.
func Unless(cond bool, frag ...any) any {
	return When(!cond, frag...)
}

// When returns frag when cond is true, and an empty fragment otherwise.
func When(cond bool, frag ...any) any {
	if !cond {
		return nil
	}
	return frag
}
