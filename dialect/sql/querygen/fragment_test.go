package querygen_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/orma/dialect/sql/querygen"
)

func TestJoin(t *testing.T) {
	tests := []struct {
		name  string
		input []any
		want  string
	}{
		{"drops empty and nil", []any{"SELECT 1", "", nil, "FROM t"}, "SELECT 1 FROM t"},
		{"all empty", []any{"", nil, "  "}, ""},
		{"no fragments", nil, ""},
		{"trims fragments", []any{"  SELECT  ", "x  "}, "SELECT x"},
		{"flattens slices", []any{"SELECT", []string{"a,", "b"}, []any{"FROM", []any{"t"}}}, "SELECT a, b FROM t"},
		{"collapses terminators", []any{"DELETE FROM t", ";", ";;"}, "DELETE FROM t;"},
		{"tight punctuation", []any{"f(", "a", ",", "b", ")", ";"}, "f(a, b);"},
		{"only terminator", []any{";"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, querygen.Join(tt.input...))
		})
	}
}

func TestJoinUnsupportedFragment(t *testing.T) {
	assert.Panics(t, func() { querygen.Join("SELECT", 1) })
}

func TestWhen(t *testing.T) {
	assert.Equal(t, "a b c", querygen.Join("a", querygen.When(true, "b"), querygen.Unless(true, "x"), querygen.Unless(false, "c")))
	assert.Equal(t, "a", querygen.Join("a", querygen.When(false, "b", "c")))
}
