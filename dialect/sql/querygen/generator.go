package querygen

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/syssam/orma"
	"github.com/syssam/orma/dialect"
)

// Generator renders dialect specific SQL. Every method returning options
// validates them first, so a statement is only produced when the dialect
// can honor every supplied option.
type Generator interface {
	Dialect() *dialect.Descriptor
	// Supported returns the options the dialect implements for op.
	Supported(op Operation) OptionSet

	QuoteIdentifier(name string) string
	QuoteTable(t TableRef) string
	Escape(v any) (string, error)
	FormatOperator(op Operator) (string, error)

	CreateDatabaseQuery(name string, opts CreateDatabaseOptions) (string, error)
	ListDatabasesQuery(opts ListDatabasesOptions) (string, error)
	ListSchemasQuery(opts ListSchemasOptions) (string, error)
	DescribeTableQuery(t TableRef) (string, error)
	ListTablesQuery(opts ListTablesOptions) (string, error)
	TruncateTableQuery(t TableRef, opts TruncateTableOptions) (string, error)
	ShowConstraintsQuery(t TableRef, opts ShowConstraintsOptions) (string, error)
	ShowIndexesQuery(t TableRef) (string, error)
	VersionQuery() (string, error)
	BulkDeleteQuery(t TableRef, where string, opts BulkDeleteOptions) (string, error)

	CreateSavepointQuery(name string) (string, error)
	RollbackSavepointQuery(name string) (string, error)
	ReleaseSavepointQuery(name string) (string, error)
	SetForeignKeyChecksQuery(enabled bool) (string, error)
}

// Helper carries the per-dialect configuration shared by all operations.
// Dialect generators embed it and implement only the query methods. A
// Helper is built once at dialect initialization and never mutated.
type Helper struct {
	Desc      *dialect.Descriptor
	Quote     string // identifier quote character
	Literals  Literals
	Operators OperatorTable
	supported map[Operation]OptionSet
}

// NewHelper validates that supported is a subset of the supportable
// options of each operation and returns the helper.
func NewHelper(desc *dialect.Descriptor, quote string, lits Literals, ops OperatorTable, supported map[Operation]OptionSet) Helper {
	m := make(map[Operation]OptionSet, len(supported))
	for op, set := range supported {
		if !set.SubsetOf(Supportable(op)) {
			panic(fmt.Sprintf("querygen: %s supports options of %s outside the supportable set", desc.Name, op))
		}
		m[op] = set
	}
	return Helper{Desc: desc, Quote: quote, Literals: lits, Operators: ops, supported: m}
}

// Dialect implements Generator.
func (h Helper) Dialect() *dialect.Descriptor { return h.Desc }

// Supported implements Generator.
func (h Helper) Supported(op Operation) OptionSet {
	if s, ok := h.supported[op]; ok {
		return s
	}
	return NewOptionSet()
}

// Validate checks opts against the dialect. Absent options are always valid.
func (h Helper) Validate(op Operation, opts Options) error {
	supplied := opts.Supplied()
	if len(supplied) == 0 {
		return nil
	}
	return ValidateOptions(op, h.Desc.Name, Supportable(op), h.Supported(op), supplied)
}

// QuoteIdentifier implements Generator. Dotted names are quoted per part.
func (h Helper) QuoteIdentifier(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = QuoteIdent(h.Quote, p)
	}
	return strings.Join(parts, ".")
}

// QuoteTable implements Generator.
func (h Helper) QuoteTable(t TableRef) string {
	if t.Schema == "" {
		return QuoteIdent(h.Quote, t.Name)
	}
	return QuoteIdent(h.Quote, t.Schema) + "." + QuoteIdent(h.Quote, t.Name)
}

// Escape implements Generator.
func (h Helper) Escape(v any) (string, error) {
	return h.Literals.escape(v)
}

// MustEscape escapes values whose types are known to be supported.
func (h Helper) MustEscape(v any) string {
	s, err := h.Escape(v)
	if err != nil {
		panic(err)
	}
	return s
}

// FormatOperator implements Generator.
func (h Helper) FormatOperator(op Operator) (string, error) {
	if s, ok := h.Operators.Lookup(op); ok {
		return s, nil
	}
	return "", h.Unsupported("", "operator "+string(op))
}

// Unsupported returns an UnsupportedFeatureError for this dialect.
func (h Helper) Unsupported(op Operation, feature string) error {
	return &orma.UnsupportedFeatureError{Dialect: h.Desc.Name, Feature: feature, Operation: string(op)}
}

// NotIn renders "col NOT IN (...)" or nothing when names is empty.
func (h Helper) NotIn(col string, names []string) string {
	if len(names) == 0 {
		return ""
	}
	return col + " NOT IN " + h.MustEscape(names)
}

// SavepointQuery renders a standard savepoint statement, or an
// UnsupportedFeatureError when the dialect lacks savepoints.
func (h Helper) SavepointQuery(verb, name string) (string, error) {
	if !h.Desc.Supports.Savepoints {
		return "", h.Unsupported("", "savepoints")
	}
	if name == "" {
		return "", fmt.Errorf("querygen: empty savepoint name")
	}
	return Join(verb, QuoteIdent(h.Quote, name), ";"), nil
}

// CreateSavepointQuery implements Generator.
func (h Helper) CreateSavepointQuery(name string) (string, error) {
	return h.SavepointQuery("SAVEPOINT", name)
}

// RollbackSavepointQuery implements Generator.
func (h Helper) RollbackSavepointQuery(name string) (string, error) {
	return h.SavepointQuery("ROLLBACK TO SAVEPOINT", name)
}

// ReleaseSavepointQuery implements Generator.
func (h Helper) ReleaseSavepointQuery(name string) (string, error) {
	return h.SavepointQuery("RELEASE SAVEPOINT", name)
}

// SetForeignKeyChecksQuery implements Generator for dialects that cannot
// toggle foreign key enforcement.
func (h Helper) SetForeignKeyChecksQuery(bool) (string, error) {
	return "", h.Unsupported("", "disabling foreign key checks")
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Generator)
)

// Register makes a generator available by its dialect name. It panics if
// called twice for the same dialect.
func Register(g Generator) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if g == nil {
		panic("querygen: Register generator is nil")
	}
	name := g.Dialect().Name
	if _, dup := registry[name]; dup {
		panic("querygen: Register called twice for dialect " + name)
	}
	registry[name] = g
}

// Get returns the generator of a dialect. Driver aliases such as "pgx" or
// "sqlite3" resolve to their dialect.
func Get(name string) (Generator, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if g, ok := registry[name]; ok {
		return g, nil
	}
	if d, err := dialect.Lookup(name); err == nil {
		if g, ok := registry[d.Name]; ok {
			return g, nil
		}
	}
	return nil, fmt.Errorf("querygen: no generator registered for dialect %q (forgotten import?)", name)
}

// List returns the registered dialect names, sorted.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
