package querygen

import "slices"

// Operation names a generator operation.
type Operation string

// Generator operations.
const (
	CreateDatabase  Operation = "createDatabase"
	ListDatabases   Operation = "listDatabases"
	ListSchemas     Operation = "listSchemas"
	DescribeTable   Operation = "describeTable"
	ListTables      Operation = "listTables"
	TruncateTable   Operation = "truncateTable"
	ShowConstraints Operation = "showConstraints"
	ShowIndexes     Operation = "showIndexes"
	Version         Operation = "version"
	BulkDelete      Operation = "bulkDelete"
)

// Operations returns every operation in declaration order.
func Operations() []Operation {
	return []Operation{
		CreateDatabase, ListDatabases, ListSchemas, DescribeTable, ListTables,
		TruncateTable, ShowConstraints, ShowIndexes, Version, BulkDelete,
	}
}

// Option is an option key accepted by an operation.
type Option string

// Option keys.
const (
	OptCharset         Option = "charset"
	OptCollate         Option = "collate"
	OptEncoding        Option = "encoding"
	OptCtype           Option = "ctype"
	OptTemplate        Option = "template"
	OptFailIfExists    Option = "failIfExists"
	OptSkip            Option = "skip"
	OptSchema          Option = "schema"
	OptCascade         Option = "cascade"
	OptRestartIdentity Option = "restartIdentity"
	OptColumnName      Option = "columnName"
	OptConstraintName  Option = "constraintName"
	OptConstraintType  Option = "constraintType"
	OptLimit           Option = "limit"
)

// OptionSet is an immutable set of option keys.
type OptionSet struct {
	m map[Option]struct{}
}

// NewOptionSet returns a set holding opts.
func NewOptionSet(opts ...Option) OptionSet {
	m := make(map[Option]struct{}, len(opts))
	for _, o := range opts {
		m[o] = struct{}{}
	}
	return OptionSet{m: m}
}

// Has reports whether o is in the set.
func (s OptionSet) Has(o Option) bool {
	_, ok := s.m[o]
	return ok
}

// Len returns the number of options in the set.
func (s OptionSet) Len() int { return len(s.m) }

// Options returns the members in sorted order.
func (s OptionSet) Options() []Option {
	out := make([]Option, 0, len(s.m))
	for o := range s.m {
		out = append(out, o)
	}
	slices.Sort(out)
	return out
}

// SubsetOf reports whether every member of s is in o.
func (s OptionSet) SubsetOf(o OptionSet) bool {
	for k := range s.m {
		if !o.Has(k) {
			return false
		}
	}
	return true
}

// supportable is the universe of options each operation knows about.
// A dialect's supported set must be a subset of it.
var supportable = map[Operation]OptionSet{
	CreateDatabase:  NewOptionSet(OptCharset, OptCollate, OptEncoding, OptCtype, OptTemplate, OptFailIfExists),
	ListDatabases:   NewOptionSet(OptSkip),
	ListSchemas:     NewOptionSet(OptSkip),
	DescribeTable:   NewOptionSet(),
	ListTables:      NewOptionSet(OptSchema),
	TruncateTable:   NewOptionSet(OptCascade, OptRestartIdentity),
	ShowConstraints: NewOptionSet(OptColumnName, OptConstraintName, OptConstraintType),
	ShowIndexes:     NewOptionSet(),
	Version:         NewOptionSet(),
	BulkDelete:      NewOptionSet(OptLimit),
}

// Supportable returns the options op recognizes regardless of dialect.
func Supportable(op Operation) OptionSet {
	if s, ok := supportable[op]; ok {
		return s
	}
	return NewOptionSet()
}

// Options is implemented by the typed option structs. Supplied returns
// the options that carry a non-zero value.
type Options interface {
	Supplied() map[Option]any
}

type supplied map[Option]any

func (s supplied) add(o Option, v any, set bool) supplied {
	if set {
		s[o] = v
	}
	return s
}

// CreateDatabaseOptions configures CreateDatabaseQuery. The statement
// succeeds when the database already exists unless FailIfExists is set.
type CreateDatabaseOptions struct {
	Charset      string `mapstructure:"charset"`
	Collate      string `mapstructure:"collate"`
	Encoding     string `mapstructure:"encoding"`
	Ctype        string `mapstructure:"ctype"`
	Template     string `mapstructure:"template"`
	FailIfExists bool   `mapstructure:"failIfExists"`
}

// Supplied implements Options.
func (o CreateDatabaseOptions) Supplied() map[Option]any {
	return supplied{}.
		add(OptCharset, o.Charset, o.Charset != "").
		add(OptCollate, o.Collate, o.Collate != "").
		add(OptEncoding, o.Encoding, o.Encoding != "").
		add(OptCtype, o.Ctype, o.Ctype != "").
		add(OptTemplate, o.Template, o.Template != "").
		add(OptFailIfExists, o.FailIfExists, o.FailIfExists)
}

// ListDatabasesOptions configures ListDatabasesQuery.
type ListDatabasesOptions struct {
	Skip []string `mapstructure:"skip"`
}

// Supplied implements Options.
func (o ListDatabasesOptions) Supplied() map[Option]any {
	return supplied{}.add(OptSkip, o.Skip, len(o.Skip) > 0)
}

// ListSchemasOptions configures ListSchemasQuery.
type ListSchemasOptions struct {
	// Skip lists schemas excluded in addition to the technical ones.
	Skip []string `mapstructure:"skip"`
}

// Supplied implements Options.
func (o ListSchemasOptions) Supplied() map[Option]any {
	return supplied{}.add(OptSkip, o.Skip, len(o.Skip) > 0)
}

// ListTablesOptions configures ListTablesQuery.
type ListTablesOptions struct {
	Schema string `mapstructure:"schema"`
}

// Supplied implements Options.
func (o ListTablesOptions) Supplied() map[Option]any {
	return supplied{}.add(OptSchema, o.Schema, o.Schema != "")
}

// TruncateTableOptions configures TruncateTableQuery.
type TruncateTableOptions struct {
	Cascade         bool `mapstructure:"cascade"`
	RestartIdentity bool `mapstructure:"restartIdentity"`
}

// Supplied implements Options.
func (o TruncateTableOptions) Supplied() map[Option]any {
	return supplied{}.
		add(OptCascade, o.Cascade, o.Cascade).
		add(OptRestartIdentity, o.RestartIdentity, o.RestartIdentity)
}

// ShowConstraintsOptions configures ShowConstraintsQuery.
type ShowConstraintsOptions struct {
	ColumnName     string `mapstructure:"columnName"`
	ConstraintName string `mapstructure:"constraintName"`
	// ConstraintType is one of PRIMARY KEY, UNIQUE, FOREIGN KEY, CHECK.
	ConstraintType string `mapstructure:"constraintType"`
}

// Supplied implements Options.
func (o ShowConstraintsOptions) Supplied() map[Option]any {
	return supplied{}.
		add(OptColumnName, o.ColumnName, o.ColumnName != "").
		add(OptConstraintName, o.ConstraintName, o.ConstraintName != "").
		add(OptConstraintType, o.ConstraintType, o.ConstraintType != "")
}

// BulkDeleteOptions configures BulkDeleteQuery.
type BulkDeleteOptions struct {
	Limit int `mapstructure:"limit"`
}

// Supplied implements Options.
func (o BulkDeleteOptions) Supplied() map[Option]any {
	return supplied{}.add(OptLimit, o.Limit, o.Limit > 0)
}

// NoOptions is used by operations that take no options.
type NoOptions struct{}

// Supplied implements Options.
func (NoOptions) Supplied() map[Option]any { return nil }

func sortedKeys(m map[Option]any) []Option {
	keys := make([]Option, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
