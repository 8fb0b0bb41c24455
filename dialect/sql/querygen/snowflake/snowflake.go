// Package snowflake registers the Snowflake query generator.
package snowflake

import (
	"github.com/syssam/orma/dialect"
	"github.com/syssam/orma/dialect/sql/querygen"
)

var technicalSchemas = querygen.WithLowerVariants("INFORMATION_SCHEMA", "PERFORMANCE_SCHEMA", "SYS")

// Generator renders Snowflake SQL.
type Generator struct {
	querygen.Helper
}

// New returns the Snowflake generator.
func New() *Generator {
	desc, _ := dialect.Lookup(dialect.Snowflake)
	lits := querygen.DefaultLiterals
	lits.String = querygen.QuoteStringBackslash
	return &Generator{
		Helper: querygen.NewHelper(desc, `"`, lits,
			querygen.NewOperatorTable(map[querygen.Operator]string{
				querygen.ILike:     "ILIKE",
				querygen.NotILike:  "NOT ILIKE",
				querygen.Regexp:    "REGEXP",
				querygen.NotRegexp: "NOT REGEXP",
			}),
			map[querygen.Operation]querygen.OptionSet{
				querygen.CreateDatabase:  querygen.NewOptionSet(querygen.OptCharset, querygen.OptCollate, querygen.OptFailIfExists),
				querygen.ListSchemas:     querygen.NewOptionSet(querygen.OptSkip),
				querygen.ListTables:      querygen.NewOptionSet(querygen.OptSchema),
				querygen.ShowConstraints: querygen.NewOptionSet(querygen.OptConstraintName, querygen.OptConstraintType),
			},
		),
	}
}

func init() {
	querygen.Register(New())
}

// Identifiers are folded to upper case before quoting, so "users" and
// USERS name the same object in every statement.
func fold(t querygen.TableRef) querygen.TableRef {
	return querygen.TableRef{Schema: querygen.Upper(t.Schema), Name: querygen.Upper(t.Name)}
}

func foldAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = querygen.Upper(n)
	}
	return out
}

// QuoteIdentifier folds and quotes each dotted part.
func (g *Generator) QuoteIdentifier(name string) string {
	return g.Helper.QuoteIdentifier(querygen.Upper(name))
}

// QuoteTable folds and quotes t.
func (g *Generator) QuoteTable(t querygen.TableRef) string {
	return g.Helper.QuoteTable(fold(t))
}

// CreateDatabaseQuery implements querygen.Generator.
func (g *Generator) CreateDatabaseQuery(name string, opts querygen.CreateDatabaseOptions) (string, error) {
	if err := g.Validate(querygen.CreateDatabase, opts); err != nil {
		return "", err
	}
	return querygen.Join(
		"CREATE DATABASE", querygen.Unless(opts.FailIfExists, "IF NOT EXISTS"), g.QuoteIdentifier(name),
		querygen.When(opts.Charset != "", "DEFAULT CHARACTER SET", g.MustEscape(opts.Charset)),
		querygen.When(opts.Collate != "", "DEFAULT COLLATE", g.MustEscape(opts.Collate)),
		";",
	), nil
}

// ListDatabasesQuery returns SHOW DATABASES. Skipping databases requires
// post-filtering the result, which is not implemented.
func (g *Generator) ListDatabasesQuery(opts querygen.ListDatabasesOptions) (string, error) {
	if err := g.Validate(querygen.ListDatabases, opts); err != nil {
		return "", err
	}
	return "SHOW DATABASES;", nil
}

// ListSchemasQuery implements querygen.Generator.
func (g *Generator) ListSchemasQuery(opts querygen.ListSchemasOptions) (string, error) {
	if err := g.Validate(querygen.ListSchemas, opts); err != nil {
		return "", err
	}
	return querygen.Join(
		`SELECT SCHEMA_NAME AS "schema" FROM INFORMATION_SCHEMA.SCHEMATA WHERE`,
		g.NotIn("SCHEMA_NAME", append(append([]string{}, technicalSchemas...), foldAll(opts.Skip)...)),
		"ORDER BY SCHEMA_NAME;",
	), nil
}

// DescribeTableQuery implements querygen.Generator.
func (g *Generator) DescribeTableQuery(t querygen.TableRef) (string, error) {
	return querygen.Join("DESCRIBE TABLE", g.QuoteTable(t), ";"), nil
}

// ListTablesQuery lists base tables. A schema filter replaces the
// technical-schema exclusion rather than adding to it.
func (g *Generator) ListTablesQuery(opts querygen.ListTablesOptions) (string, error) {
	if err := g.Validate(querygen.ListTables, opts); err != nil {
		return "", err
	}
	var filter string
	if opts.Schema != "" {
		filter = "TABLE_SCHEMA = " + g.MustEscape(querygen.Upper(opts.Schema))
	} else {
		filter = g.NotIn("TABLE_SCHEMA", technicalSchemas)
	}
	return querygen.Join(
		`SELECT TABLE_NAME AS "tableName", TABLE_SCHEMA AS "schema" FROM INFORMATION_SCHEMA.TABLES`,
		"WHERE TABLE_TYPE = 'BASE TABLE' AND", filter,
		"ORDER BY TABLE_SCHEMA, TABLE_NAME;",
	), nil
}

// TruncateTableQuery implements querygen.Generator.
func (g *Generator) TruncateTableQuery(t querygen.TableRef, opts querygen.TruncateTableOptions) (string, error) {
	if err := g.Validate(querygen.TruncateTable, opts); err != nil {
		return "", err
	}
	return querygen.Join("TRUNCATE TABLE", g.QuoteTable(t), ";"), nil
}

// ShowConstraintsQuery implements querygen.Generator.
func (g *Generator) ShowConstraintsQuery(t querygen.TableRef, opts querygen.ShowConstraintsOptions) (string, error) {
	if err := g.Validate(querygen.ShowConstraints, opts); err != nil {
		return "", err
	}
	t = fold(t.WithDefaultSchema(g.Desc.DefaultSchema))
	return querygen.Join(
		`SELECT c.CONSTRAINT_CATALOG AS "constraintCatalog", c.CONSTRAINT_SCHEMA AS "constraintSchema",`,
		`c.CONSTRAINT_NAME AS "constraintName", c.CONSTRAINT_TYPE AS "constraintType",`,
		`c.TABLE_CATALOG AS "tableCatalog", c.TABLE_SCHEMA AS "tableSchema", c.TABLE_NAME AS "tableName",`,
		`fk.TABLE_SCHEMA AS "referencedTableSchema", fk.TABLE_NAME AS "referencedTableName",`,
		`r.DELETE_RULE AS "deleteAction", r.UPDATE_RULE AS "updateAction",`,
		`c.IS_DEFERRABLE AS "isDeferrable", c.INITIALLY_DEFERRED AS "initiallyDeferred"`,
		"FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS c",
		"LEFT JOIN INFORMATION_SCHEMA.REFERENTIAL_CONSTRAINTS r",
		"ON c.CONSTRAINT_CATALOG = r.CONSTRAINT_CATALOG AND c.CONSTRAINT_SCHEMA = r.CONSTRAINT_SCHEMA AND c.CONSTRAINT_NAME = r.CONSTRAINT_NAME",
		"LEFT JOIN INFORMATION_SCHEMA.TABLE_CONSTRAINTS fk",
		"ON r.UNIQUE_CONSTRAINT_CATALOG = fk.CONSTRAINT_CATALOG AND r.UNIQUE_CONSTRAINT_SCHEMA = fk.CONSTRAINT_SCHEMA AND r.UNIQUE_CONSTRAINT_NAME = fk.CONSTRAINT_NAME",
		"WHERE c.TABLE_NAME =", g.MustEscape(t.Name),
		"AND c.TABLE_SCHEMA =", g.MustEscape(t.Schema),
		querygen.When(opts.ConstraintName != "", "AND c.CONSTRAINT_NAME =", g.MustEscape(querygen.Upper(opts.ConstraintName))),
		querygen.When(opts.ConstraintType != "", "AND c.CONSTRAINT_TYPE =", g.MustEscape(querygen.Upper(opts.ConstraintType))),
		"ORDER BY c.CONSTRAINT_NAME;",
	), nil
}

// ShowIndexesQuery fails: Snowflake standard tables have no indexes.
func (g *Generator) ShowIndexesQuery(querygen.TableRef) (string, error) {
	return "", g.Unsupported(querygen.ShowIndexes, "indexes")
}

// VersionQuery implements querygen.Generator.
func (g *Generator) VersionQuery() (string, error) {
	return `SELECT CURRENT_VERSION() AS "version";`, nil
}

// BulkDeleteQuery implements querygen.Generator.
func (g *Generator) BulkDeleteQuery(t querygen.TableRef, where string, opts querygen.BulkDeleteOptions) (string, error) {
	if err := g.Validate(querygen.BulkDelete, opts); err != nil {
		return "", err
	}
	return querygen.Join("DELETE FROM", g.QuoteTable(t), querygen.When(where != "", "WHERE", where), ";"), nil
}

var _ querygen.Generator = (*Generator)(nil)
