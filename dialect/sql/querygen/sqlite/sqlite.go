// Package sqlite registers the SQLite query generator.
package sqlite

import (
	"strconv"

	"github.com/syssam/orma/dialect"
	"github.com/syssam/orma/dialect/sql/querygen"
)

// temp holds connection-private objects and is never listed.
var technicalSchemas = []string{"temp"}

// Generator renders SQLite SQL.
type Generator struct {
	querygen.Helper
}

// New returns the SQLite generator.
func New() *Generator {
	desc, _ := dialect.Lookup(dialect.SQLite)
	lits := querygen.DefaultLiterals
	lits.True, lits.False = "1", "0"
	return &Generator{
		Helper: querygen.NewHelper(desc, `"`, lits,
			querygen.NewOperatorTable(map[querygen.Operator]string{
				querygen.Ne:        "!=",
				querygen.Regexp:    "REGEXP",
				querygen.NotRegexp: "NOT REGEXP",
			}),
			map[querygen.Operation]querygen.OptionSet{
				querygen.ListDatabases:   querygen.NewOptionSet(querygen.OptSkip),
				querygen.ListSchemas:     querygen.NewOptionSet(querygen.OptSkip),
				querygen.ListTables:      querygen.NewOptionSet(querygen.OptSchema),
				querygen.ShowConstraints: querygen.NewOptionSet(querygen.OptConstraintName, querygen.OptConstraintType),
				querygen.BulkDelete:      querygen.NewOptionSet(querygen.OptLimit),
			},
		),
	}
}

func init() {
	querygen.Register(New())
}

// CreateDatabaseQuery fails: SQLite databases are files created on open.
func (g *Generator) CreateDatabaseQuery(string, querygen.CreateDatabaseOptions) (string, error) {
	return "", g.Unsupported(querygen.CreateDatabase, "creating databases")
}

// ListDatabasesQuery lists the attached databases.
func (g *Generator) ListDatabasesQuery(opts querygen.ListDatabasesOptions) (string, error) {
	if err := g.Validate(querygen.ListDatabases, opts); err != nil {
		return "", err
	}
	return querygen.Join(
		`SELECT name AS "name" FROM pragma_database_list`,
		querygen.When(len(opts.Skip) > 0, "WHERE", g.NotIn("name", opts.Skip)),
		"ORDER BY seq;",
	), nil
}

// ListSchemasQuery lists attached databases, which act as schemas.
func (g *Generator) ListSchemasQuery(opts querygen.ListSchemasOptions) (string, error) {
	if err := g.Validate(querygen.ListSchemas, opts); err != nil {
		return "", err
	}
	return querygen.Join(
		`SELECT name AS "schema" FROM pragma_database_list WHERE`,
		g.NotIn("name", append(append([]string{}, technicalSchemas...), opts.Skip...)),
		"ORDER BY seq;",
	), nil
}

// DescribeTableQuery implements querygen.Generator.
func (g *Generator) DescribeTableQuery(t querygen.TableRef) (string, error) {
	return querygen.Join(g.pragma(t.Schema, "TABLE_INFO")+"(", g.QuoteIdentifier(t.Name), ");"), nil
}

func (g *Generator) pragma(schema, name string) string {
	if schema == "" {
		return "PRAGMA " + name
	}
	return "PRAGMA " + g.QuoteIdentifier(schema) + "." + name
}

// ListTablesQuery lists user tables of one attached database.
func (g *Generator) ListTablesQuery(opts querygen.ListTablesOptions) (string, error) {
	if err := g.Validate(querygen.ListTables, opts); err != nil {
		return "", err
	}
	schema, master := g.Desc.DefaultSchema, "sqlite_master"
	if opts.Schema != "" {
		schema, master = opts.Schema, g.QuoteIdentifier(opts.Schema)+".sqlite_master"
	}
	return querygen.Join(
		`SELECT name AS "tableName",`, g.MustEscape(schema), `AS "schema" FROM`, master,
		`WHERE type = 'table' AND name NOT LIKE 'sqlite\_%' ESCAPE '\'`,
		"ORDER BY name;",
	), nil
}

// TruncateTableQuery empties the table with DELETE; SQLite has no TRUNCATE.
func (g *Generator) TruncateTableQuery(t querygen.TableRef, opts querygen.TruncateTableOptions) (string, error) {
	if err := g.Validate(querygen.TruncateTable, opts); err != nil {
		return "", err
	}
	return querygen.Join("DELETE FROM", g.QuoteTable(t), ";"), nil
}

// ShowConstraintsQuery combines primary/unique indexes and foreign keys.
func (g *Generator) ShowConstraintsQuery(t querygen.TableRef, opts querygen.ShowConstraintsOptions) (string, error) {
	if err := g.Validate(querygen.ShowConstraints, opts); err != nil {
		return "", err
	}
	schema := t.Schema
	if schema == "" {
		schema = g.Desc.DefaultSchema
	}
	table, sch := g.MustEscape(t.Name), g.MustEscape(schema)
	return querygen.Join(
		"SELECT * FROM (",
		`SELECT il.name AS "constraintName",`,
		`CASE il.origin WHEN 'pk' THEN 'PRIMARY KEY' ELSE 'UNIQUE' END AS "constraintType",`,
		sch, `AS "tableSchema",`, table, `AS "tableName",`,
		`NULL AS "referencedTableName", NULL AS "deleteAction", NULL AS "updateAction"`,
		"FROM pragma_index_list(", table, ",", sch, ") il WHERE il.origin IN ('pk', 'u')",
		"UNION ALL",
		`SELECT 'fk_' || fk.id AS "constraintName", 'FOREIGN KEY' AS "constraintType",`,
		sch, `AS "tableSchema",`, table, `AS "tableName",`,
		`fk."table" AS "referencedTableName", fk.on_delete AS "deleteAction", fk.on_update AS "updateAction"`,
		"FROM pragma_foreign_key_list(", table, ",", sch, ") fk WHERE fk.seq = 0",
		") c",
		querygen.When(opts.ConstraintName != "" || opts.ConstraintType != "", "WHERE",
			querygen.Join(
				querygen.When(opts.ConstraintName != "", `c."constraintName" =`, g.MustEscape(opts.ConstraintName)),
				querygen.When(opts.ConstraintName != "" && opts.ConstraintType != "", "AND"),
				querygen.When(opts.ConstraintType != "", `c."constraintType" =`, g.MustEscape(opts.ConstraintType)),
			)),
		`ORDER BY c."constraintName";`,
	), nil
}

// ShowIndexesQuery implements querygen.Generator.
func (g *Generator) ShowIndexesQuery(t querygen.TableRef) (string, error) {
	return querygen.Join(g.pragma(t.Schema, "INDEX_LIST")+"(", g.QuoteIdentifier(t.Name), ");"), nil
}

// VersionQuery implements querygen.Generator.
func (g *Generator) VersionQuery() (string, error) {
	return `SELECT sqlite_version() AS "version";`, nil
}

// BulkDeleteQuery limits through a rowid subquery, which works without
// SQLITE_ENABLE_UPDATE_DELETE_LIMIT.
func (g *Generator) BulkDeleteQuery(t querygen.TableRef, where string, opts querygen.BulkDeleteOptions) (string, error) {
	if err := g.Validate(querygen.BulkDelete, opts); err != nil {
		return "", err
	}
	table := g.QuoteTable(t)
	if opts.Limit > 0 {
		return querygen.Join(
			"DELETE FROM", table, "WHERE rowid IN (SELECT rowid FROM", table,
			querygen.When(where != "", "WHERE", where),
			"LIMIT", strconv.Itoa(opts.Limit), ");",
		), nil
	}
	return querygen.Join("DELETE FROM", table, querygen.When(where != "", "WHERE", where), ";"), nil
}

// SetForeignKeyChecksQuery toggles the foreign_keys pragma. It has no
// effect inside a transaction.
func (g *Generator) SetForeignKeyChecksQuery(enabled bool) (string, error) {
	if enabled {
		return "PRAGMA foreign_keys = ON;", nil
	}
	return "PRAGMA foreign_keys = OFF;", nil
}

var _ querygen.Generator = (*Generator)(nil)
