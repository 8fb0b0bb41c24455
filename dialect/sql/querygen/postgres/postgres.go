// Package postgres registers the PostgreSQL query generator.
package postgres

import (
	"encoding/hex"
	"strings"

	"github.com/lib/pq"

	"github.com/syssam/orma/dialect"
	"github.com/syssam/orma/dialect/sql/querygen"
)

// technicalSchemas are excluded from schema and table listings.
var technicalSchemas = []string{"information_schema", "pg_catalog", "pg_toast"}

// Generator renders PostgreSQL SQL.
type Generator struct {
	querygen.Helper
}

// New returns the PostgreSQL generator.
func New() *Generator {
	desc, _ := dialect.Lookup(dialect.Postgres)
	lits := querygen.DefaultLiterals
	lits.String = func(s string) string {
		return strings.TrimSpace(pq.QuoteLiteral(s))
	}
	lits.Bytes = func(b []byte) string {
		return `'\x` + hex.EncodeToString(b) + `'::bytea`
	}
	return &Generator{
		Helper: querygen.NewHelper(desc, `"`, lits,
			querygen.NewOperatorTable(map[querygen.Operator]string{
				querygen.ILike:      "ILIKE",
				querygen.NotILike:   "NOT ILIKE",
				querygen.Regexp:     "~",
				querygen.NotRegexp:  "!~",
				querygen.IRegexp:    "~*",
				querygen.NotIRegexp: "!~*",
			}),
			map[querygen.Operation]querygen.OptionSet{
				querygen.CreateDatabase:  querygen.NewOptionSet(querygen.OptEncoding, querygen.OptCollate, querygen.OptCtype, querygen.OptTemplate, querygen.OptFailIfExists),
				querygen.ListDatabases:   querygen.NewOptionSet(querygen.OptSkip),
				querygen.ListSchemas:     querygen.NewOptionSet(querygen.OptSkip),
				querygen.ListTables:      querygen.NewOptionSet(querygen.OptSchema),
				querygen.TruncateTable:   querygen.NewOptionSet(querygen.OptCascade, querygen.OptRestartIdentity),
				querygen.ShowConstraints: querygen.NewOptionSet(querygen.OptColumnName, querygen.OptConstraintName, querygen.OptConstraintType),
			},
		),
	}
}

func init() {
	querygen.Register(New())
}

// QuoteIdentifier quotes each dotted part with pq.QuoteIdentifier.
func (g *Generator) QuoteIdentifier(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

// QuoteTable implements querygen.Generator.
func (g *Generator) QuoteTable(t querygen.TableRef) string {
	if t.Schema == "" {
		return pq.QuoteIdentifier(t.Name)
	}
	return pq.QuoteIdentifier(t.Schema) + "." + pq.QuoteIdentifier(t.Name)
}

// CreateDatabaseQuery returns CREATE DATABASE. PostgreSQL has no
// IF NOT EXISTS form for databases, so the caller must set FailIfExists
// and check ListDatabasesQuery first.
func (g *Generator) CreateDatabaseQuery(name string, opts querygen.CreateDatabaseOptions) (string, error) {
	if err := g.Validate(querygen.CreateDatabase, opts); err != nil {
		return "", err
	}
	if !opts.FailIfExists {
		return "", g.Unsupported(querygen.CreateDatabase, "creating databases if not exists")
	}
	return querygen.Join(
		"CREATE DATABASE", pq.QuoteIdentifier(name),
		querygen.When(opts.Encoding != "", "ENCODING =", g.MustEscape(opts.Encoding)),
		querygen.When(opts.Collate != "", "LC_COLLATE =", g.MustEscape(opts.Collate)),
		querygen.When(opts.Ctype != "", "LC_CTYPE =", g.MustEscape(opts.Ctype)),
		querygen.When(opts.Template != "", "TEMPLATE =", pq.QuoteIdentifier(opts.Template)),
		";",
	), nil
}

// ListDatabasesQuery lists non-template databases.
func (g *Generator) ListDatabasesQuery(opts querygen.ListDatabasesOptions) (string, error) {
	if err := g.Validate(querygen.ListDatabases, opts); err != nil {
		return "", err
	}
	return querygen.Join(
		`SELECT datname AS "name" FROM pg_database WHERE datistemplate = false`,
		querygen.When(len(opts.Skip) > 0, "AND", g.NotIn("datname", opts.Skip)),
		"ORDER BY datname;",
	), nil
}

// ListSchemasQuery lists user schemas.
func (g *Generator) ListSchemasQuery(opts querygen.ListSchemasOptions) (string, error) {
	if err := g.Validate(querygen.ListSchemas, opts); err != nil {
		return "", err
	}
	return querygen.Join(
		`SELECT schema_name AS "schema" FROM information_schema.schemata WHERE`,
		g.excludeTechnical("schema_name", opts.Skip),
		"ORDER BY schema_name;",
	), nil
}

func (g *Generator) excludeTechnical(col string, skip []string) string {
	return querygen.Join(
		col, `NOT LIKE 'pg\_%'`, "AND",
		g.NotIn(col, append(append([]string{}, technicalSchemas...), skip...)),
	)
}

// DescribeTableQuery returns column metadata from information_schema.
func (g *Generator) DescribeTableQuery(t querygen.TableRef) (string, error) {
	t = t.WithDefaultSchema(g.Desc.DefaultSchema)
	return querygen.Join(
		`SELECT c.column_name AS "name", c.data_type AS "type", c.udt_name AS "udtName",`,
		`c.is_nullable = 'YES' AS "allowNull", c.column_default AS "defaultValue",`,
		`c.character_maximum_length AS "length", c.ordinal_position AS "position",`,
		`pgd.description AS "comment"`,
		"FROM information_schema.columns c",
		"LEFT JOIN pg_catalog.pg_statio_all_tables st ON st.schemaname = c.table_schema AND st.relname = c.table_name",
		"LEFT JOIN pg_catalog.pg_description pgd ON pgd.objoid = st.relid AND pgd.objsubid = c.ordinal_position",
		"WHERE c.table_schema =", g.MustEscape(t.Schema),
		"AND c.table_name =", g.MustEscape(t.Name),
		"ORDER BY c.ordinal_position;",
	), nil
}

// ListTablesQuery lists base tables ordered by schema and name.
func (g *Generator) ListTablesQuery(opts querygen.ListTablesOptions) (string, error) {
	if err := g.Validate(querygen.ListTables, opts); err != nil {
		return "", err
	}
	var filter string
	if opts.Schema != "" {
		filter = "table_schema = " + g.MustEscape(opts.Schema)
	} else {
		filter = g.excludeTechnical("table_schema", nil)
	}
	return querygen.Join(
		`SELECT table_name AS "tableName", table_schema AS "schema" FROM information_schema.tables`,
		"WHERE table_type = 'BASE TABLE' AND", filter,
		"ORDER BY table_schema, table_name;",
	), nil
}

// TruncateTableQuery returns TRUNCATE with optional RESTART IDENTITY and CASCADE.
func (g *Generator) TruncateTableQuery(t querygen.TableRef, opts querygen.TruncateTableOptions) (string, error) {
	if err := g.Validate(querygen.TruncateTable, opts); err != nil {
		return "", err
	}
	return querygen.Join(
		"TRUNCATE", g.QuoteTable(t),
		querygen.When(opts.RestartIdentity, "RESTART IDENTITY"),
		querygen.When(opts.Cascade, "CASCADE"),
		";",
	), nil
}

// ShowConstraintsQuery returns one row per constraint of t.
func (g *Generator) ShowConstraintsQuery(t querygen.TableRef, opts querygen.ShowConstraintsOptions) (string, error) {
	if err := g.Validate(querygen.ShowConstraints, opts); err != nil {
		return "", err
	}
	t = t.WithDefaultSchema(g.Desc.DefaultSchema)
	return querygen.Join(
		`SELECT c.constraint_catalog AS "constraintCatalog", c.constraint_schema AS "constraintSchema",`,
		`c.constraint_name AS "constraintName", c.constraint_type AS "constraintType",`,
		`c.table_catalog AS "tableCatalog", c.table_schema AS "tableSchema", c.table_name AS "tableName",`,
		`fk.table_schema AS "referencedTableSchema", fk.table_name AS "referencedTableName",`,
		`r.delete_rule AS "deleteAction", r.update_rule AS "updateAction",`,
		`c.is_deferrable AS "isDeferrable", c.initially_deferred AS "initiallyDeferred"`,
		"FROM information_schema.table_constraints c",
		"LEFT JOIN information_schema.referential_constraints r",
		"ON c.constraint_catalog = r.constraint_catalog AND c.constraint_schema = r.constraint_schema AND c.constraint_name = r.constraint_name",
		"LEFT JOIN information_schema.table_constraints fk",
		"ON r.unique_constraint_catalog = fk.constraint_catalog AND r.unique_constraint_schema = fk.constraint_schema AND r.unique_constraint_name = fk.constraint_name",
		"WHERE c.table_name =", g.MustEscape(t.Name),
		"AND c.table_schema =", g.MustEscape(t.Schema),
		querygen.When(opts.ColumnName != "",
			"AND c.constraint_name IN (SELECT k.constraint_name FROM information_schema.key_column_usage k WHERE k.table_schema =",
			g.MustEscape(t.Schema), "AND k.table_name =", g.MustEscape(t.Name),
			"AND k.column_name =", g.MustEscape(opts.ColumnName), ")"),
		querygen.When(opts.ConstraintName != "", "AND c.constraint_name =", g.MustEscape(opts.ConstraintName)),
		querygen.When(opts.ConstraintType != "", "AND c.constraint_type =", g.MustEscape(opts.ConstraintType)),
		"ORDER BY c.constraint_name;",
	), nil
}

// ShowIndexesQuery returns index metadata from pg_index.
func (g *Generator) ShowIndexesQuery(t querygen.TableRef) (string, error) {
	t = t.WithDefaultSchema(g.Desc.DefaultSchema)
	return querygen.Join(
		`SELECT i.relname AS "name", ix.indisprimary AS "primary", ix.indisunique AS "unique",`,
		`am.amname AS "type", array_to_string(array_agg(a.attname ORDER BY array_position(ix.indkey::int2[], a.attnum)), ',') AS "columns"`,
		"FROM pg_class t",
		"JOIN pg_index ix ON t.oid = ix.indrelid",
		"JOIN pg_class i ON i.oid = ix.indexrelid",
		"JOIN pg_namespace n ON n.oid = t.relnamespace",
		"JOIN pg_am am ON am.oid = i.relam",
		"JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)",
		"WHERE t.relkind = 'r' AND n.nspname =", g.MustEscape(t.Schema),
		"AND t.relname =", g.MustEscape(t.Name),
		"GROUP BY i.relname, ix.indisprimary, ix.indisunique, am.amname",
		"ORDER BY i.relname;",
	), nil
}

// VersionQuery implements querygen.Generator.
func (g *Generator) VersionQuery() (string, error) {
	return "SHOW SERVER_VERSION;", nil
}

// BulkDeleteQuery returns DELETE FROM. LIMIT is not available.
func (g *Generator) BulkDeleteQuery(t querygen.TableRef, where string, opts querygen.BulkDeleteOptions) (string, error) {
	if err := g.Validate(querygen.BulkDelete, opts); err != nil {
		return "", err
	}
	return querygen.Join("DELETE FROM", g.QuoteTable(t), querygen.When(where != "", "WHERE", where), ";"), nil
}

var _ querygen.Generator = (*Generator)(nil)
