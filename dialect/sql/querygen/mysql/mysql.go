// Package mysql registers the MySQL/MariaDB query generator.
package mysql

import (
	"strconv"

	"github.com/syssam/orma/dialect"
	"github.com/syssam/orma/dialect/sql/querygen"
)

// In MySQL schemas are databases.
var technicalSchemas = querygen.WithLowerVariants("MYSQL", "INFORMATION_SCHEMA", "PERFORMANCE_SCHEMA", "SYS")

// Generator renders MySQL SQL.
type Generator struct {
	querygen.Helper
}

// New returns the MySQL generator.
func New() *Generator {
	desc, _ := dialect.Lookup(dialect.MySQL)
	lits := querygen.DefaultLiterals
	lits.String = querygen.QuoteStringBackslash
	return &Generator{
		Helper: querygen.NewHelper(desc, "`", lits,
			querygen.NewOperatorTable(map[querygen.Operator]string{
				querygen.Regexp:    "REGEXP",
				querygen.NotRegexp: "NOT REGEXP",
			}),
			map[querygen.Operation]querygen.OptionSet{
				querygen.CreateDatabase:  querygen.NewOptionSet(querygen.OptCharset, querygen.OptCollate, querygen.OptFailIfExists),
				querygen.ListDatabases:   querygen.NewOptionSet(querygen.OptSkip),
				querygen.ListSchemas:     querygen.NewOptionSet(querygen.OptSkip),
				querygen.ListTables:      querygen.NewOptionSet(querygen.OptSchema),
				querygen.ShowConstraints: querygen.NewOptionSet(querygen.OptColumnName, querygen.OptConstraintName, querygen.OptConstraintType),
				querygen.BulkDelete:      querygen.NewOptionSet(querygen.OptLimit),
			},
		),
	}
}

func init() {
	querygen.Register(New())
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

// ListDatabasesQuery implements querygen.Generator.
func (g *Generator) ListDatabasesQuery(opts querygen.ListDatabasesOptions) (string, error) {
	if err := g.Validate(querygen.ListDatabases, opts); err != nil {
		return "", err
	}
	return querygen.Join(
		"SELECT SCHEMA_NAME AS `name` FROM INFORMATION_SCHEMA.SCHEMATA",
		querygen.When(len(opts.Skip) > 0, "WHERE", g.NotIn("SCHEMA_NAME", opts.Skip)),
		"ORDER BY SCHEMA_NAME;",
	), nil
}

// ListSchemasQuery implements querygen.Generator.
func (g *Generator) ListSchemasQuery(opts querygen.ListSchemasOptions) (string, error) {
	if err := g.Validate(querygen.ListSchemas, opts); err != nil {
		return "", err
	}
	return querygen.Join(
		"SELECT SCHEMA_NAME AS `schema` FROM INFORMATION_SCHEMA.SCHEMATA WHERE",
		g.NotIn("SCHEMA_NAME", append(append([]string{}, technicalSchemas...), opts.Skip...)),
		"ORDER BY SCHEMA_NAME;",
	), nil
}

// DescribeTableQuery implements querygen.Generator.
func (g *Generator) DescribeTableQuery(t querygen.TableRef) (string, error) {
	return querygen.Join("SHOW FULL COLUMNS FROM", g.QuoteTable(t), ";"), nil
}

// ListTablesQuery implements querygen.Generator.
func (g *Generator) ListTablesQuery(opts querygen.ListTablesOptions) (string, error) {
	if err := g.Validate(querygen.ListTables, opts); err != nil {
		return "", err
	}
	var filter string
	if opts.Schema != "" {
		filter = "TABLE_SCHEMA = " + g.MustEscape(opts.Schema)
	} else {
		filter = g.NotIn("TABLE_SCHEMA", technicalSchemas)
	}
	return querygen.Join(
		"SELECT TABLE_NAME AS `tableName`, TABLE_SCHEMA AS `schema` FROM INFORMATION_SCHEMA.TABLES",
		"WHERE TABLE_TYPE = 'BASE TABLE' AND", filter,
		"ORDER BY TABLE_SCHEMA, TABLE_NAME;",
	), nil
}

// TruncateTableQuery implements querygen.Generator. MySQL has neither
// CASCADE nor RESTART IDENTITY; TRUNCATE always resets AUTO_INCREMENT.
func (g *Generator) TruncateTableQuery(t querygen.TableRef, opts querygen.TruncateTableOptions) (string, error) {
	if err := g.Validate(querygen.TruncateTable, opts); err != nil {
		return "", err
	}
	return querygen.Join("TRUNCATE", g.QuoteTable(t), ";"), nil
}

// ShowConstraintsQuery implements querygen.Generator. Without a schema the
// current database is used.
func (g *Generator) ShowConstraintsQuery(t querygen.TableRef, opts querygen.ShowConstraintsOptions) (string, error) {
	if err := g.Validate(querygen.ShowConstraints, opts); err != nil {
		return "", err
	}
	schema := "DATABASE()"
	if t.Schema != "" {
		schema = g.MustEscape(t.Schema)
	}
	return querygen.Join(
		"SELECT c.CONSTRAINT_SCHEMA AS `constraintSchema`, c.CONSTRAINT_NAME AS `constraintName`,",
		"c.CONSTRAINT_TYPE AS `constraintType`, c.TABLE_SCHEMA AS `tableSchema`, c.TABLE_NAME AS `tableName`,",
		"GROUP_CONCAT(k.COLUMN_NAME ORDER BY k.ORDINAL_POSITION) AS `columnNames`,",
		"k.REFERENCED_TABLE_SCHEMA AS `referencedTableSchema`, k.REFERENCED_TABLE_NAME AS `referencedTableName`,",
		"GROUP_CONCAT(k.REFERENCED_COLUMN_NAME ORDER BY k.ORDINAL_POSITION) AS `referencedColumnNames`,",
		"r.DELETE_RULE AS `deleteAction`, r.UPDATE_RULE AS `updateAction`",
		"FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS c",
		"LEFT JOIN INFORMATION_SCHEMA.REFERENTIAL_CONSTRAINTS r",
		"ON c.CONSTRAINT_SCHEMA = r.CONSTRAINT_SCHEMA AND c.CONSTRAINT_NAME = r.CONSTRAINT_NAME AND c.TABLE_NAME = r.TABLE_NAME",
		"LEFT JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE k",
		"ON c.CONSTRAINT_SCHEMA = k.CONSTRAINT_SCHEMA AND c.CONSTRAINT_NAME = k.CONSTRAINT_NAME AND c.TABLE_NAME = k.TABLE_NAME",
		"WHERE c.TABLE_NAME =", g.MustEscape(t.Name),
		"AND c.TABLE_SCHEMA =", schema,
		querygen.When(opts.ColumnName != "",
			"AND c.CONSTRAINT_NAME IN (SELECT kc.CONSTRAINT_NAME FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE kc WHERE kc.TABLE_SCHEMA =",
			schema, "AND kc.TABLE_NAME =", g.MustEscape(t.Name),
			"AND kc.COLUMN_NAME =", g.MustEscape(opts.ColumnName), ")"),
		querygen.When(opts.ConstraintName != "", "AND c.CONSTRAINT_NAME =", g.MustEscape(opts.ConstraintName)),
		querygen.When(opts.ConstraintType != "", "AND c.CONSTRAINT_TYPE =", g.MustEscape(opts.ConstraintType)),
		"GROUP BY c.CONSTRAINT_SCHEMA, c.CONSTRAINT_NAME, c.CONSTRAINT_TYPE, c.TABLE_SCHEMA, c.TABLE_NAME,",
		"k.REFERENCED_TABLE_SCHEMA, k.REFERENCED_TABLE_NAME, r.DELETE_RULE, r.UPDATE_RULE",
		"ORDER BY c.CONSTRAINT_NAME;",
	), nil
}

// ShowIndexesQuery implements querygen.Generator.
func (g *Generator) ShowIndexesQuery(t querygen.TableRef) (string, error) {
	return querygen.Join("SHOW INDEX FROM", g.QuoteTable(t), ";"), nil
}

// VersionQuery implements querygen.Generator.
func (g *Generator) VersionQuery() (string, error) {
	return "SELECT VERSION() AS `version`;", nil
}

// BulkDeleteQuery implements querygen.Generator.
func (g *Generator) BulkDeleteQuery(t querygen.TableRef, where string, opts querygen.BulkDeleteOptions) (string, error) {
	if err := g.Validate(querygen.BulkDelete, opts); err != nil {
		return "", err
	}
	return querygen.Join(
		"DELETE FROM", g.QuoteTable(t),
		querygen.When(where != "", "WHERE", where),
		querygen.When(opts.Limit > 0, "LIMIT", strconv.Itoa(opts.Limit)),
		";",
	), nil
}

// SetForeignKeyChecksQuery toggles FOREIGN_KEY_CHECKS for the session.
func (g *Generator) SetForeignKeyChecksQuery(enabled bool) (string, error) {
	if enabled {
		return "SET FOREIGN_KEY_CHECKS = 1;", nil
	}
	return "SET FOREIGN_KEY_CHECKS = 0;", nil
}

var _ querygen.Generator = (*Generator)(nil)
