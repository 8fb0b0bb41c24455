package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/orma"
	"github.com/syssam/orma/dialect/sql/querygen"
)

func TestCreateDatabaseQuery(t *testing.T) {
	_, err := New().CreateDatabaseQuery("app", querygen.CreateDatabaseOptions{})
	require.True(t, orma.IsUnsupportedFeature(err))
}

func TestListTablesQuery(t *testing.T) {
	g := New()
	q, err := g.ListTablesQuery(querygen.ListTablesOptions{})
	require.NoError(t, err)
	assert.Equal(t, `SELECT name AS "tableName", 'main' AS "schema" FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite\_%' ESCAPE '\' ORDER BY name;`, q)

	q, err = g.ListTablesQuery(querygen.ListTablesOptions{Schema: "APP"})
	require.NoError(t, err)
	assert.Equal(t, `SELECT name AS "tableName", 'APP' AS "schema" FROM "APP".sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite\_%' ESCAPE '\' ORDER BY name;`, q)
}

func TestListSchemasQuery(t *testing.T) {
	q, err := New().ListSchemasQuery(querygen.ListSchemasOptions{Skip: []string{"aux"}})
	require.NoError(t, err)
	assert.Equal(t, `SELECT name AS "schema" FROM pragma_database_list WHERE name NOT IN ('temp', 'aux') ORDER BY seq;`, q)
}

func TestTruncateTableQuery(t *testing.T) {
	g := New()
	q, err := g.TruncateTableQuery(querygen.Table("users"), querygen.TruncateTableOptions{})
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "users";`, q)
	_, err = g.TruncateTableQuery(querygen.Table("users"), querygen.TruncateTableOptions{RestartIdentity: true})
	require.True(t, orma.IsDialectNotSupported(err))
}

func TestShowConstraintsQuery(t *testing.T) {
	g := New()
	q, err := g.ShowConstraintsQuery(querygen.Table("users"), querygen.ShowConstraintsOptions{ConstraintName: "PK_1"})
	require.NoError(t, err)
	assert.Contains(t, q, `FROM pragma_index_list('users', 'main') il`)
	assert.Contains(t, q, `FROM pragma_foreign_key_list('users', 'main') fk`)
	assert.Contains(t, q, `) c WHERE c."constraintName" = 'PK_1' ORDER BY c."constraintName";`)

	q, err = g.ShowConstraintsQuery(querygen.Table("users"), querygen.ShowConstraintsOptions{ConstraintName: "a", ConstraintType: "UNIQUE"})
	require.NoError(t, err)
	assert.Contains(t, q, `WHERE c."constraintName" = 'a' AND c."constraintType" = 'UNIQUE'`)

	q, err = g.ShowConstraintsQuery(querygen.Table("users"), querygen.ShowConstraintsOptions{})
	require.NoError(t, err)
	assert.Contains(t, q, `) c ORDER BY c."constraintName";`)

	_, err = g.ShowConstraintsQuery(querygen.Table("users"), querygen.ShowConstraintsOptions{ColumnName: "id"})
	require.True(t, orma.IsDialectNotSupported(err))
}

func TestBulkDeleteQuery(t *testing.T) {
	g := New()
	q, err := g.BulkDeleteQuery(querygen.Table("logs"), "level = 'debug'", querygen.BulkDeleteOptions{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "logs" WHERE rowid IN (SELECT rowid FROM "logs" WHERE level = 'debug' LIMIT 10);`, q)

	q, err = g.BulkDeleteQuery(querygen.Table("logs"), "", querygen.BulkDeleteOptions{})
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "logs";`, q)
}

func TestPragmaQueries(t *testing.T) {
	g := New()
	q, err := g.DescribeTableQuery(querygen.Table("users"))
	require.NoError(t, err)
	assert.Equal(t, `PRAGMA TABLE_INFO("users");`, q)
	q, err = g.ShowIndexesQuery(querygen.SchemaTable("aux", "users"))
	require.NoError(t, err)
	assert.Equal(t, `PRAGMA "aux".INDEX_LIST("users");`, q)
	q, err = g.SetForeignKeyChecksQuery(false)
	require.NoError(t, err)
	assert.Equal(t, "PRAGMA foreign_keys = OFF;", q)
	s, err := g.Escape(true)
	require.NoError(t, err)
	assert.Equal(t, "1", s)
	op, err := g.FormatOperator(querygen.Ne)
	require.NoError(t, err)
	assert.Equal(t, "!=", op)
}
