package snowflake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/orma"
	"github.com/syssam/orma/dialect/sql/querygen"
)

func TestListTablesQuery(t *testing.T) {
	g := New()
	q, err := g.ListTablesQuery(querygen.ListTablesOptions{Schema: "app"})
	require.NoError(t, err)
	assert.Equal(t, `SELECT TABLE_NAME AS "tableName", TABLE_SCHEMA AS "schema" FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_TYPE = 'BASE TABLE' AND TABLE_SCHEMA = 'APP' ORDER BY TABLE_SCHEMA, TABLE_NAME;`, q)
	assert.NotContains(t, q, "NOT IN")

	q, err = g.ListTablesQuery(querygen.ListTablesOptions{})
	require.NoError(t, err)
	assert.Equal(t, `SELECT TABLE_NAME AS "tableName", TABLE_SCHEMA AS "schema" FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_TYPE = 'BASE TABLE' AND `+
		`TABLE_SCHEMA NOT IN ('INFORMATION_SCHEMA', 'PERFORMANCE_SCHEMA', 'SYS', 'information_schema', 'performance_schema', 'sys') ORDER BY TABLE_SCHEMA, TABLE_NAME;`, q)
}

func TestShowConstraintsQuery(t *testing.T) {
	g := New()
	q, err := g.ShowConstraintsQuery(querygen.Table("users"), querygen.ShowConstraintsOptions{ConstraintName: "PK_1"})
	require.NoError(t, err)
	assert.Contains(t, q, "WHERE c.TABLE_NAME = 'USERS' AND c.TABLE_SCHEMA = 'PUBLIC' AND c.CONSTRAINT_NAME = 'PK_1' ORDER BY c.CONSTRAINT_NAME;")

	q, err = g.ShowConstraintsQuery(querygen.SchemaTable("app", "users"), querygen.ShowConstraintsOptions{ConstraintName: "fk_owner", ConstraintType: "foreign key"})
	require.NoError(t, err)
	assert.Contains(t, q, "WHERE c.TABLE_NAME = 'USERS' AND c.TABLE_SCHEMA = 'APP' AND c.CONSTRAINT_NAME = 'FK_OWNER' AND c.CONSTRAINT_TYPE = 'FOREIGN KEY'")

	_, err = g.ShowConstraintsQuery(querygen.Table("users"), querygen.ShowConstraintsOptions{ColumnName: "id"})
	require.True(t, orma.IsDialectNotSupported(err))
}

func TestListSchemasQuery(t *testing.T) {
	q, err := New().ListSchemasQuery(querygen.ListSchemasOptions{Skip: []string{"staging"}})
	require.NoError(t, err)
	assert.Equal(t, `SELECT SCHEMA_NAME AS "schema" FROM INFORMATION_SCHEMA.SCHEMATA WHERE `+
		`SCHEMA_NAME NOT IN ('INFORMATION_SCHEMA', 'PERFORMANCE_SCHEMA', 'SYS', 'information_schema', 'performance_schema', 'sys', 'STAGING') ORDER BY SCHEMA_NAME;`, q)
}

func TestUnsupported(t *testing.T) {
	g := New()
	_, err := g.ShowIndexesQuery(querygen.Table("users"))
	require.True(t, orma.IsUnsupportedFeature(err))
	var e *orma.UnsupportedFeatureError
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "snowflake", e.Dialect)
	assert.Equal(t, "showIndexes", e.Operation)

	_, err = g.ListDatabasesQuery(querygen.ListDatabasesOptions{Skip: []string{"x"}})
	require.True(t, orma.IsDialectNotSupported(err))
	_, err = g.TruncateTableQuery(querygen.Table("users"), querygen.TruncateTableOptions{Cascade: true})
	require.True(t, orma.IsDialectNotSupported(err))
	_, err = g.BulkDeleteQuery(querygen.Table("users"), "", querygen.BulkDeleteOptions{Limit: 1})
	require.True(t, orma.IsDialectNotSupported(err))
}

func TestQueries(t *testing.T) {
	g := New()
	for _, tt := range []struct {
		fn   func() (string, error)
		want string
	}{
		{func() (string, error) { return g.CreateDatabaseQuery("app", querygen.CreateDatabaseOptions{Charset: "utf8"}) }, `CREATE DATABASE IF NOT EXISTS "APP" DEFAULT CHARACTER SET 'utf8';`},
		{func() (string, error) { return g.ListDatabasesQuery(querygen.ListDatabasesOptions{}) }, "SHOW DATABASES;"},
		{func() (string, error) { return g.DescribeTableQuery(querygen.SchemaTable("APP", "USERS")) }, `DESCRIBE TABLE "APP"."USERS";`},
		{func() (string, error) { return g.TruncateTableQuery(querygen.Table("users"), querygen.TruncateTableOptions{}) }, `TRUNCATE TABLE "USERS";`},
		{func() (string, error) { return g.DescribeTableQuery(querygen.SchemaTable("app", "users")) }, `DESCRIBE TABLE "APP"."USERS";`},
		{func() (string, error) {
			return g.BulkDeleteQuery(querygen.Table("logs"), "id < 10", querygen.BulkDeleteOptions{})
		}, `DELETE FROM "LOGS" WHERE id < 10;`},
		{g.VersionQuery, `SELECT CURRENT_VERSION() AS "version";`},
	} {
		q, err := tt.fn()
		require.NoError(t, err)
		assert.Equal(t, tt.want, q)
	}
}
