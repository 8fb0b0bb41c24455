package sql

import (
	"context"
	"errors"
	"testing"

	"github.com/syssam/orma/dialect"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithVars(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	drv := OpenDB(dialect.Postgres, db)

	mock.ExpectExec("SET search_path = 'tenant_1'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("RESET search_path").WillReturnResult(sqlmock.NewResult(0, 0))
	rows := &Rows{}
	err = drv.Query(WithVar(context.Background(), "search_path", "tenant_1"), "SELECT 1", []any{}, rows)
	require.NoError(t, err)
	require.NoError(t, rows.Close(), "rows should be closed to release the connection")
	require.NoError(t, mock.ExpectationsWereMet())

	// Variables set on a pinned session are reset once, on release.
	s, err := drv.GetConnection(context.Background(), dialect.ConnOptions{})
	require.NoError(t, err)
	mock.ExpectExec("SET search_path = 'tenant_2'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM users").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("SET search_path = 'tenant_2'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM posts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("RESET search_path").WillReturnResult(sqlmock.NewResult(0, 0))
	ctx := WithVar(context.Background(), "search_path", "tenant_2")
	require.NoError(t, s.Exec(ctx, "DELETE FROM users", nil, nil))
	require.NoError(t, s.Exec(ctx, "DELETE FROM posts", nil, nil))
	require.NoError(t, drv.ReleaseConnection(s))
	require.NoError(t, mock.ExpectationsWereMet())

	// Variables set inside a transaction of a session outlive the commit.
	s, err = drv.GetConnection(context.Background(), dialect.ConnOptions{})
	require.NoError(t, err)
	mock.ExpectBegin()
	mock.ExpectExec("SET search_path = 'tenant_4'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE users").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectExec("RESET search_path").WillReturnResult(sqlmock.NewResult(0, 0))
	stx, err := s.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, stx.Exec(WithVar(context.Background(), "search_path", "tenant_4"), "UPDATE users SET active = true", nil, nil))
	require.NoError(t, stx.Commit())
	require.NoError(t, drv.ReleaseConnection(s))
	require.NoError(t, mock.ExpectationsWereMet())

	// Released sessions without variables are closed as is.
	s, err = drv.GetConnection(context.Background(), dialect.ConnOptions{})
	require.NoError(t, err)
	require.NoError(t, drv.ReleaseConnection(s))
	require.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectBegin()
	mock.ExpectExec("SET search_path = 'tenant_3'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectCommit()
	tx, err := drv.Tx(context.Background())
	require.NoError(t, err)
	err = tx.Query(WithVar(context.Background(), "search_path", "tenant_3"), "SELECT 1", []any{}, rows)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVarFromContext(t *testing.T) {
	ctx := WithVar(context.Background(), "a", "1")
	ctx2 := WithIntVar(ctx, "a", 2)

	v, ok := VarFromContext(ctx2, "a")
	require.True(t, ok)
	assert.Equal(t, "2", v)

	// The parent context is not affected by the child.
	v, ok = VarFromContext(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, "1", v)

	_, ok = VarFromContext(ctx, "b")
	assert.False(t, ok)
}

func TestDialectMethod(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{dialect.Postgres, dialect.Postgres},
		{dialect.MySQL, dialect.MySQL},
		{dialect.SQLite, dialect.SQLite},
		{"sqlite3", dialect.SQLite},
		{"pgx", dialect.Postgres},
		{"unknown", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, _, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			assert.Equal(t, tt.want, OpenDB(tt.name, db).Dialect())
		})
	}
}

func TestDriverQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.Postgres, db)

	t.Run("scan_strings", func(t *testing.T) {
		mock.ExpectQuery("SELECT table_name FROM information_schema.tables").
			WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("users").AddRow("posts"))
		rows := &Rows{}
		err := drv.Query(context.Background(), "SELECT table_name FROM information_schema.tables", nil, rows)
		require.NoError(t, err)
		names, err := ScanStrings(rows)
		require.NoError(t, err)
		assert.Equal(t, []string{"users", "posts"}, names)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query_with_args", func(t *testing.T) {
		mock.ExpectQuery(`SELECT name FROM users WHERE id = \$1`).
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Alice"))
		rows := &Rows{}
		err := drv.Query(context.Background(), "SELECT name FROM users WHERE id = $1", []any{1}, rows)
		require.NoError(t, err)
		require.NoError(t, rows.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query_error", func(t *testing.T) {
		mock.ExpectQuery("SELECT").WillReturnError(errors.New("database error"))
		err := drv.Query(context.Background(), "SELECT", []any{}, &Rows{})
		require.ErrorContains(t, err, "dialect/sql: query: database error")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid_destination", func(t *testing.T) {
		var n int
		err := drv.Query(context.Background(), "SELECT 1", []any{}, &n)
		require.ErrorContains(t, err, "expect *sql.Rows")
	})

	t.Run("invalid_args", func(t *testing.T) {
		err := drv.Query(context.Background(), "SELECT 1", 1, &Rows{})
		require.ErrorContains(t, err, "expect []any for args")
	})
}

func TestDriverExec(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.MySQL, db)

	t.Run("result", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM `users`").WillReturnResult(sqlmock.NewResult(0, 4))
		var res Result
		err := drv.Exec(context.Background(), "DELETE FROM `users`", []any{}, &res)
		require.NoError(t, err)
		n, err := res.RowsAffected()
		require.NoError(t, err)
		assert.EqualValues(t, 4, n)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("exec_error", func(t *testing.T) {
		mock.ExpectExec("TRUNCATE").WillReturnError(errors.New("constraint violation"))
		err := drv.Exec(context.Background(), "TRUNCATE `users`", nil, nil)
		require.ErrorContains(t, err, "dialect/sql: exec: constraint violation")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid_destination", func(t *testing.T) {
		var n int
		err := drv.Exec(context.Background(), "SELECT 1", []any{}, &n)
		require.ErrorContains(t, err, "expect *sql.Result")
	})
}

func TestDriverTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.Postgres, db)

	t.Run("commit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()
		tx, err := drv.Tx(context.Background())
		require.NoError(t, err)
		require.NoError(t, tx.Exec(context.Background(), "INSERT INTO users (name) VALUES ('test')", []any{}, nil))
		require.NoError(t, tx.Commit())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO users").WillReturnError(errors.New("error"))
		mock.ExpectRollback()
		tx, err := drv.Tx(context.Background())
		require.NoError(t, err)
		require.Error(t, tx.Exec(context.Background(), "INSERT INTO users (name) VALUES ('test')", []any{}, nil))
		require.NoError(t, tx.Rollback())
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestIsValidIdentifier(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"valid_simple", "foo", true},
		{"valid_with_dot", "schema.table", true},
		{"valid_starting_underscore", "_private", true},
		{"invalid_empty", "", false},
		{"invalid_starting_number", "123foo", false},
		{"invalid_with_quote", "foo'bar", false},
		{"invalid_with_semicolon", "foo;DROP TABLE", false},
		{"invalid_too_long", string(make([]byte, 129)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isValidIdentifier(tt.input))
		})
	}
}

func TestEscapeStringValue(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no_escaping_needed", "hello", "hello"},
		{"single_quote", "it's", "it''s"},
		{"backslash", `path\to\file`, `path\\to\\file`},
		{"both", `it's a \test`, `it''s a \\test`},
		{"injection_attempt", "'; DROP TABLE users; --", "''; DROP TABLE users; --"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, escapeStringValue(tt.input))
		})
	}
}

func TestWithVarsInvalidIdentifier(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	drv := OpenDB(dialect.Postgres, db)

	err = drv.Query(WithVar(context.Background(), "foo; DROP TABLE users; --", "bar"), "SELECT 1", []any{}, &Rows{})
	require.ErrorContains(t, err, "invalid session variable name")
}
