package sql

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/syssam/orma/dialect"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.SQLite, db)

	s, err := drv.GetConnection(context.Background(), dialect.ConnOptions{})
	require.NoError(t, err)
	assert.Equal(t, dialect.SQLite, s.(*Session).Dialect())

	mock.ExpectBegin()
	mock.ExpectExec("SAVEPOINT sp_1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("RELEASE SAVEPOINT sp_1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	tx, err := s.BeginTx(context.Background(), &sql.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, tx.Exec(context.Background(), "SAVEPOINT sp_1", nil, nil))
	require.NoError(t, tx.Exec(context.Background(), "RELEASE SAVEPOINT sp_1", nil, nil))
	require.NoError(t, tx.Commit())
	require.NoError(t, drv.ReleaseConnection(s))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionBeginError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.Postgres, db)

	s, err := drv.GetConnection(context.Background(), dialect.ConnOptions{})
	require.NoError(t, err)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))
	_, err = s.BeginTx(context.Background(), nil)
	require.ErrorContains(t, err, "dialect/sql: begin: too many connections")
	require.NoError(t, drv.ReleaseConnection(s))
}

func TestReadOnlyReplica(t *testing.T) {
	primary, pmock, err := sqlmock.New()
	require.NoError(t, err)
	replica, rmock, err := sqlmock.New()
	require.NoError(t, err)
	drv := OpenDB(dialect.Postgres, primary)
	drv.SetReplica(replica)

	rmock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	s, err := drv.GetConnection(context.Background(), dialect.ConnOptions{ReadOnly: true})
	require.NoError(t, err)
	rows := &Rows{}
	require.NoError(t, s.Query(context.Background(), "SELECT 1", nil, rows))
	require.NoError(t, rows.Close())
	require.NoError(t, drv.ReleaseConnection(s))
	require.NoError(t, rmock.ExpectationsWereMet())
	require.NoError(t, pmock.ExpectationsWereMet())
}

func TestDestroyConnection(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.MySQL, db)

	s, err := drv.GetConnection(context.Background(), dialect.ConnOptions{})
	require.NoError(t, err)
	require.NoError(t, drv.DestroyConnection(s))
	assert.Zero(t, db.Stats().Idle, "destroyed connections must not return to the pool")
}

type foreignSession struct{ dialect.Session }

func TestReleaseForeignSession(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.MySQL, db)

	require.ErrorContains(t, drv.ReleaseConnection(foreignSession{}), "invalid session type")
	require.ErrorContains(t, drv.DestroyConnection(foreignSession{}), "invalid session type")
}
