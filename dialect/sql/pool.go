package sql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/syssam/orma/dialect"
)

// Session is a connection pinned out of the pool. Every statement issued
// through it runs on the same physical connection.
type Session struct {
	Conn
	conn *sql.Conn
}

// GetConnection implements dialect.ConnManager.
func (d *Driver) GetConnection(ctx context.Context, opts dialect.ConnOptions) (dialect.Session, error) {
	db := d.DB()
	if opts.ReadOnly && d.replica != nil {
		db = d.replica
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: get connection: %w", err)
	}
	return &Session{Conn: Conn{ExecQuerier: conn, dialect: d.dialect, vars: &varSet{}}, conn: conn}, nil
}

// ReleaseConnection implements dialect.ConnManager. Session variables set
// through the session or its transactions are reset first; a connection
// that cannot be reset is destroyed.
func (d *Driver) ReleaseConnection(s dialect.Session) error {
	ss, err := sessionOf(s)
	if err != nil {
		return err
	}
	if names := ss.vars.take(); len(names) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, name := range names {
			q := resetVarQuery(ss.dialect, name)
			if q == "" {
				continue
			}
			if _, err := ss.conn.ExecContext(ctx, q); err != nil {
				return errors.Join(fmt.Errorf("dialect/sql: reset %s: %w", name, err), d.DestroyConnection(s))
			}
		}
	}
	return ss.conn.Close()
}

// DestroyConnection implements dialect.ConnManager. The physical connection
// is marked bad so database/sql discards it instead of pooling it.
func (d *Driver) DestroyConnection(s dialect.Session) error {
	ss, err := sessionOf(s)
	if err != nil {
		return err
	}
	rerr := ss.conn.Raw(func(any) error { return driver.ErrBadConn })
	if errors.Is(rerr, driver.ErrBadConn) {
		rerr = nil
	}
	err = ss.conn.Close()
	if errors.Is(err, sql.ErrConnDone) {
		err = nil
	}
	return errors.Join(rerr, err)
}

func sessionOf(s dialect.Session) (*Session, error) {
	ss, ok := s.(*Session)
	if !ok {
		return nil, fmt.Errorf("dialect/sql: invalid session type %T", s)
	}
	return ss, nil
}

// BeginTx starts a transaction on the pinned connection.
func (s *Session) BeginTx(ctx context.Context, opts *sql.TxOptions) (dialect.Tx, error) {
	tx, err := s.conn.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: begin: %w", err)
	}
	return &Tx{Conn: Conn{ExecQuerier: tx, dialect: s.dialect, vars: s.vars}, Tx: tx}, nil
}

// Dialect returns the dialect of the session.
func (s *Session) Dialect() string { return dialectOf(s.dialect) }

var _ dialect.Session = (*Session)(nil)
