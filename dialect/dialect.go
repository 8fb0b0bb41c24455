package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Dialect names.
const (
	Postgres  = "postgres"
	MySQL     = "mysql"
	SQLite    = "sqlite"
	Snowflake = "snowflake"
)

// ExecQuerier wraps the 2 database operations.
type ExecQuerier interface {
	// Exec executes a query that does not return records. For example, in SQL, INSERT or UPDATE.
	// It scans the result into the pointer v. For SQL drivers, it is dialect/sql.Result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query that returns rows, typically a SELECT in SQL.
	// It scans the result into the pointer v. For SQL drivers, it is *dialect/sql.Rows.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all necessary operations for runtime clients.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	Tx(context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx wraps the Exec and Query operations in transaction.
type Tx interface {
	ExecQuerier
	Commit() error
	Rollback() error
}

// ConnOptions configures a GetConnection request.
type ConnOptions struct {
	// ReadOnly routes the request to a read replica when one is configured.
	ReadOnly bool
}

// Session is a single pinned connection. Statements issued through it run
// on the same physical connection, in order.
type Session interface {
	ExecQuerier
	// BeginTx starts a transaction bound to this session.
	BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error)
}

// ConnManager hands out pinned sessions from a pool.
type ConnManager interface {
	GetConnection(ctx context.Context, opts ConnOptions) (Session, error)
	// ReleaseConnection returns a healthy session to the pool.
	ReleaseConnection(Session) error
	// DestroyConnection closes the session and keeps it out of the pool.
	DestroyConnection(Session) error
}

// Supports lists the capability flags of a backend.
type Supports struct {
	// Savepoints reports SAVEPOINT / RELEASE / ROLLBACK TO support.
	Savepoints bool
	// ForeignKeyChecksDisableable reports whether foreign key enforcement
	// can be switched off for a session.
	ForeignKeyChecksDisableable bool
	// TruncateCascade reports TRUNCATE ... CASCADE support.
	TruncateCascade bool
	// DeleteLimit reports DELETE ... LIMIT support.
	DeleteLimit bool
	// Schemas reports whether the backend has named schemas inside a database.
	Schemas bool
	// IsolationLevels reports whether BEGIN accepts an isolation level.
	IsolationLevels bool
}

// Descriptor is the immutable identity of a backend. One Descriptor
// exists per dialect; it is shared by reference and never mutated.
type Descriptor struct {
	Name     string
	Supports Supports
	// DefaultSchema is used when a table reference carries no schema.
	DefaultSchema string
}

var descriptors = map[string]*Descriptor{
	Postgres: {
		Name:          Postgres,
		DefaultSchema: "public",
		Supports: Supports{
			Savepoints:      true,
			TruncateCascade: true,
			Schemas:         true,
			IsolationLevels: true,
		},
	},
	MySQL: {
		Name: MySQL,
		Supports: Supports{
			Savepoints:                  true,
			ForeignKeyChecksDisableable: true,
			DeleteLimit:                 true,
			IsolationLevels:             true,
		},
	},
	SQLite: {
		Name:          SQLite,
		DefaultSchema: "main",
		Supports: Supports{
			Savepoints:                  true,
			ForeignKeyChecksDisableable: true,
			DeleteLimit:                 true,
		},
	},
	Snowflake: {
		Name:          Snowflake,
		DefaultSchema: "PUBLIC",
		Supports: Supports{
			Schemas: true,
		},
	},
}

// Lookup returns the descriptor of the named dialect. Driver names that
// carry a dialect prefix (e.g. "sqlite3", "postgres+otel") resolve to it.
func Lookup(name string) (*Descriptor, error) {
	if d, ok := descriptors[name]; ok {
		return d, nil
	}
	for _, n := range Names() {
		if strings.HasPrefix(name, n) {
			return descriptors[n], nil
		}
	}
	switch name {
	case "pgx":
		return descriptors[Postgres], nil
	}
	return nil, fmt.Errorf("dialect: unknown dialect %q", name)
}

// Names returns the known dialect names in a stable order.
func Names() []string {
	return []string{Postgres, MySQL, SQLite, Snowflake}
}
