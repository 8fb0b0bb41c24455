// Package dialect provides the backend abstraction for orma.
//
// This package defines the interfaces used to talk to a database and the
// immutable capability descriptor of every supported backend.
//
// # Supported Dialects
//
//   - Postgres: PostgreSQL database
//   - MySQL: MySQL/MariaDB database
//   - SQLite: SQLite database
//   - Snowflake: Snowflake data warehouse (query generation only)
//
// # Descriptors
//
// Each dialect has a read-only Descriptor holding its feature flags:
//
//	d, _ := dialect.Lookup(dialect.MySQL)
//	if d.Supports.ForeignKeyChecksDisableable {
//	    // SET FOREIGN_KEY_CHECKS is available
//	}
//
// # Driver Interface
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// # Sub-packages
//
//   - dialect/sql: database/sql driver and connection manager
//   - dialect/sql/querygen: SQL text generation per dialect
package dialect
