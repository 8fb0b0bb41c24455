// Package sql implements the dialect contracts on top of database/sql.
//
// # Driver
//
// Driver wraps a *sql.DB. It satisfies dialect.Driver for pooled, one-off
// statements and dialect.ConnManager for callers that need a pinned
// connection (transactions, session-scoped settings):
//
//	drv, err := sql.Open(dialect.Postgres, "pgx", dsn)
//	if err != nil {
//	    return err
//	}
//	s, err := drv.GetConnection(ctx, dialect.ConnOptions{})
//	if err != nil {
//	    return err
//	}
//	defer drv.ReleaseConnection(s)
//
// A session whose state can no longer be trusted (for example after a
// failed rollback) must be passed to DestroyConnection instead; the
// physical connection is then dropped from the pool.
//
// # Session Variables
//
// Variables attached to the context are applied with SET before every
// statement and reset before a borrowed connection returns to the pool:
//
//	ctx = sql.WithVar(ctx, "search_path", "tenant_1")
//
// # Instrumentation
//
// LogDriver logs every statement through log/slog and keeps QueryStats.
package sql
