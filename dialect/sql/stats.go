package sql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/syssam/orma/dialect"
)

// QueryStats holds statement execution counters.
type QueryStats struct {
	Queries       atomic.Int64
	Execs         atomic.Int64
	TotalDuration atomic.Int64 // nanoseconds
	SlowQueries   atomic.Int64
	Errors        atomic.Int64
}

// Snapshot returns a point-in-time copy of the counters.
func (s *QueryStats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Queries:       s.Queries.Load(),
		Execs:         s.Execs.Load(),
		TotalDuration: time.Duration(s.TotalDuration.Load()),
		SlowQueries:   s.SlowQueries.Load(),
		Errors:        s.Errors.Load(),
	}
}

// StatsSnapshot is a point-in-time snapshot of query statistics.
type StatsSnapshot struct {
	Queries       int64
	Execs         int64
	TotalDuration time.Duration
	SlowQueries   int64
	Errors        int64
}

// AvgDuration returns the mean statement duration.
func (s StatsSnapshot) AvgDuration() time.Duration {
	total := s.Queries + s.Execs
	if total == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(total)
}

// String returns a human-readable summary of the statistics.
func (s StatsSnapshot) String() string {
	return fmt.Sprintf("queries=%d execs=%d duration=%s avg=%s slow=%d errors=%d",
		s.Queries, s.Execs, s.TotalDuration, s.AvgDuration(), s.SlowQueries, s.Errors)
}

// SlowQueryHook is called when a statement exceeds the slow threshold.
type SlowQueryHook func(ctx context.Context, query string, args []any, duration time.Duration)

// LogDriver wraps a Driver, logging every statement at debug level and
// collecting QueryStats. Sessions and transactions it hands out are
// instrumented the same way.
type LogDriver struct {
	*Driver
	logger        *slog.Logger
	stats         *QueryStats
	slowThreshold time.Duration
	slowHook      SlowQueryHook
}

// LogOption configures the LogDriver.
type LogOption func(*LogDriver)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) LogOption {
	return func(d *LogDriver) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithSlowThreshold sets the threshold for slow statement detection.
// Default is 100ms.
func WithSlowThreshold(t time.Duration) LogOption {
	return func(d *LogDriver) {
		d.slowThreshold = t
	}
}

// WithSlowQueryHook sets a callback for slow statements. Without a hook,
// slow statements are logged at warn level.
func WithSlowQueryHook(hook SlowQueryHook) LogOption {
	return func(d *LogDriver) {
		d.slowHook = hook
	}
}

// NewLogDriver wraps drv.
//
//	drv, _ := sql.Open(dialect.Postgres, "pgx", dsn)
//	ld := sql.NewLogDriver(drv, sql.WithLogger(logger))
//	fmt.Println(ld.Stats().Snapshot())
func NewLogDriver(drv *Driver, opts ...LogOption) *LogDriver {
	d := &LogDriver{
		Driver:        drv,
		logger:        slog.New(slog.DiscardHandler),
		stats:         &QueryStats{},
		slowThreshold: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Stats returns the live counters.
func (d *LogDriver) Stats() *QueryStats { return d.stats }

// Query executes a query and records it.
func (d *LogDriver) Query(ctx context.Context, query string, args, v any) error {
	return d.observe(ctx, "query", "", query, args, func() error {
		return d.Driver.Query(ctx, query, args, v)
	})
}

// Exec executes a statement and records it.
func (d *LogDriver) Exec(ctx context.Context, query string, args, v any) error {
	return d.observe(ctx, "exec", "", query, args, func() error {
		return d.Driver.Exec(ctx, query, args, v)
	})
}

// Tx starts an instrumented transaction.
func (d *LogDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	d.logger.DebugContext(ctx, "begin transaction")
	return &logTx{Tx: tx, d: d, scope: "tx"}, nil
}

// GetConnection returns an instrumented session.
func (d *LogDriver) GetConnection(ctx context.Context, opts dialect.ConnOptions) (dialect.Session, error) {
	s, err := d.Driver.GetConnection(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &logSession{Session: s.(*Session), d: d}, nil
}

// ReleaseConnection unwraps an instrumented session before releasing it.
func (d *LogDriver) ReleaseConnection(s dialect.Session) error {
	return d.Driver.ReleaseConnection(unwrapSession(s))
}

// DestroyConnection unwraps an instrumented session before destroying it.
func (d *LogDriver) DestroyConnection(s dialect.Session) error {
	d.logger.Warn("destroying connection")
	return d.Driver.DestroyConnection(unwrapSession(s))
}

func unwrapSession(s dialect.Session) dialect.Session {
	if ls, ok := s.(*logSession); ok {
		return ls.Session
	}
	return s
}

func (d *LogDriver) observe(ctx context.Context, kind, scope, query string, args any, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	if kind == "query" {
		d.stats.Queries.Add(1)
	} else {
		d.stats.Execs.Add(1)
	}
	d.stats.TotalDuration.Add(int64(elapsed))
	attrs := []any{"query", query, "args", args, "duration", elapsed}
	if scope != "" {
		attrs = append(attrs, "scope", scope)
	}
	if err != nil {
		d.stats.Errors.Add(1)
		d.logger.DebugContext(ctx, kind+" failed", append(attrs, "error", err)...)
	} else {
		d.logger.DebugContext(ctx, kind, attrs...)
	}
	if elapsed > d.slowThreshold {
		d.stats.SlowQueries.Add(1)
		if d.slowHook != nil {
			argv, _ := args.([]any)
			d.slowHook(ctx, query, argv, elapsed)
		} else {
			d.logger.WarnContext(ctx, "slow query detected", attrs...)
		}
	}
	return err
}

type logSession struct {
	*Session
	d *LogDriver
}

func (s *logSession) Query(ctx context.Context, query string, args, v any) error {
	return s.d.observe(ctx, "query", "session", query, args, func() error {
		return s.Session.Query(ctx, query, args, v)
	})
}

func (s *logSession) Exec(ctx context.Context, query string, args, v any) error {
	return s.d.observe(ctx, "exec", "session", query, args, func() error {
		return s.Session.Exec(ctx, query, args, v)
	})
}

func (s *logSession) BeginTx(ctx context.Context, opts *sql.TxOptions) (dialect.Tx, error) {
	tx, err := s.Session.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	s.d.logger.DebugContext(ctx, "begin transaction", "scope", "session")
	return &logTx{Tx: tx, d: s.d, scope: "session tx"}, nil
}

type logTx struct {
	dialect.Tx
	d     *LogDriver
	scope string
}

func (tx *logTx) Query(ctx context.Context, query string, args, v any) error {
	return tx.d.observe(ctx, "query", tx.scope, query, args, func() error {
		return tx.Tx.Query(ctx, query, args, v)
	})
}

func (tx *logTx) Exec(ctx context.Context, query string, args, v any) error {
	return tx.d.observe(ctx, "exec", tx.scope, query, args, func() error {
		return tx.Tx.Exec(ctx, query, args, v)
	})
}

func (tx *logTx) Commit() error {
	tx.d.logger.Debug("commit transaction", "scope", tx.scope)
	return tx.Tx.Commit()
}

func (tx *logTx) Rollback() error {
	tx.d.logger.Debug("rollback transaction", "scope", tx.scope)
	return tx.Tx.Rollback()
}

var (
	_ dialect.Driver      = (*LogDriver)(nil)
	_ dialect.ConnManager = (*LogDriver)(nil)
	_ dialect.Session     = (*logSession)(nil)
	_ dialect.Tx          = (*logTx)(nil)
)
