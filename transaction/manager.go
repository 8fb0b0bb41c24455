package transaction

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/syssam/orma"
	"github.com/syssam/orma/dialect"
	"github.com/syssam/orma/dialect/sql/querygen"
)

// Manager runs transactions over a connection manager.
type Manager struct {
	conns    dialect.ConnManager
	gen      querygen.Generator
	log       *slog.Logger
	nestMode  NestMode
	isolation sql.IsolationLevel
	ambient   bool
	stats     counters
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if l == nil {
			l = slog.New(slog.DiscardHandler)
		}
		m.log = l
	}
}

// WithNestMode sets the nest mode used when Options.NestMode is empty.
func WithNestMode(mode NestMode) ManagerOption {
	return func(m *Manager) { m.nestMode = mode }
}

// WithIsolation sets the isolation level of new root transactions that
// do not request one. Savepoints and reused transactions keep the level
// of the transaction they join.
func WithIsolation(level sql.IsolationLevel) ManagerOption {
	return func(m *Manager) { m.isolation = level }
}

// WithoutAmbient disables context propagation. Nested requests then only
// see a transaction passed explicitly through Options.Transaction.
func WithoutAmbient() ManagerOption {
	return func(m *Manager) { m.ambient = false }
}

// NewManager returns a Manager. The generator supplies savepoint
// statements and the dialect capabilities.
func NewManager(conns dialect.ConnManager, gen querygen.Generator, opts ...ManagerOption) *Manager {
	m := &Manager{
		conns:    conns,
		gen:      gen,
		log:      slog.New(slog.DiscardHandler),
		nestMode: Separate,
		ambient:  true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NestMode returns the default nest mode.
func (m *Manager) NestMode() NestMode { return m.nestMode }

// Isolation returns the default isolation level of root transactions.
func (m *Manager) Isolation() sql.IsolationLevel { return m.isolation }

func (m *Manager) rootOptions(opts Options) Options {
	if opts.Isolation == sql.LevelDefault {
		opts.Isolation = m.isolation
	}
	return opts
}

type txCtxKey struct{}

// NewContext returns a new context with the given transaction attached.
func NewContext(parent context.Context, tx *Tx) context.Context {
	return context.WithValue(parent, txCtxKey{}, tx)
}

// FromContext returns the transaction stored in ctx, if any.
func FromContext(ctx context.Context) *Tx {
	tx, _ := ctx.Value(txCtxKey{}).(*Tx)
	return tx
}

// Current returns the active transaction of ctx visible to m, or nil.
func (m *Manager) Current(ctx context.Context) *Tx {
	if !m.ambient {
		return nil
	}
	if tx := FromContext(ctx); tx != nil && tx.m == m {
		return tx
	}
	return nil
}

func (m *Manager) withTx(ctx context.Context, tx *Tx) context.Context {
	if !m.ambient {
		return ctx
	}
	return NewContext(ctx, tx)
}

// Run executes fn in a managed transaction. Depending on the nest mode
// and the active transaction, fn runs in a new transaction, a savepoint,
// or the active transaction itself. New transactions are committed when
// fn returns nil and rolled back otherwise; a reused transaction is left
// to its creator. A failed rollback is logged and fn's error is returned.
// A commit that fails before finalizing, such as one rejected by a commit
// hook, rolls the transaction back and returns the commit error.
func (m *Manager) Run(ctx context.Context, opts Options, fn func(context.Context, *Tx) error) error {
	mode := opts.NestMode
	if mode == "" {
		mode = m.nestMode
	}
	if _, err := ParseNestMode(string(mode)); err != nil {
		return err
	}
	var active *Tx
	if mode != Separate {
		active = opts.Transaction
		if active == nil {
			active = m.Current(ctx)
		}
	}
	if active != nil {
		if err := compatible(active, opts); err != nil {
			return err
		}
		if err := active.usable(); err != nil {
			return err
		}
	}
	if active != nil && mode == Reuse {
		m.stats.reused.Add(1)
		m.log.Debug("transaction reuse", "tx", active.id)
		return fn(m.withTx(ctx, active), active)
	}
	var parent *Tx
	if mode == Savepoint {
		parent = active
	}
	if parent == nil {
		opts = m.rootOptions(opts)
	}
	tx := newTx(m, parent, opts)
	if err := tx.prepare(ctx); err != nil {
		return err
	}
	tx.managed = true
	return m.run(ctx, tx, fn)
}

func (m *Manager) run(ctx context.Context, tx *Tx, fn func(context.Context, *Tx) error) (err error) {
	defer func() {
		if v := recover(); v != nil {
			m.rollbackSuppressed(ctx, tx, fmt.Errorf("panic: %v", v))
			panic(v)
		}
	}()
	if err := fn(m.withTx(ctx, tx), tx); err != nil {
		m.rollbackSuppressed(ctx, tx, err)
		return err
	}
	if err := tx.commit(ctx); err != nil {
		// A commit hook that did not call next, or a failed RELEASE
		// SAVEPOINT, leaves tx prepared.
		if tx.State() == StatePrepared {
			m.rollbackSuppressed(ctx, tx, err)
		}
		return err
	}
	return nil
}

// rollbackSuppressed rolls tx back after cause. A rollback failure is
// logged and counted, never returned.
func (m *Manager) rollbackSuppressed(ctx context.Context, tx *Tx, cause error) {
	if err := tx.rollback(context.WithoutCancel(ctx)); err != nil {
		m.stats.rollbackFailures.Add(1)
		m.log.Warn("transaction rollback failed", "tx", tx, "error", &orma.RollbackError{Err: err, Cause: cause})
	}
}

// RunValue is the value returning form of Manager.Run.
func RunValue[T any](ctx context.Context, m *Manager, opts Options, fn func(context.Context, *Tx) (T, error)) (T, error) {
	var v T
	err := m.Run(ctx, opts, func(ctx context.Context, tx *Tx) error {
		var err error
		v, err = fn(ctx, tx)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// Begin starts an unmanaged transaction. The caller must Commit or
// Rollback it; it is not attached to any context. With the Savepoint nest
// mode and Options.Transaction set, a savepoint is created under it.
func (m *Manager) Begin(ctx context.Context, opts Options) (*Tx, error) {
	var parent *Tx
	if opts.NestMode == Savepoint && opts.Transaction != nil {
		parent = opts.Transaction
		if err := compatible(parent, opts); err != nil {
			return nil, err
		}
	}
	if parent == nil {
		opts = m.rootOptions(opts)
	}
	tx := newTx(m, parent, opts)
	if err := tx.prepare(ctx); err != nil {
		return nil, err
	}
	return tx, nil
}

// releaseSession returns the session of a finished root transaction to
// the pool, or destroys it when finalization failed.
func (m *Manager) releaseSession(tx *Tx, finishErr error) {
	if finishErr == nil {
		if err := m.conns.ReleaseConnection(tx.session); err != nil {
			m.log.Warn("release connection failed", "tx", tx.id, "error", err)
		}
		return
	}
	m.log.Warn("destroying connection after failed transaction", "tx", tx.id, "error", finishErr)
	if err := m.conns.DestroyConnection(tx.session); err != nil {
		m.log.Warn("destroy connection failed", "tx", tx.id, "error", err)
	}
}

// compatible reports whether a request with opts can join active.
func compatible(active *Tx, opts Options) error {
	if opts.Isolation != sql.LevelDefault && opts.Isolation != active.opts.Isolation {
		return &orma.TransactionCompatibilityError{
			Option:    "isolation",
			Requested: opts.Isolation.String(),
			Existing:  active.opts.Isolation.String(),
		}
	}
	if active.opts.ReadOnly && !opts.ReadOnly {
		return &orma.TransactionCompatibilityError{
			Option:    "readOnly",
			Requested: strconv.FormatBool(opts.ReadOnly),
			Existing:  strconv.FormatBool(active.opts.ReadOnly),
		}
	}
	return nil
}

type counters struct {
	started, committed, rolledBack atomic.Int64
	savepoints, reused             atomic.Int64
	rollbackFailures               atomic.Int64
}

// Stats is a snapshot of the manager counters.
type Stats struct {
	Started          int64
	Committed        int64
	RolledBack       int64
	Savepoints       int64
	Reused           int64
	RollbackFailures int64
}

// Stats returns a snapshot of the counters. Savepoints count as started
// transactions too.
func (m *Manager) Stats() Stats {
	return Stats{
		Started:          m.stats.started.Load(),
		Committed:        m.stats.committed.Load(),
		RolledBack:       m.stats.rolledBack.Load(),
		Savepoints:       m.stats.savepoints.Load(),
		Reused:           m.stats.reused.Load(),
		RollbackFailures: m.stats.rollbackFailures.Load(),
	}
}

func (s Stats) String() string {
	return fmt.Sprintf("started=%d committed=%d rolled_back=%d savepoints=%d reused=%d rollback_failures=%d",
		s.Started, s.Committed, s.RolledBack, s.Savepoints, s.Reused, s.RollbackFailures)
}
