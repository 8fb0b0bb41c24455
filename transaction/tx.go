package transaction

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/syssam/orma"
	"github.com/syssam/orma/dialect"
)

// State is the lifecycle state of a transaction.
type State int

// Transaction states. Committed and RolledBack are terminal.
const (
	StatePending State = iota
	StatePrepared
	StateCommitted
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StatePrepared:
		return "prepared"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled back"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Committer is the interface that wraps the Commit method.
type Committer interface {
	Commit(context.Context, *Tx) error
}

// CommitFunc is an adapter to allow the use of ordinary function as Committer.
type CommitFunc func(context.Context, *Tx) error

// Commit calls f(ctx, tx).
func (f CommitFunc) Commit(ctx context.Context, tx *Tx) error { return f(ctx, tx) }

// CommitHook defines the "commit middleware". A function that gets a Committer
// and returns a Committer. For example:
//
//	hook := func(next transaction.Committer) transaction.Committer {
//		return transaction.CommitFunc(func(ctx context.Context, tx *transaction.Tx) error {
//			if err := next.Commit(ctx, tx); err != nil {
//				return err
//			}
//			// Publish events after the data is durable.
//			return nil
//		})
//	}
type CommitHook func(Committer) Committer

// Rollbacker is the interface that wraps the Rollback method.
type Rollbacker interface {
	Rollback(context.Context, *Tx) error
}

// RollbackFunc is an adapter to allow the use of ordinary function as Rollbacker.
type RollbackFunc func(context.Context, *Tx) error

// Rollback calls f(ctx, tx).
func (f RollbackFunc) Rollback(ctx context.Context, tx *Tx) error { return f(ctx, tx) }

// RollbackHook defines the "rollback middleware", see CommitHook.
type RollbackHook func(Rollbacker) Rollbacker

// Tx is one unit of atomic work. A root Tx owns a pinned session and a
// database transaction; a savepoint Tx shares its root's session.
type Tx struct {
	id        string
	m         *Manager
	parent    *Tx
	opts      Options
	savepoint string

	// root only.
	session dialect.Session
	tx      dialect.Tx

	mu         sync.Mutex
	state      State
	managed    bool
	onCommit   []CommitHook
	onRollback []RollbackHook
}

func newTx(m *Manager, parent *Tx, opts Options) *Tx {
	opts.Transaction = nil
	if parent != nil {
		opts.Isolation, opts.ReadOnly = parent.opts.Isolation, parent.opts.ReadOnly
	}
	return &Tx{id: uuid.NewString(), m: m, parent: parent, opts: opts}
}

// ID returns the unique identity of the transaction.
func (tx *Tx) ID() string { return tx.id }

// Parent returns the enclosing transaction of a savepoint, or nil.
func (tx *Tx) Parent() *Tx { return tx.parent }

// Savepoint returns the savepoint name, or "" for a root transaction.
func (tx *Tx) Savepoint() string { return tx.savepoint }

// Options returns the effective options of the transaction.
func (tx *Tx) Options() Options { return tx.opts }

// State returns the current lifecycle state.
func (tx *Tx) State() State {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.state
}

func (tx *Tx) root() *Tx {
	r := tx
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// Exec implements dialect.ExecQuerier on the transaction's connection.
func (tx *Tx) Exec(ctx context.Context, query string, args, v any) error {
	if err := tx.usable(); err != nil {
		return err
	}
	return tx.root().tx.Exec(ctx, query, args, v)
}

// Query implements dialect.ExecQuerier on the transaction's connection.
func (tx *Tx) Query(ctx context.Context, query string, args, v any) error {
	if err := tx.usable(); err != nil {
		return err
	}
	return tx.root().tx.Query(ctx, query, args, v)
}

func (tx *Tx) usable() error {
	switch tx.State() {
	case StatePending:
		return orma.ErrNoConnection
	case StateCommitted, StateRolledBack:
		return orma.ErrTxDone
	}
	return nil
}

// OnCommit adds a hook to call on commit. Hooks of a savepoint move to
// its parent once the savepoint is released.
func (tx *Tx) OnCommit(f CommitHook) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.onCommit = append(tx.onCommit, f)
}

// OnRollback adds a hook to call on rollback.
func (tx *Tx) OnRollback(f RollbackHook) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.onRollback = append(tx.onRollback, f)
}

// Commit commits an unmanaged transaction. Transactions handed out by
// Manager.Run are finalized by Run and fail with orma.ErrTxReused. When a
// commit hook rejects the commit or a savepoint cannot be released, the
// transaction stays prepared and must be rolled back.
func (tx *Tx) Commit(ctx context.Context) error {
	if tx.isManaged() {
		return orma.ErrTxReused
	}
	return tx.commit(ctx)
}

// Rollback rolls back an unmanaged transaction, see Commit.
func (tx *Tx) Rollback(ctx context.Context) error {
	if tx.isManaged() {
		return orma.ErrTxReused
	}
	return tx.rollback(ctx)
}

func (tx *Tx) isManaged() bool {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.managed
}

// prepare binds the transaction to a connection: a new session for a
// root, a savepoint on the root's session otherwise. No state changes
// when it fails.
func (tx *Tx) prepare(ctx context.Context) error {
	m := tx.m
	if tx.parent != nil {
		if err := tx.parent.usable(); err != nil {
			return err
		}
		name := "orma_sp_" + strings.ReplaceAll(tx.id, "-", "")[:16]
		q, err := m.gen.CreateSavepointQuery(name)
		if err != nil {
			return err
		}
		if err := tx.root().tx.Exec(ctx, q, nil, nil); err != nil {
			return fmt.Errorf("transaction: create savepoint: %w", err)
		}
		tx.savepoint = name
		m.stats.savepoints.Add(1)
	} else {
		if tx.opts.Isolation != sql.LevelDefault && !m.gen.Dialect().Supports.IsolationLevels {
			return &orma.UnsupportedFeatureError{Dialect: m.gen.Dialect().Name, Feature: "isolation levels", Operation: "begin"}
		}
		s, err := m.conns.GetConnection(ctx, dialect.ConnOptions{ReadOnly: tx.opts.ReadOnly})
		if err != nil {
			return fmt.Errorf("transaction: get connection: %w", err)
		}
		dtx, err := s.BeginTx(ctx, tx.opts.txOptions())
		if err != nil {
			if rerr := m.conns.ReleaseConnection(s); rerr != nil {
				m.log.Warn("release connection failed", "tx", tx.id, "error", rerr)
			}
			return err
		}
		tx.session, tx.tx = s, dtx
	}
	tx.mu.Lock()
	tx.state = StatePrepared
	tx.mu.Unlock()
	m.stats.started.Add(1)
	m.log.Debug("transaction begin", "tx", tx.id, "parent", tx.parentID(), "savepoint", tx.savepoint)
	return nil
}

func (tx *Tx) parentID() string {
	if tx.parent == nil {
		return ""
	}
	return tx.parent.id
}

// finish moves a prepared transaction into a terminal state. It returns
// the hooks registered so far, or orma.ErrTxDone if the transaction is
// not prepared.
func (tx *Tx) finish(state State) ([]CommitHook, []RollbackHook, error) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	switch tx.state {
	case StatePending:
		return nil, nil, orma.ErrNoConnection
	case StateCommitted, StateRolledBack:
		return nil, nil, orma.ErrTxDone
	}
	tx.state = state
	return tx.onCommit, tx.onRollback, nil
}

func (tx *Tx) commit(ctx context.Context) error {
	if err := tx.usable(); err != nil {
		return err
	}
	if tx.parent != nil {
		return tx.release(ctx)
	}
	tx.mu.Lock()
	hooks := append([]CommitHook(nil), tx.onCommit...)
	tx.mu.Unlock()
	var fn Committer = CommitFunc(func(context.Context, *Tx) error {
		if _, _, err := tx.finish(StateCommitted); err != nil {
			return err
		}
		err := tx.tx.Commit()
		tx.m.releaseSession(tx, err)
		if err != nil {
			tx.mu.Lock()
			tx.state = StateRolledBack
			tx.mu.Unlock()
			tx.m.stats.rolledBack.Add(1)
			return err
		}
		tx.m.stats.committed.Add(1)
		tx.m.log.Debug("transaction commit", "tx", tx.id)
		return nil
	})
	for i := len(hooks) - 1; i >= 0; i-- {
		fn = hooks[i](fn)
	}
	return fn.Commit(ctx, tx)
}

// release commits a savepoint and hands its hooks to the parent. On
// failure the savepoint stays prepared so it can be rolled back to.
func (tx *Tx) release(ctx context.Context) error {
	q, err := tx.m.gen.ReleaseSavepointQuery(tx.savepoint)
	if err != nil {
		return err
	}
	if err := tx.root().tx.Exec(ctx, q, nil, nil); err != nil {
		return fmt.Errorf("transaction: release savepoint: %w", err)
	}
	onCommit, onRollback, err := tx.finish(StateCommitted)
	if err != nil {
		return err
	}
	p := tx.parent
	p.mu.Lock()
	p.onCommit = append(p.onCommit, onCommit...)
	p.onRollback = append(p.onRollback, onRollback...)
	p.mu.Unlock()
	tx.m.stats.committed.Add(1)
	tx.m.log.Debug("savepoint release", "tx", tx.id, "savepoint", tx.savepoint)
	return nil
}

func (tx *Tx) rollback(ctx context.Context) error {
	if err := tx.usable(); err != nil {
		return err
	}
	tx.mu.Lock()
	hooks := append([]RollbackHook(nil), tx.onRollback...)
	tx.mu.Unlock()
	var fn Rollbacker = RollbackFunc(func(ctx context.Context, _ *Tx) error {
		if _, _, err := tx.finish(StateRolledBack); err != nil {
			return err
		}
		tx.m.stats.rolledBack.Add(1)
		if tx.parent != nil {
			q, err := tx.m.gen.RollbackSavepointQuery(tx.savepoint)
			if err != nil {
				return err
			}
			if err := tx.root().tx.Exec(ctx, q, nil, nil); err != nil {
				return fmt.Errorf("transaction: rollback to savepoint: %w", err)
			}
			tx.m.log.Debug("savepoint rollback", "tx", tx.id, "savepoint", tx.savepoint)
			return nil
		}
		err := tx.tx.Rollback()
		tx.m.releaseSession(tx, err)
		if err == nil {
			tx.m.log.Debug("transaction rollback", "tx", tx.id)
		}
		return err
	})
	for i := len(hooks) - 1; i >= 0; i-- {
		fn = hooks[i](fn)
	}
	return fn.Rollback(ctx, tx)
}

// LogValue implements slog.LogValuer.
func (tx *Tx) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", tx.id),
		slog.String("state", tx.State().String()),
		slog.String("savepoint", tx.savepoint),
	)
}

var _ dialect.ExecQuerier = (*Tx)(nil)
