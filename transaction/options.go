package transaction

import (
	"database/sql"
	"fmt"
	"strings"
)

// NestMode decides how a transaction request relates to the transaction
// already active in the context.
type NestMode string

// Nest modes.
const (
	// Separate always starts an independent transaction.
	Separate NestMode = "separate"
	// Reuse runs inside the active transaction without finalizing it.
	Reuse NestMode = "reuse"
	// Savepoint nests a savepoint under the active transaction.
	Savepoint NestMode = "savepoint"
)

// ParseNestMode parses a nest mode name. The empty string yields "".
func ParseNestMode(s string) (NestMode, error) {
	switch m := NestMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", Separate, Reuse, Savepoint:
		return m, nil
	}
	return "", fmt.Errorf("transaction: unknown nest mode %q", s)
}

var isolationLevels = map[string]sql.IsolationLevel{
	"":                 sql.LevelDefault,
	"default":          sql.LevelDefault,
	"read uncommitted": sql.LevelReadUncommitted,
	"read committed":   sql.LevelReadCommitted,
	"repeatable read":  sql.LevelRepeatableRead,
	"serializable":     sql.LevelSerializable,
}

// ParseIsolation parses an isolation level name such as "read committed".
// Underscores and dashes are accepted in place of spaces.
func ParseIsolation(s string) (sql.IsolationLevel, error) {
	key := strings.NewReplacer("_", " ", "-", " ").Replace(strings.ToLower(strings.TrimSpace(s)))
	if l, ok := isolationLevels[key]; ok {
		return l, nil
	}
	return sql.LevelDefault, fmt.Errorf("transaction: unknown isolation level %q", s)
}

// Options configures a transaction request.
type Options struct {
	// NestMode overrides the manager default when set.
	NestMode NestMode
	// Isolation of a new root transaction. A nested request with a
	// non-default level must match the active transaction.
	Isolation sql.IsolationLevel
	ReadOnly  bool
	// Transaction, when set, is used as the active transaction instead of
	// the one found in the context.
	Transaction *Tx
}

func (o Options) txOptions() *sql.TxOptions {
	if o.Isolation == sql.LevelDefault && !o.ReadOnly {
		return nil
	}
	return &sql.TxOptions{Isolation: o.Isolation, ReadOnly: o.ReadOnly}
}
