// Package config loads the orma command configuration.
package config

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/syssam/orma/dialect"
	"github.com/syssam/orma/model"
	"github.com/syssam/orma/transaction"
)

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// Config is the merged command configuration.
type Config struct {
	Dialect     string            `koanf:"dialect"`
	DSN         string            `koanf:"dsn"`
	Driver      string            `koanf:"driver"`
	Pool        PoolConfig        `koanf:"pool"`
	Transaction TransactionConfig `koanf:"transaction"`
	Log         LogConfig         `koanf:"log"`
	Debug       bool              `koanf:"debug"`
	Output      string            `koanf:"output"`
	Models      []ModelConfig     `koanf:"models"`
	// Session holds variables set before every statement, such as the
	// PostgreSQL search_path.
	Session map[string]string `koanf:"session"`
}

// PoolConfig sizes the database/sql pool. Zero keeps the driver default.
type PoolConfig struct {
	MaxOpen         int           `koanf:"max_open"`
	MaxIdle         int           `koanf:"max_idle"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

// TransactionConfig holds transaction manager defaults.
type TransactionConfig struct {
	NestMode  string `koanf:"nest_mode"`
	Isolation string `koanf:"isolation"`
	Ambient   bool   `koanf:"ambient"`
}

// LogConfig configures the command logger.
type LogConfig struct {
	Level string `koanf:"level"`
}

// ModelConfig declares one model table.
type ModelConfig struct {
	Name      string   `koanf:"name"`
	Table     string   `koanf:"table"`
	Schema    string   `koanf:"schema"`
	DependsOn []string `koanf:"depends_on"`
}

// Validate reports the first invalid key.
func (c *Config) Validate() error {
	if c.Dialect == "" {
		return errors.New("config: dialect is required")
	}
	if _, err := dialect.Lookup(c.Dialect); err != nil {
		return fmt.Errorf("config: dialect: %w", err)
	}
	if c.DSN != "" && c.dialectName() == dialect.MySQL {
		if _, err := mysql.ParseDSN(c.DSN); err != nil {
			return fmt.Errorf("config: dsn: %w", err)
		}
	}
	if c.Pool.MaxOpen < 0 || c.Pool.MaxIdle < 0 || c.Pool.ConnMaxLifetime < 0 {
		return errors.New("config: pool: values must not be negative")
	}
	if _, err := transaction.ParseNestMode(c.Transaction.NestMode); err != nil {
		return fmt.Errorf("config: transaction.nest_mode: %w", err)
	}
	level, err := transaction.ParseIsolation(c.Transaction.Isolation)
	if err != nil {
		return fmt.Errorf("config: transaction.isolation: %w", err)
	}
	if d, _ := dialect.Lookup(c.Dialect); level != sql.LevelDefault && !d.Supports.IsolationLevels {
		return fmt.Errorf("config: transaction.isolation: dialect %s has no isolation levels", d.Name)
	}
	if _, err := c.Level(); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}
	switch c.Output {
	case OutputText, OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("config: output: unknown format %q", c.Output)
	}
	if name := c.dialectName(); len(c.Session) > 0 && name != dialect.Postgres && name != dialect.MySQL {
		return fmt.Errorf("config: session: dialect %s has no session variables", name)
	}
	for i, m := range c.Models {
		if m.Name == "" {
			return fmt.Errorf("config: models[%d]: name is required", i)
		}
	}
	return nil
}

func (c *Config) dialectName() string {
	d, err := dialect.Lookup(c.Dialect)
	if err != nil {
		return c.Dialect
	}
	return d.Name
}

// Level parses log.level. Debug forces the debug level.
func (c *Config) Level() (slog.Level, error) {
	if c.Debug {
		return slog.LevelDebug, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(c.Log.Level))); err != nil {
		return 0, err
	}
	return l, nil
}

// Logger returns a text logger writing to w at the configured level.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	l, err := c.Level()
	if err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}

// Registry builds the model registry from the models list.
func (c *Config) Registry() (*model.Registry, error) {
	r := model.NewRegistry()
	for _, m := range c.Models {
		var opts []model.TableOption
		if m.Table != "" {
			opts = append(opts, model.WithTableName(m.Table))
		}
		if m.Schema != "" {
			opts = append(opts, model.WithSchema(m.Schema))
		}
		if len(m.DependsOn) > 0 {
			opts = append(opts, model.WithDependsOn(m.DependsOn...))
		}
		if err := r.Register(model.NewTable(m.Name, opts...)); err != nil {
			return nil, fmt.Errorf("config: models: %w", err)
		}
	}
	return r, nil
}

// ManagerOptions returns the transaction manager options.
func (c *Config) ManagerOptions() []transaction.ManagerOption {
	var opts []transaction.ManagerOption
	if mode, err := transaction.ParseNestMode(c.Transaction.NestMode); err == nil && mode != "" {
		opts = append(opts, transaction.WithNestMode(mode))
	}
	if level, err := transaction.ParseIsolation(c.Transaction.Isolation); err == nil && level != sql.LevelDefault {
		opts = append(opts, transaction.WithIsolation(level))
	}
	if !c.Transaction.Ambient {
		opts = append(opts, transaction.WithoutAmbient())
	}
	return opts
}
