// Package client is the runtime entry point: it ties a database driver,
// its query generator, the registered models and a transaction manager
// together.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hashicorp/go-version"

	"github.com/syssam/orma/dialect"
	dsql "github.com/syssam/orma/dialect/sql"
	"github.com/syssam/orma/dialect/sql/querygen"
	_ "github.com/syssam/orma/dialect/sql/querygen/mysql"
	_ "github.com/syssam/orma/dialect/sql/querygen/postgres"
	_ "github.com/syssam/orma/dialect/sql/querygen/snowflake"
	_ "github.com/syssam/orma/dialect/sql/querygen/sqlite"
	"github.com/syssam/orma/model"
	"github.com/syssam/orma/transaction"
)

// Driver is a database driver that also hands out pinned connections.
type Driver interface {
	dialect.Driver
	dialect.ConnManager
}

// Client is safe for concurrent use.
type Client struct {
	drv        Driver
	gen        querygen.Generator
	models     *model.Registry
	tx         *transaction.Manager
	log        *slog.Logger
	driverName string
	txOpts     []transaction.ManagerOption
	vars       []sessionVar
}

type sessionVar struct{ name, value string }

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used by the client and its transaction manager.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithModels registers models. It panics on duplicate names.
func WithModels(models ...model.Model) Option {
	return func(c *Client) {
		if err := c.models.Register(models...); err != nil {
			panic(err)
		}
	}
}

// WithRegistry replaces the model registry.
func WithRegistry(r *model.Registry) Option {
	return func(c *Client) { c.models = r }
}

// WithGenerator overrides the generator registered for the dialect.
func WithGenerator(g querygen.Generator) Option {
	return func(c *Client) { c.gen = g }
}

// WithTransactionOptions passes options to the transaction manager.
func WithTransactionOptions(opts ...transaction.ManagerOption) Option {
	return func(c *Client) { c.txOpts = append(c.txOpts, opts...) }
}

// WithSessionVar sets a session variable, such as the PostgreSQL
// search_path, before the statements the client runs. A value already
// attached to the context with dialect/sql.WithVar takes precedence.
func WithSessionVar(name, value string) Option {
	return func(c *Client) { c.vars = append(c.vars, sessionVar{name: name, value: value}) }
}

// WithDriverName sets the database/sql driver used by Open.
func WithDriverName(name string) Option {
	return func(c *Client) { c.driverName = name }
}

// DriverName returns the database/sql driver Open uses for a dialect when
// none is configured.
func DriverName(dialectName string) string {
	switch dialectName {
	case dialect.Postgres:
		return "pgx"
	case dialect.SQLite:
		return "sqlite"
	}
	return dialectName
}

func newClient(opts []Option) *Client {
	c := &Client{
		models: model.NewRegistry(),
		log:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open opens a database/sql pool for the dialect and returns a client over it.
func Open(dialectName, dsn string, opts ...Option) (*Client, error) {
	if _, err := dialect.Lookup(dialectName); err != nil {
		return nil, err
	}
	c := newClient(opts)
	name := c.driverName
	if name == "" {
		name = DriverName(dialectName)
	}
	drv, err := dsql.Open(dialectName, name, dsn)
	if err != nil {
		return nil, fmt.Errorf("client: open %s: %w", dialectName, err)
	}
	if err := c.init(drv); err != nil {
		drv.Close()
		return nil, err
	}
	return c, nil
}

// New returns a client over an existing driver.
func New(drv Driver, opts ...Option) (*Client, error) {
	c := newClient(opts)
	if err := c.init(drv); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) init(drv Driver) error {
	if c.gen == nil {
		g, err := querygen.Get(drv.Dialect())
		if err != nil {
			return err
		}
		c.gen = g
	}
	c.drv = drv
	opts := append([]transaction.ManagerOption{transaction.WithLogger(c.log)}, c.txOpts...)
	c.tx = transaction.NewManager(drv, c.gen, opts...)
	return nil
}

// Close closes the underlying driver.
func (c *Client) Close() error { return c.drv.Close() }

// Dialect returns the dialect descriptor.
func (c *Client) Dialect() *dialect.Descriptor { return c.gen.Dialect() }

// Generator returns the query generator.
func (c *Client) Generator() querygen.Generator { return c.gen }

// Models returns the model registry.
func (c *Client) Models() *model.Registry { return c.models }

// Transactions returns the transaction manager.
func (c *Client) Transactions() *transaction.Manager { return c.tx }

// Transaction runs fn in a managed transaction, see transaction.Manager.Run.
// The context passed to fn carries the client session variables.
func (c *Client) Transaction(ctx context.Context, opts transaction.Options, fn func(context.Context, *transaction.Tx) error) error {
	return c.tx.Run(c.session(ctx), opts, fn)
}

// Begin starts an unmanaged transaction.
func (c *Client) Begin(ctx context.Context, opts transaction.Options) (*transaction.Tx, error) {
	return c.tx.Begin(ctx, opts)
}

func (c *Client) session(ctx context.Context) context.Context {
	for _, v := range c.vars {
		if _, ok := dsql.VarFromContext(ctx, v.name); !ok {
			ctx = dsql.WithVar(ctx, v.name, v.value)
		}
	}
	return ctx
}

// executor returns the transaction active in ctx, or the driver.
func (c *Client) executor(ctx context.Context) dialect.ExecQuerier {
	if tx := c.tx.Current(ctx); tx != nil {
		return tx
	}
	return c.drv
}

// Exec executes a statement in the active transaction, if any.
func (c *Client) Exec(ctx context.Context, query string, args, v any) error {
	ctx = c.session(ctx)
	return c.executor(ctx).Exec(ctx, query, args, v)
}

// Query runs a query in the active transaction, if any.
func (c *Client) Query(ctx context.Context, query string, args, v any) error {
	ctx = c.session(ctx)
	return c.executor(ctx).Query(ctx, query, args, v)
}

// ServerVersion queries and parses the backend version. Build metadata
// after the first space (e.g. "16.2 (Debian 16.2-1)") is dropped.
func (c *Client) ServerVersion(ctx context.Context) (*version.Version, error) {
	q, err := c.gen.VersionQuery()
	if err != nil {
		return nil, err
	}
	var rows dsql.Rows
	if err := c.Query(ctx, q, nil, &rows); err != nil {
		return nil, err
	}
	vs, err := dsql.ScanStrings(&rows)
	if err != nil {
		return nil, err
	}
	if len(vs) == 0 || strings.TrimSpace(vs[0]) == "" {
		return nil, fmt.Errorf("client: empty server version")
	}
	raw := strings.Fields(vs[0])[0]
	v, err := version.NewVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("client: parse server version %q: %w", raw, err)
	}
	return v, nil
}

// ListSchemas returns the user schemas.
func (c *Client) ListSchemas(ctx context.Context, opts querygen.ListSchemasOptions) ([]string, error) {
	q, err := c.gen.ListSchemasQuery(opts)
	if err != nil {
		return nil, err
	}
	var rows dsql.Rows
	if err := c.Query(ctx, q, nil, &rows); err != nil {
		return nil, err
	}
	return dsql.ScanStrings(&rows)
}

// ListTables returns the base tables ordered by schema and name.
func (c *Client) ListTables(ctx context.Context, opts querygen.ListTablesOptions) ([]querygen.TableRef, error) {
	q, err := c.gen.ListTablesQuery(opts)
	if err != nil {
		return nil, err
	}
	var rows dsql.Rows
	if err := c.Query(ctx, q, nil, &rows); err != nil {
		return nil, err
	}
	defer rows.Close()
	var tables []querygen.TableRef
	for rows.Next() {
		var name, schema dsql.NullString
		if err := rows.Scan(&name, &schema); err != nil {
			return nil, err
		}
		tables = append(tables, querygen.SchemaTable(schema.String, name.String))
	}
	return tables, rows.Err()
}
