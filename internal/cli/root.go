// Package cli implements the orma command.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	// Database drivers opened by name through database/sql.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/spf13/cobra"

	"github.com/syssam/orma/client"
	dsql "github.com/syssam/orma/dialect/sql"
	"github.com/syssam/orma/internal/config"
)

// Version information (set at build time).
var Version = "0.1.0"

// app carries the state shared by commands after configuration is loaded.
type app struct {
	cfgFile string
	cfg     *config.Config
	log     *slog.Logger
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "orma",
		Short:         "Inspect databases and run bulk table operations",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			cfg, err := config.Loader{File: a.cfgFile, Flags: cmd.Root().PersistentFlags()}.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = cfg.Logger(cmd.ErrOrStderr())
			return nil
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default "+config.DefaultFile+")")
	pf.String("dialect", "", "SQL dialect: postgres, mysql, sqlite or snowflake")
	pf.String("dsn", "", "data source name")
	pf.String("driver", "", "database/sql driver name")
	pf.String("nest-mode", "", "default transaction nest mode: separate, reuse or savepoint")
	pf.String("isolation", "", "default isolation level")
	pf.String("log-level", "", "log level: debug, info, warn or error")
	pf.Bool("debug", false, "log every statement")
	pf.StringP("output", "o", "", "output format: text, json or yaml")
	pf.Int("pool-max-open", 0, "maximum open connections")
	pf.Int("pool-max-idle", 0, "maximum idle connections")

	root.AddCommand(
		newSQLCommand(a),
		newVersionCommand(a),
		newTablesCommand(a),
		newSchemasCommand(a),
		newTruncateCommand(a),
		newDestroyAllCommand(a),
	)
	return root
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// open connects to the configured database. Statements are logged
// through a LogDriver.
func (a *app) open() (*client.Client, error) {
	cfg := a.cfg
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	name := cfg.Driver
	if name == "" {
		name = client.DriverName(cfg.Dialect)
	}
	drv, err := dsql.Open(cfg.Dialect, name, cfg.DSN)
	if err != nil {
		return nil, err
	}
	db := drv.DB()
	if cfg.Pool.MaxOpen > 0 {
		db.SetMaxOpenConns(cfg.Pool.MaxOpen)
	}
	if cfg.Pool.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.Pool.MaxIdle)
	}
	if cfg.Pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.Pool.ConnMaxLifetime)
	}
	reg, err := cfg.Registry()
	if err != nil {
		drv.Close()
		return nil, err
	}
	opts := []client.Option{
		client.WithLogger(a.log),
		client.WithRegistry(reg),
		client.WithTransactionOptions(cfg.ManagerOptions()...),
	}
	for _, name := range slices.Sorted(maps.Keys(cfg.Session)) {
		opts = append(opts, client.WithSessionVar(name, cfg.Session[name]))
	}
	c, err := client.New(dsql.NewLogDriver(drv, dsql.WithLogger(a.log)), opts...)
	if err != nil {
		drv.Close()
		return nil, err
	}
	return c, nil
}
