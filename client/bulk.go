package client

import (
	"context"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/orma"
	"github.com/syssam/orma/dialect"
	"github.com/syssam/orma/dialect/sql/querygen"
	"github.com/syssam/orma/model"
)

// TruncateOptions configures Client.Truncate.
type TruncateOptions struct {
	// Cascade truncates one table at a time, dependents first, and adds
	// CASCADE to the statement where the dialect has it. It also allows a
	// cyclic model graph.
	Cascade bool
	// WithoutForeignKeyChecks truncates every table in parallel on one
	// session with foreign key enforcement disabled.
	WithoutForeignKeyChecks bool
	// RestartIdentity resets identity columns where the dialect supports it.
	RestartIdentity bool
}

// DestroyAllOptions configures Client.DestroyAll.
type DestroyAllOptions struct {
	// Cascade allows a cyclic model graph; rows are deleted in
	// registration order and the database is expected to cascade.
	Cascade bool
	// WithoutForeignKeyChecks deletes from every table in parallel on one
	// session with foreign key enforcement disabled.
	WithoutForeignKeyChecks bool
}

// mode names the execution strategy of a bulk operation.
type mode string

const (
	modeParallel   mode = "parallel"
	modeSequential mode = "sequential"
	modeNoFKChecks mode = "without foreign key checks"
)

// Truncate empties the tables of all registered models.
//
// Without options the models are truncated concurrently. Cascade runs them
// one after another, dependents before their dependencies. A cyclic model
// graph is rejected with a CyclicDependencyError unless Cascade or
// WithoutForeignKeyChecks is set.
func (c *Client) Truncate(ctx context.Context, opts TruncateOptions) error {
	topts := querygen.TruncateTableOptions{
		Cascade:         opts.Cascade && c.Dialect().Supports.TruncateCascade,
		RestartIdentity: opts.RestartIdentity,
	}
	return c.bulk(ctx, "truncate", opts.Cascade, opts.WithoutForeignKeyChecks, true,
		func(ctx context.Context, ex dialect.ExecQuerier, m model.Model) error {
			return m.Truncate(ctx, ex, c.gen, topts)
		})
}

// DestroyAll deletes every row of all registered models. Deletes run one
// after another, dependents first, unless WithoutForeignKeyChecks is set.
func (c *Client) DestroyAll(ctx context.Context, opts DestroyAllOptions) error {
	return c.bulk(ctx, "destroyAll", opts.Cascade, opts.WithoutForeignKeyChecks, false,
		func(ctx context.Context, ex dialect.ExecQuerier, m model.Model) error {
			return m.Destroy(ctx, ex, c.gen, model.DestroyOptions{})
		})
}

func (c *Client) bulk(ctx context.Context, op string, cascade, noFKChecks, parallel bool, fn func(context.Context, dialect.ExecQuerier, model.Model) error) error {
	desc := c.Dialect()
	if noFKChecks && !desc.Supports.ForeignKeyChecksDisableable {
		return &orma.UnsupportedFeatureError{Dialect: desc.Name, Feature: "disabling foreign key checks", Operation: op}
	}
	ctx = c.session(ctx)
	models, ok := c.models.TopoSortedByForeignKey()
	if !ok {
		if !cascade && !noFKChecks {
			return &orma.CyclicDependencyError{Operation: op, Models: c.models.Cyclic()}
		}
		models = c.models.Models()
	}
	// Dependents first.
	slices.Reverse(models)

	m := modeParallel
	switch {
	case noFKChecks:
		m = modeNoFKChecks
	case cascade || !parallel:
		m = modeSequential
	}
	c.log.DebugContext(ctx, op, slog.Int("models", len(models)), slog.String("mode", string(m)))

	switch m {
	case modeNoFKChecks:
		return c.withoutForeignKeyChecks(ctx, op, func(ctx context.Context, s dialect.Session) error {
			return eachParallel(ctx, models, func(ctx context.Context, md model.Model) error {
				return fn(ctx, s, md)
			})
		})
	case modeSequential:
		ex := c.executor(ctx)
		for _, md := range models {
			if err := fn(ctx, ex, md); err != nil {
				return err
			}
		}
		return nil
	default:
		ex := c.executor(ctx)
		return eachParallel(ctx, models, func(ctx context.Context, md model.Model) error {
			return fn(ctx, ex, md)
		})
	}
}

// eachParallel runs fn for every model concurrently and returns the first
// error. The remaining calls observe a canceled context.
func eachParallel(ctx context.Context, models []model.Model, fn func(context.Context, model.Model) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, m := range models {
		g.Go(func() error { return fn(ctx, m) })
	}
	return g.Wait()
}

// withoutForeignKeyChecks pins a session, disables foreign key enforcement
// on it, runs fn and restores enforcement. A session whose checks could not
// be restored is destroyed rather than returned to the pool.
func (c *Client) withoutForeignKeyChecks(ctx context.Context, op string, fn func(context.Context, dialect.Session) error) error {
	off, err := c.gen.SetForeignKeyChecksQuery(false)
	if err != nil {
		return err
	}
	on, err := c.gen.SetForeignKeyChecksQuery(true)
	if err != nil {
		return err
	}
	s, err := c.drv.GetConnection(ctx, dialect.ConnOptions{})
	if err != nil {
		return err
	}
	if err := s.Exec(ctx, off, nil, nil); err != nil {
		c.destroy(ctx, s, op, err)
		return err
	}
	ferr := fn(ctx, s)
	if rerr := s.Exec(context.WithoutCancel(ctx), on, nil, nil); rerr != nil {
		c.destroy(ctx, s, op, rerr)
		return orma.NewAggregateError(ferr, rerr)
	}
	if err := c.drv.ReleaseConnection(s); err != nil {
		c.log.WarnContext(ctx, "release connection failed", slog.String("operation", op), slog.Any("error", err))
	}
	return ferr
}

func (c *Client) destroy(ctx context.Context, s dialect.Session, op string, cause error) {
	c.log.WarnContext(ctx, "destroying connection",
		slog.String("operation", op), slog.Any("cause", cause))
	if err := c.drv.DestroyConnection(s); err != nil {
		c.log.WarnContext(ctx, "destroy connection failed", slog.String("operation", op), slog.Any("error", err))
	}
}
