// Package model describes the tables that bulk operations run over and
// orders them by their foreign key dependencies.
package model

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/go-openapi/inflect"

	"github.com/syssam/orma/dialect"
	"github.com/syssam/orma/dialect/sql/querygen"
)

// Model is a table known to the runtime.
type Model interface {
	querygen.Tabler
	// Name is the unique model name.
	Name() string
	// DependsOn returns the names of the models this one references
	// through foreign keys.
	DependsOn() []string
	// Truncate empties the table.
	Truncate(ctx context.Context, ex dialect.ExecQuerier, gen querygen.Generator, opts querygen.TruncateTableOptions) error
	// Destroy deletes the rows of the table.
	Destroy(ctx context.Context, ex dialect.ExecQuerier, gen querygen.Generator, opts DestroyOptions) error
}

// DestroyOptions configures Model.Destroy.
type DestroyOptions struct {
	// Where is a raw SQL condition. Empty deletes every row.
	Where string
	Limit int
}

// Table is the default Model implementation.
type Table struct {
	name string
	ref  querygen.TableRef
	deps []string
}

// TableOption configures a Table.
type TableOption func(*Table)

// WithTableName overrides the table name derived from the model name.
func WithTableName(name string) TableOption {
	return func(t *Table) { t.ref.Name = name }
}

// WithSchema places the table in schema.
func WithSchema(schema string) TableOption {
	return func(t *Table) { t.ref.Schema = schema }
}

// WithDependsOn declares foreign key dependencies on other models.
func WithDependsOn(models ...string) TableOption {
	return func(t *Table) { t.deps = append(t.deps, models...) }
}

// NewTable returns a model whose table is the pluralized snake case form
// of name, e.g. "UserProfile" maps to "user_profiles".
func NewTable(name string, opts ...TableOption) *Table {
	t := &Table{name: name, ref: querygen.TableRef{Name: inflect.Pluralize(inflect.Underscore(name))}}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name implements Model.
func (t *Table) Name() string { return t.name }

// TableRef implements querygen.Tabler.
func (t *Table) TableRef() querygen.TableRef { return t.ref }

// DependsOn implements Model.
func (t *Table) DependsOn() []string { return slices.Clone(t.deps) }

// Truncate implements Model.
func (t *Table) Truncate(ctx context.Context, ex dialect.ExecQuerier, gen querygen.Generator, opts querygen.TruncateTableOptions) error {
	q, err := gen.TruncateTableQuery(t.ref, opts)
	if err != nil {
		return err
	}
	if err := ex.Exec(ctx, q, nil, nil); err != nil {
		return fmt.Errorf("model: truncate %s: %w", t.name, err)
	}
	return nil
}

// Destroy implements Model.
func (t *Table) Destroy(ctx context.Context, ex dialect.ExecQuerier, gen querygen.Generator, opts DestroyOptions) error {
	q, err := gen.BulkDeleteQuery(t.ref, opts.Where, querygen.BulkDeleteOptions{Limit: opts.Limit})
	if err != nil {
		return err
	}
	if err := ex.Exec(ctx, q, nil, nil); err != nil {
		return fmt.Errorf("model: destroy %s: %w", t.name, err)
	}
	return nil
}

// Registry holds the models of a runtime.
type Registry struct {
	mu     sync.RWMutex
	models map[string]Model
	order  []string
}

// NewRegistry returns a registry holding models. It panics on an invalid
// or duplicate model, see Register.
func NewRegistry(models ...Model) *Registry {
	r := &Registry{models: make(map[string]Model)}
	if err := r.Register(models...); err != nil {
		panic(err)
	}
	return r
}

// Register adds models. Names must be unique and non-empty.
func (r *Registry) Register(models ...Model) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range models {
		if m == nil || m.Name() == "" {
			return fmt.Errorf("model: missing model name")
		}
		if _, dup := r.models[m.Name()]; dup {
			return fmt.Errorf("model: duplicate model %q", m.Name())
		}
		r.models[m.Name()] = m
		r.order = append(r.order, m.Name())
	}
	return nil
}

// Get returns the named model.
func (r *Registry) Get(name string) (Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[name]
	return m, ok
}

// Len returns the number of registered models.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Models returns the models in registration order.
func (r *Registry) Models() []Model {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Model, len(r.order))
	for i, n := range r.order {
		out[i] = r.models[n]
	}
	return out
}

// TopoSortedByForeignKey returns the models ordered so that every model
// comes after the models it depends on. Ties keep registration order.
// Self references and dependencies on unknown models are ignored. It
// returns false if the dependencies are cyclic.
func (r *Registry) TopoSortedByForeignKey() ([]Model, bool) {
	sorted, rest := r.sort()
	if len(rest) > 0 {
		return nil, false
	}
	return sorted, true
}

// Cyclic returns the names of the models that cannot be ordered because
// they are part of, or depend on, a dependency cycle.
func (r *Registry) Cyclic() []string {
	_, rest := r.sort()
	return rest
}

// sort is Kahn's algorithm, scanning in registration order on each round
// so the result is deterministic.
func (r *Registry) sort() ([]Model, []string) {
	models := r.Models()
	indegree := make(map[string]int, len(models))
	dependents := make(map[string][]string, len(models))
	for _, m := range models {
		seen := make(map[string]bool)
		for _, d := range m.DependsOn() {
			if _, ok := r.Get(d); !ok || d == m.Name() || seen[d] {
				continue
			}
			seen[d] = true
			indegree[m.Name()]++
			dependents[d] = append(dependents[d], m.Name())
		}
	}
	sorted := make([]Model, 0, len(models))
	done := make(map[string]bool, len(models))
	for len(sorted) < len(models) {
		progress := false
		for _, m := range models {
			n := m.Name()
			if done[n] || indegree[n] > 0 {
				continue
			}
			done[n], progress = true, true
			sorted = append(sorted, m)
			for _, dep := range dependents[n] {
				indegree[dep]--
			}
		}
		if !progress {
			break
		}
	}
	var rest []string
	for _, m := range models {
		if !done[m.Name()] {
			rest = append(rest, m.Name())
		}
	}
	return sorted, rest
}

var _ Model = (*Table)(nil)
