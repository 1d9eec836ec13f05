// Package repository layers write conveniences over the execution
// engine. It turns criteria into bulk UPDATE and DELETE statements,
// optionally redefines deletion as a soft-delete stamp, walks large
// result sets in chunks and folds per-key lookups into one IN query.
package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/builder"
	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/compiler"
	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/engine"
	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/operators"
	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/option"
	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/render"
)

// NotDeletedScopeName is the scope name Query registers in soft-delete
// mode, so callers can opt out with WithoutScope.
const NotDeletedScopeName = "not_deleted"

type Repository struct {
	engine     *engine.Engine
	registry   *operators.Registry
	softDelete option.Option[string]
	now        func() time.Time
}

type Option func(*Repository)

// WithSoftDelete makes DeleteWhere stamp column with the current time
// instead of removing rows. Restore clears the stamp, ForceDelete still
// removes, and Query hides stamped rows behind a removable scope.
func WithSoftDelete(column string) Option {
	return func(r *Repository) {
		r.softDelete = option.Some(column)
	}
}

// WithOperators swaps the operator vocabulary used to compile write
// criteria.
func WithOperators(registry *operators.Registry) Option {
	return func(r *Repository) {
		r.registry = registry
	}
}

// WithClock overrides the soft-delete timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

func New(eng *engine.Engine, opts ...Option) *Repository {
	r := &Repository{
		engine:     eng,
		softDelete: option.Nothing[string](),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Query starts a builder over the repository's engine. In soft-delete
// mode the not-deleted scope comes pre-registered.
func (r *Repository) Query() *builder.Builder {
	b := r.engine.Query()
	if r.registry != nil {
		b.WithOperators(r.registry)
	}
	if r.softDelete.IsSome() {
		b.WithScope(NotDeletedScopeName, builder.NotDeletedScope(r.softDelete.Unwrap()))
	}
	return b
}

// UpdateWhere applies changes to every row matching criteria and
// reports the affected count. Empty criteria update the whole table.
// Criteria are compiled against bare column names, so relation paths
// are rejected: SQL UPDATE has no join list to hang them on.
func (r *Repository) UpdateWhere(ctx context.Context, criteria []any, changes map[string]any) (int64, error) {
	if len(changes) == 0 {
		return 0, errors.New("repository: update needs at least one change")
	}
	where, args, err := r.compileWhere(criteria)
	if err != nil {
		return 0, err
	}
	statement := sq.Update(r.engine.Schema().Table()).SetMap(changes)
	if where != "" {
		statement = statement.Where(sq.Expr(where, args...))
	}
	return r.exec(ctx, statement.PlaceholderFormat(r.engine.Placeholder()))
}

// DeleteWhere removes every row matching criteria. In soft-delete mode
// it stamps the rows instead.
func (r *Repository) DeleteWhere(ctx context.Context, criteria []any) (int64, error) {
	if r.softDelete.IsSome() {
		return r.UpdateWhere(ctx, criteria, map[string]any{r.softDelete.Unwrap(): r.now()})
	}
	return r.ForceDelete(ctx, criteria)
}

// ForceDelete removes matching rows outright, soft-delete mode or not.
func (r *Repository) ForceDelete(ctx context.Context, criteria []any) (int64, error) {
	where, args, err := r.compileWhere(criteria)
	if err != nil {
		return 0, err
	}
	statement := sq.Delete(r.engine.Schema().Table())
	if where != "" {
		statement = statement.Where(sq.Expr(where, args...))
	}
	return r.exec(ctx, statement.PlaceholderFormat(r.engine.Placeholder()))
}

// Restore clears the soft-delete stamp on matching rows.
func (r *Repository) Restore(ctx context.Context, criteria []any) (int64, error) {
	if r.softDelete.IsNothing() {
		return 0, errors.New("repository: restore needs soft-delete mode")
	}
	return r.UpdateWhere(ctx, criteria, map[string]any{r.softDelete.Unwrap(): nil})
}

type sqlizer interface {
	ToSql() (string, []any, error)
}

func (r *Repository) exec(ctx context.Context, statement sqlizer) (int64, error) {
	sql, args, err := statement.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "repository: build statement")
	}
	return r.engine.Exec(ctx, sql, args)
}

// compileWhere lowers criteria with an empty root alias, yielding bare
// column references suitable for single-table writes.
func (r *Repository) compileWhere(criteria []any) (string, []any, error) {
	var opts []compiler.Option
	if r.registry != nil {
		opts = append(opts, compiler.WithRegistry(r.registry))
	}
	compiled := compiler.Compile("", criteria, opts...)
	if compiled.IsNothing() {
		return "", nil, nil
	}
	result := compiled.Unwrap()
	if len(result.Joins) != 0 {
		return "", nil, errors.New("repository: criteria over relations cannot drive writes")
	}
	rendered, err := render.Render(result.Predicate, render.Style(render.StyleQuestion))
	if err != nil {
		return "", nil, err
	}
	return rendered.SQL, rendered.Args, nil
}
