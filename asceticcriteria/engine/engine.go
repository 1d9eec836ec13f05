// Package engine executes compiled criteria against a database. It
// implements the builder's execution contract on top of a session pool:
// statements are assembled with squirrel, relation hops resolve to joins
// through a registered schema, results hydrate into generic rows, and
// every statement is bracketed by lifecycle signals. A result cache kicks
// in for queries carrying a cache directive.
package engine

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/builder"
	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/cache"
	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/session"
	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/signals"
)

type Engine struct {
	pool        session.SessionPool
	schema      *Schema
	cache       cache.Cache[[]builder.Row]
	placeholder sq.PlaceholderFormat

	queryStarted *signals.SignalImp[QueryStartedEvent]
	queryEnded   *signals.SignalImp[QueryEndedEvent]
}

type Option func(*Engine)

// WithCache installs the result cache consulted by queries carrying a
// cache directive. Without one the directive is ignored.
func WithCache(c cache.Cache[[]builder.Row]) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// WithPlaceholderFormat overrides the statement placeholder format. The
// default suits PostgreSQL.
func WithPlaceholderFormat(format sq.PlaceholderFormat) Option {
	return func(e *Engine) {
		e.placeholder = format
	}
}

func New(pool session.SessionPool, schema *Schema, opts ...Option) *Engine {
	e := &Engine{
		pool:         pool,
		schema:       schema,
		placeholder:  sq.Dollar,
		queryStarted: signals.NewSignal[QueryStartedEvent](),
		queryEnded:   signals.NewSignal[QueryEndedEvent](),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Query starts a fluent builder bound to this engine.
func (e *Engine) Query() *builder.Builder {
	return builder.New(e)
}

func (e *Engine) NewTarget() builder.Target {
	return &query{engine: e}
}

func (e *Engine) RootAlias() string {
	return e.schema.RootAlias()
}

func (e *Engine) Schema() *Schema {
	return e.schema
}

// Placeholder reports the statement placeholder format in effect.
func (e *Engine) Placeholder() sq.PlaceholderFormat {
	return e.placeholder
}

// Exec runs a write statement through the pool and reports the affected
// row count. Writes are bracketed by the same query events as reads.
func (e *Engine) Exec(ctx context.Context, statement string, args []any) (int64, error) {
	var affected int64
	err := e.pool.Session(ctx, func(sess session.Session) error {
		stop := e.announce(statement, args)
		res, execErr := sess.Connection().Exec(statement, args...)
		if execErr != nil {
			stop(execErr)
			return errors.Wrap(execErr, "engine: exec")
		}
		count, countErr := res.RowsAffected()
		stop(countErr)
		if countErr != nil {
			return errors.Wrap(countErr, "engine: rows affected")
		}
		affected = count
		return nil
	})
	return affected, err
}

// QueryStarted fires before each statement; QueryEnded after it,
// correlated by QueryID.
func (e *Engine) QueryStarted() signals.Signal[QueryStartedEvent] {
	return e.queryStarted
}

func (e *Engine) QueryEnded() signals.Signal[QueryEndedEvent] {
	return e.queryEnded
}
