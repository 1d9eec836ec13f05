package engine

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/builder"
	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/compiler"
	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/option"
	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/predicate"
	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/render"
	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/session"
)

// query is one statement in the making. The builder populates it through
// the Target contract; Execute and ExecuteScalar assemble and run it.
type query struct {
	engine   *Engine
	joins    []compiler.JoinSpec
	where    predicate.Visitable
	params   map[string]any
	columns  []string
	orders   []builder.Order
	limit    option.Option[int]
	offset   option.Option[int]
	cacheTTL option.Option[time.Duration]
}

func (q *query) AddJoin(join compiler.JoinSpec) {
	q.joins = append(q.joins, join)
}

func (q *query) AddWhere(expr predicate.Visitable) {
	q.where = expr
}

func (q *query) BindParameter(name string, value any) {
	if q.params == nil {
		q.params = make(map[string]any)
	}
	q.params[name] = value
}

func (q *query) SetColumns(columns ...string) {
	q.columns = columns
}

func (q *query) SetOrderBy(orders ...builder.Order) {
	q.orders = orders
}

func (q *query) SetLimit(limit int) {
	q.limit = option.Some(limit)
}

func (q *query) SetOffset(offset int) {
	q.offset = option.Some(offset)
}

func (q *query) SetCache(ttl time.Duration) {
	q.cacheTTL = option.Some(ttl)
}

// Execute runs the accumulated statement and hydrates every row into a
// column-keyed map. With a cache directive and an installed cache, the
// rendered statement plus arguments double as the cache key.
func (q *query) Execute(ctx context.Context) ([]builder.Row, error) {
	selection := q.columns
	if len(selection) == 0 {
		selection = []string{q.engine.schema.RootAlias() + ".*"}
	}
	statement, args, err := q.build(selection)
	if err != nil {
		return nil, err
	}

	key, cached := q.cacheKey(statement, args)
	if cached {
		if rows, hit := q.engine.cache.Get(key); hit {
			return rows, nil
		}
	}

	var rows []builder.Row
	err = q.engine.pool.Session(ctx, func(sess session.Session) error {
		var ferr error
		rows, ferr = q.fetch(sess, statement, args)
		return ferr
	})
	if err != nil {
		return nil, err
	}

	if cached {
		q.engine.cache.Set(key, rows, q.cacheTTL.Unwrap())
	}
	return rows, nil
}

// ExecuteScalar runs the statement with expr as its only selection and
// returns the single value. Scalar results bypass the row cache.
func (q *query) ExecuteScalar(ctx context.Context, expr string) (any, error) {
	statement, args, err := q.build([]string{expr})
	if err != nil {
		return nil, err
	}

	var value any
	err = q.engine.pool.Session(ctx, func(sess session.Session) error {
		stop := q.engine.announce(statement, args)
		scanErr := sess.Connection().QueryRow(statement, args...).Scan(&value)
		stop(scanErr)
		if scanErr != nil {
			return errors.Wrap(scanErr, "engine: scalar query")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// build assembles the SELECT statement. Bound parameter values take
// precedence over values embedded in the predicate tree, so a caller can
// re-bind a compiled parameter before execution.
func (q *query) build(selection []string) (string, []any, error) {
	schema := q.engine.schema

	from := schema.Table()
	if alias := schema.RootAlias(); alias != schema.Table() {
		from = fmt.Sprintf("%s AS %s", schema.Table(), alias)
	}
	statement := sq.Select(selection...).From(from)

	aliasTables := map[string]string{schema.RootAlias(): schema.Table()}
	for _, join := range q.joins {
		clause, args, err := schema.joinClause(join, aliasTables)
		if err != nil {
			return "", nil, err
		}
		switch join.Kind() {
		case compiler.JoinKindInner:
			statement = statement.Join(clause, args...)
		case compiler.JoinKindRight:
			statement = statement.RightJoin(clause, args...)
		default:
			statement = statement.LeftJoin(clause, args...)
		}
	}

	if q.where != nil {
		rendered, err := render.Render(q.where, render.Style(render.StyleQuestion))
		if err != nil {
			return "", nil, err
		}
		args := make([]any, len(rendered.Names))
		for i, name := range rendered.Names {
			if value, ok := q.params[name]; ok {
				args[i] = value
				continue
			}
			args[i] = rendered.Args[i]
		}
		statement = statement.Where(sq.Expr(rendered.SQL, args...))
	}

	for _, order := range q.orders {
		statement = statement.OrderBy(fmt.Sprintf("%s %s", order.Field, order.Direction))
	}
	if q.limit.IsSome() {
		statement = statement.Limit(uint64(q.limit.Unwrap()))
	}
	if q.offset.IsSome() {
		statement = statement.Offset(uint64(q.offset.Unwrap()))
	}

	return statement.PlaceholderFormat(q.engine.placeholder).ToSql()
}

func (q *query) cacheKey(statement string, args []any) (string, bool) {
	if q.engine.cache == nil || q.cacheTTL.IsNothing() {
		return "", false
	}
	return fmt.Sprintf("%s|%v", statement, args), true
}

// announce notifies the started signal and returns the matching ended
// notifier.
func (e *Engine) announce(statement string, args []any) func(error) {
	queryID := uuid.New()
	startedAt := time.Now()
	e.queryStarted.Notify(QueryStartedEvent{
		QueryID:   queryID,
		SQL:       statement,
		Params:    args,
		StartedAt: startedAt,
	})
	return func(err error) {
		e.queryEnded.Notify(QueryEndedEvent{
			QueryID:      queryID,
			ResponseTime: time.Since(startedAt),
			Err:          err,
		})
	}
}

func (q *query) fetch(sess session.Session, statement string, args []any) ([]builder.Row, error) {
	stop := q.engine.announce(statement, args)
	rows, err := q.drain(sess, statement, args)
	stop(err)
	return rows, err
}

func (q *query) drain(sess session.Session, statement string, args []any) ([]builder.Row, error) {
	dbRows, err := sess.Connection().Query(statement, args...)
	if err != nil {
		return nil, errors.Wrap(err, "engine: query")
	}

	columns, err := dbRows.Columns()
	if err != nil {
		dbRows.Close()
		return nil, errors.Wrap(err, "engine: column names")
	}

	var collected []builder.Row
	for dbRows.Next() {
		values := make([]any, len(columns))
		scans := make([]any, len(columns))
		for i := range values {
			scans[i] = &values[i]
		}
		if err := dbRows.Scan(scans...); err != nil {
			if closeErr := dbRows.Close(); closeErr != nil {
				return nil, multierror.Append(errors.Wrap(err, "engine: scan row"), closeErr)
			}
			return nil, errors.Wrap(err, "engine: scan row")
		}
		row := make(builder.Row, len(columns))
		for i, column := range columns {
			row[column] = values[i]
		}
		collected = append(collected, row)
	}
	if err := dbRows.Err(); err != nil {
		dbRows.Close()
		return nil, errors.Wrap(err, "engine: iterate rows")
	}
	if err := dbRows.Close(); err != nil {
		return nil, errors.Wrap(err, "engine: close rows")
	}
	return collected, nil
}
