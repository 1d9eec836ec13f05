// Package builder is the fluent front of the compiler: a mutable,
// chainable accumulator of criteria, joins, ordering and range, compiled
// exactly once per terminal call and handed to an execution source.
package builder

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/compiler"
	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/criteria"
	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/operators"
	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/option"
)

type connective int

const (
	andConnective connective = iota
	orConnective
)

type entry struct {
	connective connective
	node       criteria.Node
}

// Builder accumulates one logical query. It is mutable and returns itself
// from every chain method; it is not safe for concurrent mutation. A
// terminal call compiles the accumulated state without consuming it, so
// calling another terminal re-compiles from the same state.
type Builder struct {
	source   Source
	registry *operators.Registry

	entries  []entry
	joins    []compiler.JoinSpec
	orders   []Order
	columns  []string
	limit    option.Option[int]
	offset   option.Option[int]
	cacheTTL option.Option[time.Duration]

	scopes        map[string]Scope
	scopeOrder    []string
	withoutScopes map[string]struct{}
}

func New(source Source) *Builder {
	return &Builder{source: source}
}

// WithOperators swaps the operator vocabulary used at compile time.
func (b *Builder) WithOperators(registry *operators.Registry) *Builder {
	b.registry = registry
	return b
}

// Where adds an AND-connected condition. Accepted forms:
//
//	Where(func(q *Builder) { ... })   nested group
//	Where(criteria.Node)              pre-built node
//	Where(map[string]any{...})        named equalities
//	Where(field, value)               equality
//	Where(field, operator, value)     operator clause
//
// Anything else is ignored, matching the grammar's leniency.
func (b *Builder) Where(args ...any) *Builder {
	return b.where(andConnective, args)
}

// OrWhere is Where with an OR connective: it starts a new run of
// conditions that combines with the previous run under OR.
func (b *Builder) OrWhere(args ...any) *Builder {
	return b.where(orConnective, args)
}

func (b *Builder) where(conn connective, args []any) *Builder {
	if len(args) == 0 {
		return b
	}

	if len(args) == 1 {
		switch arg := args[0].(type) {
		case func(*Builder):
			return b.group(conn, arg)
		case criteria.Node:
			return b.add(conn, arg)
		case map[string]any:
			nodes := criteria.Parse([]any{arg})
			switch len(nodes) {
			case 0:
				return b
			case 1:
				return b.add(conn, nodes[0])
			}
			return b.add(conn, criteria.And(nodes...))
		}
		return b
	}

	field, ok := args[0].(string)
	if !ok {
		return b
	}
	if len(args) == 2 {
		return b.add(conn, criteria.Eq(criteria.FieldPath(field), args[1]))
	}
	operator, ok := args[1].(string)
	if !ok {
		return b
	}
	return b.add(conn, criteria.Op(criteria.FieldPath(field), operator, args[2]))
}

// group runs fn against a fresh child builder and folds the child's
// criteria back in as one nested group.
func (b *Builder) group(conn connective, fn func(*Builder)) *Builder {
	child := &Builder{}
	fn(child)
	nodes := child.Criteria()
	if len(nodes) == 0 {
		return b
	}
	return b.add(conn, criteria.Group{Kind: criteria.GroupAnd, Children: nodes})
}

func (b *Builder) add(conn connective, node criteria.Node) *Builder {
	b.entries = append(b.entries, entry{connective: conn, node: node})
	return b
}

// WhereGroup nests the callback's criteria as one AND-connected group,
// same as passing the callback to Where.
func (b *Builder) WhereGroup(fn func(*Builder)) *Builder {
	return b.group(andConnective, fn)
}

// OrWhereGroup nests the callback's criteria as one OR-connected group.
func (b *Builder) OrWhereGroup(fn func(*Builder)) *Builder {
	return b.group(orConnective, fn)
}

func (b *Builder) WhereIn(field string, values ...any) *Builder {
	return b.add(andConnective, criteria.Op(criteria.FieldPath(field), "in", values))
}

func (b *Builder) WhereNotIn(field string, values ...any) *Builder {
	return b.add(andConnective, criteria.Op(criteria.FieldPath(field), "not_in", values))
}

func (b *Builder) WhereBetween(field string, low, high any) *Builder {
	return b.add(andConnective, criteria.Op(criteria.FieldPath(field), "between", []any{low, high}))
}

func (b *Builder) WhereNotBetween(field string, low, high any) *Builder {
	return b.add(andConnective, criteria.Op(criteria.FieldPath(field), "not_between", []any{low, high}))
}

func (b *Builder) WhereNull(field string) *Builder {
	return b.add(andConnective, criteria.Op(criteria.FieldPath(field), "is_null", nil))
}

func (b *Builder) WhereNotNull(field string) *Builder {
	return b.add(andConnective, criteria.Op(criteria.FieldPath(field), "is_not_null", nil))
}

func (b *Builder) WhereLike(field, pattern string) *Builder {
	return b.add(andConnective, criteria.Op(criteria.FieldPath(field), "like", pattern))
}

func (b *Builder) WhereContains(field, value string) *Builder {
	return b.add(andConnective, criteria.Op(criteria.FieldPath(field), "contains", value))
}

// Join configures an inner join ahead of any auto-detected ones. The
// alias becomes known to the resolver, so criteria may reference it
// directly.
func (b *Builder) Join(relationPath, alias string) *Builder {
	return b.AddJoin(compiler.InnerJoin(relationPath, alias))
}

func (b *Builder) LeftJoin(relationPath, alias string) *Builder {
	return b.AddJoin(compiler.LeftJoin(relationPath, alias))
}

func (b *Builder) RightJoin(relationPath, alias string) *Builder {
	return b.AddJoin(compiler.RightJoin(relationPath, alias))
}

// AddJoin accepts a fully-specified join, conditions included.
func (b *Builder) AddJoin(spec compiler.JoinSpec) *Builder {
	b.joins = append(b.joins, spec)
	return b
}

func (b *Builder) OrderBy(field string, direction OrderDirection) *Builder {
	b.orders = append(b.orders, Order{Field: field, Direction: direction})
	return b
}

func (b *Builder) Select(columns ...string) *Builder {
	b.columns = append(b.columns, columns...)
	return b
}

func (b *Builder) Limit(limit int) *Builder {
	b.limit = option.Some(limit)
	return b
}

func (b *Builder) Offset(offset int) *Builder {
	b.offset = option.Some(offset)
	return b
}

// Cache asks the engine to serve this query from its result cache for
// ttl. The key is derived from the materialized statement at call time.
func (b *Builder) Cache(ttl time.Duration) *Builder {
	b.cacheTTL = option.Some(ttl)
	return b
}

// Reset drops all accumulated state, returning the builder to empty.
// Registered scopes survive; the excluded-scope set does not.
func (b *Builder) Reset() *Builder {
	b.entries = nil
	b.joins = nil
	b.orders = nil
	b.columns = nil
	b.limit = option.Nothing[int]()
	b.offset = option.Nothing[int]()
	b.cacheTTL = option.Nothing[time.Duration]()
	b.withoutScopes = nil
	return b
}

// Criteria materializes the where-chain into criteria nodes. Consecutive
// AND-connected entries form runs; once an OR connective appears, each
// run becomes a group and the groups combine under one OR. An all-AND
// chain passes through as a plain sequence, so a builder chain and the
// equivalent raw criteria compile identically.
func (b *Builder) Criteria() []criteria.Node {
	if len(b.entries) == 0 {
		return nil
	}
	var runs [][]criteria.Node
	for _, e := range b.entries {
		if e.connective == orConnective || len(runs) == 0 {
			runs = append(runs, nil)
		}
		runs[len(runs)-1] = append(runs[len(runs)-1], e.node)
	}
	if len(runs) == 1 {
		return runs[0]
	}
	groups := make([]criteria.Node, len(runs))
	for i, run := range runs {
		if len(run) == 1 {
			groups[i] = run[0]
		} else {
			groups[i] = criteria.And(run...)
		}
	}
	return []criteria.Node{criteria.Or(groups...)}
}

func (b *Builder) clone() *Builder {
	dup := *b
	dup.entries = append([]entry(nil), b.entries...)
	dup.joins = append([]compiler.JoinSpec(nil), b.joins...)
	dup.orders = append([]Order(nil), b.orders...)
	dup.columns = append([]string(nil), b.columns...)
	return &dup
}

type aggregate struct {
	fn    string
	field string
}

// materialize compiles the accumulated state onto a fresh target. Scopes
// mutate a scratch copy, never the builder itself, so terminals stay
// repeatable. Ordering and aggregate fields resolve through the same
// compile pass as the criteria, sharing its join dedup.
func (b *Builder) materialize(agg *aggregate) (Target, string, error) {
	if b.source == nil {
		return nil, "", errors.New("builder is not attached to an execution source")
	}

	scratch := b.clone()
	for _, name := range b.scopeOrder {
		if _, skipped := b.withoutScopes[name]; skipped {
			continue
		}
		b.scopes[name](scratch)
	}

	opts := []compiler.Option{compiler.WithJoins(scratch.joins...)}
	if scratch.registry != nil {
		opts = append(opts, compiler.WithRegistry(scratch.registry))
	}
	comp := compiler.NewCompiler(b.source.RootAlias(), opts...)
	compiled := comp.Compile(scratch.Criteria())

	expr := ""
	if agg != nil {
		ref := "*"
		if agg.field != "" && agg.field != "*" {
			ref = comp.Resolve(criteria.FieldPath(agg.field))
		}
		expr = fmt.Sprintf("%s(%s)", agg.fn, ref)
	}

	var orders []Order
	if agg == nil {
		orders = make([]Order, len(scratch.orders))
		for i, order := range scratch.orders {
			orders[i] = Order{
				Field:     comp.Resolve(criteria.FieldPath(order.Field)),
				Direction: order.Direction,
			}
		}
	}

	target := b.source.NewTarget()
	for _, join := range comp.Joins() {
		target.AddJoin(join)
	}
	if compiled.IsSome() {
		result := compiled.Unwrap()
		target.AddWhere(result.Predicate)
		for _, binding := range result.Bindings {
			target.BindParameter(binding.Name, binding.Value)
		}
	}
	if agg == nil {
		if len(scratch.columns) > 0 {
			target.SetColumns(scratch.columns...)
		}
		if len(orders) > 0 {
			target.SetOrderBy(orders...)
		}
		if scratch.limit.IsSome() {
			target.SetLimit(scratch.limit.Unwrap())
		}
		if scratch.offset.IsSome() {
			target.SetOffset(scratch.offset.Unwrap())
		}
	}
	if scratch.cacheTTL.IsSome() {
		target.SetCache(scratch.cacheTTL.Unwrap())
	}
	return target, expr, nil
}

// Get executes the accumulated query and returns all matching rows.
func (b *Builder) Get(ctx context.Context) ([]Row, error) {
	target, _, err := b.materialize(nil)
	if err != nil {
		return nil, err
	}
	return target.Execute(ctx)
}

// First fetches at most one row.
func (b *Builder) First(ctx context.Context) (option.Option[Row], error) {
	target, _, err := b.materialize(nil)
	if err != nil {
		return option.Nothing[Row](), err
	}
	target.SetLimit(1)
	rows, err := target.Execute(ctx)
	if err != nil {
		return option.Nothing[Row](), err
	}
	if len(rows) == 0 {
		return option.Nothing[Row](), nil
	}
	return option.Some(rows[0]), nil
}

// Count runs a count-shaped materialization: ordering, limit and offset
// are left out of it.
func (b *Builder) Count(ctx context.Context) (int64, error) {
	value, err := b.scalar(ctx, "COUNT", "*")
	if err != nil {
		return 0, err
	}
	return toInt64(value)
}

func (b *Builder) Sum(ctx context.Context, field string) (float64, error) {
	value, err := b.scalar(ctx, "SUM", field)
	if err != nil {
		return 0, err
	}
	return toFloat64(value)
}

func (b *Builder) Avg(ctx context.Context, field string) (float64, error) {
	value, err := b.scalar(ctx, "AVG", field)
	if err != nil {
		return 0, err
	}
	return toFloat64(value)
}

func (b *Builder) Max(ctx context.Context, field string) (any, error) {
	return b.scalar(ctx, "MAX", field)
}

func (b *Builder) Min(ctx context.Context, field string) (any, error) {
	return b.scalar(ctx, "MIN", field)
}

func (b *Builder) scalar(ctx context.Context, fn, field string) (any, error) {
	target, expr, err := b.materialize(&aggregate{fn: fn, field: field})
	if err != nil {
		return nil, err
	}
	return target.ExecuteScalar(ctx, expr)
}

func (b *Builder) Exists(ctx context.Context) (bool, error) {
	count, err := b.Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Paginate runs two fresh materializations: a count pass untouched by
// range state, then a fetch pass with the page window. The builder's own
// limit and offset never reach either pass's counterpart.
func (b *Builder) Paginate(ctx context.Context, page, perPage int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}

	total, err := b.Count(ctx)
	if err != nil {
		return Page{}, errors.Wrap(err, "paginate: count pass")
	}
	if total == 0 {
		return NewPage(nil, 0, page, perPage), nil
	}

	target, _, err := b.materialize(nil)
	if err != nil {
		return Page{}, err
	}
	target.SetLimit(perPage)
	target.SetOffset((page - 1) * perPage)
	items, err := target.Execute(ctx)
	if err != nil {
		return Page{}, errors.Wrap(err, "paginate: fetch pass")
	}
	return NewPage(items, total, page, perPage), nil
}

func toInt64(value any) (int64, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	}
	return 0, errors.Errorf("unsupported scalar type %T", value)
}

func toFloat64(value any) (float64, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(v, 64)
	case []byte:
		return strconv.ParseFloat(string(v), 64)
	}
	return 0, errors.Errorf("unsupported scalar type %T", value)
}
