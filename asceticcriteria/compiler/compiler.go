// Package compiler lowers parsed criteria into one boolean predicate
// plus the join list and parameter bindings it needs. A Compiler instance
// covers a single compile pass: the join resolver and the parameter
// counter are shared across the whole criteria tree, which is what keeps
// joins deduplicated and parameter names unique between sibling branches.
package compiler

import (
	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/criteria"
	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/operators"
	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/option"
	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/predicate"
)

// Result is what the execution engine consumes: the root predicate, the
// joins in emission order, and the ordered name/value bindings.
type Result struct {
	Predicate predicate.Visitable
	Joins     []JoinSpec
	Bindings  []predicate.Binding
}

type Compiler struct {
	registry *operators.Registry
	resolver *Resolver
	params   *predicate.Params
}

type Option func(*Compiler)

// WithRegistry swaps the operator vocabulary for this pass.
func WithRegistry(registry *operators.Registry) Option {
	return func(c *Compiler) {
		c.registry = registry
	}
}

// WithJoins seeds caller-configured joins. They come first in the result
// and their aliases count as known for pre-aliased path detection.
func WithJoins(specs ...JoinSpec) Option {
	return func(c *Compiler) {
		for _, spec := range specs {
			c.resolver.AddJoin(spec)
		}
	}
}

// WithParameterOffset starts parameter numbering after n, for callers
// that combine several compile passes into one statement.
func WithParameterOffset(n int) Option {
	return func(c *Compiler) {
		c.params = predicate.NewParamsAt(n)
	}
}

func NewCompiler(rootAlias string, opts ...Option) *Compiler {
	c := &Compiler{
		registry: operators.Default(),
		resolver: NewResolver(rootAlias),
		params:   predicate.NewParams(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile walks the criteria in input order and returns the combined
// predicate, or Nothing when no node survives. Top-level elements are
// AND-ed; a lone element stays unwrapped. Malformed nodes are dropped,
// they never abort the pass.
func (c *Compiler) Compile(nodes []criteria.Node) option.Option[Result] {
	combined, ok := c.sequence(nodes, criteria.GroupAnd)
	if !ok {
		return option.Nothing[Result]()
	}
	return option.Some(Result{
		Predicate: combined,
		Joins:     c.resolver.Joins(),
		Bindings:  c.params.Bindings(),
	})
}

// Joins exposes the joins recorded so far, so callers can still apply
// configured joins when Compile comes back empty.
func (c *Compiler) Joins() []JoinSpec {
	return c.resolver.Joins()
}

// Resolve qualifies one field path through this pass's join resolver,
// for fields that live outside the criteria tree (ordering, aggregates).
// Joins it emits land in Joins like any other.
func (c *Compiler) Resolve(path criteria.FieldPath) string {
	return c.resolver.Resolve(path)
}

// Compile parses raw criteria and compiles them in one call.
func Compile(rootAlias string, raw []any, opts ...Option) option.Option[Result] {
	return NewCompiler(rootAlias, opts...).Compile(criteria.Parse(raw))
}

func (c *Compiler) sequence(nodes []criteria.Node, kind criteria.GroupKind) (predicate.Visitable, bool) {
	compiled := make([]predicate.Visitable, 0, len(nodes))
	for _, node := range nodes {
		expr, ok := c.node(node)
		if !ok {
			continue
		}
		compiled = append(compiled, expr)
	}
	switch len(compiled) {
	case 0:
		return nil, false
	case 1:
		return compiled[0], true
	}
	if kind == criteria.GroupOr {
		return predicate.Or(compiled[0], compiled[1:]...), true
	}
	return predicate.And(compiled[0], compiled[1:]...), true
}

func (c *Compiler) node(node criteria.Node) (predicate.Visitable, bool) {
	switch n := node.(type) {
	case criteria.Equality:
		return c.leaf("=", n.Field, n.Value)
	case criteria.Clause:
		return c.leaf(n.Operator, n.Field, n.Value)
	case criteria.Group:
		return c.group(n)
	}
	return nil, false
}

func (c *Compiler) leaf(operator string, field criteria.FieldPath, value any) (predicate.Visitable, bool) {
	ref := c.resolver.Resolve(field)
	expr, err := c.registry.Apply(operator, predicate.Field(ref), value, c.params)
	if err != nil {
		return nil, false
	}
	return expr, true
}

func (c *Compiler) group(n criteria.Group) (predicate.Visitable, bool) {
	kind := n.Kind
	if kind == criteria.GroupNot {
		kind = criteria.GroupAnd
	}
	combined, ok := c.sequence(n.Children, kind)
	if !ok {
		return nil, false
	}
	if n.Kind == criteria.GroupNot {
		return predicate.Not(combined), true
	}
	return combined, true
}
