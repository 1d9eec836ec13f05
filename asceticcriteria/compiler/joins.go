package compiler

import (
	"fmt"

	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/criteria"
	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/option"
	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/predicate"
)

type JoinKind string

const (
	JoinKindLeft  JoinKind = "LEFT"
	JoinKindInner JoinKind = "INNER"
	JoinKindRight JoinKind = "RIGHT"
)

type ConditionKind string

const (
	ConditionKindOn   ConditionKind = "ON"
	ConditionKindWith ConditionKind = "WITH"
)

// JoinCondition is an extra predicate attached to a configured join,
// either replacing the relation condition (ON) or narrowing it (WITH).
type JoinCondition struct {
	kind ConditionKind
	expr predicate.Visitable
}

func (c JoinCondition) Kind() ConditionKind {
	return c.kind
}

func (c JoinCondition) Expr() predicate.Visitable {
	return c.expr
}

// JoinSpec is one relation traversal the execution engine has to emit.
// RelationPath is parent-qualified ("u.orders", "orders_1.items"), never
// the full dotted path from the root.
type JoinSpec struct {
	kind         JoinKind
	relationPath string
	alias        string
	condition    option.Option[JoinCondition]
}

func LeftJoin(relationPath, alias string) JoinSpec {
	return JoinSpec{kind: JoinKindLeft, relationPath: relationPath, alias: alias, condition: option.Nothing[JoinCondition]()}
}

func InnerJoin(relationPath, alias string) JoinSpec {
	return JoinSpec{kind: JoinKindInner, relationPath: relationPath, alias: alias, condition: option.Nothing[JoinCondition]()}
}

func RightJoin(relationPath, alias string) JoinSpec {
	return JoinSpec{kind: JoinKindRight, relationPath: relationPath, alias: alias, condition: option.Nothing[JoinCondition]()}
}

// On replaces the relation condition with expr.
func (j JoinSpec) On(expr predicate.Visitable) JoinSpec {
	j.condition = option.Some(JoinCondition{kind: ConditionKindOn, expr: expr})
	return j
}

// With narrows the relation condition with expr.
func (j JoinSpec) With(expr predicate.Visitable) JoinSpec {
	j.condition = option.Some(JoinCondition{kind: ConditionKindWith, expr: expr})
	return j
}

func (j JoinSpec) Kind() JoinKind {
	return j.kind
}

func (j JoinSpec) RelationPath() string {
	return j.relationPath
}

func (j JoinSpec) Alias() string {
	return j.alias
}

func (j JoinSpec) Condition() option.Option[JoinCondition] {
	return j.condition
}

type joinKey struct {
	relationPath string
	alias        string
}

// Resolver turns dotted field paths into alias-qualified references,
// emitting the minimal join chain along the way. One resolver serves one
// compile pass, so duplicate paths across sibling branches fold into a
// single join.
type Resolver struct {
	root    string
	aliases map[string]struct{}
	seen    map[joinKey]struct{}
	joins   []JoinSpec
}

func NewResolver(rootAlias string) *Resolver {
	r := &Resolver{
		root:    rootAlias,
		aliases: make(map[string]struct{}),
		seen:    make(map[joinKey]struct{}),
	}
	if rootAlias != "" {
		r.aliases[rootAlias] = struct{}{}
	}
	return r
}

// AddJoin registers a caller-configured join ahead of any auto-detected
// ones. Re-adding the same (relationPath, alias) pair is a no-op; the
// return value reports whether the join was actually recorded.
func (r *Resolver) AddJoin(spec JoinSpec) bool {
	key := joinKey{relationPath: spec.RelationPath(), alias: spec.Alias()}
	if _, ok := r.seen[key]; ok {
		return false
	}
	r.seen[key] = struct{}{}
	r.aliases[spec.Alias()] = struct{}{}
	r.joins = append(r.joins, spec)
	return true
}

// Resolve maps a field path to its final alias-qualified reference. A
// single-segment path is a column on the root. A path whose first segment
// is a known alias is taken as already qualified and passes through
// untouched. Anything else walks the intermediate segments, left-joining
// each relation hop under a depth-derived alias.
func (r *Resolver) Resolve(path criteria.FieldPath) string {
	segments := path.Segments()
	if len(segments) == 1 {
		return r.qualify(r.root, segments[0])
	}
	if _, ok := r.aliases[segments[0]]; ok {
		return path.String()
	}
	current := r.root
	for depth, segment := range segments[:len(segments)-1] {
		alias := fmt.Sprintf("%s_%d", segment, depth+1)
		r.AddJoin(LeftJoin(r.qualify(current, segment), alias))
		current = alias
	}
	return r.qualify(current, path.Leaf())
}

// Joins lists every recorded join in emission order, configured ones
// first.
func (r *Resolver) Joins() []JoinSpec {
	return r.joins
}

func (r *Resolver) qualify(alias, name string) string {
	if alias == "" {
		return name
	}
	return alias + "." + name
}
