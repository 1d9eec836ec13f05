// Package criteria defines the declarative filter grammar: named equality
// pairs, [field, operator, value] triples, and nested and/or/not groups.
// Raw input is classified once by Parse into typed nodes; the compiler
// never re-inspects loose shapes.
package criteria

import "strings"

const pathSeparator = "."

// FieldPath is a field name, optionally dotted. Every segment except the
// last names a relation reachable from the current alias scope.
type FieldPath string

func (p FieldPath) Segments() []string {
	return strings.Split(string(p), pathSeparator)
}

// Leaf returns the final segment, the field itself.
func (p FieldPath) Leaf() string {
	segments := p.Segments()
	return segments[len(segments)-1]
}

func (p FieldPath) IsDotted() bool {
	return strings.Contains(string(p), pathSeparator)
}

func (p FieldPath) String() string {
	return string(p)
}

// Node is one element of a criteria sequence.
type Node interface {
	criteriaNode()
}

// Equality is the named form {field: value}. The implicit operator depends
// on the value shape: IS NULL for nil, IN for lists, = otherwise.
type Equality struct {
	Field FieldPath
	Value any
}

func (Equality) criteriaNode() {}

// Clause is the positional form [field, operator, value].
type Clause struct {
	Field    FieldPath
	Operator string
	Value    any
}

func (Clause) criteriaNode() {}

type GroupKind string

const (
	GroupAnd GroupKind = "and"
	GroupOr  GroupKind = "or"
	GroupNot GroupKind = "not"
)

// Group combines child nodes under and/or/not.
type Group struct {
	Kind     GroupKind
	Children []Node
}

func (Group) criteriaNode() {}

func Eq(field FieldPath, value any) Equality {
	return Equality{Field: field, Value: value}
}

func Op(field FieldPath, operator string, value any) Clause {
	return Clause{Field: field, Operator: operator, Value: value}
}

func And(children ...Node) Group {
	return Group{Kind: GroupAnd, Children: children}
}

func Or(children ...Node) Group {
	return Group{Kind: GroupOr, Children: children}
}

func Not(children ...Node) Group {
	return Group{Kind: GroupNot, Children: children}
}
