package criteria

import "sort"

// Group markers recognized as the first element of an unkeyed sequence.
// A triple whose field is literally named like a marker must use the
// pre-typed constructors instead.
var groupKinds = map[string]GroupKind{
	"and": GroupAnd,
	"or":  GroupOr,
	"not": GroupNot,
}

// Parse classifies a raw criteria sequence into typed nodes. Elements it
// cannot make sense of are dropped rather than failing the whole sequence:
// the grammar favors documented leniency over errors, and semantic
// validation belongs to the execution engine.
//
// Accepted element shapes:
//   - map[string]any            named equalities, one node per key
//   - []any{"or"|"and"|"not", []any{...}}   nested logical group
//   - []any{field, operator, value}         operator triple; a 2-element
//     form carries either an operator (second element is a string) or an
//     equality value (it is not)
//   - an already typed Node, passed through unchanged
func Parse(raw []any) []Node {
	nodes := make([]Node, 0, len(raw))
	for _, element := range raw {
		nodes = append(nodes, parseElement(element)...)
	}
	return nodes
}

func parseElement(element any) []Node {
	switch e := element.(type) {
	case Node:
		return []Node{e}
	case map[string]any:
		return parseNamed(e)
	case []any:
		if node, ok := parsePositional(e); ok {
			return []Node{node}
		}
	}
	return nil
}

// parseNamed expands {field: value} pairs. Go maps are unordered, so keys
// are sorted to keep parameter assignment deterministic; the grammar the
// input arrives in has no reliable key order either way.
func parseNamed(pairs map[string]any) []Node {
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	nodes := make([]Node, 0, len(keys))
	for _, k := range keys {
		nodes = append(nodes, Equality{Field: FieldPath(k), Value: pairs[k]})
	}
	return nodes
}

func parsePositional(seq []any) (Node, bool) {
	if len(seq) == 0 {
		return nil, false
	}

	head, ok := seq[0].(string)
	if !ok {
		return nil, false
	}

	if kind, isGroup := groupKinds[head]; isGroup {
		if len(seq) < 2 {
			return nil, false
		}
		children, ok := seq[1].([]any)
		if !ok {
			return nil, false
		}
		return Group{Kind: kind, Children: Parse(children)}, true
	}

	return parseTriple(head, seq)
}

func parseTriple(field string, seq []any) (Node, bool) {
	if len(seq) < 2 {
		return nil, false
	}

	operator, ok := seq[1].(string)
	if !ok {
		// [field, value] with a non-string second element reads as an
		// equality shorthand.
		return Equality{Field: FieldPath(field), Value: seq[1]}, true
	}

	var value any
	if len(seq) > 2 {
		value = seq[2]
	}
	return Clause{Field: FieldPath(field), Operator: operator, Value: value}, true
}
