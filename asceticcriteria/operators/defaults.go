package operators

import (
	"fmt"
	"strings"

	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/predicate"
)

// Default returns a registry with the full built-in vocabulary. Symbolic
// and word spellings ("=", "eq") are distinct entries over one strategy.
func Default() *Registry {
	r := NewRegistry()
	r.Register("=", equality)
	r.Register("eq", equality)
	r.Register("!=", inequality)
	r.Register("neq", inequality)
	r.Register(">", comparison(predicate.GreaterThan))
	r.Register("gt", comparison(predicate.GreaterThan))
	r.Register(">=", comparison(predicate.GreaterThanEqual))
	r.Register("gte", comparison(predicate.GreaterThanEqual))
	r.Register("<", comparison(predicate.LessThan))
	r.Register("lt", comparison(predicate.LessThan))
	r.Register("<=", comparison(predicate.LessThanEqual))
	r.Register("lte", comparison(predicate.LessThanEqual))
	r.Register("like", pattern(predicate.Like, func(s string) string { return s }))
	r.Register("not_like", pattern(predicate.NotLike, func(s string) string { return s }))
	r.Register("contains", pattern(predicate.Like, func(s string) string { return "%" + escapeLike(s) + "%" }))
	r.Register("starts_with", pattern(predicate.Like, func(s string) string { return escapeLike(s) + "%" }))
	r.Register("ends_with", pattern(predicate.Like, func(s string) string { return "%" + escapeLike(s) }))
	r.Register("in", membership(false))
	r.Register("not_in", membership(true))
	r.Register("between", between(false))
	r.Register("not_between", between(true))
	r.Register("is_null", nullness(predicate.IsNull))
	r.Register("is_not_null", nullness(predicate.IsNotNull))
	return r
}

// equality covers the shapes a bare {field: value} pair can take: nil
// becomes a null check, a list becomes membership, anything else a bound
// comparison.
func equality(field predicate.FieldNode, value any, params *predicate.Params) (predicate.Visitable, error) {
	if value == nil {
		return predicate.IsNull(field), nil
	}
	if items, ok := normalizeList(value); ok {
		return bindList(field, items, params, false)
	}
	return predicate.Equal(field, params.Bind(field.Ref(), value)), nil
}

func inequality(field predicate.FieldNode, value any, params *predicate.Params) (predicate.Visitable, error) {
	if value == nil {
		return predicate.IsNotNull(field), nil
	}
	if items, ok := normalizeList(value); ok {
		return bindList(field, items, params, true)
	}
	return predicate.NotEqual(field, params.Bind(field.Ref(), value)), nil
}

func comparison(build func(predicate.Visitable, predicate.Visitable) predicate.InfixNode) Func {
	return func(field predicate.FieldNode, value any, params *predicate.Params) (predicate.Visitable, error) {
		if value == nil {
			return nil, fmt.Errorf("operator needs a value for %q", field.Ref())
		}
		return build(field, params.Bind(field.Ref(), value)), nil
	}
}

func pattern(build func(predicate.Visitable, predicate.Visitable) predicate.InfixNode, wrap func(string) string) Func {
	return func(field predicate.FieldNode, value any, params *predicate.Params) (predicate.Visitable, error) {
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("pattern operator needs a string for %q, got %T", field.Ref(), value)
		}
		return build(field, params.Bind(field.Ref(), wrap(s))), nil
	}
}

// membership compiles in/not_in. The empty-list edge cases keep the whole
// criteria valid: IN () can never hold, NOT IN () always does.
func membership(negated bool) Func {
	return func(field predicate.FieldNode, value any, params *predicate.Params) (predicate.Visitable, error) {
		items, ok := normalizeList(value)
		if !ok {
			return nil, fmt.Errorf("membership operator needs a list for %q, got %T", field.Ref(), value)
		}
		return bindList(field, items, params, negated)
	}
}

func bindList(field predicate.FieldNode, items []any, params *predicate.Params, negated bool) (predicate.Visitable, error) {
	if len(items) == 0 {
		return predicate.Truth(negated), nil
	}
	bound := make([]predicate.Visitable, len(items))
	for i, item := range items {
		bound[i] = params.Bind(field.Ref(), item)
	}
	if negated {
		return predicate.NotIn(field, predicate.List(bound...)), nil
	}
	return predicate.In(field, predicate.List(bound...)), nil
}

// between expands to an inclusive bounds pair; the negated form wraps the
// same pair in NOT so both spellings stay symmetric.
func between(negated bool) Func {
	return func(field predicate.FieldNode, value any, params *predicate.Params) (predicate.Visitable, error) {
		bounds, ok := normalizeList(value)
		if !ok || len(bounds) != 2 {
			return nil, fmt.Errorf("between needs a two element list for %q", field.Ref())
		}
		span := predicate.And(
			predicate.GreaterThanEqual(field, params.Bind(field.Ref(), bounds[0])),
			predicate.LessThanEqual(field, params.Bind(field.Ref(), bounds[1])),
		)
		if negated {
			return predicate.Not(span), nil
		}
		return span, nil
	}
}

// nullness ignores the value slot entirely, so both the two and three
// element triple spellings work.
func nullness(build func(predicate.Visitable) predicate.PostfixNode) Func {
	return func(field predicate.FieldNode, _ any, _ *predicate.Params) (predicate.Visitable, error) {
		return build(field), nil
	}
}

// escapeLike neutralizes pattern metacharacters in user input before the
// wildcard wrapping of contains/starts_with/ends_with.
func escapeLike(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\', '%', '_':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
