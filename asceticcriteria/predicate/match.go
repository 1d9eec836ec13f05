package predicate

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Match evaluates a compiled predicate against a row map, with SQL
// comparison semantics: nil values behave as NULL (three-valued logic),
// and a NULL result is not a match.
func Match(expr Visitable, row map[string]any) (bool, error) {
	m := NewMatcher(row)
	if err := expr.Accept(m); err != nil {
		return false, err
	}
	return m.Result(), nil
}

func NewMatcher(row map[string]any) *Matcher {
	return &Matcher{row: row}
}

// Matcher walks a predicate keeping the value of the last visited node,
// the same accumulator shape renderers use for text.
type Matcher struct {
	row     map[string]any
	current any
}

// Result reports whether the walked predicate held. A NULL outcome is
// false, as in a WHERE clause.
func (m *Matcher) Result() bool {
	b, ok := m.current.(bool)
	return ok && b
}

func (m *Matcher) VisitField(n FieldNode) error {
	if value, ok := m.row[n.Ref()]; ok {
		m.current = value
		return nil
	}
	// Row maps usually carry bare column names while references are
	// alias-qualified.
	if i := strings.LastIndex(n.Ref(), "."); i >= 0 {
		if value, ok := m.row[n.Ref()[i+1:]]; ok {
			m.current = value
			return nil
		}
	}
	m.current = nil
	return nil
}

func (m *Matcher) VisitParam(n ParamNode) error {
	m.current = n.Value()
	return nil
}

func (m *Matcher) VisitTruth(n TruthNode) error {
	m.current = n.Value()
	return nil
}

func (m *Matcher) VisitList(n ListNode) error {
	values := make([]any, 0, len(n.Items()))
	for _, item := range n.Items() {
		if err := item.Accept(m); err != nil {
			return err
		}
		values = append(values, m.current)
	}
	m.current = values
	return nil
}

func (m *Matcher) VisitPrefix(n PrefixNode) error {
	if n.Operator() != OperatorNot {
		return fmt.Errorf("unsupported prefix operator: %s", n.Operator())
	}
	if err := n.Operand().Accept(m); err != nil {
		return err
	}
	if m.current == nil {
		return nil
	}
	b, ok := m.current.(bool)
	if !ok {
		return fmt.Errorf("NOT operand is not boolean: %T", m.current)
	}
	m.current = !b
	return nil
}

func (m *Matcher) VisitInfix(n InfixNode) error {
	if err := n.Left().Accept(m); err != nil {
		return err
	}
	left := m.current
	if err := n.Right().Accept(m); err != nil {
		return err
	}
	right := m.current

	result, err := applyInfix(n.Operator(), left, right)
	if err != nil {
		return err
	}
	m.current = result
	return nil
}

func (m *Matcher) VisitPostfix(n PostfixNode) error {
	if err := n.Operand().Accept(m); err != nil {
		return err
	}
	switch n.Operator() {
	case OperatorIsNull:
		m.current = m.current == nil
	case OperatorIsNotNull:
		m.current = m.current != nil
	default:
		return fmt.Errorf("unsupported postfix operator: %s", n.Operator())
	}
	return nil
}

func applyInfix(op Operator, left, right any) (any, error) {
	switch op {
	case OperatorAnd:
		return applyAnd(left, right), nil
	case OperatorOr:
		return applyOr(left, right), nil
	}

	// NULL propagates through every other comparison.
	if left == nil || right == nil {
		return nil, nil
	}

	switch op {
	case OperatorEq:
		return valuesEqual(left, right), nil
	case OperatorNe:
		return !valuesEqual(left, right), nil
	case OperatorGt, OperatorGte, OperatorLt, OperatorLte:
		c, err := compareOrdered(left, right)
		if err != nil {
			return nil, err
		}
		switch op {
		case OperatorGt:
			return c > 0, nil
		case OperatorGte:
			return c >= 0, nil
		case OperatorLt:
			return c < 0, nil
		default:
			return c <= 0, nil
		}
	case OperatorLike, OperatorNotLike:
		matched, err := likeMatch(left, right)
		if err != nil {
			return nil, err
		}
		if op == OperatorNotLike {
			return !matched, nil
		}
		return matched, nil
	case OperatorIn, OperatorNotIn:
		return applyMembership(op, left, right)
	}
	return nil, fmt.Errorf("unsupported infix operator: %s", op)
}

// applyAnd implements three-valued AND: false dominates, then NULL.
func applyAnd(left, right any) any {
	if left == false || right == false {
		return false
	}
	if left == nil || right == nil {
		return nil
	}
	return left == true && right == true
}

// applyOr implements three-valued OR: true dominates, then NULL.
func applyOr(left, right any) any {
	if left == true || right == true {
		return true
	}
	if left == nil || right == nil {
		return nil
	}
	return false
}

func applyMembership(op Operator, left, right any) (any, error) {
	list, ok := right.([]any)
	if !ok {
		return nil, fmt.Errorf("IN right side is not a list: %T", right)
	}
	found := false
	sawNull := false
	for _, item := range list {
		if item == nil {
			sawNull = true
			continue
		}
		if valuesEqual(left, item) {
			found = true
			break
		}
	}
	if !found && sawNull {
		// x IN (a, b, NULL) is NULL when x matches nothing.
		return nil, nil
	}
	if op == OperatorNotIn {
		return !found, nil
	}
	return found, nil
}

func valuesEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, okb := toFloat(b)
		return okb && fa == fb
	}
	if ta, ok := a.(time.Time); ok {
		tb, okb := b.(time.Time)
		return okb && ta.Equal(tb)
	}
	return a == b
}

func compareOrdered(a, b any) (int, error) {
	if fa, ok := toFloat(a); ok {
		fb, okb := toFloat(b)
		if !okb {
			return 0, fmt.Errorf("cannot compare %T with %T", a, b)
		}
		switch {
		case fa < fb:
			return -1, nil
		case fa > fb:
			return 1, nil
		default:
			return 0, nil
		}
	}
	if sa, ok := a.(string); ok {
		sb, okb := b.(string)
		if !okb {
			return 0, fmt.Errorf("cannot compare %T with %T", a, b)
		}
		return strings.Compare(sa, sb), nil
	}
	if ta, ok := a.(time.Time); ok {
		tb, okb := b.(time.Time)
		if !okb {
			return 0, fmt.Errorf("cannot compare %T with %T", a, b)
		}
		switch {
		case ta.Before(tb):
			return -1, nil
		case ta.After(tb):
			return 1, nil
		default:
			return 0, nil
		}
	}
	return 0, fmt.Errorf("values of type %T are not ordered", a)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func likeMatch(value, pattern any) (bool, error) {
	s, ok := value.(string)
	if !ok {
		return false, fmt.Errorf("LIKE subject is not a string: %T", value)
	}
	p, ok := pattern.(string)
	if !ok {
		return false, fmt.Errorf("LIKE pattern is not a string: %T", pattern)
	}
	return likeRegexp(p).MatchString(s), nil
}

// likeRegexp translates an SQL LIKE pattern (%, _, backslash escape) into
// an anchored regular expression.
func likeRegexp(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("(?s)^")
	escaped := false
	for _, r := range pattern {
		if escaped {
			b.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
			continue
		}
		switch r {
		case '\\':
			escaped = true
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}
