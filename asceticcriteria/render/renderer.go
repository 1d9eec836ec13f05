// Package render turns a compiled predicate tree into SQL text. Output is
// minimally parenthesized: a precedence table drives paren insertion, so
// groupings survive exactly where the dialect would otherwise reorder
// them.
package render

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/predicate"
)

// PlaceholderStyle selects how bound parameters appear in the SQL text.
type PlaceholderStyle string

const (
	// StyleNamed emits ":age_1". The canonical form: stable across runs,
	// which makes it the one to use for assertions and cache keys.
	StyleNamed PlaceholderStyle = "named"
	// StyleQuestion emits "?" and relies on Rendered.Names for ordering.
	StyleQuestion PlaceholderStyle = "question"
	// StyleDollar emits "$1", "$2", ... in first-use order.
	StyleDollar PlaceholderStyle = "dollar"
)

// Rendered carries the SQL text plus the parameter names and values in
// placeholder order. Names and Args line up index-for-index regardless of
// style.
type Rendered struct {
	SQL   string
	Names []string
	Args  []any
}

type RendererOption func(*Renderer)

func Style(style PlaceholderStyle) RendererOption {
	return func(v *Renderer) {
		v.style = style
	}
}

// PlaceholderOffset starts dollar numbering after n, for statements that
// already carry n parameters.
func PlaceholderOffset(n int) RendererOption {
	return func(v *Renderer) {
		v.offset = n
	}
}

func NewRenderer(opts ...RendererOption) *Renderer {
	v := &Renderer{
		style:             StyleNamed,
		precedenceMapping: make(map[string]int),
	}
	// https://www.postgresql.org/docs/14/sql-syntax-lexical.html#SQL-PRECEDENCE-TABLE
	v.setPrecedence(100, "(any other operator) LEFT")
	v.setPrecedence(90, "IN NON", "NOT IN NON", "LIKE NON", "NOT LIKE NON")
	v.setPrecedence(80, "< NON", "> NON", "= NON", "<= NON", ">= NON", "!= NON")
	v.setPrecedence(70, "IS NULL NON", "IS NOT NULL NON")
	v.setPrecedence(60, "NOT RIGHT")
	v.setPrecedence(50, "AND LEFT")
	v.setPrecedence(40, "OR LEFT")
	for i := range opts {
		opts[i](v)
	}
	return v
}

type Renderer struct {
	sql               string
	style             PlaceholderStyle
	offset            int
	names             []string
	args              []any
	precedence        int
	precedenceMapping map[string]int
}

func (v Renderer) getNodePrecedenceKey(n predicate.Operable) string {
	return fmt.Sprintf("%s %s", n.Operator(), n.Associativity())
}

func (v Renderer) setPrecedence(precedence int, operators ...string) {
	for _, op := range operators {
		v.precedenceMapping[op] = precedence
	}
}

func (v *Renderer) visit(precedenceKey string, callable func() error) error {
	outerPrecedence := v.precedence
	innerPrecedence, ok := v.precedenceMapping[precedenceKey]
	if !ok {
		innerPrecedence, ok = v.precedenceMapping["(any other operator) LEFT"]
		if !ok {
			innerPrecedence = outerPrecedence
		}
	}
	v.precedence = innerPrecedence
	if innerPrecedence < outerPrecedence {
		v.sql += "("
	}
	err := callable()
	if err != nil {
		return err
	}
	if innerPrecedence < outerPrecedence {
		v.sql += ")"
	}
	v.precedence = outerPrecedence
	return nil
}

func (v *Renderer) VisitField(n predicate.FieldNode) error {
	v.sql += n.Ref()
	return nil
}

func (v *Renderer) VisitParam(n predicate.ParamNode) error {
	v.names = append(v.names, n.Name())
	v.args = append(v.args, n.Value())
	switch v.style {
	case StyleQuestion:
		v.sql += "?"
	case StyleDollar:
		v.sql += fmt.Sprintf("$%d", v.offset+len(v.args))
	default:
		v.sql += ":" + n.Name()
	}
	return nil
}

func (v *Renderer) VisitTruth(n predicate.TruthNode) error {
	if n.Value() {
		v.sql += "1 = 1"
	} else {
		v.sql += "1 = 0"
	}
	return nil
}

func (v *Renderer) VisitList(n predicate.ListNode) error {
	v.sql += "("
	for i, item := range n.Items() {
		if i > 0 {
			v.sql += ", "
		}
		if err := item.Accept(v); err != nil {
			return err
		}
	}
	v.sql += ")"
	return nil
}

func (v *Renderer) VisitPrefix(n predicate.PrefixNode) error {
	precedenceKey := v.getNodePrecedenceKey(n)
	return v.visit(precedenceKey, func() error {
		v.sql += fmt.Sprintf("%s ", n.Operator())
		return n.Operand().Accept(v)
	})
}

func (v *Renderer) VisitInfix(n predicate.InfixNode) error {
	precedenceKey := v.getNodePrecedenceKey(n)
	return v.visit(precedenceKey, func() error {
		err := n.Left().Accept(v)
		if err != nil {
			return err
		}
		v.sql += fmt.Sprintf(" %s ", n.Operator())
		return n.Right().Accept(v)
	})
}

func (v *Renderer) VisitPostfix(n predicate.PostfixNode) error {
	precedenceKey := v.getNodePrecedenceKey(n)
	return v.visit(precedenceKey, func() error {
		err := n.Operand().Accept(v)
		if err != nil {
			return err
		}
		v.sql += fmt.Sprintf(" %s", n.Operator())
		return nil
	})
}

func (v Renderer) Result() Rendered {
	return Rendered{SQL: v.sql, Names: v.names, Args: v.args}
}

// Render walks expr and returns its SQL form.
func Render(expr predicate.Visitable, opts ...RendererOption) (Rendered, error) {
	if expr == nil {
		return Rendered{}, errors.New("render: nil expression")
	}
	v := NewRenderer(opts...)
	if err := expr.Accept(v); err != nil {
		return Rendered{}, errors.Wrap(err, "render predicate")
	}
	return v.Result(), nil
}
