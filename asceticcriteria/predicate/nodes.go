// Package predicate holds the compiled boolean-expression tree: an
// immutable AST of field references, bound parameters, and operator nodes,
// walked through the Visitor interface by renderers and the in-memory
// matcher. Values never appear as literal text in a rendered expression;
// they travel as named parameters.
package predicate

type Visitable interface {
	Accept(Visitor) error
}

type Visitor interface {
	VisitField(FieldNode) error
	VisitParam(ParamNode) error
	VisitTruth(TruthNode) error
	VisitList(ListNode) error
	VisitPrefix(PrefixNode) error
	VisitInfix(InfixNode) error
	VisitPostfix(PostfixNode) error
}

// Field references a column through its resolved alias, e.g. "u.age" or
// "address_2.city".
func Field(ref string) FieldNode {
	return FieldNode{ref: ref}
}

type FieldNode struct {
	ref string
}

func (n FieldNode) Ref() string {
	return n.ref
}

func (n FieldNode) Accept(v Visitor) error {
	return v.VisitField(n)
}

type ParamNode struct {
	name  string
	value any
}

func (n ParamNode) Name() string {
	return n.name
}

func (n ParamNode) Value() any {
	return n.value
}

func (n ParamNode) Accept(v Visitor) error {
	return v.VisitParam(n)
}

// Truth is a constant predicate: the always-true and always-false leaves
// produced for empty membership lists.
func Truth(value bool) TruthNode {
	return TruthNode{value: value}
}

type TruthNode struct {
	value bool
}

func (n TruthNode) Value() bool {
	return n.value
}

func (n TruthNode) Accept(v Visitor) error {
	return v.VisitTruth(n)
}

// List is the parenthesized element list on the right side of IN.
func List(items ...Visitable) ListNode {
	return ListNode{items: items}
}

type ListNode struct {
	items []Visitable
}

func (n ListNode) Items() []Visitable {
	return n.items
}

func (n ListNode) Accept(v Visitor) error {
	return v.VisitList(n)
}

func Not(operand Visitable) PrefixNode {
	return PrefixNode{
		operator:      OperatorNot,
		operand:       operand,
		associativity: RightAssociative,
	}
}

type PrefixNode struct {
	operator      Operator
	operand       Visitable
	associativity Associativity
}

func (n PrefixNode) Operand() Visitable {
	return n.operand
}

func (n PrefixNode) Operator() Operator {
	return n.operator
}

func (n PrefixNode) Associativity() Associativity {
	return n.associativity
}

func (n PrefixNode) Accept(v Visitor) error {
	return v.VisitPrefix(n)
}

func Equal(left, right Visitable) InfixNode {
	return newComparison(left, OperatorEq, right)
}

func NotEqual(left, right Visitable) InfixNode {
	return newComparison(left, OperatorNe, right)
}

func GreaterThan(left, right Visitable) InfixNode {
	return newComparison(left, OperatorGt, right)
}

func GreaterThanEqual(left, right Visitable) InfixNode {
	return newComparison(left, OperatorGte, right)
}

func LessThan(left, right Visitable) InfixNode {
	return newComparison(left, OperatorLt, right)
}

func LessThanEqual(left, right Visitable) InfixNode {
	return newComparison(left, OperatorLte, right)
}

func Like(left, right Visitable) InfixNode {
	return newComparison(left, OperatorLike, right)
}

func NotLike(left, right Visitable) InfixNode {
	return newComparison(left, OperatorNotLike, right)
}

func In(left Visitable, list ListNode) InfixNode {
	return newComparison(left, OperatorIn, list)
}

func NotIn(left Visitable, list ListNode) InfixNode {
	return newComparison(left, OperatorNotIn, list)
}

func newComparison(left Visitable, operator Operator, right Visitable) InfixNode {
	return InfixNode{
		left:          left,
		operator:      operator,
		right:         right,
		associativity: NonAssociative,
	}
}

// And combines operands left to right into a chain of binary nodes.
func And(left Visitable, rights ...Visitable) InfixNode {
	left, right := foldRights(And, left, rights...)
	return InfixNode{
		left:          left,
		operator:      OperatorAnd,
		right:         right,
		associativity: LeftAssociative,
	}
}

// Or combines operands left to right into a chain of binary nodes.
func Or(left Visitable, rights ...Visitable) InfixNode {
	left, right := foldRights(Or, left, rights...)
	return InfixNode{
		left:          left,
		operator:      OperatorOr,
		right:         right,
		associativity: LeftAssociative,
	}
}

func foldRights(
	combine func(Visitable, ...Visitable) InfixNode,
	left Visitable,
	rights ...Visitable,
) (Visitable, Visitable) {
	for len(rights) > 1 {
		left = combine(left, rights[0])
		rights = rights[1:]
	}
	return left, rights[0]
}

type InfixNode struct {
	left          Visitable
	operator      Operator
	right         Visitable
	associativity Associativity
}

func (n InfixNode) Left() Visitable {
	return n.left
}

func (n InfixNode) Operator() Operator {
	return n.operator
}

func (n InfixNode) Right() Visitable {
	return n.right
}

func (n InfixNode) Associativity() Associativity {
	return n.associativity
}

func (n InfixNode) Accept(v Visitor) error {
	return v.VisitInfix(n)
}

func IsNull(operand Visitable) PostfixNode {
	return PostfixNode{
		operand:       operand,
		operator:      OperatorIsNull,
		associativity: NonAssociative,
	}
}

func IsNotNull(operand Visitable) PostfixNode {
	return PostfixNode{
		operand:       operand,
		operator:      OperatorIsNotNull,
		associativity: NonAssociative,
	}
}

type PostfixNode struct {
	operand       Visitable
	operator      Operator
	associativity Associativity
}

func (n PostfixNode) Operand() Visitable {
	return n.operand
}

func (n PostfixNode) Operator() Operator {
	return n.operator
}

func (n PostfixNode) Associativity() Associativity {
	return n.associativity
}

func (n PostfixNode) Accept(v Visitor) error {
	return v.VisitPostfix(n)
}
