package predicate

type Operator string

const (
	// Comparison

	OperatorEq  Operator = "="
	OperatorNe  Operator = "!="
	OperatorGt  Operator = ">"
	OperatorLt  Operator = "<"
	OperatorGte Operator = ">="
	OperatorLte Operator = "<="

	// Pattern and membership

	OperatorLike    Operator = "LIKE"
	OperatorNotLike Operator = "NOT LIKE"
	OperatorIn      Operator = "IN"
	OperatorNotIn   Operator = "NOT IN"

	// Logical

	OperatorAnd Operator = "AND"
	OperatorOr  Operator = "OR"
	OperatorNot Operator = "NOT"

	// Postfix

	OperatorIsNull    Operator = "IS NULL"
	OperatorIsNotNull Operator = "IS NOT NULL"
)

type Associativity string

const (
	LeftAssociative  Associativity = "LEFT"
	RightAssociative Associativity = "RIGHT"
	NonAssociative   Associativity = "NON"
)

// Operable is any node that carries an operator, used by renderers to
// look up precedence.
type Operable interface {
	Associativity() Associativity
	Operator() Operator
}
