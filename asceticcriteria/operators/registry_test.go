package operators

import (
	"testing"

	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/predicate"
)

func apply(t *testing.T, name string, value any) (predicate.Visitable, *predicate.Params) {
	t.Helper()
	params := predicate.NewParams()
	expr, err := Default().Apply(name, predicate.Field("u.age"), value, params)
	if err != nil {
		t.Fatalf("apply %s: %v", name, err)
	}
	return expr, params
}

func TestComparisonBindsValue(t *testing.T) {
	expr, params := apply(t, "gte", 18)

	node, ok := expr.(predicate.InfixNode)
	if !ok {
		t.Fatalf("expected infix node, got %T", expr)
	}
	if node.Operator() != predicate.OperatorGte {
		t.Errorf("expected >=, got %s", node.Operator())
	}
	bindings := params.Bindings()
	if len(bindings) != 1 || bindings[0].Name != "u_age_1" || bindings[0].Value != 18 {
		t.Errorf("unexpected bindings %v", bindings)
	}
}

func TestSymbolAndWordSpellingsMatch(t *testing.T) {
	for _, pair := range [][2]string{{"=", "eq"}, {"!=", "neq"}, {">", "gt"}, {">=", "gte"}, {"<", "lt"}, {"<=", "lte"}} {
		symbol, _ := apply(t, pair[0], 5)
		word, _ := apply(t, pair[1], 5)
		if symbol.(predicate.InfixNode).Operator() != word.(predicate.InfixNode).Operator() {
			t.Errorf("%s and %s disagree", pair[0], pair[1])
		}
	}
}

func TestEqualityShapes(t *testing.T) {
	expr, _ := apply(t, "=", nil)
	if node, ok := expr.(predicate.PostfixNode); !ok || node.Operator() != predicate.OperatorIsNull {
		t.Errorf("nil value should become IS NULL, got %#v", expr)
	}

	expr, _ = apply(t, "=", []any{1, 2})
	if node, ok := expr.(predicate.InfixNode); !ok || node.Operator() != predicate.OperatorIn {
		t.Errorf("list value should become IN, got %#v", expr)
	}

	expr, _ = apply(t, "!=", nil)
	if node, ok := expr.(predicate.PostfixNode); !ok || node.Operator() != predicate.OperatorIsNotNull {
		t.Errorf("nil value should become IS NOT NULL, got %#v", expr)
	}
}

func TestUnknownOperatorFallsBackToEquality(t *testing.T) {
	expr, params := apply(t, "definitely_not_registered", 42)

	node, ok := expr.(predicate.InfixNode)
	if !ok || node.Operator() != predicate.OperatorEq {
		t.Fatalf("expected equality fallback, got %#v", expr)
	}
	if params.Count() != 1 {
		t.Errorf("expected one binding, got %d", params.Count())
	}
}

func TestRegisterReplacesExisting(t *testing.T) {
	r := Default()
	r.Register("gte", func(field predicate.FieldNode, value any, params *predicate.Params) (predicate.Visitable, error) {
		return predicate.Truth(true), nil
	})

	expr, err := r.Apply("gte", predicate.Field("age"), 18, predicate.NewParams())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := expr.(predicate.TruthNode); !ok {
		t.Errorf("expected replacement to win, got %#v", expr)
	}
}

func TestMembershipEmptyLists(t *testing.T) {
	expr, params := apply(t, "in", []any{})
	if node, ok := expr.(predicate.TruthNode); !ok || node.Value() {
		t.Errorf("empty IN should never match, got %#v", expr)
	}
	if params.Count() != 0 {
		t.Errorf("empty IN should bind nothing, got %d", params.Count())
	}

	expr, _ = apply(t, "not_in", []any{})
	if node, ok := expr.(predicate.TruthNode); !ok || !node.Value() {
		t.Errorf("empty NOT IN should always match, got %#v", expr)
	}
}

func TestMembershipBindsEachItem(t *testing.T) {
	expr, params := apply(t, "in", []string{"admin", "editor"})

	node := expr.(predicate.InfixNode)
	if node.Operator() != predicate.OperatorIn {
		t.Fatalf("expected IN, got %s", node.Operator())
	}
	list := node.Right().(predicate.ListNode)
	if len(list.Items()) != 2 {
		t.Fatalf("expected two items, got %d", len(list.Items()))
	}
	bindings := params.Bindings()
	if bindings[0].Name != "u_age_1" || bindings[1].Name != "u_age_2" {
		t.Errorf("unexpected binding names %v", bindings)
	}
}

func TestMembershipRejectsScalar(t *testing.T) {
	_, err := Default().Apply("in", predicate.Field("age"), 42, predicate.NewParams())
	if err == nil {
		t.Fatal("expected error for scalar IN value")
	}
}

func TestBetweenExpandsToBoundsPair(t *testing.T) {
	expr, params := apply(t, "between", []any{18, 65})

	node, ok := expr.(predicate.InfixNode)
	if !ok || node.Operator() != predicate.OperatorAnd {
		t.Fatalf("expected AND pair, got %#v", expr)
	}
	lo := node.Left().(predicate.InfixNode)
	hi := node.Right().(predicate.InfixNode)
	if lo.Operator() != predicate.OperatorGte || hi.Operator() != predicate.OperatorLte {
		t.Errorf("expected >= and <=, got %s and %s", lo.Operator(), hi.Operator())
	}
	if params.Count() != 2 {
		t.Errorf("expected two bindings, got %d", params.Count())
	}
}

func TestNotBetweenWrapsTheSamePair(t *testing.T) {
	expr, _ := apply(t, "not_between", []any{18, 65})

	node, ok := expr.(predicate.PrefixNode)
	if !ok || node.Operator() != predicate.OperatorNot {
		t.Fatalf("expected NOT wrapper, got %#v", expr)
	}
	if inner, ok := node.Operand().(predicate.InfixNode); !ok || inner.Operator() != predicate.OperatorAnd {
		t.Errorf("expected AND pair inside NOT, got %#v", node.Operand())
	}
}

func TestBetweenRejectsWrongArity(t *testing.T) {
	for _, value := range []any{[]any{18}, []any{1, 2, 3}, 18} {
		if _, err := Default().Apply("between", predicate.Field("age"), value, predicate.NewParams()); err == nil {
			t.Errorf("expected error for %v", value)
		}
	}
}

func TestNullnessIgnoresValue(t *testing.T) {
	expr, params := apply(t, "is_null", "ignored")
	if node, ok := expr.(predicate.PostfixNode); !ok || node.Operator() != predicate.OperatorIsNull {
		t.Fatalf("expected IS NULL, got %#v", expr)
	}
	if params.Count() != 0 {
		t.Errorf("is_null should bind nothing, got %d", params.Count())
	}

	expr, _ = apply(t, "is_not_null", nil)
	if node, ok := expr.(predicate.PostfixNode); !ok || node.Operator() != predicate.OperatorIsNotNull {
		t.Fatalf("expected IS NOT NULL, got %#v", expr)
	}
}

func TestPatternWildcardsAreEscaped(t *testing.T) {
	cases := []struct {
		name  string
		value string
		want  string
	}{
		{"contains", "50%", `%50\%%`},
		{"contains", "a_b", `%a\_b%`},
		{"starts_with", `C:\`, `C:\\%`},
		{"ends_with", "son", "%son"},
		{"like", "jo%n", "jo%n"},
	}
	for _, c := range cases {
		_, params := apply(t, c.name, c.value)
		if got := params.Bindings()[0].Value; got != c.want {
			t.Errorf("%s(%q): bound %q, want %q", c.name, c.value, got, c.want)
		}
	}
}

func TestPatternRejectsNonString(t *testing.T) {
	_, err := Default().Apply("contains", predicate.Field("name"), 42, predicate.NewParams())
	if err == nil {
		t.Fatal("expected error for non-string pattern")
	}
}

func TestComparisonRejectsNil(t *testing.T) {
	_, err := Default().Apply("gt", predicate.Field("age"), nil, predicate.NewParams())
	if err == nil {
		t.Fatal("expected error for nil comparison value")
	}
}
