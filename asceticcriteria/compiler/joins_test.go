package compiler

import (
	"testing"

	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/predicate"
)

func TestResolveSingleSegment(t *testing.T) {
	r := NewResolver("u")

	if ref := r.Resolve("age"); ref != "u.age" {
		t.Errorf("unexpected ref %q", ref)
	}
	if len(r.Joins()) != 0 {
		t.Errorf("no joins expected, got %v", r.Joins())
	}
}

func TestResolveWithoutRootAlias(t *testing.T) {
	r := NewResolver("")

	if ref := r.Resolve("age"); ref != "age" {
		t.Errorf("unexpected ref %q", ref)
	}
	if ref := r.Resolve("orders.total"); ref != "orders_1.total" {
		t.Errorf("unexpected ref %q", ref)
	}
	if joins := r.Joins(); len(joins) != 1 || joins[0].RelationPath() != "orders" {
		t.Errorf("unexpected joins %v", joins)
	}
}

func TestResolveWalksRelationChain(t *testing.T) {
	r := NewResolver("u")

	ref := r.Resolve("profile.address.city")

	if ref != "address_2.city" {
		t.Errorf("unexpected ref %q", ref)
	}
	joins := r.Joins()
	if len(joins) != 2 {
		t.Fatalf("expected two joins, got %v", joins)
	}
	if joins[0].RelationPath() != "u.profile" || joins[0].Alias() != "profile_1" {
		t.Errorf("unexpected first join %+v", joins[0])
	}
	if joins[1].RelationPath() != "profile_1.address" || joins[1].Alias() != "address_2" {
		t.Errorf("unexpected second join %+v", joins[1])
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	r := NewResolver("u")

	first := r.Resolve("profile.address.city")
	second := r.Resolve("profile.address.city")

	if first != second {
		t.Errorf("refs differ: %q vs %q", first, second)
	}
	if len(r.Joins()) != 2 {
		t.Errorf("duplicate joins emitted: %v", r.Joins())
	}
}

func TestResolveSiblingRelationsAtSameDepth(t *testing.T) {
	r := NewResolver("u")

	r.Resolve("profile.city")
	r.Resolve("orders.total")

	joins := r.Joins()
	if len(joins) != 2 {
		t.Fatalf("expected two joins, got %v", joins)
	}
	if joins[0].Alias() != "profile_1" || joins[1].Alias() != "orders_1" {
		t.Errorf("depth-derived aliases collided: %v", joins)
	}
}

func TestResolvePreAliasedPathPassesThrough(t *testing.T) {
	r := NewResolver("u")
	r.AddJoin(InnerJoin("u.profile", "p"))

	if ref := r.Resolve("p.city"); ref != "p.city" {
		t.Errorf("unexpected ref %q", ref)
	}
	if ref := r.Resolve("u.name"); ref != "u.name" {
		t.Errorf("root-qualified path should pass through, got %q", ref)
	}
	if len(r.Joins()) != 1 {
		t.Errorf("passthrough must not join, got %v", r.Joins())
	}
}

func TestAddJoinDeduplicates(t *testing.T) {
	r := NewResolver("u")

	if !r.AddJoin(LeftJoin("u.profile", "profile")) {
		t.Error("first add should record")
	}
	if r.AddJoin(LeftJoin("u.profile", "profile")) {
		t.Error("second add should be a no-op")
	}
	if !r.AddJoin(LeftJoin("u.profile", "profile_again")) {
		t.Error("same relation under another alias is a distinct join")
	}
	if len(r.Joins()) != 2 {
		t.Errorf("unexpected joins %v", r.Joins())
	}
}

func TestJoinSpecConditions(t *testing.T) {
	expr := predicate.IsNull(predicate.Field("orders.deleted_at"))

	join := LeftJoin("u.orders", "orders").With(expr)
	cond := join.Condition()
	if cond.IsNothing() {
		t.Fatal("expected a condition")
	}
	if cond.Unwrap().Kind() != ConditionKindWith {
		t.Errorf("unexpected kind %s", cond.Unwrap().Kind())
	}

	join = InnerJoin("u.orders", "orders").On(expr)
	if join.Condition().Unwrap().Kind() != ConditionKindOn {
		t.Errorf("unexpected kind %s", join.Condition().Unwrap().Kind())
	}

	if LeftJoin("u.orders", "orders").Condition().IsSome() {
		t.Error("fresh join should carry no condition")
	}
}
