package builder

import (
	"context"
	"testing"
	"time"

	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/compiler"
	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/predicate"
	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/render"
)

type targetStub struct {
	joins      []compiler.JoinSpec
	where      predicate.Visitable
	params     map[string]any
	columns    []string
	orders     []Order
	limit      int
	offset     int
	cacheTTL   time.Duration
	scalarExpr string

	rows   []Row
	scalar any
	err    error
}

func (t *targetStub) AddJoin(join compiler.JoinSpec) {
	t.joins = append(t.joins, join)
}

func (t *targetStub) AddWhere(expr predicate.Visitable) {
	t.where = expr
}

func (t *targetStub) BindParameter(name string, value any) {
	if t.params == nil {
		t.params = make(map[string]any)
	}
	t.params[name] = value
}

func (t *targetStub) SetColumns(columns ...string) {
	t.columns = columns
}

func (t *targetStub) SetOrderBy(orders ...Order) {
	t.orders = orders
}

func (t *targetStub) SetLimit(limit int) {
	t.limit = limit
}

func (t *targetStub) SetOffset(offset int) {
	t.offset = offset
}

func (t *targetStub) SetCache(ttl time.Duration) {
	t.cacheTTL = ttl
}

func (t *targetStub) Execute(context.Context) ([]Row, error) {
	return t.rows, t.err
}

func (t *targetStub) ExecuteScalar(_ context.Context, expr string) (any, error) {
	t.scalarExpr = expr
	return t.scalar, t.err
}

type sourceStub struct {
	alias   string
	rows    []Row
	scalar  any
	targets []*targetStub
}

func (s *sourceStub) NewTarget() Target {
	target := &targetStub{rows: s.rows, scalar: s.scalar, limit: -1, offset: -1}
	s.targets = append(s.targets, target)
	return target
}

func (s *sourceStub) RootAlias() string {
	if s.alias == "" {
		return "u"
	}
	return s.alias
}

func whereSQL(t *testing.T, target *targetStub) string {
	t.Helper()
	if target.where == nil {
		return ""
	}
	rendered, err := render.Render(target.where)
	if err != nil {
		t.Fatal(err)
	}
	return rendered.SQL
}

func lastTarget(t *testing.T, source *sourceStub) *targetStub {
	t.Helper()
	if len(source.targets) == 0 {
		t.Fatal("no target was materialized")
	}
	return source.targets[len(source.targets)-1]
}

func TestBuilderChainMatchesRawCriteria(t *testing.T) {
	b := New(&sourceStub{}).
		Where("status", "active").
		Where("age", ">", 18)

	chained := compiler.NewCompiler("u").Compile(b.Criteria())
	raw := compiler.Compile("u", []any{
		map[string]any{"status": "active"},
		[]any{"age", ">", 18},
	})

	if chained.IsNothing() || raw.IsNothing() {
		t.Fatal("both forms should compile")
	}
	chainedSQL, err := render.Render(chained.Unwrap().Predicate)
	if err != nil {
		t.Fatal(err)
	}
	rawSQL, err := render.Render(raw.Unwrap().Predicate)
	if err != nil {
		t.Fatal(err)
	}
	if chainedSQL.SQL != rawSQL.SQL {
		t.Errorf("builder chain %q differs from raw criteria %q", chainedSQL.SQL, rawSQL.SQL)
	}
}

func TestBuilderOrWhereStartsNewRun(t *testing.T) {
	source := &sourceStub{}
	b := New(source).
		Where("a", 1).
		Where("b", 2).
		OrWhere("c", 3)

	if _, err := b.Get(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := "u.a = :u_a_1 AND u.b = :u_b_2 OR u.c = :u_c_3"
	if got := whereSQL(t, lastTarget(t, source)); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBuilderCallbackGrouping(t *testing.T) {
	source := &sourceStub{}
	b := New(source).
		Where("status", "active").
		OrWhere(func(q *Builder) {
			q.Where("age", ">", 65).Where("vip", true)
		})

	if _, err := b.Get(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := "u.status = :u_status_1 OR u.age > :u_age_2 AND u.vip = :u_vip_3"
	if got := whereSQL(t, lastTarget(t, source)); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBuilderNamedGroupMethods(t *testing.T) {
	source := &sourceStub{}
	b := New(source).
		WhereGroup(func(q *Builder) {
			q.Where("status", "active").Where("verified", true)
		}).
		OrWhereGroup(func(q *Builder) {
			q.Where("role", "admin")
		})

	if _, err := b.Get(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := "u.status = :u_status_1 AND u.verified = :u_verified_2 OR u.role = :u_role_3"
	if got := whereSQL(t, lastTarget(t, source)); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBuilderConvenienceClauses(t *testing.T) {
	source := &sourceStub{}
	b := New(source).
		WhereIn("role", "admin", "editor").
		WhereBetween("age", 18, 65).
		WhereNull("deleted_at").
		WhereContains("name", "jo")

	if _, err := b.Get(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := "u.role IN (:u_role_1, :u_role_2)" +
		" AND u.age >= :u_age_3 AND u.age <= :u_age_4" +
		" AND u.deleted_at IS NULL" +
		" AND u.name LIKE :u_name_5"
	if got := whereSQL(t, lastTarget(t, source)); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	target := lastTarget(t, source)
	if target.params["u_name_5"] != "%jo%" {
		t.Errorf("contains should wrap the pattern, got %v", target.params["u_name_5"])
	}
}

func TestBuilderGetAppliesAccumulatedState(t *testing.T) {
	source := &sourceStub{rows: []Row{{"id": 1}}}
	b := New(source).
		LeftJoin("u.profile", "profile").
		Where("profile.city", "Lisbon").
		Select("u.id", "u.name").
		OrderBy("name", Desc).
		Limit(10).
		Offset(5).
		Cache(time.Minute)

	rows, err := b.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected stub rows back, got %v", rows)
	}

	target := lastTarget(t, source)
	if len(target.joins) != 1 || target.joins[0].Alias() != "profile" {
		t.Errorf("unexpected joins %v", target.joins)
	}
	if got := whereSQL(t, target); got != "profile.city = :profile_city_1" {
		t.Errorf("unexpected where %q", got)
	}
	if target.params["profile_city_1"] != "Lisbon" {
		t.Errorf("unexpected params %v", target.params)
	}
	if len(target.columns) != 2 {
		t.Errorf("unexpected columns %v", target.columns)
	}
	if len(target.orders) != 1 || target.orders[0].Field != "u.name" || target.orders[0].Direction != Desc {
		t.Errorf("order field should resolve through the root alias, got %v", target.orders)
	}
	if target.limit != 10 || target.offset != 5 {
		t.Errorf("unexpected range %d/%d", target.limit, target.offset)
	}
	if target.cacheTTL != time.Minute {
		t.Errorf("unexpected cache ttl %v", target.cacheTTL)
	}
}

func TestBuilderOrderByDottedPathJoins(t *testing.T) {
	source := &sourceStub{}
	b := New(source).OrderBy("orders.total", Desc)

	if _, err := b.Get(context.Background()); err != nil {
		t.Fatal(err)
	}

	target := lastTarget(t, source)
	if len(target.orders) != 1 || target.orders[0].Field != "orders_1.total" {
		t.Errorf("unexpected orders %v", target.orders)
	}
	if len(target.joins) != 1 || target.joins[0].RelationPath() != "u.orders" {
		t.Errorf("ordering by a relation field should join it, got %v", target.joins)
	}
}

func TestBuilderFirst(t *testing.T) {
	source := &sourceStub{rows: []Row{{"id": 1}, {"id": 2}}}
	b := New(source).Where("status", "active")

	row, err := b.First(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if row.IsNothing() || row.Unwrap()["id"] != 1 {
		t.Errorf("expected first row, got %v", row)
	}
	if target := lastTarget(t, source); target.limit != 1 {
		t.Errorf("first should force limit 1, got %d", target.limit)
	}
}

func TestBuilderFirstEmpty(t *testing.T) {
	b := New(&sourceStub{})

	row, err := b.First(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if row.IsSome() {
		t.Errorf("expected nothing, got %v", row)
	}
}

func TestBuilderCountIgnoresRangeAndOrder(t *testing.T) {
	source := &sourceStub{scalar: int64(42)}
	b := New(source).
		Where("status", "active").
		OrderBy("name", Asc).
		Limit(10).
		Offset(5)

	count, err := b.Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if count != 42 {
		t.Errorf("unexpected count %d", count)
	}

	target := lastTarget(t, source)
	if target.scalarExpr != "COUNT(*)" {
		t.Errorf("unexpected aggregate %q", target.scalarExpr)
	}
	if target.limit != -1 || target.offset != -1 {
		t.Errorf("count pass must not carry range state, got %d/%d", target.limit, target.offset)
	}
	if len(target.orders) != 0 {
		t.Errorf("count pass must not carry ordering, got %v", target.orders)
	}
}

func TestBuilderCountConvertsDriverTypes(t *testing.T) {
	for _, scalar := range []any{int64(7), 7, "7", []byte("7"), float64(7)} {
		source := &sourceStub{scalar: scalar}
		count, err := New(source).Count(context.Background())
		if err != nil {
			t.Fatalf("%T: %v", scalar, err)
		}
		if count != 7 {
			t.Errorf("%T: got %d", scalar, count)
		}
	}
}

func TestBuilderAggregatesResolveFields(t *testing.T) {
	source := &sourceStub{scalar: float64(99.5)}
	b := New(source).Where("status", "paid")

	total, err := b.Sum(context.Background(), "orders.total")
	if err != nil {
		t.Fatal(err)
	}
	if total != 99.5 {
		t.Errorf("unexpected sum %v", total)
	}

	target := lastTarget(t, source)
	if target.scalarExpr != "SUM(orders_1.total)" {
		t.Errorf("unexpected aggregate %q", target.scalarExpr)
	}
	if len(target.joins) != 1 || target.joins[0].RelationPath() != "u.orders" {
		t.Errorf("aggregate field should join its relation, got %v", target.joins)
	}
}

func TestBuilderExists(t *testing.T) {
	exists, err := New(&sourceStub{scalar: int64(3)}).Exists(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Error("expected true for a positive count")
	}

	exists, err = New(&sourceStub{scalar: int64(0)}).Exists(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Error("expected false for a zero count")
	}
}

func TestBuilderPaginateRunsTwoIndependentPasses(t *testing.T) {
	source := &sourceStub{scalar: int64(42), rows: []Row{{"id": 1}}}
	b := New(source).Where("status", "active").Limit(99).Offset(77)

	page, err := b.Paginate(context.Background(), 2, 10)
	if err != nil {
		t.Fatal(err)
	}

	if len(source.targets) != 2 {
		t.Fatalf("expected two materializations, got %d", len(source.targets))
	}
	countPass, fetchPass := source.targets[0], source.targets[1]
	if countPass.limit != -1 || countPass.offset != -1 {
		t.Errorf("fetch range leaked into count pass: %d/%d", countPass.limit, countPass.offset)
	}
	if fetchPass.limit != 10 || fetchPass.offset != 10 {
		t.Errorf("unexpected fetch window %d/%d", fetchPass.limit, fetchPass.offset)
	}
	if page.Total != 42 || page.CurrentPage != 2 || page.PerPage != 10 || page.LastPage != 5 {
		t.Errorf("unexpected page %+v", page)
	}
	if len(page.Items) != 1 {
		t.Errorf("unexpected items %v", page.Items)
	}
	if !page.HasMore() {
		t.Error("page 2 of 5 should report more pages")
	}
}

func TestBuilderPaginateEmptyResultSkipsFetch(t *testing.T) {
	source := &sourceStub{scalar: int64(0)}

	page, err := New(source).Paginate(context.Background(), 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(source.targets) != 1 {
		t.Errorf("no fetch pass expected for an empty total, got %d targets", len(source.targets))
	}
	if page.Total != 0 || page.LastPage != 1 || len(page.Items) != 0 {
		t.Errorf("unexpected page %+v", page)
	}
}

func TestBuilderPaginateClampsArguments(t *testing.T) {
	source := &sourceStub{scalar: int64(5), rows: []Row{{"id": 1}}}

	page, err := New(source).Paginate(context.Background(), 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if page.CurrentPage != 1 || page.PerPage != DefaultPerPage {
		t.Errorf("unexpected page %+v", page)
	}
	fetchPass := source.targets[1]
	if fetchPass.limit != DefaultPerPage || fetchPass.offset != 0 {
		t.Errorf("unexpected fetch window %d/%d", fetchPass.limit, fetchPass.offset)
	}
}

func TestBuilderScopesApplyWithoutContaminating(t *testing.T) {
	source := &sourceStub{}
	b := New(source).
		WithScope("not_deleted", NotDeletedScope("deleted_at")).
		Where("status", "active")

	if _, err := b.Get(context.Background()); err != nil {
		t.Fatal(err)
	}
	first := whereSQL(t, lastTarget(t, source))
	if first != "u.status = :u_status_1 AND u.deleted_at IS NULL" {
		t.Errorf("unexpected where %q", first)
	}

	if _, err := b.Get(context.Background()); err != nil {
		t.Fatal(err)
	}
	second := whereSQL(t, lastTarget(t, source))
	if second != first {
		t.Errorf("scope leaked into accumulated state: %q vs %q", first, second)
	}
}

func TestBuilderWithoutScope(t *testing.T) {
	source := &sourceStub{}
	b := New(source).
		WithScope("not_deleted", NotDeletedScope("deleted_at")).
		WithoutScope("not_deleted").
		Where("status", "active")

	if _, err := b.Get(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := whereSQL(t, lastTarget(t, source)); got != "u.status = :u_status_1" {
		t.Errorf("excluded scope still applied: %q", got)
	}
}

func TestBuilderMacros(t *testing.T) {
	RegisterMacro("adults", func(b *Builder, args ...any) {
		b.Where("age", ">=", 18)
	})
	RegisterMacro("adults", func(b *Builder, args ...any) {
		threshold := 21
		if len(args) > 0 {
			if n, ok := args[0].(int); ok {
				threshold = n
			}
		}
		b.Where("age", ">=", threshold)
	})

	if !HasMacro("adults") {
		t.Fatal("macro should be registered")
	}

	source := &sourceStub{}
	b := New(source).Apply("adults", 30).Apply("definitely_unregistered")

	if _, err := b.Get(context.Background()); err != nil {
		t.Fatal(err)
	}
	target := lastTarget(t, source)
	if got := whereSQL(t, target); got != "u.age >= :u_age_1" {
		t.Errorf("unexpected where %q", got)
	}
	if target.params["u_age_1"] != 30 {
		t.Errorf("last registration should win and take args, got %v", target.params)
	}
}

func TestBuilderReset(t *testing.T) {
	source := &sourceStub{}
	b := New(source).
		Where("status", "active").
		OrderBy("name", Asc).
		Limit(10).
		Cache(time.Minute)

	b.Reset()

	if nodes := b.Criteria(); nodes != nil {
		t.Errorf("criteria should be empty after reset, got %v", nodes)
	}
	if _, err := b.Get(context.Background()); err != nil {
		t.Fatal(err)
	}
	target := lastTarget(t, source)
	if target.where != nil || target.limit != -1 || len(target.orders) != 0 || target.cacheTTL != 0 {
		t.Errorf("reset state still reached the target: %+v", target)
	}
}

func TestBuilderWithoutSource(t *testing.T) {
	b := &Builder{}
	if _, err := b.Get(context.Background()); err == nil {
		t.Fatal("expected an error without an execution source")
	}
	if _, err := b.Count(context.Background()); err == nil {
		t.Fatal("expected an error without an execution source")
	}
}

func TestBuilderMalformedWhereIgnored(t *testing.T) {
	source := &sourceStub{}
	b := New(source).
		Where().
		Where(42, "x").
		Where("valid", 1)

	if _, err := b.Get(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := whereSQL(t, lastTarget(t, source)); got != "u.valid = :u_valid_1" {
		t.Errorf("unexpected where %q", got)
	}
}
