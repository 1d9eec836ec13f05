// Package operators maps operator names from the criteria grammar ("gte",
// "between", "in", ...) to strategies producing leaf predicates. Built-in
// and caller-registered operators share one calling convention; lookup is
// by exact name, and re-registering a name silently replaces it.
package operators

import (
	"reflect"

	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/predicate"
)

// Func renders one leaf comparison. Bound values go through params so
// names stay unique across the whole compile pass; a returned error marks
// the node malformed and the compiler drops it.
type Func func(field predicate.FieldNode, value any, params *predicate.Params) (predicate.Visitable, error)

type Registry struct {
	defs map[string]Func
}

// NewRegistry returns an empty registry. Unknown names still compile:
// Apply falls back to equality, the grammar's documented leniency.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Func)}
}

// Register binds a name to a strategy, replacing any previous one.
// Registration is meant for setup time; it is not synchronized against
// concurrent Apply calls.
func (r *Registry) Register(name string, fn Func) {
	r.defs[name] = fn
}

func (r *Registry) Has(name string) bool {
	_, ok := r.defs[name]
	return ok
}

// Apply renders the named operator for a resolved field. An unregistered
// name falls back to equality semantics rather than failing.
func (r *Registry) Apply(name string, field predicate.FieldNode, value any, params *predicate.Params) (predicate.Visitable, error) {
	fn, ok := r.defs[name]
	if !ok {
		fn = equality
	}
	return fn(field, value, params)
}

// normalizeList turns any slice value into []any. []byte stays scalar:
// it is a blob, not a membership list.
func normalizeList(value any) ([]any, bool) {
	if items, ok := value.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}
