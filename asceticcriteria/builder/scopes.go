package builder

// Scope is a named criteria fragment applied to every materialization of
// a builder unless excluded by name. Scopes run against a scratch copy,
// in registration order, so they never contaminate the accumulated state.
type Scope func(*Builder)

// WithScope registers scope under name. Re-registering a name replaces
// the previous scope and keeps its position in the application order.
func (b *Builder) WithScope(name string, scope Scope) *Builder {
	if b.scopes == nil {
		b.scopes = make(map[string]Scope)
	}
	if _, exists := b.scopes[name]; !exists {
		b.scopeOrder = append(b.scopeOrder, name)
	}
	b.scopes[name] = scope
	return b
}

// WithoutScope excludes named scopes from materialization. Unknown names
// are ignored.
func (b *Builder) WithoutScope(names ...string) *Builder {
	if b.withoutScopes == nil {
		b.withoutScopes = make(map[string]struct{})
	}
	for _, name := range names {
		b.withoutScopes[name] = struct{}{}
	}
	return b
}

// NotDeletedScope hides soft-deleted rows: rows whose delete marker
// column is set. Register it under a well-known name so callers can
// opt out with WithoutScope.
func NotDeletedScope(column string) Scope {
	return func(b *Builder) {
		b.WhereNull(column)
	}
}
