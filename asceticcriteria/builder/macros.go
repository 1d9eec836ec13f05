package builder

import "sync"

// Macro is a reusable, parameterized builder mutation registered under a
// process-wide name.
type Macro func(b *Builder, args ...any)

var macroRegistry = struct {
	sync.RWMutex
	macros map[string]Macro
}{macros: make(map[string]Macro)}

// RegisterMacro binds name to macro, replacing any previous registration.
// Registration is meant for setup time, though the registry tolerates
// concurrent use.
func RegisterMacro(name string, macro Macro) {
	macroRegistry.Lock()
	defer macroRegistry.Unlock()
	macroRegistry.macros[name] = macro
}

// HasMacro reports whether name is registered.
func HasMacro(name string) bool {
	macroRegistry.RLock()
	defer macroRegistry.RUnlock()
	_, ok := macroRegistry.macros[name]
	return ok
}

// Apply invokes the named macro against the builder. An unknown name is
// a no-op, consistent with the grammar's leniency elsewhere.
func (b *Builder) Apply(name string, args ...any) *Builder {
	macroRegistry.RLock()
	macro, ok := macroRegistry.macros[name]
	macroRegistry.RUnlock()
	if ok {
		macro(b, args...)
	}
	return b
}
