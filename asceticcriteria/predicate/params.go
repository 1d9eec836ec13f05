package predicate

import (
	"fmt"
	"strings"
)

type Binding struct {
	Name  string
	Value any
}

// Params issues uniquely named bind parameters for one compile pass and
// records them in issue order. Names are derived from a caller hint
// (typically the resolved field reference) plus a monotonically increasing
// counter, so "u.age" binds as u_age_1, u_age_2, ... and never collides.
type Params struct {
	seq      int
	bindings []Binding
}

func NewParams() *Params {
	return &Params{}
}

// NewParamsAt starts the counter at offset, for callers merging parameters
// from several compile passes into one statement.
func NewParamsAt(offset int) *Params {
	return &Params{seq: offset}
}

func (p *Params) Bind(hint string, value any) ParamNode {
	p.seq++
	name := fmt.Sprintf("%s_%d", sanitizeHint(hint), p.seq)
	p.bindings = append(p.bindings, Binding{Name: name, Value: value})
	return ParamNode{name: name, value: value}
}

// Bindings returns the parameters issued so far, in issue order.
func (p *Params) Bindings() []Binding {
	return p.bindings
}

func (p *Params) Count() int {
	return len(p.bindings)
}

func sanitizeHint(hint string) string {
	var b strings.Builder
	for _, r := range hint {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "p"
	}
	return b.String()
}
