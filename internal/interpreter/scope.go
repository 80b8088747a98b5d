package interpreter

import "github.com/csml-dev/csml-engine/internal/primitive"

// Scopes is the stack of lexical scopes the interpreter threads through a
// step: scopes[0] is the outer layer (long-term memory snapshot, bot
// constants, event-derived names); `use ... as x` binds in the innermost
// scope; `remember x = ...` binds in scopes[0] and records a memory write
// (spec §4.5).
type Scopes struct {
	layers []primitive.Scope
}

// NewScopes builds a scope stack seeded with a single outer layer.
func NewScopes(outer primitive.Scope) *Scopes {
	if outer == nil {
		outer = primitive.Scope{}
	}
	return &Scopes{layers: []primitive.Scope{outer}}
}

// Push adds a fresh innermost scope, used by if/foreach/fn bodies.
func (s *Scopes) Push() { s.layers = append(s.layers, primitive.Scope{}) }

// Pop removes the innermost scope.
func (s *Scopes) Pop() { s.layers = s.layers[:len(s.layers)-1] }

// Get resolves name from the innermost scope outward.
func (s *Scopes) Get(name string) (primitive.Value, bool) {
	for i := len(s.layers) - 1; i >= 0; i-- {
		if v, ok := s.layers[i][name]; ok {
			return v, true
		}
	}
	return nil, false
}

// BindLocal binds name in the innermost scope (`use ... as x`).
func (s *Scopes) BindLocal(name string, v primitive.Value) {
	s.layers[len(s.layers)-1][name] = v
}

// BindOuter binds name in the outermost scope (`remember x = ...`),
// shadowing any value already visible so the same interaction sees the
// new value immediately (spec §5 ordering: memory writes take effect at
// commit, but the in-interaction scope shadow is visible right away).
func (s *Scopes) BindOuter(name string, v primitive.Value) {
	s.layers[0][name] = v
}

// Assign rebinds name in the innermost scope where it is already bound,
// or in the innermost scope if it is not bound anywhere yet (plain
// assignment to an undeclared name behaves like a local `use`).
func (s *Scopes) Assign(name string, v primitive.Value) {
	for i := len(s.layers) - 1; i >= 0; i-- {
		if _, ok := s.layers[i][name]; ok {
			s.layers[i][name] = v
			return
		}
	}
	s.BindLocal(name, v)
}

// Snapshot captures the current layers by value (shallow clone of each
// map) for a closure's copy-on-capture environment.
func (s *Scopes) Snapshot() []primitive.Scope {
	out := make([]primitive.Scope, len(s.layers))
	for i, l := range s.layers {
		out[i] = l.Clone()
	}
	return out
}
