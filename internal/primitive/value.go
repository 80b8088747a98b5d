// Package primitive implements CSML's dynamic value domain: the eight
// variants (null, boolean, int, float, string, array, object, closure),
// their method tables, equality/ordering/arithmetic rules, truthiness, and
// JSON shape — spec §4.4 (C4).
package primitive

import (
	"fmt"

	"github.com/csml-dev/csml-engine/internal/ast"
)

// Kind discriminates the eight primitive variants.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindObject
	KindClosure
)

// String returns the lowercase variant name used in error categories
// ("<type>_unknown_method"), type_of() results, and the generic-component
// content_type namespace.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindClosure:
		return "closure"
	default:
		return "unknown"
	}
}

// Value is any CSML runtime value. All eight variants implement it.
type Value interface {
	Kind() Kind
	// Display renders the value the way `say` and string interpolation
	// do — human text, not a JSON encoding (e.g. strings are unquoted,
	// floats drop trailing zeros per Go's default float formatting).
	Display() string
}

// Null is the sole null value. Use the exported Nil instance rather than
// constructing Null{} so that equality checks (`v == primitive.Nil`) work
// without a Kind() dispatch.
type Null struct{}

func (Null) Kind() Kind      { return KindNull }
func (Null) Display() string { return "null" }

// Nil is the canonical null value.
var Nil = Null{}

// Bool is the boolean variant.
type Bool bool

func (Bool) Kind() Kind { return KindBool }
func (b Bool) Display() string {
	if b {
		return "true"
	}
	return "false"
}

// Int is the signed 64-bit integer variant.
type Int int64

func (Int) Kind() Kind        { return KindInt }
func (i Int) Display() string { return fmt.Sprintf("%d", int64(i)) }

// Float is the IEEE-754 double variant.
type Float float64

func (Float) Kind() Kind { return KindFloat }
func (f Float) Display() string {
	return fmt.Sprintf("%v", float64(f))
}

// Str is the UTF-8 string variant.
type Str string

func (Str) Kind() Kind        { return KindString }
func (s Str) Display() string { return string(s) }

// Closure is a callable value: a parameter list, a captured environment
// snapshot (copy-on-capture, see spec §9 "Cyclic self-reference in
// closures"), and a body. Scope is a flat string->Value map; Env is a
// stack of Scopes captured by value at closure-creation time so that
// later mutation of the defining scope is never observed — recursion
// works because the closure's own name is bound into its captured scope
// when `use ... as` binds it (see Interpreter.execUse); a top-level `fn`
// recurses through the flow's own fn lookup instead.
type Closure struct {
	Name    string
	Params  []string
	Body    *ast.Block
	Env     []Scope
}

func (*Closure) Kind() Kind { return KindClosure }
func (c *Closure) Display() string {
	if c.Name != "" {
		return fmt.Sprintf("<closure %s/%d>", c.Name, len(c.Params))
	}
	return fmt.Sprintf("<closure/%d>", len(c.Params))
}

// Scope is a single lexical scope: a flat map of bindings. It is the unit
// of copy-on-capture for closures and the unit of push/pop for blocks and
// foreach loops in the interpreter.
type Scope map[string]Value

// Clone returns a shallow copy of the scope (values themselves are not
// deep-copied; CSML values other than array/object/closure are immutable,
// and array/object write methods intentionally mutate shared instances).
func (s Scope) Clone() Scope {
	out := make(Scope, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Truthy implements spec §4.4 truthiness: false, null, 0, 0.0, "", [],
// and {} are falsy; everything else is truthy.
func Truthy(v Value) bool {
	switch t := v.(type) {
	case Null:
		return false
	case Bool:
		return bool(t)
	case Int:
		return t != 0
	case Float:
		return t != 0
	case Str:
		return t != ""
	case *Array:
		return len(t.Items) != 0
	case *Object:
		return t.Len() != 0
	default:
		return true
	}
}
