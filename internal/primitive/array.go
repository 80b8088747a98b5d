package primitive

import "strings"

// Array is the ordered, heterogeneous array variant. It is always held
// behind a pointer so that write methods (push, pop, insert_at, ...)
// mutate the single shared instance, matching spec §4.4's "write methods
// may mutate the receiver" contract.
type Array struct {
	Items []Value
}

// NewArray builds an Array from a slice of values, taking ownership of it.
func NewArray(items ...Value) *Array {
	return &Array{Items: items}
}

func (*Array) Kind() Kind { return KindArray }

func (a *Array) Display() string {
	parts := make([]string, len(a.Items))
	for i, v := range a.Items {
		parts[i] = v.Display()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Clone returns a new Array with a copy of the backing slice (but not a
// deep copy of element values) so that closures and memory snapshots
// don't alias the live conversation scope's array.
func (a *Array) Clone() *Array {
	items := make([]Value, len(a.Items))
	copy(items, a.Items)
	return &Array{Items: items}
}
