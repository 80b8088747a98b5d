package primitive

import "strings"

// Object is the string-keyed variant. Insertion order is retained
// (spec §4.4 "for JSON round-trip") via a parallel key slice rather than
// Go's unordered map iteration.
type Object struct {
	keys []string
	vals map[string]Value
}

// NewObject builds an empty Object ready for Set calls.
func NewObject() *Object {
	return &Object{vals: make(map[string]Value)}
}

func (*Object) Kind() Kind { return KindObject }

func (o *Object) Display() string {
	parts := make([]string, 0, len(o.keys))
	for _, k := range o.keys {
		parts = append(parts, k+": "+o.vals[k].Display())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Set inserts or overwrites key. New keys are appended to the end of the
// insertion order; existing keys keep their original position.
func (o *Object) Set(key string, v Value) {
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
}

// Get returns the value at key and whether it was present.
func (o *Object) Get(key string) (Value, bool) {
	v, ok := o.vals[key]
	return v, ok
}

// Delete removes key, preserving the order of remaining keys.
func (o *Object) Delete(key string) {
	if _, ok := o.vals[key]; !ok {
		return
	}
	delete(o.vals, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Len returns the number of fields.
func (o *Object) Len() int { return len(o.keys) }

// ContentType returns the "content_type" field as a string, or "" if
// absent or not a string — used by the JSON shape rule (spec §4.4) and
// by built-ins that tag composite messages.
func (o *Object) ContentType() string {
	v, ok := o.Get("content_type")
	if !ok {
		return ""
	}
	if s, ok := v.(Str); ok {
		return string(s)
	}
	return ""
}

// Clone returns a shallow copy of the object (same backing values, new
// key/map storage) so mutation of the clone never aliases the original.
func (o *Object) Clone() *Object {
	out := &Object{
		keys: make([]string, len(o.keys)),
		vals: make(map[string]Value, len(o.vals)),
	}
	copy(out.keys, o.keys)
	for k, v := range o.vals {
		out.vals[k] = v
	}
	return out
}
