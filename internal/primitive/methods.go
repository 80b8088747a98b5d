package primitive

import (
	"github.com/csml-dev/csml-engine/internal/rerr"
	"github.com/csml-dev/csml-engine/internal/source"
)

// Access describes whether a method call yields a fresh value or mutates
// its receiver in place (spec §4.4 "Method dispatch").
type Access int

const (
	Read Access = iota
	Write
)

// MethodFunc is the uniform signature every method table entry satisfies.
// For Write methods on *Array/*Object the mutation happens on the
// receiver directly (it is already pointer-held); the returned Value is
// what the call expression evaluates to. For Write methods on immutable
// receivers (string) the returned Value is the new receiver and the
// interpreter is responsible for rebinding the scope variable that held
// it (spec §4.4: "used by remember's write-back logic").
type MethodFunc func(receiver Value, args []Value, iv source.Interval) (Value, error)

// Method is one entry in a variant's method table.
type Method struct {
	Access Access
	Fn     MethodFunc
}

// table is a single variant's name -> Method map.
type table map[string]Method

var tables = map[Kind]table{
	KindNull:    nullMethods,
	KindBool:    boolMethods,
	KindInt:     intMethods,
	KindFloat:   floatMethods,
	KindString:  stringMethods,
	KindArray:   arrayMethods,
	KindObject:  objectMethods,
	KindClosure: closureMethods,
}

// Lookup resolves receiver.name, or an UnknownMethod error.
func Lookup(receiver Value, name string, iv source.Interval) (Method, error) {
	t, ok := tables[receiver.Kind()]
	if !ok {
		return Method{}, rerr.UnknownMethod(iv, receiver.Kind().String(), name)
	}
	m, ok := t[name]
	if !ok {
		return Method{}, rerr.UnknownMethod(iv, receiver.Kind().String(), name)
	}
	return m, nil
}

func badArgument(iv source.Interval, format string, args ...any) error {
	return rerr.New(iv, rerr.CategoryBadArgument, format, args...)
}

func indexOutOfRange(iv source.Interval, index, length int) error {
	return rerr.New(iv, rerr.CategoryIndexOutOfRange, "index %d out of range for length %d", index, length)
}

func wantArity(iv source.Interval, method string, want, got int) error {
	return badArgument(iv, "%s expects %d argument(s), got %d", method, want, got)
}
