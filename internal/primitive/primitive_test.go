package primitive

import (
	"math"
	"testing"

	"github.com/csml-dev/csml-engine/internal/rerr"
	"github.com/csml-dev/csml-engine/internal/source"
)

func wantCategory(t *testing.T, err error, want rerr.Category) {
	t.Helper()
	rerrVal, ok := err.(*rerr.Error)
	if !ok {
		t.Fatalf("got error type %T, want *rerr.Error", err)
	}
	if rerrVal.Category != want {
		t.Fatalf("got category %q, want %q", rerrVal.Category, want)
	}
}

func TestArithmetic_IntAndFloatPromotion(t *testing.T) {
	v, err := Arithmetic(OpAdd, Int(1), Int(2), source.Interval{})
	if err != nil || v != Int(3) {
		t.Fatalf("1+2 = %v, %v; want 3, nil", v, err)
	}

	v, err = Arithmetic(OpAdd, Int(1), Float(2.5), source.Interval{})
	if err != nil || v != Float(3.5) {
		t.Fatalf("1+2.5 = %v, %v; want 3.5, nil", v, err)
	}
}

func TestArithmetic_StringCoercion(t *testing.T) {
	v, err := Arithmetic(OpAdd, Str("1"), Str("2"), source.Interval{})
	if err != nil || v != Int(3) {
		t.Fatalf(`"1"+"2" = %v, %v; want 3, nil`, v, err)
	}
}

func TestArithmetic_DivisionByZero(t *testing.T) {
	_, err := Arithmetic(OpDiv, Int(1), Int(0), source.Interval{})
	if err == nil {
		t.Fatal("1/0 should error")
	}
	wantCategory(t, err, rerr.CategoryDivisionByZero)

	_, err = Arithmetic(OpDiv, Float(1), Float(0), source.Interval{})
	if err == nil {
		t.Fatal("1.0/0.0 should error")
	}
	wantCategory(t, err, rerr.CategoryDivisionByZero)
}

func TestArithmetic_Overflow(t *testing.T) {
	_, err := Arithmetic(OpAdd, Int(math.MaxInt64), Int(1), source.Interval{})
	if err == nil {
		t.Fatal("MaxInt64+1 should overflow")
	}
	wantCategory(t, err, rerr.CategoryOverflow)
}

func TestArithmetic_IllegalOperation(t *testing.T) {
	_, err := Arithmetic(OpAdd, NewArray(), Int(1), source.Interval{})
	if err == nil {
		t.Fatal("array + int should be illegal")
	}
	wantCategory(t, err, rerr.CategoryIllegalOperation)
}

func TestEqual_CrossVariantNumericCoercion(t *testing.T) {
	if !Equal(Int(1), Float(1.0)) {
		t.Error("Int(1) should equal Float(1.0)")
	}
	if !Equal(Str("7"), Int(7)) {
		t.Error(`Str("7") should equal Int(7)`)
	}
	if Equal(Bool(true), Int(1)) {
		t.Error("Bool and Int should never compare equal")
	}
}

func TestEqual_ArraysAndObjects(t *testing.T) {
	a := NewArray(Int(1), Str("x"))
	b := NewArray(Int(1), Str("x"))
	if !Equal(a, b) {
		t.Error("arrays with equal elements should be equal")
	}

	oa := NewObject()
	oa.Set("k", Int(1))
	ob := NewObject()
	ob.Set("k", Int(1))
	if !Equal(oa, ob) {
		t.Error("objects with equal fields should be equal")
	}
	ob.Set("k", Int(2))
	if Equal(oa, ob) {
		t.Error("objects with differing field values should not be equal")
	}
}

func TestLess_NumericAndString(t *testing.T) {
	if less, ok := Less(Int(1), Int(2)); !ok || !less {
		t.Error("1 < 2 should be true")
	}
	if less, ok := Less(Str("a"), Str("b")); !ok || !less {
		t.Error(`"a" < "b" should be true`)
	}
	if _, ok := Less(Bool(true), Bool(false)); ok {
		t.Error("booleans have no defined order")
	}
}

func TestLess_ArraysLexicographic(t *testing.T) {
	a := NewArray(Int(1), Int(2))
	b := NewArray(Int(1), Int(3))
	if less, ok := Less(a, b); !ok || !less {
		t.Error("[1,2] < [1,3] should be true")
	}
	prefix := NewArray(Int(1))
	if less, ok := Less(prefix, a); !ok || !less {
		t.Error("[1] < [1,2] should be true (shorter prefix is less)")
	}
}

func TestTruthy(t *testing.T) {
	falsy := []Value{Nil, Bool(false), Int(0), Float(0), Str(""), NewArray(), NewObject()}
	for _, v := range falsy {
		if Truthy(v) {
			t.Errorf("%v (%T) should be falsy", v, v)
		}
	}
	truthy := []Value{Bool(true), Int(1), Float(0.1), Str("x"), NewArray(Int(1))}
	for _, v := range truthy {
		if !Truthy(v) {
			t.Errorf("%v (%T) should be truthy", v, v)
		}
	}
}

func TestArray_PushPopMutateInPlace(t *testing.T) {
	arr := NewArray(Int(1), Int(2))
	m, err := Lookup(arr, "push", source.Interval{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Fn(arr, []Value{Int(3)}, source.Interval{}); err != nil {
		t.Fatal(err)
	}
	if len(arr.Items) != 3 || arr.Items[2] != Int(3) {
		t.Fatalf("got %v, want [1 2 3]", arr.Items)
	}

	m, err = Lookup(arr, "pop", source.Interval{})
	if err != nil {
		t.Fatal(err)
	}
	popped, err := m.Fn(arr, nil, source.Interval{})
	if err != nil {
		t.Fatal(err)
	}
	if popped != Int(3) || len(arr.Items) != 2 {
		t.Fatalf("got popped=%v items=%v, want 3, [1 2]", popped, arr.Items)
	}
}

func TestArray_PopEmptyIsIndexOutOfRange(t *testing.T) {
	arr := NewArray()
	m, err := Lookup(arr, "pop", source.Interval{})
	if err != nil {
		t.Fatal(err)
	}
	_, err = m.Fn(arr, nil, source.Interval{})
	if err == nil {
		t.Fatal("pop on empty array should error")
	}
	wantCategory(t, err, rerr.CategoryIndexOutOfRange)
}

func TestArray_ContainsAndIndexOf(t *testing.T) {
	arr := NewArray(Int(1), Str("a"), Int(2))

	m, _ := Lookup(arr, "contains", source.Interval{})
	got, err := m.Fn(arr, []Value{Str("a")}, source.Interval{})
	if err != nil || got != Bool(true) {
		t.Fatalf("contains(a) = %v, %v; want true, nil", got, err)
	}

	m, _ = Lookup(arr, "index_of", source.Interval{})
	got, err = m.Fn(arr, []Value{Int(2)}, source.Interval{})
	if err != nil || got != Int(2) {
		t.Fatalf("index_of(2) = %v, %v; want 2, nil", got, err)
	}
}

func TestArray_UnknownMethodError(t *testing.T) {
	arr := NewArray()
	_, err := Lookup(arr, "not_a_method", source.Interval{})
	if err == nil {
		t.Fatal("expected an unknown-method error")
	}
	wantCategory(t, err, rerr.Category("array_unknown_method"))
}

func TestObject_SetGetDeletePreservesOrder(t *testing.T) {
	o := NewObject()
	o.Set("b", Int(2))
	o.Set("a", Int(1))
	o.Set("b", Int(20)) // overwrite keeps original position

	if got := o.Keys(); len(got) != 2 || got[0] != "b" || got[1] != "a" {
		t.Fatalf("got keys %v, want [b a]", got)
	}
	v, ok := o.Get("b")
	if !ok || v != Int(20) {
		t.Fatalf("got %v, %v; want 20, true", v, ok)
	}

	o.Delete("b")
	if _, ok := o.Get("b"); ok {
		t.Fatal("b should be gone after Delete")
	}
	if got := o.Keys(); len(got) != 1 || got[0] != "a" {
		t.Fatalf("got keys %v, want [a]", got)
	}
}

func TestObject_ContentType(t *testing.T) {
	o := NewObject()
	if o.ContentType() != "" {
		t.Error("object with no content_type field should report empty string")
	}
	o.Set("content_type", Str("text"))
	if o.ContentType() != "text" {
		t.Errorf("got %q, want text", o.ContentType())
	}
}

func TestMarshalJSON_PrimitivesAndComposites(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{Nil, "null"},
		{Bool(true), "true"},
		{Int(42), "42"},
		{Str("hi"), `"hi"`},
		{NewArray(Int(1), Str("x")), `[1,"x"]`},
	}
	for _, c := range cases {
		got, err := MarshalJSON(c.v)
		if err != nil {
			t.Fatalf("MarshalJSON(%v): %v", c.v, err)
		}
		if string(got) != c.want {
			t.Errorf("MarshalJSON(%v) = %s, want %s", c.v, got, c.want)
		}
	}
}

func TestUnmarshalJSON_RoundTripsThroughMarshalJSON(t *testing.T) {
	o := NewObject()
	o.Set("name", Str("alice"))
	o.Set("age", Int(30))
	o.Set("tags", NewArray(Str("a"), Str("b")))

	encoded, err := MarshalJSON(o)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := UnmarshalJSON(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if !Equal(o, decoded) {
		t.Fatalf("round trip mismatch: got %v, want %v", decoded, o)
	}
}

func TestUnmarshal_FromGoAnyValues(t *testing.T) {
	v := Unmarshal(map[string]any{"n": float64(3), "f": float64(3.5), "s": "x"})
	o, ok := v.(*Object)
	if !ok {
		t.Fatalf("got %T, want *Object", v)
	}
	n, _ := o.Get("n")
	if n != Int(3) {
		t.Errorf("whole-number float64 should decode to Int, got %v (%T)", n, n)
	}
	f, _ := o.Get("f")
	if f != Float(3.5) {
		t.Errorf("fractional float64 should decode to Float, got %v (%T)", f, f)
	}
}
