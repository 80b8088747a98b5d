package primitive

import (
	"math"

	"github.com/csml-dev/csml-engine/internal/source"
)

var floatMethods = table{
	"type_of":   {Read, floatTypeOf},
	"to_string": {Read, floatToString},
	"abs":       {Read, floatFn(math.Abs)},
	"ceil":      {Read, floatFn(math.Ceil)},
	"floor":     {Read, floatFn(math.Floor)},
	"round":     {Read, floatFn(math.Round)},
	"sqrt":      {Read, floatSqrt},
	"pow":       {Read, floatPow},
	"is_number": {Read, floatIsNumber},
	"to_int":    {Read, floatToInt},
}

func floatTypeOf(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 0 {
		return nil, wantArity(iv, "type_of", 0, len(args))
	}
	return Str(r.Kind().String()), nil
}

func floatToString(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 0 {
		return nil, wantArity(iv, "to_string", 0, len(args))
	}
	return Str(r.Display()), nil
}

// floatFn adapts a single-argument math.* function to a zero-arity method.
func floatFn(f func(float64) float64) MethodFunc {
	return func(r Value, args []Value, iv source.Interval) (Value, error) {
		if len(args) != 0 {
			return nil, wantArity(iv, "float method", 0, len(args))
		}
		return Float(f(float64(r.(Float)))), nil
	}
}

func floatSqrt(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 0 {
		return nil, wantArity(iv, "sqrt", 0, len(args))
	}
	n := float64(r.(Float))
	if n < 0 {
		return nil, badArgument(iv, "sqrt of a negative number")
	}
	return Float(math.Sqrt(n)), nil
}

func floatPow(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 1 {
		return nil, wantArity(iv, "pow", 1, len(args))
	}
	exp, ok := coerceNumeric(args[0])
	if !ok {
		return nil, badArgument(iv, "pow expects a numeric argument")
	}
	return Float(math.Pow(float64(r.(Float)), exp.asFloat())), nil
}

func floatIsNumber(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 0 {
		return nil, wantArity(iv, "is_number", 0, len(args))
	}
	return Bool(true), nil
}

func floatToInt(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 0 {
		return nil, wantArity(iv, "to_int", 0, len(args))
	}
	f := float64(r.(Float))
	if f > math.MaxInt64 || f < math.MinInt64 {
		return nil, overflow(iv)
	}
	return Int(int64(f)), nil
}
