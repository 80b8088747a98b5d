package primitive

import (
	"math"

	"github.com/csml-dev/csml-engine/internal/source"
)

var intMethods = table{
	"type_of":   {Read, intTypeOf},
	"to_string": {Read, intToString},
	"abs":       {Read, intAbs},
	"pow":       {Read, intPow},
	"is_number": {Read, intIsNumber},
	"to_float":  {Read, intToFloat},
}

func intTypeOf(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 0 {
		return nil, wantArity(iv, "type_of", 0, len(args))
	}
	return Str(r.Kind().String()), nil
}

func intToString(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 0 {
		return nil, wantArity(iv, "to_string", 0, len(args))
	}
	return Str(r.Display()), nil
}

func intAbs(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 0 {
		return nil, wantArity(iv, "abs", 0, len(args))
	}
	n := int64(r.(Int))
	if n == math.MinInt64 {
		return nil, overflow(iv)
	}
	if n < 0 {
		n = -n
	}
	return Int(n), nil
}

func intPow(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 1 {
		return nil, wantArity(iv, "pow", 1, len(args))
	}
	base := int64(r.(Int))
	exp, ok := coerceNumeric(args[0])
	if !ok {
		return nil, badArgument(iv, "pow expects a numeric argument")
	}
	if exp.isInt && exp.i >= 0 {
		result := int64(1)
		b := base
		for i := int64(0); i < exp.i; i++ {
			var ok bool
			result, ok = mulInt64(result, b)
			if !ok {
				return nil, overflow(iv)
			}
		}
		return Int(result), nil
	}
	return Float(math.Pow(float64(base), exp.asFloat())), nil
}

func intIsNumber(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 0 {
		return nil, wantArity(iv, "is_number", 0, len(args))
	}
	return Bool(true), nil
}

func intToFloat(r Value, args []Value, iv source.Interval) (Value, error) {
	if len(args) != 0 {
		return nil, wantArity(iv, "to_float", 0, len(args))
	}
	return Float(float64(r.(Int))), nil
}
