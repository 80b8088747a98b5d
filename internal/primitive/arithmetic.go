package primitive

import (
	"math"

	"github.com/csml-dev/csml-engine/internal/rerr"
	"github.com/csml-dev/csml-engine/internal/source"
)

// Op identifies an arithmetic operator for error messages.
type Op string

const (
	OpAdd Op = "+"
	OpSub Op = "-"
	OpMul Op = "*"
	OpDiv Op = "/"
	OpMod Op = "%"
)

// Arithmetic evaluates a+b, a-b, a*b, a/b, or a%b per spec §4.4: int op
// int is checked (overflow is an error, never wraps); any operand being a
// float promotes the result to float; strings are coerced through the
// numeric-parse rule; division and modulus by zero always error, for both
// int and float operands.
func Arithmetic(op Op, a, b Value, iv source.Interval) (Value, error) {
	if !isArithmeticCandidate(a) || !isArithmeticCandidate(b) {
		return nil, illegalOperation(op, a, b, iv)
	}
	an, aok := coerceNumeric(a)
	bn, bok := coerceNumeric(b)
	if !aok || !bok {
		return nil, illegalOperation(op, a, b, iv)
	}

	if an.isInt && bn.isInt {
		return intArithmetic(op, an.i, bn.i, iv)
	}
	return floatArithmetic(op, an.asFloat(), bn.asFloat(), iv)
}

func illegalOperation(op Op, a, b Value, iv source.Interval) error {
	return rerr.New(iv, rerr.CategoryIllegalOperation,
		"illegal operation %s between %s and %s", op, a.Kind(), b.Kind())
}

func intArithmetic(op Op, a, b int64, iv source.Interval) (Value, error) {
	switch op {
	case OpAdd:
		r, ok := addInt64(a, b)
		if !ok {
			return nil, overflow(iv)
		}
		return Int(r), nil
	case OpSub:
		r, ok := subInt64(a, b)
		if !ok {
			return nil, overflow(iv)
		}
		return Int(r), nil
	case OpMul:
		r, ok := mulInt64(a, b)
		if !ok {
			return nil, overflow(iv)
		}
		return Int(r), nil
	case OpDiv:
		if b == 0 {
			return nil, divisionByZero(iv)
		}
		if a == math.MinInt64 && b == -1 {
			return nil, overflow(iv)
		}
		return Int(a / b), nil
	case OpMod:
		if b == 0 {
			return nil, divisionByZero(iv)
		}
		if a == math.MinInt64 && b == -1 {
			return nil, overflow(iv)
		}
		return Int(a % b), nil
	default:
		return nil, rerr.New(iv, rerr.CategoryIllegalOperation, "unknown arithmetic operator %s", op)
	}
}

func floatArithmetic(op Op, a, b float64, iv source.Interval) (Value, error) {
	switch op {
	case OpAdd:
		return Float(a + b), nil
	case OpSub:
		return Float(a - b), nil
	case OpMul:
		return Float(a * b), nil
	case OpDiv:
		if b == 0 {
			return nil, divisionByZero(iv)
		}
		return Float(a / b), nil
	case OpMod:
		if b == 0 {
			return nil, divisionByZero(iv)
		}
		return Float(math.Mod(a, b)), nil
	default:
		return nil, rerr.New(iv, rerr.CategoryIllegalOperation, "unknown arithmetic operator %s", op)
	}
}

func overflow(iv source.Interval) error {
	return rerr.New(iv, rerr.CategoryOverflow, "integer overflow")
}

func divisionByZero(iv source.Interval) error {
	return rerr.New(iv, rerr.CategoryDivisionByZero, "division or modulus by zero")
}

func addInt64(a, b int64) (int64, bool) {
	r := a + b
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, false
	}
	return r, true
}

func subInt64(a, b int64) (int64, bool) {
	if (b < 0 && a > math.MaxInt64+b) || (b > 0 && a < math.MinInt64+b) {
		return 0, false
	}
	return a - b, true
}

func mulInt64(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	r := a * b
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	if r/b != a {
		return 0, false
	}
	return r, true
}
