package primitive

import (
	"regexp"
	"strconv"
)

// numericStringPattern matches the numeric-parse rule shared by equality,
// ordering, and arithmetic when one operand is a string: an optional
// leading sign, digits, and at most one dot (spec §4.4).
var numericStringPattern = regexp.MustCompile(`^[+-]?[0-9]+(\.[0-9]+)?$`)

// parseNumericString attempts to parse s per the numeric-parse rule. ok is
// false if s is not a valid number under that rule. isInt is true when s
// has no decimal point.
func parseNumericString(s string) (isInt bool, i int64, f float64, ok bool) {
	if !numericStringPattern.MatchString(s) {
		return false, 0, 0, false
	}
	if iv, err := strconv.ParseInt(s, 10, 64); err == nil {
		return true, iv, float64(iv), true
	}
	fv, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return false, 0, 0, false
	}
	return false, 0, fv, true
}

// numeric is the result of coercing a Value to a number for arithmetic,
// equality, or ordering.
type numeric struct {
	isInt bool
	i     int64
	f     float64
}

func (n numeric) asFloat() float64 {
	if n.isInt {
		return float64(n.i)
	}
	return n.f
}

// coerceNumeric converts v to a numeric if it is an int, float, or a
// string that parses per the numeric-parse rule.
func coerceNumeric(v Value) (numeric, bool) {
	switch t := v.(type) {
	case Int:
		return numeric{isInt: true, i: int64(t)}, true
	case Float:
		return numeric{isInt: false, f: float64(t)}, true
	case Str:
		isInt, i, f, ok := parseNumericString(string(t))
		if !ok {
			return numeric{}, false
		}
		return numeric{isInt: isInt, i: i, f: f}, true
	default:
		return numeric{}, false
	}
}

// isArithmeticCandidate reports whether v's Kind is ever eligible for
// arithmetic/numeric-comparison coercion (int, float, string). Array,
// object, boolean, null, and closure are never arithmetic operands
// regardless of content (spec §4.4).
func isArithmeticCandidate(v Value) bool {
	switch v.Kind() {
	case KindInt, KindFloat, KindString:
		return true
	default:
		return false
	}
}
