package primitive

// Less implements spec §4.4 ordering for `<`/`>`/`<=`/`>=`. ok is false
// when the pair has no defined order, in which case `<` and `>` both
// evaluate to false (handled by the interpreter, not here).
func Less(a, b Value) (less bool, ok bool) {
	if a.Kind() == b.Kind() {
		switch av := a.(type) {
		case Str:
			return av < b.(Str), true
		case *Array:
			return lessArrays(av, b.(*Array)), true
		default:
			if isArithmeticCandidate(a) {
				break
			}
			return false, false
		}
	}

	if isArithmeticCandidate(a) && isArithmeticCandidate(b) {
		an, aok := coerceNumeric(a)
		bn, bok := coerceNumeric(b)
		if !aok || !bok {
			return false, false
		}
		if an.isInt && bn.isInt {
			return an.i < bn.i, true
		}
		return an.asFloat() < bn.asFloat(), true
	}

	return false, false
}

// lessArrays orders arrays lexicographically: compare element-wise with
// Less, and a strict prefix is less than its extension.
func lessArrays(a, b *Array) bool {
	n := len(a.Items)
	if len(b.Items) < n {
		n = len(b.Items)
	}
	for i := 0; i < n; i++ {
		if Equal(a.Items[i], b.Items[i]) {
			continue
		}
		less, ok := Less(a.Items[i], b.Items[i])
		if !ok {
			return false
		}
		return less
	}
	return len(a.Items) < len(b.Items)
}
