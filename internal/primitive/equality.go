package primitive

// Equal implements spec §4.4 equality. Same-variant comparisons use native
// equality; int/float/string are mutually comparable when the string
// parses per the numeric-parse rule; every other cross-variant pairing is
// false.
func Equal(a, b Value) bool {
	if a.Kind() == b.Kind() {
		switch av := a.(type) {
		case Null:
			return true
		case Bool:
			return av == b.(Bool)
		case Int:
			return av == b.(Int)
		case Float:
			return av == b.(Float)
		case Str:
			return av == b.(Str)
		case *Array:
			bv := b.(*Array)
			if len(av.Items) != len(bv.Items) {
				return false
			}
			for i := range av.Items {
				if !Equal(av.Items[i], bv.Items[i]) {
					return false
				}
			}
			return true
		case *Object:
			bv := b.(*Object)
			if av.Len() != bv.Len() {
				return false
			}
			for _, k := range av.keys {
				bvv, ok := bv.Get(k)
				if !ok || !Equal(av.vals[k], bvv) {
					return false
				}
			}
			return true
		case *Closure:
			return av == b.(*Closure)
		}
	}

	if isArithmeticCandidate(a) && isArithmeticCandidate(b) {
		an, aok := coerceNumeric(a)
		bn, bok := coerceNumeric(b)
		if !aok || !bok {
			return false
		}
		if an.isInt && bn.isInt {
			return an.i == bn.i
		}
		return an.asFloat() == bn.asFloat()
	}

	return false
}
