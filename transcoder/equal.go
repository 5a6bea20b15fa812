package transcoder

import "math"

// Equal reports whether a and b are the same value. Under NaNCanonicalize any
// two NaNs are equal; under NaNPreserveBits floats compare by bit pattern.
// Records compare field names as well as values.
func Equal(a, b Value, mode NaNMode) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case F32:
		y, ok := b.(F32)
		if !ok {
			return false
		}
		if mode == NaNPreserveBits {
			return math.Float32bits(float32(x)) == math.Float32bits(float32(y))
		}
		return x == y || (x != x && y != y)
	case F64:
		y, ok := b.(F64)
		if !ok {
			return false
		}
		if mode == NaNPreserveBits {
			return math.Float64bits(float64(x)) == math.Float64bits(float64(y))
		}
		return x == y || (x != x && y != y)
	case Tuple:
		y, ok := b.(Tuple)
		return ok && equalSlices(x, y, mode)
	case List:
		y, ok := b.(List)
		return ok && equalSlices(x, y, mode)
	case Record:
		y, ok := b.(Record)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if x[i].Name != y[i].Name || !Equal(x[i].Value, y[i].Value, mode) {
				return false
			}
		}
		return true
	case Option:
		y, ok := b.(Option)
		if !ok || x.IsSome != y.IsSome {
			return false
		}
		return !x.IsSome || Equal(x.Value, y.Value, mode)
	case Result:
		y, ok := b.(Result)
		return ok && x.IsErr == y.IsErr && Equal(x.Value, y.Value, mode)
	case Variant:
		y, ok := b.(Variant)
		return ok && x.Case == y.Case && Equal(x.Payload, y.Payload, mode)
	case Flags:
		y, ok := b.(Flags)
		if !ok || x.Count() != y.Count() {
			return false
		}
		for _, p := range x.Positions() {
			if !y.Has(p) {
				return false
			}
		}
		return true
	}
	return a == b
}

func equalSlices(x, y []Value, mode NaNMode) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if !Equal(x[i], y[i], mode) {
			return false
		}
	}
	return true
}
