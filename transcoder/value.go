package transcoder

import (
	"github.com/willf/bitset"
)

// Value is a dynamically typed datum in one of the closed set of shapes the
// codec understands. Every implementation lives in this package.
type Value interface {
	isValue()
}

type (
	Bool   bool
	U8     uint8
	U16    uint16
	U32    uint32
	U64    uint64
	S8     int8
	S16    int16
	S32    int32
	S64    int64
	F32    float32
	F64    float64
	Char   rune
	String string
	// Enum holds the selected case name.
	Enum string
	// Handle is an opaque resource handle (own or borrow).
	Handle uint32
	// Tuple holds elements in declared order.
	Tuple []Value
	// List holds elements of a single element type.
	List []Value
	// Record holds fields in declared order.
	Record []Field
)

// Field is a named record member.
type Field struct {
	Value Value
	Name  string
}

// Option is present-or-absent. Value is meaningful only when IsSome.
type Option struct {
	Value  Value
	IsSome bool
}

// Result is success-or-failure. Value is nil for a unit payload.
type Result struct {
	Value Value
	IsErr bool
}

// Variant is one case of a tagged union. Payload is nil for cases without data.
type Variant struct {
	Payload Value
	Case    string
}

// Flags is a set of flag positions in declaration order.
type Flags struct {
	bits *bitset.BitSet
}

func (Bool) isValue()    {}
func (U8) isValue()      {}
func (U16) isValue()     {}
func (U32) isValue()     {}
func (U64) isValue()     {}
func (S8) isValue()      {}
func (S16) isValue()     {}
func (S32) isValue()     {}
func (S64) isValue()     {}
func (F32) isValue()     {}
func (F64) isValue()     {}
func (Char) isValue()    {}
func (String) isValue()  {}
func (Enum) isValue()    {}
func (Handle) isValue()  {}
func (Tuple) isValue()   {}
func (List) isValue()    {}
func (Record) isValue()  {}
func (Option) isValue()  {}
func (Result) isValue()  {}
func (Variant) isValue() {}
func (Flags) isValue()   {}

// Some wraps v as a present option.
func Some(v Value) Option { return Option{Value: v, IsSome: true} }

// None is the absent option.
func None() Option { return Option{} }

// Ok wraps v as a success. Pass nil for a unit payload.
func Ok(v Value) Result { return Result{Value: v} }

// Err wraps v as a failure. Pass nil for a unit payload.
func Err(v Value) Result { return Result{Value: v, IsErr: true} }

// Case builds a variant value.
func Case(name string, payload Value) Variant { return Variant{Case: name, Payload: payload} }

// Get returns the value of the named field.
func (r Record) Get(name string) (Value, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// FlagsOf returns a flags value with the given positions set.
func FlagsOf(positions ...uint) Flags {
	f := Flags{bits: bitset.New(0)}
	for _, p := range positions {
		f.bits.Set(p)
	}
	return f
}

// Has reports whether position i is set.
func (f Flags) Has(i uint) bool {
	return f.bits != nil && f.bits.Test(i)
}

// With returns a copy with position i set to on.
func (f Flags) With(i uint, on bool) Flags {
	var c *bitset.BitSet
	if f.bits == nil {
		c = bitset.New(0)
	} else {
		c = f.bits.Clone()
	}
	c.SetTo(i, on)
	return Flags{bits: c}
}

// Positions returns the set positions in ascending order.
func (f Flags) Positions() []uint {
	if f.bits == nil {
		return nil
	}
	var out []uint
	for i, ok := f.bits.NextSet(0); ok; i, ok = f.bits.NextSet(i + 1) {
		out = append(out, i)
	}
	return out
}

// Count returns the number of set positions.
func (f Flags) Count() uint {
	if f.bits == nil {
		return 0
	}
	return f.bits.Count()
}

// words packs positions below n into little-endian u32 words.
func (f Flags) words(n int) []uint32 {
	out := make([]uint32, (n+31)/32)
	for _, p := range f.Positions() {
		if int(p) >= n {
			break
		}
		out[p/32] |= 1 << (p % 32)
	}
	return out
}

func (f Flags) highest() (uint, bool) {
	ps := f.Positions()
	if len(ps) == 0 {
		return 0, false
	}
	return ps[len(ps)-1], true
}

func flagsFromWords(words []uint32) Flags {
	f := Flags{bits: bitset.New(uint(len(words) * 32))}
	for w, word := range words {
		for b := uint(0); b < 32; b++ {
			if word&(1<<b) != 0 {
				f.bits.Set(uint(w)*32 + b)
			}
		}
	}
	return f
}

// BytesOf converts b to a list<u8> value.
func BytesOf(b []byte) List {
	out := make(List, len(b))
	for i, c := range b {
		out[i] = U8(c)
	}
	return out
}

// Bytes converts a list<u8> value back to a byte slice. It reports false
// when an element is not a U8.
func (l List) Bytes() ([]byte, bool) {
	out := make([]byte, len(l))
	for i, v := range l {
		b, ok := v.(U8)
		if !ok {
			return nil, false
		}
		out[i] = byte(b)
	}
	return out, true
}
