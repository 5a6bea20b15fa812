package transcoder

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"

	werrors "github.com/wippyai/wasm-boundary/errors"
	"github.com/wippyai/wasm-boundary/transcoder/internal/abi"
	"github.com/wippyai/wasm-boundary/transcoder/internal/types"
)

type encoder struct {
	codec  *Codec
	mem    Memory
	alloc  Allocator
	allocs *AllocationList
}

func (e *encoder) allocate(size, align uint32) (uint32, error) {
	if e.alloc == nil {
		return 0, werrors.Unsupported(werrors.PhaseEncode, "lowering without an allocator")
	}
	ptr, err := e.alloc.Alloc(size, align)
	if err != nil {
		return 0, err
	}
	e.allocs.Add(ptr, size, align)
	return ptr, nil
}

func mismatch(s *shape, v Value) error {
	return werrors.TypeMismatch(werrors.PhaseEncode, nil, fmt.Sprintf("%T", v), s.Name)
}

// withPath prefixes the location of a nested failure.
func withPath(err error, seg string) error {
	var we *werrors.Error
	if errors.As(err, &we) {
		return we.WithPath(seg)
	}
	return err
}

func indexSeg(i int) string {
	return "[" + strconv.Itoa(i) + "]"
}

func (e *encoder) store(s *shape, v Value, addr uint32) error {
	switch s.Kind {
	case types.KindBool:
		b, ok := v.(Bool)
		if !ok {
			return mismatch(s, v)
		}
		var u uint8
		if b {
			u = 1
		}
		return e.mem.WriteU8(addr, u)
	case types.KindU8:
		n, ok := v.(U8)
		if !ok {
			return mismatch(s, v)
		}
		return e.mem.WriteU8(addr, uint8(n))
	case types.KindS8:
		n, ok := v.(S8)
		if !ok {
			return mismatch(s, v)
		}
		return e.mem.WriteU8(addr, uint8(n))
	case types.KindU16:
		n, ok := v.(U16)
		if !ok {
			return mismatch(s, v)
		}
		return e.mem.WriteU16(addr, uint16(n))
	case types.KindS16:
		n, ok := v.(S16)
		if !ok {
			return mismatch(s, v)
		}
		return e.mem.WriteU16(addr, uint16(n))
	case types.KindU32:
		n, ok := v.(U32)
		if !ok {
			return mismatch(s, v)
		}
		return e.mem.WriteU32(addr, uint32(n))
	case types.KindS32:
		n, ok := v.(S32)
		if !ok {
			return mismatch(s, v)
		}
		return e.mem.WriteU32(addr, uint32(n))
	case types.KindU64:
		n, ok := v.(U64)
		if !ok {
			return mismatch(s, v)
		}
		return e.mem.WriteU64(addr, uint64(n))
	case types.KindS64:
		n, ok := v.(S64)
		if !ok {
			return mismatch(s, v)
		}
		return e.mem.WriteU64(addr, uint64(n))
	case types.KindF32:
		f, ok := v.(F32)
		if !ok {
			return mismatch(s, v)
		}
		return e.mem.WriteU32(addr, e.codec.f32Bits(f))
	case types.KindF64:
		f, ok := v.(F64)
		if !ok {
			return mismatch(s, v)
		}
		return e.mem.WriteU64(addr, e.codec.f64Bits(f))
	case types.KindChar:
		c, ok := v.(Char)
		if !ok {
			return mismatch(s, v)
		}
		if c < 0 || !abi.ValidateChar(uint32(c)) {
			return werrors.InvalidChar(werrors.PhaseEncode, nil, uint32(c))
		}
		return e.mem.WriteU32(addr, uint32(c))
	case types.KindString:
		str, ok := v.(String)
		if !ok {
			return mismatch(s, v)
		}
		return e.storeString(string(str), addr)
	case types.KindRecord:
		r, ok := v.(Record)
		if !ok {
			return mismatch(s, v)
		}
		return e.storeRecord(s, r, addr)
	case types.KindTuple:
		t, ok := v.(Tuple)
		if !ok {
			return mismatch(s, v)
		}
		if len(t) != len(s.Members) {
			return werrors.Arity(werrors.PhaseEncode, "tuple elements", len(s.Members), len(t))
		}
		for i, m := range s.Members {
			if err := e.store(m.Shape, t[i], addr+m.Offset); err != nil {
				return withPath(err, indexSeg(i))
			}
		}
		return nil
	case types.KindList:
		l, ok := v.(List)
		if !ok {
			return mismatch(s, v)
		}
		return e.storeList(s, l, addr)
	case types.KindOption:
		o, ok := v.(Option)
		if !ok {
			return mismatch(s, v)
		}
		if !o.IsSome {
			return e.mem.WriteU8(addr, 0)
		}
		if err := e.mem.WriteU8(addr, 1); err != nil {
			return err
		}
		if err := e.store(s.Elem, o.Value, addr+s.PayloadOffset); err != nil {
			return withPath(err, "some")
		}
		return nil
	case types.KindResult:
		r, ok := v.(Result)
		if !ok {
			return mismatch(s, v)
		}
		payload, disc, seg := s.Ok, uint8(0), "ok"
		if r.IsErr {
			payload, disc, seg = s.Err, 1, "err"
		}
		if err := e.mem.WriteU8(addr, disc); err != nil {
			return err
		}
		return e.storePayload(payload, r.Value, addr+s.PayloadOffset, seg)
	case types.KindVariant:
		vr, ok := v.(Variant)
		if !ok {
			return mismatch(s, v)
		}
		idx := s.CaseIndex(vr.Case)
		if idx < 0 {
			return werrors.InvalidEnum(werrors.PhaseEncode, nil, vr.Case, s.Name)
		}
		if err := writeDisc(e.mem, addr, s.DiscSize, uint32(idx)); err != nil {
			return err
		}
		return e.storePayload(s.Cases[idx].Shape, vr.Payload, addr+s.PayloadOffset, vr.Case)
	case types.KindEnum:
		en, ok := v.(Enum)
		if !ok {
			return mismatch(s, v)
		}
		idx := s.CaseIndex(string(en))
		if idx < 0 {
			return werrors.InvalidEnum(werrors.PhaseEncode, nil, string(en), s.Name)
		}
		return writeDisc(e.mem, addr, s.DiscSize, uint32(idx))
	case types.KindFlags:
		f, ok := v.(Flags)
		if !ok {
			return mismatch(s, v)
		}
		if hi, set := f.highest(); set && int(hi) >= s.FlagCount {
			return werrors.InvalidFlags(werrors.PhaseEncode, nil, s.FlagCount)
		}
		return storeFlags(e.mem, s, f.words(s.FlagCount), addr)
	case types.KindOwn, types.KindBorrow:
		h, ok := v.(Handle)
		if !ok {
			return mismatch(s, v)
		}
		return e.mem.WriteU32(addr, uint32(h))
	}
	return werrors.Unsupported(werrors.PhaseEncode, "kind "+s.Kind.String())
}

func (e *encoder) storePayload(payload *shape, v Value, addr uint32, seg string) error {
	if payload == nil {
		if v != nil {
			return werrors.InvalidData(werrors.PhaseEncode, []string{seg}, "case carries no payload")
		}
		return nil
	}
	if err := e.store(payload, v, addr); err != nil {
		return withPath(err, seg)
	}
	return nil
}

func (e *encoder) storeString(str string, addr uint32) error {
	ptr, n, err := e.putString(str)
	if err != nil {
		return err
	}
	return e.storePair(addr, ptr, n)
}

// putString copies str into a fresh block and returns its pointer and length.
func (e *encoder) putString(str string) (uint32, uint32, error) {
	if uint64(len(str)) > uint64(e.codec.opts.MaxStringSize) {
		return 0, 0, werrors.Overflow(werrors.PhaseEncode, nil, len(str), "string")
	}
	if !utf8.ValidString(str) {
		return 0, 0, werrors.InvalidUTF8(werrors.PhaseEncode, nil, []byte(str))
	}
	if len(str) == 0 {
		return 0, 0, nil
	}
	ptr, err := e.allocate(uint32(len(str)), 1)
	if err != nil {
		return 0, 0, err
	}
	if err := e.mem.Write(ptr, []byte(str)); err != nil {
		return 0, 0, err
	}
	return ptr, uint32(len(str)), nil
}

func (e *encoder) storePair(addr, ptr, n uint32) error {
	if err := e.mem.WriteU32(addr, ptr); err != nil {
		return err
	}
	return e.mem.WriteU32(addr+4, n)
}

func (e *encoder) storeRecord(s *shape, r Record, addr uint32) error {
	if len(r) != len(s.Members) {
		return werrors.Arity(werrors.PhaseEncode, "record fields of "+s.Name, len(s.Members), len(r))
	}
	for i, m := range s.Members {
		if r[i].Name != m.Name {
			return werrors.NotFound(werrors.PhaseEncode, "field", m.Name).WithPath(s.Name)
		}
		if err := e.store(m.Shape, r[i].Value, addr+m.Offset); err != nil {
			return withPath(err, m.Name)
		}
	}
	return nil
}

func (e *encoder) storeList(s *shape, l List, addr uint32) error {
	ptr, n, err := e.putList(s, l)
	if err != nil {
		return err
	}
	return e.storePair(addr, ptr, n)
}

// putList stores the elements of l contiguously and returns pointer and count.
func (e *encoder) putList(s *shape, l List) (uint32, uint32, error) {
	n := len(l)
	if uint64(n) > uint64(e.codec.opts.MaxListLength) {
		return 0, 0, werrors.Overflow(werrors.PhaseEncode, nil, n, "list length")
	}
	if n == 0 {
		return 0, 0, nil
	}
	total, ok := abi.SafeMulU32(uint32(n), s.Elem.Size)
	if !ok {
		return 0, 0, werrors.Overflow(werrors.PhaseEncode, nil, n, "list size")
	}
	ptr, err := e.allocate(total, s.Elem.Align)
	if err != nil {
		return 0, 0, err
	}
	for i, item := range l {
		if err := e.store(s.Elem, item, ptr+uint32(i)*s.Elem.Size); err != nil {
			return 0, 0, withPath(err, indexSeg(i))
		}
	}
	return ptr, uint32(n), nil
}

func writeDisc(mem Memory, addr, size, disc uint32) error {
	switch size {
	case 1:
		return mem.WriteU8(addr, uint8(disc))
	case 2:
		return mem.WriteU16(addr, uint16(disc))
	default:
		return mem.WriteU32(addr, disc)
	}
}

func storeFlags(mem Memory, s *shape, words []uint32, addr uint32) error {
	switch abi.FlagsSize(s.FlagCount) {
	case 0:
		return nil
	case 1:
		return mem.WriteU8(addr, uint8(words[0]))
	case 2:
		return mem.WriteU16(addr, uint16(words[0]))
	}
	for i, w := range words {
		if err := mem.WriteU32(addr+uint32(i)*4, w); err != nil {
			return err
		}
	}
	return nil
}

func (c *Codec) f32Bits(f F32) uint32 {
	bits := math.Float32bits(float32(f))
	if c.opts.NaN == NaNCanonicalize {
		return abi.CanonicalizeF32(bits)
	}
	return bits
}

func (c *Codec) f64Bits(f F64) uint64 {
	bits := math.Float64bits(float64(f))
	if c.opts.NaN == NaNCanonicalize {
		return abi.CanonicalizeF64(bits)
	}
	return bits
}
