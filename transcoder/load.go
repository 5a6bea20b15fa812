package transcoder

import (
	"math"
	"unicode/utf8"

	werrors "github.com/wippyai/wasm-boundary/errors"
	"github.com/wippyai/wasm-boundary/transcoder/internal/abi"
	"github.com/wippyai/wasm-boundary/transcoder/internal/types"
)

type decoder struct {
	codec *Codec
	mem   Memory
	size  uint32
	sized bool
}

// check rejects ranges past the end of a memory that reports its size.
func (d *decoder) check(offset, length uint32) error {
	end, ok := abi.SafeAddU32(offset, length)
	if !ok || (d.sized && end > d.size) {
		return werrors.MemoryRange(werrors.PhaseDecode, nil, offset, length, d.size)
	}
	return nil
}

func readFailed(err error) error {
	if we, ok := err.(*werrors.Error); ok && we.Phase == werrors.PhaseDecode {
		return we
	}
	return werrors.Wrap(werrors.PhaseDecode, werrors.KindOutOfBounds, err, "memory read")
}

func (d *decoder) u8(addr uint32) (uint8, error) {
	v, err := d.mem.ReadU8(addr)
	if err != nil {
		return 0, readFailed(err)
	}
	return v, nil
}

func (d *decoder) u16(addr uint32) (uint16, error) {
	v, err := d.mem.ReadU16(addr)
	if err != nil {
		return 0, readFailed(err)
	}
	return v, nil
}

func (d *decoder) u32(addr uint32) (uint32, error) {
	v, err := d.mem.ReadU32(addr)
	if err != nil {
		return 0, readFailed(err)
	}
	return v, nil
}

func (d *decoder) u64(addr uint32) (uint64, error) {
	v, err := d.mem.ReadU64(addr)
	if err != nil {
		return 0, readFailed(err)
	}
	return v, nil
}

func (d *decoder) load(s *shape, addr uint32) (Value, error) {
	if err := d.check(addr, s.Size); err != nil {
		return nil, err
	}
	switch s.Kind {
	case types.KindBool:
		b, err := d.u8(addr)
		return Bool(b != 0), err
	case types.KindU8:
		b, err := d.u8(addr)
		return U8(b), err
	case types.KindS8:
		b, err := d.u8(addr)
		return S8(int8(b)), err
	case types.KindU16:
		n, err := d.u16(addr)
		return U16(n), err
	case types.KindS16:
		n, err := d.u16(addr)
		return S16(int16(n)), err
	case types.KindU32:
		n, err := d.u32(addr)
		return U32(n), err
	case types.KindS32:
		n, err := d.u32(addr)
		return S32(int32(n)), err
	case types.KindU64:
		n, err := d.u64(addr)
		return U64(n), err
	case types.KindS64:
		n, err := d.u64(addr)
		return S64(int64(n)), err
	case types.KindF32:
		bits, err := d.u32(addr)
		if err != nil {
			return nil, err
		}
		return d.codec.f32FromBits(bits), nil
	case types.KindF64:
		bits, err := d.u64(addr)
		if err != nil {
			return nil, err
		}
		return d.codec.f64FromBits(bits), nil
	case types.KindChar:
		r, err := d.u32(addr)
		if err != nil {
			return nil, err
		}
		if !abi.ValidateChar(r) {
			return nil, werrors.InvalidChar(werrors.PhaseDecode, nil, r)
		}
		return Char(r), nil
	case types.KindString:
		return d.loadString(addr)
	case types.KindRecord:
		r := make(Record, len(s.Members))
		for i, m := range s.Members {
			v, err := d.load(m.Shape, addr+m.Offset)
			if err != nil {
				return nil, withPath(err, m.Name)
			}
			r[i] = Field{Name: m.Name, Value: v}
		}
		return r, nil
	case types.KindTuple:
		t := make(Tuple, len(s.Members))
		for i, m := range s.Members {
			v, err := d.load(m.Shape, addr+m.Offset)
			if err != nil {
				return nil, withPath(err, indexSeg(i))
			}
			t[i] = v
		}
		return t, nil
	case types.KindList:
		return d.loadList(s, addr)
	case types.KindOption:
		disc, err := d.u8(addr)
		if err != nil {
			return nil, err
		}
		switch disc {
		case 0:
			return None(), nil
		case 1:
			v, err := d.load(s.Elem, addr+s.PayloadOffset)
			if err != nil {
				return nil, withPath(err, "some")
			}
			return Some(v), nil
		}
		return nil, werrors.InvalidDiscriminant(werrors.PhaseDecode, nil, uint32(disc), 1)
	case types.KindResult:
		disc, err := d.u8(addr)
		if err != nil {
			return nil, err
		}
		switch disc {
		case 0:
			v, err := d.loadPayload(s.Ok, addr+s.PayloadOffset, "ok")
			return Ok(v), err
		case 1:
			v, err := d.loadPayload(s.Err, addr+s.PayloadOffset, "err")
			return Err(v), err
		}
		return nil, werrors.InvalidDiscriminant(werrors.PhaseDecode, nil, uint32(disc), 1)
	case types.KindVariant:
		disc, err := d.disc(addr, s.DiscSize)
		if err != nil {
			return nil, err
		}
		if int(disc) >= len(s.Cases) {
			return nil, werrors.InvalidDiscriminant(werrors.PhaseDecode, nil, disc, uint32(len(s.Cases)-1))
		}
		c := s.Cases[disc]
		payload, err := d.loadPayload(c.Shape, addr+s.PayloadOffset, c.Name)
		if err != nil {
			return nil, err
		}
		return Case(c.Name, payload), nil
	case types.KindEnum:
		disc, err := d.disc(addr, s.DiscSize)
		if err != nil {
			return nil, err
		}
		if int(disc) >= len(s.Cases) {
			return nil, werrors.InvalidEnum(werrors.PhaseDecode, nil, disc, s.Name)
		}
		return Enum(s.Cases[disc].Name), nil
	case types.KindFlags:
		words, err := loadFlagWords(d, s, addr)
		if err != nil {
			return nil, err
		}
		return flagsChecked(s, words)
	case types.KindOwn, types.KindBorrow:
		h, err := d.u32(addr)
		return Handle(h), err
	}
	return nil, werrors.Unsupported(werrors.PhaseDecode, "kind "+s.Kind.String())
}

func (d *decoder) disc(addr, size uint32) (uint32, error) {
	switch size {
	case 1:
		v, err := d.u8(addr)
		return uint32(v), err
	case 2:
		v, err := d.u16(addr)
		return uint32(v), err
	default:
		return d.u32(addr)
	}
}

func (d *decoder) loadPayload(payload *shape, addr uint32, seg string) (Value, error) {
	if payload == nil {
		return nil, nil
	}
	v, err := d.load(payload, addr)
	if err != nil {
		return nil, withPath(err, seg)
	}
	return v, nil
}

func (d *decoder) pair(addr uint32) (uint32, uint32, error) {
	ptr, err := d.u32(addr)
	if err != nil {
		return 0, 0, err
	}
	n, err := d.u32(addr + 4)
	if err != nil {
		return 0, 0, err
	}
	return ptr, n, nil
}

func (d *decoder) loadString(addr uint32) (Value, error) {
	ptr, n, err := d.pair(addr)
	if err != nil {
		return nil, err
	}
	return d.readString(ptr, n)
}

func (d *decoder) readString(ptr, n uint32) (Value, error) {
	if n > d.codec.opts.MaxStringSize {
		return nil, werrors.Overflow(werrors.PhaseDecode, nil, n, "string")
	}
	if n == 0 {
		return String(""), nil
	}
	if err := d.check(ptr, n); err != nil {
		return nil, err
	}
	data, err := d.mem.Read(ptr, n)
	if err != nil {
		return nil, readFailed(err)
	}
	if !utf8.Valid(data) {
		return nil, werrors.InvalidUTF8(werrors.PhaseDecode, nil, data)
	}
	return String(string(data)), nil
}

func (d *decoder) loadList(s *shape, addr uint32) (Value, error) {
	ptr, n, err := d.pair(addr)
	if err != nil {
		return nil, err
	}
	return d.readList(s, ptr, n)
}

func (d *decoder) readList(s *shape, ptr, n uint32) (Value, error) {
	if n > d.codec.opts.MaxListLength {
		return nil, werrors.Overflow(werrors.PhaseDecode, nil, n, "list length")
	}
	if n == 0 {
		return List{}, nil
	}
	total, ok := abi.SafeMulU32(n, s.Elem.Size)
	if !ok {
		return nil, werrors.Overflow(werrors.PhaseDecode, nil, n, "list size")
	}
	if s.Elem.Align > 1 && ptr%s.Elem.Align != 0 {
		return nil, werrors.InvalidData(werrors.PhaseDecode, nil, "misaligned list pointer")
	}
	if err := d.check(ptr, total); err != nil {
		return nil, err
	}
	out := make(List, n)
	for i := range out {
		v, err := d.load(s.Elem, ptr+uint32(i)*s.Elem.Size)
		if err != nil {
			return nil, withPath(err, indexSeg(i))
		}
		out[i] = v
	}
	return out, nil
}

func loadFlagWords(d *decoder, s *shape, addr uint32) ([]uint32, error) {
	switch abi.FlagsSize(s.FlagCount) {
	case 0:
		return nil, nil
	case 1:
		v, err := d.u8(addr)
		return []uint32{uint32(v)}, err
	case 2:
		v, err := d.u16(addr)
		return []uint32{uint32(v)}, err
	}
	words := make([]uint32, abi.FlagWords(s.FlagCount))
	for i := range words {
		w, err := d.u32(addr + uint32(i)*4)
		if err != nil {
			return nil, err
		}
		words[i] = w
	}
	return words, nil
}

// flagsChecked rejects bits past the declared count.
func flagsChecked(s *shape, words []uint32) (Value, error) {
	if rem := s.FlagCount % 32; rem != 0 && len(words) > 0 {
		if words[len(words)-1]>>uint(rem) != 0 {
			return nil, werrors.InvalidFlags(werrors.PhaseDecode, nil, s.FlagCount)
		}
	}
	return flagsFromWords(words), nil
}

func (c *Codec) f32FromBits(bits uint32) F32 {
	if c.opts.NaN == NaNCanonicalize {
		bits = abi.CanonicalizeF32(bits)
	}
	return F32(math.Float32frombits(bits))
}

func (c *Codec) f64FromBits(bits uint64) F64 {
	if c.opts.NaN == NaNCanonicalize {
		bits = abi.CanonicalizeF64(bits)
	}
	return F64(math.Float64frombits(bits))
}
