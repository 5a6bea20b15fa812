package transcoder

import (
	"github.com/tetratelabs/wazero/api"
	werrors "github.com/wippyai/wasm-boundary/errors"
	"github.com/wippyai/wasm-boundary/transcoder/internal/abi"
	"github.com/wippyai/wasm-boundary/transcoder/internal/types"
	"go.bytecodealliance.org/wit"
)

// Limits on core values before a signature spills to linear memory.
const (
	MaxFlatParams  = 16
	MaxFlatResults = 1
)

// FlattenType returns the core value types of t.
func (c *Codec) FlattenType(t wit.Type) ([]api.ValueType, error) {
	s, err := c.compiler.Compile(t)
	if err != nil {
		return nil, err
	}
	return s.Flat, nil
}

// FlattenTypes returns the concatenated core value types of ts.
func (c *Codec) FlattenTypes(ts []wit.Type) ([]api.ValueType, error) {
	var out []api.ValueType
	for _, t := range ts {
		flat, err := c.FlattenType(t)
		if err != nil {
			return nil, err
		}
		out = append(out, flat...)
	}
	return out, nil
}

// FlatSignature is FlattenTypes collapsed to a single i32 pointer when the
// flat form would exceed limit.
func (c *Codec) FlatSignature(ts []wit.Type, limit int) ([]api.ValueType, error) {
	flat, err := c.FlattenTypes(ts)
	if err != nil {
		return nil, err
	}
	if len(flat) > limit {
		return []api.ValueType{api.ValueTypeI32}, nil
	}
	return flat, nil
}

func (c *Codec) shapes(ts []wit.Type) ([]*shape, int, error) {
	shapes := make([]*shape, len(ts))
	n := 0
	for i, t := range ts {
		s, err := c.compiler.Compile(t)
		if err != nil {
			return nil, 0, err
		}
		shapes[i] = s
		n += len(s.Flat)
	}
	return shapes, n, nil
}

// packLayout lays shapes out as consecutive tuple members.
func packLayout(shapes []*shape) (offsets []uint32, size, align uint32) {
	offsets = make([]uint32, len(shapes))
	align = 1
	for i, s := range shapes {
		size = abi.AlignTo(size, s.Align)
		offsets[i] = size
		size += s.Size
		if s.Align > align {
			align = s.Align
		}
	}
	return offsets, abi.AlignTo(size, align), align
}

// LowerFlat lowers vs into core values. When the flat form exceeds limit the
// values are stored as a tuple in memory and the single result is its pointer.
// 32-bit values occupy the low half of each slot; floats are stored as bits.
func (c *Codec) LowerFlat(mem Memory, alloc Allocator, ts []wit.Type, vs []Value, limit int) ([]uint64, error) {
	if len(ts) != len(vs) {
		return nil, werrors.Arity(werrors.PhaseEncode, "values", len(ts), len(vs))
	}
	shapes, count, err := c.shapes(ts)
	if err != nil {
		return nil, err
	}
	allocs := NewAllocationList()
	defer allocs.Release()
	enc := &encoder{codec: c, mem: mem, alloc: alloc, allocs: allocs}

	out, err := enc.lowerAll(shapes, vs, count, limit)
	if err != nil {
		allocs.Free(alloc)
		return nil, err
	}
	return out, nil
}

func (e *encoder) lowerAll(shapes []*shape, vs []Value, count, limit int) ([]uint64, error) {
	if count > limit {
		offsets, size, align := packLayout(shapes)
		ptr, err := e.allocate(size, align)
		if err != nil {
			return nil, err
		}
		for i, s := range shapes {
			if err := e.store(s, vs[i], ptr+offsets[i]); err != nil {
				return nil, withPath(err, indexSeg(i))
			}
		}
		return []uint64{uint64(ptr)}, nil
	}
	out := make([]uint64, 0, count)
	var err error
	for i, s := range shapes {
		if out, err = e.flat(s, vs[i], out); err != nil {
			return nil, withPath(err, indexSeg(i))
		}
	}
	return out, nil
}

func (e *encoder) flat(s *shape, v Value, out []uint64) ([]uint64, error) {
	switch s.Kind {
	case types.KindBool:
		b, ok := v.(Bool)
		if !ok {
			return nil, mismatch(s, v)
		}
		if b {
			return append(out, 1), nil
		}
		return append(out, 0), nil
	case types.KindU8:
		n, ok := v.(U8)
		if !ok {
			return nil, mismatch(s, v)
		}
		return append(out, uint64(n)), nil
	case types.KindS8:
		n, ok := v.(S8)
		if !ok {
			return nil, mismatch(s, v)
		}
		return append(out, uint64(uint32(int32(n)))), nil
	case types.KindU16:
		n, ok := v.(U16)
		if !ok {
			return nil, mismatch(s, v)
		}
		return append(out, uint64(n)), nil
	case types.KindS16:
		n, ok := v.(S16)
		if !ok {
			return nil, mismatch(s, v)
		}
		return append(out, uint64(uint32(int32(n)))), nil
	case types.KindU32:
		n, ok := v.(U32)
		if !ok {
			return nil, mismatch(s, v)
		}
		return append(out, uint64(n)), nil
	case types.KindS32:
		n, ok := v.(S32)
		if !ok {
			return nil, mismatch(s, v)
		}
		return append(out, uint64(uint32(n))), nil
	case types.KindU64:
		n, ok := v.(U64)
		if !ok {
			return nil, mismatch(s, v)
		}
		return append(out, uint64(n)), nil
	case types.KindS64:
		n, ok := v.(S64)
		if !ok {
			return nil, mismatch(s, v)
		}
		return append(out, uint64(n)), nil
	case types.KindF32:
		f, ok := v.(F32)
		if !ok {
			return nil, mismatch(s, v)
		}
		return append(out, uint64(e.codec.f32Bits(f))), nil
	case types.KindF64:
		f, ok := v.(F64)
		if !ok {
			return nil, mismatch(s, v)
		}
		return append(out, e.codec.f64Bits(f)), nil
	case types.KindChar:
		ch, ok := v.(Char)
		if !ok {
			return nil, mismatch(s, v)
		}
		if ch < 0 || !abi.ValidateChar(uint32(ch)) {
			return nil, werrors.InvalidChar(werrors.PhaseEncode, nil, uint32(ch))
		}
		return append(out, uint64(ch)), nil
	case types.KindString:
		str, ok := v.(String)
		if !ok {
			return nil, mismatch(s, v)
		}
		ptr, n, err := e.putString(string(str))
		if err != nil {
			return nil, err
		}
		return append(out, uint64(ptr), uint64(n)), nil
	case types.KindList:
		l, ok := v.(List)
		if !ok {
			return nil, mismatch(s, v)
		}
		ptr, n, err := e.putList(s, l)
		if err != nil {
			return nil, err
		}
		return append(out, uint64(ptr), uint64(n)), nil
	case types.KindRecord:
		r, ok := v.(Record)
		if !ok {
			return nil, mismatch(s, v)
		}
		if len(r) != len(s.Members) {
			return nil, werrors.Arity(werrors.PhaseEncode, "record fields of "+s.Name, len(s.Members), len(r))
		}
		var err error
		for i, m := range s.Members {
			if r[i].Name != m.Name {
				return nil, werrors.NotFound(werrors.PhaseEncode, "field", m.Name).WithPath(s.Name)
			}
			if out, err = e.flat(m.Shape, r[i].Value, out); err != nil {
				return nil, withPath(err, m.Name)
			}
		}
		return out, nil
	case types.KindTuple:
		t, ok := v.(Tuple)
		if !ok {
			return nil, mismatch(s, v)
		}
		if len(t) != len(s.Members) {
			return nil, werrors.Arity(werrors.PhaseEncode, "tuple elements", len(s.Members), len(t))
		}
		var err error
		for i, m := range s.Members {
			if out, err = e.flat(m.Shape, t[i], out); err != nil {
				return nil, withPath(err, indexSeg(i))
			}
		}
		return out, nil
	case types.KindOption:
		o, ok := v.(Option)
		if !ok {
			return nil, mismatch(s, v)
		}
		if !o.IsSome {
			return e.flatCase(s, 0, nil, nil, out, "none")
		}
		return e.flatCase(s, 1, s.Elem, o.Value, out, "some")
	case types.KindResult:
		r, ok := v.(Result)
		if !ok {
			return nil, mismatch(s, v)
		}
		if r.IsErr {
			return e.flatCase(s, 1, s.Err, r.Value, out, "err")
		}
		return e.flatCase(s, 0, s.Ok, r.Value, out, "ok")
	case types.KindVariant:
		vr, ok := v.(Variant)
		if !ok {
			return nil, mismatch(s, v)
		}
		idx := s.CaseIndex(vr.Case)
		if idx < 0 {
			return nil, werrors.InvalidEnum(werrors.PhaseEncode, nil, vr.Case, s.Name)
		}
		return e.flatCase(s, uint32(idx), s.Cases[idx].Shape, vr.Payload, out, vr.Case)
	case types.KindEnum:
		en, ok := v.(Enum)
		if !ok {
			return nil, mismatch(s, v)
		}
		idx := s.CaseIndex(string(en))
		if idx < 0 {
			return nil, werrors.InvalidEnum(werrors.PhaseEncode, nil, string(en), s.Name)
		}
		return append(out, uint64(idx)), nil
	case types.KindFlags:
		f, ok := v.(Flags)
		if !ok {
			return nil, mismatch(s, v)
		}
		if hi, set := f.highest(); set && int(hi) >= s.FlagCount {
			return nil, werrors.InvalidFlags(werrors.PhaseEncode, nil, s.FlagCount)
		}
		for _, w := range f.words(s.FlagCount) {
			out = append(out, uint64(w))
		}
		return out, nil
	case types.KindOwn, types.KindBorrow:
		h, ok := v.(Handle)
		if !ok {
			return nil, mismatch(s, v)
		}
		return append(out, uint64(h)), nil
	}
	return nil, werrors.Unsupported(werrors.PhaseEncode, "kind "+s.Kind.String())
}

// flatCase writes the discriminant and the payload, zero padded to the
// joined width. Widened slots need no conversion since every slot already
// carries zero-extended bits.
func (e *encoder) flatCase(s *shape, disc uint32, payload *shape, v Value, out []uint64, seg string) ([]uint64, error) {
	out = append(out, uint64(disc))
	start := len(out)
	if payload == nil {
		if v != nil {
			return nil, werrors.InvalidData(werrors.PhaseEncode, []string{seg}, "case carries no payload")
		}
	} else {
		var err error
		if out, err = e.flat(payload, v, out); err != nil {
			return nil, withPath(err, seg)
		}
	}
	for len(out)-start < len(s.Flat)-1 {
		out = append(out, 0)
	}
	return out, nil
}

// LiftFlat is the inverse of LowerFlat. Memory is only consulted for strings,
// lists and spilled values and may be nil otherwise.
func (c *Codec) LiftFlat(mem Memory, ts []wit.Type, flat []uint64, limit int) ([]Value, error) {
	shapes, count, err := c.shapes(ts)
	if err != nil {
		return nil, err
	}
	d := &decoder{codec: c, mem: mem}
	if sizer, ok := mem.(interface{ Size() uint32 }); ok {
		d.size = sizer.Size()
		d.sized = true
	}
	out := make([]Value, len(shapes))

	if count > limit {
		if len(flat) != 1 {
			return nil, werrors.Arity(werrors.PhaseDecode, "core values", 1, len(flat))
		}
		if mem == nil {
			return nil, werrors.Unsupported(werrors.PhaseDecode, "spilled values without memory")
		}
		offsets, _, _ := packLayout(shapes)
		ptr := uint32(flat[0])
		for i, s := range shapes {
			if out[i], err = d.load(s, ptr+offsets[i]); err != nil {
				return nil, withPath(err, indexSeg(i))
			}
		}
		return out, nil
	}

	if len(flat) != count {
		return nil, werrors.Arity(werrors.PhaseDecode, "core values", count, len(flat))
	}
	r := &flatReader{vals: flat}
	for i, s := range shapes {
		if out[i], err = d.liftFlat(s, r); err != nil {
			return nil, withPath(err, indexSeg(i))
		}
	}
	return out, nil
}

type flatReader struct {
	vals []uint64
	pos  int
}

func (r *flatReader) next() uint64 {
	v := r.vals[r.pos]
	r.pos++
	return v
}

func (r *flatReader) next32() uint32 { return uint32(r.next()) }

// take splits off the next n slots as their own reader.
func (r *flatReader) take(n int) *flatReader {
	sub := &flatReader{vals: r.vals[r.pos : r.pos+n]}
	r.pos += n
	return sub
}

func (d *decoder) liftFlat(s *shape, r *flatReader) (Value, error) {
	switch s.Kind {
	case types.KindBool:
		return Bool(r.next32() != 0), nil
	case types.KindU8:
		return U8(r.next32()), nil
	case types.KindS8:
		return S8(int8(r.next32())), nil
	case types.KindU16:
		return U16(r.next32()), nil
	case types.KindS16:
		return S16(int16(r.next32())), nil
	case types.KindU32:
		return U32(r.next32()), nil
	case types.KindS32:
		return S32(int32(r.next32())), nil
	case types.KindU64:
		return U64(r.next()), nil
	case types.KindS64:
		return S64(int64(r.next())), nil
	case types.KindF32:
		return d.codec.f32FromBits(r.next32()), nil
	case types.KindF64:
		return d.codec.f64FromBits(r.next()), nil
	case types.KindChar:
		ch := r.next32()
		if !abi.ValidateChar(ch) {
			return nil, werrors.InvalidChar(werrors.PhaseDecode, nil, ch)
		}
		return Char(ch), nil
	case types.KindString:
		ptr, n := r.next32(), r.next32()
		if d.mem == nil {
			return nil, werrors.Unsupported(werrors.PhaseDecode, "string without memory")
		}
		return d.readString(ptr, n)
	case types.KindList:
		ptr, n := r.next32(), r.next32()
		if d.mem == nil {
			return nil, werrors.Unsupported(werrors.PhaseDecode, "list without memory")
		}
		return d.readList(s, ptr, n)
	case types.KindRecord:
		rec := make(Record, len(s.Members))
		for i, m := range s.Members {
			v, err := d.liftFlat(m.Shape, r)
			if err != nil {
				return nil, withPath(err, m.Name)
			}
			rec[i] = Field{Name: m.Name, Value: v}
		}
		return rec, nil
	case types.KindTuple:
		t := make(Tuple, len(s.Members))
		for i, m := range s.Members {
			v, err := d.liftFlat(m.Shape, r)
			if err != nil {
				return nil, withPath(err, indexSeg(i))
			}
			t[i] = v
		}
		return t, nil
	case types.KindOption:
		disc := r.next32()
		payload := r.take(len(s.Flat) - 1)
		switch disc {
		case 0:
			return None(), nil
		case 1:
			v, err := d.liftFlat(s.Elem, payload)
			if err != nil {
				return nil, withPath(err, "some")
			}
			return Some(v), nil
		}
		return nil, werrors.InvalidDiscriminant(werrors.PhaseDecode, nil, disc, 1)
	case types.KindResult:
		disc := r.next32()
		payload := r.take(len(s.Flat) - 1)
		switch disc {
		case 0:
			v, err := d.liftFlatPayload(s.Ok, payload, "ok")
			return Ok(v), err
		case 1:
			v, err := d.liftFlatPayload(s.Err, payload, "err")
			return Err(v), err
		}
		return nil, werrors.InvalidDiscriminant(werrors.PhaseDecode, nil, disc, 1)
	case types.KindVariant:
		disc := r.next32()
		payload := r.take(len(s.Flat) - 1)
		if int(disc) >= len(s.Cases) {
			return nil, werrors.InvalidDiscriminant(werrors.PhaseDecode, nil, disc, uint32(len(s.Cases)-1))
		}
		c := s.Cases[disc]
		v, err := d.liftFlatPayload(c.Shape, payload, c.Name)
		if err != nil {
			return nil, err
		}
		return Case(c.Name, v), nil
	case types.KindEnum:
		disc := r.next32()
		if int(disc) >= len(s.Cases) {
			return nil, werrors.InvalidEnum(werrors.PhaseDecode, nil, disc, s.Name)
		}
		return Enum(s.Cases[disc].Name), nil
	case types.KindFlags:
		words := make([]uint32, len(s.Flat))
		for i := range words {
			words[i] = r.next32()
		}
		return flagsChecked(s, words)
	case types.KindOwn, types.KindBorrow:
		return Handle(r.next32()), nil
	}
	return nil, werrors.Unsupported(werrors.PhaseDecode, "kind "+s.Kind.String())
}

func (d *decoder) liftFlatPayload(payload *shape, r *flatReader, seg string) (Value, error) {
	if payload == nil {
		return nil, nil
	}
	v, err := d.liftFlat(payload, r)
	if err != nil {
		return nil, withPath(err, seg)
	}
	return v, nil
}

// StoreTuple writes vs at addr laid out as a tuple of ts. Used for results
// returned through a caller-provided pointer.
func (c *Codec) StoreTuple(mem Memory, alloc Allocator, ts []wit.Type, vs []Value, addr uint32) error {
	if len(ts) != len(vs) {
		return werrors.Arity(werrors.PhaseEncode, "values", len(ts), len(vs))
	}
	shapes, _, err := c.shapes(ts)
	if err != nil {
		return err
	}
	allocs := NewAllocationList()
	defer allocs.Release()
	enc := &encoder{codec: c, mem: mem, alloc: alloc, allocs: allocs}

	offsets, _, _ := packLayout(shapes)
	for i, s := range shapes {
		if err := enc.store(s, vs[i], addr+offsets[i]); err != nil {
			allocs.Free(alloc)
			return withPath(err, indexSeg(i))
		}
	}
	return nil
}

// LoadTuple reads a tuple of ts at addr.
func (c *Codec) LoadTuple(mem Memory, ts []wit.Type, addr uint32) ([]Value, error) {
	return c.LiftFlat(mem, ts, []uint64{uint64(addr)}, -1)
}
