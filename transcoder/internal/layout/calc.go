package layout

import (
	"sync"

	"github.com/wippyai/wasm-boundary/transcoder/internal/abi"
	"go.bytecodealliance.org/wit"
)

// Info is the linear-memory layout of one WIT type.
type Info struct {
	// Offsets holds record field or tuple element offsets in declared order.
	Offsets []uint32
	Size    uint32
	Align   uint32
	// PayloadOffset is where a variant, option or result payload starts.
	PayloadOffset uint32
}

// Calculator computes and caches layouts per type definition. Safe for
// concurrent use.
type Calculator struct {
	cache map[*wit.TypeDef]Info
	mu    sync.RWMutex
}

func NewCalculator() *Calculator {
	return &Calculator{
		cache: make(map[*wit.TypeDef]Info),
	}
}

func (c *Calculator) Calculate(t wit.Type) Info {
	switch typ := t.(type) {
	case wit.U8, wit.S8, wit.Bool:
		return Info{Size: 1, Align: 1}
	case wit.U16, wit.S16:
		return Info{Size: 2, Align: 2}
	case wit.U32, wit.S32, wit.F32, wit.Char:
		return Info{Size: 4, Align: 4}
	case wit.U64, wit.S64, wit.F64:
		return Info{Size: 8, Align: 8}
	case wit.String:
		return Info{Size: 8, Align: 4} // [ptr: u32, len: u32]
	case *wit.TypeDef:
		return c.calculateTypeDef(typ)
	default:
		return Info{Size: 0, Align: 1}
	}
}

func (c *Calculator) calculateTypeDef(t *wit.TypeDef) Info {
	c.mu.RLock()
	cached, ok := c.cache[t]
	c.mu.RUnlock()
	if ok {
		return cached
	}

	var info Info

	switch kind := t.Kind.(type) {
	case *wit.Record:
		types := make([]wit.Type, len(kind.Fields))
		for i, f := range kind.Fields {
			types[i] = f.Type
		}
		info = c.calculateStruct(types)
	case *wit.Tuple:
		info = c.calculateStruct(kind.Types)
	case *wit.Variant:
		payloads := make([]wit.Type, len(kind.Cases))
		for i, cs := range kind.Cases {
			payloads[i] = cs.Type
		}
		info = c.calculateUnion(abi.DiscriminantSize(len(kind.Cases)), payloads)
	case *wit.Enum:
		size := abi.DiscriminantSize(len(kind.Cases))
		info = Info{Size: size, Align: size}
	case *wit.Option:
		info = c.calculateUnion(1, []wit.Type{kind.Type})
	case *wit.Result:
		info = c.calculateUnion(1, []wit.Type{kind.OK, kind.Err})
	case *wit.List:
		info = Info{Size: 8, Align: 4}
	case *wit.Flags:
		info = calculateFlags(len(kind.Flags))
	case *wit.Own, *wit.Borrow:
		info = Info{Size: 4, Align: 4}
	case wit.Type:
		info = c.Calculate(kind)
	default:
		info = Info{Size: 0, Align: 1}
	}

	c.mu.Lock()
	c.cache[t] = info
	c.mu.Unlock()
	return info
}

// calculateStruct lays out members sequentially, each aligned to itself.
func (c *Calculator) calculateStruct(members []wit.Type) Info {
	if len(members) == 0 {
		return Info{Size: 0, Align: 1}
	}

	offsets := make([]uint32, len(members))
	maxAlign := uint32(1)
	offset := uint32(0)

	for i, m := range members {
		ml := c.Calculate(m)
		offset = abi.AlignTo(offset, ml.Align)
		offsets[i] = offset
		if ml.Align > maxAlign {
			maxAlign = ml.Align
		}
		offset += ml.Size
	}

	return Info{
		Size:    abi.AlignTo(offset, maxAlign),
		Align:   maxAlign,
		Offsets: offsets,
	}
}

// calculateUnion places a discriminant followed by the widest payload. Nil
// payloads are cases without data.
func (c *Calculator) calculateUnion(discSize uint32, payloads []wit.Type) Info {
	maxAlign := discSize
	maxSize := uint32(0)

	for _, p := range payloads {
		if p == nil {
			continue
		}
		pl := c.Calculate(p)
		if pl.Align > maxAlign {
			maxAlign = pl.Align
		}
		if pl.Size > maxSize {
			maxSize = pl.Size
		}
	}

	payloadOffset := abi.AlignTo(discSize, maxAlign)
	return Info{
		Size:          abi.AlignTo(payloadOffset+maxSize, maxAlign),
		Align:         maxAlign,
		PayloadOffset: payloadOffset,
	}
}

func calculateFlags(numFlags int) Info {
	size := abi.FlagsSize(numFlags)
	switch size {
	case 0:
		return Info{Size: 0, Align: 1}
	case 1, 2:
		return Info{Size: size, Align: size}
	}
	return Info{Size: size, Align: 4}
}
