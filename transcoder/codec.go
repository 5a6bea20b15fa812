package transcoder

import (
	werrors "github.com/wippyai/wasm-boundary/errors"
	"github.com/wippyai/wasm-boundary/transcoder/internal/abi"
	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"
)

// NaNMode selects how floating point NaNs cross the boundary.
type NaNMode uint8

const (
	// NaNCanonicalize maps every NaN to the canonical quiet NaN on lowering
	// and lifting. Equal treats any two NaNs as equal.
	NaNCanonicalize NaNMode = iota
	// NaNPreserveBits passes NaN payloads through untouched. Equal compares
	// float bit patterns.
	NaNPreserveBits
)

func (m NaNMode) String() string {
	if m == NaNPreserveBits {
		return "preserve-bits"
	}
	return "canonicalize"
}

// Options configures a Codec.
type Options struct {
	NaN           NaNMode
	MaxStringSize uint32
	MaxListLength uint32
}

// DefaultOptions returns canonicalizing NaN handling and the abi limits.
func DefaultOptions() Options {
	return Options{
		NaN:           NaNCanonicalize,
		MaxStringSize: abi.MaxStringSize,
		MaxListLength: abi.MaxListLength,
	}
}

// Codec lowers values into linear memory and lifts them back. It owns a
// shape cache and is safe for concurrent use; each call owns its buffers.
type Codec struct {
	compiler *Compiler
	opts     Options
}

// NewCodec creates a codec. Zero limits take their defaults.
func NewCodec(opts Options) *Codec {
	d := DefaultOptions()
	if opts.MaxStringSize == 0 {
		opts.MaxStringSize = d.MaxStringSize
	}
	if opts.MaxListLength == 0 {
		opts.MaxListLength = d.MaxListLength
	}
	return &Codec{compiler: NewCompiler(), opts: opts}
}

// Options returns the codec configuration.
func (c *Codec) Options() Options { return c.opts }

// Compiler exposes the shape cache, for flattening signatures.
func (c *Codec) Compiler() *Compiler { return c.compiler }

var defaultCodec = NewCodec(DefaultOptions())

// Default returns the shared codec with default options.
func Default() *Codec { return defaultCodec }

// Lower lowers v into a fresh memory image using the default codec.
func Lower(t wit.Type, v Value) (*WireForm, error) {
	return defaultCodec.Lower(t, v)
}

// Lift lifts a wire form produced by Lower using the default codec.
func Lift(t wit.Type, w *WireForm) (Value, error) {
	return defaultCodec.Lift(t, w)
}

// Lower lowers v into a fresh LinearMemory.
func (c *Codec) Lower(t wit.Type, v Value) (*WireForm, error) {
	mem := NewLinearMemory(0)
	ptr, err := c.LowerInto(mem, mem, t, v)
	if err != nil {
		return nil, err
	}
	return &WireForm{Memory: mem, Ptr: ptr}, nil
}

// Lift reads a value of type t from the wire form.
func (c *Codec) Lift(t wit.Type, w *WireForm) (Value, error) {
	if w == nil || w.Memory == nil {
		return nil, werrors.InvalidData(werrors.PhaseDecode, nil, "empty wire form")
	}
	return c.Load(w.Memory, t, w.Ptr)
}

// LowerInto allocates a slot for t in mem and stores v there. On failure every
// block allocated by this call is freed.
func (c *Codec) LowerInto(mem Memory, alloc Allocator, t wit.Type, v Value) (uint32, error) {
	s, err := c.compiler.Compile(t)
	if err != nil {
		return 0, err
	}
	allocs := NewAllocationList()
	defer allocs.Release()

	enc := &encoder{codec: c, mem: mem, alloc: alloc, allocs: allocs}
	ptr, err := enc.allocate(s.Size, s.Align)
	if err == nil {
		err = enc.store(s, v, ptr)
	}
	if err != nil {
		allocs.Free(alloc)
		Logger().Debug("lower failed", zap.String("type", s.Name), zap.Error(err))
		return 0, err
	}
	return ptr, nil
}

// Store writes v at addr, allocating out-of-line data (strings, lists) from alloc.
func (c *Codec) Store(mem Memory, alloc Allocator, t wit.Type, v Value, addr uint32) error {
	s, err := c.compiler.Compile(t)
	if err != nil {
		return err
	}
	allocs := NewAllocationList()
	defer allocs.Release()

	enc := &encoder{codec: c, mem: mem, alloc: alloc, allocs: allocs}
	if err := enc.store(s, v, addr); err != nil {
		allocs.Free(alloc)
		return err
	}
	return nil
}

// Load reads a value of type t at addr. Malformed data yields an error in
// the decode phase, never a panic.
func (c *Codec) Load(mem Memory, t wit.Type, addr uint32) (Value, error) {
	s, err := c.compiler.Compile(t)
	if err != nil {
		return nil, err
	}
	dec := &decoder{codec: c, mem: mem}
	if sizer, ok := mem.(interface{ Size() uint32 }); ok {
		dec.size = sizer.Size()
		dec.sized = true
	}
	return dec.load(s, addr)
}
