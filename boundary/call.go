package boundary

import (
	"github.com/wippyai/wasm-boundary/transcoder"
)

// Accessors for handler arguments. Arguments were lifted against the
// declared parameter types, so a mismatch is a registration bug; the
// accessors return the zero value in that case.

func (c *Call) Handle(i int) uint32 {
	h, _ := c.Args[i].(transcoder.Handle)
	return uint32(h)
}

func (c *Call) U8(i int) uint8 {
	v, _ := c.Args[i].(transcoder.U8)
	return uint8(v)
}

func (c *Call) U16(i int) uint16 {
	v, _ := c.Args[i].(transcoder.U16)
	return uint16(v)
}

func (c *Call) U32(i int) uint32 {
	v, _ := c.Args[i].(transcoder.U32)
	return uint32(v)
}

func (c *Call) U64(i int) uint64 {
	v, _ := c.Args[i].(transcoder.U64)
	return uint64(v)
}

func (c *Call) Bool(i int) bool {
	v, _ := c.Args[i].(transcoder.Bool)
	return bool(v)
}

func (c *Call) String(i int) string {
	v, _ := c.Args[i].(transcoder.String)
	return string(v)
}

func (c *Call) Enum(i int) string {
	v, _ := c.Args[i].(transcoder.Enum)
	return string(v)
}

// Bytes returns a list<u8> argument.
func (c *Call) Bytes(i int) []byte {
	l, _ := c.Args[i].(transcoder.List)
	b, _ := l.Bytes()
	return b
}

// List returns a list argument.
func (c *Call) List(i int) transcoder.List {
	l, _ := c.Args[i].(transcoder.List)
	return l
}

// Option returns an option argument's payload, or nil when absent.
func (c *Call) Option(i int) transcoder.Value {
	o, _ := c.Args[i].(transcoder.Option)
	if !o.IsSome {
		return nil
	}
	return o.Value
}
