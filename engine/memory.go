package engine

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	wasmboundary "github.com/wippyai/wasm-boundary"
	werrors "github.com/wippyai/wasm-boundary/errors"
)

// CabiRealloc is the guest export used to allocate lowered data.
const CabiRealloc = "cabi_realloc"

const pageSize = 65536

// WazeroMemory wraps wazero memory to implement wasmboundary.Memory
type WazeroMemory struct {
	mem api.Memory
}

// isValidMemory reports whether mem is usable. Module.Memory returns a typed
// nil for modules that define no memory.
func isValidMemory(mem api.Memory) bool {
	if mem == nil {
		return false
	}
	return !reflect.ValueOf(mem).IsNil()
}

// NewWazeroMemory wraps mem.
func NewWazeroMemory(mem api.Memory) *WazeroMemory {
	return &WazeroMemory{mem: mem}
}

func (m *WazeroMemory) outOfRange(offset, length uint32) error {
	return werrors.MemoryRange(werrors.PhaseRuntime, nil, offset, length, m.Size())
}

func (m *WazeroMemory) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, m.outOfRange(offset, length)
	}
	return data, nil
}

func (m *WazeroMemory) Write(offset uint32, data []byte) error {
	if !m.mem.Write(offset, data) {
		return m.outOfRange(offset, uint32(len(data)))
	}
	return nil
}

func (m *WazeroMemory) ReadU8(offset uint32) (uint8, error) {
	v, ok := m.mem.ReadByte(offset)
	if !ok {
		return 0, m.outOfRange(offset, 1)
	}
	return v, nil
}

func (m *WazeroMemory) ReadU16(offset uint32) (uint16, error) {
	v, ok := m.mem.ReadUint16Le(offset)
	if !ok {
		return 0, m.outOfRange(offset, 2)
	}
	return v, nil
}

func (m *WazeroMemory) ReadU32(offset uint32) (uint32, error) {
	v, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, m.outOfRange(offset, 4)
	}
	return v, nil
}

func (m *WazeroMemory) ReadU64(offset uint32) (uint64, error) {
	v, ok := m.mem.ReadUint64Le(offset)
	if !ok {
		return 0, m.outOfRange(offset, 8)
	}
	return v, nil
}

func (m *WazeroMemory) WriteU8(offset uint32, value uint8) error {
	if !m.mem.WriteByte(offset, value) {
		return m.outOfRange(offset, 1)
	}
	return nil
}

func (m *WazeroMemory) WriteU16(offset uint32, value uint16) error {
	if !m.mem.WriteUint16Le(offset, value) {
		return m.outOfRange(offset, 2)
	}
	return nil
}

func (m *WazeroMemory) WriteU32(offset uint32, value uint32) error {
	if !m.mem.WriteUint32Le(offset, value) {
		return m.outOfRange(offset, 4)
	}
	return nil
}

func (m *WazeroMemory) WriteU64(offset uint32, value uint64) error {
	if !m.mem.WriteUint64Le(offset, value) {
		return m.outOfRange(offset, 8)
	}
	return nil
}

func (m *WazeroMemory) Size() uint32 {
	if !isValidMemory(m.mem) {
		return 0
	}
	return m.mem.Size()
}

// ReallocAllocator allocates through the guest's cabi_realloc export.
type ReallocAllocator struct {
	ctx      context.Context
	fn       api.Function
	stackBuf [4]uint64 // pre-allocated for CallWithStack
	mu       sync.Mutex
}

func (a *ReallocAllocator) setContext(ctx context.Context) {
	a.mu.Lock()
	a.ctx = ctx
	a.mu.Unlock()
}

func (a *ReallocAllocator) Alloc(size, align uint32) (uint32, error) {
	if a.fn == nil {
		return 0, fmt.Errorf("no allocator available")
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	ctx := a.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	a.stackBuf[0] = 0 // oldPtr
	a.stackBuf[1] = 0 // oldSize
	a.stackBuf[2] = uint64(align)
	a.stackBuf[3] = uint64(size)
	if err := a.fn.CallWithStack(ctx, a.stackBuf[:]); err != nil {
		return 0, werrors.Wrap(werrors.PhaseRuntime, werrors.KindAllocation, err, CabiRealloc)
	}
	return uint32(a.stackBuf[0]), nil
}

// Free is a no-op: cabi_realloc has no release entry point, so blocks stay
// with the guest.
func (a *ReallocAllocator) Free(ptr, size, align uint32) {}

// BumpAllocator hands out memory above the guest's initial size, growing the
// memory a page at a time. It serves guests that export no cabi_realloc.
type BumpAllocator struct {
	mem  api.Memory
	next uint32
	mu   sync.Mutex
}

// NewBumpAllocator starts allocating at the current end of mem. Offset 0 is
// never handed out.
func NewBumpAllocator(mem api.Memory) *BumpAllocator {
	next := mem.Size()
	if next < 8 {
		next = 8
	}
	return &BumpAllocator{mem: mem, next: next}
}

func (a *BumpAllocator) setContext(context.Context) {}

func (a *BumpAllocator) Alloc(size, align uint32) (uint32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ptr := a.next
	if align > 1 {
		ptr = (ptr + align - 1) &^ (align - 1)
	}
	end := ptr + size
	if end < ptr || ptr < a.next {
		return 0, werrors.AllocationFailed(werrors.PhaseRuntime, size, align)
	}
	if cur := a.mem.Size(); end > cur {
		pages := (end - cur + pageSize - 1) / pageSize
		if _, grown := a.mem.Grow(pages); !grown {
			Logger().Warn("memory grow failed",
				zap.Uint32("pages", pages),
				zap.Uint32("size", cur))
			return 0, werrors.AllocationFailed(werrors.PhaseRuntime, size, align)
		}
	}
	a.next = end
	return ptr, nil
}

// Free reclaims the block only when it is the most recent one.
func (a *BumpAllocator) Free(ptr, size, _ uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if ptr+size == a.next {
		a.next = ptr
	}
}

var (
	_ wasmboundary.Memory      = (*WazeroMemory)(nil)
	_ wasmboundary.MemorySizer = (*WazeroMemory)(nil)
	_ wasmboundary.Allocator   = (*ReallocAllocator)(nil)
	_ wasmboundary.Allocator   = (*BumpAllocator)(nil)
)
