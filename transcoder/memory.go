package transcoder

import (
	"encoding/binary"
	"sync"

	wasmboundary "github.com/wippyai/wasm-boundary"
	werrors "github.com/wippyai/wasm-boundary/errors"
	"github.com/wippyai/wasm-boundary/transcoder/internal/abi"
)

type Memory = wasmboundary.Memory
type Allocator = wasmboundary.Allocator

// LinearMemory is a growable byte-slice memory with a bump allocator. It
// backs WireForm and stands in for guest memory in host-to-host calls.
// Offset 0 is never handed out.
type LinearMemory struct {
	data []byte
	next uint32
	max  uint32
}

const linearMemoryBase = 8

// NewLinearMemory creates a memory that may grow up to max bytes; 0 means
// abi.MaxAlloc.
func NewLinearMemory(max uint32) *LinearMemory {
	if max == 0 {
		max = abi.MaxAlloc
	}
	return &LinearMemory{
		data: make([]byte, linearMemoryBase, 256),
		next: linearMemoryBase,
		max:  max,
	}
}

// Bytes returns the memory image.
func (m *LinearMemory) Bytes() []byte { return m.data }

// Size returns the current memory size in bytes.
func (m *LinearMemory) Size() uint32 { return uint32(len(m.data)) }

// Alloc reserves size bytes at align and zeroes them.
func (m *LinearMemory) Alloc(size, align uint32) (uint32, error) {
	ptr := abi.AlignTo(m.next, align)
	end, ok := abi.SafeAddU32(ptr, size)
	if !ok || end > m.max {
		return 0, werrors.AllocationFailed(werrors.PhaseEncode, size, align)
	}
	if int(end) > len(m.data) {
		if int(end) > cap(m.data) {
			grown := make([]byte, end, 2*uint64(end))
			copy(grown, m.data)
			m.data = grown
		} else {
			m.data = m.data[:end]
		}
	}
	clear(m.data[ptr:end])
	m.next = end
	return ptr, nil
}

// Free releases the most recent allocation only; earlier blocks stay
// reserved until Reset.
func (m *LinearMemory) Free(ptr, size, _ uint32) {
	if ptr+size == m.next && ptr >= linearMemoryBase {
		m.next = ptr
		m.data = m.data[:ptr]
	}
}

// Reset discards every allocation.
func (m *LinearMemory) Reset() {
	m.data = m.data[:linearMemoryBase]
	m.next = linearMemoryBase
}

func (m *LinearMemory) span(offset, length uint32) ([]byte, error) {
	end, ok := abi.SafeAddU32(offset, length)
	if !ok || end > uint32(len(m.data)) {
		return nil, werrors.MemoryRange(werrors.PhaseRuntime, nil, offset, length, uint32(len(m.data)))
	}
	return m.data[offset:end], nil
}

func (m *LinearMemory) Read(offset, length uint32) ([]byte, error) {
	return m.span(offset, length)
}

func (m *LinearMemory) Write(offset uint32, data []byte) error {
	b, err := m.span(offset, uint32(len(data)))
	if err != nil {
		return err
	}
	copy(b, data)
	return nil
}

func (m *LinearMemory) ReadU8(offset uint32) (uint8, error) {
	b, err := m.span(offset, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (m *LinearMemory) ReadU16(offset uint32) (uint16, error) {
	b, err := m.span(offset, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (m *LinearMemory) ReadU32(offset uint32) (uint32, error) {
	b, err := m.span(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (m *LinearMemory) ReadU64(offset uint32) (uint64, error) {
	b, err := m.span(offset, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (m *LinearMemory) WriteU8(offset uint32, value uint8) error {
	b, err := m.span(offset, 1)
	if err != nil {
		return err
	}
	b[0] = value
	return nil
}

func (m *LinearMemory) WriteU16(offset uint32, value uint16) error {
	b, err := m.span(offset, 2)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(b, value)
	return nil
}

func (m *LinearMemory) WriteU32(offset uint32, value uint32) error {
	b, err := m.span(offset, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, value)
	return nil
}

func (m *LinearMemory) WriteU64(offset uint32, value uint64) error {
	b, err := m.span(offset, 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, value)
	return nil
}

// WireForm is a lowered value: the memory image holding it and the offset of
// its root.
type WireForm struct {
	Memory *LinearMemory
	Ptr    uint32
}

// Allocation is one block handed out by an Allocator during lowering.
type Allocation struct {
	Ptr   uint32
	Size  uint32
	Align uint32
}

// AllocationList records blocks so a failed lowering can give them back.
type AllocationList struct {
	allocations []Allocation
}

var allocationListPool = sync.Pool{
	New: func() any {
		return &AllocationList{allocations: make([]Allocation, 0, 8)}
	},
}

func NewAllocationList() *AllocationList {
	return allocationListPool.Get().(*AllocationList)
}

const maxPooledAllocationCapacity = 128

// Release returns to pool. Must call after Free(); list invalid after Release.
func (al *AllocationList) Release() {
	if cap(al.allocations) > maxPooledAllocationCapacity {
		return
	}
	al.allocations = al.allocations[:0]
	allocationListPool.Put(al)
}

func (al *AllocationList) Add(ptr, size, align uint32) {
	al.allocations = append(al.allocations, Allocation{Ptr: ptr, Size: size, Align: align})
}

// Free releases blocks newest first so bump allocators can reclaim them.
func (al *AllocationList) Free(allocator Allocator) {
	if allocator == nil {
		return
	}
	for i := len(al.allocations) - 1; i >= 0; i-- {
		a := al.allocations[i]
		if a.Ptr != 0 {
			allocator.Free(a.Ptr, a.Size, a.Align)
		}
	}
}

func (al *AllocationList) Count() int {
	return len(al.allocations)
}
