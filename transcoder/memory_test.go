package transcoder

import (
	"errors"
	"testing"

	werrors "github.com/wippyai/wasm-boundary/errors"
)

func TestLinearMemoryAlloc(t *testing.T) {
	m := NewLinearMemory(64)
	p1, err := m.Alloc(3, 1)
	if err != nil {
		t.Fatal(err)
	}
	if p1 == 0 {
		t.Fatal("offset 0 must never be handed out")
	}
	p2, err := m.Alloc(8, 8)
	if err != nil {
		t.Fatal(err)
	}
	if p2%8 != 0 || p2 < p1+3 {
		t.Errorf("p2 = %d, want aligned past %d", p2, p1+3)
	}
	if _, err := m.Alloc(64, 1); err == nil {
		t.Error("expected allocation past max to fail")
	}

	m.Free(p2, 8, 8)
	p3, err := m.Alloc(8, 8)
	if err != nil {
		t.Fatal(err)
	}
	if p3 != p2 {
		t.Errorf("freed tail not reused: %d != %d", p3, p2)
	}
}

func TestLinearMemoryBounds(t *testing.T) {
	m := NewLinearMemory(0)
	p, _ := m.Alloc(4, 4)
	if err := m.WriteU32(p, 0xdeadbeef); err != nil {
		t.Fatal(err)
	}
	v, err := m.ReadU32(p)
	if err != nil || v != 0xdeadbeef {
		t.Fatalf("ReadU32 = %#x, %v", v, err)
	}
	_, err = m.ReadU64(p)
	var we *werrors.Error
	if !errors.As(err, &we) || we.Kind != werrors.KindOutOfBounds {
		t.Errorf("expected out of bounds, got %v", err)
	}
	if _, err := m.Read(0xfffffff0, 0x20); err == nil {
		t.Error("expected overflowing range to fail")
	}
}

func TestLinearMemoryReset(t *testing.T) {
	m := NewLinearMemory(0)
	_, _ = m.Alloc(100, 1)
	m.Reset()
	if m.Size() != linearMemoryBase {
		t.Errorf("size after reset = %d", m.Size())
	}
}

func TestAllocationList(t *testing.T) {
	m := NewLinearMemory(0)
	al := NewAllocationList()
	defer al.Release()
	for i := 0; i < 3; i++ {
		p, _ := m.Alloc(16, 4)
		al.Add(p, 16, 4)
	}
	if al.Count() != 3 {
		t.Fatalf("count = %d", al.Count())
	}
	al.Free(m)
	if m.Size() != linearMemoryBase {
		t.Errorf("size after free = %d, want %d", m.Size(), linearMemoryBase)
	}
}
