package engine

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-boundary/transcoder"
)

var wasmHeader = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

func module(sections ...[]byte) []byte {
	out := append([]byte{}, wasmHeader...)
	for _, s := range sections {
		out = append(out, s...)
	}
	return out
}

// memoryOnly exports a single one-page memory.
var memoryOnly = module(
	[]byte{0x05, 0x03, 0x01, 0x00, 0x01},
	[]byte{0x07, 0x0a, 0x01, 0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00},
)

// adder exports memory and add(i32, i32) -> i32.
var adder = module(
	[]byte{0x01, 0x07, 0x01, 0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f},
	[]byte{0x03, 0x02, 0x01, 0x00},
	[]byte{0x05, 0x03, 0x01, 0x00, 0x01},
	[]byte{0x07, 0x10, 0x02,
		0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
		0x03, 'a', 'd', 'd', 0x00, 0x00},
	[]byte{0x0a, 0x09, 0x01, 0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b},
)

// forwarder imports boundary.double(i32) -> i32 and exports run(i32) -> i32
// which calls it.
var forwarder = module(
	[]byte{0x01, 0x06, 0x01, 0x60, 0x01, 0x7f, 0x01, 0x7f},
	[]byte{0x02, 0x13, 0x01,
		0x08, 'b', 'o', 'u', 'n', 'd', 'a', 'r', 'y',
		0x06, 'd', 'o', 'u', 'b', 'l', 'e', 0x00, 0x00},
	[]byte{0x03, 0x02, 0x01, 0x00},
	[]byte{0x07, 0x07, 0x01, 0x03, 'r', 'u', 'n', 0x00, 0x01},
	[]byte{0x0a, 0x08, 0x01, 0x06, 0x00, 0x20, 0x00, 0x10, 0x00, 0x0b},
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	ctx := context.Background()
	e, err := New(ctx, &Config{MemoryLimitPages: 16})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = e.Close(ctx) })
	return e
}

func TestWazeroMemory(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	inst, err := e.Instantiate(ctx, "mem", memoryOnly)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	defer inst.Close(ctx)

	mem := inst.Memory()
	if mem == nil {
		t.Fatal("expected exported memory")
	}
	if mem.Size() != pageSize {
		t.Errorf("size = %d, want %d", mem.Size(), pageSize)
	}
	if err := mem.WriteU64(16, 0x0102030405060708); err != nil {
		t.Fatal(err)
	}
	v, err := mem.ReadU16(16)
	if err != nil || v != 0x0708 {
		t.Errorf("ReadU16 = %#x, %v", v, err)
	}
	if _, err := mem.ReadU32(pageSize - 2); err == nil {
		t.Error("expected out of bounds read to fail")
	}
}

func TestBumpAllocatorGrows(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	inst, err := e.Instantiate(ctx, "mem", memoryOnly)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	defer inst.Close(ctx)

	a := NewBumpAllocator(inst.Module().Memory())
	ptr, err := a.Alloc(100, 8)
	if err != nil {
		t.Fatal(err)
	}
	if ptr < pageSize || ptr%8 != 0 {
		t.Errorf("ptr = %d, want aligned above the initial page", ptr)
	}
	if inst.Memory().Size() != 2*pageSize {
		t.Errorf("memory size = %d, want two pages", inst.Memory().Size())
	}
	if _, err := a.Alloc(32*pageSize, 1); err == nil {
		t.Error("expected allocation past the memory limit to fail")
	}
}

func TestLowerLiftThroughGuestMemory(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	inst, err := e.Instantiate(ctx, "mem", memoryOnly)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	defer inst.Close(ctx)

	rec := &wit.TypeDef{Kind: &wit.Record{Fields: []wit.Field{
		{Name: "a", Type: wit.U32{}},
		{Name: "b", Type: wit.String{}},
	}}}
	v := transcoder.Record{{Name: "a", Value: transcoder.U32(123)}, {Name: "b", Value: transcoder.String("hello")}}

	alloc := NewBumpAllocator(inst.Module().Memory())
	ptr, err := e.Codec().LowerInto(inst.Memory(), alloc, rec, v)
	if err != nil {
		t.Fatal(err)
	}
	got, err := e.Codec().Load(inst.Memory(), rec, ptr)
	if err != nil {
		t.Fatal(err)
	}
	if !transcoder.Equal(got, v, transcoder.NaNCanonicalize) {
		t.Errorf("got %s", transcoder.Format(got))
	}
}

func TestInstanceCall(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	inst, err := e.Instantiate(ctx, "adder", adder)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	defer inst.Close(ctx)

	res, err := inst.Call(ctx, "add",
		[]wit.Type{wit.U32{}, wit.U32{}}, []wit.Type{wit.U32{}},
		transcoder.U32(2), transcoder.U32(40))
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || res[0] != transcoder.U32(42) {
		t.Errorf("add = %v, want 42", res)
	}

	if _, err := inst.Call(ctx, "missing", nil, nil); err == nil {
		t.Error("expected error for missing export")
	}
}

func TestHostModule(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	var calls atomic.Int32
	_, err := e.ExportHostModule(ctx, "boundary", []HostFunc{{
		Name:    "double",
		Params:  []wit.Type{wit.U32{}},
		Results: []wit.Type{wit.U32{}},
		Handler: func(_ context.Context, args []transcoder.Value) ([]transcoder.Value, error) {
			calls.Add(1)
			return []transcoder.Value{args[0].(transcoder.U32) * 2}, nil
		},
	}})
	if err != nil {
		t.Fatal(err)
	}

	inst, err := e.Instantiate(ctx, "guest", forwarder)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	defer inst.Close(ctx)

	res, err := inst.Call(ctx, "run", []wit.Type{wit.U32{}}, []wit.Type{wit.U32{}}, transcoder.U32(21))
	if err != nil {
		t.Fatal(err)
	}
	if res[0] != transcoder.U32(42) {
		t.Errorf("run = %v, want 42", res[0])
	}
	if calls.Load() != 1 {
		t.Errorf("handler calls = %d, want 1", calls.Load())
	}
}

type stubMemory struct{ api.Memory }

func TestIsValidMemory(t *testing.T) {
	var typedNil *stubMemory
	tests := []struct {
		name string
		mem  api.Memory
		want bool
	}{
		{"nil interface", nil, false},
		{"typed nil", typedNil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isValidMemory(tt.mem); got != tt.want {
				t.Errorf("isValidMemory = %v, want %v", got, tt.want)
			}
		})
	}

	if size := (&WazeroMemory{mem: typedNil}).Size(); size != 0 {
		t.Errorf("Size of typed nil memory = %d, want 0", size)
	}
}

func TestInstantiate_NoMemory(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	inst, err := e.Instantiate(ctx, "guest", adder)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	defer inst.Close(ctx)

	if inst.Memory() != nil {
		t.Error("memoryless guest got a memory wrapper")
	}
}

func TestHostModuleRejectsBadArgs(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	var calls atomic.Int32
	_, err := e.ExportHostModule(ctx, "boundary", []HostFunc{{
		Name:    "double",
		Params:  []wit.Type{wit.Char{}},
		Results: []wit.Type{wit.U32{}},
		Handler: func(_ context.Context, args []transcoder.Value) ([]transcoder.Value, error) {
			calls.Add(1)
			return []transcoder.Value{transcoder.U32(0)}, nil
		},
	}})
	if err != nil {
		t.Fatal(err)
	}

	inst, err := e.Instantiate(ctx, "guest", forwarder)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	defer inst.Close(ctx)

	fn := inst.Module().ExportedFunction("run")
	if _, err := fn.Call(ctx, 0xD800); err == nil {
		t.Error("expected trap for surrogate char")
	}
	if calls.Load() != 0 {
		t.Errorf("handler ran %d times after failed lift", calls.Load())
	}

	res, err := fn.Call(ctx, uint64('a'))
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || calls.Load() != 1 {
		t.Errorf("valid call: res=%v calls=%d", res, calls.Load())
	}
}

func TestSignatureRetptr(t *testing.T) {
	e := newEngine(t)
	params, results, retptr, err := e.Signature(HostFunc{
		Name:    "pair",
		Params:  []wit.Type{wit.U32{}},
		Results: []wit.Type{wit.String{}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !retptr || len(results) != 0 || len(params) != 2 {
		t.Errorf("params=%v results=%v retptr=%v", params, results, retptr)
	}
}
