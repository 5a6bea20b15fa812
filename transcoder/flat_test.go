package transcoder

import (
	"errors"
	"math"
	"testing"

	"github.com/tetratelabs/wazero/api"
	werrors "github.com/wippyai/wasm-boundary/errors"
	"go.bytecodealliance.org/wit"
)

func TestFlattenTypes(t *testing.T) {
	mixed := named("mixed", &wit.Variant{Cases: []wit.Case{
		{Name: "i", Type: wit.U32{}},
		{Name: "f", Type: wit.F32{}},
		{Name: "d", Type: wit.F64{}},
	}})
	tests := []struct {
		name string
		typ  wit.Type
		want []api.ValueType
	}{
		{"u8", wit.U8{}, []api.ValueType{api.ValueTypeI32}},
		{"s64", wit.S64{}, []api.ValueType{api.ValueTypeI64}},
		{"f32", wit.F32{}, []api.ValueType{api.ValueTypeF32}},
		{"string", wit.String{}, []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}},
		{"record", pointType, []api.ValueType{api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32}},
		{"option f64", optionOf(wit.F64{}), []api.ValueType{api.ValueTypeI32, api.ValueTypeF64}},
		{"variant join", mixed, []api.ValueType{api.ValueTypeI32, api.ValueTypeI64}},
		{"flags 40", flagsType(40), []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}},
		{"enum", colorType, []api.ValueType{api.ValueTypeI32}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Default().FlattenType(tt.typ)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("slot %d: got %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestFlatRoundTrip(t *testing.T) {
	mem := NewLinearMemory(0)
	c := Default()
	ts := []wit.Type{wit.S8{}, wit.F32{}, shapeType, optionOf(wit.String{}), colorType, pointType}
	vs := []Value{
		S8(-5),
		F32(1.5),
		Case("square", U32(9)),
		Some(String("hi")),
		Enum("green"),
		Record{{Name: "a", Value: U32(123)}, {Name: "b", Value: String("hello")}, {Name: "c", Value: List{U8(10), U8(20), U8(30)}}},
	}
	flat, err := c.LowerFlat(mem, mem, ts, vs, MaxFlatParams)
	if err != nil {
		t.Fatal(err)
	}
	if flat[0] != uint64(uint32(0xfffffffb)) {
		t.Errorf("s8 slot = %#x, want sign extended i32", flat[0])
	}
	if flat[1] != uint64(math.Float32bits(1.5)) {
		t.Errorf("f32 slot = %#x", flat[1])
	}

	got, err := c.LiftFlat(mem, ts, flat, MaxFlatParams)
	if err != nil {
		t.Fatal(err)
	}
	for i := range vs {
		if !Equal(got[i], vs[i], NaNCanonicalize) {
			t.Errorf("value %d: got %s, want %s", i, Format(got[i]), Format(vs[i]))
		}
	}
}

func TestFlatSpill(t *testing.T) {
	mem := NewLinearMemory(0)
	c := Default()
	ts := make([]wit.Type, 20)
	vs := make([]Value, 20)
	for i := range ts {
		ts[i] = wit.U64{}
		vs[i] = U64(i * 1000)
	}
	sig, err := c.FlatSignature(ts, MaxFlatParams)
	if err != nil {
		t.Fatal(err)
	}
	if len(sig) != 1 || sig[0] != api.ValueTypeI32 {
		t.Fatalf("signature = %v, want single i32", sig)
	}
	flat, err := c.LowerFlat(mem, mem, ts, vs, MaxFlatParams)
	if err != nil {
		t.Fatal(err)
	}
	if len(flat) != 1 {
		t.Fatalf("expected spilled pointer, got %d values", len(flat))
	}
	got, err := c.LiftFlat(mem, ts, flat, MaxFlatParams)
	if err != nil {
		t.Fatal(err)
	}
	for i := range vs {
		if got[i] != vs[i] {
			t.Errorf("value %d: got %v, want %v", i, got[i], vs[i])
		}
	}
}

func TestFlatResultSpill(t *testing.T) {
	mem := NewLinearMemory(0)
	ts := []wit.Type{wit.String{}}
	flat, err := Default().LowerFlat(mem, mem, ts, []Value{String("result")}, MaxFlatResults)
	if err != nil {
		t.Fatal(err)
	}
	if len(flat) != 1 {
		t.Fatalf("got %d values, want return pointer", len(flat))
	}
	got, err := Default().LiftFlat(mem, ts, flat, MaxFlatResults)
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != String("result") {
		t.Errorf("got %v", got[0])
	}
}

func TestLiftFlatErrors(t *testing.T) {
	c := Default()
	t.Run("bad variant tag", func(t *testing.T) {
		_, err := c.LiftFlat(nil, []wit.Type{shapeType}, []uint64{7, 0}, MaxFlatParams)
		if !errors.Is(err, werrors.ErrDecode) {
			t.Errorf("expected decode error, got %v", err)
		}
	})
	t.Run("arity", func(t *testing.T) {
		_, err := c.LiftFlat(nil, []wit.Type{wit.U32{}, wit.U32{}}, []uint64{1}, MaxFlatParams)
		if !errors.Is(err, werrors.ErrDecode) {
			t.Errorf("expected decode error, got %v", err)
		}
	})
	t.Run("string without memory", func(t *testing.T) {
		if _, err := c.LiftFlat(nil, []wit.Type{wit.String{}}, []uint64{8, 3}, MaxFlatParams); err == nil {
			t.Error("expected error")
		}
	})
	t.Run("pure types need no memory", func(t *testing.T) {
		got, err := c.LiftFlat(nil, []wit.Type{wit.Bool{}, colorType}, []uint64{1, 2}, MaxFlatParams)
		if err != nil {
			t.Fatal(err)
		}
		if got[0] != Bool(true) || got[1] != Enum("blue") {
			t.Errorf("got %v", got)
		}
	})
}

func TestLowerFlatArity(t *testing.T) {
	_, err := Default().LowerFlat(nil, nil, []wit.Type{wit.U32{}}, nil, MaxFlatParams)
	var we *werrors.Error
	if !errors.As(err, &we) || we.Kind != werrors.KindArity {
		t.Errorf("expected arity error, got %v", err)
	}
}
