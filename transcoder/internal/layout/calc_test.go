package layout

import (
	"fmt"
	"slices"
	"sync"
	"testing"

	"go.bytecodealliance.org/wit"
)

func def(kind wit.TypeDefKind) *wit.TypeDef {
	return &wit.TypeDef{Kind: kind}
}

func record(types ...wit.Type) *wit.TypeDef {
	fields := make([]wit.Field, len(types))
	for i, t := range types {
		fields[i] = wit.Field{Name: fmt.Sprintf("f%d", i), Type: t}
	}
	return def(&wit.Record{Fields: fields})
}

func variant(payloads ...wit.Type) *wit.TypeDef {
	cases := make([]wit.Case, len(payloads))
	for i, p := range payloads {
		cases[i] = wit.Case{Name: fmt.Sprintf("c%d", i), Type: p}
	}
	return def(&wit.Variant{Cases: cases})
}

func enum(n int) *wit.TypeDef {
	cases := make([]wit.EnumCase, n)
	for i := range cases {
		cases[i] = wit.EnumCase{Name: fmt.Sprintf("e%d", i)}
	}
	return def(&wit.Enum{Cases: cases})
}

func flags(n int) *wit.TypeDef {
	fs := make([]wit.Flag, n)
	for i := range fs {
		fs[i] = wit.Flag{Name: fmt.Sprintf("f%d", i)}
	}
	return def(&wit.Flags{Flags: fs})
}

func TestCalculate(t *testing.T) {
	point := record(wit.S32{}, wit.S32{})
	resource := def(&wit.Resource{})

	tests := []struct {
		name    string
		typ     wit.Type
		size    uint32
		align   uint32
		payload uint32
		offsets []uint32
	}{
		{"bool", wit.Bool{}, 1, 1, 0, nil},
		{"s16", wit.S16{}, 2, 2, 0, nil},
		{"char", wit.Char{}, 4, 4, 0, nil},
		{"f32", wit.F32{}, 4, 4, 0, nil},
		{"u64", wit.U64{}, 8, 8, 0, nil},
		{"string", wit.String{}, 8, 4, 0, nil},
		{"list<u8>", def(&wit.List{Type: wit.U8{}}), 8, 4, 0, nil},
		{"list<point>", def(&wit.List{Type: point}), 8, 4, 0, nil},

		{"point", point, 8, 4, 0, []uint32{0, 4}},
		{"record u8 u32 u16", record(wit.U8{}, wit.U32{}, wit.U16{}), 12, 4, 0, []uint32{0, 4, 8}},
		{"record char string bool", record(wit.Char{}, wit.String{}, wit.Bool{}), 16, 4, 0, []uint32{0, 4, 12}},
		{"empty record", record(), 0, 1, 0, nil},
		{"tuple u8 u64", def(&wit.Tuple{Types: []wit.Type{wit.U8{}, wit.U64{}}}), 16, 8, 0, []uint32{0, 8}},
		{"tuple u8 string f64", def(&wit.Tuple{Types: []wit.Type{wit.U8{}, wit.String{}, wit.F64{}}}), 24, 8, 0, []uint32{0, 4, 16}},

		{"option<u8>", def(&wit.Option{Type: wit.U8{}}), 2, 1, 1, nil},
		{"option<u32>", def(&wit.Option{Type: wit.U32{}}), 8, 4, 4, nil},
		{"option<string>", def(&wit.Option{Type: wit.String{}}), 12, 4, 4, nil},
		{"result", def(&wit.Result{}), 1, 1, 1, nil},
		{"result<string, u32>", def(&wit.Result{OK: wit.String{}, Err: wit.U32{}}), 12, 4, 4, nil},
		{"result<_, u64>", def(&wit.Result{Err: wit.U64{}}), 16, 8, 8, nil},

		{"variant unit cases", variant(nil, nil, nil), 1, 1, 1, nil},
		{"variant shape", variant(wit.F64{}, point, nil), 16, 8, 8, nil},
		{"variant without cases", variant(), 1, 1, 1, nil},
		{"variant 257 cases u8 payload", variant(append(make([]wit.Type, 256), wit.U8{})...), 4, 2, 2, nil},

		{"enum 3", enum(3), 1, 1, 0, nil},
		{"enum 256", enum(256), 1, 1, 0, nil},
		{"enum 257", enum(257), 2, 2, 0, nil},

		{"flags 0", flags(0), 0, 1, 0, nil},
		{"flags 3", flags(3), 1, 1, 0, nil},
		{"flags 9", flags(9), 2, 2, 0, nil},
		{"flags 17", flags(17), 4, 4, 0, nil},
		{"flags 32", flags(32), 4, 4, 0, nil},
		{"flags 33", flags(33), 8, 4, 0, nil},
		{"flags 65", flags(65), 12, 4, 0, nil},

		{"own", def(&wit.Own{Type: resource}), 4, 4, 0, nil},
		{"borrow", def(&wit.Borrow{Type: resource}), 4, 4, 0, nil},
		{"alias of u16", def(wit.U16{}), 2, 2, 0, nil},
		{"alias of point", def(point), 8, 4, 0, nil},
	}

	c := NewCalculator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := c.Calculate(tt.typ)
			if info.Size != tt.size || info.Align != tt.align {
				t.Errorf("size/align = %d/%d, want %d/%d", info.Size, info.Align, tt.size, tt.align)
			}
			if info.PayloadOffset != tt.payload {
				t.Errorf("payload offset = %d, want %d", info.PayloadOffset, tt.payload)
			}
			if tt.offsets != nil && !slices.Equal(info.Offsets, tt.offsets) {
				t.Errorf("offsets = %v, want %v", info.Offsets, tt.offsets)
			}
			if info.Size%info.Align != 0 {
				t.Errorf("size %d is not a multiple of align %d", info.Size, info.Align)
			}
		})
	}
}

func TestCalculateCaches(t *testing.T) {
	c := NewCalculator()
	typ := record(wit.U8{}, wit.U64{})

	var wg sync.WaitGroup
	results := make([]Info, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Calculate(typ)
		}(i)
	}
	wg.Wait()

	for i, info := range results {
		if info.Size != 16 || !slices.Equal(info.Offsets, []uint32{0, 8}) {
			t.Errorf("result %d = %+v", i, info)
		}
	}
	if _, ok := c.cache[typ]; !ok {
		t.Error("record layout was not cached")
	}
}
