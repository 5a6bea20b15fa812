package types

import (
	"testing"
)

func TestShapeIsPrimitive(t *testing.T) {
	if !(&Shape{Kind: KindU32}).IsPrimitive() {
		t.Error("u32 should be primitive")
	}
	if (&Shape{Kind: KindString}).IsPrimitive() {
		t.Error("string should not be primitive")
	}
}

func TestShapeIsPure(t *testing.T) {
	u32 := &Shape{Kind: KindU32}
	str := &Shape{Kind: KindString}

	tests := []struct {
		name  string
		shape *Shape
		want  bool
	}{
		{"primitive", u32, true},
		{"string", str, false},
		{"list", &Shape{Kind: KindList, Elem: u32}, false},
		{"pure_record", &Shape{Kind: KindRecord, Members: []Member{{Shape: u32}, {Shape: &Shape{Kind: KindBool}}}}, true},
		{"impure_record", &Shape{Kind: KindRecord, Members: []Member{{Shape: u32}, {Shape: str}}}, false},
		{"pure_tuple", &Shape{Kind: KindTuple, Members: []Member{{Shape: u32}}}, true},
		{"option_pure", &Shape{Kind: KindOption, Elem: u32}, true},
		{"option_string", &Shape{Kind: KindOption, Elem: str}, false},
		{"result_unit", &Shape{Kind: KindResult}, true},
		{"result_err_string", &Shape{Kind: KindResult, Ok: u32, Err: str}, false},
		{"variant_pure", &Shape{Kind: KindVariant, Cases: []Case{{Name: "a"}, {Name: "b", Shape: u32}}}, true},
		{"variant_string", &Shape{Kind: KindVariant, Cases: []Case{{Name: "a", Shape: str}}}, false},
		{"enum", &Shape{Kind: KindEnum}, true},
		{"flags", &Shape{Kind: KindFlags}, true},
		{"own", &Shape{Kind: KindOwn}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.shape.IsPure(); got != tt.want {
				t.Errorf("IsPure() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShapeCaseIndex(t *testing.T) {
	s := &Shape{Kind: KindVariant, Cases: []Case{{Name: "circle"}, {Name: "rect"}}}
	if got := s.CaseIndex("rect"); got != 1 {
		t.Errorf("CaseIndex(rect) = %d, want 1", got)
	}
	if got := s.CaseIndex("triangle"); got != -1 {
		t.Errorf("CaseIndex(triangle) = %d, want -1", got)
	}
}
