package boundary

import "go.bytecodealliance.org/wit"

// Helpers for spelling WIT signatures in Go. Named constructors return a
// *wit.TypeDef so the codec and error messages can use the name.

// Resource declares a resource type.
func Resource(name string) *wit.TypeDef {
	return &wit.TypeDef{Name: &name, Kind: &wit.Resource{}}
}

// Own is an owned handle to r.
func Own(r *wit.TypeDef) *wit.TypeDef {
	return &wit.TypeDef{Kind: &wit.Own{Type: r}}
}

// Borrow is a borrowed handle to r, pinned for the duration of a call.
func Borrow(r *wit.TypeDef) *wit.TypeDef {
	return &wit.TypeDef{Kind: &wit.Borrow{Type: r}}
}

func List(t wit.Type) *wit.TypeDef {
	return &wit.TypeDef{Kind: &wit.List{Type: t}}
}

func Option(t wit.Type) *wit.TypeDef {
	return &wit.TypeDef{Kind: &wit.Option{Type: t}}
}

// Result builds result<ok, err>; either side may be nil.
func Result(ok, err wit.Type) *wit.TypeDef {
	return &wit.TypeDef{Kind: &wit.Result{OK: ok, Err: err}}
}

func Tuple(ts ...wit.Type) *wit.TypeDef {
	return &wit.TypeDef{Kind: &wit.Tuple{Types: ts}}
}

// Record builds a named record.
func Record(name string, fields ...wit.Field) *wit.TypeDef {
	return &wit.TypeDef{Name: &name, Kind: &wit.Record{Fields: fields}}
}

func Field(name string, t wit.Type) wit.Field {
	return wit.Field{Name: name, Type: t}
}

func Enum(name string, cases ...string) *wit.TypeDef {
	ec := make([]wit.EnumCase, len(cases))
	for i, c := range cases {
		ec[i] = wit.EnumCase{Name: c}
	}
	return &wit.TypeDef{Name: &name, Kind: &wit.Enum{Cases: ec}}
}

// Variant builds a named variant. A case with a nil type carries no payload.
func Variant(name string, cases ...wit.Case) *wit.TypeDef {
	return &wit.TypeDef{Name: &name, Kind: &wit.Variant{Cases: cases}}
}

func Case(name string, t wit.Type) wit.Case {
	return wit.Case{Name: name, Type: t}
}

func Flags(name string, flags ...string) *wit.TypeDef {
	fs := make([]wit.Flag, len(flags))
	for i, f := range flags {
		fs[i] = wit.Flag{Name: f}
	}
	return &wit.TypeDef{Name: &name, Kind: &wit.Flags{Flags: fs}}
}

// Bytes is list<u8>.
var Bytes = List(wit.U8{})

// IsBorrow reports whether t is borrow<_>.
func IsBorrow(t wit.Type) bool {
	td, ok := t.(*wit.TypeDef)
	if !ok {
		return false
	}
	_, ok = td.Kind.(*wit.Borrow)
	return ok
}
