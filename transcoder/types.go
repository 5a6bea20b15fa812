package transcoder

import (
	"strings"

	werrors "github.com/wippyai/wasm-boundary/errors"
	"go.bytecodealliance.org/wit"
)

// TypeName renders a WIT type the way it reads in a WIT document.
func TypeName(t wit.Type) string {
	switch typ := t.(type) {
	case nil:
		return "_"
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.U16:
		return "u16"
	case wit.U32:
		return "u32"
	case wit.U64:
		return "u64"
	case wit.S8:
		return "s8"
	case wit.S16:
		return "s16"
	case wit.S32:
		return "s32"
	case wit.S64:
		return "s64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	case wit.Char:
		return "char"
	case wit.String:
		return "string"
	case *wit.TypeDef:
		if typ.Name != nil && *typ.Name != "" {
			return *typ.Name
		}
		return kindName(typ.Kind)
	}
	return "unknown"
}

func kindName(k wit.TypeDefKind) string {
	switch kind := k.(type) {
	case *wit.Record:
		return "record"
	case *wit.Variant:
		return "variant"
	case *wit.Enum:
		return "enum"
	case *wit.Flags:
		return "flags"
	case *wit.List:
		return "list<" + TypeName(kind.Type) + ">"
	case *wit.Option:
		return "option<" + TypeName(kind.Type) + ">"
	case *wit.Result:
		if kind.OK == nil && kind.Err == nil {
			return "result"
		}
		return "result<" + TypeName(kind.OK) + ", " + TypeName(kind.Err) + ">"
	case *wit.Tuple:
		parts := make([]string, len(kind.Types))
		for i, e := range kind.Types {
			parts[i] = TypeName(e)
		}
		return "tuple<" + strings.Join(parts, ", ") + ">"
	case *wit.Own:
		return "own"
	case *wit.Borrow:
		return "borrow"
	case wit.Type:
		return TypeName(kind)
	}
	return "unknown"
}

// FlagsByName builds a flags value for a flags type from flag names.
func FlagsByName(t wit.Type, names ...string) (Flags, error) {
	decl, ok := flagsDecl(t)
	if !ok {
		return Flags{}, werrors.TypeMismatch(werrors.PhaseValidate, nil, "transcoder.Flags", TypeName(t))
	}
	f := FlagsOf()
	for _, name := range names {
		idx := -1
		for i, fl := range decl.Flags {
			if fl.Name == name {
				idx = i
				break
			}
		}
		if idx < 0 {
			return Flags{}, werrors.NotFound(werrors.PhaseValidate, "flag", name)
		}
		f = f.With(uint(idx), true)
	}
	return f, nil
}

// FlagNames returns the names of the set flags of f under type t.
func FlagNames(t wit.Type, f Flags) []string {
	decl, ok := flagsDecl(t)
	if !ok {
		return nil
	}
	var names []string
	for _, p := range f.Positions() {
		if int(p) < len(decl.Flags) {
			names = append(names, decl.Flags[p].Name)
		}
	}
	return names
}

func flagsDecl(t wit.Type) (*wit.Flags, bool) {
	td, ok := t.(*wit.TypeDef)
	if !ok {
		return nil, false
	}
	switch kind := td.Kind.(type) {
	case *wit.Flags:
		return kind, true
	case wit.Type:
		return flagsDecl(kind)
	}
	return nil, false
}
