package transcoder

import (
	"sync"

	"github.com/tetratelabs/wazero/api"
	werrors "github.com/wippyai/wasm-boundary/errors"
	"github.com/wippyai/wasm-boundary/transcoder/internal/abi"
	"github.com/wippyai/wasm-boundary/transcoder/internal/layout"
	"github.com/wippyai/wasm-boundary/transcoder/internal/types"
	"go.bytecodealliance.org/wit"
)

type shape = types.Shape

// Compiler turns WIT types into cached shapes. Safe for concurrent use.
type Compiler struct {
	layout *layout.Calculator
	cache  sync.Map // *wit.TypeDef -> *shape
}

// NewCompiler creates a compiler with an empty cache.
func NewCompiler() *Compiler {
	return &Compiler{layout: layout.NewCalculator()}
}

var primitiveShapes = map[types.Kind]*shape{}

func init() {
	prim := func(k types.Kind, size uint32, flat api.ValueType) {
		primitiveShapes[k] = &shape{Kind: k, Size: size, Align: size, Name: k.String(), Flat: []api.ValueType{flat}}
	}
	prim(types.KindBool, 1, api.ValueTypeI32)
	prim(types.KindU8, 1, api.ValueTypeI32)
	prim(types.KindS8, 1, api.ValueTypeI32)
	prim(types.KindU16, 2, api.ValueTypeI32)
	prim(types.KindS16, 2, api.ValueTypeI32)
	prim(types.KindU32, 4, api.ValueTypeI32)
	prim(types.KindS32, 4, api.ValueTypeI32)
	prim(types.KindChar, 4, api.ValueTypeI32)
	prim(types.KindU64, 8, api.ValueTypeI64)
	prim(types.KindS64, 8, api.ValueTypeI64)
	prim(types.KindF32, 4, api.ValueTypeF32)
	prim(types.KindF64, 8, api.ValueTypeF64)
	primitiveShapes[types.KindString] = &shape{
		Kind: types.KindString, Size: 8, Align: 4, Name: "string",
		Flat: []api.ValueType{api.ValueTypeI32, api.ValueTypeI32},
	}
}

// Compile returns the shape for t. Nil is rejected; unit payloads are
// expressed by the enclosing option/result/variant, never compiled.
func (c *Compiler) Compile(t wit.Type) (*shape, error) {
	switch typ := t.(type) {
	case nil:
		return nil, werrors.InvalidInput(werrors.PhaseValidate, "nil type")
	case wit.Bool:
		return primitiveShapes[types.KindBool], nil
	case wit.U8:
		return primitiveShapes[types.KindU8], nil
	case wit.S8:
		return primitiveShapes[types.KindS8], nil
	case wit.U16:
		return primitiveShapes[types.KindU16], nil
	case wit.S16:
		return primitiveShapes[types.KindS16], nil
	case wit.U32:
		return primitiveShapes[types.KindU32], nil
	case wit.S32:
		return primitiveShapes[types.KindS32], nil
	case wit.U64:
		return primitiveShapes[types.KindU64], nil
	case wit.S64:
		return primitiveShapes[types.KindS64], nil
	case wit.F32:
		return primitiveShapes[types.KindF32], nil
	case wit.F64:
		return primitiveShapes[types.KindF64], nil
	case wit.Char:
		return primitiveShapes[types.KindChar], nil
	case wit.String:
		return primitiveShapes[types.KindString], nil
	case *wit.TypeDef:
		if cached, ok := c.cache.Load(typ); ok {
			return cached.(*shape), nil
		}
		s, err := c.compileTypeDef(typ)
		if err != nil {
			return nil, err
		}
		actual, _ := c.cache.LoadOrStore(typ, s)
		return actual.(*shape), nil
	}
	return nil, werrors.Unsupported(werrors.PhaseValidate, "type "+TypeName(t))
}

// compileOptional compiles t, mapping nil to a nil shape.
func (c *Compiler) compileOptional(t wit.Type) (*shape, error) {
	if t == nil {
		return nil, nil
	}
	return c.Compile(t)
}

func (c *Compiler) compileTypeDef(td *wit.TypeDef) (*shape, error) {
	if td.Kind == nil {
		return nil, werrors.InvalidInput(werrors.PhaseValidate, "type definition without kind")
	}
	info := c.layout.Calculate(td)
	s := &shape{
		Size:          info.Size,
		Align:         info.Align,
		PayloadOffset: info.PayloadOffset,
		Name:          TypeName(td),
	}

	switch kind := td.Kind.(type) {
	case *wit.Record:
		s.Kind = types.KindRecord
		for i, f := range kind.Fields {
			fs, err := c.Compile(f.Type)
			if err != nil {
				return nil, werrors.Wrap(werrors.PhaseValidate, werrors.KindUnsupported, err, "field "+f.Name)
			}
			s.Members = append(s.Members, types.Member{Shape: fs, Name: f.Name, Offset: info.Offsets[i]})
			s.Flat = append(s.Flat, fs.Flat...)
		}
	case *wit.Tuple:
		s.Kind = types.KindTuple
		for i, e := range kind.Types {
			es, err := c.Compile(e)
			if err != nil {
				return nil, err
			}
			s.Members = append(s.Members, types.Member{Shape: es, Offset: info.Offsets[i]})
			s.Flat = append(s.Flat, es.Flat...)
		}
	case *wit.Variant:
		if len(kind.Cases) == 0 {
			return nil, werrors.InvalidInput(werrors.PhaseValidate, "variant without cases")
		}
		s.Kind = types.KindVariant
		s.DiscSize = abi.DiscriminantSize(len(kind.Cases))
		for _, cs := range kind.Cases {
			ps, err := c.compileOptional(cs.Type)
			if err != nil {
				return nil, err
			}
			s.Cases = append(s.Cases, types.Case{Shape: ps, Name: cs.Name})
		}
		s.Flat = flattenUnion(s.Cases)
	case *wit.Enum:
		if len(kind.Cases) == 0 {
			return nil, werrors.InvalidInput(werrors.PhaseValidate, "enum without cases")
		}
		s.Kind = types.KindEnum
		s.DiscSize = abi.DiscriminantSize(len(kind.Cases))
		for _, cs := range kind.Cases {
			s.Cases = append(s.Cases, types.Case{Name: cs.Name})
		}
		s.Flat = []api.ValueType{api.ValueTypeI32}
	case *wit.Option:
		s.Kind = types.KindOption
		s.DiscSize = 1
		es, err := c.Compile(kind.Type)
		if err != nil {
			return nil, err
		}
		s.Elem = es
		s.Flat = append([]api.ValueType{api.ValueTypeI32}, es.Flat...)
	case *wit.Result:
		s.Kind = types.KindResult
		s.DiscSize = 1
		var err error
		if s.Ok, err = c.compileOptional(kind.OK); err != nil {
			return nil, err
		}
		if s.Err, err = c.compileOptional(kind.Err); err != nil {
			return nil, err
		}
		s.Flat = flattenUnion([]types.Case{{Shape: s.Ok}, {Shape: s.Err}})
	case *wit.List:
		s.Kind = types.KindList
		es, err := c.Compile(kind.Type)
		if err != nil {
			return nil, err
		}
		s.Elem = es
		s.Flat = []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}
	case *wit.Flags:
		s.Kind = types.KindFlags
		s.FlagCount = len(kind.Flags)
		for i := 0; i < abi.FlagWords(s.FlagCount); i++ {
			s.Flat = append(s.Flat, api.ValueTypeI32)
		}
	case *wit.Own:
		s.Kind = types.KindOwn
		s.Flat = []api.ValueType{api.ValueTypeI32}
	case *wit.Borrow:
		s.Kind = types.KindBorrow
		s.Flat = []api.ValueType{api.ValueTypeI32}
	case wit.Type:
		return c.Compile(kind)
	default:
		return nil, werrors.Unsupported(werrors.PhaseValidate, "type "+s.Name)
	}
	return s, nil
}

// flattenUnion is the discriminant followed by the slot-wise join of every
// case's flat payload.
func flattenUnion(cases []types.Case) []api.ValueType {
	var payload []api.ValueType
	for _, c := range cases {
		if c.Shape == nil {
			continue
		}
		for i, ft := range c.Shape.Flat {
			if i < len(payload) {
				payload[i] = joinTypes(payload[i], ft)
			} else {
				payload = append(payload, ft)
			}
		}
	}
	return append([]api.ValueType{api.ValueTypeI32}, payload...)
}

// joinTypes unions two core types for variant payloads
func joinTypes(a, b api.ValueType) api.ValueType {
	if a == b {
		return a
	}
	if (a == api.ValueTypeI32 && b == api.ValueTypeF32) ||
		(a == api.ValueTypeF32 && b == api.ValueTypeI32) {
		return api.ValueTypeI32
	}
	return api.ValueTypeI64
}
