package engine

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"

	werrors "github.com/wippyai/wasm-boundary/errors"
	"github.com/wippyai/wasm-boundary/transcoder"
)

// HostHandler implements a host function on lifted values.
type HostHandler func(ctx context.Context, args []transcoder.Value) ([]transcoder.Value, error)

// HostFunc is a host operation exported to guests under the canonical ABI.
type HostFunc struct {
	Handler HostHandler
	Name    string
	Params  []wit.Type
	Results []wit.Type
}

// Signature returns the core signature of f as a guest import sees it. When
// the results do not fit in MaxFlatResults the guest passes a return pointer
// as the last parameter and the function returns nothing.
func (e *Engine) Signature(f HostFunc) (params, results []api.ValueType, retptr bool, err error) {
	params, err = e.codec.FlatSignature(f.Params, transcoder.MaxFlatParams)
	if err != nil {
		return nil, nil, false, err
	}
	results, err = e.codec.FlattenTypes(f.Results)
	if err != nil {
		return nil, nil, false, err
	}
	if len(results) > transcoder.MaxFlatResults {
		return append(params, api.ValueTypeI32), nil, true, nil
	}
	return params, results, false, nil
}

// ExportHostModule instantiates funcs as a host module guests can import.
func (e *Engine) ExportHostModule(ctx context.Context, module string, funcs []HostFunc) (api.Module, error) {
	builder := e.runtime.NewHostModuleBuilder(module)
	for _, f := range funcs {
		params, results, retptr, err := e.Signature(f)
		if err != nil {
			return nil, werrors.Registration(werrors.PhaseHost, f.Name, err)
		}
		builder.NewFunctionBuilder().
			WithGoModuleFunction(e.hostFunc(f, len(params), retptr), params, results).
			WithName(f.Name).
			Export(f.Name)
	}
	mod, err := builder.Instantiate(ctx)
	if err != nil {
		return nil, werrors.Registration(werrors.PhaseHost, module, err)
	}
	Logger().Debug("exported host module",
		zap.String("module", module),
		zap.Int("functions", len(funcs)))
	return mod, nil
}

// hostFunc adapts f to the wazero stack calling convention. A failure to lift
// the arguments traps the caller before the handler runs.
func (e *Engine) hostFunc(f HostFunc, nParams int, retptr bool) api.GoModuleFunc {
	codec := e.codec
	flatParams := nParams
	if retptr {
		flatParams--
	}
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		var mem transcoder.Memory
		var alloc transcoder.Allocator
		if m := mod.Memory(); isValidMemory(m) {
			mem = &WazeroMemory{mem: m}
			if fn := mod.ExportedFunction(CabiRealloc); fn != nil {
				alloc = &ReallocAllocator{ctx: ctx, fn: fn}
			}
		}

		args, err := codec.LiftFlat(mem, f.Params, stack[:flatParams], transcoder.MaxFlatParams)
		if err != nil {
			Logger().Warn("host call rejected", zap.String("func", f.Name), zap.Error(err))
			panic(err)
		}
		results, err := f.Handler(ctx, args)
		if err != nil {
			panic(err)
		}

		if retptr {
			if err := codec.StoreTuple(mem, alloc, f.Results, results, uint32(stack[flatParams])); err != nil {
				Logger().Error("host result store failed", zap.String("func", f.Name), zap.Error(err))
				panic(err)
			}
			return
		}
		flat, err := codec.LowerFlat(mem, alloc, f.Results, results, transcoder.MaxFlatResults)
		if err != nil {
			Logger().Error("host result lower failed", zap.String("func", f.Name), zap.Error(err))
			panic(err)
		}
		copy(stack, flat)
	}
}
