package engine

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-boundary/transcoder"
)

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	// 256 = 16MB, 1024 = 64MB, 4096 = 256MB
	MemoryLimitPages uint32

	// Codec lowers and lifts values crossing into and out of guests.
	// nil means transcoder.Default().
	Codec *transcoder.Codec
}

// Engine owns a wazero runtime and the codec used at its boundary.
type Engine struct {
	runtime wazero.Runtime
	codec   *transcoder.Codec
}

// New creates a wazero-backed engine.
func New(ctx context.Context, cfg *Config) (*Engine, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	codec := transcoder.Default()
	if cfg != nil {
		if cfg.MemoryLimitPages > 0 {
			runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
		}
		if cfg.Codec != nil {
			codec = cfg.Codec
		}
	}
	return &Engine{
		runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		codec:   codec,
	}, nil
}

// Runtime exposes the underlying wazero runtime.
func (e *Engine) Runtime() wazero.Runtime { return e.runtime }

// Codec returns the engine's value codec.
func (e *Engine) Codec() *transcoder.Codec { return e.codec }

func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// Instantiate compiles and instantiates a core module under name.
func (e *Engine) Instantiate(ctx context.Context, name string, wasmBytes []byte) (*Instance, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("compile failed: %w", err)
	}
	mod, err := e.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(name))
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, fmt.Errorf("instantiate %s: %w", name, err)
	}
	Logger().Debug("instantiated module", zap.String("module", name))
	return newInstance(e, mod, compiled), nil
}

// Instance is an instantiated guest module.
type Instance struct {
	engine   *Engine
	module   api.Module
	compiled wazero.CompiledModule
	memory   *WazeroMemory
	alloc    allocator
}

type allocator interface {
	transcoder.Allocator
	setContext(ctx context.Context)
}

func newInstance(e *Engine, mod api.Module, compiled wazero.CompiledModule) *Instance {
	inst := &Instance{engine: e, module: mod, compiled: compiled}
	if mem := mod.Memory(); isValidMemory(mem) {
		inst.memory = &WazeroMemory{mem: mem}
		if fn := mod.ExportedFunction(CabiRealloc); fn != nil {
			inst.alloc = &ReallocAllocator{fn: fn}
		} else {
			inst.alloc = NewBumpAllocator(mem)
		}
	}
	return inst
}

// Module returns the wazero module.
func (i *Instance) Module() api.Module { return i.module }

// Memory returns the guest's exported memory, or nil.
func (i *Instance) Memory() *WazeroMemory { return i.memory }

// Call invokes a guest export, lowering params and lifting results with the
// engine codec. Params past MaxFlatParams are passed through memory; results
// past MaxFlatResults come back through a returned pointer.
func (i *Instance) Call(ctx context.Context, name string, params, results []wit.Type, args ...transcoder.Value) ([]transcoder.Value, error) {
	fn := i.module.ExportedFunction(name)
	if fn == nil {
		return nil, fmt.Errorf("export %q not found", name)
	}
	var mem transcoder.Memory
	var alloc transcoder.Allocator
	if i.memory != nil {
		mem = i.memory
		i.alloc.setContext(ctx)
		alloc = i.alloc
	}

	codec := i.engine.codec
	flat, err := codec.LowerFlat(mem, alloc, params, args, transcoder.MaxFlatParams)
	if err != nil {
		return nil, err
	}
	raw, err := fn.Call(ctx, flat...)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", name, err)
	}
	return codec.LiftFlat(mem, results, raw, transcoder.MaxFlatResults)
}

func (i *Instance) Close(ctx context.Context) error {
	var firstErr error
	if i.module != nil {
		if err := i.module.Close(ctx); err != nil {
			firstErr = err
		}
		i.module = nil
	}
	if i.compiled != nil {
		if err := i.compiled.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		i.compiled = nil
	}
	i.memory = nil
	i.alloc = nil
	return firstErr
}
