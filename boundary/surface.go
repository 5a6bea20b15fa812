package boundary

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-boundary/engine"
	werrors "github.com/wippyai/wasm-boundary/errors"
	"github.com/wippyai/wasm-boundary/resource"
	"github.com/wippyai/wasm-boundary/transcoder"
)

// Handler implements an operation on lifted arguments. A nil Value is
// returned for operations without a result.
type Handler func(ctx context.Context, c *Call) (transcoder.Value, error)

// Operation is a named entry point callable across the boundary.
type Operation struct {
	Handler Handler
	Result  wit.Type
	// Interface groups operations into one import module when exported to
	// a guest, e.g. "wasi:io/streams@0.2.8". Empty uses the export default.
	Interface string
	Name      string
	Doc       string
	Params    []wit.Type
}

// QualifiedName is "interface#name", or just the name when the operation
// has no interface. It is the registry key.
func (op *Operation) QualifiedName() string {
	if op.Interface == "" {
		return op.Name
	}
	return op.Interface + "#" + op.Name
}

// Call is the invocation context handed to a Handler.
type Call struct {
	Surface *Surface
	Op      *Operation
	Args    []transcoder.Value
}

// Surface is a registry of operations. Every call lowers its arguments to
// the canonical wire form and lifts them back before the handler runs, so
// handlers only ever see values that survived decoding.
type Surface struct {
	codec     *transcoder.Codec
	resources *resource.Table
	observer  Observer
	ops       map[string]*Operation
	byName    map[string][]string
	order     []string
	mu        sync.RWMutex
}

// SurfaceOption configures a Surface.
type SurfaceOption func(*Surface)

// WithCodec sets the codec used for argument and result transfer.
func WithCodec(c *transcoder.Codec) SurfaceOption {
	return func(s *Surface) { s.codec = c }
}

// WithResources sets the table that borrow<T> arguments are pinned in.
func WithResources(t *resource.Table) SurfaceOption {
	return func(s *Surface) { s.resources = t }
}

// WithObserver attaches an observer notified around every handler run.
func WithObserver(o Observer) SurfaceOption {
	return func(s *Surface) { s.observer = o }
}

// NewSurface creates an empty surface.
func NewSurface(opts ...SurfaceOption) *Surface {
	s := &Surface{
		codec:  transcoder.Default(),
		ops:    make(map[string]*Operation),
		byName: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.resources == nil {
		s.resources = resource.NewTable()
	}
	return s
}

// Codec returns the surface codec.
func (s *Surface) Codec() *transcoder.Codec { return s.codec }

// Resources returns the handle table used for borrows.
func (s *Surface) Resources() *resource.Table { return s.resources }

// Register adds op. Qualified names are unique, and every parameter and
// result type must compile.
func (s *Surface) Register(op Operation) error {
	if op.Name == "" {
		return werrors.InvalidInput(werrors.PhaseHost, "operation name is empty")
	}
	if op.Handler == nil {
		return werrors.Registration(werrors.PhaseHost, op.Name, werrors.InvalidInput(werrors.PhaseHost, "nil handler"))
	}
	for _, p := range op.Params {
		if _, err := s.codec.Compiler().Compile(p); err != nil {
			return werrors.Registration(werrors.PhaseHost, op.Name, err)
		}
	}
	if op.Result != nil {
		if _, err := s.codec.Compiler().Compile(op.Result); err != nil {
			return werrors.Registration(werrors.PhaseHost, op.Name, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := op.QualifiedName()
	if _, dup := s.ops[key]; dup {
		return werrors.Registration(werrors.PhaseHost, key, werrors.InvalidInput(werrors.PhaseHost, "duplicate operation"))
	}
	s.ops[key] = &op
	s.byName[op.Name] = append(s.byName[op.Name], key)
	s.order = append(s.order, key)
	Logger().Debug("registered operation", zap.String("name", op.Name), zap.Int("params", len(op.Params)))
	return nil
}

// MustRegister is Register for tests and demos; it panics on error.
func (s *Surface) MustRegister(ops ...Operation) {
	for _, op := range ops {
		if err := s.Register(op); err != nil {
			panic(err)
		}
	}
}

// Lookup finds an operation by qualified name, by bare name when only one
// interface defines it, or by kebab spelling.
func (s *Surface) Lookup(name string) (*Operation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if op, ok := s.lookup(name); ok {
		return op, true
	}
	return s.lookup(engine.WitName(name))
}

// lookup matches a qualified name, or a bare name registered by exactly
// one interface.
func (s *Surface) lookup(name string) (*Operation, bool) {
	if op, ok := s.ops[name]; ok {
		return op, true
	}
	if keys := s.byName[name]; len(keys) == 1 {
		return s.ops[keys[0]], true
	}
	return nil, false
}

// Operations returns the registered operations in registration order.
func (s *Surface) Operations() []*Operation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Operation, len(s.order))
	for i, name := range s.order {
		out[i] = s.ops[name]
	}
	return out
}

// Interfaces returns the distinct non-empty interface names, sorted.
func (s *Surface) Interfaces() []string {
	seen := map[string]bool{}
	var out []string
	for _, op := range s.Operations() {
		if op.Interface != "" && !seen[op.Interface] {
			seen[op.Interface] = true
			out = append(out, op.Interface)
		}
	}
	sort.Strings(out)
	return out
}

// Call invokes the named operation. Arguments are lowered into a scratch
// linear memory and lifted back; if either step fails the handler does not
// run. The result crosses the same way on the way out.
func (s *Surface) Call(ctx context.Context, name string, args ...transcoder.Value) (transcoder.Value, error) {
	op, ok := s.Lookup(name)
	if !ok {
		return nil, werrors.NotFound(werrors.PhaseHost, "operation", name)
	}
	if len(args) != len(op.Params) {
		return nil, werrors.Arity(werrors.PhaseHost, op.Name, len(op.Params), len(args))
	}

	mem := transcoder.NewLinearMemory(0)
	flat, err := s.codec.LowerFlat(mem, mem, op.Params, args, transcoder.MaxFlatParams)
	if err != nil {
		return nil, err
	}
	lifted, err := s.codec.LiftFlat(mem, op.Params, flat, transcoder.MaxFlatParams)
	if err != nil {
		Logger().Warn("call rejected", zap.String("op", op.Name), zap.Error(err))
		return nil, err
	}

	result, err := s.Dispatch(ctx, op, lifted)
	if err != nil || op.Result == nil {
		return nil, err
	}

	results := []wit.Type{op.Result}
	flat, err = s.codec.LowerFlat(mem, mem, results, []transcoder.Value{result}, transcoder.MaxFlatResults)
	if err != nil {
		return nil, err
	}
	out, err := s.codec.LiftFlat(mem, results, flat, transcoder.MaxFlatResults)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// Dispatch runs op's handler on arguments that have already been lifted.
// Top-level borrow<T> arguments are pinned in the resource table for the
// duration of the call; a dangling borrow fails the call before the handler
// runs.
func (s *Surface) Dispatch(ctx context.Context, op *Operation, args []transcoder.Value) (transcoder.Value, error) {
	for i, p := range op.Params {
		if !IsBorrow(p) {
			continue
		}
		h, ok := args[i].(transcoder.Handle)
		if !ok {
			continue
		}
		if _, ok := s.resources.Borrow(resource.Handle(h)); !ok {
			return nil, werrors.NotFound(werrors.PhaseHost, "resource", strconv.FormatUint(uint64(h), 10))
		}
		defer s.resources.ReturnBorrow(resource.Handle(h))
	}

	if s.observer != nil {
		s.observer.OnCall(op.Name, args)
	}
	result, err := op.Handler(ctx, &Call{Surface: s, Op: op, Args: args})
	if s.observer != nil {
		s.observer.OnResult(op.Name, result, err)
	}
	if err != nil {
		Logger().Debug("operation failed", zap.String("op", op.Name), zap.Error(err))
		return nil, err
	}
	return result, nil
}
