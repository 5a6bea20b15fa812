package boundary

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"
	"go.uber.org/multierr"

	"github.com/wippyai/wasm-boundary/engine"
	"github.com/wippyai/wasm-boundary/transcoder"
)

// Export instantiates the surface as wazero host modules, one per
// operation interface. Operations without an interface go into module.
// Guests call them with flat core signatures; a call whose arguments fail
// to lift traps before the handler runs.
func (s *Surface) Export(ctx context.Context, eng *engine.Engine, module string) ([]api.Module, error) {
	groups := map[string][]engine.HostFunc{}
	var names []string
	for _, op := range s.Operations() {
		name := op.Interface
		if name == "" {
			name = module
		}
		if _, ok := groups[name]; !ok {
			names = append(names, name)
		}
		groups[name] = append(groups[name], s.hostFunc(op))
	}

	var mods []api.Module
	for _, name := range names {
		mod, err := eng.ExportHostModule(ctx, name, groups[name])
		if err != nil {
			for _, m := range mods {
				err = multierr.Append(err, m.Close(ctx))
			}
			return nil, err
		}
		mods = append(mods, mod)
	}
	return mods, nil
}

func (s *Surface) hostFunc(op *Operation) engine.HostFunc {
	var results []wit.Type
	if op.Result != nil {
		results = []wit.Type{op.Result}
	}
	return engine.HostFunc{
		Name:    op.Name,
		Params:  op.Params,
		Results: results,
		Handler: func(ctx context.Context, args []transcoder.Value) ([]transcoder.Value, error) {
			v, err := s.Dispatch(ctx, op, args)
			if err != nil {
				return nil, err
			}
			if op.Result == nil {
				return nil, nil
			}
			return []transcoder.Value{v}, nil
		},
	}
}
