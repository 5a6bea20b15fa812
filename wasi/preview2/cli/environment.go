package cli

import (
	"context"
	"sort"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-boundary/boundary"
	"github.com/wippyai/wasm-boundary/transcoder"
)

type EnvironmentHost struct {
	env  map[string]string
	cwd  string
	args []string
}

func NewEnvironmentHost(env map[string]string, args []string, cwd string) *EnvironmentHost {
	if env == nil {
		env = make(map[string]string)
	}
	if cwd == "" {
		cwd = "/"
	}
	return &EnvironmentHost{
		env:  env,
		args: args,
		cwd:  cwd,
	}
}

func (h *EnvironmentHost) Namespace() string {
	return EnvironmentInterface
}

// GetEnvironment returns the variables sorted by name.
func (h *EnvironmentHost) GetEnvironment(_ context.Context) [][2]string {
	result := make([][2]string, 0, len(h.env))
	for k, v := range h.env {
		result = append(result, [2]string{k, v})
	}
	sort.Slice(result, func(i, j int) bool { return result[i][0] < result[j][0] })
	return result
}

func (h *EnvironmentHost) GetArguments(_ context.Context) []string {
	return h.args
}

func (h *EnvironmentHost) InitialCwd(_ context.Context) *string {
	return &h.cwd
}

func (h *EnvironmentHost) Register(s *boundary.Surface) error {
	ops := []boundary.Operation{
		{Name: "get-environment", Result: environmentType, Handler: func(ctx context.Context, _ *boundary.Call) (transcoder.Value, error) {
			pairs := h.GetEnvironment(ctx)
			out := make(transcoder.List, len(pairs))
			for i, p := range pairs {
				out[i] = transcoder.Tuple{transcoder.String(p[0]), transcoder.String(p[1])}
			}
			return out, nil
		}},
		{Name: "get-arguments", Result: boundary.List(wit.String{}), Handler: func(ctx context.Context, _ *boundary.Call) (transcoder.Value, error) {
			args := h.GetArguments(ctx)
			out := make(transcoder.List, len(args))
			for i, a := range args {
				out[i] = transcoder.String(a)
			}
			return out, nil
		}},
		{Name: "initial-cwd", Result: boundary.Option(wit.String{}), Handler: func(ctx context.Context, _ *boundary.Call) (transcoder.Value, error) {
			if cwd := h.InitialCwd(ctx); cwd != nil {
				return transcoder.Some(transcoder.String(*cwd)), nil
			}
			return transcoder.None(), nil
		}},
	}
	for _, op := range ops {
		op.Interface = EnvironmentInterface
		if err := s.Register(op); err != nil {
			return err
		}
	}
	return nil
}
