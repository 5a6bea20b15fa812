package io

import (
	"context"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-boundary/boundary"
	"github.com/wippyai/wasm-boundary/transcoder"
	"github.com/wippyai/wasm-boundary/wasi/preview2"
)

type ErrorHost struct {
	resources *preview2.ResourceTable
}

func NewErrorHost(resources *preview2.ResourceTable) *ErrorHost {
	return &ErrorHost{resources: resources}
}

func (h *ErrorHost) Namespace() string {
	return ErrorInterface
}

func (h *ErrorHost) MethodErrorToDebugString(_ context.Context, self uint32) string {
	err, ok := preview2.Lookup[*preview2.ErrorResource](h.resources, self)
	if !ok {
		return "unknown error"
	}
	return err.ToDebugString()
}

func (h *ErrorHost) ResourceDropError(_ context.Context, self uint32) {
	_ = h.resources.Remove(self)
}

// Register adds the wasi:io/error operations to s.
func (h *ErrorHost) Register(s *boundary.Surface) error {
	ops := []boundary.Operation{
		{
			Name:   "[method]error.to-debug-string",
			Params: []wit.Type{boundary.Borrow(ErrorType)},
			Result: wit.String{},
			Handler: func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
				return transcoder.String(h.MethodErrorToDebugString(ctx, c.Handle(0))), nil
			},
		},
		{
			Name:   "[resource-drop]error",
			Params: []wit.Type{boundary.Own(ErrorType)},
			Handler: func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
				h.ResourceDropError(ctx, c.Handle(0))
				return nil, nil
			},
		},
	}
	for _, op := range ops {
		op.Interface = ErrorInterface
		if err := s.Register(op); err != nil {
			return err
		}
	}
	return nil
}
