package cli

import (
	"context"
	"fmt"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-boundary/boundary"
	"github.com/wippyai/wasm-boundary/transcoder"
)

// ExitError is returned by the exit operations. It unwinds the guest call
// instead of ending the host process.
type ExitError struct {
	Code uint32
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

type ExitHost struct{}

func NewExitHost() *ExitHost {
	return &ExitHost{}
}

func (h *ExitHost) Namespace() string {
	return ExitInterface
}

func (h *ExitHost) Exit(_ context.Context, status uint32) error {
	return &ExitError{Code: status}
}

func (h *ExitHost) Register(s *boundary.Surface) error {
	ops := []boundary.Operation{
		{Name: "exit", Params: []wit.Type{boundary.Result(nil, nil)}, Handler: func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
			status := uint32(0)
			if r, ok := c.Args[0].(transcoder.Result); ok && r.IsErr {
				status = 1
			}
			return nil, h.Exit(ctx, status)
		}},
		{Name: "exit-with-code", Params: []wit.Type{wit.U8{}}, Handler: func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
			return nil, h.Exit(ctx, uint32(c.U8(0)))
		}},
	}
	for _, op := range ops {
		op.Interface = ExitInterface
		if err := s.Register(op); err != nil {
			return err
		}
	}
	return nil
}
