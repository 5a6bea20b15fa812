package cli

import (
	"context"
	goio "io"

	"github.com/wippyai/wasm-boundary/boundary"
	"github.com/wippyai/wasm-boundary/wasi/preview2"
	"github.com/wippyai/wasm-boundary/wasi/preview2/io"
)

type StderrHost struct {
	out outputHost
}

func NewStderrHost(resources *preview2.ResourceTable, stderr goio.Writer, cfg io.Config) *StderrHost {
	return &StderrHost{out: outputHost{resources: resources, dst: stderr, cfg: cfg}}
}

func (h *StderrHost) Namespace() string {
	return StderrInterface
}

func (h *StderrHost) GetStderr(_ context.Context) uint32 {
	return h.out.get()
}

func (h *StderrHost) Register(s *boundary.Surface) error {
	return h.out.register(s, StderrInterface, "get-stderr")
}
