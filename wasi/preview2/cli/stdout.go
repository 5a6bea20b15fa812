package cli

import (
	"context"
	goio "io"

	"github.com/wippyai/wasm-boundary/boundary"
	"github.com/wippyai/wasm-boundary/wasi/preview2"
	"github.com/wippyai/wasm-boundary/wasi/preview2/io"
)

type StdoutHost struct {
	out outputHost
}

func NewStdoutHost(resources *preview2.ResourceTable, stdout goio.Writer, cfg io.Config) *StdoutHost {
	return &StdoutHost{out: outputHost{resources: resources, dst: stdout, cfg: cfg}}
}

func (h *StdoutHost) Namespace() string {
	return StdoutInterface
}

func (h *StdoutHost) GetStdout(_ context.Context) uint32 {
	return h.out.get()
}

func (h *StdoutHost) Register(s *boundary.Surface) error {
	return h.out.register(s, StdoutInterface, "get-stdout")
}
