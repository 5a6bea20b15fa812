package cli

import (
	"context"
	goio "io"
	"sync"

	"github.com/wippyai/wasm-boundary/boundary"
	"github.com/wippyai/wasm-boundary/transcoder"
	"github.com/wippyai/wasm-boundary/wasi/preview2"
	"github.com/wippyai/wasm-boundary/wasi/preview2/io"
)

// StdinHost serves wasi:cli/stdin. All handles share one input stream
// over the reader, since two pumps would split its bytes between them.
// Once that stream is dropped stdin stays closed.
type StdinHost struct {
	resources *preview2.ResourceTable
	src       goio.Reader
	cfg       io.Config
	once      sync.Once
	stream    *io.InputStream
}

func NewStdinHost(resources *preview2.ResourceTable, src goio.Reader, cfg io.Config) *StdinHost {
	return &StdinHost{resources: resources, src: src, cfg: cfg}
}

func (h *StdinHost) Namespace() string {
	return StdinInterface
}

func (h *StdinHost) GetStdin(_ context.Context) uint32 {
	h.once.Do(func() {
		h.stream = io.NewInputStream(nopCloser{h.src}, h.cfg)
	})
	return h.resources.Add(h.stream)
}

func (h *StdinHost) Register(s *boundary.Surface) error {
	return s.Register(boundary.Operation{
		Interface: StdinInterface,
		Name:      "get-stdin",
		Result:    boundary.Own(io.InputStreamType),
		Handler: func(ctx context.Context, _ *boundary.Call) (transcoder.Value, error) {
			return transcoder.Handle(h.GetStdin(ctx)), nil
		},
	})
}

// nopCloser keeps a stream's Close away from the host's own stdio.
type nopCloser struct {
	goio.Reader
}

type nopWriteCloser struct {
	goio.Writer
}

// outputHost hands out a fresh output stream per call. Every stream writes
// to the same destination, which is never closed.
type outputHost struct {
	resources *preview2.ResourceTable
	dst       goio.Writer
	cfg       io.Config
}

func (h *outputHost) get() uint32 {
	return h.resources.Add(io.NewOutputStream(nopWriteCloser{h.dst}, h.cfg))
}

func (h *outputHost) register(s *boundary.Surface, iface, name string) error {
	return s.Register(boundary.Operation{
		Interface: iface,
		Name:      name,
		Result:    boundary.Own(io.OutputStreamType),
		Handler: func(context.Context, *boundary.Call) (transcoder.Value, error) {
			return transcoder.Handle(h.get()), nil
		},
	})
}
