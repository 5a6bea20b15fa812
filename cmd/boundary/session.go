package main

import (
	"github.com/wippyai/wasm-boundary/boundary"
	"github.com/wippyai/wasm-boundary/wasi/preview2"
	"github.com/wippyai/wasm-boundary/wasi/preview2/cli"
	"github.com/wippyai/wasm-boundary/wasi/preview2/clocks"
	wasiio "github.com/wippyai/wasm-boundary/wasi/preview2/io"
	"github.com/wippyai/wasm-boundary/wasi/preview2/random"
	"github.com/wippyai/wasm-boundary/wasi/preview2/sockets"
)

// session is one WASI context with every host interface on a surface.
type session struct {
	wasi    *preview2.WASI
	surface *boundary.Surface
}

type sessionOptions struct {
	env   map[string]string
	args  []string
	cwd   string
	stdin string
}

func newSession(opts sessionOptions) (*session, error) {
	w := preview2.New().WithEnv(opts.env).WithArgs(opts.args)
	if opts.cwd != "" {
		w.WithCwd(opts.cwd)
	}
	if opts.stdin != "" {
		w.WithStdin([]byte(opts.stdin))
	}

	resources := w.Resources()
	s := boundary.NewSurface(boundary.WithResources(resources.Table()))
	hosts := []interface {
		Register(*boundary.Surface) error
	}{
		wasiio.NewHost(resources),
		clocks.NewMonotonicClockHost(resources),
		clocks.NewWallClockHost(),
		cli.NewHost(w, wasiio.DefaultConfig()),
		sockets.NewHost(resources, sockets.DefaultConfig()),
		random.NewHost(),
	}
	for _, h := range hosts {
		if err := h.Register(s); err != nil {
			_ = w.Close()
			return nil, err
		}
	}
	return &session{wasi: w, surface: s}, nil
}

func (s *session) Close() error {
	return s.wasi.Close()
}
