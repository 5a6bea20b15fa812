package cli

import (
	"github.com/wippyai/wasm-boundary/boundary"
	"github.com/wippyai/wasm-boundary/wasi/preview2"
	"github.com/wippyai/wasm-boundary/wasi/preview2/io"
)

// Host bundles the wasi:cli interfaces for one WASI context.
type Host struct {
	Environment *EnvironmentHost
	Exit        *ExitHost
	Stdin       *StdinHost
	Stdout      *StdoutHost
	Stderr      *StderrHost
	Terminal    *TerminalHost
}

// NewHost wires the cli interfaces to w's environment and stdio.
func NewHost(w *preview2.WASI, cfg io.Config) *Host {
	resources := w.Resources()
	return &Host{
		Environment: NewEnvironmentHost(w.Env(), w.Args(), w.Cwd()),
		Exit:        NewExitHost(),
		Stdin:       NewStdinHost(resources, w.StdinReader(), cfg),
		Stdout:      NewStdoutHost(resources, w.StdoutWriter(), cfg),
		Stderr:      NewStderrHost(resources, w.StderrWriter(), cfg),
		Terminal:    NewTerminalHost(resources, w.StdinReader(), w.StdoutWriter(), w.StderrWriter()),
	}
}

// Register adds every cli interface to s.
func (h *Host) Register(s *boundary.Surface) error {
	for _, r := range []interface {
		Register(*boundary.Surface) error
	}{h.Environment, h.Exit, h.Stdin, h.Stdout, h.Stderr, h.Terminal} {
		if err := r.Register(s); err != nil {
			return err
		}
	}
	return nil
}
