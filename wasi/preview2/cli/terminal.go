package cli

import (
	"context"

	"go.bytecodealliance.org/wit"
	"golang.org/x/term"

	"github.com/wippyai/wasm-boundary/boundary"
	"github.com/wippyai/wasm-boundary/transcoder"
	"github.com/wippyai/wasm-boundary/wasi/preview2"
)

// TerminalInput marks stdin as attached to a terminal.
type TerminalInput struct{}

func (*TerminalInput) Type() preview2.ResourceType { return preview2.ResourceTerminalInput }
func (*TerminalInput) Drop()                       {}

// TerminalOutput marks stdout or stderr as attached to a terminal.
type TerminalOutput struct{}

func (*TerminalOutput) Type() preview2.ResourceType { return preview2.ResourceTerminalOutput }
func (*TerminalOutput) Drop()                       {}

type fder interface {
	Fd() uintptr
}

// IsTerminal reports whether v is a file descriptor attached to a terminal.
// Buffers and pipes are not.
func IsTerminal(v any) bool {
	f, ok := v.(fder)
	return ok && term.IsTerminal(int(f.Fd()))
}

// TerminalHost serves the terminal-stdin, terminal-stdout and
// terminal-stderr interfaces. Detection happens once, at construction.
type TerminalHost struct {
	resources *preview2.ResourceTable
	stdin     bool
	stdout    bool
	stderr    bool
}

func NewTerminalHost(resources *preview2.ResourceTable, stdin, stdout, stderr any) *TerminalHost {
	return &TerminalHost{
		resources: resources,
		stdin:     IsTerminal(stdin),
		stdout:    IsTerminal(stdout),
		stderr:    IsTerminal(stderr),
	}
}

func (h *TerminalHost) Namespace() string {
	return TerminalStdinInterface
}

func (h *TerminalHost) GetTerminalStdin(_ context.Context) *uint32 {
	if !h.stdin {
		return nil
	}
	handle := h.resources.Add(&TerminalInput{})
	return &handle
}

func (h *TerminalHost) GetTerminalStdout(_ context.Context) *uint32 {
	return h.output(h.stdout)
}

func (h *TerminalHost) GetTerminalStderr(_ context.Context) *uint32 {
	return h.output(h.stderr)
}

func (h *TerminalHost) output(attached bool) *uint32 {
	if !attached {
		return nil
	}
	handle := h.resources.Add(&TerminalOutput{})
	return &handle
}

func optionalHandle(h *uint32) transcoder.Value {
	if h == nil {
		return transcoder.None()
	}
	return transcoder.Some(transcoder.Handle(*h))
}

func (h *TerminalHost) Register(s *boundary.Surface) error {
	drop := func(_ context.Context, c *boundary.Call) (transcoder.Value, error) {
		_ = h.resources.Remove(c.Handle(0))
		return nil, nil
	}
	get := func(fn func(context.Context) *uint32) boundary.Handler {
		return func(ctx context.Context, _ *boundary.Call) (transcoder.Value, error) {
			return optionalHandle(fn(ctx)), nil
		}
	}
	input := boundary.Option(boundary.Own(TerminalInputType))
	output := boundary.Option(boundary.Own(TerminalOutputType))

	ops := []boundary.Operation{
		{Interface: TerminalInputInterface, Name: "[resource-drop]terminal-input", Params: []wit.Type{boundary.Own(TerminalInputType)}, Handler: drop},
		{Interface: TerminalOutputInterface, Name: "[resource-drop]terminal-output", Params: []wit.Type{boundary.Own(TerminalOutputType)}, Handler: drop},
		{Interface: TerminalStdinInterface, Name: "get-terminal-stdin", Result: input, Handler: get(h.GetTerminalStdin)},
		{Interface: TerminalStdoutInterface, Name: "get-terminal-stdout", Result: output, Handler: get(h.GetTerminalStdout)},
		{Interface: TerminalStderrInterface, Name: "get-terminal-stderr", Result: output, Handler: get(h.GetTerminalStderr)},
	}
	for _, op := range ops {
		if err := s.Register(op); err != nil {
			return err
		}
	}
	return nil
}
