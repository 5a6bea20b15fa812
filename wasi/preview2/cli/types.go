package cli

import (
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-boundary/boundary"
)

const (
	EnvironmentInterface    = "wasi:cli/environment@0.2.8"
	ExitInterface           = "wasi:cli/exit@0.2.8"
	StdinInterface          = "wasi:cli/stdin@0.2.8"
	StdoutInterface         = "wasi:cli/stdout@0.2.8"
	StderrInterface         = "wasi:cli/stderr@0.2.8"
	TerminalInputInterface  = "wasi:cli/terminal-input@0.2.8"
	TerminalOutputInterface = "wasi:cli/terminal-output@0.2.8"
	TerminalStdinInterface  = "wasi:cli/terminal-stdin@0.2.8"
	TerminalStdoutInterface = "wasi:cli/terminal-stdout@0.2.8"
	TerminalStderrInterface = "wasi:cli/terminal-stderr@0.2.8"
)

var (
	TerminalInputType  = boundary.Resource("terminal-input")
	TerminalOutputType = boundary.Resource("terminal-output")

	environmentType = boundary.List(boundary.Tuple(wit.String{}, wit.String{}))
)
