package io

import (
	"github.com/wippyai/wasm-boundary/boundary"
	"github.com/wippyai/wasm-boundary/wasi/preview2"
)

// Host aggregates all IO hosts for convenience.
type Host struct {
	Error   *ErrorHost
	Poll    *PollHost
	Streams *StreamsHost
}

// NewHost creates all IO hosts
func NewHost(resources *preview2.ResourceTable) *Host {
	return &Host{
		Error:   NewErrorHost(resources),
		Poll:    NewPollHost(resources),
		Streams: NewStreamsHost(resources),
	}
}

// Register adds every wasi:io operation to s.
func (h *Host) Register(s *boundary.Surface) error {
	if err := h.Error.Register(s); err != nil {
		return err
	}
	if err := h.Poll.Register(s); err != nil {
		return err
	}
	return h.Streams.Register(s)
}
