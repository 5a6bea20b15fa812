package io

import (
	"context"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-boundary/boundary"
	"github.com/wippyai/wasm-boundary/transcoder"
	"github.com/wippyai/wasm-boundary/wasi/preview2"
)

type PollHost struct {
	resources *preview2.ResourceTable
}

func NewPollHost(resources *preview2.ResourceTable) *PollHost {
	return &PollHost{resources: resources}
}

func (h *PollHost) Namespace() string {
	return PollInterface
}

// pollable resolves a handle. A handle that is gone, or does not name a
// pollable, stands for a destroyed resource and is reported as nil.
func (h *PollHost) pollable(handle uint32) preview2.Pollable {
	p, ok := preview2.Lookup[preview2.Pollable](h.resources, handle)
	if !ok {
		return nil
	}
	return p
}

// Poll blocks until at least one pollable is ready and returns the indices
// of all ready ones in input order.
func (h *PollHost) Poll(ctx context.Context, pollables []uint32) ([]uint32, error) {
	ps := make([]preview2.Pollable, len(pollables))
	for i, handle := range pollables {
		ps[i] = h.pollable(handle)
	}
	return preview2.Poll(ctx, ps)
}

func (h *PollHost) MethodPollableReady(_ context.Context, self uint32) bool {
	p := h.pollable(self)
	if p == nil {
		return true
	}
	return p.Ready()
}

func (h *PollHost) MethodPollableBlock(ctx context.Context, self uint32) error {
	p := h.pollable(self)
	if p == nil {
		return nil
	}
	return p.Block(ctx)
}

func (h *PollHost) ResourceDropPollable(_ context.Context, self uint32) {
	_ = h.resources.Remove(self)
}

// Register adds the wasi:io/poll operations to s.
func (h *PollHost) Register(s *boundary.Surface) error {
	self := boundary.Borrow(PollableType)
	ops := []boundary.Operation{
		{
			Name:   "poll",
			Params: []wit.Type{boundary.List(boundary.Borrow(PollableType))},
			Result: boundary.List(wit.U32{}),
			Handler: func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
				list := c.List(0)
				handles := make([]uint32, len(list))
				for i, v := range list {
					hv, _ := v.(transcoder.Handle)
					handles[i] = uint32(hv)
				}
				ready, err := h.Poll(ctx, handles)
				if err != nil {
					return nil, err
				}
				out := make(transcoder.List, len(ready))
				for i, idx := range ready {
					out[i] = transcoder.U32(idx)
				}
				return out, nil
			},
		},
		{
			Name:   "[method]pollable.ready",
			Params: []wit.Type{self},
			Result: wit.Bool{},
			Handler: func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
				return transcoder.Bool(h.MethodPollableReady(ctx, c.Handle(0))), nil
			},
		},
		{
			Name:   "[method]pollable.block",
			Params: []wit.Type{self},
			Handler: func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
				return nil, h.MethodPollableBlock(ctx, c.Handle(0))
			},
		},
		{
			Name:   "[resource-drop]pollable",
			Params: []wit.Type{boundary.Own(PollableType)},
			Handler: func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
				h.ResourceDropPollable(ctx, c.Handle(0))
				return nil, nil
			},
		},
	}
	for _, op := range ops {
		op.Interface = PollInterface
		if err := s.Register(op); err != nil {
			return err
		}
	}
	return nil
}
