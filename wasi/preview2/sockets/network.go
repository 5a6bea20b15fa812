package sockets

import (
	"context"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-boundary/boundary"
	"github.com/wippyai/wasm-boundary/transcoder"
	"github.com/wippyai/wasm-boundary/wasi/preview2"
)

// NetworkHost implements wasi:sockets/network and instance-network.
// Every socket operation takes a network handle as a capability check.
type NetworkHost struct {
	resources *preview2.ResourceTable
}

func NewNetworkHost(resources *preview2.ResourceTable) *NetworkHost {
	return &NetworkHost{resources: resources}
}

func (h *NetworkHost) Namespace() string {
	return NetworkInterface
}

// instance-network
func (h *NetworkHost) InstanceNetwork(_ context.Context) uint32 {
	return h.resources.Add(preview2.NewNetworkResource())
}

// [resource-drop]network
func (h *NetworkHost) ResourceDropNetwork(_ context.Context, self uint32) {
	_ = h.resources.Remove(self)
}

func (h *NetworkHost) Register(s *boundary.Surface) error {
	if err := s.Register(boundary.Operation{
		Interface: InstanceNetworkInterface,
		Name:      "instance-network",
		Result:    boundary.Own(NetworkType),
		Handler: func(ctx context.Context, _ *boundary.Call) (transcoder.Value, error) {
			return transcoder.Handle(h.InstanceNetwork(ctx)), nil
		},
	}); err != nil {
		return err
	}
	return s.Register(boundary.Operation{
		Interface: NetworkInterface,
		Name:      "[resource-drop]network",
		Params:    []wit.Type{boundary.Own(NetworkType)},
		Handler: func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
			h.ResourceDropNetwork(ctx, c.Handle(0))
			return nil, nil
		},
	})
}
