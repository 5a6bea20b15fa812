package sockets

import (
	"context"
	"net/netip"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-boundary/boundary"
	"github.com/wippyai/wasm-boundary/transcoder"
	"github.com/wippyai/wasm-boundary/wasi/preview2"
	"github.com/wippyai/wasm-boundary/wasi/preview2/io"
)

// NameLookupHost implements wasi:sockets/ip-name-lookup.
type NameLookupHost struct {
	resources *preview2.ResourceTable
	cfg       Config
}

func NewNameLookupHost(resources *preview2.ResourceTable, cfg Config) *NameLookupHost {
	return &NameLookupHost{resources: resources, cfg: cfg.withDefaults()}
}

func (h *NameLookupHost) Namespace() string {
	return NameLookupInterface
}

// resolve-addresses
func (h *NameLookupHost) ResolveAddresses(_ context.Context, network uint32, name string) (uint32, *NetworkError) {
	if err := checkNetwork(h.resources, network); err != nil {
		return 0, err
	}
	stream, err := Resolve(name, h.cfg)
	if err != nil {
		return 0, mapNetError(err)
	}
	return h.resources.Add(stream), nil
}

// [method]resolve-address-stream.resolve-next-address
func (h *NameLookupHost) MethodResolveAddressStreamResolveNextAddress(_ context.Context, self uint32) (netip.Addr, bool, *NetworkError) {
	stream, ok := preview2.Lookup[*ResolveAddressStream](h.resources, self)
	if !ok {
		return netip.Addr{}, false, newError(ErrorInvalidArgument)
	}
	addr, more, err := stream.Next()
	if err != nil {
		return netip.Addr{}, false, mapNetError(err)
	}
	return addr, more, nil
}

// [method]resolve-address-stream.subscribe
func (h *NameLookupHost) MethodResolveAddressStreamSubscribe(_ context.Context, self uint32) uint32 {
	stream, ok := preview2.Lookup[*ResolveAddressStream](h.resources, self)
	if !ok {
		return h.resources.Add(preview2.ResolvedPollable())
	}
	return h.resources.Add(stream.Subscribe())
}

func (h *NameLookupHost) Register(s *boundary.Surface) error {
	self := boundary.Borrow(ResolveAddressStreamType)
	ops := []boundary.Operation{
		{Name: "resolve-addresses", Params: []wit.Type{boundary.Borrow(NetworkType), wit.String{}}, Result: boundary.Result(boundary.Own(ResolveAddressStreamType), ErrorCodeType), Handler: func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
			handle, err := h.ResolveAddresses(ctx, c.Handle(0), c.String(1))
			if err != nil {
				return result(nil, err), nil
			}
			return result(transcoder.Handle(handle), nil), nil
		}},
		{Name: "[method]resolve-address-stream.resolve-next-address", Params: []wit.Type{self}, Result: boundary.Result(boundary.Option(IPAddressType), ErrorCodeType), Handler: func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
			addr, ok, err := h.MethodResolveAddressStreamResolveNextAddress(ctx, c.Handle(0))
			if err != nil {
				return result(nil, err), nil
			}
			if !ok {
				return result(transcoder.None(), nil), nil
			}
			return result(transcoder.Some(IPAddressValue(addr)), nil), nil
		}},
		{Name: "[method]resolve-address-stream.subscribe", Params: []wit.Type{self}, Result: boundary.Own(io.PollableType), Handler: func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
			return transcoder.Handle(h.MethodResolveAddressStreamSubscribe(ctx, c.Handle(0))), nil
		}},
		{Name: "[resource-drop]resolve-address-stream", Params: []wit.Type{boundary.Own(ResolveAddressStreamType)}, Handler: func(_ context.Context, c *boundary.Call) (transcoder.Value, error) {
			_ = h.resources.Remove(c.Handle(0))
			return nil, nil
		}},
	}
	for _, op := range ops {
		op.Interface = NameLookupInterface
		if err := s.Register(op); err != nil {
			return err
		}
	}
	return nil
}
