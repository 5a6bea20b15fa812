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

// UDPHost implements wasi:sockets/udp and udp-create-socket.
type UDPHost struct {
	resources *preview2.ResourceTable
	cfg       Config
}

// NewUDPHost creates a new UDP host
func NewUDPHost(resources *preview2.ResourceTable, cfg Config) *UDPHost {
	return &UDPHost{resources: resources, cfg: cfg.withDefaults()}
}

// Namespace returns the WASI namespace
func (h *UDPHost) Namespace() string {
	return UDPInterface
}

func (h *UDPHost) getSocket(handle uint32) (*UDPSocket, *NetworkError) {
	socket, ok := preview2.Lookup[*UDPSocket](h.resources, handle)
	if !ok {
		return nil, newError(ErrorInvalidArgument)
	}
	return socket, nil
}

// create-udp-socket
func (h *UDPHost) CreateUDPSocket(_ context.Context, family AddressFamily) (uint32, *NetworkError) {
	if !family.valid() {
		return 0, newError(ErrorInvalidArgument)
	}
	return h.resources.Add(NewUDPSocket(family, h.cfg)), nil
}

// [method]udp-socket.start-bind
func (h *UDPHost) MethodUDPSocketStartBind(_ context.Context, self, network uint32, local netip.AddrPort) *NetworkError {
	socket, err := h.getSocket(self)
	if err != nil {
		return err
	}
	if err := checkNetwork(h.resources, network); err != nil {
		return err
	}
	return mapNetError(socket.StartBind(local))
}

// [method]udp-socket.finish-bind
func (h *UDPHost) MethodUDPSocketFinishBind(_ context.Context, self uint32) *NetworkError {
	socket, err := h.getSocket(self)
	if err != nil {
		return err
	}
	return mapNetError(socket.FinishBind())
}

// [method]udp-socket.stream
func (h *UDPHost) MethodUDPSocketStream(_ context.Context, self uint32, remote netip.AddrPort) (uint32, uint32, *NetworkError) {
	socket, err := h.getSocket(self)
	if err != nil {
		return 0, 0, err
	}
	in, out, serr := socket.Stream(remote)
	if serr != nil {
		return 0, 0, mapNetError(serr)
	}
	return h.resources.Add(in), h.resources.Add(out), nil
}

// [method]udp-socket.local-address
func (h *UDPHost) MethodUDPSocketLocalAddress(_ context.Context, self uint32) (netip.AddrPort, *NetworkError) {
	socket, err := h.getSocket(self)
	if err != nil {
		return netip.AddrPort{}, err
	}
	addr, aerr := socket.LocalAddress()
	return addr, mapNetError(aerr)
}

// [method]udp-socket.remote-address
func (h *UDPHost) MethodUDPSocketRemoteAddress(_ context.Context, self uint32) (netip.AddrPort, *NetworkError) {
	socket, err := h.getSocket(self)
	if err != nil {
		return netip.AddrPort{}, err
	}
	addr, aerr := socket.RemoteAddress()
	return addr, mapNetError(aerr)
}

// [method]udp-socket.subscribe
func (h *UDPHost) MethodUDPSocketSubscribe(_ context.Context, self uint32) uint32 {
	socket, err := h.getSocket(self)
	if err != nil {
		return h.resources.Add(preview2.ResolvedPollable())
	}
	return h.resources.Add(socket.Subscribe())
}

// [method]incoming-datagram-stream.receive
func (h *UDPHost) MethodIncomingDatagramStreamReceive(_ context.Context, self uint32, max uint64) ([]Datagram, *NetworkError) {
	stream, ok := preview2.Lookup[*IncomingDatagramStream](h.resources, self)
	if !ok {
		return nil, newError(ErrorInvalidArgument)
	}
	dgs, err := stream.Receive(max)
	if err != nil {
		return nil, mapNetError(err)
	}
	return dgs, nil
}

// [method]incoming-datagram-stream.subscribe
func (h *UDPHost) MethodIncomingDatagramStreamSubscribe(_ context.Context, self uint32) uint32 {
	stream, ok := preview2.Lookup[*IncomingDatagramStream](h.resources, self)
	if !ok {
		return h.resources.Add(preview2.ResolvedPollable())
	}
	return h.resources.Add(stream.Subscribe())
}

// [method]outgoing-datagram-stream.check-send
func (h *UDPHost) MethodOutgoingDatagramStreamCheckSend(_ context.Context, self uint32) (uint64, *NetworkError) {
	stream, ok := preview2.Lookup[*OutgoingDatagramStream](h.resources, self)
	if !ok {
		return 0, newError(ErrorInvalidArgument)
	}
	n, err := stream.CheckSend()
	if err != nil {
		return 0, mapNetError(err)
	}
	return n, nil
}

// [method]outgoing-datagram-stream.send
func (h *UDPHost) MethodOutgoingDatagramStreamSend(_ context.Context, self uint32, datagrams []Datagram) (uint64, *NetworkError) {
	stream, ok := preview2.Lookup[*OutgoingDatagramStream](h.resources, self)
	if !ok {
		return 0, newError(ErrorInvalidArgument)
	}
	n, err := stream.Send(datagrams)
	if err != nil {
		return 0, mapNetError(err)
	}
	return n, nil
}

// [method]outgoing-datagram-stream.subscribe
func (h *UDPHost) MethodOutgoingDatagramStreamSubscribe(_ context.Context, self uint32) uint32 {
	stream, ok := preview2.Lookup[*OutgoingDatagramStream](h.resources, self)
	if !ok {
		return h.resources.Add(preview2.ResolvedPollable())
	}
	return h.resources.Add(stream.Subscribe())
}

func datagramValue(dg Datagram) transcoder.Value {
	return transcoder.Record{
		{Name: "data", Value: transcoder.BytesOf(dg.Data)},
		{Name: "remote-address", Value: AddressValue(dg.Remote)},
	}
}

func parseDatagram(v transcoder.Value) (Datagram, error) {
	rec, _ := v.(transcoder.Record)
	data, _ := rec.Get("data")
	list, _ := data.(transcoder.List)
	b, _ := list.Bytes()
	dg := Datagram{Data: b}
	remote, _ := rec.Get("remote-address")
	if opt, ok := remote.(transcoder.Option); ok && opt.IsSome {
		addr, err := ParseAddressValue(opt.Value)
		if err != nil {
			return Datagram{}, err
		}
		dg.Remote = addr
	}
	return dg, nil
}

// Register adds wasi:sockets/udp and udp-create-socket to s.
func (h *UDPHost) Register(s *boundary.Surface) error {
	self := boundary.Borrow(UDPSocketType)
	incoming := boundary.Borrow(IncomingDatagramStreamType)
	outgoing := boundary.Borrow(OutgoingDatagramStreamType)
	unitResult := boundary.Result(nil, ErrorCodeType)
	addressResult := boundary.Result(IPSocketAddressType, ErrorCodeType)

	address := func(fn func(context.Context, uint32) (netip.AddrPort, *NetworkError)) boundary.Handler {
		return func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
			addr, err := fn(ctx, c.Handle(0))
			if err != nil {
				return result(nil, err), nil
			}
			return result(AddressValue(addr), nil), nil
		}
	}
	subscribe := func(fn func(context.Context, uint32) uint32) boundary.Handler {
		return func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
			return transcoder.Handle(fn(ctx, c.Handle(0))), nil
		}
	}
	drop := func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
		_ = h.resources.Remove(c.Handle(0))
		return nil, nil
	}
	getter := func(get func(*UDPSocket) transcoder.Value) boundary.Handler {
		return func(_ context.Context, c *boundary.Call) (transcoder.Value, error) {
			socket, err := h.getSocket(c.Handle(0))
			if err != nil {
				return result(nil, err), nil
			}
			return result(get(socket), nil), nil
		}
	}
	setter := func(set func(*UDPSocket, transcoder.Value) error) boundary.Handler {
		return func(_ context.Context, c *boundary.Call) (transcoder.Value, error) {
			socket, err := h.getSocket(c.Handle(0))
			if err != nil {
				return result(nil, err), nil
			}
			return result(nil, mapNetError(set(socket, c.Args[1]))), nil
		}
	}

	ops := []boundary.Operation{
		{Name: "[method]udp-socket.start-bind", Params: []wit.Type{self, boundary.Borrow(NetworkType), IPSocketAddressType}, Result: unitResult, Handler: func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
			addr, err := ParseAddressValue(c.Args[2])
			if err != nil {
				return result(nil, &NetworkError{Code: ErrorInvalidArgument, Cause: err}), nil
			}
			return result(nil, h.MethodUDPSocketStartBind(ctx, c.Handle(0), c.Handle(1), addr)), nil
		}},
		{Name: "[method]udp-socket.finish-bind", Params: []wit.Type{self}, Result: unitResult, Handler: func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
			return result(nil, h.MethodUDPSocketFinishBind(ctx, c.Handle(0))), nil
		}},
		{Name: "[method]udp-socket.stream", Params: []wit.Type{self, boundary.Option(IPSocketAddressType)}, Result: boundary.Result(boundary.Tuple(boundary.Own(IncomingDatagramStreamType), boundary.Own(OutgoingDatagramStreamType)), ErrorCodeType), Handler: func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
			var remote netip.AddrPort
			if v := c.Option(1); v != nil {
				addr, err := ParseAddressValue(v)
				if err != nil {
					return result(nil, &NetworkError{Code: ErrorInvalidArgument, Cause: err}), nil
				}
				remote = addr
			}
			in, out, err := h.MethodUDPSocketStream(ctx, c.Handle(0), remote)
			if err != nil {
				return result(nil, err), nil
			}
			return result(transcoder.Tuple{transcoder.Handle(in), transcoder.Handle(out)}, nil), nil
		}},
		{Name: "[method]udp-socket.local-address", Params: []wit.Type{self}, Result: addressResult, Handler: address(h.MethodUDPSocketLocalAddress)},
		{Name: "[method]udp-socket.remote-address", Params: []wit.Type{self}, Result: addressResult, Handler: address(h.MethodUDPSocketRemoteAddress)},
		{Name: "[method]udp-socket.address-family", Params: []wit.Type{self}, Result: AddressFamilyType, Handler: func(_ context.Context, c *boundary.Call) (transcoder.Value, error) {
			socket, err := h.getSocket(c.Handle(0))
			if err != nil {
				return transcoder.Enum(IPv4.String()), nil
			}
			return transcoder.Enum(socket.Family().String()), nil
		}},
		{Name: "[method]udp-socket.unicast-hop-limit", Params: []wit.Type{self}, Result: boundary.Result(wit.U8{}, ErrorCodeType), Handler: getter(func(s *UDPSocket) transcoder.Value {
			return transcoder.U8(s.UnicastHopLimit())
		})},
		{Name: "[method]udp-socket.set-unicast-hop-limit", Params: []wit.Type{self, wit.U8{}}, Result: unitResult, Handler: setter(func(s *UDPSocket, v transcoder.Value) error {
			n, _ := v.(transcoder.U8)
			return s.SetUnicastHopLimit(uint8(n))
		})},
		{Name: "[method]udp-socket.receive-buffer-size", Params: []wit.Type{self}, Result: boundary.Result(wit.U64{}, ErrorCodeType), Handler: getter(func(s *UDPSocket) transcoder.Value {
			return transcoder.U64(s.ReceiveBufferSize())
		})},
		{Name: "[method]udp-socket.set-receive-buffer-size", Params: []wit.Type{self, wit.U64{}}, Result: unitResult, Handler: setter(func(s *UDPSocket, v transcoder.Value) error {
			n, _ := v.(transcoder.U64)
			return s.SetReceiveBufferSize(uint64(n))
		})},
		{Name: "[method]udp-socket.send-buffer-size", Params: []wit.Type{self}, Result: boundary.Result(wit.U64{}, ErrorCodeType), Handler: getter(func(s *UDPSocket) transcoder.Value {
			return transcoder.U64(s.SendBufferSize())
		})},
		{Name: "[method]udp-socket.set-send-buffer-size", Params: []wit.Type{self, wit.U64{}}, Result: unitResult, Handler: setter(func(s *UDPSocket, v transcoder.Value) error {
			n, _ := v.(transcoder.U64)
			return s.SetSendBufferSize(uint64(n))
		})},
		{Name: "[method]udp-socket.subscribe", Params: []wit.Type{self}, Result: boundary.Own(io.PollableType), Handler: subscribe(h.MethodUDPSocketSubscribe)},
		{Name: "[method]incoming-datagram-stream.receive", Params: []wit.Type{incoming, wit.U64{}}, Result: boundary.Result(boundary.List(IncomingDatagramType), ErrorCodeType), Handler: func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
			dgs, err := h.MethodIncomingDatagramStreamReceive(ctx, c.Handle(0), c.U64(1))
			if err != nil {
				return result(nil, err), nil
			}
			out := make(transcoder.List, len(dgs))
			for i, dg := range dgs {
				out[i] = datagramValue(dg)
			}
			return result(out, nil), nil
		}},
		{Name: "[method]incoming-datagram-stream.subscribe", Params: []wit.Type{incoming}, Result: boundary.Own(io.PollableType), Handler: subscribe(h.MethodIncomingDatagramStreamSubscribe)},
		{Name: "[method]outgoing-datagram-stream.check-send", Params: []wit.Type{outgoing}, Result: boundary.Result(wit.U64{}, ErrorCodeType), Handler: func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
			n, err := h.MethodOutgoingDatagramStreamCheckSend(ctx, c.Handle(0))
			if err != nil {
				return result(nil, err), nil
			}
			return result(transcoder.U64(n), nil), nil
		}},
		{Name: "[method]outgoing-datagram-stream.send", Params: []wit.Type{outgoing, boundary.List(OutgoingDatagramType)}, Result: boundary.Result(wit.U64{}, ErrorCodeType), Handler: func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
			list := c.List(1)
			dgs := make([]Datagram, 0, len(list))
			for _, v := range list {
				dg, err := parseDatagram(v)
				if err != nil {
					return result(nil, &NetworkError{Code: ErrorInvalidArgument, Cause: err}), nil
				}
				dgs = append(dgs, dg)
			}
			n, err := h.MethodOutgoingDatagramStreamSend(ctx, c.Handle(0), dgs)
			if err != nil {
				return result(nil, err), nil
			}
			return result(transcoder.U64(n), nil), nil
		}},
		{Name: "[method]outgoing-datagram-stream.subscribe", Params: []wit.Type{outgoing}, Result: boundary.Own(io.PollableType), Handler: subscribe(h.MethodOutgoingDatagramStreamSubscribe)},
		{Name: "[resource-drop]udp-socket", Params: []wit.Type{boundary.Own(UDPSocketType)}, Handler: drop},
		{Name: "[resource-drop]incoming-datagram-stream", Params: []wit.Type{boundary.Own(IncomingDatagramStreamType)}, Handler: drop},
		{Name: "[resource-drop]outgoing-datagram-stream", Params: []wit.Type{boundary.Own(OutgoingDatagramStreamType)}, Handler: drop},
	}
	for _, op := range ops {
		op.Interface = UDPInterface
		if err := s.Register(op); err != nil {
			return err
		}
	}

	return s.Register(boundary.Operation{
		Interface: UDPCreateInterface,
		Name:      "create-udp-socket",
		Params:    []wit.Type{AddressFamilyType},
		Result:    boundary.Result(boundary.Own(UDPSocketType), ErrorCodeType),
		Handler: func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
			family, ok := ParseAddressFamily(c.Enum(0))
			if !ok {
				return result(nil, newError(ErrorInvalidArgument)), nil
			}
			handle, err := h.CreateUDPSocket(ctx, family)
			if err != nil {
				return result(nil, err), nil
			}
			return result(transcoder.Handle(handle), nil), nil
		},
	})
}
