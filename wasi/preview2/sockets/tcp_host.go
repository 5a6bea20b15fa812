package sockets

import (
	"context"
	"net/netip"
	"time"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-boundary/boundary"
	"github.com/wippyai/wasm-boundary/transcoder"
	"github.com/wippyai/wasm-boundary/wasi/preview2"
	"github.com/wippyai/wasm-boundary/wasi/preview2/io"
)

// TCPHost implements wasi:sockets/tcp and tcp-create-socket.
type TCPHost struct {
	resources *preview2.ResourceTable
	cfg       Config
}

// NewTCPHost creates a new TCP host
func NewTCPHost(resources *preview2.ResourceTable, cfg Config) *TCPHost {
	return &TCPHost{resources: resources, cfg: cfg.withDefaults()}
}

// Namespace returns the WASI namespace
func (h *TCPHost) Namespace() string {
	return TCPInterface
}

// getSocket retrieves and validates a TCP socket resource
func (h *TCPHost) getSocket(handle uint32) (*TCPSocket, *NetworkError) {
	socket, ok := preview2.Lookup[*TCPSocket](h.resources, handle)
	if !ok {
		return nil, newError(ErrorInvalidArgument)
	}
	return socket, nil
}

func checkNetwork(resources *preview2.ResourceTable, handle uint32) *NetworkError {
	if _, ok := preview2.Lookup[*preview2.NetworkResource](resources, handle); !ok {
		return newError(ErrorInvalidArgument)
	}
	return nil
}

// create-tcp-socket
func (h *TCPHost) CreateTCPSocket(_ context.Context, family AddressFamily) (uint32, *NetworkError) {
	if !family.valid() {
		return 0, newError(ErrorInvalidArgument)
	}
	return h.resources.Add(NewTCPSocket(family, h.cfg)), nil
}

// [method]tcp-socket.start-bind
func (h *TCPHost) MethodTCPSocketStartBind(_ context.Context, self, network uint32, local netip.AddrPort) *NetworkError {
	socket, err := h.getSocket(self)
	if err != nil {
		return err
	}
	if err := checkNetwork(h.resources, network); err != nil {
		return err
	}
	return mapNetError(socket.StartBind(local))
}

// [method]tcp-socket.finish-bind
func (h *TCPHost) MethodTCPSocketFinishBind(_ context.Context, self uint32) *NetworkError {
	socket, err := h.getSocket(self)
	if err != nil {
		return err
	}
	return mapNetError(socket.FinishBind())
}

// [method]tcp-socket.start-connect
func (h *TCPHost) MethodTCPSocketStartConnect(_ context.Context, self, network uint32, remote netip.AddrPort) *NetworkError {
	socket, err := h.getSocket(self)
	if err != nil {
		return err
	}
	if err := checkNetwork(h.resources, network); err != nil {
		return err
	}
	return mapNetError(socket.StartConnect(remote))
}

// [method]tcp-socket.finish-connect
func (h *TCPHost) MethodTCPSocketFinishConnect(_ context.Context, self uint32) (uint32, uint32, *NetworkError) {
	socket, err := h.getSocket(self)
	if err != nil {
		return 0, 0, err
	}
	in, out, cerr := socket.FinishConnect()
	if cerr != nil {
		return 0, 0, mapNetError(cerr)
	}
	return h.resources.Add(in), h.resources.Add(out), nil
}

// [method]tcp-socket.start-listen
func (h *TCPHost) MethodTCPSocketStartListen(_ context.Context, self uint32) *NetworkError {
	socket, err := h.getSocket(self)
	if err != nil {
		return err
	}
	return mapNetError(socket.StartListen())
}

// [method]tcp-socket.finish-listen
func (h *TCPHost) MethodTCPSocketFinishListen(_ context.Context, self uint32) *NetworkError {
	socket, err := h.getSocket(self)
	if err != nil {
		return err
	}
	return mapNetError(socket.FinishListen())
}

// [method]tcp-socket.accept
func (h *TCPHost) MethodTCPSocketAccept(_ context.Context, self uint32) (uint32, uint32, uint32, *NetworkError) {
	socket, err := h.getSocket(self)
	if err != nil {
		return 0, 0, 0, err
	}
	child, in, out, aerr := socket.Accept()
	if aerr != nil {
		return 0, 0, 0, mapNetError(aerr)
	}
	return h.resources.Add(child), h.resources.Add(in), h.resources.Add(out), nil
}

// [method]tcp-socket.shutdown
func (h *TCPHost) MethodTCPSocketShutdown(_ context.Context, self uint32, how ShutdownType) *NetworkError {
	socket, err := h.getSocket(self)
	if err != nil {
		return err
	}
	return mapNetError(socket.Shutdown(how))
}

// [method]tcp-socket.address-family
func (h *TCPHost) MethodTCPSocketAddressFamily(_ context.Context, self uint32) AddressFamily {
	socket, err := h.getSocket(self)
	if err != nil {
		return IPv4
	}
	return socket.Family()
}

// [method]tcp-socket.local-address
func (h *TCPHost) MethodTCPSocketLocalAddress(_ context.Context, self uint32) (netip.AddrPort, *NetworkError) {
	socket, err := h.getSocket(self)
	if err != nil {
		return netip.AddrPort{}, err
	}
	addr, aerr := socket.LocalAddress()
	return addr, mapNetError(aerr)
}

// [method]tcp-socket.remote-address
func (h *TCPHost) MethodTCPSocketRemoteAddress(_ context.Context, self uint32) (netip.AddrPort, *NetworkError) {
	socket, err := h.getSocket(self)
	if err != nil {
		return netip.AddrPort{}, err
	}
	addr, aerr := socket.RemoteAddress()
	return addr, mapNetError(aerr)
}

// [method]tcp-socket.is-listening
func (h *TCPHost) MethodTCPSocketIsListening(_ context.Context, self uint32) bool {
	socket, err := h.getSocket(self)
	if err != nil {
		return false
	}
	return socket.IsListening()
}

// [method]tcp-socket.subscribe
func (h *TCPHost) MethodTCPSocketSubscribe(_ context.Context, self uint32) uint32 {
	socket, err := h.getSocket(self)
	if err != nil {
		return h.resources.Add(preview2.ResolvedPollable())
	}
	return h.resources.Add(socket.Subscribe())
}

// [resource-drop]tcp-socket
func (h *TCPHost) ResourceDropTCPSocket(_ context.Context, self uint32) {
	_ = h.resources.Remove(self)
}

// Register adds wasi:sockets/tcp and tcp-create-socket to s.
func (h *TCPHost) Register(s *boundary.Surface) error {
	self := boundary.Borrow(TCPSocketType)
	unitResult := boundary.Result(nil, ErrorCodeType)
	streams := boundary.Tuple(boundary.Own(io.InputStreamType), boundary.Own(io.OutputStreamType))

	unit := func(fn func(context.Context, uint32) *NetworkError) boundary.Handler {
		return func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
			return result(nil, fn(ctx, c.Handle(0))), nil
		}
	}
	withAddress := func(fn func(context.Context, uint32, uint32, netip.AddrPort) *NetworkError) boundary.Handler {
		return func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
			addr, err := ParseAddressValue(c.Args[2])
			if err != nil {
				return result(nil, &NetworkError{Code: ErrorInvalidArgument, Cause: err}), nil
			}
			return result(nil, fn(ctx, c.Handle(0), c.Handle(1), addr)), nil
		}
	}
	address := func(fn func(context.Context, uint32) (netip.AddrPort, *NetworkError)) boundary.Handler {
		return func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
			addr, err := fn(ctx, c.Handle(0))
			if err != nil {
				return result(nil, err), nil
			}
			return result(AddressValue(addr), nil), nil
		}
	}
	getter := func(get func(*TCPSocket) transcoder.Value) boundary.Handler {
		return func(_ context.Context, c *boundary.Call) (transcoder.Value, error) {
			socket, err := h.getSocket(c.Handle(0))
			if err != nil {
				return result(nil, err), nil
			}
			return result(get(socket), nil), nil
		}
	}
	setter := func(set func(*TCPSocket, transcoder.Value) error) boundary.Handler {
		return func(_ context.Context, c *boundary.Call) (transcoder.Value, error) {
			socket, err := h.getSocket(c.Handle(0))
			if err != nil {
				return result(nil, err), nil
			}
			return result(nil, mapNetError(set(socket, c.Args[1]))), nil
		}
	}
	duration := func(v transcoder.Value) time.Duration {
		n, _ := v.(transcoder.U64)
		return time.Duration(n)
	}

	ops := []boundary.Operation{
		{Name: "[method]tcp-socket.start-bind", Params: []wit.Type{self, boundary.Borrow(NetworkType), IPSocketAddressType}, Result: unitResult, Handler: withAddress(h.MethodTCPSocketStartBind)},
		{Name: "[method]tcp-socket.finish-bind", Params: []wit.Type{self}, Result: unitResult, Handler: unit(h.MethodTCPSocketFinishBind)},
		{Name: "[method]tcp-socket.start-connect", Params: []wit.Type{self, boundary.Borrow(NetworkType), IPSocketAddressType}, Result: unitResult, Handler: withAddress(h.MethodTCPSocketStartConnect)},
		{Name: "[method]tcp-socket.finish-connect", Params: []wit.Type{self}, Result: boundary.Result(streams, ErrorCodeType), Handler: func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
			in, out, err := h.MethodTCPSocketFinishConnect(ctx, c.Handle(0))
			if err != nil {
				return result(nil, err), nil
			}
			return result(transcoder.Tuple{transcoder.Handle(in), transcoder.Handle(out)}, nil), nil
		}},
		{Name: "[method]tcp-socket.start-listen", Params: []wit.Type{self}, Result: unitResult, Handler: unit(h.MethodTCPSocketStartListen)},
		{Name: "[method]tcp-socket.finish-listen", Params: []wit.Type{self}, Result: unitResult, Handler: unit(h.MethodTCPSocketFinishListen)},
		{Name: "[method]tcp-socket.accept", Params: []wit.Type{self}, Result: boundary.Result(boundary.Tuple(boundary.Own(TCPSocketType), boundary.Own(io.InputStreamType), boundary.Own(io.OutputStreamType)), ErrorCodeType), Handler: func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
			sock, in, out, err := h.MethodTCPSocketAccept(ctx, c.Handle(0))
			if err != nil {
				return result(nil, err), nil
			}
			return result(transcoder.Tuple{transcoder.Handle(sock), transcoder.Handle(in), transcoder.Handle(out)}, nil), nil
		}},
		{Name: "[method]tcp-socket.local-address", Params: []wit.Type{self}, Result: boundary.Result(IPSocketAddressType, ErrorCodeType), Handler: address(h.MethodTCPSocketLocalAddress)},
		{Name: "[method]tcp-socket.remote-address", Params: []wit.Type{self}, Result: boundary.Result(IPSocketAddressType, ErrorCodeType), Handler: address(h.MethodTCPSocketRemoteAddress)},
		{Name: "[method]tcp-socket.is-listening", Params: []wit.Type{self}, Result: wit.Bool{}, Handler: func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
			return transcoder.Bool(h.MethodTCPSocketIsListening(ctx, c.Handle(0))), nil
		}},
		{Name: "[method]tcp-socket.address-family", Params: []wit.Type{self}, Result: AddressFamilyType, Handler: func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
			return transcoder.Enum(h.MethodTCPSocketAddressFamily(ctx, c.Handle(0)).String()), nil
		}},
		{Name: "[method]tcp-socket.set-listen-backlog-size", Params: []wit.Type{self, wit.U64{}}, Result: unitResult, Handler: setter(func(s *TCPSocket, v transcoder.Value) error {
			n, _ := v.(transcoder.U64)
			return s.SetListenBacklogSize(uint64(n))
		})},
		{Name: "[method]tcp-socket.keep-alive-enabled", Params: []wit.Type{self}, Result: boundary.Result(wit.Bool{}, ErrorCodeType), Handler: getter(func(s *TCPSocket) transcoder.Value {
			return transcoder.Bool(s.KeepAliveEnabled())
		})},
		{Name: "[method]tcp-socket.set-keep-alive-enabled", Params: []wit.Type{self, wit.Bool{}}, Result: unitResult, Handler: setter(func(s *TCPSocket, v transcoder.Value) error {
			on, _ := v.(transcoder.Bool)
			return s.SetKeepAliveEnabled(bool(on))
		})},
		{Name: "[method]tcp-socket.keep-alive-idle-time", Params: []wit.Type{self}, Result: boundary.Result(wit.U64{}, ErrorCodeType), Handler: getter(func(s *TCPSocket) transcoder.Value {
			return transcoder.U64(s.KeepAliveIdleTime())
		})},
		{Name: "[method]tcp-socket.set-keep-alive-idle-time", Params: []wit.Type{self, wit.U64{}}, Result: unitResult, Handler: setter(func(s *TCPSocket, v transcoder.Value) error {
			return s.SetKeepAliveIdleTime(duration(v))
		})},
		{Name: "[method]tcp-socket.keep-alive-interval", Params: []wit.Type{self}, Result: boundary.Result(wit.U64{}, ErrorCodeType), Handler: getter(func(s *TCPSocket) transcoder.Value {
			return transcoder.U64(s.KeepAliveInterval())
		})},
		{Name: "[method]tcp-socket.set-keep-alive-interval", Params: []wit.Type{self, wit.U64{}}, Result: unitResult, Handler: setter(func(s *TCPSocket, v transcoder.Value) error {
			return s.SetKeepAliveInterval(duration(v))
		})},
		{Name: "[method]tcp-socket.keep-alive-count", Params: []wit.Type{self}, Result: boundary.Result(wit.U32{}, ErrorCodeType), Handler: getter(func(s *TCPSocket) transcoder.Value {
			return transcoder.U32(s.KeepAliveCount())
		})},
		{Name: "[method]tcp-socket.set-keep-alive-count", Params: []wit.Type{self, wit.U32{}}, Result: unitResult, Handler: setter(func(s *TCPSocket, v transcoder.Value) error {
			n, _ := v.(transcoder.U32)
			return s.SetKeepAliveCount(uint32(n))
		})},
		{Name: "[method]tcp-socket.hop-limit", Params: []wit.Type{self}, Result: boundary.Result(wit.U8{}, ErrorCodeType), Handler: getter(func(s *TCPSocket) transcoder.Value {
			return transcoder.U8(s.HopLimit())
		})},
		{Name: "[method]tcp-socket.set-hop-limit", Params: []wit.Type{self, wit.U8{}}, Result: unitResult, Handler: setter(func(s *TCPSocket, v transcoder.Value) error {
			n, _ := v.(transcoder.U8)
			return s.SetHopLimit(uint8(n))
		})},
		{Name: "[method]tcp-socket.receive-buffer-size", Params: []wit.Type{self}, Result: boundary.Result(wit.U64{}, ErrorCodeType), Handler: getter(func(s *TCPSocket) transcoder.Value {
			return transcoder.U64(s.ReceiveBufferSize())
		})},
		{Name: "[method]tcp-socket.set-receive-buffer-size", Params: []wit.Type{self, wit.U64{}}, Result: unitResult, Handler: setter(func(s *TCPSocket, v transcoder.Value) error {
			n, _ := v.(transcoder.U64)
			return s.SetReceiveBufferSize(uint64(n))
		})},
		{Name: "[method]tcp-socket.send-buffer-size", Params: []wit.Type{self}, Result: boundary.Result(wit.U64{}, ErrorCodeType), Handler: getter(func(s *TCPSocket) transcoder.Value {
			return transcoder.U64(s.SendBufferSize())
		})},
		{Name: "[method]tcp-socket.set-send-buffer-size", Params: []wit.Type{self, wit.U64{}}, Result: unitResult, Handler: setter(func(s *TCPSocket, v transcoder.Value) error {
			n, _ := v.(transcoder.U64)
			return s.SetSendBufferSize(uint64(n))
		})},
		{Name: "[method]tcp-socket.subscribe", Params: []wit.Type{self}, Result: boundary.Own(io.PollableType), Handler: func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
			return transcoder.Handle(h.MethodTCPSocketSubscribe(ctx, c.Handle(0))), nil
		}},
		{Name: "[method]tcp-socket.shutdown", Params: []wit.Type{self, ShutdownTypeType}, Result: unitResult, Handler: func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
			how, ok := ParseShutdownType(c.Enum(1))
			if !ok {
				return result(nil, newError(ErrorInvalidArgument)), nil
			}
			return result(nil, h.MethodTCPSocketShutdown(ctx, c.Handle(0), how)), nil
		}},
		{Name: "[resource-drop]tcp-socket", Params: []wit.Type{boundary.Own(TCPSocketType)}, Handler: func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
			h.ResourceDropTCPSocket(ctx, c.Handle(0))
			return nil, nil
		}},
	}
	for _, op := range ops {
		op.Interface = TCPInterface
		if err := s.Register(op); err != nil {
			return err
		}
	}

	return s.Register(boundary.Operation{
		Interface: TCPCreateInterface,
		Name:      "create-tcp-socket",
		Params:    []wit.Type{AddressFamilyType},
		Result:    boundary.Result(boundary.Own(TCPSocketType), ErrorCodeType),
		Handler: func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
			family, ok := ParseAddressFamily(c.Enum(0))
			if !ok {
				return result(nil, newError(ErrorInvalidArgument)), nil
			}
			handle, err := h.CreateTCPSocket(ctx, family)
			if err != nil {
				return result(nil, err), nil
			}
			return result(transcoder.Handle(handle), nil), nil
		},
	})
}
