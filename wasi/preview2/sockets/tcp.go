package sockets

import (
	"context"
	goio "io"
	"net"
	"net/netip"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-boundary/wasi/preview2"
	"github.com/wippyai/wasm-boundary/wasi/preview2/io"
)

// TCPSocket is a wasi:sockets tcp-socket. Bind and connect run on
// goroutines; the finish calls report would-block until the subscribe
// pollable is ready.
//
// Bind reserves the address with a listening socket because the net
// package cannot bind without listening or dialing. start-listen reuses
// it; start-connect releases it and dials from the same address.
type TCPSocket struct {
	machine
	cfg      Config
	bound    net.Listener
	conn     net.Conn
	input    *io.InputStream
	output   *io.OutputStream
	acceptEr error
	accepted []net.Conn
	local    netip.AddrPort
	remote   netip.AddrPort
	opts     options
	family   AddressFamily
}

// NewTCPSocket creates an unbound socket.
func NewTCPSocket(family AddressFamily, cfg Config) *TCPSocket {
	return &TCPSocket{machine: machine{kind: "tcp"}, cfg: cfg.withDefaults(), family: family, opts: defaultOptions()}
}

func (s *TCPSocket) Type() preview2.ResourceType { return preview2.ResourceTCPSocket }

// Drop closes the socket and both of its streams.
func (s *TCPSocket) Drop() { _ = s.Close() }

func (s *TCPSocket) Family() AddressFamily { return s.family }

// StartBind begins binding to local. Port 0 picks an ephemeral port,
// visible through LocalAddress once FinishBind succeeds.
func (s *TCPSocket) StartBind(local netip.AddrPort) error {
	if err := checkFamily(s.family, local); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.startCheck(StateUnbound); err != nil {
		return err
	}
	network := s.family.network("tcp")
	s.begin(StateBinding, 0, func(ctx context.Context) (any, error) {
		return s.cfg.Listen(ctx, network, local.String())
	})
	return nil
}

// FinishBind completes StartBind.
func (s *TCPSocket) FinishBind() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, err := s.finish(StateBinding)
	if err != nil {
		return err
	}
	if op.err != nil {
		s.setState(StateUnbound)
		return mapNetError(op.err)
	}
	s.bound = op.conn.(net.Listener)
	s.local = addrPortOf(s.bound.Addr())
	s.setState(StateBound)
	return nil
}

// StartConnect begins connecting to remote.
func (s *TCPSocket) StartConnect(remote netip.AddrPort) error {
	if err := checkFamily(s.family, remote); err != nil {
		return err
	}
	if remote.Addr().IsUnspecified() || remote.Port() == 0 {
		return newError(ErrorInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.startCheck(StateUnbound, StateBound); err != nil {
		return err
	}

	var local netip.AddrPort
	if s.bound != nil {
		local = s.local
		if err := s.bound.Close(); err != nil {
			Logger().Debug("release bound address", zap.Error(err))
		}
		s.bound = nil
	}
	s.remote = remote
	network := s.family.network("tcp")
	s.begin(StateConnecting, s.cfg.DialTimeout, func(ctx context.Context) (any, error) {
		return s.cfg.Dial(ctx, network, local, remote)
	})
	return nil
}

// FinishConnect completes StartConnect and hands out the socket's only
// input and output streams. A failed connect leaves the socket errored.
func (s *TCPSocket) FinishConnect() (*io.InputStream, *io.OutputStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, err := s.finish(StateConnecting)
	if err != nil {
		return nil, nil, err
	}
	if op.err != nil {
		s.setState(StateErrored)
		ne := mapNetError(op.err)
		Logger().Debug("tcp connect failed", zap.Stringer("remote", s.remote), zap.Error(ne))
		return nil, nil, ne
	}
	s.attach(op.conn.(net.Conn))
	return s.input, s.output, nil
}

// attach adopts a connected conn under s.mu.
func (s *TCPSocket) attach(conn net.Conn) {
	s.conn = conn
	s.local = addrPortOf(conn.LocalAddr())
	s.remote = addrPortOf(conn.RemoteAddr())
	s.opts.apply(conn, s.family)
	s.input = io.NewInputStream(readHalf{conn}, s.cfg.Stream)
	s.output = io.NewOutputStream(writeHalf{conn}, s.cfg.Stream)
	s.setState(StateConnected)
}

// StartListen begins accepting on the bound address.
func (s *TCPSocket) StartListen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.startCheck(StateBound); err != nil {
		return err
	}
	s.setState(StateListenStarted)
	go s.acceptLoop(s.bound)
	return nil
}

// FinishListen completes StartListen.
func (s *TCPSocket) FinishListen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateListenStarted {
		return newError(ErrorNotInProgress)
	}
	s.setState(StateListening)
	return nil
}

func (s *TCPSocket) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		s.mu.Lock()
		if s.state == StateClosed {
			s.mu.Unlock()
			if conn != nil {
				_ = conn.Close()
			}
			return
		}
		if err != nil {
			s.acceptEr = err
			s.mu.Unlock()
			s.signal.Notify()
			return
		}
		if uint64(len(s.accepted)) >= s.opts.backlog {
			s.mu.Unlock()
			Logger().Debug("accept backlog full, dropping connection", zap.Stringer("remote", conn.RemoteAddr()))
			_ = conn.Close()
			continue
		}
		s.accepted = append(s.accepted, conn)
		s.mu.Unlock()
		s.signal.Notify()
	}
}

// Accept takes one pending connection. It reports would-block when none
// is queued.
func (s *TCPSocket) Accept() (*TCPSocket, *io.InputStream, *io.OutputStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateListening {
		return nil, nil, nil, newError(ErrorInvalidState)
	}
	if len(s.accepted) == 0 {
		if s.acceptEr != nil {
			return nil, nil, nil, mapNetError(s.acceptEr)
		}
		return nil, nil, nil, newError(ErrorWouldBlock)
	}
	conn := s.accepted[0]
	s.accepted[0] = nil
	s.accepted = s.accepted[1:]

	child := &TCPSocket{machine: machine{kind: "tcp"}, cfg: s.cfg, family: s.family, opts: s.opts}
	child.attach(conn)
	return child, child.input, child.output, nil
}

type halfCloser interface {
	CloseRead() error
	CloseWrite() error
}

// Shutdown half-closes the connection.
func (s *TCPSocket) Shutdown(how ShutdownType) error {
	s.mu.Lock()
	conn, state := s.conn, s.state
	s.mu.Unlock()
	if state != StateConnected {
		return newError(ErrorInvalidState)
	}
	hc, ok := conn.(halfCloser)
	if !ok {
		return newError(ErrorNotSupported)
	}
	var err error
	switch how {
	case ShutdownReceive:
		err = hc.CloseRead()
	case ShutdownSend:
		err = hc.CloseWrite()
	case ShutdownBoth:
		err = multierr.Append(hc.CloseRead(), hc.CloseWrite())
	default:
		return newError(ErrorInvalidArgument)
	}
	if err != nil {
		return mapNetError(err)
	}
	return nil
}

// LocalAddress is the bound address, with the ephemeral port resolved.
func (s *TCPSocket) LocalAddress() (netip.AddrPort, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.local.IsValid() {
		return netip.AddrPort{}, newError(ErrorInvalidState)
	}
	return s.local, nil
}

// RemoteAddress is the peer of a connected socket.
func (s *TCPSocket) RemoteAddress() (netip.AddrPort, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnected {
		return netip.AddrPort{}, newError(ErrorInvalidState)
	}
	return s.remote, nil
}

func (s *TCPSocket) IsListening() bool {
	return s.State() == StateListening
}

func (s *TCPSocket) ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateBinding, StateConnecting:
		return !s.inFlight()
	case StateListening:
		return len(s.accepted) > 0 || s.acceptEr != nil
	}
	return true
}

// Subscribe returns a pollable that is ready when a pending finish call
// would not block, or when accept has a connection.
func (s *TCPSocket) Subscribe() preview2.Pollable {
	return preview2.NewFuncPollable(s.ready, &s.signal)
}

// setOption updates the stored options and pushes them to a live conn.
func (s *TCPSocket) setOption(valid bool, set func(o *options)) error {
	if !valid {
		return newError(ErrorInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	set(&s.opts)
	if s.conn != nil {
		s.opts.apply(s.conn, s.family)
	}
	return nil
}

func (s *TCPSocket) option() options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts
}

func (s *TCPSocket) KeepAliveEnabled() bool { return s.option().keepAlive }

func (s *TCPSocket) SetKeepAliveEnabled(on bool) error {
	return s.setOption(true, func(o *options) { o.keepAlive = on })
}

func (s *TCPSocket) KeepAliveIdleTime() time.Duration { return s.option().keepAliveIdle }

func (s *TCPSocket) SetKeepAliveIdleTime(d time.Duration) error {
	return s.setOption(d > 0, func(o *options) { o.keepAliveIdle = d })
}

func (s *TCPSocket) KeepAliveInterval() time.Duration { return s.option().keepAliveInterval }

func (s *TCPSocket) SetKeepAliveInterval(d time.Duration) error {
	return s.setOption(d > 0, func(o *options) { o.keepAliveInterval = d })
}

func (s *TCPSocket) KeepAliveCount() uint32 { return s.option().keepAliveCount }

func (s *TCPSocket) SetKeepAliveCount(n uint32) error {
	return s.setOption(n > 0, func(o *options) { o.keepAliveCount = n })
}

func (s *TCPSocket) HopLimit() uint8 { return s.option().hopLimit }

func (s *TCPSocket) SetHopLimit(n uint8) error {
	return s.setOption(n > 0, func(o *options) { o.hopLimit = n })
}

func (s *TCPSocket) ReceiveBufferSize() uint64 { return s.option().recvBuffer }

func (s *TCPSocket) SetReceiveBufferSize(n uint64) error {
	return s.setOption(n > 0, func(o *options) { o.recvBuffer = n })
}

func (s *TCPSocket) SendBufferSize() uint64 { return s.option().sendBuffer }

func (s *TCPSocket) SetSendBufferSize(n uint64) error {
	return s.setOption(n > 0, func(o *options) { o.sendBuffer = n })
}

// SetListenBacklogSize caps connections queued for Accept.
func (s *TCPSocket) SetListenBacklogSize(n uint64) error {
	if s.State() == StateConnected {
		return newError(ErrorInvalidState)
	}
	return s.setOption(n > 0, func(o *options) { o.backlog = n })
}

// Close releases the socket, its streams and any queued connections.
// It is idempotent.
func (s *TCPSocket) Close() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	cancel := s.abandon()
	in, out := s.input, s.output
	var closers []goio.Closer
	if s.bound != nil {
		closers = append(closers, s.bound)
	}
	if s.conn != nil {
		closers = append(closers, s.conn)
	}
	for _, c := range s.accepted {
		closers = append(closers, c)
	}
	s.bound, s.conn, s.accepted = nil, nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var err error
	if in != nil {
		err = multierr.Append(err, in.Close())
	}
	if out != nil {
		err = multierr.Append(err, out.Close())
	}
	for _, c := range closers {
		err = multierr.Append(err, c.Close())
	}
	s.signal.Notify()
	return err
}

// readHalf feeds an input stream. Closing it shuts down only the read
// side, so dropping the stream leaves the socket usable.
type readHalf struct{ conn net.Conn }

func (r readHalf) Read(p []byte) (int, error) { return r.conn.Read(p) }

func (r readHalf) Close() error {
	if hc, ok := r.conn.(halfCloser); ok {
		return hc.CloseRead()
	}
	return nil
}

// writeHalf sends FIN when its output stream closes.
type writeHalf struct{ conn net.Conn }

func (w writeHalf) Write(p []byte) (int, error) { return w.conn.Write(p) }

func (w writeHalf) Close() error {
	if hc, ok := w.conn.(halfCloser); ok {
		return hc.CloseWrite()
	}
	return nil
}
