package sockets

import (
	"context"
	"net"
	"net/netip"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-boundary/wasi/preview2"
)

// UDPSocket is a wasi:sockets udp-socket. Traffic flows through the
// datagram stream pair created by Stream.
type UDPSocket struct {
	machine
	cfg      Config
	conn     net.PacketConn
	incoming *IncomingDatagramStream
	outgoing *OutgoingDatagramStream
	local    netip.AddrPort
	remote   netip.AddrPort
	opts     options
	family   AddressFamily
}

// NewUDPSocket creates an unbound socket.
func NewUDPSocket(family AddressFamily, cfg Config) *UDPSocket {
	return &UDPSocket{machine: machine{kind: "udp"}, cfg: cfg.withDefaults(), family: family, opts: defaultOptions()}
}

func (s *UDPSocket) Type() preview2.ResourceType { return preview2.ResourceUDPSocket }

// Drop closes the socket and its datagram streams.
func (s *UDPSocket) Drop() { _ = s.Close() }

func (s *UDPSocket) Family() AddressFamily { return s.family }

// StartBind begins binding to local. Port 0 picks an ephemeral port.
func (s *UDPSocket) StartBind(local netip.AddrPort) error {
	if err := checkFamily(s.family, local); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.startCheck(StateUnbound); err != nil {
		return err
	}
	network := s.family.network("udp")
	s.begin(StateBinding, 0, func(ctx context.Context) (any, error) {
		return s.cfg.ListenPacket(ctx, network, local.String())
	})
	return nil
}

// FinishBind completes StartBind.
func (s *UDPSocket) FinishBind() error {
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
	s.conn = op.conn.(net.PacketConn)
	s.local = addrPortOf(s.conn.LocalAddr())
	s.opts.apply(s.conn, s.family)
	s.setState(StateBound)
	return nil
}

// Stream replaces the socket's datagram streams. With a valid remote the
// socket is fixed to that peer: only its datagrams are received and sends
// may omit the address. A zero remote clears the peer.
func (s *UDPSocket) Stream(remote netip.AddrPort) (*IncomingDatagramStream, *OutgoingDatagramStream, error) {
	if remote.IsValid() {
		if err := checkFamily(s.family, remote); err != nil {
			return nil, nil, err
		}
		if remote.Addr().IsUnspecified() || remote.Port() == 0 {
			return nil, nil, newError(ErrorInvalidArgument)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateBound && s.state != StateConnected {
		return nil, nil, newError(ErrorInvalidState)
	}
	if err := s.closeStreams(); err != nil {
		Logger().Debug("close previous datagram streams", zap.Error(err))
	}

	s.remote = remote
	if remote.IsValid() {
		s.setState(StateConnected)
	} else {
		s.setState(StateBound)
	}
	s.incoming = newIncomingDatagramStream(s.conn, remote, s.cfg)
	s.outgoing = newOutgoingDatagramStream(s.conn, s.family, remote, s.cfg)
	return s.incoming, s.outgoing, nil
}

// closeStreams closes the current stream pair under s.mu.
func (s *UDPSocket) closeStreams() error {
	var err error
	if s.incoming != nil {
		err = multierr.Append(err, s.incoming.Close())
	}
	if s.outgoing != nil {
		err = multierr.Append(err, s.outgoing.Close())
	}
	s.incoming, s.outgoing = nil, nil
	return err
}

// LocalAddress is the bound address, with the ephemeral port resolved.
func (s *UDPSocket) LocalAddress() (netip.AddrPort, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.local.IsValid() {
		return netip.AddrPort{}, newError(ErrorInvalidState)
	}
	return s.local, nil
}

// RemoteAddress is the fixed peer set by Stream.
func (s *UDPSocket) RemoteAddress() (netip.AddrPort, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnected {
		return netip.AddrPort{}, newError(ErrorInvalidState)
	}
	return s.remote, nil
}

func (s *UDPSocket) ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.inFlight()
}

// Subscribe returns a pollable that is ready when FinishBind would not
// block.
func (s *UDPSocket) Subscribe() preview2.Pollable {
	return preview2.NewFuncPollable(s.ready, &s.signal)
}

func (s *UDPSocket) setOption(valid bool, set func(o *options)) error {
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

func (s *UDPSocket) option() options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts
}

func (s *UDPSocket) UnicastHopLimit() uint8 { return s.option().hopLimit }

func (s *UDPSocket) SetUnicastHopLimit(n uint8) error {
	return s.setOption(n > 0, func(o *options) { o.hopLimit = n })
}

func (s *UDPSocket) ReceiveBufferSize() uint64 { return s.option().recvBuffer }

func (s *UDPSocket) SetReceiveBufferSize(n uint64) error {
	return s.setOption(n > 0, func(o *options) { o.recvBuffer = n })
}

func (s *UDPSocket) SendBufferSize() uint64 { return s.option().sendBuffer }

func (s *UDPSocket) SetSendBufferSize(n uint64) error {
	return s.setOption(n > 0, func(o *options) { o.sendBuffer = n })
}

// Close releases the socket and its streams. It is idempotent.
func (s *UDPSocket) Close() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	cancel := s.abandon()
	err := s.closeStreams()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		err = multierr.Append(err, conn.Close())
	}
	s.signal.Notify()
	return err
}
