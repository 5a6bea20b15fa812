package sockets

import (
	"bytes"
	"net"
	"net/netip"
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/lfq"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-boundary/wasi/preview2"
)

// MaxDatagramSize is the largest UDP payload accepted by Send.
const MaxDatagramSize = 65507

// Datagram is a UDP payload and its peer. Send may leave Remote zero when
// the stream has a fixed peer.
type Datagram struct {
	Data   []byte
	Remote netip.AddrPort
}

// IncomingDatagramStream queues datagrams read by a background goroutine.
// When the queue is full new datagrams are dropped, as the network would.
type IncomingDatagramStream struct {
	conn   net.PacketConn
	err    error
	done   chan struct{}
	queue  lfq.SPSC[Datagram]
	signal preview2.Signal
	remote netip.AddrPort
	max    int
	queued atomix.Uint32
	closed atomix.Uint32
	mu     sync.Mutex
}

func newIncomingDatagramStream(conn net.PacketConn, remote netip.AddrPort, cfg Config) *IncomingDatagramStream {
	s := &IncomingDatagramStream{
		conn:   conn,
		remote: remote,
		max:    cfg.MaxDatagramsPerReceive,
		done:   make(chan struct{}),
	}
	s.queue.Init(cfg.DatagramQueueDepth)
	_ = conn.SetReadDeadline(time.Time{})
	go s.pump()
	return s
}

func (s *IncomingDatagramStream) Type() preview2.ResourceType {
	return preview2.ResourceIncomingDatagramStream
}

func (s *IncomingDatagramStream) Drop() { _ = s.Close() }

func (s *IncomingDatagramStream) isClosed() bool { return s.closed.Load() != 0 }

func (s *IncomingDatagramStream) pump() {
	defer close(s.done)
	buf := make([]byte, 1<<16)
	for {
		n, addr, err := s.conn.ReadFrom(buf)
		if s.isClosed() {
			return
		}
		if err != nil {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
			s.signal.Notify()
			Logger().Debug("datagram reader stopped", zap.Error(err))
			return
		}
		from := addrPortOf(addr)
		if s.remote.IsValid() && from != s.remote {
			continue
		}
		dg := Datagram{Data: bytes.Clone(buf[:n]), Remote: from}
		if err := s.queue.Enqueue(&dg); err != nil {
			Logger().Debug("incoming datagram queue full", zap.Stringer("from", from))
			continue
		}
		s.queued.Add(1)
		s.signal.Notify()
	}
}

// Receive returns up to max queued datagrams without blocking. An empty
// result means nothing has arrived yet.
func (s *IncomingDatagramStream) Receive(max uint64) ([]Datagram, error) {
	if s.isClosed() {
		return nil, newError(ErrorInvalidState)
	}
	if max > uint64(s.max) {
		max = uint64(s.max)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Datagram, 0, min(max, uint64(s.queued.Load())))
	for uint64(len(out)) < max {
		dg, err := s.queue.Dequeue()
		if err != nil {
			break
		}
		s.queued.Add(^uint32(0))
		out = append(out, dg)
	}
	if len(out) == 0 && s.err != nil {
		return nil, mapNetError(s.err)
	}
	return out, nil
}

func (s *IncomingDatagramStream) ready() bool {
	if s.isClosed() || s.queued.Load() > 0 {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err != nil
}

// Subscribe returns a pollable that is ready when Receive has datagrams
// or an error to report.
func (s *IncomingDatagramStream) Subscribe() preview2.Pollable {
	return preview2.NewFuncPollable(s.ready, &s.signal)
}

// Close stops the reader and waits for it to exit. The socket stays open.
func (s *IncomingDatagramStream) Close() error {
	if s.closed.Add(1) != 1 {
		return nil
	}
	_ = s.conn.SetReadDeadline(time.Now())
	<-s.done
	s.signal.Notify()
	return nil
}

// OutgoingDatagramStream queues datagrams for a background writer.
type OutgoingDatagramStream struct {
	conn   net.PacketConn
	err    error
	done   chan struct{}
	queue  lfq.SPSC[Datagram]
	signal preview2.Signal // space freed or failure
	wake   preview2.Signal // queued data
	remote netip.AddrPort
	depth  int
	queued atomix.Uint32
	closed atomix.Uint32
	mu     sync.Mutex
	family AddressFamily
}

func newOutgoingDatagramStream(conn net.PacketConn, family AddressFamily, remote netip.AddrPort, cfg Config) *OutgoingDatagramStream {
	s := &OutgoingDatagramStream{
		conn:   conn,
		family: family,
		remote: remote,
		depth:  cfg.DatagramQueueDepth,
		done:   make(chan struct{}),
	}
	s.queue.Init(cfg.DatagramQueueDepth)
	go s.pump()
	return s
}

func (s *OutgoingDatagramStream) Type() preview2.ResourceType {
	return preview2.ResourceOutgoingDatagramStream
}

func (s *OutgoingDatagramStream) Drop() { _ = s.Close() }

func (s *OutgoingDatagramStream) isClosed() bool { return s.closed.Load() != 0 }

// pump sends queued datagrams. After Close it drains the queue and exits.
func (s *OutgoingDatagramStream) pump() {
	defer close(s.done)
	for {
		ch := s.wake.C()
		dg, err := s.queue.Dequeue()
		if err != nil {
			if s.isClosed() {
				return
			}
			<-ch
			continue
		}
		s.queued.Add(^uint32(0))
		if _, err := s.conn.WriteTo(dg.Data, net.UDPAddrFromAddrPort(dg.Remote)); err != nil {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
			s.signal.Notify()
			Logger().Debug("datagram writer stopped", zap.Error(err))
			return
		}
		s.signal.Notify()
	}
}

func (s *OutgoingDatagramStream) failure() error {
	if s.isClosed() {
		return newError(ErrorInvalidState)
	}
	if s.err != nil {
		return mapNetError(s.err)
	}
	return nil
}

func (s *OutgoingDatagramStream) permit() uint64 {
	q := int(s.queued.Load())
	if q >= s.depth {
		return 0
	}
	return uint64(s.depth - q)
}

// CheckSend returns how many datagrams Send would accept right now.
func (s *OutgoingDatagramStream) CheckSend() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(); err != nil {
		return 0, err
	}
	return s.permit(), nil
}

// destination resolves a datagram's peer against the fixed peer.
func (s *OutgoingDatagramStream) destination(remote netip.AddrPort) (netip.AddrPort, error) {
	switch {
	case s.remote.IsValid() && !remote.IsValid():
		return s.remote, nil
	case s.remote.IsValid() && remote != s.remote:
		return netip.AddrPort{}, newError(ErrorInvalidArgument)
	case !remote.IsValid():
		return netip.AddrPort{}, newError(ErrorInvalidArgument)
	}
	if err := checkFamily(s.family, remote); err != nil {
		return netip.AddrPort{}, err
	}
	if remote.Addr().IsUnspecified() || remote.Port() == 0 {
		return netip.AddrPort{}, newError(ErrorInvalidArgument)
	}
	return remote, nil
}

// Send queues datagrams in order and returns how many were accepted. It
// stops at the first invalid datagram or when the queue is full, and only
// reports an error when nothing was accepted. Data is not copied.
func (s *OutgoingDatagramStream) Send(datagrams []Datagram) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(); err != nil {
		return 0, err
	}

	var sent uint64
	for _, dg := range datagrams {
		dst, err := s.destination(dg.Remote)
		if err == nil && len(dg.Data) > MaxDatagramSize {
			err = newError(ErrorDatagramTooLarge)
		}
		if err != nil {
			if sent == 0 {
				return 0, err
			}
			break
		}
		dg.Remote = dst
		if s.queue.Enqueue(&dg) != nil {
			break
		}
		s.queued.Add(1)
		sent++
	}
	if sent > 0 {
		s.wake.Notify()
	}
	return sent, nil
}

func (s *OutgoingDatagramStream) ready() bool {
	if s.isClosed() {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err != nil || s.permit() > 0
}

// Subscribe returns a pollable that is ready when CheckSend would permit
// at least one datagram.
func (s *OutgoingDatagramStream) Subscribe() preview2.Pollable {
	return preview2.NewFuncPollable(s.ready, &s.signal)
}

// Close stops accepting datagrams. Those already queued are still sent.
func (s *OutgoingDatagramStream) Close() error {
	if s.closed.Add(1) != 1 {
		return nil
	}
	s.wake.Notify()
	s.signal.Notify()
	return nil
}

// Done is closed once the writer has drained the queue and exited.
func (s *OutgoingDatagramStream) Done() <-chan struct{} { return s.done }
