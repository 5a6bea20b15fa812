package sockets

import (
	"context"
	"net"
	"net/netip"
	"time"

	"github.com/wippyai/wasm-boundary/wasi/preview2/io"
)

// Config controls socket behaviour. The dial and listen hooks default to
// the net package and exist so embedders can route or gate connections.
type Config struct {
	// Dial opens outgoing TCP connections. local is the zero AddrPort
	// unless the socket was bound before connecting.
	Dial func(ctx context.Context, network string, local, remote netip.AddrPort) (net.Conn, error)
	// Listen binds TCP listeners.
	Listen func(ctx context.Context, network, address string) (net.Listener, error)
	// ListenPacket binds UDP sockets.
	ListenPacket func(ctx context.Context, network, address string) (net.PacketConn, error)
	// LookupNetIP resolves host names for ip-name-lookup.
	LookupNetIP func(ctx context.Context, network, host string) ([]netip.Addr, error)

	// DialTimeout bounds a single connect attempt. Zero selects the default;
	// a negative value disables the limit.
	DialTimeout time.Duration
	// ResolveTimeout bounds a single name lookup.
	ResolveTimeout time.Duration
	// DatagramQueueDepth is the capacity of each datagram stream queue.
	DatagramQueueDepth int
	// MaxDatagramsPerReceive caps a single receive call.
	MaxDatagramsPerReceive int
	// Stream sizes the byte streams of connected TCP sockets.
	Stream io.Config
}

// DefaultConfig returns the defaults used when a field is left zero.
func DefaultConfig() Config {
	return Config{
		DialTimeout:            30 * time.Second,
		ResolveTimeout:         10 * time.Second,
		DatagramQueueDepth:     256,
		MaxDatagramsPerReceive: 1024,
		Stream:                 io.DefaultConfig(),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Dial == nil {
		c.Dial = dial
	}
	if c.Listen == nil {
		lc := &net.ListenConfig{}
		c.Listen = lc.Listen
	}
	if c.ListenPacket == nil {
		lc := &net.ListenConfig{}
		c.ListenPacket = lc.ListenPacket
	}
	if c.LookupNetIP == nil {
		c.LookupNetIP = net.DefaultResolver.LookupNetIP
	}
	switch {
	case c.DialTimeout == 0:
		c.DialTimeout = d.DialTimeout
	case c.DialTimeout < 0:
		c.DialTimeout = 0
	}
	if c.ResolveTimeout <= 0 {
		c.ResolveTimeout = d.ResolveTimeout
	}
	if c.DatagramQueueDepth <= 0 {
		c.DatagramQueueDepth = d.DatagramQueueDepth
	}
	if c.MaxDatagramsPerReceive <= 0 {
		c.MaxDatagramsPerReceive = d.MaxDatagramsPerReceive
	}
	return c
}

func dial(ctx context.Context, network string, local, remote netip.AddrPort) (net.Conn, error) {
	d := net.Dialer{}
	if local.IsValid() {
		d.LocalAddr = net.TCPAddrFromAddrPort(local)
	}
	return d.DialContext(ctx, network, remote.String())
}
