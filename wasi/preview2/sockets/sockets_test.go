package sockets

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"syscall"
	"testing"
	"time"

	"code.hybscloud.com/iox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/wasm-boundary/boundary"
	"github.com/wippyai/wasm-boundary/transcoder"
	"github.com/wippyai/wasm-boundary/wasi/preview2"
	"github.com/wippyai/wasm-boundary/wasi/preview2/io"
)

var loopback = netip.MustParseAddrPort("127.0.0.1:0")

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// settle retries fn while it reports would-block, waiting on p between
// attempts.
func settle(t *testing.T, p preview2.Pollable, fn func() error) {
	t.Helper()
	ctx := testContext(t)
	for {
		err := fn()
		if !errors.Is(err, ErrWouldBlock) {
			require.NoError(t, err)
			return
		}
		require.NoError(t, preview2.Block(ctx, p))
	}
}

func bindTCP(t *testing.T, cfg Config) *TCPSocket {
	t.Helper()
	s := NewTCPSocket(IPv4, cfg.withDefaults())
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.StartBind(loopback))
	settle(t, s.Subscribe(), s.FinishBind)
	return s
}

func listenTCP(t *testing.T) *TCPSocket {
	t.Helper()
	s := bindTCP(t, Config{})
	require.NoError(t, s.StartListen())
	require.NoError(t, s.FinishListen())
	require.True(t, s.IsListening())
	return s
}

func TestTCP_BindEphemeralPort(t *testing.T) {
	s := bindTCP(t, Config{})
	assert.Equal(t, StateBound, s.State())

	addr, err := s.LocalAddress()
	require.NoError(t, err)
	assert.NotZero(t, addr.Port())
	assert.True(t, addr.Addr().Is4())

	_, err = s.RemoteAddress()
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestTCP_ConnectAcceptEcho(t *testing.T) {
	ctx := testContext(t)
	server := listenTCP(t)
	addr, err := server.LocalAddress()
	require.NoError(t, err)

	client := NewTCPSocket(IPv4, Config{}.withDefaults())
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.StartConnect(addr))

	var cin *io.InputStream
	var cout *io.OutputStream
	settle(t, client.Subscribe(), func() error {
		in, out, err := client.FinishConnect()
		cin, cout = in, out
		return err
	})
	require.NotNil(t, cin)
	require.NotNil(t, cout)
	assert.Equal(t, StateConnected, client.State())

	var child *TCPSocket
	var sin *io.InputStream
	var sout *io.OutputStream
	settle(t, server.Subscribe(), func() error {
		c, in, out, err := server.Accept()
		child, sin, sout = c, in, out
		return err
	})
	t.Cleanup(func() { _ = child.Close() })

	remote, err := child.RemoteAddress()
	require.NoError(t, err)
	local, err := client.LocalAddress()
	require.NoError(t, err)
	assert.Equal(t, local, remote)

	require.NoError(t, cout.BlockingWriteAndFlush(ctx, []byte("ping")))
	got, err := sin.BlockingRead(ctx, 16)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(got))

	require.NoError(t, sout.BlockingWriteAndFlush(ctx, []byte("pong")))
	got, err = cin.BlockingRead(ctx, 16)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(got))
}

func TestTCP_ShutdownSendEndsPeerStream(t *testing.T) {
	ctx := testContext(t)
	server := listenTCP(t)
	addr, _ := server.LocalAddress()

	client := NewTCPSocket(IPv4, Config{}.withDefaults())
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.StartConnect(addr))
	settle(t, client.Subscribe(), func() error {
		_, _, err := client.FinishConnect()
		return err
	})

	var sin *io.InputStream
	settle(t, server.Subscribe(), func() error {
		c, in, _, err := server.Accept()
		if err == nil {
			t.Cleanup(func() { _ = c.Close() })
		}
		sin = in
		return err
	})

	require.NoError(t, client.Shutdown(ShutdownSend))
	_, err := sin.BlockingRead(ctx, 16)
	assert.ErrorIs(t, err, preview2.ErrEndOfStream)
}

func TestTCP_ConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	addr := netip.MustParseAddrPort(ln.Addr().String())
	require.NoError(t, ln.Close())

	s := NewTCPSocket(IPv4, Config{}.withDefaults())
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.StartConnect(addr))

	ctx := testContext(t)
	var finishErr error
	for {
		_, _, finishErr = s.FinishConnect()
		if !errors.Is(finishErr, ErrWouldBlock) {
			break
		}
		require.NoError(t, preview2.Block(ctx, s.Subscribe()))
	}
	assert.ErrorIs(t, finishErr, ErrConnectionRefused)
	assert.Equal(t, StateErrored, s.State())
}

func TestTCP_FinishBeforeStartCompletes(t *testing.T) {
	gate := make(chan struct{})
	cfg := Config{
		Dial: func(ctx context.Context, network string, local, remote netip.AddrPort) (net.Conn, error) {
			select {
			case <-gate:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			a, b := net.Pipe()
			go func() { _ = b.Close() }()
			return a, nil
		},
	}
	s := NewTCPSocket(IPv4, cfg.withDefaults())
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.StartConnect(netip.MustParseAddrPort("127.0.0.1:9")))
	assert.False(t, s.Subscribe().Ready())

	_, _, err := s.FinishConnect()
	assert.ErrorIs(t, err, ErrWouldBlock)
	assert.ErrorIs(t, err, iox.ErrWouldBlock)
	assert.Equal(t, StateConnecting, s.State())

	assert.ErrorIs(t, s.StartConnect(netip.MustParseAddrPort("127.0.0.1:9")), newError(ErrorConcurrencyConflict))

	close(gate)
	settle(t, s.Subscribe(), func() error {
		_, _, err := s.FinishConnect()
		return err
	})
	assert.Equal(t, StateConnected, s.State())

	// The stream pair is handed out once.
	_, _, err = s.FinishConnect()
	assert.ErrorIs(t, err, ErrNotInProgress)
}

func TestTCP_NotInProgress(t *testing.T) {
	s := NewTCPSocket(IPv4, Config{}.withDefaults())
	t.Cleanup(func() { _ = s.Close() })

	assert.ErrorIs(t, s.FinishBind(), ErrNotInProgress)
	_, _, err := s.FinishConnect()
	assert.ErrorIs(t, err, ErrNotInProgress)
	assert.ErrorIs(t, s.FinishListen(), ErrNotInProgress)
}

func TestFinishAfterCompletion(t *testing.T) {
	t.Run("tcp bind", func(t *testing.T) {
		s := bindTCP(t, Config{})
		assert.ErrorIs(t, s.FinishBind(), ErrNotInProgress)
		assert.Equal(t, StateBound, s.State())
	})
	t.Run("tcp listen", func(t *testing.T) {
		s := listenTCP(t)
		assert.ErrorIs(t, s.FinishListen(), ErrNotInProgress)
		assert.ErrorIs(t, s.FinishBind(), ErrNotInProgress)
	})
	t.Run("udp bind", func(t *testing.T) {
		s := bindUDP(t)
		assert.ErrorIs(t, s.FinishBind(), ErrNotInProgress)
	})
}

func TestTCP_InvalidArguments(t *testing.T) {
	s := NewTCPSocket(IPv4, Config{}.withDefaults())
	t.Cleanup(func() { _ = s.Close() })

	assert.ErrorIs(t, s.StartBind(netip.MustParseAddrPort("[::1]:0")), ErrInvalidArgument)
	assert.ErrorIs(t, s.StartConnect(netip.MustParseAddrPort("0.0.0.0:80")), ErrInvalidArgument)
	assert.ErrorIs(t, s.StartConnect(netip.MustParseAddrPort("127.0.0.1:0")), ErrInvalidArgument)
	assert.Equal(t, StateUnbound, s.State())
}

func TestTCP_AcceptWouldBlock(t *testing.T) {
	server := listenTCP(t)
	_, _, _, err := server.Accept()
	assert.ErrorIs(t, err, ErrWouldBlock)
}

func TestTCP_CloseIsIdempotent(t *testing.T) {
	s := bindTCP(t, Config{})
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, StateClosed, s.State())
	assert.True(t, s.Subscribe().Ready())
}

func TestTCP_Options(t *testing.T) {
	s := NewTCPSocket(IPv4, Config{}.withDefaults())
	t.Cleanup(func() { _ = s.Close() })

	assert.ErrorIs(t, s.SetHopLimit(0), ErrInvalidArgument)
	require.NoError(t, s.SetHopLimit(32))
	assert.Equal(t, uint8(32), s.HopLimit())

	assert.ErrorIs(t, s.SetKeepAliveIdleTime(0), ErrInvalidArgument)
	require.NoError(t, s.SetKeepAliveIdleTime(time.Minute))
	assert.Equal(t, time.Minute, s.KeepAliveIdleTime())

	require.NoError(t, s.SetKeepAliveEnabled(true))
	assert.True(t, s.KeepAliveEnabled())
	require.NoError(t, s.SetListenBacklogSize(16))
}

func TestUDP_EchoAndReceiveEmpty(t *testing.T) {
	ctx := testContext(t)
	a := bindUDP(t)
	b := bindUDP(t)
	aAddr, _ := a.LocalAddress()
	bAddr, _ := b.LocalAddress()

	ain, aout, err := a.Stream(netip.AddrPort{})
	require.NoError(t, err)
	bin, _, err := b.Stream(aAddr)
	require.NoError(t, err)

	dgs, err := bin.Receive(10)
	require.NoError(t, err)
	assert.Empty(t, dgs)
	assert.NotNil(t, dgs)

	n, err := aout.CheckSend()
	require.NoError(t, err)
	require.NotZero(t, n)
	n, err = aout.Send([]Datagram{{Data: []byte("hello"), Remote: bAddr}})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	require.NoError(t, preview2.Block(ctx, bin.Subscribe()))
	dgs, err = bin.Receive(10)
	require.NoError(t, err)
	require.Len(t, dgs, 1)
	assert.Equal(t, "hello", string(dgs[0].Data))
	assert.Equal(t, aAddr, dgs[0].Remote)

	_, err = ain.Receive(0)
	require.NoError(t, err)
}

func TestUDP_FixedPeerRejectsOtherDestination(t *testing.T) {
	a := bindUDP(t)
	peer := netip.MustParseAddrPort("127.0.0.1:9")
	_, out, err := a.Stream(peer)
	require.NoError(t, err)
	assert.Equal(t, StateConnected, a.State())

	remote, err := a.RemoteAddress()
	require.NoError(t, err)
	assert.Equal(t, peer, remote)

	n, err := out.Send([]Datagram{{Data: []byte("x"), Remote: netip.MustParseAddrPort("127.0.0.1:10")}})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Zero(t, n)

	n, err = out.Send([]Datagram{{Data: []byte("x")}})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}

func TestUDP_SendStopsAtFirstInvalid(t *testing.T) {
	a := bindUDP(t)
	_, out, err := a.Stream(netip.AddrPort{})
	require.NoError(t, err)

	n, err := out.Send([]Datagram{
		{Data: []byte("ok"), Remote: netip.MustParseAddrPort("127.0.0.1:9")},
		{Data: []byte("no peer")},
		{Data: []byte("ok"), Remote: netip.MustParseAddrPort("127.0.0.1:9")},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	_, err = out.Send([]Datagram{{Data: make([]byte, MaxDatagramSize+1), Remote: netip.MustParseAddrPort("127.0.0.1:9")}})
	assert.ErrorIs(t, err, ErrDatagramTooLarge)
}

func TestUDP_StreamRequiresBind(t *testing.T) {
	s := NewUDPSocket(IPv4, Config{}.withDefaults())
	t.Cleanup(func() { _ = s.Close() })
	_, _, err := s.Stream(netip.AddrPort{})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestUDP_RestreamClosesPrevious(t *testing.T) {
	a := bindUDP(t)
	in1, _, err := a.Stream(netip.AddrPort{})
	require.NoError(t, err)
	_, _, err = a.Stream(netip.AddrPort{})
	require.NoError(t, err)

	_, err = in1.Receive(1)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func bindUDP(t *testing.T) *UDPSocket {
	t.Helper()
	s := NewUDPSocket(IPv4, Config{}.withDefaults())
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.StartBind(loopback))
	settle(t, s.Subscribe(), s.FinishBind)
	return s
}

func TestAddressValue_IPv4IsFourOctets(t *testing.T) {
	ap := netip.MustParseAddrPort("10.1.2.3:8080")
	v := AddressValue(ap)

	variant, ok := v.(transcoder.Variant)
	require.True(t, ok)
	assert.Equal(t, "ipv4", variant.Case)
	rec := variant.Payload.(transcoder.Record)
	addr, _ := rec.Get("address")
	assert.Equal(t, transcoder.Tuple{transcoder.U8(10), transcoder.U8(1), transcoder.U8(2), transcoder.U8(3)}, addr)

	back, err := ParseAddressValue(v)
	require.NoError(t, err)
	assert.Equal(t, ap, back)
}

func TestAddressValue_IPv6(t *testing.T) {
	ap := netip.MustParseAddrPort("[2001:db8::1]:443")
	back, err := ParseAddressValue(AddressValue(ap))
	require.NoError(t, err)
	assert.Equal(t, ap, back)
}

func TestParseAddressValue_RejectsShortIPv4(t *testing.T) {
	v := transcoder.Case("ipv4", transcoder.Record{
		{Name: "port", Value: transcoder.U16(1)},
		{Name: "address", Value: transcoder.Tuple{transcoder.U8(1), transcoder.U8(2)}},
	})
	_, err := ParseAddressValue(v)
	assert.Error(t, err)
}

func TestMapNetError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"refused", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, ErrorConnectionRefused},
		{"in use", &net.OpError{Op: "listen", Err: syscall.EADDRINUSE}, ErrorAddressInUse},
		{"deadline", context.DeadlineExceeded, ErrorTimeout},
		{"closed", net.ErrClosed, ErrorConnectionAborted},
		{"not found", &net.DNSError{Err: "no such host", IsNotFound: true}, ErrorNameUnresolvable},
		{"temporary", &net.DNSError{Err: "try again", IsTemporary: true}, ErrorTemporaryResolverFailure},
		{"other", errors.New("boom"), ErrorUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ne := mapNetError(tt.err)
			require.NotNil(t, ne)
			assert.Equal(t, tt.want, ne.Code)
			assert.ErrorIs(t, ne, tt.err)
		})
	}
	assert.Nil(t, mapNetError(nil))
}

func TestResolve_Literal(t *testing.T) {
	s, err := Resolve("[::ffff:127.0.0.1]", Config{})
	require.NoError(t, err)

	addr, ok, err := s.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, netip.MustParseAddr("127.0.0.1"), addr)

	_, ok, err = s.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolve_InvalidName(t *testing.T) {
	_, err := Resolve("bad name!", Config{})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestResolve_Lookup(t *testing.T) {
	gate := make(chan struct{})
	cfg := Config{
		LookupNetIP: func(ctx context.Context, network, host string) ([]netip.Addr, error) {
			<-gate
			if host == "missing.test" {
				return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
			}
			return []netip.Addr{netip.MustParseAddr("192.0.2.1"), netip.MustParseAddr("2001:db8::2")}, nil
		},
	}

	s, err := Resolve("example.test", cfg)
	require.NoError(t, err)
	_, _, err = s.Next()
	assert.ErrorIs(t, err, ErrWouldBlock)

	missing, err := Resolve("missing.test", cfg)
	require.NoError(t, err)

	close(gate)
	ctx := testContext(t)
	require.NoError(t, preview2.Block(ctx, s.Subscribe()))
	var got []netip.Addr
	for {
		addr, ok, err := s.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, addr)
	}
	assert.Len(t, got, 2)

	require.NoError(t, preview2.Block(ctx, missing.Subscribe()))
	_, _, err = missing.Next()
	assert.ErrorIs(t, err, ErrNameUnresolvable)
}

func TestHost_RegisterAndCall(t *testing.T) {
	ctx := testContext(t)
	resources := preview2.NewResourceTable()
	s := boundary.NewSurface(boundary.WithResources(resources.Table()))
	require.NoError(t, NewHost(resources, Config{}).Register(s))

	for _, iface := range []string{NetworkInterface, InstanceNetworkInterface, TCPInterface, TCPCreateInterface, UDPInterface, UDPCreateInterface, NameLookupInterface} {
		assert.Contains(t, s.Interfaces(), iface)
	}

	network, err := s.Call(ctx, "instance-network")
	require.NoError(t, err)

	res, err := s.Call(ctx, "create-tcp-socket", transcoder.Enum("ipv4"))
	require.NoError(t, err)
	created := res.(transcoder.Result)
	require.False(t, created.IsErr)
	sock := created.Value

	res, err = s.Call(ctx, "[method]tcp-socket.start-bind", sock, network, AddressValue(loopback))
	require.NoError(t, err)
	require.False(t, res.(transcoder.Result).IsErr)

	socket, ok := preview2.Lookup[*TCPSocket](resources, uint32(sock.(transcoder.Handle)))
	require.True(t, ok)
	require.NoError(t, preview2.Block(ctx, socket.Subscribe()))

	res, err = s.Call(ctx, "[method]tcp-socket.finish-bind", sock)
	require.NoError(t, err)
	require.False(t, res.(transcoder.Result).IsErr)

	res, err = s.Call(ctx, "[method]tcp-socket.local-address", sock)
	require.NoError(t, err)
	addr, err := ParseAddressValue(res.(transcoder.Result).Value)
	require.NoError(t, err)
	assert.NotZero(t, addr.Port())

	res, err = s.Call(ctx, "[method]tcp-socket.finish-bind", sock)
	require.NoError(t, err)
	assert.Equal(t, transcoder.Err(transcoder.Enum("not-in-progress")), res)

	res, err = s.Call(ctx, "resolve-addresses", network, transcoder.String("127.0.0.1"))
	require.NoError(t, err)
	stream := res.(transcoder.Result).Value
	res, err = s.Call(ctx, "[method]resolve-address-stream.resolve-next-address", stream)
	require.NoError(t, err)
	assert.Equal(t, transcoder.Ok(transcoder.Some(IPAddressValue(netip.MustParseAddr("127.0.0.1")))), res)

	_, err = s.Call(ctx, "[resource-drop]tcp-socket", sock)
	require.NoError(t, err)
	assert.Equal(t, StateClosed, socket.State())
}

func TestNetworkError_Is(t *testing.T) {
	err := &NetworkError{Code: ErrorTimeout, Cause: context.DeadlineExceeded}
	assert.ErrorIs(t, err, newError(ErrorTimeout))
	assert.NotErrorIs(t, err, ErrWouldBlock)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "timeout")
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, 30*time.Second, cfg.DialTimeout)
	assert.Equal(t, 10*time.Second, cfg.ResolveTimeout)
	assert.Equal(t, 256, cfg.DatagramQueueDepth)
	assert.Equal(t, 1024, cfg.MaxDatagramsPerReceive)
	assert.NotNil(t, cfg.Dial)
	assert.NotNil(t, cfg.LookupNetIP)

	cfg = Config{DialTimeout: -1}.withDefaults()
	assert.Zero(t, cfg.DialTimeout, "negative timeout disables the limit")

	cfg = Config{DialTimeout: time.Second}.withDefaults()
	assert.Equal(t, time.Second, cfg.DialTimeout)
}
