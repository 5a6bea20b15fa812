package main

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/spf13/cobra"

	"github.com/wippyai/wasm-boundary/wasi/preview2"
	wasiio "github.com/wippyai/wasm-boundary/wasi/preview2/io"
	"github.com/wippyai/wasm-boundary/wasi/preview2/sockets"
)

var loopback = netip.MustParseAddrPort("127.0.0.1:0")

// settle retries fn until it stops reporting would-block, waiting on p in
// between.
func settle(ctx context.Context, p preview2.Pollable, fn func() error) error {
	for {
		err := fn()
		if !errors.Is(err, sockets.ErrWouldBlock) {
			return err
		}
		if err := preview2.Block(ctx, p); err != nil {
			return err
		}
	}
}

func echoTCP(ctx context.Context, message string) (string, error) {
	cfg := sockets.DefaultConfig()

	server := sockets.NewTCPSocket(sockets.IPv4, cfg)
	defer server.Close()
	if err := server.StartBind(loopback); err != nil {
		return "", err
	}
	if err := settle(ctx, server.Subscribe(), server.FinishBind); err != nil {
		return "", fmt.Errorf("bind: %w", err)
	}
	if err := server.StartListen(); err != nil {
		return "", err
	}
	if err := server.FinishListen(); err != nil {
		return "", err
	}
	addr, err := server.LocalAddress()
	if err != nil {
		return "", err
	}

	client := sockets.NewTCPSocket(sockets.IPv4, cfg)
	defer client.Close()
	if err := client.StartConnect(addr); err != nil {
		return "", err
	}
	var cin *wasiio.InputStream
	var cout *wasiio.OutputStream
	err = settle(ctx, client.Subscribe(), func() error {
		var err error
		cin, cout, err = client.FinishConnect()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("connect: %w", err)
	}

	var peer *sockets.TCPSocket
	var pin *wasiio.InputStream
	var pout *wasiio.OutputStream
	err = settle(ctx, server.Subscribe(), func() error {
		var err error
		peer, pin, pout, err = server.Accept()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("accept: %w", err)
	}
	defer peer.Close()

	if err := cout.BlockingWriteAndFlush(ctx, []byte(message)); err != nil {
		return "", err
	}
	data, err := readFull(ctx, pin, len(message))
	if err != nil {
		return "", err
	}
	if err := pout.BlockingWriteAndFlush(ctx, data); err != nil {
		return "", err
	}
	reply, err := readFull(ctx, cin, len(message))
	return string(reply), err
}

func readFull(ctx context.Context, in *wasiio.InputStream, n int) ([]byte, error) {
	buf := make([]byte, 0, n)
	for len(buf) < n {
		chunk, err := in.BlockingRead(ctx, uint64(n-len(buf)))
		if err != nil {
			return buf, err
		}
		buf = append(buf, chunk...)
	}
	return buf, nil
}

func echoUDP(ctx context.Context, message string) (string, error) {
	cfg := sockets.DefaultConfig()
	bind := func() (*sockets.UDPSocket, error) {
		s := sockets.NewUDPSocket(sockets.IPv4, cfg)
		if err := s.StartBind(loopback); err != nil {
			return s, err
		}
		return s, settle(ctx, s.Subscribe(), s.FinishBind)
	}

	a, err := bind()
	defer a.Close()
	if err != nil {
		return "", err
	}
	b, err := bind()
	defer b.Close()
	if err != nil {
		return "", err
	}
	aAddr, _ := a.LocalAddress()
	bAddr, _ := b.LocalAddress()

	ain, aout, err := a.Stream(bAddr)
	if err != nil {
		return "", err
	}
	bin, bout, err := b.Stream(netip.AddrPort{})
	if err != nil {
		return "", err
	}

	if _, err := aout.Send([]sockets.Datagram{{Data: []byte(message)}}); err != nil {
		return "", err
	}
	var got []sockets.Datagram
	err = settle(ctx, bin.Subscribe(), func() error {
		got, err = bin.Receive(1)
		if err == nil && len(got) == 0 {
			return sockets.ErrWouldBlock
		}
		return err
	})
	if err != nil {
		return "", err
	}
	if got[0].Remote != aAddr {
		return "", fmt.Errorf("datagram from %s, want %s", got[0].Remote, aAddr)
	}
	if _, err := bout.Send([]sockets.Datagram{{Data: got[0].Data, Remote: got[0].Remote}}); err != nil {
		return "", err
	}
	err = settle(ctx, ain.Subscribe(), func() error {
		got, err = ain.Receive(1)
		if err == nil && len(got) == 0 {
			return sockets.ErrWouldBlock
		}
		return err
	})
	if err != nil {
		return "", err
	}
	return string(got[0].Data), nil
}

func echoCommand() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "echo [message]",
		Short: "Send a message over loopback TCP and UDP sockets and back",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := "hello, boundary"
			if len(args) == 1 {
				message = args[0]
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			for _, run := range []struct {
				name string
				fn   func(context.Context, string) (string, error)
			}{
				{"tcp", echoTCP},
				{"udp", echoUDP},
			} {
				reply, err := run.fn(ctx, message)
				if err != nil {
					return fmt.Errorf("%s: %w", run.name, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %q\n", run.name, reply)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "overall deadline")

	return cmd
}
