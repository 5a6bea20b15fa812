package sockets

import (
	"context"
	"net/netip"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-boundary/wasi/preview2"
)

// ResolveAddressStream yields the addresses of one lookup. The lookup runs
// on a goroutine; Next reports would-block until it finishes.
type ResolveAddressStream struct {
	err    error
	done   chan struct{}
	cancel context.CancelFunc
	addrs  []netip.Addr
	mu     sync.Mutex
	next   int
}

// Resolve starts looking up name. IP literals resolve immediately. Names
// that cannot be host names are rejected with invalid-argument.
func Resolve(name string, cfg Config) (*ResolveAddressStream, error) {
	cfg = cfg.withDefaults()
	s := &ResolveAddressStream{done: make(chan struct{})}

	host := strings.TrimSuffix(strings.TrimPrefix(name, "["), "]")
	if addr, err := netip.ParseAddr(host); err == nil {
		s.addrs = []netip.Addr{addr.Unmap()}
		s.cancel = func() {}
		close(s.done)
		return s, nil
	}
	if !validHostName(name) {
		return nil, newError(ErrorInvalidArgument)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ResolveTimeout)
	s.cancel = cancel
	go func() {
		defer close(s.done)
		addrs, err := cfg.LookupNetIP(ctx, "ip", name)
		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			s.err = err
			Logger().Debug("name lookup failed", zap.String("name", name), zap.Error(err))
			return
		}
		for _, a := range addrs {
			s.addrs = append(s.addrs, a.Unmap())
		}
	}()
	return s, nil
}

func validHostName(name string) bool {
	if name == "" || len(name) > 253 {
		return false
	}
	for _, label := range strings.Split(strings.TrimSuffix(name, "."), ".") {
		if label == "" || len(label) > 63 {
			return false
		}
		for _, r := range label {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			default:
				return false
			}
		}
	}
	return true
}

func (s *ResolveAddressStream) Type() preview2.ResourceType { return preview2.ResourceIPNameLookup }

// Drop cancels an unfinished lookup.
func (s *ResolveAddressStream) Drop() { s.cancel() }

// Next returns the next address. ok is false once every address has been
// returned.
func (s *ResolveAddressStream) Next() (addr netip.Addr, ok bool, err error) {
	select {
	case <-s.done:
	default:
		return netip.Addr{}, false, newError(ErrorWouldBlock)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return netip.Addr{}, false, mapNetError(s.err)
	}
	if s.next >= len(s.addrs) {
		return netip.Addr{}, false, nil
	}
	addr = s.addrs[s.next]
	s.next++
	return addr, true, nil
}

// Subscribe returns a pollable that is ready once the lookup finished.
func (s *ResolveAddressStream) Subscribe() preview2.Pollable {
	return preview2.NewChannelPollable(s.done)
}
