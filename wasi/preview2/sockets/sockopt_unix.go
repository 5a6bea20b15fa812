//go:build unix

package sockets

import (
	"math"
	"syscall"

	"golang.org/x/sys/unix"
)

func control(rc syscall.RawConn, fn func(fd int) error) error {
	var serr error
	if err := rc.Control(func(fd uintptr) { serr = fn(int(fd)) }); err != nil {
		return err
	}
	return serr
}

func setHopLimit(rc syscall.RawConn, family AddressFamily, hops uint8) error {
	return control(rc, func(fd int) error {
		if family == IPv6 {
			return unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_UNICAST_HOPS, int(hops))
		}
		return unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_TTL, int(hops))
	})
}

func setBufferSizes(rc syscall.RawConn, recv, send uint64) error {
	return control(rc, func(fd int) error {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, clampInt(recv)); err != nil {
			return err
		}
		return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, clampInt(send))
	})
}

func clampInt(v uint64) int {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(v)
}
