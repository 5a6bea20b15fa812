package sockets

import (
	"net"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// ShutdownType is shutdown-type.
type ShutdownType uint8

const (
	ShutdownReceive ShutdownType = iota
	ShutdownSend
	ShutdownBoth
)

// ParseShutdownType accepts the enum case name.
func ParseShutdownType(name string) (ShutdownType, bool) {
	switch name {
	case "receive":
		return ShutdownReceive, true
	case "send":
		return ShutdownSend, true
	case "both":
		return ShutdownBoth, true
	}
	return 0, false
}

type options struct {
	keepAliveIdle     time.Duration
	keepAliveInterval time.Duration
	recvBuffer        uint64
	sendBuffer        uint64
	backlog           uint64
	keepAliveCount    uint32
	hopLimit          uint8
	keepAlive         bool
}

func defaultOptions() options {
	return options{
		keepAliveIdle:     2 * time.Hour,
		keepAliveInterval: 75 * time.Second,
		keepAliveCount:    9,
		hopLimit:          64,
		recvBuffer:        64 << 10,
		sendBuffer:        64 << 10,
		backlog:           128,
	}
}

type syscallConn interface {
	SyscallConn() (syscall.RawConn, error)
}

// apply pushes the options onto a live connection. Failures are logged;
// the stored values remain what the guest asked for.
func (o options) apply(conn any, family AddressFamily) {
	if tc, ok := conn.(*net.TCPConn); ok {
		err := tc.SetKeepAliveConfig(net.KeepAliveConfig{
			Enable:   o.keepAlive,
			Idle:     o.keepAliveIdle,
			Interval: o.keepAliveInterval,
			Count:    int(o.keepAliveCount),
		})
		if err != nil {
			Logger().Debug("keep-alive not applied", zap.Error(err))
		}
	}
	sc, ok := conn.(syscallConn)
	if !ok {
		return
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return
	}
	if err := setHopLimit(rc, family, o.hopLimit); err != nil {
		Logger().Debug("hop limit not applied", zap.Error(err))
	}
	if err := setBufferSizes(rc, o.recvBuffer, o.sendBuffer); err != nil {
		Logger().Debug("buffer sizes not applied", zap.Error(err))
	}
}
