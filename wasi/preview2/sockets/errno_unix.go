//go:build unix

package sockets

import (
	"syscall"

	"golang.org/x/sys/unix"
)

func mapErrno(errno syscall.Errno) ErrorCode {
	switch errno {
	case unix.EACCES, unix.EPERM:
		return ErrorAccessDenied
	case unix.EADDRINUSE:
		return ErrorAddressInUse
	case unix.EADDRNOTAVAIL:
		return ErrorAddressNotBindable
	case unix.ECONNREFUSED:
		return ErrorConnectionRefused
	case unix.ECONNRESET, unix.EPIPE:
		return ErrorConnectionReset
	case unix.ECONNABORTED:
		return ErrorConnectionAborted
	case unix.EHOSTUNREACH, unix.ENETUNREACH, unix.ENETDOWN, unix.EHOSTDOWN:
		return ErrorRemoteUnreachable
	case unix.ETIMEDOUT:
		return ErrorTimeout
	case unix.EINVAL, unix.EAFNOSUPPORT, unix.EDESTADDRREQ:
		return ErrorInvalidArgument
	case unix.ENOMEM, unix.ENOBUFS:
		return ErrorOutOfMemory
	case unix.EAGAIN, unix.EINPROGRESS:
		return ErrorWouldBlock
	case unix.EALREADY:
		return ErrorConcurrencyConflict
	case unix.ENOTSOCK, unix.ENOTCONN, unix.EISCONN:
		return ErrorInvalidState
	case unix.EMSGSIZE:
		return ErrorDatagramTooLarge
	case unix.EMFILE, unix.ENFILE:
		return ErrorNewSocketLimit
	case unix.EOPNOTSUPP, unix.EPROTONOSUPPORT:
		return ErrorNotSupported
	}
	return ErrorUnknown
}
