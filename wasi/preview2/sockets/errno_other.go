//go:build !unix

package sockets

import "syscall"

func mapErrno(errno syscall.Errno) ErrorCode {
	switch errno {
	case syscall.EACCES, syscall.EPERM:
		return ErrorAccessDenied
	case syscall.EADDRINUSE:
		return ErrorAddressInUse
	case syscall.EADDRNOTAVAIL:
		return ErrorAddressNotBindable
	case syscall.ECONNREFUSED:
		return ErrorConnectionRefused
	case syscall.ECONNRESET:
		return ErrorConnectionReset
	case syscall.ECONNABORTED:
		return ErrorConnectionAborted
	case syscall.EHOSTUNREACH, syscall.ENETUNREACH:
		return ErrorRemoteUnreachable
	case syscall.ETIMEDOUT:
		return ErrorTimeout
	case syscall.EINVAL:
		return ErrorInvalidArgument
	}
	return ErrorUnknown
}
