package sockets

import (
	"context"
	"errors"
	"net"
	"os"
	"syscall"
)

// mapNetError converts Go net package errors to WASI network error codes.
// The original error is kept as the cause.
func mapNetError(err error) *NetworkError {
	if err == nil {
		return nil
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne
	}
	return &NetworkError{Code: classify(err), Cause: err}
}

func classify(err error) ErrorCode {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return mapErrno(errno)
	}

	var addrErr *net.AddrError
	if errors.As(err, &addrErr) {
		return ErrorInvalidArgument
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		switch {
		case dnsErr.IsNotFound:
			return ErrorNameUnresolvable
		case dnsErr.IsTemporary, dnsErr.IsTimeout:
			return ErrorTemporaryResolverFailure
		}
		return ErrorPermanentResolverFailure
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded), isTimeout(err):
		return ErrorTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, net.ErrClosed):
		return ErrorConnectionAborted
	case os.IsPermission(err):
		return ErrorAccessDenied
	}
	return ErrorUnknown
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
