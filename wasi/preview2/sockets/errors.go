package sockets

import (
	"code.hybscloud.com/iox"
)

// ErrorCode is wasi:sockets/network.error-code.
type ErrorCode uint8

const (
	ErrorUnknown ErrorCode = iota
	ErrorAccessDenied
	ErrorNotSupported
	ErrorInvalidArgument
	ErrorOutOfMemory
	ErrorTimeout
	ErrorConcurrencyConflict
	ErrorNotInProgress
	ErrorWouldBlock
	ErrorInvalidState
	ErrorNewSocketLimit
	ErrorAddressNotBindable
	ErrorAddressInUse
	ErrorRemoteUnreachable
	ErrorConnectionRefused
	ErrorConnectionReset
	ErrorConnectionAborted
	ErrorDatagramTooLarge
	ErrorNameUnresolvable
	ErrorTemporaryResolverFailure
	ErrorPermanentResolverFailure
)

var errorCodeNames = [...]string{
	"unknown",
	"access-denied",
	"not-supported",
	"invalid-argument",
	"out-of-memory",
	"timeout",
	"concurrency-conflict",
	"not-in-progress",
	"would-block",
	"invalid-state",
	"new-socket-limit",
	"address-not-bindable",
	"address-in-use",
	"remote-unreachable",
	"connection-refused",
	"connection-reset",
	"connection-aborted",
	"datagram-too-large",
	"name-unresolvable",
	"temporary-resolver-failure",
	"permanent-resolver-failure",
}

// String returns the WIT case name.
func (c ErrorCode) String() string {
	if int(c) < len(errorCodeNames) {
		return errorCodeNames[c]
	}
	return "unknown"
}

// NetworkError is a socket failure with its WIT error code. Cause holds the
// platform error when there is one.
type NetworkError struct {
	Cause error
	Code  ErrorCode
}

func newError(code ErrorCode) *NetworkError {
	return &NetworkError{Code: code}
}

func (e *NetworkError) Error() string {
	if e.Cause != nil {
		return "network error: " + e.Code.String() + ": " + e.Cause.Error()
	}
	return "network error: " + e.Code.String()
}

func (e *NetworkError) Unwrap() error { return e.Cause }

// Is matches another NetworkError by code, and iox.ErrWouldBlock for
// would-block.
func (e *NetworkError) Is(target error) bool {
	if target == iox.ErrWouldBlock {
		return e.Code == ErrorWouldBlock
	}
	t, ok := target.(*NetworkError)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is. They carry no cause.
var (
	ErrWouldBlock        = newError(ErrorWouldBlock)
	ErrNotInProgress     = newError(ErrorNotInProgress)
	ErrInvalidState      = newError(ErrorInvalidState)
	ErrInvalidArgument   = newError(ErrorInvalidArgument)
	ErrConnectionRefused = newError(ErrorConnectionRefused)
	ErrAddressInUse      = newError(ErrorAddressInUse)
	ErrDatagramTooLarge  = newError(ErrorDatagramTooLarge)
	ErrNameUnresolvable  = newError(ErrorNameUnresolvable)
)
