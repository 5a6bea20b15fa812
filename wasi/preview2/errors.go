package preview2

import (
	"errors"

	"code.hybscloud.com/iox"

	werrors "github.com/wippyai/wasm-boundary/errors"
)

var (
	// ErrEndOfStream is returned once the producer side of a stream has
	// finished and every buffered byte has been consumed.
	ErrEndOfStream = &werrors.Error{Phase: werrors.PhaseIO, Kind: werrors.KindEndOfStream, Detail: "end of stream"}

	// ErrStreamClosed is returned by operations on a stream after Close.
	ErrStreamClosed = &werrors.Error{Phase: werrors.PhaseIO, Kind: werrors.KindClosed, Detail: "stream closed"}

	// ErrWouldBlock reports that a non-blocking operation cannot make
	// progress yet. It unwraps to iox.ErrWouldBlock.
	ErrWouldBlock = &werrors.Error{Phase: werrors.PhaseIO, Kind: werrors.KindWouldBlock, Cause: iox.ErrWouldBlock}
)

// StreamError is the error half of a wasi:io stream result. Closed maps to
// stream-error::closed; otherwise the last operation failed with Cause.
type StreamError struct {
	Cause  error
	Closed bool
}

func (e *StreamError) Error() string {
	if e.Closed {
		return "stream closed"
	}
	if e.Cause == nil {
		return "stream error"
	}
	return "stream error: " + e.Cause.Error()
}

func (e *StreamError) Unwrap() error { return e.Cause }

// NewStreamError wraps a transport failure.
func NewStreamError(cause error) *StreamError {
	return &StreamError{Cause: cause}
}

// ToStreamError folds a stream operation error into its WIT shape. End of
// stream and local close both surface as closed.
func ToStreamError(err error) *StreamError {
	if err == nil {
		return nil
	}
	var se *StreamError
	if errors.As(err, &se) {
		return se
	}
	if errors.Is(err, ErrEndOfStream) || errors.Is(err, ErrStreamClosed) {
		return &StreamError{Closed: true}
	}
	return &StreamError{Cause: err}
}

// IsWouldBlock reports whether err means "try again after polling".
func IsWouldBlock(err error) bool {
	return errors.Is(err, iox.ErrWouldBlock)
}
