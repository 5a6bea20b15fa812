package io

import (
	"github.com/wippyai/wasm-boundary/boundary"
	"github.com/wippyai/wasm-boundary/transcoder"
	"github.com/wippyai/wasm-boundary/wasi/preview2"
)

const (
	StreamsInterface = "wasi:io/streams@0.2.8"
	PollInterface    = "wasi:io/poll@0.2.8"
	ErrorInterface   = "wasi:io/error@0.2.8"
)

// WIT types shared with packages that hand out streams and pollables.
var (
	InputStreamType  = boundary.Resource("input-stream")
	OutputStreamType = boundary.Resource("output-stream")
	PollableType     = boundary.Resource("pollable")
	ErrorType        = boundary.Resource("error")

	StreamErrorType = boundary.Variant("stream-error",
		boundary.Case("last-operation-failed", boundary.Own(ErrorType)),
		boundary.Case("closed", nil),
	)
)

// streamErrorValue converts err to a stream-error value. A failed operation
// hands the guest a new error resource holding the cause.
func streamErrorValue(resources *preview2.ResourceTable, se *preview2.StreamError) transcoder.Value {
	if se.Closed {
		return transcoder.Case("closed", nil)
	}
	var res *preview2.ErrorResource
	if se.Cause != nil {
		res = preview2.NewErrorResourceFrom(se.Cause)
	} else {
		res = preview2.NewErrorResource("stream error")
	}
	return transcoder.Case("last-operation-failed", transcoder.Handle(resources.Add(res)))
}

// streamResult builds result<T, stream-error> from an operation's outcome.
func streamResult(resources *preview2.ResourceTable, ok transcoder.Value, se *preview2.StreamError) transcoder.Value {
	if se != nil {
		return transcoder.Err(streamErrorValue(resources, se))
	}
	return transcoder.Ok(ok)
}
