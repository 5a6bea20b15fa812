package io

import (
	"context"
	"fmt"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-boundary/boundary"
	"github.com/wippyai/wasm-boundary/transcoder"
	"github.com/wippyai/wasm-boundary/wasi/preview2"
)

type StreamsHost struct {
	resources *preview2.ResourceTable
}

func NewStreamsHost(resources *preview2.ResourceTable) *StreamsHost {
	return &StreamsHost{resources: resources}
}

func (h *StreamsHost) Namespace() string {
	return StreamsInterface
}

var closedErr = &preview2.StreamError{Closed: true}

func (h *StreamsHost) input(self uint32) (*InputStream, *preview2.StreamError) {
	s, ok := preview2.Lookup[*InputStream](h.resources, self)
	if !ok {
		return nil, closedErr
	}
	return s, nil
}

func (h *StreamsHost) output(self uint32) (*OutputStream, *preview2.StreamError) {
	s, ok := preview2.Lookup[*OutputStream](h.resources, self)
	if !ok {
		return nil, closedErr
	}
	return s, nil
}

func (h *StreamsHost) MethodInputStreamRead(_ context.Context, self uint32, length uint64) ([]byte, *preview2.StreamError) {
	s, se := h.input(self)
	if se != nil {
		return nil, se
	}
	data, err := s.Read(length)
	return data, preview2.ToStreamError(err)
}

func (h *StreamsHost) MethodInputStreamBlockingRead(ctx context.Context, self uint32, length uint64) ([]byte, *preview2.StreamError) {
	s, se := h.input(self)
	if se != nil {
		return nil, se
	}
	data, err := s.BlockingRead(ctx, length)
	return data, preview2.ToStreamError(err)
}

func (h *StreamsHost) MethodInputStreamSkip(_ context.Context, self uint32, length uint64) (uint64, *preview2.StreamError) {
	s, se := h.input(self)
	if se != nil {
		return 0, se
	}
	n, err := s.Skip(length)
	return n, preview2.ToStreamError(err)
}

func (h *StreamsHost) MethodInputStreamBlockingSkip(ctx context.Context, self uint32, length uint64) (uint64, *preview2.StreamError) {
	s, se := h.input(self)
	if se != nil {
		return 0, se
	}
	n, err := s.BlockingSkip(ctx, length)
	return n, preview2.ToStreamError(err)
}

// MethodInputStreamSubscribe returns a pollable handle. A stream that no
// longer exists yields a pollable that is already ready.
func (h *StreamsHost) MethodInputStreamSubscribe(_ context.Context, self uint32) uint32 {
	s, se := h.input(self)
	if se != nil {
		return h.resources.Add(preview2.ResolvedPollable())
	}
	return h.resources.Add(s.Subscribe())
}

func (h *StreamsHost) MethodOutputStreamCheckWrite(_ context.Context, self uint32) (uint64, *preview2.StreamError) {
	s, se := h.output(self)
	if se != nil {
		return 0, se
	}
	n, err := s.CheckWrite()
	return n, preview2.ToStreamError(err)
}

// MethodOutputStreamWrite follows wasi:io: contents must fit in the budget
// reported by check-write, otherwise nothing is written and the operation
// fails.
func (h *StreamsHost) MethodOutputStreamWrite(_ context.Context, self uint32, contents []byte) *preview2.StreamError {
	s, se := h.output(self)
	if se != nil {
		return se
	}
	permit, err := s.CheckWrite()
	if err != nil {
		return preview2.ToStreamError(err)
	}
	if uint64(len(contents)) > permit {
		return preview2.NewStreamError(fmt.Errorf("write of %d bytes exceeds check-write budget %d", len(contents), permit))
	}
	_, err = s.Write(contents)
	return preview2.ToStreamError(err)
}

func (h *StreamsHost) MethodOutputStreamBlockingWriteAndFlush(ctx context.Context, self uint32, contents []byte) *preview2.StreamError {
	s, se := h.output(self)
	if se != nil {
		return se
	}
	return preview2.ToStreamError(s.BlockingWriteAndFlush(ctx, contents))
}

func (h *StreamsHost) MethodOutputStreamFlush(_ context.Context, self uint32) *preview2.StreamError {
	s, se := h.output(self)
	if se != nil {
		return se
	}
	return preview2.ToStreamError(s.Flush())
}

func (h *StreamsHost) MethodOutputStreamBlockingFlush(ctx context.Context, self uint32) *preview2.StreamError {
	s, se := h.output(self)
	if se != nil {
		return se
	}
	return preview2.ToStreamError(s.BlockingFlush(ctx))
}

func (h *StreamsHost) MethodOutputStreamSubscribe(_ context.Context, self uint32) uint32 {
	s, se := h.output(self)
	if se != nil {
		return h.resources.Add(preview2.ResolvedPollable())
	}
	return h.resources.Add(s.Subscribe())
}

func (h *StreamsHost) MethodOutputStreamWriteZeroes(_ context.Context, self uint32, length uint64) *preview2.StreamError {
	s, se := h.output(self)
	if se != nil {
		return se
	}
	permit, err := s.CheckWrite()
	if err != nil {
		return preview2.ToStreamError(err)
	}
	if length > permit {
		return preview2.NewStreamError(fmt.Errorf("write-zeroes of %d bytes exceeds check-write budget %d", length, permit))
	}
	_, err = s.WriteZeroes(length)
	return preview2.ToStreamError(err)
}

func (h *StreamsHost) MethodOutputStreamBlockingWriteZeroesAndFlush(ctx context.Context, self uint32, length uint64) *preview2.StreamError {
	s, se := h.output(self)
	if se != nil {
		return se
	}
	return preview2.ToStreamError(s.BlockingWriteZeroesAndFlush(ctx, length))
}

func (h *StreamsHost) MethodOutputStreamSplice(_ context.Context, self uint32, src uint32, length uint64) (uint64, *preview2.StreamError) {
	in, se := h.input(src)
	if se != nil {
		return 0, se
	}
	out, se := h.output(self)
	if se != nil {
		return 0, se
	}
	n, err := out.Splice(in, length)
	return n, preview2.ToStreamError(err)
}

func (h *StreamsHost) MethodOutputStreamBlockingSplice(ctx context.Context, self uint32, src uint32, length uint64) (uint64, *preview2.StreamError) {
	in, se := h.input(src)
	if se != nil {
		return 0, se
	}
	out, se := h.output(self)
	if se != nil {
		return 0, se
	}
	n, err := out.BlockingSplice(ctx, in, length)
	return n, preview2.ToStreamError(err)
}

func (h *StreamsHost) ResourceDropInputStream(_ context.Context, self uint32) {
	_ = h.resources.Remove(self)
}

func (h *StreamsHost) ResourceDropOutputStream(_ context.Context, self uint32) {
	_ = h.resources.Remove(self)
}

// Register adds the wasi:io/streams operations to s.
func (h *StreamsHost) Register(s *boundary.Surface) error {
	in := boundary.Borrow(InputStreamType)
	out := boundary.Borrow(OutputStreamType)
	bytesResult := boundary.Result(boundary.Bytes, StreamErrorType)
	countResult := boundary.Result(wit.U64{}, StreamErrorType)
	unitResult := boundary.Result(nil, StreamErrorType)

	readBytes := func(fn func(context.Context, uint32, uint64) ([]byte, *preview2.StreamError)) boundary.Handler {
		return func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
			data, se := fn(ctx, c.Handle(0), c.U64(1))
			return streamResult(h.resources, transcoder.BytesOf(data), se), nil
		}
	}
	count := func(fn func(context.Context, uint32, uint64) (uint64, *preview2.StreamError)) boundary.Handler {
		return func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
			n, se := fn(ctx, c.Handle(0), c.U64(1))
			return streamResult(h.resources, transcoder.U64(n), se), nil
		}
	}
	subscribe := func(fn func(context.Context, uint32) uint32) boundary.Handler {
		return func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
			return transcoder.Handle(fn(ctx, c.Handle(0))), nil
		}
	}
	writeBytes := func(fn func(context.Context, uint32, []byte) *preview2.StreamError) boundary.Handler {
		return func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
			return streamResult(h.resources, nil, fn(ctx, c.Handle(0), c.Bytes(1))), nil
		}
	}
	writeCount := func(fn func(context.Context, uint32, uint64) *preview2.StreamError) boundary.Handler {
		return func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
			return streamResult(h.resources, nil, fn(ctx, c.Handle(0), c.U64(1))), nil
		}
	}
	flush := func(fn func(context.Context, uint32) *preview2.StreamError) boundary.Handler {
		return func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
			return streamResult(h.resources, nil, fn(ctx, c.Handle(0))), nil
		}
	}
	splice := func(fn func(context.Context, uint32, uint32, uint64) (uint64, *preview2.StreamError)) boundary.Handler {
		return func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
			n, se := fn(ctx, c.Handle(0), c.Handle(1), c.U64(2))
			return streamResult(h.resources, transcoder.U64(n), se), nil
		}
	}
	drop := func(fn func(context.Context, uint32)) boundary.Handler {
		return func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
			fn(ctx, c.Handle(0))
			return nil, nil
		}
	}

	ops := []boundary.Operation{
		{Name: "[method]input-stream.read", Params: []wit.Type{in, wit.U64{}}, Result: bytesResult, Handler: readBytes(h.MethodInputStreamRead)},
		{Name: "[method]input-stream.blocking-read", Params: []wit.Type{in, wit.U64{}}, Result: bytesResult, Handler: readBytes(h.MethodInputStreamBlockingRead)},
		{Name: "[method]input-stream.skip", Params: []wit.Type{in, wit.U64{}}, Result: countResult, Handler: count(h.MethodInputStreamSkip)},
		{Name: "[method]input-stream.blocking-skip", Params: []wit.Type{in, wit.U64{}}, Result: countResult, Handler: count(h.MethodInputStreamBlockingSkip)},
		{Name: "[method]input-stream.subscribe", Params: []wit.Type{in}, Result: boundary.Own(PollableType), Handler: subscribe(h.MethodInputStreamSubscribe)},
		// Output stream methods
		{Name: "[method]output-stream.check-write", Params: []wit.Type{out}, Result: countResult, Handler: func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
			n, se := h.MethodOutputStreamCheckWrite(ctx, c.Handle(0))
			return streamResult(h.resources, transcoder.U64(n), se), nil
		}},
		{Name: "[method]output-stream.write", Params: []wit.Type{out, boundary.Bytes}, Result: unitResult, Handler: writeBytes(h.MethodOutputStreamWrite)},
		{Name: "[method]output-stream.blocking-write-and-flush", Params: []wit.Type{out, boundary.Bytes}, Result: unitResult, Handler: writeBytes(h.MethodOutputStreamBlockingWriteAndFlush)},
		{Name: "[method]output-stream.flush", Params: []wit.Type{out}, Result: unitResult, Handler: flush(h.MethodOutputStreamFlush)},
		{Name: "[method]output-stream.blocking-flush", Params: []wit.Type{out}, Result: unitResult, Handler: flush(h.MethodOutputStreamBlockingFlush)},
		{Name: "[method]output-stream.subscribe", Params: []wit.Type{out}, Result: boundary.Own(PollableType), Handler: subscribe(h.MethodOutputStreamSubscribe)},
		{Name: "[method]output-stream.write-zeroes", Params: []wit.Type{out, wit.U64{}}, Result: unitResult, Handler: writeCount(h.MethodOutputStreamWriteZeroes)},
		{Name: "[method]output-stream.blocking-write-zeroes-and-flush", Params: []wit.Type{out, wit.U64{}}, Result: unitResult, Handler: writeCount(h.MethodOutputStreamBlockingWriteZeroesAndFlush)},
		{Name: "[method]output-stream.splice", Params: []wit.Type{out, in, wit.U64{}}, Result: countResult, Handler: splice(h.MethodOutputStreamSplice)},
		{Name: "[method]output-stream.blocking-splice", Params: []wit.Type{out, in, wit.U64{}}, Result: countResult, Handler: splice(h.MethodOutputStreamBlockingSplice)},
		// Resource destructors
		{Name: "[resource-drop]input-stream", Params: []wit.Type{boundary.Own(InputStreamType)}, Handler: drop(h.ResourceDropInputStream)},
		{Name: "[resource-drop]output-stream", Params: []wit.Type{boundary.Own(OutputStreamType)}, Handler: drop(h.ResourceDropOutputStream)},
	}
	for _, op := range ops {
		op.Interface = StreamsInterface
		if err := s.Register(op); err != nil {
			return err
		}
	}
	return nil
}
