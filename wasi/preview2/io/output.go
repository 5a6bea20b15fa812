package io

import (
	"bytes"
	"context"
	goio "io"
	"sync"

	"code.hybscloud.com/atomix"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-boundary/wasi/preview2"
)

// OutputStream is a wasi:io output-stream. Write copies into a bounded
// buffer that a background goroutine delivers to the destination, so it
// never blocks and may accept fewer bytes than offered.
type OutputStream struct {
	dst     goio.Writer
	err     error
	signal  preview2.Signal // space freed, flush progress, failure or close
	wake    preview2.Signal // pending data for the pump
	done    chan struct{}
	buf     bytes.Buffer
	cfg     Config
	closed  atomix.Uint32
	mu      sync.Mutex
	writing bool
}

// NewOutputStream starts delivering to dst. If dst is an io.Closer it is
// closed after the stream is closed and its buffer drained.
func NewOutputStream(dst goio.Writer, cfg Config) *OutputStream {
	s := &OutputStream{dst: dst, cfg: cfg.withDefaults(), done: make(chan struct{})}
	go s.pump()
	return s
}

func (s *OutputStream) Type() preview2.ResourceType { return preview2.ResourceOutputStream }

// Drop closes the stream.
func (s *OutputStream) Drop() { _ = s.Close() }

func (s *OutputStream) isClosed() bool { return s.closed.Load() != 0 }

func (s *OutputStream) pump() {
	defer close(s.done)
	defer s.signal.Notify()
	for {
		s.mu.Lock()
		for s.buf.Len() == 0 && !s.isClosed() {
			ch := s.wake.C()
			s.mu.Unlock()
			<-ch
			s.mu.Lock()
		}
		if s.buf.Len() == 0 {
			s.mu.Unlock()
			if c, ok := s.dst.(goio.Closer); ok {
				if err := c.Close(); err != nil {
					Logger().Debug("output close failed", zap.Error(err))
				}
			}
			return
		}
		n := s.buf.Len()
		if n > s.cfg.ReadChunkSize {
			n = s.cfg.ReadChunkSize
		}
		chunk := append([]byte(nil), s.buf.Bytes()[:n]...)
		s.writing = true
		s.mu.Unlock()

		written, err := s.dst.Write(chunk)

		s.mu.Lock()
		s.buf.Next(written)
		s.writing = false
		if err != nil {
			s.err = err
			s.buf.Reset()
		}
		s.mu.Unlock()
		s.signal.Notify()
		if err != nil {
			Logger().Debug("output pump stopped", zap.Error(err))
			return
		}
	}
}

// failure reports the error state under s.mu.
func (s *OutputStream) failure() error {
	if s.err != nil {
		return preview2.NewStreamError(s.err)
	}
	return nil
}

// CheckWrite returns how many bytes Write would accept right now.
func (s *OutputStream) CheckWrite() (uint64, error) {
	if s.isClosed() {
		return 0, preview2.ErrStreamClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(); err != nil {
		return 0, err
	}
	return uint64(s.cfg.OutputBufferSize - s.buf.Len()), nil
}

// Write accepts as much of p as fits in the buffer and returns the count.
func (s *OutputStream) Write(p []byte) (uint64, error) {
	if s.isClosed() {
		return 0, preview2.ErrStreamClosed
	}
	s.mu.Lock()
	if err := s.failure(); err != nil {
		s.mu.Unlock()
		return 0, err
	}
	room := s.cfg.OutputBufferSize - s.buf.Len()
	if len(p) > room {
		p = p[:room]
	}
	s.buf.Write(p)
	s.mu.Unlock()
	if len(p) > 0 {
		s.wake.Notify()
	}
	return uint64(len(p)), nil
}

// WriteZeroes writes up to n zero bytes and returns how many were accepted.
func (s *OutputStream) WriteZeroes(n uint64) (uint64, error) {
	permit, err := s.CheckWrite()
	if err != nil {
		return 0, err
	}
	if n > permit {
		n = permit
	}
	return s.Write(make([]byte, n))
}

// Flush starts delivering buffered data. Delivery is already continuous, so
// this only reports a failed or closed stream.
func (s *OutputStream) Flush() error {
	if s.isClosed() {
		return preview2.ErrStreamClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure()
}

func (s *OutputStream) flushed() bool {
	if s.isClosed() {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return (s.buf.Len() == 0 && !s.writing) || s.err != nil
}

// BlockingFlush waits until every accepted byte reached the destination.
func (s *OutputStream) BlockingFlush(ctx context.Context) error {
	if err := s.Flush(); err != nil {
		return err
	}
	if err := preview2.Block(ctx, preview2.NewFuncPollable(s.flushed, &s.signal)); err != nil {
		return err
	}
	return s.Flush()
}

// BlockingWriteAndFlush writes all of p, waiting for buffer space as
// needed, then flushes.
func (s *OutputStream) BlockingWriteAndFlush(ctx context.Context, p []byte) error {
	for len(p) > 0 {
		n, err := s.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
		if len(p) == 0 {
			break
		}
		if err := preview2.Block(ctx, s.Subscribe()); err != nil {
			return err
		}
	}
	return s.BlockingFlush(ctx)
}

func (s *OutputStream) BlockingWriteZeroesAndFlush(ctx context.Context, n uint64) error {
	if n > preview2.MaxAllocationSize {
		return preview2.NewStreamError(goio.ErrShortWrite)
	}
	return s.BlockingWriteAndFlush(ctx, make([]byte, n))
}

// Splice moves up to n bytes that src has buffered into this stream without
// blocking on either side.
func (s *OutputStream) Splice(src *InputStream, n uint64) (uint64, error) {
	permit, err := s.CheckWrite()
	if err != nil {
		return 0, err
	}
	if n > permit {
		n = permit
	}
	data, err := src.Read(n)
	if err != nil {
		return 0, err
	}
	return s.Write(data)
}

// BlockingSplice waits for src to have data and this stream to have room.
func (s *OutputStream) BlockingSplice(ctx context.Context, src *InputStream, n uint64) (uint64, error) {
	if err := preview2.Block(ctx, s.Subscribe()); err != nil {
		return 0, err
	}
	permit, err := s.CheckWrite()
	if err != nil {
		return 0, err
	}
	if n > permit {
		n = permit
	}
	data, err := src.BlockingRead(ctx, n)
	if err != nil {
		return 0, err
	}
	return s.Write(data)
}

func (s *OutputStream) ready() bool {
	if s.isClosed() {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Len() < s.cfg.OutputBufferSize || s.err != nil
}

// Subscribe returns a pollable that is ready when CheckWrite would permit
// at least one byte, or the stream failed or closed.
func (s *OutputStream) Subscribe() preview2.Pollable {
	return preview2.NewFuncPollable(s.ready, &s.signal)
}

// Close is idempotent. Data already accepted is still delivered before the
// destination is closed.
func (s *OutputStream) Close() error {
	if s.closed.Add(1) != 1 {
		return nil
	}
	s.wake.Notify()
	s.signal.Notify()
	Logger().Debug("output stream closed")
	return nil
}

// Done is closed once the pump has delivered everything and exited.
func (s *OutputStream) Done() <-chan struct{} { return s.done }
