package io

import (
	"bytes"
	"context"
	"errors"
	goio "io"
	"sync"

	"code.hybscloud.com/atomix"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-boundary/wasi/preview2"
)

// InputStream is a wasi:io input-stream fed by a background goroutine that
// reads the source into a bounded buffer. Read never blocks.
type InputStream struct {
	src     goio.Reader
	err     error
	signal  preview2.Signal // data, end of stream or close
	drained preview2.Signal // buffer space freed
	buf     bytes.Buffer
	cfg     Config
	closed  atomix.Uint32
	mu      sync.Mutex
}

// NewInputStream starts pumping src. If src is an io.Closer it is closed
// when the stream is.
func NewInputStream(src goio.Reader, cfg Config) *InputStream {
	s := &InputStream{src: src, cfg: cfg.withDefaults()}
	go s.pump()
	return s
}

func (s *InputStream) Type() preview2.ResourceType { return preview2.ResourceInputStream }

// Drop closes the stream.
func (s *InputStream) Drop() { _ = s.Close() }

func (s *InputStream) pump() {
	chunk := make([]byte, s.cfg.ReadChunkSize)
	for {
		s.mu.Lock()
		for s.buf.Len() >= s.cfg.InputBufferSize && !s.isClosed() {
			ch := s.drained.C()
			s.mu.Unlock()
			<-ch
			s.mu.Lock()
		}
		s.mu.Unlock()
		if s.isClosed() {
			return
		}

		n, err := s.src.Read(chunk)
		s.mu.Lock()
		if n > 0 {
			s.buf.Write(chunk[:n])
		}
		if err != nil {
			s.err = err
		}
		s.mu.Unlock()
		if n > 0 || err != nil {
			s.signal.Notify()
		}
		if err != nil {
			if !errors.Is(err, goio.EOF) && !s.isClosed() {
				Logger().Debug("input pump stopped", zap.Error(err))
			}
			return
		}
	}
}

func (s *InputStream) isClosed() bool { return s.closed.Load() != 0 }

// Read returns up to n buffered bytes. With nothing buffered on an open
// stream it returns an empty slice and no error. Once the source is
// exhausted and the buffer drained it returns ErrEndOfStream; a source
// failure surfaces as a *preview2.StreamError carrying the cause.
func (s *InputStream) Read(n uint64) ([]byte, error) {
	if s.isClosed() {
		return nil, preview2.ErrStreamClosed
	}
	if n > preview2.MaxAllocationSize {
		n = preview2.MaxAllocationSize
	}

	s.mu.Lock()
	if s.buf.Len() == 0 {
		err := s.err
		s.mu.Unlock()
		switch {
		case err == nil:
			return []byte{}, nil
		case errors.Is(err, goio.EOF):
			return nil, preview2.ErrEndOfStream
		default:
			return nil, preview2.NewStreamError(err)
		}
	}
	if uint64(s.buf.Len()) < n {
		n = uint64(s.buf.Len())
	}
	out := make([]byte, n)
	copy(out, s.buf.Next(int(n)))
	s.mu.Unlock()

	s.drained.Notify()
	return out, nil
}

// BlockingRead waits until at least one byte, end of stream or an error is
// available, then behaves like Read.
func (s *InputStream) BlockingRead(ctx context.Context, n uint64) ([]byte, error) {
	for {
		data, err := s.Read(n)
		if err != nil || len(data) > 0 || n == 0 {
			return data, err
		}
		if err := preview2.Block(ctx, s.Subscribe()); err != nil {
			return nil, err
		}
	}
}

// Skip discards up to n buffered bytes and reports how many.
func (s *InputStream) Skip(n uint64) (uint64, error) {
	data, err := s.Read(n)
	return uint64(len(data)), err
}

func (s *InputStream) BlockingSkip(ctx context.Context, n uint64) (uint64, error) {
	data, err := s.BlockingRead(ctx, n)
	return uint64(len(data)), err
}

// Buffered returns the number of bytes ready to read.
func (s *InputStream) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Len()
}

func (s *InputStream) ready() bool {
	if s.isClosed() {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Len() > 0 || s.err != nil
}

// Subscribe returns a pollable that is ready when Read would return data,
// end of stream or an error, or once the stream is closed.
func (s *InputStream) Subscribe() preview2.Pollable {
	return preview2.NewFuncPollable(s.ready, &s.signal)
}

// Close is idempotent. Buffered data is discarded.
func (s *InputStream) Close() error {
	if s.closed.Add(1) != 1 {
		return nil
	}
	var err error
	if c, ok := s.src.(goio.Closer); ok {
		err = c.Close()
	}
	s.mu.Lock()
	s.buf.Reset()
	s.mu.Unlock()
	s.signal.Notify()
	s.drained.Notify()
	Logger().Debug("input stream closed")
	return err
}
