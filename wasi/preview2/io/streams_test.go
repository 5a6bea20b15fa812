package io

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/wasm-boundary/wasi/preview2"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// safeBuffer is a bytes.Buffer usable from the pump goroutine and the test.
type safeBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// gateWriter blocks every write until the gate is opened.
type gateWriter struct {
	gate chan struct{}
	safeBuffer
}

func (w *gateWriter) Write(p []byte) (int, error) {
	<-w.gate
	return w.safeBuffer.Write(p)
}

type failingWriter struct{ err error }

func (w failingWriter) Write([]byte) (int, error) { return 0, w.err }

func TestInputStream_ReadEmpty(t *testing.T) {
	r, w := NewPipe(DefaultConfig())
	defer w.Close()
	defer r.Close()

	data, err := r.Read(10)
	require.NoError(t, err)
	assert.Empty(t, data)
	assert.False(t, r.Subscribe().Ready())
}

func TestInputStream_DelayedData(t *testing.T) {
	ctx := testContext(t)
	r, w := NewPipe(DefaultConfig())
	defer r.Close()

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = w.BlockingWriteAndFlush(ctx, []byte("late"))
	}()

	data, err := r.BlockingRead(ctx, 64)
	require.NoError(t, err)
	assert.Equal(t, "late", string(data))
}

func TestInputStream_EndOfStream(t *testing.T) {
	ctx := testContext(t)
	r := NewInputStream(strings.NewReader("abc"), DefaultConfig())
	defer r.Close()

	data, err := r.BlockingRead(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "ab", string(data))

	data, err = r.BlockingRead(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "c", string(data))

	_, err = r.BlockingRead(ctx, 10)
	assert.ErrorIs(t, err, preview2.ErrEndOfStream)
	_, err = r.Read(10)
	assert.ErrorIs(t, err, preview2.ErrEndOfStream)
	assert.NotErrorIs(t, err, preview2.ErrStreamClosed)
}

func TestInputStream_TransportError(t *testing.T) {
	ctx := testContext(t)
	boom := errors.New("connection reset")
	r := NewInputStream(iotest.ErrReader(boom), DefaultConfig())
	defer r.Close()

	_, err := r.BlockingRead(ctx, 10)
	var se *preview2.StreamError
	require.ErrorAs(t, err, &se)
	assert.False(t, se.Closed)
	assert.ErrorIs(t, err, boom)
}

func TestInputStream_Close(t *testing.T) {
	r, w := NewPipe(DefaultConfig())
	defer w.Close()

	p := r.Subscribe()
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	assert.True(t, p.Ready(), "closed stream resolves its pollables")
	_, err := r.Read(1)
	assert.ErrorIs(t, err, preview2.ErrStreamClosed)
	_, err = r.Skip(1)
	assert.ErrorIs(t, err, preview2.ErrStreamClosed)
	_, err = r.BlockingRead(testContext(t), 1)
	assert.ErrorIs(t, err, preview2.ErrStreamClosed)
}

func TestInputStream_Backpressure(t *testing.T) {
	ctx := testContext(t)
	cfg := Config{InputBufferSize: 16, ReadChunkSize: 8, OutputBufferSize: 64}
	src := strings.NewReader(strings.Repeat("x", 100))
	r := NewInputStream(src, cfg)
	defer r.Close()

	require.NoError(t, preview2.Block(ctx, r.Subscribe()))
	time.Sleep(20 * time.Millisecond)
	assert.LessOrEqual(t, r.Buffered(), 16+8)

	var total int
	for {
		data, err := r.BlockingRead(ctx, 5)
		if errors.Is(err, preview2.ErrEndOfStream) {
			break
		}
		require.NoError(t, err)
		total += len(data)
	}
	assert.Equal(t, 100, total)
}

func TestOutputStream_PartialWrite(t *testing.T) {
	dst := &gateWriter{gate: make(chan struct{})}
	w := NewOutputStream(dst, Config{OutputBufferSize: 8, ReadChunkSize: 4, InputBufferSize: 8})
	defer w.Close()

	n, err := w.Write([]byte("0123456789abcdef"))
	require.NoError(t, err)
	assert.Equal(t, uint64(8), n)

	permit, err := w.CheckWrite()
	require.NoError(t, err)
	assert.Zero(t, permit)
	assert.False(t, w.Subscribe().Ready())

	close(dst.gate)
	ctx := testContext(t)
	require.NoError(t, w.BlockingFlush(ctx))
	assert.Equal(t, "01234567", dst.String())

	permit, err = w.CheckWrite()
	require.NoError(t, err)
	assert.Equal(t, uint64(8), permit)
}

func TestOutputStream_BlockingWriteAndFlush(t *testing.T) {
	ctx := testContext(t)
	dst := &safeBuffer{}
	w := NewOutputStream(dst, Config{OutputBufferSize: 1024, ReadChunkSize: 256, InputBufferSize: 1024})
	defer w.Close()

	payload := bytes.Repeat([]byte("0123456789"), 10000)
	require.NoError(t, w.BlockingWriteAndFlush(ctx, payload))
	assert.Equal(t, string(payload), dst.String())

	require.NoError(t, w.BlockingWriteZeroesAndFlush(ctx, 3))
	assert.True(t, strings.HasSuffix(dst.String(), "\x00\x00\x00"))
}

func TestOutputStream_WriteError(t *testing.T) {
	ctx := testContext(t)
	boom := errors.New("broken pipe")
	w := NewOutputStream(failingWriter{err: boom}, DefaultConfig())
	defer w.Close()

	n, err := w.Write([]byte("x"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	err = w.BlockingFlush(ctx)
	var se *preview2.StreamError
	require.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, boom)

	_, err = w.Write([]byte("y"))
	assert.ErrorAs(t, err, &se)
	_, err = w.CheckWrite()
	assert.ErrorAs(t, err, &se)
}

func TestOutputStream_Close(t *testing.T) {
	dst := &safeBuffer{}
	w := NewOutputStream(dst, DefaultConfig())

	_, err := w.Write([]byte("kept"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	select {
	case <-w.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("pump did not exit")
	}
	assert.Equal(t, "kept", dst.String(), "accepted data is delivered before close")

	_, err = w.Write([]byte("x"))
	assert.ErrorIs(t, err, preview2.ErrStreamClosed)
	_, err = w.CheckWrite()
	assert.ErrorIs(t, err, preview2.ErrStreamClosed)
	assert.ErrorIs(t, w.Flush(), preview2.ErrStreamClosed)
}

func TestPipe_CloseEndsReader(t *testing.T) {
	ctx := testContext(t)
	r, w := NewPipe(DefaultConfig())
	defer r.Close()

	require.NoError(t, w.BlockingWriteAndFlush(ctx, []byte("bye")))
	require.NoError(t, w.Close())

	data, err := r.BlockingRead(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "bye", string(data))
	_, err = r.BlockingRead(ctx, 10)
	assert.ErrorIs(t, err, preview2.ErrEndOfStream)
}

func TestOutputStream_Splice(t *testing.T) {
	ctx := testContext(t)
	r, w := NewPipe(DefaultConfig())
	defer r.Close()
	dst := &safeBuffer{}
	out := NewOutputStream(dst, DefaultConfig())
	defer out.Close()

	n, err := out.Splice(r, 10)
	require.NoError(t, err)
	assert.Zero(t, n, "nothing buffered yet")

	require.NoError(t, w.BlockingWriteAndFlush(ctx, []byte("splice")))
	n, err = out.BlockingSplice(ctx, r, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), n)
	require.NoError(t, out.BlockingFlush(ctx))
	assert.Equal(t, "splice", dst.String())
}

func TestPoll_Streams(t *testing.T) {
	ctx := testContext(t)
	r1, w1 := NewPipe(DefaultConfig())
	r2, w2 := NewPipe(DefaultConfig())
	defer r1.Close()
	defer r2.Close()
	defer w1.Close()
	defer w2.Close()

	require.NoError(t, w2.BlockingWriteAndFlush(ctx, []byte("x")))
	ready, err := preview2.Poll(ctx, []preview2.Pollable{r1.Subscribe(), r2.Subscribe()})
	require.NoError(t, err)
	assert.Equal(t, []uint32{1}, ready)

	require.NoError(t, r1.Close())
	ready, err = preview2.Poll(ctx, []preview2.Pollable{r1.Subscribe(), r2.Subscribe()})
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1}, ready)
}
