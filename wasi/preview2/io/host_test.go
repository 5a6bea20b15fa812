package io

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/wasm-boundary/boundary"
	"github.com/wippyai/wasm-boundary/transcoder"
	"github.com/wippyai/wasm-boundary/wasi/preview2"
)

func newHostSurface(t *testing.T) (*boundary.Surface, *preview2.ResourceTable) {
	t.Helper()
	resources := preview2.NewResourceTable()
	s := boundary.NewSurface(boundary.WithResources(resources.Table()))
	require.NoError(t, NewHost(resources).Register(s))
	t.Cleanup(resources.Clear)
	return s, resources
}

func okBytes(t *testing.T, v transcoder.Value) string {
	t.Helper()
	r, ok := v.(transcoder.Result)
	require.True(t, ok, "want result, got %s", transcoder.Format(v))
	require.False(t, r.IsErr, "want ok, got %s", transcoder.Format(v))
	b, ok := r.Value.(transcoder.List).Bytes()
	require.True(t, ok)
	return string(b)
}

func TestStreamsHost_PipeThroughSurface(t *testing.T) {
	ctx := testContext(t)
	s, resources := newHostSurface(t)
	r, w := NewPipe(DefaultConfig())
	hr := transcoder.Handle(resources.Add(r))
	hw := transcoder.Handle(resources.Add(w))

	out, err := s.Call(ctx, "[method]input-stream.read", hr, transcoder.U64(10))
	require.NoError(t, err)
	assert.Equal(t, "", okBytes(t, out))

	out, err = s.Call(ctx, "[method]output-stream.check-write", hw)
	require.NoError(t, err)
	assert.Equal(t, transcoder.Ok(transcoder.U64(DefaultConfig().OutputBufferSize)), out)

	out, err = s.Call(ctx, "[method]output-stream.write", hw, transcoder.BytesOf([]byte("hi")))
	require.NoError(t, err)
	assert.Equal(t, transcoder.Ok(nil), out)

	out, err = s.Call(ctx, "[method]input-stream.blocking-read", hr, transcoder.U64(10))
	require.NoError(t, err)
	assert.Equal(t, "hi", okBytes(t, out))

	_, err = s.Call(ctx, "[resource-drop]output-stream", hw)
	require.NoError(t, err)

	out, err = s.Call(ctx, "[method]input-stream.blocking-read", hr, transcoder.U64(10))
	require.NoError(t, err)
	assert.Equal(t, transcoder.Err(transcoder.Case("closed", nil)), out)
}

func TestPollHost_ThroughSurface(t *testing.T) {
	ctx := testContext(t)
	s, resources := newHostSurface(t)
	r1, w1 := NewPipe(DefaultConfig())
	r2, w2 := NewPipe(DefaultConfig())
	h1 := resources.Add(r1)
	h2 := resources.Add(r2)
	resources.Add(w1)
	resources.Add(w2)

	p1, err := s.Call(ctx, "[method]input-stream.subscribe", transcoder.Handle(h1))
	require.NoError(t, err)
	p2, err := s.Call(ctx, "[method]input-stream.subscribe", transcoder.Handle(h2))
	require.NoError(t, err)

	ready, err := s.Call(ctx, "[method]pollable.ready", p2)
	require.NoError(t, err)
	assert.Equal(t, transcoder.Bool(false), ready)

	require.NoError(t, w2.BlockingWriteAndFlush(ctx, []byte("data")))
	out, err := s.Call(ctx, "poll", transcoder.List{p1, p2})
	require.NoError(t, err)
	assert.Equal(t, transcoder.List{transcoder.U32(1)}, out)

	_, err = s.Call(ctx, "[method]pollable.block", p2)
	require.NoError(t, err)

	_, err = s.Call(ctx, "poll", transcoder.List{})
	assert.Error(t, err, "empty poll list")

	// A pollable whose handle was dropped counts as ready.
	_, err = s.Call(ctx, "[resource-drop]pollable", p1)
	require.NoError(t, err)
	out, err = s.Call(ctx, "poll", transcoder.List{p1})
	require.NoError(t, err)
	assert.Equal(t, transcoder.List{transcoder.U32(0)}, out)
}

func TestStreamsHost_LastOperationFailed(t *testing.T) {
	ctx := testContext(t)
	s, resources := newHostSurface(t)
	boom := errors.New("disk on fire")
	hw := transcoder.Handle(resources.Add(NewOutputStream(failingWriter{err: boom}, DefaultConfig())))

	out, err := s.Call(ctx, "[method]output-stream.write", hw, transcoder.BytesOf([]byte("x")))
	require.NoError(t, err)
	assert.Equal(t, transcoder.Ok(nil), out)

	out, err = s.Call(ctx, "[method]output-stream.blocking-flush", hw)
	require.NoError(t, err)
	res := out.(transcoder.Result)
	require.True(t, res.IsErr)
	failed := res.Value.(transcoder.Variant)
	require.Equal(t, "last-operation-failed", failed.Case)

	msg, err := s.Call(ctx, "[method]error.to-debug-string", failed.Payload)
	require.NoError(t, err)
	assert.Contains(t, string(msg.(transcoder.String)), "disk on fire")

	_, err = s.Call(ctx, "[resource-drop]error", failed.Payload)
	require.NoError(t, err)
	_, ok := resources.Get(uint32(failed.Payload.(transcoder.Handle)))
	assert.False(t, ok)
}

func TestStreamsHost_WriteOverBudget(t *testing.T) {
	ctx := testContext(t)
	s, resources := newHostSurface(t)
	cfg := Config{OutputBufferSize: 4, ReadChunkSize: 4, InputBufferSize: 4}
	hw := transcoder.Handle(resources.Add(NewOutputStream(&gateWriter{gate: make(chan struct{})}, cfg)))

	out, err := s.Call(ctx, "[method]output-stream.write", hw, transcoder.BytesOf([]byte("too long")))
	require.NoError(t, err)
	res := out.(transcoder.Result)
	require.True(t, res.IsErr)
	assert.Equal(t, "last-operation-failed", res.Value.(transcoder.Variant).Case)

	out, err = s.Call(ctx, "[method]output-stream.write-zeroes", hw, transcoder.U64(4))
	require.NoError(t, err)
	assert.Equal(t, transcoder.Ok(nil), out)
}

func TestStreamsHost_DirectCalls(t *testing.T) {
	ctx := context.Background()
	resources := preview2.NewResourceTable()
	host := NewStreamsHost(resources)

	_, se := host.MethodInputStreamRead(ctx, 9999, 1)
	require.NotNil(t, se)
	assert.True(t, se.Closed)

	handle := host.MethodInputStreamSubscribe(ctx, 9999)
	p, ok := preview2.Lookup[preview2.Pollable](resources, handle)
	require.True(t, ok)
	assert.True(t, p.Ready())

	errHost := NewErrorHost(resources)
	assert.Equal(t, "unknown error", errHost.MethodErrorToDebugString(ctx, 9999))
}
