package clocks

import (
	"context"
	"time"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-boundary/boundary"
	"github.com/wippyai/wasm-boundary/transcoder"
	"github.com/wippyai/wasm-boundary/wasi/preview2"
	"github.com/wippyai/wasm-boundary/wasi/preview2/io"
)

// MonotonicClockHost measures instants in nanoseconds since the host was
// created.
type MonotonicClockHost struct {
	resources *preview2.ResourceTable
	startTime time.Time
}

func NewMonotonicClockHost(resources *preview2.ResourceTable) *MonotonicClockHost {
	return &MonotonicClockHost{
		resources: resources,
		startTime: time.Now(),
	}
}

func (h *MonotonicClockHost) Namespace() string {
	return MonotonicClockInterface
}

func (h *MonotonicClockHost) Now(_ context.Context) uint64 {
	return uint64(time.Since(h.startTime).Nanoseconds())
}

func (h *MonotonicClockHost) Resolution(_ context.Context) uint64 {
	return 1
}

// SubscribeInstant returns a pollable ready once Now reaches when. An
// instant in the past resolves immediately.
func (h *MonotonicClockHost) SubscribeInstant(_ context.Context, when uint64) uint32 {
	deadline := h.startTime.Add(saturate(when))
	return h.resources.Add(preview2.NewTimerPollable(deadline))
}

func (h *MonotonicClockHost) SubscribeDuration(_ context.Context, duration uint64) uint32 {
	deadline := time.Now().Add(saturate(duration))
	return h.resources.Add(preview2.NewTimerPollable(deadline))
}

// saturate converts guest nanoseconds, clamping values past the range of
// time.Duration.
func saturate(ns uint64) time.Duration {
	if ns > uint64(1<<63-1) {
		return time.Duration(1<<63 - 1)
	}
	return time.Duration(ns)
}

func (h *MonotonicClockHost) Register(s *boundary.Surface) error {
	pollable := boundary.Own(io.PollableType)
	ops := []boundary.Operation{
		{Name: "now", Result: wit.U64{}, Handler: func(ctx context.Context, _ *boundary.Call) (transcoder.Value, error) {
			return transcoder.U64(h.Now(ctx)), nil
		}},
		{Name: "resolution", Result: wit.U64{}, Handler: func(ctx context.Context, _ *boundary.Call) (transcoder.Value, error) {
			return transcoder.U64(h.Resolution(ctx)), nil
		}},
		{Name: "subscribe-instant", Params: []wit.Type{wit.U64{}}, Result: pollable, Handler: func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
			return transcoder.Handle(h.SubscribeInstant(ctx, c.U64(0))), nil
		}},
		{Name: "subscribe-duration", Params: []wit.Type{wit.U64{}}, Result: pollable, Handler: func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
			return transcoder.Handle(h.SubscribeDuration(ctx, c.U64(0))), nil
		}},
	}
	for _, op := range ops {
		op.Interface = MonotonicClockInterface
		if err := s.Register(op); err != nil {
			return err
		}
	}
	return nil
}
