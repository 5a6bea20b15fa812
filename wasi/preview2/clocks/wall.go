package clocks

import (
	"context"
	"time"

	"github.com/wippyai/wasm-boundary/boundary"
	"github.com/wippyai/wasm-boundary/transcoder"
)

type WallClockHost struct{}

func NewWallClockHost() *WallClockHost {
	return &WallClockHost{}
}

func (h *WallClockHost) Namespace() string {
	return WallClockInterface
}

// Datetime is seconds and nanoseconds since the Unix epoch.
type Datetime struct {
	Seconds     uint64
	Nanoseconds uint32
}

// Value lowers d to a datetime record.
func (d Datetime) Value() transcoder.Value {
	return transcoder.Record{
		{Name: "seconds", Value: transcoder.U64(d.Seconds)},
		{Name: "nanoseconds", Value: transcoder.U32(d.Nanoseconds)},
	}
}

func (h *WallClockHost) Now(_ context.Context) Datetime {
	now := time.Now()
	return Datetime{
		Seconds:     uint64(now.Unix()),
		Nanoseconds: uint32(now.Nanosecond()),
	}
}

func (h *WallClockHost) Resolution(_ context.Context) Datetime {
	return Datetime{
		Seconds:     0,
		Nanoseconds: 1,
	}
}

func (h *WallClockHost) Register(s *boundary.Surface) error {
	ops := []boundary.Operation{
		{Name: "now", Result: DatetimeType, Handler: func(ctx context.Context, _ *boundary.Call) (transcoder.Value, error) {
			return h.Now(ctx).Value(), nil
		}},
		{Name: "resolution", Result: DatetimeType, Handler: func(ctx context.Context, _ *boundary.Call) (transcoder.Value, error) {
			return h.Resolution(ctx).Value(), nil
		}},
	}
	for _, op := range ops {
		op.Interface = WallClockInterface
		if err := s.Register(op); err != nil {
			return err
		}
	}
	return nil
}
