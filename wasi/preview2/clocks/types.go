package clocks

import (
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-boundary/boundary"
)

const (
	MonotonicClockInterface = "wasi:clocks/monotonic-clock@0.2.8"
	WallClockInterface      = "wasi:clocks/wall-clock@0.2.8"
)

// DatetimeType is wall-clock datetime.
var DatetimeType = boundary.Record("datetime",
	boundary.Field("seconds", wit.U64{}),
	boundary.Field("nanoseconds", wit.U32{}),
)
