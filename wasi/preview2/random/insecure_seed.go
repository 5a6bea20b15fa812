package random

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-boundary/boundary"
	"github.com/wippyai/wasm-boundary/transcoder"
)

// InsecureSeedHost hands out one seed, fixed for the host's lifetime.
type InsecureSeedHost struct {
	lo, hi uint64
}

func NewInsecureSeedHost() *InsecureSeedHost {
	var buf [16]byte
	_, _ = crand.Read(buf[:])
	return &InsecureSeedHost{
		lo: binary.LittleEndian.Uint64(buf[:8]),
		hi: binary.LittleEndian.Uint64(buf[8:]),
	}
}

func (h *InsecureSeedHost) Namespace() string {
	return InsecureSeedInterface
}

func (h *InsecureSeedHost) InsecureSeed(_ context.Context) (uint64, uint64) {
	return h.lo, h.hi
}

func (h *InsecureSeedHost) Register(s *boundary.Surface) error {
	return s.Register(boundary.Operation{
		Interface: InsecureSeedInterface,
		Name:      "insecure-seed",
		Result:    boundary.Tuple(wit.U64{}, wit.U64{}),
		Handler: func(ctx context.Context, _ *boundary.Call) (transcoder.Value, error) {
			lo, hi := h.InsecureSeed(ctx)
			return transcoder.Tuple{transcoder.U64(lo), transcoder.U64(hi)}, nil
		},
	})
}
