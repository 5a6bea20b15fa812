package random

import (
	"context"
	crand "crypto/rand"
	"math/rand/v2"
	"sync"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-boundary/boundary"
	"github.com/wippyai/wasm-boundary/transcoder"
)

// InsecureRandomHost serves fast, predictable-enough randomness. It is
// safe for concurrent use.
type InsecureRandomHost struct {
	mu  sync.Mutex
	gen *rand.ChaCha8
}

func NewInsecureRandomHost() *InsecureRandomHost {
	var seed [32]byte
	_, _ = crand.Read(seed[:])
	return &InsecureRandomHost{gen: rand.NewChaCha8(seed)}
}

// NewInsecureRandomHostWithSeed returns a host whose output is fully
// determined by seed.
func NewInsecureRandomHostWithSeed(seed [32]byte) *InsecureRandomHost {
	return &InsecureRandomHost{gen: rand.NewChaCha8(seed)}
}

func (h *InsecureRandomHost) Namespace() string {
	return InsecureInterface
}

func (h *InsecureRandomHost) GetInsecureRandomBytes(_ context.Context, n uint64) []byte {
	buf := make([]byte, capLen(n))
	h.mu.Lock()
	_, _ = h.gen.Read(buf)
	h.mu.Unlock()
	return buf
}

func (h *InsecureRandomHost) GetInsecureRandomU64(_ context.Context) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.gen.Uint64()
}

func (h *InsecureRandomHost) Register(s *boundary.Surface) error {
	ops := []boundary.Operation{
		{Name: "get-insecure-random-bytes", Params: []wit.Type{wit.U64{}}, Result: boundary.Bytes,
			Handler: func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
				return transcoder.BytesOf(h.GetInsecureRandomBytes(ctx, c.U64(0))), nil
			}},
		{Name: "get-insecure-random-u64", Result: wit.U64{},
			Handler: func(ctx context.Context, _ *boundary.Call) (transcoder.Value, error) {
				return transcoder.U64(h.GetInsecureRandomU64(ctx)), nil
			}},
	}
	for _, op := range ops {
		op.Interface = InsecureInterface
		if err := s.Register(op); err != nil {
			return err
		}
	}
	return nil
}
