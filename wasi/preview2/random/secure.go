package random

import (
	"context"
	"crypto/rand"
	"encoding/binary"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-boundary/boundary"
	"github.com/wippyai/wasm-boundary/transcoder"
)

type SecureRandomHost struct{}

func NewSecureRandomHost() *SecureRandomHost {
	return &SecureRandomHost{}
}

func (h *SecureRandomHost) Namespace() string {
	return RandomInterface
}

func (h *SecureRandomHost) GetRandomBytes(_ context.Context, n uint64) ([]byte, error) {
	buf := make([]byte, capLen(n))
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (h *SecureRandomHost) GetRandomU64(_ context.Context) (uint64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func (h *SecureRandomHost) Register(s *boundary.Surface) error {
	ops := []boundary.Operation{
		{Name: "get-random-bytes", Params: []wit.Type{wit.U64{}}, Result: boundary.Bytes,
			Handler: func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
				b, err := h.GetRandomBytes(ctx, c.U64(0))
				if err != nil {
					return nil, err
				}
				return transcoder.BytesOf(b), nil
			}},
		{Name: "get-random-u64", Result: wit.U64{},
			Handler: func(ctx context.Context, _ *boundary.Call) (transcoder.Value, error) {
				n, err := h.GetRandomU64(ctx)
				return transcoder.U64(n), err
			}},
	}
	for _, op := range ops {
		op.Interface = RandomInterface
		if err := s.Register(op); err != nil {
			return err
		}
	}
	return nil
}
