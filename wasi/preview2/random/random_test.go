package random

import (
	"bytes"
	"context"
	"testing"

	"github.com/wippyai/wasm-boundary/boundary"
	"github.com/wippyai/wasm-boundary/transcoder"
)

func TestSecureRandomHost_GetRandomBytes(t *testing.T) {
	host := NewSecureRandomHost()

	data, err := host.GetRandomBytes(context.Background(), 16)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 16 {
		t.Errorf("expected 16 bytes, got %d", len(data))
	}
	if bytes.Equal(data, make([]byte, 16)) {
		t.Error("random bytes should not all be zero")
	}
}

func TestSecureRandomHost_CapsLength(t *testing.T) {
	data, err := NewSecureRandomHost().GetRandomBytes(context.Background(), MaxRandomBytes+1)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != MaxRandomBytes {
		t.Errorf("expected %d bytes, got %d", MaxRandomBytes, len(data))
	}
}

func TestSecureRandom_Uniqueness(t *testing.T) {
	host := NewSecureRandomHost()
	ctx := context.Background()

	seen := make(map[uint64]bool)
	for i := 0; i < 100; i++ {
		v, err := host.GetRandomU64(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if seen[v] {
			t.Errorf("duplicate random value: %d", v)
		}
		seen[v] = true
	}
}

func TestInsecureRandomHost_Seeded(t *testing.T) {
	ctx := context.Background()
	seed := [32]byte{1, 2, 3}
	a := NewInsecureRandomHostWithSeed(seed)
	b := NewInsecureRandomHostWithSeed(seed)

	if !bytes.Equal(a.GetInsecureRandomBytes(ctx, 64), b.GetInsecureRandomBytes(ctx, 64)) {
		t.Error("same seed produced different bytes")
	}
	if a.GetInsecureRandomU64(ctx) != b.GetInsecureRandomU64(ctx) {
		t.Error("same seed produced different u64")
	}
}

func TestInsecureRandom_Distribution(t *testing.T) {
	data := NewInsecureRandomHost().GetInsecureRandomBytes(context.Background(), 1000)

	counts := make(map[byte]int)
	for _, b := range data {
		counts[b]++
	}
	if len(counts) < 200 {
		t.Errorf("poor distribution: only %d unique values out of 256 possible", len(counts))
	}
}

func TestInsecureSeedHost_Stable(t *testing.T) {
	host := NewInsecureSeedHost()
	ctx := context.Background()

	lo1, hi1 := host.InsecureSeed(ctx)
	lo2, hi2 := host.InsecureSeed(ctx)
	if lo1 != lo2 || hi1 != hi2 {
		t.Error("seed changed between calls")
	}
	if lo1 == 0 && hi1 == 0 {
		t.Error("insecure seed should not be (0, 0)")
	}
}

func TestHost_Register(t *testing.T) {
	s := boundary.NewSurface()
	if err := NewHost().Register(s); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	v, err := s.Call(ctx, "get-random-bytes", transcoder.U64(8))
	if err != nil {
		t.Fatal(err)
	}
	if b, ok := v.(transcoder.List).Bytes(); !ok || len(b) != 8 {
		t.Errorf("get-random-bytes = %s", transcoder.Format(v))
	}

	if _, err := s.Call(ctx, "get-insecure-random-u64"); err != nil {
		t.Fatal(err)
	}

	v, err = s.Call(ctx, "insecure-seed")
	if err != nil {
		t.Fatal(err)
	}
	if tup, ok := v.(transcoder.Tuple); !ok || len(tup) != 2 {
		t.Errorf("insecure-seed = %s", transcoder.Format(v))
	}

	// "-" sorts before "@", so insecure-seed precedes insecure.
	want := []string{InsecureSeedInterface, InsecureInterface, RandomInterface}
	got := s.Interfaces()
	if len(got) != len(want) {
		t.Fatalf("interfaces = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("interfaces[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func BenchmarkSecureRandomBytes(b *testing.B) {
	host := NewSecureRandomHost()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = host.GetRandomBytes(ctx, 32)
	}
}

func BenchmarkInsecureRandomBytes(b *testing.B) {
	host := NewInsecureRandomHost()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		host.GetInsecureRandomBytes(ctx, 32)
	}
}
