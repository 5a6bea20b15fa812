package clocks

import (
	"context"
	"testing"
	"time"

	"github.com/wippyai/wasm-boundary/boundary"
	"github.com/wippyai/wasm-boundary/transcoder"
	"github.com/wippyai/wasm-boundary/wasi/preview2"
	"github.com/wippyai/wasm-boundary/wasi/preview2/io"
)

func TestMonotonicClockHost_Now(t *testing.T) {
	resources := preview2.NewResourceTable()
	host := NewMonotonicClockHost(resources)
	ctx := context.Background()

	// Monotonic clock returns time since host creation
	now1 := host.Now(ctx)
	time.Sleep(1 * time.Millisecond)
	now2 := host.Now(ctx)

	if now2 <= now1 {
		t.Errorf("monotonic clock not monotonic: %d <= %d", now2, now1)
	}
	if now2-now1 < 1_000_000 {
		t.Errorf("expected at least 1ms elapsed, got %dns", now2-now1)
	}
}

func TestMonotonicClockHost_Resolution(t *testing.T) {
	resources := preview2.NewResourceTable()
	host := NewMonotonicClockHost(resources)
	ctx := context.Background()

	res := host.Resolution(ctx)
	if res != 1 {
		t.Errorf("expected resolution 1 (nanosecond), got %d", res)
	}
}

func TestMonotonicClockHost_SubscribeInstant(t *testing.T) {
	resources := preview2.NewResourceTable()
	host := NewMonotonicClockHost(resources)
	ctx := context.Background()

	// Subscribe for instant 10ms from now (in monotonic time)
	now := host.Now(ctx)
	when := now + 10_000_000 // 10ms in the future
	handle := host.SubscribeInstant(ctx, when)

	r, ok := resources.Get(handle)
	if !ok {
		t.Fatal("expected pollable to be in resource table")
	}
	p, ok := r.(preview2.Pollable)
	if !ok {
		t.Fatal("expected resource to implement Pollable")
	}
	if p.Ready() {
		t.Error("expected pollable to NOT be ready yet (10ms in future)")
	}
}

func TestMonotonicClockHost_SubscribeDuration(t *testing.T) {
	resources := preview2.NewResourceTable()
	host := NewMonotonicClockHost(resources)
	ctx := context.Background()

	duration := uint64(10_000_000) // 10ms
	handle := host.SubscribeDuration(ctx, duration)

	r, ok := resources.Get(handle)
	if !ok {
		t.Fatal("expected pollable to be in resource table")
	}
	p, ok := r.(preview2.Pollable)
	if !ok {
		t.Fatal("expected resource to implement Pollable")
	}
	if p.Ready() {
		t.Error("expected pollable to NOT be ready yet (10ms duration)")
	}

	// Block and verify it becomes ready
	if err := p.Block(ctx); err != nil {
		t.Fatalf("Block failed: %v", err)
	}
	if !p.Ready() {
		t.Error("expected pollable to be ready after Block()")
	}
}

func TestWallClockHost_Now(t *testing.T) {
	host := NewWallClockHost()
	ctx := context.Background()

	before := time.Now()
	dt := host.Now(ctx)
	after := time.Now()

	if dt.Seconds < uint64(before.Unix()) || dt.Seconds > uint64(after.Unix()) {
		t.Errorf("wall clock seconds (%d) outside expected range [%d, %d]",
			dt.Seconds, before.Unix(), after.Unix())
	}

	if dt.Nanoseconds >= 1000000000 {
		t.Errorf("wall clock nanoseconds (%d) should be < 1000000000", dt.Nanoseconds)
	}
}

func TestWallClockHost_Resolution(t *testing.T) {
	host := NewWallClockHost()
	ctx := context.Background()

	res := host.Resolution(ctx)
	if res.Seconds != 0 || res.Nanoseconds != 1 {
		t.Errorf("expected resolution (0s, 1ns), got (%ds, %dns)", res.Seconds, res.Nanoseconds)
	}
}

func TestMonotonicClock_Monotonicity(t *testing.T) {
	resources := preview2.NewResourceTable()
	host := NewMonotonicClockHost(resources)
	ctx := context.Background()

	t1 := host.Now(ctx)
	time.Sleep(1 * time.Millisecond)
	t2 := host.Now(ctx)

	if t2 <= t1 {
		t.Errorf("monotonic clock not monotonic: t1=%d, t2=%d", t1, t2)
	}
}

func TestWallClock_Accuracy(t *testing.T) {
	host := NewWallClockHost()
	ctx := context.Background()

	goTime := time.Now()
	wasiTime := host.Now(ctx)

	diff := int64(wasiTime.Seconds) - goTime.Unix()
	if diff < -1 || diff > 1 {
		t.Errorf("wall clock differs from Go time by %d seconds", diff)
	}
}

func TestMonotonicClockHost_SubscribeInstantInPast(t *testing.T) {
	resources := preview2.NewResourceTable()
	host := NewMonotonicClockHost(resources)
	ctx := context.Background()

	time.Sleep(time.Millisecond)
	p, ok := preview2.Lookup[preview2.Pollable](resources, host.SubscribeInstant(ctx, 0))
	if !ok {
		t.Fatal("expected pollable to be in resource table")
	}
	if !p.Ready() {
		t.Error("instant in the past should be ready")
	}
}

func TestSaturate(t *testing.T) {
	if got := saturate(^uint64(0)); got <= 0 {
		t.Errorf("saturate overflowed: %v", got)
	}
	if got := saturate(5); got != 5 {
		t.Errorf("saturate(5) = %v", got)
	}
}

func TestRegister_QualifiedNames(t *testing.T) {
	resources := preview2.NewResourceTable()
	s := boundary.NewSurface(boundary.WithResources(resources.Table()))
	if err := NewMonotonicClockHost(resources).Register(s); err != nil {
		t.Fatalf("Register monotonic failed: %v", err)
	}
	if err := NewWallClockHost().Register(s); err != nil {
		t.Fatalf("Register wall failed: %v", err)
	}
	if err := io.NewHost(resources).Register(s); err != nil {
		t.Fatalf("Register io failed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := s.Call(ctx, "now"); err == nil {
		t.Error("bare now should be ambiguous")
	}

	v, err := s.Call(ctx, WallClockInterface+"#now")
	if err != nil {
		t.Fatalf("wall now failed: %v", err)
	}
	rec, ok := v.(transcoder.Record)
	if !ok {
		t.Fatalf("expected record, got %T", v)
	}
	secs, _ := rec.Get("seconds")
	if uint64(secs.(transcoder.U64)) == 0 {
		t.Error("wall clock seconds should be non-zero")
	}

	p, err := s.Call(ctx, "subscribe-duration", transcoder.U64(uint64(5*time.Millisecond)))
	if err != nil {
		t.Fatalf("subscribe-duration failed: %v", err)
	}
	start := time.Now()
	ready, err := s.Call(ctx, "poll", transcoder.List{p})
	if err != nil {
		t.Fatalf("poll failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < time.Millisecond {
		t.Errorf("poll returned after %v, expected to wait for the timer", elapsed)
	}
	if list, ok := ready.(transcoder.List); !ok || len(list) != 1 || list[0] != transcoder.U32(0) {
		t.Errorf("expected [0], got %v", ready)
	}
}
