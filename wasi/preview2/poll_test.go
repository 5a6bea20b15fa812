package preview2

import (
	"context"
	"errors"
	"io"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"code.hybscloud.com/iox"

	werrors "github.com/wippyai/wasm-boundary/errors"
)

// flagPollable is ready once set and offers no wait channel.
type flagPollable struct{ ready atomic.Bool }

func (p *flagPollable) Type() ResourceType { return ResourcePollable }
func (p *flagPollable) Drop()              {}
func (p *flagPollable) Ready() bool        { return p.ready.Load() }
func (p *flagPollable) Block(ctx context.Context) error {
	return Block(ctx, p)
}

// manualPollable is ready once set and wakes Poll through its Signal.
// Dropping it resolves it.
type manualPollable struct {
	signal Signal
	mu     sync.Mutex
	ready  bool
}

func (p *manualPollable) Type() ResourceType { return ResourcePollable }
func (p *manualPollable) Drop()              { p.SetReady(true) }
func (p *manualPollable) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}
func (p *manualPollable) SetReady(r bool) {
	p.mu.Lock()
	p.ready = r
	p.mu.Unlock()
	if r {
		p.signal.Notify()
	}
}
func (p *manualPollable) Wait() <-chan struct{} { return p.signal.C() }
func (p *manualPollable) Block(ctx context.Context) error {
	return Block(ctx, p)
}

func TestPoll_EmptyList(t *testing.T) {
	_, err := Poll(context.Background(), nil)
	if !errors.Is(err, &werrors.Error{Phase: werrors.PhaseIO, Kind: werrors.KindInvalidInput}) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestPoll_ReturnsAllReadyInOrder(t *testing.T) {
	a := &manualPollable{}
	b := &manualPollable{}
	c := &manualPollable{}
	a.SetReady(true)
	c.SetReady(true)

	got, err := Poll(context.Background(), []Pollable{a, b, c})
	if err != nil {
		t.Fatal(err)
	}
	if want := []uint32{0, 2}; !reflect.DeepEqual(got, want) {
		t.Errorf("ready = %v, want %v", got, want)
	}
}

func TestPoll_DuplicateEntries(t *testing.T) {
	p := &manualPollable{}
	p.SetReady(true)

	got, err := Poll(context.Background(), []Pollable{p, p})
	if err != nil {
		t.Fatal(err)
	}
	if want := []uint32{0, 1}; !reflect.DeepEqual(got, want) {
		t.Errorf("ready = %v, want %v", got, want)
	}
}

func TestPoll_NilIsReady(t *testing.T) {
	got, err := Poll(context.Background(), []Pollable{&manualPollable{}, nil})
	if err != nil {
		t.Fatal(err)
	}
	if want := []uint32{1}; !reflect.DeepEqual(got, want) {
		t.Errorf("ready = %v, want %v", got, want)
	}
}

func TestPoll_WakesOnSetReady(t *testing.T) {
	a := &manualPollable{}
	b := &manualPollable{}
	go func() {
		time.Sleep(20 * time.Millisecond)
		b.SetReady(true)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got, err := Poll(ctx, []Pollable{a, b})
	if err != nil {
		t.Fatal(err)
	}
	if want := []uint32{1}; !reflect.DeepEqual(got, want) {
		t.Errorf("ready = %v, want %v", got, want)
	}
}

func TestPoll_BackoffFallback(t *testing.T) {
	p := &flagPollable{}
	go func() {
		time.Sleep(10 * time.Millisecond)
		p.ready.Store(true)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got, err := Poll(ctx, []Pollable{&manualPollable{}, p})
	if err != nil {
		t.Fatal(err)
	}
	if want := []uint32{1}; !reflect.DeepEqual(got, want) {
		t.Errorf("ready = %v, want %v", got, want)
	}
}

func TestPoll_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Poll(ctx, []Pollable{&manualPollable{}})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestPollable_DropResolves(t *testing.T) {
	p := &manualPollable{}
	done := make(chan error, 1)
	go func() { done <- p.Block(context.Background()) }()

	time.Sleep(10 * time.Millisecond)
	p.Drop()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Block did not return after Drop")
	}
}

func TestFuncPollable(t *testing.T) {
	var sig Signal
	var ready atomic.Bool
	p := NewFuncPollable(ready.Load, &sig)

	if p.Ready() {
		t.Fatal("should not be ready")
	}
	go func() {
		time.Sleep(10 * time.Millisecond)
		ready.Store(true)
		sig.Notify()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Block(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestResolvedPollable(t *testing.T) {
	if !ResolvedPollable().Ready() {
		t.Error("resolved pollable should be ready")
	}
	ch := make(chan struct{})
	p := NewChannelPollable(ch)
	if p.Ready() {
		t.Error("open channel should not be ready")
	}
	close(ch)
	if !p.Ready() {
		t.Error("closed channel should be ready")
	}
}

func TestTimerPollable(t *testing.T) {
	start := time.Now()
	p := NewTimerPollable(start.Add(30 * time.Millisecond))
	if p.Ready() {
		t.Fatal("timer should not be ready yet")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Block(ctx); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Errorf("timer fired after %v", elapsed)
	}

	past := NewTimerPollable(time.Now().Add(-time.Second))
	if !past.Ready() {
		t.Error("deadline in the past should be ready")
	}

	dropped := NewTimerPollable(time.Now().Add(time.Hour))
	dropped.Drop()
	if !dropped.Ready() {
		t.Error("dropped timer should be ready")
	}
}

func TestToStreamError(t *testing.T) {
	if ToStreamError(nil) != nil {
		t.Error("nil should stay nil")
	}
	if se := ToStreamError(ErrEndOfStream); !se.Closed {
		t.Error("end of stream should map to closed")
	}
	if se := ToStreamError(ErrStreamClosed); !se.Closed {
		t.Error("stream closed should map to closed")
	}

	se := ToStreamError(io.ErrUnexpectedEOF)
	if se.Closed || !errors.Is(se, io.ErrUnexpectedEOF) {
		t.Errorf("transport error should keep its cause, got %v", se)
	}

	orig := NewStreamError(io.ErrClosedPipe)
	if ToStreamError(orig) != orig {
		t.Error("stream errors pass through")
	}
}

func TestErrors_Distinct(t *testing.T) {
	if errors.Is(ErrEndOfStream, ErrStreamClosed) {
		t.Error("end of stream must differ from closed")
	}
	if !errors.Is(ErrWouldBlock, iox.ErrWouldBlock) || !IsWouldBlock(ErrWouldBlock) {
		t.Error("ErrWouldBlock should unwrap to iox.ErrWouldBlock")
	}
}

func TestResourceTable_Lookup(t *testing.T) {
	table := NewResourceTable()
	defer table.Clear()

	h := table.Add(NewErrorResource("boom"))
	e, ok := Lookup[*ErrorResource](table, h)
	if !ok || e.ToDebugString() != "boom" {
		t.Fatalf("lookup = %v, %v", e, ok)
	}
	if _, ok := Lookup[Pollable](table, h); ok {
		t.Error("error resource is not a pollable")
	}

	if err := table.Remove(h); err != nil {
		t.Fatal(err)
	}
	if err := table.Remove(h); err == nil {
		t.Error("double remove should fail")
	}
	if table.Len() != 0 {
		t.Errorf("len = %d, want 0", table.Len())
	}
}
