package preview2

import (
	"context"
	"sync"
	"time"
)

// Pollable is the interface for async-ready resources that can be polled.
type Pollable interface {
	Resource
	// Ready returns true if the resource is ready for I/O.
	Ready() bool
	// Block waits until the resource becomes ready or ctx is canceled.
	Block(ctx context.Context) error
}

// Waiter is implemented by pollables that can hand Poll a channel to wait
// on. The channel is closed (or receives) no later than the moment Ready
// could start returning true.
type Waiter interface {
	Wait() <-chan struct{}
}

// Signal is a broadcast edge. Notify wakes every receiver holding a
// channel obtained from C before the call.
type Signal struct {
	ch chan struct{}
	mu sync.Mutex
}

// C returns the channel closed by the next Notify.
func (s *Signal) C() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ch == nil {
		s.ch = make(chan struct{})
	}
	return s.ch
}

// Notify wakes all current waiters.
func (s *Signal) Notify() {
	s.mu.Lock()
	if s.ch != nil {
		close(s.ch)
		s.ch = nil
	}
	s.mu.Unlock()
}

// FuncPollable derives readiness from a predicate over some other resource
// and is woken through that resource's Signal. Streams and sockets hand
// these out from subscribe.
type FuncPollable struct {
	ready  func() bool
	signal *Signal
}

// NewFuncPollable creates a pollable over ready, woken by sig.
func NewFuncPollable(ready func() bool, sig *Signal) *FuncPollable {
	return &FuncPollable{ready: ready, signal: sig}
}

func (p *FuncPollable) Type() ResourceType { return ResourcePollable }
func (p *FuncPollable) Drop()              {}
func (p *FuncPollable) Ready() bool        { return p.ready() }
func (p *FuncPollable) Wait() <-chan struct{} {
	return p.signal.C()
}
func (p *FuncPollable) Block(ctx context.Context) error {
	return Block(ctx, p)
}

// ChannelPollable is ready once its channel is closed.
type ChannelPollable struct {
	ch <-chan struct{}
}

// NewChannelPollable creates a pollable that resolves when ch is closed.
func NewChannelPollable(ch <-chan struct{}) *ChannelPollable {
	return &ChannelPollable{ch: ch}
}

var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// ResolvedPollable returns a pollable that is always ready.
func ResolvedPollable() *ChannelPollable {
	return &ChannelPollable{ch: closedChan}
}

func (p *ChannelPollable) Type() ResourceType    { return ResourcePollable }
func (p *ChannelPollable) Drop()                 {}
func (p *ChannelPollable) Wait() <-chan struct{} { return p.ch }
func (p *ChannelPollable) Ready() bool {
	select {
	case <-p.ch:
		return true
	default:
		return false
	}
}
func (p *ChannelPollable) Block(ctx context.Context) error {
	select {
	case <-p.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TimerPollable implements a time-based pollable that becomes ready at a deadline
type TimerPollable struct {
	done  chan struct{}
	timer *time.Timer
	once  sync.Once
}

// NewTimerPollable creates a pollable that becomes ready at the specified deadline
func NewTimerPollable(deadline time.Time) *TimerPollable {
	p := &TimerPollable{done: make(chan struct{})}
	remaining := time.Until(deadline)
	if remaining <= 0 {
		p.fire()
		return p
	}
	p.timer = time.AfterFunc(remaining, p.fire)
	return p
}

func (p *TimerPollable) fire() {
	p.once.Do(func() { close(p.done) })
}

func (p *TimerPollable) Type() ResourceType { return ResourcePollable }

// Drop stops the timer and resolves the pollable.
func (p *TimerPollable) Drop() {
	if p.timer != nil {
		p.timer.Stop()
	}
	p.fire()
}

func (p *TimerPollable) Wait() <-chan struct{} { return p.done }
func (p *TimerPollable) Ready() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}
func (p *TimerPollable) Block(ctx context.Context) error {
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var (
	_ Waiter = (*FuncPollable)(nil)
	_ Waiter = (*ChannelPollable)(nil)
	_ Waiter = (*TimerPollable)(nil)
)
