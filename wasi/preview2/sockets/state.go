package sockets

import (
	"context"
	goio "io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-boundary/wasi/preview2"
)

// State is a socket's lifecycle position. Binding, Connecting and
// ListenStarted are the in-progress halves of a start/finish pair.
type State uint8

const (
	StateUnbound State = iota
	StateBinding
	StateBound
	StateListenStarted
	StateListening
	StateConnecting
	StateConnected
	StateClosed
	StateErrored
)

var stateNames = [...]string{
	"unbound",
	"binding",
	"bound",
	"listen-started",
	"listening",
	"connecting",
	"connected",
	"closed",
	"errored",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// pendingOp is an asynchronous bind or connect. The goroutine fills it in
// and signals the socket; the finish call consumes it.
type pendingOp struct {
	err  error
	conn any
	done bool
}

// machine is the start/finish state machine shared by TCP and UDP sockets.
// mu guards the embedding socket as well.
type machine struct {
	pending *pendingOp
	cancel  context.CancelFunc
	signal  preview2.Signal
	kind    string
	mu      sync.Mutex
	state   State
}

func (m *machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *machine) setState(st State) {
	if m.state != st {
		Logger().Debug("socket state",
			zap.String("socket", m.kind),
			zap.Stringer("from", m.state),
			zap.Stringer("to", st))
	}
	m.state = st
}

// begin starts an asynchronous operation under m.mu. The context is
// canceled when the socket closes or the operation is finished.
func (m *machine) begin(st State, timeout time.Duration, run func(ctx context.Context) (any, error)) {
	op := &pendingOp{}
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	m.pending, m.cancel = op, cancel
	m.setState(st)
	go func() {
		v, err := run(ctx)
		m.complete(op, v, err)
	}()
}

func (m *machine) complete(op *pendingOp, v any, err error) {
	m.mu.Lock()
	if m.pending != op {
		m.mu.Unlock()
		if c, ok := v.(goio.Closer); ok {
			_ = c.Close()
		}
		return
	}
	op.done, op.conn, op.err = true, v, err
	m.mu.Unlock()
	m.signal.Notify()
}

// finish consumes the pending operation for inProgress under m.mu. In any
// other state, including the one the operation completed into, there is
// nothing to finish.
func (m *machine) finish(inProgress State) (*pendingOp, error) {
	if m.state != inProgress {
		return nil, newError(ErrorNotInProgress)
	}
	if m.pending == nil || !m.pending.done {
		return nil, newError(ErrorWouldBlock)
	}
	op := m.pending
	m.pending = nil
	m.cancel()
	return op, nil
}

// startCheck rejects a start call while another operation is running.
func (m *machine) startCheck(allowed ...State) error {
	switch m.state {
	case StateBinding, StateConnecting, StateListenStarted:
		return newError(ErrorConcurrencyConflict)
	}
	for _, st := range allowed {
		if m.state == st {
			return nil
		}
	}
	return newError(ErrorInvalidState)
}

// inFlight reports whether a started operation has not completed yet.
func (m *machine) inFlight() bool {
	return m.pending != nil && !m.pending.done
}

// abandon moves to closed under m.mu and returns the cancel func of any
// pending operation. A late completion closes whatever it produced.
func (m *machine) abandon() context.CancelFunc {
	m.setState(StateClosed)
	m.pending = nil
	cancel := m.cancel
	m.cancel = nil
	return cancel
}
