package boundary

import (
	"sync"

	"github.com/wippyai/wasm-boundary/transcoder"
)

// Observer sees every dispatched call. OnCall runs after argument lifting
// succeeded and before the handler; OnResult runs after the handler.
type Observer interface {
	OnCall(op string, args []transcoder.Value)
	OnResult(op string, result transcoder.Value, err error)
}

// Recorder is an Observer that keeps the last call per operation.
type Recorder struct {
	calls   map[string]int
	args    map[string][]transcoder.Value
	results map[string]transcoder.Value
	mu      sync.Mutex
}

func NewRecorder() *Recorder {
	return &Recorder{
		calls:   make(map[string]int),
		args:    make(map[string][]transcoder.Value),
		results: make(map[string]transcoder.Value),
	}
}

func (r *Recorder) OnCall(op string, args []transcoder.Value) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[op]++
	r.args[op] = args
}

func (r *Recorder) OnResult(op string, result transcoder.Value, err error) {
	if err != nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[op] = result
}

// Calls returns how many times op's handler was entered.
func (r *Recorder) Calls(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[op]
}

// LastArgs returns the arguments of the most recent call to op.
func (r *Recorder) LastArgs(op string) ([]transcoder.Value, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.args[op]
	return a, ok
}

// LastResult returns the result of the most recent successful call to op.
func (r *Recorder) LastResult(op string) (transcoder.Value, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.results[op]
	return v, ok
}
