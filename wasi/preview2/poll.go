package preview2

import (
	"context"
	"reflect"

	"code.hybscloud.com/iox"
	"go.uber.org/zap"

	werrors "github.com/wippyai/wasm-boundary/errors"
)

// Poll waits until at least one pollable is ready and returns the indices
// of every ready pollable in input order. It never returns an empty set
// without an error. A nil entry stands for a destroyed resource and is
// always ready.
//
// Pollables implementing Waiter are waited on with a single select;
// anything else is re-checked with adaptive backoff.
func Poll(ctx context.Context, pollables []Pollable) ([]uint32, error) {
	if len(pollables) == 0 {
		return nil, werrors.InvalidInput(werrors.PhaseIO, "poll list is empty")
	}

	cases := make([]reflect.SelectCase, 0, len(pollables)+1)
	var bo iox.Backoff
	for {
		// Channels are taken before readiness is checked so a wakeup
		// between the two is not lost.
		cases = append(cases[:0], reflect.SelectCase{
			Dir:  reflect.SelectRecv,
			Chan: reflect.ValueOf(ctx.Done()),
		})
		waitable := true
		for _, p := range pollables {
			if p == nil {
				continue
			}
			w, ok := p.(Waiter)
			if !ok {
				waitable = false
				continue
			}
			cases = append(cases, reflect.SelectCase{
				Dir:  reflect.SelectRecv,
				Chan: reflect.ValueOf(w.Wait()),
			})
		}

		if ready := readyIndices(pollables); len(ready) > 0 {
			return ready, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if waitable {
			chosen, _, _ := reflect.Select(cases)
			if chosen == 0 {
				return nil, ctx.Err()
			}
			Logger().Debug("poll woke", zap.Int("case", chosen-1), zap.Int("pollables", len(pollables)))
			continue
		}
		bo.Wait()
	}
}

// Block waits for a single pollable.
func Block(ctx context.Context, p Pollable) error {
	_, err := Poll(ctx, []Pollable{p})
	return err
}

func readyIndices(pollables []Pollable) []uint32 {
	var ready []uint32
	for i, p := range pollables {
		if p == nil || p.Ready() {
			ready = append(ready, uint32(i))
		}
	}
	return ready
}
