package task

import (
	"context"

	"github.com/wippyai/gc-bridge/errors"
)

type outcome struct {
	value any
	err   error
}

// Future delivers the single result of an offloaded task. All methods are
// safe for concurrent use.
type Future struct {
	t    *task
	out  outcome
	done chan struct{}
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// deliver publishes the result. Called exactly once, by whichever side
// settles the task.
func (f *Future) deliver(v any, err error) {
	f.out = outcome{value: v, err: err}
	close(f.done)
}

// Wait blocks until the task settles or ctx expires. The deadline is
// advisory: an abandoned Wait does not stop the task, and a later Wait on the
// same Future still observes its result.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.out.value, f.out.err
	case <-ctx.Done():
		return nil, errors.Canceled("wait abandoned: " + ctx.Err().Error())
	}
}

// Done returns a channel closed when the task settles.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Cancel discards the task if it has not started running. It reports whether
// the cancellation took effect; a canceled task settles with a canceled
// error once the worker drains it.
func (f *Future) Cancel() bool {
	if f.t == nil {
		return false
	}
	return f.t.state.CompareAndSwap(statePending, stateCanceled)
}
