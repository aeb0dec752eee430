package task

import (
	gcbridge "github.com/wippyai/gc-bridge"
	"github.com/wippyai/gc-bridge/errors"
	"github.com/wippyai/gc-bridge/rooting"
	"github.com/wippyai/gc-bridge/value"
)

// Scope is the rooting capability inside an offloaded task. It behaves like
// a synchronous rooting.Scope and adds Call, the task's only offload point.
type Scope struct {
	rooting.Scope
	w *Worker
	t *task
}

// Call invokes fn on the worker's execution context. When the binding
// supports asynchronous calls, the task suspends here and the worker runs
// other queued tasks until the call completes; otherwise the call runs
// inline. Either way the result is rooted in the current frame before Call
// returns, and a raise comes back as a runtime_exception error carrying the
// rooted exception.
func (s *Scope) Call(fn value.Value, args ...value.Value) (value.Value, error) {
	ac, ok := s.w.b.(gcbridge.AsyncCaller)
	if !ok {
		return fn.Call(s.Scope, args...)
	}

	raw := make([]gcbridge.Ptr, len(args))
	for i, a := range args {
		raw[i] = a.Raw()
	}
	ch, err := ac.CallAsync(fn.Raw(), raw)
	if err != nil {
		return value.Value{}, errors.Internal(errors.PhaseTask, "start async call", err)
	}

	// Hand the execution context back while the call runs, then reclaim it
	// before touching the root stack. The binding keeps the result pinned
	// until Release, so nothing is collectable in between.
	s.t.yield <- yieldSuspended
	out := <-ch
	s.w.requeue(s.t)
	<-s.t.grant

	if out.Release != nil {
		defer out.Release()
	}
	if out.Err != nil {
		return value.Value{}, errors.Internal(errors.PhaseTask, "async call failed", out.Err)
	}
	if out.Exc != 0 {
		return value.Value{}, s.rootException(out.Exc)
	}
	r, err := s.Root(out.Result)
	if err != nil {
		return value.Value{}, err
	}
	return value.Wrap(r), nil
}

func (s *Scope) rootException(exc gcbridge.Ptr) error {
	b := s.w.b
	name := "<unknown>"
	if desc, ok := b.Describe(b.TypeOf(exc)); ok {
		name = desc.Name
	}
	r, err := s.Root(exc)
	if err != nil {
		return errors.RuntimeException(errors.PhaseTask, nil, name)
	}
	return errors.RuntimeException(errors.PhaseTask, value.Wrap(r), name)
}
