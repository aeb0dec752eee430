package task

import (
	"context"
	"sync"

	"github.com/wippyai/gc-bridge/errors"
	"github.com/wippyai/gc-bridge/rooting"
)

// InitFunc builds a generator's persistent state. The scope it receives is
// bound to the generator's init frame, which stays rooted until the worker
// closes, so managed values created here remain valid across invocations.
type InitFunc func(s *Scope) (any, error)

// RunFunc handles one invocation. state is whatever InitFunc returned; the
// scope is a regular per-invocation frame, unwound when the invocation ends.
type RunFunc func(s *Scope, state any, args ...any) (any, error)

// Generator is a reusable handle to a persistent task. Invoke may be called
// from any goroutine; invocations of one generator are serialized in
// submission order.
type Generator struct {
	w   *Worker
	run RunFunc

	mu      sync.Mutex
	pending []*genCall
	active  bool
	ready   bool
	initErr error

	stack *rooting.Stack
	state any
}

type genCall struct {
	args []any
	fut  *Future
}

// SpawnGenerator queues the generator's initialization on the worker and
// returns the handle immediately. Invocations made before initialization
// completes are queued behind it; if initialization fails, every invocation
// settles with the init error.
func (w *Worker) SpawnGenerator(init InitFunc, run RunFunc) *Generator {
	g := &Generator{w: w, run: run, active: true}

	fut := w.Submit(func(s *Scope) (any, error) {
		stack := rooting.NewStack(w.b)
		ps, release, err := stack.OpenFrame(0)
		if err != nil {
			return nil, err
		}
		state, err := init(&Scope{Scope: ps, w: w, t: s.t})
		if err != nil {
			release()
			return nil, err
		}
		g.stack = stack
		g.state = state
		w.addRelease(release)
		return nil, nil
	})

	go func() {
		_, err := fut.Wait(context.Background())
		g.mu.Lock()
		g.initErr = err
		g.ready = true
		g.active = false
		g.mu.Unlock()
		g.pump()
	}()
	return g
}

// Invoke schedules one run of the generator and returns its Future.
func (g *Generator) Invoke(args ...any) *Future {
	call := &genCall{args: args, fut: newFuture()}
	g.mu.Lock()
	g.pending = append(g.pending, call)
	g.mu.Unlock()
	g.pump()
	return call.fut
}

// pump submits the next queued invocation unless one is already in flight.
// Serializing here, rather than on the worker, keeps one generator's
// invocations from interleaving when a run suspends at an offload point.
func (g *Generator) pump() {
	g.mu.Lock()
	if g.active || !g.ready || len(g.pending) == 0 {
		g.mu.Unlock()
		return
	}
	call := g.pending[0]
	g.pending = g.pending[1:]
	if g.initErr != nil {
		err := g.initErr
		g.mu.Unlock()
		call.fut.deliver(nil, err)
		g.pump()
		return
	}
	g.active = true
	g.mu.Unlock()

	t := &task{
		kind:  "generator",
		stack: g.stack,
		fut:   call.fut,
		grant: make(chan struct{}),
		yield: make(chan yieldSignal),
		fn: func(s *Scope) (any, error) {
			defer g.finish()
			return g.run(s, g.state, call.args...)
		},
	}
	t.fut.t = t
	if !g.w.enqueue(t) {
		g.mu.Lock()
		g.active = false
		g.mu.Unlock()
		call.fut.deliver(nil, errors.Canceled("worker is closed"))
		g.pump()
	}
}

func (g *Generator) finish() {
	g.mu.Lock()
	g.active = false
	g.mu.Unlock()
	g.pump()
}
