package task

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	gcbridge "github.com/wippyai/gc-bridge"
	"github.com/wippyai/gc-bridge/errors"
	"github.com/wippyai/gc-bridge/rooting"
	"github.com/wippyai/gc-bridge/value"
)

// Func is a one-shot offloaded computation. The returned value must be
// host-native data: every managed value rooted during the task expires when
// its private frame chain unwinds.
type Func func(s *Scope) (any, error)

// Option configures a Worker.
type Option func(*Worker)

// WithLogger sets the worker's logger. Default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Worker) { w.log = l }
}

// WithTracer overrides the tracer used for per-task spans.
func WithTracer(t trace.Tracer) Option {
	return func(w *Worker) { w.tracer = t }
}

// Worker owns one execution context on the embedded runtime. All binding
// access for offloaded work happens on its goroutine; submitters communicate
// only through the queue and per-task result channels.
type Worker struct {
	b      gcbridge.Binding
	log    *zap.Logger
	tracer trace.Tracer

	mu       sync.Mutex
	queue    []*task
	inflight int
	closing  bool

	wake chan struct{}
	done chan struct{}

	// pinScope roots exceptions that escape their task's frame chain; it
	// lives until the worker closes.
	pinStack   *rooting.Stack
	pinScope   rooting.Scope
	pinRelease func()

	releases []func() // generator init frames, released in reverse order
}

// NewWorker starts a worker over the given binding.
func NewWorker(b gcbridge.Binding, opts ...Option) (*Worker, error) {
	w := &Worker{
		b:      b,
		log:    zap.NewNop(),
		tracer: otel.Tracer("gc-bridge/task"),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.pinStack = rooting.NewStack(b)
	scope, release, err := w.pinStack.OpenFrame(0)
	if err != nil {
		return nil, err
	}
	w.pinScope = scope
	w.pinRelease = release

	go w.loop()
	w.log.Debug("task worker started")
	return w, nil
}

// Submit queues a one-shot computation and returns its Future. Tasks from a
// single submitter run in submission order.
func (w *Worker) Submit(fn Func) *Future {
	t := &task{
		kind:  "one-shot",
		fn:    fn,
		grant: make(chan struct{}),
		yield: make(chan yieldSignal),
		fut:   newFuture(),
	}
	t.fut.t = t
	if !w.enqueue(t) {
		t.fut.deliver(nil, errors.Canceled("worker is closed"))
	}
	return t.fut
}

// Close stops accepting submissions, waits for in-flight tasks to finish,
// and releases the worker's long-lived frames. Queued tasks that never
// started are delivered as canceled.
func (w *Worker) Close() error {
	w.mu.Lock()
	if w.closing {
		w.mu.Unlock()
		<-w.done
		return nil
	}
	w.closing = true
	w.mu.Unlock()

	w.notify()
	<-w.done

	for i := len(w.releases) - 1; i >= 0; i-- {
		w.releases[i]()
	}
	w.releases = nil
	w.pinRelease()

	w.log.Debug("task worker stopped")
	return nil
}

func (w *Worker) enqueue(t *task) bool {
	w.mu.Lock()
	if w.closing && t.state.Load() == statePending && !t.started {
		w.mu.Unlock()
		return false
	}
	if !t.started {
		w.inflight++
	}
	w.queue = append(w.queue, t)
	w.mu.Unlock()
	w.notify()
	return true
}

// requeue puts a resumed task back on the runnable queue. Resumption is
// allowed even while closing: Close waits for in-flight work.
func (w *Worker) requeue(t *task) {
	w.mu.Lock()
	w.queue = append(w.queue, t)
	w.mu.Unlock()
	w.notify()
}

func (w *Worker) addRelease(f func()) {
	w.mu.Lock()
	w.releases = append(w.releases, f)
	w.mu.Unlock()
}

func (w *Worker) notify() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Worker) taskDone(t *task) {
	w.mu.Lock()
	w.inflight--
	w.mu.Unlock()
	w.notify()
}

// next blocks until a task is runnable. It returns nil once the worker is
// closing and no work remains.
func (w *Worker) next() *task {
	for {
		w.mu.Lock()
		if len(w.queue) > 0 {
			t := w.queue[0]
			w.queue = w.queue[1:]
			w.mu.Unlock()
			return t
		}
		if w.closing && w.inflight == 0 {
			w.mu.Unlock()
			return nil
		}
		w.mu.Unlock()
		<-w.wake
	}
}

func (w *Worker) loop() {
	defer close(w.done)
	for {
		t := w.next()
		if t == nil {
			return
		}

		w.mu.Lock()
		closing := w.closing
		w.mu.Unlock()

		if t.state.Load() == stateCanceled || (closing && !t.started) {
			t.fut.deliver(nil, errors.Canceled("task discarded before running"))
			w.taskDone(t)
			continue
		}

		if !t.started {
			if !t.state.CompareAndSwap(statePending, stateRunning) {
				// Lost the race with Cancel.
				t.fut.deliver(nil, errors.Canceled("task discarded before running"))
				w.taskDone(t)
				continue
			}
			t.started = true
			go t.body(w)
		}

		// Hand the execution context to the task and wait for it to give
		// it back, either by finishing or by suspending at an offload
		// point.
		t.grant <- struct{}{}
		if sig := <-t.yield; sig == yieldFinished {
			w.taskDone(t)
		}
	}
}

// execute runs one task inside its own private frame chain.
func (w *Worker) execute(t *task) {
	_, span := w.tracer.Start(context.Background(), "task.execute",
		trace.WithAttributes(attribute.String("task.kind", t.kind)))
	defer span.End()

	var result any
	err := w.guard(t, &result)
	if err != nil {
		span.RecordError(err)
		w.log.Debug("task failed", zap.String("kind", t.kind), zap.Error(err))
	}
	t.fut.deliver(result, err)
}

// guard runs the task body and converts panics into Failed results: a fault
// must never unwind into the worker loop or across the runtime boundary.
func (w *Worker) guard(t *task, result *any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Internal(errors.PhaseTask, fmt.Sprintf("panic in offloaded task: %v", r), nil)
		}
	}()

	stack := t.stack
	if stack == nil {
		stack = rooting.NewStack(w.b)
	}
	return stack.Enter(func(s rooting.Scope) error {
		v, ferr := t.fn(&Scope{Scope: s, w: w, t: t})
		if ferr != nil {
			// Re-root now: the exception's frame dies when Enter returns.
			return w.escape(ferr)
		}
		*result = v
		return nil
	})
}

// escape re-roots an exception that is about to lose its frame, so the
// handle delivered to the submitter stays valid. Called while the task's
// frame chain is still live.
func (w *Worker) escape(err error) error {
	exc, ok := value.AsException(err)
	if !ok || !exc.Valid() {
		return err
	}
	r, rerr := w.pinScope.Root(exc.Raw())
	if rerr != nil {
		w.log.Warn("failed to pin escaped exception", zap.Error(rerr))
		return err
	}
	e := err.(*errors.Error)
	pinned := *e
	pinned.Value = value.Wrap(r)
	return &pinned
}

type yieldSignal uint8

const (
	yieldSuspended yieldSignal = iota
	yieldFinished
)

const (
	statePending int32 = iota
	stateRunning
	stateCanceled
)

type task struct {
	kind    string
	fn      Func
	fut     *Future
	stack   *rooting.Stack // non-nil for generator invocations
	grant   chan struct{}
	yield   chan yieldSignal
	state   atomic.Int32
	started bool // worker goroutine only
}

// body is the task's goroutine: it waits for the first grant, runs the
// computation, and returns the execution context.
func (t *task) body(w *Worker) {
	<-t.grant
	w.execute(t)
	t.yield <- yieldFinished
}
