package runtime

import (
	"sync"

	"go.uber.org/zap"

	gcbridge "github.com/wippyai/gc-bridge"
	"github.com/wippyai/gc-bridge/errors"
	"github.com/wippyai/gc-bridge/rooting"
)

// DefaultStackCapacity is the root stack reservation hint passed to the
// binding when Options does not override it.
const DefaultStackCapacity = 64

var (
	initMu sync.Mutex
	// initDone stays set after Close: the embedded runtime cannot be
	// restarted within one process.
	initDone bool
	active   *Runtime
)

// Options configures initialization. The zero value is usable.
type Options struct {
	// StackCapacity is a hint for the binding's initial root stack
	// reservation. Zero means DefaultStackCapacity.
	StackCapacity int

	// MinVersion is the minimum embedded runtime version accepted, e.g.
	// "1.6.0". Empty disables the check.
	MinVersion string

	// Logger receives lifecycle events. Nil means a no-op logger.
	Logger *zap.Logger
}

// Runtime is the handle to the initialized embedded runtime. It owns the
// synchronous root stack.
type Runtime struct {
	binding gcbridge.Binding
	stack   *rooting.Stack
	log     *zap.Logger
	closed  bool
}

// Init starts the embedded runtime. It may be called exactly once per
// process lifetime; later calls fail with already_initialized, including
// after Close.
func Init(b gcbridge.Binding, opts *Options) (*Runtime, error) {
	initMu.Lock()
	defer initMu.Unlock()

	if initDone {
		return nil, errors.AlreadyInitialized()
	}

	if opts == nil {
		opts = &Options{}
	}
	log := opts.Logger
	if log == nil {
		log = Logger()
	}

	if err := checkVersion(b.Version(), opts.MinVersion); err != nil {
		return nil, err
	}

	capacity := opts.StackCapacity
	if capacity <= 0 {
		capacity = DefaultStackCapacity
	}
	if err := b.Init(capacity); err != nil {
		return nil, errors.Internal(errors.PhaseInit, "binding init", err)
	}

	rt := &Runtime{
		binding: b,
		stack:   rooting.NewStack(b),
		log:     log,
	}
	initDone = true
	active = rt

	log.Info("managed runtime initialized",
		zap.String("version", b.Version()),
		zap.Int("stack_capacity", capacity))
	return rt, nil
}

// Scope opens a root frame with dynamically sized slot storage, runs fn, and
// unroots everything the closure registered when it returns, error paths
// included. This is the sole way to obtain a Scope for synchronous use.
func (r *Runtime) Scope(fn rooting.Func) error {
	if r.closed {
		return errors.NotInitialized("scope")
	}
	return r.stack.Enter(fn)
}

// ScopeWithCapacity is Scope with a fixed-capacity frame: rooting more than
// capacity values inside fn fails with capacity_exceeded.
func (r *Runtime) ScopeWithCapacity(capacity int, fn rooting.Func) error {
	if r.closed {
		return errors.NotInitialized("scope")
	}
	return r.stack.EnterWithCapacity(capacity, fn)
}

// Binding exposes the raw binding for subsystems layered on top, such as
// task workers.
func (r *Runtime) Binding() gcbridge.Binding {
	return r.binding
}

// StackDepth reports the number of live frames on the synchronous root
// stack. Diagnostics only.
func (r *Runtime) StackDepth() int {
	return r.stack.Depth()
}

// Close shuts the embedded runtime down. The process cannot initialize it
// again. Live frames at this point indicate a leak and are logged, not
// tolerated silently.
func (r *Runtime) Close() error {
	initMu.Lock()
	defer initMu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	active = nil

	if !r.stack.Empty() {
		r.log.Warn("closing runtime with live root frames",
			zap.Int("depth", r.stack.Depth()))
	}

	if err := r.binding.Shutdown(); err != nil {
		return errors.Internal(errors.PhaseInit, "binding shutdown", err)
	}
	r.log.Info("managed runtime shut down")
	return nil
}

// current returns the active runtime, used by the reverse entry path.
func current() *Runtime {
	initMu.Lock()
	defer initMu.Unlock()
	return active
}
