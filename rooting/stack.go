package rooting

import (
	gcbridge "github.com/wippyai/gc-bridge"
	"github.com/wippyai/gc-bridge/errors"
)

// Stack is one root stack: an intrusive chain of frames registered with the
// embedded collector. The process has one logical stack per execution context;
// the runtime package owns the synchronous one, each offloaded task gets a
// private one.
//
// Stack is not safe for concurrent use.
type Stack struct {
	binding gcbridge.Binding
	top     *Frame
	depth   int
}

// NewStack creates an empty root stack over the given binding.
func NewStack(b gcbridge.Binding) *Stack {
	return &Stack{binding: b}
}

// Binding returns the raw runtime binding this stack roots into.
func (s *Stack) Binding() gcbridge.Binding {
	return s.binding
}

// Depth returns the number of live frames. Diagnostics only; correctness
// never depends on it.
func (s *Stack) Depth() int {
	return s.depth
}

// Empty reports whether no frames are live.
func (s *Stack) Empty() bool {
	return s.top == nil
}

// Enter opens a dynamically sized frame, runs fn with a scope bound to it,
// and pops the frame on every exit path.
func (s *Stack) Enter(fn Func) error {
	return s.enter(0, nil, fn)
}

// EnterWithCapacity opens a fixed-capacity frame: rooting beyond capacity
// fails with a capacity_exceeded error.
func (s *Stack) EnterWithCapacity(capacity int, fn Func) error {
	if capacity <= 0 {
		panic(errors.ContractViolation("fixed frame capacity must be positive, got %d", capacity))
	}
	return s.enter(capacity, nil, fn)
}

func (s *Stack) enter(capacity int, out *Output, fn Func) error {
	f, err := s.pushFrame(capacity)
	if err != nil {
		return err
	}
	defer s.popFrame(f)

	var sc Scope
	if out != nil {
		sc = &outputScope{frameScope: frameScope{frame: f}, out: out}
	} else {
		sc = &frameScope{frame: f}
	}

	if err := fn(sc); err != nil {
		return err
	}
	if out != nil && !out.filled {
		panic(errors.ContractViolation("scope returned without filling its reserved output slot"))
	}
	return nil
}

// OpenFrame opens a frame that is not tied to a lexical extent: it stays
// live until release is called. This is how a generator's initialization
// state remains rooted across invocations. Frames opened this way still obey
// LIFO order; release panics with a contract violation if the frame is not
// the current top.
func (s *Stack) OpenFrame(capacity int) (Scope, func(), error) {
	f, err := s.pushFrame(capacity)
	if err != nil {
		return nil, nil, err
	}
	return &frameScope{frame: f}, func() { s.popFrame(f) }, nil
}

// pushFrame links a new frame atop the stack. capacity > 0 fixes the slot
// count; capacity <= 0 means the frame grows on demand.
func (s *Stack) pushFrame(capacity int) (*Frame, error) {
	gc, err := s.binding.PushGCFrame(capacity)
	if err != nil {
		return nil, errors.Internal(errors.PhaseRoot, "push GC frame", err)
	}
	f := &Frame{
		stack: s,
		prev:  s.top,
		gc:    gc,
		cap:   capacity,
		fixed: capacity > 0,
	}
	s.top = f
	s.depth++
	return f, nil
}

// popFrame removes the topmost frame and releases its roots. Frames not
// nested correctly indicate a defect in the bridge itself, so a pop of a
// non-top frame is fatal rather than recoverable.
func (s *Stack) popFrame(f *Frame) {
	if s.top != f {
		panic(errors.ContractViolation("frame popped out of LIFO order (depth %d)", s.depth))
	}
	s.top = f.prev
	s.depth--
	f.closed = true
	if err := s.binding.PopGCFrame(f.gc); err != nil {
		panic(errors.ContractViolation("binding rejected frame pop: %v", err))
	}
}
