package rooting

import (
	gcbridge "github.com/wippyai/gc-bridge"
	"github.com/wippyai/gc-bridge/errors"
)

// Func is the signature of code executed inside a scope.
type Func func(s Scope) error

// Scope is the rooting capability handed to host closures. Two variants
// exist: a plain frame scope opened by Enter, and an output-redirecting scope
// opened by EnterOutput. Callers depend only on this interface, never on the
// concrete variant.
type Scope interface {
	// Root publishes p in the current frame. The handle expires when the
	// current scope exits.
	Root(p gcbridge.Ptr) (Rooted, error)

	// RootInto publishes p in the output slot reserved by an enclosing
	// frame. The handle carries the ancestor frame's lifetime, so the value
	// outlives the current scope. At most one write per reservation; a
	// second write is a contract violation, as is calling RootInto in a
	// scope opened without an output.
	RootInto(p gcbridge.Ptr) (Rooted, error)

	// ReserveOutput reserves a slot in the current frame for a nested
	// scope to fill through RootInto.
	ReserveOutput() (*Output, error)

	// Enter opens a nested scope with a dynamically sized frame.
	Enter(fn Func) error

	// EnterWithCapacity opens a nested scope with a fixed-capacity frame.
	EnterWithCapacity(capacity int, fn Func) error

	// EnterOutput opens a nested output-redirecting scope targeting out.
	// If fn returns nil without filling out, the scope panics with a
	// contract violation: the ancestor would be left with a stale slot.
	EnterOutput(out *Output, fn Func) error

	// Frame returns the scope's current frame.
	Frame() *Frame
}

// frameScope is the plain variant: everything roots into its own frame.
type frameScope struct {
	frame *Frame
}

func (s *frameScope) Root(p gcbridge.Ptr) (Rooted, error) {
	return s.frame.Root(p)
}

func (s *frameScope) RootInto(gcbridge.Ptr) (Rooted, error) {
	panic(errors.ContractViolation("RootInto called in a scope opened without an output slot"))
}

func (s *frameScope) ReserveOutput() (*Output, error) {
	return s.frame.ReserveOutput()
}

func (s *frameScope) Enter(fn Func) error {
	return s.frame.stack.enter(0, nil, fn)
}

func (s *frameScope) EnterWithCapacity(capacity int, fn Func) error {
	if capacity <= 0 {
		panic(errors.ContractViolation("fixed frame capacity must be positive, got %d", capacity))
	}
	return s.frame.stack.enter(capacity, nil, fn)
}

func (s *frameScope) EnterOutput(out *Output, fn Func) error {
	if out == nil {
		panic(errors.ContractViolation("EnterOutput with nil output slot"))
	}
	if out.frame.stack != s.frame.stack {
		panic(errors.ContractViolation("output slot belongs to a different root stack"))
	}
	if out.frame.closed {
		panic(errors.ContractViolation("output slot's frame already popped"))
	}
	return s.frame.stack.enter(0, out, fn)
}

func (s *frameScope) Frame() *Frame {
	return s.frame
}

// outputScope is the redirecting variant: RootInto targets the reservation
// made by an enclosing frame.
type outputScope struct {
	frameScope
	out *Output
}

func (s *outputScope) RootInto(p gcbridge.Ptr) (Rooted, error) {
	return s.out.fill(p)
}

// Output is a root slot in an ancestor frame reserved for a nested scope to
// fill. Many nested scopes may receive the same reservation over time, but it
// accepts exactly one write.
type Output struct {
	frame  *Frame
	slot   int
	rooted Rooted
	filled bool
}

func (o *Output) fill(p gcbridge.Ptr) (Rooted, error) {
	if o.filled {
		panic(errors.ContractViolation("output slot filled twice"))
	}
	if o.frame.closed {
		panic(errors.ContractViolation("output slot filled after its frame was popped"))
	}
	if err := o.frame.gc.Set(o.slot, p); err != nil {
		return Rooted{}, errors.Internal(errors.PhaseRoot, "set output slot", err)
	}
	o.filled = true
	o.rooted = Rooted{ptr: p, frame: o.frame}
	return o.rooted, nil
}

// Filled reports whether the reservation has been written.
func (o *Output) Filled() bool {
	return o.filled
}

// Rooted returns the handle produced by the nested scope's RootInto. Panics
// with a contract violation if the slot was never filled.
func (o *Output) Rooted() Rooted {
	if !o.filled {
		panic(errors.ContractViolation("output slot read before being filled"))
	}
	return o.rooted
}
