// Package rooting maintains the host-side root set for the embedded managed
// runtime's garbage collector.
//
// The collector cannot scan Go stacks, so every managed value the host holds
// is published through an explicit stack of frames. A frame corresponds to one
// lexical extent of host code; rooting a raw pointer in a frame keeps the
// value alive until that frame is popped. Frames are pushed and popped in
// strict LIFO order, and popping happens unconditionally when a scope exits,
// on the error path included.
//
// # Scopes
//
// Host code never touches frames directly. A Scope capability is passed into
// closures and offers two rooting targets:
//
//	s.Root(p)     roots in the current frame
//	s.RootInto(p) roots in an output slot reserved by an enclosing frame
//
// Output slots let a nested scope hand a rooted value back to its caller
// without re-rooting:
//
//	out, _ := s.ReserveOutput()
//	err := s.EnterOutput(out, func(inner rooting.Scope) error {
//	    p, err := allocateSomething()
//	    if err != nil {
//	        return err
//	    }
//	    _, err = inner.RootInto(p)
//	    return err
//	})
//	// out.Rooted() is valid here, until s's frame pops.
//
// # Contract violations
//
// Popping a non-top frame, filling an output slot twice, leaving a reserved
// output unfilled on successful return, and reading a handle after its frame
// popped are programming defects. They panic with *errors.Error of
// KindContractViolation instead of returning, since continuing would operate
// on an inconsistent root stack.
//
// The package performs no locking: a Stack belongs to a single execution
// context by construction (see the task package for the multi-goroutine
// story).
package rooting
