package rooting

import (
	gcbridge "github.com/wippyai/gc-bridge"
	"github.com/wippyai/gc-bridge/errors"
)

// Frame is one nested extent of the root stack. It records how many slots are
// occupied and whether the slot count is fixed; the slots themselves live in
// the binding's GC frame, which the collector walks.
type Frame struct {
	stack  *Stack
	prev   *Frame
	gc     gcbridge.GCFrame
	cap    int
	n      int
	fixed  bool
	closed bool
}

// Stack returns the stack this frame belongs to.
func (f *Frame) Stack() *Stack {
	return f.stack
}

// Len returns the number of occupied slots, reserved outputs included.
func (f *Frame) Len() int {
	return f.n
}

// Root publishes p in the next free slot and returns a handle bound to this
// frame's lifetime. For fixed frames at capacity it fails with a
// capacity_exceeded error; dynamic frames grow without bound.
func (f *Frame) Root(p gcbridge.Ptr) (Rooted, error) {
	slot, err := f.take()
	if err != nil {
		return Rooted{}, err
	}
	if err := f.gc.Set(slot, p); err != nil {
		return Rooted{}, errors.Internal(errors.PhaseRoot, "set root slot", err)
	}
	return Rooted{ptr: p, frame: f}, nil
}

// ReserveOutput occupies one slot for a nested scope to fill later. The slot
// counts toward a fixed frame's capacity immediately.
func (f *Frame) ReserveOutput() (*Output, error) {
	slot, err := f.take()
	if err != nil {
		return nil, err
	}
	return &Output{frame: f, slot: slot}, nil
}

func (f *Frame) take() (int, error) {
	if f.closed {
		panic(errors.ContractViolation("root registered on a popped frame"))
	}
	if f.fixed && f.n >= f.cap {
		return 0, errors.CapacityExceeded(f.cap)
	}
	slot := f.n
	f.n++
	return slot, nil
}

// Rooted is a raw managed pointer published in a frame. Its validity ends
// when the owning frame pops; reading it after that is a contract violation.
type Rooted struct {
	ptr   gcbridge.Ptr
	frame *Frame
}

// Ptr returns the rooted raw pointer. Panics with a contract_violation error
// if the owning frame has already been popped: an expired handle must never
// reach the raw binding.
func (r Rooted) Ptr() gcbridge.Ptr {
	if r.frame == nil || r.frame.closed {
		panic(errors.ContractViolation("handle used after its frame was popped"))
	}
	return r.ptr
}

// Valid reports whether the owning frame is still live.
func (r Rooted) Valid() bool {
	return r.frame != nil && !r.frame.closed
}

// Frame returns the owning frame.
func (r Rooted) Frame() *Frame {
	return r.frame
}
