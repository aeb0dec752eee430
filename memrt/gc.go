package memrt

import (
	"go.uber.org/zap"

	gcbridge "github.com/wippyai/gc-bridge"
)

// Stats is a snapshot of heap and collector state.
type Stats struct {
	Objects     int
	Frames      int
	Pins        int
	Collections int
}

// Stats reports the current heap state.
func (r *Runtime) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		Objects:     len(r.heap),
		Frames:      len(r.frames),
		Pins:        len(r.pins),
		Collections: r.collections,
	}
}

// Alive reports whether p still refers to a heap object. Dead after a
// collection means the object was unreachable from every root.
func (r *Runtime) Alive(p gcbridge.Ptr) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.heap[p]
	return ok
}

// Collect forces a full mark/sweep cycle.
func (r *Runtime) Collect() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collect()
}

func (r *Runtime) pin(p gcbridge.Ptr) {
	if p != 0 {
		r.pins[p]++
	}
}

func (r *Runtime) unpin(p gcbridge.Ptr) {
	if p == 0 {
		return
	}
	if r.pins[p] <= 1 {
		delete(r.pins, p)
	} else {
		r.pins[p]--
	}
}

// maybeCollect runs a cycle every gcInterval host allocations. Caller holds
// the lock.
func (r *Runtime) maybeCollect() {
	if r.gcInterval <= 0 {
		return
	}
	r.allocs++
	if r.allocs >= r.gcInterval {
		r.allocs = 0
		r.collect()
	}
}

// collect is a stop-the-world mark/sweep. Roots are the registered GC
// frames' slots, module globals, type objects and pinned async results.
// Caller holds the lock.
func (r *Runtime) collect() {
	for _, o := range r.heap {
		o.mark = false
	}

	for _, f := range r.frames {
		for _, p := range f.slots {
			r.markFrom(p)
		}
	}
	for _, p := range r.globals {
		r.markFrom(p)
	}
	for _, p := range r.typeObjs {
		r.markFrom(p)
	}
	for p := range r.pins {
		r.markFrom(p)
	}

	swept := 0
	for p, o := range r.heap {
		if !o.mark {
			delete(r.heap, p)
			swept++
		}
	}
	r.collections++
	if swept > 0 {
		r.log.Debug("collection cycle",
			zap.Int("swept", swept),
			zap.Int("live", len(r.heap)))
	}
}

// markFrom traces p and everything reachable from it: the object's type cell
// and, for structs and exceptions, its fields. Zero slots (reserved but
// unfilled) are skipped.
func (r *Runtime) markFrom(p gcbridge.Ptr) {
	if p == 0 {
		return
	}
	o, ok := r.heap[p]
	if !ok || o.mark {
		return
	}
	o.mark = true
	r.markFrom(o.typ)
	for _, f := range o.fields {
		r.markFrom(f)
	}
}
