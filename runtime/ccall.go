package runtime

import (
	"github.com/wippyai/gc-bridge/errors"
	"github.com/wippyai/gc-bridge/rooting"
)

// CCallScope provides a scope to host functions invoked by the managed
// runtime itself (ccall-style reverse entry). The frame nests inside the
// runtime's own call frame, so roots registered here live exactly as long as
// the callback.
//
// Initialization has necessarily already happened on this path; calling Init
// from inside a reverse entry is an error, and CCallScope fails with
// not_initialized if no runtime is active.
func CCallScope(fn rooting.Func) error {
	rt := current()
	if rt == nil {
		return errors.NotInitialized("ccall entry")
	}
	return rt.stack.Enter(fn)
}
