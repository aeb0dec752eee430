// Package runtime owns the embedded managed runtime's process-wide lifecycle
// and the synchronous scope entry point.
//
// Init may be called exactly once per process; the managed runtime cannot be
// restarted after shutdown, so a second Init is a checked error even after
// Close. All synchronous work happens inside Runtime.Scope, which opens a
// root frame, runs the closure with a rooting.Scope, and unroots everything
// on exit:
//
//	rt, err := runtime.Init(binding, nil)
//	if err != nil { ... }
//	defer rt.Close()
//
//	err = rt.Scope(func(s rooting.Scope) error {
//	    v, err := value.New(s, int64(1))
//	    ...
//	})
//
// The synchronous API belongs to the thread that called Init. Other
// goroutines must go through a task.Worker.
//
// When the managed runtime calls back into Go (a ccall-style reverse entry),
// the host function obtains a scope through CCallScope; initialization has
// already happened on that path and Init must not be called again.
package runtime
