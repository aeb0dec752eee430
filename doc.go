// Package gcbridge provides a safe bridge between Go and an embedded managed
// runtime that owns a tracing garbage collector.
//
// The embedded collector has no visibility into Go's stack or heap, so every
// managed value the host holds must be published in an explicit root set. This
// library maintains that root set as a stack of frames, each tied to one
// lexical extent of host code, and hands out typed handles whose validity ends
// when their frame is popped.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	gc-bridge/       Root package with the raw Binding interface and core types
//	├── runtime/     Init-once lifecycle and the synchronous scope entry point
//	├── rooting/     Root stack, frames, scopes and output slots
//	├── value/       Typed handles: boxing, unboxing, calls, field access
//	├── task/        Offloading calls to a dedicated worker context
//	├── memrt/       Reference in-process managed runtime used by tests and the CLI
//	└── errors/      Structured error types for debugging
//
// # Quick Start
//
// Initialize the runtime once, then do all synchronous work inside scopes:
//
//	rt, err := runtime.Init(memrt.New(), nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close()
//
//	err = rt.Scope(func(s rooting.Scope) error {
//	    a, err := value.New(s, int64(40))
//	    if err != nil {
//	        return err
//	    }
//	    b, err := value.New(s, int64(2))
//	    if err != nil {
//	        return err
//	    }
//	    add, err := value.Global(s, "Base", "+")
//	    if err != nil {
//	        return err
//	    }
//	    sum, err := add.Call(s, a, b)
//	    if err != nil {
//	        return err
//	    }
//	    n, err := value.Unbox[int64](sum)
//	    fmt.Println(n) // 42
//	    return err
//	})
//
// Every handle obtained inside the closure is unrooted when the closure
// returns; the collector is then free to reclaim the values.
//
// # Thread Safety
//
// The synchronous scope API must be used from the thread that initialized the
// runtime. All other goroutines reach the runtime through task.Worker, which
// serializes access on a single execution context and communicates through
// queues and per-task result channels.
package gcbridge
