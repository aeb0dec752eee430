// Package memrt is a small in-process managed runtime used to exercise the
// bridge without a native library. It keeps an object heap keyed by opaque
// pointers, a set of builtin functions under the Base module, and a
// mark/sweep collector whose roots are the GC frames registered through the
// binding interface, module globals, type objects and pinned in-flight async
// results.
//
// memrt implements both gcbridge.Binding and gcbridge.AsyncCaller. It is a
// real collector in the sense that matters here: an unrooted object does not
// survive a collection cycle, so rooting bugs in the layers above surface as
// dead pointers instead of passing silently. Collect, Stats and Alive exist
// for exactly that kind of test.
//
// The heap lock serializes all access, including async calls, so the runtime
// provides the single-execution-context guarantee itself.
package memrt
