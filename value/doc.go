// Package value provides typed handles to rooted managed values.
//
// A Value pairs a raw managed pointer with the frame that roots it; it is
// only usable while that frame is live. Construction always goes through a
// rooting.Scope, so a freshly allocated value is rooted before the host ever
// sees it:
//
//	v, err := value.New(s, int64(42))   // boxed and rooted in s's frame
//	n, err := value.Unbox[int64](v)     // checked against runtime metadata
//
// Conversions are checked dynamically: the managed value's actual type is
// only known at runtime, so Unbox consults the binding's type metadata and
// fails with a wrong_type error on mismatch rather than trusting the static
// type parameter.
//
// Calls into the runtime never unwind across the boundary. An exception
// raised by managed code is caught at the call site, rooted in the caller's
// scope, and returned as a runtime_exception error; AsException recovers the
// handle for inspection.
package value
