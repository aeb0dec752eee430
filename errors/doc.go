// Package errors provides structured error types for the gc-bridge library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type includes rich context: Go/runtime type names, the
// offending value and a cause chain. For runtime_exception errors, Value holds
// the rooted handle to the exception object raised inside the managed runtime.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseConvert, errors.KindWrongType).
//		GoType("int64").
//		RuntimeType("Float64").
//		Detail("unbox target does not match runtime layout").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.CapacityExceeded(4)
//	err := errors.WrongType("int64", "Float64")
//
// All errors implement the standard error interface and support errors.Is/As.
//
// Contract violations are never returned: the rooting layer panics with a
// *Error of KindContractViolation, since continuing would operate on an
// inconsistent root stack.
package errors
