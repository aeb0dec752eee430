package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseInit    Phase = "init"    // runtime initialization and teardown
	PhaseRoot    Phase = "root"    // root stack and frame management
	PhaseAlloc   Phase = "alloc"   // managed allocation
	PhaseCall    Phase = "call"    // managed function dispatch
	PhaseConvert Phase = "convert" // host/runtime value conversion
	PhaseTask    Phase = "task"    // offloaded task execution
)

// Kind categorizes the error
type Kind string

const (
	KindAllocationFailure  Kind = "allocation_failure"
	KindCapacityExceeded   Kind = "capacity_exceeded"
	KindRuntimeException   Kind = "runtime_exception"
	KindWrongType          Kind = "wrong_type"
	KindContractViolation  Kind = "contract_violation"
	KindAlreadyInitialized Kind = "already_initialized"
	KindNotInitialized     Kind = "not_initialized"
	KindNotFound           Kind = "not_found"
	KindCanceled           Kind = "canceled"
	KindUnsupported        Kind = "unsupported"
	KindInternal           Kind = "internal"
)

// Error is the structured error type used throughout the library
type Error struct {
	Value       any
	Cause       error
	Phase       Phase
	Kind        Kind
	GoType      string
	RuntimeType string
	Detail      string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.GoType != "" || e.RuntimeType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.RuntimeType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", runtime type ")
			b.WriteString(e.RuntimeType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("runtime type ")
			b.WriteString(e.RuntimeType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.RuntimeType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// RuntimeType sets the managed runtime type name
func (b *Builder) RuntimeType(t string) *Builder {
	b.err.RuntimeType = t
	return b
}

// Value sets the offending or carried value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// AllocationFailed creates an allocation failure error
func AllocationFailed(typeName string, cause error) *Error {
	return &Error{
		Phase:       PhaseAlloc,
		Kind:        KindAllocationFailure,
		RuntimeType: typeName,
		Detail:      "managed allocation failed",
		Cause:       cause,
	}
}

// CapacityExceeded creates a fixed-frame overflow error
func CapacityExceeded(capacity int) *Error {
	return &Error{
		Phase:  PhaseRoot,
		Kind:   KindCapacityExceeded,
		Detail: fmt.Sprintf("fixed frame is full (%d slots)", capacity),
		Value:  capacity,
	}
}

// WrongType creates a conversion layout mismatch error
func WrongType(goType, runtimeType string) *Error {
	return &Error{
		Phase:       PhaseConvert,
		Kind:        KindWrongType,
		GoType:      goType,
		RuntimeType: runtimeType,
	}
}

// RuntimeException wraps an exception raised inside the managed runtime.
// exc is the rooted handle to the exception object.
func RuntimeException(phase Phase, exc any, typeName string) *Error {
	return &Error{
		Phase:       phase,
		Kind:        KindRuntimeException,
		Value:       exc,
		RuntimeType: typeName,
		Detail:      "managed code raised",
	}
}

// ContractViolation creates a fatal internal-consistency error. Callers panic
// with the result rather than returning it.
func ContractViolation(detail string, args ...any) *Error {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &Error{
		Phase:  PhaseRoot,
		Kind:   KindContractViolation,
		Detail: detail,
	}
}

// AlreadyInitialized creates an init-twice error
func AlreadyInitialized() *Error {
	return &Error{
		Phase:  PhaseInit,
		Kind:   KindAlreadyInitialized,
		Detail: "runtime may be initialized once per process",
	}
}

// NotInitialized creates a use-before-init error
func NotInitialized(what string) *Error {
	return &Error{
		Phase:  PhaseInit,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s requires an initialized runtime", what),
	}
}

// NotFound creates a lookup failure error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Canceled creates a task-discarded error
func Canceled(detail string) *Error {
	return &Error{
		Phase:  PhaseTask,
		Kind:   KindCanceled,
		Detail: detail,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Internal wraps a fault in the bridge or binding itself
func Internal(phase Phase, detail string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInternal,
		Detail: detail,
		Cause:  cause,
	}
}

// IsKind reports whether err is, or wraps, a *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
