package gcbridge

// Ptr is a raw pointer into the managed runtime's heap. It is opaque to the
// host and must not be dereferenced. Ptr(0) is never a valid value.
//
// A raw Ptr is invisible to the embedded collector until it is rooted; hold it
// only long enough to pass it to a rooting operation.
type Ptr uintptr

// TypeKind identifies the runtime-level layout class of a managed value.
type TypeKind uint8

const (
	KindNothing TypeKind = iota
	KindBool
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUInt8
	KindUInt16
	KindUInt32
	KindUInt64
	KindFloat32
	KindFloat64
	KindString
	KindFunction
	KindException
	KindStruct
	KindDataType
)

func (k TypeKind) String() string {
	switch k {
	case KindNothing:
		return "Nothing"
	case KindBool:
		return "Bool"
	case KindInt8:
		return "Int8"
	case KindInt16:
		return "Int16"
	case KindInt32:
		return "Int32"
	case KindInt64:
		return "Int64"
	case KindUInt8:
		return "UInt8"
	case KindUInt16:
		return "UInt16"
	case KindUInt32:
		return "UInt32"
	case KindUInt64:
		return "UInt64"
	case KindFloat32:
		return "Float32"
	case KindFloat64:
		return "Float64"
	case KindString:
		return "String"
	case KindFunction:
		return "Function"
	case KindException:
		return "Exception"
	case KindStruct:
		return "Struct"
	case KindDataType:
		return "DataType"
	}
	return "Unknown"
}

// TypeDesc describes a managed type as reported by the runtime. Size is the
// payload size in bytes for bits types and zero otherwise.
type TypeDesc struct {
	Name string
	Kind TypeKind
	Size uint32
}

// GCFrame is one frame of roots registered with the embedded collector.
// Slots are written in order; a zero Ptr marks a reserved-but-unfilled slot
// and is skipped by the collector.
type GCFrame interface {
	// Set publishes p as the root in the given slot.
	Set(slot int, p Ptr) error
}

// Binding is the raw interface to the embedded managed runtime. It is the
// fixed external collaborator everything above it is built on: allocation,
// call dispatch, type introspection and the GC frame primitives the rooting
// layer wraps.
//
// Implementations are not required to be safe for concurrent use; the
// runtime and task packages guarantee a single active caller.
type Binding interface {
	// Init starts the embedded runtime. stackCapacity is a hint for the
	// initial root stack reservation; implementations may ignore it.
	Init(stackCapacity int) error

	// Shutdown stops the runtime. No calls may follow.
	Shutdown() error

	// Version reports the embedded runtime's semantic version, e.g. "1.8.5".
	Version() string

	// Alloc allocates a managed value of the given type from raw payload
	// bytes. The result is unrooted.
	Alloc(typ Ptr, data []byte) (Ptr, error)

	// Call invokes a managed function. A raise inside the runtime is
	// reported through exc, never by unwinding; err is reserved for faults
	// in the binding itself.
	Call(fn Ptr, args []Ptr) (res Ptr, exc Ptr, err error)

	// TypeOf returns the type descriptor object for a value.
	TypeOf(p Ptr) Ptr

	// Describe reports the layout of a type descriptor object.
	Describe(typ Ptr) (TypeDesc, bool)

	// Bits returns a copy of the raw payload of a bits-type value.
	Bits(p Ptr) ([]byte, error)

	// NumFields returns the field count of a struct value, 0 otherwise.
	NumFields(p Ptr) int

	// Field returns the i-th field of a struct value, unrooted.
	Field(p Ptr, i int) (Ptr, error)

	// FieldIndex resolves a field name to its index for a struct type.
	FieldIndex(typ Ptr, name string) (int, bool)

	// TypeFor returns the type descriptor object for a primitive kind.
	TypeFor(kind TypeKind) (Ptr, bool)

	// Global looks up a globally rooted binding, such as a module-level
	// function, by module and name.
	Global(module, name string) (Ptr, bool)

	// PushGCFrame registers a new root frame with the collector. A positive
	// capacity fixes the slot count; capacity <= 0 requests a frame that
	// grows on demand.
	PushGCFrame(capacity int) (GCFrame, error)

	// PopGCFrame releases a frame. Within one logical root stack frames pop
	// in reverse push order; frames of distinct stacks may interleave.
	PopGCFrame(f GCFrame) error
}

// CallOutcome is the result of an asynchronously executed call.
type CallOutcome struct {
	Result Ptr
	Exc    Ptr
	Err    error

	// Release drops the runtime's temporary pin on Result/Exc. The receiver
	// must root the pointers it keeps before calling it. May be nil.
	Release func()
}

// AsyncCaller is implemented by bindings that can run a call on the runtime's
// own task system without blocking the submitting context. The returned
// channel delivers exactly one outcome.
type AsyncCaller interface {
	CallAsync(fn Ptr, args []Ptr) (<-chan CallOutcome, error)
}
