package value

import (
	"encoding/binary"
	"fmt"
	"math"

	gcbridge "github.com/wippyai/gc-bridge"
	"github.com/wippyai/gc-bridge/errors"
	"github.com/wippyai/gc-bridge/rooting"
)

// Value is a typed handle to a rooted managed value. The zero Value is
// invalid. A Value expires with the frame that roots it; using it after that
// panics with a contract violation (see rooting.Rooted).
type Value struct {
	r rooting.Rooted
}

// Wrap turns a rooted raw pointer into a Value.
func Wrap(r rooting.Rooted) Value {
	return Value{r: r}
}

// Raw returns the underlying raw pointer. Panics if the handle expired.
func (v Value) Raw() gcbridge.Ptr {
	return v.r.Ptr()
}

// Rooted returns the underlying rooted handle.
func (v Value) Rooted() rooting.Rooted {
	return v.r
}

// Valid reports whether the owning frame is still live.
func (v Value) Valid() bool {
	return v.r.Valid()
}

func (v Value) binding() gcbridge.Binding {
	return v.r.Frame().Stack().Binding()
}

// Describe returns the runtime's type metadata for this value.
func (v Value) Describe() (gcbridge.TypeDesc, bool) {
	b := v.binding()
	return b.Describe(b.TypeOf(v.Raw()))
}

// Kind returns the runtime layout class of this value.
func (v Value) Kind() gcbridge.TypeKind {
	if desc, ok := v.Describe(); ok {
		return desc.Kind
	}
	return gcbridge.KindNothing
}

// TypeName returns the runtime type name, or "<unknown>" if the binding has
// no metadata for it.
func (v Value) TypeName() string {
	if desc, ok := v.Describe(); ok {
		return desc.Name
	}
	return "<unknown>"
}

// New boxes a host-native primitive as a managed value rooted in s. Supported
// host types: bool, fixed-width signed and unsigned integers, float32/64 and
// string. Anything else fails with a wrong_type error.
func New(s rooting.Scope, v any) (Value, error) {
	kind, data, err := encodePrimitive(v)
	if err != nil {
		return Value{}, err
	}
	return alloc(s, kind, data)
}

// NewInto boxes like New but roots the result in the output slot reserved by
// an enclosing frame, so it survives the current scope.
func NewInto(s rooting.Scope, v any) (Value, error) {
	kind, data, err := encodePrimitive(v)
	if err != nil {
		return Value{}, err
	}
	b := s.Frame().Stack().Binding()
	p, err := rawAlloc(b, kind, data)
	if err != nil {
		return Value{}, err
	}
	r, err := s.RootInto(p)
	if err != nil {
		return Value{}, err
	}
	return Wrap(r), nil
}

// Nothing returns the runtime's unit value rooted in s.
func Nothing(s rooting.Scope) (Value, error) {
	return alloc(s, gcbridge.KindNothing, nil)
}

// Global looks up a module-level binding, such as a function, and roots it in
// s. Globals are already rooted by the runtime itself, but rooting the handle
// keeps the lifetime rules uniform.
func Global(s rooting.Scope, module, name string) (Value, error) {
	b := s.Frame().Stack().Binding()
	p, ok := b.Global(module, name)
	if !ok {
		return Value{}, errors.NotFound(errors.PhaseCall, "global", module+"."+name)
	}
	r, err := s.Root(p)
	if err != nil {
		return Value{}, err
	}
	return Wrap(r), nil
}

func alloc(s rooting.Scope, kind gcbridge.TypeKind, data []byte) (Value, error) {
	b := s.Frame().Stack().Binding()
	p, err := rawAlloc(b, kind, data)
	if err != nil {
		return Value{}, err
	}
	r, err := s.Root(p)
	if err != nil {
		return Value{}, err
	}
	return Wrap(r), nil
}

func rawAlloc(b gcbridge.Binding, kind gcbridge.TypeKind, data []byte) (gcbridge.Ptr, error) {
	typ, ok := b.TypeFor(kind)
	if !ok {
		return 0, errors.Unsupported(errors.PhaseAlloc, fmt.Sprintf("runtime has no %s type", kind))
	}
	p, err := b.Alloc(typ, data)
	if err != nil {
		return 0, errors.AllocationFailed(kind.String(), err)
	}
	return p, nil
}

func encodePrimitive(v any) (gcbridge.TypeKind, []byte, error) {
	switch x := v.(type) {
	case bool:
		if x {
			return gcbridge.KindBool, []byte{1}, nil
		}
		return gcbridge.KindBool, []byte{0}, nil
	case int8:
		return gcbridge.KindInt8, []byte{byte(x)}, nil
	case int16:
		return gcbridge.KindInt16, binary.LittleEndian.AppendUint16(nil, uint16(x)), nil
	case int32:
		return gcbridge.KindInt32, binary.LittleEndian.AppendUint32(nil, uint32(x)), nil
	case int64:
		return gcbridge.KindInt64, binary.LittleEndian.AppendUint64(nil, uint64(x)), nil
	case uint8:
		return gcbridge.KindUInt8, []byte{x}, nil
	case uint16:
		return gcbridge.KindUInt16, binary.LittleEndian.AppendUint16(nil, x), nil
	case uint32:
		return gcbridge.KindUInt32, binary.LittleEndian.AppendUint32(nil, x), nil
	case uint64:
		return gcbridge.KindUInt64, binary.LittleEndian.AppendUint64(nil, x), nil
	case float32:
		return gcbridge.KindFloat32, binary.LittleEndian.AppendUint32(nil, math.Float32bits(x)), nil
	case float64:
		return gcbridge.KindFloat64, binary.LittleEndian.AppendUint64(nil, math.Float64bits(x)), nil
	case string:
		return gcbridge.KindString, []byte(x), nil
	}
	return 0, nil, errors.New(errors.PhaseConvert, errors.KindWrongType).
		GoType(fmt.Sprintf("%T", v)).
		Detail("type cannot be boxed as a managed primitive").
		Build()
}
