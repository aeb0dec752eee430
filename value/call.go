package value

import (
	gcbridge "github.com/wippyai/gc-bridge"
	"github.com/wippyai/gc-bridge/errors"
	"github.com/wippyai/gc-bridge/rooting"
)

// Call invokes v as a managed function, rooting the result in s. An exception
// raised inside the runtime is caught at this boundary, rooted in s, and
// returned as a runtime_exception error carrying the handle; it never unwinds
// into host control flow.
func (v Value) Call(s rooting.Scope, args ...Value) (Value, error) {
	return v.call(s, false, args)
}

// CallInto invokes like Call but roots the result in the output slot reserved
// by an enclosing frame, so it survives the current scope. The exception path
// still roots in the current frame: a raised value has no claim on the
// ancestor's slot.
func (v Value) CallInto(s rooting.Scope, args ...Value) (Value, error) {
	return v.call(s, true, args)
}

func (v Value) call(s rooting.Scope, into bool, args []Value) (Value, error) {
	b := v.binding()
	raw := make([]gcbridge.Ptr, len(args))
	for i, a := range args {
		raw[i] = a.Raw()
	}

	res, exc, err := b.Call(v.Raw(), raw)
	if err != nil {
		return Value{}, errors.Internal(errors.PhaseCall, "binding call failed", err)
	}
	if exc != 0 {
		return Value{}, rootException(s, b, exc)
	}

	var r rooting.Rooted
	if into {
		r, err = s.RootInto(res)
	} else {
		r, err = s.Root(res)
	}
	if err != nil {
		return Value{}, err
	}
	return Wrap(r), nil
}

// Field returns the named field of a struct value, rooted in s.
func (v Value) Field(s rooting.Scope, name string) (Value, error) {
	b := v.binding()
	idx, ok := b.FieldIndex(b.TypeOf(v.Raw()), name)
	if !ok {
		return Value{}, errors.NotFound(errors.PhaseCall, "field", name)
	}
	return v.FieldAt(s, idx)
}

// FieldAt returns the i-th field of a struct value, rooted in s.
func (v Value) FieldAt(s rooting.Scope, i int) (Value, error) {
	p, err := v.binding().Field(v.Raw(), i)
	if err != nil {
		return Value{}, errors.Internal(errors.PhaseCall, "field access", err)
	}
	r, err := s.Root(p)
	if err != nil {
		return Value{}, err
	}
	return Wrap(r), nil
}

// rootException roots a raised exception object and wraps it as an error.
func rootException(s rooting.Scope, b gcbridge.Binding, exc gcbridge.Ptr) error {
	name := "<unknown>"
	if desc, ok := b.Describe(b.TypeOf(exc)); ok {
		name = desc.Name
	}
	r, err := s.Root(exc)
	if err != nil {
		// Can't root the exception (fixed frame full). The raise still
		// must not vanish; report it without a handle.
		return errors.RuntimeException(errors.PhaseCall, nil, name)
	}
	return errors.RuntimeException(errors.PhaseCall, Wrap(r), name)
}

// AsException extracts the rooted exception handle from a runtime_exception
// error, if it carries one.
func AsException(err error) (Value, bool) {
	e, ok := err.(*errors.Error)
	if !ok || e.Kind != errors.KindRuntimeException {
		return Value{}, false
	}
	v, ok := e.Value.(Value)
	return v, ok
}

// ExceptionMessage returns the message field of an exception value if it has
// one, otherwise its type name.
func ExceptionMessage(s rooting.Scope, exc Value) string {
	msg, err := exc.Field(s, "msg")
	if err != nil {
		return exc.TypeName()
	}
	text, err := Unbox[string](msg)
	if err != nil {
		return exc.TypeName()
	}
	return text
}
