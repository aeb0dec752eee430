package memrt

import (
	"encoding/binary"
	"fmt"
	"math"

	gcbridge "github.com/wippyai/gc-bridge"
)

// Call invokes a builtin function object. A raise inside the builtin comes
// back through exc; err is reserved for misuse of the binding itself.
func (r *Runtime) Call(fn gcbridge.Ptr, args []gcbridge.Ptr) (gcbridge.Ptr, gcbridge.Ptr, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.running(); err != nil {
		return 0, 0, err
	}
	res, exc := r.call(fn, args)
	return res, exc, nil
}

// CallAsync runs the call on an internal goroutine and delivers one outcome.
// The result and exception stay pinned against collection until the receiver
// calls Release.
func (r *Runtime) CallAsync(fn gcbridge.Ptr, args []gcbridge.Ptr) (<-chan gcbridge.CallOutcome, error) {
	r.mu.Lock()
	if err := r.running(); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	r.mu.Unlock()

	ch := make(chan gcbridge.CallOutcome, 1)
	go func() {
		r.mu.Lock()
		res, exc := r.call(fn, args)
		r.pin(res)
		r.pin(exc)
		r.mu.Unlock()

		ch <- gcbridge.CallOutcome{
			Result: res,
			Exc:    exc,
			Release: func() {
				r.mu.Lock()
				r.unpin(res)
				r.unpin(exc)
				r.mu.Unlock()
			},
		}
	}()
	return ch, nil
}

// call dispatches with the heap lock held.
func (r *Runtime) call(fn gcbridge.Ptr, args []gcbridge.Ptr) (gcbridge.Ptr, gcbridge.Ptr) {
	o, ok := r.heap[fn]
	if !ok || o.fn == nil {
		return 0, r.raise("MethodError", "called value is not a function")
	}
	for _, a := range args {
		if _, ok := r.heap[a]; !ok {
			return 0, r.raise("MethodError", fmt.Sprintf("dead argument pointer %#x", a))
		}
	}
	return o.fn(r, args)
}

func (r *Runtime) bootstrapGlobals() {
	base := map[string]builtinFunc{
		"+":       builtinAdd,
		"-":       builtinSub,
		"*":       builtinMul,
		"div":     builtinDiv,
		"sqrt":    builtinSqrt,
		"error":   builtinError,
		"mutcell": builtinMutCell,
		"cellget": builtinCellGet,
		"cellset": builtinCellSet,
	}
	fnType := r.types[gcbridge.KindFunction]
	for name, fn := range base {
		p := r.newObject(fnType, &object{fn: fn})
		r.globals["Base."+name] = p
	}
	r.globals["Base.nothing"] = r.newObject(r.types[gcbridge.KindNothing], &object{})
}

// raise allocates an exception of the named type carrying a message string.
// Caller holds the lock; the result is unrooted but collection only runs at
// explicit trigger points, so it survives until the bridge roots it.
func (r *Runtime) raise(typeName, msg string) gcbridge.Ptr {
	typ, ok := r.exceptionTypes[typeName]
	if !ok {
		typ = r.exceptionTypes["ErrorException"]
	}
	msgPtr := r.newObject(r.types[gcbridge.KindString], &object{bits: []byte(msg)})
	return r.newObject(typ, &object{fields: []gcbridge.Ptr{msgPtr}})
}

// number reads a numeric object's payload. isFloat distinguishes the two
// internal domains; integers of every width widen to int64.
func (r *Runtime) number(p gcbridge.Ptr) (i int64, f float64, isFloat, ok bool) {
	o, found := r.heap[p]
	if !found {
		return 0, 0, false, false
	}
	switch o.kind {
	case gcbridge.KindInt8:
		return int64(int8(o.bits[0])), 0, false, true
	case gcbridge.KindInt16:
		return int64(int16(binary.LittleEndian.Uint16(o.bits))), 0, false, true
	case gcbridge.KindInt32:
		return int64(int32(binary.LittleEndian.Uint32(o.bits))), 0, false, true
	case gcbridge.KindInt64:
		return int64(binary.LittleEndian.Uint64(o.bits)), 0, false, true
	case gcbridge.KindUInt8:
		return int64(o.bits[0]), 0, false, true
	case gcbridge.KindUInt16:
		return int64(binary.LittleEndian.Uint16(o.bits)), 0, false, true
	case gcbridge.KindUInt32:
		return int64(binary.LittleEndian.Uint32(o.bits)), 0, false, true
	case gcbridge.KindUInt64:
		return int64(binary.LittleEndian.Uint64(o.bits)), 0, false, true
	case gcbridge.KindFloat32:
		return 0, float64(math.Float32frombits(binary.LittleEndian.Uint32(o.bits))), true, true
	case gcbridge.KindFloat64:
		return 0, math.Float64frombits(binary.LittleEndian.Uint64(o.bits)), true, true
	}
	return 0, 0, false, false
}

func (r *Runtime) boxInt64(v int64) gcbridge.Ptr {
	return r.newObject(r.types[gcbridge.KindInt64],
		&object{bits: binary.LittleEndian.AppendUint64(nil, uint64(v))})
}

func (r *Runtime) boxFloat64(v float64) gcbridge.Ptr {
	return r.newObject(r.types[gcbridge.KindFloat64],
		&object{bits: binary.LittleEndian.AppendUint64(nil, math.Float64bits(v))})
}

// fold reduces numeric arguments left to right, promoting to float when any
// operand is a float. Results are Int64 or Float64 regardless of input width.
func (r *Runtime) fold(args []gcbridge.Ptr, ints func(a, b int64) int64, floats func(a, b float64) float64) (gcbridge.Ptr, gcbridge.Ptr) {
	if len(args) < 2 {
		return 0, r.raise("MethodError", "operator needs at least two arguments")
	}
	accI, accF, isFloat, ok := r.number(args[0])
	if !ok {
		return 0, r.raise("MethodError", "operand is not a number")
	}
	if isFloat {
		accI = 0
	} else {
		accF = float64(accI)
	}
	for _, a := range args[1:] {
		i, f, af, ok := r.number(a)
		if !ok {
			return 0, r.raise("MethodError", "operand is not a number")
		}
		if af || isFloat {
			if !af {
				f = float64(i)
			}
			if !isFloat {
				accF = float64(accI)
				isFloat = true
			}
			accF = floats(accF, f)
		} else {
			accI = ints(accI, i)
		}
	}
	if isFloat {
		return r.boxFloat64(accF), 0
	}
	return r.boxInt64(accI), 0
}

func builtinAdd(r *Runtime, args []gcbridge.Ptr) (gcbridge.Ptr, gcbridge.Ptr) {
	return r.fold(args,
		func(a, b int64) int64 { return a + b },
		func(a, b float64) float64 { return a + b })
}

func builtinSub(r *Runtime, args []gcbridge.Ptr) (gcbridge.Ptr, gcbridge.Ptr) {
	return r.fold(args,
		func(a, b int64) int64 { return a - b },
		func(a, b float64) float64 { return a - b })
}

func builtinMul(r *Runtime, args []gcbridge.Ptr) (gcbridge.Ptr, gcbridge.Ptr) {
	return r.fold(args,
		func(a, b int64) int64 { return a * b },
		func(a, b float64) float64 { return a * b })
}

// builtinDiv is truncating integer division. Dividing by zero raises
// DivideError rather than returning an error to the binding.
func builtinDiv(r *Runtime, args []gcbridge.Ptr) (gcbridge.Ptr, gcbridge.Ptr) {
	if len(args) != 2 {
		return 0, r.raise("MethodError", "div takes two arguments")
	}
	a, _, af, ok := r.number(args[0])
	if !ok || af {
		return 0, r.raise("MethodError", "div operates on integers")
	}
	b, _, bf, ok := r.number(args[1])
	if !ok || bf {
		return 0, r.raise("MethodError", "div operates on integers")
	}
	if b == 0 {
		return 0, r.raise("DivideError", "integer division by zero")
	}
	return r.boxInt64(a / b), 0
}

func builtinSqrt(r *Runtime, args []gcbridge.Ptr) (gcbridge.Ptr, gcbridge.Ptr) {
	if len(args) != 1 {
		return 0, r.raise("MethodError", "sqrt takes one argument")
	}
	i, f, isFloat, ok := r.number(args[0])
	if !ok {
		return 0, r.raise("MethodError", "sqrt operates on numbers")
	}
	if !isFloat {
		f = float64(i)
	}
	if f < 0 {
		return 0, r.raise("DomainError", "sqrt of a negative number")
	}
	return r.boxFloat64(math.Sqrt(f)), 0
}

// builtinError raises an ErrorException with the given message.
func builtinError(r *Runtime, args []gcbridge.Ptr) (gcbridge.Ptr, gcbridge.Ptr) {
	msg := "error"
	if len(args) == 1 {
		if o, ok := r.heap[args[0]]; ok && o.kind == gcbridge.KindString {
			msg = string(o.bits)
		}
	}
	return 0, r.raise("ErrorException", msg)
}

// builtinMutCell wraps a value in a single-field mutable cell. Cells are how
// persistent generator state mutates without reallocation.
func builtinMutCell(r *Runtime, args []gcbridge.Ptr) (gcbridge.Ptr, gcbridge.Ptr) {
	if len(args) != 1 {
		return 0, r.raise("MethodError", "mutcell takes one argument")
	}
	return r.newObject(r.mutCellType, &object{fields: []gcbridge.Ptr{args[0]}}), 0
}

func builtinCellGet(r *Runtime, args []gcbridge.Ptr) (gcbridge.Ptr, gcbridge.Ptr) {
	if len(args) != 1 {
		return 0, r.raise("MethodError", "cellget takes one argument")
	}
	o, ok := r.heap[args[0]]
	if !ok || o.typ != r.mutCellType {
		return 0, r.raise("MethodError", "cellget operates on a MutCell")
	}
	return o.fields[0], 0
}

func builtinCellSet(r *Runtime, args []gcbridge.Ptr) (gcbridge.Ptr, gcbridge.Ptr) {
	if len(args) != 2 {
		return 0, r.raise("MethodError", "cellset takes a cell and a value")
	}
	o, ok := r.heap[args[0]]
	if !ok || o.typ != r.mutCellType {
		return 0, r.raise("MethodError", "cellset operates on a MutCell")
	}
	o.fields[0] = args[1]
	return args[1], 0
}
