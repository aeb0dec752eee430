package memrt_test

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	gcbridge "github.com/wippyai/gc-bridge"
	"github.com/wippyai/gc-bridge/memrt"
)

func newRuntime(t *testing.T, opts ...memrt.Option) *memrt.Runtime {
	t.Helper()
	r := memrt.New(opts...)
	require.NoError(t, r.Init(16))
	return r
}

func allocInt64(t *testing.T, r *memrt.Runtime, v int64) gcbridge.Ptr {
	t.Helper()
	typ, ok := r.TypeFor(gcbridge.KindInt64)
	require.True(t, ok)
	p, err := r.Alloc(typ, binary.LittleEndian.AppendUint64(nil, uint64(v)))
	require.NoError(t, err)
	return p
}

func allocFloat64(t *testing.T, r *memrt.Runtime, v float64) gcbridge.Ptr {
	t.Helper()
	typ, ok := r.TypeFor(gcbridge.KindFloat64)
	require.True(t, ok)
	p, err := r.Alloc(typ, binary.LittleEndian.AppendUint64(nil, math.Float64bits(v)))
	require.NoError(t, err)
	return p
}

func unboxInt64(t *testing.T, r *memrt.Runtime, p gcbridge.Ptr) int64 {
	t.Helper()
	bits, err := r.Bits(p)
	require.NoError(t, err)
	require.Len(t, bits, 8)
	return int64(binary.LittleEndian.Uint64(bits))
}

func global(t *testing.T, r *memrt.Runtime, name string) gcbridge.Ptr {
	t.Helper()
	p, ok := r.Global("Base", name)
	require.True(t, ok, "missing global Base.%s", name)
	return p
}

// call asserts the invocation neither errored nor raised.
func call(t *testing.T, r *memrt.Runtime, name string, args ...gcbridge.Ptr) gcbridge.Ptr {
	t.Helper()
	res, exc, err := r.Call(global(t, r, name), args)
	require.NoError(t, err)
	require.Zero(t, exc, "unexpected raise")
	return res
}

// raise asserts the invocation raised and returns the exception's type name.
func raise(t *testing.T, r *memrt.Runtime, name string, args ...gcbridge.Ptr) (string, gcbridge.Ptr) {
	t.Helper()
	res, exc, err := r.Call(global(t, r, name), args)
	require.NoError(t, err)
	require.Zero(t, res)
	require.NotZero(t, exc, "expected a raise")
	desc, ok := r.Describe(r.TypeOf(exc))
	require.True(t, ok)
	require.Equal(t, gcbridge.KindException, desc.Kind)
	return desc.Name, exc
}

func TestAllocTypeAndBits(t *testing.T) {
	r := newRuntime(t, memrt.WithGCInterval(0))

	p := allocInt64(t, r, -12345)
	require.Equal(t, int64(-12345), unboxInt64(t, r, p))

	desc, ok := r.Describe(r.TypeOf(p))
	require.True(t, ok)
	require.Equal(t, gcbridge.TypeDesc{Name: "Int64", Kind: gcbridge.KindInt64, Size: 8}, desc)
}

func TestAllocValidatesPayloadSize(t *testing.T) {
	r := newRuntime(t)
	typ, _ := r.TypeFor(gcbridge.KindInt32)
	_, err := r.Alloc(typ, []byte{1, 2})
	require.Error(t, err)
}

func TestUnrootedObjectIsSwept(t *testing.T) {
	r := newRuntime(t, memrt.WithGCInterval(0))

	p := allocInt64(t, r, 1)
	require.True(t, r.Alive(p))
	r.Collect()
	require.False(t, r.Alive(p))
}

func TestFrameSlotsAreRoots(t *testing.T) {
	r := newRuntime(t, memrt.WithGCInterval(0))

	f, err := r.PushGCFrame(2)
	require.NoError(t, err)

	p := allocInt64(t, r, 2)
	require.NoError(t, f.Set(0, p))

	r.Collect()
	require.True(t, r.Alive(p))

	require.NoError(t, r.PopGCFrame(f))
	r.Collect()
	require.False(t, r.Alive(p))
}

func TestFixedFrameRejectsOutOfRangeSlot(t *testing.T) {
	r := newRuntime(t)
	f, err := r.PushGCFrame(1)
	require.NoError(t, err)
	p := allocInt64(t, r, 3)
	require.NoError(t, f.Set(0, p))
	require.Error(t, f.Set(1, p))
}

func TestInterleavedFramePops(t *testing.T) {
	r := newRuntime(t, memrt.WithGCInterval(0))

	// Two logical stacks interleave: a is popped while b is still live.
	a, err := r.PushGCFrame(0)
	require.NoError(t, err)
	b, err := r.PushGCFrame(0)
	require.NoError(t, err)

	pb := allocInt64(t, r, 9)
	require.NoError(t, b.Set(0, pb))

	require.NoError(t, r.PopGCFrame(a))
	r.Collect()
	require.True(t, r.Alive(pb))
	require.NoError(t, r.PopGCFrame(b))
	require.Error(t, r.PopGCFrame(b))
}

func TestStructFieldsAreTraced(t *testing.T) {
	r := newRuntime(t, memrt.WithGCInterval(0))

	f, err := r.PushGCFrame(1)
	require.NoError(t, err)

	inner := allocInt64(t, r, 5)
	cell := call(t, r, "mutcell", inner)
	require.NoError(t, f.Set(0, cell))

	// Only the cell is rooted; the payload must survive through the field.
	r.Collect()
	require.True(t, r.Alive(inner))

	got, err := r.Field(cell, 0)
	require.NoError(t, err)
	require.Equal(t, inner, got)

	idx, ok := r.FieldIndex(r.TypeOf(cell), "value")
	require.True(t, ok)
	require.Equal(t, 0, idx)
}

func TestArithmeticBuiltins(t *testing.T) {
	r := newRuntime(t, memrt.WithGCInterval(0))

	sum := call(t, r, "+", allocInt64(t, r, 40), allocInt64(t, r, 2))
	require.Equal(t, int64(42), unboxInt64(t, r, sum))

	prod := call(t, r, "*", allocInt64(t, r, 6), allocInt64(t, r, 7))
	require.Equal(t, int64(42), unboxInt64(t, r, prod))

	diff := call(t, r, "-", allocInt64(t, r, 1), allocInt64(t, r, 2))
	require.Equal(t, int64(-1), unboxInt64(t, r, diff))

	quot := call(t, r, "div", allocInt64(t, r, 7), allocInt64(t, r, 2))
	require.Equal(t, int64(3), unboxInt64(t, r, quot))
}

func TestMixedArithmeticPromotesToFloat(t *testing.T) {
	r := newRuntime(t, memrt.WithGCInterval(0))

	sum := call(t, r, "+", allocInt64(t, r, 1), allocFloat64(t, r, 0.5))
	desc, ok := r.Describe(r.TypeOf(sum))
	require.True(t, ok)
	require.Equal(t, gcbridge.KindFloat64, desc.Kind)

	bits, err := r.Bits(sum)
	require.NoError(t, err)
	require.Equal(t, 1.5, math.Float64frombits(binary.LittleEndian.Uint64(bits)))
}

func TestRaises(t *testing.T) {
	r := newRuntime(t, memrt.WithGCInterval(0))

	name, exc := raise(t, r, "div", allocInt64(t, r, 1), allocInt64(t, r, 0))
	require.Equal(t, "DivideError", name)

	// The message rides in the msg field as a string object.
	msgPtr, err := r.Field(exc, 0)
	require.NoError(t, err)
	msg, err := r.Bits(msgPtr)
	require.NoError(t, err)
	require.Equal(t, "integer division by zero", string(msg))

	name, _ = raise(t, r, "sqrt", allocFloat64(t, r, -4))
	require.Equal(t, "DomainError", name)

	name, _ = raise(t, r, "+", allocInt64(t, r, 1), call(t, r, "mutcell", allocInt64(t, r, 0)))
	require.Equal(t, "MethodError", name)
}

func TestErrorBuiltinRaises(t *testing.T) {
	r := newRuntime(t, memrt.WithGCInterval(0))

	strType, ok := r.TypeFor(gcbridge.KindString)
	require.True(t, ok)
	msg, err := r.Alloc(strType, []byte("deliberate"))
	require.NoError(t, err)

	name, exc := raise(t, r, "error", msg)
	require.Equal(t, "ErrorException", name)
	msgPtr, err := r.Field(exc, 0)
	require.NoError(t, err)
	got, err := r.Bits(msgPtr)
	require.NoError(t, err)
	require.Equal(t, "deliberate", string(got))
}

func TestCellMutation(t *testing.T) {
	r := newRuntime(t, memrt.WithGCInterval(0))

	cell := call(t, r, "mutcell", allocInt64(t, r, 1))
	require.Equal(t, int64(1), unboxInt64(t, r, call(t, r, "cellget", cell)))

	call(t, r, "cellset", cell, allocInt64(t, r, 2))
	require.Equal(t, int64(2), unboxInt64(t, r, call(t, r, "cellget", cell)))
}

func TestAutomaticCollection(t *testing.T) {
	r := newRuntime(t, memrt.WithGCInterval(4))

	var last gcbridge.Ptr
	for i := 0; i < 20; i++ {
		last = allocInt64(t, r, int64(i))
	}
	stats := r.Stats()
	require.Greater(t, stats.Collections, 0)

	// Garbage from earlier iterations is gone; only recent unrooted
	// allocations may linger until the next cycle.
	r.Collect()
	require.False(t, r.Alive(last))
}

func TestCallAsyncPinsResultUntilRelease(t *testing.T) {
	r := newRuntime(t, memrt.WithGCInterval(0))

	ch, err := r.CallAsync(global(t, r, "+"), []gcbridge.Ptr{
		allocInt64(t, r, 20), allocInt64(t, r, 22),
	})
	require.NoError(t, err)
	out := <-ch
	require.NoError(t, out.Err)
	require.Zero(t, out.Exc)

	r.Collect()
	require.True(t, r.Alive(out.Result), "pinned result was swept")
	require.Equal(t, int64(42), unboxInt64(t, r, out.Result))

	out.Release()
	r.Collect()
	require.False(t, r.Alive(out.Result))
}

func TestLifecycle(t *testing.T) {
	r := memrt.New()
	require.Error(t, r.Shutdown(), "shutdown before init")
	require.NoError(t, r.Init(8))
	require.Error(t, r.Init(8), "double init")
	require.NoError(t, r.Shutdown())

	_, err := r.Alloc(0, nil)
	require.Error(t, err)
	_, err = r.PushGCFrame(0)
	require.Error(t, err)
	require.Error(t, r.Init(8), "restart after shutdown")
}

func TestReadAccessorsAfterShutdown(t *testing.T) {
	r := newRuntime(t)
	p := allocInt64(t, r, 7)
	require.NoError(t, r.Shutdown())

	// Reads must report the runtime state, not a phantom dead pointer.
	_, err := r.Bits(p)
	require.ErrorContains(t, err, "shut down")
	_, err = r.Field(p, 0)
	require.ErrorContains(t, err, "shut down")
}

func TestGlobalsListing(t *testing.T) {
	r := newRuntime(t)
	names := r.Globals()
	require.Contains(t, names, "Base.+")
	require.Contains(t, names, "Base.div")
	require.Contains(t, names, "Base.mutcell")
	_, ok := r.Global("Base", "missing")
	require.False(t, ok)
}
