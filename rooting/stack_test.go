package rooting_test

import (
	"encoding/binary"
	"testing"

	gcbridge "github.com/wippyai/gc-bridge"
	"github.com/wippyai/gc-bridge/errors"
	"github.com/wippyai/gc-bridge/memrt"
	"github.com/wippyai/gc-bridge/rooting"
)

func newTestStack(t *testing.T) (*rooting.Stack, *memrt.Runtime) {
	t.Helper()
	mem := memrt.New(memrt.WithGCInterval(0))
	if err := mem.Init(16); err != nil {
		t.Fatalf("init memrt: %v", err)
	}
	return rooting.NewStack(mem), mem
}

// allocInt64 allocates an unrooted Int64 object directly through the binding.
func allocInt64(t *testing.T, b gcbridge.Binding, v int64) gcbridge.Ptr {
	t.Helper()
	typ, ok := b.TypeFor(gcbridge.KindInt64)
	if !ok {
		t.Fatal("binding has no Int64 type")
	}
	p, err := b.Alloc(typ, binary.LittleEndian.AppendUint64(nil, uint64(v)))
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	return p
}

func wantContractViolation(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected a contract violation panic")
		}
		err, ok := r.(error)
		if !ok || !errors.IsKind(err, errors.KindContractViolation) {
			t.Fatalf("panic value = %v, want contract violation", r)
		}
	}()
	fn()
}

func TestNestedScopesUnwindCompletely(t *testing.T) {
	stack, mem := newTestStack(t)

	err := stack.Enter(func(s rooting.Scope) error {
		if _, err := s.Root(allocInt64(t, mem, 1)); err != nil {
			return err
		}
		return s.Enter(func(inner rooting.Scope) error {
			if _, err := inner.Root(allocInt64(t, mem, 2)); err != nil {
				return err
			}
			return inner.Enter(func(deepest rooting.Scope) error {
				_, err := deepest.Root(allocInt64(t, mem, 3))
				return err
			})
		})
	})
	if err != nil {
		t.Fatalf("nested scopes: %v", err)
	}
	if !stack.Empty() || stack.Depth() != 0 {
		t.Fatalf("stack not empty after unwind: depth=%d", stack.Depth())
	}
}

func TestScopePopsFrameOnErrorReturn(t *testing.T) {
	stack, mem := newTestStack(t)

	wantErr := errors.NotFound(errors.PhaseCall, "global", "Base.missing")
	err := stack.Enter(func(s rooting.Scope) error {
		if _, rerr := s.Root(allocInt64(t, mem, 7)); rerr != nil {
			return rerr
		}
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if !stack.Empty() {
		t.Fatal("frame leaked on error return")
	}
}

func TestFixedFrameExactCapacity(t *testing.T) {
	stack, mem := newTestStack(t)

	err := stack.EnterWithCapacity(2, func(s rooting.Scope) error {
		for i := 0; i < 2; i++ {
			if _, err := s.Root(allocInt64(t, mem, int64(i))); err != nil {
				t.Fatalf("root %d within capacity: %v", i, err)
			}
		}
		_, err := s.Root(allocInt64(t, mem, 99))
		if !errors.IsKind(err, errors.KindCapacityExceeded) {
			t.Fatalf("overflow err = %v, want capacity_exceeded", err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestDynamicFrameGrows(t *testing.T) {
	stack, mem := newTestStack(t)

	err := stack.Enter(func(s rooting.Scope) error {
		for i := 0; i < 1000; i++ {
			if _, err := s.Root(allocInt64(t, mem, int64(i))); err != nil {
				t.Fatalf("root %d: %v", i, err)
			}
		}
		if s.Frame().Len() != 1000 {
			t.Fatalf("frame len = %d, want 1000", s.Frame().Len())
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestCollectorSeesRootedValues(t *testing.T) {
	stack, mem := newTestStack(t)

	err := stack.Enter(func(s rooting.Scope) error {
		rooted, err := s.Root(allocInt64(t, mem, 42))
		if err != nil {
			return err
		}
		loose := allocInt64(t, mem, 43)

		mem.Collect()
		if !mem.Alive(rooted.Ptr()) {
			t.Fatal("rooted value was collected")
		}
		if mem.Alive(loose) {
			t.Fatal("unrooted value survived collection")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestOutputRedirectionOutlivesNestedScope(t *testing.T) {
	stack, mem := newTestStack(t)

	err := stack.Enter(func(s rooting.Scope) error {
		out, err := s.ReserveOutput()
		if err != nil {
			return err
		}
		err = s.EnterOutput(out, func(inner rooting.Scope) error {
			_, err := inner.RootInto(allocInt64(t, mem, 7))
			return err
		})
		if err != nil {
			return err
		}

		// The nested frame is gone; the value lives in the ancestor slot.
		mem.Collect()
		if !mem.Alive(out.Rooted().Ptr()) {
			t.Fatal("output value did not survive nested scope exit")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !stack.Empty() {
		t.Fatal("stack not empty")
	}
}

func TestOutputDoubleFillPanics(t *testing.T) {
	stack, mem := newTestStack(t)

	_ = stack.Enter(func(s rooting.Scope) error {
		out, err := s.ReserveOutput()
		if err != nil {
			return err
		}
		wantContractViolation(t, func() {
			_ = s.EnterOutput(out, func(inner rooting.Scope) error {
				if _, err := inner.RootInto(allocInt64(t, mem, 1)); err != nil {
					return err
				}
				_, err := inner.RootInto(allocInt64(t, mem, 2))
				return err
			})
		})
		return nil
	})
}

func TestOutputUnfilledOnSuccessPanics(t *testing.T) {
	stack, _ := newTestStack(t)

	_ = stack.Enter(func(s rooting.Scope) error {
		out, err := s.ReserveOutput()
		if err != nil {
			return err
		}
		wantContractViolation(t, func() {
			_ = s.EnterOutput(out, func(rooting.Scope) error {
				return nil
			})
		})
		return nil
	})
}

func TestRootInPlainScopeWithoutOutputPanics(t *testing.T) {
	stack, mem := newTestStack(t)

	_ = stack.Enter(func(s rooting.Scope) error {
		wantContractViolation(t, func() {
			_, _ = s.RootInto(allocInt64(t, mem, 1))
		})
		return nil
	})
}

func TestHandleExpiresWithFrame(t *testing.T) {
	stack, mem := newTestStack(t)

	var escaped rooting.Rooted
	err := stack.Enter(func(s rooting.Scope) error {
		return s.Enter(func(inner rooting.Scope) error {
			var err error
			escaped, err = inner.Root(allocInt64(t, mem, 5))
			return err
		})
	})
	if err != nil {
		t.Fatal(err)
	}
	if escaped.Valid() {
		t.Fatal("handle still valid after its frame popped")
	}
	wantContractViolation(t, func() {
		_ = escaped.Ptr()
	})
}

func TestOpenFramePersistsAcrossScopes(t *testing.T) {
	stack, mem := newTestStack(t)

	scope, release, err := stack.OpenFrame(0)
	if err != nil {
		t.Fatal(err)
	}
	rooted, err := scope.Root(allocInt64(t, mem, 9))
	if err != nil {
		t.Fatal(err)
	}

	// Lexical scopes come and go above the persistent frame.
	for i := 0; i < 3; i++ {
		err := stack.Enter(func(s rooting.Scope) error {
			_, err := s.Root(allocInt64(t, mem, int64(i)))
			return err
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	mem.Collect()
	if !mem.Alive(rooted.Ptr()) {
		t.Fatal("persistent frame value was collected")
	}

	release()
	if !stack.Empty() {
		t.Fatal("stack not empty after release")
	}
	mem.Collect()
	if rooted.Valid() {
		t.Fatal("handle valid after release")
	}
}
