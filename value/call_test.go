package value_test

import (
	"testing"

	"github.com/wippyai/gc-bridge/errors"
	"github.com/wippyai/gc-bridge/rooting"
	"github.com/wippyai/gc-bridge/value"
)

func TestCallArithmetic(t *testing.T) {
	stack, _ := newTestStack(t)

	err := stack.Enter(func(s rooting.Scope) error {
		add, err := value.Global(s, "Base", "+")
		if err != nil {
			return err
		}
		a, err := value.New(s, int64(40))
		if err != nil {
			return err
		}
		b, err := value.New(s, int64(2))
		if err != nil {
			return err
		}

		sum, err := add.Call(s, a, b)
		if err != nil {
			return err
		}
		n, err := value.Unbox[int64](sum)
		if err != nil {
			return err
		}
		if n != 42 {
			t.Fatalf("40 + 2 = %d", n)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestCallRaiseReturnsRootedException(t *testing.T) {
	stack, _ := newTestStack(t)

	err := stack.Enter(func(s rooting.Scope) error {
		div, err := value.Global(s, "Base", "div")
		if err != nil {
			return err
		}
		a, err := value.New(s, int64(10))
		if err != nil {
			return err
		}
		zero, err := value.New(s, int64(0))
		if err != nil {
			return err
		}

		_, err = div.Call(s, a, zero)
		if !errors.IsKind(err, errors.KindRuntimeException) {
			t.Fatalf("err = %v, want runtime_exception", err)
		}

		exc, ok := value.AsException(err)
		if !ok {
			t.Fatal("error carries no exception handle")
		}
		if exc.TypeName() != "DivideError" {
			t.Fatalf("exception type = %q, want DivideError", exc.TypeName())
		}
		if msg := value.ExceptionMessage(s, exc); msg != "integer division by zero" {
			t.Fatalf("message = %q", msg)
		}

		// The raise was contained; the same scope keeps working.
		b, err := value.New(s, int64(5))
		if err != nil {
			return err
		}
		res, err := div.Call(s, a, b)
		if err != nil {
			return err
		}
		n, err := value.Unbox[int64](res)
		if err != nil {
			return err
		}
		if n != 2 {
			t.Fatalf("10 div 5 = %d", n)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestCallSqrtDomainError(t *testing.T) {
	stack, _ := newTestStack(t)

	err := stack.Enter(func(s rooting.Scope) error {
		sqrt, err := value.Global(s, "Base", "sqrt")
		if err != nil {
			return err
		}
		neg, err := value.New(s, float64(-1))
		if err != nil {
			return err
		}
		_, err = sqrt.Call(s, neg)
		exc, ok := value.AsException(err)
		if !ok || exc.TypeName() != "DomainError" {
			t.Fatalf("err = %v, want DomainError exception", err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestCallIntoRootsResultInAncestor(t *testing.T) {
	stack, mem := newTestStack(t)

	err := stack.Enter(func(s rooting.Scope) error {
		out, err := s.ReserveOutput()
		if err != nil {
			return err
		}
		err = s.EnterOutput(out, func(inner rooting.Scope) error {
			mul, err := value.Global(inner, "Base", "*")
			if err != nil {
				return err
			}
			a, err := value.New(inner, int64(6))
			if err != nil {
				return err
			}
			b, err := value.New(inner, int64(7))
			if err != nil {
				return err
			}
			_, err = mul.CallInto(inner, a, b)
			return err
		})
		if err != nil {
			return err
		}

		// Inner frame and its operands are gone; the product is not.
		mem.Collect()
		n, err := value.Unbox[int64](value.Wrap(out.Rooted()))
		if err != nil {
			return err
		}
		if n != 42 {
			t.Fatalf("6 * 7 = %d", n)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestFieldAccess(t *testing.T) {
	stack, _ := newTestStack(t)

	err := stack.Enter(func(s rooting.Scope) error {
		mutcell, err := value.Global(s, "Base", "mutcell")
		if err != nil {
			return err
		}
		v, err := value.New(s, int64(11))
		if err != nil {
			return err
		}
		cell, err := mutcell.Call(s, v)
		if err != nil {
			return err
		}

		got, err := cell.Field(s, "value")
		if err != nil {
			return err
		}
		n, err := value.Unbox[int64](got)
		if err != nil {
			return err
		}
		if n != 11 {
			t.Fatalf("cell field = %d, want 11", n)
		}

		_, err = cell.Field(s, "bogus")
		if !errors.IsKind(err, errors.KindNotFound) {
			t.Fatalf("err = %v, want not_found", err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
