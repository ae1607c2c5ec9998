package fixnum

import (
	"testing"

	"github.com/chazu/unacpp/pkg/numeric"
)

func TestParseOverflow(t *testing.T) {
	f := NewFactory()
	if _, err := f.Parse("99999999999999999999999999"); err == nil {
		t.Fatalf("expected overflow error")
	}
}

func TestParseNonDecimal(t *testing.T) {
	f := NewFactory()
	if _, err := f.Parse("12x"); err == nil {
		t.Fatalf("expected non-decimal error")
	}
}

func TestSubUnderflowFails(t *testing.T) {
	_, ok := Value(1).Sub(Value(2))
	if ok {
		t.Fatalf("expected underflow to fail rather than wrap")
	}
}

func TestDivModByZeroFails(t *testing.T) {
	_, _, ok := Value(10).DivMod(Value(0))
	if ok {
		t.Fatalf("expected division by zero to fail")
	}
}

func TestAddOverflowPanicsWithSentinel(t *testing.T) {
	defer func() {
		r := recover()
		if r != numeric.Overflow {
			t.Fatalf("expected to recover numeric.Overflow, got %v", r)
		}
	}()
	Value(^uint64(0)).Add(Value(1))
	t.Fatalf("expected Add to panic on overflow")
}

func TestMulOverflowPanicsWithSentinel(t *testing.T) {
	defer func() {
		r := recover()
		if r != numeric.Overflow {
			t.Fatalf("expected to recover numeric.Overflow, got %v", r)
		}
	}()
	Value(^uint64(0)).Mul(Value(2))
	t.Fatalf("expected Mul to panic on overflow")
}

func TestRoundTrip(t *testing.T) {
	f := NewFactory()
	v, err := f.Parse("42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.String() != "42" {
		t.Fatalf("got %s, want 42", v)
	}
}
