// Package fixnum implements numeric.Value with a 64-bit unsigned integer,
// for the CLI's -f/--fixed mode. It is behaviorally identical to bignum
// except that Parse (and, transitively, any arithmetic that would carry a
// result past 2^64-1) fails instead of growing.
package fixnum

import (
	"fmt"
	"math/bits"

	"github.com/chazu/unacpp/pkg/numeric"
)

// Value wraps a uint64.
type Value uint64

// NewFactory returns the fixnum numeric.Factory.
func NewFactory() numeric.Factory { return Factory{} }

// Factory constructs fixnum Values.
type Factory struct{}

// Zero returns 0.
func (Factory) Zero() numeric.Value { return Value(0) }

// FromUint64 wraps n as a Value.
func (Factory) FromUint64(n uint64) numeric.Value { return Value(n) }

// Parse decodes a decimal string, failing on overflow or a non-decimal
// input.
func (Factory) Parse(s string) (numeric.Value, error) {
	var n uint64
	if s == "" {
		return nil, fmt.Errorf("fixnum: empty literal")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return nil, fmt.Errorf("fixnum: %q is not a valid decimal integer", s)
		}
		hi, lo := bits.Mul64(n, 10)
		if hi != 0 {
			return nil, fmt.Errorf("fixnum: %q overflows 64-bit arithmetic", s)
		}
		sum, carry := bits.Add64(lo, uint64(c-'0'), 0)
		if carry != 0 {
			return nil, fmt.Errorf("fixnum: %q overflows 64-bit arithmetic", s)
		}
		n = sum
	}
	return Value(n), nil
}

func as(other numeric.Value) uint64 {
	return uint64(other.(Value))
}

// Add returns v + other, panicking with numeric.Overflow instead of
// wrapping if the sum would exceed 2^64-1.
func (v Value) Add(other numeric.Value) numeric.Value {
	sum, carry := bits.Add64(uint64(v), as(other), 0)
	if carry != 0 {
		panic(numeric.Overflow)
	}
	return Value(sum)
}

// Sub returns v - other, failing (VM-level ⊥, not a panic) if it would go
// negative.
func (v Value) Sub(other numeric.Value) (numeric.Value, bool) {
	o := as(other)
	if uint64(v) < o {
		return Value(0), false
	}
	return Value(uint64(v) - o), true
}

// Mul returns v * other, panicking with numeric.Overflow on overflow (see
// Add).
func (v Value) Mul(other numeric.Value) numeric.Value {
	hi, lo := bits.Mul64(uint64(v), as(other))
	if hi != 0 {
		panic(numeric.Overflow)
	}
	return Value(lo)
}

// DivMod returns v/other and v%other, failing only if other is zero.
func (v Value) DivMod(other numeric.Value) (numeric.Value, numeric.Value, bool) {
	o := as(other)
	if o == 0 {
		return Value(0), Value(0), false
	}
	return Value(uint64(v) / o), Value(uint64(v) % o), true
}

// Cmp compares v against other.
func (v Value) Cmp(other numeric.Value) int {
	o := as(other)
	switch {
	case uint64(v) < o:
		return -1
	case uint64(v) > o:
		return 1
	default:
		return 0
	}
}

// IsZero reports whether v == 0.
func (v Value) IsZero() bool { return v == 0 }

// String renders v in decimal.
func (v Value) String() string {
	return fmt.Sprintf("%d", uint64(v))
}
