// Package bignum implements numeric.Value with arbitrary-precision
// integers, backed by math/big.Int. This is the default numeric
// representation for Unarian: the language's counter has no fixed width,
// and math/big.Int is the standard way to represent one in Go.
package bignum

import (
	"fmt"
	"math/big"

	"github.com/chazu/unacpp/pkg/numeric"
)

// Value wraps a non-negative math/big.Int.
type Value struct {
	v *big.Int
}

// New wraps i as a Value. i must be non-negative; callers within this
// package always satisfy that, since every constructor and arithmetic
// result is checked before being wrapped.
func New(i *big.Int) Value {
	return Value{v: i}
}

var factory = Factory{}

// NewFactory returns the bignum numeric.Factory.
func NewFactory() numeric.Factory { return factory }

// Factory constructs bignum Values.
type Factory struct{}

// Zero returns 0.
func (Factory) Zero() numeric.Value {
	return Value{v: big.NewInt(0)}
}

// FromUint64 wraps n as a Value.
func (Factory) FromUint64(n uint64) numeric.Value {
	return Value{v: new(big.Int).SetUint64(n)}
}

// Parse decodes a decimal string, rejecting anything but an unsigned
// base-10 integer.
func (Factory) Parse(s string) (numeric.Value, error) {
	if s != "" && s[0] == '+' {
		return nil, fmt.Errorf("bignum: %q is not a valid decimal integer", s)
	}
	i, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("bignum: %q is not a valid decimal integer", s)
	}
	if i.Sign() < 0 {
		return nil, fmt.Errorf("bignum: %q is negative; Unarian counters are non-negative", s)
	}
	return Value{v: i}, nil
}

func as(other numeric.Value) *big.Int {
	return other.(Value).v
}

// Add returns v + other.
func (v Value) Add(other numeric.Value) numeric.Value {
	return Value{v: new(big.Int).Add(v.v, as(other))}
}

// Sub returns v - other, failing if the result would be negative.
func (v Value) Sub(other numeric.Value) (numeric.Value, bool) {
	r := new(big.Int).Sub(v.v, as(other))
	if r.Sign() < 0 {
		return nil, false
	}
	return Value{v: r}, true
}

// Mul returns v * other.
func (v Value) Mul(other numeric.Value) numeric.Value {
	return Value{v: new(big.Int).Mul(v.v, as(other))}
}

// DivMod returns the floor quotient and remainder of v / other.
func (v Value) DivMod(other numeric.Value) (numeric.Value, numeric.Value, bool) {
	d := as(other)
	if d.Sign() == 0 {
		return nil, nil, false
	}
	q, r := new(big.Int), new(big.Int)
	q.DivMod(v.v, d, r)
	return Value{v: q}, Value{v: r}, true
}

// Cmp compares v against other.
func (v Value) Cmp(other numeric.Value) int {
	return v.v.Cmp(as(other))
}

// IsZero reports whether v == 0.
func (v Value) IsZero() bool {
	return v.v.Sign() == 0
}

// String renders v in decimal.
func (v Value) String() string {
	return v.v.String()
}
