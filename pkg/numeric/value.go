// Package numeric defines the arbitrary-precision non-negative integer
// capability Unarian's counter needs: add, sub, mul, div-with-remainder,
// compare, zero-test, decimal parse, decimal format. Two implementations
// satisfy Value: bignum (math/big-backed, truly arbitrary precision) and
// fixnum (a 64-bit wrapper for the CLI's -f/--fixed mode).
package numeric

// Overflow is the panic value an Add or Mul implementation raises when its
// representation cannot hold the result - fixnum's 64-bit wraparound point,
// specifically; bignum has no upper bound and never panics with it. The VM
// recovers from exactly this sentinel and converts it into a VM failure (⊥)
// rather than letting it crash the process, matching the rule that no
// exception mechanism exists inside the VM beyond ⊥-propagation.
var Overflow = &overflowSentinel{}

type overflowSentinel struct{}

func (*overflowSentinel) Error() string {
	return "numeric: arithmetic overflowed the value's representation"
}

// Value is an immutable non-negative integer. Implementations never
// mutate the receiver; every method returns a new Value.
type Value interface {
	// Add returns v + other. Panics with Overflow if the representation
	// cannot hold the result.
	Add(other Value) Value

	// Sub returns v - other and true, or an undefined Value and false if
	// the subtraction would go negative.
	Sub(other Value) (Value, bool)

	// Mul returns v * other. Panics with Overflow if the representation
	// cannot hold the result.
	Mul(other Value) Value

	// DivMod returns (v / other, v % other) and true, or false if other is
	// zero.
	DivMod(other Value) (quotient, remainder Value, ok bool)

	// Cmp returns -1, 0, or 1 as v is less than, equal to, or greater than
	// other.
	Cmp(other Value) int

	// IsZero reports whether v == 0.
	IsZero() bool

	// String renders v in decimal.
	String() string
}

// Factory constructs Values of one concrete representation. The CLI picks
// a Factory based on -f/--fixed and threads it through the parser,
// optimizer, compiler, and VM so none of those packages hard-code a
// numeric representation.
type Factory interface {
	// Zero returns the additive identity.
	Zero() Value

	// FromUint64 builds a Value from a native unsigned integer. Used for
	// literal 1s (Increment/Decrement) and small pattern-recognized
	// constants.
	FromUint64(n uint64) Value

	// Parse decodes a decimal string (no sign, no leading '+') into a
	// Value. Returns an error if the string is not a valid non-negative
	// decimal integer, or - for a fixed-precision factory - if it
	// overflows the representation.
	Parse(s string) (Value, error)
}

// Equal reports whether a and b represent the same integer. A thin helper
// so call sites don't have to spell out Cmp(b) == 0.
func Equal(a, b Value) bool {
	return a.Cmp(b) == 0
}
