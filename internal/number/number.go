// Package number implements the exact compile-time number used for untyped
// Kai constants.
//
// A Number denotes ±(N/D)·2^E. Both N and D are kept in 64 bits; arithmetic
// is carried out exactly and the result is squeezed back into 64-bit
// mantissas by shifting and bumping the exponent, so very large or very
// precise results lose low-order bits instead of failing.
//
// The exponent is bounded by MaxExp. Operations never panic or wrap on
// large exponents: a result beyond the bound is pinned just outside it, and
// Check reports it as ErrRange.
package number

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"math/bits"
	"strconv"
)

// Number is an exact rational with a binary exponent.
type Number struct {
	N   uint64 // numerator
	D   uint64 // denominator, never zero once normalized
	E   int32  // power of two
	Neg bool
}

// MaxExp bounds the binary exponent of a representable Number.
const MaxExp = 1 << 16

// ErrRange is reported by Check for a number whose exponent left the
// representable range.
var ErrRange = errors.New("number out of range")

// Zero is the canonical zero.
var Zero = Number{N: 0, D: 1}

// One is the canonical one.
var One = Number{N: 1, D: 1}

// New builds a normalized number from its parts.
func New(n, d uint64, neg bool, e int32) Number {
	return Number{N: n, D: d, E: e, Neg: neg}.Normalize()
}

// FromInt64 returns the number equal to v.
func FromInt64(v int64) Number {
	if v < 0 {
		// -MinInt64 overflows int64 but not uint64.
		return Number{N: uint64(-(v + 1)) + 1, D: 1, Neg: true}.Normalize()
	}
	return Number{N: uint64(v), D: 1}.Normalize()
}

// FromUint64 returns the number equal to v.
func FromUint64(v uint64) Number {
	return Number{N: v, D: 1}.Normalize()
}

// FromFloat64 returns the number exactly equal to f.
// Infinities and NaN have no representation and report false.
func FromFloat64(f float64) (Number, bool) {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return Zero, false
	}
	if f == 0 {
		return Zero, true
	}
	neg := f < 0
	if neg {
		f = -f
	}
	frac, exp := math.Frexp(f) // f = frac * 2^exp, frac in [0.5, 1)
	mant := uint64(math.Ldexp(frac, 53))
	return New(mant, 1, neg, int32(exp-53)), true
}

// Normalize reduces the fraction and moves factors of two into E.
// Normalize is idempotent.
func (a Number) Normalize() Number {
	if a.N == 0 {
		return Zero
	}
	if a.D == 0 {
		// Division by zero is rejected before it reaches here; keep the
		// value well formed regardless.
		a.D = 1
	}
	if g := gcd(a.N, a.D); g > 1 {
		a.N /= g
		a.D /= g
	}
	e := int64(a.E)
	if tz := bits.TrailingZeros64(a.N); tz > 0 {
		a.N >>= uint(tz)
		e += int64(tz)
	}
	if tz := bits.TrailingZeros64(a.D); tz > 0 {
		a.D >>= uint(tz)
		e -= int64(tz)
	}
	a.E = clampExp(e)
	return a
}

// clampExp pins an exponent outside ±MaxExp to one step beyond the bound,
// so it stays an int32 and Check still sees it.
func clampExp(e int64) int32 {
	switch {
	case e > MaxExp:
		return MaxExp + 1
	case e < -MaxExp:
		return -(MaxExp + 1)
	}
	return int32(e)
}

// Check returns ErrRange if a lies outside the representable range.
func (a Number) Check() error {
	if a.N != 0 && (a.E > MaxExp || a.E < -MaxExp) {
		return ErrRange
	}
	return nil
}

// log2 estimates log2|a| to within one.
func (a Number) log2() int64 {
	return int64(a.E) + int64(bits.Len64(a.N)) - int64(bits.Len64(max(a.D, 1)))
}

func gcd(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// IsZero reports whether a is zero.
func (a Number) IsZero() bool { return a.N == 0 }

// IsInteger reports whether a has no fractional part.
func (a Number) IsInteger() bool {
	a = a.Normalize()
	return a.N == 0 || (a.D == 1 && a.E >= 0)
}

// Negate returns -a.
func (a Number) Negate() Number {
	if a.N == 0 {
		return Zero
	}
	a.Neg = !a.Neg
	return a
}

// Inv returns 1/a. The inverse of zero is zero.
func (a Number) Inv() Number {
	if a.N == 0 {
		return Zero
	}
	return Number{N: a.D, D: a.N, E: -a.E, Neg: a.Neg}.Normalize()
}

// Shl returns a·2^k.
func (a Number) Shl(k int32) Number {
	if a.N == 0 {
		return Zero
	}
	a.E = clampExp(int64(a.E) + int64(k))
	return a
}

// Shr returns a·2^-k.
func (a Number) Shr(k int32) Number {
	if a.N == 0 {
		return Zero
	}
	a.E = clampExp(int64(a.E) - int64(k))
	return a
}

// negligible is the magnitude gap, in bits, past which the smaller addend
// cannot reach a 64-bit mantissa.
const negligible = 130

// Add returns a+b.
func Add(a, b Number) Number {
	switch {
	case a.N == 0:
		return b.Normalize()
	case b.N == 0:
		return a.Normalize()
	case a.log2()-b.log2() > negligible:
		return a.Normalize()
	case b.log2()-a.log2() > negligible:
		return b.Normalize()
	}
	an, ad := a.rat()
	bn, bd := b.rat()
	e := min(a.E, b.E)
	an.Lsh(an, uint(a.E-e))
	bn.Lsh(bn, uint(b.E-e))

	// a/b + c/d = (ad + cb) / bd
	n := new(big.Int).Mul(an, bd)
	n.Add(n, new(big.Int).Mul(bn, ad))
	d := new(big.Int).Mul(ad, bd)
	return fit(n, d, int64(e))
}

// Sub returns a-b.
func Sub(a, b Number) Number { return Add(a, b.Negate()) }

// Mul returns a·b.
func Mul(a, b Number) Number {
	an, ad := a.rat()
	bn, bd := b.rat()
	an.Mul(an, bn)
	ad.Mul(ad, bd)
	return fit(an, ad, int64(a.E)+int64(b.E))
}

// Div returns a/b. Callers reject a zero divisor; Div of zero yields zero.
func Div(a, b Number) Number {
	if b.N == 0 {
		return Zero
	}
	return Mul(a, b.Inv())
}

// Pow returns a^k for any integer k.
func (a Number) Pow(k int) Number {
	if k < 0 {
		return a.Pow(-k).Inv()
	}
	r := One
	for k > 0 {
		if k&1 == 1 {
			r = Mul(r, a)
		}
		a = Mul(a, a)
		k >>= 1
	}
	return r
}

// Compare returns -1, 0 or +1 depending on whether a is less than, equal to
// or greater than b.
func Compare(a, b Number) int {
	sa, sb := a.sign(), b.sign()
	if sa != sb || sa == 0 {
		return cmpInt(sa, sb)
	}
	// Same sign: magnitudes far apart decide without aligning exponents.
	if la, lb := a.log2(), b.log2(); la-lb > 2 || lb-la > 2 {
		return cmpInt64(la, lb) * sa
	}
	an, ad := a.rat()
	bn, bd := b.rat()
	e := min(a.E, b.E)
	an.Lsh(an, uint(a.E-e))
	bn.Lsh(bn, uint(b.E-e))
	l := new(big.Int).Mul(an, bd)
	r := new(big.Int).Mul(bn, ad)
	return l.Cmp(r)
}

func (a Number) sign() int {
	switch {
	case a.N == 0:
		return 0
	case a.Neg:
		return -1
	}
	return 1
}

func cmpInt(a, b int) int { return cmpInt64(int64(a), int64(b)) }

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Equal reports whether a and b denote the same value.
func Equal(a, b Number) bool {
	return a.Normalize() == b.Normalize()
}

// rat returns the signed numerator and the denominator as big integers.
func (a Number) rat() (*big.Int, *big.Int) {
	d := a.D
	if d == 0 {
		d = 1
	}
	n := new(big.Int).SetUint64(a.N)
	if a.Neg {
		n.Neg(n)
	}
	return n, new(big.Int).SetUint64(d)
}

// fit reduces n/d·2^e and shifts both terms down until they fit 64 bits.
func fit(n, d *big.Int, e int64) Number {
	if n.Sign() == 0 {
		return Zero
	}
	neg := n.Sign() < 0
	n.Abs(n)

	g := new(big.Int).GCD(nil, nil, n, d)
	n.Quo(n, g)
	d.Quo(d, g)

	if tz := n.TrailingZeroBits(); tz > 0 {
		n.Rsh(n, tz)
		e += int64(tz)
	}
	if tz := d.TrailingZeroBits(); tz > 0 {
		d.Rsh(d, tz)
		e -= int64(tz)
	}
	if k := n.BitLen() - 64; k > 0 {
		n.Rsh(n, uint(k))
		e += int64(k)
	}
	if k := d.BitLen() - 64; k > 0 {
		d.Rsh(d, uint(k))
		e -= int64(k)
	}
	if d.Sign() == 0 {
		d.SetUint64(1)
	}
	return Number{N: n.Uint64(), D: d.Uint64(), E: clampExp(e), Neg: neg}.Normalize()
}

// ToF64 returns the nearest float64.
func (a Number) ToF64() float64 {
	if a.N == 0 {
		return 0
	}
	n, d := a.rat()
	r := new(big.Rat).SetFrac(n, d)
	f, _ := r.Float64()
	f = math.Ldexp(f, int(a.E))
	return f
}

// ToF32 returns the nearest float32.
func (a Number) ToF32() float32 {
	switch l := a.log2(); {
	case a.N == 0 || l < -200:
		return 0
	case l > 200:
		return float32(math.Inf(a.sign()))
	}
	n, d := a.rat()
	r := new(big.Rat).SetFrac(n, d)
	if a.E > 0 {
		r.Mul(r, new(big.Rat).SetInt(new(big.Int).Lsh(big.NewInt(1), uint(a.E))))
	} else if a.E < 0 {
		r.Quo(r, new(big.Rat).SetInt(new(big.Int).Lsh(big.NewInt(1), uint(-a.E))))
	}
	f, _ := r.Float32()
	return f
}

// ToInt64 returns a as an int64; ok is false if a is not an integer or does
// not fit.
func (a Number) ToInt64() (v int64, ok bool) {
	i, ok := a.bigInt()
	if !ok || !i.IsInt64() {
		return 0, false
	}
	return i.Int64(), true
}

// ToUint64 returns a as a uint64; ok is false if a is negative, fractional
// or too large.
func (a Number) ToUint64() (v uint64, ok bool) {
	i, ok := a.bigInt()
	if !ok || !i.IsUint64() {
		return 0, false
	}
	return i.Uint64(), true
}

func (a Number) bigInt() (*big.Int, bool) {
	a = a.Normalize()
	if a.N == 0 {
		return new(big.Int), true
	}
	if a.D != 1 || a.E < 0 {
		return nil, false
	}
	i := new(big.Int).SetUint64(a.N)
	i.Lsh(i, uint(a.E))
	if a.Neg {
		i.Neg(i)
	}
	return i, true
}

// String formats a as an integer when it is one and as a decimal otherwise.
func (a Number) String() string {
	if i, ok := a.bigInt(); ok {
		return i.String()
	}
	return strconv.FormatFloat(a.ToF64(), 'g', -1, 64)
}

// GoString renders the raw representation.
func (a Number) GoString() string {
	sign := ""
	if a.Neg {
		sign = "-"
	}
	return fmt.Sprintf("%s(%d/%d)*2^%d", sign, a.N, a.D, a.E)
}
