package number

import (
	"math"
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   Number
		want Number
	}{
		{"zero", Number{N: 0, D: 7, E: 3, Neg: true}, Zero},
		{"gcd", Number{N: 6, D: 9}, Number{N: 1, D: 3, E: 1}},
		{"two in numerator", Number{N: 0x20000000000000, D: 1, E: -53}, One},
		{"two in denominator", Number{N: 1, D: 0x20000000000000, E: 53}, One},
		{"sign kept", Number{N: 12, D: 1, Neg: true}, Number{N: 3, D: 1, E: 2, Neg: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize()
			be.Equal(t, got, tt.want)
			be.Equal(t, got.Normalize(), got)
		})
	}
}

func TestCompare(t *testing.T) {
	a := Number{N: 0x8000000080000000, D: 1, E: 1}
	b := Number{N: 0x8000000080000000, D: 1, E: 0}
	be.Equal(t, Compare(a, b), 1)
	be.Equal(t, Compare(b, a), -1)
	be.Equal(t, Compare(a, a), 0)

	be.Equal(t, Compare(FromInt64(-3), FromInt64(2)), -1)
	be.Equal(t, Compare(FromInt64(-3), FromInt64(-4)), 1)
	be.Equal(t, Compare(New(1, 3, false, 0), New(1, 4, false, 0)), 1)

	be.True(t, Equal(Number{N: 0x20000000000000, D: 1, E: -53}, Number{N: 1, D: 0x20000000000000, E: 53}))
}

func TestArithmetic(t *testing.T) {
	a := Number{N: 4324, D: 32}
	b := Number{N: 582, D: 532}

	tests := []struct {
		name string
		got  Number
		want Number
	}{
		{"add", Add(a, b), New(144937, 1064, false, 0)},
		{"sub", Sub(a, b), New(142609, 1064, false, 0)},
		{"mul", Mul(a, b), New(314571, 2128, false, 0)},
		{"div", Div(a, b), New(143773, 1164, false, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be.Equal(t, tt.got, tt.want)
			be.Equal(t, Compare(tt.got, tt.want), 0)
		})
	}
}

func TestIdentities(t *testing.T) {
	values := []Number{
		FromInt64(7),
		FromInt64(-12),
		New(3, 8, false, 0),
		New(5, 3, true, -4),
		New(0xFFFFFFFFFFFF, 7, false, 9),
	}
	for _, x := range values {
		t.Run(x.GoString(), func(t *testing.T) {
			be.Equal(t, Add(x, Zero), x.Normalize())
			be.Equal(t, Mul(x, One), x.Normalize())
			be.Equal(t, Sub(x, x), Zero)
			be.Equal(t, Div(x, x), One)
			be.Equal(t, x.Inv().Inv(), x.Normalize())
			be.Equal(t, x.Negate().Negate(), x)
		})
	}
}

func TestLossyOverflow(t *testing.T) {
	big := FromUint64(math.MaxUint64)
	sq := Mul(big, big)
	// The square needs 128 bits; the result keeps the top 64.
	be.True(t, sq.E > 0)
	be.Equal(t, Compare(sq, big), 1)
	be.True(t, math.Abs(sq.ToF64()/(float64(math.MaxUint64)*float64(math.MaxUint64))-1) < 1e-12)
}

func TestConversions(t *testing.T) {
	n := FromInt64(math.MinInt64)
	v, ok := n.ToInt64()
	be.True(t, ok)
	be.Equal(t, v, int64(math.MinInt64))

	_, ok = New(1, 2, false, 0).ToInt64()
	be.True(t, !ok)

	_, ok = FromInt64(-1).ToUint64()
	be.True(t, !ok)

	u, ok := New(3, 1, false, 10).ToUint64()
	be.True(t, ok)
	be.Equal(t, u, uint64(3072))

	f, ok := FromFloat64(3.14)
	be.True(t, ok)
	be.Equal(t, f.ToF64(), 3.14)
	be.Equal(t, f.ToF32(), float32(3.14))

	_, ok = FromFloat64(math.Inf(1))
	be.True(t, !ok)

	be.True(t, FromInt64(8).IsInteger())
	be.True(t, !New(1, 3, false, 0).IsInteger())

	be.Equal(t, FromInt64(-42).String(), "-42")
	be.Equal(t, New(1, 4, false, 0).String(), "0.25")
}

func TestPow(t *testing.T) {
	be.Equal(t, FromInt64(10).Pow(3), FromInt64(1000))
	be.Equal(t, FromInt64(2).Pow(-2), New(1, 4, false, 0))
	be.Equal(t, FromInt64(5).Pow(0), One)
	be.Equal(t, FromInt64(3).Shl(2), FromInt64(12))
	be.Equal(t, FromInt64(12).Shr(2), FromInt64(3))
}

func TestParse(t *testing.T) {
	tests := []struct {
		lit  string
		want Number
	}{
		{"0", Zero},
		{"42", FromInt64(42)},
		{"1_000", FromInt64(1000)},
		{"0xFF", FromInt64(255)},
		{"0xFF_AB__23_00", FromUint64(0xFFAB2300)},
		{"0b1100_1000", FromInt64(200)},
		{"0o17", FromInt64(15)},
		{"3.14", New(314, 100, false, 0)},
		{"2.5e2", FromInt64(250)},
		{"25e-1", New(5, 2, false, 0)},
		{".5", New(1, 2, false, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.lit, func(t *testing.T) {
			got, err := Parse(tt.lit)
			be.Err(t, err, nil)
			be.Equal(t, got, tt.want)
		})
	}

	for _, bad := range []string{"", "0xZZ", "1e", "1.2.3", "0b102"} {
		t.Run("bad "+bad, func(t *testing.T) {
			_, err := Parse(bad)
			be.Err(t, err, ErrSyntax)
		})
	}
}

func TestParseLargeExponent(t *testing.T) {
	n, err := Parse("3.14e23")
	be.Err(t, err, nil)
	be.True(t, math.Abs(n.ToF64()-3.14e23) < 1e9)
}

func TestPairwise(t *testing.T) {
	huge := New(3, 1, false, MaxExp-2)
	tiny := New(5, 7, true, -MaxExp+4)
	values := []Number{
		Zero,
		FromInt64(7),
		FromInt64(-12),
		New(3, 8, false, 0),
		New(5, 3, true, -4),
		New(1, 1000, false, 0),
		FromUint64(math.MaxUint64),
		huge,
		huge.Negate(),
		tiny,
		tiny.Negate(),
	}
	for _, a := range values {
		for _, b := range values {
			t.Run(a.GoString()+" "+b.GoString(), func(t *testing.T) {
				be.Equal(t, Add(a, b), Add(b, a))
				be.Equal(t, Mul(a, b), Mul(b, a))
				be.Equal(t, Compare(a, b), -Compare(b, a))
				be.Equal(t, Compare(a, b) == 0, Equal(a, b))

				fa, fb := a.ToF64(), b.ToF64()
				if fa < fb {
					be.Equal(t, Compare(a, b), -1)
				}
				if fa > fb {
					be.Equal(t, Compare(a, b), 1)
				}
			})
		}
	}
}

func TestExactRoundTrips(t *testing.T) {
	values := []Number{
		FromInt64(7),
		FromInt64(-12),
		New(3, 8, false, 0),
		New(5, 3, true, -4),
		New(1, 1000, false, 0),
	}
	for _, a := range values {
		for _, b := range values {
			t.Run(a.GoString()+" "+b.GoString(), func(t *testing.T) {
				be.Equal(t, Sub(Add(a, b), b), a.Normalize())
				be.Equal(t, Mul(Div(a, b), b), a.Normalize())
				be.Equal(t, Div(a, b), Mul(a, b.Inv()))
			})
		}
	}
}

func TestExponentRange(t *testing.T) {
	huge := New(1, 1, false, MaxExp)
	tiny := New(1, 1, false, -MaxExp)
	be.Err(t, huge.Check(), nil)
	be.Err(t, tiny.Check(), nil)

	t.Run("add across the range", func(t *testing.T) {
		be.Equal(t, Add(huge, tiny), huge)
		be.Equal(t, Add(tiny, huge.Negate()), huge.Negate())
		be.Equal(t, Compare(huge, tiny), 1)
		be.Equal(t, Compare(tiny.Negate(), tiny), -1)
		be.Equal(t, Compare(huge.Negate(), tiny.Negate()), -1)
	})
	t.Run("mul leaves the range", func(t *testing.T) {
		be.Err(t, Mul(huge, huge).Check(), ErrRange)
		be.Err(t, Mul(tiny, tiny).Check(), ErrRange)
		be.Equal(t, Mul(huge, tiny), One)
		be.Err(t, Div(One, tiny).Check(), nil)
	})
	t.Run("shift does not wrap", func(t *testing.T) {
		x := One.Shl(math.MaxInt32)
		be.Err(t, x.Check(), ErrRange)
		y := x.Shl(math.MaxInt32)
		be.Err(t, y.Check(), ErrRange)
		be.True(t, y.E > 0)
		z := One.Shr(math.MinInt32)
		be.Err(t, z.Check(), ErrRange)
		be.True(t, z.E > 0)
		be.Err(t, One.Shr(math.MaxInt32).Check(), ErrRange)
	})
	t.Run("out of range operands", func(t *testing.T) {
		x := One.Shl(2000000000)
		y := One.Shr(2000000000)
		be.Err(t, Add(x, y).Check(), ErrRange)
		be.Equal(t, Compare(x, y), 1)
		be.Equal(t, Compare(y, One), -1)
	})
	t.Run("conversions saturate", func(t *testing.T) {
		be.True(t, math.IsInf(huge.ToF64(), 1))
		be.True(t, math.IsInf(float64(huge.ToF32()), 1))
		be.Equal(t, tiny.ToF64(), 0.0)
		be.Equal(t, tiny.ToF32(), float32(0))
		_, ok := huge.ToInt64()
		be.True(t, !ok)
	})
}

func TestParseRange(t *testing.T) {
	for _, lit := range []string{"1e60000", "1e-60000", "0x1" + strings.Repeat("0", 20000)} {
		t.Run(lit[:min(len(lit), 12)], func(t *testing.T) {
			_, err := Parse(lit)
			be.Err(t, err, ErrRange)
		})
	}
	n, err := Parse("0e60000")
	be.Err(t, err, nil)
	be.Equal(t, n, Zero)
}
