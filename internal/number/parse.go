package number

import (
	"errors"
	"strings"
)

// ErrSyntax is returned by Parse for malformed literals. Literals that are
// well formed but too large or too small report ErrRange.
var ErrSyntax = errors.New("invalid number literal")

// Parse converts a Kai number literal into a Number.
//
// Accepted forms are decimal integers and decimals with an optional
// exponent (3.14e-2) and integers prefixed with 0x, 0b or 0o. Underscores
// may separate digits anywhere after the first digit.
func Parse(lit string) (Number, error) {
	s := strings.ReplaceAll(lit, "_", "")
	if s == "" {
		return Zero, ErrSyntax
	}

	base := uint64(10)
	if len(s) > 2 && s[0] == '0' {
		switch lower(s[1]) {
		case 'x':
			base = 16
		case 'b':
			base = 2
		case 'o':
			base = 8
		}
		if base != 10 {
			s = s[2:]
		}
	}

	if base != 10 {
		n := Zero
		for i := 0; i < len(s); i++ {
			d, ok := digitVal(s[i])
			if !ok || d >= base {
				return Zero, ErrSyntax
			}
			n = Add(Mul(n, FromUint64(base)), FromUint64(d))
		}
		if err := n.Check(); err != nil {
			return Zero, err
		}
		return n, nil
	}

	mant, exp := s, ""
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		mant, exp = s[:i], s[i+1:]
		if exp == "" {
			return Zero, ErrSyntax
		}
	}

	whole, frac := mant, ""
	if i := strings.IndexByte(mant, '.'); i >= 0 {
		whole, frac = mant[:i], mant[i+1:]
	}
	if whole == "" && frac == "" {
		return Zero, ErrSyntax
	}

	ten := FromUint64(10)
	n := Zero
	for i := 0; i < len(whole); i++ {
		c := whole[i]
		if c < '0' || c > '9' {
			return Zero, ErrSyntax
		}
		n = Add(Mul(n, ten), FromUint64(uint64(c-'0')))
	}
	scale := 0
	for i := 0; i < len(frac); i++ {
		c := frac[i]
		if c < '0' || c > '9' {
			return Zero, ErrSyntax
		}
		n = Add(Mul(n, ten), FromUint64(uint64(c-'0')))
		scale--
	}

	if exp != "" {
		neg := false
		switch exp[0] {
		case '-':
			neg = true
			exp = exp[1:]
		case '+':
			exp = exp[1:]
		}
		if exp == "" {
			return Zero, ErrSyntax
		}
		e := 0
		for i := 0; i < len(exp); i++ {
			c := exp[i]
			if c < '0' || c > '9' {
				return Zero, ErrSyntax
			}
			e = e*10 + int(c-'0')
			if e > 1<<16 {
				return Zero, ErrSyntax
			}
		}
		if neg {
			e = -e
		}
		scale += e
	}

	if err := n.Check(); err != nil {
		return Zero, err
	}
	if scale != 0 {
		p := ten.Pow(scale)
		if err := p.Check(); err != nil && !n.IsZero() {
			return Zero, err
		}
		n = Mul(n, p)
	}
	if err := n.Check(); err != nil {
		return Zero, err
	}
	return n, nil
}

func lower(c byte) byte { return c | ('x' - 'X') }

func digitVal(c byte) (uint64, bool) {
	switch {
	case '0' <= c && c <= '9':
		return uint64(c - '0'), true
	case 'a' <= lower(c) && lower(c) <= 'f':
		return uint64(lower(c) - 'a' + 10), true
	}
	return 0, false
}
