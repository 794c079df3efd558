package syntax

import (
	"fmt"
	"unicode/utf8"

	"github.com/you-not-fish/kai/internal/table"
)

// Scanner splits Kai source into tokens. It is pull based: Next advances by
// one token and the accessors describe the current one.
//
// A Scanner value carries no hidden state besides its source cursor, which
// lets the parser save and restore it for bounded lookahead.
type Scanner struct {
	source

	tok    Token
	lit    string // identifier, directive name, decoded string or number text
	tokPos Pos
	tokEnd int // byte offset after the current token

	names *table.Interner
}

// NewScanner returns a scanner over src. Lexical errors are reported to errh.
// Identifiers are interned in names when it is non-nil.
func NewScanner(filename string, src []byte, names *table.Interner, errh func(pos Pos, msg string)) *Scanner {
	return &Scanner{source: newSource(filename, src, errh), names: names}
}

func (s *Scanner) Token() Token    { return s.tok }
func (s *Scanner) Literal() string { return s.lit }
func (s *Scanner) Pos() Pos        { return s.tokPos }

// End returns the byte offset just past the current token.
func (s *Scanner) End() int { return s.tokEnd }

// Next advances to the next token.
func (s *Scanner) Next() {
redo:
	for isWhitespace(s.ch) {
		s.nextch()
	}
	s.tokPos = s.pos()
	s.lit = ""

	switch {
	case s.ch < 0:
		s.tok = _EOF
	case isLetter(s.ch):
		s.scanIdent()
	case isDigit(s.ch):
		s.scanNumber()
	case s.ch == '"':
		s.scanString()
	case s.ch == '#':
		s.nextch()
		if !isLetter(s.ch) {
			s.error("expected directive name after '#'")
			s.tok = _Error
			break
		}
		s.scanIdent()
		s.tok = _Directive
	default:
		if s.scanOperator() {
			goto redo
		}
	}
	s.tokEnd = s.chOff
}

func (s *Scanner) scanIdent() {
	start := s.chOff
	for isLetter(s.ch) || isDigit(s.ch) {
		s.nextch()
	}
	b := s.buf[start:s.chOff]
	if s.names != nil {
		s.lit = s.names.InternBytes(b)
	} else {
		s.lit = string(b)
	}
	s.tok = LookupKeyword(s.lit)
}

// scanNumber scans the raw text of a number literal; number.Parse gives it
// meaning. A '.' followed by another '.' is a range, not a fraction.
func (s *Scanner) scanNumber() {
	start := s.chOff
	s.tok = _Number

	if s.ch == '0' {
		switch lower(s.peek()) {
		case 'x', 'b', 'o':
			s.nextch()
			s.nextch()
			if !isHexDigit(s.ch) {
				s.error("number prefix has no digits")
			}
			for isHexDigit(s.ch) || s.ch == '_' {
				s.nextch()
			}
			s.lit = string(s.buf[start:s.chOff])
			return
		}
	}

	s.digits()
	if s.ch == '.' && s.peek() != '.' {
		s.nextch()
		s.digits()
	}
	if lower(s.ch) == 'e' {
		s.nextch()
		if s.ch == '+' || s.ch == '-' {
			s.nextch()
		}
		if !isDigit(s.ch) {
			s.error("exponent has no digits")
		}
		s.digits()
	}
	s.lit = string(s.buf[start:s.chOff])
}

func (s *Scanner) digits() {
	for isDigit(s.ch) || s.ch == '_' {
		s.nextch()
	}
}

func (s *Scanner) scanString() {
	s.nextch() // opening quote
	var b []byte
	for {
		switch {
		case s.ch == '"':
			s.nextch()
			s.lit = string(b)
			s.tok = _String
			return
		case s.ch == '\\':
			s.nextch()
			if r, ok := s.scanEscape(); ok {
				b = utf8.AppendRune(b, r)
			}
		case s.ch < 0:
			s.error("string not terminated")
			s.lit = string(b)
			s.tok = _Error
			return
		default:
			b = utf8.AppendRune(b, s.ch)
			s.nextch()
		}
	}
}

func (s *Scanner) scanEscape() (rune, bool) {
	c := s.ch
	s.nextch()
	switch c {
	case 'n':
		return '\n', true
	case 't':
		return '\t', true
	case 'r':
		return '\r', true
	case '0':
		return 0, true
	case '\\', '"', '\'':
		return c, true
	case 'x':
		var v rune
		for i := 0; i < 2; i++ {
			if !isHexDigit(s.ch) {
				s.error("invalid hex escape")
				return 0, false
			}
			d := s.ch - '0'
			if !isDigit(s.ch) {
				d = lower(s.ch) - 'a' + 10
			}
			v = v*16 + d
			s.nextch()
		}
		return v, true
	}
	s.error(fmt.Sprintf("unknown escape sequence \\%c", c))
	return 0, false
}

// scanOperator scans an operator or delimiter. It reports true when it
// skipped a comment instead.
func (s *Scanner) scanOperator() bool {
	c := s.ch
	s.nextch()

	// two-character tokens first
	two := func(next rune, long, short Token) {
		if s.ch == next {
			s.nextch()
			s.tok = long
			return
		}
		s.tok = short
	}

	switch c {
	case '/':
		switch s.ch {
		case '/':
			for s.ch != '\n' && s.ch >= 0 {
				s.nextch()
			}
			return true
		case '*':
			s.skipBlockComment()
			return true
		}
		s.tok = _Div
	case '-':
		two('>', _Arrow, _Sub)
	case '.':
		two('.', _DotDot, _Dot)
	case '|':
		two('|', _OrOr, _Or)
	case '&':
		two('&', _AndAnd, _And)
	case '=':
		two('=', _Eql, _Assign)
	case '!':
		two('=', _Neq, _Not)
	case '<':
		if s.ch == '<' {
			s.nextch()
			s.tok = _Shl
			break
		}
		two('=', _Leq, _Lss)
	case '>':
		if s.ch == '>' {
			s.nextch()
			s.tok = _Shr
			break
		}
		two('=', _Geq, _Gtr)
	case '+':
		s.tok = _Add
	case '*':
		s.tok = _Mul
	case '%':
		s.tok = _Rem
	case '^':
		s.tok = _Xor
	case ':':
		s.tok = _Colon
	case '(':
		s.tok = _Lparen
	case ')':
		s.tok = _Rparen
	case '[':
		s.tok = _Lbrack
	case ']':
		s.tok = _Rbrack
	case '{':
		s.tok = _Lbrace
	case '}':
		s.tok = _Rbrace
	case ',':
		s.tok = _Comma
	case ';':
		s.tok = _Semi
	case '@':
		s.tok = _At
	default:
		s.errorAt(s.tokPos, fmt.Sprintf("unexpected character %q", c))
		s.tok = _Error
	}
	return false
}

// skipBlockComment skips a /* */ comment; comments nest.
func (s *Scanner) skipBlockComment() {
	s.nextch() // '*'
	depth := 1
	for depth > 0 {
		switch {
		case s.ch < 0:
			s.error("comment not terminated")
			return
		case s.ch == '/' && s.peek() == '*':
			s.nextch()
			s.nextch()
			depth++
		case s.ch == '*' && s.peek() == '/':
			s.nextch()
			s.nextch()
			depth--
		default:
			s.nextch()
		}
	}
}
