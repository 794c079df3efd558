package syntax

import "unicode/utf8"

// source walks a Kai file one character at a time and tracks the position of
// the current character. It holds no references other than the input
// buffer, so a copy of a source is an independent cursor.
type source struct {
	buf      []byte
	filename string

	ch    rune   // current character, -1 at EOF
	chOff int    // byte offset of ch
	offs  int    // byte offset after ch
	line  uint32 // position of ch
	col   uint32

	errh func(pos Pos, msg string)
}

func newSource(filename string, buf []byte, errh func(pos Pos, msg string)) source {
	s := source{
		buf:      buf,
		filename: filename,
		line:     1,
		ch:       -1,
		errh:     errh,
	}
	s.nextch()
	return s
}

// nextch moves to the next character.
func (s *source) nextch() {
	if s.ch == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	s.chOff = s.offs
	if s.offs >= len(s.buf) {
		s.ch = -1
		return
	}
	r, w := utf8.DecodeRune(s.buf[s.offs:])
	if r == utf8.RuneError && w == 1 {
		s.error("invalid UTF-8 encoding")
	}
	s.ch = r
	s.offs += w
}

// peek returns the character after ch without consuming anything.
func (s *source) peek() rune {
	if s.offs >= len(s.buf) {
		return -1
	}
	r, _ := utf8.DecodeRune(s.buf[s.offs:])
	return r
}

func (s *source) pos() Pos {
	return Pos{filename: s.filename, line: s.line, col: s.col, offset: s.chOff}
}

func (s *source) error(msg string) { s.errorAt(s.pos(), msg) }

func (s *source) errorAt(pos Pos, msg string) {
	if s.errh != nil {
		s.errh(pos, msg)
	}
}

func isLetter(r rune) bool {
	return 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || r == '_' || r >= utf8.RuneSelf
}

func isDigit(r rune) bool { return '0' <= r && r <= '9' }

func isHexDigit(r rune) bool {
	return isDigit(r) || 'a' <= lower(r) && lower(r) <= 'f'
}

func lower(r rune) rune { return ('a' - 'A') | r }

func isWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\n'
}
