package syntax

import "fmt"

// Token is the kind of a lexical token.
type Token uint8

const (
	_EOF   Token = iota
	_Error       // lexical error

	// literals
	_Name
	_Number    // 42, 3.14e2, 0xFF_00
	_String    // "text"
	_Directive // #type, #Number

	// operators
	_Assign // =
	_Colon  // :
	_Arrow  // ->
	_DotDot // ..
	_Dot    // .

	_OrOr   // ||
	_AndAnd // &&

	_Eql // ==
	_Neq // !=
	_Lss // <
	_Leq // <=
	_Gtr // >
	_Geq // >=

	_Add // +
	_Sub // -
	_Or  // |
	_Xor // ^

	_Mul // *
	_Div // /
	_Rem // %
	_And // &
	_Shl // <<
	_Shr // >>

	_Not // !

	// delimiters
	_Lparen // (
	_Rparen // )
	_Lbrack // [
	_Rbrack // ]
	_Lbrace // {
	_Rbrace // }
	_Comma  // ,
	_Semi   // ;
	_At     // @

	// keywords
	_Break
	_Cast
	_Continue
	_Defer
	_Else
	_Enum
	_Fallthrough
	_False
	_For
	_If
	_Ret
	_Struct
	_True
	_Using
	_While

	tokenCount
)

var tokenNames = [...]string{
	_EOF:       "EOF",
	_Error:     "ERROR",
	_Name:      "identifier",
	_Number:    "number",
	_String:    "string",
	_Directive: "directive",

	_Assign: "=",
	_Colon:  ":",
	_Arrow:  "->",
	_DotDot: "..",
	_Dot:    ".",
	_OrOr:   "||",
	_AndAnd: "&&",
	_Eql:    "==",
	_Neq:    "!=",
	_Lss:    "<",
	_Leq:    "<=",
	_Gtr:    ">",
	_Geq:    ">=",
	_Add:    "+",
	_Sub:    "-",
	_Or:     "|",
	_Xor:    "^",
	_Mul:    "*",
	_Div:    "/",
	_Rem:    "%",
	_And:    "&",
	_Shl:    "<<",
	_Shr:    ">>",
	_Not:    "!",

	_Lparen: "(",
	_Rparen: ")",
	_Lbrack: "[",
	_Rbrack: "]",
	_Lbrace: "{",
	_Rbrace: "}",
	_Comma:  ",",
	_Semi:   ";",
	_At:     "@",

	_Break:       "break",
	_Cast:        "cast",
	_Continue:    "continue",
	_Defer:       "defer",
	_Else:        "else",
	_Enum:        "enum",
	_Fallthrough: "fallthrough",
	_False:       "false",
	_For:         "for",
	_If:          "if",
	_Ret:         "ret",
	_Struct:      "struct",
	_True:        "true",
	_Using:       "using",
	_While:       "while",
}

func (t Token) String() string {
	if t < tokenCount {
		return tokenNames[t]
	}
	return fmt.Sprintf("token(%d)", t)
}

// Binding powers for binary operators. Higher binds tighter. Postfix
// operators ( [ and . bind tighter than every binary operator, and unary
// operators bind tighter than everything but postfix.
const (
	precLogical  = 0x10
	precCompare  = 0x40
	precAdditive = 0x100
	precMultiply = 0x200
	precCast     = 0x900
	precUnary    = 0x1000
	precMember   = 0xFFFF
)

// Precedence returns the binding power of t as a binary operator, or 0 if
// t is not one.
func (t Token) Precedence() int {
	switch t {
	case _OrOr, _AndAnd:
		return precLogical
	case _Eql, _Neq, _Lss, _Leq, _Gtr, _Geq:
		return precCompare
	case _Add, _Sub, _Or, _Xor:
		return precAdditive
	case _Mul, _Div, _Rem, _And, _Shl, _Shr:
		return precMultiply
	case _Arrow:
		return precCast
	}
	return 0
}

func (t Token) IsKeyword() bool { return t >= _Break && t <= _While }

// IsEOF reports whether t marks the end of the input.
func (t Token) IsEOF() bool { return t == _EOF }

// Operator is a unary or binary operator in the syntax tree.
type Operator uint8

const (
	_ Operator = iota

	OrOr   // ||
	AndAnd // &&

	Eql // ==
	Neq // !=
	Lss // <
	Leq // <=
	Gtr // >
	Geq // >=

	Add // +
	Sub // -
	Or  // |
	Xor // ^

	Mul // *
	Div // /
	Rem // %
	And // &
	Shl // <<
	Shr // >>

	Not   // !
	Cast  // ->
	Index // [
	Dot   // .
)

var opNames = [...]string{
	OrOr: "||", AndAnd: "&&",
	Eql: "==", Neq: "!=", Lss: "<", Leq: "<=", Gtr: ">", Geq: ">=",
	Add: "+", Sub: "-", Or: "|", Xor: "^",
	Mul: "*", Div: "/", Rem: "%", And: "&", Shl: "<<", Shr: ">>",
	Not: "!", Cast: "->", Index: "[", Dot: ".",
}

func (op Operator) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return fmt.Sprintf("Operator(%d)", op)
}

// IsComparison reports whether op yields a bool from two operands.
func (op Operator) IsComparison() bool { return op >= Eql && op <= Geq }

var tokenOps = map[Token]Operator{
	_OrOr: OrOr, _AndAnd: AndAnd,
	_Eql: Eql, _Neq: Neq, _Lss: Lss, _Leq: Leq, _Gtr: Gtr, _Geq: Geq,
	_Add: Add, _Sub: Sub, _Or: Or, _Xor: Xor,
	_Mul: Mul, _Div: Div, _Rem: Rem, _And: And, _Shl: Shl, _Shr: Shr,
	_Not: Not, _Arrow: Cast, _Lbrack: Index, _Dot: Dot,
}

var keywords = map[string]Token{
	"break":       _Break,
	"cast":        _Cast,
	"continue":    _Continue,
	"defer":       _Defer,
	"else":        _Else,
	"enum":        _Enum,
	"fallthrough": _Fallthrough,
	"false":       _False,
	"for":         _For,
	"if":          _If,
	"ret":         _Ret,
	"struct":      _Struct,
	"true":        _True,
	"using":       _Using,
	"while":       _While,
}

// LookupKeyword returns the keyword token for ident, or _Name.
func LookupKeyword(ident string) Token {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return _Name
}
