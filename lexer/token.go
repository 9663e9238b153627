package lexer

import (
	"fmt"

	"golang.org/x/exp/slices"
)

type TokenType int

const (
	EOF TokenType = iota
	Not
	Minus
	Comma
	Period
	Colon
	QuestionMark
	Equals
	LessThan
	GreaterThan
	Slash
	LeftParen
	RightParen
	LeftBrace
	RightBrace
	LeftBracket
	RightBracket

	StrictEquals
	StrictNotEquals
	LessThanEquals
	GreaterThanEquals
	LogicalAnd
	LogicalOr
	OptionalChain
	RightArrow
	SlashGreaterThan
	LessThanSlash

	Import
	From
	Component
	Struct
	Enum
	Match
	Default
	True
	False
	Null

	Ident
	Number
	Whitespace
	SingleLineComment
	String
	TemplateBeg
	TemplatePart
	TemplateEnd
	Template
	Text
	Illegal
)

var tokenNames = [...]string{
	EOF:               "EOF",
	Not:               "!",
	Minus:             "-",
	Comma:             ",",
	Period:            ".",
	Colon:             ":",
	QuestionMark:      "?",
	Equals:            "=",
	LessThan:          "<",
	GreaterThan:       ">",
	Slash:             "/",
	LeftParen:         "(",
	RightParen:        ")",
	LeftBrace:         "{",
	RightBrace:        "}",
	LeftBracket:       "[",
	RightBracket:      "]",
	StrictEquals:      "===",
	StrictNotEquals:   "!==",
	LessThanEquals:    "<=",
	GreaterThanEquals: ">=",
	LogicalAnd:        "&&",
	LogicalOr:         "||",
	OptionalChain:     "?.",
	RightArrow:        "->",
	SlashGreaterThan:  "/>",
	LessThanSlash:     "</",
	Import:            "import",
	From:              "from",
	Component:         "component",
	Struct:            "struct",
	Enum:              "enum",
	Match:             "match",
	Default:           "default",
	True:              "true",
	False:             "false",
	Null:              "null",
	Ident:             "Ident",
	Number:            "Number",
	Whitespace:        "Whitespace",
	SingleLineComment: "SingleLineComment",
	String:            "String",
	TemplateBeg:       "TemplateBeg",
	TemplatePart:      "TemplatePart",
	TemplateEnd:       "TemplateEnd",
	Template:          "Template",
	Text:              "Text",
	Illegal:           "Illegal",
}

func (t TokenType) String() string {
	if t >= 0 && int(t) < len(tokenNames) && tokenNames[t] != "" {
		return tokenNames[t]
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

var SingleCharTokens = map[rune]TokenType{
	'!': Not,
	'-': Minus,
	',': Comma,
	'.': Period,
	':': Colon,
	'?': QuestionMark,
	'=': Equals,
	'<': LessThan,
	'>': GreaterThan,
	'/': Slash,
	'(': LeftParen,
	')': RightParen,
	'[': LeftBracket,
	']': RightBracket,
	eof: EOF,
}

var DoubleCharTokens = map[[2]rune]TokenType{
	{'<', '='}: LessThanEquals,
	{'>', '='}: GreaterThanEquals,
	{'&', '&'}: LogicalAnd,
	{'|', '|'}: LogicalOr,
	{'?', '.'}: OptionalChain,
	{'-', '>'}: RightArrow,
	{'/', '>'}: SlashGreaterThan,
	{'<', '/'}: LessThanSlash,
}

var TripleCharTokens = map[[3]rune]TokenType{
	{'=', '=', '='}: StrictEquals,
	{'!', '=', '='}: StrictNotEquals,
}

var Keywords = map[string]TokenType{
	"import":    Import,
	"from":      From,
	"component": Component,
	"struct":    Struct,
	"enum":      Enum,
	"match":     Match,
	"default":   Default,
	"true":      True,
	"false":     False,
	"null":      Null,
}

type Pos struct {
	Offset int
	Line   int
	Column int
}

func (p Pos) Min(other Pos) Pos {
	if p.Column == 0 {
		return other
	}
	if other.Column == 0 {
		return p
	}
	if p.Offset < other.Offset {
		return p
	}
	return other
}

func (p Pos) Max(other Pos) Pos {
	if p.Column == 0 {
		return other
	}
	if other.Column == 0 {
		return p
	}
	if p.Offset > other.Offset {
		return p
	}
	return other
}

type Span struct {
	Start Pos
	End   Pos
}

func (span Span) Add(other Span) Span {
	return Span{span.Start.Min(other.Start), span.End.Max(other.End)}
}

// IsZero reports whether the span was never set, e.g. on a synthesized node.
func (span Span) IsZero() bool {
	return span.Start.Column == 0 && span.End.Column == 0
}

func (s Span) String() string {
	if s.Start == s.End {
		return fmt.Sprintf("%d:%d", s.Start.Line, s.Start.Column)
	}
	if s.Start.Line == s.End.Line {
		return fmt.Sprintf("%d:%d-%d", s.Start.Line, s.Start.Column, s.End.Column)
	}
	return fmt.Sprintf("%d:%d-%d:%d", s.Start.Line, s.Start.Column, s.End.Line, s.End.Column)
}

type Token struct {
	LeadingTrivia []Token
	Type          TokenType
	Span          Span
	Data          string
}

func (t Token) String() string {
	if t.Data == "" {
		return fmt.Sprintf("%s:%s", t.Span, t.Type)
	}
	return fmt.Sprintf("%s:%s %q", t.Span, t.Type, t.Data)
}

func (b Token) Eq(a Token) bool {
	return a.Type == b.Type && a.Data == b.Data
}

func (a Token) ExactEq(b Token) bool {
	return a.Type == b.Type && a.Span == b.Span && a.Data == b.Data && slices.EqualFunc(a.LeadingTrivia, b.LeadingTrivia, Token.ExactEq)
}

var equalityOps = []TokenType{StrictEquals, StrictNotEquals}

var relationalOps = []TokenType{LessThan, LessThanEquals, GreaterThan, GreaterThanEquals}

func (t Token) IsEquality() bool { return slices.Contains(equalityOps, t.Type) }

func (t Token) IsRelational() bool { return slices.Contains(relationalOps, t.Type) }

func (t Token) IsLogical() bool { return t.Type == LogicalAnd || t.Type == LogicalOr }

func (t Token) IsBinaryOp() bool {
	return t.IsEquality() || t.IsRelational() || t.IsLogical()
}

func (t Token) IsPrefixOp() bool { return t.Type == Not || t.Type == Minus }

const MinPrec = 1

func (t Token) Prec() int {
	switch t.Type {
	case LessThan, LessThanEquals, GreaterThan, GreaterThanEquals:
		return 4
	case StrictEquals, StrictNotEquals:
		return 3
	case LogicalAnd:
		return 2
	case LogicalOr:
		return 1
	}
	return 0
}

// IsLiteral reports whether the token alone forms a literal expression.
func (t Token) IsLiteral() bool {
	switch t.Type {
	case True, False, Null, Number, String:
		return true
	}
	return false
}
