package lexer_test

import (
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"
	"unicode/utf8"

	"github.com/kr/pretty"
	. "github.com/smasher164/cdl/lexer"
	"golang.org/x/exp/slices"
)

func single(trivia []Token, ttyp TokenType, pos Pos) Token {
	return Token{LeadingTrivia: trivia, Type: ttyp, Span: Span{Start: pos, End: pos}, Data: ""}
}

func singleWS(wsPos Pos, ttyp TokenType, pos Pos) Token {
	return single(spaceBefore(wsPos), ttyp, pos)
}

func multi(trivia []Token, ttyp TokenType, start Pos, n int) Token {
	return Token{LeadingTrivia: trivia, Type: ttyp, Span: Span{Start: start, End: Pos{Offset: start.Offset + n - 1, Line: start.Line, Column: start.Column + n - 1}}, Data: ""}
}

func multiWS(wsPos Pos, ttyp TokenType, start Pos, n int) Token {
	return multi(spaceBefore(wsPos), ttyp, start, n)
}

func keyword(trivia []Token, ttyp TokenType, start, end Pos) Token {
	return Token{LeadingTrivia: trivia, Type: ttyp, Span: Span{Start: start, End: end}}
}

func keywordWS(wsPos Pos, ttyp TokenType, start, end Pos) Token {
	return keyword(spaceBefore(wsPos), ttyp, start, end)
}

func dataTok(trivia []Token, ttyp TokenType, start Pos, data string) Token {
	dataLen := utf8.RuneCountInString(data)
	return Token{LeadingTrivia: trivia, Type: ttyp, Span: Span{Start: start, End: Pos{Offset: start.Offset + dataLen - 1, Line: start.Line, Column: start.Column + dataLen - 1}}, Data: data}
}

func dataTokWS(wsPos Pos, ttyp TokenType, start Pos, data string) Token {
	return dataTok(spaceBefore(wsPos), ttyp, start, data)
}

func spaceBefore(wsPos Pos) []Token {
	return []Token{{nil, Whitespace, unitSpan(wsPos), " "}}
}

func unitSpan(pos Pos) Span {
	return Span{Start: pos, End: pos}
}

func diffTokens(t *testing.T, expected, got []Token) {
	t.Helper()
	if !slices.EqualFunc(got, expected, Token.ExactEq) {
		pretty.Ldiff(t, expected, got)
		t.Fail()
	}
}

func TestLexer(t *testing.T) {
	testfs := fstest.MapFS{}
	run := func(name, data string, expected []Token) {
		t.Run(name, func(t *testing.T) {
			testfs[name] = &fstest.MapFile{
				Data: []byte(data),
			}
			l, err := NewLexer(testfs, name)
			if err != nil {
				t.Fatal(err)
			}
			var got []Token
			var tok Token
			for tok = l.Next(); tok.Type != EOF; tok = l.Next() {
				got = append(got, tok)
			}
			got = append(got, tok)
			diffTokens(t, expected, got)
		})
	}

	run("empty.cdl", "", []Token{single(nil, EOF, Pos{0, 1, 1})})

	run("singlechar.cdl", "! - , . : ? = < > / ( ) [ ] { }", []Token{
		single(nil, Not, Pos{0, 1, 1}),
		singleWS(Pos{1, 1, 2}, Minus, Pos{2, 1, 3}),
		singleWS(Pos{3, 1, 4}, Comma, Pos{4, 1, 5}),
		singleWS(Pos{5, 1, 6}, Period, Pos{6, 1, 7}),
		singleWS(Pos{7, 1, 8}, Colon, Pos{8, 1, 9}),
		singleWS(Pos{9, 1, 10}, QuestionMark, Pos{10, 1, 11}),
		singleWS(Pos{11, 1, 12}, Equals, Pos{12, 1, 13}),
		singleWS(Pos{13, 1, 14}, LessThan, Pos{14, 1, 15}),
		singleWS(Pos{15, 1, 16}, GreaterThan, Pos{16, 1, 17}),
		singleWS(Pos{17, 1, 18}, Slash, Pos{18, 1, 19}),
		singleWS(Pos{19, 1, 20}, LeftParen, Pos{20, 1, 21}),
		singleWS(Pos{21, 1, 22}, RightParen, Pos{22, 1, 23}),
		singleWS(Pos{23, 1, 24}, LeftBracket, Pos{24, 1, 25}),
		singleWS(Pos{25, 1, 26}, RightBracket, Pos{26, 1, 27}),
		singleWS(Pos{27, 1, 28}, LeftBrace, Pos{28, 1, 29}),
		singleWS(Pos{29, 1, 30}, RightBrace, Pos{30, 1, 31}),
		single(nil, EOF, Pos{31, 1, 32}),
	})

	run("multichar.cdl", "=== !== <= >= && || ?. -> /> </", []Token{
		multi(nil, StrictEquals, Pos{0, 1, 1}, 3),
		multiWS(Pos{3, 1, 4}, StrictNotEquals, Pos{4, 1, 5}, 3),
		multiWS(Pos{7, 1, 8}, LessThanEquals, Pos{8, 1, 9}, 2),
		multiWS(Pos{10, 1, 11}, GreaterThanEquals, Pos{11, 1, 12}, 2),
		multiWS(Pos{13, 1, 14}, LogicalAnd, Pos{14, 1, 15}, 2),
		multiWS(Pos{16, 1, 17}, LogicalOr, Pos{17, 1, 18}, 2),
		multiWS(Pos{19, 1, 20}, OptionalChain, Pos{20, 1, 21}, 2),
		multiWS(Pos{22, 1, 23}, RightArrow, Pos{23, 1, 24}, 2),
		multiWS(Pos{25, 1, 26}, SlashGreaterThan, Pos{26, 1, 27}, 2),
		multiWS(Pos{28, 1, 29}, LessThanSlash, Pos{29, 1, 30}, 2),
		single(nil, EOF, Pos{31, 1, 32}),
	})

	run("keywords.cdl", "import from component struct enum match default true false null", []Token{
		keyword(nil, Import, Pos{0, 1, 1}, Pos{5, 1, 6}),
		keywordWS(Pos{6, 1, 7}, From, Pos{7, 1, 8}, Pos{10, 1, 11}),
		keywordWS(Pos{11, 1, 12}, Component, Pos{12, 1, 13}, Pos{20, 1, 21}),
		keywordWS(Pos{21, 1, 22}, Struct, Pos{22, 1, 23}, Pos{27, 1, 28}),
		keywordWS(Pos{28, 1, 29}, Enum, Pos{29, 1, 30}, Pos{32, 1, 33}),
		keywordWS(Pos{33, 1, 34}, Match, Pos{34, 1, 35}, Pos{38, 1, 39}),
		keywordWS(Pos{39, 1, 40}, Default, Pos{40, 1, 41}, Pos{46, 1, 47}),
		keywordWS(Pos{47, 1, 48}, True, Pos{48, 1, 49}, Pos{51, 1, 52}),
		keywordWS(Pos{52, 1, 53}, False, Pos{53, 1, 54}, Pos{57, 1, 58}),
		keywordWS(Pos{58, 1, 59}, Null, Pos{59, 1, 60}, Pos{62, 1, 63}),
		single(nil, EOF, Pos{63, 1, 64}),
	})

	run("identifiers.cdl", "_ __ a_b_c a12 अखिल", []Token{
		dataTok(nil, Ident, Pos{0, 1, 1}, "_"),
		dataTokWS(Pos{1, 1, 2}, Ident, Pos{2, 1, 3}, "__"),
		dataTokWS(Pos{4, 1, 5}, Ident, Pos{5, 1, 6}, "a_b_c"),
		dataTokWS(Pos{10, 1, 11}, Ident, Pos{11, 1, 12}, "a12"),
		dataTokWS(Pos{14, 1, 15}, Ident, Pos{15, 1, 16}, "अखिल"),
		single(nil, EOF, Pos{19, 1, 20}),
	})

	run("numbers.cdl", "0 1 1.2 0.3 1.2e3 1.2e+3 1.2e-3 1_000", []Token{
		dataTok(nil, Number, Pos{0, 1, 1}, "0"),
		dataTokWS(Pos{1, 1, 2}, Number, Pos{2, 1, 3}, "1"),
		dataTokWS(Pos{3, 1, 4}, Number, Pos{4, 1, 5}, "1.2"),
		dataTokWS(Pos{7, 1, 8}, Number, Pos{8, 1, 9}, "0.3"),
		dataTokWS(Pos{11, 1, 12}, Number, Pos{12, 1, 13}, "1.2e3"),
		dataTokWS(Pos{17, 1, 18}, Number, Pos{18, 1, 19}, "1.2e+3"),
		dataTokWS(Pos{24, 1, 25}, Number, Pos{25, 1, 26}, "1.2e-3"),
		dataTokWS(Pos{31, 1, 32}, Number, Pos{32, 1, 33}, "1_000"),
		single(nil, EOF, Pos{37, 1, 38}),
	})

	run("strings.cdl", `"hello" "a\n\"b"`, []Token{
		dataTok(nil, String, Pos{0, 1, 1}, `"hello"`),
		dataTokWS(Pos{7, 1, 8}, String, Pos{8, 1, 9}, `"a\n\"b"`),
		single(nil, EOF, Pos{16, 1, 17}),
	})

	run("templates.cdl", "`plain` `a${x}b${`n${y}`}c`", []Token{
		dataTok(nil, Template, Pos{0, 1, 1}, "`plain`"),
		dataTokWS(Pos{7, 1, 8}, TemplateBeg, Pos{8, 1, 9}, "`a${"),
		dataTok(nil, Ident, Pos{12, 1, 13}, "x"),
		dataTok(nil, TemplatePart, Pos{13, 1, 14}, "}b${"),
		dataTok(nil, TemplateBeg, Pos{17, 1, 18}, "`n${"),
		dataTok(nil, Ident, Pos{21, 1, 22}, "y"),
		dataTok(nil, TemplateEnd, Pos{22, 1, 23}, "}`"),
		dataTok(nil, TemplateEnd, Pos{24, 1, 25}, "}c`"),
		single(nil, EOF, Pos{27, 1, 28}),
	})

	run("comments.cdl", "a // note\nb", []Token{
		dataTok(nil, Ident, Pos{0, 1, 1}, "a"),
		dataTok([]Token{
			{nil, Whitespace, unitSpan(Pos{1, 1, 2}), " "},
			dataTok(nil, SingleLineComment, Pos{2, 1, 3}, "// note"),
			{nil, Whitespace, unitSpan(Pos{9, 1, 10}), "\n"},
		}, Ident, Pos{10, 2, 1}, "b"),
		single(nil, EOF, Pos{11, 2, 2}),
	})
}

func TestNextMarkup(t *testing.T) {
	// markup says whether each token is read with NextMarkup, the way the
	// parser switches modes around element bodies.
	type step struct {
		markup bool
		want   Token
	}
	run := func(name, src string, steps []step) {
		t.Run(name, func(t *testing.T) {
			l := FromString(src)
			var got, expected []Token
			for _, s := range steps {
				if s.markup {
					got = append(got, l.NextMarkup())
				} else {
					got = append(got, l.Next())
				}
				expected = append(expected, s.want)
			}
			diffTokens(t, expected, got)
		})
	}

	run("text", "<p>Hello, {name}!</p>", []step{
		{false, single(nil, LessThan, Pos{0, 1, 1})},
		{false, dataTok(nil, Ident, Pos{1, 1, 2}, "p")},
		{false, single(nil, GreaterThan, Pos{2, 1, 3})},
		{true, dataTok(nil, Text, Pos{3, 1, 4}, "Hello, ")},
		{true, single(nil, LeftBrace, Pos{10, 1, 11})},
		{false, dataTok(nil, Ident, Pos{11, 1, 12}, "name")},
		{false, single(nil, RightBrace, Pos{15, 1, 16})},
		{true, dataTok(nil, Text, Pos{16, 1, 17}, "!")},
		{true, multi(nil, LessThanSlash, Pos{17, 1, 18}, 2)},
		{false, dataTok(nil, Ident, Pos{19, 1, 20}, "p")},
		{false, single(nil, GreaterThan, Pos{20, 1, 21})},
		{true, single(nil, EOF, Pos{21, 1, 22})},
	})

	run("whitespace", "<p>\n  <b/></p>", []step{
		{false, single(nil, LessThan, Pos{0, 1, 1})},
		{false, dataTok(nil, Ident, Pos{1, 1, 2}, "p")},
		{false, single(nil, GreaterThan, Pos{2, 1, 3})},
		{true, single([]Token{
			{nil, Whitespace, Span{Pos{3, 1, 4}, Pos{5, 2, 2}}, "\n  "},
		}, LessThan, Pos{6, 2, 3})},
		{false, dataTok(nil, Ident, Pos{7, 2, 4}, "b")},
		{false, multi(nil, SlashGreaterThan, Pos{8, 2, 5}, 2)},
		{true, multi(nil, LessThanSlash, Pos{10, 2, 7}, 2)},
		{false, dataTok(nil, Ident, Pos{12, 2, 9}, "p")},
		{false, single(nil, GreaterThan, Pos{13, 2, 10})},
		{true, single(nil, EOF, Pos{14, 2, 11})},
	})
}

func TestIllegal(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`"abc`, "unterminated string"},
		{"\"a\nb\"", "unterminated string"},
		{`"\q"`, "unknown escape sequence"},
		{"`abc", "unterminated template literal"},
		{"1_", "'_' must separate successive digits"},
		{"1__0", "'_' must separate successive digits"},
		{"1e", "no digits in exponent"},
		{"#", `unexpected character '#'`},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			tok := FromString(tt.src).Next()
			if tok.Type != Illegal || tok.Data != tt.want {
				t.Errorf("Next() = %v, want Illegal %q", tok, tt.want)
			}
		})
	}
}

func TestNewLexer(t *testing.T) {
	fsys := fstest.MapFS{
		"a.cdl": &fstest.MapFile{Data: []byte("a")},
		"a.txt": &fstest.MapFile{Data: []byte("a")},
	}
	if _, err := NewLexer(fsys, "a.txt"); err == nil {
		t.Error("expected an extension error for a.txt")
	}
	if _, err := NewLexer(fsys, "b.cdl"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("NewLexer(b.cdl) error = %v, want fs.ErrNotExist", err)
	}
	l, err := NewLexer(fsys, "a.cdl")
	if err != nil {
		t.Fatal(err)
	}
	if tok := l.Next(); tok.Type != Ident || tok.Data != "a" {
		t.Errorf("Next() = %v", tok)
	}
	if l.Err() != nil {
		t.Errorf("Err() = %v", l.Err())
	}
}

func TestPrec(t *testing.T) {
	ops := []TokenType{LogicalOr, LogicalAnd, StrictEquals, LessThan}
	for i := 1; i < len(ops); i++ {
		lo, hi := Token{Type: ops[i-1]}, Token{Type: ops[i]}
		if lo.Prec() >= hi.Prec() {
			t.Errorf("%s binds at least as tightly as %s", lo.Type, hi.Type)
		}
	}
	if (Token{Type: LogicalOr}).Prec() != MinPrec {
		t.Errorf("|| has precedence %d, want %d", Token{Type: LogicalOr}.Prec(), MinPrec)
	}
}
