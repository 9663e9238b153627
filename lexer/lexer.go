package lexer

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/smasher164/xid"
)

// Ext is the file extension of component source files.
const Ext = ".cdl"

type templateFrame struct {
	nestedBraceCount int
}

type Lexer struct {
	ch            rune
	pos           int
	i             int // position in buffer
	err           error
	buf           []rune
	rdr           io.RuneReader
	templateStack []templateFrame
	lines         []int
}

const eof = -1

func (l *Lexer) lexWS() Token {
	startPos := l.pos
	for unicode.IsSpace(l.ch) {
		l.next()
	}
	return Token{Type: Whitespace, Span: l.spanOf(startPos, l.pos-1), Data: l.bufString()}
}

func isLetter(ch rune) bool {
	return ch == '_' || xid.Start(ch)
}

func (l *Lexer) lexIdentOrKeyword() Token {
	startPos := l.pos
	l.next()
	for xid.Continue(l.ch) {
		l.next()
	}
	ident := l.bufString()
	if ttyp, ok := Keywords[ident]; ok {
		return Token{Type: ttyp, Span: l.spanOf(startPos, l.pos-1)}
	}
	return Token{Type: Ident, Span: l.spanOf(startPos, l.pos-1), Data: ident}
}

func isDecimal(ch rune) bool { return '0' <= ch && ch <= '9' }

func (l *Lexer) lexDigits(err *Token) (digitCount int) {
	_allowed := false
	for {
		if l.ch == '_' {
			if !_allowed && err.Type != Illegal {
				*err = Token{Type: Illegal, Span: l.spanOf(l.pos, l.pos), Data: "'_' must separate successive digits"}
			}
			_allowed = false
		} else if isDecimal(l.ch) {
			_allowed = true
			digitCount++
		} else {
			if digitCount > 0 && !_allowed && err.Type != Illegal {
				*err = Token{Type: Illegal, Span: l.spanOf(l.pos-1, l.pos-1), Data: "'_' must separate successive digits"}
			}
			return digitCount
		}
		l.next()
	}
}

func (l *Lexer) lexNumber() Token {
	var (
		startPos = l.pos
		tok      Token
	)
	setErr := func(msg string) {
		if tok.Type != Illegal {
			tok = Token{Type: Illegal, Span: l.spanOf(startPos, l.pos), Data: msg}
		}
	}
	l.lexDigits(&tok)
	if l.ch == '.' && isDecimal(l.peek()) {
		l.next()
		l.lexDigits(&tok)
	}
	if l.ch == 'e' || l.ch == 'E' {
		l.next()
		if l.ch == '+' || l.ch == '-' {
			l.next()
		}
		if count := l.lexDigits(&tok); count == 0 {
			setErr("no digits in exponent")
		}
	}
	if tok.Type == Illegal {
		return tok
	}
	return Token{Type: Number, Span: l.spanOf(startPos, l.pos-1), Data: l.bufString()}
}

func (l *Lexer) lexLineComment() Token {
	startPos := l.pos
	l.until('\n')
	return Token{Type: SingleLineComment, Span: l.spanOf(startPos, l.pos-1), Data: l.bufString()}
}

func (l *Lexer) lexEscape(quote rune) string {
	var n int
	var base, max uint32
	switch l.ch {
	case 'a', 'b', 'f', 'n', 'r', 't', 'v', '\\', quote:
		l.next()
		return ""
	case 'x':
		l.next()
		n, base, max = 2, 16, 255
	case 'u':
		l.next()
		n, base, max = 4, 16, unicode.MaxRune
	case 'U':
		l.next()
		n, base, max = 8, 16, unicode.MaxRune
	default:
		if l.ch == eof {
			return "escape sequence not terminated"
		}
		l.next()
		return "unknown escape sequence"
	}

	var x uint32
	for n > 0 {
		d, err := strconv.ParseInt(string(l.ch), int(base), 8)
		if err != nil {
			if l.ch == eof {
				return "escape sequence not terminated"
			}
			msg := fmt.Sprintf("illegal character %#U in escape sequence", l.ch)
			l.next()
			return msg
		}
		x = x*base + uint32(d)
		l.next()
		n--
	}

	if x > max || 0xD800 <= x && x < 0xE000 {
		return "escape sequence is invalid Unicode code point"
	}

	return ""
}

func (l *Lexer) lexString() Token {
	startPos := l.pos
	l.next()
	for {
		switch l.ch {
		case eof, '\n':
			return Token{Type: Illegal, Span: l.spanOf(startPos, l.pos), Data: "unterminated string"}
		case '"':
			l.next()
			return Token{Type: String, Span: l.spanOf(startPos, l.pos-1), Data: l.bufString()}
		case '\\':
			l.next()
			begPos := l.pos
			if msg := l.lexEscape('"'); msg != "" {
				return Token{Type: Illegal, Span: l.spanOf(begPos, l.pos-1), Data: msg}
			}
		default:
			l.next()
		}
	}
}

// lexTemplatePart lexes until the closing backtick or the next "${".
// Templates may nest inside interpolations, so each open template has a frame.
func (l *Lexer) lexTemplatePart(startPos int, fromLexTemplate bool) Token {
	for {
		switch l.ch {
		case eof:
			return Token{Type: Illegal, Span: l.spanOf(startPos, l.pos), Data: "unterminated template literal"}
		case '`':
			l.next()
			l.templateStack = l.templateStack[:len(l.templateStack)-1]
			ttyp := TemplateEnd
			if fromLexTemplate {
				ttyp = Template
			}
			return Token{Type: ttyp, Span: l.spanOf(startPos, l.pos-1), Data: l.bufString()}
		case '\\':
			l.next()
			if l.ch == '$' {
				l.next()
				continue
			}
			begPos := l.pos
			if msg := l.lexEscape('`'); msg != "" {
				return Token{Type: Illegal, Span: l.spanOf(begPos, l.pos-1), Data: msg}
			}
		case '$':
			if l.peek() != '{' {
				l.next()
				continue
			}
			l.nextN(2)
			ttyp := TemplatePart
			if fromLexTemplate {
				ttyp = TemplateBeg
			}
			return Token{Type: ttyp, Span: l.spanOf(startPos, l.pos-1), Data: l.bufString()}
		default:
			l.next()
		}
	}
}

func (l *Lexer) lexTemplate() Token {
	startPos := l.pos
	l.next()
	l.templateStack = append(l.templateStack, templateFrame{})
	return l.lexTemplatePart(startPos, true)
}

func isMarkupDelim(ch rune) bool {
	return ch == '<' || ch == '{' || ch == '}' || ch == eof
}

// lexText lexes raw markup text up to the next tag, interpolation or the
// brace closing the component body.
func (l *Lexer) lexText() Token {
	startPos := l.pos
	for !isMarkupDelim(l.ch) {
		l.next()
	}
	return Token{Type: Text, Span: l.spanOf(startPos, l.pos-1), Data: l.bufString()}
}

func (l *Lexer) next() {
	if l.ch == eof {
		return
	}
	l.i++
	l.pos++
	if l.i < len(l.buf) {
		l.ch = l.buf[l.i]
	} else {
		r, _, err := l.rdr.ReadRune()
		if err != nil {
			l.ch = eof
			if err != io.EOF {
				l.err = err
			}
		} else {
			l.ch = r
		}
		l.buf = append(l.buf, l.ch)
	}
	if l.ch == '\n' {
		if len(l.lines) == 0 || len(l.lines) > 0 && l.lines[len(l.lines)-1] < l.pos+1 {
			l.lines = append(l.lines, l.pos+1)
		}
	}
}

func (l *Lexer) backup() {
	if l.i > 0 {
		l.i--
		l.pos--
		l.ch = l.buf[l.i]
	}
}

func (l *Lexer) peek() rune {
	if l.ch == eof {
		return eof
	}
	l.next()
	ch := l.ch
	l.backup()
	return ch
}

func (l *Lexer) peek2() rune {
	if l.ch == eof {
		return eof
	}
	l.next()
	if l.ch == eof {
		l.backup()
		return eof
	}
	l.next()
	ch := l.ch
	l.backup()
	l.backup()
	return ch
}

func (l *Lexer) nextN(n int) {
	for i := 0; i < n; i++ {
		l.next()
	}
}

func (l *Lexer) until(r rune) {
	for l.ch != r && l.ch != eof {
		l.next()
	}
}

func (l *Lexer) bufString() string {
	return string(l.buf[:l.i])
}

func (l *Lexer) lineIndex(offset int) int {
	line, found := sort.Find(len(l.lines), func(i int) int {
		v := l.lines[i]
		if offset == v {
			return 0
		}
		if offset < v {
			return -1
		}
		return 1
	})
	if found {
		return line
	}
	return line - 1
}

func (l *Lexer) posOf(offset int) Pos {
	line := l.lineIndex(offset)
	return Pos{Offset: offset, Line: line + 1, Column: offset - l.lines[line] + 1}
}

func (l *Lexer) spanOf(off1, off2 int) Span {
	if off2 < off1 {
		off2 = off1
	}
	start := l.posOf(off1)
	var end Pos
	if off1 == off2 {
		end = start
	} else {
		end = l.posOf(off2)
	}
	return Span{Start: start, End: end}
}

func (l *Lexer) resetPos() {
	l.buf = l.buf[l.i:]
	l.i = 0
	l.ch = l.buf[l.i]
}

func (l *Lexer) NextToken() Token {
	defer l.resetPos()
	startPos := l.pos
	switch {
	case l.ch == eof:
		return Token{Type: EOF, Span: l.spanOf(startPos, startPos)}
	case unicode.IsSpace(l.ch):
		return l.lexWS()
	case isLetter(l.ch):
		return l.lexIdentOrKeyword()
	case isDecimal(l.ch):
		return l.lexNumber()
	case l.ch == '/' && l.peek() == '/':
		return l.lexLineComment()
	case l.ch == '"':
		return l.lexString()
	case l.ch == '`':
		return l.lexTemplate()
	case l.ch == '{':
		if len(l.templateStack) > 0 {
			l.templateStack[len(l.templateStack)-1].nestedBraceCount++
		}
		l.next()
		return Token{Type: LeftBrace, Span: l.spanOf(startPos, startPos)}
	case l.ch == '}':
		if len(l.templateStack) > 0 {
			frame := &l.templateStack[len(l.templateStack)-1]
			if frame.nestedBraceCount != 0 {
				frame.nestedBraceCount--
				l.next()
				return Token{Type: RightBrace, Span: l.spanOf(startPos, startPos)}
			}
			l.next()
			return l.lexTemplatePart(startPos, false)
		}
		l.next()
		return Token{Type: RightBrace, Span: l.spanOf(startPos, startPos)}
	}
	if ttyp, ok := TripleCharTokens[[3]rune{l.ch, l.peek(), l.peek2()}]; ok {
		l.nextN(3)
		return Token{Type: ttyp, Span: l.spanOf(startPos, l.pos-1)}
	}
	if ttyp, ok := DoubleCharTokens[[2]rune{l.ch, l.peek()}]; ok {
		l.nextN(2)
		return Token{Type: ttyp, Span: l.spanOf(startPos, l.pos-1)}
	}
	if ttyp, ok := SingleCharTokens[l.ch]; ok {
		l.next()
		return Token{Type: ttyp, Span: l.spanOf(startPos, startPos)}
	}
	ch := l.ch
	l.next()
	return Token{Type: Illegal, Span: l.spanOf(startPos, startPos), Data: fmt.Sprintf("unexpected character %q", ch)}
}

// Next returns the next significant token, attaching any whitespace and
// comments before it as leading trivia.
func (l *Lexer) Next() Token {
	var t Token
	var trivia []Token
	for t = l.NextToken(); t.Type == Whitespace || t.Type == SingleLineComment; t = l.NextToken() {
		trivia = append(trivia, t)
	}
	t.LeadingTrivia = trivia
	return t
}

// NextMarkup is Next for element bodies: runs of text up to the next '<',
// '{' or '}' come back as a single Text token. Whitespace-only text becomes
// trivia.
func (l *Lexer) NextMarkup() Token {
	var trivia []Token
	if !isMarkupDelim(l.ch) {
		tok := func() Token {
			defer l.resetPos()
			return l.lexText()
		}()
		if strings.TrimSpace(tok.Data) != "" {
			return tok
		}
		tok.Type = Whitespace
		trivia = append(trivia, tok)
	}
	t := l.Next()
	t.LeadingTrivia = append(trivia, t.LeadingTrivia...)
	return t
}

// Err returns the first read error encountered, if any.
func (l *Lexer) Err() error {
	return l.err
}

func newLexer(rdr io.RuneReader) *Lexer {
	l := &Lexer{
		rdr:   rdr,
		i:     -1,
		pos:   -1,
		lines: []int{0},
	}
	l.next()
	return l
}

func NewLexer(fsys fs.FS, filename string) (*Lexer, error) {
	if filepath.Ext(filename) != Ext {
		return nil, fmt.Errorf("invalid file extension %q, expected %q", filepath.Ext(filename), Ext)
	}
	f, err := fsys.Open(filename)
	if err != nil {
		return nil, err
	}
	return newLexer(bufio.NewReader(f)), nil
}

// FromString lexes src directly, e.g. a line typed at a prompt.
func FromString(src string) *Lexer {
	return newLexer(strings.NewReader(src))
}
