package parser

import (
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"

	"github.com/smasher164/cdl/ast"
	"github.com/smasher164/cdl/lexer"
)

// Error is a syntax error at a source position.
type Error struct {
	Filename string
	Span     lexer.Span
	Msg      string
}

func (e *Error) Error() string {
	if e.Filename == "" {
		return fmt.Sprintf("%d:%d: %s", e.Span.Start.Line, e.Span.Start.Column, e.Msg)
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.Filename, e.Span.Start.Line, e.Span.Start.Column, e.Msg)
}

type Lexer interface {
	Next() lexer.Token
	NextMarkup() lexer.Token
	Err() error
}

type Option func(*parser)

// WithTrace writes an indented trace of the productions entered to w.
func WithTrace(w io.Writer) Option {
	return func(p *parser) { p.traceOut = w }
}

type parser struct {
	l        Lexer
	tok      lexer.Token
	filename string
	indent   int
	traceOut io.Writer
}

// bailout unwinds the parser to the nearest entry point.
type bailout struct{ err *Error }

func newParser(l Lexer, filename string, opts []Option) *parser {
	p := &parser{l: l, filename: filename}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *parser) trace(msg string) func() {
	if p.traceOut != nil {
		fmt.Fprintf(p.traceOut, "%*s%s %s\n", p.indent*2, "", msg, p.tok)
		p.indent++
		return func() {
			p.indent--
		}
	}
	return func() {}
}

func (p *parser) errorf(span lexer.Span, format string, args ...any) {
	panic(bailout{&Error{Filename: p.filename, Span: span, Msg: fmt.Sprintf(format, args...)}})
}

func (p *parser) recover(err *error) {
	if r := recover(); r != nil {
		b, ok := r.(bailout)
		if !ok {
			panic(r)
		}
		*err = b.err
	}
}

func (p *parser) next() {
	p.tok = p.l.Next()
	p.checkIllegal()
}

// nextMarkup advances in markup mode. It must only be called when the parser
// holds no lookahead past the current token.
func (p *parser) nextMarkup() {
	p.tok = p.l.NextMarkup()
	p.checkIllegal()
}

func (p *parser) checkIllegal() {
	if p.tok.Type == lexer.Illegal {
		p.errorf(p.tok.Span, "%s", p.tok.Data)
	}
}

func (p *parser) expect(ttyp lexer.TokenType) lexer.Token {
	tok := p.tok
	if tok.Type != ttyp {
		p.errorf(tok.Span, "expected %s, found %s", ttyp, describe(tok))
	}
	p.next()
	return tok
}

func describe(tok lexer.Token) string {
	switch tok.Type {
	case lexer.Ident, lexer.Number, lexer.String, lexer.Text:
		return fmt.Sprintf("%s %q", tok.Type, tok.Data)
	case lexer.EOF:
		return "end of file"
	}
	return fmt.Sprintf("%q", tok.Type.String())
}

func (p *parser) parseIdent() *ast.Ident {
	tok := p.expect(lexer.Ident)
	return &ast.Ident{Name: tok}
}

// ParseModule parses the file at filename within fsys. path is the import
// path the module is known by.
func ParseModule(fsys fs.FS, filename, path string, opts ...Option) (*ast.Module, error) {
	l, err := lexer.NewLexer(fsys, filename)
	if err != nil {
		return nil, err
	}
	return parseModule(l, filename, path, opts)
}

// ParseSource parses src as a module with the given import path.
func ParseSource(path, src string, opts ...Option) (*ast.Module, error) {
	return parseModule(lexer.FromString(src), path+lexer.Ext, path, opts)
}

func parseModule(l Lexer, filename, path string, opts []Option) (mod *ast.Module, err error) {
	p := newParser(l, filename, opts)
	defer p.recover(&err)
	mod = p.parseModule()
	mod.Path = path
	mod.Filename = filename
	if err := l.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}
	return mod, nil
}

// ParseExpr parses a single expression.
func ParseExpr(src string, opts ...Option) (x ast.Expr, err error) {
	l := lexer.FromString(src)
	p := newParser(l, "", opts)
	defer p.recover(&err)
	p.next()
	x = p.parseExpr()
	if p.tok.Type != lexer.EOF {
		p.errorf(p.tok.Span, "unexpected %s after expression", describe(p.tok))
	}
	return x, nil
}

func (p *parser) parseModule() *ast.Module {
	defer p.trace("parseModule")()
	mod := new(ast.Module)
	p.next()
	for p.tok.Type == lexer.Import {
		mod.Imports = append(mod.Imports, p.parseImportDecl())
	}
	seen := make(map[string]lexer.Span)
	for _, imp := range mod.Imports {
		for _, spec := range imp.Specs {
			if prev, ok := seen[spec.Name.String()]; ok {
				p.errorf(spec.Span(), "%s was already imported at %s", spec.Name, prev)
			}
			seen[spec.Name.String()] = spec.Span()
		}
	}
	for p.tok.Type != lexer.EOF {
		var d ast.Decl
		switch p.tok.Type {
		case lexer.Struct:
			d = p.parseStructDecl()
		case lexer.Enum:
			d = p.parseEnumDecl()
		case lexer.Component:
			d = p.parseComponentDecl()
		case lexer.Import:
			p.errorf(p.tok.Span, "imports must precede declarations")
		default:
			p.errorf(p.tok.Span, "expected declaration, found %s", describe(p.tok))
		}
		name := d.DeclName()
		if prev, ok := seen[name.String()]; ok {
			p.errorf(name.Span(), "%s was already defined at %s", name, prev)
		}
		seen[name.String()] = name.Span()
		mod.Decls = append(mod.Decls, d)
	}
	return mod
}

func (p *parser) parseImportDecl() *ast.ImportDecl {
	defer p.trace("parseImportDecl")()
	imp := &ast.ImportDecl{Import: p.expect(lexer.Import)}
	p.expect(lexer.LeftBrace)
	for p.tok.Type != lexer.RightBrace {
		imp.Specs = append(imp.Specs, &ast.ImportSpec{Name: p.parseIdent()})
		if p.tok.Type != lexer.Comma {
			break
		}
		p.next()
	}
	p.expect(lexer.RightBrace)
	if len(imp.Specs) == 0 {
		p.errorf(imp.Import.Span, "empty import list")
	}
	imp.From = p.expect(lexer.From)
	imp.Path = p.parseStringLit()
	for _, spec := range imp.Specs {
		spec.Path = imp.Path.Value
	}
	return imp
}

func (p *parser) parseStringLit() *ast.StringLit {
	tok := p.expect(lexer.String)
	v, err := strconv.Unquote(tok.Data)
	if err != nil {
		p.errorf(tok.Span, "invalid string literal: %v", err)
	}
	return &ast.StringLit{Tok: tok, Value: v}
}

func (p *parser) parseNumberLit() *ast.NumberLit {
	tok := p.expect(lexer.Number)
	v, err := strconv.ParseFloat(strings.ReplaceAll(tok.Data, "_", ""), 64)
	if err != nil {
		p.errorf(tok.Span, "invalid number literal: %v", err)
	}
	return &ast.NumberLit{Tok: tok, Value: v}
}

func (p *parser) parseTypeRef() *ast.TypeRef {
	defer p.trace("parseTypeRef")()
	ref := &ast.TypeRef{Name: p.parseIdent()}
	if p.tok.Type == lexer.LeftBracket {
		ref.Suffix = p.tok.Span
		p.next()
		ref.Suffix = ref.Suffix.Add(p.expect(lexer.RightBracket).Span)
		ref.IsArray = true
	}
	if p.tok.Type == lexer.QuestionMark {
		ref.Suffix = ref.Suffix.Add(p.tok.Span)
		ref.IsOptional = true
		p.next()
	}
	return ref
}

// parseProperties parses "name: Type" pairs separated by optional commas
// until the closing token, which is left current.
func (p *parser) parseProperties(closer lexer.TokenType) []*ast.Property {
	defer p.trace("parseProperties")()
	var props []*ast.Property
	seen := make(map[string]struct{})
	for p.tok.Type != closer {
		prop := &ast.Property{Name: p.parseIdent()}
		if _, ok := seen[prop.Name.String()]; ok {
			p.errorf(prop.Name.Span(), "duplicate property %s", prop.Name)
		}
		seen[prop.Name.String()] = struct{}{}
		prop.Colon = p.expect(lexer.Colon)
		prop.Type = p.parseTypeRef()
		props = append(props, prop)
		if p.tok.Type == lexer.Comma {
			p.next()
		}
	}
	return props
}

func (p *parser) parseStructDecl() *ast.StructDecl {
	defer p.trace("parseStructDecl")()
	s := &ast.StructDecl{Struct: p.expect(lexer.Struct)}
	s.Name = p.parseIdent()
	p.expect(lexer.LeftBrace)
	s.Props = p.parseProperties(lexer.RightBrace)
	s.RightBrace = p.expect(lexer.RightBrace)
	return s
}

func (p *parser) parseEnumDecl() *ast.EnumDecl {
	defer p.trace("parseEnumDecl")()
	e := &ast.EnumDecl{Enum: p.expect(lexer.Enum)}
	e.Name = p.parseIdent()
	p.expect(lexer.LeftBrace)
	seen := make(map[string]struct{})
	for p.tok.Type != lexer.RightBrace {
		c := &ast.EnumCase{Name: p.parseIdent()}
		if _, ok := seen[c.Name.String()]; ok {
			p.errorf(c.Name.Span(), "duplicate enum case %s", c.Name)
		}
		seen[c.Name.String()] = struct{}{}
		if p.tok.Type == lexer.Equals {
			c.Equals = p.tok
			p.next()
			switch p.tok.Type {
			case lexer.String:
				c.Value = p.parseStringLit()
			case lexer.Number:
				c.Value = p.parseNumberLit()
			default:
				p.errorf(p.tok.Span, "enum case value must be a string or number literal")
			}
		}
		e.Cases = append(e.Cases, c)
		if p.tok.Type == lexer.Comma {
			p.next()
		}
	}
	if len(e.Cases) == 0 {
		p.errorf(e.Name.Span(), "enum %s has no cases", e.Name)
	}
	e.RightBrace = p.expect(lexer.RightBrace)
	return e
}

func (p *parser) parseComponentDecl() *ast.ComponentDecl {
	defer p.trace("parseComponentDecl")()
	c := &ast.ComponentDecl{Component: p.expect(lexer.Component)}
	c.Name = p.parseIdent()
	p.expect(lexer.LeftParen)
	c.Props = p.parseProperties(lexer.RightParen)
	p.expect(lexer.RightParen)
	if p.tok.Type != lexer.LeftBrace {
		p.errorf(p.tok.Span, "expected %s, found %s", lexer.LeftBrace, describe(p.tok))
	}
	p.nextMarkup()
	c.Body = p.parseMarkupList()
	if p.tok.Type != lexer.RightBrace {
		p.errorf(p.tok.Span, "unexpected %s in component body", describe(p.tok))
	}
	c.RightBrace = p.tok
	p.next()
	return c
}

// parseMarkupList parses markup until a closing tag or the end of the
// component body. The terminating token is left current.
func (p *parser) parseMarkupList() []ast.Markup {
	defer p.trace("parseMarkupList")()
	var list []ast.Markup
	for {
		switch p.tok.Type {
		case lexer.Text:
			list = append(list, &ast.Text{Tok: p.tok})
			p.nextMarkup()
		case lexer.LeftBrace:
			list = append(list, p.parseInterpolation())
			p.nextMarkup()
		case lexer.LessThan:
			list = append(list, p.parseElement())
			p.nextMarkup()
		case lexer.LessThanSlash, lexer.RightBrace:
			return list
		case lexer.EOF:
			p.errorf(p.tok.Span, "unexpected end of file in markup")
		default:
			p.errorf(p.tok.Span, "unexpected %s in markup", describe(p.tok))
		}
	}
}

// parseInterpolation leaves the closing brace current.
func (p *parser) parseInterpolation() *ast.Interpolation {
	defer p.trace("parseInterpolation")()
	in := &ast.Interpolation{LeftBrace: p.tok}
	p.next()
	in.X = p.parseExpr()
	if p.tok.Type != lexer.RightBrace {
		p.errorf(p.tok.Span, "expected %s, found %s", lexer.RightBrace, describe(p.tok))
	}
	in.RightBrace = p.tok
	return in
}

// parseElement leaves the final '>' or '/>' current.
func (p *parser) parseElement() *ast.Element {
	defer p.trace("parseElement")()
	el := &ast.Element{LessThan: p.tok}
	p.next()
	el.Name = p.parseIdent()
	seen := make(map[string]struct{})
	for p.tok.Type == lexer.Ident {
		attr := &ast.Attr{Name: p.parseIdent()}
		if _, ok := seen[attr.Name.String()]; ok {
			p.errorf(attr.Name.Span(), "duplicate attribute %s", attr.Name)
		}
		seen[attr.Name.String()] = struct{}{}
		attr.Equals = p.expect(lexer.Equals)
		switch p.tok.Type {
		case lexer.String:
			attr.Value = p.parseStringLit()
		case lexer.LeftBrace:
			attr.Value = p.parseInterpolation().X
			p.next()
		default:
			p.errorf(p.tok.Span, "attribute value must be a string or {expression}")
		}
		el.Attrs = append(el.Attrs, attr)
	}
	switch p.tok.Type {
	case lexer.SlashGreaterThan:
		el.SelfClosing = true
		el.End = p.tok
		return el
	case lexer.GreaterThan:
	default:
		p.errorf(p.tok.Span, "expected %s or %s, found %s", lexer.GreaterThan, lexer.SlashGreaterThan, describe(p.tok))
	}
	p.nextMarkup()
	el.Children = p.parseMarkupList()
	if p.tok.Type != lexer.LessThanSlash {
		p.errorf(p.tok.Span, "unclosed element <%s>", el.Name)
	}
	p.next()
	el.CloseName = p.parseIdent()
	if el.CloseName.String() != el.Name.String() {
		p.errorf(el.CloseName.Span(), "closing tag </%s> does not match <%s>", el.CloseName, el.Name)
	}
	if p.tok.Type != lexer.GreaterThan {
		p.errorf(p.tok.Span, "expected %s, found %s", lexer.GreaterThan, describe(p.tok))
	}
	el.End = p.tok
	return el
}

func (p *parser) parseExpr() ast.Expr {
	defer p.trace("parseExpr")()
	cond := p.parseBinaryExpr(lexer.MinPrec)
	if p.tok.Type != lexer.QuestionMark {
		return cond
	}
	t := &ast.TernaryExpr{Cond: cond, Question: p.tok}
	p.next()
	t.Then = p.parseExpr()
	t.Colon = p.expect(lexer.Colon)
	t.Else = p.parseExpr()
	return t
}

func (p *parser) parseBinaryExpr(minPrec int) ast.Expr {
	defer p.trace("parseBinaryExpr")()
	res := p.parsePrefixExpr()
	for p.tok.IsBinaryOp() && p.tok.Prec() >= minPrec {
		op := p.tok
		p.next()
		rhs := p.parseBinaryExpr(op.Prec() + 1)
		res = &ast.BinaryExpr{Left: res, Op: op, Right: rhs}
	}
	return res
}

func (p *parser) parsePrefixExpr() ast.Expr {
	defer p.trace("parsePrefixExpr")()
	if p.tok.IsPrefixOp() {
		op := p.tok
		p.next()
		return &ast.UnaryExpr{Op: op, X: p.parsePrefixExpr()}
	}
	return p.parsePostfixExpr()
}

func (p *parser) parsePostfixExpr() ast.Expr {
	defer p.trace("parsePostfixExpr")()
	x := p.parsePrimaryExpr()
	for p.tok.Type == lexer.Period || p.tok.Type == lexer.OptionalChain {
		op := p.tok
		p.next()
		x = &ast.AccessExpr{X: x, Op: op, Key: p.parseIdent()}
	}
	return x
}

func (p *parser) parsePrimaryExpr() ast.Expr {
	defer p.trace("parsePrimaryExpr")()
	switch p.tok.Type {
	case lexer.True, lexer.False:
		b := &ast.BoolLit{Tok: p.tok, Value: p.tok.Type == lexer.True}
		p.next()
		return b
	case lexer.Null:
		n := &ast.NullLit{Tok: p.tok}
		p.next()
		return n
	case lexer.Number:
		return p.parseNumberLit()
	case lexer.String:
		return p.parseStringLit()
	case lexer.Template, lexer.TemplateBeg:
		return p.parseTemplate()
	case lexer.Ident:
		return p.parseIdent()
	case lexer.LeftParen:
		p.next()
		x := p.parseExpr()
		p.expect(lexer.RightParen)
		return x
	case lexer.Match:
		return p.parseMatch()
	}
	p.errorf(p.tok.Span, "expected expression, found %s", describe(p.tok))
	panic("unreachable")
}

func (p *parser) parseTemplate() *ast.TemplateLit {
	defer p.trace("parseTemplate")()
	t := &ast.TemplateLit{}
	tok := p.tok
	t.Toks = append(t.Toks, tok)
	if tok.Type == lexer.Template {
		t.Strings = append(t.Strings, ast.Unescape(strings.TrimSuffix(strings.TrimPrefix(tok.Data, "`"), "`")))
		p.next()
		return t
	}
	t.Strings = append(t.Strings, ast.Unescape(strings.TrimSuffix(strings.TrimPrefix(tok.Data, "`"), "${")))
	for {
		p.next()
		t.Exprs = append(t.Exprs, p.parseExpr())
		tok := p.tok
		t.Toks = append(t.Toks, tok)
		switch tok.Type {
		case lexer.TemplatePart:
			t.Strings = append(t.Strings, ast.Unescape(strings.TrimSuffix(strings.TrimPrefix(tok.Data, "}"), "${")))
		case lexer.TemplateEnd:
			t.Strings = append(t.Strings, ast.Unescape(strings.TrimSuffix(strings.TrimPrefix(tok.Data, "}"), "`")))
			p.next()
			return t
		default:
			p.errorf(tok.Span, "expected end of template interpolation, found %s", describe(tok))
		}
	}
}

func (p *parser) parseMatch() *ast.MatchExpr {
	defer p.trace("parseMatch")()
	m := &ast.MatchExpr{Match: p.expect(lexer.Match)}
	p.expect(lexer.LeftParen)
	m.Subject = p.parseExpr()
	p.expect(lexer.RightParen)
	p.expect(lexer.LeftBrace)
	for p.tok.Type != lexer.RightBrace {
		arm := &ast.MatchArm{Pattern: p.parsePattern()}
		arm.Arrow = p.expect(lexer.RightArrow)
		arm.Body = p.parseExpr()
		m.Arms = append(m.Arms, arm)
		if p.tok.Type == lexer.Comma {
			p.next()
		}
	}
	if len(m.Arms) == 0 {
		p.errorf(p.tok.Span, "match has no arms")
	}
	m.RightBrace = p.expect(lexer.RightBrace)
	return m
}

func (p *parser) parsePattern() ast.Pattern {
	defer p.trace("parsePattern")()
	switch p.tok.Type {
	case lexer.Default:
		d := &ast.DefaultPattern{Tok: p.tok}
		p.next()
		return d
	case lexer.True, lexer.False:
		b := &ast.BoolLit{Tok: p.tok, Value: p.tok.Type == lexer.True}
		p.next()
		return b
	case lexer.Ident:
		id := p.parseIdent()
		if p.tok.Type != lexer.Period {
			return id
		}
		op := p.tok
		p.next()
		return &ast.AccessExpr{X: id, Op: op, Key: p.parseIdent()}
	}
	p.errorf(p.tok.Span, "expected match pattern, found %s", describe(p.tok))
	panic("unreachable")
}
