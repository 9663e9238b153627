package ast

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/smasher164/cdl/lexer"
)

type Node interface {
	Span() lexer.Span
	ASTString(depth int) string
}

// Expr is the closed family of expression nodes. Only types in this package
// implement it, so a type switch over the variants below is exhaustive.
type Expr interface {
	Node
	isExpr()
}

// Pattern is the left-hand side of a match arm.
type Pattern interface {
	Node
	isPattern()
}

var (
	_ Expr = (*BoolLit)(nil)
	_ Expr = (*NumberLit)(nil)
	_ Expr = (*StringLit)(nil)
	_ Expr = (*NullLit)(nil)
	_ Expr = (*TemplateLit)(nil)
	_ Expr = (*Ident)(nil)
	_ Expr = (*AccessExpr)(nil)
	_ Expr = (*BinaryExpr)(nil)
	_ Expr = (*UnaryExpr)(nil)
	_ Expr = (*TernaryExpr)(nil)
	_ Expr = (*MatchExpr)(nil)

	_ Pattern = (*BoolLit)(nil)
	_ Pattern = (*Ident)(nil)
	_ Pattern = (*AccessExpr)(nil)
	_ Pattern = (*DefaultPattern)(nil)
)

func spanOf(n any) lexer.Span {
	if n == nil {
		return lexer.Span{}
	}
	switch n := n.(type) {
	case Node:
		if isNilNode(n) {
			return lexer.Span{}
		}
		return n.Span()
	case lexer.Token:
		return n.Span
	}
	return lexer.Span{}
}

func isNilNode(n Node) bool {
	switch n := n.(type) {
	case *Ident:
		return n == nil
	case *StringLit:
		return n == nil
	case *TypeRef:
		return n == nil
	}
	return n == nil
}

func indent(depth int) string {
	return fmt.Sprintf("%*s", depth*2, "")
}

func printSlice[N Node](depth int, nodes []N) string {
	if len(nodes) == 0 {
		return "[]"
	}
	s := fmt.Sprintf("[\n%s", indent(depth+1))
	for _, n := range nodes {
		s += fmt.Sprintf("%s\n%s", n.ASTString(depth+1), indent(depth+1))
	}
	s += "]"
	return s
}

func PrintAST(root Node) {
	FprintAST(os.Stdout, root)
}

func FprintAST(w io.Writer, root Node) {
	fmt.Fprintln(w, root.ASTString(0))
}

type BoolLit struct {
	Tok   lexer.Token
	Value bool
}

func (*BoolLit) isExpr()    {}
func (*BoolLit) isPattern() {}

func (b *BoolLit) Span() lexer.Span { return b.Tok.Span }

func (b *BoolLit) ASTString(depth int) string {
	return fmt.Sprintf("BoolLit %s", b.Tok)
}

type NumberLit struct {
	Tok   lexer.Token
	Value float64
}

func (*NumberLit) isExpr() {}

func (n *NumberLit) Span() lexer.Span { return n.Tok.Span }

func (n *NumberLit) ASTString(depth int) string {
	return fmt.Sprintf("NumberLit %s", n.Tok)
}

type StringLit struct {
	Tok   lexer.Token
	Value string
}

func (*StringLit) isExpr() {}

func (s *StringLit) Span() lexer.Span { return s.Tok.Span }

func (s *StringLit) ASTString(depth int) string {
	return fmt.Sprintf("StringLit %s", s.Tok)
}

type NullLit struct {
	Tok lexer.Token
}

func (*NullLit) isExpr() {}

func (n *NullLit) Span() lexer.Span { return n.Tok.Span }

func (n *NullLit) ASTString(depth int) string {
	return fmt.Sprintf("NullLit %s", n.Tok)
}

// TemplateLit is a backtick string. Strings always has one more element
// than Exprs: Strings[i] precedes Exprs[i].
type TemplateLit struct {
	Toks    []lexer.Token
	Strings []string
	Exprs   []Expr
}

func (*TemplateLit) isExpr() {}

func (t *TemplateLit) Span() lexer.Span {
	if len(t.Toks) == 0 {
		return lexer.Span{}
	}
	return t.Toks[0].Span.Add(t.Toks[len(t.Toks)-1].Span)
}

func (t *TemplateLit) ASTString(depth int) string {
	return fmt.Sprintf(
		"TemplateLit\n%sStrings: %q\n%sExprs: %s",
		indent(depth+1), t.Strings,
		indent(depth+1), printSlice(depth+1, t.Exprs))
}

type Ident struct {
	Name lexer.Token
}

// NewIdent synthesizes an identifier with no source position.
func NewIdent(name string) *Ident {
	return &Ident{Name: lexer.Token{Type: lexer.Ident, Data: name}}
}

func (*Ident) isExpr()    {}
func (*Ident) isPattern() {}

func (id *Ident) String() string { return id.Name.Data }

func (id *Ident) Span() lexer.Span { return id.Name.Span }

func (id *Ident) ASTString(depth int) string {
	return id.Name.String()
}

// AccessExpr is X.Key or X?.Key.
type AccessExpr struct {
	X   Expr
	Op  lexer.Token
	Key *Ident
}

func (*AccessExpr) isExpr()    {}
func (*AccessExpr) isPattern() {}

// Optional reports whether the access uses the optional-chain operator.
func (a *AccessExpr) Optional() bool { return a.Op.Type == lexer.OptionalChain }

func (a *AccessExpr) Span() lexer.Span { return spanOf(a.X).Add(spanOf(a.Key)) }

func (a *AccessExpr) ASTString(depth int) string {
	return fmt.Sprintf(
		"AccessExpr\n%sX: %s\n%sOp: %s\n%sKey: %s",
		indent(depth+1), a.X.ASTString(depth+1),
		indent(depth+1), a.Op,
		indent(depth+1), a.Key.ASTString(depth+1))
}

type BinaryExpr struct {
	Left  Expr
	Op    lexer.Token
	Right Expr
}

func (*BinaryExpr) isExpr() {}

func (be *BinaryExpr) Span() lexer.Span {
	return spanOf(be.Left).Add(spanOf(be.Right))
}

func (be *BinaryExpr) ASTString(depth int) string {
	return fmt.Sprintf(
		"BinaryExpr\n%sLeft: %s\n%sOp: %s\n%sRight: %s",
		indent(depth+1), be.Left.ASTString(depth+1),
		indent(depth+1), be.Op,
		indent(depth+1), be.Right.ASTString(depth+1))
}

type UnaryExpr struct {
	Op lexer.Token
	X  Expr
}

func (*UnaryExpr) isExpr() {}

func (u *UnaryExpr) Span() lexer.Span { return u.Op.Span.Add(spanOf(u.X)) }

func (u *UnaryExpr) ASTString(depth int) string {
	return fmt.Sprintf(
		"UnaryExpr\n%sOp: %s\n%sX: %s",
		indent(depth+1), u.Op,
		indent(depth+1), u.X.ASTString(depth+1))
}

type TernaryExpr struct {
	Cond     Expr
	Question lexer.Token
	Then     Expr
	Colon    lexer.Token
	Else     Expr
}

func (*TernaryExpr) isExpr() {}

func (t *TernaryExpr) Span() lexer.Span {
	return spanOf(t.Cond).Add(spanOf(t.Else))
}

func (t *TernaryExpr) ASTString(depth int) string {
	return fmt.Sprintf(
		"TernaryExpr\n%sCond: %s\n%sThen: %s\n%sElse: %s",
		indent(depth+1), t.Cond.ASTString(depth+1),
		indent(depth+1), t.Then.ASTString(depth+1),
		indent(depth+1), t.Else.ASTString(depth+1))
}

type MatchExpr struct {
	Match      lexer.Token
	Subject    Expr
	Arms       []*MatchArm
	RightBrace lexer.Token
}

func (*MatchExpr) isExpr() {}

func (m *MatchExpr) Span() lexer.Span { return m.Match.Span.Add(m.RightBrace.Span) }

func (m *MatchExpr) ASTString(depth int) string {
	return fmt.Sprintf(
		"MatchExpr\n%sSubject: %s\n%sArms: %s",
		indent(depth+1), m.Subject.ASTString(depth+1),
		indent(depth+1), printSlice(depth+1, m.Arms))
}

type MatchArm struct {
	Pattern Pattern
	Arrow   lexer.Token
	Body    Expr
}

func (a *MatchArm) Span() lexer.Span { return spanOf(a.Pattern).Add(spanOf(a.Body)) }

func (a *MatchArm) ASTString(depth int) string {
	return fmt.Sprintf(
		"MatchArm\n%sPattern: %s\n%sBody: %s",
		indent(depth+1), a.Pattern.ASTString(depth+1),
		indent(depth+1), a.Body.ASTString(depth+1))
}

type DefaultPattern struct {
	Tok lexer.Token
}

func (*DefaultPattern) isPattern() {}

func (d *DefaultPattern) Span() lexer.Span { return d.Tok.Span }

func (d *DefaultPattern) ASTString(depth int) string { return "DefaultPattern" }

// TypeRef is a syntactic mention of a type: Name, Name[], Name?, Name[]?.
type TypeRef struct {
	Name       *Ident
	IsArray    bool
	IsOptional bool
	Suffix     lexer.Span
}

func (r *TypeRef) Span() lexer.Span { return spanOf(r.Name).Add(r.Suffix) }

func (r *TypeRef) String() string {
	s := r.Name.String()
	if r.IsArray {
		s += "[]"
	}
	if r.IsOptional {
		s += "?"
	}
	return s
}

func (r *TypeRef) ASTString(depth int) string {
	return fmt.Sprintf("TypeRef %s %q", r.Span(), r.String())
}

// Unescape resolves the escape sequences in one literal segment of a
// template. The lexer has already rejected malformed escapes.
func Unescape(raw string) string {
	var sb strings.Builder
	for len(raw) > 0 {
		if len(raw) >= 2 && raw[0] == '\\' && (raw[1] == '`' || raw[1] == '$') {
			sb.WriteByte(raw[1])
			raw = raw[2:]
			continue
		}
		r, _, tail, err := strconv.UnquoteChar(raw, '`')
		if err != nil {
			sb.WriteByte(raw[0])
			raw = raw[1:]
			continue
		}
		sb.WriteRune(r)
		raw = tail
	}
	return sb.String()
}
