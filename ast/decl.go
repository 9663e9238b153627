package ast

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/smasher164/cdl/lexer"
)

// Markup is the closed family of nodes that can appear in a component body.
type Markup interface {
	Node
	isMarkup()
}

// Decl is a top-level struct, enum, or component declaration.
type Decl interface {
	Node
	DeclName() *Ident
	isDecl()
}

var (
	_ Markup = (*Element)(nil)
	_ Markup = (*Text)(nil)
	_ Markup = (*Interpolation)(nil)

	_ Decl = (*StructDecl)(nil)
	_ Decl = (*EnumDecl)(nil)
	_ Decl = (*ComponentDecl)(nil)

	_ Node = (*ImportDecl)(nil)
	_ Node = (*ImportSpec)(nil)
	_ Node = (*Property)(nil)
	_ Node = (*Attr)(nil)
	_ Node = (*Module)(nil)
)

type Element struct {
	LessThan    lexer.Token
	Name        *Ident
	Attrs       []*Attr
	SelfClosing bool
	Children    []Markup
	CloseName   *Ident
	End         lexer.Token
}

func (*Element) isMarkup() {}

// IsComponent reports whether the tag names a component rather than an
// HTML element. Component names start with an upper-case letter.
func (e *Element) IsComponent() bool {
	name := e.Name.String()
	return name != "" && 'A' <= name[0] && name[0] <= 'Z'
}

func (e *Element) Span() lexer.Span { return e.LessThan.Span.Add(e.End.Span) }

func (e *Element) ASTString(depth int) string {
	return fmt.Sprintf(
		"Element\n%sName: %s\n%sAttrs: %s\n%sSelfClosing: %t\n%sChildren: %s",
		indent(depth+1), e.Name.ASTString(depth+1),
		indent(depth+1), printSlice(depth+1, e.Attrs),
		indent(depth+1), e.SelfClosing,
		indent(depth+1), printSlice(depth+1, e.Children))
}

type Attr struct {
	Name   *Ident
	Equals lexer.Token
	Value  Expr
}

func (a *Attr) Span() lexer.Span { return spanOf(a.Name).Add(spanOf(a.Value)) }

func (a *Attr) ASTString(depth int) string {
	return fmt.Sprintf(
		"Attr\n%sName: %s\n%sValue: %s",
		indent(depth+1), a.Name.ASTString(depth+1),
		indent(depth+1), a.Value.ASTString(depth+1))
}

type Text struct {
	Tok lexer.Token
}

func (*Text) isMarkup() {}

func (t *Text) Span() lexer.Span { return t.Tok.Span }

func (t *Text) ASTString(depth int) string { return fmt.Sprintf("Text %s", t.Tok) }

// Interpolation is an expression in braces inside markup.
type Interpolation struct {
	LeftBrace  lexer.Token
	X          Expr
	RightBrace lexer.Token
}

func (*Interpolation) isMarkup() {}

func (i *Interpolation) Span() lexer.Span { return i.LeftBrace.Span.Add(i.RightBrace.Span) }

func (i *Interpolation) ASTString(depth int) string {
	return fmt.Sprintf("Interpolation\n%sX: %s", indent(depth+1), i.X.ASTString(depth+1))
}

// Property is a named, typed member of a struct or a component prop.
type Property struct {
	Name  *Ident
	Colon lexer.Token
	Type  *TypeRef
}

func (p *Property) Span() lexer.Span { return spanOf(p.Name).Add(spanOf(p.Type)) }

func (p *Property) ASTString(depth int) string {
	return fmt.Sprintf(
		"Property\n%sName: %s\n%sType: %s",
		indent(depth+1), p.Name.ASTString(depth+1),
		indent(depth+1), p.Type.ASTString(depth+1))
}

type StructDecl struct {
	Struct     lexer.Token
	Name       *Ident
	Props      []*Property
	RightBrace lexer.Token
}

func (*StructDecl) isDecl() {}

func (s *StructDecl) DeclName() *Ident { return s.Name }

func (s *StructDecl) Span() lexer.Span { return s.Struct.Span.Add(s.RightBrace.Span) }

func (s *StructDecl) ASTString(depth int) string {
	return fmt.Sprintf(
		"StructDecl\n%sName: %s\n%sProps: %s",
		indent(depth+1), s.Name.ASTString(depth+1),
		indent(depth+1), printSlice(depth+1, s.Props))
}

type EnumCase struct {
	Name   *Ident
	Equals lexer.Token
	Value  Expr // nil, *StringLit or *NumberLit
}

func (c *EnumCase) Span() lexer.Span { return spanOf(c.Name).Add(spanOf(c.Value)) }

func (c *EnumCase) ASTString(depth int) string {
	if c.Value == nil {
		return fmt.Sprintf("EnumCase %s", c.Name.ASTString(depth+1))
	}
	return fmt.Sprintf(
		"EnumCase\n%sName: %s\n%sValue: %s",
		indent(depth+1), c.Name.ASTString(depth+1),
		indent(depth+1), c.Value.ASTString(depth+1))
}

type EnumDecl struct {
	Enum       lexer.Token
	Name       *Ident
	Cases      []*EnumCase
	RightBrace lexer.Token
}

func (*EnumDecl) isDecl() {}

func (e *EnumDecl) DeclName() *Ident { return e.Name }

func (e *EnumDecl) Span() lexer.Span { return e.Enum.Span.Add(e.RightBrace.Span) }

func (e *EnumDecl) ASTString(depth int) string {
	return fmt.Sprintf(
		"EnumDecl\n%sName: %s\n%sCases: %s",
		indent(depth+1), e.Name.ASTString(depth+1),
		indent(depth+1), printSlice(depth+1, e.Cases))
}

type ComponentDecl struct {
	Component  lexer.Token
	Name       *Ident
	Props      []*Property
	Body       []Markup
	RightBrace lexer.Token
}

func (*ComponentDecl) isDecl() {}

func (c *ComponentDecl) DeclName() *Ident { return c.Name }

// Prop returns the declared prop with the given name, or nil.
func (c *ComponentDecl) Prop(name string) *Property {
	for _, p := range c.Props {
		if p.Name.String() == name {
			return p
		}
	}
	return nil
}

func (c *ComponentDecl) Span() lexer.Span { return c.Component.Span.Add(c.RightBrace.Span) }

func (c *ComponentDecl) ASTString(depth int) string {
	return fmt.Sprintf(
		"ComponentDecl\n%sName: %s\n%sProps: %s\n%sBody: %s",
		indent(depth+1), c.Name.ASTString(depth+1),
		indent(depth+1), printSlice(depth+1, c.Props),
		indent(depth+1), printSlice(depth+1, c.Body))
}

// ImportSpec is one name imported by an import declaration.
type ImportSpec struct {
	Name *Ident
	Path string // import path of the declaring module
}

func (s *ImportSpec) Span() lexer.Span { return spanOf(s.Name) }

func (s *ImportSpec) ASTString(depth int) string {
	return fmt.Sprintf("ImportSpec %s from %q", s.Name.ASTString(depth+1), s.Path)
}

type ImportDecl struct {
	Import lexer.Token
	Specs  []*ImportSpec
	From   lexer.Token
	Path   *StringLit
}

func (i *ImportDecl) Span() lexer.Span { return i.Import.Span.Add(spanOf(i.Path)) }

func (i *ImportDecl) ASTString(depth int) string {
	return fmt.Sprintf(
		"ImportDecl\n%sSpecs: %s\n%sPath: %s",
		indent(depth+1), printSlice(depth+1, i.Specs),
		indent(depth+1), i.Path.ASTString(depth+1))
}

// Module is one parsed source file.
type Module struct {
	Path     string
	Filename string
	Imports  []*ImportDecl
	Decls    []Decl
}

// Decl returns the declaration with the given name, or nil.
func (m *Module) Decl(name string) Decl {
	for _, d := range m.Decls {
		if d.DeclName().String() == name {
			return d
		}
	}
	return nil
}

// Import returns the import spec that binds name, or nil.
func (m *Module) Import(name string) *ImportSpec {
	for _, imp := range m.Imports {
		for _, spec := range imp.Specs {
			if spec.Name.String() == name {
				return spec
			}
		}
	}
	return nil
}

// ImportPaths returns the distinct import paths in source order.
func (m *Module) ImportPaths() []string {
	return lo.Uniq(lo.Map(m.Imports, func(imp *ImportDecl, _ int) string {
		return imp.Path.Value
	}))
}

func (m *Module) Span() lexer.Span {
	var span lexer.Span
	for _, imp := range m.Imports {
		span = span.Add(imp.Span())
	}
	for _, d := range m.Decls {
		span = span.Add(d.Span())
	}
	return span
}

func (m *Module) ASTString(depth int) string {
	return fmt.Sprintf(
		"Module\n%sPath: %s\n%sFilename: %s\n%sImports: %s\n%sDecls: %s",
		indent(depth+1), m.Path,
		indent(depth+1), m.Filename,
		indent(depth+1), printSlice(depth+1, m.Imports),
		indent(depth+1), printSlice(depth+1, m.Decls))
}
