package check

import (
	"errors"
	"fmt"

	"github.com/smasher164/cdl/ast"
	"github.com/smasher164/cdl/types"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// RenderMode says how an interpolation in markup turns its value into
// output.
type RenderMode int

const (
	// Stringify converts the value to text.
	Stringify RenderMode = iota
	// Render calls the value's render operation (components and slots).
	Render
)

func (m RenderMode) String() string {
	if m == Render {
		return "render"
	}
	return "stringify"
}

// Info holds the results of checking a module.
type Info struct {
	// Types records the type of every expression resolved.
	Types map[ast.Expr]types.Type
	// Modes records how each interpolation in markup is emitted.
	Modes map[*ast.Interpolation]RenderMode
}

func newInfo() *Info {
	return &Info{
		Types: make(map[ast.Expr]types.Type),
		Modes: make(map[*ast.Interpolation]RenderMode),
	}
}

// TypeOf returns the recorded type of expr, or nil.
func (info *Info) TypeOf(expr ast.Expr) types.Type { return info.Types[expr] }

// Exprs returns the recorded expressions in source order.
func (info *Info) Exprs() []ast.Expr {
	exprs := maps.Keys(info.Types)
	slices.SortStableFunc(exprs, func(x, y ast.Expr) bool {
		a, b := x.Span(), y.Span()
		if a.Start.Offset != b.Start.Offset {
			return a.Start.Offset < b.Start.Offset
		}
		return a.End.Offset > b.End.Offset
	})
	return exprs
}

type Checker struct {
	importer Importer
}

// NewChecker returns a checker that resolves imports through importer.
func NewChecker(importer Importer) *Checker {
	return &Checker{importer: importer}
}

// CheckModule checks every declaration in mod. A failing declaration is
// abandoned at its first error; the errors of all declarations are joined.
// The returned Info is valid even when err is non-nil.
func (c *Checker) CheckModule(mod *ast.Module) (*Info, error) {
	return c.CheckModuleIn(mod, NewModuleScope(mod, c.importer, Universe))
}

// CheckModuleIn is CheckModule with a prebuilt module scope.
func (c *Checker) CheckModuleIn(mod *ast.Module, scope *ModuleScope) (*Info, error) {
	info := newInfo()
	var errs []error
	for _, d := range mod.Decls {
		if err := c.checkDecl(d, scope, info); err != nil {
			errs = append(errs, err)
		}
	}
	return info, errors.Join(errs...)
}

func (c *Checker) checkDecl(d ast.Decl, scope Scope, info *Info) error {
	switch d := d.(type) {
	case *ast.StructDecl:
		if err := checkProps(d.Props, scope); err != nil {
			return fmt.Errorf("struct %s: %w", d.Name, err)
		}
	case *ast.EnumDecl:
	case *ast.ComponentDecl:
		if err := checkProps(d.Props, scope); err != nil {
			return fmt.Errorf("component %s: %w", d.Name, err)
		}
		w := &markupChecker{r: resolver{types: info.Types}, info: info, scope: NewComponentScope(d, scope)}
		if err := w.checkList(d.Body); err != nil {
			return fmt.Errorf("component %s: %w", d.Name, err)
		}
	default:
		panic("unreachable")
	}
	return nil
}

func checkProps(props []*ast.Property, scope Scope) error {
	for _, p := range props {
		if _, err := scope.ResolveTypeReference(p.Type); err != nil {
			return err
		}
	}
	return nil
}

type markupChecker struct {
	r     resolver
	info  *Info
	scope Scope
}

func (w *markupChecker) checkList(list []ast.Markup) error {
	for _, m := range list {
		if err := w.check(m); err != nil {
			return err
		}
	}
	return nil
}

func (w *markupChecker) check(m ast.Markup) error {
	switch m := m.(type) {
	case *ast.Text:
		return nil
	case *ast.Interpolation:
		t, err := w.r.resolve(m.X, w.scope)
		if err != nil {
			return err
		}
		if types.IsRenderable(t) {
			w.info.Modes[m] = Render
		} else {
			w.info.Modes[m] = Stringify
		}
		return nil
	case *ast.Element:
		if err := w.checkElement(m); err != nil {
			return err
		}
		return w.checkList(m.Children)
	}
	panic("unreachable")
}

func (w *markupChecker) checkElement(el *ast.Element) error {
	if !el.IsComponent() {
		for _, attr := range el.Attrs {
			if _, err := w.r.resolve(attr.Value, w.scope); err != nil {
				return err
			}
		}
		return nil
	}
	t, err := w.scope.ResolveTypeReference(&ast.TypeRef{Name: el.Name})
	if err != nil {
		return err
	}
	comp, ok := t.(*types.Component)
	if !ok {
		return &ElementError{Kind: NotComponent, Element: el.Name.String(), Got: t, Span: el.Name.Span()}
	}
	for _, attr := range el.Attrs {
		got, err := w.r.resolve(attr.Value, w.scope)
		if err != nil {
			return err
		}
		want, ok, err := comp.Property(attr.Name.String())
		if err != nil {
			return err
		}
		if !ok {
			return &ElementError{Kind: UnknownAttr, Element: comp.Name(), Attr: attr.Name.String(), Span: attr.Name.Span()}
		}
		if !types.AssignableTo(got, want) {
			return &ElementError{Kind: MismatchedAttr, Element: comp.Name(), Attr: attr.Name.String(), Got: got, Want: want, Span: attr.Span()}
		}
	}
	return nil
}
