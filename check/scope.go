package check

import (
	"github.com/smasher164/cdl/ast"
	"github.com/smasher164/cdl/types"
	"golang.org/x/exp/maps"
)

// Scope supplies identifier and type-name bindings. Each scope defers to
// its parent on a miss.
type Scope interface {
	// LookupTypeFor returns the declared type of the value named name, or
	// nil if name is not bound.
	LookupTypeFor(name string) (types.Type, error)
	ResolveTypeReference(ref *ast.TypeRef) (types.Type, error)
}

// Importer resolves the type of a name imported from another module.
type Importer interface {
	ResolveTypeOfImport(spec *ast.ImportSpec) (types.Type, error)
}

var (
	_ Scope = GlobalScope{}
	_ Scope = (*ModuleScope)(nil)
	_ Scope = (*ComponentScope)(nil)
	_ Scope = (*BranchScope)(nil)
)

// Universe is the floor of every scope chain.
var Universe Scope = GlobalScope{}

// GlobalScope knows the built-in type names and binds no identifiers.
type GlobalScope struct{}

func (GlobalScope) LookupTypeFor(string) (types.Type, error) { return nil, nil }

func (GlobalScope) ResolveTypeReference(ref *ast.TypeRef) (types.Type, error) {
	t, ok := types.Builtin(ref.Name.String())
	if !ok {
		return nil, &UnknownTypeError{Name: ref.Name.String(), Span: ref.Name.Span()}
	}
	return applyModifiers(ref, t), nil
}

func applyModifiers(ref *ast.TypeRef, t types.Type) types.Type {
	if ref.IsArray {
		t = types.NewArray(t)
	}
	if ref.IsOptional {
		t = types.Optional(t)
	}
	return t
}

// ModuleScope binds the type names a module declares and imports.
type ModuleScope struct {
	parent   Scope
	mod      *ast.Module
	importer Importer
	decls    map[string]types.Type
}

// NewModuleScope creates the scope for mod. Imported names are resolved
// through importer. With a nil importer every imported name is unknown.
func NewModuleScope(mod *ast.Module, importer Importer, parent Scope) *ModuleScope {
	s := &ModuleScope{
		parent:   parent,
		mod:      mod,
		importer: importer,
		decls:    make(map[string]types.Type, len(mod.Decls)),
	}
	for _, d := range mod.Decls {
		s.decls[d.DeclName().String()] = s.declType(d)
	}
	return s
}

func properties(props []*ast.Property) []types.Property {
	res := make([]types.Property, len(props))
	for i, p := range props {
		res[i] = types.Property{Name: p.Name.String(), Ref: p.Type}
	}
	return res
}

func (s *ModuleScope) declType(d ast.Decl) types.Type {
	switch d := d.(type) {
	case *ast.StructDecl:
		return types.NewStruct(s.mod.Path, d.Name.String(), properties(d.Props), s)
	case *ast.ComponentDecl:
		return types.NewComponent(s.mod.Path, d.Name.String(), properties(d.Props), s)
	case *ast.EnumDecl:
		cases := make([]types.CaseDef, len(d.Cases))
		for i, c := range d.Cases {
			cases[i].Name = c.Name.String()
			if _, ok := c.Value.(*ast.NumberLit); ok {
				cases[i].Backing = types.Number
			}
		}
		return types.NewEnum(s.mod.Path, d.Name.String(), cases)
	}
	panic("unreachable")
}

func (s *ModuleScope) Module() *ast.Module { return s.mod }

// Declared returns the type of a declaration local to the module.
func (s *ModuleScope) Declared(name string) (types.Type, bool) {
	t, ok := s.decls[name]
	return t, ok
}

// Names returns the names of the module's declarations.
func (s *ModuleScope) Names() []string { return maps.Keys(s.decls) }

func (s *ModuleScope) LookupTypeFor(name string) (types.Type, error) {
	return s.parent.LookupTypeFor(name)
}

// ResolveTypeReference resolves ref as written in the module. Imported
// names go to the importer, whose errors are returned unchanged. Errors
// raised for the module's own references are attributed to its file.
func (s *ModuleScope) ResolveTypeReference(ref *ast.TypeRef) (types.Type, error) {
	name := ref.Name.String()
	if spec := s.mod.Import(name); spec != nil {
		if s.importer == nil {
			return nil, s.attribute(&UnknownTypeError{Name: name, Span: ref.Name.Span()})
		}
		t, err := s.importer.ResolveTypeOfImport(spec)
		if err != nil {
			return nil, err
		}
		return applyModifiers(ref, t), nil
	}
	if t, ok := s.decls[name]; ok {
		return applyModifiers(ref, t), nil
	}
	t, err := s.parent.ResolveTypeReference(ref)
	if err != nil {
		return nil, s.attribute(err)
	}
	return t, nil
}

func (s *ModuleScope) attribute(err error) error {
	if _, ok := err.(*SourceError); ok || s.mod.Filename == "" {
		return err
	}
	if ce, ok := err.(Error); ok {
		return &SourceError{Filename: s.mod.Filename, Err: ce}
	}
	return err
}

// ComponentScope binds a component's props as values.
type ComponentScope struct {
	parent Scope
	decl   *ast.ComponentDecl
}

func NewComponentScope(decl *ast.ComponentDecl, parent Scope) *ComponentScope {
	return &ComponentScope{parent: parent, decl: decl}
}

func (s *ComponentScope) LookupTypeFor(name string) (types.Type, error) {
	if p := s.decl.Prop(name); p != nil {
		return s.parent.ResolveTypeReference(p.Type)
	}
	return s.parent.LookupTypeFor(name)
}

func (s *ComponentScope) ResolveTypeReference(ref *ast.TypeRef) (types.Type, error) {
	return s.parent.ResolveTypeReference(ref)
}

// BranchScope carries the bindings narrowed for one branch of a condition.
type BranchScope struct {
	parent   Scope
	narrowed NarrowedTypes
}

// NewBranchScope narrows parent for the branch taken when cond evaluates to
// truthy.
func NewBranchScope(parent Scope, cond ast.Expr, truthy bool) *BranchScope {
	return &BranchScope{parent: parent, narrowed: Narrow(cond, truthy, parent)}
}

// Narrowed returns a copy of the overrides the scope applies.
func (s *BranchScope) Narrowed() NarrowedTypes { return maps.Clone(s.narrowed) }

func (s *BranchScope) LookupTypeFor(name string) (types.Type, error) {
	if t, ok := s.narrowed[name]; ok {
		return t, nil
	}
	return s.parent.LookupTypeFor(name)
}

func (s *BranchScope) ResolveTypeReference(ref *ast.TypeRef) (types.Type, error) {
	return s.parent.ResolveTypeReference(ref)
}
