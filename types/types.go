package types

import (
	"fmt"
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/smasher164/cdl/ast"
)

// Type is the static type of an expression. The set of implementations is
// closed: only types in this package satisfy it.
type Type interface {
	// Is reports whether the two types are congruent.
	Is(Type) bool
	String() string
	// key is a canonical spelling used to order and intern union members.
	key() string
}

var (
	_ Type = (*Basic)(nil)
	_ Type = (*Struct)(nil)
	_ Type = (*Component)(nil)
	_ Type = (*Enum)(nil)
	_ Type = EnumStatic{}
	_ Type = (*EnumCase)(nil)
	_ Type = (*Array)(nil)
	_ Type = (*Union)(nil)
)

// TypeResolver resolves the type references that appear in struct and
// component property lists. It is satisfied by the scopes in package check.
type TypeResolver interface {
	ResolveTypeReference(ref *ast.TypeRef) (Type, error)
}

// Basic is a built-in atomic type. Instances are interned, so pointer
// identity is equality.
type Basic struct {
	name string
}

var basics struct {
	sync.Mutex
	m map[string]*Basic
}

func intern(name string) *Basic {
	basics.Lock()
	defer basics.Unlock()
	if b, ok := basics.m[name]; ok {
		return b
	}
	if basics.m == nil {
		basics.m = make(map[string]*Basic)
	}
	b := &Basic{name: name}
	basics.m[name] = b
	return b
}

var (
	String  = intern("string")
	Number  = intern("number")
	Boolean = intern("boolean")
	Null    = intern("null")
	Slot    = intern("slot")
)

// Builtin returns the built-in type spelled name in source, if any.
// Null has no source spelling.
func Builtin(name string) (*Basic, bool) {
	switch name {
	case "string", "number", "boolean", "slot":
		return intern(name), true
	}
	return nil, false
}

func (b *Basic) Is(t Type) bool {
	if u, ok := t.(*Union); ok {
		return u.Is(b)
	}
	return b == t
}

func (b *Basic) String() string { return b.name }

func (b *Basic) key() string { return b.name }

// Property is a declared member of a struct or component. Its type is
// resolved on demand.
type Property struct {
	Name string
	Ref  *ast.TypeRef
}

type object struct {
	module string
	name   string
	props  []Property
	scope  TypeResolver
}

func newObject(module, name string, props []Property, scope TypeResolver) object {
	return object{module: module, name: name, props: props, scope: scope}
}

func (o *object) qualified() string {
	if o.module == "" {
		return o.name
	}
	return o.module + "." + o.name
}

func (o *object) lookup(name string) (Property, bool) {
	return lo.Find(o.props, func(p Property) bool { return p.Name == name })
}

func (o *object) property(name string) (Type, bool, error) {
	p, ok := o.lookup(name)
	if !ok {
		return nil, false, nil
	}
	t, err := o.scope.ResolveTypeReference(p.Ref)
	if err != nil {
		return nil, true, err
	}
	return t, true, nil
}

// Struct is a named record type.
type Struct struct {
	object
}

// NewStruct creates the struct name declared in module. Property references
// are resolved lazily against scope.
func NewStruct(module, name string, props []Property, scope TypeResolver) *Struct {
	return &Struct{newObject(module, name, props, scope)}
}

func (s *Struct) Name() string { return s.name }

// QualifiedName is the name prefixed by the declaring module's path.
func (s *Struct) QualifiedName() string { return s.qualified() }

func (s *Struct) Props() []Property { return s.props }

// Property resolves the type of the named property. ok is false when the
// struct has no such property.
func (s *Struct) Property(name string) (t Type, ok bool, err error) {
	return s.property(name)
}

func (s *Struct) Is(t Type) bool {
	switch t := t.(type) {
	case *Struct:
		return s == t || s.qualified() == t.qualified()
	case *Union:
		return t.Is(s)
	}
	return false
}

func (s *Struct) String() string { return s.name }

func (s *Struct) key() string { return "struct " + s.qualified() }

// Component is the type of a component declaration. Values of this type are
// rendered rather than stringified.
type Component struct {
	object
}

func NewComponent(module, name string, props []Property, scope TypeResolver) *Component {
	return &Component{newObject(module, name, props, scope)}
}

func (c *Component) Name() string { return c.name }

func (c *Component) QualifiedName() string { return c.qualified() }

func (c *Component) Props() []Property { return c.props }

func (c *Component) Property(name string) (t Type, ok bool, err error) {
	return c.property(name)
}

func (c *Component) Is(t Type) bool {
	switch t := t.(type) {
	case *Component:
		return c == t || c.qualified() == t.qualified()
	case *Union:
		return t.Is(c)
	}
	return false
}

func (c *Component) String() string { return c.name }

func (c *Component) key() string { return "component " + c.qualified() }

// Enum is the instance type of an enum: a value holding one of its cases.
type Enum struct {
	module string
	name   string
	cases  []*EnumCase
}

// CaseDef describes one case of an enum under construction.
type CaseDef struct {
	Name string
	// Backing is String or Number. nil means String.
	Backing *Basic
}

// NewEnum creates the enum name declared in module. Case names must be
// unique.
func NewEnum(module, name string, cases []CaseDef) *Enum {
	e := &Enum{module: module, name: name}
	e.cases = lo.Map(cases, func(c CaseDef, _ int) *EnumCase {
		backing := c.Backing
		if backing == nil {
			backing = String
		}
		if backing != String && backing != Number {
			panic(fmt.Sprintf("enum case %s.%s backed by %s", name, c.Name, backing))
		}
		return &EnumCase{Enum: e, Name: c.Name, Backing: backing}
	})
	return e
}

func (e *Enum) Name() string { return e.name }

func (e *Enum) QualifiedName() string {
	if e.module == "" {
		return e.name
	}
	return e.module + "." + e.name
}

func (e *Enum) Cases() []*EnumCase { return e.cases }

// Case returns the case with the given name, or nil.
func (e *Enum) Case(name string) *EnumCase {
	c, _ := lo.Find(e.cases, func(c *EnumCase) bool { return c.Name == name })
	return c
}

// Static returns the type of the enum's name used as a value.
func (e *Enum) Static() EnumStatic { return EnumStatic{e} }

func (e *Enum) Is(t Type) bool {
	switch t := t.(type) {
	case *Enum:
		return e == t || e.QualifiedName() == t.QualifiedName()
	case *Union:
		return t.Is(e)
	}
	return false
}

func (e *Enum) String() string { return e.name }

func (e *Enum) key() string { return "enum " + e.QualifiedName() }

// EnumStatic is the type of an enum's name in value position, e.g. Size in
// Size.Small. Accessing it yields a case.
type EnumStatic struct {
	Enum *Enum
}

func (s EnumStatic) Is(t Type) bool {
	switch t := t.(type) {
	case EnumStatic:
		return s.Enum.Is(t.Enum)
	case *Union:
		return t.Is(s)
	}
	return false
}

func (s EnumStatic) String() string { return "typeof " + s.Enum.name }

func (s EnumStatic) key() string { return "static " + s.Enum.QualifiedName() }

// EnumCase is the member form of an enum: one named case with its backing
// literal type.
type EnumCase struct {
	Enum    *Enum
	Name    string
	Backing *Basic
}

func (c *EnumCase) Is(t Type) bool {
	switch t := t.(type) {
	case *EnumCase:
		return c == t || c.Name == t.Name && c.Enum.Is(t.Enum)
	case *Union:
		return t.Is(c)
	}
	return false
}

func (c *EnumCase) String() string { return c.Enum.name + "." + c.Name }

func (c *EnumCase) key() string { return "case " + c.Enum.QualifiedName() + "." + c.Name }

// Array is a homogeneous list type.
type Array struct {
	Elem Type
}

var arrays struct {
	sync.Mutex
	m map[Type]*Array
}

// NewArray returns the array of elem. Arrays of the same element value are
// the same *Array.
func NewArray(elem Type) *Array {
	arrays.Lock()
	defer arrays.Unlock()
	if a, ok := arrays.m[elem]; ok {
		return a
	}
	if arrays.m == nil {
		arrays.m = make(map[Type]*Array)
	}
	a := &Array{Elem: elem}
	arrays.m[elem] = a
	return a
}

func (a *Array) Is(t Type) bool {
	switch t := t.(type) {
	case *Array:
		return a.Elem.Is(t.Elem)
	case *Union:
		return t.Is(a)
	}
	return false
}

func (a *Array) String() string {
	if _, ok := a.Elem.(*Union); ok {
		return "(" + a.Elem.String() + ")[]"
	}
	return a.Elem.String() + "[]"
}

func (a *Array) key() string { return "[]" + a.Elem.key() }

// IsRenderable reports whether values of t are rendered as markup rather
// than converted to text.
func IsRenderable(t Type) bool {
	switch t.(type) {
	case *Component:
		return true
	}
	return t == Slot
}

// AssignableTo reports whether a value of type src may be used where dst is
// expected: the types are congruent, every member of src is congruent to a
// member of dst, or src is a case of the enum dst.
func AssignableTo(src, dst Type) bool {
	if src.Is(dst) {
		return true
	}
	for _, m := range Members(src) {
		if !lo.SomeBy(Members(dst), func(d Type) bool { return assignableMember(m, d) }) {
			return false
		}
	}
	return true
}

func assignableMember(src, dst Type) bool {
	if src.Is(dst) {
		return true
	}
	if c, ok := src.(*EnumCase); ok {
		if e, ok := dst.(*Enum); ok {
			return c.Enum.Is(e)
		}
	}
	if a, ok := src.(*Array); ok {
		if b, ok := dst.(*Array); ok {
			return AssignableTo(a.Elem, b.Elem)
		}
	}
	return false
}

func joinStrings(ts []Type, sep string) string {
	return strings.Join(lo.Map(ts, func(t Type, _ int) string { return t.String() }), sep)
}
