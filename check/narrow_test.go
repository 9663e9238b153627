package check_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/smasher164/cdl/ast"
	"github.com/smasher164/cdl/check"
	"github.com/smasher164/cdl/parser"
	"github.com/smasher164/cdl/types"
)

// stubScope binds a fixed set of identifiers and resolves only built-in
// type names.
type stubScope map[string]types.Type

func (s stubScope) LookupTypeFor(name string) (types.Type, error) { return s[name], nil }

func (s stubScope) ResolveTypeReference(ref *ast.TypeRef) (types.Type, error) {
	return check.Universe.ResolveTypeReference(ref)
}

var narrowScope = stubScope{
	"x":   types.Optional(types.String),
	"y":   types.Optional(types.Number),
	"s":   types.String,
	"nil": types.Null,
}

func narrowedStrings(nt check.NarrowedTypes) map[string]string {
	m := make(map[string]string, len(nt))
	for k, v := range nt {
		m[k] = v.String()
	}
	return m
}

func TestNarrow(t *testing.T) {
	tests := []struct {
		src           string
		truthy, falsy map[string]string
	}{
		{`x`, map[string]string{"x": "string"}, map[string]string{"x": "null"}},
		{`y`, map[string]string{"y": "number"}, map[string]string{"y": "null"}},
		{`x === null`, map[string]string{"x": "null"}, map[string]string{"x": "string"}},
		{`null === x`, map[string]string{"x": "null"}, map[string]string{"x": "string"}},
		{`x !== null`, map[string]string{"x": "string"}, map[string]string{"x": "null"}},
		{`null !== x`, map[string]string{"x": "string"}, map[string]string{"x": "null"}},
		{`x === nil`, map[string]string{"x": "null"}, map[string]string{"x": "string"}},
		{`nil !== y`, map[string]string{"y": "number"}, map[string]string{"y": "null"}},
		{`true === (x === null)`, map[string]string{"x": "null"}, map[string]string{"x": "string"}},
		{`false === (x === null)`, map[string]string{"x": "string"}, map[string]string{"x": "null"}},
		{`(x !== null) === false`, map[string]string{"x": "null"}, map[string]string{"x": "string"}},
		{`false !== (x === null)`, map[string]string{"x": "null"}, map[string]string{"x": "string"}},
		{`true !== (x === null)`, map[string]string{"x": "string"}, map[string]string{"x": "null"}},
		{`(null === y) !== true`, map[string]string{"y": "number"}, map[string]string{"y": "null"}},
		{`true === (false === (x === null))`, map[string]string{"x": "string"}, map[string]string{"x": "null"}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			cond, err := parser.ParseExpr(tt.src)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.truthy, narrowedStrings(check.Narrow(cond, true, narrowScope))); diff != "" {
				t.Errorf("truthy mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.falsy, narrowedStrings(check.Narrow(cond, false, narrowScope))); diff != "" {
				t.Errorf("falsy mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNarrowUnrecognized(t *testing.T) {
	for _, src := range []string{
		`s`,
		`nil`,
		`missing`,
		`s === null`,
		`missing === null`,
		`x === true`,
		`true === x`,
		`x === "a"`,
		`x === s`,
		`x === y`,
		`null === null`,
		`y < 1`,
		`x && y`,
		`!x`,
		`x.foo === null`,
		`x ? x : null`,
		`true === (x < 1)`,
		`true`,
		`"x"`,
		`match (x) { default -> 1 }`,
	} {
		t.Run(src, func(t *testing.T) {
			cond, err := parser.ParseExpr(src)
			if err != nil {
				t.Fatal(err)
			}
			for _, truthy := range []bool{true, false} {
				if got := check.Narrow(cond, truthy, narrowScope); len(got) != 0 {
					t.Errorf("Narrow(%t) = %v, want no narrowing", truthy, narrowedStrings(got))
				}
			}
		})
	}
}

func TestNarrowNeverWidens(t *testing.T) {
	for _, src := range []string{`x`, `x === null`, `x !== null`, `true === (x === null)`} {
		cond, err := parser.ParseExpr(src)
		if err != nil {
			t.Fatal(err)
		}
		for _, truthy := range []bool{true, false} {
			for name, typ := range check.Narrow(cond, truthy, narrowScope) {
				declared := narrowScope[name]
				if !types.AssignableTo(typ, declared) {
					t.Errorf("%s: %s narrowed to %s, wider than %s", src, name, typ, declared)
				}
			}
		}
	}
}
