package check_test

import (
	"errors"
	"testing"

	"github.com/smasher164/cdl/ast"
	"github.com/smasher164/cdl/check"
	"github.com/smasher164/cdl/fsx"
	"github.com/smasher164/cdl/parser"
	"github.com/smasher164/cdl/types"
)

const resolveSrc = `
	struct User {
		name: string
		email: string?
		tags: string[]
	}

	enum Size { Small Large = "lg" }

	enum Level { Low = 1 High = 2 }

	enum SomeEnum { A B C }

	component Card(user: User, size: Size, title: string?, count: number, items: User[]) {}

	component Test(
		nullableString: string?,
		someString: string,
		numberVar: number,
		stringVar: string,
		boolVar: boolean,
		someEnumValue: SomeEnum,
	) {}
`

func parseModule(t *testing.T, path, src string) *ast.Module {
	t.Helper()
	mod, err := parser.ParseSource(path, fsx.Dedent(src))
	if err != nil {
		t.Fatal(err)
	}
	return mod
}

func componentScope(t *testing.T, mod *ast.Module, name string) check.Scope {
	t.Helper()
	decl, ok := mod.Decl(name).(*ast.ComponentDecl)
	if !ok {
		t.Fatalf("no component %s", name)
	}
	return check.NewComponentScope(decl, check.NewModuleScope(mod, nil, check.Universe))
}

func resolve(t *testing.T, src string, scope check.Scope) (types.Type, error) {
	t.Helper()
	x, err := parser.ParseExpr(src)
	if err != nil {
		t.Fatalf("ParseExpr(%q): %v", src, err)
	}
	return check.ResolveTypeOf(x, scope)
}

func TestScenarios(t *testing.T) {
	scope := componentScope(t, parseModule(t, "test", resolveSrc), "Test")

	t.Run("A", func(t *testing.T) {
		typ, err := resolve(t, `true ? 42 : "foo"`, scope)
		if err != nil {
			t.Fatal(err)
		}
		if typ != types.Number {
			t.Errorf("got %s, want number", typ)
		}
	})

	t.Run("B", func(t *testing.T) {
		typ, err := resolve(t, `1 < 2 ? 42 : "foo"`, scope)
		if err != nil {
			t.Fatal(err)
		}
		if want := types.NewUnion(types.Number, types.String); !typ.Is(want) {
			t.Errorf("got %s, want %s", typ, want)
		}
	})

	t.Run("C", func(t *testing.T) {
		x, err := parser.ParseExpr(`nullableString === null ? "is null" : "is not null"`)
		if err != nil {
			t.Fatal(err)
		}
		cond := x.(*ast.TernaryExpr).Cond
		for _, tt := range []struct {
			truthy bool
			want   types.Type
		}{
			{true, types.Null},
			{false, types.String},
		} {
			got, err := check.NewBranchScope(scope, cond, tt.truthy).LookupTypeFor("nullableString")
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("branch %t: nullableString is %s, want %s", tt.truthy, got, tt.want)
			}
		}
		typ, err := check.ResolveTypeOf(x, scope)
		if err != nil {
			t.Fatal(err)
		}
		if typ != types.String {
			t.Errorf("got %s, want string", typ)
		}
	})

	t.Run("D", func(t *testing.T) {
		typ, err := resolve(t, `match (someEnumValue) { A -> numberVar B -> stringVar C -> boolVar }`, scope)
		if err != nil {
			t.Fatal(err)
		}
		if want := types.NewUnion(types.Number, types.String, types.Boolean); !typ.Is(want) {
			t.Errorf("got %s, want %s", typ, want)
		}
	})

	t.Run("E", func(t *testing.T) {
		_, err := resolve(t, `someString.bar`, scope)
		var aerr *check.AccessError
		if !errors.As(err, &aerr) {
			t.Fatalf("got %v, want an access error", err)
		}
		if aerr.Kind != check.CannotAccess || aerr.Type != types.String || aerr.Name != "bar" {
			t.Errorf("got %+v", aerr)
		}
	})
}

func TestResolveTypeOf(t *testing.T) {
	scope := componentScope(t, parseModule(t, "test", resolveSrc), "Card")
	tests := []struct {
		src  string
		want string
	}{
		{`"a"`, "string"},
		{`1.5`, "number"},
		{`1_000`, "number"},
		{`null`, "null"},
		{`true`, "boolean"},
		{"`hi ${title} and ${count}`", "string"},
		{`user`, "User"},
		{`user.name`, "string"},
		{`user.email`, "null | string"},
		{`user?.email`, "null | string"},
		{`user.tags`, "string[]"},
		{`items`, "User[]"},
		{`size`, "Size"},
		{`Size`, "typeof Size"},
		{`Size.Small`, "Size.Small"},
		{`Level.High`, "Level.High"},
		{`count < 3`, "boolean"},
		{`count >= 3 && title !== null`, "boolean"},
		{`title && count`, "null | number | string"},
		{`title || "untitled"`, "null | string"},
		{`!title`, "boolean"},
		{`-count`, "number"},
		{`title ? title : "untitled"`, "string"},
		{`title === null ? "none" : title`, "string"},
		{`title !== null ? title : null`, "null | string"},
		{`true === (title === null) ? title : "x"`, "null | string"},
		{`false ? count : title`, "null | string"},
		{`match (size) { Small -> 1 Large -> "big" }`, "number | string"},
		{`match (size) { Size.Small -> 1 default -> 2 }`, "number"},
		{`match (Size.Small) { Small -> 1 default -> true }`, "boolean | number"},
		{`match (true) { false -> 1 true -> "yes" }`, "string"},
		{`match (false) { default -> 1 false -> true }`, "boolean"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			typ, err := resolve(t, tt.src, scope)
			if err != nil {
				t.Fatal(err)
			}
			if typ.String() != tt.want {
				t.Errorf("got %s, want %s", typ, tt.want)
			}
		})
	}
}

func TestResolveTypeOfErrors(t *testing.T) {
	scope := componentScope(t, parseModule(t, "test", resolveSrc), "Card")
	unknownIdent := func(name string) func(t *testing.T, err error) {
		return func(t *testing.T, err error) {
			var e *check.UnknownIdentifierError
			if !errors.As(err, &e) || e.Name != name {
				t.Errorf("got %v, want unknown identifier %s", err, name)
			}
		}
	}
	access := func(kind check.AccessKind) func(t *testing.T, err error) {
		return func(t *testing.T, err error) {
			var e *check.AccessError
			if !errors.As(err, &e) || e.Kind != kind {
				t.Errorf("got %v, want access error of kind %d", err, kind)
			}
		}
	}
	match := func(kind check.MatchKind) func(t *testing.T, err error) {
		return func(t *testing.T, err error) {
			var e *check.MatchError
			if !errors.As(err, &e) || e.Kind != kind {
				t.Errorf("got %v, want match error of kind %d", err, kind)
			}
		}
	}
	tests := []struct {
		src   string
		check func(t *testing.T, err error)
	}{
		{`missing`, unknownIdent("missing")},
		{`User`, unknownIdent("User")},
		{"`a ${missing}`", unknownIdent("missing")},
		{`count < missing`, unknownIdent("missing")},
		{`missing ? 1 : 2`, unknownIdent("missing")},
		{`title ? missing : 2`, unknownIdent("missing")},
		{`user.age`, access(check.UnknownProperty)},
		{`Size.Medium`, access(check.UnknownMember)},
		{`count.foo`, access(check.CannotAccess)},
		{`size.Small`, access(check.CannotAccess)},
		{`user.name.length`, access(check.CannotAccess)},
		{`match (count) { default -> 1 }`, match(check.Unhandled)},
		{`match (title) { default -> 1 }`, match(check.Unhandled)},
		{`match (true) { false -> 1 }`, match(check.Incomplete)},
		{`match (true) { default -> 1 }`, match(check.Incomplete)},
		{`match (size) { Medium -> 1 }`, access(check.UnknownMember)},
		{`match (size) { true -> 1 }`, match(check.BadPattern)},
		{`match (size) { Level.Low -> 1 }`, match(check.BadPattern)},
		{`match (size) { Small -> missing }`, unknownIdent("missing")},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			typ, err := resolve(t, tt.src, scope)
			if err == nil {
				t.Fatalf("got %s, want an error", typ)
			}
			tt.check(t, err)
			var cerr check.Error
			if !errors.As(err, &cerr) || cerr.Pos().IsZero() {
				t.Errorf("error %v carries no position", err)
			}
		})
	}
}
