package check

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
	"github.com/smasher164/cdl/ast"
	"github.com/smasher164/cdl/lexer"
	"github.com/smasher164/cdl/types"
)

// ResolveTypeOf returns the type of expr in scope.
func ResolveTypeOf(expr ast.Expr, scope Scope) (types.Type, error) {
	return new(resolver).resolve(expr, scope)
}

// resolver walks one expression. If types is non-nil, the type of every
// subexpression resolved is recorded there.
type resolver struct {
	types map[ast.Expr]types.Type
}

func (r *resolver) resolve(expr ast.Expr, scope Scope) (types.Type, error) {
	t, err := r.resolveExpr(expr, scope)
	if err != nil {
		return nil, err
	}
	if r.types != nil {
		r.types[expr] = t
	}
	return t, nil
}

func (r *resolver) resolveExpr(expr ast.Expr, scope Scope) (types.Type, error) {
	switch x := expr.(type) {
	case *ast.BoolLit:
		return types.Boolean, nil
	case *ast.NumberLit:
		return types.Number, nil
	case *ast.StringLit:
		return types.String, nil
	case *ast.NullLit:
		return types.Null, nil
	case *ast.TemplateLit:
		for _, e := range x.Exprs {
			if _, err := r.resolve(e, scope); err != nil {
				return nil, err
			}
		}
		return types.String, nil
	case *ast.Ident:
		return r.resolveIdent(x, scope)
	case *ast.AccessExpr:
		return r.resolveAccess(x, scope)
	case *ast.BinaryExpr:
		return r.resolveBinary(x, scope)
	case *ast.UnaryExpr:
		if _, err := r.resolve(x.X, scope); err != nil {
			return nil, err
		}
		switch x.Op.Type {
		case lexer.Not:
			return types.Boolean, nil
		case lexer.Minus:
			return types.Number, nil
		}
	case *ast.TernaryExpr:
		return r.resolveTernary(x, scope)
	case *ast.MatchExpr:
		return r.resolveMatch(x, scope)
	}
	panic(fmt.Sprintf("unreachable: %T", expr))
}

// resolveIdent looks name up as a value. An enum name in value position
// has the enum's static type.
func (r *resolver) resolveIdent(x *ast.Ident, scope Scope) (types.Type, error) {
	t, err := scope.LookupTypeFor(x.String())
	if err != nil {
		return nil, err
	}
	if t != nil {
		return t, nil
	}
	t, err = scope.ResolveTypeReference(&ast.TypeRef{Name: x})
	var unknown *UnknownTypeError
	switch {
	case errors.As(err, &unknown):
	case err != nil:
		return nil, err
	default:
		if e, ok := t.(*types.Enum); ok {
			return e.Static(), nil
		}
	}
	return nil, &UnknownIdentifierError{Name: x.String(), Span: x.Span()}
}

// resolveAccess handles both . and ?. alike: optional chaining does not
// add null to the result.
func (r *resolver) resolveAccess(x *ast.AccessExpr, scope Scope) (types.Type, error) {
	lhs, err := r.resolve(x.X, scope)
	if err != nil {
		return nil, err
	}
	key := x.Key.String()
	switch t := lhs.(type) {
	case types.EnumStatic:
		if c := t.Enum.Case(key); c != nil {
			return c, nil
		}
		return nil, &AccessError{Kind: UnknownMember, Type: t.Enum, Name: key, Span: x.Key.Span()}
	case *types.Struct:
		pt, ok, err := t.Property(key)
		if err != nil {
			return nil, err
		}
		if ok {
			return pt, nil
		}
		return nil, &AccessError{Kind: UnknownProperty, Type: t, Name: key, Span: x.Key.Span()}
	}
	return nil, &AccessError{Kind: CannotAccess, Type: lhs, Name: key, Span: x.Span()}
}

func (r *resolver) resolveBinary(x *ast.BinaryExpr, scope Scope) (types.Type, error) {
	left, err := r.resolve(x.Left, scope)
	if err != nil {
		return nil, err
	}
	right, err := r.resolve(x.Right, scope)
	if err != nil {
		return nil, err
	}
	if x.Op.IsLogical() {
		return types.NewUnion(left, right), nil
	}
	return types.Boolean, nil
}

func (r *resolver) resolveTernary(x *ast.TernaryExpr, scope Scope) (types.Type, error) {
	if _, err := r.resolve(x.Cond, scope); err != nil {
		return nil, err
	}
	if lit, ok := x.Cond.(*ast.BoolLit); ok {
		if lit.Value {
			return r.resolve(x.Then, scope)
		}
		return r.resolve(x.Else, scope)
	}
	then, err := r.resolve(x.Then, NewBranchScope(scope, x.Cond, true))
	if err != nil {
		return nil, err
	}
	els, err := r.resolve(x.Else, NewBranchScope(scope, x.Cond, false))
	if err != nil {
		return nil, err
	}
	return types.NewUnion(then, els), nil
}

func (r *resolver) resolveMatch(x *ast.MatchExpr, scope Scope) (types.Type, error) {
	subject, err := r.resolve(x.Subject, scope)
	if err != nil {
		return nil, err
	}
	if lit, ok := x.Subject.(*ast.BoolLit); ok {
		arm, ok := lo.Find(x.Arms, func(arm *ast.MatchArm) bool {
			p, ok := arm.Pattern.(*ast.BoolLit)
			return ok && p.Value == lit.Value
		})
		if !ok {
			return nil, &MatchError{Kind: Incomplete, Subject: subject, Span: x.Span()}
		}
		return r.resolve(arm.Body, scope)
	}
	var enum *types.Enum
	switch t := subject.(type) {
	case *types.Enum:
		enum = t
	case *types.EnumCase:
		enum = t.Enum
	default:
		return nil, &MatchError{Kind: Unhandled, Subject: subject, Span: x.Subject.Span()}
	}
	arms := make([]types.Type, 0, len(x.Arms))
	for _, arm := range x.Arms {
		if err := checkEnumPattern(arm.Pattern, enum); err != nil {
			return nil, err
		}
		t, err := r.resolve(arm.Body, scope)
		if err != nil {
			return nil, err
		}
		arms = append(arms, t)
	}
	return types.NewUnion(arms...), nil
}

// checkEnumPattern reports whether p can match a case of enum. Exhaustiveness
// is not checked.
func checkEnumPattern(p ast.Pattern, enum *types.Enum) error {
	var key *ast.Ident
	switch p := p.(type) {
	case *ast.DefaultPattern:
		return nil
	case *ast.Ident:
		key = p
	case *ast.AccessExpr:
		if id, ok := p.X.(*ast.Ident); !ok || id.String() != enum.Name() {
			return &MatchError{Kind: BadPattern, Subject: enum, Span: p.Span()}
		}
		key = p.Key
	default:
		return &MatchError{Kind: BadPattern, Subject: enum, Span: p.Span()}
	}
	if enum.Case(key.String()) == nil {
		return &AccessError{Kind: UnknownMember, Type: enum, Name: key.String(), Span: key.Span()}
	}
	return nil
}
