package check

import (
	"github.com/smasher164/cdl/ast"
	"github.com/smasher164/cdl/lexer"
	"github.com/smasher164/cdl/types"
)

// NarrowedTypes maps identifiers to the types they are known to have within
// one branch of a condition.
type NarrowedTypes map[string]types.Type

// Narrow computes the bindings that hold when cond evaluates to truthy.
// It recognizes:
//
//	x                    truthiness of a nullable identifier
//	x === null, null !== x, ...
//	true === (x === null), (x !== null) === false, ...
//
// Any other shape narrows nothing. Narrow never fails; a binding that cannot
// be looked up is simply not narrowed.
func Narrow(cond ast.Expr, truthy bool, scope Scope) NarrowedTypes {
	switch cond := cond.(type) {
	case *ast.Ident:
		if u := nullable(cond, scope); u != nil {
			if truthy {
				return NarrowedTypes{cond.String(): u.WithoutNull()}
			}
			return NarrowedTypes{cond.String(): types.Null}
		}
	case *ast.BinaryExpr:
		return narrowComparison(cond, truthy, scope)
	}
	return NarrowedTypes{}
}

func narrowComparison(cond *ast.BinaryExpr, truthy bool, scope Scope) NarrowedTypes {
	if !cond.Op.IsEquality() {
		return NarrowedTypes{}
	}
	equal := cond.Op.Type == lexer.StrictEquals
	for _, operands := range [2][2]ast.Expr{{cond.Left, cond.Right}, {cond.Right, cond.Left}} {
		x, other := operands[0], operands[1]
		if id, ok := x.(*ast.Ident); ok && isNullOperand(other, scope) {
			u := nullable(id, scope)
			if u == nil {
				return NarrowedTypes{}
			}
			if equal == truthy {
				return NarrowedTypes{id.String(): types.Null}
			}
			return NarrowedTypes{id.String(): u.WithoutNull()}
		}
	}
	for _, operands := range [2][2]ast.Expr{{cond.Left, cond.Right}, {cond.Right, cond.Left}} {
		lit, ok := operands[0].(*ast.BoolLit)
		if !ok {
			continue
		}
		inner, ok := operands[1].(*ast.BinaryExpr)
		if !ok {
			return NarrowedTypes{}
		}
		// true === c and false !== c hold exactly when c does.
		if lit.Value != equal {
			truthy = !truthy
		}
		return narrowComparison(inner, truthy, scope)
	}
	return NarrowedTypes{}
}

// nullable returns the declared type of id if it is a union with a null
// member.
func nullable(id *ast.Ident, scope Scope) *types.Union {
	t, err := scope.LookupTypeFor(id.String())
	if err != nil || t == nil {
		return nil
	}
	if u, ok := t.(*types.Union); ok && u.ContainsNull() {
		return u
	}
	return nil
}

// isNullOperand reports whether x is the null literal or an identifier
// declared exactly as null.
func isNullOperand(x ast.Expr, scope Scope) bool {
	switch x := x.(type) {
	case *ast.NullLit:
		return true
	case *ast.Ident:
		t, err := scope.LookupTypeFor(x.String())
		return err == nil && t == types.Null
	}
	return false
}
