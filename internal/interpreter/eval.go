package interpreter

import (
	"strings"

	"github.com/csml-dev/csml-engine/internal/ast"
	"github.com/csml-dev/csml-engine/internal/primitive"
	"github.com/csml-dev/csml-engine/internal/rerr"
	"github.com/csml-dev/csml-engine/internal/source"
)

func (it *Interpreter) eval(e ast.Expression) (primitive.Value, error) {
	switch expr := e.(type) {
	case *ast.NullLit:
		return primitive.Nil, nil
	case *ast.BoolLit:
		return primitive.Bool(expr.Value), nil
	case *ast.IntLit:
		return primitive.Int(expr.Value), nil
	case *ast.FloatLit:
		return primitive.Float(expr.Value), nil
	case *ast.StringLit:
		return it.evalStringLit(expr)
	case *ast.ArrayLit:
		return it.evalArrayLit(expr)
	case *ast.ObjectLit:
		return it.evalObjectLit(expr)
	case *ast.ClosureLit:
		return &primitive.Closure{Params: expr.Params, Body: expr.Body, Env: it.Scopes.Snapshot()}, nil
	case *ast.Ident:
		return it.evalIdent(expr)
	case *ast.PathExpr:
		return it.evalPath(expr)
	case *ast.IndexExpr:
		return it.evalIndex(expr)
	case *ast.CallExpr:
		return it.evalCall(expr)
	case *ast.MethodCallExpr:
		return it.evalMethodCall(expr)
	case *ast.UnaryExpr:
		return it.evalUnary(expr)
	case *ast.BinaryExpr:
		return it.evalBinary(expr)
	case *ast.TernaryExpr:
		return it.evalTernary(expr)
	case *ast.AssignExpr:
		return it.evalAssign(expr)
	default:
		return nil, rerr.New(e.Span(), rerr.CategoryBadArgument, "unsupported expression")
	}
}

func (it *Interpreter) evalStringLit(lit *ast.StringLit) (primitive.Value, error) {
	var sb strings.Builder
	for _, part := range lit.Parts {
		if part.Expr == nil {
			sb.WriteString(part.Literal)
			continue
		}
		v, err := it.eval(part.Expr)
		if err != nil {
			return nil, err
		}
		sb.WriteString(v.Display())
	}
	return primitive.Str(sb.String()), nil
}

func (it *Interpreter) evalArrayLit(lit *ast.ArrayLit) (primitive.Value, error) {
	items := make([]primitive.Value, len(lit.Elements))
	for i, elem := range lit.Elements {
		v, err := it.eval(elem)
		if err != nil {
			return nil, err
		}
		items[i] = v
	}
	return primitive.NewArray(items...), nil
}

func (it *Interpreter) evalObjectLit(lit *ast.ObjectLit) (primitive.Value, error) {
	obj := primitive.NewObject()
	for i, key := range lit.Keys {
		v, err := it.eval(lit.Values[i])
		if err != nil {
			return nil, err
		}
		obj.Set(key, v)
	}
	return obj, nil
}

func (it *Interpreter) evalIdent(id *ast.Ident) (primitive.Value, error) {
	if v, ok := it.Scopes.Get(id.Name); ok {
		return v, nil
	}
	if fn := it.currentFlow().FnByName(id.Name); fn != nil {
		return &primitive.Closure{Name: fn.Name, Params: fn.Params, Body: fn.Body, Env: it.Scopes.Snapshot()}, nil
	}
	return nil, rerr.New(id.Span(), rerr.CategoryBadArgument, "undefined identifier %q", id.Name)
}

func (it *Interpreter) evalPath(p *ast.PathExpr) (primitive.Value, error) {
	base, err := it.eval(p.Base)
	if err != nil {
		return nil, err
	}
	return getField(base, p.Field, p.Span())
}

func getField(base primitive.Value, field string, iv source.Interval) (primitive.Value, error) {
	obj, ok := base.(*primitive.Object)
	if !ok {
		return nil, rerr.New(iv, rerr.CategoryBadArgument,
			"cannot access field %q on %s", field, base.Kind())
	}
	if v, ok := obj.Get(field); ok {
		return v, nil
	}
	return primitive.Nil, nil
}

func (it *Interpreter) evalIndex(ix *ast.IndexExpr) (primitive.Value, error) {
	base, err := it.eval(ix.Base)
	if err != nil {
		return nil, err
	}
	index, err := it.eval(ix.Index)
	if err != nil {
		return nil, err
	}
	return indexValue(base, index, ix.Span())
}
