package interpreter

import (
	"github.com/csml-dev/csml-engine/internal/ast"
	"github.com/csml-dev/csml-engine/internal/primitive"
	"github.com/csml-dev/csml-engine/internal/rerr"
)

func (it *Interpreter) evalUnary(u *ast.UnaryExpr) (primitive.Value, error) {
	v, err := it.eval(u.Expr)
	if err != nil {
		return nil, err
	}
	switch u.Op {
	case "!":
		return primitive.Bool(!primitive.Truthy(v)), nil
	case "-":
		switch n := v.(type) {
		case primitive.Int:
			if n == primitive.Int(int64(^uint64(0)>>1))*-1-1 {
				return nil, rerr.New(u.Span(), rerr.CategoryOverflow, "negation overflows int64")
			}
			return -n, nil
		case primitive.Float:
			return -n, nil
		default:
			return nil, rerr.New(u.Span(), rerr.CategoryIllegalOperation, "cannot negate %s", v.Kind())
		}
	default:
		return nil, rerr.New(u.Span(), rerr.CategoryBadArgument, "unknown unary operator %q", u.Op)
	}
}

func (it *Interpreter) evalBinary(b *ast.BinaryExpr) (primitive.Value, error) {
	switch b.Op {
	case "&&":
		left, err := it.eval(b.Left)
		if err != nil {
			return nil, err
		}
		if !primitive.Truthy(left) {
			return primitive.Bool(false), nil
		}
		right, err := it.eval(b.Right)
		if err != nil {
			return nil, err
		}
		return primitive.Bool(primitive.Truthy(right)), nil
	case "||":
		left, err := it.eval(b.Left)
		if err != nil {
			return nil, err
		}
		if primitive.Truthy(left) {
			return primitive.Bool(true), nil
		}
		right, err := it.eval(b.Right)
		if err != nil {
			return nil, err
		}
		return primitive.Bool(primitive.Truthy(right)), nil
	case "??":
		left, err := it.eval(b.Left)
		if err != nil {
			return nil, err
		}
		if _, isNull := left.(primitive.Null); !isNull {
			return left, nil
		}
		return it.eval(b.Right)
	}

	left, err := it.eval(b.Left)
	if err != nil {
		return nil, err
	}
	right, err := it.eval(b.Right)
	if err != nil {
		return nil, err
	}

	switch b.Op {
	case "+", "-", "*", "/", "%":
		return primitive.Arithmetic(primitive.Op(b.Op), left, right, b.Span())
	case "==":
		return primitive.Bool(primitive.Equal(left, right)), nil
	case "!=":
		return primitive.Bool(!primitive.Equal(left, right)), nil
	case ">", ">=", "<", "<=":
		return compareValues(b.Op, left, right), nil
	default:
		return nil, rerr.New(b.Span(), rerr.CategoryBadArgument, "unknown binary operator %q", b.Op)
	}
}

// compareValues implements spec §4.4 ordering: incomparable pairs (no
// defined `<`, e.g. objects, or cross-variant pairs outside the numeric
// coercion rule) evaluate `>`/`<` to false rather than erroring.
func compareValues(op string, left, right primitive.Value) primitive.Value {
	less, ok := primitive.Less(left, right)
	if !ok {
		return primitive.Bool(false)
	}
	switch op {
	case "<":
		return primitive.Bool(less)
	case ">":
		greater, _ := primitive.Less(right, left)
		return primitive.Bool(greater)
	case "<=":
		return primitive.Bool(less || primitive.Equal(left, right))
	case ">=":
		greater, _ := primitive.Less(right, left)
		return primitive.Bool(greater || primitive.Equal(left, right))
	default:
		return primitive.Bool(false)
	}
}

func (it *Interpreter) evalTernary(t *ast.TernaryExpr) (primitive.Value, error) {
	cond, err := it.eval(t.Cond)
	if err != nil {
		return nil, err
	}
	if primitive.Truthy(cond) {
		return it.eval(t.Then)
	}
	return it.eval(t.Else)
}

func (it *Interpreter) evalAssign(a *ast.AssignExpr) (primitive.Value, error) {
	v, err := it.eval(a.Value)
	if err != nil {
		return nil, err
	}
	if err := it.assignTo(a.Target, v); err != nil {
		return nil, err
	}
	return v, nil
}

// assignTo writes v to target, which the parser guarantees is an Ident,
// PathExpr, or IndexExpr (parser.isAssignTarget).
func (it *Interpreter) assignTo(target ast.Expression, v primitive.Value) error {
	switch t := target.(type) {
	case *ast.Ident:
		it.Scopes.Assign(t.Name, v)
		return nil
	case *ast.PathExpr:
		base, err := it.eval(t.Base)
		if err != nil {
			return err
		}
		obj, ok := base.(*primitive.Object)
		if !ok {
			return rerr.New(t.Span(), rerr.CategoryBadArgument, "cannot assign field %q on %s", t.Field, base.Kind())
		}
		obj.Set(t.Field, v)
		return nil
	case *ast.IndexExpr:
		base, err := it.eval(t.Base)
		if err != nil {
			return err
		}
		index, err := it.eval(t.Index)
		if err != nil {
			return err
		}
		return assignIndex(base, index, v, t)
	default:
		return rerr.New(target.Span(), rerr.CategoryBadArgument, "invalid assignment target")
	}
}

func assignIndex(base, index, v primitive.Value, ivExpr ast.Expression) error {
	switch b := base.(type) {
	case *primitive.Array:
		i, ok := index.(primitive.Int)
		if !ok {
			return rerr.New(ivExpr.Span(), rerr.CategoryBadArgument, "array index must be int, got %s", index.Kind())
		}
		if int(i) < 0 || int(i) >= len(b.Items) {
			return rerr.New(ivExpr.Span(), rerr.CategoryIndexOutOfRange, "index %d out of range for array of length %d", i, len(b.Items))
		}
		b.Items[i] = v
		return nil
	case *primitive.Object:
		key, ok := index.(primitive.Str)
		if !ok {
			return rerr.New(ivExpr.Span(), rerr.CategoryBadArgument, "object index must be string, got %s", index.Kind())
		}
		b.Set(string(key), v)
		return nil
	default:
		return rerr.New(ivExpr.Span(), rerr.CategoryBadArgument, "cannot index-assign into %s", base.Kind())
	}
}
