package interpreter

import (
	"github.com/csml-dev/csml-engine/internal/ast"
	"github.com/csml-dev/csml-engine/internal/primitive"
	"github.com/csml-dev/csml-engine/internal/rerr"
	"github.com/csml-dev/csml-engine/internal/source"
)

// indexValue implements BASE[INDEX] for array, object, and string bases
// (spec §4.2 grammar; §4.4 does not name this operation directly, but
// C6's built-ins and S6's array scenarios require it).
func indexValue(base, index primitive.Value, iv source.Interval) (primitive.Value, error) {
	switch b := base.(type) {
	case *primitive.Array:
		i, ok := index.(primitive.Int)
		if !ok {
			return nil, rerr.New(iv, rerr.CategoryBadArgument, "array index must be int, got %s", index.Kind())
		}
		if int(i) < 0 || int(i) >= len(b.Items) {
			return nil, rerr.New(iv, rerr.CategoryIndexOutOfRange, "index %d out of range for array of length %d", i, len(b.Items))
		}
		return b.Items[i], nil
	case *primitive.Object:
		key, ok := index.(primitive.Str)
		if !ok {
			return nil, rerr.New(iv, rerr.CategoryBadArgument, "object index must be string, got %s", index.Kind())
		}
		if v, ok := b.Get(string(key)); ok {
			return v, nil
		}
		return primitive.Nil, nil
	case primitive.Str:
		i, ok := index.(primitive.Int)
		if !ok {
			return nil, rerr.New(iv, rerr.CategoryBadArgument, "string index must be int, got %s", index.Kind())
		}
		runes := []rune(string(b))
		if int(i) < 0 || int(i) >= len(runes) {
			return nil, rerr.New(iv, rerr.CategoryIndexOutOfRange, "index %d out of range for string of length %d", i, len(runes))
		}
		return primitive.Str(string(runes[i])), nil
	default:
		return nil, rerr.New(iv, rerr.CategoryBadArgument, "cannot index into %s", base.Kind())
	}
}

func (it *Interpreter) evalCall(call *ast.CallExpr) (primitive.Value, error) {
	args, err := it.evalArgs(call.Args)
	if err != nil {
		return nil, err
	}
	if id, ok := call.Callee.(*ast.Ident); ok {
		if v, ok := it.Scopes.Get(id.Name); ok {
			closure, ok := v.(*primitive.Closure)
			if !ok {
				return nil, rerr.New(call.Span(), rerr.CategoryBadArgument, "%q is not callable", id.Name)
			}
			return it.callClosure(closure, args, call.Span())
		}
		if fn := it.currentFlow().FnByName(id.Name); fn != nil {
			return it.callFn(fn, args, call.Span())
		}
		if builtin, ok := it.Builtins[id.Name]; ok {
			return builtin(args, call.Span())
		}
		return nil, rerr.New(call.Span(), rerr.CategoryBadArgument, "unknown function %q", id.Name)
	}
	callee, err := it.eval(call.Callee)
	if err != nil {
		return nil, err
	}
	closure, ok := callee.(*primitive.Closure)
	if !ok {
		return nil, rerr.New(call.Span(), rerr.CategoryBadArgument, "value of type %s is not callable", callee.Kind())
	}
	return it.callClosure(closure, args, call.Span())
}

func (it *Interpreter) evalArgs(exprs []ast.Expression) ([]primitive.Value, error) {
	args := make([]primitive.Value, len(exprs))
	for i, e := range exprs {
		v, err := it.eval(e)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

// callFn implements spec §4.5's "fn calls bind to parameter names in a
// fresh scope chained to the bot's global scope (not the caller's
// locals)": the fresh call shares the live outer (global) layer so a
// `remember` written before the call is visible inside it, but none of
// the caller's inner `use`-bound locals leak in.
func (it *Interpreter) callFn(fn *ast.FnStmt, args []primitive.Value, iv source.Interval) (primitive.Value, error) {
	if len(args) != len(fn.Params) {
		return nil, rerr.New(iv, rerr.CategoryBadArgument,
			"%s expects %d argument(s), got %d", fn.Name, len(fn.Params), len(args))
	}
	call := &Interpreter{
		Program:  it.Program,
		FlowName: it.FlowName,
		Scopes:   NewScopes(it.Scopes.layers[0]),
		Builtins: it.Builtins,
	}
	call.Scopes.Push()
	for i, param := range fn.Params {
		call.Scopes.BindLocal(param, args[i])
	}
	out := call.execBlock(fn.Body)
	it.MemoryWrites = append(it.MemoryWrites, call.MemoryWrites...)
	it.Messages = append(it.Messages, call.Messages...)
	switch out.Kind {
	case OutcomeReturn:
		return out.Return, nil
	case OutcomeError:
		return nil, out.Err
	default:
		return primitive.Nil, nil
	}
}

// callClosure calls a closure value: its own captured environment
// (copy-on-capture, spec §9) plus a fresh innermost scope for the
// parameters.
func (it *Interpreter) callClosure(c *primitive.Closure, args []primitive.Value, iv source.Interval) (primitive.Value, error) {
	if len(args) != len(c.Params) {
		return nil, rerr.New(iv, rerr.CategoryBadArgument,
			"closure expects %d argument(s), got %d", len(c.Params), len(args))
	}
	call := &Interpreter{
		Program:  it.Program,
		FlowName: it.FlowName,
		Scopes:   &Scopes{layers: append([]primitive.Scope{}, c.Env...)},
		Builtins: it.Builtins,
	}
	call.Scopes.Push()
	for i, param := range c.Params {
		call.Scopes.BindLocal(param, args[i])
	}
	out := call.execBlock(c.Body)
	it.MemoryWrites = append(it.MemoryWrites, call.MemoryWrites...)
	it.Messages = append(it.Messages, call.Messages...)
	switch out.Kind {
	case OutcomeReturn:
		return out.Return, nil
	case OutcomeError:
		return nil, out.Err
	default:
		return primitive.Nil, nil
	}
}

func (it *Interpreter) evalMethodCall(call *ast.MethodCallExpr) (primitive.Value, error) {
	receiver, err := it.eval(call.Receiver)
	if err != nil {
		return nil, err
	}
	args, err := it.evalArgs(call.Args)
	if err != nil {
		return nil, err
	}
	method, err := primitive.Lookup(receiver, call.Method, call.Span())
	if err != nil {
		return nil, err
	}
	result, err := method.Fn(receiver, args, call.Span())
	if err != nil {
		return nil, err
	}
	// Write methods on an immutable receiver (string) return a new value
	// that must be rebound at the call site; write methods on array/object
	// mutate the shared pointer in place, so rebinding there is a harmless
	// no-op. See DESIGN.md C4/C5 write-back note.
	if method.Access == primitive.Write {
		if _, ok := receiver.(primitive.Str); ok {
			if err := it.assignTo(call.Receiver, result); err != nil {
				return nil, err
			}
		}
	}
	return result, nil
}
