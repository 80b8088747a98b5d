package parser

import (
	"testing"

	"github.com/csml-dev/csml-engine/internal/ast"
)

func mustParse(t *testing.T, src string) *ast.Flow {
	t.Helper()
	flow, err := Parse("t", src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return flow
}

func TestParseMinimalFlow(t *testing.T) {
	flow := mustParse(t, `step start { say "hi" }`)
	if len(flow.Steps) != 1 {
		t.Fatalf("got %d steps, want 1", len(flow.Steps))
	}
	if flow.Steps[0].Name != "start" {
		t.Errorf("got step name %q, want start", flow.Steps[0].Name)
	}
	if len(flow.Steps[0].Body.Statements) != 1 {
		t.Fatalf("got %d statements, want 1", len(flow.Steps[0].Body.Statements))
	}
	say, ok := flow.Steps[0].Body.Statements[0].(*ast.SayStmt)
	if !ok {
		t.Fatalf("got %T, want *ast.SayStmt", flow.Steps[0].Body.Statements[0])
	}
	lit, ok := say.Expr.(*ast.StringLit)
	if !ok {
		t.Fatalf("got %T, want *ast.StringLit", say.Expr)
	}
	if len(lit.Parts) != 1 || lit.Parts[0].Literal != "hi" {
		t.Errorf("got parts %+v, want [hi]", lit.Parts)
	}
}

func TestParseEmptyFlowIsError(t *testing.T) {
	_, err := Parse("t", "")
	if err == nil {
		t.Fatal("expected error for empty flow")
	}
	if err.Category != "empty_flow" {
		t.Errorf("got category %q, want empty_flow", err.Category)
	}
}

func TestParseDuplicateStepIsError(t *testing.T) {
	_, err := Parse("t", `step start { say "a" } step start { say "b" }`)
	if err == nil {
		t.Fatal("expected duplicate step error")
	}
	if err.Category != "duplicate_step" {
		t.Errorf("got category %q, want duplicate_step", err.Category)
	}
}

func TestParseFnDecl(t *testing.T) {
	flow := mustParse(t, `
		fn add(a, b): {
			return a + b
		}
		step start {
			do add(1, 2)
		}
	`)
	fn := flow.FnByName("add")
	if fn == nil {
		t.Fatal("expected fn add to be registered")
	}
	if len(fn.Params) != 2 || fn.Params[0] != "a" || fn.Params[1] != "b" {
		t.Errorf("got params %v, want [a b]", fn.Params)
	}
	if len(fn.Body.Statements) != 1 {
		t.Fatalf("got %d statements, want 1", len(fn.Body.Statements))
	}
	ret, ok := fn.Body.Statements[0].(*ast.ReturnStmt)
	if !ok {
		t.Fatalf("got %T, want *ast.ReturnStmt", fn.Body.Statements[0])
	}
	if _, ok := ret.Expr.(*ast.BinaryExpr); !ok {
		t.Errorf("got %T, want *ast.BinaryExpr", ret.Expr)
	}
}

func TestParseReservedWordAsIdentifier(t *testing.T) {
	_, err := Parse("t", `step start { remember goto = 1 }`)
	if err == nil {
		t.Fatal("expected reserved_as_identifier error")
	}
	if err.Category != "reserved_as_identifier" {
		t.Errorf("got category %q, want reserved_as_identifier", err.Category)
	}
}

func TestParseBareReturnBeforeSay(t *testing.T) {
	flow := mustParse(t, `
		fn f(): {
			return
			say "unreachable"
		}
		step start { do f() }
	`)
	fn := flow.FnByName("f")
	if len(fn.Body.Statements) != 2 {
		t.Fatalf("got %d statements, want 2", len(fn.Body.Statements))
	}
	ret, ok := fn.Body.Statements[0].(*ast.ReturnStmt)
	if !ok {
		t.Fatalf("got %T, want *ast.ReturnStmt", fn.Body.Statements[0])
	}
	if ret.Expr != nil {
		t.Errorf("got non-nil return expr %v, want bare return", ret.Expr)
	}
	if _, ok := fn.Body.Statements[1].(*ast.SayStmt); !ok {
		t.Fatalf("got %T, want *ast.SayStmt", fn.Body.Statements[1])
	}
}

func TestParseIfElseIf(t *testing.T) {
	flow := mustParse(t, `
		step start {
			if x == 1 {
				say "one"
			} else if x == 2 {
				say "two"
			} else {
				say "other"
			}
		}
	`)
	stmt := flow.Steps[0].Body.Statements[0].(*ast.IfStmt)
	if len(stmt.Branches) != 2 {
		t.Fatalf("got %d branches, want 2", len(stmt.Branches))
	}
	if stmt.Else == nil {
		t.Fatal("expected else block")
	}
}

func TestParseForeachWithIndex(t *testing.T) {
	flow := mustParse(t, `
		step start {
			foreach (v, i) in items {
				say v
			}
		}
	`)
	stmt := flow.Steps[0].Body.Statements[0].(*ast.ForeachStmt)
	if stmt.ValueVar != "v" || stmt.IndexVar != "i" {
		t.Errorf("got value=%q index=%q, want v/i", stmt.ValueVar, stmt.IndexVar)
	}
}

func TestParseGotoForms(t *testing.T) {
	cases := []struct {
		src  string
		step string
		flow string
		dyn  bool
	}{
		{`step start { goto end }`, "end", "", false},
		{`step start { goto other flow booking }`, "other", "booking", false},
		{`step start { goto flow booking }`, "", "booking", false},
		{`step start { goto @target }`, "", "", true},
	}
	for _, c := range cases {
		flow := mustParse(t, c.src)
		g := flow.Steps[0].Body.Statements[0].(*ast.GotoStmt)
		if c.dyn {
			if g.DynamicTarget == nil {
				t.Errorf("%s: expected dynamic target", c.src)
			}
			continue
		}
		if g.Step != c.step || g.Flow != c.flow {
			t.Errorf("%s: got step=%q flow=%q, want step=%q flow=%q", c.src, g.Step, g.Flow, c.step, c.flow)
		}
	}
}

func TestParseExpressionPrecedence(t *testing.T) {
	flow := mustParse(t, `step start { do 1 + 2 * 3 }`)
	stmt := flow.Steps[0].Body.Statements[0].(*ast.DoStmt)
	bin := stmt.Expr.(*ast.BinaryExpr)
	if bin.Op != "+" {
		t.Fatalf("got top-level op %q, want +", bin.Op)
	}
	rhs, ok := bin.Right.(*ast.BinaryExpr)
	if !ok || rhs.Op != "*" {
		t.Fatalf("got rhs %+v, want * binary", bin.Right)
	}
}

func TestParseTernaryAndCoalesce(t *testing.T) {
	flow := mustParse(t, `step start { do (x ?? 1) > 0 ? "pos" : "nonpos" }`)
	stmt := flow.Steps[0].Body.Statements[0].(*ast.DoStmt)
	if _, ok := stmt.Expr.(*ast.TernaryExpr); !ok {
		t.Fatalf("got %T, want *ast.TernaryExpr", stmt.Expr)
	}
}

func TestParseAssignmentToPath(t *testing.T) {
	flow := mustParse(t, `step start { do user.name = "bob" }`)
	stmt := flow.Steps[0].Body.Statements[0].(*ast.DoStmt)
	assign, ok := stmt.Expr.(*ast.AssignExpr)
	if !ok {
		t.Fatalf("got %T, want *ast.AssignExpr", stmt.Expr)
	}
	if _, ok := assign.Target.(*ast.PathExpr); !ok {
		t.Errorf("got target %T, want *ast.PathExpr", assign.Target)
	}
}

func TestParseInvalidAssignmentTarget(t *testing.T) {
	_, err := Parse("t", `step start { do 1 + 1 = 2 }`)
	if err == nil {
		t.Fatal("expected error for invalid assignment target")
	}
}

func TestParseMethodCallAndIndex(t *testing.T) {
	flow := mustParse(t, `step start { do items[0].length() }`)
	stmt := flow.Steps[0].Body.Statements[0].(*ast.DoStmt)
	call, ok := stmt.Expr.(*ast.MethodCallExpr)
	if !ok {
		t.Fatalf("got %T, want *ast.MethodCallExpr", stmt.Expr)
	}
	if call.Method != "length" {
		t.Errorf("got method %q, want length", call.Method)
	}
	if _, ok := call.Receiver.(*ast.IndexExpr); !ok {
		t.Errorf("got receiver %T, want *ast.IndexExpr", call.Receiver)
	}
}

func TestParseStringInterpolationExpression(t *testing.T) {
	flow := mustParse(t, `step start { say "hello {{ name }}!" }`)
	say := flow.Steps[0].Body.Statements[0].(*ast.SayStmt)
	lit := say.Expr.(*ast.StringLit)
	if len(lit.Parts) != 3 {
		t.Fatalf("got %d parts, want 3", len(lit.Parts))
	}
	if lit.Parts[0].Literal != "hello " {
		t.Errorf("got first part %q, want %q", lit.Parts[0].Literal, "hello ")
	}
	ident, ok := lit.Parts[1].Expr.(*ast.Ident)
	if !ok || ident.Name != "name" {
		t.Errorf("got interpolated expr %+v, want ident name", lit.Parts[1].Expr)
	}
	if lit.Parts[2].Literal != "!" {
		t.Errorf("got last part %q, want %q", lit.Parts[2].Literal, "!")
	}
}

func TestParseArrayAndObjectLiterals(t *testing.T) {
	flow := mustParse(t, `step start { do {content_type: "text", content: [1, 2, 3]} }`)
	stmt := flow.Steps[0].Body.Statements[0].(*ast.DoStmt)
	obj, ok := stmt.Expr.(*ast.ObjectLit)
	if !ok {
		t.Fatalf("got %T, want *ast.ObjectLit", stmt.Expr)
	}
	if len(obj.Keys) != 2 || obj.Keys[0] != "content_type" || obj.Keys[1] != "content" {
		t.Errorf("got keys %v, want [content_type content]", obj.Keys)
	}
	arr, ok := obj.Values[1].(*ast.ArrayLit)
	if !ok || len(arr.Elements) != 3 {
		t.Fatalf("got content value %+v, want 3-element array", obj.Values[1])
	}
}

func TestParseClosureLiteral(t *testing.T) {
	flow := mustParse(t, `step start { remember callback = fn (x) { return x } }`)
	stmt := flow.Steps[0].Body.Statements[0].(*ast.RememberStmt)
	closure, ok := stmt.Expr.(*ast.ClosureLit)
	if !ok {
		t.Fatalf("got %T, want *ast.ClosureLit", stmt.Expr)
	}
	if len(closure.Params) != 1 || closure.Params[0] != "x" {
		t.Errorf("got params %v, want [x]", closure.Params)
	}
}

func TestParseImportStmt(t *testing.T) {
	flow := mustParse(t, `step start { import greeting as hello from welcome }`)
	stmt := flow.Steps[0].Body.Statements[0].(*ast.ImportStmt)
	if stmt.Step != "greeting" || stmt.As != "hello" || stmt.From != "welcome" {
		t.Errorf("got %+v, want step=greeting as=hello from=welcome", stmt)
	}
}

func TestParseHoldAndBreakContinue(t *testing.T) {
	flow := mustParse(t, `
		step start {
			foreach (v) in items {
				if v == 0 {
					continue
				}
				if v == 1 {
					break
				}
				hold
			}
		}
	`)
	loop := flow.Steps[0].Body.Statements[0].(*ast.ForeachStmt)
	if len(loop.Body.Statements) != 3 {
		t.Fatalf("got %d statements, want 3", len(loop.Body.Statements))
	}
}
