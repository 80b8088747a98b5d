// Package ast defines the CSML flow AST produced by the parser (C2) and
// consumed by the validator (C3) and interpreter (C5).
package ast

import "github.com/csml-dev/csml-engine/internal/source"

// Flow is a parsed flow: an ordered list of steps plus the textual command
// aliases that let an inbound event trigger it directly (spec §3 Flow).
type Flow struct {
	Name      string
	Commands  []string
	Steps     []*Step
	Functions []*FnStmt // top-level `fn` declarations, callable from any step
	Interval  source.Interval
}

// FnByName returns the top-level function named id, or nil.
func (f *Flow) FnByName(id string) *FnStmt {
	for _, fn := range f.Functions {
		if fn.Name == id {
			return fn
		}
	}
	return nil
}

// StepByName returns the step named id, or nil.
func (f *Flow) StepByName(id string) *Step {
	for _, s := range f.Steps {
		if s.Name == id {
			return s
		}
	}
	return nil
}

// Step is a named block of statements. "start" and "end" are reserved
// names: every flow must define "start"; "end" is a synthetic terminal
// step never present in Steps (spec §3 Step).
type Step struct {
	Name     string
	Body     *Block
	Interval source.Interval
}

// Block is a sequence of statements, the unit pushed/popped as a scope by
// the interpreter for if/foreach/fn bodies.
type Block struct {
	Statements []Statement
}

// Statement is any of the statement variants in spec §4.2.
type Statement interface {
	stmt()
	Span() source.Interval
}

type StmtBase struct{ Interval source.Interval }

func (StmtBase) stmt()                      {}
func (b StmtBase) Span() source.Interval    { return b.Interval }

// SayStmt emits a message: `say EXPR`.
type SayStmt struct {
	StmtBase
	Expr Expression
}

// DoStmt is a bare expression statement, most commonly an assignment:
// `do EXPR`.
type DoStmt struct {
	StmtBase
	Expr Expression
}

// RememberStmt writes long-term memory: `remember IDENT = EXPR`.
type RememberStmt struct {
	StmtBase
	Name string
	Expr Expression
}

// UseStmt binds a short-term, block-scoped name: `use EXPR as IDENT`.
type UseStmt struct {
	StmtBase
	Expr Expression
	As   string
}

// GotoStmt transfers control. Exactly one of Step/DynamicTarget is set
// when a step target is named; Flow is set when switching flows (with or
// without an explicit step). `goto end` sets Step == "end".
type GotoStmt struct {
	StmtBase
	Step          string
	Flow          string
	DynamicTarget Expression // set for `goto @IDENT`
}

// IfBranch is one `if`/`else if` arm.
type IfBranch struct {
	Cond Expression
	Body *Block
}

// IfStmt is `if EXPR { } (else if EXPR { })* (else { })?`.
type IfStmt struct {
	StmtBase
	Branches []IfBranch
	Else     *Block
}

// ForeachStmt is `foreach (v[, i]) in EXPR { }`.
type ForeachStmt struct {
	StmtBase
	ValueVar string
	IndexVar string // "" if not bound
	Expr     Expression
	Body     *Block
}

// BreakStmt exits the innermost foreach.
type BreakStmt struct{ StmtBase }

// ContinueStmt advances the innermost foreach.
type ContinueStmt struct{ StmtBase }

// ReturnStmt is `return EXPR?`, legal inside `fn` bodies and, with
// step-level meaning equivalent to `goto end`, inside a step body.
type ReturnStmt struct {
	StmtBase
	Expr Expression // nil if bare `return`
}

// HoldStmt suspends the step, persisting a resume point.
type HoldStmt struct{ StmtBase }

// ImportStmt is `import STEP (as IDENT)? from FLOW`, resolved statically
// by the validator; at runtime it only names the target step.
type ImportStmt struct {
	StmtBase
	Step string
	As   string // "" if no alias
	From string
}

// FnStmt defines a named function: `fn NAME(params): block`.
type FnStmt struct {
	StmtBase
	Name   string
	Params []string
	Body   *Block
}

// Expression is any of the expression variants in spec §4.2.
type Expression interface {
	expr()
	Span() source.Interval
}

type ExprBase struct{ Interval source.Interval }

func (ExprBase) expr()                   {}
func (b ExprBase) Span() source.Interval { return b.Interval }

// NullLit is the literal `null`.
type NullLit struct{ ExprBase }

// BoolLit is `true` or `false`.
type BoolLit struct {
	ExprBase
	Value bool
}

// IntLit is an integer literal (no decimal point).
type IntLit struct {
	ExprBase
	Value int64
}

// FloatLit is a float literal (decimal point + digits).
type FloatLit struct {
	ExprBase
	Value float64
}

// StringPart is one fragment of a possibly-interpolated string literal:
// either a literal run of text or an embedded `{{ EXPR }}`.
type StringPart struct {
	Literal string     // valid when Expr == nil
	Expr    Expression // valid when non-nil; Literal is ignored
}

// StringLit is a string literal, decomposed into literal/interpolation
// fragments at parse time (spec §4.2).
type StringLit struct {
	ExprBase
	Parts []StringPart
}

// ArrayLit is `[e1, e2, ...]`.
type ArrayLit struct {
	ExprBase
	Elements []Expression
}

// ObjectLit is `{ k1: e1, k2: e2, ... }`, keys kept in source order.
type ObjectLit struct {
	ExprBase
	Keys   []string
	Values []Expression
}

// ClosureLit is `fn (params) { body }` used as an expression (anonymous
// function value), distinct from the top-level FnStmt declaration form.
type ClosureLit struct {
	ExprBase
	Params []string
	Body   *Block
}

// Ident is a bare identifier reference.
type Ident struct {
	ExprBase
	Name string
}

// PathExpr is `BASE.FIELD`.
type PathExpr struct {
	ExprBase
	Base  Expression
	Field string
}

// IndexExpr is `BASE[INDEX]`.
type IndexExpr struct {
	ExprBase
	Base  Expression
	Index Expression
}

// CallExpr is a bare call `NAME(args...)` — a built-in or `fn` invocation.
type CallExpr struct {
	ExprBase
	Callee Expression
	Args   []Expression
}

// MethodCallExpr is `RECEIVER.METHOD(args...)`.
type MethodCallExpr struct {
	ExprBase
	Receiver Expression
	Method   string
	Args     []Expression
}

// UnaryExpr is `!EXPR` or `-EXPR`.
type UnaryExpr struct {
	ExprBase
	Op   string
	Expr Expression
}

// BinaryExpr is any of `+ - * / % == != > >= < <= && || ??`.
type BinaryExpr struct {
	ExprBase
	Op          string
	Left, Right Expression
}

// TernaryExpr is `COND ? THEN : ELSE`.
type TernaryExpr struct {
	ExprBase
	Cond, Then, Else Expression
}

// AssignExpr is `TARGET = VALUE`, where TARGET is an Ident, PathExpr, or
// IndexExpr.
type AssignExpr struct {
	ExprBase
	Target Expression
	Value  Expression
}
