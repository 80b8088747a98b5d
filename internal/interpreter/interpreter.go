package interpreter

import (
	"github.com/csml-dev/csml-engine/internal/ast"
	"github.com/csml-dev/csml-engine/internal/primitive"
	"github.com/csml-dev/csml-engine/internal/rerr"
	"github.com/csml-dev/csml-engine/internal/source"
)

// Message is what a `say` statement appends to the interaction's outbound
// buffer: a content_type tag plus the evaluated payload. Full message
// construction (generic-component headers, built-in builders) lives in
// the C6 builtins package (internal/builtins), whose component objects
// carry the content_type messageFor reads.
type Message struct {
	ContentType string
	Payload     primitive.Value
}

// MemoryWrite is a single `remember` recorded for the engine to persist
// at commit (spec §4.5/§5: writes take effect at commit, not at
// statement execution).
type MemoryWrite struct {
	Key   string
	Value primitive.Value
}

// BuiltinFunc is the registry shape C6 built-ins are invoked through for
// bare calls (`Length(x)`, `HTTP(url)`, ...). Interpreter.Builtins is nil
// unless the caller installs a registry (the engine installs its own).
type BuiltinFunc func(args []primitive.Value, iv source.Interval) (primitive.Value, error)

// Program is a compiled bot: every flow indexed by name, plus each flow's
// statically resolved import aliases (spec §4.3: "import is resolved
// statically; at runtime it only names the target step").
type Program struct {
	Flows       map[string]*ast.Flow
	Imports     map[string]map[string]GotoTarget // flow name -> alias -> target
	DefaultFlow string
}

// CompileImports builds the Imports table for every flow in flows by
// walking each flow's ImportStmt nodes. Call once per bot version, after
// validation.
func CompileImports(flows map[string]*ast.Flow) map[string]map[string]GotoTarget {
	out := make(map[string]map[string]GotoTarget, len(flows))
	for name, flow := range flows {
		aliases := map[string]GotoTarget{}
		walkImports(flow, func(imp *ast.ImportStmt) {
			alias := imp.As
			if alias == "" {
				alias = imp.Step
			}
			aliases[alias] = GotoTarget{Flow: imp.From, Step: imp.Step}
		})
		out[name] = aliases
	}
	return out
}

func walkImports(flow *ast.Flow, visit func(*ast.ImportStmt)) {
	for _, s := range flow.Steps {
		walkBlockImports(s.Body, visit)
	}
	for _, fn := range flow.Functions {
		walkBlockImports(fn.Body, visit)
	}
}

func walkBlockImports(b *ast.Block, visit func(*ast.ImportStmt)) {
	if b == nil {
		return
	}
	for _, stmt := range b.Statements {
		switch s := stmt.(type) {
		case *ast.ImportStmt:
			visit(s)
		case *ast.IfStmt:
			for _, br := range s.Branches {
				walkBlockImports(br.Body, visit)
			}
			walkBlockImports(s.Else, visit)
		case *ast.ForeachStmt:
			walkBlockImports(s.Body, visit)
		}
	}
}

// Interpreter executes steps, start to Outcome, threading
// scopes/messages/memory writes through nested blocks, foreach loops, and
// fn calls. The engine (C7) builds one Interpreter per inbound event and
// reuses it across that event's goto transitions, switching FlowName as
// it goes; it carries the scope forward across a `hold`/resume pair
// itself, through the persisted hold frame.
type Interpreter struct {
	Program  *Program
	FlowName string
	Scopes   *Scopes
	Builtins map[string]BuiltinFunc

	Messages     []Message
	MemoryWrites []MemoryWrite

	loopDepth int
}

// New builds an Interpreter for flowName within program, seeded with the
// given outer scope (long-term memory snapshot + bot constants + event-
// derived names, per spec §4.5).
func New(program *Program, flowName string, outer primitive.Scope) *Interpreter {
	return &Interpreter{
		Program:  program,
		FlowName: flowName,
		Scopes:   NewScopes(outer),
	}
}

func (it *Interpreter) currentFlow() *ast.Flow { return it.Program.Flows[it.FlowName] }

// RunStep executes step's body from the beginning, recording a HoldIndex
// on the returned Outcome if it's a hold so the engine can persist where
// to resume (spec §4.5 hold frame).
func (it *Interpreter) RunStep(step *ast.Step) Outcome {
	return it.runBlockFrom(step.Body, 0)
}

// RunFromStatement resumes a held step at statements[index:], used by the
// engine after a `hold` frame is loaded (spec §4.5: "the engine persists
// a hold frame ... so the next event resumes exactly at the next
// statement").
func (it *Interpreter) RunFromStatement(body *ast.Block, index int) Outcome {
	return it.runBlockFrom(body, index)
}

// runBlockFrom executes body.Statements[from:], stamping HoldIndex on a
// Hold outcome with the index of the next top-level statement.
func (it *Interpreter) runBlockFrom(body *ast.Block, from int) Outcome {
	if body == nil {
		return continueOutcome
	}
	for i := from; i < len(body.Statements); i++ {
		out := it.execStatement(body.Statements[i])
		if out.halts() {
			if out.Kind == OutcomeHold {
				out.HoldIndex = i + 1
			}
			return out
		}
	}
	return continueOutcome
}

func (it *Interpreter) execBlock(b *ast.Block) Outcome {
	if b == nil {
		return continueOutcome
	}
	for _, stmt := range b.Statements {
		out := it.execStatement(stmt)
		if out.halts() {
			return out
		}
	}
	return continueOutcome
}

func (it *Interpreter) execStatement(stmt ast.Statement) Outcome {
	switch s := stmt.(type) {
	case *ast.SayStmt:
		return it.execSay(s)
	case *ast.DoStmt:
		if _, err := it.eval(s.Expr); err != nil {
			return errorOutcome(err)
		}
		return continueOutcome
	case *ast.RememberStmt:
		return it.execRemember(s)
	case *ast.UseStmt:
		return it.execUse(s)
	case *ast.GotoStmt:
		return it.execGoto(s)
	case *ast.IfStmt:
		return it.execIf(s)
	case *ast.ForeachStmt:
		return it.execForeach(s)
	case *ast.BreakStmt:
		return breakOutcome
	case *ast.ContinueStmt:
		return loopContinueOutcome
	case *ast.ReturnStmt:
		return it.execReturn(s)
	case *ast.HoldStmt:
		return holdOutcome
	case *ast.ImportStmt:
		return continueOutcome // resolved statically, see Program.Imports
	case *ast.FnStmt:
		return continueOutcome // top-level declarations, nothing to execute
	default:
		return errorOutcome(rerr.New(stmt.Span(), rerr.CategoryBadArgument, "unsupported statement"))
	}
}

func (it *Interpreter) execSay(s *ast.SayStmt) Outcome {
	v, err := it.eval(s.Expr)
	if err != nil {
		return errorOutcome(err)
	}
	it.Messages = append(it.Messages, messageFor(v))
	return continueOutcome
}

// messageFor wraps an evaluated `say` value into a Message. An object
// whose content_type names a non-primitive kind (a built-in component
// like Text/Button/Question) carries that content_type through; anything
// else is a plain text message.
func messageFor(v primitive.Value) Message {
	if obj, ok := v.(*primitive.Object); ok {
		if ct := obj.ContentType(); ct != "" {
			return Message{ContentType: ct, Payload: v}
		}
	}
	return Message{ContentType: "text", Payload: v}
}

func (it *Interpreter) execRemember(s *ast.RememberStmt) Outcome {
	v, err := it.eval(s.Expr)
	if err != nil {
		return errorOutcome(err)
	}
	it.Scopes.BindOuter(s.Name, v)
	it.MemoryWrites = append(it.MemoryWrites, MemoryWrite{Key: s.Name, Value: v})
	return continueOutcome
}

func (it *Interpreter) execUse(s *ast.UseStmt) Outcome {
	v, err := it.eval(s.Expr)
	if err != nil {
		return errorOutcome(err)
	}
	if c, ok := v.(*primitive.Closure); ok && c.Name == "" && len(c.Env) > 0 {
		c.Name = s.As
		c.Env[len(c.Env)-1][s.As] = c
	}
	it.Scopes.BindLocal(s.As, v)
	return continueOutcome
}

func (it *Interpreter) execGoto(s *ast.GotoStmt) Outcome {
	target, err := it.resolveGoto(s)
	if err != nil {
		return errorOutcome(err)
	}
	if target.Step == "end" && target.Flow == "" {
		return endOutcome
	}
	return gotoOutcome(target)
}

func (it *Interpreter) resolveGoto(s *ast.GotoStmt) (GotoTarget, error) {
	if s.DynamicTarget != nil {
		v, err := it.eval(s.DynamicTarget)
		if err != nil {
			return GotoTarget{}, err
		}
		name, ok := v.(primitive.Str)
		if !ok {
			return GotoTarget{}, rerr.New(s.Span(), rerr.CategoryBadArgument,
				"goto @expr must evaluate to a string step name, got %s", v.Kind())
		}
		return it.resolveLocalStep(string(name)), nil
	}
	if s.Flow != "" {
		if s.Step == "" {
			return GotoTarget{Flow: s.Flow, Step: "start"}, nil
		}
		return GotoTarget{Flow: s.Flow, Step: s.Step}, nil
	}
	return it.resolveLocalStep(s.Step), nil
}

// resolveLocalStep resolves a bare step name against the current flow's
// own steps first, then its import-alias table, matching validator's
// availableSteps ordering.
func (it *Interpreter) resolveLocalStep(name string) GotoTarget {
	if name == "end" {
		return GotoTarget{Step: "end"}
	}
	if it.currentFlow().StepByName(name) != nil {
		return GotoTarget{Flow: it.FlowName, Step: name}
	}
	if target, ok := it.Program.Imports[it.FlowName][name]; ok {
		return target
	}
	return GotoTarget{Flow: it.FlowName, Step: name}
}

func (it *Interpreter) execIf(s *ast.IfStmt) Outcome {
	for _, branch := range s.Branches {
		v, err := it.eval(branch.Cond)
		if err != nil {
			return errorOutcome(err)
		}
		if primitive.Truthy(v) {
			it.Scopes.Push()
			out := it.execBlock(branch.Body)
			it.Scopes.Pop()
			return out
		}
	}
	if s.Else != nil {
		it.Scopes.Push()
		out := it.execBlock(s.Else)
		it.Scopes.Pop()
		return out
	}
	return continueOutcome
}

func (it *Interpreter) execForeach(s *ast.ForeachStmt) Outcome {
	v, err := it.eval(s.Expr)
	if err != nil {
		return errorOutcome(err)
	}
	items, err := iterableItems(v, s.Span())
	if err != nil {
		return errorOutcome(err)
	}
	it.loopDepth++
	defer func() { it.loopDepth-- }()

	for i, item := range items {
		it.Scopes.Push()
		it.Scopes.BindLocal(s.ValueVar, item)
		if s.IndexVar != "" {
			it.Scopes.BindLocal(s.IndexVar, primitive.Int(i))
		}
		out := it.execBlock(s.Body)
		it.Scopes.Pop()
		switch out.Kind {
		case OutcomeBreak:
			return continueOutcome
		case OutcomeContinue, OutcomeLoopContinue:
			continue
		default:
			return out
		}
	}
	return continueOutcome
}

// iterableItems implements spec §4.5's "E must be array or
// string-as-codepoints" foreach source rule. Iterating a live array
// (rather than a defensive copy) mirrors Go's own range-over-slice
// semantics for the open question of array mutation during foreach
// (spec §9) — see DESIGN.md.
func iterableItems(v primitive.Value, iv source.Interval) ([]primitive.Value, error) {
	switch t := v.(type) {
	case *primitive.Array:
		return t.Items, nil
	case primitive.Str:
		runes := []rune(string(t))
		out := make([]primitive.Value, len(runes))
		for i, r := range runes {
			out[i] = primitive.Str(string(r))
		}
		return out, nil
	default:
		return nil, rerr.New(iv, rerr.CategoryBadArgument,
			"foreach requires an array or string, got %s", v.Kind())
	}
}

func (it *Interpreter) execReturn(s *ast.ReturnStmt) Outcome {
	if s.Expr == nil {
		return returnOutcome(primitive.Nil)
	}
	v, err := it.eval(s.Expr)
	if err != nil {
		return errorOutcome(err)
	}
	return returnOutcome(v)
}
