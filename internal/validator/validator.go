// Package validator implements C3: static checks run once per bot version
// over the parsed flows, before any flow is handed to the interpreter.
package validator

import (
	"github.com/csml-dev/csml-engine/internal/ast"
	"github.com/csml-dev/csml-engine/internal/cerr"
	"github.com/csml-dev/csml-engine/internal/source"
)

// Bot is the minimal view of a compiled bot the validator needs: its flows
// keyed by name, and the name of the default flow (spec §3 Bot).
type Bot struct {
	Flows       map[string]*ast.Flow
	DefaultFlow string
}

// Result holds the two lists spec §4.3 requires: errors block
// validate_bot from returning valid=true; warnings surface but never
// block.
type Result struct {
	Errors   []*cerr.Error
	Warnings []*cerr.Error
}

// Valid reports whether the bot compiled with zero errors (warnings do
// not affect this).
func (r Result) Valid() bool { return len(r.Errors) == 0 }

// Validate runs every C3 check over bot and returns the accumulated
// errors and warnings. It never panics: a malformed AST (e.g. a nil
// Flow.Steps) is reported as an error, not a crash.
func Validate(bot *Bot) Result {
	v := &validator{bot: bot, result: Result{}}
	v.checkDefaultFlow()
	for name, flow := range bot.Flows {
		v.checkFlow(name, flow)
	}
	v.checkStaticGotoCycles()
	return v.result
}

type validator struct {
	bot    *Bot
	result Result
}

func (v *validator) err(e *cerr.Error) {
	v.result.Errors = append(v.result.Errors, e)
}

func (v *validator) warn(e *cerr.Error) {
	v.result.Warnings = append(v.result.Warnings, e)
}

func (v *validator) checkDefaultFlow() {
	if v.bot.DefaultFlow == "" {
		v.err(cerr.New("", source.Interval{}, cerr.CategoryInvalidDefaultFlow, "bot has no default_flow"))
		return
	}
	if _, ok := v.bot.Flows[v.bot.DefaultFlow]; !ok {
		v.err(cerr.New("", source.Interval{}, cerr.CategoryInvalidDefaultFlow,
			"default_flow %q names no flow in this bot", v.bot.DefaultFlow))
	}
}

// availableSteps returns every step name a goto/import inside flow can
// legally resolve to: the flow's own steps, plus the local alias (or
// original name) of every import statement found anywhere in the flow.
func availableSteps(flow *ast.Flow) map[string]bool {
	names := map[string]bool{}
	for _, s := range flow.Steps {
		names[s.Name] = true
	}
	walkImports(flow, func(imp *ast.ImportStmt) {
		if imp.As != "" {
			names[imp.As] = true
		} else {
			names[imp.Step] = true
		}
	})
	return names
}

// walkImports visits every ImportStmt in flow, recursing into if/foreach
// bodies since the grammar permits import anywhere a statement is legal.
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
		walkStatementImports(stmt, visit)
	}
}

func walkStatementImports(stmt ast.Statement, visit func(*ast.ImportStmt)) {
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

func (v *validator) checkFlow(name string, flow *ast.Flow) {
	if flow == nil {
		v.err(cerr.New(name, source.Interval{}, cerr.CategoryEmptyFlow, "flow %q is nil", name))
		return
	}
	available := availableSteps(flow)
	if !available["start"] {
		v.err(cerr.New(name, flow.Interval, cerr.CategoryMissingStartStep,
			"flow %q has no start step and no import satisfies it", name))
	}

	for _, imp := range importsOf(flow) {
		v.checkImport(name, flow, imp)
	}
	for _, step := range flow.Steps {
		v.checkBlockGotos(name, flow, available, step.Body)
	}
	for _, fn := range flow.Functions {
		v.checkBlockGotos(name, flow, available, fn.Body)
	}
}

func importsOf(flow *ast.Flow) []*ast.ImportStmt {
	var out []*ast.ImportStmt
	walkImports(flow, func(imp *ast.ImportStmt) { out = append(out, imp) })
	return out
}

func (v *validator) checkImport(flowName string, flow *ast.Flow, imp *ast.ImportStmt) {
	target, ok := v.bot.Flows[imp.From]
	if !ok {
		v.err(cerr.New(flowName, imp.Span(), cerr.CategoryImportNotFound,
			"import from unknown flow %q", imp.From))
		return
	}
	if target.StepByName(imp.Step) == nil {
		v.err(cerr.New(flowName, imp.Span(), cerr.CategoryImportNotFound,
			"flow %q has no step %q to import", imp.From, imp.Step))
	}
}

func (v *validator) checkBlockGotos(flowName string, flow *ast.Flow, available map[string]bool, b *ast.Block) {
	if b == nil {
		return
	}
	for _, stmt := range b.Statements {
		v.checkStatementGotos(flowName, flow, available, stmt)
	}
}

func (v *validator) checkStatementGotos(flowName string, flow *ast.Flow, available map[string]bool, stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.GotoStmt:
		v.checkGoto(flowName, flow, available, s)
	case *ast.IfStmt:
		for _, br := range s.Branches {
			v.checkBlockGotos(flowName, flow, available, br.Body)
		}
		v.checkBlockGotos(flowName, flow, available, s.Else)
	case *ast.ForeachStmt:
		v.checkBlockGotos(flowName, flow, available, s.Body)
	}
}

func (v *validator) checkGoto(flowName string, flow *ast.Flow, available map[string]bool, g *ast.GotoStmt) {
	if g.DynamicTarget != nil {
		// `goto @expr` resolves at runtime; nothing to check statically.
		return
	}
	if g.Flow != "" {
		target, ok := v.bot.Flows[g.Flow]
		if !ok {
			v.err(cerr.New(flowName, g.Span(), cerr.CategoryUnresolvedFlowGoto,
				"goto targets unknown flow %q", g.Flow))
			return
		}
		if g.Step != "" && g.Step != "end" && !availableSteps(target)[g.Step] {
			v.err(cerr.New(flowName, g.Span(), cerr.CategoryUnresolvedFlowGoto,
				"goto targets step %q, unresolved in flow %q", g.Step, g.Flow))
		}
		return
	}
	if g.Step == "end" || g.Step == "" {
		return
	}
	if !available[g.Step] {
		v.err(cerr.New(flowName, g.Span(), cerr.CategoryUnresolvedGoto,
			"goto targets unknown step %q in flow %q", g.Step, flowName))
	}
}

// checkStaticGotoCycles flags (as warnings) steps whose body is a single
// unconditional `goto` to another step in the same flow, forming a cycle
// with no statement that could emit a message or hold in between — spec
// §4.3's "goto-only cycle" rule. Each cycle is reported once.
func (v *validator) checkStaticGotoCycles() {
	for flowName, flow := range v.bot.Flows {
		if flow == nil {
			continue
		}
		edges := map[string]string{}
		for _, step := range flow.Steps {
			if target, ok := soleUnconditionalGoto(step.Body); ok {
				edges[step.Name] = target
			}
		}
		reported := map[string]bool{}
		for start := range edges {
			cyclePath, ok := findCycle(start, edges)
			if !ok || reported[cyclePath[0]] {
				continue
			}
			for _, name := range cyclePath {
				reported[name] = true
			}
			v.warnCycle(flowName, flow, cyclePath)
		}
	}
}

// soleUnconditionalGoto reports whether b is exactly one statement, a
// `goto` within the same flow (no flow switch, no dynamic target).
func soleUnconditionalGoto(b *ast.Block) (string, bool) {
	if b == nil || len(b.Statements) != 1 {
		return "", false
	}
	g, ok := b.Statements[0].(*ast.GotoStmt)
	if !ok || g.Flow != "" || g.DynamicTarget != nil || g.Step == "end" {
		return "", false
	}
	return g.Step, true
}

// findCycle walks edges starting at start, returning the first repeated
// node's path if a cycle is reachable.
func findCycle(start string, edges map[string]string) ([]string, bool) {
	visited := map[string]int{}
	var path []string
	cur := start
	for {
		if i, seen := visited[cur]; seen {
			return path[i:], true
		}
		next, ok := edges[cur]
		if !ok {
			return nil, false
		}
		visited[cur] = len(path)
		path = append(path, cur)
		cur = next
	}
}

func (v *validator) warnCycle(flowName string, flow *ast.Flow, cyclePath []string) {
	if len(cyclePath) == 0 {
		return
	}
	head := flow.StepByName(cyclePath[0])
	iv := flow.Interval
	if head != nil {
		iv = head.Interval
	}
	v.warn(cerr.New(flowName, iv, cerr.CategoryStaticGotoCycle,
		"steps %v form a goto-only cycle with no intervening say/hold", cyclePath))
}
