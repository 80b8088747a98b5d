// Package bot implements the bot-level operations of spec §6 that sit
// above a single flow: compiling a full bot (every flow lexed, parsed,
// and validated together) into the interpreter.Program the engine (C7)
// runs, plus the packaging helpers (validate_bot, get_steps_from_flow,
// fold_bot) external callers use before ever invoking run.
package bot

import (
	"sort"

	"github.com/csml-dev/csml-engine/internal/ast"
	"github.com/csml-dev/csml-engine/internal/cerr"
	"github.com/csml-dev/csml-engine/internal/interpreter"
	"github.com/csml-dev/csml-engine/internal/lexer"
	"github.com/csml-dev/csml-engine/internal/parser"
	"github.com/csml-dev/csml-engine/internal/validator"
)

// Bot is a single version's worth of source (spec §3 Bot): every flow's
// raw CSML source keyed by flow name, the name of the default flow, and
// the version's env/secret maps. Compile does not carry Env or Secrets
// into the interpreter.Program, and the engine seeds `_env` as an empty
// object, so neither map is visible to a running flow.
// Custom/native component headers (spec §3 "custom_components") live in
// internal/builtins.ComponentHeader and are loaded separately, since they
// are YAML, not CSML source.
type Bot struct {
	ID          string
	Name        string
	DefaultFlow string
	Flows       map[string]string
	Env         map[string]string
	Secrets     map[string]string
}

// Compiled is a bot whose every flow parsed and validated cleanly: the
// interpreter.Program the engine can run, plus the raw ast.Flow map
// get_steps_from_flow reads step names from.
type Compiled struct {
	Program *interpreter.Program
	Flows   map[string]*ast.Flow
}

// Compile lexes, parses, and validates every flow in b, returning either
// a Compiled program or the first stage's diagnostics. Parse errors from
// any flow abort before validation runs (validator assumes a complete,
// parseable flow set); validator errors and warnings are otherwise
// returned independently, matching spec §4.3's error/warning split.
func Compile(b *Bot) (*Compiled, []*cerr.Error, []*cerr.Error) {
	flows := make(map[string]*ast.Flow, len(b.Flows))
	var errs []*cerr.Error
	for name, src := range b.Flows {
		flow, err := parser.Parse(name, src)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		flows[name] = flow
	}
	if len(errs) > 0 {
		return nil, errs, nil
	}

	result := validator.Validate(&validator.Bot{Flows: flows, DefaultFlow: b.DefaultFlow})
	if !result.Valid() {
		return nil, result.Errors, result.Warnings
	}

	program := &interpreter.Program{
		Flows:       flows,
		Imports:     interpreter.CompileImports(flows),
		DefaultFlow: b.DefaultFlow,
	}
	return &Compiled{Program: program, Flows: flows}, nil, result.Warnings
}

// ValidateBot implements spec §6's validate_bot: compiles b and reports
// whether it is free of blocking errors, plus both diagnostic lists.
func ValidateBot(b *Bot) (valid bool, errors []*cerr.Error, warnings []*cerr.Error) {
	compiled, errs, warns := Compile(b)
	return compiled != nil && len(errs) == 0, errs, warns
}

// GetStepsFromFlow implements spec §6's get_steps_from_flow: the name of
// every step declared in every flow, in source order. Only requires a
// successful parse (not a full validator pass), since the step names
// themselves don't depend on goto resolution.
func GetStepsFromFlow(b *Bot) (map[string][]string, []*cerr.Error) {
	out := make(map[string][]string, len(b.Flows))
	var errs []*cerr.Error
	for name, src := range b.Flows {
		flow, err := parser.Parse(name, src)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		steps := make([]string, len(flow.Steps))
		for i, s := range flow.Steps {
			steps[i] = s.Name
		}
		out[name] = steps
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

// FoldBot implements spec §6's fold_bot: a packaging helper returning
// each flow's combined source, verified to still lex and parse cleanly.
// CSML flows are stored as complete, self-contained source per flow
// (imports are resolved by name, not inlined — spec §4.3), so "folding"
// is the identity transform over an already-valid bot; the verification
// pass is what makes spec §8's "fold_bot then re-parse yields the same
// AST" property hold by construction rather than by accident.
func FoldBot(b *Bot) (map[string]string, []*cerr.Error) {
	var errs []*cerr.Error
	for name, src := range b.Flows {
		if _, err := parser.Parse(name, src); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	out := make(map[string]string, len(b.Flows))
	for name, src := range b.Flows {
		out[name] = src
	}
	return out, nil
}

// FlowNames returns the names of every flow in b, sorted.
func (b *Bot) FlowNames() []string {
	names := make([]string, 0, len(b.Flows))
	for name := range b.Flows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tokenize is a thin re-export used by tooling (syntax highlighters,
// REPLs) that want raw tokens without a full parse; kept here rather
// than forcing every caller to import internal/lexer directly.
func Tokenize(file, src string) ([]lexer.Token, *cerr.Error) {
	return lexer.Tokenize(file, src)
}
