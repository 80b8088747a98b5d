// Package interpreter implements C5: a tree-walking evaluator over the
// flow AST, producing an Outcome per step invocation and accumulating the
// messages/memory-writes a step emits along the way. Modeled on
// internal/agent.Loop.Run's bounded iteration loop, generalized from "call
// a model, inspect tool calls, decide whether to continue" to "execute a
// statement, inspect the outcome, decide whether to continue".
package interpreter

import "github.com/csml-dev/csml-engine/internal/primitive"

// OutcomeKind discriminates the result of executing a statement or block
// (spec §4.5).
type OutcomeKind int

const (
	OutcomeContinue OutcomeKind = iota
	OutcomeGoto
	OutcomeHold
	OutcomeEnd
	OutcomeError
	OutcomeBreak
	OutcomeLoopContinue
	OutcomeReturn
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeContinue:
		return "continue"
	case OutcomeGoto:
		return "goto"
	case OutcomeHold:
		return "hold"
	case OutcomeEnd:
		return "end"
	case OutcomeError:
		return "error"
	case OutcomeBreak:
		return "break"
	case OutcomeLoopContinue:
		return "loop_continue"
	case OutcomeReturn:
		return "return"
	default:
		return "unknown"
	}
}

// GotoTarget names where a Goto outcome should resume: Step within Flow
// (Flow == "" means "this flow"); Step == "end" is the synthetic
// terminal step. Dynamic targets are resolved to a concrete GotoTarget
// before the outcome is constructed.
type GotoTarget struct {
	Flow string
	Step string
}

// Outcome is the single post-statement signal threaded through block and
// step execution (spec §4.5's Outcome enumeration). Only the field(s)
// relevant to Kind are populated.
type Outcome struct {
	Kind   OutcomeKind
	Goto   GotoTarget
	Return primitive.Value
	Err    error

	// HoldIndex is set (by RunStep) on an OutcomeHold result: the index
	// of the step's top-level statement immediately after the one that
	// held, i.e. where RunFromStatement should resume. Only meaningful
	// for a hold at the step's own top level; a hold nested inside an
	// if/foreach resumes at the next top-level statement rather than
	// mid-block (see DESIGN.md).
	HoldIndex int
}

var (
	continueOutcome     = Outcome{Kind: OutcomeContinue}
	breakOutcome        = Outcome{Kind: OutcomeBreak}
	loopContinueOutcome = Outcome{Kind: OutcomeLoopContinue}
	endOutcome          = Outcome{Kind: OutcomeEnd}
	holdOutcome         = Outcome{Kind: OutcomeHold}
)

func gotoOutcome(target GotoTarget) Outcome {
	return Outcome{Kind: OutcomeGoto, Goto: target}
}

func returnOutcome(v primitive.Value) Outcome {
	return Outcome{Kind: OutcomeReturn, Return: v}
}

func errorOutcome(err error) Outcome {
	return Outcome{Kind: OutcomeError, Err: err}
}

// halts reports whether an outcome should stop executing the rest of a
// block (anything other than a plain fallthrough-to-next-statement).
func (o Outcome) halts() bool { return o.Kind != OutcomeContinue }
