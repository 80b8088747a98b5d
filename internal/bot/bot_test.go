package bot

import (
	"testing"

	"github.com/csml-dev/csml-engine/internal/cerr"
)

func TestCompile_HappyPath(t *testing.T) {
	b := &Bot{
		ID:          "bot1",
		DefaultFlow: "default",
		Flows: map[string]string{
			"default": `
step start {
	say "hi"
}`,
		},
	}
	compiled, errs, warnings := Compile(b)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if compiled == nil || compiled.Program == nil {
		t.Fatal("got nil Compiled/Program on a valid bot")
	}
	if compiled.Program.DefaultFlow != "default" {
		t.Fatalf("got default flow %q, want default", compiled.Program.DefaultFlow)
	}
}

func TestCompile_ParseErrorAbortsBeforeValidation(t *testing.T) {
	b := &Bot{
		DefaultFlow: "default",
		Flows: map[string]string{
			"default": `step start { say }`,
		},
	}
	compiled, errs, warnings := Compile(b)
	if compiled != nil {
		t.Fatal("got non-nil Compiled on a parse error")
	}
	if len(errs) == 0 {
		t.Fatal("expected at least one parse error")
	}
	if len(warnings) != 0 {
		t.Fatalf("parse failures should not produce validator warnings, got %v", warnings)
	}
}

func TestCompile_ValidatorErrorMissingStartStep(t *testing.T) {
	b := &Bot{
		DefaultFlow: "default",
		Flows: map[string]string{
			"default": `step other { say "hi" }`,
		},
	}
	compiled, errs, _ := Compile(b)
	if compiled != nil {
		t.Fatal("got non-nil Compiled on a validator error")
	}
	found := false
	for _, e := range errs {
		if e.Category == cerr.CategoryMissingStartStep {
			found = true
		}
	}
	if !found {
		t.Fatalf("got errors %v, want missing_start_step among them", errs)
	}
}

func TestValidateBot(t *testing.T) {
	valid, errs, _ := ValidateBot(&Bot{
		DefaultFlow: "default",
		Flows:       map[string]string{"default": `step start { say "hi" }`},
	})
	if !valid || len(errs) != 0 {
		t.Fatalf("got valid=%v errs=%v, want valid with no errors", valid, errs)
	}

	valid, errs, _ = ValidateBot(&Bot{
		DefaultFlow: "default",
		Flows:       map[string]string{"default": `step other { say "hi" }`},
	})
	if valid || len(errs) == 0 {
		t.Fatalf("got valid=%v errs=%v, want invalid with errors", valid, errs)
	}
}

func TestGetStepsFromFlow(t *testing.T) {
	b := &Bot{
		Flows: map[string]string{
			"default": `
step start {
	say "hi"
	goto second
}
step second {
	say "bye"
}`,
		},
	}
	steps, errs := GetStepsFromFlow(b)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	got := steps["default"]
	if len(got) != 2 || got[0] != "start" || got[1] != "second" {
		t.Fatalf("got steps %v, want [start second] in source order", got)
	}
}

func TestGetStepsFromFlow_ParseError(t *testing.T) {
	b := &Bot{Flows: map[string]string{"default": `step start { say }`}}
	steps, errs := GetStepsFromFlow(b)
	if steps != nil {
		t.Fatal("got non-nil steps on a parse error")
	}
	if len(errs) == 0 {
		t.Fatal("expected at least one parse error")
	}
}

func TestFoldBot_RoundTripsValidSource(t *testing.T) {
	src := `step start { say "hi" }`
	b := &Bot{Flows: map[string]string{"default": src}}
	folded, errs := FoldBot(b)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if folded["default"] != src {
		t.Fatalf("got %q, want identity fold of %q", folded["default"], src)
	}
}

func TestFoldBot_ParseError(t *testing.T) {
	b := &Bot{Flows: map[string]string{"default": `step start { say }`}}
	folded, errs := FoldBot(b)
	if folded != nil {
		t.Fatal("got non-nil result on a parse error")
	}
	if len(errs) == 0 {
		t.Fatal("expected at least one parse error")
	}
}

func TestBot_FlowNamesSorted(t *testing.T) {
	b := &Bot{Flows: map[string]string{"zeta": "", "alpha": "", "mid": ""}}
	got := b.FlowNames()
	if len(got) != 3 || got[0] != "alpha" || got[1] != "mid" || got[2] != "zeta" {
		t.Fatalf("got %v, want sorted [alpha mid zeta]", got)
	}
}

func TestTokenize(t *testing.T) {
	toks, err := Tokenize("default", `step start { say "hi" }`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(toks) == 0 {
		t.Fatal("got no tokens for a non-empty flow")
	}
}
