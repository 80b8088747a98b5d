package validator

import (
	"testing"

	"github.com/csml-dev/csml-engine/internal/ast"
	"github.com/csml-dev/csml-engine/internal/parser"
)

func mustParseFlow(t *testing.T, name, src string) *ast.Flow {
	t.Helper()
	flow, err := parser.Parse(name, src)
	if err != nil {
		t.Fatalf("%s: unexpected parse error: %v", name, err)
	}
	return flow
}

func TestValidateHappyPath(t *testing.T) {
	flow := mustParseFlow(t, "main", `step start { say "hi" goto end }`)
	res := Validate(&Bot{
		Flows:       map[string]*ast.Flow{"main": flow},
		DefaultFlow: "main",
	})
	if !res.Valid() {
		t.Fatalf("expected valid bot, got errors: %v", res.Errors)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", res.Warnings)
	}
}

func TestValidateMissingStartStep(t *testing.T) {
	flow := mustParseFlow(t, "main", `step other { say "hi" }`)
	res := Validate(&Bot{
		Flows:       map[string]*ast.Flow{"main": flow},
		DefaultFlow: "main",
	})
	if res.Valid() {
		t.Fatal("expected missing_start_step error")
	}
	if res.Errors[0].Category != "missing_start_step" {
		t.Errorf("got category %q, want missing_start_step", res.Errors[0].Category)
	}
}

func TestValidateUnresolvedGoto(t *testing.T) {
	flow := mustParseFlow(t, "main", `step start { goto nowhere }`)
	res := Validate(&Bot{
		Flows:       map[string]*ast.Flow{"main": flow},
		DefaultFlow: "main",
	})
	if res.Valid() {
		t.Fatal("expected unresolved_goto error")
	}
	if res.Errors[0].Category != "unresolved_goto" {
		t.Errorf("got category %q, want unresolved_goto", res.Errors[0].Category)
	}
}

func TestValidateGotoEndAlwaysLegal(t *testing.T) {
	flow := mustParseFlow(t, "main", `step start { goto end }`)
	res := Validate(&Bot{
		Flows:       map[string]*ast.Flow{"main": flow},
		DefaultFlow: "main",
	})
	if !res.Valid() {
		t.Fatalf("goto end should always resolve, got errors: %v", res.Errors)
	}
}

func TestValidateUnresolvedFlowGoto(t *testing.T) {
	flow := mustParseFlow(t, "main", `step start { goto flow nowhere }`)
	res := Validate(&Bot{
		Flows:       map[string]*ast.Flow{"main": flow},
		DefaultFlow: "main",
	})
	if res.Valid() {
		t.Fatal("expected unresolved_flow_goto error")
	}
	if res.Errors[0].Category != "unresolved_flow_goto" {
		t.Errorf("got category %q, want unresolved_flow_goto", res.Errors[0].Category)
	}
}

func TestValidateCrossFlowGotoResolves(t *testing.T) {
	main := mustParseFlow(t, "main", `step start { goto booking flow booking }`)
	booking := mustParseFlow(t, "booking", `step start { say "hi" } step booking { say "book?" }`)
	res := Validate(&Bot{
		Flows: map[string]*ast.Flow{
			"main":    main,
			"booking": booking,
		},
		DefaultFlow: "main",
	})
	if !res.Valid() {
		t.Fatalf("expected valid bot, got errors: %v", res.Errors)
	}
}

func TestValidateImportResolution(t *testing.T) {
	main := mustParseFlow(t, "main", `step start { import greeting as hello from welcome }`)
	welcome := mustParseFlow(t, "welcome", `step start { say "welcome" } step greeting { say "hi" }`)
	res := Validate(&Bot{
		Flows: map[string]*ast.Flow{
			"main":    main,
			"welcome": welcome,
		},
		DefaultFlow: "main",
	})
	if !res.Valid() {
		t.Fatalf("expected valid bot, got errors: %v", res.Errors)
	}
}

func TestValidateImportNotFound(t *testing.T) {
	main := mustParseFlow(t, "main", `step start { import greeting from nowhere }`)
	res := Validate(&Bot{
		Flows:       map[string]*ast.Flow{"main": main},
		DefaultFlow: "main",
	})
	if res.Valid() {
		t.Fatal("expected import_not_found error")
	}
	if res.Errors[0].Category != "import_not_found" {
		t.Errorf("got category %q, want import_not_found", res.Errors[0].Category)
	}
}

func TestValidateImportSatisfiesMissingStart(t *testing.T) {
	main := mustParseFlow(t, "main", `step other { import start as start from welcome }`)
	welcome := mustParseFlow(t, "welcome", `step start { say "hi" }`)
	res := Validate(&Bot{
		Flows: map[string]*ast.Flow{
			"main":    main,
			"welcome": welcome,
		},
		DefaultFlow: "main",
	})
	if !res.Valid() {
		t.Fatalf("expected import to satisfy start-step requirement, got errors: %v", res.Errors)
	}
}

func TestValidateInvalidDefaultFlow(t *testing.T) {
	flow := mustParseFlow(t, "main", `step start { say "hi" }`)
	res := Validate(&Bot{
		Flows:       map[string]*ast.Flow{"main": flow},
		DefaultFlow: "nowhere",
	})
	if res.Valid() {
		t.Fatal("expected invalid_default_flow error")
	}
	if res.Errors[0].Category != "invalid_default_flow" {
		t.Errorf("got category %q, want invalid_default_flow", res.Errors[0].Category)
	}
}

func TestValidateStaticGotoCycleWarning(t *testing.T) {
	flow := mustParseFlow(t, "main", `
		step start { goto loop2 }
		step loop2 { goto start }
	`)
	res := Validate(&Bot{
		Flows:       map[string]*ast.Flow{"main": flow},
		DefaultFlow: "main",
	})
	if !res.Valid() {
		t.Fatalf("a goto-only cycle is a warning, not an error: %v", res.Errors)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("got %d warnings, want 1: %v", len(res.Warnings), res.Warnings)
	}
	if res.Warnings[0].Category != "static_goto_cycle" {
		t.Errorf("got category %q, want static_goto_cycle", res.Warnings[0].Category)
	}
}

func TestValidateDynamicGotoSkipsStaticCheck(t *testing.T) {
	flow := mustParseFlow(t, "main", `step start { goto @target }`)
	res := Validate(&Bot{
		Flows:       map[string]*ast.Flow{"main": flow},
		DefaultFlow: "main",
	})
	if !res.Valid() {
		t.Fatalf("dynamic goto should not be statically checked, got errors: %v", res.Errors)
	}
}
