package builtins

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/csml-dev/csml-engine/internal/cerr"
	"github.com/csml-dev/csml-engine/internal/primitive"
	"github.com/csml-dev/csml-engine/internal/source"
)

func TestBuiltinText(t *testing.T) {
	v, err := builtinText([]primitive.Value{primitive.Str("hi")}, source.Interval{})
	if err != nil {
		t.Fatalf("builtinText error = %v", err)
	}
	o, ok := v.(*primitive.Object)
	if !ok {
		t.Fatalf("builtinText returned %T, want *primitive.Object", v)
	}
	if o.ContentType() != "text" {
		t.Errorf("content_type = %q, want %q", o.ContentType(), "text")
	}
	text, _ := o.Get("text")
	if text != primitive.Str("hi") {
		t.Errorf("text field = %v, want %q", text, "hi")
	}
}

func TestBuiltinTextWrongArity(t *testing.T) {
	if _, err := builtinText(nil, source.Interval{}); err == nil {
		t.Fatal("builtinText() with no args should error")
	}
}

func TestBuiltinMediaURLFactory(t *testing.T) {
	for _, kind := range []string{"image", "audio", "video", "file"} {
		fn := builtinMediaURL(kind)
		v, err := fn([]primitive.Value{primitive.Str("https://example.com/x")}, source.Interval{})
		if err != nil {
			t.Fatalf("%s builtin error = %v", kind, err)
		}
		o := v.(*primitive.Object)
		if o.ContentType() != kind {
			t.Errorf("%s content_type = %q, want %q", kind, o.ContentType(), kind)
		}
	}
}

func TestBuiltinCarouselRequiresCards(t *testing.T) {
	text, _ := builtinText([]primitive.Value{primitive.Str("not a card")}, source.Interval{})
	if _, err := builtinCarousel([]primitive.Value{text}, source.Interval{}); err == nil {
		t.Fatal("Carousel with a non-Card argument should error")
	}
}

func TestBuiltinCarouselAcceptsCards(t *testing.T) {
	card := taggedObject("card", map[string]primitive.Value{"title": primitive.Str("t")})
	v, err := builtinCarousel([]primitive.Value{card}, source.Interval{})
	if err != nil {
		t.Fatalf("Carousel error = %v", err)
	}
	o := v.(*primitive.Object)
	if o.ContentType() != "carousel" {
		t.Errorf("content_type = %q, want carousel", o.ContentType())
	}
}

func TestBuildGenericWithoutHeaderFallsBackToTitle(t *testing.T) {
	v, err := buildGeneric(nil, "button", []primitive.Value{primitive.Str("Click me")}, source.Interval{})
	if err != nil {
		t.Fatalf("buildGeneric error = %v", err)
	}
	o := v.(*primitive.Object)
	title, _ := o.Get("title")
	if title != primitive.Str("Click me") {
		t.Errorf("title = %v, want %q", title, "Click me")
	}
}

func TestBuildGenericWithHeaderAppliesDefaults(t *testing.T) {
	header := &ComponentHeader{
		Name: "button",
		Params: []ParamSpec{
			{Name: "title", Required: true},
			{Name: "value", Required: false, DefaultValue: []ValueOp{{Get: "title"}}},
		},
	}
	v, err := buildGeneric(map[string]*ComponentHeader{"button": header}, "button",
		[]primitive.Value{primitive.Str("Yes")}, source.Interval{})
	if err != nil {
		t.Fatalf("buildGeneric error = %v", err)
	}
	o := v.(*primitive.Object)
	value, _ := o.Get("value")
	if value != primitive.Str("Yes") {
		t.Errorf("value default = %v, want %q (copied from title)", value, "Yes")
	}
}

func TestBuildGenericMissingRequiredErrors(t *testing.T) {
	header := &ComponentHeader{Params: []ParamSpec{{Name: "title", Required: true}}}
	if _, err := buildGeneric(map[string]*ComponentHeader{"button": header}, "button", nil, source.Interval{}); err == nil {
		t.Fatal("buildGeneric should error when a required param is missing")
	}
}

func TestDurationArgRejectsNegative(t *testing.T) {
	if _, err := durationArg("Wait", []primitive.Value{primitive.Int(-1)}, source.Interval{}); err == nil {
		t.Fatal("durationArg should reject a negative duration")
	}
}

func TestBuiltinOneOfPicksAnArgument(t *testing.T) {
	args := []primitive.Value{primitive.Int(1), primitive.Int(2), primitive.Int(3)}
	v, err := builtinOneOf(args, source.Interval{})
	if err != nil {
		t.Fatalf("OneOf error = %v", err)
	}
	found := false
	for _, a := range args {
		if primitive.Equal(a, v) {
			found = true
		}
	}
	if !found {
		t.Errorf("OneOf result %v not among inputs %v", v, args)
	}
}

func TestBuiltinShuffleIsAPermutation(t *testing.T) {
	args := []primitive.Value{primitive.Int(1), primitive.Int(2), primitive.Int(3)}
	v, err := builtinShuffle(args, source.Interval{})
	if err != nil {
		t.Fatalf("Shuffle error = %v", err)
	}
	arr := v.(*primitive.Array)
	if len(arr.Items) != len(args) {
		t.Fatalf("len(shuffled) = %d, want %d", len(arr.Items), len(args))
	}
	for _, a := range args {
		found := false
		for _, s := range arr.Items {
			if primitive.Equal(a, s) {
				found = true
			}
		}
		if !found {
			t.Errorf("shuffled result missing input %v", a)
		}
	}
}

func TestBuiltinLength(t *testing.T) {
	tests := []struct {
		name string
		in   primitive.Value
		want int64
	}{
		{"string", primitive.Str("hello"), 5},
		{"array", primitive.NewArray(primitive.Int(1), primitive.Int(2)), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := builtinLength([]primitive.Value{tt.in}, source.Interval{})
			if err != nil {
				t.Fatalf("Length error = %v", err)
			}
			if v != primitive.Int(tt.want) {
				t.Errorf("Length() = %v, want %d", v, tt.want)
			}
		})
	}
}

func TestBuiltinFind(t *testing.T) {
	arr := primitive.NewArray(primitive.Str("a"), primitive.Str("b"), primitive.Str("c"))
	v, err := builtinFind([]primitive.Value{arr, primitive.Str("b")}, source.Interval{})
	if err != nil {
		t.Fatalf("Find error = %v", err)
	}
	if v != primitive.Int(1) {
		t.Errorf("Find() = %v, want 1", v)
	}

	v, err = builtinFind([]primitive.Value{arr, primitive.Str("z")}, source.Interval{})
	if err != nil {
		t.Fatalf("Find error = %v", err)
	}
	if v != primitive.Int(-1) {
		t.Errorf("Find() for missing element = %v, want -1", v)
	}
}

func TestBuiltinExists(t *testing.T) {
	v, err := builtinExists([]primitive.Value{primitive.Nil}, source.Interval{})
	if err != nil {
		t.Fatalf("Exists error = %v", err)
	}
	if v != primitive.Bool(false) {
		t.Errorf("Exists(null) = %v, want false", v)
	}

	v, err = builtinExists([]primitive.Value{primitive.Str("x")}, source.Interval{})
	if err != nil {
		t.Fatalf("Exists error = %v", err)
	}
	if v != primitive.Bool(true) {
		t.Errorf("Exists(\"x\") = %v, want true", v)
	}
}

func TestBuiltinUUIDProducesDistinctValues(t *testing.T) {
	a, err := builtinUUID(nil, source.Interval{})
	if err != nil {
		t.Fatalf("UUID error = %v", err)
	}
	b, err := builtinUUID(nil, source.Interval{})
	if err != nil {
		t.Fatalf("UUID error = %v", err)
	}
	if a == b {
		t.Error("two UUID() calls produced the same value")
	}
}

func TestBuiltinHTTPBuildsRequestObject(t *testing.T) {
	v, err := builtinHTTP([]primitive.Value{primitive.Str("https://example.com")}, source.Interval{})
	if err != nil {
		t.Fatalf("HTTP error = %v", err)
	}
	o := v.(*primitive.Object)
	if o.ContentType() != "http_request" {
		t.Errorf("content_type = %q, want http_request", o.ContentType())
	}
	if _, ok := o.Get("headers"); !ok {
		t.Error("HTTP() should initialize an empty headers object")
	}
}

func TestObjectEffectMethodsRejectWrongContentType(t *testing.T) {
	plain := primitive.NewObject()
	method, err := primitive.Lookup(plain, "sign", source.Interval{})
	if err != nil {
		t.Fatalf("Lookup(sign) error = %v", err)
	}
	if _, err := method.Fn(plain, []primitive.Value{primitive.Str("HS256"), primitive.Str("secret")}, source.Interval{}); err == nil {
		t.Fatal("sign on a plain object should error, not a jwt_builder")
	}
}

func TestLoadHeadersMissingDirIsNotAnError(t *testing.T) {
	headers, diags := loadHeaders(filepath.Join(t.TempDir(), "does-not-exist"))
	if len(diags) != 0 {
		t.Errorf("diags = %v, want none for a missing directory", diags)
	}
	if len(headers) != 0 {
		t.Errorf("headers = %v, want none", headers)
	}
}

func TestLoadHeadersDetectsCircularDefault(t *testing.T) {
	dir := t.TempDir()
	yaml := `
params:
  - a:
      required: false
      default_value:
        - $_get: b
  - b:
      required: false
      default_value:
        - $_get: a
`
	if err := os.WriteFile(filepath.Join(dir, "button.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatalf("write header: %v", err)
	}
	_, diags := loadHeaders(dir)
	if len(diags) == 0 {
		t.Fatal("expected a circular_default_value diagnostic")
	}
	if diags[0].Category != cerr.CategoryCircularDefault {
		t.Errorf("diag category = %q, want circular_default_value", diags[0].Category)
	}
}
