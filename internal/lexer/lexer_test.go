package lexer

import "testing"

func TestTokenizeKeywordsAndIdents(t *testing.T) {
	toks, err := Tokenize("t", "if foo goto start")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Kind{Keyword, Ident, Keyword, Ident, EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %+v", len(toks), len(want), toks)
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: got kind %d, want %d", i, toks[i].Kind, k)
		}
	}
}

func TestTokenizeNumbers(t *testing.T) {
	toks, err := Tokenize("t", "42 3.14")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toks[0].Kind != Int || toks[0].IntVal != 42 {
		t.Errorf("got %+v, want int 42", toks[0])
	}
	if toks[1].Kind != Float || toks[1].FloatVal != 3.14 {
		t.Errorf("got %+v, want float 3.14", toks[1])
	}
}

func TestTokenizeStringEscapes(t *testing.T) {
	toks, err := Tokenize("t", `"a\nb\{{c\}}d"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toks[0].Kind != String {
		t.Fatalf("got kind %d, want String", toks[0].Kind)
	}
	if len(toks[0].Segments) != 1 {
		t.Fatalf("got %d segments, want 1: %+v", len(toks[0].Segments), toks[0].Segments)
	}
	want := "a\nb{{c}}d"
	if toks[0].Segments[0].Text != want {
		t.Errorf("got %q, want %q", toks[0].Segments[0].Text, want)
	}
}

func TestTokenizeStringInterpolation(t *testing.T) {
	toks, err := Tokenize("t", `"hi {{ name }}!"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	segs := toks[0].Segments
	if len(segs) != 3 {
		t.Fatalf("got %d segments, want 3: %+v", len(segs), segs)
	}
	if segs[0].IsExpr || segs[0].Text != "hi " {
		t.Errorf("segment 0: got %+v", segs[0])
	}
	if !segs[1].IsExpr || segs[1].Raw != " name " {
		t.Errorf("segment 1: got %+v", segs[1])
	}
	if segs[2].IsExpr || segs[2].Text != "!" {
		t.Errorf("segment 2: got %+v", segs[2])
	}
}

func TestTokenizeInterpolationWithObjectLiteral(t *testing.T) {
	toks, err := Tokenize("t", `"{{ {a: 1}.a }}"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	segs := toks[0].Segments
	if len(segs) != 1 || !segs[0].IsExpr {
		t.Fatalf("got %+v", segs)
	}
	if segs[0].Raw != " {a: 1}.a " {
		t.Errorf("got %q", segs[0].Raw)
	}
}

func TestUnterminatedString(t *testing.T) {
	_, err := Tokenize("t", `"abc`)
	if err == nil {
		t.Fatal("expected error for unterminated string")
	}
}

func TestOperators(t *testing.T) {
	toks, err := Tokenize("t", "a == b && c != d ?? e")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Kind{Ident, Eq, Ident, And, Ident, Neq, Ident, Coalesce, Ident, EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: got kind %d, want %d", i, toks[i].Kind, k)
		}
	}
}

func TestComments(t *testing.T) {
	toks, err := Tokenize("t", "a // comment\n/* block */ b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Kind{Ident, Ident, EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %+v", len(toks), len(want), toks)
	}
}
