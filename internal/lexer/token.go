// Package lexer implements the byte-level UTF-8 scanner (C1): it turns
// flow source text into a flat token stream tagged with source.Interval,
// skipping whitespace and comments, and pre-splitting string literals
// into literal/interpolation segments for the parser.
package lexer

import "github.com/csml-dev/csml-engine/internal/source"

// Kind discriminates token types.
type Kind int

const (
	EOF Kind = iota
	Ident
	Keyword
	Int
	Float
	String
	At // '@', used only in `goto @expr`

	LBrace
	RBrace
	LParen
	RParen
	LBracket
	RBracket
	Comma
	Colon
	Dot
	Question

	Assign
	Eq
	Neq
	Gt
	Gte
	Lt
	Lte
	And
	Or
	Coalesce
	Bang
	Plus
	Minus
	Star
	Slash
	Percent
)

// keywords is the set recognized at the lexical layer. spec §4.1 names
// do, if, else, foreach, in, as, goto, step, flow, hold, break, continue,
// return, remember, use, import, from, true, false, null, fn; "say" is
// added here too (see parser.canStartExpr) so that a bare `return` (or
// `break`/`continue`/`hold`) is never ambiguous with a following `say`
// statement — every statement-leading token is then a keyword, and the
// parser only needs to special-case true/false/null/fn as keywords that
// also start an expression.
var keywords = map[string]bool{
	"do": true, "if": true, "else": true, "foreach": true, "in": true,
	"as": true, "goto": true, "step": true, "flow": true, "hold": true,
	"break": true, "continue": true, "return": true, "remember": true,
	"use": true, "import": true, "from": true, "true": true, "false": true,
	"null": true, "fn": true, "say": true,
}

// Segment is one fragment of a lexed string literal: either a literal run
// of decoded text, or the raw, unparsed source of an `{{ ... }}`
// interpolation (parsed into an expression later, by the parser, since
// the lexer does not recurse into nested expression grammar).
type Segment struct {
	IsExpr bool
	Text   string // decoded literal text, valid when !IsExpr
	Raw    string // raw source between the braces, valid when IsExpr
}

// Token is a single lexed unit.
type Token struct {
	Kind     Kind
	Text     string // identifier/keyword/operator text
	IntVal   int64
	FloatVal float64
	Segments []Segment // valid when Kind == String
	Interval source.Interval
}
