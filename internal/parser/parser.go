// Package parser implements the recursive-descent parser (C2): it
// consumes the lexer's token stream and produces the ast package's flow
// tree. It never panics on malformed input — every failure is returned as
// a *cerr.Error for the validator/caller to surface.
package parser

import (
	"github.com/csml-dev/csml-engine/internal/ast"
	"github.com/csml-dev/csml-engine/internal/cerr"
	"github.com/csml-dev/csml-engine/internal/lexer"
	"github.com/csml-dev/csml-engine/internal/source"
)

// Parse lexes and parses one flow's source into an ast.Flow.
func Parse(file, src string) (*ast.Flow, *cerr.Error) {
	toks, err := lexer.Tokenize(file, src)
	if err != nil {
		return nil, err
	}
	p := &Parser{file: file, toks: toks}
	return p.parseFlow()
}

// Parser holds the token stream and current read position. All parse*
// methods either succeed or return a *cerr.Error; none panic.
type Parser struct {
	file string
	toks []lexer.Token
	pos  int
}

func (p *Parser) cur() lexer.Token  { return p.toks[p.pos] }
func (p *Parser) peek(n int) lexer.Token {
	i := p.pos + n
	if i >= len(p.toks) {
		return p.toks[len(p.toks)-1] // EOF
	}
	return p.toks[i]
}

func (p *Parser) advance() lexer.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) err(iv source.Interval, cat cerr.Category, format string, args ...any) *cerr.Error {
	return cerr.New(p.file, iv, cat, format, args...)
}

func (p *Parser) unexpected(want string) *cerr.Error {
	t := p.cur()
	return p.err(t.Interval, cerr.CategoryUnexpectedToken, "expecting %s, got %q", want, tokenDesc(t))
}

func tokenDesc(t lexer.Token) string {
	if t.Kind == lexer.EOF {
		return "end of input"
	}
	if t.Text != "" {
		return t.Text
	}
	return "token"
}

func (p *Parser) expectKind(k lexer.Kind, want string) (lexer.Token, *cerr.Error) {
	if p.cur().Kind != k {
		return lexer.Token{}, p.unexpected(want)
	}
	return p.advance(), nil
}

// expectIdent is expectKind(lexer.Ident, ...) with one refinement: a
// reserved keyword in identifier position is reported as
// reserved_as_identifier, a more specific diagnostic than unexpected_token.
func (p *Parser) expectIdent(want string) (lexer.Token, *cerr.Error) {
	if p.cur().Kind == lexer.Keyword {
		return lexer.Token{}, p.err(p.cur().Interval, cerr.CategoryReservedAsIdent,
			"%q is a reserved keyword, expecting %s", p.cur().Text, want)
	}
	return p.expectKind(lexer.Ident, want)
}

func (p *Parser) isKeyword(text string) bool {
	return p.cur().Kind == lexer.Keyword && p.cur().Text == text
}

func (p *Parser) expectKeyword(text string) (lexer.Token, *cerr.Error) {
	if !p.isKeyword(text) {
		return lexer.Token{}, p.unexpected("`" + text + "`")
	}
	return p.advance(), nil
}

// statementLeadKeywords are keywords that only ever begin a statement,
// never an expression — used to decide whether a bare `return`, `hold`,
// `break`, or `continue` is followed by a value or by the next statement.
var statementLeadKeywords = map[string]bool{
	"do": true, "if": true, "foreach": true, "goto": true, "break": true,
	"continue": true, "return": true, "remember": true, "use": true,
	"import": true, "hold": true, "say": true,
}

// canStartExpr reports whether tok can begin an expression. A closing
// brace, EOF, and the statement-leading keywords above cannot; any other
// token can, including true/false/null/fn, which double as expression
// leaders (literals and closures).
func canStartExpr(tok lexer.Token) bool {
	if tok.Kind == lexer.RBrace || tok.Kind == lexer.EOF {
		return false
	}
	if tok.Kind == lexer.Keyword && statementLeadKeywords[tok.Text] {
		return false
	}
	return true
}

// parseFlow parses an entire flow file: a sequence of top-level `step`
// and `fn` declarations.
func (p *Parser) parseFlow() (*ast.Flow, *cerr.Error) {
	flow := &ast.Flow{Name: p.file, Interval: p.cur().Interval}
	seenSteps := map[string]bool{}
	for p.cur().Kind != lexer.EOF {
		switch {
		case p.isKeyword("step"):
			step, err := p.parseStepDecl()
			if err != nil {
				return nil, err
			}
			if seenSteps[step.Name] {
				return nil, p.err(step.Interval, cerr.CategoryDuplicateStep, "duplicate step %q", step.Name)
			}
			seenSteps[step.Name] = true
			flow.Steps = append(flow.Steps, step)
		case p.isKeyword("fn"):
			fn, err := p.parseFnDecl()
			if err != nil {
				return nil, err
			}
			flow.Functions = append(flow.Functions, fn)
		default:
			return nil, p.unexpected("`step` or `fn`")
		}
	}
	if len(flow.Steps) == 0 {
		return nil, p.err(flow.Interval, cerr.CategoryEmptyFlow, "flow %q has no steps", flow.Name)
	}
	return flow, nil
}

func (p *Parser) parseStepDecl() (*ast.Step, *cerr.Error) {
	start := p.cur().Interval
	if _, err := p.expectKeyword("step"); err != nil {
		return nil, err
	}
	name, err := p.expectIdent("step name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKind(lexer.LBrace, "`{`"); err != nil {
		return nil, err
	}
	body, err := p.parseBlockUntil(lexer.RBrace)
	if err != nil {
		return nil, err
	}
	end, err := p.expectKind(lexer.RBrace, "`}`")
	if err != nil {
		return nil, err
	}
	return &ast.Step{Name: name.Text, Body: body, Interval: source.Span(start, end.Interval)}, nil
}

func (p *Parser) parseFnDecl() (*ast.FnStmt, *cerr.Error) {
	start := p.cur().Interval
	if _, err := p.expectKeyword("fn"); err != nil {
		return nil, err
	}
	name, err := p.expectIdent("function name")
	if err != nil {
		return nil, err
	}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKind(lexer.Colon, "`:`"); err != nil {
		return nil, err
	}
	if _, err := p.expectKind(lexer.LBrace, "`{`"); err != nil {
		return nil, err
	}
	body, err := p.parseBlockUntil(lexer.RBrace)
	if err != nil {
		return nil, err
	}
	end, err := p.expectKind(lexer.RBrace, "`}`")
	if err != nil {
		return nil, err
	}
	return &ast.FnStmt{
		StmtBase: ast.StmtBase{Interval: source.Span(start, end.Interval)},
		Name:     name.Text,
		Params:   params,
		Body:     body,
	}, nil
}

func (p *Parser) parseParamList() ([]string, *cerr.Error) {
	if _, err := p.expectKind(lexer.LParen, "`(`"); err != nil {
		return nil, err
	}
	var params []string
	for p.cur().Kind != lexer.RParen {
		if len(params) > 0 {
			if _, err := p.expectKind(lexer.Comma, "`,`"); err != nil {
				return nil, err
			}
		}
		name, err := p.expectIdent("parameter name")
		if err != nil {
			return nil, err
		}
		params = append(params, name.Text)
	}
	if _, err := p.expectKind(lexer.RParen, "`)`"); err != nil {
		return nil, err
	}
	return params, nil
}

// parseBlockUntil parses statements until the current token is `until`
// (not consumed) or EOF.
func (p *Parser) parseBlockUntil(until lexer.Kind) (*ast.Block, *cerr.Error) {
	block := &ast.Block{}
	for p.cur().Kind != until && p.cur().Kind != lexer.EOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Statements = append(block.Statements, stmt)
	}
	return block, nil
}
