package parser

import (
	"github.com/csml-dev/csml-engine/internal/ast"
	"github.com/csml-dev/csml-engine/internal/cerr"
	"github.com/csml-dev/csml-engine/internal/lexer"
	"github.com/csml-dev/csml-engine/internal/source"
)

func (p *Parser) parseExpr() (ast.Expression, *cerr.Error) {
	return p.parseAssignment()
}

func isAssignTarget(e ast.Expression) bool {
	switch e.(type) {
	case *ast.Ident, *ast.PathExpr, *ast.IndexExpr:
		return true
	default:
		return false
	}
}

func (p *Parser) parseAssignment() (ast.Expression, *cerr.Error) {
	left, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind == lexer.Assign {
		if !isAssignTarget(left) {
			return nil, p.err(left.Span(), cerr.CategoryUnexpectedToken, "invalid assignment target")
		}
		p.advance()
		value, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		return &ast.AssignExpr{
			ExprBase: ast.ExprBase{Interval: source.Span(left.Span(), value.Span())},
			Target:   left,
			Value:    value,
		}, nil
	}
	return left, nil
}

func (p *Parser) parseTernary() (ast.Expression, *cerr.Error) {
	cond, err := p.parseCoalesce()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind != lexer.Question {
		return cond, nil
	}
	p.advance()
	then, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKind(lexer.Colon, "`:`"); err != nil {
		return nil, err
	}
	els, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	return &ast.TernaryExpr{
		ExprBase: ast.ExprBase{Interval: source.Span(cond.Span(), els.Span())},
		Cond:     cond, Then: then, Else: els,
	}, nil
}

func (p *Parser) parseCoalesce() (ast.Expression, *cerr.Error) {
	left, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == lexer.Coalesce {
		p.advance()
		right, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{
			ExprBase: ast.ExprBase{Interval: source.Span(left.Span(), right.Span())},
			Op:       "??", Left: left, Right: right,
		}
	}
	return left, nil
}

func (p *Parser) parseOr() (ast.Expression, *cerr.Error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == lexer.Or {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{
			ExprBase: ast.ExprBase{Interval: source.Span(left.Span(), right.Span())},
			Op:       "||", Left: left, Right: right,
		}
	}
	return left, nil
}

func (p *Parser) parseAnd() (ast.Expression, *cerr.Error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == lexer.And {
		p.advance()
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{
			ExprBase: ast.ExprBase{Interval: source.Span(left.Span(), right.Span())},
			Op:       "&&", Left: left, Right: right,
		}
	}
	return left, nil
}

func (p *Parser) parseEquality() (ast.Expression, *cerr.Error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == lexer.Eq || p.cur().Kind == lexer.Neq {
		op := p.advance()
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{
			ExprBase: ast.ExprBase{Interval: source.Span(left.Span(), right.Span())},
			Op:       op.Text, Left: left, Right: right,
		}
	}
	return left, nil
}

func (p *Parser) parseRelational() (ast.Expression, *cerr.Error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == lexer.Gt || p.cur().Kind == lexer.Gte ||
		p.cur().Kind == lexer.Lt || p.cur().Kind == lexer.Lte {
		op := p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{
			ExprBase: ast.ExprBase{Interval: source.Span(left.Span(), right.Span())},
			Op:       op.Text, Left: left, Right: right,
		}
	}
	return left, nil
}

func (p *Parser) parseAdditive() (ast.Expression, *cerr.Error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == lexer.Plus || p.cur().Kind == lexer.Minus {
		op := p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{
			ExprBase: ast.ExprBase{Interval: source.Span(left.Span(), right.Span())},
			Op:       op.Text, Left: left, Right: right,
		}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (ast.Expression, *cerr.Error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == lexer.Star || p.cur().Kind == lexer.Slash || p.cur().Kind == lexer.Percent {
		op := p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{
			ExprBase: ast.ExprBase{Interval: source.Span(left.Span(), right.Span())},
			Op:       op.Text, Left: left, Right: right,
		}
	}
	return left, nil
}

func (p *Parser) parseUnary() (ast.Expression, *cerr.Error) {
	if p.cur().Kind == lexer.Bang || p.cur().Kind == lexer.Minus {
		op := p.advance()
		expr, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{
			ExprBase: ast.ExprBase{Interval: source.Span(op.Interval, expr.Span())},
			Op:       op.Text, Expr: expr,
		}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (ast.Expression, *cerr.Error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur().Kind {
		case lexer.Dot:
			p.advance()
			name, err := p.expectIdent("field or method name")
			if err != nil {
				return nil, err
			}
			if p.cur().Kind == lexer.LParen {
				args, end, err := p.parseArgList()
				if err != nil {
					return nil, err
				}
				expr = &ast.MethodCallExpr{
					ExprBase: ast.ExprBase{Interval: source.Span(expr.Span(), end)},
					Receiver: expr, Method: name.Text, Args: args,
				}
				continue
			}
			expr = &ast.PathExpr{
				ExprBase: ast.ExprBase{Interval: source.Span(expr.Span(), name.Interval)},
				Base:     expr, Field: name.Text,
			}
		case lexer.LBracket:
			p.advance()
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			end, err := p.expectKind(lexer.RBracket, "`]`")
			if err != nil {
				return nil, err
			}
			expr = &ast.IndexExpr{
				ExprBase: ast.ExprBase{Interval: source.Span(expr.Span(), end.Interval)},
				Base:     expr, Index: idx,
			}
		case lexer.LParen:
			args, end, err := p.parseArgList()
			if err != nil {
				return nil, err
			}
			expr = &ast.CallExpr{
				ExprBase: ast.ExprBase{Interval: source.Span(expr.Span(), end)},
				Callee:   expr, Args: args,
			}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parseArgList() ([]ast.Expression, source.Interval, *cerr.Error) {
	if _, err := p.expectKind(lexer.LParen, "`(`"); err != nil {
		return nil, source.Interval{}, err
	}
	var args []ast.Expression
	for p.cur().Kind != lexer.RParen {
		if len(args) > 0 {
			if _, err := p.expectKind(lexer.Comma, "`,`"); err != nil {
				return nil, source.Interval{}, err
			}
		}
		arg, err := p.parseExpr()
		if err != nil {
			return nil, source.Interval{}, err
		}
		args = append(args, arg)
	}
	end, err := p.expectKind(lexer.RParen, "`)`")
	if err != nil {
		return nil, source.Interval{}, err
	}
	return args, end.Interval, nil
}

func (p *Parser) parsePrimary() (ast.Expression, *cerr.Error) {
	tok := p.cur()
	switch tok.Kind {
	case lexer.Int:
		p.advance()
		return &ast.IntLit{ExprBase: ast.ExprBase{Interval: tok.Interval}, Value: tok.IntVal}, nil
	case lexer.Float:
		p.advance()
		return &ast.FloatLit{ExprBase: ast.ExprBase{Interval: tok.Interval}, Value: tok.FloatVal}, nil
	case lexer.String:
		p.advance()
		return p.buildStringLit(tok)
	case lexer.Ident:
		p.advance()
		return &ast.Ident{ExprBase: ast.ExprBase{Interval: tok.Interval}, Name: tok.Text}, nil
	case lexer.At:
		// bare `@IDENT` outside of `goto` is not otherwise legal; treat it
		// as a path reference for symmetry with goto's dynamic target.
		p.advance()
		return p.parseUnary()
	case lexer.LBracket:
		return p.parseArrayLit()
	case lexer.LBrace:
		return p.parseObjectLit()
	case lexer.LParen:
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectKind(lexer.RParen, "`)`"); err != nil {
			return nil, err
		}
		return inner, nil
	case lexer.Keyword:
		switch tok.Text {
		case "true", "false":
			p.advance()
			return &ast.BoolLit{ExprBase: ast.ExprBase{Interval: tok.Interval}, Value: tok.Text == "true"}, nil
		case "null":
			p.advance()
			return &ast.NullLit{ExprBase: ast.ExprBase{Interval: tok.Interval}}, nil
		case "fn":
			return p.parseClosureLit()
		}
	}
	return nil, p.unexpected("expression")
}

func (p *Parser) parseClosureLit() (ast.Expression, *cerr.Error) {
	start, err := p.expectKeyword("fn")
	if err != nil {
		return nil, err
	}
	params, err := p.parseParamList()
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
	return &ast.ClosureLit{
		ExprBase: ast.ExprBase{Interval: source.Span(start.Interval, end.Interval)},
		Params:   params, Body: body,
	}, nil
}

func (p *Parser) parseArrayLit() (ast.Expression, *cerr.Error) {
	start, err := p.expectKind(lexer.LBracket, "`[`")
	if err != nil {
		return nil, err
	}
	var elems []ast.Expression
	for p.cur().Kind != lexer.RBracket {
		if len(elems) > 0 {
			if _, err := p.expectKind(lexer.Comma, "`,`"); err != nil {
				return nil, err
			}
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
	}
	end, err := p.expectKind(lexer.RBracket, "`]`")
	if err != nil {
		return nil, err
	}
	return &ast.ArrayLit{
		ExprBase: ast.ExprBase{Interval: source.Span(start.Interval, end.Interval)},
		Elements: elems,
	}, nil
}

func (p *Parser) parseObjectLit() (ast.Expression, *cerr.Error) {
	start, err := p.expectKind(lexer.LBrace, "`{`")
	if err != nil {
		return nil, err
	}
	var keys []string
	var values []ast.Expression
	for p.cur().Kind != lexer.RBrace {
		if len(keys) > 0 {
			if _, err := p.expectKind(lexer.Comma, "`,`"); err != nil {
				return nil, err
			}
		}
		var key string
		switch p.cur().Kind {
		case lexer.Ident:
			key = p.advance().Text
		case lexer.Keyword:
			key = p.advance().Text
		case lexer.String:
			tok := p.advance()
			if len(tok.Segments) != 1 || tok.Segments[0].IsExpr {
				return nil, p.err(tok.Interval, cerr.CategoryUnexpectedToken, "object key must be a plain string")
			}
			key = tok.Segments[0].Text
		default:
			return nil, p.unexpected("object key")
		}
		if _, err := p.expectKind(lexer.Colon, "`:`"); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
		values = append(values, val)
	}
	end, err := p.expectKind(lexer.RBrace, "`}`")
	if err != nil {
		return nil, err
	}
	return &ast.ObjectLit{
		ExprBase: ast.ExprBase{Interval: source.Span(start.Interval, end.Interval)},
		Keys:     keys, Values: values,
	}, nil
}

// buildStringLit turns a lexed string token's literal/interpolation
// segments into an ast.StringLit, recursively parsing each interpolation
// segment's raw source as an independent expression.
func (p *Parser) buildStringLit(tok lexer.Token) (ast.Expression, *cerr.Error) {
	parts := make([]ast.StringPart, 0, len(tok.Segments))
	for _, seg := range tok.Segments {
		if !seg.IsExpr {
			parts = append(parts, ast.StringPart{Literal: seg.Text})
			continue
		}
		expr, err := parseInterpolation(p.file, seg.Raw)
		if err != nil {
			return nil, err
		}
		parts = append(parts, ast.StringPart{Expr: expr})
	}
	return &ast.StringLit{ExprBase: ast.ExprBase{Interval: tok.Interval}, Parts: parts}, nil
}

// parseInterpolation parses the raw text of a `{{ ... }}` segment as a
// single expression. Interval positions within it are relative to the
// segment's own start, not the enclosing file — acceptable here since
// interpolation bodies are normally short, single-line expressions.
func parseInterpolation(file, raw string) (ast.Expression, *cerr.Error) {
	toks, err := lexer.Tokenize(file, raw)
	if err != nil {
		return nil, err
	}
	sub := &Parser{file: file, toks: toks}
	expr, err := sub.parseExpr()
	if err != nil {
		return nil, err
	}
	if sub.cur().Kind != lexer.EOF {
		return nil, sub.unexpected("end of interpolation")
	}
	return expr, nil
}
