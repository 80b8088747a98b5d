package parser

import (
	"github.com/csml-dev/csml-engine/internal/ast"
	"github.com/csml-dev/csml-engine/internal/cerr"
	"github.com/csml-dev/csml-engine/internal/lexer"
	"github.com/csml-dev/csml-engine/internal/source"
)

func (p *Parser) parseStatement() (ast.Statement, *cerr.Error) {
	switch {
	case p.isKeyword("say"):
		return p.parseSay()
	case p.isKeyword("do"):
		return p.parseDo()
	case p.isKeyword("remember"):
		return p.parseRemember()
	case p.isKeyword("use"):
		return p.parseUse()
	case p.isKeyword("goto"):
		return p.parseGoto()
	case p.isKeyword("if"):
		return p.parseIf()
	case p.isKeyword("foreach"):
		return p.parseForeach()
	case p.isKeyword("break"):
		t := p.advance()
		return &ast.BreakStmt{StmtBase: ast.StmtBase{Interval: t.Interval}}, nil
	case p.isKeyword("continue"):
		t := p.advance()
		return &ast.ContinueStmt{StmtBase: ast.StmtBase{Interval: t.Interval}}, nil
	case p.isKeyword("return"):
		return p.parseReturn()
	case p.isKeyword("hold"):
		t := p.advance()
		return &ast.HoldStmt{StmtBase: ast.StmtBase{Interval: t.Interval}}, nil
	case p.isKeyword("import"):
		return p.parseImport()
	case p.isKeyword("fn"):
		return p.parseFnDecl()
	default:
		return nil, p.unexpected("statement")
	}
}

func (p *Parser) parseSay() (ast.Statement, *cerr.Error) {
	start, err := p.expectKeyword("say")
	if err != nil {
		return nil, err
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.SayStmt{StmtBase: ast.StmtBase{Interval: source.Span(start.Interval, expr.Span())}, Expr: expr}, nil
}

func (p *Parser) parseDo() (ast.Statement, *cerr.Error) {
	start, err := p.expectKeyword("do")
	if err != nil {
		return nil, err
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.DoStmt{StmtBase: ast.StmtBase{Interval: source.Span(start.Interval, expr.Span())}, Expr: expr}, nil
}

func (p *Parser) parseRemember() (ast.Statement, *cerr.Error) {
	start, err := p.expectKeyword("remember")
	if err != nil {
		return nil, err
	}
	name, err := p.expectIdent("memory key")
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKind(lexer.Assign, "`=`"); err != nil {
		return nil, err
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.RememberStmt{
		StmtBase: ast.StmtBase{Interval: source.Span(start.Interval, expr.Span())},
		Name:     name.Text,
		Expr:     expr,
	}, nil
}

func (p *Parser) parseUse() (ast.Statement, *cerr.Error) {
	start, err := p.expectKeyword("use")
	if err != nil {
		return nil, err
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("as"); err != nil {
		return nil, err
	}
	name, err := p.expectIdent("bound name")
	if err != nil {
		return nil, err
	}
	return &ast.UseStmt{
		StmtBase: ast.StmtBase{Interval: source.Span(start.Interval, name.Interval)},
		Expr:     expr,
		As:       name.Text,
	}, nil
}

func (p *Parser) parseGoto() (ast.Statement, *cerr.Error) {
	start, err := p.expectKeyword("goto")
	if err != nil {
		return nil, err
	}
	if p.cur().Kind == lexer.At {
		p.advance()
		target, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.GotoStmt{
			StmtBase:      ast.StmtBase{Interval: source.Span(start.Interval, target.Span())},
			DynamicTarget: target,
		}, nil
	}
	if p.isKeyword("flow") {
		p.advance()
		flowName, err := p.expectIdent("flow name")
		if err != nil {
			return nil, err
		}
		return &ast.GotoStmt{
			StmtBase: ast.StmtBase{Interval: source.Span(start.Interval, flowName.Interval)},
			Flow:     flowName.Text,
		}, nil
	}
	stepName, err := p.expectIdent("step name")
	if err != nil {
		return nil, err
	}
	end := stepName.Interval
	flowTarget := ""
	if p.isKeyword("flow") {
		p.advance()
		flowName, err := p.expectIdent("flow name")
		if err != nil {
			return nil, err
		}
		flowTarget = flowName.Text
		end = flowName.Interval
	}
	return &ast.GotoStmt{
		StmtBase: ast.StmtBase{Interval: source.Span(start.Interval, end)},
		Step:     stepName.Text,
		Flow:     flowTarget,
	}, nil
}

func (p *Parser) parseIf() (ast.Statement, *cerr.Error) {
	start, err := p.expectKeyword("if")
	if err != nil {
		return nil, err
	}
	var branches []ast.IfBranch
	cond, body, end, err := p.parseCondBlock()
	if err != nil {
		return nil, err
	}
	branches = append(branches, ast.IfBranch{Cond: cond, Body: body})

	var elseBlock *ast.Block
	for p.isKeyword("else") {
		p.advance()
		if p.isKeyword("if") {
			p.advance()
			cond, body, e, err := p.parseCondBlock()
			if err != nil {
				return nil, err
			}
			branches = append(branches, ast.IfBranch{Cond: cond, Body: body})
			end = e
			continue
		}
		if _, err := p.expectKind(lexer.LBrace, "`{`"); err != nil {
			return nil, err
		}
		elseBody, err := p.parseBlockUntil(lexer.RBrace)
		if err != nil {
			return nil, err
		}
		closeTok, err := p.expectKind(lexer.RBrace, "`}`")
		if err != nil {
			return nil, err
		}
		elseBlock = elseBody
		end = closeTok.Interval
		break
	}
	return &ast.IfStmt{
		StmtBase: ast.StmtBase{Interval: source.Span(start.Interval, end)},
		Branches: branches,
		Else:     elseBlock,
	}, nil
}

func (p *Parser) parseCondBlock() (ast.Expression, *ast.Block, source.Interval, *cerr.Error) {
	cond, err := p.parseExpr()
	if err != nil {
		return nil, nil, source.Interval{}, err
	}
	if _, err := p.expectKind(lexer.LBrace, "`{`"); err != nil {
		return nil, nil, source.Interval{}, err
	}
	body, err := p.parseBlockUntil(lexer.RBrace)
	if err != nil {
		return nil, nil, source.Interval{}, err
	}
	closeTok, err := p.expectKind(lexer.RBrace, "`}`")
	if err != nil {
		return nil, nil, source.Interval{}, err
	}
	return cond, body, closeTok.Interval, nil
}

func (p *Parser) parseForeach() (ast.Statement, *cerr.Error) {
	start, err := p.expectKeyword("foreach")
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKind(lexer.LParen, "`(`"); err != nil {
		return nil, err
	}
	valueVar, err := p.expectIdent("loop variable")
	if err != nil {
		return nil, err
	}
	indexVar := ""
	if p.cur().Kind == lexer.Comma {
		p.advance()
		idx, err := p.expectIdent("index variable")
		if err != nil {
			return nil, err
		}
		indexVar = idx.Text
	}
	if _, err := p.expectKind(lexer.RParen, "`)`"); err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("in"); err != nil {
		return nil, err
	}
	expr, err := p.parseExpr()
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
	return &ast.ForeachStmt{
		StmtBase: ast.StmtBase{Interval: source.Span(start.Interval, end.Interval)},
		ValueVar: valueVar.Text,
		IndexVar: indexVar,
		Expr:     expr,
		Body:     body,
	}, nil
}

func (p *Parser) parseReturn() (ast.Statement, *cerr.Error) {
	start, err := p.expectKeyword("return")
	if err != nil {
		return nil, err
	}
	iv := start.Interval
	var expr ast.Expression
	if canStartExpr(p.cur()) {
		expr, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
		iv = source.Span(start.Interval, expr.Span())
	}
	return &ast.ReturnStmt{StmtBase: ast.StmtBase{Interval: iv}, Expr: expr}, nil
}

func (p *Parser) parseImport() (ast.Statement, *cerr.Error) {
	start, err := p.expectKeyword("import")
	if err != nil {
		return nil, err
	}
	step, err := p.expectIdent("step name")
	if err != nil {
		return nil, err
	}
	as := ""
	if p.isKeyword("as") {
		p.advance()
		asName, err := p.expectIdent("alias")
		if err != nil {
			return nil, err
		}
		as = asName.Text
	}
	if _, err := p.expectKeyword("from"); err != nil {
		return nil, err
	}
	from, err := p.expectIdent("flow name")
	if err != nil {
		return nil, err
	}
	return &ast.ImportStmt{
		StmtBase: ast.StmtBase{Interval: source.Span(start.Interval, from.Interval)},
		Step:     step.Text,
		As:       as,
		From:     from.Text,
	}, nil
}
