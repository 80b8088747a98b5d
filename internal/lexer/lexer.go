package lexer

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/csml-dev/csml-engine/internal/cerr"
	"github.com/csml-dev/csml-engine/internal/source"
)

var singlePunct = map[byte]Kind{
	'{': LBrace, '}': RBrace, '(': LParen, ')': RParen,
	'[': LBracket, ']': RBracket, ',': Comma, ':': Colon,
	'.': Dot, '?': Question, '=': Assign, '>': Gt, '<': Lt,
	'!': Bang, '+': Plus, '-': Minus, '*': Star, '/': Slash,
	'%': Percent, '@': At,
}

// Lexer scans one flow's UTF-8 source into a token stream.
type Lexer struct {
	file string
	src  []byte
	pos  int
	line int
	col  int
}

// New builds a Lexer over src. file names the flow, used in diagnostics.
func New(file, src string) *Lexer {
	return &Lexer{file: file, src: []byte(src), pos: 0, line: 1, col: 1}
}

// Tokenize scans the full source and returns its token stream, terminated
// by a single EOF token. It stops at the first malformed input and
// returns a structured error; it never panics (spec §4.1).
func Tokenize(file, src string) ([]Token, *cerr.Error) {
	l := New(file, src)
	var toks []Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == EOF {
			return toks, nil
		}
	}
}

func (l *Lexer) here() source.Interval {
	return source.Interval{StartLine: l.line, StartCol: l.col, EndLine: l.line, EndCol: l.col, ByteOffset: l.pos}
}

func (l *Lexer) eof() bool { return l.pos >= len(l.src) }

func (l *Lexer) peek() byte {
	if l.eof() {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekAt(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

// advance consumes one byte, tracking line/column. Tabs count as a single
// column (the original source does not expand tabs; neither does this).
func (l *Lexer) advance() byte {
	b := l.src[l.pos]
	l.pos++
	if b == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return b
}

func (l *Lexer) err(iv source.Interval, cat cerr.Category, format string, args ...any) *cerr.Error {
	return cerr.New(l.file, iv, cat, format, args...)
}

func (l *Lexer) next() (Token, *cerr.Error) {
	if err := l.skipSpaceAndComments(); err != nil {
		return Token{}, err
	}
	start := l.here()
	if l.eof() {
		return Token{Kind: EOF, Interval: start}, nil
	}

	c := l.peek()
	switch {
	case c == '"':
		return l.lexString(start)
	case isDigit(c):
		return l.lexNumber(start)
	case isIdentStart(c):
		return l.lexIdent(start)
	}

	// Punctuation and operators, longest-match first.
	two := string(c) + string(l.peekAt(1))
	switch two {
	case "==":
		return l.consumeOp(start, Eq, two)
	case "!=":
		return l.consumeOp(start, Neq, two)
	case ">=":
		return l.consumeOp(start, Gte, two)
	case "<=":
		return l.consumeOp(start, Lte, two)
	case "&&":
		return l.consumeOp(start, And, two)
	case "||":
		return l.consumeOp(start, Or, two)
	case "??":
		return l.consumeOp(start, Coalesce, two)
	}

	if kind, ok := singlePunct[c]; ok {
		l.advance()
		return Token{Kind: kind, Text: string(c), Interval: l.span(start)}, nil
	}

	l.advance()
	return Token{}, l.err(start, cerr.CategoryUnexpectedToken, "unexpected character %q", c)
}

func (l *Lexer) consumeOp(start source.Interval, kind Kind, text string) (Token, *cerr.Error) {
	l.advance()
	l.advance()
	return Token{Kind: kind, Text: text, Interval: l.span(start)}, nil
}

func (l *Lexer) span(start source.Interval) source.Interval {
	end := l.here()
	return source.Span(start, end)
}

func (l *Lexer) skipSpaceAndComments() *cerr.Error {
	for {
		switch {
		case !l.eof() && isSpace(l.peek()):
			l.advance()
		case l.peek() == '/' && l.peekAt(1) == '/':
			for !l.eof() && l.peek() != '\n' {
				l.advance()
			}
		case l.peek() == '/' && l.peekAt(1) == '*':
			start := l.here()
			l.advance()
			l.advance()
			closed := false
			for !l.eof() {
				if l.peek() == '*' && l.peekAt(1) == '/' {
					l.advance()
					l.advance()
					closed = true
					break
				}
				l.advance()
			}
			if !closed {
				return l.err(start, cerr.CategoryUnexpectedToken, "unterminated block comment")
			}
		default:
			return nil
		}
	}
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\r' || b == '\n' }
func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b >= utf8.RuneSelf
}
func isIdentCont(b byte) bool { return isIdentStart(b) || isDigit(b) }

func (l *Lexer) lexIdent(start source.Interval) (Token, *cerr.Error) {
	begin := l.pos
	for !l.eof() && isIdentCont(l.peek()) {
		l.advance()
	}
	text := string(l.src[begin:l.pos])
	iv := l.span(start)
	if keywords[text] {
		return Token{Kind: Keyword, Text: text, Interval: iv}, nil
	}
	return Token{Kind: Ident, Text: text, Interval: iv}, nil
}

func (l *Lexer) lexNumber(start source.Interval) (Token, *cerr.Error) {
	begin := l.pos
	for !l.eof() && isDigit(l.peek()) {
		l.advance()
	}
	isFloat := false
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		isFloat = true
		l.advance()
		for !l.eof() && isDigit(l.peek()) {
			l.advance()
		}
	}
	text := string(l.src[begin:l.pos])
	iv := l.span(start)
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Token{}, l.err(iv, cerr.CategoryUnexpectedToken, "invalid float literal %q", text)
		}
		return Token{Kind: Float, Text: text, FloatVal: f, Interval: iv}, nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return Token{}, l.err(iv, cerr.CategoryUnexpectedToken, "invalid int literal %q", text)
	}
	return Token{Kind: Int, Text: text, IntVal: n, Interval: iv}, nil
}

// lexString scans a double-quoted string literal into literal/interpolation
// segments. Escapes \n \t \r \\ \" \' are recognized; any other \c reduces
// to c; \{{ and \}} escape interpolation braces literally (spec §4.1).
func (l *Lexer) lexString(start source.Interval) (Token, *cerr.Error) {
	l.advance() // opening quote
	var segs []Segment
	var lit strings.Builder

	flushLiteral := func() {
		if lit.Len() > 0 {
			segs = append(segs, Segment{Text: lit.String()})
			lit.Reset()
		}
	}

	for {
		if l.eof() {
			return Token{}, l.err(start, cerr.CategoryUnterminatedString, "unterminated string literal")
		}
		c := l.peek()
		switch {
		case c == '"':
			l.advance()
			flushLiteral()
			return Token{Kind: String, Segments: segs, Interval: l.span(start)}, nil
		case c == '\\' && l.peekAt(1) == '{' && l.peekAt(2) == '{':
			l.advance()
			l.advance()
			l.advance()
			lit.WriteString("{{")
		case c == '\\' && l.peekAt(1) == '}' && l.peekAt(2) == '}':
			l.advance()
			l.advance()
			l.advance()
			lit.WriteString("}}")
		case c == '\\':
			l.advance()
			if l.eof() {
				return Token{}, l.err(start, cerr.CategoryUnterminatedString, "unterminated string literal")
			}
			esc := l.advance()
			switch esc {
			case 'n':
				lit.WriteByte('\n')
			case 't':
				lit.WriteByte('\t')
			case 'r':
				lit.WriteByte('\r')
			case '\\':
				lit.WriteByte('\\')
			case '"':
				lit.WriteByte('"')
			case '\'':
				lit.WriteByte('\'')
			default:
				lit.WriteByte(esc)
			}
		case c == '{' && l.peekAt(1) == '{':
			l.advance()
			l.advance()
			flushLiteral()
			raw, err := l.lexInterpolationRaw(start)
			if err != nil {
				return Token{}, err
			}
			segs = append(segs, Segment{IsExpr: true, Raw: raw})
		default:
			lit.WriteByte(l.advance())
		}
	}
}

// lexInterpolationRaw consumes an expression's raw source up to the
// matching closing "}}", tracking single-brace depth so the interpolated
// expression may itself contain object literals.
func (l *Lexer) lexInterpolationRaw(stringStart source.Interval) (string, *cerr.Error) {
	var raw strings.Builder
	depth := 0
	for {
		if l.eof() {
			return "", l.err(stringStart, cerr.CategoryUnterminatedString, "unterminated interpolation, expected \"}}\"")
		}
		c := l.peek()
		if c == '}' && depth == 0 && l.peekAt(1) == '}' {
			l.advance()
			l.advance()
			return raw.String(), nil
		}
		if c == '{' {
			depth++
		} else if c == '}' {
			depth--
		}
		raw.WriteByte(l.advance())
	}
}
