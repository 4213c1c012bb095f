package formula

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrSyntax reports that a formula does not conform to the grammar.
var ErrSyntax = errors.New("invalid formula")

// SyntaxError carries the byte offset where parsing failed.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: %s at position %d", ErrSyntax, e.Msg, e.Pos)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

func syntaxErrorf(pos int, format string, args ...any) error {
	return &SyntaxError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// Expr is one node of a parsed formula.
type Expr struct {
	Name string `json:"name"`
	Args []any  `json:"args"`
}

func (e *Expr) String() string {
	b, err := json.Marshal(e)
	if err != nil {
		return e.Name
	}
	return string(b)
}

func newExpr(name string, args ...any) *Expr {
	if args == nil {
		args = []any{}
	}
	return &Expr{Name: name, Args: args}
}

var comparisons = map[string]string{
	"=":  "eq",
	"!=": "ne",
	"<":  "lt",
	"<=": "le",
	">":  "gt",
	">=": "ge",
}

// Parse parses src. An empty or blank formula yields a nil Expr and no error.
//
// A bare literal parses to a "literal" node so the result is always an *Expr.
func Parse(src string) (*Expr, error) {
	if strings.TrimSpace(src) == "" {
		return nil, nil
	}
	toks, err := (&lexer{src: src}).tokens()
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	v, err := p.testlist()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, syntaxErrorf(tok.pos, "unexpected %q", tok.text)
	}
	if e, ok := v.(*Expr); ok {
		return e, nil
	}
	return newExpr("literal", v), nil
}

// ParseJSON parses src and returns its JSON encoding, or nil for a blank formula.
func ParseJSON(src string) ([]byte, error) {
	e, err := Parse(src)
	if err != nil || e == nil {
		return nil, err
	}
	return json.Marshal(e)
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) advance() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) isOp(text string) bool {
	tok := p.peek()
	return tok.kind == tokOp && tok.text == text
}

func (p *parser) expect(text string) error {
	tok := p.peek()
	if tok.kind != tokOp || tok.text != text {
		if tok.kind == tokEOF {
			return syntaxErrorf(tok.pos, "expected %q, got end of input", text)
		}
		return syntaxErrorf(tok.pos, "expected %q, got %q", text, tok.text)
	}
	p.advance()
	return nil
}

func (p *parser) testlist() (any, error) {
	first, err := p.or()
	if err != nil {
		return nil, err
	}
	if !p.isOp(",") {
		return first, nil
	}
	args := []any{first}
	for p.isOp(",") {
		p.advance()
		next, err := p.or()
		if err != nil {
			return nil, err
		}
		args = append(args, next)
	}
	return newExpr("testlist", args...), nil
}

func (p *parser) binary(name, op string, operand func() (any, error)) (any, error) {
	left, err := operand()
	if err != nil {
		return nil, err
	}
	if !p.isOp(op) {
		return left, nil
	}
	args := []any{left}
	for p.isOp(op) {
		p.advance()
		right, err := operand()
		if err != nil {
			return nil, err
		}
		args = append(args, right)
	}
	return newExpr(name, args...), nil
}

func (p *parser) or() (any, error) { return p.binary("or", "|", p.and) }

func (p *parser) and() (any, error) { return p.binary("and", "&", p.not) }

func (p *parser) not() (any, error) {
	if p.isOp("!") {
		p.advance()
		v, err := p.not()
		if err != nil {
			return nil, err
		}
		return newExpr("not", v), nil
	}
	return p.comparison()
}

func (p *parser) comparison() (any, error) {
	left, err := p.arith()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		name, ok := comparisons[tok.text]
		if tok.kind != tokOp || !ok {
			return left, nil
		}
		p.advance()
		right, err := p.arith()
		if err != nil {
			return nil, err
		}
		left = newExpr(name, left, right)
	}
}

func (p *parser) arith() (any, error) {
	return p.leftAssoc(map[string]string{"+": "add", "-": "sub"}, p.term)
}

func (p *parser) term() (any, error) {
	return p.leftAssoc(map[string]string{"*": "mul", "/": "div", "%": "mod"}, p.factor)
}

func (p *parser) leftAssoc(ops map[string]string, operand func() (any, error)) (any, error) {
	left, err := operand()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		name, ok := ops[tok.text]
		if tok.kind != tokOp || !ok {
			return left, nil
		}
		p.advance()
		right, err := operand()
		if err != nil {
			return nil, err
		}
		left = newExpr(name, left, right)
	}
}

func (p *parser) factor() (any, error) {
	switch {
	case p.isOp("-"):
		p.advance()
		v, err := p.factor()
		if err != nil {
			return nil, err
		}
		switch n := v.(type) {
		case int64:
			return -n, nil
		case float64:
			return -n, nil
		}
		return newExpr("negative", v), nil
	case p.isOp("+"):
		p.advance()
		v, err := p.factor()
		if err != nil {
			return nil, err
		}
		return newExpr("positive", v), nil
	}
	return p.postfix()
}

func (p *parser) postfix() (any, error) {
	v, err := p.atom()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.isOp("("):
			callPos := p.peek().pos
			p.advance()
			args, err := p.arguments(")")
			if err != nil {
				return nil, err
			}
			v, err = call(v, args, callPos)
			if err != nil {
				return nil, err
			}
		case p.isOp("."):
			p.advance()
			tok := p.advance()
			if tok.kind != tokName {
				return nil, syntaxErrorf(tok.pos, "expected attribute name after '.'")
			}
			v = newExpr("getattr", v, newExpr("bind", tok.text))
		case p.isOp("["):
			p.advance()
			args, err := p.arguments("]")
			if err != nil {
				return nil, err
			}
			v = newExpr("filter", append([]any{v}, args...)...)
		default:
			return v, nil
		}
	}
}

// call turns `f(x)` into {f, [x]} and `obj.f(x)` into {f, [obj, x]}.
func call(target any, args []any, pos int) (any, error) {
	e, ok := target.(*Expr)
	if !ok {
		return nil, syntaxErrorf(pos, "literal is not callable")
	}
	switch e.Name {
	case "bind":
		return newExpr(e.Args[0].(string), args...), nil
	case "getattr":
		attr := e.Args[1].(*Expr)
		return newExpr(attr.Args[0].(string), append([]any{e.Args[0]}, args...)...), nil
	}
	return nil, syntaxErrorf(pos, "expression %q is not callable", e.Name)
}

// arguments reads a comma separated list up to the closing op. Keyword
// arguments `key: value` become {"bind", key} pairs wrapped in "kwarg".
func (p *parser) arguments(closing string) ([]any, error) {
	args := []any{}
	if p.isOp(closing) {
		p.advance()
		return args, nil
	}
	for {
		arg, err := p.argument()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.isOp(",") {
			p.advance()
			continue
		}
		if err := p.expect(closing); err != nil {
			return nil, err
		}
		return args, nil
	}
}

func (p *parser) argument() (any, error) {
	if tok := p.peek(); tok.kind == tokName && p.toks[p.pos+1].kind == tokOp && p.toks[p.pos+1].text == ":" {
		p.advance()
		p.advance()
		v, err := p.or()
		if err != nil {
			return nil, err
		}
		return newExpr("kwarg", tok.text, v), nil
	}
	return p.or()
}

func (p *parser) atom() (any, error) {
	tok := p.advance()
	switch tok.kind {
	case tokEOF:
		return nil, syntaxErrorf(tok.pos, "unexpected end of input")
	case tokString:
		return tok.text, nil
	case tokInt:
		n, err := strconv.ParseInt(tok.text, 10, 64)
		if err != nil {
			return nil, syntaxErrorf(tok.pos, "integer %s out of range", tok.text)
		}
		return n, nil
	case tokFloat:
		f, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, syntaxErrorf(tok.pos, "invalid number %s", tok.text)
		}
		return f, nil
	case tokName:
		switch tok.text {
		case "null":
			return nil, nil
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return newExpr("bind", tok.text), nil
	}

	switch tok.text {
	case "(":
		v, err := p.testlist()
		if err != nil {
			return nil, err
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		return v, nil
	case "[":
		items, err := p.arguments("]")
		if err != nil {
			return nil, err
		}
		return items, nil
	}
	return nil, syntaxErrorf(tok.pos, "unexpected %q", tok.text)
}
