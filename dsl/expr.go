package dsl

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/comsec-group/phoenix-sub000/dram"
)

// An AddressLookup supplies the address arrays that a program may index.
// The two array names a program can reference are "addresses" and "decoys".
type AddressLookup map[string][]dram.Address

// An Env holds the variable bindings and address arrays that an expression
// is evaluated against.
type Env struct {
	Vars   map[string]int
	Arrays AddressLookup
}

// Bind returns a copy of the environment with one more variable bound.
func (e Env) Bind(name string, value int) Env {
	vars := make(map[string]int, len(e.Vars)+1)
	for k, v := range e.Vars {
		vars[k] = v
	}
	vars[name] = value

	return Env{Vars: vars, Arrays: e.Arrays}
}

// An Expr is one node of the closed expression grammar: integer literals,
// bound variables, the four arithmetic operators, and indexed access into an
// address array with a .bank or .row field selector.
type Expr interface {
	// Eval computes the value of the expression under the given environment.
	Eval(env Env) (int, error)

	String() string
}

// A Literal is a constant integer operand.
type Literal struct {
	Value int
}

func (l Literal) Eval(Env) (int, error) {
	return l.Value, nil
}

func (l Literal) String() string {
	return strconv.Itoa(l.Value)
}

// A Variable references a loop variable bound by an enclosing for block.
type Variable struct {
	Name string
}

func (v Variable) Eval(env Env) (int, error) {
	value, ok := env.Vars[v.Name]
	if !ok {
		return 0, fmt.Errorf("unbound variable %q", v.Name)
	}

	return value, nil
}

func (v Variable) String() string {
	return v.Name
}

// BinaryOp applies one of + - * / to two sub-expressions.
type BinaryOp struct {
	Op    byte
	Left  Expr
	Right Expr
}

func (b BinaryOp) Eval(env Env) (int, error) {
	left, err := b.Left.Eval(env)
	if err != nil {
		return 0, err
	}

	right, err := b.Right.Eval(env)
	if err != nil {
		return 0, err
	}

	switch b.Op {
	case '+':
		return left + right, nil
	case '-':
		return left - right, nil
	case '*':
		return left * right, nil
	case '/':
		if right == 0 {
			return 0, fmt.Errorf("division by zero in %q", b.String())
		}
		return left / right, nil
	default:
		return 0, fmt.Errorf("unsupported operator %q", string(b.Op))
	}
}

func (b BinaryOp) String() string {
	return fmt.Sprintf("(%s %c %s)", b.Left, b.Op, b.Right)
}

// ArrayRef reads the .bank or .row field of one element of an address array,
// e.g. addresses[i+1].row.
type ArrayRef struct {
	Array string
	Index Expr
	Field string
}

func (a ArrayRef) Eval(env Env) (int, error) {
	addrs, ok := env.Arrays[a.Array]
	if !ok {
		return 0, fmt.Errorf("unknown address array %q", a.Array)
	}

	index, err := a.Index.Eval(env)
	if err != nil {
		return 0, err
	}

	if index < 0 || index >= len(addrs) {
		return 0, fmt.Errorf("index %d outside %s[0:%d]",
			index, a.Array, len(addrs))
	}

	switch a.Field {
	case "bank":
		return addrs[index].Bank, nil
	case "row":
		return addrs[index].Row, nil
	default:
		return 0, fmt.Errorf("unknown field %q on %s[%d]",
			a.Field, a.Array, index)
	}
}

func (a ArrayRef) String() string {
	return fmt.Sprintf("%s[%s].%s", a.Array, a.Index, a.Field)
}

// arrayNames are the only arrays a program may reference.
var arrayNames = map[string]bool{
	"addresses": true,
	"decoys":    true,
}

// ParseExpr parses one operand expression. Anything outside the closed
// grammar (literals, variables, + - * /, parentheses, array access) is
// rejected.
func ParseExpr(s string) (Expr, error) {
	p := &exprParser{src: s}

	expr, err := p.parseAddSub()
	if err != nil {
		return nil, err
	}

	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, fmt.Errorf("unexpected %q in expression %q",
			p.src[p.pos:], s)
	}

	return expr, nil
}

type exprParser struct {
	src string
	pos int
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}

	return p.src[p.pos]
}

func (p *exprParser) parseAddSub() (Expr, error) {
	left, err := p.parseMulDiv()
	if err != nil {
		return nil, err
	}

	for {
		op := p.peek()
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++

		right, err := p.parseMulDiv()
		if err != nil {
			return nil, err
		}

		left = BinaryOp{Op: op, Left: left, Right: right}
	}
}

func (p *exprParser) parseMulDiv() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		op := p.peek()
		if op != '*' && op != '/' {
			return left, nil
		}
		p.pos++

		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		left = BinaryOp{Op: op, Left: left, Right: right}
	}
}

func (p *exprParser) parseUnary() (Expr, error) {
	if p.peek() == '-' {
		p.pos++

		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		return BinaryOp{Op: '-', Left: Literal{Value: 0}, Right: operand}, nil
	}

	return p.parsePrimary()
}

func (p *exprParser) parsePrimary() (Expr, error) {
	ch := p.peek()

	switch {
	case ch == '(':
		p.pos++
		inner, err := p.parseAddSub()
		if err != nil {
			return nil, err
		}
		if p.peek() != ')' {
			return nil, fmt.Errorf("missing ) in expression %q", p.src)
		}
		p.pos++
		return inner, nil

	case ch >= '0' && ch <= '9':
		start := p.pos
		for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
			p.pos++
		}
		value, err := strconv.Atoi(p.src[start:p.pos])
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", p.src[start:p.pos])
		}
		return Literal{Value: value}, nil

	case isIdentStart(ch):
		return p.parseIdent()

	default:
		return nil, fmt.Errorf("unexpected %q in expression %q",
			string(ch), p.src)
	}
}

func (p *exprParser) parseIdent() (Expr, error) {
	start := p.pos
	for p.pos < len(p.src) && isIdentPart(p.src[p.pos]) {
		p.pos++
	}
	name := p.src[start:p.pos]

	if p.peek() != '[' {
		if arrayNames[name] {
			return nil, fmt.Errorf(
				"array %q must be indexed and followed by .bank or .row", name)
		}
		return Variable{Name: name}, nil
	}

	if !arrayNames[name] {
		return nil, fmt.Errorf("unknown address array %q", name)
	}

	p.pos++
	index, err := p.parseAddSub()
	if err != nil {
		return nil, err
	}
	if p.peek() != ']' {
		return nil, fmt.Errorf("missing ] after %s[ in %q", name, p.src)
	}
	p.pos++

	if p.peek() != '.' {
		return nil, fmt.Errorf("%s[...] must select .bank or .row", name)
	}
	p.pos++

	fieldStart := p.pos
	for p.pos < len(p.src) && isIdentPart(p.src[p.pos]) {
		p.pos++
	}
	field := p.src[fieldStart:p.pos]

	if field != "bank" && field != "row" {
		return nil, fmt.Errorf("unknown field %q on %s[...]", field, name)
	}

	return ArrayRef{Array: name, Index: index, Field: field}, nil
}

func isIdentStart(b byte) bool {
	return b == '_' || unicode.IsLetter(rune(b))
}

func isIdentPart(b byte) bool {
	return isIdentStart(b) || unicode.IsDigit(rune(b))
}

// parseOperand turns operand text into an expression, folding the common case
// of a bare integer without going through the expression grammar.
func parseOperand(s string) (Expr, error) {
	trimmed := strings.TrimSpace(s)
	if value, err := strconv.Atoi(trimmed); err == nil {
		return Literal{Value: value}, nil
	}

	return ParseExpr(trimmed)
}
