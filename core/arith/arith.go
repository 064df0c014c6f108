// Package arith evaluates shell arithmetic expressions, as used by
// $((...)) substitutions. Evaluation reads and writes variables through
// the Env interface; assignments are a side effect of evaluation.
package arith

import (
	"fmt"
	"strconv"
	"strings"
)

// Env is the variable store arithmetic evaluation reads and writes.
// An unset variable reads as 0.
type Env interface {
	Get(name string) (string, bool)
	Set(name, value string)
}

// Error is an expression evaluation failure carrying the offending text.
type Error struct {
	Expr string
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("arithmetic error: %s: %q", e.Msg, e.Expr)
}

// Eval evaluates expr over env and returns the result.
func Eval(env Env, expr string) (int64, error) {
	toks, err := scan(expr)
	if err != nil {
		return 0, err
	}
	p := &parser{env: env, toks: toks, src: expr}
	v, err := p.assignment()
	if err != nil {
		return 0, err
	}
	if tok := p.tok(); tok.kind != tokEOF {
		return 0, &Error{Expr: tok.text, Msg: "unexpected token"}
	}
	return v, nil
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokNum
	tokIdent
	tokOp
)

type token struct {
	kind tokKind
	text string
	num  int64
}

// operators, longest first so compound forms win the scan.
var operators = []string{
	"<<=", ">>=",
	"<<", ">>", "<=", ">=", "==", "!=", "&&", "||",
	"+=", "-=", "*=", "/=", "%=", "&=", "^=", "|=",
	"+", "-", "*", "/", "%", "<", ">", "&", "^", "|",
	"~", "!", "=", "(", ")",
}

func scan(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n':
			i++
		case c >= '0' && c <= '9':
			j := i
			for j < len(src) && isNumChar(src[j]) {
				j++
			}
			text := src[i:j]
			n, err := strconv.ParseInt(text, 0, 64)
			if err != nil {
				return nil, &Error{Expr: text, Msg: "invalid number"}
			}
			toks = append(toks, token{kind: tokNum, text: text, num: n})
			i = j
		case isIdentStart(c):
			j := i
			for j < len(src) && isIdentChar(src[j]) {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: src[i:j]})
			i = j
		default:
			op := ""
			for _, cand := range operators {
				if strings.HasPrefix(src[i:], cand) {
					op = cand
					break
				}
			}
			if op == "" {
				return nil, &Error{Expr: string(c), Msg: "unexpected character"}
			}
			toks = append(toks, token{kind: tokOp, text: op})
			i += len(op)
		}
	}
	return append(toks, token{kind: tokEOF}), nil
}

func isNumChar(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' ||
		c >= 'A' && c <= 'F' || c == 'x' || c == 'X'
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}

type parser struct {
	env  Env
	toks []token
	pos  int
	src  string
}

func (p *parser) tok() token  { return p.toks[p.pos] }
func (p *parser) next() token { t := p.toks[p.pos]; p.pos++; return t }

func (p *parser) isOp(ops ...string) (string, bool) {
	tok := p.tok()
	if tok.kind != tokOp {
		return "", false
	}
	for _, op := range ops {
		if tok.text == op {
			return op, true
		}
	}
	return "", false
}

// readVar reads a variable as a signed integer: unset or empty is 0,
// anything non-numeric is an evaluation error.
func (p *parser) readVar(name string) (int64, error) {
	value, ok := p.env.Get(name)
	value = strings.TrimSpace(value)
	if !ok || value == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(value, 0, 64)
	if err != nil {
		return 0, &Error{Expr: name + "=" + value, Msg: "not a number"}
	}
	return n, nil
}

// assignment is the lowest-precedence, right-associative level: NAME = expr
// and the compound NAME OP= expr forms. The left-hand side must be a bare
// variable identifier.
func (p *parser) assignment() (int64, error) {
	if tok := p.tok(); tok.kind == tokIdent {
		if op, ok := p.peekAssignOp(); ok {
			name := p.next().text
			p.next() // the assignment operator
			rhs, err := p.assignment()
			if err != nil {
				return 0, err
			}
			result := rhs
			if op != "=" {
				old, err := p.readVar(name)
				if err != nil {
					return 0, err
				}
				result, err = applyBinary(strings.TrimSuffix(op, "="), old, rhs)
				if err != nil {
					return 0, err
				}
			}
			p.env.Set(name, strconv.FormatInt(result, 10))
			return result, nil
		}
	}
	return p.logicalOr()
}

func (p *parser) peekAssignOp() (string, bool) {
	tok := p.toks[p.pos+1]
	if tok.kind != tokOp {
		return "", false
	}
	switch tok.text {
	case "=", "+=", "-=", "*=", "/=", "%=", "<<=", ">>=", "&=", "^=", "|=":
		return tok.text, true
	}
	return "", false
}

func (p *parser) binaryLevel(next func() (int64, error), ops ...string) (int64, error) {
	left, err := next()
	if err != nil {
		return 0, err
	}
	for {
		op, ok := p.isOp(ops...)
		if !ok {
			return left, nil
		}
		p.next()
		right, err := next()
		if err != nil {
			return 0, err
		}
		left, err = applyBinary(op, left, right)
		if err != nil {
			return 0, err
		}
	}
}

func (p *parser) logicalOr() (int64, error) {
	return p.binaryLevel(p.logicalAnd, "||")
}

func (p *parser) logicalAnd() (int64, error) {
	return p.binaryLevel(p.bitOr, "&&")
}

func (p *parser) bitOr() (int64, error) {
	return p.binaryLevel(p.bitXor, "|")
}

func (p *parser) bitXor() (int64, error) {
	return p.binaryLevel(p.bitAnd, "^")
}

func (p *parser) bitAnd() (int64, error) {
	return p.binaryLevel(p.equality, "&")
}

func (p *parser) equality() (int64, error) {
	return p.binaryLevel(p.relational, "==", "!=")
}

func (p *parser) relational() (int64, error) {
	return p.binaryLevel(p.shift, "<", "<=", ">", ">=")
}

func (p *parser) shift() (int64, error) {
	return p.binaryLevel(p.additive, "<<", ">>")
}

func (p *parser) additive() (int64, error) {
	return p.binaryLevel(p.multiplicative, "+", "-")
}

func (p *parser) multiplicative() (int64, error) {
	return p.binaryLevel(p.unary, "*", "/", "%")
}

func (p *parser) unary() (int64, error) {
	if op, ok := p.isOp("~", "!", "-", "+"); ok {
		p.next()
		v, err := p.unary()
		if err != nil {
			return 0, err
		}
		switch op {
		case "~":
			return ^v, nil
		case "!":
			return boolToInt(v == 0), nil
		case "-":
			return -v, nil
		default:
			return v, nil
		}
	}
	return p.primary()
}

func (p *parser) primary() (int64, error) {
	switch tok := p.tok(); tok.kind {
	case tokNum:
		p.next()
		return tok.num, nil
	case tokIdent:
		p.next()
		return p.readVar(tok.text)
	case tokOp:
		if tok.text == "(" {
			p.next()
			v, err := p.assignment()
			if err != nil {
				return 0, err
			}
			if _, ok := p.isOp(")"); !ok {
				return 0, &Error{Expr: p.src, Msg: "missing )"}
			}
			p.next()
			return v, nil
		}
	}
	return 0, &Error{Expr: p.tok().text, Msg: "expected value"}
}

func applyBinary(op string, a, b int64) (int64, error) {
	switch op {
	case "*":
		return a * b, nil
	case "/":
		if b == 0 {
			return 0, &Error{Expr: fmt.Sprintf("%d / %d", a, b), Msg: "division by zero"}
		}
		return a / b, nil
	case "%":
		if b == 0 {
			return 0, &Error{Expr: fmt.Sprintf("%d %% %d", a, b), Msg: "division by zero"}
		}
		return a % b, nil
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "<<":
		return a << uint64(b), nil
	case ">>":
		return a >> uint64(b), nil
	case "<":
		return boolToInt(a < b), nil
	case "<=":
		return boolToInt(a <= b), nil
	case ">":
		return boolToInt(a > b), nil
	case ">=":
		return boolToInt(a >= b), nil
	case "==":
		return boolToInt(a == b), nil
	case "!=":
		return boolToInt(a != b), nil
	case "&":
		return a & b, nil
	case "^":
		return a ^ b, nil
	case "|":
		return a | b, nil
	case "&&":
		return boolToInt(a != 0 && b != 0), nil
	case "||":
		return boolToInt(a != 0 || b != 0), nil
	}
	return 0, &Error{Expr: op, Msg: "unknown operator"}
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
