// This file is part of kasm - an assembler for Kerbal Operating System
// assembly language (KASM).
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pp

import (
	"strconv"
	"strings"

	"github.com/kos-kasm/kasm/internal/diag"
	"github.com/kos-kasm/kasm/internal/lexer"
	"github.com/kos-kasm/kasm/internal/source"
	"github.com/kos-kasm/kasm/internal/token"
)

// Kind tags a Value's variant over the expression language's value
// universe: {Int, Float, Bool}.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindBool
)

// Value is the result of evaluating an expression tree: used by .rep,
// .if, .value, and any instruction operand written as an expression rather
// than a bare literal.
type Value struct {
	Kind Kind
	I    int64
	F    float64
	B    bool
}

func newInt(i int64) Value     { return Value{Kind: KindInt, I: i} }
func newFloat(f float64) Value { return Value{Kind: KindFloat, F: f} }
func newBool(b bool) Value     { return Value{Kind: KindBool, B: b} }

// ToBool implements the shared to_bool coercion: integers are truthy when
// nonzero, floats when nonzero, and bools pass through unchanged.
func (v Value) ToBool() bool {
	switch v.Kind {
	case KindInt:
		return v.I != 0
	case KindFloat:
		return v.F != 0
	default:
		return v.B
	}
}

// ToFloat coerces v to a float64, promoting an Int or Bool value.
func (v Value) ToFloat() float64 {
	switch v.Kind {
	case KindInt:
		return float64(v.I)
	case KindBool:
		if v.B {
			return 1
		}
		return 0
	default:
		return v.F
	}
}

// ToInt coerces v to an int64, truncating a Float value.
func (v Value) ToInt() int64 {
	switch v.Kind {
	case KindBool:
		if v.B {
			return 1
		}
		return 0
	case KindFloat:
		return int64(v.F)
	default:
		return v.I
	}
}

// exprParser walks a flat token slice (already macro-expanded) with
// precedence-climbing, per the grammar in spec.md §4.4: logical-or,
// logical-and, equality, relational, additive, multiplicative, unary,
// primary.
type exprParser struct {
	toks    []token.Token
	pos     int
	sm      *source.Manager
	h       *diag.Handler
	errSpan source.Span // span used for diagnostics when toks is empty
	failed  bool
}

// Eval evaluates a token list as an expression. ok is false if the
// expression was malformed or toks was empty; an error has already been
// reported to h in that case.
func Eval(toks []token.Token, sm *source.Manager, errSpan source.Span, h *diag.Handler) (Value, bool) {
	if len(toks) == 0 {
		h.SpanError(errSpan, "empty expression")
		return Value{}, false
	}
	p := &exprParser{toks: toks, sm: sm, h: h, errSpan: errSpan}
	v := p.parseOr()
	if p.failed {
		return Value{}, false
	}
	if p.pos != len(p.toks) {
		p.err(p.cur().Span, "unexpected trailing tokens in expression")
		return Value{}, false
	}
	return v, true
}

func (p *exprParser) cur() token.Token {
	if p.pos >= len(p.toks) {
		return token.Token{Kind: token.EOF, Span: p.errSpan}
	}
	return p.toks[p.pos]
}

func (p *exprParser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *exprParser) err(s source.Span, msg string) {
	if !p.failed {
		p.h.SpanError(s, msg)
	}
	p.failed = true
}

func (p *exprParser) parseOr() Value {
	left := p.parseAnd()
	for !p.failed && p.cur().Kind == token.PipePipe {
		p.advance()
		right := p.parseAnd()
		left = newBool(left.ToBool() || right.ToBool())
	}
	return left
}

func (p *exprParser) parseAnd() Value {
	left := p.parseEquality()
	for !p.failed && p.cur().Kind == token.AmpAmp {
		p.advance()
		right := p.parseEquality()
		left = newBool(left.ToBool() && right.ToBool())
	}
	return left
}

func (p *exprParser) parseEquality() Value {
	left := p.parseRelational()
	for !p.failed && (p.cur().Kind == token.EqEq || p.cur().Kind == token.NotEq) {
		op := p.advance().Kind
		right := p.parseRelational()
		eq := p.compare(left, right)
		if op == token.EqEq {
			left = newBool(eq)
		} else {
			left = newBool(!eq)
		}
	}
	return left
}

func (p *exprParser) compare(a, b Value) bool {
	if a.Kind == KindBool || b.Kind == KindBool {
		return a.ToBool() == b.ToBool()
	}
	if a.Kind == KindFloat || b.Kind == KindFloat {
		return a.ToFloat() == b.ToFloat()
	}
	return a.ToInt() == b.ToInt()
}

func (p *exprParser) parseRelational() Value {
	left := p.parseAdditive()
	for !p.failed {
		op := p.cur().Kind
		if op != token.Lt && op != token.LtEq && op != token.Gt && op != token.GtEq {
			break
		}
		p.advance()
		right := p.parseAdditive()
		left = newBool(p.relate(op, left, right))
	}
	return left
}

func (p *exprParser) relate(op token.Kind, a, b Value) bool {
	if a.Kind == KindFloat || b.Kind == KindFloat {
		x, y := a.ToFloat(), b.ToFloat()
		switch op {
		case token.Lt:
			return x < y
		case token.LtEq:
			return x <= y
		case token.Gt:
			return x > y
		default:
			return x >= y
		}
	}
	x, y := a.ToInt(), b.ToInt()
	switch op {
	case token.Lt:
		return x < y
	case token.LtEq:
		return x <= y
	case token.Gt:
		return x > y
	default:
		return x >= y
	}
}

func (p *exprParser) parseAdditive() Value {
	left := p.parseMultiplicative()
	for !p.failed && (p.cur().Kind == token.Plus || p.cur().Kind == token.Minus) {
		op := p.advance().Kind
		right := p.parseMultiplicative()
		left = p.arith(op, left, right)
	}
	return left
}

func (p *exprParser) parseMultiplicative() Value {
	left := p.parseUnary()
	for !p.failed && (p.cur().Kind == token.Star || p.cur().Kind == token.Slash || p.cur().Kind == token.Percent) {
		op := p.advance().Kind
		opSpan := p.toks[p.pos-1].Span
		right := p.parseUnary()
		left = p.arithDiv(op, left, right, opSpan)
	}
	return left
}

// arith implements + and - per the table in spec.md §4.4 (*, / and % are
// handled by arithDiv): any Double
// operand promotes the result to Double; otherwise Bool operands coerce to
// 0/1 and the result is Int.
func (p *exprParser) arith(op token.Kind, a, b Value) Value {
	if a.Kind == KindFloat || b.Kind == KindFloat {
		x, y := a.ToFloat(), b.ToFloat()
		switch op {
		case token.Plus:
			return newFloat(x + y)
		default:
			return newFloat(x - y)
		}
	}
	x, y := a.ToInt(), b.ToInt()
	switch op {
	case token.Plus:
		return newInt(x + y)
	default:
		return newInt(x - y)
	}
}

func (p *exprParser) arithDiv(op token.Kind, a, b Value, opSpan source.Span) Value {
	if a.Kind == KindFloat || b.Kind == KindFloat {
		x, y := a.ToFloat(), b.ToFloat()
		switch op {
		case token.Star:
			return newFloat(x * y)
		case token.Slash:
			if y == 0 {
				p.err(opSpan, "division by zero")
				return Value{}
			}
			return newFloat(x / y)
		default:
			p.err(opSpan, "'%' is not defined for floating-point operands")
			return Value{}
		}
	}
	x, y := a.ToInt(), b.ToInt()
	switch op {
	case token.Star:
		return newInt(x * y)
	case token.Slash:
		if y == 0 {
			p.err(opSpan, "division by zero")
			return Value{}
		}
		return newInt(x / y)
	default:
		if y == 0 {
			p.err(opSpan, "division by zero")
			return Value{}
		}
		return newInt(x % y)
	}
}

func (p *exprParser) parseUnary() Value {
	switch p.cur().Kind {
	case token.Minus:
		t := p.advance()
		v := p.parseUnary()
		if v.Kind == KindBool {
			p.err(t.Span, "unary '-' is not defined for bool")
			return Value{}
		}
		if v.Kind == KindFloat {
			return newFloat(-v.F)
		}
		return newInt(-v.I)
	case token.Tilde:
		t := p.advance()
		v := p.parseUnary()
		if v.Kind == KindFloat {
			p.err(t.Span, "unary '~' is not defined for float")
			return Value{}
		}
		return newInt(^v.ToInt())
	case token.Bang:
		p.advance()
		v := p.parseUnary()
		return newBool(!v.ToBool())
	default:
		return p.parsePrimary()
	}
}

func (p *exprParser) parsePrimary() Value {
	t := p.cur()
	switch t.Kind {
	case token.LParen:
		p.advance()
		v := p.parseOr()
		if p.cur().Kind != token.RParen {
			p.err(p.cur().Span, "expected ')'")
			return Value{}
		}
		p.advance()
		return v
	case token.True:
		p.advance()
		return newBool(true)
	case token.False:
		p.advance()
		return newBool(false)
	case token.Int:
		p.advance()
		n, err := strconv.ParseInt(stripUnderscores(p.sm.Text(t.Span)), 10, 64)
		if err != nil {
			p.err(t.Span, "malformed integer literal")
			return Value{}
		}
		return newInt(n)
	case token.Hex:
		p.advance()
		lex := stripUnderscores(p.sm.Text(t.Span))
		n, err := strconv.ParseInt(lex[2:], 16, 64)
		if err != nil {
			p.err(t.Span, "malformed hex literal")
			return Value{}
		}
		return newInt(n)
	case token.Binary:
		p.advance()
		lex := stripUnderscores(p.sm.Text(t.Span))
		n, err := strconv.ParseInt(lex[2:], 2, 64)
		if err != nil {
			p.err(t.Span, "malformed binary literal")
			return Value{}
		}
		return newInt(n)
	case token.Float:
		p.advance()
		f, err := strconv.ParseFloat(stripUnderscores(p.sm.Text(t.Span)), 64)
		if err != nil {
			p.err(t.Span, "malformed float literal")
			return Value{}
		}
		return newFloat(f)
	case token.String:
		p.err(t.Span, "a string literal is not valid in this expression")
		return Value{}
	default:
		p.err(t.Span, "expected an expression, found "+t.Kind.String())
		return Value{}
	}
}

func stripUnderscores(s string) string {
	if !strings.ContainsRune(s, '_') {
		return s
	}
	return strings.ReplaceAll(s, "_", "")
}

// unescapeString resolves a lexed string token's escapes to its runtime
// text, reusing the lexer's own rules so the two stay in lock-step.
func unescapeString(sm *source.Manager, t token.Token) string {
	return lexer.Unescape(sm.Text(t.Span))
}
