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
	"github.com/kos-kasm/kasm/internal/diag"
	"github.com/kos-kasm/kasm/internal/source"
	"github.com/kos-kasm/kasm/internal/token"
)

// parser builds a PAST from a post-phase-0/1 token stream: whitespace is
// already gone, newlines remain as statement separators.
type parser struct {
	toks []token.Token
	pos  int
	sm   *source.Manager
	h    *diag.Handler
}

// Parse consumes toks (already run through lexer.Phase0/Phase1) and returns
// the top-level PAST body.
func Parse(toks []token.Token, sm *source.Manager, h *diag.Handler) []Node {
	p := &parser{toks: toks, sm: sm, h: h}
	return p.parseBody(nil)
}

func (p *parser) cur() token.Token {
	if p.pos >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[p.pos]
}

func (p *parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *parser) text(t token.Token) string {
	return p.sm.Text(t.Span)
}

var clauseTerminators = map[token.Kind]bool{
	token.DirElif: true, token.DirElifn: true, token.DirElifdef: true, token.DirElifndef: true,
	token.DirElse: true, token.DirEndif: true,
}

// directiveStart reports whether k begins a construct that parseBody
// recognizes on its own (as opposed to a plain token that's part of a
// BenignTokens run or an identifier that might be a macro invocation).
func directiveStart(k token.Kind) bool {
	switch k {
	case token.DirDefine, token.DirMacro, token.DirUndef, token.DirUnmacro,
		token.DirRep, token.DirInclude,
		token.DirIf, token.DirIfn, token.DirIfdef, token.DirIfndef,
		token.DirLine:
		return true
	default:
		return false
	}
}

// isStructural reports whether k is ever handled specially by parseBody's
// switch -- either as a construct opener or as one of the
// .elif*/.else/.endif/.endmacro/.endrep terminators. parseBenignRun must
// never swallow one of these into a plain token run, regardless of which
// stop set the caller passed in, or a well-formed terminator could vanish
// into the previous BenignTokens node.
func isStructural(k token.Kind) bool {
	if directiveStart(k) || k == token.Ident || k == token.EOF {
		return true
	}
	switch k {
	case token.DirElif, token.DirElifn, token.DirElifdef, token.DirElifndef,
		token.DirElse, token.DirEndif, token.DirEndmacro, token.DirEndrep:
		return true
	default:
		return false
	}
}

// parseBody parses a sequence of PAST nodes until EOF or until the current
// token's kind is in stop (the stop token itself is left unconsumed).
func (p *parser) parseBody(stop map[token.Kind]bool) []Node {
	var nodes []Node
	for {
		k := p.cur().Kind
		if k == token.EOF {
			return nodes
		}
		if stop != nil && stop[k] {
			return nodes
		}
		switch k {
		case token.DirDefine:
			nodes = append(nodes, p.parseSLMacroDef())
		case token.DirMacro:
			nodes = append(nodes, p.parseMLMacroDef())
		case token.DirUndef, token.DirUnmacro:
			nodes = append(nodes, p.parseUndef())
		case token.DirRep:
			nodes = append(nodes, p.parseRepeat())
		case token.DirInclude:
			nodes = append(nodes, p.parseInclude())
		case token.DirIf, token.DirIfn, token.DirIfdef, token.DirIfndef:
			nodes = append(nodes, p.parseIfStatement())
		case token.DirLine:
			p.reportLineUnsupported()
		case token.DirElif, token.DirElifn, token.DirElifdef, token.DirElifndef,
			token.DirElse, token.DirEndif, token.DirEndmacro, token.DirEndrep:
			t := p.advance()
			p.h.SpanError(t.Span, "unmatched "+t.Kind.String())
		case token.Ident:
			nodes = append(nodes, p.parseMacroInvocation())
		default:
			nodes = append(nodes, p.parseBenignRun(stop))
		}
	}
}

// parseBenignRun collects a maximal run of tokens that needs no further PAST
// structure: anything that is not an identifier (a macro-invocation
// candidate), not the start of a directive construct, and not in the
// caller's stop set.
func (p *parser) parseBenignRun(stop map[token.Kind]bool) Node {
	start := p.pos
	for {
		if k := p.cur().Kind; isStructural(k) || stop[k] {
			break
		}
		p.pos++
	}
	if p.pos == start {
		p.pos++ // always make progress
	}
	return BenignTokens{Tokens: append([]token.Token(nil), p.toks[start:p.pos]...)}
}

// parseMacroInvocation reads an identifier, optionally followed directly by
// a parenthesized, comma-separated argument list. Whether it actually names
// a macro is resolved later, by the executor.
func (p *parser) parseMacroInvocation() Node {
	name := p.advance()
	var args [][]token.Token
	if p.cur().Kind == token.LParen {
		p.advance()
		if p.cur().Kind != token.RParen {
			for {
				args = append(args, p.parseExprTokensUntil(token.Comma, token.RParen))
				if p.cur().Kind == token.Comma {
					p.advance()
					continue
				}
				break
			}
		}
		if p.cur().Kind == token.RParen {
			p.advance()
		} else {
			p.h.SpanError(p.cur().Span, "expected ')' to close macro invocation argument list")
		}
	}
	return MacroInvocation{Name: name, Args: args}
}

// parseExprTokensUntil collects tokens up to (but not including) the next
// occurrence of any of stopKinds, a Newline, or EOF -- used for macro
// arguments, which may themselves contain balanced parens.
func (p *parser) parseExprTokensUntil(stopKinds ...token.Kind) []token.Token {
	stop := make(map[token.Kind]bool, len(stopKinds))
	for _, k := range stopKinds {
		stop[k] = true
	}
	var out []token.Token
	depth := 0
	for {
		k := p.cur().Kind
		if k == token.EOF || k == token.Newline {
			break
		}
		if depth == 0 && stop[k] {
			break
		}
		if k == token.LParen {
			depth++
		} else if k == token.RParen {
			if depth == 0 {
				break
			}
			depth--
		}
		out = append(out, p.advance())
	}
	return out
}

// parseLineExpr collects every token up to (not including) the terminating
// Newline -- the expression syntax for .if/.rep/.include conditions.
func (p *parser) parseLineExpr() []token.Token {
	var out []token.Token
	for p.cur().Kind != token.Newline && p.cur().Kind != token.EOF {
		out = append(out, p.advance())
	}
	return out
}

func (p *parser) expectNewline(construct string) {
	if p.cur().Kind == token.Newline {
		p.advance()
		return
	}
	if p.cur().Kind == token.EOF {
		return
	}
	p.h.SpanError(p.cur().Span, "unexpected token after "+construct)
}

func (p *parser) parseSLMacroDef() Node {
	dir := p.advance() // .define
	if p.cur().Kind != token.Ident {
		p.h.SpanError(p.cur().Span, "expected macro name after .define")
		return SLMacroDef{Span: dir}
	}
	name := p.advance()
	var args []Arg
	if p.cur().Kind == token.LParen {
		p.advance()
		if p.cur().Kind != token.RParen {
			for {
				if p.cur().Kind != token.Ident {
					p.h.SpanError(p.cur().Span, "expected parameter name in .define argument list")
					break
				}
				args = append(args, Arg{Name: p.advance()})
				if p.cur().Kind == token.Comma {
					p.advance()
					continue
				}
				break
			}
		}
		if p.cur().Kind == token.RParen {
			p.advance()
		} else {
			p.h.SpanError(p.cur().Span, "expected ')' to close .define argument list")
		}
	}
	body := p.parseBody(map[token.Kind]bool{token.Newline: true})
	p.expectNewline(".define body")
	return SLMacroDef{Name: name, Args: args, Body: body, Span: dir}
}

func (p *parser) parseMLMacroDef() Node {
	dir := p.advance() // .macro
	if p.cur().Kind != token.Ident {
		p.h.SpanError(p.cur().Span, "expected macro name after .macro")
		return MLMacroDef{Span: dir}
	}
	name := p.advance()
	arity := MLArity{}
	if p.cur().Kind == token.Int {
		reqTok := p.advance()
		req := intTokenValue(p.text(reqTok))
		arity.Required = req
		arity.Max = req
		if p.cur().Kind == token.Minus {
			p.advance()
			if p.cur().Kind != token.Int {
				p.h.SpanError(p.cur().Span, "expected maximum argument count after '-'")
			} else {
				maxTok := p.advance()
				arity.Max = intTokenValue(p.text(maxTok))
			}
			if p.cur().Kind == token.LParen {
				p.advance()
				for p.cur().Kind != token.RParen && p.cur().Kind != token.EOF && p.cur().Kind != token.Newline {
					arity.Defaults = append(arity.Defaults, p.parseExprTokensUntil(token.Comma, token.RParen))
					if p.cur().Kind == token.Comma {
						p.advance()
					}
				}
				if p.cur().Kind == token.RParen {
					p.advance()
				} else {
					p.h.SpanError(p.cur().Span, "expected ')' to close .macro default argument list")
				}
			}
		}
	}
	p.expectNewline(".macro header")
	body := p.parseBody(map[token.Kind]bool{token.DirEndmacro: true})
	if p.cur().Kind == token.DirEndmacro {
		p.advance()
	} else {
		p.h.SpanError(dir.Span, "missing .endmacro for .macro")
	}
	return MLMacroDef{Name: name, Arity: arity, Body: body, Span: dir}
}

func (p *parser) parseUndef() Node {
	dir := p.advance() // .undef or .unmacro
	multi := dir.Kind == token.DirUnmacro
	if p.cur().Kind != token.Ident {
		p.h.SpanError(p.cur().Span, "expected macro name after "+dir.Kind.String())
		return MacroUndef{Multi: multi, Span: dir}
	}
	name := p.advance()
	p.expectNewline(dir.Kind.String())
	return MacroUndef{Name: name, Multi: multi, Span: dir}
}

func (p *parser) parseRepeat() Node {
	dir := p.advance() // .rep
	expr := p.parseLineExpr()
	p.expectNewline(".rep expression")
	body := p.parseBody(map[token.Kind]bool{token.DirEndrep: true})
	if p.cur().Kind == token.DirEndrep {
		p.advance()
	} else {
		p.h.SpanError(dir.Span, "missing .endrep for .rep")
	}
	return Repeat{Expr: expr, Body: body, Span: dir}
}

func (p *parser) parseInclude() Node {
	dir := p.advance() // .include
	expr := p.parseLineExpr()
	p.expectNewline(".include expression")
	return Include{Expr: expr, Span: dir}
}

// reportLineUnsupported handles `.line`: the original implementation never
// supports it either, rejecting it with a "directive currently unsupported"
// error rather than acting on it. This does the same and discards the rest
// of the line so its arguments don't leak into the next construct.
func (p *parser) reportLineUnsupported() {
	dir := p.advance() // .line
	p.h.SpanError(dir.Span, "directive '.line' is currently unsupported")
	p.parseLineExpr()
}

// condKindFor maps a directive Kind to the CondKind bucket used by Clause,
// so the executor doesn't need to re-inspect token.Kind.
func condKindFor(k token.Kind) CondKind {
	switch k {
	case token.DirIf, token.DirElif:
		return CondIf
	case token.DirIfn, token.DirElifn:
		return CondIfn
	case token.DirIfdef, token.DirElifdef:
		return CondIfdef
	case token.DirIfndef, token.DirElifndef:
		return CondIfndef
	default:
		return CondElse
	}
}

func (p *parser) parseClause() Clause {
	dir := p.advance()
	cond := condKindFor(dir.Kind)
	c := Clause{Kind: dir.Kind, Cond: cond, Span: dir}
	switch cond {
	case CondIf, CondIfn:
		c.Expr = p.parseLineExpr()
	case CondIfdef, CondIfndef:
		paren := false
		if p.cur().Kind == token.LParen {
			paren = true
			p.advance()
		}
		if p.cur().Kind != token.Ident {
			p.h.SpanError(p.cur().Span, "expected identifier in "+dir.Kind.String())
		} else {
			c.Name = p.advance()
		}
		if p.cur().Kind == token.Comma {
			p.advance()
			if p.cur().Kind != token.Int {
				p.h.SpanError(p.cur().Span, "expected arity after ',' in "+dir.Kind.String())
			} else {
				p.advance()
			}
		}
		if paren {
			if p.cur().Kind == token.RParen {
				p.advance()
			} else {
				p.h.SpanError(p.cur().Span, "expected ')' to close "+dir.Kind.String())
			}
		}
	case CondElse:
		// no condition tokens
	}
	p.expectNewline(dir.Kind.String() + " condition")
	c.Body = p.parseBody(clauseTerminators)
	return c
}

func (p *parser) parseIfStatement() Node {
	start := p.cur()
	var clauses []Clause
	clauses = append(clauses, p.parseClause())
	for {
		k := p.cur().Kind
		if k == token.DirElif || k == token.DirElifn || k == token.DirElifdef || k == token.DirElifndef || k == token.DirElse {
			clauses = append(clauses, p.parseClause())
			if k == token.DirElse {
				break
			}
			continue
		}
		break
	}
	if p.cur().Kind == token.DirEndif {
		p.advance()
	} else {
		p.h.SpanError(start.Span, "missing .endif")
	}
	return IfStatement{Clauses: clauses, Span: start}
}

// intTokenValue parses the decimal digits of an Int token's lexeme,
// ignoring underscores. Malformed input (which the lexer would not have
// produced for an Int token) yields 0.
func intTokenValue(lexeme string) int {
	n := 0
	for i := 0; i < len(lexeme); i++ {
		c := lexeme[i]
		if c == '_' {
			continue
		}
		if c < '0' || c > '9' {
			return n
		}
		n = n*10 + int(c-'0')
	}
	return n
}
