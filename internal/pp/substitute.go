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
	"github.com/kos-kasm/kasm/internal/source"
	"github.com/kos-kasm/kasm/internal/token"
)

// substitution replaces argument references in a macro body with the
// caller's already-expanded argument token lists, before the body is run
// through the executor. Single-line macros reference arguments by bare
// identifier (matching a formal parameter name); multi-line macros
// reference them positionally as `&k`. Exactly one of slFormal being
// non-nil distinguishes the two modes.
type substitution struct {
	slFormal map[string]int // formal name -> argument index, nil in ML mode
	args     [][]token.Token
	sm       *source.Manager
}

// tokens rewrites a flat token list, splicing in argument tokens wherever a
// reference is found.
func (s substitution) tokens(toks []token.Token) []token.Token {
	if len(toks) == 0 {
		return toks
	}
	out := make([]token.Token, 0, len(toks))
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if s.slFormal != nil {
			if t.Kind == token.Ident {
				if idx, ok := s.slFormal[s.sm.Text(t.Span)]; ok && idx < len(s.args) {
					out = append(out, s.args[idx]...)
					continue
				}
			}
		} else if t.Kind == token.Amp && i+1 < len(toks) && toks[i+1].Kind == token.Int {
			n := intTokenValue(s.sm.Text(toks[i+1].Span))
			if n >= 1 && n <= len(s.args) {
				out = append(out, s.args[n-1]...)
				i++
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

// nodes rewrites a macro body's PAST nodes, recursing into every nested
// body and token-list field so an argument reference is found no matter how
// deep it sits (inside a nested .rep, .include expression, or another
// macro's invocation arguments).
func (s substitution) nodes(in []Node) []Node {
	if len(in) == 0 {
		return in
	}
	out := make([]Node, len(in))
	for i, n := range in {
		switch v := n.(type) {
		case BenignTokens:
			out[i] = BenignTokens{Tokens: s.tokens(v.Tokens)}
		case MacroInvocation:
			if s.slFormal != nil && len(v.Args) == 0 {
				if idx, ok := s.slFormal[s.sm.Text(v.Name.Span)]; ok && idx < len(s.args) {
					out[i] = BenignTokens{Tokens: s.args[idx]}
					continue
				}
			}
			newArgs := make([][]token.Token, len(v.Args))
			for j, a := range v.Args {
				newArgs[j] = s.tokens(a)
			}
			out[i] = MacroInvocation{Name: v.Name, Args: newArgs}
		case SLMacroDef:
			out[i] = SLMacroDef{Name: v.Name, Args: v.Args, Body: s.nodes(v.Body), Span: v.Span}
		case MLMacroDef:
			out[i] = MLMacroDef{Name: v.Name, Arity: v.Arity, Body: s.nodes(v.Body), Span: v.Span}
		case Repeat:
			out[i] = Repeat{Expr: s.tokens(v.Expr), Body: s.nodes(v.Body), Span: v.Span}
		case Include:
			out[i] = Include{Expr: s.tokens(v.Expr), Span: v.Span}
		case IfStatement:
			clauses := make([]Clause, len(v.Clauses))
			for j, c := range v.Clauses {
				clauses[j] = Clause{
					Kind: c.Kind, Cond: c.Cond,
					Expr: s.tokens(c.Expr), Name: c.Name,
					Body: s.nodes(c.Body), Span: c.Span,
				}
			}
			out[i] = IfStatement{Clauses: clauses, Span: v.Span}
		default:
			out[i] = n
		}
	}
	return out
}
