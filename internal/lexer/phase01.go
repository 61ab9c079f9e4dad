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

package lexer

import (
	"github.com/kos-kasm/kasm/internal/diag"
	"github.com/kos-kasm/kasm/internal/token"
)

// Phase0 walks a raw token stream and performs two linear rewrites:
//
//   - a Comment token becomes Whitespace (comments carry no meaning past
//     this point, but are kept as trivia so phase-1 can still drop them
//     uniformly);
//   - a Backslash immediately followed by a Newline becomes two Whitespace
//     tokens (a line continuation). Any other token between a Backslash
//     and the newline that must follow it is a "junk after backslash"
//     error; the offending token is left in the stream so later phases
//     still make progress and can report further errors.
func Phase0(h *diag.Handler, toks []token.Token) []token.Token {
	out := make([]token.Token, 0, len(toks))
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		switch t.Kind {
		case token.Comment:
			out = append(out, token.Token{Kind: token.Whitespace, Span: t.Span})
		case token.Backslash:
			if i+1 < len(toks) && toks[i+1].Kind == token.Newline {
				out = append(out, token.Token{Kind: token.Whitespace, Span: t.Span})
				out = append(out, token.Token{Kind: token.Whitespace, Span: toks[i+1].Span})
				i++
			} else {
				h.SpanError(t.Span, "junk after line-continuation backslash: expected end of line")
				out = append(out, token.Token{Kind: token.Whitespace, Span: t.Span})
			}
		default:
			out = append(out, t)
		}
	}
	return out
}

// Phase1 filters out every whitespace token, keeping newlines (which the
// preprocessor and parser both use as statement separators).
func Phase1(toks []token.Token) []token.Token {
	out := make([]token.Token, 0, len(toks))
	for _, t := range toks {
		if t.Kind == token.Whitespace {
			continue
		}
		out = append(out, t)
	}
	return out
}
