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

// Package lexer turns a single source file into a flat stream of tokens
// and then normalizes that stream with two small linear passes (phase-0,
// phase-1) before handing it to the preprocessor. The scanner always
// prefers the longest match and checks keywords/directives before falling
// back to a plain identifier, per spec.
package lexer

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/kos-kasm/kasm/internal/diag"
	"github.com/kos-kasm/kasm/internal/source"
	"github.com/kos-kasm/kasm/internal/token"
)

// Lexer scans a single file's text into tokens.
type Lexer struct {
	file *source.File
	h    *diag.Handler
	text string
	pos  int
}

// New returns a Lexer over f, reporting errors to h.
func New(f *source.File, h *diag.Handler) *Lexer {
	return &Lexer{file: f, h: h, text: f.Text}
}

func (l *Lexer) eof() bool { return l.pos >= len(l.text) }

func (l *Lexer) peek() byte {
	if l.eof() {
		return 0
	}
	return l.text[l.pos]
}

func (l *Lexer) peekAt(off int) byte {
	if l.pos+off >= len(l.text) {
		return 0
	}
	return l.text[l.pos+off]
}

func (l *Lexer) span(start int) source.Span {
	return source.Span{Start: start, End: l.pos, FileID: l.file.ID}
}

// Lex scans the whole file and returns its token stream, raw: comments and
// whitespace are still present as their own token kinds. Run phase0/phase1
// on the result before handing it to the preprocessor.
func (l *Lexer) Lex() []token.Token {
	var toks []token.Token
	for !l.eof() {
		toks = append(toks, l.next())
	}
	toks = append(toks, token.Token{Kind: token.EOF, Span: source.Span{Start: l.pos, End: l.pos, FileID: l.file.ID}})
	return toks
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (l *Lexer) next() token.Token {
	start := l.pos
	c := l.peek()

	switch {
	case c == ' ' || c == '\t' || c == '\r':
		for !l.eof() && (l.peek() == ' ' || l.peek() == '\t' || l.peek() == '\r') {
			l.pos++
		}
		return token.Token{Kind: token.Whitespace, Span: l.span(start)}
	case c == '\n':
		l.pos++
		return token.Token{Kind: token.Newline, Span: l.span(start)}
	case c == ';':
		for !l.eof() && l.peek() != '\n' {
			l.pos++
		}
		return token.Token{Kind: token.Comment, Span: l.span(start)}
	case c == '\\':
		l.pos++
		return token.Token{Kind: token.Backslash, Span: l.span(start)}
	case c == '"':
		return l.lexString(start)
	case isDigit(c):
		return l.lexNumber(start)
	case c == '.':
		return l.lexDotted(start)
	case isIdentStart(c):
		return l.lexIdentOrLabel(start)
	default:
		return l.lexOperator(start)
	}
}

func (l *Lexer) lexIdentOrLabel(start int) token.Token {
	l.pos++
	for !l.eof() && isIdentCont(l.peek()) {
		l.pos++
	}
	lexeme := l.text[start:l.pos]
	if l.peek() == ':' {
		l.pos++
		return token.Token{Kind: token.Label, Span: l.span(start)}
	}
	if k, ok := token.LookupDirective(lexeme); ok {
		return token.Token{Kind: k, Span: l.span(start)}
	}
	return token.Token{Kind: token.Ident, Span: l.span(start)}
}

// lexDotted handles a leading '.': either a directive/keyword, an inner
// label (".name:"), an inner-label reference (".name"), or (if followed
// directly by a digit) a float literal missing its integer part, which we
// still tokenize through lexNumber so it can be reported precisely.
func (l *Lexer) lexDotted(start int) token.Token {
	if isDigit(l.peekAt(1)) {
		return l.lexNumber(start)
	}
	l.pos++ // consume '.'
	identStart := l.pos
	for !l.eof() && isIdentCont(l.peek()) {
		l.pos++
	}
	if l.pos == identStart {
		// lone '.', not followed by an identifier char or digit
		l.h.SpanError(l.span(start), "stray '.' is not a valid token")
		return token.Token{Kind: token.Illegal, Span: l.span(start)}
	}
	lexeme := l.text[start:l.pos]
	if k, ok := token.LookupDirective(lexeme); ok {
		return token.Token{Kind: k, Span: l.span(start)}
	}
	if l.peek() == ':' {
		l.pos++
		return token.Token{Kind: token.InnerLabel, Span: l.span(start)}
	}
	return token.Token{Kind: token.InnerLabelRef, Span: l.span(start)}
}

func (l *Lexer) lexNumber(start int) token.Token {
	// 0x / 0b prefix forms
	if l.peek() == '0' && (l.peekAt(1) == 'x' || l.peekAt(1) == 'X') {
		l.pos += 2
		for !l.eof() && (isHexDigit(l.peek()) || l.peek() == '_') {
			l.pos++
		}
		return token.Token{Kind: token.Hex, Span: l.span(start)}
	}
	if l.peek() == '0' && (l.peekAt(1) == 'b' || l.peekAt(1) == 'B') {
		l.pos += 2
		for !l.eof() && (l.peek() == '0' || l.peek() == '1' || l.peek() == '_') {
			l.pos++
		}
		return token.Token{Kind: token.Binary, Span: l.span(start)}
	}

	for !l.eof() && (isDigit(l.peek()) || l.peek() == '_') {
		l.pos++
	}
	if l.peek() != '.' {
		return token.Token{Kind: token.Int, Span: l.span(start)}
	}
	// '.' seen: either a well-formed float or JunkFloat
	l.pos++ // consume '.'
	if !isDigit(l.peek()) {
		l.h.SpanError(l.span(start), "malformed float literal: expected digits after '.'")
		return token.Token{Kind: token.JunkFloat, Span: l.span(start)}
	}
	for !l.eof() && (isDigit(l.peek()) || l.peek() == '_') {
		l.pos++
	}
	return token.Token{Kind: token.Float, Span: l.span(start)}
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func (l *Lexer) lexString(start int) token.Token {
	l.pos++ // consume opening quote
	for {
		if l.eof() {
			l.h.SpanError(l.span(start), "unterminated string literal")
			return token.Token{Kind: token.String, Span: l.span(start)}
		}
		c := l.peek()
		if c == '"' {
			l.pos++
			return token.Token{Kind: token.String, Span: l.span(start)}
		}
		if c == '\\' {
			l.pos++
			if l.eof() {
				l.h.SpanError(l.span(start), "unterminated string literal")
				return token.Token{Kind: token.String, Span: l.span(start)}
			}
			switch l.peek() {
			case 'n', 't', '\\', '"':
				l.pos++
			default:
				l.h.SpanError(source.Span{Start: l.pos - 1, End: l.pos + 1, FileID: l.file.ID},
					"invalid escape sequence in string")
				l.pos++
			}
			continue
		}
		if c == '\n' {
			l.h.SpanError(l.span(start), "unterminated string literal")
			return token.Token{Kind: token.String, Span: l.span(start)}
		}
		// advance by one rune, in case of multi-byte UTF-8 content
		_, size := utf8.DecodeRuneInString(l.text[l.pos:])
		if size == 0 {
			size = 1
		}
		l.pos += size
	}
}

// Unescape resolves the escape sequences in a lexed string token's text
// (including the surrounding quotes) to its runtime value.
func Unescape(quoted string) string {
	if len(quoted) < 2 {
		return ""
	}
	inner := quoted[1:]
	if strings.HasSuffix(inner, "\"") {
		inner = inner[:len(inner)-1]
	}
	var b strings.Builder
	for i := 0; i < len(inner); i++ {
		if inner[i] == '\\' && i+1 < len(inner) {
			switch inner[i+1] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '\\':
				b.WriteByte('\\')
			case '"':
				b.WriteByte('"')
			default:
				b.WriteByte(inner[i+1])
			}
			i++
			continue
		}
		b.WriteByte(inner[i])
	}
	return b.String()
}

var singleOps = map[byte]token.Kind{
	'(': token.LParen, ')': token.RParen, ',': token.Comma, ':': token.Colon,
	'#': token.Hash, '@': token.At, '&': token.Amp,
	'+': token.Plus, '-': token.Minus, '*': token.Star, '/': token.Slash, '%': token.Percent,
	'~': token.Tilde,
}

func (l *Lexer) lexOperator(start int) token.Token {
	c := l.peek()
	switch c {
	case '!':
		l.pos++
		if l.peek() == '=' {
			l.pos++
			return token.Token{Kind: token.NotEq, Span: l.span(start)}
		}
		return token.Token{Kind: token.Bang, Span: l.span(start)}
	case '=':
		l.pos++
		if l.peek() == '=' {
			l.pos++
			return token.Token{Kind: token.EqEq, Span: l.span(start)}
		}
		return token.Token{Kind: token.Assign, Span: l.span(start)}
	case '<':
		l.pos++
		if l.peek() == '=' {
			l.pos++
			return token.Token{Kind: token.LtEq, Span: l.span(start)}
		}
		return token.Token{Kind: token.Lt, Span: l.span(start)}
	case '>':
		l.pos++
		if l.peek() == '=' {
			l.pos++
			return token.Token{Kind: token.GtEq, Span: l.span(start)}
		}
		return token.Token{Kind: token.Gt, Span: l.span(start)}
	case '&':
		if l.peekAt(1) == '&' {
			l.pos += 2
			return token.Token{Kind: token.AmpAmp, Span: l.span(start)}
		}
		l.pos++
		return token.Token{Kind: token.Amp, Span: l.span(start)}
	case '|':
		if l.peekAt(1) == '|' {
			l.pos += 2
			return token.Token{Kind: token.PipePipe, Span: l.span(start)}
		}
		l.pos++
		l.h.SpanError(l.span(start), "unexpected character '|'")
		return token.Token{Kind: token.Illegal, Span: l.span(start)}
	}
	if k, ok := singleOps[c]; ok {
		l.pos++
		return token.Token{Kind: k, Span: l.span(start)}
	}
	// unknown byte: advance by one rune so we make forward progress and can
	// keep reporting further errors in the same file.
	_, size := utf8.DecodeRuneInString(l.text[l.pos:])
	if size == 0 {
		size = 1
	}
	l.pos += size
	l.h.SpanError(l.span(start), "unexpected character "+strconv.QuoteRune(rune(c)))
	return token.Token{Kind: token.Illegal, Span: l.span(start)}
}
