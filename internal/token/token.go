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

// Package token defines the flat token stream produced by the lexer and
// consumed (in turn) by phase-0/1 normalization, the preprocessor and the
// main parser. Tokens are pure values: (kind, span). They may be copied
// freely since the span is all they carry; the source manager owns the
// actual bytes.
package token

import "github.com/kos-kasm/kasm/internal/source"

// Kind enumerates every token kind the lexer can produce.
type Kind int

const (
	Illegal Kind = iota
	EOF

	// Literals
	Ident       // bare identifier, also used for opcodes/directives-as-text where applicable
	Label       // identifier followed directly by ':'
	InnerLabel  // ".name:"
	InnerLabelRef // ".name" not followed by ':'
	Int
	Hex
	Binary
	Float
	JunkFloat // digits '.' non-digit: malformed float literal
	String
	True
	False

	// Keywords
	KwSection
	KwText
	KwData

	// Directives
	DirDefine
	DirMacro
	DirEndmacro
	DirRep
	DirEndrep
	DirInclude
	DirExtern
	DirGlobal
	DirLocal
	DirType
	DirValue
	DirFunc
	DirUndef
	DirUnmacro
	DirIf
	DirIfn
	DirIfdef
	DirIfndef
	DirElif
	DirElifn
	DirElifdef
	DirElifndef
	DirElse
	DirEndif
	DirLine

	// Operators (expression language + misc)
	Plus
	Minus
	Star
	Slash
	Percent
	Tilde
	Bang
	AmpAmp
	PipePipe
	EqEq
	NotEq
	Lt
	LtEq
	Gt
	GtEq
	Assign

	// Punctuation
	LParen
	RParen
	Comma
	Colon
	Hash // '#' -> Null literal marker
	At   // '@' -> ArgMarker literal marker
	Amp  // '&' -> macro argument reference prefix, e.g. &1

	// Trivia
	Whitespace
	Newline
	Backslash
	Comment
)

var kindNames = map[Kind]string{
	Illegal: "illegal", EOF: "EOF",
	Ident: "identifier", Label: "label", InnerLabel: "inner label", InnerLabelRef: "inner label reference",
	Int: "integer", Hex: "hex integer", Binary: "binary integer", Float: "float", JunkFloat: "malformed float",
	String: "string", True: "true", False: "false",
	KwSection: ".section", KwText: ".text", KwData: ".data",
	DirDefine: ".define", DirMacro: ".macro", DirEndmacro: ".endmacro",
	DirRep: ".rep", DirEndrep: ".endrep", DirInclude: ".include",
	DirExtern: ".extern", DirGlobal: ".global", DirLocal: ".local",
	DirType: ".type", DirValue: ".value", DirFunc: ".func",
	DirUndef: ".undef", DirUnmacro: ".unmacro",
	DirIf: ".if", DirIfn: ".ifn", DirIfdef: ".ifdef", DirIfndef: ".ifndef",
	DirElif: ".elif", DirElifn: ".elifn", DirElifdef: ".elifdef", DirElifndef: ".elifndef",
	DirElse: ".else", DirEndif: ".endif", DirLine: ".line",
	Plus: "+", Minus: "-", Star: "*", Slash: "/", Percent: "%", Tilde: "~", Bang: "!",
	AmpAmp: "&&", PipePipe: "||", EqEq: "==", NotEq: "!=", Lt: "<", LtEq: "<=", Gt: ">", GtEq: ">=", Assign: "=",
	LParen: "(", RParen: ")", Comma: ",", Colon: ":", Hash: "#", At: "@", Amp: "&",
	Whitespace: "whitespace", Newline: "newline", Backslash: "backslash", Comment: "comment",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown token kind"
}

// directiveKinds maps the literal directive/keyword spelling to its Kind.
// The lexer looks up every identifier-like lexeme here first so that
// keywords and directives win over a generic Ident, per the longest-match,
// keywords-over-identifiers rule in the spec.
var directiveKinds = map[string]Kind{
	".section": KwSection, ".text": KwText, ".data": KwData,
	".define": DirDefine, ".macro": DirMacro, ".endmacro": DirEndmacro,
	".rep": DirRep, ".endrep": DirEndrep, ".include": DirInclude,
	".extern": DirExtern, ".global": DirGlobal, ".local": DirLocal,
	".type": DirType, ".value": DirValue, ".func": DirFunc,
	".undef": DirUndef, ".unmacro": DirUnmacro,
	".if": DirIf, ".ifn": DirIfn, ".ifdef": DirIfdef, ".ifndef": DirIfndef,
	".elif": DirElif, ".elifn": DirElifn, ".elifdef": DirElifdef, ".elifndef": DirElifndef,
	".else": DirElse, ".endif": DirEndif, ".line": DirLine,
	"true": True, "false": False,
}

// LookupDirective returns the Kind for a reserved word (directive, keyword,
// or the true/false literals), and whether it is one at all.
func LookupDirective(lexeme string) (Kind, bool) {
	k, ok := directiveKinds[lexeme]
	return k, ok
}

// Token is a single lexical unit: its kind and the span of source text it
// covers. Everything else (the literal text, its parsed value) is derived
// on demand from the span via the source manager, so Tokens stay tiny and
// copyable.
type Token struct {
	Kind Kind
	Span source.Span
}

// IsTrivia reports whether this token kind is whitespace, a newline, a
// backslash or a comment -- the kinds phase-0/1 deal with before the real
// parsers ever see the stream.
func (t Token) IsTrivia() bool {
	switch t.Kind {
	case Whitespace, Newline, Backslash, Comment:
		return true
	default:
		return false
	}
}

// IsDirective reports whether this token kind is one of the '.xxx'
// directive keywords (not counting .section/.text/.data, which are plain
// keywords).
func (t Token) IsDirective() bool {
	switch t.Kind {
	case DirDefine, DirMacro, DirEndmacro, DirRep, DirEndrep, DirInclude,
		DirExtern, DirGlobal, DirLocal, DirType, DirValue, DirFunc,
		DirUndef, DirUnmacro, DirIf, DirIfn, DirIfdef, DirIfndef,
		DirElif, DirElifn, DirElifdef, DirElifndef, DirElse, DirEndif, DirLine:
		return true
	default:
		return false
	}
}
