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

// Package pp implements the preprocessor: it parses a post-phase-0/1 token
// stream into a tree (the Preprocessor AST, or PAST) of macro definitions,
// invocations, repeat blocks, includes and conditional groups, then walks
// that tree to produce a flat token stream with every macro expanded and
// every conditional resolved.
package pp

import "github.com/kos-kasm/kasm/internal/token"

// Node is one production of the preprocessor grammar (spec.md §4.3).
type Node interface {
	node()
}

// BenignTokens is a run of tokens that pass through unexamined: anything
// that is not itself a directive or a macro invocation. A run never holds an
// identifier (each one is parsed as its own MacroInvocation), and the
// executor copies the run to its output unchanged.
type BenignTokens struct {
	Tokens []token.Token
}

// Arg is a formal argument of a single-line macro: just its name token, used
// for substitution matching in the macro body.
type Arg struct {
	Name token.Token
}

// SLMacroDef is `.define NAME (args)? body?`.
type SLMacroDef struct {
	Name token.Token
	Args []Arg // nil if the macro takes no parenthesized argument list
	Body []Node
	Span token.Token // the .define token itself, for diagnostics
}

// MLArity is a multi-line macro's declared argument arity: `N` or `N-M`,
// with optional default bodies for the slots beyond N.
type MLArity struct {
	Required int
	Max      int // == Required if no optional arguments are declared
	// Defaults holds one token-list body per optional slot
	// (index 0 == argument Required+1), in the order written; a slot with
	// no default and no argument expands to nothing.
	Defaults [][]token.Token
}

// MLMacroDef is `.macro NAME (arity)? <newline> body .endmacro`.
type MLMacroDef struct {
	Name  token.Token
	Arity MLArity
	Body  []Node
	Span  token.Token
}

// MacroInvocation is an identifier in expression position, optionally
// followed by a parenthesized argument list. Whether it actually resolves
// to a macro is decided at execution time, not parse time: an unresolved
// invocation with no arguments is left for the main parser to interpret as
// an instruction or other bare identifier.
type MacroInvocation struct {
	Name token.Token
	Args [][]token.Token // each argument is its own raw token list
}

// MacroUndef is `.undef NAME` or `.unmacro NAME`; Multi reports which
// directive was used, since .undef only removes single-line macros and
// .unmacro only removes multi-line ones.
type MacroUndef struct {
	Name  token.Token
	Multi bool
	Span  token.Token
}

// Repeat is `.rep EXPR <newline> body .endrep`.
type Repeat struct {
	Expr []token.Token
	Body []Node
	Span token.Token
}

// CondKind distinguishes the five ways a conditional clause's condition can
// be spelled.
type CondKind int

const (
	CondIf CondKind = iota
	CondIfn
	CondIfdef
	CondIfndef
	CondElse
)

// Clause is one `.if/.elif/.else`-family branch: its begin-kind, the raw
// condition tokens (empty for CondElse), and its body.
type Clause struct {
	Kind token.Kind // Dir If/Ifn/Ifdef/Ifndef/Elif/Elifn/Elifdef/Elifndef/Else
	Cond CondKind
	Expr []token.Token // expression tokens for If/Ifn/Elif/Elifn
	Name token.Token   // identifier token for Ifdef/Ifndef/Elifdef/Elifndef
	Body []Node
	Span token.Token
}

// IfStatement is an ordered sequence of clauses terminated by `.endif`.
type IfStatement struct {
	Clauses []Clause
	Span    token.Token
}

// Include is `.include EXPR`, where EXPR must evaluate to a string literal
// path at execution time.
type Include struct {
	Expr []token.Token
	Span token.Token
}

func (BenignTokens) node()    {}
func (SLMacroDef) node()      {}
func (MLMacroDef) node()      {}
func (MacroInvocation) node() {}
func (MacroUndef) node()      {}
func (Repeat) node()          {}
func (IfStatement) node()     {}
func (Include) node()         {}
