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
	"os"
	"path/filepath"

	"github.com/kos-kasm/kasm/internal/diag"
	"github.com/kos-kasm/kasm/internal/lexer"
	"github.com/kos-kasm/kasm/internal/source"
	"github.com/kos-kasm/kasm/internal/token"
)

// Executor walks a PAST and yields a flat, fully macro-expanded and
// conditional-resolved token stream.
type Executor struct {
	sm           *source.Manager
	h            *diag.Handler
	macros       *macroTable
	depth        int      // macro-invocation recursion guard
	IncludePaths []string // searched, in order, after the literal .include path
}

// NewExecutor returns an Executor sharing sm and h with the rest of the
// pipeline for this compilation.
func NewExecutor(sm *source.Manager, h *diag.Handler) *Executor {
	return &Executor{sm: sm, h: h, macros: newMacroTable()}
}

// resolveInclude returns the first existing candidate for path: path itself,
// then path joined to each of IncludePaths in order.
func (e *Executor) resolveInclude(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	for _, dir := range e.IncludePaths {
		candidate := filepath.Join(dir, path)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return path
}

const maxExpansionDepth = 256

// Run executes nodes and returns the resulting token stream.
func (e *Executor) Run(nodes []Node) []token.Token {
	var out []token.Token
	e.execBody(nodes, &out)
	return out
}

func (e *Executor) execBody(nodes []Node, out *[]token.Token) {
	for _, n := range nodes {
		e.execNode(n, out)
	}
}

func (e *Executor) execNode(n Node, out *[]token.Token) {
	switch v := n.(type) {
	case BenignTokens:
		*out = append(*out, v.Tokens...)
	case SLMacroDef:
		e.defineSL(v)
	case MLMacroDef:
		e.defineML(v)
	case MacroUndef:
		e.undef(v)
	case MacroInvocation:
		e.invoke(v, out)
	case Repeat:
		e.repeat(v, out)
	case Include:
		e.include(v, out)
	case IfStatement:
		e.ifStatement(v, out)
	default:
		e.h.ReportBug("preprocessor executor saw an unknown PAST node type")
	}
}

func (e *Executor) defineSL(d SLMacroDef) {
	name := e.sm.Text(d.Name.Span)
	argNames := make([]string, len(d.Args))
	for i, a := range d.Args {
		argNames[i] = e.sm.Text(a.Name.Span)
	}
	m := &slMacro{name: name, args: argNames, body: d.Body, span: d.Name.Span}
	if !e.macros.installSL(m, len(argNames)) {
		e.reportNamespaceCollision(name, d.Name.Span, false)
	}
}

func (e *Executor) defineML(d MLMacroDef) {
	name := e.sm.Text(d.Name.Span)
	m := &mlMacro{name: name, arity: d.Arity, body: d.Body, span: d.Name.Span}
	if !e.macros.installML(m) {
		e.reportNamespaceCollision(name, d.Name.Span, true)
	}
}

func (e *Executor) reportNamespaceCollision(name string, span source.Span, definingMulti bool) {
	kind := "single-line"
	other := "multi-line"
	if definingMulti {
		kind, other = other, kind
	}
	e.h.StructError("macro '"+name+"' is already defined as a "+other+" macro").
		SetPrimarySpan(span).
		Note("cannot redefine it as a " + kind + " macro").
		Emit()
}

func (e *Executor) undef(u MacroUndef) {
	name := e.sm.Text(u.Name.Span)
	if u.Multi {
		e.macros.undefML(name)
	} else {
		// .undef has no declared arity at the use site; since a name can
		// only be installed as single-line under one arity at a time in
		// practice (redefinition overwrites), arity 0..maxSLArity covers
		// every call shape actually accepted by the grammar.
		for arity := 0; arity <= maxSLArity; arity++ {
			e.macros.undefSL(name, arity)
		}
	}
}

// maxSLArity is the highest single-line macro arity .undef removes; a
// definition with more parameters than this is not removed by .undef.
const maxSLArity = 64

func (e *Executor) invoke(inv MacroInvocation, out *[]token.Token) {
	name := e.sm.Text(inv.Name.Span)

	if sl, ok := e.macros.lookupSL(name, len(inv.Args)); ok {
		e.expandSL(sl, inv, out)
		return
	}
	if ml, ok := e.macros.lookupML(name, len(inv.Args)); ok {
		e.expandML(ml, inv, out)
		return
	}
	if len(inv.Args) > 0 {
		e.h.SpanError(inv.Name.Span, "use of undeclared macro '"+name+"'")
		return
	}
	// Not a macro: pass the bare identifier through for the main parser.
	*out = append(*out, inv.Name)
}

func (e *Executor) expandSL(m *slMacro, inv MacroInvocation, out *[]token.Token) {
	if e.depth >= maxExpansionDepth {
		e.h.SpanError(inv.Name.Span, "macro expansion depth exceeded (likely recursive macro)")
		return
	}
	e.depth++
	defer func() { e.depth-- }()

	expandedArgs := make([][]token.Token, len(inv.Args))
	for i, argToks := range inv.Args {
		expandedArgs[i] = e.expandTokenList(argToks)
	}

	formal := make(map[string]int, len(m.args))
	for i, n := range m.args {
		formal[n] = i
	}
	sub := substitution{slFormal: formal, args: expandedArgs, sm: e.sm}
	e.execBody(sub.nodes(m.body), out)
}

func (e *Executor) expandML(m *mlMacro, inv MacroInvocation, out *[]token.Token) {
	if e.depth >= maxExpansionDepth {
		e.h.SpanError(inv.Name.Span, "macro expansion depth exceeded (likely recursive macro)")
		return
	}
	e.depth++
	defer func() { e.depth-- }()

	expandedArgs := make([][]token.Token, m.arity.Max)
	for i := 0; i < m.arity.Max; i++ {
		if i < len(inv.Args) {
			expandedArgs[i] = e.expandTokenList(inv.Args[i])
		} else if di := i - m.arity.Required; di >= 0 && di < len(m.arity.Defaults) {
			expandedArgs[i] = e.expandTokenList(m.arity.Defaults[di])
		}
	}

	sub := substitution{args: expandedArgs, sm: e.sm}
	e.execBody(sub.nodes(m.body), out)
}

// expandTokenList runs a raw argument token list through parse+execute so
// any macro invocations inside it are resolved in the *caller's* scope
// before the result is substituted into the callee's body.
func (e *Executor) expandTokenList(toks []token.Token) []token.Token {
	withEOF := append(append([]token.Token(nil), toks...), token.Token{Kind: token.EOF})
	var out []token.Token
	e.execBody(Parse(withEOF, e.sm, e.h), &out)
	return out
}

func (e *Executor) repeat(r Repeat, out *[]token.Token) {
	exprOut := e.expandTokenList(r.Expr)
	v, ok := Eval(exprOut, e.sm, r.Span, e.h)
	if !ok {
		return
	}
	if v.Kind == KindBool {
		e.h.SpanError(r.Span, ".rep count must be an integer or float, not bool")
		return
	}
	n := v.ToInt()
	if n < 0 {
		e.h.SpanError(r.Span, ".rep count must not be negative")
		return
	}
	for i := int64(0); i < n; i++ {
		e.execBody(r.Body, out)
	}
}

func (e *Executor) include(inc Include, out *[]token.Token) {
	exprOut := e.expandTokenList(inc.Expr)
	if len(exprOut) != 1 || exprOut[0].Kind != token.String {
		e.h.SpanError(inc.Span, ".include expects a single string literal path")
		return
	}
	path := lexer.Unescape(e.sm.Text(exprOut[0].Span))
	path = e.resolveInclude(path)

	f, err := e.sm.Load(path)
	if err != nil {
		e.h.StructError("cannot include '" + path + "'").
			SetPrimarySpan(inc.Span).
			Note(err.Error()).
			Emit()
		return
	}
	lx := lexer.New(f, e.h)
	toks := lx.Lex()
	toks = lexer.Phase0(e.h, toks)
	toks = lexer.Phase1(toks)
	nodes := Parse(toks, e.sm, e.h)
	e.execBody(nodes, out)
}

func (e *Executor) ifStatement(s IfStatement, out *[]token.Token) {
	matched := false
	for _, c := range s.Clauses {
		if matched {
			break
		}
		if e.clauseHolds(c) {
			matched = true
			e.execBody(c.Body, out)
		}
	}
}

func (e *Executor) clauseHolds(c Clause) bool {
	switch c.Cond {
	case CondIf:
		exprOut := e.expandTokenList(c.Expr)
		v, ok := Eval(exprOut, e.sm, c.Span, e.h)
		return ok && v.ToBool()
	case CondIfn:
		exprOut := e.expandTokenList(c.Expr)
		v, ok := Eval(exprOut, e.sm, c.Span, e.h)
		return ok && !v.ToBool()
	case CondIfdef:
		return e.macros.isMacroName(e.sm.Text(c.Name.Span))
	case CondIfndef:
		return !e.macros.isMacroName(e.sm.Text(c.Name.Span))
	default: // CondElse
		return true
	}
}
