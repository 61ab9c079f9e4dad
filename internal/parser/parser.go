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

package parser

import (
	"strconv"
	"strings"

	"github.com/kos-kasm/kasm/internal/diag"
	"github.com/kos-kasm/kasm/internal/kos"
	"github.com/kos-kasm/kasm/internal/lexer"
	"github.com/kos-kasm/kasm/internal/pp"
	"github.com/kos-kasm/kasm/internal/source"
	"github.com/kos-kasm/kasm/internal/token"
)

// mode is the parser's top-level automaton state.
type mode int

const (
	modeText mode = iota
	modeData
)

// parser drives the mode automaton over a flat, post-preprocessor token
// stream.
type parser struct {
	toks []token.Token
	pos  int
	sm   *source.Manager
	h    *diag.Handler

	mode mode

	result     *Result
	curOuter   string // most recently declared outer label, for inner-label qualification
	labelsSeen map[string]bool

	// instrCounter is the running global_instruction_index: it advances for
	// every real instruction across the whole file (not per function, and
	// not for label declarations) so that a label's recorded index and a
	// jump's position come from the same monotonic counter. See 4.7/4.8.
	instrCounter int
}

// Parse runs the main parser over toks (already preprocessed) and returns
// the parsed functions, symbol table, and label table.
func Parse(toks []token.Token, sm *source.Manager, h *diag.Handler) *Result {
	p := &parser{
		toks: toks, sm: sm, h: h,
		result: &Result{
			Symbols: make(map[string]*Symbol),
			Labels:  make(map[string]*Label),
		},
		labelsSeen: make(map[string]bool),
	}
	p.run()
	return p.result
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

func (p *parser) text(t token.Token) string { return p.sm.Text(t.Span) }

func (p *parser) skipNewlines() {
	for p.cur().Kind == token.Newline {
		p.advance()
	}
}

func (p *parser) run() {
	for {
		p.skipNewlines()
		t := p.cur()
		switch t.Kind {
		case token.EOF:
			return
		case token.KwSection:
			p.parseSection()
		case token.DirExtern, token.DirGlobal, token.DirLocal:
			p.parseBinding()
		case token.DirType:
			p.parseTypeDirective()
		case token.DirFunc:
			p.parseFunc()
		case token.Ident:
			if p.mode == modeData {
				p.parseDataEntry()
			} else {
				p.h.SpanError(t.Span, "unexpected identifier '"+p.text(t)+"' outside of a function body")
				p.advance()
			}
		case token.Label:
			p.h.SpanError(t.Span, "label declaration outside of a function body")
			p.advance()
		default:
			p.h.SpanError(t.Span, "unexpected token "+t.Kind.String()+" at top level")
			p.advance()
		}
	}
}

func (p *parser) parseSection() {
	p.advance() // .section
	switch p.cur().Kind {
	case token.KwText:
		p.advance()
		p.mode = modeText
	case token.KwData:
		p.advance()
		p.mode = modeData
	default:
		p.h.SpanError(p.cur().Span, "expected .text or .data after .section")
		p.advance()
	}
}

// bindingDirective parses the optional `.value|.func` type tag that can
// follow `.extern/.global/.local`.
func (p *parser) bindingDirective() (SymType, bool) {
	switch p.cur().Kind {
	case token.DirValue:
		p.advance()
		return TypeValue, true
	case token.DirFunc:
		p.advance()
		return TypeFunc, true
	default:
		return TypeDefault, false
	}
}

func (p *parser) getOrCreateSymbol(name string, span source.Span) *Symbol {
	if s, ok := p.result.Symbols[name]; ok {
		return s
	}
	s := &Symbol{Name: name, Span: span}
	p.result.Symbols[name] = s
	return s
}

func (p *parser) parseBinding() {
	dirTok := p.advance()
	var binding Binding
	switch dirTok.Kind {
	case token.DirExtern:
		binding = BindExtern
	case token.DirGlobal:
		binding = BindGlobal
	case token.DirLocal:
		binding = BindLocal
	}
	typ, hasType := p.bindingDirective()
	if p.cur().Kind != token.Ident {
		p.h.SpanError(p.cur().Span, "expected identifier after "+dirTok.Kind.String())
		return
	}
	nameTok := p.advance()
	name := p.text(nameTok)
	s := p.getOrCreateSymbol(name, nameTok.Span)

	if s.Binding != BindUnknown {
		if s.Binding == binding {
			p.h.StructWarning("redundant re-declaration of '" + name + "' with the same binding").
				SetPrimarySpan(nameTok.Span).
				SpanLabel(s.Span, "previously declared here").
				Emit()
		}
	}
	if binding == BindExtern && s.ValueKind != SymUndefined {
		p.h.StructError("'" + name + "' cannot be declared extern: it already has a value").
			SetPrimarySpan(nameTok.Span).
			SpanLabel(s.Span, "value assigned here").
			Emit()
		return
	}
	s.Binding = binding
	s.Span = nameTok.Span
	if hasType {
		p.applyType(s, typ, nameTok.Span)
	}
}

func (p *parser) applyType(s *Symbol, typ SymType, span source.Span) {
	if s.Type != TypeDefault && s.Type != typ {
		p.h.StructError("'" + s.Name + "' type conflicts with its previous declaration").
			SetPrimarySpan(span).
			SpanLabel(s.Span, "previously declared "+s.Type.String()+" here").
			Emit()
		return
	}
	if s.Type == typ && s.Type != TypeDefault {
		p.h.StructWarning("redundant re-declaration of '" + s.Name + "'s type").
			SetPrimarySpan(span).
			Emit()
	}
	s.Type = typ
}

func (p *parser) parseTypeDirective() {
	dirTok := p.advance() // .type
	var typ SymType
	switch p.cur().Kind {
	case token.DirFunc:
		p.advance()
		typ = TypeFunc
	case token.DirValue:
		p.advance()
		typ = TypeValue
	default:
		p.h.SpanError(p.cur().Span, "expected .func or .value after .type")
		return
	}
	if p.cur().Kind != token.Ident {
		p.h.SpanError(p.cur().Span, "expected identifier after "+dirTok.Kind.String())
		return
	}
	nameTok := p.advance()
	name := p.text(nameTok)
	s := p.getOrCreateSymbol(name, nameTok.Span)
	p.applyType(s, typ, nameTok.Span)
}

// parseDataEntry parses `Ident (TypeToken | '#' | '@') value...` in Data
// mode.
func (p *parser) parseDataEntry() {
	nameTok := p.advance()
	name := p.text(nameTok)

	v, ok := p.parseDataValue()
	if !ok {
		return
	}

	s := p.getOrCreateSymbol(name, nameTok.Span)
	if s.ValueKind != SymUndefined {
		p.h.StructError("redefinition of '" + name + "'").
			SetPrimarySpan(nameTok.Span).
			SpanLabel(s.Span, "previously defined here").
			Emit()
		return
	}
	if s.Binding == BindExtern {
		p.h.StructError("'" + name + "' was declared extern and cannot be given a value").
			SetPrimarySpan(nameTok.Span).
			SpanLabel(s.Span, "declared extern here").
			Emit()
		return
	}
	s.ValueKind = SymValue
	s.Value = v
	s.Span = nameTok.Span
	if s.Type == TypeDefault {
		s.Type = TypeValue
	}
}

func (p *parser) parseDataValue() (kos.Value, bool) {
	t := p.cur()
	switch t.Kind {
	case token.Hash:
		p.advance()
		return kos.Null(), true
	case token.At:
		p.advance()
		return kos.ArgMarker(), true
	case token.String:
		p.advance()
		return kos.String(lexer.Unescape(p.text(t))), true
	case token.Ident:
		typeName := p.text(t)
		p.advance()
		return p.parseTypedLiteral(typeName, t.Span)
	default:
		p.h.SpanError(t.Span, "expected a data type and value")
		p.advance()
		return kos.Value{}, false
	}
}

func (p *parser) parseTypedLiteral(typeName string, typeSpan source.Span) (kos.Value, bool) {
	switch typeName {
	case "bool", "Bool":
		return p.parseBoolLiteral()
	case "boolvalue", "BoolValue":
		v, ok := p.parseBoolLiteral()
		if !ok {
			return v, false
		}
		return kos.BoolValue(v.B), true
	case "i8", "byte", "Byte":
		return p.parseIntLiteral(-128, 127, func(i int32) kos.Value { return kos.Byte(int8(i)) })
	case "i16", "Int16":
		return p.parseIntLiteral(-32768, 32767, func(i int32) kos.Value { return kos.Int16(int16(i)) })
	case "i32", "Int32":
		return p.parseIntLiteral(-1<<31, 1<<31-1, func(i int32) kos.Value { return kos.Int32(i) })
	case "ScalarInt":
		return p.parseIntLiteral(-1<<31, 1<<31-1, func(i int32) kos.Value { return kos.ScalarInt(i) })
	case "double", "Double":
		return p.parseFloatLiteral(kos.Double)
	case "ScalarDouble":
		return p.parseFloatLiteral(kos.ScalarDouble)
	case "string", "String":
		return p.parseStringLiteral(kos.String)
	case "StringValue":
		return p.parseStringLiteral(kos.StringValue)
	default:
		p.h.SpanError(typeSpan, "unknown data entry type '"+typeName+"'")
		return kos.Value{}, false
	}
}

func (p *parser) parseBoolLiteral() (kos.Value, bool) {
	switch p.cur().Kind {
	case token.True:
		p.advance()
		return kos.Bool(true), true
	case token.False:
		p.advance()
		return kos.Bool(false), true
	default:
		p.h.SpanError(p.cur().Span, "expected 'true' or 'false'")
		return kos.Value{}, false
	}
}

func (p *parser) parseIntLiteral(lo, hi int64, build func(int32) kos.Value) (kos.Value, bool) {
	neg := false
	if p.cur().Kind == token.Minus {
		p.advance()
		neg = true
	}
	t := p.cur()
	var n int64
	var err error
	switch t.Kind {
	case token.Int:
		p.advance()
		n, err = strconv.ParseInt(stripUnderscores(p.text(t)), 10, 64)
	case token.Hex:
		p.advance()
		n, err = strconv.ParseInt(stripUnderscores(p.text(t))[2:], 16, 64)
	case token.Binary:
		p.advance()
		n, err = strconv.ParseInt(stripUnderscores(p.text(t))[2:], 2, 64)
	default:
		p.h.SpanError(t.Span, "expected an integer literal")
		return kos.Value{}, false
	}
	if err != nil {
		p.h.SpanError(t.Span, "malformed integer literal")
		return kos.Value{}, false
	}
	if neg {
		n = -n
	}
	if n < lo || n > hi {
		p.h.SpanError(t.Span, "integer literal out of range for this data type")
		return kos.Value{}, false
	}
	return build(int32(n)), true
}

func (p *parser) parseFloatLiteral(build func(float64) kos.Value) (kos.Value, bool) {
	neg := false
	if p.cur().Kind == token.Minus {
		p.advance()
		neg = true
	}
	t := p.cur()
	if t.Kind != token.Float && t.Kind != token.Int {
		p.h.SpanError(t.Span, "expected a floating-point literal")
		return kos.Value{}, false
	}
	p.advance()
	f, err := strconv.ParseFloat(stripUnderscores(p.text(t)), 64)
	if err != nil {
		p.h.SpanError(t.Span, "malformed float literal")
		return kos.Value{}, false
	}
	if neg {
		f = -f
	}
	return build(f), true
}

func (p *parser) parseStringLiteral(build func(string) kos.Value) (kos.Value, bool) {
	t := p.cur()
	if t.Kind != token.String {
		p.h.SpanError(t.Span, "expected a string literal")
		return kos.Value{}, false
	}
	p.advance()
	return build(lexer.Unescape(p.text(t))), true
}

func stripUnderscores(s string) string {
	if !strings.ContainsRune(s, '_') {
		return s
	}
	return strings.ReplaceAll(s, "_", "")
}

// parseFunc parses `.func <newline> Label: body...` and leaves the parser
// in Text mode until the next top-level construct or EOF.
func (p *parser) parseFunc() {
	dirTok := p.advance() // .func
	p.mode = modeText
	p.skipNewlines()
	if p.cur().Kind != token.Label {
		p.h.SpanError(p.cur().Span, "expected a label immediately after .func")
		return
	}
	labelTok := p.advance()
	name := strings.TrimSuffix(p.text(labelTok), ":")

	if p.labelsSeen[name] {
		p.h.SpanError(labelTok.Span, "label '"+name+"' is already defined")
	} else {
		p.labelsSeen[name] = true
	}
	p.curOuter = name

	s := p.getOrCreateSymbol(name, labelTok.Span)
	if s.Type != TypeDefault && s.Type != TypeFunc {
		p.h.StructError("'" + name + "' type conflicts with its previous declaration").
			SetPrimarySpan(labelTok.Span).
			SpanLabel(s.Span, "previously declared "+s.Type.String()+" here").
			Emit()
	}
	if s.ValueKind == SymFunction {
		p.h.StructError("function '" + name + "' is already defined").
			SetPrimarySpan(labelTok.Span).
			SpanLabel(s.Span, "previously defined here").
			Emit()
	}
	s.Type = TypeFunc
	s.ValueKind = SymFunction
	s.Span = labelTok.Span

	p.result.Labels[name] = &Label{Name: name, Span: labelTok.Span, InstructionIndex: p.instrCounter}

	fn := &Function{Name: name, Span: dirTok.Span}
	fn.Body = append(fn.Body, BodyItem{IsLabel: true, Label: name, Span: labelTok.Span})
	p.parseFuncBody(fn)
	p.result.Functions = append(p.result.Functions, fn)
}

func (p *parser) parseFuncBody(fn *Function) {
	for {
		p.skipNewlines()
		t := p.cur()
		switch t.Kind {
		case token.EOF, token.KwSection, token.DirFunc, token.DirExtern, token.DirGlobal, token.DirLocal, token.DirType:
			return
		case token.Label:
			p.advance()
			name := strings.TrimSuffix(p.text(t), ":")
			if p.labelsSeen[name] {
				if existing, ok := p.result.Labels[name]; ok {
					p.h.StructError("label '" + name + "' is already defined").
						SetPrimarySpan(t.Span).
						SpanLabel(existing.Span, "previously defined here").
						Emit()
				}
			} else {
				p.labelsSeen[name] = true
			}
			p.curOuter = name
			p.result.Labels[name] = &Label{Name: name, Span: t.Span, InstructionIndex: p.instrCounter}
			fn.Body = append(fn.Body, BodyItem{IsLabel: true, Label: name, Span: t.Span})
		case token.InnerLabel:
			p.advance()
			inner := strings.TrimSuffix(p.text(t), ":")
			qualified := p.curOuter + "." + strings.TrimPrefix(inner, ".")
			if existing, ok := p.result.Labels[qualified]; ok {
				p.h.StructError("inner label '" + inner + "' is already defined").
					SetPrimarySpan(t.Span).
					SpanLabel(existing.Span, "previously defined here").
					Emit()
			}
			p.result.Labels[qualified] = &Label{Name: qualified, Span: t.Span, InstructionIndex: p.instrCounter}
			fn.Body = append(fn.Body, BodyItem{IsLabel: true, Label: qualified, Span: t.Span})
		case token.Ident:
			instr := p.parseInstruction()
			fn.Body = append(fn.Body, BodyItem{Instr: instr, Span: instr.Span})
			if instr.Op != kos.Lbrt {
				p.instrCounter++
			}
		default:
			p.h.SpanError(t.Span, "unexpected token "+t.Kind.String()+" in function body")
			p.advance()
		}
	}
}

func (p *parser) parseInstruction() Instruction {
	mnemTok := p.advance()
	op, ok := kos.Lookup(p.text(mnemTok))
	if !ok {
		p.h.SpanError(mnemTok.Span, "unknown mnemonic '"+p.text(mnemTok)+"'")
		op = kos.Bogus
	}
	instr := Instruction{Op: op, Span: mnemTok.Span}
	for instr.NOperand < 2 {
		if p.cur().Kind == token.Newline || p.cur().Kind == token.EOF {
			break
		}
		if instr.NOperand > 0 {
			if p.cur().Kind != token.Comma {
				break
			}
			p.advance()
		}
		operand, ok := p.parseOperand()
		if !ok {
			break
		}
		instr.Operand[instr.NOperand] = operand
		instr.Span = instr.Span.Join(operand.Span)
		instr.NOperand++
	}
	return instr
}

func (p *parser) parseOperand() (Operand, bool) {
	t := p.cur()
	switch t.Kind {
	case token.At:
		p.advance()
		return Operand{Kind: OpArgMarker, Span: t.Span}, true
	case token.Hash:
		p.advance()
		return Operand{Kind: OpNull, Span: t.Span}, true
	case token.String:
		p.advance()
		return Operand{Kind: OpString, Span: t.Span, S: lexer.Unescape(p.text(t))}, true
	case token.InnerLabelRef:
		p.advance()
		name := p.curOuter + "." + strings.TrimPrefix(p.text(t), ".")
		return Operand{Kind: OpLabel, Span: t.Span, S: name}, true
	case token.True:
		p.advance()
		return Operand{Kind: OpBool, Span: t.Span, B: true}, true
	case token.False:
		p.advance()
		return Operand{Kind: OpBool, Span: t.Span, B: false}, true
	case token.Int, token.Hex, token.Binary, token.Minus:
		return p.parseNumericExpr()
	case token.Float:
		return p.parseNumericExpr()
	case token.Ident:
		p.advance()
		return Operand{Kind: OpSymbol, Span: t.Span, S: p.text(t)}, true
	default:
		p.h.SpanError(t.Span, "unexpected token in operand position: "+t.Kind.String())
		p.advance()
		return Operand{}, false
	}
}

// parseNumericExpr parses a numeric instruction operand as an expression,
// per spec.md §4.4/§4.5: instruction integer/float operands are evaluated
// through the same precedence-climbing evaluator .rep/.if/.value use
// (internal/pp.Eval), not just accepted as a bare signed literal, so
// `push 1 + 2` is as valid an operand as `push 3`.
func (p *parser) parseNumericExpr() (Operand, bool) {
	start := p.cur()
	toks := p.collectExprTokens()
	end := start
	if len(toks) > 0 {
		end = toks[len(toks)-1]
	}
	span := start.Span.Join(end.Span)
	v, ok := pp.Eval(toks, p.sm, span, p.h)
	if !ok {
		return Operand{}, false
	}
	switch v.Kind {
	case pp.KindFloat:
		return Operand{Kind: OpFloat, Span: span, F: v.F}, true
	case pp.KindBool:
		return Operand{Kind: OpBool, Span: span, B: v.B}, true
	default:
		return Operand{Kind: OpInteger, Span: span, I: int32(v.I)}, true
	}
}

// collectExprTokens gathers the tokens making up one operand expression,
// starting at the parser's current position: everything up to the next
// top-level comma, newline or EOF, respecting parenthesis nesting so a
// comma inside `(...)` doesn't end the operand early.
func (p *parser) collectExprTokens() []token.Token {
	var toks []token.Token
	depth := 0
	for {
		t := p.cur()
		switch t.Kind {
		case token.EOF, token.Newline:
			return toks
		case token.Comma:
			if depth == 0 {
				return toks
			}
		case token.LParen:
			depth++
		case token.RParen:
			if depth == 0 {
				return toks
			}
			depth--
		}
		toks = append(toks, t)
		p.advance()
	}
}

// RunPreprocessed is a convenience entry point used by callers (and tests)
// that have raw post-phase-0/1 tokens and want both preprocessing and
// parsing done in one call.
func RunPreprocessed(toks []token.Token, sm *source.Manager, h *diag.Handler) *Result {
	return RunPreprocessedWithIncludePaths(toks, sm, h, nil)
}

// RunPreprocessedWithIncludePaths is RunPreprocessed, but .include
// directives that don't resolve relative to the working directory are also
// searched for under each of includePaths, in order.
func RunPreprocessedWithIncludePaths(toks []token.Token, sm *source.Manager, h *diag.Handler, includePaths []string) *Result {
	nodes := pp.Parse(toks, sm, h)
	exec := pp.NewExecutor(sm, h)
	exec.IncludePaths = includePaths
	final := exec.Run(nodes)
	return Parse(final, sm, h)
}
