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

// Package verifier re-checks a parsed program against the opcode operand
// table, resolves label and symbol operands, narrows integer literals to
// the smallest accepted size, and lowers the Pushv pseudo-opcode to Push.
// It is the last stage before code generation: everything it produces is
// either a resolved value, an absolute instruction index, or a symbol name
// left for the generator to relocate against.
package verifier

import (
	"strconv"

	"github.com/kos-kasm/kasm/internal/diag"
	"github.com/kos-kasm/kasm/internal/kos"
	"github.com/kos-kasm/kasm/internal/parser"
	"github.com/kos-kasm/kasm/internal/source"
)

// OperandKind tags the variant held by a VerifiedOperand.
type OperandKind int

const (
	OperandValue OperandKind = iota
	OperandLabel
	OperandSymbol
)

// VerifiedOperand is one operand after verification: either a concrete
// KOSValue, a label's absolute instruction index, or a symbol name left for
// the generator to relocate.
type VerifiedOperand struct {
	Kind  OperandKind
	Span  source.Span
	Value kos.Value // valid when Kind == OperandValue
	Index int       // valid when Kind == OperandLabel
	Name  string    // valid when Kind == OperandSymbol
}

// VerifiedInstruction is one instruction after arity/operand verification
// and Pushv lowering.
type VerifiedInstruction struct {
	Op       kos.Opcode
	Span     source.Span
	Operand  [2]VerifiedOperand
	NOperand int
}

// VerifiedBodyItem mirrors parser.BodyItem once labels have been stripped
// out (they live only in the Label map from here on): every item that
// survives into a VerifiedFunction's body is an instruction.
type VerifiedBodyItem struct {
	Instr VerifiedInstruction
}

// VerifiedFunction is one function after verification.
type VerifiedFunction struct {
	Name string
	Span source.Span
	Body []VerifiedBodyItem
}

// Program is everything the verifier produces.
type Program struct {
	Functions []*VerifiedFunction
}

type verifier struct {
	h   *diag.Handler
	res *parser.Result
}

// Verify checks res against the opcode operand table and returns the
// verified program. Diagnostics (including any Bug) are reported through h;
// callers should check h.HasErrors() before using the result.
func Verify(res *parser.Result, h *diag.Handler) *Program {
	v := &verifier{h: h, res: res}
	v.checkSymbolsAssigned()

	prog := &Program{}
	for _, fn := range res.Functions {
		prog.Functions = append(prog.Functions, v.verifyFunction(fn))
	}
	return prog
}

// checkSymbolsAssigned enforces the symbol-record invariants from the data
// model: a non-extern symbol must eventually be assigned a value or a
// function body, while an extern symbol must carry an explicit type and no
// value of its own (its value comes from whatever it links against).
func (v *verifier) checkSymbolsAssigned() {
	for _, s := range v.res.Symbols {
		if s.Binding == parser.BindExtern {
			if s.Type == parser.TypeDefault {
				v.h.StructError("extern symbol '" + s.Name + "' must be declared with an explicit .value or .func type").
					SetPrimarySpan(s.Span).
					Emit()
			}
			if s.ValueKind != parser.SymUndefined {
				v.h.StructError("'" + s.Name + "' is declared extern and cannot carry a value").
					SetPrimarySpan(s.Span).
					Emit()
			}
			continue
		}
		if s.ValueKind == parser.SymUndefined {
			v.h.StructError("'" + s.Name + "' is declared but never assigned a value").
				SetPrimarySpan(s.Span).
				Emit()
		}
	}
}

func (v *verifier) verifyFunction(fn *parser.Function) *VerifiedFunction {
	vf := &VerifiedFunction{Name: fn.Name, Span: fn.Span}
	for _, item := range fn.Body {
		if item.IsLabel {
			continue
		}
		vi, ok := v.verifyInstruction(item.Instr)
		if !ok {
			continue
		}
		vf.Body = append(vf.Body, VerifiedBodyItem{Instr: vi})
	}
	return vf
}

func (v *verifier) verifyInstruction(instr parser.Instruction) (VerifiedInstruction, bool) {
	sets, ok := kos.AcceptedOperands(instr.Op)
	if !ok {
		v.h.StructBug("verifier reached an unknown or bogus opcode").
			SetPrimarySpan(instr.Span).
			Emit()
		return VerifiedInstruction{}, false
	}
	if instr.NOperand != len(sets) {
		v.h.StructError("wrong number of operands for '" + instr.Op.String() + "': expected " +
			strconv.Itoa(len(sets)) + ", got " + strconv.Itoa(instr.NOperand)).
			SetPrimarySpan(instr.Span).
			Emit()
		return VerifiedInstruction{}, false
	}

	vi := VerifiedInstruction{Op: instr.Op.Lower(), Span: instr.Span, NOperand: instr.NOperand}
	okAll := true
	for i := 0; i < instr.NOperand; i++ {
		vo, ok := v.verifyOperand(instr.Operand[i], sets[i], instr.Op)
		if !ok {
			okAll = false
			continue
		}
		vi.Operand[i] = vo
	}
	return vi, okAll
}

func (v *verifier) verifyOperand(op parser.Operand, accepted kos.OperandSet, owner kos.Opcode) (VerifiedOperand, bool) {
	switch op.Kind {
	case parser.OpInteger:
		val, ok := kos.Narrow(op.I, accepted)
		if !ok {
			v.h.StructError("'" + owner.String() + "' requires an integer that can fit in a " +
				kos.LargestAcceptedIntegerName(accepted)).
				SetPrimarySpan(op.Span).
				Emit()
			return VerifiedOperand{}, false
		}
		return VerifiedOperand{Kind: OperandValue, Span: op.Span, Value: val}, true

	case parser.OpFloat:
		return v.valueOperand(op, accepted, kos.KDouble, kos.Double(op.F), owner)

	case parser.OpBool:
		return v.valueOperand(op, accepted, kos.KBool, kos.Bool(op.B), owner)

	case parser.OpString:
		return v.valueOperand(op, accepted, kos.KString, kos.String(op.S), owner)

	case parser.OpNull:
		return v.valueOperand(op, accepted, kos.KNull, kos.Null(), owner)

	case parser.OpArgMarker:
		return v.valueOperand(op, accepted, kos.KArgMarker, kos.ArgMarker(), owner)

	case parser.OpLabel:
		lbl, ok := v.res.Labels[op.S]
		if !ok {
			v.h.StructError("undefined label '" + op.S + "'").
				SetPrimarySpan(op.Span).
				Emit()
			return VerifiedOperand{}, false
		}
		if !accepted.Accepts(kos.KLabel) {
			v.reportKindMismatch(op.Span, owner, accepted, "a label")
			return VerifiedOperand{}, false
		}
		return VerifiedOperand{Kind: OperandLabel, Span: op.Span, Index: lbl.InstructionIndex}, true

	case parser.OpSymbol:
		// A bare identifier naming a label resolves to that label wherever
		// the slot accepts one; otherwise it is a symbol reference.
		if lbl, ok := v.res.Labels[op.S]; ok && accepted.Accepts(kos.KLabel) {
			return VerifiedOperand{Kind: OperandLabel, Span: op.Span, Index: lbl.InstructionIndex}, true
		}
		return v.symbolOperand(op, accepted, owner)

	default:
		v.h.StructBug("verifier encountered an operand of unknown kind").
			SetPrimarySpan(op.Span).
			Emit()
		return VerifiedOperand{}, false
	}
}

func (v *verifier) valueOperand(op parser.Operand, accepted kos.OperandSet, kind kos.ValueKind, val kos.Value, owner kos.Opcode) (VerifiedOperand, bool) {
	if !accepted.Accepts(kind) {
		v.reportKindMismatch(op.Span, owner, accepted, kind.String())
		return VerifiedOperand{}, false
	}
	return VerifiedOperand{Kind: OperandValue, Span: op.Span, Value: val}, true
}

func (v *verifier) symbolOperand(op parser.Operand, accepted kos.OperandSet, owner kos.Opcode) (VerifiedOperand, bool) {
	sym, ok := v.res.Symbols[op.S]
	if !ok {
		v.h.StructError("undefined symbol '" + op.S + "'").
			SetPrimarySpan(op.Span).
			Emit()
		return VerifiedOperand{}, false
	}
	if sym.Binding == parser.BindExtern {
		if sym.ValueKind == parser.SymFunction && !accepted.Accepts(kos.KFunction) {
			v.reportKindMismatch(op.Span, owner, accepted, "a function")
			return VerifiedOperand{}, false
		}
		return VerifiedOperand{Kind: OperandSymbol, Span: op.Span, Name: op.S}, true
	}
	switch sym.ValueKind {
	case parser.SymFunction:
		if !accepted.Accepts(kos.KFunction) {
			v.reportKindMismatch(op.Span, owner, accepted, "a function")
			return VerifiedOperand{}, false
		}
	case parser.SymValue:
		if !accepted.Accepts(sym.Value.Kind) {
			v.reportKindMismatch(op.Span, owner, accepted, sym.Value.Kind.String())
			return VerifiedOperand{}, false
		}
	default:
		v.h.StructBug("symbol reached the verifier with no assigned value").
			SetPrimarySpan(op.Span).
			Emit()
		return VerifiedOperand{}, false
	}
	return VerifiedOperand{Kind: OperandSymbol, Span: op.Span, Name: op.S}, true
}

func (v *verifier) reportKindMismatch(span source.Span, owner kos.Opcode, accepted kos.OperandSet, got string) {
	v.h.StructError("'" + owner.String() + "' does not accept an operand of kind " + got +
		" in this position; accepted: " + accepted.Describe()).
		SetPrimarySpan(span).
		Emit()
}
