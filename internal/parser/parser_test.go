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
	"bytes"
	"testing"

	"github.com/kos-kasm/kasm/internal/diag"
	"github.com/kos-kasm/kasm/internal/lexer"
	"github.com/kos-kasm/kasm/internal/source"
)

func parseText(t *testing.T, text string) (*Result, *diag.Handler) {
	t.Helper()
	sm := source.NewManager()
	f, err := sm.AddText("t.kasm", text)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	h := diag.NewHandler(sm, &buf, diag.ColorNever)
	toks := lexer.New(f, h).Lex()
	toks = lexer.Phase0(h, toks)
	toks = lexer.Phase1(toks)
	res := RunPreprocessed(toks, sm, h)
	if h.HasErrors() {
		t.Logf("diagnostics:\n%s", buf.String())
	}
	return res, h
}

func TestParse_DataEntry(t *testing.T) {
	res, h := parseText(t, ".section .data\ncount i32 42\n")
	if h.HasErrors() {
		t.Fatalf("unexpected errors")
	}
	s, ok := res.Symbols["count"]
	if !ok {
		t.Fatal("symbol 'count' not recorded")
	}
	if s.ValueKind != SymValue {
		t.Fatalf("ValueKind = %v, want SymValue", s.ValueKind)
	}
	if s.Value.I != 42 {
		t.Errorf("value = %d, want 42", s.Value.I)
	}
}

func TestParse_DataEntry_NullAndArgMarker(t *testing.T) {
	res, h := parseText(t, ".section .data\nn #\nam @\n")
	if h.HasErrors() {
		t.Fatalf("unexpected errors")
	}
	if res.Symbols["n"].Value.Kind != 0 {
		// KNull == 0
		t.Errorf("n should be Null")
	}
	if res.Symbols["am"].ValueKind != SymValue {
		t.Errorf("am should be recorded as a value symbol")
	}
}

func TestParse_DataEntry_IntegerOutOfRange(t *testing.T) {
	_, h := parseText(t, ".section .data\nx i8 200\n")
	if !h.HasErrors() {
		t.Error("expected an error for an i8 literal that does not fit")
	}
}

func TestParse_DataEntry_Redefinition(t *testing.T) {
	_, h := parseText(t, ".section .data\nx i32 1\nx i32 2\n")
	if !h.HasErrors() {
		t.Error("expected an error redefining a data symbol")
	}
}

func TestParse_Binding_ExternThenValueIsError(t *testing.T) {
	_, h := parseText(t, ".section .data\n.extern x\nx i32 1\n")
	if !h.HasErrors() {
		t.Error("expected an error giving a value to an extern symbol")
	}
}

func TestParse_Binding_RedundantIsWarningNotError(t *testing.T) {
	res, h := parseText(t, ".section .data\n.global x\n.global x\nx i32 1\n")
	if h.ErrorCount() != 0 {
		t.Errorf("expected no errors, got %d", h.ErrorCount())
	}
	if res.Symbols["x"].Binding != BindGlobal {
		t.Errorf("binding = %v, want global", res.Symbols["x"].Binding)
	}
}

func TestParse_Function_SimpleBody(t *testing.T) {
	res, h := parseText(t, ".func\nmain:\npush 1\npush 2\nret\n")
	if h.HasErrors() {
		t.Fatalf("unexpected errors")
	}
	if len(res.Functions) != 1 {
		t.Fatalf("got %d functions, want 1", len(res.Functions))
	}
	fn := res.Functions[0]
	if fn.Name != "main" {
		t.Errorf("function name = %q, want main", fn.Name)
	}
	var instrCount int
	for _, b := range fn.Body {
		if !b.IsLabel {
			instrCount++
		}
	}
	if instrCount != 3 {
		t.Errorf("got %d instructions, want 3", instrCount)
	}
	s := res.Symbols["main"]
	if s == nil || s.ValueKind != SymFunction {
		t.Errorf("'main' should be recorded as a function symbol")
	}
}

func TestParse_Function_DuplicateLabelIsError(t *testing.T) {
	_, h := parseText(t, ".func\nmain:\nnop\nmain:\nnop\n")
	if !h.HasErrors() {
		t.Error("expected an error for a duplicate label")
	}
}

func TestParse_InnerLabel_Qualification(t *testing.T) {
	res, h := parseText(t, ".func\nmain:\njmp .loop\n.loop:\nnop\n")
	if h.HasErrors() {
		t.Fatalf("unexpected errors")
	}
	if _, ok := res.Labels["main.loop"]; !ok {
		t.Error("expected inner label to be qualified as 'main.loop'")
	}
	fn := res.Functions[0]
	var jmp Instruction
	for _, b := range fn.Body {
		if !b.IsLabel && b.Instr.NOperand > 0 && b.Instr.Operand[0].Kind == OpLabel {
			jmp = b.Instr
		}
	}
	if jmp.Operand[0].S != "main.loop" {
		t.Errorf("jmp operand = %q, want main.loop", jmp.Operand[0].S)
	}
}

func TestParse_LabelInstructionIndex_SharedCounter(t *testing.T) {
	res, h := parseText(t, ".func\nfirst:\nnop\nnop\nsecond:\nnop\n")
	if h.HasErrors() {
		t.Fatalf("unexpected errors")
	}
	if res.Labels["first"].InstructionIndex != 0 {
		t.Errorf("first label index = %d, want 0", res.Labels["first"].InstructionIndex)
	}
	if res.Labels["second"].InstructionIndex != 2 {
		t.Errorf("second label index = %d, want 2", res.Labels["second"].InstructionIndex)
	}
}

func TestParse_LbrtDoesNotAdvanceInstructionCounter(t *testing.T) {
	res, h := parseText(t, ".func\nfirst:\nnop\nlbrt \"x\"\nsecond:\nnop\n")
	if h.HasErrors() {
		t.Fatalf("unexpected errors")
	}
	if res.Labels["first"].InstructionIndex != 0 {
		t.Errorf("first label index = %d, want 0", res.Labels["first"].InstructionIndex)
	}
	if res.Labels["second"].InstructionIndex != 1 {
		t.Errorf("second label index = %d, want 1: lbrt must not advance the counter", res.Labels["second"].InstructionIndex)
	}
}

func TestParse_InstructionOperands_AllKinds(t *testing.T) {
	res, h := parseText(t, ".func\nmain:\npush 42\npush \"hi\"\npush @\npush #\npush true\ncall somefunc\n")
	if h.HasErrors() {
		t.Fatalf("unexpected errors")
	}
	fn := res.Functions[0]
	var kinds []OperandKind
	for _, b := range fn.Body {
		if !b.IsLabel {
			kinds = append(kinds, b.Instr.Operand[0].Kind)
		}
	}
	want := []OperandKind{OpInteger, OpString, OpArgMarker, OpNull, OpBool, OpSymbol}
	if len(kinds) != len(want) {
		t.Fatalf("got %d operands, want %d", len(kinds), len(want))
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("operand %d kind = %v, want %v", i, kinds[i], want[i])
		}
	}
}

func TestParse_NumericOperand_IsExpression(t *testing.T) {
	res, h := parseText(t, ".func\nmain:\npush 1 + 2\n")
	if h.HasErrors() {
		t.Fatalf("unexpected errors")
	}
	fn := res.Functions[0]
	op := fn.Body[1].Instr.Operand[0] // Body[0] is the 'main' label itself
	if op.Kind != OpInteger || op.I != 3 {
		t.Errorf("operand = %+v, want OpInteger with I=3", op)
	}
}

func TestParse_UnknownMnemonicIsError(t *testing.T) {
	_, h := parseText(t, ".func\nmain:\nnotanopcode 1\n")
	if !h.HasErrors() {
		t.Error("expected an error for an unknown mnemonic")
	}
}

func TestParse_TypeDirective_Conflict(t *testing.T) {
	_, h := parseText(t, ".type .func foo\n.type .value foo\n")
	if !h.HasErrors() {
		t.Error("expected an error for a conflicting type re-declaration")
	}
}
