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

package verifier

import (
	"bytes"
	"testing"

	"github.com/kos-kasm/kasm/internal/diag"
	"github.com/kos-kasm/kasm/internal/kos"
	"github.com/kos-kasm/kasm/internal/lexer"
	"github.com/kos-kasm/kasm/internal/parser"
	"github.com/kos-kasm/kasm/internal/source"
)

func verifyText(t *testing.T, text string) (*Program, *diag.Handler, *bytes.Buffer) {
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
	res := parser.RunPreprocessed(toks, sm, h)
	prog := Verify(res, h)
	return prog, h, &buf
}

func TestVerify_NarrowsIntegerToSmallestFit(t *testing.T) {
	prog, h, buf := verifyText(t, ".func\nmain:\npush 5\n")
	if h.HasErrors() {
		t.Fatalf("unexpected errors:\n%s", buf.String())
	}
	op := prog.Functions[0].Body[0].Instr.Operand[0]
	if op.Value.Kind != kos.KByte {
		t.Errorf("kind = %v, want KByte", op.Value.Kind)
	}
	if op.Value.I != 5 {
		t.Errorf("value = %d, want 5", op.Value.I)
	}
}

func TestVerify_NarrowsIntegerToInt16(t *testing.T) {
	prog, h, buf := verifyText(t, ".func\nmain:\npush 300\n")
	if h.HasErrors() {
		t.Fatalf("unexpected errors:\n%s", buf.String())
	}
	op := prog.Functions[0].Body[0].Instr.Operand[0]
	if op.Value.Kind != kos.KInt16 {
		t.Errorf("kind = %v, want KInt16", op.Value.Kind)
	}
}

func TestVerify_WrongArityIsError(t *testing.T) {
	_, h, _ := verifyText(t, ".func\nmain:\nnop 1\n")
	if !h.HasErrors() {
		t.Error("expected an arity error for 'nop 1'")
	}
}

func TestVerify_UndefinedLabelIsError(t *testing.T) {
	_, h, _ := verifyText(t, ".func\nmain:\njmp nosuchlabel\n")
	if !h.HasErrors() {
		t.Error("expected an error for a jmp to an undefined label")
	}
}

func TestVerify_LabelResolvesToAbsoluteIndex(t *testing.T) {
	prog, h, buf := verifyText(t, ".func\nmain:\nnop\njmp main\n")
	if h.HasErrors() {
		t.Fatalf("unexpected errors:\n%s", buf.String())
	}
	instr := prog.Functions[0].Body[1].Instr
	if instr.Operand[0].Index != 0 {
		t.Errorf("label index = %d, want 0", instr.Operand[0].Index)
	}
}

func TestVerify_PushvLowersToPush(t *testing.T) {
	prog, h, buf := verifyText(t, ".func\nmain:\npushv 5\n")
	if h.HasErrors() {
		t.Fatalf("unexpected errors:\n%s", buf.String())
	}
	if prog.Functions[0].Body[0].Instr.Op != kos.Push {
		t.Errorf("op = %v, want Push", prog.Functions[0].Body[0].Instr.Op)
	}
}

func TestVerify_NonExternSymbolNeverAssignedIsError(t *testing.T) {
	_, h, _ := verifyText(t, ".section .data\n.global x\n")
	if !h.HasErrors() {
		t.Error("expected an error for a global symbol with no assigned value")
	}
}

func TestVerify_ExternSymbolWithoutTypeIsError(t *testing.T) {
	_, h, _ := verifyText(t, ".extern x\n")
	if !h.HasErrors() {
		t.Error("expected an error for an extern symbol with no declared type")
	}
}

func TestVerify_SymbolOperandResolvesToValueKind(t *testing.T) {
	_, h, buf := verifyText(t, ".section .data\ncount i32 42\n.section .text\n.func\nmain:\njmp count\n")
	if h.HasErrors() {
		t.Fatalf("unexpected errors:\n%s", buf.String())
	}
}

func TestVerify_SymbolOperandWrongValueKindIsError(t *testing.T) {
	_, h, _ := verifyText(t, ".section .data\nval double 1.5\n.section .text\n.func\nmain:\ngmb val\n")
	if !h.HasErrors() {
		t.Error("expected an error: gmb only accepts a String operand, not a Double symbol")
	}
}
