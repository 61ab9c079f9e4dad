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
	"bytes"
	"strings"
	"testing"

	"github.com/kos-kasm/kasm/internal/diag"
	"github.com/kos-kasm/kasm/internal/lexer"
	"github.com/kos-kasm/kasm/internal/source"
	"github.com/kos-kasm/kasm/internal/token"
)

// preprocess runs the full lex -> phase0/1 -> PAST parse -> PAST execute
// pipeline over text and returns the resulting flat token stream along with
// the handler that collected any diagnostics.
func preprocess(t *testing.T, text string) ([]token.Token, *source.Manager, *diag.Handler) {
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
	nodes := Parse(toks, sm, h)
	out := NewExecutor(sm, h).Run(nodes)
	return out, sm, h
}

func identText(sm *source.Manager, toks []token.Token) []string {
	var out []string
	for _, t := range toks {
		if t.Kind == token.Newline || t.Kind == token.EOF {
			continue
		}
		out = append(out, sm.Text(t.Span))
	}
	return out
}

func TestSLMacro_BareExpansion(t *testing.T) {
	toks, sm, h := preprocess(t, ".define FOO 42\npush FOO\n")
	if h.HasErrors() {
		t.Fatalf("unexpected errors")
	}
	got := strings.Join(identText(sm, toks), " ")
	if got != "push 42" {
		t.Errorf("got %q, want %q", got, "push 42")
	}
}

func TestSLMacro_WithArgs(t *testing.T) {
	toks, sm, h := preprocess(t, ".define ADD(a, b) a + b\npush ADD(1, 2)\n")
	if h.HasErrors() {
		t.Fatalf("unexpected errors")
	}
	got := strings.Join(identText(sm, toks), " ")
	if got != "push 1 + 2" {
		t.Errorf("got %q, want %q", got, "push 1 + 2")
	}
}

func TestMLMacro_Arity(t *testing.T) {
	src := ".macro PAIR 2\npush &1\npush &2\n.endmacro\nPAIR(10, 20)\n"
	toks, sm, h := preprocess(t, src)
	if h.HasErrors() {
		t.Fatalf("unexpected errors")
	}
	got := strings.Join(identText(sm, toks), " ")
	want := "push 10 push 20"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestUndeclaredMacroWithArgsIsError(t *testing.T) {
	_, _, h := preprocess(t, "NOTAMACRO(1, 2)\n")
	if !h.HasErrors() {
		t.Error("expected error for undeclared macro invoked with arguments")
	}
}

func TestBareIdentifierPassesThroughUnresolved(t *testing.T) {
	toks, sm, h := preprocess(t, "jmp mylabel\n")
	if h.HasErrors() {
		t.Fatalf("unexpected errors")
	}
	got := strings.Join(identText(sm, toks), " ")
	if got != "jmp mylabel" {
		t.Errorf("got %q, want %q", got, "jmp mylabel")
	}
}

func TestRepeat_ExpandsNTimes(t *testing.T) {
	toks, sm, h := preprocess(t, ".rep 3\nnop\n.endrep\n")
	if h.HasErrors() {
		t.Fatalf("unexpected errors")
	}
	got := identText(sm, toks)
	count := 0
	for _, s := range got {
		if s == "nop" {
			count++
		}
	}
	if count != 3 {
		t.Errorf("got %d nops, want 3", count)
	}
}

func TestRepeat_NegativeIsError(t *testing.T) {
	_, _, h := preprocess(t, ".rep 0-5\nnop\n.endrep\n")
	if !h.HasErrors() {
		t.Error("expected error for negative .rep count")
	}
}

func TestIfStatement_TakesFirstTrueBranch(t *testing.T) {
	toks, sm, h := preprocess(t, ".if 1 == 2\nnop\n.elif 3 == 3\neop\n.else\nret\n.endif\n")
	if h.HasErrors() {
		t.Fatalf("unexpected errors")
	}
	got := strings.Join(identText(sm, toks), " ")
	if got != "eop" {
		t.Errorf("got %q, want %q", got, "eop")
	}
}

func TestIfdef_DetectsDefinedMacro(t *testing.T) {
	toks, sm, h := preprocess(t, ".define FOO 1\n.ifdef FOO\neop\n.else\nnop\n.endif\n")
	if h.HasErrors() {
		t.Fatalf("unexpected errors")
	}
	got := strings.Join(identText(sm, toks), " ")
	if got != "eop" {
		t.Errorf("got %q, want %q", got, "eop")
	}
}

func TestUnmatchedEndifIsError(t *testing.T) {
	_, _, h := preprocess(t, ".endif\n")
	if !h.HasErrors() {
		t.Error("expected error for unmatched .endif")
	}
}

func TestUndef_RemovesMacro(t *testing.T) {
	toks, sm, h := preprocess(t, ".define FOO 1\n.undef FOO\npush FOO\n")
	if h.HasErrors() {
		t.Fatalf("unexpected errors")
	}
	got := strings.Join(identText(sm, toks), " ")
	if got != "push FOO" {
		t.Errorf("got %q, want %q: FOO should no longer expand after .undef", got, "push FOO")
	}
}

func TestNamespaceCollision_SLThenML(t *testing.T) {
	_, _, h := preprocess(t, ".define FOO 1\n.macro FOO 1\nnop\n.endmacro\n")
	if !h.HasErrors() {
		t.Error("expected error defining a name as both single- and multi-line macro")
	}
}

func TestLineDirective_IsUnsupported(t *testing.T) {
	toks, sm, h := preprocess(t, ".line 7\npush 1\n")
	if !h.HasErrors() {
		t.Error("expected an error for the unsupported .line directive")
	}
	got := strings.Join(identText(sm, toks), " ")
	if got != "push 1" {
		t.Errorf("got %q, want %q: .line and its argument should be discarded", got, "push 1")
	}
}
