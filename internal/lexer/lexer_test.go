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
	"bytes"
	"testing"

	"github.com/kos-kasm/kasm/internal/diag"
	"github.com/kos-kasm/kasm/internal/source"
	"github.com/kos-kasm/kasm/internal/token"
)

func lex(t *testing.T, text string) ([]token.Token, *diag.Handler) {
	t.Helper()
	sm := source.NewManager()
	f, err := sm.AddText("t.kasm", text)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	h := diag.NewHandler(sm, &buf, diag.ColorNever)
	return New(f, h).Lex(), h
}

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, tk := range toks {
		out[i] = tk.Kind
	}
	return out
}

func TestLexer_Basics(t *testing.T) {
	data := []struct {
		name    string
		src     string
		want    []token.Kind
		wantErr bool
	}{
		{"label and instr", "_start:\n\teop\n", []token.Kind{token.Label, token.Newline, token.Whitespace, token.Ident, token.Newline, token.EOF}},
		{"inner label", ".loop:\n", []token.Kind{token.InnerLabel, token.Newline, token.EOF}},
		{"inner label ref", "jmp .loop\n", []token.Kind{token.Ident, token.Whitespace, token.InnerLabelRef, token.Newline, token.EOF}},
		{"directive", ".global foo\n", []token.Kind{token.DirGlobal, token.Whitespace, token.Ident, token.Newline, token.EOF}},
		{"hex and bin", "0xFF 0b101\n", []token.Kind{token.Hex, token.Whitespace, token.Binary, token.Newline, token.EOF}},
		{"float", "3.14\n", []token.Kind{token.Float, token.Newline, token.EOF}},
		{"junk float", "3.a\n", []token.Kind{token.JunkFloat, token.Ident, token.Newline, token.EOF}, true},
		{"comment", "push 1 ; comment here\n", []token.Kind{token.Ident, token.Whitespace, token.Int, token.Whitespace, token.Comment, token.Newline, token.EOF}},
		{"string", `"hello\n"` + "\n", []token.Kind{token.String, token.Newline, token.EOF}},
		{"true false", "true false\n", []token.Kind{token.True, token.Whitespace, token.False, token.Newline, token.EOF}},
		{"underscore int", "1_000\n", []token.Kind{token.Int, token.Newline, token.EOF}},
	}

	for _, d := range data {
		t.Run(d.name, func(t *testing.T) {
			toks, h := lex(t, d.src)
			got := kinds(toks)
			if len(got) != len(d.want) {
				t.Fatalf("got %d tokens %v, want %d %v", len(got), got, len(d.want), d.want)
			}
			for i := range got {
				if got[i] != d.want[i] {
					t.Errorf("token %d: got %v, want %v", i, got[i], d.want[i])
				}
			}
			if h.HasErrors() != d.wantErr {
				t.Errorf("HasErrors = %v for input %q, want %v", h.HasErrors(), d.src, d.wantErr)
			}
		})
	}
}

func TestLexer_Errors(t *testing.T) {
	data := []struct {
		name string
		src  string
	}{
		{"unterminated string", `"hello`},
		{"bad escape", `"hello \k world"`},
		{"junk float reported", "3.a"},
	}
	for _, d := range data {
		t.Run(d.name, func(t *testing.T) {
			_, h := lex(t, d.src)
			if !h.HasErrors() {
				t.Errorf("expected lex error for %q", d.src)
			}
		})
	}
}

func TestPhase0_LineContinuation(t *testing.T) {
	toks, h := lex(t, "push \\\n1\n")
	toks = Phase0(h, toks)
	toks = Phase1(toks)
	want := []token.Kind{token.Ident, token.Int, token.Newline, token.EOF}
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPhase0_JunkAfterBackslash(t *testing.T) {
	toks, h := lex(t, "push \\ 1\n")
	Phase0(h, toks)
	if !h.HasErrors() {
		t.Error("expected junk-after-backslash error")
	}
}

func TestPhase1_DropsWhitespaceKeepsNewline(t *testing.T) {
	toks, h := lex(t, "a   b\n")
	toks = Phase0(h, toks)
	toks = Phase1(toks)
	for _, tk := range toks {
		if tk.Kind == token.Whitespace {
			t.Errorf("phase1 left a whitespace token in the stream")
		}
	}
}
