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
	"testing"

	"github.com/kos-kasm/kasm/internal/diag"
	"github.com/kos-kasm/kasm/internal/lexer"
	"github.com/kos-kasm/kasm/internal/source"
	"github.com/kos-kasm/kasm/internal/token"
)

func evalText(t *testing.T, expr string) (Value, bool) {
	t.Helper()
	sm := source.NewManager()
	f, err := sm.AddText("e.kasm", expr+"\n")
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	h := diag.NewHandler(sm, &buf, diag.ColorNever)
	toks := lexer.New(f, h).Lex()
	toks = lexer.Phase0(h, toks)
	toks = lexer.Phase1(toks)
	var line []token.Token
	for _, tk := range toks {
		if tk.Kind == token.Newline || tk.Kind == token.EOF {
			break
		}
		line = append(line, tk)
	}
	return Eval(line, sm, source.Span{FileID: f.ID}, h)
}

func TestEval_Precedence(t *testing.T) {
	data := []struct {
		expr string
		kind Kind
		i    int64
		f    float64
		b    bool
	}{
		{"1 + 2 * 3", KindInt, 7, 0, false},
		{"(1 + 2) * 3", KindInt, 9, 0, false},
		{"10 - 2 - 3", KindInt, 5, 0, false},
		{"1 == 1 && 2 == 2", KindBool, 0, 0, true},
		{"1 == 2 || 3 == 3", KindBool, 0, 0, true},
		{"!(1 == 1)", KindBool, 0, 0, false},
		{"-5 + 2", KindInt, -3, 0, false},
		{"~0", KindInt, -1, 0, false},
		{"2.5 + 1.5", KindFloat, 0, 4, false},
		{"7 % 2", KindInt, 1, 0, false},
		{"true && false", KindBool, 0, 0, false},
	}
	for _, d := range data {
		t.Run(d.expr, func(t *testing.T) {
			v, ok := evalText(t, d.expr)
			if !ok {
				t.Fatalf("eval(%q) failed", d.expr)
			}
			if v.Kind != d.kind {
				t.Fatalf("eval(%q) kind = %v, want %v", d.expr, v.Kind, d.kind)
			}
			switch d.kind {
			case KindInt:
				if v.I != d.i {
					t.Errorf("eval(%q) = %d, want %d", d.expr, v.I, d.i)
				}
			case KindFloat:
				if v.F != d.f {
					t.Errorf("eval(%q) = %g, want %g", d.expr, v.F, d.f)
				}
			case KindBool:
				if v.B != d.b {
					t.Errorf("eval(%q) = %v, want %v", d.expr, v.B, d.b)
				}
			}
		})
	}
}

func TestEval_DivisionByZero(t *testing.T) {
	if _, ok := evalText(t, "1 / 0"); ok {
		t.Error("expected division by zero to fail")
	}
}

func TestEval_UnaryMinusOnBoolIsError(t *testing.T) {
	if _, ok := evalText(t, "-true"); ok {
		t.Error("expected unary '-' on bool to fail")
	}
}

func TestEval_EmptyExpressionIsError(t *testing.T) {
	sm := source.NewManager()
	f, err := sm.AddText("e.kasm", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := Eval(nil, sm, source.Span{FileID: f.ID}, diag.NewHandler(sm, &bytes.Buffer{}, diag.ColorNever)); ok {
		t.Error("expected empty expression to fail")
	}
}
