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

package object

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/kos-kasm/kasm/internal/kos"
)

func TestNew_SeedsNullAtIndexZero(t *testing.T) {
	f := New("KASM test")
	if len(f.Data) != 1 || f.Data[0].Kind != kos.KNull {
		t.Fatalf("data section = %v, want [Null]", f.Data)
	}
}

func TestInternValue_Deduplicates(t *testing.T) {
	f := New("c")
	i1 := f.InternValue(kos.Int32(42))
	i2 := f.InternValue(kos.Int32(42))
	i3 := f.InternValue(kos.Int32(43))
	if i1 != i2 {
		t.Errorf("equal values got different indices: %d vs %d", i1, i2)
	}
	if i3 == i1 {
		t.Errorf("distinct values collapsed to the same index")
	}
}

func TestInternValue_DistinguishesKind(t *testing.T) {
	f := New("c")
	i1 := f.InternValue(kos.Byte(0))
	i2 := f.InternValue(kos.Int16(0))
	if i1 == i2 {
		t.Error("Byte(0) and Int16(0) must not share a data-section slot")
	}
}

func TestInternString_AppendsAndIndexes(t *testing.T) {
	f := New("c")
	i1 := f.InternString("foo")
	i2 := f.InternString("bar")
	if i1 != 0 || i2 != 1 {
		t.Errorf("got indices %d, %d, want 0, 1", i1, i2)
	}
	if diff := cmp.Diff([]string{"foo", "bar"}, f.StrTab); diff != "" {
		t.Errorf("StrTab mismatch (-want +got):\n%s", diff)
	}
}

func TestFinalize_ListsSections(t *testing.T) {
	f := New("c")
	f.SymTab = append(f.SymTab, Symbol{Type: TypeFile, Binding: BindGlobal})
	f.AddFuncSection(FuncSection{Name: "main"})
	var bug string
	f.Finalize(func(msg string) { bug = msg })
	if bug != "" {
		t.Fatalf("unexpected bug: %s", bug)
	}
	names := make([]string, len(f.Sections))
	for i, s := range f.Sections {
		names[i] = s.Name
	}
	want := []string{".comment", ".data", ".symstrtab", ".symtab", ".reld", "main"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("section names mismatch (-want +got):\n%s", diff)
	}
}

func TestFinalize_NoSymbolsIsBug(t *testing.T) {
	f := New("c")
	var bug string
	f.Finalize(func(msg string) { bug = msg })
	if bug == "" {
		t.Error("expected a bug report for a KOFile with no symbols at all")
	}
}

func TestDump_RendersRelocatedOperandAsSymbolName(t *testing.T) {
	f := New("c")
	f.SymTab = append(f.SymTab,
		Symbol{Type: TypeFile, Binding: BindGlobal, NameIndex: f.InternString("t.kasm")},
		Symbol{Type: TypeNoType, Binding: BindGlobal, NameIndex: f.InternString("count")},
	)
	idx := f.AddFuncSection(FuncSection{Name: "main", Instr: []Instr{
		{Op: kos.Jmp, OperandIndex: [2]int{0}, NOperand: 1},
	}})
	f.Reld = append(f.Reld, Relocation{FuncSection: idx, LocalIndex: 0, OperandIndex: 0, SymbolIndex: 1})
	f.Finalize(func(string) {})

	var buf bytes.Buffer
	if err := f.Dump(&buf); err != nil {
		t.Fatalf("Dump returned an error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "reloc(count)") {
		t.Errorf("Dump output = %q, want it to mention reloc(count)", out)
	}
}
