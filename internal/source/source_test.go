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

package source

import "testing"

func TestManager_Position(t *testing.T) {
	m := NewManager()
	f, err := m.AddText("t.kasm", "push 1\n\tcall foo, 0\n")
	if err != nil {
		t.Fatal(err)
	}

	data := []struct {
		name       string
		start, end int
		wantLine   int
		wantCol    int
	}{
		{"start of file", 0, 4, 1, 1},
		{"second line after tab", 8, 12, 2, 5}, // tab expands to 4 cols
	}

	for _, d := range data {
		t.Run(d.name, func(t *testing.T) {
			pos := m.Position(Span{Start: d.start, End: d.end, FileID: f.ID})
			if pos.Line != d.wantLine || pos.Col != d.wantCol {
				t.Errorf("Position(%d,%d) = line %d col %d, want line %d col %d",
					d.start, d.end, pos.Line, pos.Col, d.wantLine, d.wantCol)
			}
		})
	}
}

func TestManager_FileCap(t *testing.T) {
	m := NewManager()
	for i := 0; i < MaxFiles; i++ {
		if _, err := m.AddText("f", "x"); err != nil {
			t.Fatalf("unexpected error at file %d: %v", i, err)
		}
	}
	if _, err := m.AddText("one-too-many", "x"); err == nil {
		t.Fatal("expected error after exceeding MaxFiles")
	}
}

func TestSpan_Join(t *testing.T) {
	a := Span{Start: 2, End: 5, FileID: 0}
	b := Span{Start: 4, End: 9, FileID: 0}
	got := a.Join(b)
	want := Span{Start: 2, End: 9, FileID: 0}
	if got != want {
		t.Errorf("Join = %+v, want %+v", got, want)
	}
}
