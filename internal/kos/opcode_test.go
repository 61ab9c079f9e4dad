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

package kos

import "testing"

func TestNarrow(t *testing.T) {
	accepted := OperandSet{KByte, KInt16, KInt32, KScalarInt}

	data := []struct {
		name string
		in   int32
		want ValueKind
	}{
		{"fits byte", 5, KByte},
		{"fits int16", 300, KInt16},
		{"fits int32", 70000, KInt32},
	}
	for _, d := range data {
		t.Run(d.name, func(t *testing.T) {
			v, ok := Narrow(d.in, accepted)
			if !ok {
				t.Fatalf("Narrow(%d) failed", d.in)
			}
			if v.Kind != d.want {
				t.Errorf("Narrow(%d) = %v, want kind %v", d.in, v.Kind, d.want)
			}
		})
	}
}

func TestNarrow_NoFit(t *testing.T) {
	// Only Byte is accepted: a value that needs 16 bits cannot be narrowed.
	if _, ok := Narrow(300, OperandSet{KByte}); ok {
		t.Error("expected Narrow to fail when only Byte is accepted")
	}
}

func TestLower_PushvToPush(t *testing.T) {
	if Pushv.Lower() != Push {
		t.Errorf("Pushv.Lower() = %v, want Push", Pushv.Lower())
	}
	if Eop.Lower() != Eop {
		t.Errorf("Eop.Lower() should be identity for non-pseudo opcodes")
	}
}

func TestValue_Equal(t *testing.T) {
	if !Byte(5).Equal(Byte(5)) {
		t.Error("Byte(5) should equal Byte(5)")
	}
	if Byte(5).Equal(Int16(5)) {
		t.Error("Byte(5) should not equal Int16(5): different kinds")
	}
	if !Null().Equal(Null()) {
		t.Error("Null() should equal Null()")
	}
}

func TestAcceptedOperands_AllRealOpcodesPresent(t *testing.T) {
	for _, op := range []Opcode{Eof, Eop, Nop, Push, Call, Jmp, Lbrt, Pushv} {
		if _, ok := AcceptedOperands(op); !ok {
			t.Errorf("opcode %v missing from operand table", op)
		}
	}
	if _, ok := AcceptedOperands(Bogus); ok {
		t.Error("Bogus should not have an entry in the operand table")
	}
}
