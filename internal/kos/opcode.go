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

import "strings"

// Opcode identifies a KOS VM instruction (or, for Pushv, a pseudo-opcode
// that the verifier lowers to a real one before code generation).
type Opcode int

const (
	Eof Opcode = iota
	Eop
	Nop
	Sto
	Uns
	Gmb
	Smb
	Gidx
	Sidx
	Bfa
	Jmp
	Add
	Sub
	Mul
	Div
	Pow
	Cgt
	Clt
	Cge
	Cle
	Ceq
	Cne
	Neg
	// BoolOp is the "bool" instruction; the name Bool is taken by the value
	// constructor in value.go.
	BoolOp
	Not
	And
	Or
	Call
	Ret
	Push
	Pop
	Dup
	Swap
	Eval
	Addt
	Rmvt
	Wait
	Gmet
	Stol
	Stog
	Bscp
	Escp
	Stoe
	Phdl
	Btr
	Exst
	Argb
	Targ
	Tcan
	Prl
	Pdrl
	Lbrt

	// Pushv is a pseudo-opcode: valid in source, lowered to Push by the
	// verifier once its operand has been resolved to a KOSValue (see
	// Lower).
	Pushv

	// Bogus never reaches the verifier in a correct pipeline; seeing it
	// there is a Bug, per spec.md §4.6/§7.
	Bogus
)

var mnemonics = map[string]Opcode{
	"eof": Eof, "eop": Eop, "nop": Nop, "sto": Sto, "uns": Uns,
	"gmb": Gmb, "smb": Smb, "gidx": Gidx, "sidx": Sidx, "bfa": Bfa,
	"jmp": Jmp, "add": Add, "sub": Sub, "mul": Mul, "div": Div, "pow": Pow,
	"cgt": Cgt, "clt": Clt, "cge": Cge, "cle": Cle, "ceq": Ceq, "cne": Cne,
	"neg": Neg, "bool": BoolOp, "not": Not, "and": And, "or": Or,
	"call": Call, "ret": Ret, "push": Push, "pop": Pop, "dup": Dup, "swap": Swap,
	"eval": Eval, "addt": Addt, "rmvt": Rmvt, "wait": Wait, "gmet": Gmet,
	"stol": Stol, "stog": Stog, "bscp": Bscp, "escp": Escp, "stoe": Stoe,
	"phdl": Phdl, "btr": Btr, "exst": Exst, "argb": Argb, "targ": Targ,
	"tcan": Tcan, "prl": Prl, "pdrl": Pdrl, "lbrt": Lbrt,
	"pushv": Pushv,
}

// Lookup resolves a lowercase mnemonic to its Opcode.
func Lookup(mnemonic string) (Opcode, bool) {
	op, ok := mnemonics[mnemonic]
	return op, ok
}

func (op Opcode) String() string {
	for name, o := range mnemonics {
		if o == op {
			return name
		}
	}
	if op == Bogus {
		return "bogus"
	}
	return "unknown opcode"
}

// Lower rewrites the pseudo-opcode Pushv to the real Push opcode. Called by
// the verifier once Pushv's operand has been checked against its scalar/
// value-flavored accepted set.
func (op Opcode) Lower() Opcode {
	if op == Pushv {
		return Push
	}
	return op
}

// OperandSet is a small fixed set of accepted operand kinds for one
// instruction slot.
type OperandSet []ValueKind

// KLabel and KFunction are markers for operand kinds that aren't KOSValue variants: labels
// and function symbols. Using negative sentinel values keeps them out of
// the normal ValueKind range without a second type parameter everywhere.
const (
	KLabel ValueKind = -1 - iota
	KFunction
)

func (s OperandSet) accepts(k ValueKind) bool {
	for _, a := range s {
		if a == k {
			return true
		}
	}
	return false
}

// Accepts reports whether kind k is one of this set's accepted kinds. It is
// the exported counterpart of accepts, for callers outside this package
// (the verifier) that already hold an OperandSet from AcceptedOperands.
func (s OperandSet) Accepts(k ValueKind) bool { return s.accepts(k) }

// Describe renders the set's accepted kinds as a human-readable list, for
// the "does not accept an operand of kind X" diagnostic.
func (s OperandSet) Describe() string {
	if len(s) == 0 {
		return "none"
	}
	var b strings.Builder
	for i, k := range s {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(kindDescription(k))
	}
	return b.String()
}

func kindDescription(k ValueKind) string {
	switch k {
	case KLabel:
		return "a label"
	case KFunction:
		return "a function"
	default:
		return k.String()
	}
}

// operandTable lists, per opcode, one OperandSet per operand position. An
// opcode with zero operands maps to an empty slice. This mirrors the
// verifier's per-opcode lookup table in spec.md §4.6 and is grounded
// directly on the original implementation's accepted-operand table.
var operandTable = map[Opcode][]OperandSet{
	Eof:  {},
	Eop:  {},
	Nop:  {},
	Sto:  {{KString}},
	Uns:  {},
	Gmb:  {{KString}},
	Smb:  {{KString}},
	Gidx: {},
	Sidx: {},
	Bfa:  {{KString, KInt32, KLabel}},
	Jmp:  {{KString, KInt32, KLabel}},
	Add:  {}, Sub: {}, Mul: {}, Div: {}, Pow: {},
	Cgt: {}, Clt: {}, Cge: {}, Cle: {}, Ceq: {}, Cne: {},
	Neg: {}, BoolOp: {}, Not: {}, And: {}, Or: {},
	Call: {
		{KString, KNull, KFunction},
		{KString, KInt16, KInt32, KNull},
	},
	Ret: {{KInt16}},
	Push: {{
		KNull, KBool, KByte, KInt16, KInt32, KString, KArgMarker, KDouble,
	}},
	Pop: {}, Dup: {}, Swap: {}, Eval: {},
	Addt: {{KBool}, {KInt32}},
	Rmvt: {}, Wait: {},
	Gmet: {{KString}},
	Stol: {{KString}}, Stog: {{KString}},
	Bscp: {{KInt16}, {KInt16}},
	Escp: {{KInt16}},
	Stoe: {{KString}},
	Phdl: {{KByte, KInt16, KInt32}},
	Btr:  {{KString, KInt32, KLabel}},
	Exst: {}, Argb: {}, Targ: {}, Tcan: {},
	Prl: {{KString}},
	Pdrl: {
		{KString, KFunction},
		{KBool},
	},
	Lbrt: {{KString}},
	Pushv: {{
		KNull, KBoolValue, KScalarInt, KStringValue, KArgMarker, KScalarDouble,
	}},
}

// AcceptedOperands returns the accepted-kind sets for op, one per operand
// position, or (nil, false) if op is Bogus or otherwise unknown -- which is
// always a Bug at the verifier boundary.
func AcceptedOperands(op Opcode) ([]OperandSet, bool) {
	sets, ok := operandTable[op]
	return sets, ok
}

// Accepts reports whether kind k is accepted in operand position pos (0 or
// 1) of op.
func Accepts(op Opcode, pos int, k ValueKind) bool {
	sets, ok := operandTable[op]
	if !ok || pos >= len(sets) {
		return false
	}
	return sets[pos].accepts(k)
}

// Narrow picks the smallest integer Value whose kind is accepted among
// accepted, trying Byte, then Int16, then Int32, then ScalarInt in turn.
// It reports false if i fits none of the accepted integer kinds, or if
// none of the four integer kinds are accepted at all.
func Narrow(i int32, accepted OperandSet) (Value, bool) {
	if accepted.accepts(KByte) && i >= -128 && i <= 127 {
		return Byte(int8(i)), true
	}
	if accepted.accepts(KInt16) && i >= -32768 && i <= 32767 {
		return Int16(int16(i)), true
	}
	if accepted.accepts(KInt32) {
		return Int32(i), true
	}
	if accepted.accepts(KScalarInt) {
		return ScalarInt(i), true
	}
	return Value{}, false
}

// LargestAcceptedIntegerName returns a human name for the largest integer
// kind accepted in the set, for the "requires integer that can fit in a
// ..." error message.
func LargestAcceptedIntegerName(accepted OperandSet) string {
	switch {
	case accepted.accepts(KScalarInt):
		return "32-bit integer"
	case accepted.accepts(KInt32):
		return "32-bit integer"
	case accepted.accepts(KInt16):
		return "16-bit integer"
	case accepted.accepts(KByte):
		return "8-bit integer"
	default:
		return "integer"
	}
}
