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

// Package kos describes the value universe and instruction set of the
// Kerbal Operating System virtual machine: the things a KASM data entry or
// instruction operand can ultimately become, and the static table of what
// each opcode accepts.
package kos

import "fmt"

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	KNull ValueKind = iota
	KBool
	KByte
	KInt16
	KInt32
	KScalarInt
	KDouble
	KScalarDouble
	KBoolValue
	KString
	KStringValue
	KArgMarker
)

func (k ValueKind) String() string {
	switch k {
	case KNull:
		return "null"
	case KBool, KBoolValue:
		return "bool"
	case KByte, KInt16, KInt32, KScalarInt:
		return "integer"
	case KDouble, KScalarDouble:
		return "float"
	case KString, KStringValue:
		return "string"
	case KArgMarker:
		return "arg marker"
	default:
		return "unknown"
	}
}

// Value is the VM's tagged value union (KOSValue). The internal "Float"
// variant from the VM's own value universe never appears here: spec.md
// §3 notes it is internal-only and never produced by the assembler.
type Value struct {
	Kind ValueKind
	I    int32   // Byte, Int16, Int32, ScalarInt
	F    float64 // Double, ScalarDouble
	B    bool    // Bool, BoolValue
	S    string  // String, StringValue
}

func Null() Value                  { return Value{Kind: KNull} }
func ArgMarker() Value             { return Value{Kind: KArgMarker} }
func Bool(b bool) Value            { return Value{Kind: KBool, B: b} }
func BoolValue(b bool) Value       { return Value{Kind: KBoolValue, B: b} }
func Byte(i int8) Value            { return Value{Kind: KByte, I: int32(i)} }
func Int16(i int16) Value          { return Value{Kind: KInt16, I: int32(i)} }
func Int32(i int32) Value          { return Value{Kind: KInt32, I: i} }
func ScalarInt(i int32) Value      { return Value{Kind: KScalarInt, I: i} }
func Double(f float64) Value       { return Value{Kind: KDouble, F: f} }
func ScalarDouble(f float64) Value { return Value{Kind: KScalarDouble, F: f} }
func String(s string) Value        { return Value{Kind: KString, S: s} }
func StringValue(s string) Value   { return Value{Kind: KStringValue, S: s} }

// Equal reports value equality as used for data-section deduplication: same
// kind and same payload.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KNull, KArgMarker:
		return true
	case KBool, KBoolValue:
		return v.B == o.B
	case KByte, KInt16, KInt32, KScalarInt:
		return v.I == o.I
	case KDouble, KScalarDouble:
		return v.F == o.F
	case KString, KStringValue:
		return v.S == o.S
	default:
		return false
	}
}

// SizeBytes returns the on-the-wire size of the value, used to populate a
// symbol table entry's size field.
func (v Value) SizeBytes() uint16 {
	switch v.Kind {
	case KNull, KArgMarker:
		return 0
	case KBool, KBoolValue, KByte:
		return 1
	case KInt16:
		return 2
	case KInt32, KScalarInt:
		return 4
	case KDouble, KScalarDouble:
		return 8
	case KString, KStringValue:
		return uint16(len(v.S)) + 1 // NUL terminated on the wire
	default:
		return 0
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KNull:
		return "null"
	case KArgMarker:
		return "@"
	case KBool, KBoolValue:
		return fmt.Sprintf("%v", v.B)
	case KByte, KInt16, KInt32, KScalarInt:
		return fmt.Sprintf("%d", v.I)
	case KDouble, KScalarDouble:
		return fmt.Sprintf("%g", v.F)
	case KString, KStringValue:
		return fmt.Sprintf("%q", v.S)
	default:
		return "<invalid>"
	}
}
