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

// Package parser consumes the post-preprocessor token stream and builds the
// function/label/symbol tables the verifier and generator work from. It
// drives a small mode automaton (Text, Data) the way the preprocessor
// drives its condition-stack automaton: `.section .text`/`.section .data`
// switch modes, and only constructs valid in the current mode are
// accepted.
package parser

import (
	"github.com/kos-kasm/kasm/internal/kos"
	"github.com/kos-kasm/kasm/internal/source"
)

// OperandKind tags the variant held by an Operand.
type OperandKind int

const (
	OpInteger OperandKind = iota
	OpFloat
	OpBool
	OpString
	OpNull
	OpArgMarker
	OpLabel
	OpSymbol
)

// Operand is one parsed instruction operand, still in source form: integer
// and float operands carry their literal value, Label/Symbol operands carry
// a name to be resolved later by the verifier.
type Operand struct {
	Kind OperandKind
	Span source.Span

	I    int32
	F    float64
	B    bool
	S    string // String literal text, or the referenced Label/Symbol name
}

// Instruction is one parsed instruction: an opcode, its span, and 0-2
// operands.
type Instruction struct {
	Op       kos.Opcode
	Span     source.Span
	Operand  [2]Operand
	NOperand int
}

// BodyItem is one entry in a function's body: either a label declaration or
// an instruction. Inner labels are qualified to "outer.inner" by the time
// they reach here.
type BodyItem struct {
	IsLabel bool
	Label   string      // valid if IsLabel
	Instr   Instruction // valid otherwise
	Span    source.Span
}

// Function is one parsed `.func` body.
type Function struct {
	Name string
	Span source.Span
	Body []BodyItem
}

// Binding is a symbol's linkage.
type Binding int

const (
	BindUnknown Binding = iota
	BindLocal
	BindGlobal
	BindExtern
)

func (b Binding) String() string {
	switch b {
	case BindLocal:
		return "local"
	case BindGlobal:
		return "global"
	case BindExtern:
		return "extern"
	default:
		return "unknown"
	}
}

// SymType is a symbol's declared type.
type SymType int

const (
	TypeDefault SymType = iota
	TypeFunc
	TypeValue
)

func (t SymType) String() string {
	switch t {
	case TypeFunc:
		return "func"
	case TypeValue:
		return "value"
	default:
		return "default"
	}
}

// SymValueKind distinguishes a symbol's runtime value, if any.
type SymValueKind int

const (
	SymUndefined SymValueKind = iota
	SymFunction
	SymValue
)

// Symbol is one entry in the parsed symbol table.
type Symbol struct {
	Name    string
	Span    source.Span // most recent declaration span
	Binding Binding
	Type    SymType

	ValueKind SymValueKind
	Value     kos.Value // valid when ValueKind == SymValue
}

// Label is one entry in the parsed label table: its instruction index
// (the running instruction counter's value at the point the label is
// declared) and declaration span.
type Label struct {
	Name             string
	Span             source.Span
	InstructionIndex int
}

// Result is everything the parser produces from one compilation's worth of
// source: a symbol table, a label table, and the list of parsed functions
// in declaration order.
type Result struct {
	Functions []*Function
	Symbols   map[string]*Symbol
	Labels    map[string]*Label
}
