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

// Package object models a KO object file as an in-memory structure: a
// section table, a data section, string and symbol tables, a relocation
// section, and one function section per assembled function. It
// deliberately has no Encode method -- the on-disk byte layout is out of
// scope here, the way vm.Image models a VM's addressable memory without
// caring how it arrived from disk.
package object

import (
	"bytes"
	"fmt"
	"io"

	"github.com/kos-kasm/kasm/internal/kos"
)

// Binding is a symbol table entry's linkage, mirroring parser.Binding but
// kept independent so this package has no dependency on the parser.
type Binding int

const (
	BindLocal Binding = iota
	BindGlobal
	BindExtern
)

// SymType is a symbol table entry's type tag.
type SymType int

const (
	TypeNoType SymType = iota
	TypeFunc
	TypeFile
)

// Symbol is one entry in the `.symtab` section.
type Symbol struct {
	NameIndex    int // offset into .symstrtab
	Value        int // data-section index for NoType, 0 for Extern/Func
	Size         int
	Binding      Binding
	Type         SymType
	SectionIndex int // data-section index (NoType) or function-section index (Func); 0 otherwise
}

// Relocation is one deferred link-time patch: the instruction at
// (FuncSection, LocalIndex) has its OperandIndex'th operand filled from
// whatever SymbolIndex resolves to.
type Relocation struct {
	FuncSection  int
	LocalIndex   int
	OperandIndex int
	SymbolIndex  int
}

// Instr is one generated instruction: an opcode and 0-2 indices into the
// data section. A Symbol operand is recorded as index 0 here, with the
// real reference carried by a Relocation entry instead.
type Instr struct {
	Op           kos.Opcode
	OperandIndex [2]int
	NOperand     int
}

// FuncSection is one function's generated code.
type FuncSection struct {
	Name  string
	Instr []Instr
}

// SectionHeader describes one section's place in the file, filled in by
// Finalize.
type SectionHeader struct {
	Name string
	Size int
}

// KOFile is the complete in-memory object file.
type KOFile struct {
	Sections []SectionHeader

	Comment   string
	Data      []kos.Value
	StrTab    []string // .symstrtab: index i is the name of the symbol whose NameIndex == i
	SymTab    []Symbol
	Reld      []Relocation
	Functions []FuncSection
}

// New returns an empty KOFile with the data section pre-seeded with Null
// at index 0, per spec.md 4.7 -- this keeps index 0 a safe, always-valid
// reference for any value operand that happens to resolve there.
func New(comment string) *KOFile {
	return &KOFile{
		Comment: comment,
		Data:    []kos.Value{kos.Null()},
	}
}

// InternString appends s to .symstrtab and returns its index.
func (f *KOFile) InternString(s string) int {
	f.StrTab = append(f.StrTab, s)
	return len(f.StrTab) - 1
}

// InternValue returns the index of v in the data section, appending it if
// no equal value is already present. Values are compared structurally:
// two KOSValue-s of the same kind and payload are the same data-section
// entry.
func (f *KOFile) InternValue(v kos.Value) int {
	for i, existing := range f.Data {
		if existing == v {
			return i
		}
	}
	f.Data = append(f.Data, v)
	return len(f.Data) - 1
}

// AddFuncSection appends a function section and returns its index.
func (f *KOFile) AddFuncSection(fs FuncSection) int {
	f.Functions = append(f.Functions, fs)
	return len(f.Functions) - 1
}

// Finalize computes the section table from the current contents. It
// reports a Bug (via the report func) if it finds an internal
// inconsistency -- a condition that should never arise from a correct
// generator.
func (f *KOFile) Finalize(reportBug func(msg string)) {
	f.Sections = f.Sections[:0]
	f.Sections = append(f.Sections,
		SectionHeader{Name: ".comment", Size: len(f.Comment)},
		SectionHeader{Name: ".data", Size: len(f.Data)},
		SectionHeader{Name: ".symstrtab", Size: len(f.StrTab)},
		SectionHeader{Name: ".symtab", Size: len(f.SymTab)},
		SectionHeader{Name: ".reld", Size: len(f.Reld)},
	)
	for _, fn := range f.Functions {
		f.Sections = append(f.Sections, SectionHeader{Name: fn.Name, Size: len(fn.Instr)})
	}
	if len(f.SymTab) == 0 {
		reportBug("object: finalized a KOFile with no symbols -- the File symbol should always be present")
	}
}

type relocKey struct {
	funcSection, localIndex, operandIndex int
}

// Dump writes a human-readable disassembly of f to w: the section table,
// the symbol table, and one disassembled instruction per line for every
// function section, with relocated operands rendered as `reloc(<symbol>)`
// rather than a bare data index.
func (f *KOFile) Dump(w io.Writer) error {
	reloc := make(map[relocKey]int, len(f.Reld))
	for _, r := range f.Reld {
		reloc[relocKey{r.FuncSection, r.LocalIndex, r.OperandIndex}] = r.SymbolIndex
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "; %s\n", f.Comment)
	for _, s := range f.Sections {
		fmt.Fprintf(&b, "; section %-12s %d\n", s.Name, s.Size)
	}
	for i, sym := range f.SymTab {
		fmt.Fprintf(&b, "; symbol %d: %s binding=%d type=%d\n", i, f.StrTab[sym.NameIndex], sym.Binding, sym.Type)
	}
	for fi, fn := range f.Functions {
		fmt.Fprintf(&b, "%s:\n", fn.Name)
		for li, instr := range fn.Instr {
			fmt.Fprintf(&b, "\t%s", instr.Op.String())
			for oi := 0; oi < instr.NOperand; oi++ {
				if symIdx, ok := reloc[relocKey{fi, li, oi}]; ok {
					fmt.Fprintf(&b, " reloc(%s)", f.StrTab[f.SymTab[symIdx].NameIndex])
					continue
				}
				b.WriteByte(' ')
				b.WriteString(f.Data[instr.OperandIndex[oi]].String())
			}
			b.WriteByte('\n')
		}
	}
	_, err := w.Write(b.Bytes())
	return err
}
