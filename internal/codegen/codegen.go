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

// Package codegen turns a verified program into a KOFile: it assigns
// symbol and function section indices, lowers Label operands to relative
// offsets and Symbol operands to relocations, and keeps a single running
// instruction counter shared with the parser's own label-index counting
// (spec.md 4.7/4.8 -- Lbrt, which this package never emits on the
// assembler's own account, does not advance it).
package codegen

import (
	"github.com/kos-kasm/kasm/internal/diag"
	"github.com/kos-kasm/kasm/internal/kos"
	"github.com/kos-kasm/kasm/internal/object"
	"github.com/kos-kasm/kasm/internal/parser"
	"github.com/kos-kasm/kasm/internal/verifier"
)

// DefaultComment is the `.comment` section's default contents when the
// caller does not configure one explicitly.
const DefaultComment = "KASM 1.0"

// Generator holds the running state shared across the whole file being
// generated.
type Generator struct {
	h    *diag.Handler
	file *object.KOFile

	globalIndex int
	symIndex    map[string]int // symbol name -> index into file.SymTab
}

// New returns a Generator that will emit into a fresh KOFile seeded with
// comment as its `.comment` contents.
func New(comment string, h *diag.Handler) *Generator {
	if comment == "" {
		comment = DefaultComment
	}
	return &Generator{
		h:        h,
		file:     object.New(comment),
		symIndex: make(map[string]int),
	}
}

// Generate emits a complete KOFile for prog, resolved against the parsed
// symbol/label tables in res. fileSymbolName names the synthetic File
// symbol that heads the symbol table.
func Generate(res *parser.Result, prog *verifier.Program, fileSymbolName string, comment string, h *diag.Handler) *object.KOFile {
	g := New(comment, h)
	g.emitFileSymbol(fileSymbolName)
	g.emitDeclaredSymbols(res)
	for _, fn := range prog.Functions {
		g.emitFunction(fn)
	}
	g.file.Finalize(func(msg string) { h.StructBug(msg).Emit() })
	return g.file
}

func (g *Generator) emitFileSymbol(name string) {
	idx := g.file.InternString(name)
	g.file.SymTab = append(g.file.SymTab, object.Symbol{
		NameIndex: idx,
		Binding:   object.BindGlobal,
		Type:      object.TypeFile,
	})
}

func (g *Generator) emitDeclaredSymbols(res *parser.Result) {
	for name, sym := range res.Symbols {
		g.symIndex[name] = len(g.file.SymTab)
		entry := object.Symbol{
			NameIndex: g.file.InternString(name),
			Binding:   bindingFor(sym.Binding),
		}
		switch {
		case sym.Binding == parser.BindExtern:
			entry.Type = object.TypeNoType
			if sym.Type == parser.TypeFunc {
				entry.Type = object.TypeFunc
			}
		case sym.ValueKind == parser.SymFunction:
			entry.Type = object.TypeFunc
			// SectionIndex is filled in by emitFunction once that function's
			// section has actually been appended.
		case sym.ValueKind == parser.SymValue:
			entry.Type = object.TypeNoType
			idx := g.file.InternValue(sym.Value)
			entry.Value = idx
			entry.Size = int(sym.Value.SizeBytes())
			entry.SectionIndex = idx
		}
		g.file.SymTab = append(g.file.SymTab, entry)
	}
}

func bindingFor(b parser.Binding) object.Binding {
	switch b {
	case parser.BindGlobal:
		return object.BindGlobal
	case parser.BindExtern:
		return object.BindExtern
	default:
		return object.BindLocal
	}
}

func (g *Generator) emitFunction(fn *verifier.VerifiedFunction) {
	fs := object.FuncSection{Name: fn.Name}
	funcIdx := len(g.file.Functions)
	if idx, ok := g.symIndex[fn.Name]; ok {
		g.file.SymTab[idx].SectionIndex = funcIdx
	}

	for localIdx, item := range fn.Body {
		instr := item.Instr
		oi := object.Instr{Op: instr.Op, NOperand: instr.NOperand}
		for i := 0; i < instr.NOperand; i++ {
			oi.OperandIndex[i] = g.emitOperand(instr.Operand[i], funcIdx, localIdx, i)
		}
		fs.Instr = append(fs.Instr, oi)
		if instr.Op != kos.Lbrt {
			g.globalIndex++
		}
	}
	g.file.AddFuncSection(fs)
}

func (g *Generator) emitOperand(op verifier.VerifiedOperand, funcIdx, localIdx, operandIdx int) int {
	switch op.Kind {
	case verifier.OperandValue:
		return g.file.InternValue(op.Value)
	case verifier.OperandLabel:
		relative := op.Index - g.globalIndex
		return g.file.InternValue(kos.Int32(int32(relative)))
	case verifier.OperandSymbol:
		symIdx, ok := g.symIndex[op.Name]
		if !ok {
			g.h.StructBug("codegen: symbol operand '" + op.Name + "' has no symbol table entry").
				SetPrimarySpan(op.Span).
				Emit()
			return 0
		}
		g.file.Reld = append(g.file.Reld, object.Relocation{
			FuncSection:  funcIdx,
			LocalIndex:   localIdx,
			OperandIndex: operandIdx,
			SymbolIndex:  symIdx,
		})
		return 0
	default:
		g.h.StructBug("codegen: operand reached generation with an unknown kind").
			SetPrimarySpan(op.Span).
			Emit()
		return 0
	}
}
