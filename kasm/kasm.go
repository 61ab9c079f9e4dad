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

// Package kasm drives the full pipeline -- lexing, preprocessing, parsing,
// verification and code generation -- over one source file and produces an
// in-memory KO object file. It is the facade cmd/kasm and any embedding
// program should use instead of wiring the internal/ packages by hand.
package kasm

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/kos-kasm/kasm/internal/codegen"
	"github.com/kos-kasm/kasm/internal/diag"
	"github.com/kos-kasm/kasm/internal/lexer"
	"github.com/kos-kasm/kasm/internal/object"
	"github.com/kos-kasm/kasm/internal/parser"
	"github.com/kos-kasm/kasm/internal/source"
	"github.com/kos-kasm/kasm/internal/verifier"
)

// Option configures an Assembler at construction time.
type Option func(*Assembler) error

// WithComment sets the `.comment` section's contents. Defaults to
// codegen.DefaultComment.
func WithComment(comment string) Option {
	return func(a *Assembler) error { a.comment = comment; return nil }
}

// WithFileSymbolName overrides the name recorded in the synthetic File
// symbol. Defaults to the input path passed to Assemble.
func WithFileSymbolName(name string) Option {
	return func(a *Assembler) error { a.fileSymbolName = name; return nil }
}

// WithDiagWriter sets the writer diagnostics render to. Defaults to
// os.Stderr.
func WithDiagWriter(w io.Writer) Option {
	return func(a *Assembler) error { a.diagWriter = w; return nil }
}

// WithColor sets the diagnostic renderer's color mode. Defaults to
// diag.ColorAuto.
func WithColor(mode diag.ColorMode) Option {
	return func(a *Assembler) error { a.colorMode = mode; return nil }
}

// WithIncludePaths sets the directories searched, in order, for a
// `.include` path that doesn't resolve relative to the working directory.
func WithIncludePaths(dirs ...string) Option {
	return func(a *Assembler) error { a.includePaths = dirs; return nil }
}

// WithWarnings enables or disables warning diagnostics. Errors and bugs are
// always reported regardless of this setting.
func WithWarnings(enabled bool) Option {
	return func(a *Assembler) error { a.warnings = enabled; return nil }
}

// Assembler holds the configuration shared across one or more calls to
// Assemble.
type Assembler struct {
	comment        string
	fileSymbolName string
	diagWriter     io.Writer
	colorMode      diag.ColorMode
	includePaths   []string
	warnings       bool
}

// New returns an Assembler configured by opts.
func New(opts ...Option) (*Assembler, error) {
	a := &Assembler{
		diagWriter: os.Stderr,
		colorMode:  diag.ColorAuto,
		warnings:   true,
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Result is the outcome of assembling one file: the generated object file
// (nil if assembly failed) and the diagnostic handler that collected every
// diagnostic emitted along the way.
type Result struct {
	File  *object.KOFile
	Diags *diag.Handler
}

// Assemble loads path, runs it through the full pipeline, and returns the
// generated KOFile. A non-nil error indicates a failure to even load the
// source (file not found, I/O error); syntax and semantic errors are
// reported through Result.Diags instead, and the caller should check
// Result.Diags.HasErrors() before trusting Result.File.
func (a *Assembler) Assemble(path string) (*Result, error) {
	sm := source.NewManager()
	f, err := sm.Load(path)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}
	h := diag.NewHandler(sm, a.diagWriter, a.colorMode)
	h.SuppressWarnings = !a.warnings

	toks := lexer.New(f, h).Lex()
	toks = lexer.Phase0(h, toks)
	toks = lexer.Phase1(toks)
	includePaths := a.includePaths
	if includePaths == nil {
		includePaths = []string{filepath.Dir(path)}
	}
	res := parser.RunPreprocessedWithIncludePaths(toks, sm, h, includePaths)

	result := &Result{Diags: h}
	if h.HasErrors() {
		return result, nil
	}

	prog := verifier.Verify(res, h)
	if h.HasErrors() {
		return result, nil
	}

	fileSym := a.fileSymbolName
	if fileSym == "" {
		fileSym = path
	}
	result.File = codegen.Generate(res, prog, fileSym, a.comment, h)
	return result, nil
}
