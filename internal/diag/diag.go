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

// Package diag is the assembler's diagnostic engine: every phase reports
// problems through here instead of building ad-hoc error strings, so that
// errors from the lexer, preprocessor, parser, verifier and generator all
// point at precise source spans, in a consistent format, across file
// boundaries.
package diag

import (
	"runtime"

	"github.com/kos-kasm/kasm/internal/source"
)

// Severity classifies a diagnostic.
type Severity int

const (
	// Bug marks an internal invariant violation: the compiler reached a
	// state its own logic says cannot happen. Always a defect to fix.
	Bug Severity = iota
	Error
	Warning
	Note
	Help
)

func (s Severity) String() string {
	switch s {
	case Bug:
		return "bug"
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Note:
		return "note"
	case Help:
		return "help"
	default:
		return "unknown"
	}
}

// Label attaches a message to a secondary span, e.g. pointing at a prior
// declaration that conflicts with the primary span.
type Label struct {
	Span    source.Span
	Message string
}

// Diagnostic is a fully-built, ready-to-render report.
type Diagnostic struct {
	Severity Severity
	Message  string
	Primary  *source.Span
	Labels   []Label
	Notes    []string
	Helps    []string
}

// Builder incrementally constructs a Diagnostic. A Builder must be either
// Emit-ed or Cancel-ed; dropping one without doing either is itself a bug,
// per the "error-builder bomb" design note, and is reported as such. Go has
// no destructors, so this is enforced with a finalizer: best-effort, but
// enough to catch the common "forgot to call Emit" mistake in development
// and tests, where it matters most.
type Builder struct {
	h    *Handler
	d    Diagnostic
	done bool
}

func newBuilder(h *Handler, sev Severity, msg string) *Builder {
	b := &Builder{h: h, d: Diagnostic{Severity: sev, Message: msg}}
	runtime.SetFinalizer(b, (*Builder).finalize)
	return b
}

func (b *Builder) finalize() {
	if !b.done {
		b.done = true
		b.h.emit(Diagnostic{
			Severity: Bug,
			Message:  "diagnostic builder dropped without being emitted or cancelled: " + b.d.Message,
		})
	}
}

// SetPrimarySpan sets the span the caret markers point at.
func (b *Builder) SetPrimarySpan(s source.Span) *Builder {
	sp := s
	b.d.Primary = &sp
	return b
}

// SpanLabel attaches a secondary, labeled span (e.g. a prior declaration).
func (b *Builder) SpanLabel(s source.Span, message string) *Builder {
	b.d.Labels = append(b.d.Labels, Label{Span: s, Message: message})
	return b
}

// Note attaches a trailing note line.
func (b *Builder) Note(message string) *Builder {
	b.d.Notes = append(b.d.Notes, message)
	return b
}

// Help attaches a trailing help line.
func (b *Builder) Help(message string) *Builder {
	b.d.Helps = append(b.d.Helps, message)
	return b
}

// Emit finalizes and hands the diagnostic to its Handler.
func (b *Builder) Emit() {
	if b.done {
		return
	}
	b.done = true
	runtime.SetFinalizer(b, nil)
	b.h.emit(b.d)
}

// Cancel discards the diagnostic without emitting it. Used when a caller
// speculatively builds a diagnostic but then finds the condition doesn't
// actually hold.
func (b *Builder) Cancel() {
	b.done = true
	runtime.SetFinalizer(b, nil)
}
