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

package diag

import (
	"io"
	"os"
	"sync"

	"github.com/kos-kasm/kasm/internal/source"
)

// ColorMode controls whether rendered diagnostics use ANSI color.
type ColorMode int

const (
	// ColorAuto enables color only when the output writer is a terminal.
	ColorAuto ColorMode = iota
	ColorAlways
	ColorNever
)

// Handler collects and renders diagnostics for one compilation. All callers
// in this module are single-threaded, but emit is serialized behind a
// mutex so that a future concurrent driver (e.g. one goroutine per input
// file) stays safe without further changes here.
type Handler struct {
	mu    sync.Mutex
	src   *source.Manager
	w     io.Writer
	color bool

	// SuppressWarnings drops Warning diagnostics before they are rendered or
	// recorded, for the CLI's -W=false. Error and Bug diagnostics are never
	// suppressed.
	SuppressWarnings bool

	diagnostics []Diagnostic
	errorCount  int
	bugCount    int
}

// NewHandler returns a Handler that renders to w, resolving spans through
// src. The color mode is resolved once, at construction time, against w.
func NewHandler(src *source.Manager, w io.Writer, mode ColorMode) *Handler {
	return &Handler{
		src:   src,
		w:     w,
		color: resolveColor(mode, w),
	}
}

func resolveColor(mode ColorMode, w io.Writer) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	default:
		f, ok := w.(*os.File)
		if !ok {
			return false
		}
		st, err := f.Stat()
		if err != nil {
			return false
		}
		return st.Mode()&os.ModeCharDevice != 0
	}
}

// StructError starts building an Error diagnostic.
func (h *Handler) StructError(msg string) *Builder { return newBuilder(h, Error, msg) }

// StructWarning starts building a Warning diagnostic.
func (h *Handler) StructWarning(msg string) *Builder { return newBuilder(h, Warning, msg) }

// StructBug starts building a Bug diagnostic.
func (h *Handler) StructBug(msg string) *Builder { return newBuilder(h, Bug, msg) }

// SpanError is a convenience for the common case of an error with only a
// primary span and no secondary labels.
func (h *Handler) SpanError(s source.Span, msg string) {
	h.StructError(msg).SetPrimarySpan(s).Emit()
}

// ReportBug reports a bug diagnostic with no span, for invariant violations
// detected far from any particular source location.
func (h *Handler) ReportBug(msg string) {
	h.StructBug(msg).Emit()
}

func (h *Handler) emit(d Diagnostic) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if d.Severity == Warning && h.SuppressWarnings {
		return
	}
	h.diagnostics = append(h.diagnostics, d)
	switch d.Severity {
	case Error:
		h.errorCount++
	case Bug:
		h.bugCount++
	}
	render(h.w, h.src, d, h.color)
}

// ErrorCount returns the number of Error diagnostics emitted so far.
func (h *Handler) ErrorCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.errorCount
}

// BugCount returns the number of Bug diagnostics emitted so far.
func (h *Handler) BugCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bugCount
}

// HasErrors reports whether any Error or Bug diagnostic was emitted. This is
// the condition that should make the overall compilation fail.
func (h *Handler) HasErrors() bool {
	return h.ErrorCount() > 0 || h.BugCount() > 0
}

// Diagnostics returns a copy of every diagnostic emitted so far, in order.
func (h *Handler) Diagnostics() []Diagnostic {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Diagnostic, len(h.diagnostics))
	copy(out, h.diagnostics)
	return out
}
