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
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kos-kasm/kasm/internal/source"
)

const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
	ansiCyan   = "\x1b[36m"
)

func severityColor(s Severity) string {
	switch s {
	case Bug, Error:
		return ansiRed
	case Warning:
		return ansiYellow
	default:
		return ansiCyan
	}
}

func paint(on bool, color, s string) string {
	if !on || s == "" {
		return s
	}
	return color + s + ansiReset
}

// render writes a single diagnostic to w in the documented format:
//
//	level: message
//	  --> file:line:col
//	   |
//	 N | <gutter line>
//	   |      ^^^^ label
//	   ...
//	   = note: ...
func render(w io.Writer, src *source.Manager, d Diagnostic, color bool) {
	levelColor := severityColor(d.Severity)
	fmt.Fprintf(w, "%s: %s\n", paint(color, levelColor+ansiBold, d.Severity.String()), d.Message)

	if d.Primary != nil {
		pos := src.Position(*d.Primary)
		fmt.Fprintf(w, "  %s %s:%d:%d\n", paint(color, ansiBlue, "-->"), pos.File, pos.Line, pos.Col)
		writeSnippet(w, pos, "", color, levelColor)
	}

	for i, lbl := range d.Labels {
		if i > 0 || d.Primary != nil {
			fmt.Fprintln(w, "  ...")
		}
		pos := src.Position(lbl.Span)
		fmt.Fprintf(w, "  %s %s:%d:%d\n", paint(color, ansiBlue, "-->"), pos.File, pos.Line, pos.Col)
		writeSnippet(w, pos, lbl.Message, color, ansiBlue)
	}

	for _, n := range d.Notes {
		fmt.Fprintf(w, "  %s %s\n", paint(color, ansiBold, "="), "note: "+n)
	}
	for _, h := range d.Helps {
		fmt.Fprintf(w, "  %s %s\n", paint(color, ansiBold, "="), "help: "+h)
	}
}

func writeSnippet(w io.Writer, pos source.Position, label string, color bool, underlineColor string) {
	gutter := strconv.Itoa(pos.Line)
	pad := strings.Repeat(" ", len(gutter))
	fmt.Fprintf(w, "%s |\n", pad)
	fmt.Fprintf(w, "%s | %s\n", gutter, pos.Line0)
	fmt.Fprintf(w, "%s | ", pad)

	if pos.Col > 1 {
		fmt.Fprint(w, strings.Repeat(" ", pos.Col-1))
	}
	length := pos.Len
	if length < 1 {
		length = 1
	}
	carets := strings.Repeat("^", length)
	fmt.Fprint(w, paint(color, underlineColor, carets))
	if label != "" {
		fmt.Fprint(w, " ", label)
	}
	fmt.Fprintln(w)
}
