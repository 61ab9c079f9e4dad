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

// Package source owns every file loaded during a compilation and hands out
// 8-bit file ids that the rest of the pipeline carries around instead of
// copying source text. A Span is cheap to copy and compare because it is
// just (start, end, file id); the owning Manager is the only thing that
// ever dereferences it back to bytes.
package source

import (
	"bufio"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// MaxFiles is the hard cap on files loaded in one compilation: a File id is
// 8 bits wide.
const MaxFiles = 256

// File is a single loaded source file.
type File struct {
	Name string // display name, e.g. the path as given on the command line
	Path string // resolved path, empty for in-memory sources
	Text string
	ID   uint8

	lineOffsets []int // byte offset of the start of each line, lineOffsets[0] == 0
}

func newFile(name, path, text string, id uint8) *File {
	f := &File{Name: name, Path: path, Text: text, ID: id}
	f.indexLines()
	return f
}

func (f *File) indexLines() {
	f.lineOffsets = f.lineOffsets[:0]
	f.lineOffsets = append(f.lineOffsets, 0)
	for i := 0; i < len(f.Text); i++ {
		if f.Text[i] == '\n' {
			f.lineOffsets = append(f.lineOffsets, i+1)
		}
	}
}

// lineCol returns the 1-based line and column for a byte offset, with tabs
// counted as a single column (expansion happens in Snippet, not here).
func (f *File) lineCol(offset int) (line, col int) {
	// binary search for the last lineOffsets entry <= offset
	lo, hi := 0, len(f.lineOffsets)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if f.lineOffsets[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	line = lo + 1
	col = offset - f.lineOffsets[lo] + 1
	return line, col
}

func (f *File) lineText(lineIdx1 int) string {
	start := f.lineOffsets[lineIdx1-1]
	var end int
	if lineIdx1 < len(f.lineOffsets) {
		end = f.lineOffsets[lineIdx1] - 1 // exclude the newline
	} else {
		end = len(f.Text)
	}
	if end < start {
		end = start
	}
	if end > len(f.Text) {
		end = len(f.Text)
	}
	return f.Text[start:end]
}

// Span is a half-open byte range within a single file.
type Span struct {
	Start  int
	End    int
	FileID uint8
}

// Join returns the smallest span covering both a and b. Both must share a
// file id; Join panics otherwise since cross-file spans make no sense.
func (a Span) Join(b Span) Span {
	if a.FileID != b.FileID {
		panic("source: Span.Join across different files")
	}
	s := a
	if b.Start < s.Start {
		s.Start = b.Start
	}
	if b.End > s.End {
		s.End = b.End
	}
	return s
}

// Len returns the number of bytes the span covers.
func (s Span) Len() int { return s.End - s.Start }

// Position is the resolved, human-facing location of a Span: the file it
// came from, its 1-based line and column, and the full text of the line it
// starts on (with tabs already expanded to four-column tab stops).
type Position struct {
	File  string
	Line  int
	Col   int // column, 1-based, counted after tab expansion
	Len   int // span length in (expanded) columns, clipped to the line
	Line0 string
}

const tabWidth = 4

// expandTabs replaces every tab with spaces up to the next multiple of
// tabWidth columns and returns the
// translated string along with a column-adjustment function: given a
// pre-expansion column (1-based), it returns the post-expansion column.
func expandTabs(s string) (string, func(col int) int) {
	if !strings.Contains(s, "\t") {
		return s, func(col int) int { return col }
	}
	var b strings.Builder
	adjust := make([]int, 0, len(s)+1)
	col := 0
	adjust = append(adjust, 0)
	for _, r := range s {
		if r == '\t' {
			pad := tabWidth - (col % tabWidth)
			for i := 0; i < pad; i++ {
				b.WriteByte(' ')
			}
			col += pad
		} else {
			b.WriteRune(r)
			col++
		}
		adjust = append(adjust, col)
	}
	return b.String(), func(rawCol int) int {
		idx := rawCol - 1
		if idx < 0 {
			idx = 0
		}
		if idx >= len(adjust) {
			return adjust[len(adjust)-1] + (idx - (len(adjust) - 1))
		}
		return adjust[idx] + 1
	}
}

// Manager owns all loaded files for one compilation.
type Manager struct {
	files []*File
}

// NewManager returns an empty source manager.
func NewManager() *Manager {
	return &Manager{}
}

// AddText registers in-memory source text (used by tests and by the main
// entry point for stdin input) under the given display name. It returns the
// new File, or an error if the file cap has been reached.
func (m *Manager) AddText(name, text string) (*File, error) {
	if len(m.files) >= MaxFiles {
		return nil, errors.Errorf("source: too many files loaded (limit is %d)", MaxFiles)
	}
	f := newFile(name, "", text, uint8(len(m.files)))
	m.files = append(m.files, f)
	return f, nil
}

// Load reads a file from disk and registers it. The display name is the
// path as given by the caller (which may be relative).
func (m *Manager) Load(path string) (*File, error) {
	if len(m.files) >= MaxFiles {
		return nil, errors.Errorf("source: too many files loaded (limit is %d)", MaxFiles)
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "source: cannot open %s", path)
	}
	defer fh.Close()
	st, err := fh.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "source: cannot stat %s", path)
	}
	if st.IsDir() {
		return nil, errors.Errorf("source: %s is a directory, not a file", path)
	}
	r := bufio.NewReader(fh)
	var b strings.Builder
	b.Grow(int(st.Size()))
	if _, err := b.ReadFrom(r); err != nil {
		return nil, errors.Wrapf(err, "source: cannot read %s", path)
	}
	f := newFile(path, path, b.String(), uint8(len(m.files)))
	m.files = append(m.files, f)
	return f, nil
}

// File returns the file registered under the given id. It panics if the id
// is out of range: callers only ever hold ids handed out by this Manager.
func (m *Manager) File(id uint8) *File {
	return m.files[id]
}

// Text returns the full source text referenced by a span.
func (m *Manager) Text(s Span) string {
	f := m.files[s.FileID]
	return f.Text[s.Start:s.End]
}

// Position resolves a span to a human-facing position: file name, line,
// column and the (tab-expanded) text of the line the span starts on. For a
// span crossing multiple lines, the position clips to the first line, per
// spec.
func (m *Manager) Position(s Span) Position {
	f := m.files[s.FileID]
	line, col := f.lineCol(s.Start)
	raw := f.lineText(line)
	expanded, adjust := expandTabs(raw)

	length := s.Len()
	// clip multi-line spans to the remainder of the first line
	lineEnd := len(f.Text)
	if line < len(f.lineOffsets) {
		lineEnd = f.lineOffsets[line] - 1
	}
	if s.Start+length > lineEnd {
		length = lineEnd - s.Start
		if length < 0 {
			length = 0
		}
	}

	return Position{
		File:  f.Name,
		Line:  line,
		Col:   adjust(col),
		Len:   adjust(col+length) - adjust(col),
		Line0: expanded,
	}
}

// Count returns the number of files currently loaded.
func (m *Manager) Count() int { return len(m.files) }
