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

package main

import (
	"fmt"
	"os"

	"github.com/kos-kasm/kasm/internal/diag"
	"github.com/kos-kasm/kasm/internal/lexer"
	"github.com/kos-kasm/kasm/internal/ngi"
	"github.com/kos-kasm/kasm/internal/pp"
	"github.com/kos-kasm/kasm/internal/source"
)

// dumpTokens runs only the lexing and preprocessing stages for path and
// writes the resulting flat token stream to stdout, one token per line. It
// never reaches the parser, verifier or code generator.
func dumpTokens(includePaths []string, path string) int {
	sm := source.NewManager()
	f, err := sm.Load(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	h := diag.NewHandler(sm, os.Stderr, diag.ColorNever)

	toks := lexer.New(f, h).Lex()
	toks = lexer.Phase0(h, toks)
	toks = lexer.Phase1(toks)
	nodes := pp.Parse(toks, sm, h)
	exec := pp.NewExecutor(sm, h)
	exec.IncludePaths = includePaths
	final := exec.Run(nodes)

	ew := ngi.NewErrWriter(os.Stdout)
	for _, t := range final {
		fmt.Fprintf(ew, "%-14s %q\n", t.Kind, sm.Text(t.Span))
	}
	if ew.Err != nil {
		fmt.Fprintln(os.Stderr, ew.Err)
		return 1
	}
	if h.HasErrors() {
		return 1
	}
	return 0
}
