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
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kos-kasm/kasm/internal/diag"
	"github.com/kos-kasm/kasm/internal/ngi"
	"github.com/kos-kasm/kasm/kasm"
)

type colorFlag string

func (c *colorFlag) String() string { return string(*c) }
func (c *colorFlag) Set(s string) error {
	switch s {
	case "auto", "always", "never":
		*c = colorFlag(s)
		return nil
	default:
		return fmt.Errorf("invalid value %q: must be auto, always or never", s)
	}
}
func (c *colorFlag) mode() diag.ColorMode {
	switch *c {
	case "always":
		return diag.ColorAlways
	case "never":
		return diag.ColorNever
	default:
		return diag.ColorAuto
	}
}

type includePaths []string

func (p *includePaths) String() string     { return "" }
func (p *includePaths) Set(s string) error { *p = append(*p, s); return nil }

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [flags] file.kasm\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	os.Exit(run())
}

func run() int {
	var (
		outFile    string
		include    includePaths
		comment    string
		fileSymbol string
		preprocess bool
		warnings   bool
		dumpAST    bool
		color      = colorFlag("auto")
	)

	flag.Usage = usage
	flag.StringVar(&outFile, "o", "", "write a disassembled listing to `filename` (default: stdout)")
	flag.Var(&include, "I", "add `dir` to the .include search path (can be specified multiple times)")
	flag.StringVar(&comment, "comment", "", "`text` stored in the generated file's .comment section")
	flag.StringVar(&fileSymbol, "filesym", "", "override the generated File symbol's `name` (default: the input path)")
	flag.BoolVar(&preprocess, "E", false, "preprocess only: dump the expanded token stream and exit")
	flag.BoolVar(&warnings, "W", true, "enable warning diagnostics")
	flag.BoolVar(&dumpAST, "dump-ast", false, "dump the preprocessor's token stream before parsing, for debugging")
	flag.Var(&color, "color", "diagnostic color mode: auto, always or never")
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		return 2
	}
	path := flag.Arg(0)

	resolvedInclude := []string(include)
	if len(resolvedInclude) == 0 {
		resolvedInclude = []string{filepath.Dir(path)}
	}

	if preprocess || dumpAST {
		return dumpTokens(resolvedInclude, path)
	}

	opts := []kasm.Option{
		kasm.WithComment(comment),
		kasm.WithFileSymbolName(fileSymbol),
		kasm.WithColor(color.mode()),
		kasm.WithIncludePaths(resolvedInclude...),
		kasm.WithWarnings(warnings),
	}
	a, err := kasm.New(opts...)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	res, err := a.Assemble(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if res.Diags.HasErrors() {
		return 1
	}

	out := os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		defer f.Close()
		out = f
	}
	ew := ngi.NewErrWriter(out)
	res.File.Dump(ew)
	if ew.Err != nil {
		fmt.Fprintln(os.Stderr, ew.Err)
		return 1
	}
	return 0
}
