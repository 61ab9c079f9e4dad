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

package pp

import (
	"hash/fnv"

	"github.com/kos-kasm/kasm/internal/source"
	"github.com/kos-kasm/kasm/internal/token"
)

// identHash is a 64-bit FNV-1a hash of an identifier's textual slice, used
// as the first half of a macro lookup key; collisions are resolved by also
// requiring an arity match (see macroKey).
func identHash(name string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return h.Sum64()
}

// macroKey is the lookup key for both the single-line and multi-line macro
// tables: an identifier hash paired with an arity. For single-line macros,
// arity is the number of formal parameters (0 for a bodiless or bare
// macro). For multi-line macros it is the required-argument count; a call
// supplying anywhere from Required to Max arguments matches the same entry,
// so multi-line lookups first try every arity from the call's argument
// count down to 0 when probing the table (see lookupML).
type macroKey struct {
	hash  uint64
	arity int
}

func keyFor(name string, arity int) macroKey {
	return macroKey{hash: identHash(name), arity: arity}
}

// slMacro is an installed single-line macro definition.
type slMacro struct {
	name string
	args []string
	body []Node
	span source.Span
}

// mlMacro is an installed multi-line macro definition.
type mlMacro struct {
	name  string
	arity MLArity
	body  []Node
	span  source.Span
}

// macroTable holds every macro currently in scope. Single-line and
// multi-line macros share one name space: installing a name under one kind
// while it is registered under the other is an error (checked by the
// executor, not here).
type macroTable struct {
	sl map[macroKey]*slMacro
	ml map[macroKey]*mlMacro
	// byName tracks which kind (if any) currently owns a bare name, for the
	// shared-namespace collision check.
	byName map[string]bool // true if the name is installed as multi-line
	// mlArities and slArities track which arities a name is registered
	// under, so the undef paths know exactly which table entries to drop
	// and when a name's namespace claim can be released entirely.
	mlArities map[string][]int
	slArities map[string][]int
}

func newMacroTable() *macroTable {
	return &macroTable{
		sl:        make(map[macroKey]*slMacro),
		ml:        make(map[macroKey]*mlMacro),
		byName:    make(map[string]bool),
		mlArities: make(map[string][]int),
		slArities: make(map[string][]int),
	}
}

func (t *macroTable) lookupSL(name string, arity int) (*slMacro, bool) {
	m, ok := t.sl[keyFor(name, arity)]
	return m, ok
}

// lookupML finds the multi-line macro matching name that accepts argc
// arguments, trying every declared required-arity from argc down to 0: a
// macro declared "2-4" is keyed under required=2, so a 3- or 4-argument
// call must still find it via the required-count key.
func (t *macroTable) lookupML(name string, argc int) (*mlMacro, bool) {
	h := identHash(name)
	for req := argc; req >= 0; req-- {
		if m, ok := t.ml[macroKey{hash: h, arity: req}]; ok && argc >= m.arity.Required && argc <= m.arity.Max {
			return m, true
		}
	}
	return nil, false
}

// installSL registers a single-line macro, returning false if the name is
// already claimed by a multi-line macro.
func (t *macroTable) installSL(m *slMacro, arity int) bool {
	if claimed, seen := t.byName[m.name]; seen && claimed {
		return false
	}
	t.byName[m.name] = false
	t.sl[keyFor(m.name, arity)] = m
	t.slArities[m.name] = append(t.slArities[m.name], arity)
	return true
}

// installML registers a multi-line macro, returning false if the name is
// already claimed by a single-line macro.
func (t *macroTable) installML(m *mlMacro) bool {
	if claimed, seen := t.byName[m.name]; seen && !claimed {
		return false
	}
	t.byName[m.name] = true
	t.ml[macroKey{hash: identHash(m.name), arity: m.arity.Required}] = m
	t.mlArities[m.name] = append(t.mlArities[m.name], m.arity.Required)
	return true
}

// undefSL removes a single-line macro by (name, arity); silent if absent.
// Once no arity remains registered under name, its namespace claim is
// released so the name could later be redefined as a multi-line macro.
func (t *macroTable) undefSL(name string, arity int) {
	delete(t.sl, keyFor(name, arity))
	kept := t.slArities[name][:0]
	for _, a := range t.slArities[name] {
		if a != arity {
			kept = append(kept, a)
		}
	}
	if len(kept) == 0 {
		delete(t.slArities, name)
		delete(t.byName, name)
	} else {
		t.slArities[name] = kept
	}
}

// undefML removes every multi-line macro registered under name; silent if
// absent.
func (t *macroTable) undefML(name string) {
	h := identHash(name)
	for _, req := range t.mlArities[name] {
		delete(t.ml, macroKey{hash: h, arity: req})
	}
	delete(t.mlArities, name)
	delete(t.byName, name)
}

// isMacroName reports whether name is currently installed as any kind of
// macro, single-line or multi-line; it does not say which kind or arity.
func (t *macroTable) isMacroName(name string) bool {
	_, ok := t.byName[name]
	return ok
}
