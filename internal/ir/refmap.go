package ir

import (
	"fmt"
	"strings"
)

// ReferenceMap binds path nodes to the declarations they resolve to.
// Bindings key on *Path identity, so cloning an expression drops its
// bindings and transforms must re-bind the clone explicitly.
//
// The map also owns fresh-name generation. Names are handed out per
// base with a monotone counter, skipping anything already in use, so a
// base is never reissued within one program.
type ReferenceMap struct {
	decls    map[*Path]Decl
	used     map[string]struct{}
	counters map[string]int
}

// NewReferenceMap returns an empty reference map.
func NewReferenceMap() *ReferenceMap {
	return &ReferenceMap{
		decls:    make(map[*Path]Decl),
		used:     make(map[string]struct{}),
		counters: make(map[string]int),
	}
}

// GetDeclaration returns the declaration bound to the path, or nil.
func (m *ReferenceMap) GetDeclaration(p *Path) Decl {
	return m.decls[p]
}

// SetDeclaration binds the path to the declaration, replacing any
// previous binding.
func (m *ReferenceMap) SetDeclaration(p *Path, d Decl) {
	if p == nil || d == nil {
		return
	}
	m.decls[p] = d
	m.MarkUsed(d.DeclName())
}

// MarkUsed records a name so NewName never hands it out.
func (m *ReferenceMap) MarkUsed(name string) {
	m.used[name] = struct{}{}
}

// Used reports whether a name has been seen or issued.
func (m *ReferenceMap) Used(name string) bool {
	_, ok := m.used[name]
	return ok
}

// NewName returns a fresh name derived from base. Dots in the base are
// flattened to underscores first; the result is base_N for the smallest
// N not yet in use, starting from 1.
func (m *ReferenceMap) NewName(base string) string {
	base = strings.ReplaceAll(base, ".", "_")
	n := m.counters[base]
	for {
		n++
		candidate := fmt.Sprintf("%s_%d", base, n)
		if !m.Used(candidate) {
			m.counters[base] = n
			m.MarkUsed(candidate)
			return candidate
		}
	}
}

// SeedProgram marks as used the names of the top-level declarations,
// of the parameters, locals and states of controls and parsers, and of
// action parameters. Variables declared in statement position (inside
// parser states or action bodies) are not marked. Call once before any
// pass that mints fresh names.
func (m *ReferenceMap) SeedProgram(prog *Program) {
	for _, d := range prog.Objects {
		m.seedDecl(d)
	}
}

func (m *ReferenceMap) seedDecl(d Decl) {
	if d == nil {
		return
	}
	m.MarkUsed(d.DeclName())
	switch d := d.(type) {
	case *Control:
		for _, p := range d.ApplyParams {
			m.MarkUsed(p.Name)
		}
		for _, p := range d.ConstructorParams {
			m.MarkUsed(p.Name)
		}
		for _, l := range d.Locals {
			m.seedDecl(l)
		}
	case *Parser:
		for _, p := range d.ApplyParams {
			m.MarkUsed(p.Name)
		}
		for _, p := range d.ConstructorParams {
			m.MarkUsed(p.Name)
		}
		for _, l := range d.Locals {
			m.seedDecl(l)
		}
		for _, s := range d.States {
			m.MarkUsed(s.Name)
		}
	case *Action:
		for _, p := range d.Params {
			m.MarkUsed(p.Name)
		}
	}
}
