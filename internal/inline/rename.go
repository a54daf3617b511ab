package inline

import (
	"strings"

	"p4mid/internal/diag"
	"p4mid/internal/ir"
	"p4mid/internal/source"
)

// SymRenameMap records, per callee declaration, the fresh name it gets
// in the caller and the hierarchical control-plane name it keeps. Keys
// are DeclIDs, which survive cloning, so entries computed on one copy
// of a callee apply to every clone of it.
type SymRenameMap struct {
	entries map[ir.DeclID]renameEntry
}

type renameEntry struct {
	newName string
	extName string
}

// NewSymRenameMap returns an empty rename map.
func NewSymRenameMap() *SymRenameMap {
	return &SymRenameMap{entries: make(map[ir.DeclID]renameEntry)}
}

// SetNewName records the rename for a declaration. Recording the same
// declaration twice is an internal error.
func (m *SymRenameMap) SetNewName(r diag.Reporter, d ir.Decl, newName, extName string) {
	diag.BugCheck(d != nil, r, diag.BugNullDeclaration, source.Span{},
		"rename of a nil declaration")
	if _, ok := m.entries[d.DeclID()]; ok {
		diag.Bugf(r, diag.BugBadRename, d.DeclSpan(),
			"duplicate rename of %s", d.DeclName())
	}
	m.entries[d.DeclID()] = renameEntry{newName: newName, extName: extName}
}

// NewName returns the fresh name recorded for the declaration.
func (m *SymRenameMap) NewName(d ir.Decl) (string, bool) {
	if d == nil {
		return "", false
	}
	e, ok := m.entries[d.DeclID()]
	return e.newName, ok
}

// ExternalName returns the hierarchical name recorded for the
// declaration.
func (m *SymRenameMap) ExternalName(d ir.Decl) (string, bool) {
	if d == nil {
		return "", false
	}
	e, ok := m.entries[d.DeclID()]
	return e.extName, ok
}

// Len returns the number of recorded renames.
func (m *SymRenameMap) Len() int { return len(m.entries) }

// ComputeNewNames walks a callee's local declarations and picks, for
// each table, action, instance and variable, a fresh caller-scope name
// plus the hierarchical external name rooted at the instance being
// inlined.
type ComputeNewNames struct {
	prefix    string
	refMap    *ir.ReferenceMap
	renameMap *SymRenameMap
	reporter  diag.Reporter
}

// NewComputeNewNames returns the naming pass. prefix is the external
// name of the instance whose callee is being inlined.
func NewComputeNewNames(prefix string, refMap *ir.ReferenceMap, renameMap *SymRenameMap, r diag.Reporter) *ComputeNewNames {
	return &ComputeNewNames{prefix: prefix, refMap: refMap, renameMap: renameMap, reporter: r}
}

// Run visits every renameable local of the declaration.
func (c *ComputeNewNames) Run(d ir.Decl) {
	switch d := d.(type) {
	case *ir.Control:
		for _, l := range d.Locals {
			c.visitLocal(l)
		}
	case *ir.Parser:
		for _, l := range d.Locals {
			c.visitLocal(l)
		}
	}
}

func (c *ComputeNewNames) visitLocal(d ir.Decl) {
	switch d.(type) {
	case *ir.Table, *ir.Action, *ir.Instance, *ir.Variable:
		c.rename(d)
	}
}

// rename computes the pair of names for one declaration. A leading-dot
// external name is absolute and is preserved verbatim; anything else is
// nested under the instance prefix. The fresh name flattens every dot
// of the hierarchical one to an underscore, a leading dot included, so
// collisions resolve through the used-name set.
func (c *ComputeNewNames) rename(d ir.Decl) {
	name := d.ExternalName()
	var extName string
	if strings.HasPrefix(name, ".") {
		extName = name
	} else {
		extName = c.prefix + "." + name
	}
	newName := c.refMap.NewName(extName)
	c.renameMap.SetNewName(c.reporter, d, newName, extName)
}

// StateRenameMap maps callee parser state names to their names in the
// caller. States are referenced by name in transitions, so the map is
// keyed syntactically.
type StateRenameMap map[string]string

// ComputeNewStateNames picks fresh caller-scope names for every state
// of the callee parser, prefixed with the callee parser's name. The
// accept state maps to the continuation state that resumes the caller;
// reject is never renamed, a rejecting callee rejects the whole parser.
func ComputeNewStateNames(states []*ir.State, prefix, acceptName string, refMap *ir.ReferenceMap) StateRenameMap {
	m := make(StateRenameMap, len(states)+1)
	m[ir.StateAccept] = acceptName
	for _, s := range states {
		if s.IsBuiltin() {
			continue
		}
		m[s.Name] = refMap.NewName(prefix + "_" + s.Name)
	}
	return m
}

// RenameStates rewrites state references according to the map: state
// declarations, direct transitions and select case targets. The
// rewrite is purely syntactic.
func RenameStates(states []*ir.State, m StateRenameMap) {
	for _, s := range states {
		if n, ok := m[s.Name]; ok {
			s.Name = n
		}
		renameTransition(s.Transition, m)
	}
}

func renameTransition(e *ir.Expr, m StateRenameMap) {
	if e == nil {
		return
	}
	switch e.Kind {
	case ir.ExprPath:
		p := e.Path().Path
		if n, ok := m[p.Name]; ok {
			p.Name = n
		}
	case ir.ExprSelect:
		for _, c := range e.Select().Cases {
			if n, ok := m[c.State.Name]; ok {
				c.State.Name = n
			}
		}
	}
}
