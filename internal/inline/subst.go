package inline

import (
	"p4mid/internal/diag"
	"p4mid/internal/ir"
)

// ParameterSubstitution binds parameters to the expressions that
// replace them. Bindings key on DeclID so they survive callee cloning.
type ParameterSubstitution struct {
	params []*ir.Param
	byID   map[ir.DeclID]*ir.Expr
}

// NewParameterSubstitution returns an empty substitution.
func NewParameterSubstitution() *ParameterSubstitution {
	return &ParameterSubstitution{byID: make(map[ir.DeclID]*ir.Expr)}
}

// Add binds a parameter to an expression.
func (s *ParameterSubstitution) Add(p *ir.Param, e *ir.Expr) {
	if _, ok := s.byID[p.DeclID()]; !ok {
		s.params = append(s.params, p)
	}
	s.byID[p.DeclID()] = e
}

// Lookup returns the expression bound to the parameter, or nil.
func (s *ParameterSubstitution) Lookup(p *ir.Param) *ir.Expr {
	return s.byID[p.DeclID()]
}

// LookupByID returns the expression bound to the declaration ID, or nil.
func (s *ParameterSubstitution) LookupByID(id ir.DeclID) *ir.Expr {
	return s.byID[id]
}

// Empty reports whether no parameters are bound.
func (s *ParameterSubstitution) Empty() bool { return len(s.byID) == 0 }

// Clone returns a shallow copy: the same bindings in a fresh map, so a
// per-call-site copy can add bindings without touching the original.
func (s *ParameterSubstitution) Clone() *ParameterSubstitution {
	out := NewParameterSubstitution()
	out.params = append(out.params, s.params...)
	for id, e := range s.byID {
		out.byID[id] = e
	}
	return out
}

// TypeVarSubstitution binds type parameters by name to concrete types.
type TypeVarSubstitution struct {
	byName map[string]*ir.Type
}

// NewTypeVarSubstitution returns an empty substitution.
func NewTypeVarSubstitution() *TypeVarSubstitution {
	return &TypeVarSubstitution{byName: make(map[string]*ir.Type)}
}

// Bind binds a type variable name to a type.
func (s *TypeVarSubstitution) Bind(name string, t *ir.Type) {
	s.byName[name] = t
}

// Lookup returns the type bound to the name, or nil.
func (s *TypeVarSubstitution) Lookup(name string) *ir.Type {
	return s.byName[name]
}

// Clone returns a copy with the same bindings.
func (s *TypeVarSubstitution) Clone() *TypeVarSubstitution {
	out := NewTypeVarSubstitution()
	for n, t := range s.byName {
		out.byName[n] = t
	}
	return out
}

// PerInstanceSubstitutions bundles everything needed to rewrite one
// inlined instance: constructor parameter bindings, type variable
// bindings and the rename map. Call sites clone the bundle and add
// apply-parameter bindings on the copy; the rename map is shared, it is
// read-only once naming has run.
type PerInstanceSubstitutions struct {
	ParamSubst *ParameterSubstitution
	TypeVars   *TypeVarSubstitution
	RenameMap  *SymRenameMap
}

// NewPerInstanceSubstitutions returns an empty bundle.
func NewPerInstanceSubstitutions() *PerInstanceSubstitutions {
	return &PerInstanceSubstitutions{
		ParamSubst: NewParameterSubstitution(),
		TypeVars:   NewTypeVarSubstitution(),
		RenameMap:  NewSymRenameMap(),
	}
}

// Clone copies the parameter and type bindings and shares the rename
// map.
func (s *PerInstanceSubstitutions) Clone() *PerInstanceSubstitutions {
	return &PerInstanceSubstitutions{
		ParamSubst: s.ParamSubst.Clone(),
		TypeVars:   s.TypeVars.Clone(),
		RenameMap:  s.RenameMap,
	}
}

// Substitutions rewrites a callee clone for one call site: parameter
// references become the bound argument expressions, type variables
// become their concrete types, and renamed declarations and the paths
// referring to them pick up their fresh names. The transform mutates
// the tree it is given, which must already be a clone.
type Substitutions struct {
	refMap   *ir.ReferenceMap
	substs   *PerInstanceSubstitutions
	reporter diag.Reporter
}

// NewSubstitutions returns a transform applying the given bundle.
func NewSubstitutions(refMap *ir.ReferenceMap, substs *PerInstanceSubstitutions, r diag.Reporter) *Substitutions {
	return &Substitutions{refMap: refMap, substs: substs, reporter: r}
}

// cloneExprBound clones an expression and mirrors every path binding
// from the original onto the clone, so the copy resolves identically.
func cloneExprBound(e *ir.Expr, refMap *ir.ReferenceMap) *ir.Expr {
	c := e.Clone()
	rebindExpr(e, c, refMap)
	return c
}

func rebindExpr(orig, clone *ir.Expr, refMap *ir.ReferenceMap) {
	var origPaths, clonePaths []*ir.Path
	ir.WalkExprPaths(orig, func(p *ir.Path) { origPaths = append(origPaths, p) })
	ir.WalkExprPaths(clone, func(p *ir.Path) { clonePaths = append(clonePaths, p) })
	for i := range origPaths {
		if d := refMap.GetDeclaration(origPaths[i]); d != nil {
			refMap.SetDeclaration(clonePaths[i], d)
		}
	}
}

// RebindStmt mirrors path bindings from an original statement onto its
// clone. The two trees must have identical shape.
func RebindStmt(orig, clone *ir.Stmt, refMap *ir.ReferenceMap) {
	var origPaths, clonePaths []*ir.Path
	ir.WalkStmtPaths(orig, func(p *ir.Path) { origPaths = append(origPaths, p) })
	ir.WalkStmtPaths(clone, func(p *ir.Path) { clonePaths = append(clonePaths, p) })
	for i := range origPaths {
		if d := refMap.GetDeclaration(origPaths[i]); d != nil {
			refMap.SetDeclaration(clonePaths[i], d)
		}
	}
}

// RebindDecl mirrors path bindings from an original declaration onto
// its clone.
func RebindDecl(orig, clone ir.Decl, refMap *ir.ReferenceMap) {
	var origPaths, clonePaths []*ir.Path
	ir.WalkDeclPaths(orig, func(p *ir.Path) { origPaths = append(origPaths, p) })
	ir.WalkDeclPaths(clone, func(p *ir.Path) { clonePaths = append(clonePaths, p) })
	for i := range origPaths {
		if d := refMap.GetDeclaration(origPaths[i]); d != nil {
			refMap.SetDeclaration(clonePaths[i], d)
		}
	}
}

// Expr rewrites an expression and returns its replacement.
func (s *Substitutions) Expr(e *ir.Expr) *ir.Expr {
	if e == nil {
		return nil
	}
	switch d := e.Data.(type) {
	case ir.PathData:
		return s.pathExpr(e, d)
	case ir.MemberData:
		e.Data = ir.MemberData{Base: s.Expr(d.Base), Field: d.Field}
	case ir.IndexData:
		e.Data = ir.IndexData{Base: s.Expr(d.Base), Index: s.Expr(d.Index)}
	case ir.ConstData:
		e.Data = ir.ConstData{Value: d.Value, Type: s.Type(d.Type)}
	case ir.CallData:
		callee := s.Expr(d.Callee)
		for i, t := range d.TypeArgs {
			d.TypeArgs[i] = s.Type(t)
		}
		for i, a := range d.Args {
			d.Args[i] = s.Expr(a)
		}
		e.Data = ir.CallData{Callee: callee, TypeArgs: d.TypeArgs, Args: d.Args}
	case ir.ListData:
		for i, it := range d.Items {
			d.Items[i] = s.Expr(it)
		}
	case ir.SelectData:
		for i, sel := range d.Select {
			d.Select[i] = s.Expr(sel)
		}
		for i := range d.Cases {
			d.Cases[i].Keyset = s.Expr(d.Cases[i].Keyset)
		}
	}
	return e
}

// pathExpr handles the two jobs a path reference can trigger: if it
// resolves to a bound parameter the whole expression becomes a copy of
// the argument; if it resolves to a renamed declaration the path text
// changes while the binding stays.
func (s *Substitutions) pathExpr(e *ir.Expr, d ir.PathData) *ir.Expr {
	decl := s.refMap.GetDeclaration(d.Path)
	if decl == nil {
		return e
	}
	if p, ok := decl.(*ir.Param); ok {
		if arg := s.substs.ParamSubst.Lookup(p); arg != nil {
			return cloneExprBound(arg, s.refMap)
		}
	}
	if newName, ok := s.substs.RenameMap.NewName(decl); ok {
		d.Path.Name = newName
		d.Path.Absolute = false
	}
	return e
}

// Type rewrites a type expression and returns its replacement.
func (s *Substitutions) Type(t *ir.Type) *ir.Type {
	if t == nil {
		return nil
	}
	switch d := t.Data.(type) {
	case ir.VarData:
		if bound := s.substs.TypeVars.Lookup(d.Name); bound != nil {
			return bound.Clone()
		}
	case ir.NameData:
		if bound := s.substs.TypeVars.Lookup(d.Path.Name); bound != nil {
			return bound.Clone()
		}
	case ir.StackData:
		t.Data = ir.StackData{Elem: s.Type(d.Elem), Size: d.Size}
	case ir.SpecializedData:
		base := s.Type(d.Base)
		for i, a := range d.Args {
			d.Args[i] = s.Type(a)
		}
		t.Data = ir.SpecializedData{Base: base, Args: d.Args}
	case ir.FieldsData:
		for i := range d.Fields {
			d.Fields[i].Type = s.Type(d.Fields[i].Type)
		}
	}
	return t
}

// Stmt rewrites a statement and returns its replacement.
func (s *Substitutions) Stmt(st *ir.Stmt) *ir.Stmt {
	if st == nil {
		return nil
	}
	switch d := st.Data.(type) {
	case ir.AssignData:
		st.Data = ir.AssignData{LHS: s.Expr(d.LHS), RHS: s.Expr(d.RHS)}
	case ir.MethodCallData:
		st.Data = ir.MethodCallData{Call: s.Expr(d.Call)}
	case ir.BlockData:
		for i, inner := range d.Stmts {
			d.Stmts[i] = s.Stmt(inner)
		}
	case ir.IfData:
		st.Data = ir.IfData{Cond: s.Expr(d.Cond), Then: s.Stmt(d.Then), Else: s.Stmt(d.Else)}
	case ir.VarDeclData:
		s.Decl(d.Decl)
	}
	return st
}

// Decl rewrites a local declaration in place: contained types and
// expressions first, then the declaration's own rename.
func (s *Substitutions) Decl(d ir.Decl) {
	switch d := d.(type) {
	case *ir.Variable:
		d.Type = s.Type(d.Type)
		d.Init = s.Expr(d.Init)
	case *ir.Constant:
		d.Type = s.Type(d.Type)
		d.Value = s.Expr(d.Value)
	case *ir.Instance:
		d.Type = s.Type(d.Type)
		for i, a := range d.Args {
			d.Args[i] = s.Expr(a)
		}
	case *ir.Table:
		for i := range d.Properties {
			d.Properties[i].Value = s.Expr(d.Properties[i].Value)
		}
	case *ir.Action:
		for _, p := range d.Params {
			p.Type = s.Type(p.Type)
		}
		d.Body = s.Stmt(d.Body)
	}
	s.applyRename(d)
}

// applyRename installs the fresh name on a renamed declaration and
// pins its control-plane name through the @name annotation.
func (s *Substitutions) applyRename(d ir.Decl) {
	newName, ok := s.substs.RenameMap.NewName(d)
	if !ok {
		return
	}
	extName, _ := s.substs.RenameMap.ExternalName(d)
	ir.Rename(d, newName)
	switch d := d.(type) {
	case *ir.Variable:
		d.Annotations = d.Annotations.WithName(extName)
	case *ir.Constant:
		d.Annotations = d.Annotations.WithName(extName)
	case *ir.Instance:
		d.Annotations = d.Annotations.WithName(extName)
	case *ir.Table:
		d.Annotations = d.Annotations.WithName(extName)
	case *ir.Action:
		d.Annotations = d.Annotations.WithName(extName)
	}
	s.refMap.MarkUsed(newName)
}
