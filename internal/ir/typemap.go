package ir

// TypeMap records the computed type of expressions and declarations.
// Like the reference map it keys expressions by pointer identity, so
// clones start untyped until a pass re-enters them.
type TypeMap struct {
	exprs map[*Expr]*Type
	decls map[DeclID]*Type
}

// NewTypeMap returns an empty type map.
func NewTypeMap() *TypeMap {
	return &TypeMap{
		exprs: make(map[*Expr]*Type),
		decls: make(map[DeclID]*Type),
	}
}

// TypeOf returns the type recorded for the expression, or nil.
func (m *TypeMap) TypeOf(e *Expr) *Type {
	return m.exprs[e]
}

// SetType records the type of an expression.
func (m *TypeMap) SetType(e *Expr, t *Type) {
	if e == nil || t == nil {
		return
	}
	m.exprs[e] = t
}

// DeclType returns the type recorded for a declaration, or nil.
func (m *TypeMap) DeclType(id DeclID) *Type {
	return m.decls[id]
}

// SetDeclType records the type of a declaration.
func (m *TypeMap) SetDeclType(id DeclID, t *Type) {
	if !id.IsValid() || t == nil {
		return
	}
	m.decls[id] = t
}
