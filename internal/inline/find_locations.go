package inline

import (
	"p4mid/internal/diag"
	"p4mid/internal/ir"
)

// FindLocationSets computes the set of abstract locations an argument
// expression may read or write. The caller uses overlap between
// argument sets to decide when inlining must route a value through a
// temporary instead of substituting the argument directly.
type FindLocationSets struct {
	refMap   *ir.ReferenceMap
	resolve  TypeResolver
	reporter diag.Reporter
}

// NewFindLocationSets returns an analysis bound to the reference map.
// The resolver is needed to recognize header-stack accesses.
func NewFindLocationSets(refMap *ir.ReferenceMap, resolve TypeResolver, r diag.Reporter) *FindLocationSets {
	return &FindLocationSets{refMap: refMap, resolve: resolve, reporter: r}
}

// Compute returns the location set of the expression. Expressions that
// denote no storage (constants, default keysets) yield an empty set.
// An unresolved path is an internal error: resolution runs before
// inlining, so every path must be bound.
func (f *FindLocationSets) Compute(e *ir.Expr) *LocationSet {
	out := NewLocationSet()
	f.collect(e, out)
	return out
}

func (f *FindLocationSets) collect(e *ir.Expr, out *LocationSet) {
	if e == nil {
		return
	}
	switch e.Kind {
	case ir.ExprPath:
		p := e.Path().Path
		decl := f.refMap.GetDeclaration(p)
		if decl == nil {
			diag.Bugf(f.reporter, diag.BugNoLocationSet, e.Span,
				"no declaration bound to %s", p)
		}
		out.Add(Location{Decl: decl.DeclID()})
	case ir.ExprMember:
		d := e.Member()
		base := f.Compute(d.Base)
		sel := Selector{Kind: SelField, Field: d.Field}
		// next and last on a header stack denote a statically unknown
		// element, so the access covers every slot of the stack.
		if bt := f.resolveType(f.typeOf(d.Base)); bt != nil && bt.Kind == ir.TypeStack &&
			(d.Field == "next" || d.Field == "last") {
			sel = Selector{Kind: SelAll}
		}
		out.AddAll(base.Append(sel))
	case ir.ExprIndex:
		d := e.Index()
		base := f.Compute(d.Base)
		sel := Selector{Kind: SelAll}
		if d.Index != nil && d.Index.Kind == ir.ExprConst {
			sel = Selector{Kind: SelIndex, Index: int(d.Index.Const().Value)}
		}
		out.AddAll(base.Append(sel))
		if d.Index != nil && d.Index.Kind != ir.ExprConst {
			f.collect(d.Index, out)
		}
	case ir.ExprList:
		for _, it := range e.List().Items {
			f.collect(it, out)
		}
	case ir.ExprCall:
		d := e.Call()
		f.collect(d.Callee, out)
		for _, a := range d.Args {
			f.collect(a, out)
		}
	case ir.ExprSelect:
		d := e.Select()
		for _, s := range d.Select {
			f.collect(s, out)
		}
		for _, c := range d.Cases {
			f.collect(c.Keyset, out)
		}
	case ir.ExprConst, ir.ExprBoolConst, ir.ExprDefault:
	}
}

func (f *FindLocationSets) resolveType(t *ir.Type) *ir.Type {
	if t == nil || f.resolve == nil {
		return t
	}
	return f.resolve(t)
}

// typeOf returns the declared type of a storage expression, nil when it
// cannot be determined. Only the shapes collect descends through are
// handled.
func (f *FindLocationSets) typeOf(e *ir.Expr) *ir.Type {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case ir.ExprPath:
		switch d := f.refMap.GetDeclaration(e.Path().Path).(type) {
		case *ir.Variable:
			return d.Type
		case *ir.Param:
			return d.Type
		case *ir.Constant:
			return d.Type
		case *ir.Instance:
			return d.Type
		}
	case ir.ExprMember:
		d := e.Member()
		base := f.resolveType(f.typeOf(d.Base))
		if base == nil {
			return nil
		}
		switch base.Kind {
		case ir.TypeStack:
			return base.Stack().Elem
		case ir.TypeHeader, ir.TypeStruct:
			for _, fd := range base.Fields().Fields {
				if fd.Name == d.Field {
					return fd.Type
				}
			}
		}
	case ir.ExprIndex:
		base := f.resolveType(f.typeOf(e.Index().Base))
		if base != nil && base.Kind == ir.TypeStack {
			return base.Stack().Elem
		}
	}
	return nil
}
