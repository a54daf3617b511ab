package inline

import (
	"p4mid/internal/diag"
	"p4mid/internal/ir"
	"p4mid/internal/source"
)

func testReporter() (*diag.Bag, diag.Reporter) {
	bag := diag.NewBag(50)
	return bag, diag.NewDedupReporter(diag.BagReporter{Bag: bag})
}

func bitType(width int) *ir.Type {
	return &ir.Type{Kind: ir.TypeBits, Data: ir.BitsData{Width: width}}
}

func namedType(name string) *ir.Type {
	return &ir.Type{Kind: ir.TypeName, Data: ir.NameData{Path: ir.NewPath(name)}}
}

// boundPath builds a path expression and binds it to the declaration.
func boundPath(m *ir.ReferenceMap, name string, d ir.Decl) *ir.Expr {
	e := ir.NewPathExpr(name, source.Span{})
	if m != nil && d != nil {
		m.SetDeclaration(e.Path().Path, d)
	}
	return e
}

func memberExpr(base *ir.Expr, field string) *ir.Expr {
	return &ir.Expr{Kind: ir.ExprMember, Data: ir.MemberData{Base: base, Field: field}}
}

func indexExpr(base, idx *ir.Expr) *ir.Expr {
	return &ir.Expr{Kind: ir.ExprIndex, Data: ir.IndexData{Base: base, Index: idx}}
}

func constExpr(v int64) *ir.Expr {
	return &ir.Expr{Kind: ir.ExprConst, Data: ir.ConstData{Value: v}}
}

// boundInstance builds an instance of callee and binds its type path.
func boundInstance(b *ir.Builder, m *ir.ReferenceMap, name string, callee ir.Decl) *ir.Instance {
	t := namedType(callee.DeclName())
	m.SetDeclaration(t.Name().Path, callee)
	return b.Instance(name, t, nil, source.Span{})
}

// applySite builds an inst.apply(args...) statement with the instance
// path bound.
func applySite(m *ir.ReferenceMap, inst *ir.Instance, args ...*ir.Expr) *ir.Stmt {
	base := boundPath(m, inst.DeclName(), inst)
	call := &ir.Expr{
		Kind: ir.ExprCall,
		Data: ir.CallData{
			Callee: memberExpr(base, "apply"),
			Args:   args,
		},
	}
	return ir.NewMethodCallStmt(source.Span{}, call)
}

// collectAssigns gathers assignment statements in execution order,
// descending through nested blocks.
func collectAssigns(s *ir.Stmt, out *[]*ir.Stmt) {
	if s == nil {
		return
	}
	switch s.Kind {
	case ir.StmtAssign:
		*out = append(*out, s)
	case ir.StmtBlock:
		for _, inner := range s.Block().Stmts {
			collectAssigns(inner, out)
		}
	case ir.StmtIf:
		d := s.If()
		collectAssigns(d.Then, out)
		collectAssigns(d.Else, out)
	}
}

func hasCode(bag *diag.Bag, code diag.Code) bool {
	for _, d := range bag.Items() {
		if d.Code == code {
			return true
		}
	}
	return false
}
