package inline

import (
	"p4mid/internal/ir"
	"p4mid/internal/source"
)

// TypeResolver looks through named types to their structural
// definition. Implementations return the input unchanged when the name
// does not resolve.
type TypeResolver func(*ir.Type) *ir.Type

// GenerateResets appends statements invalidating every header reachable
// from dest, which has the given type. An out parameter carries no
// defined value on entry, so when inlining routes it through storage
// that may have been written before, each header in it is reset first.
func GenerateResets(resolve TypeResolver, t *ir.Type, dest *ir.Expr, sp source.Span, body *[]*ir.Stmt) {
	if t == nil || dest == nil {
		return
	}
	if resolve != nil {
		t = resolve(t)
	}
	if t == nil {
		return
	}
	switch t.Kind {
	case ir.TypeHeader:
		call := &ir.Expr{
			Kind: ir.ExprCall,
			Span: sp,
			Data: ir.CallData{
				Callee: &ir.Expr{
					Kind: ir.ExprMember,
					Span: sp,
					Data: ir.MemberData{Base: dest.Clone(), Field: "setInvalid"},
				},
			},
		}
		*body = append(*body, ir.NewMethodCallStmt(sp, call))
	case ir.TypeStack:
		d := t.Stack()
		for i := 0; i < d.Size; i++ {
			elem := &ir.Expr{
				Kind: ir.ExprIndex,
				Span: sp,
				Data: ir.IndexData{
					Base: dest.Clone(),
					Index: &ir.Expr{Kind: ir.ExprConst, Span: sp,
						Data: ir.ConstData{Value: int64(i)}},
				},
			}
			GenerateResets(resolve, d.Elem, elem, sp, body)
		}
	case ir.TypeStruct:
		for _, f := range t.Fields().Fields {
			field := &ir.Expr{
				Kind: ir.ExprMember,
				Span: sp,
				Data: ir.MemberData{Base: dest.Clone(), Field: f.Name},
			}
			GenerateResets(resolve, f.Type, field, sp, body)
		}
	}
}

// NewTypeResolver builds a resolver over the program's type
// definitions. Name chains resolve transitively; unknown names stop the
// chase.
func NewTypeResolver(prog *ir.Program) TypeResolver {
	byName := make(map[string]*ir.Type)
	for _, d := range prog.Objects {
		if td, ok := d.(*ir.TypeDef); ok {
			byName[td.Name] = td.Type
		}
	}
	return func(t *ir.Type) *ir.Type {
		for t != nil && t.Kind == ir.TypeName {
			next, ok := byName[t.Name().Path.Name]
			if !ok {
				return t
			}
			t = next
		}
		return t
	}
}
