package ir

// WalkExprPaths visits every Path contained in the expression in a
// deterministic preorder. Transforms that clone nodes use it to walk
// the original and the clone in lockstep and mirror bindings.
func WalkExprPaths(e *Expr, fn func(*Path)) {
	if e == nil {
		return
	}
	switch d := e.Data.(type) {
	case PathData:
		fn(d.Path)
	case MemberData:
		WalkExprPaths(d.Base, fn)
	case IndexData:
		WalkExprPaths(d.Base, fn)
		WalkExprPaths(d.Index, fn)
	case ConstData:
		WalkTypePaths(d.Type, fn)
	case CallData:
		WalkExprPaths(d.Callee, fn)
		for _, t := range d.TypeArgs {
			WalkTypePaths(t, fn)
		}
		for _, a := range d.Args {
			WalkExprPaths(a, fn)
		}
	case ListData:
		for _, it := range d.Items {
			WalkExprPaths(it, fn)
		}
	case SelectData:
		for _, s := range d.Select {
			WalkExprPaths(s, fn)
		}
		for _, c := range d.Cases {
			WalkExprPaths(c.Keyset, fn)
			if c.State != nil {
				fn(c.State)
			}
		}
	}
}

// WalkTypePaths visits every Path contained in the type expression.
func WalkTypePaths(t *Type, fn func(*Path)) {
	if t == nil {
		return
	}
	switch d := t.Data.(type) {
	case NameData:
		fn(d.Path)
	case FieldsData:
		for _, f := range d.Fields {
			WalkTypePaths(f.Type, fn)
		}
	case StackData:
		WalkTypePaths(d.Elem, fn)
	case SpecializedData:
		WalkTypePaths(d.Base, fn)
		for _, a := range d.Args {
			WalkTypePaths(a, fn)
		}
	}
}

// WalkStmtPaths visits every Path contained in the statement.
func WalkStmtPaths(s *Stmt, fn func(*Path)) {
	if s == nil {
		return
	}
	switch d := s.Data.(type) {
	case AssignData:
		WalkExprPaths(d.LHS, fn)
		WalkExprPaths(d.RHS, fn)
	case MethodCallData:
		WalkExprPaths(d.Call, fn)
	case BlockData:
		for _, st := range d.Stmts {
			WalkStmtPaths(st, fn)
		}
	case IfData:
		WalkExprPaths(d.Cond, fn)
		WalkStmtPaths(d.Then, fn)
		WalkStmtPaths(d.Else, fn)
	case VarDeclData:
		WalkDeclPaths(d.Decl, fn)
	}
}

// WalkDeclPaths visits every Path contained in the declaration.
func WalkDeclPaths(d Decl, fn func(*Path)) {
	switch d := d.(type) {
	case *Param:
		WalkTypePaths(d.Type, fn)
		WalkExprPaths(d.Default, fn)
	case *Variable:
		WalkTypePaths(d.Type, fn)
		WalkExprPaths(d.Init, fn)
	case *Constant:
		WalkTypePaths(d.Type, fn)
		WalkExprPaths(d.Value, fn)
	case *Instance:
		WalkTypePaths(d.Type, fn)
		for _, a := range d.Args {
			WalkExprPaths(a, fn)
		}
	case *TypeDef:
		WalkTypePaths(d.Type, fn)
	case *Table:
		for _, p := range d.Properties {
			WalkExprPaths(p.Value, fn)
		}
	case *Action:
		for _, p := range d.Params {
			WalkDeclPaths(p, fn)
		}
		WalkStmtPaths(d.Body, fn)
	case *Control:
		for _, p := range d.ApplyParams {
			WalkDeclPaths(p, fn)
		}
		for _, p := range d.ConstructorParams {
			WalkDeclPaths(p, fn)
		}
		for _, l := range d.Locals {
			WalkDeclPaths(l, fn)
		}
		WalkStmtPaths(d.Body, fn)
	case *Parser:
		for _, p := range d.ApplyParams {
			WalkDeclPaths(p, fn)
		}
		for _, p := range d.ConstructorParams {
			WalkDeclPaths(p, fn)
		}
		for _, l := range d.Locals {
			WalkDeclPaths(l, fn)
		}
		for _, s := range d.States {
			WalkDeclPaths(s, fn)
		}
	case *State:
		for _, c := range d.Components {
			WalkStmtPaths(c, fn)
		}
		WalkExprPaths(d.Transition, fn)
	}
}
