package inline

import (
	"p4mid/internal/diag"
	"p4mid/internal/ir"
)

// GeneralInliner rewrites one caller according to a PerCaller work
// item: instance declarations become the callee's renamed locals, and
// each apply call site becomes a block with copy-in assignments, the
// substituted callee body and copy-out assignments.
type GeneralInliner struct {
	refMap   *ir.ReferenceMap
	resolve  TypeResolver
	builder  *ir.Builder
	reporter diag.Reporter
	work     *PerCaller
}

// NewGeneralInliner returns an inliner for one round of work.
func NewGeneralInliner(refMap *ir.ReferenceMap, resolve TypeResolver, b *ir.Builder, r diag.Reporter, work *PerCaller) *GeneralInliner {
	return &GeneralInliner{refMap: refMap, resolve: resolve, builder: b, reporter: r, work: work}
}

// InlineControl flattens every scheduled instance of the caller in
// place.
func (gi *GeneralInliner) InlineControl(caller *ir.Control) {
	clones := make(map[ir.DeclID]*ir.Control)
	var newLocals []ir.Decl
	for _, local := range caller.Locals {
		inst, ok := local.(*ir.Instance)
		if !ok || gi.work.DeclToCallee[inst.DeclID()] == nil {
			newLocals = append(newLocals, local)
			continue
		}
		callee := gi.work.DeclToCallee[inst.DeclID()].(*ir.Control)
		clone := callee.Clone()
		RebindDecl(callee, clone, gi.refMap)

		su := gi.prepareInstance(inst, clone.ConstructorParams, clone.TypeParams)
		NewComputeNewNames(inst.ExternalName(), gi.refMap, su.RenameMap, gi.reporter).Run(clone)

		newLocals = gi.bindApplyParams(inst, clone.ApplyParams, su, newLocals, false)

		gi.work.Substitutions[inst.DeclID()] = su
		clones[inst.DeclID()] = clone

		// the callee's locals land where the instance declaration was
		sub := NewSubstitutions(gi.refMap, su, gi.reporter)
		for _, cl := range clone.Locals {
			sub.Decl(cl)
			newLocals = append(newLocals, cl)
		}
	}
	caller.Locals = newLocals
	caller.Body = gi.rewriteStmt(caller.Body, clones)
}

// prepareInstance builds the per-instance substitutions from the
// constructor arguments and type specialization.
func (gi *GeneralInliner) prepareInstance(inst *ir.Instance, ctorParams []*ir.Param, typeParams []string) *PerInstanceSubstitutions {
	su := NewPerInstanceSubstitutions()
	for i, p := range ctorParams {
		if i < len(inst.Args) {
			su.ParamSubst.Add(p, inst.Args[i])
		} else if p.Default != nil {
			su.ParamSubst.Add(p, p.Default)
		}
	}
	if inst.Type != nil && inst.Type.Kind == ir.TypeSpecialized {
		args := inst.Type.Specialized().Args
		for i, tp := range typeParams {
			if i < len(args) {
				su.TypeVars.Bind(tp, args[i])
			}
		}
	}
	return su
}

// bindApplyParams decides, per apply parameter, between substituting
// the call-site argument directly and routing the value through a fresh
// temporary in the caller. Direct substitution needs a unique call site
// whose arguments do not alias each other; parsers always use
// temporaries because states may run more than once. Directionless
// parameters bind per call site.
func (gi *GeneralInliner) bindApplyParams(inst *ir.Instance, params []*ir.Param, su *PerInstanceSubstitutions, locals []ir.Decl, alwaysTemp bool) []ir.Decl {
	unique := gi.work.UniqueCallSite(inst)
	useTemp := make(map[ir.DeclID]bool)
	if unique != nil && !alwaysTemp {
		args := callArgs(unique)
		fls := NewFindLocationSets(gi.refMap, gi.resolve, gi.reporter)
		sets := make([]*LocationSet, len(args))
		for i, a := range args {
			sets[i] = fls.Compute(a)
		}
		for i := 0; i < len(args); i++ {
			for j := i + 1; j < len(args); j++ {
				if i < len(params) && j < len(params) && sets[i].Overlaps(sets[j]) {
					useTemp[params[i].DeclID()] = true
					useTemp[params[j].DeclID()] = true
				}
			}
		}
	}
	sub := NewSubstitutions(gi.refMap, su, gi.reporter)
	for i, param := range params {
		if param.Direction == ir.DirNone {
			continue
		}
		if unique != nil && !alwaysTemp && !useTemp[param.DeclID()] {
			args := callArgs(unique)
			if i < len(args) {
				su.ParamSubst.Add(param, args[i])
				continue
			}
		}
		tmpType := sub.Type(param.Type.Clone())
		tmpName := gi.refMap.NewName(param.Name)
		v := gi.builder.Variable(tmpName, tmpType, nil, inst.DeclSpan())
		locals = append(locals, v)
		pe := ir.NewPathExpr(tmpName, inst.DeclSpan())
		gi.refMap.SetDeclaration(pe.Path().Path, v)
		su.ParamSubst.Add(param, pe)
	}
	return locals
}

func callArgs(site *ir.Stmt) []*ir.Expr {
	if site == nil || site.Kind != ir.StmtMethodCall {
		return nil
	}
	call := site.MethodCall().Call
	if call == nil || call.Kind != ir.ExprCall {
		return nil
	}
	return call.Call().Args
}

func (gi *GeneralInliner) rewriteStmt(s *ir.Stmt, clones map[ir.DeclID]*ir.Control) *ir.Stmt {
	if s == nil {
		return nil
	}
	switch s.Kind {
	case ir.StmtMethodCall:
		inst, ok := gi.work.InvocationToInstance[s]
		if !ok {
			return s
		}
		return gi.inlineCallSite(s, inst, clones[inst.DeclID()])
	case ir.StmtBlock:
		d := s.Block()
		for i, inner := range d.Stmts {
			d.Stmts[i] = gi.rewriteStmt(inner, clones)
		}
	case ir.StmtIf:
		d := s.If()
		s.Data = ir.IfData{
			Cond: d.Cond,
			Then: gi.rewriteStmt(d.Then, clones),
			Else: gi.rewriteStmt(d.Else, clones),
		}
	}
	return s
}

// inlineCallSite replaces one apply statement with a block: copy-in
// assignments for in and inout parameters that go through temporaries,
// header resets for out parameters, the substituted callee body, then
// copy-out assignments. The callee container's annotations carry over
// minus @name, a block has no control-plane identity.
func (gi *GeneralInliner) inlineCallSite(site *ir.Stmt, inst *ir.Instance, callee *ir.Control) *ir.Stmt {
	diag.BugCheck(callee != nil, gi.reporter, diag.BugBadWorkItem, site.Span,
		"call site scheduled without a prepared callee")
	su := gi.work.Substitutions[inst.DeclID()].Clone()
	args := callArgs(site)
	params := callee.ApplyParams

	var body []*ir.Stmt
	for i, param := range params {
		var arg *ir.Expr
		if i < len(args) {
			arg = args[i]
		}
		switch {
		case param.Direction == ir.DirNone:
			su.ParamSubst.Add(param, arg)
		case param.Direction.HasIn():
			initializer := su.ParamSubst.Lookup(param)
			if initializer != arg && arg != nil {
				body = append(body, ir.NewAssign(site.Span,
					cloneExprBound(initializer, gi.refMap),
					cloneExprBound(arg, gi.refMap)))
			}
		case param.Direction == ir.DirOut:
			initializer := su.ParamSubst.Lookup(param)
			GenerateResets(gi.resolve, param.Type, initializer, site.Span, &body)
		}
	}

	bodyClone := callee.Body.Clone()
	RebindStmt(callee.Body, bodyClone, gi.refMap)
	bodyClone = NewSubstitutions(gi.refMap, su, gi.reporter).Stmt(bodyClone)
	body = append(body, bodyClone)

	for i, param := range params {
		if !param.Direction.HasOut() {
			continue
		}
		var arg *ir.Expr
		if i < len(args) {
			arg = args[i]
		}
		tmp := su.ParamSubst.Lookup(param)
		if tmp != arg && arg != nil {
			body = append(body, ir.NewAssign(site.Span,
				cloneExprBound(arg, gi.refMap),
				cloneExprBound(tmp, gi.refMap)))
		}
	}

	blk := ir.NewBlock(site.Span, body)
	blk.Annotations = callee.Annotations.Without(ir.NameAnnotation)
	return blk
}
