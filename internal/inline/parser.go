package inline

import (
	"p4mid/internal/diag"
	"p4mid/internal/ir"
)

// InlineParser flattens every scheduled instance of the caller parser
// in place. Unlike controls, parser apply parameters always go through
// temporaries: a state can be entered more than once, so arguments must
// be re-read on every invocation.
func (gi *GeneralInliner) InlineParser(caller *ir.Parser) {
	clones := make(map[ir.DeclID]*ir.Parser)
	var newLocals []ir.Decl
	for _, local := range caller.Locals {
		inst, ok := local.(*ir.Instance)
		if !ok || gi.work.DeclToCallee[inst.DeclID()] == nil {
			newLocals = append(newLocals, local)
			continue
		}
		callee := gi.work.DeclToCallee[inst.DeclID()].(*ir.Parser)
		clone := callee.Clone()
		RebindDecl(callee, clone, gi.refMap)

		su := gi.prepareInstance(inst, clone.ConstructorParams, clone.TypeParams)
		NewComputeNewNames(inst.ExternalName(), gi.refMap, su.RenameMap, gi.reporter).Run(clone)

		newLocals = gi.bindApplyParams(inst, clone.ApplyParams, su, newLocals, true)

		gi.work.Substitutions[inst.DeclID()] = su
		clones[inst.DeclID()] = clone

		sub := NewSubstitutions(gi.refMap, su, gi.reporter)
		for _, cl := range clone.Locals {
			sub.Decl(cl)
			newLocals = append(newLocals, cl)
		}
	}
	caller.Locals = newLocals

	var newStates []*ir.State
	for _, s := range caller.States {
		newStates = append(newStates, gi.spliceState(s, clones)...)
	}
	caller.States = newStates
}

// spliceState splits a state at each apply invocation. The part before
// the call keeps the state's name and transitions into the callee's
// renamed start state; the callee's states follow, with accept mapped
// to a continuation state that holds the copy-out assignments and the
// remaining components; reject stays reject, a rejecting callee rejects
// the whole parse. States without invocations pass through untouched.
func (gi *GeneralInliner) spliceState(state *ir.State, clones map[ir.DeclID]*ir.Parser) []*ir.State {
	hasInvocation := false
	for _, comp := range state.Components {
		if _, ok := gi.work.InvocationToInstance[comp]; ok {
			hasInvocation = true
			break
		}
	}
	if !hasInvocation {
		return []*ir.State{state}
	}

	var out []*ir.State
	currentName := state.Name
	currentAnnos := state.Annotations
	var current []*ir.Stmt

	for _, comp := range state.Components {
		inst, ok := gi.work.InvocationToInstance[comp]
		if !ok {
			current = append(current, comp)
			continue
		}
		callee := clones[inst.DeclID()]
		diag.BugCheck(callee != nil, gi.reporter, diag.BugBadWorkItem, comp.Span,
			"parser call site scheduled without a prepared callee")
		su := gi.work.Substitutions[inst.DeclID()].Clone()
		args := callArgs(comp)
		params := callee.ApplyParams

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
					current = append(current, ir.NewAssign(comp.Span,
						cloneExprBound(initializer, gi.refMap),
						cloneExprBound(arg, gi.refMap)))
				}
			case param.Direction == ir.DirOut:
				initializer := su.ParamSubst.Lookup(param)
				GenerateResets(gi.resolve, param.Type, initializer, comp.Span, &current)
			}
		}

		nextName := gi.refMap.NewName("post_" + state.Name)
		renames := ComputeNewStateNames(callee.States, callee.DeclName(), nextName, gi.refMap)

		sub := NewSubstitutions(gi.refMap, su, gi.reporter)
		var spliced []*ir.State
		for _, cs := range callee.States {
			if cs.IsBuiltin() {
				continue
			}
			sc := cs.Clone()
			RebindDecl(cs, sc, gi.refMap)
			for i, c := range sc.Components {
				sc.Components[i] = sub.Stmt(c)
			}
			sc.Transition = sub.Expr(sc.Transition)
			spliced = append(spliced, sc)
		}
		RenameStates(spliced, renames)

		frag := gi.builder.State(currentName, state.DeclSpan())
		frag.Annotations = currentAnnos
		frag.Components = current
		frag.Transition = ir.NewPathExpr(renames[ir.StateStart], comp.Span)
		out = append(out, frag)
		out = append(out, spliced...)

		currentName = nextName
		currentAnnos = nil
		current = nil
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
				current = append(current, ir.NewAssign(comp.Span,
					cloneExprBound(arg, gi.refMap),
					cloneExprBound(tmp, gi.refMap)))
			}
		}
	}

	last := gi.builder.State(currentName, state.DeclSpan())
	last.Annotations = currentAnnos
	last.Components = current
	last.Transition = state.Transition
	out = append(out, last)
	return out
}
