package inline

import (
	"fmt"

	"p4mid/internal/diag"
	"p4mid/internal/ir"
)

// DiscoverInlining walks the program once and fills an InlineWorkList
// with every control and parser instantiation plus its apply call
// sites. Externs instantiate like controls but resolve to no callee
// declaration, so they fall through untouched.
type DiscoverInlining struct {
	refMap      *ir.ReferenceMap
	reporter    diag.Reporter
	list        *InlineWorkList
	allowNested bool
}

// NewDiscoverInlining returns a discovery pass writing into list. When
// allowNested is false, controls instantiated inside other controls are
// not scheduled and stay in place.
func NewDiscoverInlining(refMap *ir.ReferenceMap, r diag.Reporter, list *InlineWorkList, allowNested bool) *DiscoverInlining {
	return &DiscoverInlining{refMap: refMap, reporter: r, list: list, allowNested: allowNested}
}

// Run scans every top-level control and parser.
func (d *DiscoverInlining) Run(prog *ir.Program) {
	for _, obj := range prog.Objects {
		switch obj := obj.(type) {
		case *ir.Control:
			d.visitControl(obj)
		case *ir.Parser:
			d.visitParser(obj)
		}
	}
}

func (d *DiscoverInlining) visitControl(c *ir.Control) {
	scheduled := make(map[ir.DeclID]bool)
	for _, l := range c.Locals {
		inst, ok := l.(*ir.Instance)
		if !ok {
			continue
		}
		callee := d.resolveCallee(inst)
		if callee == nil {
			continue
		}
		if _, isParser := callee.(*ir.Parser); isParser {
			diag.ReportError(d.reporter, diag.InlParserFromControl, inst.DeclSpan(),
				fmt.Sprintf("%s instantiates parser %s inside a control",
					c.DeclName(), callee.DeclName())).Emit()
			scheduled[inst.DeclID()] = false
			continue
		}
		if !d.allowNested {
			// the instance and its apply sites survive untouched
			scheduled[inst.DeclID()] = false
			continue
		}
		d.list.AddInstantiation(c, callee, inst)
		scheduled[inst.DeclID()] = true
	}
	d.scanStmt(c.Body, scheduled)
}

func (d *DiscoverInlining) visitParser(p *ir.Parser) {
	scheduled := make(map[ir.DeclID]bool)
	for _, l := range p.Locals {
		inst, ok := l.(*ir.Instance)
		if !ok {
			continue
		}
		callee := d.resolveCallee(inst)
		if callee == nil {
			continue
		}
		if _, isControl := callee.(*ir.Control); isControl {
			diag.ReportError(d.reporter, diag.InlControlFromParser, inst.DeclSpan(),
				fmt.Sprintf("%s instantiates control %s inside a parser",
					p.DeclName(), callee.DeclName())).Emit()
			scheduled[inst.DeclID()] = false
			continue
		}
		d.list.AddInstantiation(p, callee, inst)
		scheduled[inst.DeclID()] = true
	}
	for _, s := range p.States {
		for _, comp := range s.Components {
			d.scanStmt(comp, scheduled)
		}
	}
}

// resolveCallee maps an instance's type to the control or parser it
// instantiates, looking through specialization. Anything else (extern
// types, packages) yields nil.
func (d *DiscoverInlining) resolveCallee(inst *ir.Instance) ir.Decl {
	t := inst.Type
	if t == nil {
		return nil
	}
	if t.Kind == ir.TypeSpecialized {
		t = t.Specialized().Base
	}
	if t == nil || t.Kind != ir.TypeName {
		return nil
	}
	decl := d.refMap.GetDeclaration(t.Name().Path)
	switch decl.(type) {
	case *ir.Control, *ir.Parser:
		return decl
	}
	return nil
}

// scanStmt records apply invocations found in statement position.
// scheduled maps every local control or parser instance to whether it
// was entered into the worklist; an apply on an instance declared
// outside the enclosing caller cannot be flattened in place.
func (d *DiscoverInlining) scanStmt(s *ir.Stmt, scheduled map[ir.DeclID]bool) {
	if s == nil {
		return
	}
	switch s.Kind {
	case ir.StmtMethodCall:
		inst := d.appliedInstance(s.MethodCall().Call)
		if inst == nil {
			return
		}
		sched, local := scheduled[inst.DeclID()]
		if !local {
			diag.ReportError(d.reporter, diag.InlUnsupportedNesting, s.Span,
				fmt.Sprintf("%s is applied outside the scope that instantiates it",
					inst.DeclName())).Emit()
			return
		}
		if sched {
			d.list.AddInvocation(inst, s)
		}
	case ir.StmtBlock:
		for _, inner := range s.Block().Stmts {
			d.scanStmt(inner, scheduled)
		}
	case ir.StmtIf:
		f := s.If()
		d.scanStmt(f.Then, scheduled)
		d.scanStmt(f.Else, scheduled)
	}
}

// appliedInstance returns the instance an inst.apply(...) call targets,
// or nil when the statement is some other method call.
func (d *DiscoverInlining) appliedInstance(call *ir.Expr) *ir.Instance {
	if call == nil || call.Kind != ir.ExprCall {
		return nil
	}
	callee := call.Call().Callee
	if callee == nil || callee.Kind != ir.ExprMember {
		return nil
	}
	m := callee.Member()
	if m.Field != "apply" || m.Base == nil || m.Base.Kind != ir.ExprPath {
		return nil
	}
	decl := d.refMap.GetDeclaration(m.Base.Path().Path)
	inst, _ := decl.(*ir.Instance)
	return inst
}
