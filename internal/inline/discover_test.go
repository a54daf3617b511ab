package inline

import (
	"testing"

	"p4mid/internal/diag"
	"p4mid/internal/ir"
	"p4mid/internal/source"
)

func TestDiscoverControlInstantiation(t *testing.T) {
	prog := ir.NewProgram()
	b := ir.NewBuilder(prog)
	m := ir.NewReferenceMap()
	bag, rep := testReporter()

	inner := b.Control("inner", source.Span{})
	outer := b.Control("outer", source.Span{})
	inst := boundInstance(b, m, "i", inner)
	outer.Locals = []ir.Decl{inst}
	site := applySite(m, inst)
	outer.Body = ir.NewBlock(source.Span{}, []*ir.Stmt{site})
	prog.Add(inner)
	prog.Add(outer)

	list := NewInlineWorkList(rep)
	NewDiscoverInlining(m, rep, list, true).Run(prog)
	list.Analyze(false)

	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	batch := list.Next()
	pc := batch.Callers[outer]
	if pc == nil || len(pc.Instances) != 1 {
		t.Fatalf("expected one scheduled instance for outer")
	}
	ci := pc.Instances[0]
	if ci.Callee != inner || ci.Instance != inst {
		t.Fatalf("wrong callee or instance recorded")
	}
	if len(ci.Invocations) != 1 || ci.Invocations[0] != site {
		t.Fatalf("apply site not recorded")
	}
}

func TestDiscoverNestedControlsDisabled(t *testing.T) {
	prog := ir.NewProgram()
	b := ir.NewBuilder(prog)
	m := ir.NewReferenceMap()
	bag, rep := testReporter()

	inner := b.Control("inner", source.Span{})
	outer := b.Control("outer", source.Span{})
	inst := boundInstance(b, m, "i", inner)
	outer.Locals = []ir.Decl{inst}
	outer.Body = ir.NewBlock(source.Span{}, []*ir.Stmt{applySite(m, inst)})
	prog.Add(inner)
	prog.Add(outer)

	list := NewInlineWorkList(rep)
	NewDiscoverInlining(m, rep, list, false).Run(prog)
	list.Analyze(false)

	if bag.HasErrors() {
		t.Fatalf("an unscheduled nested control is not an error: %v", bag.Items())
	}
	if batch := list.Next(); !batch.Empty() {
		t.Fatalf("nested controls must not be scheduled when disabled")
	}
}

func TestDiscoverFindsNestedApplySites(t *testing.T) {
	prog := ir.NewProgram()
	b := ir.NewBuilder(prog)
	m := ir.NewReferenceMap()
	_, rep := testReporter()

	inner := b.Control("inner", source.Span{})
	outer := b.Control("outer", source.Span{})
	inst := boundInstance(b, m, "i", inner)
	outer.Locals = []ir.Decl{inst}
	site := applySite(m, inst)
	outer.Body = ir.NewBlock(source.Span{}, []*ir.Stmt{
		{Kind: ir.StmtIf, Data: ir.IfData{
			Cond: constExpr(1),
			Then: ir.NewBlock(source.Span{}, []*ir.Stmt{site}),
		}},
	})
	prog.Add(inner)
	prog.Add(outer)

	list := NewInlineWorkList(rep)
	NewDiscoverInlining(m, rep, list, true).Run(prog)
	list.Analyze(false)

	pc := list.Next().Callers[outer]
	if pc == nil || len(pc.Instances[0].Invocations) != 1 {
		t.Fatalf("apply inside an if branch must be discovered")
	}
}

func TestDiscoverRejectsParserInsideControl(t *testing.T) {
	prog := ir.NewProgram()
	b := ir.NewBuilder(prog)
	m := ir.NewReferenceMap()
	bag, rep := testReporter()

	sub := b.Parser("sub", source.Span{})
	outer := b.Control("outer", source.Span{})
	inst := boundInstance(b, m, "p", sub)
	outer.Locals = []ir.Decl{inst}
	prog.Add(sub)
	prog.Add(outer)

	list := NewInlineWorkList(rep)
	NewDiscoverInlining(m, rep, list, true).Run(prog)

	if !hasCode(bag, diag.InlParserFromControl) {
		t.Fatalf("expected %s", diag.InlParserFromControl)
	}
}

func TestDiscoverRejectsControlInsideParser(t *testing.T) {
	prog := ir.NewProgram()
	b := ir.NewBuilder(prog)
	m := ir.NewReferenceMap()
	bag, rep := testReporter()

	sub := b.Control("sub", source.Span{})
	top := b.Parser("top", source.Span{})
	inst := boundInstance(b, m, "c", sub)
	top.Locals = []ir.Decl{inst}
	prog.Add(sub)
	prog.Add(top)

	list := NewInlineWorkList(rep)
	NewDiscoverInlining(m, rep, list, true).Run(prog)

	if !hasCode(bag, diag.InlControlFromParser) {
		t.Fatalf("expected %s", diag.InlControlFromParser)
	}
}

func TestDiscoverRejectsApplyOutsideScope(t *testing.T) {
	prog := ir.NewProgram()
	b := ir.NewBuilder(prog)
	m := ir.NewReferenceMap()
	bag, rep := testReporter()

	inner := b.Control("inner", source.Span{})
	owner := b.Control("owner", source.Span{})
	inst := boundInstance(b, m, "i", inner)
	owner.Locals = []ir.Decl{inst}
	other := b.Control("other", source.Span{})
	other.Body = ir.NewBlock(source.Span{}, []*ir.Stmt{applySite(m, inst)})
	prog.Add(inner)
	prog.Add(owner)
	prog.Add(other)

	list := NewInlineWorkList(rep)
	NewDiscoverInlining(m, rep, list, true).Run(prog)

	if !hasCode(bag, diag.InlUnsupportedNesting) {
		t.Fatalf("expected %s", diag.InlUnsupportedNesting)
	}
}

func TestDiscoverIgnoresExternInstances(t *testing.T) {
	prog := ir.NewProgram()
	b := ir.NewBuilder(prog)
	m := ir.NewReferenceMap()
	bag, rep := testReporter()

	outer := b.Control("outer", source.Span{})
	ctr := b.Instance("ctr", &ir.Type{Kind: ir.TypeExtern, Data: ir.ExternData{Name: "counter"}}, nil, source.Span{})
	outer.Locals = []ir.Decl{ctr}
	outer.Body = ir.NewBlock(source.Span{}, nil)
	prog.Add(outer)

	list := NewInlineWorkList(rep)
	NewDiscoverInlining(m, rep, list, true).Run(prog)
	list.Analyze(false)

	if bag.HasErrors() {
		t.Fatalf("extern instances must not be reported: %v", bag.Items())
	}
	if batch := list.Next(); !batch.Empty() {
		t.Fatalf("extern instances must not create work")
	}
}

func TestDiscoverLooksThroughSpecialization(t *testing.T) {
	prog := ir.NewProgram()
	b := ir.NewBuilder(prog)
	m := ir.NewReferenceMap()
	_, rep := testReporter()

	inner := b.Control("inner", source.Span{})
	inner.TypeParams = []string{"H"}
	outer := b.Control("outer", source.Span{})

	base := namedType("inner")
	m.SetDeclaration(base.Name().Path, inner)
	spec := &ir.Type{Kind: ir.TypeSpecialized, Data: ir.SpecializedData{Base: base, Args: []*ir.Type{bitType(8)}}}
	inst := b.Instance("i", spec, nil, source.Span{})
	outer.Locals = []ir.Decl{inst}
	outer.Body = ir.NewBlock(source.Span{}, []*ir.Stmt{applySite(m, inst)})
	prog.Add(inner)
	prog.Add(outer)

	list := NewInlineWorkList(rep)
	NewDiscoverInlining(m, rep, list, true).Run(prog)
	list.Analyze(false)

	pc := list.Next().Callers[outer]
	if pc == nil || pc.DeclToCallee[inst.DeclID()] != inner {
		t.Fatalf("specialized instance must resolve to its base control")
	}
}
