package inline

import (
	"p4mid/internal/diag"
	"p4mid/internal/ir"
)

// Options configures the inline driver.
type Options struct {
	// AllowMultipleCalls permits more than one apply of the same
	// instance; each call site gets its own copy of the callee body.
	AllowMultipleCalls bool

	// AllowNestedControls permits flattening controls instantiated
	// inside other controls. When off, such instances are left in
	// place. Parser-in-parser instantiation is always flattened.
	AllowNestedControls bool

	// Recheck runs after every rewritten caller. Drivers hook
	// re-resolution and type checking here.
	Recheck func(*ir.Program)
}

// Inliner drives inlining to a fixed point: discover the instantiation
// graph once, order it leaf-up, then rewrite callers round by round
// until nothing applies a control or parser instance anymore.
type Inliner struct {
	prog     *ir.Program
	refMap   *ir.ReferenceMap
	bag      *diag.Bag
	reporter diag.Reporter
	opts     Options

	// callees consumed by at least one rewrite, candidates for Prune.
	inlined map[ir.DeclID]bool
}

// NewInliner returns a driver writing diagnostics into bag.
func NewInliner(prog *ir.Program, refMap *ir.ReferenceMap, bag *diag.Bag, opts Options) *Inliner {
	return &Inliner{
		prog:     prog,
		refMap:   refMap,
		bag:      bag,
		reporter: diag.NewDedupReporter(diag.BagReporter{Bag: bag}),
		opts:     opts,
		inlined:  make(map[ir.DeclID]bool),
	}
}

// Run performs the inlining. It stops at the first round that produced
// an error; the program may then be partially rewritten and should not
// be consumed further.
func (in *Inliner) Run() {
	in.refMap.SeedProgram(in.prog)

	list := NewInlineWorkList(in.reporter)
	NewDiscoverInlining(in.refMap, in.reporter, list, in.opts.AllowNestedControls).Run(in.prog)
	list.Analyze(in.opts.AllowMultipleCalls)
	if in.bag.HasErrors() {
		return
	}

	resolve := NewTypeResolver(in.prog)
	builder := ir.NewBuilder(in.prog)
	for {
		summary := list.Next()
		if summary.Empty() {
			break
		}
		for _, caller := range summary.Order {
			work := summary.Callers[caller]
			for _, ci := range work.Instances {
				in.inlined[ci.Callee.DeclID()] = true
			}
			gi := NewGeneralInliner(in.refMap, resolve, builder, in.reporter, work)
			switch c := caller.(type) {
			case *ir.Control:
				gi.InlineControl(c)
			case *ir.Parser:
				gi.InlineParser(c)
			default:
				diag.Bugf(in.reporter, diag.BugBadWorkItem, caller.DeclSpan(),
					"inline work scheduled for %T", caller)
			}
			if in.opts.Recheck != nil {
				in.opts.Recheck(in.prog)
			}
			if in.bag.HasErrors() {
				return
			}
		}
	}
}

// Prune removes top-level controls and parsers that were flattened into
// their callers and are no longer instantiated anywhere. Declarations
// still referenced by a surviving instance stay.
func (in *Inliner) Prune() {
	referenced := make(map[ir.DeclID]bool)
	markInstance := func(inst *ir.Instance) {
		t := inst.Type
		if t != nil && t.Kind == ir.TypeSpecialized {
			t = t.Specialized().Base
		}
		if t == nil || t.Kind != ir.TypeName {
			return
		}
		if d := in.refMap.GetDeclaration(t.Name().Path); d != nil {
			referenced[d.DeclID()] = true
		}
	}
	scanLocals := func(ds []ir.Decl) {
		for _, d := range ds {
			if inst, ok := d.(*ir.Instance); ok {
				markInstance(inst)
			}
		}
	}
	for _, obj := range in.prog.Objects {
		switch obj := obj.(type) {
		case *ir.Instance:
			markInstance(obj)
		case *ir.Control:
			scanLocals(obj.Locals)
		case *ir.Parser:
			scanLocals(obj.Locals)
		}
	}

	kept := in.prog.Objects[:0]
	for _, obj := range in.prog.Objects {
		switch obj.(type) {
		case *ir.Control, *ir.Parser:
			if in.inlined[obj.DeclID()] && !referenced[obj.DeclID()] {
				continue
			}
		}
		kept = append(kept, obj)
	}
	in.prog.Objects = kept
}
