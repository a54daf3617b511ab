package inline

import (
	"fmt"
	"sort"

	"p4mid/internal/diag"
	"p4mid/internal/ir"
	"p4mid/internal/source"
)

// CallInfo describes one instantiation of a control or parser inside
// another, together with every statement that applies it.
type CallInfo struct {
	Caller   ir.Decl
	Callee   ir.Decl
	Instance *ir.Instance

	// Invocations are the apply call statements, in caller order.
	Invocations []*ir.Stmt
}

// AddInvocation records a call site for this instantiation.
func (c *CallInfo) AddInvocation(site *ir.Stmt) {
	c.Invocations = append(c.Invocations, site)
}

// PerCaller collects the inlining work scheduled for one caller in the
// current round.
type PerCaller struct {
	Instances            []*CallInfo
	DeclToCallee         map[ir.DeclID]ir.Decl
	InvocationToInstance map[*ir.Stmt]*ir.Instance
	Substitutions        map[ir.DeclID]*PerInstanceSubstitutions
}

func newPerCaller() *PerCaller {
	return &PerCaller{
		DeclToCallee:         make(map[ir.DeclID]ir.Decl),
		InvocationToInstance: make(map[*ir.Stmt]*ir.Instance),
		Substitutions:        make(map[ir.DeclID]*PerInstanceSubstitutions),
	}
}

// UniqueCallSite returns the invocation when the instance is applied
// exactly once, nil otherwise. A unique call site may receive direct
// argument substitution; multiple call sites always go through
// temporaries.
func (p *PerCaller) UniqueCallSite(inst *ir.Instance) *ir.Stmt {
	var found *ir.Stmt
	for _, ci := range p.Instances {
		if ci.Instance != inst {
			continue
		}
		if len(ci.Invocations) == 1 {
			found = ci.Invocations[0]
		}
	}
	return found
}

// InlineSummary is one round of work: a batch of callers that can all
// be rewritten independently because none of their callees change in
// the same round.
type InlineSummary struct {
	Callers map[ir.Decl]*PerCaller

	// Order keeps callers in scheduling order for deterministic
	// application.
	Order []ir.Decl
}

func newInlineSummary() *InlineSummary {
	return &InlineSummary{Callers: make(map[ir.Decl]*PerCaller)}
}

func (s *InlineSummary) add(ci *CallInfo) {
	pc, ok := s.Callers[ci.Caller]
	if !ok {
		pc = newPerCaller()
		s.Callers[ci.Caller] = pc
		s.Order = append(s.Order, ci.Caller)
	}
	pc.Instances = append(pc.Instances, ci)
	pc.DeclToCallee[ci.Instance.DeclID()] = ci.Callee
	for _, inv := range ci.Invocations {
		pc.InvocationToInstance[inv] = ci.Instance
	}
}

// Empty reports whether the summary schedules no work.
func (s *InlineSummary) Empty() bool {
	return s == nil || len(s.Callers) == 0
}

// InlineWorkList accumulates instantiations discovered in the program
// and schedules them leaf-up: a callee is fully flattened before any
// caller that applies it is rewritten.
type InlineWorkList struct {
	infos      []*CallInfo
	byInstance map[ir.DeclID]*CallInfo
	reporter   diag.Reporter

	// sorted entries, consumed from the back by Next.
	pending []*CallInfo
	sorted  bool
}

// NewInlineWorkList returns an empty worklist.
func NewInlineWorkList(r diag.Reporter) *InlineWorkList {
	return &InlineWorkList{
		byInstance: make(map[ir.DeclID]*CallInfo),
		reporter:   r,
	}
}

// AddInstantiation records that caller declares an instance of callee.
func (l *InlineWorkList) AddInstantiation(caller, callee ir.Decl, inst *ir.Instance) *CallInfo {
	ci := &CallInfo{Caller: caller, Callee: callee, Instance: inst}
	l.infos = append(l.infos, ci)
	l.byInstance[inst.DeclID()] = ci
	return ci
}

// AddInvocation records a call site for a previously added instance.
// Unknown instances are ignored, they belong to externs.
func (l *InlineWorkList) AddInvocation(inst *ir.Instance, site *ir.Stmt) {
	if ci, ok := l.byInstance[inst.DeclID()]; ok {
		ci.AddInvocation(site)
	}
}

// Analyze validates the collected work and orders it leaf-up. Entries
// with no invocations are dropped: an instance that is never applied
// has nothing to inline. When allowMultipleCalls is false an instance
// applied more than once is an error.
func (l *InlineWorkList) Analyze(allowMultipleCalls bool) {
	var work []*CallInfo
	for _, ci := range l.infos {
		if len(ci.Invocations) == 0 {
			continue
		}
		if !allowMultipleCalls && len(ci.Invocations) > 1 {
			diag.ReportError(l.reporter, diag.InlMultipleCalls, ci.Instance.DeclSpan(),
				fmt.Sprintf("%s is applied %d times; inlining supports a single apply",
					ci.Instance.DeclName(), len(ci.Invocations))).Emit()
			continue
		}
		work = append(work, ci)
	}

	order := l.sortCallers(work)

	// Group entries by caller following the leaf-first order, then
	// reverse so Next pops leaf work from the back.
	var seq []*CallInfo
	for _, caller := range order {
		for _, ci := range work {
			if ci.Caller == caller {
				seq = append(seq, ci)
			}
		}
	}
	for i, j := 0, len(seq)-1; i < j; i, j = i+1, j-1 {
		seq[i], seq[j] = seq[j], seq[i]
	}
	l.pending = seq
	l.sorted = true
}

// sortCallers topologically sorts the callers so that a caller whose
// callees need no further inlining comes first. A cycle means a
// recursive instantiation, which is reported and broken arbitrarily.
func (l *InlineWorkList) sortCallers(work []*CallInfo) []ir.Decl {
	nodes := make([]ir.Decl, 0)
	seen := make(map[ir.DeclID]bool)
	addNode := func(d ir.Decl) {
		if !seen[d.DeclID()] {
			seen[d.DeclID()] = true
			nodes = append(nodes, d)
		}
	}
	edges := make(map[ir.DeclID][]ir.Decl)
	for _, ci := range work {
		addNode(ci.Caller)
		addNode(ci.Callee)
		edges[ci.Caller.DeclID()] = append(edges[ci.Caller.DeclID()], ci.Callee)
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].DeclID() < nodes[j].DeclID()
	})

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[ir.DeclID]int)
	var order []ir.Decl
	var visit func(d ir.Decl)
	visit = func(d ir.Decl) {
		switch color[d.DeclID()] {
		case gray:
			diag.ReportError(l.reporter, diag.InlRecursiveInstance, d.DeclSpan(),
				fmt.Sprintf("%s is instantiated recursively", d.DeclName())).Emit()
			return
		case black:
			return
		}
		color[d.DeclID()] = gray
		for _, next := range edges[d.DeclID()] {
			visit(next)
		}
		color[d.DeclID()] = black
		order = append(order, d)
	}
	for _, n := range nodes {
		visit(n)
	}
	return order
}

// Empty reports whether no work remains.
func (l *InlineWorkList) Empty() bool {
	return len(l.pending) == 0
}

// Next returns the next batch of callers to rewrite. Entries are taken
// until one's callee is itself a caller already in the batch: that
// callee's body changes this round, so inlining it further must wait.
func (l *InlineWorkList) Next() *InlineSummary {
	diag.BugCheck(l.sorted, l.reporter, diag.BugBadWorkItem, source.Span{},
		"worklist consumed before analysis")
	if len(l.pending) == 0 {
		return nil
	}
	processing := make(map[ir.DeclID]bool)
	result := newInlineSummary()
	for len(l.pending) > 0 {
		toadd := l.pending[len(l.pending)-1]
		if processing[toadd.Callee.DeclID()] {
			break
		}
		l.pending = l.pending[:len(l.pending)-1]
		result.add(toadd)
		processing[toadd.Caller.DeclID()] = true
	}
	return result
}
