package bfrt

import (
	"fmt"

	"p4mid/internal/diag"
	"p4mid/internal/source"
)

// Generator builds the runtime schema document for one P4Info model.
// Diagnostics go through the reporter; generation continues past
// recoverable errors so one run surfaces as many problems as possible.
type Generator struct {
	info     *P4Info
	reporter diag.Reporter
}

// NewGenerator returns a generator over info.
func NewGenerator(info *P4Info, r diag.Reporter) *Generator {
	return &Generator{info: info, reporter: r}
}

// GenSchema produces the full schema document: a version marker, the
// table list and the learn filters.
func (g *Generator) GenSchema() *Object {
	g.checkPreambles()

	root := NewObject()
	root.Set("schema_version", "1.0.0")

	tables := NewArray()
	root.Set("tables", tables)
	g.addMatchTables(tables)
	g.addActionProfs(tables)
	g.addCounters(tables)
	g.addMeters(tables)

	learn := NewArray()
	root.Set("learn_filters", learn)
	g.addLearnFilters(learn)

	g.addExterns(tables)
	return root
}

// checkPreambles rejects duplicate object ids before any table uses one
// as a depends_on target.
func (g *Generator) checkPreambles() {
	seen := make(map[P4Id]string)
	check := func(pre *Preamble) {
		if prev, ok := seen[pre.ID]; ok {
			diag.ReportError(g.reporter, diag.RtDuplicatePreambleID, source.Span{},
				fmt.Sprintf("p4info id %d used by both %q and %q", pre.ID, prev, pre.Name)).Emit()
			return
		}
		seen[pre.ID] = pre.Name
	}
	for i := range g.info.Tables {
		check(&g.info.Tables[i].Preamble)
	}
	for i := range g.info.Actions {
		check(&g.info.Actions[i].Preamble)
	}
	for i := range g.info.ActionProfiles {
		check(&g.info.ActionProfiles[i].Preamble)
	}
	for i := range g.info.Counters {
		check(&g.info.Counters[i].Preamble)
	}
	for i := range g.info.Meters {
		check(&g.info.Meters[i].Preamble)
	}
	for i := range g.info.Digests {
		check(&g.info.Digests[i].Preamble)
	}
	for i := range g.info.Externs {
		for j := range g.info.Externs[i].Instances {
			check(&g.info.Externs[i].Instances[j].Preamble)
		}
	}
}

// initTableJson lays down the fields every table object starts with.
func initTableJson(name string, id P4Id, tableType string, size int64, annotations []string) *Object {
	t := NewObject()
	t.Set("name", name)
	t.Set("id", id)
	t.Set("table_type", tableType)
	t.Set("size", size)
	t.Set("annotations", transformAnnotations(annotations))
	return t
}

func transformAnnotations(annotations []string) *Array {
	a := NewArray()
	for _, an := range annotations {
		a.Append(an)
	}
	return a
}

func makeTypeInt(width string) *Object {
	return NewObject().Set("type", width)
}

func makeTypeIntDefault(width string, def int64) *Object {
	return NewObject().Set("type", width).Set("default_value", def)
}

func makeTypeBool() *Object {
	return NewObject().Set("type", "bool")
}

func makeTypeBytes(width int) *Object {
	return NewObject().Set("type", "bytes").Set("width", width)
}

func addKeyField(key *Array, id uint32, name string, mandatory bool, matchType string, typ *Object) {
	f := NewObject()
	f.Set("id", id)
	f.Set("name", name)
	f.Set("repeated", false)
	f.Set("mandatory", mandatory)
	f.Set("match_type", matchType)
	f.Set("type", typ)
	key.Append(f)
}

func makeCommonDataField(id uint32, name string, typ *Object, repeated bool) *Object {
	f := NewObject()
	f.Set("id", id)
	f.Set("name", name)
	f.Set("repeated", repeated)
	f.Set("type", typ)
	return f
}

// addSingleton wraps a data field in the mandatory/read-only envelope.
func addSingleton(data *Array, field *Object, mandatory, readOnly bool) {
	w := NewObject()
	w.Set("mandatory", mandatory)
	w.Set("read_only", readOnly)
	w.Set("singleton", field)
	data.Append(w)
}

// addOneOf wraps mutually-exclusive data field choices.
func addOneOf(data *Array, choices *Array, mandatory, readOnly bool) {
	w := NewObject()
	w.Set("mandatory", mandatory)
	w.Set("read_only", readOnly)
	w.Set("oneof", choices)
	data.Append(w)
}

// addToDependsOn appends an id to the table's depends_on list, creating
// the list on first use.
func addToDependsOn(table *Object, id P4Id) {
	v, ok := table.Get("depends_on")
	if !ok {
		v = NewArray()
		table.Set("depends_on", v)
	}
	v.(*Array).Append(id)
}

// addMatchTables emits one table object per P4Info table. Tables whose
// implementation id does not resolve are skipped after reporting.
func (g *Generator) addMatchTables(tables *Array) {
	for i := range g.info.Tables {
		table := &g.info.Tables[i]
		pre := &table.Preamble
		t := initTableJson(pre.Name, MakeBfRtID(pre.ID, PrefixTable),
			"MatchAction_Direct", table.Size, pre.Annotations)
		if !g.addActionProfIds(table, t) {
			continue
		}

		key := NewArray()
		for _, mf := range table.MatchFields {
			matchType := matchTypeName(mf.MatchType)
			addKeyField(key, mf.ID, mf.Name, matchType == "Exact", matchType,
				makeTypeBytes(mf.Bitwidth))
		}
		t.Set("key", key)

		data := NewArray()
		g.addMatchActionData(table, t, data)
		t.Set("data", data)

		t.Set("supported_operations", NewArray())
		t.Set("attributes", NewArray())
		tables.Append(t)
	}
}

func matchTypeName(mt string) string {
	switch mt {
	case "EXACT", "Exact", "":
		return "Exact"
	case "LPM":
		return "LPM"
	case "TERNARY", "Ternary":
		return "Ternary"
	case "RANGE", "Range":
		return "Range"
	case "OPTIONAL", "Optional":
		return "Optional"
	}
	return mt
}

// addMatchActionData fills the data section according to the table
// type: direct tables carry action specs, indirect tables reference
// members, selector tables choose between a member and a group.
func (g *Generator) addMatchActionData(table *Table, t *Object, data *Array) {
	switch t.GetString("table_type") {
	case "MatchAction_Direct":
		t.Set("action_specs", g.makeActionSpecs(table.ActionRefs))
	case "MatchAction_Indirect":
		f := makeCommonDataField(DataActionMemberID, "$ACTION_MEMBER_ID",
			makeTypeInt("uint32"), false)
		addSingleton(data, f, true, false)
	case "MatchAction_Indirect_Selector":
		choices := NewArray()
		choices.Append(makeCommonDataField(DataActionMemberID, "$ACTION_MEMBER_ID",
			makeTypeInt("uint32"), false))
		choices.Append(makeCommonDataField(DataSelectorGroupID, "$SELECTOR_GROUP_ID",
			makeTypeInt("uint32"), false))
		addOneOf(data, choices, true, false)
	default:
		diag.Bugf(g.reporter, diag.RtUnknownTableType, source.Span{},
			"table %s has table type %q", table.Preamble.Name, t.GetString("table_type"))
	}
}

// makeActionSpecs resolves action references into the per-action data
// layout.
func (g *Generator) makeActionSpecs(refs []ActionRef) *Array {
	specs := NewArray()
	for _, ref := range refs {
		action := g.info.FindAction(ref.ID)
		if action == nil {
			diag.ReportError(g.reporter, diag.IrUnresolvedRef, source.Span{},
				fmt.Sprintf("action id %d not present in p4info", ref.ID)).Emit()
			continue
		}
		spec := NewObject()
		spec.Set("id", MakeBfRtID(action.Preamble.ID, PrefixAction))
		spec.Set("name", action.Preamble.Name)
		spec.Set("action_scope", "TableAndDefault")
		spec.Set("annotations", transformAnnotations(action.Preamble.Annotations))
		params := NewArray()
		for _, p := range action.Params {
			f := NewObject()
			f.Set("id", p.ID)
			f.Set("name", p.Name)
			f.Set("repeated", false)
			f.Set("mandatory", true)
			f.Set("read_only", false)
			f.Set("type", makeTypeBytes(p.Bitwidth))
			params.Append(f)
		}
		spec.Set("data", params)
		specs.Append(spec)
	}
	return specs
}

// addActionProfIds resolves a table's implementation id into its
// profile and selector dependencies, rewriting the table type for
// indirect tables. A false return means the table must be dropped.
func (g *Generator) addActionProfIds(table *Table, t *Object) bool {
	implID := table.ImplementationID
	var actProfID, actSelectorID P4Id
	if implID > 0 {
		hasSelector, ok := g.actProfHasSelector(implID)
		if !ok {
			return false
		}
		if hasSelector {
			t.Set("table_type", "MatchAction_Indirect_Selector")
		} else {
			t.Set("table_type", "MatchAction_Indirect")
		}
		actProfID = MakeBfRtID(implID, PrefixActionProfile)
		if hasSelector {
			actSelectorID = MakeBfRtID(implID, PrefixActionSelector)
		}
	}
	if actProfID > 0 {
		addToDependsOn(t, actProfID)
	}
	if actSelectorID > 0 {
		addToDependsOn(t, actSelectorID)
	}
	return true
}

// actProfHasSelector classifies an implementation id. Standard action
// profiles answer from their declaration; a selector-extern id always
// has a selector. Ids that resolve to nothing are reported and answer
// not-ok.
func (g *Generator) actProfHasSelector(id P4Id) (bool, bool) {
	switch {
	case isOfType(id, PrefixActionProfile):
		prof := g.info.FindActionProfile(id)
		if prof == nil {
			diag.ReportError(g.reporter, diag.RtMissingActionProfile, source.Span{},
				fmt.Sprintf("action profile id %d not present in p4info", id)).Emit()
			return false, false
		}
		return prof.WithSelector, true
	case isOfType(id, PrefixActionSelector):
		return true, true
	}
	diag.ReportError(g.reporter, diag.RtBadImplementationID, source.Span{},
		fmt.Sprintf("invalid implementation id in p4info: %d", id)).Emit()
	return false, false
}

// addActionProfs emits an ActionProfile table per profile, followed by
// its Selector table when the profile carries one.
func (g *Generator) addActionProfs(tables *Array) {
	for i := range g.info.ActionProfiles {
		prof := &g.info.ActionProfiles[i]
		g.addActionProfCommon(tables, prof)
		if sel := selectorFromProfile(prof); sel != nil {
			g.addActionSelectorCommon(tables, sel)
		}
	}
}

// addActionProfCommon emits the member table of a profile. Its action
// specs are the union of the actions of every table bound to the
// profile, first reference wins.
func (g *Generator) addActionProfCommon(tables *Array, prof *ActionProfile) {
	pre := &prof.Preamble
	t := initTableJson(pre.Name, MakeBfRtID(pre.ID, PrefixActionProfile),
		"ActionProfile", prof.Size, pre.Annotations)

	key := NewArray()
	addKeyField(key, DataActionMemberID, "$ACTION_MEMBER_ID", true, "Exact",
		makeTypeInt("uint32"))
	t.Set("key", key)

	var refs []ActionRef
	seen := make(map[P4Id]bool)
	for _, tid := range prof.TableIDs {
		tbl := g.info.FindTable(tid)
		if tbl == nil {
			diag.ReportError(g.reporter, diag.IrUnresolvedRef, source.Span{},
				fmt.Sprintf("action profile %s references unknown table id %d",
					pre.Name, tid)).Emit()
			continue
		}
		for _, ref := range tbl.ActionRefs {
			if !seen[ref.ID] {
				seen[ref.ID] = true
				refs = append(refs, ref)
			}
		}
	}
	t.Set("action_specs", g.makeActionSpecs(refs))

	t.Set("data", NewArray())
	t.Set("supported_operations", NewArray())
	t.Set("attributes", NewArray())
	tables.Append(t)
}

// addCounters emits one Counter table per indexed counter. The spec
// fields follow the counter unit.
func (g *Generator) addCounters(tables *Array) {
	for i := range g.info.Counters {
		ctr := &g.info.Counters[i]
		pre := &ctr.Preamble
		t := initTableJson(pre.Name, MakeBfRtID(pre.ID, PrefixCounter),
			"Counter", ctr.Size, pre.Annotations)

		key := NewArray()
		addKeyField(key, DataCounterIndex, "$COUNTER_INDEX", true, "Exact",
			makeTypeInt("uint32"))
		t.Set("key", key)

		data := NewArray()
		unit := ctr.Unit
		if unit == "" {
			unit = "BOTH"
		}
		if unit == "BYTES" || unit == "BOTH" {
			addSingleton(data, makeCommonDataField(DataCounterSpecBytes,
				"$COUNTER_SPEC_BYTES", makeTypeInt("uint64"), false), false, false)
		}
		if unit == "PACKETS" || unit == "BOTH" {
			addSingleton(data, makeCommonDataField(DataCounterSpecPkts,
				"$COUNTER_SPEC_PKTS", makeTypeInt("uint64"), false), false, false)
		}
		t.Set("data", data)

		t.Set("supported_operations", NewArray())
		t.Set("attributes", NewArray())
		tables.Append(t)
	}
}

// addMeters emits one Meter table per indexed meter.
func (g *Generator) addMeters(tables *Array) {
	specFields := []struct {
		id   uint32
		name string
	}{
		{DataMeterCirKbps, "$METER_SPEC_CIR_KBPS"},
		{DataMeterPirKbps, "$METER_SPEC_PIR_KBPS"},
		{DataMeterCbsKbits, "$METER_SPEC_CBS_KBITS"},
		{DataMeterPbsKbits, "$METER_SPEC_PBS_KBITS"},
		{DataMeterCirPps, "$METER_SPEC_CIR_PPS"},
		{DataMeterPirPps, "$METER_SPEC_PIR_PPS"},
	}
	for i := range g.info.Meters {
		mtr := &g.info.Meters[i]
		pre := &mtr.Preamble
		t := initTableJson(pre.Name, MakeBfRtID(pre.ID, PrefixMeter),
			"Meter", mtr.Size, pre.Annotations)

		key := NewArray()
		addKeyField(key, DataMeterIndex, "$METER_INDEX", true, "Exact",
			makeTypeInt("uint32"))
		t.Set("key", key)

		data := NewArray()
		for _, f := range specFields {
			addSingleton(data, makeCommonDataField(f.id, f.name,
				makeTypeInt("uint64"), false), false, false)
		}
		t.Set("data", data)

		t.Set("supported_operations", NewArray())
		t.Set("attributes", NewArray())
		tables.Append(t)
	}
}

// addLearnFilters emits one learn filter per digest declaration.
func (g *Generator) addLearnFilters(learn *Array) {
	for i := range g.info.Digests {
		dg := &g.info.Digests[i]
		pre := &dg.Preamble
		lf := NewObject()
		lf.Set("name", pre.Name)
		lf.Set("id", MakeBfRtID(pre.ID, PrefixDigest))
		lf.Set("annotations", transformAnnotations(pre.Annotations))
		fields := NewArray()
		for _, f := range dg.Fields {
			fo := NewObject()
			fo.Set("id", f.ID)
			fo.Set("name", f.Name)
			fo.Set("repeated", false)
			fo.Set("type", makeTypeBytes(f.Bitwidth))
			fields.Append(fo)
		}
		lf.Set("fields", fields)
		learn.Append(lf)
	}
}
