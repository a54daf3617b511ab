package bfrt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"p4mid/internal/diag"
)

func testReporter() (*diag.Bag, diag.Reporter) {
	bag := diag.NewBag(50)
	return bag, diag.NewDedupReporter(diag.BagReporter{Bag: bag})
}

func hasCode(bag *diag.Bag, code diag.Code) bool {
	for _, d := range bag.Items() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func schemaTables(t *testing.T, root *Object) []*Object {
	t.Helper()
	v, ok := root.Get("tables")
	if !ok {
		t.Fatalf("schema has no tables section")
	}
	var out []*Object
	for _, it := range v.(*Array).Items() {
		out = append(out, it.(*Object))
	}
	return out
}

func findSchemaTable(ts []*Object, name string) *Object {
	for _, t := range ts {
		if t.GetString("name") == name {
			return t
		}
	}
	return nil
}

func dependsOn(t *testing.T, tbl *Object) []P4Id {
	t.Helper()
	v, ok := tbl.Get("depends_on")
	if !ok {
		return nil
	}
	var out []P4Id
	for _, it := range v.(*Array).Items() {
		out = append(out, it.(P4Id))
	}
	return out
}

func dataFieldNames(t *testing.T, tbl *Object) []string {
	t.Helper()
	v, ok := tbl.Get("data")
	if !ok {
		t.Fatalf("table %s has no data section", tbl.GetString("name"))
	}
	var out []string
	for _, it := range v.(*Array).Items() {
		w := it.(*Object)
		if s, ok := w.Get("singleton"); ok {
			out = append(out, s.(*Object).GetString("name"))
			continue
		}
		if c, ok := w.Get("oneof"); ok {
			for _, ch := range c.(*Array).Items() {
				out = append(out, ch.(*Object).GetString("name"))
			}
		}
	}
	return out
}

func directTableInfo() *P4Info {
	return &P4Info{
		Tables: []Table{{
			Preamble: Preamble{ID: 0x02000001, Name: "pipe.ingress.fwd", Annotations: []string{"@alias(fwd)"}},
			MatchFields: []MatchField{
				{ID: 1, Name: "hdr.eth.dst", Bitwidth: 48, MatchType: "EXACT"},
				{ID: 2, Name: "hdr.ipv4.dst", Bitwidth: 32, MatchType: "LPM"},
			},
			ActionRefs: []ActionRef{{ID: 0x01000001}},
			Size:       1024,
		}},
		Actions: []Action{{
			Preamble: Preamble{ID: 0x01000001, Name: "pipe.ingress.set_port"},
			Params:   []ActionParam{{ID: 1, Name: "port", Bitwidth: 9}},
		}},
	}
}

func TestGenSchemaDirectTable(t *testing.T) {
	bag, rep := testReporter()
	root := NewGenerator(directTableInfo(), rep).GenSchema()
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	if got := root.GetString("schema_version"); got != "1.0.0" {
		t.Fatalf("schema_version: got %q", got)
	}

	ts := schemaTables(t, root)
	if len(ts) != 1 {
		t.Fatalf("expected 1 table, got %d", len(ts))
	}
	tbl := ts[0]
	if got := tbl.GetString("table_type"); got != "MatchAction_Direct" {
		t.Fatalf("table_type: got %q", got)
	}
	if id, _ := tbl.Get("id"); id.(P4Id) != MakeBfRtID(0x02000001, PrefixTable) {
		t.Fatalf("table id not rebased: got %v", id)
	}

	keyv, _ := tbl.Get("key")
	keys := keyv.(*Array).Items()
	if len(keys) != 2 {
		t.Fatalf("expected 2 key fields, got %d", len(keys))
	}
	exact := keys[0].(*Object)
	if exact.GetString("match_type") != "Exact" {
		t.Fatalf("first key match_type: got %q", exact.GetString("match_type"))
	}
	if m, _ := exact.Get("mandatory"); m != true {
		t.Fatalf("exact keys are mandatory")
	}
	lpm := keys[1].(*Object)
	if lpm.GetString("match_type") != "LPM" {
		t.Fatalf("second key match_type: got %q", lpm.GetString("match_type"))
	}
	if m, _ := lpm.Get("mandatory"); m != false {
		t.Fatalf("lpm keys are not mandatory")
	}

	specsv, ok := tbl.Get("action_specs")
	if !ok {
		t.Fatalf("direct table must carry action_specs")
	}
	specs := specsv.(*Array).Items()
	if len(specs) != 1 {
		t.Fatalf("expected 1 action spec, got %d", len(specs))
	}
	spec := specs[0].(*Object)
	if spec.GetString("name") != "pipe.ingress.set_port" {
		t.Fatalf("action spec name: got %q", spec.GetString("name"))
	}
	if id, _ := spec.Get("id"); id.(P4Id) != MakeBfRtID(0x01000001, PrefixAction) {
		t.Fatalf("action id not rebased: got %v", id)
	}
}

func TestGenSchemaIndirectWithSelector(t *testing.T) {
	info := directTableInfo()
	const profID = P4Id(0x11000003)
	info.Tables[0].ImplementationID = profID
	info.ActionProfiles = []ActionProfile{{
		Preamble:     Preamble{ID: profID, Name: "pipe.ingress.ecmp"},
		TableIDs:     []P4Id{0x02000001},
		WithSelector: true,
		Size:         128,
		MaxGroupSize: 16,
	}}

	bag, rep := testReporter()
	root := NewGenerator(info, rep).GenSchema()
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}

	ts := schemaTables(t, root)
	if len(ts) != 3 {
		t.Fatalf("expected match + profile + selector tables, got %d", len(ts))
	}

	match := findSchemaTable(ts, "pipe.ingress.fwd")
	if match.GetString("table_type") != "MatchAction_Indirect_Selector" {
		t.Fatalf("match table type: got %q", match.GetString("table_type"))
	}
	deps := dependsOn(t, match)
	wantDeps := []P4Id{MakeBfRtID(profID, PrefixActionProfile), MakeBfRtID(profID, PrefixActionSelector)}
	if len(deps) != 2 || deps[0] != wantDeps[0] || deps[1] != wantDeps[1] {
		t.Fatalf("depends_on: got %v, want %v", deps, wantDeps)
	}
	names := dataFieldNames(t, match)
	if len(names) != 2 || names[0] != "$ACTION_MEMBER_ID" || names[1] != "$SELECTOR_GROUP_ID" {
		t.Fatalf("selector tables choose member or group, got %v", names)
	}
	if _, ok := match.Get("action_specs"); ok {
		t.Fatalf("indirect tables must not carry action_specs")
	}

	prof := findSchemaTable(ts, "pipe.ingress.ecmp")
	if prof.GetString("table_type") != "ActionProfile" {
		t.Fatalf("profile table type: got %q", prof.GetString("table_type"))
	}
	specsv, _ := prof.Get("action_specs")
	if specsv.(*Array).Len() != 1 {
		t.Fatalf("profile must union its tables' actions")
	}

	var sel *Object
	for _, tb := range ts {
		if tb.GetString("table_type") == "Selector" {
			sel = tb
		}
	}
	if sel == nil {
		t.Fatalf("selector table missing")
	}
	if sz, _ := sel.Get("size"); sz.(int64) != 128 {
		t.Fatalf("selector size is the group count, got %v", sz)
	}
	selNames := dataFieldNames(t, sel)
	want := []string{"$ACTION_MEMBER_ID", "$ACTION_MEMBER_STATUS", "$MAX_GROUP_SIZE"}
	if len(selNames) != 3 || selNames[0] != want[0] || selNames[1] != want[1] || selNames[2] != want[2] {
		t.Fatalf("selector data fields: got %v, want %v", selNames, want)
	}
}

func TestGenSchemaIndirectWithoutSelector(t *testing.T) {
	info := directTableInfo()
	const profID = P4Id(0x11000004)
	info.Tables[0].ImplementationID = profID
	info.ActionProfiles = []ActionProfile{{
		Preamble: Preamble{ID: profID, Name: "pipe.ingress.members"},
		TableIDs: []P4Id{0x02000001},
		Size:     64,
	}}

	bag, rep := testReporter()
	root := NewGenerator(info, rep).GenSchema()
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}

	ts := schemaTables(t, root)
	if len(ts) != 2 {
		t.Fatalf("expected match + profile tables, got %d", len(ts))
	}
	match := findSchemaTable(ts, "pipe.ingress.fwd")
	if match.GetString("table_type") != "MatchAction_Indirect" {
		t.Fatalf("match table type: got %q", match.GetString("table_type"))
	}
	if deps := dependsOn(t, match); len(deps) != 1 || deps[0] != MakeBfRtID(profID, PrefixActionProfile) {
		t.Fatalf("depends_on: got %v", deps)
	}
	if names := dataFieldNames(t, match); len(names) != 1 || names[0] != "$ACTION_MEMBER_ID" {
		t.Fatalf("indirect data fields: got %v", names)
	}
}

func TestGenSchemaBadImplementationID(t *testing.T) {
	info := directTableInfo()
	info.Tables[0].ImplementationID = 0x01000009

	bag, rep := testReporter()
	root := NewGenerator(info, rep).GenSchema()

	if !hasCode(bag, diag.RtBadImplementationID) {
		t.Fatalf("expected %s", diag.RtBadImplementationID)
	}
	if ts := schemaTables(t, root); len(ts) != 0 {
		t.Fatalf("unresolvable table must be dropped, got %d tables", len(ts))
	}
}

func TestGenSchemaMissingActionProfile(t *testing.T) {
	info := directTableInfo()
	info.Tables[0].ImplementationID = 0x11000099

	bag, rep := testReporter()
	root := NewGenerator(info, rep).GenSchema()

	if !hasCode(bag, diag.RtMissingActionProfile) {
		t.Fatalf("expected %s", diag.RtMissingActionProfile)
	}
	if ts := schemaTables(t, root); len(ts) != 0 {
		t.Fatalf("table with missing profile must be dropped")
	}
}

func TestGenSchemaDuplicatePreambleID(t *testing.T) {
	info := directTableInfo()
	info.Counters = []Counter{{
		Preamble: Preamble{ID: 0x02000001, Name: "pipe.ingress.pkts"},
		Size:     256,
	}}

	bag, rep := testReporter()
	NewGenerator(info, rep).GenSchema()

	if !hasCode(bag, diag.RtDuplicatePreambleID) {
		t.Fatalf("expected %s", diag.RtDuplicatePreambleID)
	}
}

func TestGenSchemaUnresolvedActionRef(t *testing.T) {
	info := directTableInfo()
	info.Actions = nil

	bag, rep := testReporter()
	root := NewGenerator(info, rep).GenSchema()

	if !hasCode(bag, diag.IrUnresolvedRef) {
		t.Fatalf("expected %s", diag.IrUnresolvedRef)
	}
	ts := schemaTables(t, root)
	specsv, _ := ts[0].Get("action_specs")
	if specsv.(*Array).Len() != 0 {
		t.Fatalf("unresolved refs must be skipped, not emitted")
	}
}

func TestGenSchemaSelectorExtern(t *testing.T) {
	const selID = P4Id(0x81000002)
	info := &P4Info{
		Externs: []Extern{{
			ExternTypeID:   PrefixActionSelector,
			ExternTypeName: "ActionSelector",
			Instances: []ExternInstance{{
				Preamble: Preamble{ID: selID, Name: "pipe.ingress.as"},
				Info:     json.RawMessage(`{"maxGroupSize": 8, "numGroups": 32, "tableIds": []}`),
			}},
		}},
	}

	bag, rep := testReporter()
	root := NewGenerator(info, rep).GenSchema()
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}

	ts := schemaTables(t, root)
	if len(ts) != 2 {
		t.Fatalf("expected selector + get-member tables, got %d", len(ts))
	}
	sel := findSchemaTable(ts, "pipe.ingress.as")
	if sel.GetString("table_type") != "Selector" {
		t.Fatalf("selector type: got %q", sel.GetString("table_type"))
	}
	if sz, _ := sel.Get("size"); sz.(int64) != 32 {
		t.Fatalf("selector size: got %v, want 32", sz)
	}

	gm := findSchemaTable(ts, "pipe.ingress.as_get_member")
	if gm == nil || gm.GetString("table_type") != "SelectorGetMember" {
		t.Fatalf("get-member table missing or mistyped")
	}
	if deps := dependsOn(t, gm); len(deps) != 1 || deps[0] != MakeBfRtID(selID, PrefixActionSelector) {
		t.Fatalf("get-member must depend on its selector, got %v", deps)
	}
	keyv, _ := gm.Get("key")
	keys := keyv.(*Array).Items()
	if len(keys) != 2 || keys[1].(*Object).GetString("name") != "hash_value" {
		t.Fatalf("get-member key must include the hash value")
	}
}

func TestGenSchemaBadExternPayload(t *testing.T) {
	info := &P4Info{
		Externs: []Extern{{
			ExternTypeID: PrefixActionSelector,
			Instances: []ExternInstance{{
				Preamble: Preamble{ID: 0x81000003, Name: "broken"},
				Info:     json.RawMessage(`"not an object"`),
			}},
		}},
	}

	bag, rep := testReporter()
	root := NewGenerator(info, rep).GenSchema()

	if !hasCode(bag, diag.RtBadExternPayload) {
		t.Fatalf("expected %s", diag.RtBadExternPayload)
	}
	if ts := schemaTables(t, root); len(ts) != 0 {
		t.Fatalf("broken extern must contribute nothing")
	}
}

func TestGenSchemaCounterUnits(t *testing.T) {
	cases := []struct {
		unit string
		want []string
	}{
		{"BYTES", []string{"$COUNTER_SPEC_BYTES"}},
		{"PACKETS", []string{"$COUNTER_SPEC_PKTS"}},
		{"", []string{"$COUNTER_SPEC_BYTES", "$COUNTER_SPEC_PKTS"}},
	}
	for _, tc := range cases {
		info := &P4Info{Counters: []Counter{{
			Preamble: Preamble{ID: 0x12000001, Name: "pipe.ingress.pkts"},
			Size:     512,
			Unit:     tc.unit,
		}}}
		bag, rep := testReporter()
		root := NewGenerator(info, rep).GenSchema()
		if bag.HasErrors() {
			t.Fatalf("unit %q: unexpected diagnostics: %v", tc.unit, bag.Items())
		}
		ts := schemaTables(t, root)
		if len(ts) != 1 || ts[0].GetString("table_type") != "Counter" {
			t.Fatalf("unit %q: expected one Counter table", tc.unit)
		}
		got := dataFieldNames(t, ts[0])
		if len(got) != len(tc.want) {
			t.Fatalf("unit %q: data fields %v, want %v", tc.unit, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("unit %q: data fields %v, want %v", tc.unit, got, tc.want)
			}
		}
	}
}

func TestGenSchemaMeterSpecFields(t *testing.T) {
	info := &P4Info{Meters: []Meter{{
		Preamble: Preamble{ID: 0x14000001, Name: "pipe.ingress.rate"},
		Size:     64,
	}}}
	bag, rep := testReporter()
	root := NewGenerator(info, rep).GenSchema()
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	ts := schemaTables(t, root)
	if len(ts) != 1 || ts[0].GetString("table_type") != "Meter" {
		t.Fatalf("expected one Meter table")
	}
	got := dataFieldNames(t, ts[0])
	want := []string{
		"$METER_SPEC_CIR_KBPS", "$METER_SPEC_PIR_KBPS",
		"$METER_SPEC_CBS_KBITS", "$METER_SPEC_PBS_KBITS",
		"$METER_SPEC_CIR_PPS", "$METER_SPEC_PIR_PPS",
	}
	if len(got) != len(want) {
		t.Fatalf("meter data fields %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("meter data fields %v, want %v", got, want)
		}
	}
}

func TestGenSchemaLearnFilters(t *testing.T) {
	info := &P4Info{Digests: []Digest{{
		Preamble: Preamble{ID: 0x17000001, Name: "pipe.ingress.learn_mac"},
		Fields: []DigestField{
			{ID: 1, Name: "src_addr", Bitwidth: 48},
			{ID: 2, Name: "in_port", Bitwidth: 9},
		},
	}}}
	bag, rep := testReporter()
	root := NewGenerator(info, rep).GenSchema()
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}

	v, ok := root.Get("learn_filters")
	if !ok {
		t.Fatalf("schema has no learn_filters section")
	}
	filters := v.(*Array).Items()
	if len(filters) != 1 {
		t.Fatalf("expected 1 learn filter, got %d", len(filters))
	}
	lf := filters[0].(*Object)
	if id, _ := lf.Get("id"); id.(P4Id) != MakeBfRtID(0x17000001, PrefixDigest) {
		t.Fatalf("learn filter id not rebased: got %v", id)
	}
	fv, _ := lf.Get("fields")
	fields := fv.(*Array).Items()
	if len(fields) != 2 || fields[0].(*Object).GetString("name") != "src_addr" {
		t.Fatalf("learn filter fields wrong: %v", fields)
	}
}

func TestGenSchemaOutputIsDeterministic(t *testing.T) {
	build := func() []byte {
		info := directTableInfo()
		info.Counters = []Counter{{Preamble: Preamble{ID: 0x12000001, Name: "c"}, Size: 8}}
		info.Meters = []Meter{{Preamble: Preamble{ID: 0x14000001, Name: "m"}, Size: 8}}
		_, rep := testReporter()
		b, err := json.Marshal(NewGenerator(info, rep).GenSchema())
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		return b
	}
	first := build()
	for i := 0; i < 5; i++ {
		if next := build(); !bytes.Equal(first, next) {
			t.Fatalf("schema output differs between runs")
		}
	}
}

func TestLoadP4Info(t *testing.T) {
	doc := `{
		"tables": [{
			"preamble": {"id": 33554433, "name": "fwd", "alias": "fwd"},
			"matchFields": [{"id": 1, "name": "dst", "bitwidth": 48, "matchType": "EXACT"}],
			"actionRefs": [{"id": 16777217}],
			"size": 512
		}],
		"actions": [{
			"preamble": {"id": 16777217, "name": "set_port"},
			"params": [{"id": 1, "name": "port", "bitwidth": 9}]
		}]
	}`
	info, err := LoadP4Info(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(info.Tables) != 1 || info.Tables[0].Preamble.Name != "fwd" {
		t.Fatalf("table not decoded: %+v", info.Tables)
	}
	if a := info.FindAction(16777217); a == nil || len(a.Params) != 1 {
		t.Fatalf("action lookup failed")
	}
	if tb := info.FindTable(33554433); tb == nil || tb.Size != 512 {
		t.Fatalf("table lookup failed")
	}
}

func TestLoadP4InfoRejectsOversizedID(t *testing.T) {
	doc := `{"tables": [{"preamble": {"id": 4294967296, "name": "huge"}}]}`
	if _, err := LoadP4Info(strings.NewReader(doc)); err == nil {
		t.Fatalf("64-bit preamble id must be rejected")
	}
}
