package bfrt

import (
	"encoding/json"
	"fmt"

	"p4mid/internal/diag"
	"p4mid/internal/source"
)

// actionSelector is the flattened view the selector table emitters work
// from. It comes either from a standard action profile declared with a
// selector or from a target extern instance.
type actionSelector struct {
	name         string
	getMemName   string
	id           P4Id
	getMemID     P4Id
	maxGroupSize int64
	numGroups    int64
	annotations  []string
}

// selectorFromProfile returns the selector view of a profile, or nil
// when the profile has none. The group count is the profile size.
func selectorFromProfile(prof *ActionProfile) *actionSelector {
	if !prof.WithSelector {
		return nil
	}
	pre := &prof.Preamble
	return &actionSelector{
		name:         pre.Name,
		getMemName:   pre.Name + "_get_member",
		id:           MakeBfRtID(pre.ID, PrefixActionSelector),
		getMemID:     MakeBfRtID(pre.ID, PrefixActionSelectorGetMember),
		maxGroupSize: prof.MaxGroupSize,
		numGroups:    prof.Size,
		annotations:  pre.Annotations,
	}
}

// selectorFromExtern decodes an ActionSelector extern instance. A
// payload that does not decode is reported and skipped.
func (g *Generator) selectorFromExtern(inst *ExternInstance) *actionSelector {
	var info actionSelectorInfo
	if err := json.Unmarshal(inst.Info, &info); err != nil {
		diag.ReportError(g.reporter, diag.RtBadExternPayload, source.Span{},
			fmt.Sprintf("extern instance %s does not carry an ActionSelector payload: %v",
				inst.Preamble.Name, err)).Emit()
		return nil
	}
	pre := &inst.Preamble
	return &actionSelector{
		name:         pre.Name,
		getMemName:   pre.Name + "_get_member",
		id:           MakeBfRtID(pre.ID, PrefixActionSelector),
		getMemID:     MakeBfRtID(pre.ID, PrefixActionSelectorGetMember),
		maxGroupSize: info.MaxGroupSize,
		numGroups:    info.NumGroups,
		annotations:  pre.Annotations,
	}
}

// addActionSelectorCommon emits the group table of a selector. The
// table size is the maximum number of groups; the maximum group size
// rides along as a data field default.
func (g *Generator) addActionSelectorCommon(tables *Array, sel *actionSelector) {
	t := initTableJson(sel.name, sel.id, "Selector", sel.numGroups, sel.annotations)

	key := NewArray()
	addKeyField(key, DataSelectorGroupID, "$SELECTOR_GROUP_ID", true, "Exact",
		makeTypeInt("uint32"))
	t.Set("key", key)

	data := NewArray()
	addSingleton(data, makeCommonDataField(DataActionMemberID,
		"$ACTION_MEMBER_ID", makeTypeInt("uint32"), true), false, false)
	addSingleton(data, makeCommonDataField(DataActionMemberStatus,
		"$ACTION_MEMBER_STATUS", makeTypeBool(), true), false, false)
	addSingleton(data, makeCommonDataField(DataMaxGroupSize,
		"$MAX_GROUP_SIZE", makeTypeIntDefault("uint32", sel.maxGroupSize), false),
		false, false)
	t.Set("data", data)

	t.Set("supported_operations", NewArray())
	t.Set("attributes", NewArray())
	tables.Append(t)
}

// addActionSelectorGetMemberCommon emits the lookup table that maps a
// group and a hash value to the chosen member. Only target externs get
// one.
func (g *Generator) addActionSelectorGetMemberCommon(tables *Array, sel *actionSelector) {
	t := initTableJson(sel.getMemName, sel.getMemID, "SelectorGetMember", 1,
		sel.annotations)

	key := NewArray()
	addKeyField(key, DataSelectorGroupID, "$SELECTOR_GROUP_ID", true, "Exact",
		makeTypeInt("uint64"))
	addKeyField(key, DataHashValue, "hash_value", true, "Exact",
		makeTypeInt("uint64"))
	t.Set("key", key)

	data := NewArray()
	addSingleton(data, makeCommonDataField(DataActionMemberID,
		"$ACTION_MEMBER_ID", makeTypeInt("uint64"), false), false, false)
	t.Set("data", data)

	t.Set("supported_operations", NewArray())
	t.Set("attributes", NewArray())
	addToDependsOn(t, sel.id)
	tables.Append(t)
}

// addExterns walks target extern instances. ActionSelector instances
// contribute a Selector table and its get-member companion.
func (g *Generator) addExterns(tables *Array) {
	for i := range g.info.Externs {
		ext := &g.info.Externs[i]
		if ext.ExternTypeID != PrefixActionSelector {
			continue
		}
		for j := range ext.Instances {
			sel := g.selectorFromExtern(&ext.Instances[j])
			if sel == nil {
				continue
			}
			g.addActionSelectorCommon(tables, sel)
			g.addActionSelectorGetMemberCommon(tables, sel)
		}
	}
}
