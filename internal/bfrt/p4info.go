package bfrt

import (
	"encoding/json"
	"fmt"
	"io"

	"fortio.org/safecast"
)

// Preamble carries the identity shared by every P4Info object.
type Preamble struct {
	ID          P4Id
	Name        string
	Alias       string
	Annotations []string
}

// UnmarshalJSON range-checks the id; documents produced by other tools
// may carry 64-bit ids that do not fit the prefix scheme.
func (p *Preamble) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID          uint64   `json:"id"`
		Name        string   `json:"name"`
		Alias       string   `json:"alias"`
		Annotations []string `json:"annotations"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	id, err := safecast.Conv[uint32](raw.ID)
	if err != nil {
		return fmt.Errorf("preamble %q: id %d out of range", raw.Name, raw.ID)
	}
	p.ID = P4Id(id)
	p.Name = raw.Name
	p.Alias = raw.Alias
	p.Annotations = raw.Annotations
	return nil
}

// MatchField is one key component of a match-action table.
type MatchField struct {
	ID        uint32 `json:"id"`
	Name      string `json:"name"`
	Bitwidth  int    `json:"bitwidth"`
	MatchType string `json:"matchType"`
}

// ActionRef points at an action usable by a table.
type ActionRef struct {
	ID P4Id `json:"id"`
}

// Table is a match-action table as declared in P4Info.
type Table struct {
	Preamble         Preamble     `json:"preamble"`
	MatchFields      []MatchField `json:"matchFields"`
	ActionRefs       []ActionRef  `json:"actionRefs"`
	ImplementationID P4Id         `json:"implementationId"`
	Size             int64        `json:"size"`
}

// ActionParam is one runtime parameter of an action.
type ActionParam struct {
	ID       uint32 `json:"id"`
	Name     string `json:"name"`
	Bitwidth int    `json:"bitwidth"`
}

// Action is an action declaration.
type Action struct {
	Preamble Preamble      `json:"preamble"`
	Params   []ActionParam `json:"params"`
}

// ActionProfile groups action members for indirect tables, optionally
// behind a selector.
type ActionProfile struct {
	Preamble     Preamble `json:"preamble"`
	TableIDs     []P4Id   `json:"tableIds"`
	WithSelector bool     `json:"withSelector"`
	Size         int64    `json:"size"`
	MaxGroupSize int64    `json:"maxGroupSize"`
}

// Counter is an indexed counter array.
type Counter struct {
	Preamble Preamble `json:"preamble"`
	Size     int64    `json:"size"`
	Unit     string   `json:"unit"`
}

// Meter is an indexed meter array.
type Meter struct {
	Preamble Preamble `json:"preamble"`
	Size     int64    `json:"size"`
}

// DigestField is one member of a digest message.
type DigestField struct {
	ID       uint32 `json:"id"`
	Name     string `json:"name"`
	Bitwidth int    `json:"bitwidth"`
}

// Digest describes a learn message emitted by the data plane.
type Digest struct {
	Preamble Preamble      `json:"preamble"`
	Fields   []DigestField `json:"fields"`
}

// ExternInstance is one instance of a target-specific extern. Info
// carries the extern's own payload and is decoded per extern type.
type ExternInstance struct {
	Preamble Preamble        `json:"preamble"`
	Info     json.RawMessage `json:"info"`
}

// Extern groups instances of one extern type.
type Extern struct {
	ExternTypeID   uint32           `json:"externTypeId"`
	ExternTypeName string           `json:"externTypeName"`
	Instances      []ExternInstance `json:"instances"`
}

// actionSelectorInfo is the payload of an ActionSelector extern
// instance.
type actionSelectorInfo struct {
	MaxGroupSize int64  `json:"maxGroupSize"`
	NumGroups    int64  `json:"numGroups"`
	TableIDs     []P4Id `json:"tableIds"`
}

// P4Info is the subset of the pipeline description the schema generator
// consumes.
type P4Info struct {
	Tables         []Table         `json:"tables"`
	Actions        []Action        `json:"actions"`
	ActionProfiles []ActionProfile `json:"actionProfiles"`
	Counters       []Counter       `json:"counters"`
	Meters         []Meter         `json:"meters"`
	Digests        []Digest        `json:"digests"`
	Externs        []Extern        `json:"externs"`
}

// LoadP4Info decodes a P4Info JSON document.
func LoadP4Info(r io.Reader) (*P4Info, error) {
	var info P4Info
	dec := json.NewDecoder(r)
	if err := dec.Decode(&info); err != nil {
		return nil, fmt.Errorf("decode p4info: %w", err)
	}
	return &info, nil
}

// FindAction returns the action with the given id, or nil.
func (info *P4Info) FindAction(id P4Id) *Action {
	for i := range info.Actions {
		if info.Actions[i].Preamble.ID == id {
			return &info.Actions[i]
		}
	}
	return nil
}

// FindTable returns the table with the given id, or nil.
func (info *P4Info) FindTable(id P4Id) *Table {
	for i := range info.Tables {
		if info.Tables[i].Preamble.ID == id {
			return &info.Tables[i]
		}
	}
	return nil
}

// FindActionProfile returns the action profile with the given id, or
// nil.
func (info *P4Info) FindActionProfile(id P4Id) *ActionProfile {
	for i := range info.ActionProfiles {
		if info.ActionProfiles[i].Preamble.ID == id {
			return &info.ActionProfiles[i]
		}
	}
	return nil
}
