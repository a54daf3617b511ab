// Package inline implements call-site inlining of controls and parsers.
//
// Inlining proceeds leaf-up over the instantiation graph: a worklist
// schedules callees whose own calls are already flattened, a
// substitution pass clones the callee body per call site, and a rename
// pass keeps names unique while preserving control-plane visible names
// through @name annotations.
package inline

import (
	"fmt"
	"strings"

	"p4mid/internal/ir"
)

// SelectorKind discriminates location path steps.
type SelectorKind uint8

const (
	// SelField selects a named field of a header or struct.
	SelField SelectorKind = iota
	// SelIndex selects one element of a header stack.
	SelIndex
	// SelAll selects every element of a header stack.
	SelAll
)

// Selector is one step in a location path.
type Selector struct {
	Kind  SelectorKind
	Field string
	Index int
}

func (s Selector) String() string {
	switch s.Kind {
	case SelField:
		return "." + s.Field
	case SelIndex:
		return fmt.Sprintf("[%d]", s.Index)
	case SelAll:
		return "[*]"
	default:
		return "?"
	}
}

// compatible reports whether two steps can refer to the same storage.
// SelAll is a wildcard on either side.
func compatible(a, b Selector) bool {
	if a.Kind == SelAll || b.Kind == SelAll {
		return true
	}
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind == SelField {
		return a.Field == b.Field
	}
	return a.Index == b.Index
}

// Location is an abstract storage location: a declaration plus a
// selector path into it. An empty path denotes the whole declaration.
type Location struct {
	Decl ir.DeclID
	Path []Selector
}

func (l Location) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "decl#%d", l.Decl)
	for _, s := range l.Path {
		sb.WriteString(s.String())
	}
	return sb.String()
}

// overlapsLoc reports whether two locations can alias. Locations on
// different declarations never alias. On the same declaration, one
// aliases the other when each step over the shared prefix is
// compatible: a shorter path covers every extension of itself.
func overlapsLoc(a, b Location) bool {
	if a.Decl != b.Decl {
		return false
	}
	n := min(len(a.Path), len(b.Path))
	for i := 0; i < n; i++ {
		if !compatible(a.Path[i], b.Path[i]) {
			return false
		}
	}
	return true
}

// LocationSet is a set of abstract locations. Sets stay small (one per
// argument expression), so membership and overlap are linear scans.
type LocationSet struct {
	locs []Location
}

// NewLocationSet returns an empty set.
func NewLocationSet() *LocationSet {
	return &LocationSet{}
}

// Add inserts a location unless an equal one is already present.
func (s *LocationSet) Add(l Location) {
	for _, have := range s.locs {
		if have.Decl == l.Decl && equalPath(have.Path, l.Path) {
			return
		}
	}
	s.locs = append(s.locs, l)
}

func equalPath(a, b []Selector) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// AddAll inserts every location from other.
func (s *LocationSet) AddAll(other *LocationSet) {
	if other == nil {
		return
	}
	for _, l := range other.locs {
		s.Add(l)
	}
}

// Append returns a new set where every location is extended with the
// given selector step.
func (s *LocationSet) Append(sel Selector) *LocationSet {
	out := NewLocationSet()
	for _, l := range s.locs {
		path := make([]Selector, len(l.Path)+1)
		copy(path, l.Path)
		path[len(l.Path)] = sel
		out.Add(Location{Decl: l.Decl, Path: path})
	}
	return out
}

// IsEmpty reports whether the set holds no locations.
func (s *LocationSet) IsEmpty() bool {
	return s == nil || len(s.locs) == 0
}

// Len returns the number of locations in the set.
func (s *LocationSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.locs)
}

// Overlaps reports whether any location in s can alias any location in
// other.
func (s *LocationSet) Overlaps(other *LocationSet) bool {
	if s == nil || other == nil {
		return false
	}
	for _, a := range s.locs {
		for _, b := range other.locs {
			if overlapsLoc(a, b) {
				return true
			}
		}
	}
	return false
}

func (s *LocationSet) String() string {
	if s.IsEmpty() {
		return "{}"
	}
	parts := make([]string, len(s.locs))
	for i, l := range s.locs {
		parts[i] = l.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
