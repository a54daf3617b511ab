package ir

// Path is a reference to a named declaration. Paths are compared by
// pointer identity in the ReferenceMap, so clones always allocate a
// fresh Path even when the name is unchanged.
type Path struct {
	Name string
	// Absolute marks a leading-dot reference to the top-level scope.
	Absolute bool
}

// NewPath returns a relative path with the given name.
func NewPath(name string) *Path {
	return &Path{Name: name}
}

func (p *Path) String() string {
	if p == nil {
		return "<nil>"
	}
	if p.Absolute {
		return "." + p.Name
	}
	return p.Name
}

// Clone returns a fresh Path with the same name and absoluteness.
func (p *Path) Clone() *Path {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}
