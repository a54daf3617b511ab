package ir

// NameAnnotation is the annotation carrying a declaration's control-plane
// visible name.
const NameAnnotation = "name"

// Annotation is a single @name(value)-style annotation.
type Annotation struct {
	Name  string
	Value string
}

// Annotations is an ordered annotation list. Order is preserved across
// transforms so that output stays deterministic.
type Annotations []Annotation

// Get returns the first annotation with the given name, or nil.
func (as Annotations) Get(name string) *Annotation {
	for i := range as {
		if as[i].Name == name {
			return &as[i]
		}
	}
	return nil
}

// Has reports whether an annotation with the given name is present.
func (as Annotations) Has(name string) bool {
	return as.Get(name) != nil
}

// WithName returns a copy of the list where the @name annotation is set
// to value, replacing any existing one while keeping its position.
func (as Annotations) WithName(value string) Annotations {
	out := make(Annotations, 0, len(as)+1)
	replaced := false
	for _, a := range as {
		if a.Name == NameAnnotation {
			if !replaced {
				out = append(out, Annotation{Name: NameAnnotation, Value: value})
				replaced = true
			}
			continue
		}
		out = append(out, a)
	}
	if !replaced {
		out = append(out, Annotation{Name: NameAnnotation, Value: value})
	}
	return out
}

// Without returns a copy of the list with every annotation named name
// removed. The receiver is returned unchanged when none match.
func (as Annotations) Without(name string) Annotations {
	if !as.Has(name) {
		return as
	}
	out := make(Annotations, 0, len(as)-1)
	for _, a := range as {
		if a.Name != name {
			out = append(out, a)
		}
	}
	return out
}

// Clone returns a copy of the annotation list.
func (as Annotations) Clone() Annotations {
	if as == nil {
		return nil
	}
	out := make(Annotations, len(as))
	copy(out, as)
	return out
}
