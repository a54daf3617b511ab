// Package ir provides the midend intermediate representation.
//
// The IR is a pointer tree rather than an arena: transforms such as the
// inliner clone whole subtrees per call site and rewrite them in place,
// so node identity (in particular *Path identity inside the reference
// map) matters more than allocation locality. Declarations carry stable
// numeric IDs so analyses can key maps and sets without holding pointers.
package ir

// DeclID identifies a declaration within a program.
type DeclID uint32

// NoDeclID is the zero sentinel.
const NoDeclID DeclID = 0

// IsValid returns true if the ID is valid (non-zero).
func (id DeclID) IsValid() bool { return id != NoDeclID }

// IDGen hands out declaration IDs. The zero value is ready to use; the
// first ID issued is 1 so that zero stays a sentinel.
type IDGen struct {
	next DeclID
}

// Next returns a fresh DeclID.
func (g *IDGen) Next() DeclID {
	g.next++
	return g.next
}
