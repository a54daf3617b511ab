package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Inlining
	InlInfo               Code = 1000
	InlMultipleCalls      Code = 1001
	InlControlFromParser  Code = 1002
	InlParserFromControl  Code = 1003
	InlRecursiveInstance  Code = 1004
	InlUnsupportedNesting Code = 1005

	// Runtime schema generation
	RtInfo                 Code = 2000
	RtBadImplementationID  Code = 2001
	RtBadExternPayload     Code = 2002
	RtUnknownTableType     Code = 2003
	RtDuplicatePreambleID  Code = 2004
	RtMissingActionProfile Code = 2005

	// IR loading / serialization
	IrInfo          Code = 3000
	IrBadPayload    Code = 3001
	IrBadVersion    Code = 3002
	IrUnresolvedRef Code = 3003

	// Internal invariant violations
	BugInfo            Code = 9000
	BugNoLocationSet   Code = 9001
	BugNullDeclaration Code = 9002
	BugBadRename       Code = 9003
	BugBadWorkItem     Code = 9004
)

func (c Code) String() string {
	return fmt.Sprintf("P4M%04d", uint16(c))
}
