package diag

import (
	"fmt"

	"p4mid/internal/source"
)

// BugError is the panic payload raised by Bugf. It carries the diagnostic
// so that a top-level recover can render it before terminating.
type BugError struct {
	Diag Diagnostic
}

func (e *BugError) Error() string {
	return fmt.Sprintf("%s: %s", e.Diag.Code, e.Diag.Message)
}

// Bugf reports an internal invariant violation and panics with a *BugError.
// Unlike SevError diagnostics, bugs are not recoverable: the caller must not
// continue the current transformation.
func Bugf(r Reporter, code Code, primary source.Span, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if r != nil {
		r.Report(code, SevBug, primary, msg, nil)
	}
	panic(&BugError{Diag: Diagnostic{
		Severity: SevBug,
		Code:     code,
		Message:  msg,
		Primary:  primary,
	}})
}

// BugCheck panics via Bugf when cond is false.
func BugCheck(cond bool, r Reporter, code Code, primary source.Span, format string, args ...any) {
	if !cond {
		Bugf(r, code, primary, format, args...)
	}
}
