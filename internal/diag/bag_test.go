package diag

import (
	"testing"

	"p4mid/internal/source"
)

func mkDiag(code Code, sev Severity, sp source.Span, msg string) Diagnostic {
	return Diagnostic{Severity: sev, Code: code, Message: msg, Primary: sp}
}

func TestBagLimit(t *testing.T) {
	b := NewBag(2)
	if !b.Add(mkDiag(InlMultipleCalls, SevError, source.Span{}, "one")) {
		t.Fatalf("first add must succeed")
	}
	if !b.Add(mkDiag(InlMultipleCalls, SevError, source.Span{}, "two")) {
		t.Fatalf("second add must succeed")
	}
	if b.Add(mkDiag(InlMultipleCalls, SevError, source.Span{}, "three")) {
		t.Fatalf("add past the limit must report a drop")
	}
	if b.Len() != 2 || b.Cap() != 2 {
		t.Fatalf("len=%d cap=%d, want 2/2", b.Len(), b.Cap())
	}
}

func TestBagErrorAccounting(t *testing.T) {
	b := NewBag(10)
	b.Add(mkDiag(InlInfo, SevInfo, source.Span{}, "fyi"))
	b.Add(mkDiag(InlInfo, SevWarning, source.Span{}, "careful"))
	if b.HasErrors() {
		t.Fatalf("info and warnings are not errors")
	}
	b.Add(mkDiag(InlMultipleCalls, SevError, source.Span{}, "bad"))
	b.Add(mkDiag(BugBadRename, SevBug, source.Span{}, "worse"))
	if !b.HasErrors() {
		t.Fatalf("errors must be detected")
	}
	if got := b.ErrorCount(); got != 2 {
		t.Fatalf("error count: got %d, want 2", got)
	}
}

func TestBagSortOrder(t *testing.T) {
	spanAt := func(file source.FileID, start uint32) source.Span {
		return source.Span{File: file, Start: start, End: start + 1}
	}
	b := NewBag(10)
	b.Add(mkDiag(InlMultipleCalls, SevError, spanAt(2, 5), "later file"))
	b.Add(mkDiag(InlRecursiveInstance, SevError, spanAt(1, 9), "later offset"))
	b.Add(mkDiag(InlMultipleCalls, SevWarning, spanAt(1, 3), "warning"))
	b.Add(mkDiag(InlMultipleCalls, SevError, spanAt(1, 3), "error wins at same span"))
	b.Sort()

	items := b.Items()
	wantMsgs := []string{"error wins at same span", "warning", "later offset", "later file"}
	for i, want := range wantMsgs {
		if items[i].Message != want {
			t.Fatalf("position %d: got %q, want %q", i, items[i].Message, want)
		}
	}
}

func TestBagDedup(t *testing.T) {
	sp := source.Span{File: 1, Start: 2, End: 4}
	b := NewBag(10)
	b.Add(mkDiag(InlMultipleCalls, SevError, sp, "first"))
	b.Add(mkDiag(InlMultipleCalls, SevError, sp, "repeat of the same code and span"))
	b.Add(mkDiag(InlRecursiveInstance, SevError, sp, "different code survives"))
	b.Dedup()
	if b.Len() != 2 {
		t.Fatalf("dedup kept %d items, want 2", b.Len())
	}
	if b.Items()[0].Message != "first" {
		t.Fatalf("dedup must keep the first occurrence")
	}
}

func TestBagMergeGrowsLimit(t *testing.T) {
	a := NewBag(1)
	a.Add(mkDiag(InlMultipleCalls, SevError, source.Span{}, "a"))
	other := NewBag(2)
	other.Add(mkDiag(InlRecursiveInstance, SevError, source.Span{}, "b"))
	other.Add(mkDiag(InlUnsupportedNesting, SevError, source.Span{}, "c"))

	a.Merge(other)
	if a.Len() != 3 {
		t.Fatalf("merge lost items: got %d", a.Len())
	}
	if a.Cap() != 3 {
		t.Fatalf("merge must grow the limit to the merged size, got %d", a.Cap())
	}
	if a.Add(mkDiag(InlInfo, SevInfo, source.Span{}, "d")) {
		t.Fatalf("merge grows the limit to the merged size only")
	}
}

func TestCodeString(t *testing.T) {
	if got := InlMultipleCalls.String(); got != "P4M1001" {
		t.Fatalf("code format: got %q", got)
	}
	if got := UnknownCode.String(); got != "P4M0000" {
		t.Fatalf("zero code format: got %q", got)
	}
}
