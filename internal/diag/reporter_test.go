package diag

import (
	"testing"

	"p4mid/internal/source"
)

func TestReportBuilderEmitsOnce(t *testing.T) {
	bag := NewBag(10)
	r := BagReporter{Bag: bag}

	b := ReportError(r, InlMultipleCalls, source.Span{File: 1, Start: 2, End: 3}, "applied twice").
		WithNote(source.Span{File: 1, Start: 8, End: 9}, "second application here")
	b.Emit()
	b.Emit()

	if bag.Len() != 1 {
		t.Fatalf("emit must fire once, got %d diagnostics", bag.Len())
	}
	d := bag.Items()[0]
	if d.Severity != SevError || d.Code != InlMultipleCalls {
		t.Fatalf("wrong diagnostic: %+v", d)
	}
	if len(d.Notes) != 1 || d.Notes[0].Msg != "second application here" {
		t.Fatalf("note lost: %+v", d.Notes)
	}
}

func TestReportSeverityShortcuts(t *testing.T) {
	bag := NewBag(10)
	r := BagReporter{Bag: bag}
	ReportWarning(r, InlInfo, source.Span{}, "w").Emit()
	ReportInfo(r, InlInfo, source.Span{}, "i").Emit()

	items := bag.Items()
	if items[0].Severity != SevWarning || items[1].Severity != SevInfo {
		t.Fatalf("severities wrong: %v, %v", items[0].Severity, items[1].Severity)
	}
	if bag.HasErrors() {
		t.Fatalf("warnings and infos are not errors")
	}
}

func TestDedupReporterSuppressesRepeats(t *testing.T) {
	bag := NewBag(10)
	r := NewDedupReporter(BagReporter{Bag: bag})

	sp := source.Span{File: 1, Start: 4, End: 6}
	r.Report(InlRecursiveInstance, SevError, sp, "loop", nil)
	r.Report(InlRecursiveInstance, SevError, sp, "loop", nil)
	r.Report(InlRecursiveInstance, SevError, sp, "different message", nil)
	r.Report(InlRecursiveInstance, SevError, source.Span{File: 2}, "loop", nil)

	if bag.Len() != 3 {
		t.Fatalf("dedup kept %d, want 3", bag.Len())
	}
}

func TestBugfPanicsAndReports(t *testing.T) {
	bag := NewBag(10)
	r := BagReporter{Bag: bag}

	defer func() {
		be, ok := recover().(*BugError)
		if !ok {
			t.Fatalf("expected *BugError panic")
		}
		if be.Diag.Code != BugBadRename || be.Diag.Severity != SevBug {
			t.Fatalf("panic carries wrong diagnostic: %+v", be.Diag)
		}
		if bag.Len() != 1 || bag.Items()[0].Code != BugBadRename {
			t.Fatalf("bug must also be reported before the panic")
		}
	}()
	Bugf(r, BugBadRename, source.Span{}, "symbol %q renamed twice", "t")
}

func TestBugCheckPassesWhenTrue(t *testing.T) {
	bag := NewBag(10)
	BugCheck(true, BagReporter{Bag: bag}, BugBadWorkItem, source.Span{}, "unreachable")
	if bag.Len() != 0 {
		t.Fatalf("satisfied check must not report")
	}
}
