package observ

import (
	"strings"
	"testing"
	"time"
)

func TestTimerPhases(t *testing.T) {
	tm := NewTimer()
	idx := tm.Begin("inline")
	time.Sleep(time.Millisecond)
	tm.End(idx, "2 rounds")

	report := tm.Report()
	if len(report.Phases) != 1 {
		t.Fatalf("expected 1 phase, got %d", len(report.Phases))
	}
	p := report.Phases[0]
	if p.Name != "inline" || p.Note != "2 rounds" {
		t.Fatalf("phase metadata wrong: %+v", p)
	}
	if p.DurationMS <= 0 {
		t.Fatalf("ended phase must have a positive duration")
	}
	if report.TotalMS < p.DurationMS {
		t.Fatalf("total %v must cover the phase %v", report.TotalMS, p.DurationMS)
	}
}

func TestTimerEndIgnoresBadIndex(t *testing.T) {
	tm := NewTimer()
	tm.End(-1, "x")
	tm.End(5, "x")
	if got := tm.Report(); len(got.Phases) != 0 {
		t.Fatalf("no phases expected, got %+v", got)
	}
}

func TestTimerSummary(t *testing.T) {
	tm := NewTimer()
	a := tm.Begin("discover")
	tm.End(a, "")
	b := tm.Begin("schema")
	tm.End(b, "cache hit")

	s := tm.Summary()
	for _, want := range []string{"timings:", "discover", "schema", "// cache hit", "total"} {
		if !strings.Contains(s, want) {
			t.Fatalf("summary missing %q:\n%s", want, s)
		}
	}
}
