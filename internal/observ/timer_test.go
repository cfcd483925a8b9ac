package observ

import (
	"strings"
	"testing"
)

func TestTimerPhases(t *testing.T) {
	tm := NewTimer()
	scan := tm.Begin("scan")
	tm.End(scan, "3 dirs")
	sync := tm.Begin("sync")
	tm.End(sync, "")
	tm.End(42, "ignored")

	report := tm.Report()
	if len(report.Phases) != 2 {
		t.Fatalf("len(Phases) = %d, want 2", len(report.Phases))
	}
	if report.Phases[0].Name != "scan" || report.Phases[0].Note != "3 dirs" {
		t.Fatalf("unexpected first phase %+v", report.Phases[0])
	}
	summary := tm.Summary()
	for _, want := range []string{"timings:", "scan", "// 3 dirs", "sync", "total"} {
		if !strings.Contains(summary, want) {
			t.Fatalf("Summary missing %q:\n%s", want, summary)
		}
	}
}

func TestNilTimer(t *testing.T) {
	var tm *Timer
	idx := tm.Begin("scan")
	tm.End(idx, "note")
	if got := tm.Report(); len(got.Phases) != 0 {
		t.Fatalf("nil timer reported phases: %+v", got)
	}
}
