package targetlist

import (
	"testing"
	"time"

	"github.com/kestrelsky/visplot/night"
	"github.com/kestrelsky/visplot/site"
)

func testSite() *site.Site {
	return &site.Site{
		Name:           "Test Observatory",
		LatitudeDeg:    28.76,
		LongitudeDeg:   -17.88,
		AltitudeM:      2382,
		MinAltitudeDeg: 20,
		MaxAltitudeDeg: 90,
	}
}

func testNight(t *testing.T) *night.Night {
	t.Helper()
	n, err := night.New(28.76, -17.88, time.Date(2026, 3, 21, 0, 0, 0, 0, time.UTC), 5.0)
	if err != nil {
		t.Fatalf("night.New: %v", err)
	}
	return n
}

const m31Line = "M31 0 42 44.3 +41 16 9 2000 600 andromeda 2.0 photometry wfc/imaging/groupA/block1"
const vegaLine = "Vega 18 36 56.3 +38 47 1.3 2000 120 stars 1.8 spectroscopy spec/echelle/g1/b1"

func TestSetTargets_BuildsPreComputedTargets(t *testing.T) {
	n := testNight(t)
	s := testSite()

	targets, errs := SetTargets([]string{m31Line, vegaLine}, n, s, nil)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(targets) != 2 {
		t.Fatalf("got %d targets, want 2", len(targets))
	}
	for _, tg := range targets {
		if len(tg.Graph) != len(n.Xaxis) {
			t.Errorf("%s: Graph not precomputed", tg.Name)
		}
	}
}

func TestPrepareScheduleForUpdate_UnchangedWhenLinesIdentical(t *testing.T) {
	n := testNight(t)
	s := testSite()

	targets, errs := SetTargets([]string{m31Line}, n, s, nil)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	diff, errs2 := PrepareScheduleForUpdate(targets, []string{m31Line}, n.Sunset, n, s, nil)
	if len(errs2) != 0 {
		t.Fatalf("unexpected errors: %v", errs2)
	}
	if diff.Mode != Unchanged {
		t.Errorf("Mode = %v, want Unchanged", diff.Mode)
	}
	if len(diff.Entries) != 1 || diff.Entries[0].Classification != ClassUnchanged {
		t.Errorf("Entries = %+v, want one ClassUnchanged", diff.Entries)
	}
}

func TestPrepareScheduleForUpdate_AddedOnly(t *testing.T) {
	n := testNight(t)
	s := testSite()

	targets, errs := SetTargets([]string{m31Line}, n, s, nil)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	diff, errs2 := PrepareScheduleForUpdate(targets, []string{m31Line, vegaLine}, n.Sunset, n, s, nil)
	if len(errs2) != 0 {
		t.Fatalf("unexpected errors: %v", errs2)
	}
	if diff.Mode != AddedOnly {
		t.Errorf("Mode = %v, want AddedOnly", diff.Mode)
	}
	if len(diff.Targets) != 2 {
		t.Fatalf("got %d targets, want 2", len(diff.Targets))
	}
}

func TestPrepareScheduleForUpdate_DeletingWhenLineRemoved(t *testing.T) {
	n := testNight(t)
	s := testSite()

	targets, errs := SetTargets([]string{m31Line, vegaLine}, n, s, nil)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	diff, errs2 := PrepareScheduleForUpdate(targets, []string{m31Line}, n.Sunset, n, s, nil)
	if len(errs2) != 0 {
		t.Fatalf("unexpected errors: %v", errs2)
	}
	if diff.Mode != FullReplan {
		t.Errorf("Mode = %v, want FullReplan", diff.Mode)
	}
	if len(diff.Targets) != 1 {
		t.Fatalf("got %d targets, want 1 (vega dropped)", len(diff.Targets))
	}

	var sawDeleting bool
	for _, e := range diff.Entries {
		if e.Classification == ClassDeleting {
			sawDeleting = true
		}
	}
	if !sawDeleting {
		t.Error("expected a ClassDeleting entry for the dropped target")
	}
}

func TestPrepareScheduleForUpdate_ObservedSurvivesAsReinserting(t *testing.T) {
	n := testNight(t)
	s := testSite()

	targets, errs := SetTargets([]string{m31Line}, n, s, nil)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	targets[0].Observed = true
	targets[0].ObservedStart = n.Sunset + 0.01
	targets[0].ObservedEnd = n.Sunset + 0.02

	diff, errs2 := PrepareScheduleForUpdate(targets, nil, n.Sunset, n, s, nil)
	if len(errs2) != 0 {
		t.Fatalf("unexpected errors: %v", errs2)
	}
	if len(diff.Entries) != 1 || diff.Entries[0].Classification != ClassReinserting {
		t.Errorf("Entries = %+v, want one ClassReinserting", diff.Entries)
	}
	if len(diff.Targets) != 1 {
		t.Errorf("observed target dropped from result")
	}
}

func TestPrepareScheduleForUpdate_UpdatedWhenExposureChanges(t *testing.T) {
	n := testNight(t)
	s := testSite()

	targets, errs := SetTargets([]string{m31Line}, n, s, nil)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	changedLine := "M31 0 42 44.3 +41 16 9 2000 1200 andromeda 2.0 photometry wfc/imaging/groupA/block1"
	diff, errs2 := PrepareScheduleForUpdate(targets, []string{changedLine}, n.Sunset, n, s, nil)
	if len(errs2) != 0 {
		t.Fatalf("unexpected errors: %v", errs2)
	}
	if len(diff.Entries) != 1 || diff.Entries[0].Classification != ClassUpdated {
		t.Errorf("Entries = %+v, want one ClassUpdated", diff.Entries)
	}
	if diff.Targets[0].ExposureSeconds != 1200 {
		t.Errorf("ExposureSeconds = %v, want 1200 after update", diff.Targets[0].ExposureSeconds)
	}
}
