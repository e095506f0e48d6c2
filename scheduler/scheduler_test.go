package scheduler

import (
	"math"
	"testing"
	"time"

	"github.com/kestrelsky/visplot/night"
	"github.com/kestrelsky/visplot/site"
	"github.com/kestrelsky/visplot/target"
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

// circumpolarTarget builds a target near the celestial pole at this
// latitude so it stays observable the whole night, with a short exposure
// so many of them can be packed in without contending for the same slot.
func circumpolarTarget(t *testing.T, n *night.Night, s *site.Site, name string, raHours float64) *target.Target {
	t.Helper()
	tg := target.NewSidereal(name, "", "", raHours, 89.0, 2000, 0, 0, 0, 0)
	tg.SetExposure(600, n.Xstep)
	tg.Project = name
	if err := tg.PreCompute(n, s, nil); err != nil {
		t.Fatalf("PreCompute(%s): %v", name, err)
	}
	return tg
}

func TestPlan_SchedulesDistinctNonOverlappingSlots(t *testing.T) {
	n := testNight(t)
	s := testSite()

	targets := []*target.Target{
		circumpolarTarget(t, n, s, "A", 1.0),
		circumpolarTarget(t, n, s, "B", 7.0),
		circumpolarTarget(t, n, s, "C", 13.0),
	}

	Plan(targets, n, InOrderOfSetting)

	var scheduled []*target.Target
	for _, tg := range targets {
		if tg.Scheduled {
			scheduled = append(scheduled, tg)
		}
	}
	if len(scheduled) != len(targets) {
		t.Fatalf("scheduled %d of %d always-observable targets", len(scheduled), len(targets))
	}

	for i := 0; i < len(scheduled); i++ {
		for j := i + 1; j < len(scheduled); j++ {
			a, b := scheduled[i], scheduled[j]
			if a.ScheduledStart < b.ScheduledEnd && b.ScheduledStart < a.ScheduledEnd {
				t.Errorf("%s and %s overlap: [%v,%v) vs [%v,%v)",
					a.Name, b.Name, a.ScheduledStart, a.ScheduledEnd, b.ScheduledStart, b.ScheduledEnd)
			}
		}
	}
}

func TestPlan_ReorderDisplayIsAscendingByStart(t *testing.T) {
	n := testNight(t)
	s := testSite()

	targets := []*target.Target{
		circumpolarTarget(t, n, s, "A", 1.0),
		circumpolarTarget(t, n, s, "B", 7.0),
		circumpolarTarget(t, n, s, "C", 13.0),
	}
	Plan(targets, n, InOrderOfSetting)

	lastStart := -1e18
	sawUnscheduled := false
	for _, tg := range targets {
		if tg.Scheduled {
			if sawUnscheduled {
				t.Fatalf("scheduled target %s appears after an unscheduled one", tg.Name)
			}
			if tg.ScheduledStart < lastStart {
				t.Fatalf("display order not ascending by start at %s", tg.Name)
			}
			lastStart = tg.ScheduledStart
		} else {
			sawUnscheduled = true
		}
	}
}

func TestPlan_ObservedTargetIsPinned(t *testing.T) {
	n := testNight(t)
	s := testSite()

	observed := circumpolarTarget(t, n, s, "Observed", 1.0)
	observed.Observed = true
	observed.ObservedStart = n.Sunset + 0.01
	observed.ObservedEnd = n.Sunset + 0.02

	other := circumpolarTarget(t, n, s, "Other", 7.0)

	targets := []*target.Target{observed, other}
	Plan(targets, n, InOrderOfSetting)

	if observed.ScheduledStart != observed.ObservedStart || observed.ScheduledEnd != observed.ObservedEnd {
		t.Errorf("observed target's slot moved: got [%v,%v)", observed.ScheduledStart, observed.ScheduledEnd)
	}
}

func TestPlan_FillSlotOccupiesItsWindow(t *testing.T) {
	n := testNight(t)
	s := testSite()

	fill := circumpolarTarget(t, n, s, "Fill", 1.0)
	fill.FillSlot = true
	fill.RestrictionMinUT = n.Sunset
	fill.RestrictionMaxUT = n.Sunset + 0.1

	Plan([]*target.Target{fill}, n, InOrderOfSetting)

	if fill.ScheduledStart != n.Sunset || fill.ScheduledEnd != n.Sunset+0.1 {
		t.Errorf("fill-slot target not placed at its restriction window: got [%v,%v)",
			fill.ScheduledStart, fill.ScheduledEnd)
	}
}

func TestCanScheduleAt_RejectsOverlap(t *testing.T) {
	n := testNight(t)
	s := testSite()

	a := circumpolarTarget(t, n, s, "A", 1.0)
	a.Scheduled = true
	a.ScheduledStart = n.Sunset
	a.ScheduledEnd = n.Sunset + 600.0/86400.0

	b := circumpolarTarget(t, n, s, "B", 7.0)
	if canScheduleAt([]*target.Target{a, b}, b, n.Sunset) {
		t.Error("canScheduleAt allowed an overlapping slot")
	}
	if !canScheduleAt([]*target.Target{a, b}, b, a.ScheduledEnd) {
		t.Error("canScheduleAt rejected a non-overlapping, allowed slot")
	}
}

func TestGreedyPlace_IsMonotone(t *testing.T) {
	n := testNight(t)
	s := testSite()

	targets := []*target.Target{
		circumpolarTarget(t, n, s, "A", 1.0),
		circumpolarTarget(t, n, s, "B", 2.0),
		circumpolarTarget(t, n, s, "C", 3.0),
	}
	greedyPlace(targets, targets, n.Sunset, n.Xstep)

	for _, tg := range targets {
		if !tg.Scheduled {
			t.Errorf("%s not scheduled by greedyPlace despite being always observable", tg.Name)
			continue
		}
		if tg.ScheduledStart < n.Sunset {
			t.Errorf("%s scheduled before the starting cursor", tg.Name)
		}
	}
}

func TestComputeStats_AccountsForScheduledAndOfflineTime(t *testing.T) {
	n := testNight(t)
	s := testSite()

	a := circumpolarTarget(t, n, s, "A", 1.0)
	a.Project = "proj-a"
	Plan([]*target.Target{a}, n, InOrderOfSetting)

	offline := [][2]float64{{n.EAstTwilight, n.EAstTwilight + 0.05}}
	stats := ComputeStats([]*target.Target{a}, n, offline)

	if stats.ScheduledSec <= 0 {
		t.Error("ScheduledSec should be positive once a target is scheduled")
	}
	if stats.OfflineLostSec <= 0 {
		t.Error("OfflineLostSec should be positive given an offline interval inside the night")
	}
	if stats.NightLengthSec <= 0 {
		t.Error("NightLengthSec should be positive")
	}
	if stats.DarkTimeSec <= 0 {
		t.Error("DarkTimeSec should be positive")
	}
	if stats.NightLengthSec <= stats.DarkTimeSec {
		t.Errorf("NightLengthSec (%v, Sunset->Sunrise) should exceed DarkTimeSec (%v, EAstTwilight->MAstTwilight)",
			stats.NightLengthSec, stats.DarkTimeSec)
	}
	if len(stats.PerProjectSec) != 1 || stats.PerProjectSec[0].Project != "proj-a" {
		t.Errorf("PerProjectSec = %+v, want one row for proj-a", stats.PerProjectSec)
	}
}

func TestComputeStats_OfflineNearSunsetCountsOutsideDarkWindow(t *testing.T) {
	n := testNight(t)

	// An offline interval between Sunset and EAstTwilight falls outside the
	// dark-time window but must still count against [Sunset, Sunrise].
	offline := [][2]float64{{n.Sunset, n.EAstTwilight}}
	stats := ComputeStats(nil, n, offline)

	wantSec := (n.EAstTwilight - n.Sunset) * 86400.0
	if math.Abs(stats.OfflineLostSec-wantSec) > 1.0 {
		t.Errorf("OfflineLostSec = %v, want %v (clipped to Sunset->Sunrise, not EAstTwilight->MAstTwilight)",
			stats.OfflineLostSec, wantSec)
	}
}
