// Package scheduler assigns each schedulable target a contiguous start/end
// slot within a Night: a greedy placement pass in a chosen target order,
// followed by two local optimizations (rightward shift for rising targets,
// adjacent interchange), plus the incremental entry points used for
// drag-drop reordering and in-night replanning.
package scheduler

import (
	"math"
	"sort"

	"github.com/kestrelsky/visplot/night"
	"github.com/kestrelsky/visplot/target"
)

// OrderStrategy selects how the greedy pass orders schedulable targets
// before placement.
type OrderStrategy int

const (
	// InOriginalOrder preserves the caller's target order.
	InOriginalOrder OrderStrategy = iota
	// InOrderOfSetting sorts by ascending LastPossibleTime, the order
	// that lets opt-A's rightward shift do the most good afterward.
	InOrderOfSetting
)

// Plan clears any prior (non-observed) schedule and re-plans from scratch,
// starting at Night.Sunset: fill-slot targets first, then a greedy pass in
// the given order, then opt-A and opt-B.
func Plan(targets []*target.Target, n *night.Night, strategy OrderStrategy) {
	resetNonObserved(targets)
	pinObserved(targets)
	placeFillSlots(targets)

	order := buildOrder(targets, strategy)
	greedyPlace(targets, order, n.Sunset, n.Xstep)

	optA(targets, n)
	optB(targets, n)

	reorderDisplay(targets)
	populateMetadata(targets, n)
}

// UpdateSchedule performs an in-night partial replan: observed targets stay
// pinned, the rest are re-queued in the given order starting at startingAt
// (typically "now", clipped into the night), with no optimization pass —
// an in-night update should not reshuffle targets the user already expects
// to see at their current times.
func UpdateSchedule(targets []*target.Target, n *night.Night, startingAt float64, strategy OrderStrategy) {
	resetNonObserved(targets)
	pinObserved(targets)
	placeFillSlots(targets)

	order := buildOrder(targets, strategy)
	greedyPlace(targets, order, clip(startingAt, n.Sunset, n.Sunrise), n.Xstep)

	reorderDisplay(targets)
	populateMetadata(targets, n)
}

// ScheduleAndOptimizeGivenOrder implements a drag-drop reorder: it clears
// non-observed assignments, places fill-slots, walks userOrder placing each
// target at the earliest available time, then applies only opt-A (no
// cross-target swaps, since the user's order is itself the intent).
func ScheduleAndOptimizeGivenOrder(targets []*target.Target, n *night.Night, userOrder []*target.Target) {
	resetNonObserved(targets)
	pinObserved(targets)
	placeFillSlots(targets)

	greedyPlace(targets, userOrder, n.Sunset, n.Xstep)
	optA(targets, n)

	reorderDisplay(targets)
	populateMetadata(targets, n)
}

func clip(mjd, lo, hi float64) float64 {
	if mjd < lo {
		return lo
	}
	if mjd > hi {
		return hi
	}
	return mjd
}

func resetNonObserved(targets []*target.Target) {
	for _, tg := range targets {
		if !tg.Observed {
			tg.Scheduled = false
		}
	}
}

// pinObserved enforces S4: an observed target's slot is its recorded
// (observedStart, observedEnd), overriding every feasibility check.
func pinObserved(targets []*target.Target) {
	for _, tg := range targets {
		if !tg.Observed {
			continue
		}
		tg.Scheduled = true
		tg.ScheduledStart = tg.ObservedStart
		tg.ScheduledEnd = tg.ObservedEnd
		tg.ScheduledMid = (tg.ObservedStart + tg.ObservedEnd) / 2.0
	}
}

// placeFillSlots enforces S5: a fill-slot target occupies its entire
// restriction window and is unmovable thereafter.
func placeFillSlots(targets []*target.Target) {
	for _, tg := range targets {
		if tg.Observed || !tg.FillSlot || !tg.ObservableTonight {
			continue
		}
		tg.Scheduled = true
		tg.ScheduledStart = tg.RestrictionMinUT
		tg.ScheduledEnd = tg.RestrictionMaxUT
		tg.ScheduledMid = (tg.RestrictionMinUT + tg.RestrictionMaxUT) / 2.0
	}
}

// buildOrder selects the targets still eligible for greedy placement
// (schedulable, not fill-slot, not already pinned by observation) and
// orders them per strategy.
func buildOrder(targets []*target.Target, strategy OrderStrategy) []*target.Target {
	var order []*target.Target
	for _, tg := range targets {
		if tg.Observed || tg.FillSlot || !tg.ObservableTonight {
			continue
		}
		order = append(order, tg)
	}
	if strategy == InOrderOfSetting {
		sort.SliceStable(order, func(i, j int) bool {
			return order[i].LastPossibleTime < order[j].LastPossibleTime
		})
	}
	return order
}

// greedyPlace walks order in a single monotone left-to-right pass: the
// queue pointer qi and the time cursor both only ever advance, never
// restart from the beginning (DESIGN.md Open Question #2).
func greedyPlace(allTargets, order []*target.Target, startingAt, xstepDays float64) {
	if len(order) == 0 {
		return
	}

	minFirst := math.Inf(1)
	maxLast := math.Inf(-1)
	for _, tg := range order {
		if tg.FirstPossibleTime < minFirst {
			minFirst = tg.FirstPossibleTime
		}
		if tg.LastPossibleTime > maxLast {
			maxLast = tg.LastPossibleTime
		}
	}
	cursor := math.Max(startingAt, minFirst)

	qi := 0
	for qi < len(order) && cursor < maxLast {
		placed := false
		for j := qi; j < len(order); j++ {
			tg := order[j]
			if tg.Scheduled {
				continue
			}
			if canScheduleAt(allTargets, tg, cursor) {
				assignSlot(tg, cursor)
				cursor = tg.ScheduledEnd
				placed = true
				break
			}
		}
		if !placed {
			cursor += xstepDays
		}
		for qi < len(order) && order[qi].Scheduled {
			qi++
		}
	}
}

func assignSlot(tg *target.Target, startMJD float64) {
	tg.Scheduled = true
	tg.ScheduledStart = startMJD
	tg.ScheduledEnd = startMJD + tg.ExposureGrid/86400.0
	tg.ScheduledMid = (tg.ScheduledStart + tg.ScheduledEnd) / 2.0
}

// canScheduleAt is the feasibility test of §4.5: no overlap with any other
// currently-scheduled target, and the candidate slot must lie entirely
// within one of tg's allowed intervals.
func canScheduleAt(allTargets []*target.Target, tg *target.Target, startMJD float64) bool {
	endMJD := startMJD + tg.ExposureGrid/86400.0
	for _, o := range allTargets {
		if o == tg || !o.Scheduled {
			continue
		}
		if startMJD < o.ScheduledEnd && o.ScheduledStart < endMJD {
			return false
		}
	}
	return withinAllowed(tg, startMJD, endMJD)
}

func withinAllowed(tg *target.Target, start, end float64) bool {
	for k := range tg.BeginAllowed {
		if tg.BeginAllowed[k] <= start && end <= tg.EndAllowed[k] {
			return true
		}
	}
	return false
}

// scheduledInOrder returns the currently-scheduled targets sorted by
// ascending ScheduledStart — the display order opt-A/opt-B both operate
// over.
func scheduledInOrder(targets []*target.Target) []*target.Target {
	var s []*target.Target
	for _, tg := range targets {
		if tg.Scheduled {
			s = append(s, tg)
		}
	}
	sort.SliceStable(s, func(i, j int) bool { return s[i].ScheduledStart < s[j].ScheduledStart })
	return s
}

// optA is the rightward shift for rising targets: walk the scheduled
// targets from last to first, and for each still-rising target search
// later candidate start times (at grid resolution, descending) for one
// with strictly higher mid-exposure altitude that still fits.
func optA(targets []*target.Target, n *night.Night) {
	scheduled := scheduledInOrder(targets)
	for i := len(scheduled) - 1; i >= 0; i-- {
		tg := scheduled[i]
		if tg.Observed || tg.FillSlot {
			continue
		}
		if !(tg.ZenithTime > tg.ScheduledStart) {
			continue
		}

		upperBound := n.Sunrise
		if i+1 < len(scheduled) {
			upperBound = math.Min(upperBound, scheduled[i+1].ScheduledStart)
		}
		upperBound = math.Min(upperBound, tg.LastPossibleTime)

		// A target shifted past the point symmetric to its zenith
		// crossing (relative to its current mid-exposure time) would
		// end up setting rather than still rising; stop there.
		symmetricBound := n.Sunset + math.Floor((2*tg.ZenithTime-tg.ScheduledMid-n.Sunset)/n.Xstep)*n.Xstep
		upperBound = math.Min(upperBound, symmetricBound)

		bestStart := tg.ScheduledStart
		bestAlt := altitudeAt(tg, n, tg.ScheduledMid)

		for cand := upperBound; cand > tg.ScheduledStart; cand -= n.Xstep {
			if !canScheduleAt(targets, tg, cand) {
				continue
			}
			candMid := cand + tg.ExposureGrid/86400.0/2.0
			alt := altitudeAt(tg, n, candMid)
			if alt > bestAlt {
				bestAlt = alt
				bestStart = cand
			}
		}

		if bestStart != tg.ScheduledStart {
			assignSlot(tg, bestStart)
		}
	}
}

// optB is the adjacent interchange: for each pair of neighboring
// (non-observed, non-fill-slot) scheduled targets, swap their slots when
// doing so strictly raises the mean altitude of whichever of the two is
// currently weaker.
func optB(targets []*target.Target, n *night.Night) {
	order := scheduledInOrder(targets)
	for i := 0; i+1 < len(order); i++ {
		a, b := order[i], order[i+1]
		if a.Observed || a.FillSlot || b.Observed || b.FillSlot {
			continue
		}

		amA := meanAltitude(a, n, a.ScheduledStart, a.ScheduledEnd)
		amB := meanAltitude(b, n, b.ScheduledStart, b.ScheduledEnd)

		bExpDays := b.ExposureGrid / 86400.0
		aExpDays := a.ExposureGrid / 86400.0
		newAStart := a.ScheduledStart + bExpDays
		newAEnd := newAStart + aExpDays
		newBStart := a.ScheduledStart
		newBEnd := newBStart + bExpDays

		if !canSwapFit(targets, a, b, newAStart, newAEnd, newBStart, newBEnd) {
			continue
		}

		amAPrime := meanAltitude(a, n, newAStart, newAEnd)
		amBPrime := meanAltitude(b, n, newBStart, newBEnd)

		before := math.Min(amA, amB)
		after := math.Min(amAPrime, amBPrime)
		if after > before {
			a.ScheduledStart, a.ScheduledEnd = newAStart, newAEnd
			a.ScheduledMid = (newAStart + newAEnd) / 2.0
			b.ScheduledStart, b.ScheduledEnd = newBStart, newBEnd
			b.ScheduledMid = (newBStart + newBEnd) / 2.0
			order[i], order[i+1] = b, a
		}
	}
}

func canSwapFit(all []*target.Target, a, b *target.Target, aStart, aEnd, bStart, bEnd float64) bool {
	if !withinAllowed(a, aStart, aEnd) || !withinAllowed(b, bStart, bEnd) {
		return false
	}
	for _, o := range all {
		if o == a || o == b || !o.Scheduled {
			continue
		}
		if aStart < o.ScheduledEnd && o.ScheduledStart < aEnd {
			return false
		}
		if bStart < o.ScheduledEnd && o.ScheduledStart < bEnd {
			return false
		}
	}
	return true
}

// reorderDisplay sorts targets in place by ascending ScheduledStart,
// scheduled before unscheduled, preserving the original relative order of
// unscheduled targets (stable sort).
func reorderDisplay(targets []*target.Target) {
	sort.SliceStable(targets, func(i, j int) bool {
		si, sj := targets[i].Scheduled, targets[j].Scheduled
		if si != sj {
			return si
		}
		if si {
			return targets[i].ScheduledStart < targets[j].ScheduledStart
		}
		return false
	})
}

func populateMetadata(targets []*target.Target, n *night.Night) {
	for _, tg := range targets {
		if !tg.Scheduled {
			continue
		}
		tg.IScheduledStart = indexAt(n, tg.ScheduledStart)
		tg.IScheduledMid = indexAt(n, tg.ScheduledMid)
		tg.IScheduledEnd = indexAt(n, tg.ScheduledEnd)
		tg.AltStartTime = altitudeAt(tg, n, tg.ScheduledStart)
		tg.AltMidTime = altitudeAt(tg, n, tg.ScheduledMid)
		tg.AltEndTime = altitudeAt(tg, n, tg.ScheduledEnd)
	}
}

func indexAt(n *night.Night, mjd float64) int {
	if len(n.Xaxis) == 0 {
		return 0
	}
	idx := int(math.Round((mjd - n.Xaxis[0]) / n.Xstep))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(n.Xaxis) {
		idx = len(n.Xaxis) - 1
	}
	return idx
}

func altitudeAt(tg *target.Target, n *night.Night, mjd float64) float64 {
	if len(tg.Graph) == 0 {
		return math.Inf(-1)
	}
	return tg.Graph[indexAt(n, mjd)]
}

func meanAltitude(tg *target.Target, n *night.Night, start, end float64) float64 {
	if len(tg.Graph) == 0 {
		return math.Inf(-1)
	}
	i0 := indexAt(n, start)
	i1 := indexAt(n, end)
	if i1 < i0 {
		i0, i1 = i1, i0
	}
	sum := 0.0
	count := 0
	for i := i0; i <= i1; i++ {
		sum += tg.Graph[i]
		count++
	}
	if count == 0 {
		return tg.Graph[i0]
	}
	return sum / float64(count)
}

// Stats summarizes one completed schedule, per §6's output contract.
type Stats struct {
	NightLengthSec float64 // Sunset -> Sunrise (ENT->MNT), the window every slot must lie within
	DarkTimeSec    float64 // EAstTwilight -> MAstTwilight (EAT->MAT), the darkest-sky window
	ScheduledSec   float64
	OfflineLostSec float64 // offline time clipped to [Sunset, Sunrise]
	FreeSec        float64
	PerProjectSec  []ProjectSec // sorted ascending by seconds
}

// ProjectSec is one row of the per-project exposure-time breakdown.
type ProjectSec struct {
	Project string
	Sec     float64
}

// ComputeStats derives the night-level and per-project statistics for a
// completed schedule.
func ComputeStats(targets []*target.Target, n *night.Night, offlineIntervals [][2]float64) Stats {
	nightLengthSec := (n.Sunrise - n.Sunset) * 86400.0
	if nightLengthSec < 0 {
		nightLengthSec = 0
	}
	darkTimeSec := (n.MAstTwilight - n.EAstTwilight) * 86400.0
	if darkTimeSec < 0 {
		darkTimeSec = 0
	}

	var scheduledSec float64
	perProject := map[string]float64{}
	for _, tg := range targets {
		if !tg.Scheduled {
			continue
		}
		dur := (tg.ScheduledEnd - tg.ScheduledStart) * 86400.0
		scheduledSec += dur
		perProject[tg.Project] += dur
	}

	var offlineLostSec float64
	for _, off := range offlineIntervals {
		lo := clip(off[0], n.Sunset, n.Sunrise)
		hi := clip(off[1], n.Sunset, n.Sunrise)
		if hi > lo {
			offlineLostSec += (hi - lo) * 86400.0
		}
	}

	freeSec := nightLengthSec - scheduledSec - offlineLostSec
	if freeSec < 0 {
		freeSec = 0
	}

	rows := make([]ProjectSec, 0, len(perProject))
	for p, sec := range perProject {
		rows = append(rows, ProjectSec{Project: p, Sec: sec})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Sec != rows[j].Sec {
			return rows[i].Sec < rows[j].Sec
		}
		return rows[i].Project < rows[j].Project
	})

	return Stats{
		NightLengthSec: nightLengthSec,
		DarkTimeSec:    darkTimeSec,
		ScheduledSec:   scheduledSec,
		OfflineLostSec: offlineLostSec,
		FreeSec:        freeSec,
		PerProjectSec:  rows,
	}
}
