// Package targetlist owns the list of targets for a night: building it
// from input text, appending to it, and diffing a freshly re-read input
// batch against the targets already in play so an in-progress session can
// be updated without discarding what it already knows (an observed
// target's pinned slot, in particular).
package targetlist

import (
	"github.com/kestrelsky/visplot/input"
	"github.com/kestrelsky/visplot/night"
	"github.com/kestrelsky/visplot/site"
	"github.com/kestrelsky/visplot/target"
)

// ReplanMode tells the caller which scheduler entry point to re-invoke
// after a diff.
type ReplanMode string

const (
	// Unchanged means nothing needs to be rescheduled.
	Unchanged ReplanMode = "unchanged"
	// MidnightReplan means an in-night replan starting at now is enough.
	MidnightReplan ReplanMode = "midnight-replan"
	// FullReplan means a full replan from Sunset is required.
	FullReplan ReplanMode = "full-replan"
	// AddedOnly means only brand new targets need precomputation before a
	// full replan; nothing already scheduled changed identity or content.
	AddedOnly ReplanMode = "added-only"
)

// Classification is how one old target compared against the new input.
type Classification int

const (
	ClassUnchanged Classification = iota
	ClassUpdated
	ClassReinserting
	ClassDeleting
	ClassAdding
)

func (c Classification) String() string {
	switch c {
	case ClassUpdated:
		return "updated"
	case ClassReinserting:
		return "reinserting"
	case ClassDeleting:
		return "deleting"
	case ClassAdding:
		return "adding"
	default:
		return "unchanged"
	}
}

// Entry pairs a target with how it was classified by the most recent diff.
type Entry struct {
	Target         *target.Target
	Classification Classification
}

// Diff is the outcome of PrepareScheduleForUpdate.
type Diff struct {
	Targets []*target.Target // the new full target list, in display order
	Entries []Entry
	Mode    ReplanMode
}

// SetTargets parses lines and builds a fresh target list, preComputing
// every target against n/s/offline and returning one error per malformed
// or infeasible-to-construct line (construction itself never fails for a
// well-formed sidereal line; PreCompute errors are astronomical domain
// errors, e.g. an impossible MaxAirmass).
func SetTargets(lines []string, n *night.Night, s *site.Site, offline [][2]float64) ([]*target.Target, []error) {
	res := input.Parse(lines)
	errs := append([]error(nil), res.Errors...)

	targets := make([]*target.Target, 0, len(res.Records))
	for _, r := range res.Records {
		tg := buildAndPreCompute(r, n, s, offline, &errs)
		if tg != nil {
			targets = append(targets, tg)
		}
	}
	return targets, errs
}

// AddTargets parses extraLines and appends newly constructed targets to
// existing without disturbing any of them.
func AddTargets(existing []*target.Target, extraLines []string, n *night.Night, s *site.Site, offline [][2]float64) ([]*target.Target, []error) {
	res := input.Parse(extraLines)
	errs := append([]error(nil), res.Errors...)

	out := append([]*target.Target(nil), existing...)
	for _, r := range res.Records {
		tg := buildAndPreCompute(r, n, s, offline, &errs)
		if tg != nil {
			out = append(out, tg)
		}
	}
	return out, errs
}

func buildAndPreCompute(r input.Record, n *night.Night, s *site.Site, offline [][2]float64, errs *[]error) *target.Target {
	tg := input.NewTarget(r)
	tg.SetExposure(tg.ExposureSeconds, n.Xstep)
	input.ResolveWindow(tg, r, n.Sunset)
	if err := tg.PreCompute(n, s, offline); err != nil {
		*errs = append(*errs, err)
		return nil
	}
	return tg
}

// identityMatch reports whether a candidate new record is the same catalog
// object as an existing target: same name, RA/Dec within half an
// arcsecond, same epoch. This is the "Name RA Dec Epoch prefix" match of
// §4.6 ("Updated" classification).
func identityMatch(tg *target.Target, r input.Record) bool {
	const eps = 0.5 / 3600.0 // degrees
	if tg.Name != r.Name || tg.Epoch != r.Epoch {
		return false
	}
	raDegDelta := (tg.RARad*180.0/3.141592653589793 - r.RAHours*15.0)
	if raDegDelta < 0 {
		raDegDelta = -raDegDelta
	}
	decDegDelta := tg.DecRad*180.0/3.141592653589793 - r.DecDeg
	if decDegDelta < 0 {
		decDegDelta = -decDegDelta
	}
	return raDegDelta < eps && decDegDelta < eps
}

// PrepareScheduleForUpdate diffs a freshly re-read input batch against the
// targets already in play (per §4.6) and decides which replan mode the
// caller should invoke. nowMJD is the current wall-clock time, used to
// decide between "midnight-replan" and "full-replan"; pass n.Sunset if the
// session is not yet in-progress (never yields "midnight-replan" in that
// case, since nowMJD == Sunset is outside the open interval).
func PrepareScheduleForUpdate(oldTargets []*target.Target, newLines []string, nowMJD float64, n *night.Night, s *site.Site, offline [][2]float64) (Diff, []error) {
	res := input.Parse(newLines)
	errs := append([]error(nil), res.Errors...)

	pool := append([]input.Record(nil), res.Records...)
	used := make([]bool, len(pool))

	var entries []Entry
	var result []*target.Target

	for _, tg := range oldTargets {
		fullOld := input.Format(tg)

		matchedExact := -1
		matchedIdentity := -1
		for i, r := range pool {
			if used[i] {
				continue
			}
			if input.Format(input.NewTarget(r)) == fullOld {
				matchedExact = i
				break
			}
			if matchedIdentity < 0 && identityMatch(tg, r) {
				matchedIdentity = i
			}
		}

		switch {
		case matchedExact >= 0:
			used[matchedExact] = true
			entries = append(entries, Entry{Target: tg, Classification: ClassUnchanged})
			result = append(result, tg)
		case matchedIdentity >= 0:
			used[matchedIdentity] = true
			r := pool[matchedIdentity]
			updated := input.NewTarget(r)
			updated.SetExposure(r.ExposureSeconds, n.Xstep)
			input.ResolveWindow(updated, r, n.Sunset)
			tg.Update(updated)
			if err := tg.PreCompute(n, s, offline); err != nil {
				errs = append(errs, err)
			}
			entries = append(entries, Entry{Target: tg, Classification: ClassUpdated})
			result = append(result, tg)
		case tg.Observed:
			entries = append(entries, Entry{Target: tg, Classification: ClassReinserting})
			result = append(result, tg)
		default:
			entries = append(entries, Entry{Target: tg, Classification: ClassDeleting})
		}
	}

	var added []*target.Target
	for i, r := range pool {
		if used[i] {
			continue
		}
		tg := buildAndPreCompute(r, n, s, offline, &errs)
		if tg == nil {
			continue
		}
		entries = append(entries, Entry{Target: tg, Classification: ClassAdding})
		result = append(result, tg)
		added = append(added, tg)
	}

	mode := decideReplanMode(entries, nowMJD, n)
	return Diff{Targets: result, Entries: entries, Mode: mode}, errs
}

func decideReplanMode(entries []Entry, nowMJD float64, n *night.Night) ReplanMode {
	var sawUpdated, sawDeleting, sawReinserting, sawAdding bool
	for _, e := range entries {
		switch e.Classification {
		case ClassUpdated:
			sawUpdated = true
		case ClassDeleting:
			sawDeleting = true
		case ClassReinserting:
			sawReinserting = true
		case ClassAdding:
			sawAdding = true
		}
	}

	if !sawUpdated && !sawDeleting && !sawReinserting && !sawAdding {
		return Unchanged
	}
	if sawAdding && !sawUpdated && !sawDeleting && !sawReinserting {
		return AddedOnly
	}
	if nowMJD > n.Sunset && nowMJD < n.Sunrise {
		return MidnightReplan
	}
	return FullReplan
}
