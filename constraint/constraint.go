// Package constraint evaluates, at a single night grid point, whether a
// target may be observed: time window, altitude band, offline intervals,
// declination/hour-angle mount limits, and (for satellite targets) the
// sunlit gate. It is a pure function package with no knowledge of Target
// or Site's concrete types, to keep it free of an import cycle with the
// package that calls it.
package constraint

// Observable is the outcome of evaluating a target's constraints at one
// grid point. TubeEastOnly, TubeWestOnly, and BothModes only arise for
// over-the-axis equatorial mounts; all three still count as "schedulable",
// distinguished only for display purposes.
type Observable int

const (
	NotObservable Observable = iota
	Ok
	TubeEastOnly
	TubeWestOnly
	BothModes
)

func (o Observable) String() string {
	switch o {
	case Ok:
		return "ok"
	case TubeEastOnly:
		return "tube-east-only"
	case TubeWestOnly:
		return "tube-west-only"
	case BothModes:
		return "both-modes"
	default:
		return "not-observable"
	}
}

// Schedulable reports whether this Observable value permits scheduling
// (any of Ok, TubeEastOnly, TubeWestOnly, BothModes), as opposed to
// NotObservable.
func (o Observable) Schedulable() bool { return o != NotObservable }

// DecLimitKind selects which declination/hour-angle limit function Input
// applies, mirroring site.DecLimitKind without importing the site package.
type DecLimitKind string

const (
	DecLimitNone DecLimitKind = "none"
	DecLimitAlt  DecLimitKind = "alt"
	DecLimitHA   DecLimitKind = "ha"
)

// Input bundles everything Evaluate needs about one (target, grid point)
// pair. Callers (target.preCompute) assemble this from their own and the
// site's fields.
type Input struct {
	TMJD float64 // this grid point's time, MJD
	Alt  float64 // refracted altitude in degrees at this grid point

	RestrictionMinUT, RestrictionMaxUT float64 // target's allowed UTC window, MJD
	MinAirmassAlt                      float64 // altitude floor from the max-airmass constraint
	MaxAlt                              float64 // altitude ceiling (90, or 90-zenithAvoidance)

	OfflineIntervals [][2]float64 // [start,end] MJD pairs during which the site is offline

	DecLimitKind DecLimitKind
	MinAltAtDec  float64 // used when DecLimitKind == DecLimitAlt
	MinHA, MaxHA float64 // normal-pointing hour-angle window, hours, used when DecLimitKind == DecLimitHA
	OverAxis     bool
	ZenithTimeMJD float64 // used to derive hour angle for DecLimitHA

	IsSatellite bool
	Sunlit      bool // satellite sunlit-gate result; ignored unless IsSatellite
}

// Evaluate combines the five checks in the order the spec prescribes,
// returning NotObservable as soon as any required check fails.
func Evaluate(in Input) Observable {
	if in.TMJD < in.RestrictionMinUT || in.TMJD > in.RestrictionMaxUT {
		return NotObservable
	}
	if in.Alt < in.MinAirmassAlt || in.Alt > in.MaxAlt {
		return NotObservable
	}
	for _, off := range in.OfflineIntervals {
		if in.TMJD >= off[0] && in.TMJD <= off[1] {
			return NotObservable
		}
	}

	mode := Ok
	switch in.DecLimitKind {
	case DecLimitAlt:
		if in.Alt < in.MinAltAtDec {
			return NotObservable
		}
	case DecLimitHA:
		haHours := (in.TMJD - in.ZenithTimeMJD) * 24.0
		inNormal := haHours >= in.MinHA && haHours <= in.MaxHA
		if in.OverAxis {
			// The axis-crossed pointing is the mirror-image hour-angle
			// window reached by swinging the tube through the pole.
			crossedMin, crossedMax := -in.MaxHA, -in.MinHA
			inCrossed := haHours >= crossedMin && haHours <= crossedMax
			switch {
			case inNormal && inCrossed:
				mode = BothModes
			case inNormal:
				mode = TubeEastOnly
			case inCrossed:
				mode = TubeWestOnly
			default:
				return NotObservable
			}
		} else if !inNormal {
			return NotObservable
		}
	}

	if in.IsSatellite && !in.Sunlit {
		return NotObservable
	}

	return mode
}
