// Package night builds the immutable per-night astronomical context a
// schedule is computed against: sunset/sunrise, twilight bracketing,
// moonrise/moonset, and a uniform time grid with a cached moon ephemeris
// at each grid point.
package night

import (
	"math"
	"time"

	"github.com/kestrelsky/visplot/almanac"
	"github.com/kestrelsky/visplot/coord"
	"github.com/kestrelsky/visplot/eclipse"
	"github.com/kestrelsky/visplot/ephemeris"
	"github.com/kestrelsky/visplot/lunarnodes"
	"github.com/kestrelsky/visplot/timescale"
	"github.com/kestrelsky/visplot/visploterr"
)

// mjdEpochJD is the Julian date origin of the Modified Julian Date: MJD = JD - 2400000.5.
const mjdEpochJD = 2400000.5

// DefaultXstepMinutes is the grid resolution used when xstepMinutes <= 0 is passed to New.
const DefaultXstepMinutes = 1.0

// Night holds the immutable astronomical context for one night of
// observing at a fixed site. All timestamps are MJD (UTC).
type Night struct {
	Date           time.Time
	LatDeg, LonDeg float64

	Sunset, Sunrise float64

	EAstTwilight, MAstTwilight float64 // -18° (evening/morning)
	ENauTwilight, MNauTwilight float64 // -12°

	Moonrise, Moonset float64 // NaN if the event does not occur within the night's search window

	MoonIllumStart, MoonIllumMid, MoonIllumEnd float64

	// Xstep is the grid spacing in MJD days (typically 1 minute).
	Xstep float64
	// Xaxis is the uniformly spaced grid from Sunset to Sunrise, inclusive.
	Xaxis []float64

	// Per-grid-point caches, index-aligned with Xaxis — the amprms/aoprms
	// equivalent: everything a Target needs to convert its own RA/Dec to
	// refracted altitude at this instant, without recomputing the
	// site/time-dependent rotation chain per target.
	JDUT1   []float64 // UT1 Julian date at each grid point
	RAMoon  []float64 // apparent moon right ascension, radians
	DecMoon []float64 // apparent moon declination, radians
	YMoon   []float64 // refracted moon altitude, degrees

	// StlSunset is the local apparent sidereal time at sunset, degrees.
	StlSunset float64

	// LunarEclipseTonight is non-nil if a lunar eclipse's time of maximum
	// falls within this night's search window. Informational only.
	LunarEclipseTonight *eclipse.LunarEclipse

	// LunarNodeLongitudeDeg is the mean ascending lunar node's ecliptic
	// longitude at mid-night, degrees. Informational: proximity of the Sun
	// or full Moon to a node is what makes an eclipse possible, so this
	// accompanies LunarEclipseTonight as eclipse-season context even on
	// nights with no eclipse.
	LunarNodeLongitudeDeg float64
}

// New constructs the Night for the given site location and civil date.
// xstepMinutes <= 0 selects DefaultXstepMinutes.
//
// Fails with EphemerisError only if the site location itself is nonsensical
// (|latDeg| > 90, |lonDeg| > 180). Polar day/night — where twilight never
// reaches a given depth, or the sun never sets — is not an error: the
// affected fields saturate to Sunset/Sunrise (see degenerate-night handling
// below) and the scheduler treats the result as "no observing time".
func New(latDeg, lonDeg float64, civilDate time.Time, xstepMinutes float64) (*Night, error) {
	if math.Abs(latDeg) > 90 {
		return nil, visploterr.NewEphemerisError("site latitude out of range")
	}
	if math.Abs(lonDeg) > 180 {
		return nil, visploterr.NewEphemerisError("site longitude out of range")
	}
	if xstepMinutes <= 0 {
		xstepMinutes = DefaultXstepMinutes
	}

	// Search window: noon on civilDate to noon two days later (UTC),
	// expressed as a TDB-ish JD (TT and TDB differ by under 2ms, irrelevant
	// at bracketed-search tolerances).
	noon := time.Date(civilDate.Year(), civilDate.Month(), civilDate.Day(), 12, 0, 0, 0, time.UTC)
	startJD := timescale.TimeToJDUTC(noon)
	endJD := startJD + 2.0

	n := &Night{
		Date:   civilDate,
		LatDeg: latDeg,
		LonDeg: lonDeg,
		Xstep:  xstepMinutes / (24.0 * 60.0),
	}

	sunset, sunrise, err := firstSunsetSunrise(latDeg, lonDeg, startJD, endJD)
	if err != nil {
		return nil, err
	}
	n.Sunset = sunset - mjdEpochJD
	n.Sunrise = sunrise - mjdEpochJD

	// EAstTwilight/MAstTwilight bracket the -18° crossing: the transition
	// into (evening) or out of (morning) almanac.Night, the darkest regime.
	n.EAstTwilight, n.MAstTwilight = bracketTwilight(latDeg, lonDeg, sunset, sunrise, almanac.Night)
	// ENauTwilight/MNauTwilight bracket the -12° crossing: the transition
	// into/out of almanac.AstronomicalTwilight.
	n.ENauTwilight, n.MNauTwilight = bracketTwilight(latDeg, lonDeg, sunset, sunrise, almanac.AstronomicalTwilight)

	n.Moonrise, n.Moonset = math.NaN(), math.NaN()
	if risings, err := almanac.Risings(ephemeris.Moon, latDeg, lonDeg, startJD, endJD); err == nil {
		for _, r := range risings {
			if r.T >= sunset-0.5 && r.T <= sunrise+0.5 {
				n.Moonrise = r.T - mjdEpochJD
				break
			}
		}
	}
	if settings, err := almanac.Settings(ephemeris.Moon, latDeg, lonDeg, startJD, endJD); err == nil {
		for _, s := range settings {
			if s.T >= sunset-0.5 && s.T <= sunrise+0.5 {
				n.Moonset = s.T - mjdEpochJD
				break
			}
		}
	}

	wnight := sunrise - sunset
	nx := int(math.Round(wnight/n.Xstep)) + 1
	if nx < 2 {
		nx = 2
	}
	n.Xaxis = make([]float64, nx)
	n.JDUT1 = make([]float64, nx)
	n.RAMoon = make([]float64, nx)
	n.DecMoon = make([]float64, nx)
	n.YMoon = make([]float64, nx)

	for i := 0; i < nx; i++ {
		mjd := n.Sunset + float64(i)*n.Xstep
		jdTT := mjd + mjdEpochJD
		jdUT1 := timescale.TTToUT1(jdTT)

		n.Xaxis[i] = mjd
		n.JDUT1[i] = jdUT1

		ra, dec, _ := ephemeris.MoonGeocentric(jdTT)
		moonPos := ephemeris.MoonPositionKm(jdTT)
		alt, _, _ := coord.Altaz(moonPos, latDeg, lonDeg, jdUT1)
		refracted := alt
		if alt > -2.0 {
			rc := coord.Refco(10.0, 1013.25, 0.5, 0.0, 0.0065)
			zdRad := (90.0 - alt) * math.Pi / 180.0
			refracted = alt + coord.Refz(zdRad, rc)*180.0/math.Pi
		}
		n.RAMoon[i] = ra
		n.DecMoon[i] = dec
		n.YMoon[i] = refracted
	}

	n.MoonIllumStart = ephemeris.MoonIllumination(n.Sunset + mjdEpochJD)
	n.MoonIllumMid = ephemeris.MoonIllumination((n.Sunset+n.Sunrise)/2.0 + mjdEpochJD)
	n.MoonIllumEnd = ephemeris.MoonIllumination(n.Sunrise + mjdEpochJD)

	jdUT1Sunset := timescale.TTToUT1(sunset)
	n.StlSunset = math.Mod(coord.GAST(jdUT1Sunset)+lonDeg+360.0, 360.0)

	n.LunarNodeLongitudeDeg, _ = lunarnodes.MeanLunarNodes((n.Sunset + n.Sunrise) / 2.0 + mjdEpochJD)

	if eclipses, err := eclipse.FindLunarEclipses(startJD-15, endJD+15); err == nil {
		for i := range eclipses {
			if eclipses[i].T >= sunset-1 && eclipses[i].T <= sunrise+1 {
				n.LunarEclipseTonight = &eclipses[i]
				break
			}
		}
	}

	return n, nil
}

// firstSunsetSunrise returns the first sunset/sunrise pair at or after
// startJD within [startJD, endJD].
func firstSunsetSunrise(latDeg, lonDeg, startJD, endJD float64) (sunset, sunrise float64, err error) {
	events, err := almanac.SunriseSunset(latDeg, lonDeg, startJD, endJD)
	if err != nil {
		return 0, 0, err
	}
	if len(events) == 0 {
		// Polar day or polar night: no rise/set transition in the window.
		// Degenerate night: treat as a zero-width window starting at noon.
		return startJD, startJD, nil
	}
	for i, e := range events {
		if e.NewValue == 0 { // sunset
			for j := i + 1; j < len(events); j++ {
				if events[j].NewValue == 1 { // next sunrise
					return e.T, events[j].T, nil
				}
			}
		}
	}
	// No full sunset→sunrise pair found in the window: degenerate night.
	return events[0].T, events[0].T, nil
}

// bracketTwilight returns the evening and morning time, within
// [sunset, sunrise], at which the sun crosses the boundary between level
// and the next-brighter regime level+1 (evening: sun descending into
// level, so the transition's NewValue is level; morning: sun ascending out
// of level into level+1, so the transition's NewValue is level+1 —
// search.DiscreteEvent.NewValue always records the value *after* the
// crossing). If the boundary is never reached (high-latitude summer), both
// values saturate to sunset/sunrise respectively, per the Night
// degenerate-case contract.
func bracketTwilight(latDeg, lonDeg, sunset, sunrise float64, level int) (evening, morning float64) {
	events, err := almanac.Twilight(latDeg, lonDeg, sunset-0.25, sunrise+0.25)
	if err != nil {
		return sunset - mjdEpochJD, sunrise - mjdEpochJD
	}
	evening, morning = sunset-mjdEpochJD, sunrise-mjdEpochJD
	midpoint := (sunset + sunrise) / 2.0
	morningLevel := level + 1
	bestEvening, bestMorning := math.Inf(-1), math.Inf(1)
	for _, e := range events {
		if e.T > midpoint {
			continue
		}
		if e.NewValue == level && e.T > bestEvening {
			bestEvening = e.T
		}
	}
	for _, e := range events {
		if e.T <= midpoint {
			continue
		}
		if e.NewValue == morningLevel && e.T < bestMorning {
			bestMorning = e.T
		}
	}
	if !math.IsInf(bestEvening, -1) {
		evening = bestEvening - mjdEpochJD
	}
	if !math.IsInf(bestMorning, 1) {
		morning = bestMorning - mjdEpochJD
	}
	return evening, morning
}

// MJDToJD converts a Modified Julian Date to a Julian Date.
func MJDToJD(mjd float64) float64 { return mjd + mjdEpochJD }

// JDToMJD converts a Julian Date to a Modified Julian Date.
func JDToMJD(jd float64) float64 { return jd - mjdEpochJD }
