// Package timescale converts between the time scales used by the
// astrometric pipeline: civil UTC, TAI, TT, UT1 and TDB. Every routine
// takes and returns explicit Julian Date values; there is no global or
// hidden clock state.
package timescale

import (
	"math"
	"time"
)

// SecPerDay is the number of SI seconds in a day.
const SecPerDay = 86400.0

// j2000JD is the Julian Date of the J2000.0 epoch (2000-01-01 12:00 TT).
const j2000JD = 2451545.0

// unixEpochJD is the Julian Date of the Unix epoch (1970-01-01 00:00 UTC).
const unixEpochJD = 2440587.5

// leapSecondEntry is one row of the TAI-UTC table: the JD (0h UTC) at
// which the given offset took effect.
type leapSecondEntry struct {
	jd     float64
	offset float64
}

// leapSeconds is the historical table of TAI-UTC offsets, current through
// the 2017-01-01 insertion (the last leap second as of writing). Dates
// before the first entry return the initial 10s offset; dates after the
// last entry return the latest known offset.
var leapSeconds = []leapSecondEntry{
	{2441317.5, 10}, // 1972-01-01
	{2441499.5, 11}, // 1972-07-01
	{2441683.5, 12}, // 1973-01-01
	{2442048.5, 13}, // 1974-01-01
	{2442413.5, 14}, // 1975-01-01
	{2442778.5, 15}, // 1976-01-01
	{2443144.5, 16}, // 1977-01-01
	{2443509.5, 17}, // 1978-01-01
	{2443874.5, 18}, // 1979-01-01
	{2444239.5, 19}, // 1980-01-01
	{2444786.5, 20}, // 1981-07-01
	{2445151.5, 21}, // 1982-07-01
	{2445516.5, 22}, // 1983-07-01
	{2446247.5, 23}, // 1985-07-01
	{2447161.5, 24}, // 1988-01-01
	{2447892.5, 25}, // 1990-01-01
	{2448257.5, 26}, // 1991-01-01
	{2448804.5, 27}, // 1992-07-01
	{2449169.5, 28}, // 1993-07-01
	{2449534.5, 29}, // 1994-07-01
	{2450083.5, 30}, // 1996-01-01
	{2450630.5, 31}, // 1997-07-01
	{2451179.5, 32}, // 1999-01-01
	{2453736.5, 33}, // 2006-01-01
	{2454832.5, 34}, // 2009-01-01
	{2456109.5, 35}, // 2012-07-01
	{2457204.5, 36}, // 2015-07-01
	{2457754.5, 37}, // 2017-01-01
}

// LeapSecondOffset returns TAI-UTC, in seconds, effective at the given
// UTC Julian Date. Dates before 1972-01-01 return the initial 10s
// offset; dates after the last known insertion return that offset
// (callers needing a newer table should override at the configuration
// boundary, per spec — this is the "small configurable constant"
// referred to for ΔUT1, not re-derived here for ΔAT since ΔAT only ever
// steps, never drifts continuously).
func LeapSecondOffset(jdUTC float64) float64 {
	if jdUTC < leapSeconds[0].jd {
		return leapSeconds[0].offset
	}
	offset := leapSeconds[0].offset
	for _, e := range leapSeconds {
		if jdUTC < e.jd {
			break
		}
		offset = e.offset
	}
	return offset
}

// deltaTAnchorYear and deltaTAnchor fix DeltaT's quadratic model to
// the historical value at 1800.0; deltaTK is chosen so the curve also
// passes through the well-known 2000.0 value of 63.829s.
const (
	deltaTMinYear    = 1800.0
	deltaTMaxYear    = 2200.0
	deltaTAnchorYear = 1800.0
	deltaTAnchor     = 18.3670
	deltaTK          = 0.00113655
)

// DeltaT returns the historical estimate of ΔT = TT − UT1, in seconds,
// for the given decimal year. The model is a single quadratic anchored
// at 1800.0 (18.3670s) and 2000.0 (63.829s), clamped to [1800, 2200]:
// outside that range the nearest boundary value is returned rather than
// extrapolated, since the nightly scheduler never operates on historical
// or far-future epochs.
func DeltaT(year float64) float64 {
	y := year
	if y < deltaTMinYear {
		y = deltaTMinYear
	} else if y > deltaTMaxYear {
		y = deltaTMaxYear
	}
	d := y - deltaTAnchorYear
	return deltaTAnchor + deltaTK*d*d
}

// TimeToJDUTC converts a wall-clock UTC time.Time to a UTC Julian Date.
func TimeToJDUTC(t time.Time) float64 {
	t = t.UTC()
	unixSec := float64(t.Unix()) + float64(t.Nanosecond())/1e9
	return unixEpochJD + unixSec/SecPerDay
}

// UTCToTT converts a UTC Julian Date to Terrestrial Time:
// TT = UTC + ΔAT + 32.184s.
func UTCToTT(jdUTC float64) float64 {
	offset := LeapSecondOffset(jdUTC)
	return jdUTC + (offset+32.184)/SecPerDay
}

// TTToUT1 converts a TT Julian Date to UT1: UT1 = TT − ΔT.
func TTToUT1(jdTT float64) float64 {
	year := 2000.0 + (jdTT-j2000JD)/365.25
	dt := DeltaT(year)
	return jdTT - dt/SecPerDay
}

// TDBMinusTT returns the periodic TDB−TT correction, in seconds, for the
// given TT Julian Date. Amplitude is under 2ms; uses the standard
// truncated Fairhead-Bretagnon term (Earth's orbital eccentricity only).
func TDBMinusTT(jdTT float64) float64 {
	d := jdTT - j2000JD
	gDeg := 357.53 + 0.9856003*d
	g := gDeg * math.Pi / 180.0
	return 0.001658 * math.Sin(g+0.0167*math.Sin(g))
}
