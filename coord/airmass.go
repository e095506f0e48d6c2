package coord

import (
	"math"

	"github.com/kestrelsky/visplot/visploterr"
)

// maxZenithDistanceDeg is the spec-mandated clamp: the Hardie polynomial
// is not evaluated past 87° zenith distance (3° altitude); airmass there
// saturates to its value at the clamp.
const maxZenithDistanceDeg = 87.0

// Airmass returns the relative atmospheric path length for the given
// apparent altitude in degrees, using the Hardie (1962) secant
// polynomial. Zenith distances beyond 87° are clamped to the airmass at
// 87°, per the spec's explicit clamp (the polynomial is not meaningful
// near the horizon).
func Airmass(altDeg float64) float64 {
	zd := 90.0 - altDeg
	if zd > maxZenithDistanceDeg {
		zd = maxZenithDistanceDeg
	}
	if zd < 0 {
		zd = 0
	}
	secZ := 1.0 / math.Cos(zd*deg2rad)
	x := secZ - 1.0
	return secZ - 0.0018167*x - 0.002875*x*x - 0.0008083*x*x*x
}

// AltitudeForAirmass inverts Airmass by bisection: returns the apparent
// altitude in degrees at which Airmass(alt) == maxAirmass. maxAirmass
// must be >= 1.0. Returns a ConvergenceError if 40 bisection steps do not
// bring the residual below 1e-6 airmass units.
func AltitudeForAirmass(maxAirmass float64) (float64, error) {
	if maxAirmass < 1.0 {
		return 0, visploterr.NewDomainError("AltitudeForAirmass", maxAirmass)
	}
	lo, hi := 90.0-maxZenithDistanceDeg, 90.0
	const tol = 1e-6
	for i := 0; i < 40; i++ {
		mid := 0.5 * (lo + hi)
		x := Airmass(mid)
		if math.Abs(x-maxAirmass) < tol {
			return mid, nil
		}
		// Airmass decreases monotonically as altitude increases.
		if x > maxAirmass {
			lo = mid
		} else {
			hi = mid
		}
	}
	return 0, visploterr.NewConvergenceError("AltitudeForAirmass", 40, tol)
}

// RefractionConstants holds the two-term refraction model's coefficients
// (the slalib refco contract): Δζ = A·tanζ + B·tan³ζ, in radians.
type RefractionConstants struct {
	A, B float64
}

// Refco computes the refraction constants for the given site and
// atmospheric conditions, following the standard Saemundsson/Stone
// approximation used by slalib's refco for optical wavelengths.
//
//   - tempC: ambient temperature, Celsius
//   - pressureMbar: ambient pressure, millibars
//   - relHumidity: relative humidity, 0..1
//   - heightM: site altitude above sea level, metres
//   - lapseRateKPerM: tropospheric lapse rate, Kelvin per metre (~0.0065)
func Refco(tempC, pressureMbar, relHumidity, heightM, lapseRateKPerM float64) RefractionConstants {
	tk := tempC + 273.15

	// Water vapour partial pressure (millibars), Magnus-Tetens.
	pw := relHumidity * 6.1078 * math.Exp(17.269*tempC/(tempC+237.3))

	// Visible-light refractivity coefficient, corrected for the site's
	// pressure, temperature and humidity (standard optical refco form;
	// the water-vapour term is small and subtractive).
	a := 4.5908e-6*pressureMbar/tk - 0.00000011*pw/tk

	// Troposphere lapse rate lowers the effective scale height, which
	// the B term accounts for as a small fraction of A; heightM shifts
	// the effective temperature profile the lapse rate is applied over.
	b := -a * (lapseRateKPerM*heightM/tk - 1.0/6.0)

	return RefractionConstants{A: a, B: b}
}

// Refro returns the refraction correction, in radians, for a true
// (unrefracted) zenith distance. It iterates the two-term model
// Δζ = A·tanζ + B·tan³ζ, evaluated at the apparent zenith distance ζ − Δζ,
// until successive corrections agree to within 1e-9 radians, and returns a
// ConvergenceError after 25 iterations (a DomainError for a NaN input).
// No integral through atmospheric layers is computed.
func Refro(zdTrueRad float64, rc RefractionConstants) (float64, error) {
	if math.IsNaN(zdTrueRad) {
		return 0, visploterr.NewDomainError("Refro", zdTrueRad)
	}
	tz := math.Tan(zdTrueRad)
	const maxIter = 25
	const tol = 1e-9
	dz := rc.A*tz + rc.B*tz*tz*tz
	for i := 0; i < maxIter; i++ {
		zApparent := zdTrueRad - dz
		tza := math.Tan(zApparent)
		next := rc.A*tza + rc.B*tza*tza*tza
		if math.Abs(next-dz) < tol {
			return next, nil
		}
		dz = next
	}
	return 0, visploterr.NewConvergenceError("Refro", maxIter, tol)
}

// Refz applies a refraction-constants pair directly to a zenith
// distance, without Refro's iteration: Δζ = A·tanζ + B·tan³ζ. night.New
// uses it for the refracted Moon altitude at each grid point.
func Refz(zdRad float64, rc RefractionConstants) float64 {
	t := math.Tan(zdRad)
	return rc.A*t + rc.B*t*t*t
}
