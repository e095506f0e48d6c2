package ephemeris

import "math"

// EclipticToEquatorial rotates a J2000 mean-ecliptic Cartesian vector into
// the J2000 mean-equatorial frame, by the mean obliquity of the ecliptic.
// PlanetHeliocentric returns vectors in the ecliptic frame; SunPositionKm
// and MoonPositionKm are already equatorial.
func EclipticToEquatorial(x, y, z float64) (ex, ey, ez float64) {
	eps := meanObliquityDeg * deg2rad
	cosEps, sinEps := math.Cos(eps), math.Sin(eps)
	ex = x
	ey = y*cosEps - z*sinEps
	ez = y*sinEps + z*cosEps
	return ex, ey, ez
}

// barycenterForBody maps a NAIF planet-center body ID (e.g. Mars=499) to
// its barycenter ID (MarsBarycenter=4) as used by PlanetHeliocentric's
// element table. Returns ok=false for bodies with no barycenter entry
// (Sun, Moon, Earth, Pluto).
func barycenterForBody(body int) (int, bool) {
	switch body {
	case Mercury:
		return MercuryBarycenter, true
	case Venus:
		return VenusBarycenter, true
	case Mars:
		return MarsBarycenter, true
	case Jupiter:
		return JupiterBarycenter, true
	case Saturn:
		return SaturnBarycenter, true
	case Uranus:
		return UranusBarycenter, true
	case Neptune:
		return NeptuneBarycenter, true
	default:
		return 0, false
	}
}

// PlanetGeocentricKm returns the apparent geocentric position, in km,
// mean-equatorial J2000 frame, of the given planet-center body ID at the
// given TDB Julian Date. The Earth's heliocentric position is approximated
// as the negative of the Sun's geocentric vector, which is adequate for
// the bracketed event-search tolerances this backs.
func PlanetGeocentricKm(body int, tdbJD float64) ([3]float64, bool) {
	baryID, ok := barycenterForBody(body)
	if !ok {
		return [3]float64{}, false
	}
	xEcl, yEcl, zEcl, ok := PlanetHeliocentric(baryID, tdbJD)
	if !ok {
		return [3]float64{}, false
	}
	xEq, yEq, zEq := EclipticToEquatorial(xEcl, yEcl, zEcl)

	sunKm := SunPositionKm(tdbJD)
	earthHelioKm := [3]float64{-sunKm[0], -sunKm[1], -sunKm[2]}

	return [3]float64{
		xEq*auKm - earthHelioKm[0],
		yEq*auKm - earthHelioKm[1],
		zEq*auKm - earthHelioKm[2],
	}, true
}
