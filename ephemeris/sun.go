package ephemeris

import "math"

const (
	deg2rad = math.Pi / 180.0
	rad2deg = 180.0 / math.Pi

	// Mean obliquity of the ecliptic at J2000, degrees (matches coord's
	// J2000 constant, duplicated here to keep ephemeris dependency-free
	// of coord's internal unexported constants).
	meanObliquityDeg = 23.43929111
)

// SunGeocentric returns the Sun's low-precision geocentric apparent
// right ascension and declination (radians) and distance (AU) for the
// given TDB Julian Date. Good to about 1 arcminute — ample for bracketed
// sunset/twilight search, whose tolerance (§8) is far looser.
//
// Ported from the standard truncated solar position series (Meeus,
// Astronomical Algorithms ch. 25), re-expressed without package state.
func SunGeocentric(tdbJD float64) (raRad, decRad, distAU float64) {
	n := tdbJD - j2000JD

	meanLonDeg := wrap360(280.460 + 0.9856474*n)
	meanAnomDeg := wrap360(357.528 + 0.9856003*n)
	gRad := meanAnomDeg * deg2rad

	eclLonDeg := meanLonDeg + 1.915*math.Sin(gRad) + 0.020*math.Sin(2*gRad)
	eclLonRad := eclLonDeg * deg2rad

	distAU = 1.00014 - 0.01671*math.Cos(gRad) - 0.00014*math.Cos(2*gRad)

	eps := meanObliquityDeg * deg2rad
	raRad = math.Atan2(math.Cos(eps)*math.Sin(eclLonRad), math.Cos(eclLonRad))
	if raRad < 0 {
		raRad += 2 * math.Pi
	}
	decRad = math.Asin(math.Sin(eps) * math.Sin(eclLonRad))
	return raRad, decRad, distAU
}

const j2000JD = 2451545.0

const auKm = 149597870.7

// SunPositionKm returns the Sun's geocentric Cartesian position in km,
// mean-equatorial J2000 frame, at the given TDB Julian Date.
func SunPositionKm(tdbJD float64) [3]float64 {
	ra, dec, distAU := SunGeocentric(tdbJD)
	distKm := distAU * auKm
	return raDecToVec(ra, dec, distKm)
}

func raDecToVec(raRad, decRad, dist float64) [3]float64 {
	cosDec := math.Cos(decRad)
	return [3]float64{
		dist * cosDec * math.Cos(raRad),
		dist * cosDec * math.Sin(raRad),
		dist * math.Sin(decRad),
	}
}

func wrap360(deg float64) float64 {
	d := math.Mod(deg, 360.0)
	if d < 0 {
		d += 360.0
	}
	return d
}
