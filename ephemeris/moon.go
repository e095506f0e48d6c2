package ephemeris

import "math"

// MoonGeocentric returns the Moon's low-precision geocentric apparent
// right ascension and declination (radians) and distance (km) for the
// given TDB Julian Date. Only the leading longitude and latitude terms
// are kept, so positions are good to roughly a degree or two.
//
// Ported from the standard truncated lunar position series (Meeus,
// Astronomical Algorithms ch. 47's leading terms), re-expressed without
// package state.
func MoonGeocentric(tdbJD float64) (raRad, decRad, distKm float64) {
	n := tdbJD - j2000JD

	meanLonDeg := wrap360(218.316 + 13.176396*n)
	meanAnomDeg := wrap360(134.963 + 13.064993*n)
	meanAnomRad := meanAnomDeg * deg2rad
	argLatDeg := wrap360(93.272 + 13.229350*n)
	argLatRad := argLatDeg * deg2rad

	eclLonDeg := meanLonDeg + 6.289*math.Sin(meanAnomRad)
	eclLonRad := eclLonDeg * deg2rad
	eclLatDeg := 5.128 * math.Sin(argLatRad)
	eclLatRad := eclLatDeg * deg2rad

	distKm = 385001.0 - 20905.0*math.Cos(meanAnomRad)

	eps := meanObliquityDeg * deg2rad
	raRad = math.Atan2(
		math.Sin(eclLonRad)*math.Cos(eps)-math.Tan(eclLatRad)*math.Sin(eps),
		math.Cos(eclLonRad),
	)
	if raRad < 0 {
		raRad += 2 * math.Pi
	}
	decRad = math.Asin(
		math.Sin(eclLatRad)*math.Cos(eps) + math.Cos(eclLatRad)*math.Sin(eps)*math.Sin(eclLonRad),
	)
	return raRad, decRad, distKm
}

// MoonPositionKm returns the Moon's geocentric Cartesian position in km,
// mean-equatorial J2000 frame, at the given TDB Julian Date.
func MoonPositionKm(tdbJD float64) [3]float64 {
	ra, dec, distKm := MoonGeocentric(tdbJD)
	return raDecToVec(ra, dec, distKm)
}

// MoonPhaseAngle returns the Moon's geocentric elongation from the Sun
// (the Sun-Earth-Moon angle) in radians at the given TDB Julian Date:
// 0 at new moon, π at full moon.
func MoonPhaseAngle(tdbJD float64) float64 {
	sunRA, sunDec, _ := SunGeocentric(tdbJD)
	moonRA, moonDec, _ := MoonGeocentric(tdbJD)

	cosElong := math.Sin(sunDec)*math.Sin(moonDec) +
		math.Cos(sunDec)*math.Cos(moonDec)*math.Cos(sunRA-moonRA)
	if cosElong > 1 {
		cosElong = 1
	} else if cosElong < -1 {
		cosElong = -1
	}
	return math.Acos(cosElong)
}

// MoonIllumination returns the illuminated disc fraction [0,1] at the
// given TDB Julian Date, via the standard cosine phase law.
func MoonIllumination(tdbJD float64) float64 {
	phase := MoonPhaseAngle(tdbJD)
	return 0.5 * (1.0 - math.Cos(phase))
}
