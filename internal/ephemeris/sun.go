package ephemeris

import "math"

const kmPerAU = 149597870.7

// sunPosition is the low-precision solar theory; t is julian centuries TT
// from J2000. Longitudes are referred to the mean equinox of date and include
// annual aberration.
func sunPosition(t float64) ecliptic {
	l0 := 280.46646 + 36000.76983*t + 0.0003032*t*t
	m := (357.52911 + 35999.05029*t - 0.0001537*t*t) * deg2rad
	e := 0.016708634 - 0.000042037*t - 0.0000001267*t*t

	c := (1.914602-0.004817*t-0.000014*t*t)*math.Sin(m) +
		(0.019993-0.000101*t)*math.Sin(2*m) +
		0.000289*math.Sin(3*m)

	trueLon := l0 + c
	v := m + c*deg2rad
	r := 1.000001018 * (1 - e*e) / (1 + e*math.Cos(v))

	return ecliptic{
		lon:  normalize(trueLon - 0.00569),
		lat:  0,
		dist: r,
	}
}
