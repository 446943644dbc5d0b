package ephemeris

import "math"

// lunarTerm multiplies of D, M, M', F with longitude (1e-6 deg) and
// distance (1e-3 km) coefficients.
type lunarTerm struct {
	d, m, mp, f int
	sl, sr      float64
}

var lunarLongitudeTerms = []lunarTerm{
	{0, 0, 1, 0, 6288774, -20905355},
	{2, 0, -1, 0, 1274027, -3699111},
	{2, 0, 0, 0, 658314, -2955968},
	{0, 0, 2, 0, 213618, -569925},
	{0, 1, 0, 0, -185116, 48888},
	{0, 0, 0, 2, -114332, -3149},
	{2, 0, -2, 0, 58793, 246158},
	{2, -1, -1, 0, 57066, -152138},
	{2, 0, 1, 0, 53322, -170733},
	{2, -1, 0, 0, 45758, -204586},
	{0, 1, -1, 0, -40923, -129620},
	{1, 0, 0, 0, -34720, 108743},
	{0, 1, 1, 0, -30383, 104755},
	{2, 0, 0, -2, 15327, 10321},
	{0, 0, 1, 2, -12528, 0},
	{0, 0, 1, -2, 10980, 79661},
	{4, 0, -1, 0, 10675, -34782},
	{0, 0, 3, 0, 10034, -23210},
	{4, 0, -2, 0, 8548, -21636},
	{2, 1, -1, 0, -7888, 24208},
	{2, 1, 0, 0, -6766, 30824},
	{1, 0, -1, 0, -5163, -8379},
	{1, 1, 0, 0, 4987, -16675},
	{2, -1, 1, 0, 4036, -12831},
	{2, 0, 2, 0, 3994, -10445},
	{4, 0, 0, 0, 3861, -11650},
	{2, 0, -3, 0, 3665, 14403},
	{0, 1, -2, 0, -2689, -7003},
	{2, 0, -1, 2, -2602, 0},
	{2, -1, -2, 0, 2390, 10056},
	{1, 0, 1, 0, -2348, 6322},
	{2, -2, 0, 0, 2236, -9884},
	{0, 1, 2, 0, -2120, 5751},
	{0, 2, 0, 0, -2069, 0},
}

// lunarLatitudeTerms carry latitude coefficients (1e-6 deg) in sl.
var lunarLatitudeTerms = []lunarTerm{
	{0, 0, 0, 1, 5128122, 0},
	{0, 0, 1, 1, 280602, 0},
	{0, 0, 1, -1, 277693, 0},
	{2, 0, 0, -1, 173237, 0},
	{2, 0, -1, 1, 55413, 0},
	{2, 0, -1, -1, 46271, 0},
	{2, 0, 0, 1, 32573, 0},
	{0, 0, 2, 1, 17198, 0},
	{2, 0, 1, -1, 9266, 0},
	{0, 0, 2, -1, 8822, 0},
}

// moonPosition evaluates the truncated lunar series; t is julian centuries TT from J2000.
func moonPosition(t float64) ecliptic {
	t2, t3, t4 := t*t, t*t*t, t*t*t*t

	lp := 218.3164477 + 481267.88123421*t - 0.0015786*t2 + t3/538841 - t4/65194000
	d := 297.8501921 + 445267.1114034*t - 0.0018819*t2 + t3/545868 - t4/113065000
	m := 357.5291092 + 35999.0502909*t - 0.0001536*t2 + t3/24490000
	mp := 134.9633964 + 477198.8675055*t + 0.0087414*t2 + t3/69699 - t4/14712000
	f := 93.2720950 + 483202.0175233*t - 0.0036539*t2 - t3/3526000 + t4/863310000
	ecc := 1 - 0.002516*t - 0.0000074*t2

	a1 := (119.75 + 131.849*t) * deg2rad
	a2 := (53.09 + 479264.290*t) * deg2rad
	a3 := (313.45 + 481266.484*t) * deg2rad

	var sumL, sumR, sumB float64
	for _, term := range lunarLongitudeTerms {
		arg := (float64(term.d)*d + float64(term.m)*m + float64(term.mp)*mp + float64(term.f)*f) * deg2rad
		k := eccentricityFactor(term.m, ecc)
		sumL += term.sl * k * math.Sin(arg)
		sumR += term.sr * k * math.Cos(arg)
	}
	for _, term := range lunarLatitudeTerms {
		arg := (float64(term.d)*d + float64(term.m)*m + float64(term.mp)*mp + float64(term.f)*f) * deg2rad
		sumB += term.sl * eccentricityFactor(term.m, ecc) * math.Sin(arg)
	}

	sumL += 3958*math.Sin(a1) + 1962*math.Sin((lp-f)*deg2rad) + 318*math.Sin(a2)
	sumB += -2235*math.Sin(lp*deg2rad) + 382*math.Sin(a3) +
		175*math.Sin(a1-f*deg2rad) + 175*math.Sin(a1+f*deg2rad) +
		127*math.Sin((lp-mp)*deg2rad) - 115*math.Sin((lp+mp)*deg2rad)

	return ecliptic{
		lon:  normalize(lp + sumL/1e6),
		lat:  sumB / 1e6,
		dist: (385000.56 + sumR/1000) / kmPerAU,
	}
}

func eccentricityFactor(m int, ecc float64) float64 {
	switch m {
	case 1, -1:
		return ecc
	case 2, -2:
		return ecc * ecc
	default:
		return 1
	}
}
