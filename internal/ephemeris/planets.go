package ephemeris

import "math"

// orbitalElements are mean Keplerian elements referred to the J2000 ecliptic
// and equinox, with their rates per julian century (valid 1800..2050).
type orbitalElements struct {
	a, e, i, l, peri, node                   float64
	aDot, eDot, iDot, lDot, periDot, nodeDot float64
}

var (
	mercuryElements = orbitalElements{
		0.38709927, 0.20563593, 7.00497902, 252.25032350, 77.45779628, 48.33076593,
		0.00000037, 0.00001906, -0.00594749, 149472.67411175, 0.16047689, -0.12534081,
	}
	venusElements = orbitalElements{
		0.72333566, 0.00677672, 3.39467605, 181.97909950, 131.60246718, 76.67984255,
		0.00000390, -0.00004107, -0.00078890, 58517.81538729, 0.00268329, -0.27769418,
	}
	earthElements = orbitalElements{
		1.00000261, 0.01671123, -0.00001531, 100.46457166, 102.93768193, 0.0,
		0.00000562, -0.00004392, -0.01294668, 35999.37244981, 0.32327364, 0.0,
	}
	marsElements = orbitalElements{
		1.52371034, 0.09339410, 1.84969142, -4.55343205, -23.94362959, 49.55953891,
		0.00001847, 0.00007882, -0.00813131, 19140.30268499, 0.44441088, -0.29257343,
	}
	jupiterElements = orbitalElements{
		5.20288700, 0.04838624, 1.30439695, 34.39644051, 14.72847983, 100.47390909,
		-0.00011607, -0.00013253, -0.00183714, 3034.74612775, 0.21252668, 0.20469106,
	}
	saturnElements = orbitalElements{
		9.53667594, 0.05386179, 2.48599187, 49.95424423, 92.59887831, 113.66242448,
		-0.00125060, -0.00050991, 0.00193609, 1222.49362201, -0.41897216, -0.28867794,
	}
)

// generalPrecession is the precession in longitude in degrees per julian century.
const generalPrecession = 1.396971

type vec3 struct{ x, y, z float64 }

func (v vec3) sub(o vec3) vec3 { return vec3{v.x - o.x, v.y - o.y, v.z - o.z} }

// heliocentric returns the J2000 ecliptic heliocentric position in AU.
func (el orbitalElements) heliocentric(t float64) vec3 {
	a := el.a + el.aDot*t
	e := el.e + el.eDot*t
	incl := (el.i + el.iDot*t) * deg2rad
	l := el.l + el.lDot*t
	peri := el.peri + el.periDot*t
	node := el.node + el.nodeDot*t

	omega := (peri - node) * deg2rad
	m := math.Mod(l-peri, 360)
	if m > 180 {
		m -= 360
	} else if m < -180 {
		m += 360
	}
	ecc := solveKepler(m*deg2rad, e)

	xp := a * (math.Cos(ecc) - e)
	yp := a * math.Sqrt(1-e*e) * math.Sin(ecc)

	cw, sw := math.Cos(omega), math.Sin(omega)
	cn, sn := math.Cos(node*deg2rad), math.Sin(node*deg2rad)
	ci, si := math.Cos(incl), math.Sin(incl)

	return vec3{
		x: (cw*cn-sw*sn*ci)*xp + (-sw*cn-cw*sn*ci)*yp,
		y: (cw*sn+sw*cn*ci)*xp + (-sw*sn+cw*cn*ci)*yp,
		z: (sw*si)*xp + (cw*si)*yp,
	}
}

// solveKepler solves E - e sin E = M for E (radians).
func solveKepler(m, e float64) float64 {
	ecc := m + e*math.Sin(m)
	for i := 0; i < 30; i++ {
		delta := (ecc - e*math.Sin(ecc) - m) / (1 - e*math.Cos(ecc))
		ecc -= delta
		if math.Abs(delta) < 1e-12 {
			break
		}
	}
	return ecc
}

// planetFunc returns the geocentric position of a planet, corrected for
// light time and precessed to the equinox of date.
func planetFunc(el orbitalElements) bodyFunc {
	return func(t float64) ecliptic {
		earth := earthElements.heliocentric(t)
		geo := el.heliocentric(t).sub(earth)

		// one light-time iteration: 0.0057755183 days per AU
		dist := math.Sqrt(geo.x*geo.x + geo.y*geo.y + geo.z*geo.z)
		tau := dist * 0.0057755183 / 36525
		geo = el.heliocentric(t - tau).sub(earth)

		dist = math.Sqrt(geo.x*geo.x + geo.y*geo.y + geo.z*geo.z)
		lon := math.Atan2(geo.y, geo.x) * rad2deg
		lat := math.Asin(geo.z/dist) * rad2deg

		return ecliptic{
			lon:  normalize(lon + generalPrecession*t),
			lat:  lat,
			dist: dist,
		}
	}
}
