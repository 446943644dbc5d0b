package ephemeris

import (
	"fmt"
	"math"
)

// J2000 is the julian day of 2000-01-01T12:00:00 TT.
const J2000 = 2451545.0

// JulDay converts a calendar date and fractional hour into a julian day.
// Dates are not range checked; see Engine.JulDay for that.
func JulDay(year, month, day int, hour float64, cal Calendar) (float64, error) {
	if month < 1 || month > 12 {
		return 0, fmt.Errorf("ephemeris: invalid month %d", month)
	}
	if day < 1 || day > 31 {
		return 0, fmt.Errorf("ephemeris: invalid day %d", day)
	}

	y := float64(year)
	m := float64(month)
	if month <= 2 {
		y--
		m += 12
	}

	b := 0.0
	if cal == Gregorian {
		a := math.Floor(y / 100)
		b = 2 - a + math.Floor(a/4)
	}

	jd := math.Floor(365.25*(y+4716)) + math.Floor(30.6001*(m+1)) + float64(day) + b - 1524.5
	return jd + hour/24, nil
}

// deltaT returns TT-UT in seconds for a decimal year.
func deltaT(year float64) float64 {
	t := year - 2000
	switch {
	case year >= 2005:
		return 62.92 + 0.32217*t + 0.005589*t*t
	case year >= 1986:
		return 63.86 + 0.3345*t - 0.060374*t*t + 0.0017275*t*t*t + 0.000651814*t*t*t*t + 0.00002373599*t*t*t*t*t
	default:
		u := (year - 1820) / 100
		return -20 + 32*u*u
	}
}

// decimalYear approximates the calendar year of a julian day.
func decimalYear(jd float64) float64 {
	return 2000 + (jd-J2000)/365.25
}
