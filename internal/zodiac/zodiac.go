package zodiac

import (
	"math"

	"zodiac-snapshot/internal/ephemeris"
)

// Body describes a tracked celestial body.
type Body struct {
	Name  string
	ID    ephemeris.Body
	Glyph string
}

// Sign describes one 30° segment of the ecliptic.
type Sign struct {
	Index int
	Name  string
	Glyph string
}

var trackedBodies = [...]Body{
	{Name: "Sun", ID: ephemeris.Sun, Glyph: "☉"},
	{Name: "Moon", ID: ephemeris.Moon, Glyph: "☽"},
	{Name: "Mercury", ID: ephemeris.Mercury, Glyph: "☿"},
	{Name: "Venus", ID: ephemeris.Venus, Glyph: "♀"},
	{Name: "Mars", ID: ephemeris.Mars, Glyph: "♂"},
	{Name: "Jupiter", ID: ephemeris.Jupiter, Glyph: "♃"},
	{Name: "Saturn", ID: ephemeris.Saturn, Glyph: "♄"},
}

var signs = [...]Sign{
	{Index: 0, Name: "Aries", Glyph: "♈"},
	{Index: 1, Name: "Taurus", Glyph: "♉"},
	{Index: 2, Name: "Gemini", Glyph: "♊"},
	{Index: 3, Name: "Cancer", Glyph: "♋"},
	{Index: 4, Name: "Leo", Glyph: "♌"},
	{Index: 5, Name: "Virgo", Glyph: "♍"},
	{Index: 6, Name: "Libra", Glyph: "♎"},
	{Index: 7, Name: "Scorpio", Glyph: "♏"},
	{Index: 8, Name: "Sagittarius", Glyph: "♐"},
	{Index: 9, Name: "Capricorn", Glyph: "♑"},
	{Index: 10, Name: "Aquarius", Glyph: "♒"},
	{Index: 11, Name: "Pisces", Glyph: "♓"},
}

// TrackedBodies returns the bodies in output order. The slice is a copy.
func TrackedBodies() []Body {
	out := make([]Body, len(trackedBodies))
	copy(out, trackedBodies[:])
	return out
}

// LookupBody finds a tracked body by case-sensitive name.
func LookupBody(name string) (Body, bool) {
	for _, b := range trackedBodies {
		if b.Name == name {
			return b, true
		}
	}
	return Body{}, false
}

// SignAt returns the sign for index i, wrapping cyclically.
func SignAt(i int) Sign {
	i %= len(signs)
	if i < 0 {
		i += len(signs)
	}
	return signs[i]
}

// Normalize wraps x into [0, 360) using floor-style modulo.
func Normalize(x float64) float64 {
	y := math.Mod(x, 360)
	if y < 0 {
		y += 360
	}
	// -1e-17 + 360 rounds up to 360
	if y >= 360 {
		y = 0
	}
	return y
}

// SignIndex returns the index, 0..11, of the sign containing longitude.
func SignIndex(longitude float64) int {
	n := Normalize(longitude)
	base := n - math.Mod(n, 30)
	return int(math.Round(base/30)) % 12
}

// DegreeInSign returns the offset of longitude within its sign, in [0, 30).
func DegreeInSign(longitude float64) float64 {
	return math.Mod(Normalize(longitude), 30)
}

// SignOf returns the sign containing longitude. Non-finite input yields an
// arbitrary sign rather than a panic; callers reject it upstream.
func SignOf(longitude float64) Sign {
	return SignAt(SignIndex(longitude))
}
