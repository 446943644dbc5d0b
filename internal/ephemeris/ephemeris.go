package ephemeris

import (
	"errors"
	"fmt"
)

// Body identifies a celestial body known to an oracle.
type Body int

// Body identifiers follow the conventional ephemeris numbering.
const (
	Sun Body = iota
	Moon
	Mercury
	Venus
	Mars
	Jupiter
	Saturn
	Uranus
	Neptune
	Pluto
)

var bodyNames = map[Body]string{
	Sun:     "sun",
	Moon:    "moon",
	Mercury: "mercury",
	Venus:   "venus",
	Mars:    "mars",
	Jupiter: "jupiter",
	Saturn:  "saturn",
	Uranus:  "uranus",
	Neptune: "neptune",
	Pluto:   "pluto",
}

func (b Body) String() string {
	if name, ok := bodyNames[b]; ok {
		return name
	}
	return fmt.Sprintf("body(%d)", int(b))
}

// Flag selects calculation options.
type Flag int

const (
	// FlagStandard selects the engine's standard-precision ephemeris.
	FlagStandard Flag = 1 << 1
	// FlagSpeed requests daily speeds in addition to positions.
	FlagSpeed Flag = 1 << 8
)

// Calendar selects the calendar convention of a date.
type Calendar int

const (
	Julian Calendar = iota
	Gregorian
)

// Indexes into the slice returned by CalcUT.
const (
	IdxLongitude = iota
	IdxLatitude
	IdxDistance
	IdxLongitudeSpeed
	IdxLatitudeSpeed
	IdxDistanceSpeed
)

var (
	// ErrUnsupportedBody is returned for bodies the oracle cannot compute.
	ErrUnsupportedBody = errors.New("ephemeris: unsupported body")
)

// TimeRangeError reports an instant outside the oracle's supported range.
type TimeRangeError struct {
	JD  float64
	Min float64
	Max float64
}

func (e *TimeRangeError) Error() string {
	return fmt.Sprintf("ephemeris: julian day %.5f outside supported range [%.1f, %.1f]", e.JD, e.Min, e.Max)
}

// CalendarConverter maps calendar dates to julian days.
type CalendarConverter interface {
	JulDay(year, month, day int, hour float64, cal Calendar) (float64, error)
}

// Oracle computes geocentric ecliptic positions for a julian day in UT.
//
// CalcUT returns longitude, latitude and distance, followed by their daily
// speeds when FlagSpeed is set.
type Oracle interface {
	CalendarConverter
	CalcUT(jd float64, body Body, flags Flag) ([]float64, error)
}
