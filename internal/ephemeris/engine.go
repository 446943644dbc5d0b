package ephemeris

import (
	"fmt"
	"math"
)

const (
	deg2rad = math.Pi / 180
	rad2deg = 180 / math.Pi

	// speedStep is the half-width, in days, of the central difference used for speeds.
	speedStep = 0.01
)

// Validity span of the planetary elements used by Engine.
const (
	MinSupportedYear = 1800
	MaxSupportedYear = 2050
)

// EngineOptions bound the range of instants the engine accepts.
type EngineOptions struct {
	MinYear int
	MaxYear int
}

// Engine is an analytic geocentric ephemeris. It combines a low-precision
// solar theory, a truncated lunar series and mean Keplerian elements for
// the planets, referred to the ecliptic and equinox of date.
type Engine struct {
	minJD float64
	maxJD float64
}

// NewEngine constructs an Engine. Zero options fall back to the supported span.
func NewEngine(opts EngineOptions) *Engine {
	if opts.MinYear == 0 {
		opts.MinYear = MinSupportedYear
	}
	if opts.MaxYear == 0 {
		opts.MaxYear = MaxSupportedYear
	}
	minJD, _ := JulDay(opts.MinYear, 1, 1, 0, Gregorian)
	maxJD, _ := JulDay(opts.MaxYear, 12, 31, 24, Gregorian)
	return &Engine{minJD: minJD, maxJD: maxJD}
}

// JulDay converts a calendar date to a julian day and checks it against the engine range.
func (e *Engine) JulDay(year, month, day int, hour float64, cal Calendar) (float64, error) {
	jd, err := JulDay(year, month, day, hour, cal)
	if err != nil {
		return 0, err
	}
	if err := e.checkRange(jd); err != nil {
		return 0, err
	}
	return jd, nil
}

// CalcUT computes the apparent geocentric ecliptic position of body at jd (UT).
func (e *Engine) CalcUT(jd float64, body Body, flags Flag) ([]float64, error) {
	if err := e.checkRange(jd); err != nil {
		return nil, err
	}
	if _, ok := bodyFuncs[body]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedBody, body)
	}

	pos := position(body, jd)
	out := []float64{pos.lon, pos.lat, pos.dist}

	if flags&FlagSpeed != 0 {
		before := position(body, jd-speedStep)
		after := position(body, jd+speedStep)
		out = append(out,
			angleDiff(after.lon, before.lon)/(2*speedStep),
			(after.lat-before.lat)/(2*speedStep),
			(after.dist-before.dist)/(2*speedStep),
		)
	}

	return out, nil
}

func (e *Engine) checkRange(jd float64) error {
	if math.IsNaN(jd) || jd < e.minJD || jd > e.maxJD {
		return &TimeRangeError{JD: jd, Min: e.minJD, Max: e.maxJD}
	}
	return nil
}

type ecliptic struct {
	lon  float64
	lat  float64
	dist float64
}

type bodyFunc func(t float64) ecliptic

var bodyFuncs = map[Body]bodyFunc{
	Sun:     sunPosition,
	Moon:    moonPosition,
	Mercury: planetFunc(mercuryElements),
	Venus:   planetFunc(venusElements),
	Mars:    planetFunc(marsElements),
	Jupiter: planetFunc(jupiterElements),
	Saturn:  planetFunc(saturnElements),
}

// position evaluates body at jd (UT), applying ΔT and nutation in longitude.
func position(body Body, jdUT float64) ecliptic {
	jdTT := jdUT + deltaT(decimalYear(jdUT))/86400
	t := (jdTT - J2000) / 36525

	pos := bodyFuncs[body](t)
	pos.lon = normalize(pos.lon + nutationLongitude(t))
	return pos
}

// nutationLongitude returns Δψ in degrees using the two dominant terms.
func nutationLongitude(t float64) float64 {
	omega := (125.04452 - 1934.136261*t) * deg2rad
	lSun := (280.4665 + 36000.7698*t) * deg2rad
	lMoon := (218.3165 + 481267.8813*t) * deg2rad
	arcsec := -17.20*math.Sin(omega) - 1.32*math.Sin(2*lSun) - 0.23*math.Sin(2*lMoon) + 0.21*math.Sin(2*omega)
	return arcsec / 3600
}

func normalize(x float64) float64 {
	x = math.Mod(x, 360)
	if x < 0 {
		x += 360
	}
	if x >= 360 {
		x = 0
	}
	return x
}

// angleDiff returns a-b wrapped into (-180, 180].
func angleDiff(a, b float64) float64 {
	d := math.Mod(a-b, 360)
	if d > 180 {
		d -= 360
	} else if d <= -180 {
		d += 360
	}
	return d
}

var _ Oracle = (*Engine)(nil)
