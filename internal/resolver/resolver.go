package resolver

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"zodiac-snapshot/internal/ephemeris"
	"zodiac-snapshot/internal/zodiac"
)

var (
	errEmptyResult = errors.New("oracle returned no values")
	errNonFinite   = errors.New("oracle returned a non-finite value")
)

// Sample is the raw longitude and daily speed of one body at one instant.
type Sample struct {
	Longitude float64
	Speed     float64
}

// Retrograde reports apparent backward motion.
func (s Sample) Retrograde() bool {
	return s.Speed < 0
}

// BodyResolver computes a raw sample for a tracked body.
type BodyResolver interface {
	Resolve(ctx context.Context, body zodiac.Body, jd float64) (Sample, error)
}

// ResolutionError reports that the oracle could not produce a position.
type ResolutionError struct {
	Body string
	JD   float64
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s at jd %.5f: %v", e.Body, e.JD, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// OracleOptions parameterise the oracle-backed resolver.
type OracleOptions struct {
	// SkipSpeed drops the speed flag; samples then carry a zero speed.
	SkipSpeed bool
}

// Oracle resolves bodies through an ephemeris.Oracle.
type Oracle struct {
	oracle ephemeris.Oracle
	flags  ephemeris.Flag
	logger zerolog.Logger
}

// NewOracle wires an ephemeris oracle into a BodyResolver.
func NewOracle(oracle ephemeris.Oracle, opts OracleOptions, logger zerolog.Logger) *Oracle {
	flags := ephemeris.FlagStandard | ephemeris.FlagSpeed
	if opts.SkipSpeed {
		flags = ephemeris.FlagStandard
	}
	return &Oracle{
		oracle: oracle,
		flags:  flags,
		logger: logger.With().Str("component", "body_resolver").Logger(),
	}
}

// Resolve queries the oracle for body at jd.
func (o *Oracle) Resolve(ctx context.Context, body zodiac.Body, jd float64) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}

	vals, err := o.oracle.CalcUT(jd, body.ID, o.flags)
	if err != nil {
		return Sample{}, &ResolutionError{Body: body.Name, JD: jd, Err: err}
	}
	if len(vals) == 0 {
		return Sample{}, &ResolutionError{Body: body.Name, JD: jd, Err: errEmptyResult}
	}

	sample := Sample{Longitude: vals[ephemeris.IdxLongitude]}
	if len(vals) > ephemeris.IdxLongitudeSpeed {
		sample.Speed = vals[ephemeris.IdxLongitudeSpeed]
	}
	if !finite(sample.Longitude) || !finite(sample.Speed) {
		return Sample{}, &ResolutionError{Body: body.Name, JD: jd, Err: errNonFinite}
	}

	o.logger.Debug().
		Str("body", body.Name).
		Float64("longitude", sample.Longitude).
		Float64("speed", sample.Speed).
		Msg("body resolved")
	return sample, nil
}

// ResolveAll resolves every body in order. It stops at the first failure and
// never returns a partial slice.
func ResolveAll(ctx context.Context, r BodyResolver, bodies []zodiac.Body, jd float64) ([]Sample, error) {
	samples := make([]Sample, 0, len(bodies))
	for _, body := range bodies {
		sample, err := r.Resolve(ctx, body, jd)
		if err != nil {
			return nil, err
		}
		samples = append(samples, sample)
	}
	return samples, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

var _ BodyResolver = (*Oracle)(nil)
