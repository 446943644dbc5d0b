package ephemeris

import "fmt"

// Position is a fixed longitude and daily speed served by Static.
type Position struct {
	Longitude float64
	Speed     float64
}

// Static is a deterministic Oracle backed by a fixed table of positions.
// It ignores the instant; bodies missing from the table are unsupported.
type Static struct {
	Positions map[Body]Position
	// Failures forces CalcUT to return the mapped error for a body.
	Failures map[Body]error
}

// NewStatic constructs a Static oracle from positions.
func NewStatic(positions map[Body]Position) *Static {
	return &Static{Positions: positions}
}

// JulDay converts without range checks.
func (s *Static) JulDay(year, month, day int, hour float64, cal Calendar) (float64, error) {
	return JulDay(year, month, day, hour, cal)
}

// CalcUT returns the stored position for body.
func (s *Static) CalcUT(jd float64, body Body, flags Flag) ([]float64, error) {
	if err, ok := s.Failures[body]; ok {
		return nil, err
	}
	pos, ok := s.Positions[body]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedBody, body)
	}
	out := []float64{pos.Longitude, 0, 1}
	if flags&FlagSpeed != 0 {
		out = append(out, pos.Speed, 0, 0)
	}
	return out, nil
}

var _ Oracle = (*Static)(nil)
