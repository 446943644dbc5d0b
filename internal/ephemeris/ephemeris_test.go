package ephemeris

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJulDayReferenceDates(t *testing.T) {
	cases := []struct {
		name             string
		year, month, day int
		hour             float64
		want             float64
	}{
		{"j2000", 2000, 1, 1, 12, 2451545.0},
		{"sputnik", 1957, 10, 4, 0.81 * 24, 2436116.31},
		{"january", 1987, 1, 27, 0, 2446822.5},
		{"leap day", 2024, 2, 29, 18, 2460370.25},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := JulDay(tc.year, tc.month, tc.day, tc.hour, Gregorian)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-6)
		})
	}
}

func TestJulDayRejectsInvalidMonth(t *testing.T) {
	_, err := JulDay(2024, 13, 1, 0, Gregorian)
	require.Error(t, err)
}

func TestEngineRange(t *testing.T) {
	eng := NewEngine(EngineOptions{})

	_, err := eng.JulDay(1700, 1, 1, 0, Gregorian)
	var rangeErr *TimeRangeError
	require.ErrorAs(t, err, &rangeErr)

	_, err = eng.CalcUT(rangeErr.Min-1, Sun, FlagStandard|FlagSpeed)
	require.ErrorAs(t, err, &rangeErr)

	jd, err := eng.JulDay(2026, 10, 18, 12, Gregorian)
	require.NoError(t, err)
	assert.InDelta(t, 2461332.0, jd, 1e-9)

	_, err = eng.JulDay(MaxSupportedYear+1, 1, 1, 0, Gregorian)
	require.ErrorAs(t, err, &rangeErr)
}

func TestEngineUnsupportedBody(t *testing.T) {
	eng := NewEngine(EngineOptions{})
	_, err := eng.CalcUT(J2000, Uranus, FlagStandard)
	require.True(t, errors.Is(err, ErrUnsupportedBody))
}

func TestEngineSpeedFlagControlsResultLength(t *testing.T) {
	eng := NewEngine(EngineOptions{})

	withoutSpeed, err := eng.CalcUT(J2000, Mars, FlagStandard)
	require.NoError(t, err)
	assert.Len(t, withoutSpeed, 3)

	withSpeed, err := eng.CalcUT(J2000, Mars, FlagStandard|FlagSpeed)
	require.NoError(t, err)
	assert.Len(t, withSpeed, 6)
	assert.InDelta(t, withoutSpeed[IdxLongitude], withSpeed[IdxLongitude], 1e-12)
}

func TestEngineSunNearEquinox(t *testing.T) {
	eng := NewEngine(EngineOptions{})
	// the 2024 March equinox fell at 03:06 UT
	jd, err := eng.JulDay(2024, 3, 20, 12, Gregorian)
	require.NoError(t, err)

	vals, err := eng.CalcUT(jd, Sun, FlagStandard|FlagSpeed)
	require.NoError(t, err)
	assert.InDelta(t, 0.37, vals[IdxLongitude], 0.05)
	assert.InDelta(t, 0.99, vals[IdxLongitudeSpeed], 0.02)
	assert.InDelta(t, 0.996, vals[IdxDistance], 0.002)
}

func TestEngineSunReferencePosition(t *testing.T) {
	eng := NewEngine(EngineOptions{})
	vals, err := eng.CalcUT(2448908.5, Sun, FlagStandard)
	require.NoError(t, err)
	assert.InDelta(t, 199.909, vals[IdxLongitude], 0.01)
}

func TestEngineMoonReferencePosition(t *testing.T) {
	eng := NewEngine(EngineOptions{})
	vals, err := eng.CalcUT(2448724.5, Moon, FlagStandard|FlagSpeed)
	require.NoError(t, err)
	assert.InDelta(t, 133.167, vals[IdxLongitude], 0.1)
	assert.InDelta(t, -3.229, vals[IdxLatitude], 0.05)
	assert.Greater(t, vals[IdxLongitudeSpeed], 11.0)
	assert.Less(t, vals[IdxLongitudeSpeed], 15.5)
}

func TestEngineVenusReferencePosition(t *testing.T) {
	eng := NewEngine(EngineOptions{})
	vals, err := eng.CalcUT(2448976.5, Venus, FlagStandard)
	require.NoError(t, err)
	assert.InDelta(t, 313.081, vals[IdxLongitude], 0.1)
}

func TestEngineRetrogradePeriods(t *testing.T) {
	eng := NewEngine(EngineOptions{})

	cases := []struct {
		name             string
		body             Body
		year, month, day int
		retrograde       bool
	}{
		{"mercury april 2024", Mercury, 2024, 4, 12, true},
		{"mercury june 2024", Mercury, 2024, 6, 15, false},
		{"mars january 2025", Mars, 2025, 1, 15, true},
		{"mars june 2025", Mars, 2025, 6, 15, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			jd, err := eng.JulDay(tc.year, tc.month, tc.day, 0, Gregorian)
			require.NoError(t, err)
			vals, err := eng.CalcUT(jd, tc.body, FlagStandard|FlagSpeed)
			require.NoError(t, err)
			assert.Equal(t, tc.retrograde, vals[IdxLongitudeSpeed] < 0, "speed %.4f", vals[IdxLongitudeSpeed])
		})
	}
}

func TestEngineLongitudesStayNormalized(t *testing.T) {
	eng := NewEngine(EngineOptions{})
	for body := Sun; body <= Saturn; body++ {
		for jd := 2440000.5; jd < 2470000.5; jd += 997.3 {
			vals, err := eng.CalcUT(jd, body, FlagStandard)
			require.NoError(t, err)
			lon := vals[IdxLongitude]
			require.True(t, lon >= 0 && lon < 360, "%s at %.1f: %.6f", body, jd, lon)
		}
	}
}

func TestStaticOracle(t *testing.T) {
	boom := errors.New("boom")
	oracle := NewStatic(map[Body]Position{Sun: {Longitude: 15, Speed: 1}})
	oracle.Failures = map[Body]error{Mars: boom}

	vals, err := oracle.CalcUT(J2000, Sun, FlagStandard|FlagSpeed)
	require.NoError(t, err)
	assert.Equal(t, []float64{15, 0, 1, 1, 0, 0}, vals)

	vals, err = oracle.CalcUT(J2000, Sun, FlagStandard)
	require.NoError(t, err)
	assert.Len(t, vals, 3)

	_, err = oracle.CalcUT(J2000, Mars, FlagStandard)
	assert.ErrorIs(t, err, boom)

	_, err = oracle.CalcUT(J2000, Moon, FlagStandard)
	assert.ErrorIs(t, err, ErrUnsupportedBody)
}

func TestAngleDiffWraps(t *testing.T) {
	assert.InDelta(t, 2.0, angleDiff(1, 359), 1e-12)
	assert.InDelta(t, -2.0, angleDiff(359, 1), 1e-12)
	assert.InDelta(t, 0.0, normalize(-1e-18), 1e-12)
}
