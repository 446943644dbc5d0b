package resolver

import (
	"fmt"
	"time"

	"zodiac-snapshot/internal/ephemeris"
)

// TimeConversionError reports an instant the oracle cannot convert.
type TimeConversionError struct {
	Instant time.Time
	Err     error
}

func (e *TimeConversionError) Error() string {
	return fmt.Sprintf("convert %s to julian day: %v", e.Instant.Format(time.RFC3339), e.Err)
}

func (e *TimeConversionError) Unwrap() error { return e.Err }

// ToAstronomicalTime converts a UTC instant to a julian day on the proleptic
// Gregorian calendar. Sub-second precision is dropped.
func ToAstronomicalTime(conv ephemeris.CalendarConverter, instant time.Time) (float64, error) {
	u := instant.UTC()
	hour := float64(u.Hour()) + float64(u.Minute())/60 + float64(u.Second())/3600

	jd, err := conv.JulDay(u.Year(), int(u.Month()), u.Day(), hour, ephemeris.Gregorian)
	if err != nil {
		return 0, &TimeConversionError{Instant: instant, Err: err}
	}
	return jd, nil
}
