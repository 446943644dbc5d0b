package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"zodiac-snapshot/internal/ephemeris"
	"zodiac-snapshot/internal/service"
	"zodiac-snapshot/internal/sink"
	"zodiac-snapshot/internal/zodiac"
)

// Simulate assembles a snapshot from fixed positions and prints it. Every
// tracked body must be given as Name=longitude[:speed].
func (a *App) Simulate(ctx context.Context, opts SimulateOptions) error {
	if len(opts.Bodies) == 0 {
		return errors.New("至少需要一个 --body")
	}

	positions, err := ParseBodyPositions(opts.Bodies)
	if err != nil {
		return err
	}

	instant := time.Now().UTC()
	if opts.At != nil {
		instant = opts.At.UTC()
	}

	svc := a.newService(ephemeris.NewStatic(positions), service.Deps{Sink: sink.NewWriter(a.Stdout)}, service.Options{})
	_, err = svc.Publish(ctx, instant)
	return err
}

// ParseBodyPositions parses Name=longitude[:speed] pairs. Names must match a
// tracked body exactly, e.g. "Mars=182.5:-0.2".
func ParseBodyPositions(args []string) (map[ephemeris.Body]ephemeris.Position, error) {
	positions := make(map[ephemeris.Body]ephemeris.Position, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --body %q: expected Name=longitude[:speed]", arg)
		}

		body, ok := zodiac.LookupBody(strings.TrimSpace(name))
		if !ok {
			return nil, fmt.Errorf("invalid --body %q: unknown body %q", arg, name)
		}
		if _, dup := positions[body.ID]; dup {
			return nil, fmt.Errorf("invalid --body %q: %s given twice", arg, body.Name)
		}

		lonStr, speedStr, hasSpeed := strings.Cut(value, ":")
		lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --body %q: longitude: %w", arg, err)
		}
		if math.IsNaN(lon) || math.IsInf(lon, 0) {
			return nil, fmt.Errorf("invalid --body %q: longitude must be finite", arg)
		}

		var speed float64
		if hasSpeed {
			speed, err = strconv.ParseFloat(strings.TrimSpace(speedStr), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid --body %q: speed: %w", arg, err)
			}
			if math.IsNaN(speed) || math.IsInf(speed, 0) {
				return nil, fmt.Errorf("invalid --body %q: speed must be finite", arg)
			}
		}

		positions[body.ID] = ephemeris.Position{Longitude: lon, Speed: speed}
	}
	return positions, nil
}
