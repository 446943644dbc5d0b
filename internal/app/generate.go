package app

import (
	"context"
	"time"

	"zodiac-snapshot/internal/service"
	"zodiac-snapshot/internal/sink"
)

// Generate runs the snapshot pipeline once for the requested instant.
func (a *App) Generate(ctx context.Context, opts GenerateOptions) error {
	instant := time.Now().UTC()
	if opts.At != nil {
		instant = opts.At.UTC()
	}

	out := a.newSink(opts.OutPath, opts.Stdout)
	svc := a.newService(a.newOracle(), service.Deps{Sink: out}, service.Options{})

	res, err := svc.Publish(ctx, instant)
	if err != nil {
		return err
	}

	event := a.Logger.Info().
		Str("generatedAtUTC", res.Snapshot.GeneratedAtUTC).
		Float64("jd", res.JD).
		Int("bodies", len(res.Snapshot.Planets))
	if f, ok := out.(*sink.File); ok {
		event = event.Str("path", f.Path())
	}
	event.Msg("snapshot written")
	return nil
}
