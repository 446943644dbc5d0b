package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"zodiac-snapshot/internal/alerting"
	"zodiac-snapshot/internal/ephemeris"
	"zodiac-snapshot/internal/resolver"
	"zodiac-snapshot/internal/scheduler"
	"zodiac-snapshot/internal/sink"
	"zodiac-snapshot/internal/snapshot"
	"zodiac-snapshot/internal/storage"
	"zodiac-snapshot/internal/zodiac"
)

// Deps are the collaborators of a Service. Only Converter and Resolver are
// required; the rest disable their stage when nil.
type Deps struct {
	Converter   ephemeris.CalendarConverter
	Resolver    resolver.BodyResolver
	Sink        sink.Sink
	Store       storage.SnapshotStore
	Transitions storage.TransitionStore
	Notifier    alerting.Notifier
	Scheduler   *scheduler.Scheduler
}

// Options tune a Service.
type Options struct {
	// Bodies overrides the tracked body list; nil uses zodiac.TrackedBodies.
	Bodies   []zodiac.Body
	Indent   string
	Channels []string
	LockKey  int64
	// EventEnabled selects which transition events ("ingress", "station") are
	// recorded and announced; nil disables all of them.
	EventEnabled func(event string) bool
	// Retention prunes stored snapshots older than instant-Retention.
	Retention time.Duration
}

// Result is everything produced for one instant.
type Result struct {
	Instant  time.Time
	JD       float64
	Samples  []resolver.Sample
	Snapshot snapshot.Snapshot
	Payload  []byte
}

// Service runs the snapshot pipeline and its optional history and alerting stages.
type Service struct {
	deps    Deps
	bodies  []zodiac.Body
	indent  string
	events  func(event string) bool
	channel []string
	locker  storage.AdvisoryLocker
	lockKey int64
	keep    time.Duration
	logger  zerolog.Logger
}

// New constructs the snapshot service.
func New(deps Deps, opts Options, logger zerolog.Logger) *Service {
	bodies := opts.Bodies
	if bodies == nil {
		bodies = zodiac.TrackedBodies()
	}

	events := opts.EventEnabled
	if events == nil {
		events = func(string) bool { return false }
	}

	var locker storage.AdvisoryLocker
	if l, ok := deps.Store.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		deps:    deps,
		bodies:  bodies,
		indent:  opts.Indent,
		events:  events,
		channel: opts.Channels,
		locker:  locker,
		lockKey: opts.LockKey,
		keep:    opts.Retention,
		logger:  logger.With().Str("component", "service").Logger(),
	}
}

// Run begins the scheduled generation loop.
func (s *Service) Run(ctx context.Context) error {
	if s.deps.Scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.deps.Scheduler.Run(ctx, s.ProcessInstant)
}

// Generate computes the snapshot for instant without side effects.
func (s *Service) Generate(ctx context.Context, instant time.Time) (Result, error) {
	jd, err := resolver.ToAstronomicalTime(s.deps.Converter, instant)
	if err != nil {
		return Result{}, err
	}

	samples, err := resolver.ResolveAll(ctx, s.deps.Resolver, s.bodies, jd)
	if err != nil {
		return Result{}, err
	}

	snap, err := snapshot.Assemble(instant, s.bodies, samples)
	if err != nil {
		return Result{}, err
	}

	payload, err := snapshot.Encode(snap, s.indent)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Instant:  instant,
		JD:       jd,
		Samples:  samples,
		Snapshot: snap,
		Payload:  payload,
	}, nil
}

// Publish generates the snapshot for instant and writes it to the sink. The
// sink is untouched when generation fails.
func (s *Service) Publish(ctx context.Context, instant time.Time) (Result, error) {
	res, err := s.Generate(ctx, instant)
	if err != nil {
		return Result{}, err
	}
	if s.deps.Sink == nil {
		return res, nil
	}
	if err := s.deps.Sink.Write(ctx, res.Payload); err != nil {
		return Result{}, err
	}
	return res, nil
}

// ProcessInstant publishes one snapshot, records it and announces transitions
// relative to the previous stored snapshot.
func (s *Service) ProcessInstant(ctx context.Context, instant time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("instant", instant).Msg("skip instant because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	res, err := s.Publish(ctx, instant)
	if err != nil {
		return err
	}

	s.logger.Info().Time("instant", instant).
		Float64("jd", res.JD).
		Int("bodies", len(res.Snapshot.Planets)).
		Msg("snapshot generated")

	if s.deps.Store == nil {
		return nil
	}

	record := s.toRecord(res)
	previous, found, err := s.deps.Store.LatestSnapshotBefore(ctx, record.GeneratedAt)
	if err != nil {
		s.logger.Error().Err(err).Time("instant", instant).Msg("failed to load previous snapshot")
		found = false
	}

	if err := s.deps.Store.UpsertSnapshot(ctx, record); err != nil {
		s.logger.Error().Err(err).Time("instant", instant).Msg("failed to persist snapshot")
	}

	if s.keep > 0 {
		cutoff := record.GeneratedAt.Add(-s.keep)
		if err := s.deps.Store.DeleteSnapshotsBefore(ctx, cutoff); err != nil {
			s.logger.Warn().Err(err).Time("cutoff", cutoff).Msg("failed to prune snapshot history")
		}
	}

	if found {
		s.announce(ctx, instant, DetectTransitions(previous.Placements, res.Snapshot))
	}
	return nil
}

func (s *Service) announce(ctx context.Context, instant time.Time, transitions []Transition) {
	for _, tr := range transitions {
		if !s.events(tr.Event()) {
			continue
		}

		s.logger.Info().Time("instant", instant).
			Str("body", tr.Body).
			Str("kind", tr.Kind).
			Str("from", tr.FromSign).
			Str("to", tr.ToSign).
			Msg("transition detected")

		if s.deps.Transitions != nil {
			rec := storage.TransitionRecord{
				OccurredAt: instant.UTC(),
				Body:       tr.Body,
				Kind:       tr.Kind,
				FromSign:   tr.FromSign,
				ToSign:     tr.ToSign,
				Channels:   s.channel,
			}
			if _, err := s.deps.Transitions.InsertTransition(ctx, rec); err != nil {
				s.logger.Error().Err(err).Str("body", tr.Body).Msg("failed to persist transition")
			}
		}

		if s.deps.Notifier != nil {
			note := alerting.Notification{
				Instant:   instant,
				Body:      tr.Body,
				BodyGlyph: tr.BodyGlyph,
				Kind:      tr.Kind,
				FromSign:  tr.FromSign,
				ToSign:    tr.ToSign,
				SignGlyph: tr.SignGlyph,
				Deg:       tr.Deg,
				Channels:  s.channel,
			}
			if err := s.deps.Notifier.Notify(ctx, note); err != nil {
				s.logger.Error().Err(err).Str("body", tr.Body).Msg("failed to dispatch alert")
			}
		}
	}
}

func (s *Service) toRecord(res Result) storage.SnapshotRecord {
	generatedAt := res.Instant.UTC().Truncate(time.Microsecond)
	placements := make([]storage.PlacementRecord, 0, len(res.Snapshot.Planets))
	for i, p := range res.Snapshot.Planets {
		sample := res.Samples[i]
		placements = append(placements, storage.PlacementRecord{
			GeneratedAt: generatedAt,
			Position:    i,
			Body:        p.Planet,
			Longitude:   decimal.NewFromFloat(zodiac.Normalize(sample.Longitude)),
			Speed:       decimal.NewFromFloat(sample.Speed),
			Sign:        p.Sign,
			Deg:         decimal.NewFromFloat(p.Deg),
			Retrograde:  p.Retrograde,
		})
	}
	return storage.SnapshotRecord{
		GeneratedAt: generatedAt,
		Payload:     res.Payload,
		Placements:  placements,
	}
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotConfigured) {
			return nil, true, nil
		}
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
