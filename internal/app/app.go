package app

import (
	"context"
	"errors"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"zodiac-snapshot/internal/alerting"
	"zodiac-snapshot/internal/config"
	"zodiac-snapshot/internal/ephemeris"
	"zodiac-snapshot/internal/resolver"
	"zodiac-snapshot/internal/scheduler"
	"zodiac-snapshot/internal/service"
	"zodiac-snapshot/internal/sink"
	"zodiac-snapshot/internal/storage"
	"zodiac-snapshot/internal/version"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	// Stdout receives command output; defaults to os.Stdout in the CLI.
	Stdout io.Writer
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger, stdout io.Writer) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger(), Stdout: stdout}
}

func (a *App) newOracle() ephemeris.Oracle {
	return ephemeris.NewEngine(ephemeris.EngineOptions{
		MinYear: a.Config.Ephemeris.MinYear,
		MaxYear: a.Config.Ephemeris.MaxYear,
	})
}

func (a *App) newResolver(oracle ephemeris.Oracle) resolver.BodyResolver {
	return resolver.NewOracle(oracle, resolver.OracleOptions{
		SkipSpeed: !a.Config.Ephemeris.ComputeSpeed,
	}, a.Logger)
}

func (a *App) newSink(path string, stdout bool) sink.Sink {
	if stdout {
		return sink.NewWriter(a.Stdout)
	}
	return sink.NewFile(sink.FileOptions{
		Path: a.Config.ResolveOutputPath(path),
		Perm: a.Config.Output.Perm,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Enabled && a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, version.UserAgent(), cfg.Timeout, a.Logger)
	}
	return nil
}

func (a *App) channels(notifier alerting.Notifier) []string {
	if notifier == nil {
		return nil
	}
	return []string{"telegram"}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}

	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// newService fills the configured output and alerting options into opts.
func (a *App) newService(oracle ephemeris.Oracle, deps service.Deps, opts service.Options) *service.Service {
	deps.Converter = oracle
	deps.Resolver = a.newResolver(oracle)
	opts.Indent = a.Config.Output.Indent
	opts.EventEnabled = a.Config.EventEnabled
	opts.Channels = a.channels(deps.Notifier)
	return service.New(deps, opts, a.Logger)
}

// Run executes the long-running generation loop.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; history and transition alerts disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	sched := scheduler.New(scheduler.Options{
		Interval:       a.Config.Scheduler.Interval,
		Align:          a.Config.Scheduler.AlignToInterval,
		StartupDelay:   a.Config.Scheduler.StartupDelay,
		RunImmediately: true,
	}, a.Logger)

	deps := service.Deps{
		Sink:      a.newSink("", false),
		Notifier:  a.newNotifier(),
		Scheduler: sched,
	}
	if store != nil {
		deps.Store = store
		deps.Transitions = store
	}

	svc := a.newService(a.newOracle(), deps, service.Options{
		LockKey:   a.Config.Scheduler.AdvisoryLockKey,
		Retention: a.Config.Database.Retention,
	})

	a.Logger.Info().
		Dur("interval", a.Config.Scheduler.Interval).
		Str("output", a.Config.Output.Path).
		Msg("starting snapshot service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("snapshot service stopped")
	return nil
}

// GenerateOptions configure the one-shot generate command.
type GenerateOptions struct {
	At      *time.Time
	OutPath string
	Stdout  bool
}

// ExportOptions hold parameters for exporting placement history.
type ExportOptions struct {
	Body      string
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// BackfillOptions configure the backfill job.
type BackfillOptions struct {
	From   time.Time
	To     time.Time
	DryRun bool
}

// SimulateOptions configure the simulate command.
type SimulateOptions struct {
	At     *time.Time
	Bodies []string
}
