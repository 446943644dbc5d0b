package app

import (
	"context"
	"errors"
	"time"

	"zodiac-snapshot/internal/service"
)

// Backfill persists snapshots for past instants at the scheduler interval.
// The live output file is never touched.
func (a *App) Backfill(ctx context.Context, opts BackfillOptions) error {
	interval := a.Config.Scheduler.Interval
	if interval <= 0 {
		return errors.New("scheduler interval 配置不合法")
	}

	start := alignForward(opts.From.UTC(), interval)
	end := opts.To.UTC()
	if !start.Before(end) {
		return errors.New("回填范围为空，请检查 --from/--to")
	}

	var deps service.Deps
	if opts.DryRun {
		a.Logger.Warn().Msg("回填 dry-run：不会写入数据库")
	} else {
		store, closeStore, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		if store == nil {
			return errors.New("database.dsn 未配置，无法回填")
		}
		if closeStore != nil {
			defer closeStore()
		}
		deps.Store = store
		deps.Transitions = store
	}

	svc := a.newService(a.newOracle(), deps, service.Options{})

	processed := 0
	failed := 0
	for instant := start; instant.Before(end); instant = instant.Add(interval) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var err error
		if opts.DryRun {
			_, err = svc.Generate(ctx, instant)
		} else {
			err = svc.ProcessInstant(ctx, instant)
		}
		if err != nil {
			failed++
			a.Logger.Error().Err(err).Time("instant", instant).Msg("回填失败")
			continue
		}
		processed++
	}

	a.Logger.Info().Int("processed", processed).Int("failed", failed).Msg("回填完成")
	if failed > 0 {
		return errors.New("部分时刻回填失败，请检查日志")
	}
	return nil
}

func alignForward(t time.Time, interval time.Duration) time.Time {
	truncated := t.Truncate(interval)
	if truncated.Before(t) {
		return truncated.Add(interval)
	}
	return truncated
}
