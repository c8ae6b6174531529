package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jatushlashkari/finance-v1/pkg/client"
	"github.com/jatushlashkari/finance-v1/pkg/config"
	"github.com/jatushlashkari/finance-v1/pkg/export"
	"github.com/jatushlashkari/finance-v1/pkg/logging"
	"github.com/jatushlashkari/finance-v1/pkg/notifier"
	"github.com/jatushlashkari/finance-v1/pkg/pagination"
	"github.com/jatushlashkari/finance-v1/pkg/runlock"
	"github.com/jatushlashkari/finance-v1/pkg/withdrawal"
	"github.com/redis/go-redis/v9"
)

// releaseTimeout bounds the lock release after the run context is gone.
const releaseTimeout = 5 * time.Second

// runSummary is what one run produced.
type runSummary struct {
	RunID       string
	Fetch       pagination.Result
	Export      export.Result
	Interrupted bool
	Duration    time.Duration
}

// run executes fetch then export. When ctx is cancelled mid-fetch the records
// gathered so far are still exported and the cancellation is returned.
func run(ctx context.Context, cfg *config.Config) (*runSummary, error) {
	start := time.Now()
	summary := &runSummary{RunID: logging.NewRunID()}
	logger := logging.WithRun(summary.RunID)

	logger.Info().Object("config", cfg).Msg("Starting withdrawal export")

	if cfg.RedisAddr != "" {
		release, err := acquireLock(ctx, cfg)
		if err != nil {
			return summary, err
		}
		defer release()
	}

	httpClient, err := client.New(cfg.Client())
	if err != nil {
		return summary, fmt.Errorf("create http client: %w", err)
	}

	n, err := notifier.New(httpClient, cfg.ProducerURL, cfg.Event())
	if err != nil {
		return summary, fmt.Errorf("create notifier: %w", err)
	}

	detail, err := withdrawal.NewDetailClient(httpClient, cfg.DetailURL, cfg.Token)
	if err != nil {
		return summary, fmt.Errorf("create detail client: %w", err)
	}

	paginator, err := pagination.New(detail, n, cfg.Pagination())
	if err != nil {
		return summary, fmt.Errorf("create paginator: %w", err)
	}

	fetched, fetchErr := paginator.Run(ctx)
	summary.Fetch = fetched
	if fetchErr != nil {
		summary.Interrupted = true
		logger.Warn().
			Err(fetchErr).
			Int("records", len(fetched.Records)).
			Msg("Fetch interrupted, exporting records gathered so far")
	}

	// The export must finish even after an interrupt.
	exported, err := export.New(cfg.Export()).Export(context.WithoutCancel(ctx), fetched.Records)
	summary.Export = exported
	summary.Duration = time.Since(start)
	if err != nil {
		return summary, fmt.Errorf("export: %w", err)
	}

	logger.Info().
		Int("pages", len(fetched.Pages)).
		Int("skipped_pages", fetched.Skipped).
		Int("notify_failures", fetched.NotifyFailures()).
		Int("records", len(fetched.Records)).
		Int("rows", exported.Rows).
		Int("skipped_records", len(exported.SkippedRecords)).
		Str("file", exported.Path).
		Bool("interrupted", summary.Interrupted).
		Dur("duration", summary.Duration).
		Msg("Run complete")

	if fetchErr != nil {
		return summary, fmt.Errorf("fetch interrupted: %w", fetchErr)
	}
	return summary, nil
}

// acquireLock takes the run lock and returns its release func.
func acquireLock(ctx context.Context, cfg *config.Config) (func(), error) {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	logger := logging.NewLogger("runlock")
	locker := runlock.NewLocker(rdb, logger)
	lock, err := locker.Acquire(ctx, cfg.LockName(), cfg.LockTTL)
	if err != nil {
		rdb.Close()
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if err := locker.Release(releaseCtx, lock); err != nil {
			logger.Warn().Err(err).Msg("Failed to release run lock")
		}
		rdb.Close()
	}, nil
}
