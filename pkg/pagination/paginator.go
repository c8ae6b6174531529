package pagination

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/jatushlashkari/finance-v1/pkg/client"
	"github.com/jatushlashkari/finance-v1/pkg/withdrawal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for pagination.
var (
	pagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "withdraw_pages_total",
		Help: "Total pages attempted by outcome",
	}, []string{"outcome"})

	recordsFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "withdraw_records_fetched_total",
		Help: "Total withdrawal records fetched",
	})

	notifyFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "withdraw_notify_failures_total",
		Help: "Total tracking calls that failed before a page fetch",
	})
)

// Config holds paginator configuration.
type Config struct {
	// MaxPages is the page ceiling. Pagination may end earlier on an empty page.
	MaxPages int
	// PageSize is the number of records requested per page.
	PageSize int
	// MinDelay and MaxDelay bound the random sleep before each page.
	MinDelay time.Duration
	MaxDelay time.Duration
	// PageDelay is the fixed sleep after each page.
	PageDelay time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MaxPages:  3,
		PageSize:  15,
		MinDelay:  10 * time.Second,
		MaxDelay:  20 * time.Second,
		PageDelay: 1 * time.Second,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MaxPages < 1 {
		return fmt.Errorf("max pages must be >= 1 (got %d)", c.MaxPages)
	}
	if c.PageSize < 1 {
		return fmt.Errorf("page size must be >= 1 (got %d)", c.PageSize)
	}
	if c.MinDelay < 0 || c.MaxDelay < 0 || c.PageDelay < 0 {
		return fmt.Errorf("delays must be >= 0")
	}
	if c.MinDelay > c.MaxDelay {
		return fmt.Errorf("min delay %s exceeds max delay %s", c.MinDelay, c.MaxDelay)
	}
	return nil
}

// PageFetcher fetches a single page of records.
type PageFetcher interface {
	FetchPage(ctx context.Context, page, size int) ([]withdrawal.RawRecord, error)
}

// Notifier sends the tracking event that precedes each page.
type Notifier interface {
	Notify(ctx context.Context) error
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Paginator walks pages sequentially.
type Paginator struct {
	fetcher  PageFetcher
	notifier Notifier
	config   Config
	sleep    SleepFunc
	jitter   func(lo, hi time.Duration) time.Duration
	logger   zerolog.Logger
}

// New creates a paginator. notifier may be nil to skip tracking calls.
func New(fetcher PageFetcher, notifier Notifier, config Config) (*Paginator, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("page fetcher is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Paginator{
		fetcher:  fetcher,
		notifier: notifier,
		config:   config,
		sleep:    sleepContext,
		jitter:   randomDuration,
		logger:   log.With().Str("component", "paginator").Logger(),
	}, nil
}

// SetSleep overrides how the paginator waits (for testing).
func (p *Paginator) SetSleep(sleep SleepFunc) {
	p.sleep = sleep
}

// Run fetches pages until an empty page or the page ceiling.
//
// A page that fails contributes no records, is recorded in Result.Pages and
// does not end the run. If ctx is cancelled the records gathered so far are
// returned together with the context error.
func (p *Paginator) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	result := Result{Records: []withdrawal.RawRecord{}}

	for page := 1; page <= p.config.MaxPages; page++ {
		delay := p.jitter(p.config.MinDelay, p.config.MaxDelay)
		p.logger.Debug().Int("page", page).Dur("delay", delay).Msg("Waiting before page")
		if err := p.sleep(ctx, delay); err != nil {
			return result, err
		}

		outcome := p.fetchPage(ctx, page)
		result.Pages = append(result.Pages, outcome)

		if outcome.Err != nil {
			result.Skipped++
		} else {
			result.Records = append(result.Records, outcome.Records...)
			p.logger.Info().
				Int("page", page).
				Int("max_pages", p.config.MaxPages).
				Int("records", len(outcome.Records)).
				Int("total", len(result.Records)).
				Msg("Page fetched")
		}

		if err := p.sleep(ctx, p.config.PageDelay); err != nil {
			return result, err
		}

		if outcome.Err == nil && len(outcome.Records) == 0 {
			result.StoppedEarly = true
			p.logger.Info().Int("page", page).Msg("No more records found, stopping")
			break
		}
	}

	p.logger.Info().
		Int("pages", len(result.Pages)).
		Int("skipped", result.Skipped).
		Int("records", len(result.Records)).
		Bool("stopped_early", result.StoppedEarly).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return result, nil
}

// fetchPage notifies and fetches one page, classifying any failure.
func (p *Paginator) fetchPage(ctx context.Context, page int) PageOutcome {
	outcome := PageOutcome{Page: page, Notified: true}

	if p.notifier != nil {
		if err := p.notifier.Notify(ctx); err != nil {
			outcome.Notified = false
			notifyFailuresTotal.Inc()
			p.logger.Warn().Err(err).Int("page", page).Msg("Producer call failed, continuing")
		}
	}

	records, err := p.fetcher.FetchPage(ctx, page, p.config.PageSize)
	if err != nil {
		pageErr := &PageError{Page: page, Kind: classify(err), Err: err}
		outcome.Err = pageErr
		pagesTotal.WithLabelValues(string(pageErr.Kind)).Inc()
		p.logger.Warn().
			Err(err).
			Int("page", page).
			Str("kind", string(pageErr.Kind)).
			Msg("Page skipped")
		return outcome
	}

	outcome.Records = records
	recordsFetchedTotal.Add(float64(len(records)))
	if len(records) == 0 {
		pagesTotal.WithLabelValues("empty").Inc()
	} else {
		pagesTotal.WithLabelValues("ok").Inc()
	}
	return outcome
}

// classify maps a fetch error to a page error kind.
func classify(err error) ErrorKind {
	switch {
	case client.IsTransport(err):
		return KindTransport
	case errors.Is(err, withdrawal.ErrUnexpectedStatus):
		return KindStatus
	default:
		return KindMalformed
	}
}

// randomDuration returns a duration drawn uniformly from [lo, hi].
func randomDuration(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1)
}

// sleepContext waits for d with context cancellation support.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
