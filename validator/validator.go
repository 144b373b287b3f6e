// Package validator runs the per source checks over a list of candidates
// with a bounded pool of workers.
package validator

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pevans/newsprobe/logging"
	"github.com/pevans/newsprobe/sources"
)

// Checker computes the record of one candidate. *probe.Prober implements
// it.
type Checker interface {
	Process(ctx context.Context, c sources.Candidate) sources.Record
}

// Sink receives finished records. It is only ever called from one
// goroutine.
type Sink func(sources.Record) error

// Config holds the validator settings.
type Config struct {
	// Concurrency is the maximum number of candidates checked at once.
	Concurrency int
}

// Validator fans candidates out to workers and funnels their records to a
// sink.
type Validator struct {
	checker     Checker
	concurrency int
	stats       *Stats
	log         zerolog.Logger
}

// New creates a validator. A concurrency below one is treated as one.
func New(checker Checker, cfg Config) *Validator {
	return &Validator{
		checker:     checker,
		concurrency: max(1, cfg.Concurrency),
		stats:       &Stats{},
		log:         logging.GetLogger("validator"),
	}
}

// Stats returns the live counters of the validator.
func (v *Validator) Stats() *Stats {
	return v.stats
}

// Run checks every candidate and hands each record to sink in completion
// order. A sink error cancels the remaining work and is returned. When ctx
// is cancelled no further candidate is dispatched, records of checks still
// in flight are discarded, and ctx.Err() is returned. Stats count only
// records the sink accepted.
func (v *Validator) Run(ctx context.Context, candidates []sources.Candidate, sink Sink) (Summary, error) {
	started := time.Now()
	v.log.Info().
		Int("candidates", len(candidates)).
		Int("concurrency", v.concurrency).
		Msg("Starting validation")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan sources.Record)
	collected := make(chan error, 1)

	go func() {
		var sinkErr error
		for record := range results {
			if sinkErr != nil {
				continue
			}
			if err := sink(record); err != nil {
				sinkErr = fmt.Errorf("failed to store record for %s: %w", record.Domain, err)
				cancel()
				continue
			}
			v.stats.observe(record)
		}
		collected <- sinkErr
	}()

	var g errgroup.Group
	g.SetLimit(v.concurrency)

	for _, candidate := range candidates {
		if runCtx.Err() != nil {
			break
		}

		g.Go(func() error {
			record := v.checker.Process(runCtx, candidate)
			if runCtx.Err() != nil {
				// Checks cut short by cancellation say nothing about the site.
				return nil
			}

			select {
			case results <- record:
			case <-runCtx.Done():
			}
			return nil
		})
	}

	_ = g.Wait()
	close(results)
	sinkErr := <-collected

	summary := v.stats.Summary(len(candidates), time.Since(started))

	if sinkErr != nil {
		v.log.Error().Err(sinkErr).Msg("Validation aborted")
		return summary, sinkErr
	}
	if err := ctx.Err(); err != nil {
		v.log.Warn().Err(err).Int64("processed", summary.Processed).Msg("Validation cancelled")
		return summary, err
	}

	v.log.Info().
		Int64("processed", summary.Processed).
		Int64("usable", summary.Usable).
		Dur("duration", summary.Duration).
		Msg("Validation finished")
	return summary, nil
}

// Stats counts records as the sink accepts them. Fields may be read while
// a run is in progress.
type Stats struct {
	Processed       atomic.Int64
	Usable          atomic.Int64
	DomainUp        atomic.Int64
	FeedAvailable   atomic.Int64
	FeedValid       atomic.Int64
	ScrapingAllowed atomic.Int64
}

func (s *Stats) observe(r sources.Record) {
	s.Processed.Add(1)
	if r.UsableSource {
		s.Usable.Add(1)
	}
	if r.IsDomainUp {
		s.DomainUp.Add(1)
	}
	if r.IsRSSFeedAvailable {
		s.FeedAvailable.Add(1)
	}
	if r.IsRSSFeedValid {
		s.FeedValid.Add(1)
	}
	if r.IsScrapingAllowed {
		s.ScrapingAllowed.Add(1)
	}
}

// Summary snapshots the counters.
func (s *Stats) Summary(total int, elapsed time.Duration) Summary {
	return Summary{
		Total:           total,
		Processed:       s.Processed.Load(),
		Usable:          s.Usable.Load(),
		DomainUp:        s.DomainUp.Load(),
		FeedAvailable:   s.FeedAvailable.Load(),
		FeedValid:       s.FeedValid.Load(),
		ScrapingAllowed: s.ScrapingAllowed.Load(),
		Duration:        elapsed,
	}
}

// Summary is the outcome of a validation run.
type Summary struct {
	Total           int
	Processed       int64
	Usable          int64
	DomainUp        int64
	FeedAvailable   int64
	FeedValid       int64
	ScrapingAllowed int64
	Duration        time.Duration
}

// UsablePercent is the share of processed candidates that are usable.
func (s Summary) UsablePercent() float64 {
	if s.Processed == 0 {
		return 0
	}
	return float64(s.Usable) / float64(s.Processed) * 100
}
