package feedwatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pevans/feedwatch/metrics"
	"github.com/pevans/feedwatch/subscription"
)

// EntryFetcher fetches the entries of one subscription. *Fetcher is the
// production implementation.
type EntryFetcher interface {
	Fetch(ctx context.Context, sub subscription.Subscription) ([]FeedEntry, error)
}

// AggregatorConfig holds configuration for the aggregator.
type AggregatorConfig struct {
	// Maximum number of fetches in flight; zero means one per subscription
	Concurrency int
	// Timeout per subscription fetch
	FetchTimeout time.Duration
}

// DefaultAggregatorConfig returns the default aggregator configuration.
func DefaultAggregatorConfig() *AggregatorConfig {
	return &AggregatorConfig{
		Concurrency:  0,
		FetchTimeout: 10 * time.Second,
	}
}

// Failure records a subscription that contributed no items.
type Failure struct {
	Subscription subscription.Subscription
	Category     Category
	Err          error
}

// Report is the outcome of one aggregation run. Items are in subscription
// order, then feed document order.
type Report struct {
	RunID     uuid.UUID
	Items     []AggregatedItem
	Failures  []Failure
	Succeeded int
	Duration  time.Duration
}

// Aggregator fetches many subscriptions concurrently and merges their
// entries. A failing subscription never fails the run.
type Aggregator struct {
	fetcher EntryFetcher
	config  *AggregatorConfig
	logger  *slog.Logger
}

// NewAggregator creates an aggregator. A nil config selects
// DefaultAggregatorConfig.
func NewAggregator(fetcher EntryFetcher, config *AggregatorConfig, logger *slog.Logger) *Aggregator {
	if config == nil {
		config = DefaultAggregatorConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Aggregator{
		fetcher: fetcher,
		config:  config,
		logger:  logger,
	}
}

// fetchOutcome is the result of one subscription's fetch task.
type fetchOutcome struct {
	entries []FeedEntry
	err     error
}

// Run fetches every subscription and waits until each has succeeded or
// failed.
func (a *Aggregator) Run(ctx context.Context, subs []subscription.Subscription) *Report {
	start := time.Now()
	runID := uuid.New()
	logger := a.logger.With("run_id", runID.String())

	logger.Debug("aggregation starting", "subscriptions", len(subs))

	// Each task writes only its own slot, so no locking is needed and the
	// merge below stays in subscription order
	outcomes := make([]fetchOutcome, len(subs))

	var g errgroup.Group
	if a.config.Concurrency > 0 {
		g.SetLimit(a.config.Concurrency)
	}
	for i, sub := range subs {
		i, sub := i, sub
		g.Go(func() error {
			outcomes[i] = a.fetchOne(ctx, sub)
			return nil
		})
	}
	_ = g.Wait()

	report := &Report{
		RunID: runID,
		Items: make([]AggregatedItem, 0),
	}
	for i, outcome := range outcomes {
		sub := subs[i]
		if outcome.err != nil {
			failure := Failure{
				Subscription: sub,
				Category:     categoryOf(outcome.err),
				Err:          outcome.err,
			}
			report.Failures = append(report.Failures, failure)

			logger.Warn("feed fetch failed",
				"subscription", sub.Name,
				"url", sub.URL,
				"category", string(failure.Category),
				"error", outcome.err,
			)
			continue
		}

		report.Succeeded++
		for _, entry := range outcome.entries {
			report.Items = append(report.Items, AggregatedItem{
				Entry:        entry,
				Subscription: sub,
			})
		}
	}

	report.Duration = time.Since(start)
	metrics.RecordAggregation(report.Duration.Seconds(), len(report.Items))

	logger.Info("aggregation complete",
		"subscriptions", len(subs),
		"succeeded", report.Succeeded,
		"failed", len(report.Failures),
		"items", len(report.Items),
		"duration", report.Duration,
	)

	return report
}

// Aggregate is Run without the diagnostics.
func (a *Aggregator) Aggregate(ctx context.Context, subs []subscription.Subscription) []AggregatedItem {
	return a.Run(ctx, subs).Items
}

// fetchOne runs a single fetch under its own deadline. A panic inside the
// fetcher is contained to this subscription.
func (a *Aggregator) fetchOne(ctx context.Context, sub subscription.Subscription) (outcome fetchOutcome) {
	fetchCtx, cancel := context.WithTimeout(ctx, a.config.FetchTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			outcome = fetchOutcome{
				err: newFetchError(CategoryFormat, sub.URL, fmt.Errorf("panic while fetching: %v", r)),
			}
		}
	}()

	entries, err := a.fetcher.Fetch(fetchCtx, sub)
	if err != nil {
		return fetchOutcome{err: err}
	}
	return fetchOutcome{entries: entries}
}

// categoryOf extracts the failure category, treating anything unclassified
// as a transport problem.
func categoryOf(err error) Category {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Category
	}
	return CategoryTransport
}
