// Package feedwatch merges many syndication feeds into one newest-first
// list, optionally narrowed to subscriptions carrying given tags.
package feedwatch

import (
	"context"
	"log/slog"

	"github.com/pevans/feedwatch/subscription"
)

// Service is the aggregation entry point: filter, fetch, then sort.
type Service struct {
	aggregator *Aggregator
	logger     *slog.Logger
}

// NewService creates a service around an aggregator.
func NewService(aggregator *Aggregator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		aggregator: aggregator,
		logger:     logger,
	}
}

// Run aggregates the subscriptions that pass the tag filter and returns the
// report with its items sorted newest first. A nil allowed list disables
// filtering. Subscriptions removed by the filter are never fetched.
func (s *Service) Run(ctx context.Context, subs []subscription.Subscription, allowed []string) *Report {
	selected := subscription.Filter(subs, allowed)
	if allowed != nil {
		s.logger.Debug("subscriptions filtered by tag",
			"tags", allowed,
			"selected", len(selected),
			"total", len(subs),
		)
	}

	report := s.aggregator.Run(ctx, selected)
	report.Items = SortByPublished(report.Items)
	return report
}

// Aggregate returns the merged, newest-first items. It never fails; a run in
// which every subscription fails yields an empty slice.
func (s *Service) Aggregate(ctx context.Context, subs []subscription.Subscription, allowed []string) []AggregatedItem {
	return s.Run(ctx, subs, allowed).Items
}
