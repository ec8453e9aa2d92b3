package subscription

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidSubscription is returned when a subscription document or record
// cannot be used. It is a configuration error and is fatal to the request
// that loaded it.
var ErrInvalidSubscription = errors.New("invalid subscription")

// Subscription is a named, tagged reference to one feed's location. Values
// are read-only once loaded.
type Subscription struct {
	Name string   `json:"name" yaml:"name"`
	URL  string   `json:"url" yaml:"url"`
	Tags []string `json:"tags" yaml:"tags"`
}

// Source supplies the subscription list for an aggregation.
type Source interface {
	Subscriptions(ctx context.Context) ([]Subscription, error)
}

// Validate checks that the subscription carries a name and a URL.
func (s Subscription) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidSubscription)
	}
	if s.URL == "" {
		return fmt.Errorf("%w: %s: missing url", ErrInvalidSubscription, s.Name)
	}
	return nil
}

// HasAnyTag reports whether any of the subscription's tags appears in tags.
func (s Subscription) HasAnyTag(tags []string) bool {
	for _, tag := range s.Tags {
		if slices.Contains(tags, tag) {
			return true
		}
	}
	return false
}

// Filter narrows subs to the subscriptions whose tags intersect allowed. A
// nil allowed list means no filter and returns subs unchanged; a non-nil
// empty list lets nothing through. Input order is preserved.
func Filter(subs []Subscription, allowed []string) []Subscription {
	if allowed == nil {
		return subs
	}

	filtered := make([]Subscription, 0, len(subs))
	for _, sub := range subs {
		if sub.HasAnyTag(allowed) {
			filtered = append(filtered, sub)
		}
	}
	return filtered
}

// Vocabulary returns every distinct tag used by subs, in first-seen order.
func Vocabulary(subs []Subscription) []string {
	tags := []string{}
	for _, sub := range subs {
		for _, tag := range sub.Tags {
			if !slices.Contains(tags, tag) {
				tags = append(tags, tag)
			}
		}
	}
	return tags
}

// validateAll checks every subscription, reporting the first bad one by
// position.
func validateAll(subs []Subscription) error {
	for i, sub := range subs {
		if err := sub.Validate(); err != nil {
			return fmt.Errorf("subscription %d: %w", i, err)
		}
	}
	return nil
}
