// Package render turns aggregated feed items into HTML pages, terminal text
// and JSON documents.
package render

import (
	"time"

	"github.com/pevans/feedwatch"
	"github.com/pevans/feedwatch/subscription"
)

// Page is everything a renderer needs for one view of the aggregate.
type Page struct {
	// Newest first, as produced by feedwatch.SortByPublished
	Items []feedwatch.AggregatedItem
	// The full subscription list, before filtering
	Subscriptions []subscription.Subscription
	// Distinct tags across Subscriptions in first-seen order
	Vocabulary []string
	// Tag filter in effect; nil when unfiltered
	AllowedTags []string
}

// NewPage builds a page, deriving the tag vocabulary from subs.
func NewPage(items []feedwatch.AggregatedItem, subs []subscription.Subscription, allowed []string) Page {
	return Page{
		Items:         items,
		Subscriptions: subs,
		Vocabulary:    subscription.Vocabulary(subs),
		AllowedTags:   allowed,
	}
}

// Filtered reports whether a tag filter is in effect.
func (p Page) Filtered() bool {
	return p.AllowedTags != nil
}

// Item is the flattened view of one aggregated item.
type Item struct {
	Title           string     `json:"title"`
	Link            string     `json:"link"`
	Published       *time.Time `json:"published,omitempty"`
	Date            string     `json:"date"`
	Subscription    string     `json:"subscription"`
	SubscriptionURL string     `json:"subscription_url"`
	Tags            []string   `json:"tags"`
}

// ViewItems flattens the page's items in order.
func (p Page) ViewItems() []Item {
	out := make([]Item, 0, len(p.Items))
	for _, it := range p.Items {
		tags := it.Subscription.Tags
		if tags == nil {
			tags = []string{}
		}
		out = append(out, Item{
			Title:           it.Entry.Title,
			Link:            it.Entry.Link,
			Published:       it.Entry.Published,
			Date:            it.Entry.PublishedDate(),
			Subscription:    it.Subscription.Name,
			SubscriptionURL: it.Subscription.URL,
			Tags:            tags,
		})
	}
	return out
}
