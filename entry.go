package feedwatch

import (
	"time"

	"github.com/pevans/feedwatch/subscription"
)

// NoTitle stands in for entries whose feed item carries no title.
const NoTitle = "(No title)"

// UnknownDate is shown for entries without a usable publication time.
const UnknownDate = "UNKNOWN"

// FeedEntry is one item of a fetched feed. Title and Link are always usable
// strings; Published is nil when the feed gave no date or an unparsable
// one, and PublishedRaw keeps whatever text the feed had for diagnostics.
type FeedEntry struct {
	Title        string     `json:"title"`
	Link         string     `json:"link"`
	Published    *time.Time `json:"published,omitempty"`
	PublishedRaw string     `json:"published_raw,omitempty"`
}

// NewFeedEntry builds an entry, substituting NoTitle for an empty title.
func NewFeedEntry(title, link string, published *time.Time, publishedRaw string) FeedEntry {
	if title == "" {
		title = NoTitle
	}
	return FeedEntry{
		Title:        title,
		Link:         link,
		Published:    published,
		PublishedRaw: publishedRaw,
	}
}

// HasPublished reports whether the entry has a usable publication time.
func (e FeedEntry) HasPublished() bool {
	return e.Published != nil
}

// PublishedDate formats the publication day as YYYY-MM-DD, or UnknownDate.
func (e FeedEntry) PublishedDate() string {
	if e.Published == nil {
		return UnknownDate
	}
	return e.Published.Format("2006-01-02")
}

// AggregatedItem pairs an entry with the subscription it came from. Both
// are held by value.
type AggregatedItem struct {
	Entry        FeedEntry                 `json:"entry"`
	Subscription subscription.Subscription `json:"subscription"`
}
