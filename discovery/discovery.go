// Package discovery finds the feeds a website advertises, so a subscription
// can be added from a homepage URL instead of a feed URL.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoFeeds is returned when a page advertises no feeds.
var ErrNoFeeds = errors.New("no feeds advertised on page")

// feedTypes are the link types that identify a feed.
var feedTypes = map[string]bool{
	"application/rss+xml":   true,
	"application/atom+xml":  true,
	"application/feed+json": true,
	"application/json":      true,
}

// Feed is a feed advertised by a page.
type Feed struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

// Result is what a page told us about itself and its feeds.
type Result struct {
	// Page title, whitespace-normalized
	Title string
	Feeds []Feed
}

// Discoverer fetches pages and extracts their feed links.
type Discoverer struct {
	client    *http.Client
	userAgent string
}

// New creates a discoverer. A nil client selects one with a 10 second
// timeout.
func New(client *http.Client, userAgent string) *Discoverer {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Discoverer{client: client, userAgent: userAgent}
}

// Discover fetches pageURL and returns the feeds it advertises, in document
// order with duplicates removed. It returns ErrNoFeeds when there are none.
func (d *Discoverer) Discover(ctx context.Context, pageURL string) (*Result, error) {
	doc, err := d.FetchHTML(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	result, err := ExtractFeeds(doc, pageURL)
	if err != nil {
		return nil, err
	}
	if len(result.Feeds) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFeeds, pageURL)
	}
	return result, nil
}

// FetchHTML fetches and parses the HTML document at pageURL.
func (d *Discoverer) FetchHTML(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// ExtractFeeds reads the feed links out of doc. Relative hrefs are resolved
// against pageURL, or against the document's <base> when it has one.
func ExtractFeeds(doc *goquery.Document, pageURL string) (*Result, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL: %w", err)
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if parsed, err := base.Parse(strings.TrimSpace(href)); err == nil {
			base = parsed
		}
	}

	result := &Result{
		Title: strings.Join(strings.Fields(doc.Find("title").First().Text()), " "),
		Feeds: []Feed{},
	}

	seen := make(map[string]bool)
	doc.Find("link[href]").Each(func(_ int, s *goquery.Selection) {
		if !hasRel(s, "alternate") {
			return
		}
		linkType := strings.ToLower(strings.TrimSpace(s.AttrOr("type", "")))
		if !feedTypes[linkType] {
			return
		}

		href := strings.TrimSpace(s.AttrOr("href", ""))
		resolved, err := base.Parse(href)
		if err != nil || href == "" {
			return
		}
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}

		feedURL := resolved.String()
		if seen[feedURL] {
			return
		}
		seen[feedURL] = true

		result.Feeds = append(result.Feeds, Feed{
			URL:   feedURL,
			Title: strings.Join(strings.Fields(s.AttrOr("title", "")), " "),
			Type:  linkType,
		})
	})

	return result, nil
}

// hasRel reports whether the rel attribute lists want.
func hasRel(s *goquery.Selection, want string) bool {
	for _, rel := range strings.Fields(strings.ToLower(s.AttrOr("rel", ""))) {
		if rel == want {
			return true
		}
	}
	return false
}
