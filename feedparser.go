package feedwatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/singleflight"

	"github.com/pevans/feedwatch/cache"
	"github.com/pevans/feedwatch/metrics"
	"github.com/pevans/feedwatch/ratelimit"
	"github.com/pevans/feedwatch/subscription"
)

// Errors wrapped inside a FetchError.
var (
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
	ErrMissingHost       = errors.New("missing host in URL")
	ErrUnexpectedStatus  = errors.New("unexpected HTTP status")
	ErrBodyTooLarge      = errors.New("response body too large")
)

// feedAccept lists the media types a feed endpoint may answer with.
const feedAccept = "application/rss+xml, application/atom+xml, application/feed+json, " +
	"application/xml;q=0.9, text/xml;q=0.9, */*;q=0.8"

// titlePolicy strips any markup feeds embed in item titles.
var titlePolicy = bluemonday.StrictPolicy()

// FetcherConfig holds configuration for the fetcher.
type FetcherConfig struct {
	// User-Agent header sent with every request
	UserAgent string
	// Largest accepted response body
	MaxBodyBytes int64
	// Freshness window advertised in the Cache-Control request header;
	// zero selects cache.DefaultTTL
	CacheTTL time.Duration
	// Upper bound on one network fetch, which may be shared by several
	// callers
	RequestTimeout time.Duration
	// Minimum spacing between requests to one host; zero disables limiting
	RateInterval time.Duration
}

// DefaultFetcherConfig returns the default fetcher configuration.
func DefaultFetcherConfig() *FetcherConfig {
	return &FetcherConfig{
		UserAgent:    "feedwatch/1.0 (+https://github.com/pevans/feedwatch)",
		MaxBodyBytes:   10 << 20,
		CacheTTL:       cache.DefaultTTL,
		RequestTimeout: 30 * time.Second,
	}
}

// Fetcher retrieves and parses the feed behind one subscription, going
// through a cache first. Fetcher is safe for concurrent use.
type Fetcher struct {
	cache   cache.Cache
	client  *http.Client
	config  *FetcherConfig
	limiter *ratelimit.HostLimiter
	logger  *slog.Logger

	// Collapses concurrent cache misses on the same URL into one request
	inflight singleflight.Group
}

// NewFetcher creates a fetcher. A nil cache selects an in-memory cache, a
// nil client selects a client with a conservative timeout, and a nil config
// selects DefaultFetcherConfig.
func NewFetcher(c cache.Cache, client *http.Client, config *FetcherConfig, logger *slog.Logger) *Fetcher {
	if config == nil {
		config = DefaultFetcherConfig()
	}
	cfg := *config
	cfg.CacheTTL = cache.NormalizeTTL(cfg.CacheTTL)
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultFetcherConfig().RequestTimeout
	}
	config = &cfg

	if c == nil {
		c = cache.NewMemory(config.CacheTTL)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}

	f := &Fetcher{
		cache:  c,
		client: client,
		config: config,
		logger: logger,
	}
	if config.RateInterval > 0 {
		f.limiter = ratelimit.NewHostLimiter(config.RateInterval)
	}
	return f
}

// Fetch returns the entries of sub's feed in document order. Any failure is
// reported as a *FetchError and no entries are returned with it.
func (f *Fetcher) Fetch(ctx context.Context, sub subscription.Subscription) ([]FeedEntry, error) {
	entries, fetchErr := f.fetch(ctx, sub.URL)
	if fetchErr != nil {
		metrics.RecordFetchFailure(string(fetchErr.Category))
		return nil, fetchErr
	}

	metrics.RecordFetchSuccess()
	return entries, nil
}

func (f *Fetcher) fetch(ctx context.Context, feedURL string) ([]FeedEntry, *FetchError) {
	// URL problems are detected before any transport is attempted
	if err := validateFeedURL(feedURL); err != nil {
		return nil, newFetchError(CategoryURL, feedURL, err)
	}

	resp, hit := f.cache.Get(ctx, feedURL)
	metrics.RecordCacheLookup(hit)
	if hit {
		f.logger.Debug("feed served from cache", "url", feedURL)
	} else {
		var err error
		resp, err = f.download(ctx, feedURL)
		if err != nil {
			return nil, newFetchError(CategoryTransport, feedURL, err)
		}
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, newFetchError(CategoryFormat, feedURL, fmt.Errorf("failed to parse feed: %w", err))
	}

	return FeedToEntries(feed), nil
}

// download performs the network fetch for a cache miss and stores the body
// before anyone parses it. Callers waiting on the same URL share one request,
// but each stops waiting when its own ctx is done.
func (f *Fetcher) download(ctx context.Context, feedURL string) (cache.Response, error) {
	flight := f.inflight.DoChan(feedURL, func() (any, error) {
		// No single caller owns the request, so none may cancel it
		shared := context.WithoutCancel(ctx)
		reqCtx, cancel := context.WithTimeout(shared, f.config.RequestTimeout)
		defer cancel()

		resp, err := f.get(reqCtx, feedURL)
		if err != nil {
			return nil, err
		}

		f.cache.Put(shared, feedURL, resp)
		return resp, nil
	})

	select {
	case <-ctx.Done():
		return cache.Response{}, fmt.Errorf("request failed: %w", ctx.Err())
	case res := <-flight:
		if res.Err != nil {
			return cache.Response{}, res.Err
		}
		if res.Shared {
			f.logger.Debug("joined in-flight fetch", "url", feedURL)
		}
		return res.Val.(cache.Response), nil
	}
}

// get issues the HTTP GET for feedURL.
func (f *Fetcher) get(ctx context.Context, feedURL string) (cache.Response, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, feedURL); err != nil {
			return cache.Response{}, fmt.Errorf("rate limiting failed: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return cache.Response{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", feedAccept)
	req.Header.Set("Cache-Control", fmt.Sprintf("max-age=%d", int(f.config.CacheTTL.Seconds())))

	start := time.Now()
	res, err := f.client.Do(req)
	if err != nil {
		return cache.Response{}, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return cache.Response{}, fmt.Errorf("%w: %s", ErrUnexpectedStatus, res.Status)
	}

	// Read one byte past the limit so oversized bodies are detectable
	body, err := io.ReadAll(io.LimitReader(res.Body, f.config.MaxBodyBytes+1))
	if err != nil {
		return cache.Response{}, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(body)) > f.config.MaxBodyBytes {
		return cache.Response{}, fmt.Errorf("%w: over %d bytes", ErrBodyTooLarge, f.config.MaxBodyBytes)
	}

	metrics.RecordNetworkFetch(time.Since(start).Seconds())
	f.logger.Debug("feed downloaded",
		"url", feedURL,
		"status", res.StatusCode,
		"bytes", len(body),
		"duration", time.Since(start),
	)

	return cache.Response{
		Body:        body,
		ContentType: res.Header.Get("Content-Type"),
	}, nil
}

// validateFeedURL checks that feedURL is an absolute http(s) URL.
func validateFeedURL(feedURL string) error {
	parsed, err := url.Parse(feedURL)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: %q", ErrUnsupportedScheme, parsed.Scheme)
	}
	if parsed.Host == "" {
		return ErrMissingHost
	}
	return nil
}

// FeedItemToEntry converts an RSS, Atom or JSON Feed item to a FeedEntry.
// gofeed normalizes all three formats into a common structure.
func FeedItemToEntry(item *gofeed.Item) FeedEntry {
	// Link: <link> (RSS) or <link rel="alternate"> (Atom), falling back to
	// the first of any other links
	link := item.Link
	if link == "" && len(item.Links) > 0 {
		link = item.Links[0]
	}

	// Published: <pubDate> (RSS) or <published> (Atom), falling back to
	// <updated>. The raw text is kept even when it failed to parse.
	var published *time.Time
	raw := item.Published
	switch {
	case item.PublishedParsed != nil:
		t := *item.PublishedParsed
		published = &t
	case item.UpdatedParsed != nil:
		t := *item.UpdatedParsed
		published = &t
		raw = item.Updated
	case raw == "":
		raw = item.Updated
	}

	return NewFeedEntry(cleanTitle(item.Title), link, published, raw)
}

// FeedToEntries converts every item of feed, in document order.
func FeedToEntries(feed *gofeed.Feed) []FeedEntry {
	entries := make([]FeedEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		entries = append(entries, FeedItemToEntry(item))
	}
	return entries
}

// cleanTitle drops markup and collapses whitespace.
func cleanTitle(title string) string {
	text := html.UnescapeString(titlePolicy.Sanitize(title))
	return strings.Join(strings.Fields(text), " ")
}
