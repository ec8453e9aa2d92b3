package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pevans/feedwatch"
	"github.com/pevans/feedwatch/cache"
	"github.com/pevans/feedwatch/render"
	"github.com/pevans/feedwatch/subscription"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// staticSource serves a fixed subscription list or error.
type staticSource struct {
	subs []subscription.Subscription
	err  error
}

func (s staticSource) Subscriptions(context.Context) ([]subscription.Subscription, error) {
	return s.subs, s.err
}

func rssDocument(title, pubDate string) string {
	return fmt.Sprintf(`<?xml version="1.0"?>
<rss version="2.0"><channel><title>Feed</title>
<item><title>%s</title><link>http://example.com/%s</link><pubDate>%s</pubDate></item>
</channel></rss>`, title, title, pubDate)
}

// setupTestAPIServer serves two feeds tagged x and y and returns a router
// over them.
func setupTestAPIServer(t *testing.T) *gin.Engine {
	t.Helper()

	feeds := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/one":
			_, _ = w.Write([]byte(rssDocument("A", "Tue, 02 Jan 2024 00:00:00 +0000")))
		case "/two":
			_, _ = w.Write([]byte(rssDocument("B", "Fri, 05 Jan 2024 00:00:00 +0000")))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(feeds.Close)

	source := staticSource{subs: []subscription.Subscription{
		{Name: "One", URL: feeds.URL + "/one", Tags: []string{"x"}},
		{Name: "Two", URL: feeds.URL + "/two", Tags: []string{"y"}},
	}}

	return newTestRouter(source)
}

func newTestRouter(source subscription.Source) *gin.Engine {
	return newTestRouterWithTTL(source, 0)
}

func newTestRouterWithTTL(source subscription.Source, ttl time.Duration) *gin.Engine {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fetcher := feedwatch.NewFetcher(cache.NewMemory(ttl), nil, nil, logger)
	service := feedwatch.NewService(feedwatch.NewAggregator(fetcher, nil, logger), logger)
	return NewAPIServer(service, source, ttl, logger).SetupRouter()
}

func serve(router *gin.Engine, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func itemTitles(t *testing.T, w *httptest.ResponseRecorder) []string {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(w.Body)
	require.NoError(t, err)

	var titles []string
	doc.Find("div.feed-item strong a").Each(func(_ int, s *goquery.Selection) {
		titles = append(titles, s.Text())
	})
	return titles
}

// TestHandleIndex verifies the index lists every item newest first with
// the page headers set
func TestHandleIndex(t *testing.T) {
	router := setupTestAPIServer(t)

	w := serve(router, http.MethodGet, "/")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=600", w.Header().Get("Cache-Control"))
	assert.Equal(t, []string{"B", "A"}, itemTitles(t, w))
}

// TestHandleIndex_CacheControlFollowsTTL verifies pages advertise the
// configured cache window
func TestHandleIndex_CacheControlFollowsTTL(t *testing.T) {
	router := newTestRouterWithTTL(staticSource{subs: []subscription.Subscription{}}, 5*time.Minute)

	w := serve(router, http.MethodGet, "/")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "public, max-age=300", w.Header().Get("Cache-Control"))
}

// TestHandleTag verifies the tag route narrows to matching subscriptions
func TestHandleTag(t *testing.T) {
	router := setupTestAPIServer(t)

	w := serve(router, http.MethodGet, "/tag/x")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "public, max-age=600", w.Header().Get("Cache-Control"))

	doc, err := goquery.NewDocumentFromReader(w.Body)
	require.NoError(t, err)
	assert.Contains(t, doc.Find("p.filter").Text(), "Filtering by tags: x")

	var titles []string
	doc.Find("div.feed-item strong a").Each(func(_ int, s *goquery.Selection) {
		titles = append(titles, s.Text())
	})
	assert.Equal(t, []string{"A"}, titles)
}

// TestHandleTag_Unknown verifies an unknown tag renders an empty page
func TestHandleTag_Unknown(t *testing.T) {
	router := setupTestAPIServer(t)

	w := serve(router, http.MethodGet, "/tag/nope")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, itemTitles(t, w))
}

// TestHandleIndex_SourceError verifies subscription load failures respond
// with the error body
func TestHandleIndex_SourceError(t *testing.T) {
	router := newTestRouter(staticSource{
		err: fmt.Errorf("%w: missing url", subscription.ErrInvalidSubscription),
	})

	w := serve(router, http.MethodGet, "/")

	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_subscriptions", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "missing url")
}

// TestHandleListItems verifies the JSON API returns sorted items
func TestHandleListItems(t *testing.T) {
	router := setupTestAPIServer(t)

	w := serve(router, http.MethodGet, "/api/v1/items")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	var resp ListItemsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, defaultLimit, resp.Limit)
	assert.Equal(t, 0, resp.Offset)
	assert.Nil(t, resp.Tags)
	assert.Equal(t, []string{"x", "y"}, resp.Vocabulary)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "B", resp.Items[0].Title)
	assert.Equal(t, "Two", resp.Items[0].Subscription)
	assert.Equal(t, "2024-01-05", resp.Items[0].Date)
}

// TestHandleListItems_TagFilter verifies repeated tag parameters form the
// allow-list
func TestHandleListItems_TagFilter(t *testing.T) {
	router := setupTestAPIServer(t)

	tests := []struct {
		query  string
		titles []string
	}{
		{query: "?tag=x", titles: []string{"A"}},
		{query: "?tag=y", titles: []string{"B"}},
		{query: "?tag=x&tag=y", titles: []string{"B", "A"}},
		{query: "?tag=z", titles: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := serve(router, http.MethodGet, "/api/v1/items"+tt.query)
			require.Equal(t, http.StatusOK, w.Code)

			var resp ListItemsResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

			titles := []string{}
			for _, item := range resp.Items {
				titles = append(titles, item.Title)
			}
			assert.Equal(t, tt.titles, titles)
			assert.NotEmpty(t, resp.Tags)
		})
	}
}

// TestHandleListItems_Pagination verifies limit and offset
func TestHandleListItems_Pagination(t *testing.T) {
	router := setupTestAPIServer(t)

	w := serve(router, http.MethodGet, "/api/v1/items?limit=1&offset=1")
	require.Equal(t, http.StatusOK, w.Code)

	var resp ListItemsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "A", resp.Items[0].Title)

	w = serve(router, http.MethodGet, "/api/v1/items?offset=10")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Items)
}

// TestHandleListItems_InvalidParameters verifies bad pagination parameters
// are rejected
func TestHandleListItems_InvalidParameters(t *testing.T) {
	router := setupTestAPIServer(t)

	for _, query := range []string{"?limit=0", "?limit=abc", "?offset=-1"} {
		w := serve(router, http.MethodGet, "/api/v1/items"+query)
		assert.Equal(t, http.StatusBadRequest, w.Code, query)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "invalid_parameter", resp.Error.Code)
	}
}

// TestHandleListItems_Preflight verifies CORS preflight requests succeed
func TestHandleListItems_Preflight(t *testing.T) {
	router := setupTestAPIServer(t)

	w := serve(router, http.MethodOptions, "/api/v1/items")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "GET, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
}

// TestHandleHealth verifies the health endpoint
func TestHandleHealth(t *testing.T) {
	router := newTestRouter(staticSource{err: errors.New("unused")})

	w := serve(router, http.MethodGet, "/healthz")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

// TestMetricsEndpoint verifies Prometheus metrics are exposed after an
// aggregation
func TestMetricsEndpoint(t *testing.T) {
	router := setupTestAPIServer(t)
	serve(router, http.MethodGet, "/")

	w := serve(router, http.MethodGet, "/metrics")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "feedwatch_fetch_total")
	assert.Contains(t, w.Body.String(), "feedwatch_aggregation_duration_seconds")
}

// TestPaginate verifies slicing at the boundaries
func TestPaginate(t *testing.T) {
	items := []render.Item{{Title: "1"}, {Title: "2"}, {Title: "3"}}

	assert.Len(t, paginate(items, 0, 2), 2)
	assert.Equal(t, "3", paginate(items, 2, 2)[0].Title)
	assert.Len(t, paginate(items, 1, 100), 2)
	assert.NotNil(t, paginate(items, 3, 10))
	assert.Empty(t, paginate(nil, 0, 10))
}
