// Package server exposes the aggregated feed over HTTP.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pevans/feedwatch"
	"github.com/pevans/feedwatch/render"
	"github.com/pevans/feedwatch/subscription"
)

const (
	defaultLimit = 50
	maxLimit     = 1000

	shutdownTimeout = 30 * time.Second
)

// APIServer serves the aggregate as HTML pages and a JSON API.
type APIServer struct {
	service  *feedwatch.Service
	source   subscription.Source
	cacheTTL time.Duration
	logger   *slog.Logger
}

// NewAPIServer creates a server that reads subscriptions from source on
// every request and aggregates them with service. cacheTTL is the fetch
// cache's freshness window, advertised to clients of the HTML pages.
func NewAPIServer(service *feedwatch.Service, source subscription.Source, cacheTTL time.Duration, logger *slog.Logger) *APIServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIServer{
		service:  service,
		source:   source,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// SetupRouter configures the Gin router with all routes
func (s *APIServer) SetupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())

	router.GET("/", s.HandleIndex)
	router.GET("/tag/:tag", s.HandleTag)
	router.GET("/healthz", s.HandleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	api.Use(corsMiddleware())
	api.GET("/items", s.HandleListItems)
	api.OPTIONS("/items", func(c *gin.Context) {})

	return router
}

// ListItemsResponse is the response for GET /api/v1/items.
type ListItemsResponse struct {
	Items      []render.Item `json:"items"`
	Total      int           `json:"total"`
	Limit      int           `json:"limit"`
	Offset     int           `json:"offset"`
	Tags       []string      `json:"tags,omitempty"`
	Vocabulary []string      `json:"vocabulary"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error code and message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HandleIndex handles GET /: every subscription, unfiltered.
func (s *APIServer) HandleIndex(c *gin.Context) {
	s.renderPage(c, nil)
}

// HandleTag handles GET /tag/:tag: only subscriptions carrying the tag.
func (s *APIServer) HandleTag(c *gin.Context) {
	s.renderPage(c, []string{c.Param("tag")})
}

func (s *APIServer) renderPage(c *gin.Context, allowed []string) {
	subs, ok := s.loadSubscriptions(c)
	if !ok {
		return
	}

	items := s.service.Aggregate(c.Request.Context(), subs, allowed)

	var buf bytes.Buffer
	if err := render.HTML(&buf, render.NewPage(items, subs, allowed)); err != nil {
		s.logger.Error("failed to render page", "error", err)
		writeError(c, http.StatusInternalServerError, "internal_error", "Failed to render page")
		return
	}

	c.Header("Cache-Control", render.CacheControl(s.cacheTTL))
	c.Data(http.StatusOK, render.ContentTypeHTML, buf.Bytes())
}

// HandleListItems handles GET /api/v1/items. Repeated tag parameters form
// the allow-list; without any, nothing is filtered.
func (s *APIServer) HandleListItems(c *gin.Context) {
	var allowed []string
	if tags, ok := c.GetQueryArray("tag"); ok {
		allowed = tags
	}

	limit, ok := parseIntParam(c, "limit", defaultLimit, 1)
	if !ok {
		return
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset, ok := parseIntParam(c, "offset", 0, 0)
	if !ok {
		return
	}

	subs, ok := s.loadSubscriptions(c)
	if !ok {
		return
	}

	items := s.service.Aggregate(c.Request.Context(), subs, allowed)
	page := render.NewPage(items, subs, allowed)
	view := render.NewItemsResponse(page)

	c.JSON(http.StatusOK, ListItemsResponse{
		Items:      paginate(view.Items, offset, limit),
		Total:      view.Total,
		Limit:      limit,
		Offset:     offset,
		Tags:       view.Tags,
		Vocabulary: view.Vocabulary,
	})
}

// HandleHealth handles GET /healthz.
func (s *APIServer) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// loadSubscriptions reads the subscription list, writing an error response
// and returning false when it cannot.
func (s *APIServer) loadSubscriptions(c *gin.Context) ([]subscription.Subscription, bool) {
	subs, err := s.source.Subscriptions(c.Request.Context())
	if err != nil {
		s.logger.Error("failed to load subscriptions", "error", err)

		code := "internal_error"
		if errors.Is(err, subscription.ErrInvalidSubscription) {
			code = "invalid_subscriptions"
		}
		writeError(c, http.StatusInternalServerError, code, "Failed to load subscriptions: "+err.Error())
		return nil, false
	}
	return subs, true
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *APIServer) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", addr)
		errChan <- srv.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// requestLogger logs each request once it has been served.
func (s *APIServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info("request served",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}

func writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{
		Error: ErrorDetail{Code: code, Message: message},
	})
}

// parseIntParam reads an optional integer query parameter no smaller than
// minValue, writing a 400 response and returning false when it is invalid.
func parseIntParam(c *gin.Context, name string, def, minValue int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}

	value, err := strconv.Atoi(raw)
	if err != nil || value < minValue {
		writeError(c, http.StatusBadRequest, "invalid_parameter", fmt.Sprintf("Invalid %s parameter", name))
		return 0, false
	}
	return value, true
}

// paginate applies offset and limit to items.
func paginate(items []render.Item, offset, limit int) []render.Item {
	if offset >= len(items) {
		return []render.Item{}
	}

	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
