package cache

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite is a cache that persists records in a SQLite database, so a
// restarted process can reuse bodies fetched shortly before.
type SQLite struct {
	db     *sql.DB
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewSQLite opens (and if needed creates) a cache database at dbPath.
func NewSQLite(dbPath string, ttl time.Duration, opts ...Option) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	o := buildOptions(opts)
	c := &SQLite{
		db:     db,
		ttl:    NormalizeTTL(ttl),
		now:    o.now,
		logger: o.logger,
	}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return c, nil
}

// initSchema creates the responses table if it doesn't exist.
func (c *SQLite) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS responses (
		url TEXT PRIMARY KEY,
		body BLOB NOT NULL,
		content_type TEXT NOT NULL DEFAULT '',
		fetched_at INTEGER NOT NULL,
		ttl_ms INTEGER NOT NULL
	);
	`

	_, err := c.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (c *SQLite) Close() error {
	return c.db.Close()
}

// Get returns the stored response for url while it is fresh. Database
// errors are logged and reported as a miss.
func (c *SQLite) Get(ctx context.Context, url string) (Response, bool) {
	query := "SELECT body, content_type, fetched_at, ttl_ms FROM responses WHERE url = ?"

	var body []byte
	var contentType string
	var fetchedAtNano, ttlMillis int64
	err := c.db.QueryRowContext(ctx, query, url).Scan(&body, &contentType, &fetchedAtNano, &ttlMillis)
	if err == sql.ErrNoRows {
		return Response{}, false
	}
	if err != nil {
		c.logger.Error("cache lookup failed", "backend", "sqlite", "url", url, "error", err)
		return Response{}, false
	}

	record := Record{
		Response:  Response{Body: body, ContentType: contentType},
		FetchedAt: time.Unix(0, fetchedAtNano),
		TTL:       time.Duration(ttlMillis) * time.Millisecond,
	}
	if !record.Fresh(c.now()) {
		return Response{}, false
	}

	return record.Response, true
}

// Put stores resp under url, replacing any previous record.
func (c *SQLite) Put(ctx context.Context, url string, resp Response) {
	query := "INSERT OR REPLACE INTO responses (url, body, content_type, fetched_at, ttl_ms) VALUES (?, ?, ?, ?, ?)"

	body := resp.Body
	if body == nil {
		body = []byte{}
	}

	_, err := c.db.ExecContext(ctx, query,
		url,
		body,
		resp.ContentType,
		c.now().UnixNano(),
		c.ttl.Milliseconds(),
	)
	if err != nil {
		c.logger.Error("cache store failed", "backend", "sqlite", "url", url, "error", err)
	}
}

// Purge deletes every expired record and returns how many were removed.
func (c *SQLite) Purge(ctx context.Context) (int64, error) {
	query := "DELETE FROM responses WHERE fetched_at + ttl_ms * 1000000 <= ?"
	result, err := c.db.ExecContext(ctx, query, c.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return removed, nil
}
