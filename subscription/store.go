package subscription

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Custom errors for store operations
var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrDuplicateURL         = errors.New("subscription with this URL already exists")
)

// Store keeps the operator-curated subscription list in SQLite. It
// implements Source, so the server can aggregate straight from it.
type Store struct {
	db *sql.DB
}

// Record is a stored subscription with its bookkeeping fields.
type Record struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Subscription
}

// NewStore opens (and if needed creates) the store at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the subscriptions table if it doesn't exist.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS subscriptions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		url TEXT NOT NULL UNIQUE,
		tags TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create stores a new subscription.
func (s *Store) Create(ctx context.Context, sub Subscription) (*Record, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	if sub.Tags == nil {
		sub.Tags = []string{}
	}

	tagsJSON, err := json.Marshal(sub.Tags)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tags: %w", err)
	}

	record := &Record{
		ID:           uuid.New(),
		CreatedAt:    time.Now().Truncate(0),
		Subscription: sub,
	}

	query := `INSERT INTO subscriptions (id, name, url, tags, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query,
		record.ID.String(),
		sub.Name,
		sub.URL,
		string(tagsJSON),
		record.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil, ErrDuplicateURL
		}
		return nil, fmt.Errorf("failed to insert subscription: %w", err)
	}

	return record, nil
}

// Get retrieves a subscription by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, url, tags, created_at FROM subscriptions WHERE id = ?`,
		id.String(),
	)

	record, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// List returns all stored subscriptions in insertion order.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, url, tags, created_at FROM subscriptions ORDER BY rowid ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subscriptions: %w", err)
	}

	return records, nil
}

// Subscriptions implements Source.
func (s *Store) Subscriptions(ctx context.Context) ([]Subscription, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	subs := make([]Subscription, 0, len(records))
	for _, record := range records {
		subs = append(subs, record.Subscription)
	}
	return subs, nil
}

// Delete removes a subscription.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM subscriptions WHERE id = ?", id.String())
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrSubscriptionNotFound
	}

	return nil
}

// Import adds every subscription in subs, skipping URLs that are already
// stored. It returns the number of subscriptions added.
func (s *Store) Import(ctx context.Context, subs []Subscription) (int, error) {
	if err := validateAll(subs); err != nil {
		return 0, err
	}

	added := 0
	for _, sub := range subs {
		_, err := s.Create(ctx, sub)
		if errors.Is(err, ErrDuplicateURL) {
			continue
		}
		if err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var idStr, name, url, tagsJSON, createdAtStr string
	if err := row.Scan(&idStr, &name, &url, &tagsJSON, &createdAtStr); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan subscription: %w", err)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse subscription ID: %w", err)
	}

	tags := []string{}
	if err := json.Unmarshal([]byte(tagsJSON), &tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse subscription created_at: %w", err)
	}

	return &Record{
		ID:        id,
		CreatedAt: createdAt,
		Subscription: Subscription{
			Name: name,
			URL:  url,
			Tags: tags,
		},
	}, nil
}
