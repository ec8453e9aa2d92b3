package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process cache. Expired records are dropped lazily when
// they are next read, or in bulk by Purge.
type Memory struct {
	mu      sync.RWMutex
	records map[string]Record
	ttl     time.Duration
	now     func() time.Time
}

// NewMemory creates an in-memory cache with the given freshness window. A
// non-positive ttl selects DefaultTTL.
func NewMemory(ttl time.Duration, opts ...Option) *Memory {
	o := buildOptions(opts)
	return &Memory{
		records: make(map[string]Record),
		ttl:     NormalizeTTL(ttl),
		now:     o.now,
	}
}

// Get returns the cached response for url while it is fresh.
func (m *Memory) Get(_ context.Context, url string) (Response, bool) {
	m.mu.RLock()
	record, ok := m.records[url]
	m.mu.RUnlock()

	if !ok {
		return Response{}, false
	}
	if !record.Fresh(m.now()) {
		m.mu.Lock()
		// Another goroutine may have stored a fresh record meanwhile
		if current, ok := m.records[url]; ok && current.FetchedAt.Equal(record.FetchedAt) {
			delete(m.records, url)
		}
		m.mu.Unlock()
		return Response{}, false
	}

	return record.Response, true
}

// Put stores resp under url, stamped with the current time.
func (m *Memory) Put(_ context.Context, url string, resp Response) {
	record := Record{
		Response:  resp,
		FetchedAt: m.now(),
		TTL:       m.ttl,
	}

	m.mu.Lock()
	m.records[url] = record
	m.mu.Unlock()
}

// Purge removes every expired record and returns how many were removed.
func (m *Memory) Purge() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for url, record := range m.records {
		if !record.Fresh(now) {
			delete(m.records, url)
			removed++
		}
	}
	return removed
}

// Len returns the number of records held, fresh or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
