package recipients

import (
	"context"
	"sort"
	"sync"
	"time"

	"chatbank-agent/internal/domain"
)

// Entry is one user's merged recipient list as of FetchedAt.
type Entry struct {
	UserID     string             `json:"user_id"`
	Recipients []domain.Recipient `json:"recipients"`
	FetchedAt  time.Time          `json:"fetched_at"`
}

// EntryStore keeps cache entries. Validity is decided by the Cache, not the
// store.
type EntryStore interface {
	Get(ctx context.Context, userID string) (Entry, bool, error)
	Put(ctx context.Context, e Entry) error
	Delete(ctx context.Context, userID string) error
	DeleteAll(ctx context.Context) error
	All(ctx context.Context) ([]Entry, error)
}

// MemoryStore is a process-local EntryStore.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Get(_ context.Context, userID string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[userID]
	return e, ok, nil
}

func (s *MemoryStore) Put(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.UserID] = e
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
	return nil
}

func (s *MemoryStore) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]Entry)
	return nil
}

func (s *MemoryStore) All(_ context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}
