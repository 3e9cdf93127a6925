package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"chatbank-agent/internal/domain"
)

// MemoryStore keeps state, recipients and transfers in process memory. It is
// used by the dev server and by tests; contents are lost on restart.
type MemoryStore struct {
	now func() time.Time

	mu         sync.Mutex
	states     map[string]domain.State
	recipients map[string]map[domain.RecipientKey]domain.Recipient
	transfers  map[string][]domain.Transfer
}

func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		now:        now,
		states:     make(map[string]domain.State),
		recipients: make(map[string]map[domain.RecipientKey]domain.Recipient),
		transfers:  make(map[string][]domain.Transfer),
	}
}

func (m *MemoryStore) GetState(ctx context.Context, userID string) (domain.State, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.State{}, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[userID]
	if !ok {
		return domain.State{}, false, nil
	}
	if st.Expired(m.now()) {
		delete(m.states, userID)
		return domain.State{}, false, nil
	}
	return st, true, nil
}

func (m *MemoryStore) SetState(ctx context.Context, userID string, st domain.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[userID] = st
	return nil
}

func (m *MemoryStore) ClearState(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, userID)
	return nil
}

// ListRecipients returns the user's recipients ordered by account name.
func (m *MemoryStore) ListRecipients(ctx context.Context, userID string) ([]domain.Recipient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Recipient, 0, len(m.recipients[userID]))
	for _, r := range m.recipients[userID] {
		r.Nicknames = append([]string(nil), r.Nicknames...)
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AccountName != out[j].AccountName {
			return out[i].AccountName < out[j].AccountName
		}
		return out[i].AccountNumber < out[j].AccountNumber
	})
	return out, nil
}

func (m *MemoryStore) SaveRecipient(ctx context.Context, userID string, r domain.Recipient) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.AccountNumber == "" || r.BankCode == "" {
		return errors.New("repository: SaveRecipient: account number and bank code are required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	byKey, ok := m.recipients[userID]
	if !ok {
		byKey = make(map[domain.RecipientKey]domain.Recipient)
		m.recipients[userID] = byKey
	}
	if existing, exists := byKey[r.Key()]; exists {
		if existing.RecipientCode == "" && r.RecipientCode != "" {
			existing.RecipientCode = r.RecipientCode
			byKey[r.Key()] = existing
		}
		return nil
	}
	r.Source = domain.SourceLocal
	r.Nicknames = dedupe(r.Nicknames)
	byKey[r.Key()] = r
	return nil
}

func (m *MemoryStore) AddNickname(ctx context.Context, userID string, key domain.RecipientKey, nickname string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	nickname = strings.ToLower(strings.TrimSpace(nickname))
	if nickname == "" {
		return errors.New("repository: AddNickname: nickname must not be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recipients[userID][key]
	if !ok {
		return ErrRecipientNotFound
	}
	r.Nicknames = dedupe(append(r.Nicknames, nickname))
	sort.Strings(r.Nicknames)
	m.recipients[userID][key] = r
	return nil
}

func (m *MemoryStore) SaveTransfer(ctx context.Context, userID string, t domain.Transfer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.Reference == "" {
		return errors.New("repository: SaveTransfer: reference is required")
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = m.now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transfers[userID] = append(m.transfers[userID], t)
	return nil
}

func (m *MemoryStore) ListTransfers(ctx context.Context, userID string, from, to time.Time) ([]domain.Transfer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Transfer
	for _, t := range m.transfers[userID] {
		if !t.CreatedAt.Before(from) && t.CreatedAt.Before(to) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
