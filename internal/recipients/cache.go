package recipients

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"chatbank-agent/internal/domain"
	"chatbank-agent/internal/logger"
	"chatbank-agent/internal/observability"
)

const DefaultTTL = 15 * time.Minute

// Source lists the recipients one store knows for a user.
type Source interface {
	ListRecipients(ctx context.Context, userID string) ([]domain.Recipient, error)
}

// DuplicateCheck is the answer to "is this account already saved?".
type DuplicateCheck struct {
	IsDuplicate bool
	Existing    *domain.Recipient
}

// Stats describes the entries currently held.
type Stats struct {
	Active     int
	Expired    int
	TTLMinutes int
	Keys       []string
}

// Cache merges a user's local and external recipients and keeps the result
// for a TTL. Concurrent misses are collapsed by a single process-wide mutex,
// so a burst of lookups makes at most one fetch per source.
type Cache struct {
	local    Source
	external Source
	store    EntryStore
	ttl      time.Duration
	now      func() time.Time
	log      logger.Logger
	metrics  *observability.Metrics

	mu sync.Mutex
}

type Option func(*Cache)

func WithTTL(ttl time.Duration) Option { return func(c *Cache) { c.ttl = ttl } }

func WithStore(s EntryStore) Option { return func(c *Cache) { c.store = s } }

func WithClock(now func() time.Time) Option { return func(c *Cache) { c.now = now } }

func WithLogger(l logger.Logger) Option { return func(c *Cache) { c.log = l } }

func WithMetrics(m *observability.Metrics) Option { return func(c *Cache) { c.metrics = m } }

func New(local, external Source, opts ...Option) (*Cache, error) {
	if local == nil {
		return nil, errors.New("recipients: local source must not be nil")
	}
	if external == nil {
		return nil, errors.New("recipients: external source must not be nil")
	}
	c := &Cache{
		local:    local,
		external: external,
		store:    NewMemoryStore(),
		ttl:      DefaultTTL,
		now:      time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	if c.ttl <= 0 {
		return nil, errors.New("recipients: ttl must be positive")
	}
	if c.store == nil {
		return nil, errors.New("recipients: entry store must not be nil")
	}
	c.log = logger.OrNop(c.log)
	return c, nil
}

func (c *Cache) fresh(e Entry) bool {
	return c.now().Sub(e.FetchedAt) < c.ttl
}

// Recipients returns the merged list for userID, fetching both sources when
// the cached entry is missing or stale.
func (c *Cache) Recipients(ctx context.Context, userID string) ([]domain.Recipient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e, ok := c.lookup(ctx, userID); ok {
		return e.Recipients, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have filled the entry while we waited.
	if e, ok := c.lookup(ctx, userID); ok {
		return e.Recipients, nil
	}

	localList := c.fetch(ctx, "local", userID, c.local)
	externalList := c.fetch(ctx, "external", userID, c.external)
	merged := merge(localList, externalList)

	entry := Entry{UserID: userID, Recipients: merged, FetchedAt: c.now()}
	if err := c.store.Put(ctx, entry); err != nil {
		c.log.Warn("recipient cache write failed", map[string]interface{}{
			"user_id": userID, "error": err.Error(),
		})
	}
	return merged, nil
}

func (c *Cache) lookup(ctx context.Context, userID string) (Entry, bool) {
	e, ok, err := c.store.Get(ctx, userID)
	if err != nil {
		c.log.Warn("recipient cache read failed", map[string]interface{}{
			"user_id": userID, "error": err.Error(),
		})
		return Entry{}, false
	}
	if !ok || !c.fresh(e) {
		return Entry{}, false
	}
	return e, true
}

// fetch treats a failing source as empty so the other source still serves.
func (c *Cache) fetch(ctx context.Context, name, userID string, src Source) []domain.Recipient {
	list, err := src.ListRecipients(ctx, userID)
	if err != nil {
		c.metrics.RecipientFetch(ctx, name, "error")
		c.log.Warn("recipient source failed, treating as empty", map[string]interface{}{
			"user_id": userID, "source": name, "error": err.Error(),
		})
		return nil
	}
	c.metrics.RecipientFetch(ctx, name, "ok")
	return list
}

// merge keeps the first record per (account, bank), local before external.
// A local record without a recipient code borrows the provider's.
func merge(local, external []domain.Recipient) []domain.Recipient {
	seen := make(map[domain.RecipientKey]int, len(local)+len(external))
	out := make([]domain.Recipient, 0, len(local)+len(external))
	add := func(list []domain.Recipient, src domain.RecipientSource) {
		for _, r := range list {
			if i, ok := seen[r.Key()]; ok {
				if out[i].RecipientCode == "" {
					out[i].RecipientCode = r.RecipientCode
				}
				continue
			}
			seen[r.Key()] = len(out)
			r.Source = src
			out = append(out, r)
		}
	}
	add(local, domain.SourceLocal)
	add(external, domain.SourceExternal)
	return out
}

type nameMatch func(candidate, query string) bool

var nameStages = []nameMatch{
	func(c, q string) bool { return c == q },
	strings.HasPrefix,
	strings.Contains,
}

// FindByName resolves a name or nickname. Local records are searched before
// external ones, and within each source exact matches beat prefix matches,
// which beat substring matches.
func (c *Cache) FindByName(ctx context.Context, userID, name string) (domain.Recipient, bool, error) {
	q := strings.ToLower(strings.TrimSpace(name))
	if q == "" {
		return domain.Recipient{}, false, nil
	}
	list, err := c.Recipients(ctx, userID)
	if err != nil {
		return domain.Recipient{}, false, err
	}
	for _, src := range []domain.RecipientSource{domain.SourceLocal, domain.SourceExternal} {
		for _, stage := range nameStages {
			for _, r := range list {
				if r.Source == src && matchesName(r, q, stage) {
					return r, true, nil
				}
			}
		}
	}
	return domain.Recipient{}, false, nil
}

func matchesName(r domain.Recipient, q string, stage nameMatch) bool {
	if stage(strings.ToLower(r.AccountName), q) {
		return true
	}
	for _, n := range r.Nicknames {
		if stage(strings.ToLower(n), q) {
			return true
		}
	}
	return false
}

// FindByAccount looks a recipient up by account number. An empty bankCode
// matches any bank.
func (c *Cache) FindByAccount(ctx context.Context, userID, account, bankCode string) (domain.Recipient, bool, error) {
	list, err := c.Recipients(ctx, userID)
	if err != nil {
		return domain.Recipient{}, false, err
	}
	for _, r := range list {
		if r.AccountNumber == account && (bankCode == "" || r.BankCode == bankCode) {
			return r, true, nil
		}
	}
	return domain.Recipient{}, false, nil
}

func (c *Cache) CheckDuplicate(ctx context.Context, userID, account, bankCode string) (DuplicateCheck, error) {
	r, ok, err := c.FindByAccount(ctx, userID, account, bankCode)
	if err != nil {
		return DuplicateCheck{}, fmt.Errorf("recipients: duplicate check: %w", err)
	}
	if !ok {
		return DuplicateCheck{}, nil
	}
	return DuplicateCheck{IsDuplicate: true, Existing: &r}, nil
}

// Invalidate drops userID's entry; the next lookup refetches. It holds the
// fill lock so an in-flight fetch cannot write back a stale entry after it.
func (c *Cache) Invalidate(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.Delete(ctx, userID); err != nil {
		return fmt.Errorf("recipients: invalidate %s: %w", userID, err)
	}
	return nil
}

func (c *Cache) InvalidateAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.DeleteAll(ctx); err != nil {
		return fmt.Errorf("recipients: invalidate all: %w", err)
	}
	return nil
}

func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	entries, err := c.store.All(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("recipients: stats: %w", err)
	}
	st := Stats{TTLMinutes: int(c.ttl / time.Minute), Keys: make([]string, 0, len(entries))}
	for _, e := range entries {
		st.Keys = append(st.Keys, e.UserID)
		if c.fresh(e) {
			st.Active++
		} else {
			st.Expired++
		}
	}
	return st, nil
}
