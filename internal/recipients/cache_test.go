package recipients

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chatbank-agent/internal/domain"
	"chatbank-agent/internal/logger"
)

type fakeSource struct {
	calls atomic.Int32
	delay time.Duration
	list  []domain.Recipient
	err   error
}

func (f *fakeSource) ListRecipients(_ context.Context, _ string) ([]domain.Recipient, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.list, f.err
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func mustNewCache(t *testing.T, local, external Source, opts ...Option) *Cache {
	t.Helper()
	opts = append([]Option{WithLogger(logger.NewTestLogger(t))}, opts...)
	c, err := New(local, external, opts...)
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, &fakeSource{})
	require.Error(t, err)
	_, err = New(&fakeSource{}, nil)
	require.Error(t, err)
	_, err = New(&fakeSource{}, &fakeSource{}, WithTTL(0))
	require.Error(t, err)
}

func TestCache_MergePrefersLocal(t *testing.T) {
	local := &fakeSource{list: []domain.Recipient{
		{AccountName: "ADA OBI", AccountNumber: "0123456789", BankCode: "058"},
	}}
	external := &fakeSource{list: []domain.Recipient{
		{AccountName: "A OBI", AccountNumber: "0123456789", BankCode: "058", RecipientCode: "RCP_1"},
		{AccountName: "TUNDE BAKARE", AccountNumber: "1111111111", BankCode: "044"},
	}}
	c := mustNewCache(t, local, external)
	ctx := context.Background()

	list, err := c.Recipients(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "ADA OBI", list[0].AccountName)
	require.Equal(t, domain.SourceLocal, list[0].Source)
	require.Equal(t, domain.SourceExternal, list[1].Source)

	dup, err := c.CheckDuplicate(ctx, "u1", "0123456789", "058")
	require.NoError(t, err)
	require.True(t, dup.IsDuplicate)
	require.Equal(t, domain.SourceLocal, dup.Existing.Source)

	dup, err = c.CheckDuplicate(ctx, "u1", "0123456789", "044")
	require.NoError(t, err)
	require.False(t, dup.IsDuplicate)
	require.Nil(t, dup.Existing)
}

func TestCache_MergeFillsMissingLocalCode(t *testing.T) {
	local := &fakeSource{list: []domain.Recipient{
		{AccountName: "ADA OBI", AccountNumber: "0123456789", BankCode: "058", Nicknames: []string{"babe"}},
	}}
	external := &fakeSource{list: []domain.Recipient{
		{AccountName: "A OBI", AccountNumber: "0123456789", BankCode: "058", RecipientCode: "RCP_1"},
	}}
	c := mustNewCache(t, local, external)

	dup, err := c.CheckDuplicate(context.Background(), "u1", "0123456789", "058")
	require.NoError(t, err)
	require.True(t, dup.IsDuplicate)
	require.Equal(t, "ADA OBI", dup.Existing.AccountName)
	require.Equal(t, domain.SourceLocal, dup.Existing.Source)
	require.Equal(t, "RCP_1", dup.Existing.RecipientCode)
}

func TestCache_ConcurrentMissesFetchOnce(t *testing.T) {
	local := &fakeSource{delay: 20 * time.Millisecond}
	external := &fakeSource{delay: 20 * time.Millisecond}
	c := mustNewCache(t, local, external)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Recipients(context.Background(), "u1"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), local.calls.Load())
	require.Equal(t, int32(1), external.calls.Load())
}

func TestCache_TTLAndInvalidate(t *testing.T) {
	clock := newClock()
	local := &fakeSource{}
	external := &fakeSource{}
	c := mustNewCache(t, local, external, WithClock(clock.Now))
	ctx := context.Background()

	_, _ = c.Recipients(ctx, "u1")
	clock.Advance(14 * time.Minute)
	_, _ = c.Recipients(ctx, "u1")
	require.Equal(t, int32(1), local.calls.Load())

	clock.Advance(2 * time.Minute)
	_, _ = c.Recipients(ctx, "u1")
	require.Equal(t, int32(2), local.calls.Load())

	require.NoError(t, c.Invalidate(ctx, "u1"))
	_, _ = c.Recipients(ctx, "u1")
	require.Equal(t, int32(3), local.calls.Load())
	require.Equal(t, int32(3), external.calls.Load())
}

func TestCache_InvalidateDuringFillWins(t *testing.T) {
	local := &fakeSource{delay: 50 * time.Millisecond}
	store := NewMemoryStore()
	c := mustNewCache(t, local, &fakeSource{}, WithStore(store))
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Recipients(ctx, "u1")
	}()
	require.Eventually(t, func() bool { return local.calls.Load() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, c.Invalidate(ctx, "u1"))
	<-done

	_, ok, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCache_SourceFailureIsEmpty(t *testing.T) {
	local := &fakeSource{err: errors.New("db down")}
	external := &fakeSource{list: []domain.Recipient{
		{AccountName: "TUNDE BAKARE", AccountNumber: "1111111111", BankCode: "044"},
	}}
	c := mustNewCache(t, local, external)

	list, err := c.Recipients(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "TUNDE BAKARE", list[0].AccountName)
}

func TestCache_FindByNameOrder(t *testing.T) {
	local := &fakeSource{list: []domain.Recipient{
		{AccountName: "Babatunde Ade", AccountNumber: "2222222222", BankCode: "058", Nicknames: []string{"babe"}},
	}}
	external := &fakeSource{list: []domain.Recipient{
		{AccountName: "Babe Ruth", AccountNumber: "3333333333", BankCode: "044"},
	}}
	c := mustNewCache(t, local, external)
	ctx := context.Background()

	cases := []struct {
		name    string
		account string
	}{
		{"babe", "2222222222"},
		{"Tunde", "2222222222"},
		{"ruth", "3333333333"},
		{"Babe Ruth", "3333333333"},
	}
	for _, tc := range cases {
		r, ok, err := c.FindByName(ctx, "u1", tc.name)
		require.NoError(t, err)
		require.True(t, ok, tc.name)
		require.Equal(t, tc.account, r.AccountNumber, tc.name)
	}

	_, ok, err := c.FindByName(ctx, "u1", "nobody")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCache_Stats(t *testing.T) {
	clock := newClock()
	c := mustNewCache(t, &fakeSource{}, &fakeSource{}, WithClock(clock.Now))
	ctx := context.Background()

	_, _ = c.Recipients(ctx, "a")
	clock.Advance(16 * time.Minute)
	_, _ = c.Recipients(ctx, "b")

	st, err := c.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, st.Active)
	require.Equal(t, 1, st.Expired)
	require.Equal(t, 15, st.TTLMinutes)
	require.Equal(t, []string{"a", "b"}, st.Keys)

	require.NoError(t, c.InvalidateAll(ctx))
	st, err = c.Stats(ctx)
	require.NoError(t, err)
	require.Empty(t, st.Keys)
}
