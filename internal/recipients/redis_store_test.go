package recipients

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"chatbank-agent/internal/domain"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestRedisStore_RoundTrip(t *testing.T) {
	mr, rdb := setupRedis(t)
	s, err := NewRedisStore(rdb)
	require.NoError(t, err)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	require.False(t, ok)

	fetched := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	in := Entry{UserID: "u1", FetchedAt: fetched, Recipients: []domain.Recipient{
		{AccountName: "ADA OBI", AccountNumber: "0123456789", BankCode: "058", Source: domain.SourceLocal},
	}}
	require.NoError(t, s.Put(ctx, in))
	require.NoError(t, s.Put(ctx, Entry{UserID: "u2", FetchedAt: fetched}))
	require.True(t, mr.Exists("chatbank:recipients:u1"))
	require.Equal(t, defaultRetention, mr.TTL("chatbank:recipients:u1"))

	out, ok, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, in.Recipients, out.Recipients)
	require.True(t, fetched.Equal(out.FetchedAt))

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "u1", all[0].UserID)

	require.NoError(t, s.Delete(ctx, "u1"))
	_, ok, err = s.Get(ctx, "u1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.DeleteAll(ctx))
	all, err = s.All(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestCache_WithRedisStore(t *testing.T) {
	_, rdb := setupRedis(t)
	store, err := NewRedisStore(rdb)
	require.NoError(t, err)

	local := &fakeSource{list: []domain.Recipient{
		{AccountName: "ADA OBI", AccountNumber: "0123456789", BankCode: "058"},
	}}
	external := &fakeSource{}
	c := mustNewCache(t, local, external, WithStore(store))
	ctx := context.Background()

	_, err = c.Recipients(ctx, "u1")
	require.NoError(t, err)

	// A second cache sharing the store sees the entry without refetching.
	other := mustNewCache(t, local, external, WithStore(store))
	r, ok, err := other.FindByName(ctx, "u1", "ada")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "0123456789", r.AccountNumber)
	require.Equal(t, int32(1), local.calls.Load())
}
