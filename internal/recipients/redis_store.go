package recipients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix = "chatbank:recipients:"
	// Entries outlive the cache TTL in Redis so Stats can still count them
	// as expired; Redis drops them after this.
	defaultRetention = time.Hour
	scanBatch        = 100
)

// RedisStore shares cache entries between processes.
type RedisStore struct {
	rdb       redis.Cmdable
	prefix    string
	retention time.Duration
}

// NewRedisClient opens a client with the pool settings used across services.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})
}

func NewRedisStore(rdb redis.Cmdable) (*RedisStore, error) {
	if rdb == nil {
		return nil, errors.New("recipients: redis client must not be nil")
	}
	return &RedisStore{rdb: rdb, prefix: defaultKeyPrefix, retention: defaultRetention}, nil
}

func (s *RedisStore) key(userID string) string { return s.prefix + userID }

func (s *RedisStore) Get(ctx context.Context, userID string) (Entry, bool, error) {
	raw, err := s.rdb.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("recipients: redis get: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, fmt.Errorf("recipients: decode entry: %w", err)
	}
	return e, true, nil
}

func (s *RedisStore) Put(ctx context.Context, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("recipients: encode entry: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key(e.UserID), raw, s.retention).Err(); err != nil {
		return fmt.Errorf("recipients: redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, userID string) error {
	if err := s.rdb.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("recipients: redis del: %w", err)
	}
	return nil
}

func (s *RedisStore) DeleteAll(ctx context.Context) error {
	keys, err := s.keys(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("recipients: redis del: %w", err)
	}
	return nil
}

func (s *RedisStore) All(ctx context.Context) ([]Entry, error) {
	keys, err := s.keys(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		e, ok, err := s.Get(ctx, k[len(s.prefix):])
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *RedisStore) keys(ctx context.Context) ([]string, error) {
	var (
		cursor uint64
		out    []string
		seen   = make(map[string]bool)
	)
	for {
		batch, next, err := s.rdb.Scan(ctx, cursor, s.prefix+"*", scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("recipients: redis scan: %w", err)
		}
		// SCAN may return a key more than once.
		for _, k := range batch {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
		if next == 0 {
			return out, nil
		}
		cursor = next
	}
}
