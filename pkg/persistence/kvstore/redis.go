package kvstore

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps values in Redis under a common prefix, so several
// terminals can share one visitor profile.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	owned  bool
}

var _ Store = &RedisStore{}

// NewRedisStore dials addr. The returned store owns the client and closes it.
func NewRedisStore(addr string, prefix string) (*RedisStore, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, errors.New("redis kv store: empty addr")
	}
	s := NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: addr}), prefix)
	s.owned = true
	return s, nil
}

// NewRedisStoreFromClient wraps an existing client. Close leaves it open.
func NewRedisStoreFromClient(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "lexflow:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	if s == nil || s.client == nil {
		return errors.New("redis kv store: client is nil")
	}
	return errors.Wrap(s.client.Ping(ctx).Err(), "redis kv store: ping")
}

func (s *RedisStore) Close() error {
	if s == nil || s.client == nil || !s.owned {
		return nil
	}
	return s.client.Close()
}

func (s *RedisStore) key(k string) string { return s.prefix + strings.TrimSpace(k) }

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	if s == nil || s.client == nil {
		return "", false, errors.New("redis kv store: client is nil")
	}
	if strings.TrimSpace(key) == "" {
		return "", false, errors.New("redis kv store: key is empty")
	}
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "redis kv store: get")
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value string) error {
	if s == nil || s.client == nil {
		return errors.New("redis kv store: client is nil")
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("redis kv store: key is empty")
	}
	return errors.Wrap(s.client.Set(ctx, s.key(key), value, 0).Err(), "redis kv store: set")
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if s == nil || s.client == nil {
		return errors.New("redis kv store: client is nil")
	}
	return errors.Wrap(s.client.Del(ctx, s.key(key)).Err(), "redis kv store: delete")
}
