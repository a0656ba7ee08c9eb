package history

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// Fixed storage keys shared with prior deployments of the dashboard.
const (
	KeyCallHistory = "callHistory"
	KeySMSHistory  = "smsHistory"
)

// RedisStore persists ledger snapshots as plain string values. History
// is a bounded cache, not a system of record, so the whole snapshot is
// written on every mutation rather than diffed.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Save(ctx context.Context, key string, snapshot []byte) error {
	if s.rdb == nil {
		return errors.New("history: redis client is nil")
	}
	return s.rdb.Set(ctx, key, snapshot, 0).Err()
}

func (s *RedisStore) Load(ctx context.Context, key string) ([]byte, error) {
	if s.rdb == nil {
		return nil, errors.New("history: redis client is nil")
	}
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}
