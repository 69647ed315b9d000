package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/tradesearch/internal/db"
)

func (s *Store) exec(ctx context.Context, op string, cmd rueidis.Completed) error {
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: op, Err: err}
	}
	return nil
}

// Get returns the value at key, or db.ErrKeyNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Do(ctx, s.client.B().Get().Key(key).Build()).AsBytes()
	switch {
	case err == nil:
		return data, nil
	case rueidis.IsRedisNil(err):
		return nil, db.ErrKeyNotFound
	default:
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
}

// Set stores value at key without expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.exec(ctx, db.OpSet, s.client.B().Set().Key(key).Value(rueidis.BinaryString(value)).Build())
}

// SetWithTTL stores value at key with an expiry. A non-positive ttl behaves like Set.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return s.Set(ctx, key, value)
	}
	cmd := s.client.B().Set().Key(key).Value(rueidis.BinaryString(value)).Ex(ttl).Build()
	return s.exec(ctx, db.OpSet, cmd)
}

// IncrBy atomically adds val to the integer at key.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) error {
	return s.exec(ctx, db.OpIncrBy, s.client.B().Incrby().Key(key).Increment(val).Build())
}

// Expire sets a TTL on key. With nx, an existing expiry is kept (EXPIRE NX).
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error {
	secs := int64(ttl / time.Second)
	if nx {
		return s.exec(ctx, db.OpExpire, s.client.B().Expire().Key(key).Seconds(secs).Nx().Build())
	}
	return s.exec(ctx, db.OpExpire, s.client.B().Expire().Key(key).Seconds(secs).Build())
}
