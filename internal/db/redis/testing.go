package redis

import "github.com/redis/rueidis"

// NewStoreForTest wraps a caller-provided rueidis client (test-only).
func NewStoreForTest(c rueidis.Client) *Store {
	return &Store{client: c}
}
