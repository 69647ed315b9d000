package extcache

import (
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/tradesearch/internal/db"
)

// fakeKV is an in-memory TTL store with a controllable clock.
type fakeKV struct {
	mu      sync.Mutex
	now     time.Time
	entries map[string]fakeEntry
	getErr  error
	setErr  error
}

type fakeEntry struct {
	value     []byte
	expiresAt time.Time
}

func newFakeKV() *fakeKV {
	return &fakeKV{now: time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC), entries: map[string]fakeEntry{}}
}

func (f *fakeKV) advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func (f *fakeKV) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeKV) ttlOf(key string) time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries[key].expiresAt.Sub(f.now)
}

func (f *fakeKV) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	e, ok := f.entries[key]
	if !ok || !f.now.Before(e.expiresAt) {
		return nil, db.ErrKeyNotFound
	}
	return e.value, nil
}

func (f *fakeKV) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.entries[key] = fakeEntry{value: value, expiresAt: f.now.Add(ttl)}
	return nil
}
