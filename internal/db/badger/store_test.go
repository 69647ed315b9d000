package badger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/tradesearch/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewInMemory()
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestGetSet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, db.ErrKeyNotFound)

	require.NoError(t, s.Set(ctx, "k", []byte("v1")))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(got))

	require.NoError(t, s.SetWithTTL(ctx, "k", []byte("v2"), time.Hour))
	got, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got))
}

func TestSetWithTTL_Expires(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetWithTTL(ctx, "short", []byte("x"), time.Second))
	time.Sleep(1100 * time.Millisecond)

	_, err := s.Get(ctx, "short")
	assert.ErrorIs(t, err, db.ErrKeyNotFound)
}

func TestIncrBy(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.IncrBy(ctx, "c", 5))
	require.NoError(t, s.IncrBy(ctx, "c", 7))
	got, err := s.Get(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "12", string(got))
}

func TestIncrBy_Concurrent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 5 {
				_ = s.IncrBy(ctx, "c", 1)
			}
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "40", string(got))
}

func TestIncrBy_NotInteger(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "c", []byte("abc")))
	err := s.IncrBy(ctx, "c", 1)
	assert.True(t, errors.Is(err, db.ErrNotInteger), "got %v", err)
}

func TestExpire_NX(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.IncrBy(ctx, "c", 1))
	require.NoError(t, s.Expire(ctx, "c", time.Second, true))
	// NX keeps the first expiry.
	require.NoError(t, s.Expire(ctx, "c", time.Hour, true))
	require.NoError(t, s.IncrBy(ctx, "c", 1))

	time.Sleep(1500 * time.Millisecond)
	_, err := s.Get(ctx, "c")
	assert.ErrorIs(t, err, db.ErrKeyNotFound)
}

func TestExpire_MissingKeyIgnored(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Expire(context.Background(), "nothing", time.Minute, false))
}

func TestPing_Closed(t *testing.T) {
	s, err := NewInMemory()
	require.NoError(t, err)
	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.WaitForReady(context.Background(), time.Second))

	s.Close()
	assert.ErrorIs(t, s.Ping(context.Background()), db.ErrClosed)
}

func TestCanceledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Set(ctx, "k", []byte("v")), context.Canceled)
}
