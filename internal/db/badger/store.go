// Package badger implements the cache backend on an embedded Badger database.
package badger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tradesearch/internal/db"
)

var _ db.Store = (*Store)(nil)

// conflictRetries bounds read-modify-write retries on badger.ErrConflict.
const conflictRetries = 10

// Config holds embedded store settings.
type Config struct {
	Dir      string
	InMemory bool
}

// Store implements db.Store on Badger.
type Store struct {
	db *badger.DB
}

type zapLogger struct{ l *zap.SugaredLogger }

func (z zapLogger) Errorf(msg string, args ...any)   { z.l.Errorf(msg, args...) }
func (z zapLogger) Warningf(msg string, args ...any) { z.l.Warnf(msg, args...) }
func (z zapLogger) Infof(msg string, args ...any)    { z.l.Debugf(msg, args...) }
func (z zapLogger) Debugf(msg string, args ...any)   { z.l.Debugf(msg, args...) }

// NewStore opens (creating if needed) a Badger database.
func NewStore(cfg Config, logger *zap.Logger) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Dir == "" {
			return nil, fmt.Errorf("dir is required unless in-memory")
		}
		if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
			return nil, fmt.Errorf("create badger dir: %w", err)
		}
		opts = badger.DefaultOptions(cfg.Dir)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.Logger = zapLogger{l: logger.Named("badger").Sugar()}
	opts.Compression = options.None

	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{db: bdb}, nil
}

// NewInMemory opens a throwaway in-memory store.
func NewInMemory() (*Store, error) {
	return NewStore(Config{InMemory: true}, nil)
}

// Ping reports whether the database is open.
func (s *Store) Ping(_ context.Context) error {
	if s.db.IsClosed() {
		return &db.Error{Op: db.OpPing, Err: db.ErrClosed}
	}
	return nil
}

// Close closes the database. Errors are ignored: nothing to do on shutdown.
func (s *Store) Close() {
	_ = s.db.Close()
}

// WaitForReady returns immediately for an open embedded database.
func (s *Store) WaitForReady(ctx context.Context, _ time.Duration) error {
	return s.Ping(ctx)
}

// Get returns the value at key, or db.ErrKeyNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return nil, db.ErrKeyNotFound
	default:
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
}

// Set stores value at key without expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.SetWithTTL(ctx, key, value, 0)
}

// SetWithTTL stores value at key with an expiry. A non-positive ttl means no expiry.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}

// IncrBy adds val to the integer at key, keeping any existing expiry.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) error {
	err := s.update(ctx, func(txn *badger.Txn) error {
		cur, ttl, err := readCounter(txn, key)
		if err != nil {
			return err
		}
		e := badger.NewEntry([]byte(key), []byte(strconv.FormatInt(cur+val, 10)))
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return &db.Error{Op: db.OpIncrBy, Err: err}
	}
	return nil
}

// Expire sets a TTL on an existing key. With nx, a key that already expires is left alone.
// Missing keys are ignored, matching Redis EXPIRE.
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error {
	err := s.update(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if nx && item.ExpiresAt() != 0 {
			return nil
		}
		v, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return txn.SetEntry(badger.NewEntry([]byte(key), v).WithTTL(ttl))
	})
	if err != nil {
		return &db.Error{Op: db.OpExpire, Err: err}
	}
	return nil
}

// update runs fn in a read-write transaction, retrying on optimistic conflicts.
func (s *Store) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	var err error
	for range conflictRetries {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

// readCounter returns the integer at key (0 when absent) and its remaining TTL (0 when none).
func readCounter(txn *badger.Txn, key string) (int64, time.Duration, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}
	raw, err := item.ValueCopy(nil)
	if err != nil {
		return 0, 0, err
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", db.ErrNotInteger, raw)
	}
	var ttl time.Duration
	if exp := item.ExpiresAt(); exp != 0 {
		ttl = time.Until(time.Unix(int64(exp), 0)) //nolint:gosec // badger stores unix seconds
		if ttl <= 0 {
			ttl = time.Second
		}
	}
	return n, ttl, nil
}
