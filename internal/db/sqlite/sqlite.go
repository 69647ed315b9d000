// Package sqlite opens the record store that holds trades, transactions and query history.
package sqlite

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
)

// DriverName is the database/sql driver used for the record store.
const DriverName = "sqlite3"

// TimeLayout is the on-disk timestamp format. Lexical order matches time order.
const TimeLayout = "2006-01-02T15:04:05"

// Config holds connection settings.
type Config struct {
	Path          string
	BusyTimeoutMs int
	MaxOpenConns  int
}

// Open connects to the SQLite database at cfg.Path. ":memory:" opens a private
// in-memory database pinned to a single connection.
func Open(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	memory := cfg.Path == ":memory:"
	if !memory {
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	dsn := buildDSN(cfg)
	conn, err := sqlx.ConnectContext(ctx, DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}

	switch {
	case memory:
		conn.SetMaxOpenConns(1)
		conn.SetConnMaxLifetime(0)
	case cfg.MaxOpenConns > 0:
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	return conn, nil
}

func buildDSN(cfg Config) string {
	q := url.Values{}
	q.Set("_foreign_keys", "on")
	if cfg.BusyTimeoutMs > 0 {
		q.Set("_busy_timeout", strconv.Itoa(cfg.BusyTimeoutMs))
	}
	if cfg.Path == ":memory:" {
		return "file::memory:?" + q.Encode()
	}
	q.Set("_journal_mode", "WAL")
	return "file:" + cfg.Path + "?" + q.Encode()
}

// FormatTime renders t in the on-disk layout (UTC).
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime reads an on-disk timestamp. Empty input yields the zero time.
// A trailing "Z", fractional seconds or a space separator are tolerated.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{TimeLayout, time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
