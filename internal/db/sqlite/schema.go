package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS trades (
		id                 INTEGER PRIMARY KEY,
		account            TEXT NOT NULL,
		asset_type         TEXT NOT NULL,
		booking_system     TEXT NOT NULL DEFAULT '',
		affirmation_system TEXT NOT NULL DEFAULT '',
		clearing_house     TEXT NOT NULL DEFAULT '',
		status             TEXT NOT NULL,
		create_time        TEXT NOT NULL,
		update_time        TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trades_status ON trades(status)`,
	`CREATE INDEX IF NOT EXISTS idx_trades_update_time ON trades(update_time DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_trades_create_time ON trades(create_time DESC)`,

	`CREATE TABLE IF NOT EXISTS transactions (
		id          INTEGER PRIMARY KEY,
		trade_id    INTEGER NOT NULL REFERENCES trades(id) ON DELETE CASCADE,
		entity      TEXT NOT NULL DEFAULT '',
		direction   TEXT NOT NULL DEFAULT '',
		type        TEXT NOT NULL DEFAULT '',
		status      TEXT NOT NULL DEFAULT '',
		step        INTEGER NOT NULL DEFAULT 0,
		create_time TEXT NOT NULL,
		update_time TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_trade_id ON transactions(trade_id)`,

	`CREATE TABLE IF NOT EXISTS query_history (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id       TEXT NOT NULL,
		query_text    TEXT NOT NULL,
		search_type   TEXT NOT NULL DEFAULT 'natural_language',
		is_saved      INTEGER NOT NULL DEFAULT 0,
		query_name    TEXT,
		create_time   TEXT NOT NULL,
		last_use_time TEXT NOT NULL,
		CHECK ((is_saved = 0 AND query_name IS NULL) OR is_saved = 1)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_query_history_user_last_use ON query_history(user_id, last_use_time DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_query_history_user_saved ON query_history(user_id, is_saved)`,
}

// EnsureSchema creates the record store tables if missing. Safe to run on every start.
func EnsureSchema(ctx context.Context, conn *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
