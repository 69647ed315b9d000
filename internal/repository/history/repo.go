// Package history persists per-user query history in the record store.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/tradesearch/internal/db/sqlite"
	"github.com/kailas-cloud/tradesearch/internal/domain"
	domhist "github.com/kailas-cloud/tradesearch/internal/domain/history"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/mode"
)

const columns = "id, user_id, query_text, search_type, is_saved, query_name, create_time, last_use_time"

// conn is the consumer interface for the record store (ISP).
type conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// Repo implements usecase/history.Repository and usecase/search.HistoryLogger.
type Repo struct {
	conn conn
}

// New creates a history repository.
func New(c conn) *Repo {
	return &Repo{conn: c}
}

type recordRow struct {
	ID          int64          `db:"id"`
	UserID      string         `db:"user_id"`
	QueryText   string         `db:"query_text"`
	SearchType  string         `db:"search_type"`
	IsSaved     bool           `db:"is_saved"`
	QueryName   sql.NullString `db:"query_name"`
	CreateTime  string         `db:"create_time"`
	LastUseTime string         `db:"last_use_time"`
}

func (r recordRow) toDomain() (domhist.Record, error) {
	created, err := sqlite.ParseTime(r.CreateTime)
	if err != nil {
		return domhist.Record{}, fmt.Errorf("history %d create_time: %w", r.ID, err)
	}
	used, err := sqlite.ParseTime(r.LastUseTime)
	if err != nil {
		return domhist.Record{}, fmt.Errorf("history %d last_use_time: %w", r.ID, err)
	}
	return domhist.Reconstruct(r.ID, domhist.Attrs{
		UserID:      r.UserID,
		QueryText:   r.QueryText,
		Mode:        mode.Mode(r.SearchType),
		IsSaved:     r.IsSaved,
		Name:        r.QueryName.String,
		CreateTime:  created,
		LastUseTime: used,
	}), nil
}

func toDomainList(rows []recordRow) ([]domhist.Record, error) {
	out := make([]domhist.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toDomain()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrStoreQueryFailed, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Save records a search and returns the new entry id.
func (r *Repo) Save(ctx context.Context, userID, queryText string, m mode.Mode, at time.Time) (int64, error) {
	ts := sqlite.FormatTime(at)
	res, err := r.conn.ExecContext(ctx,
		`INSERT INTO query_history (user_id, query_text, search_type, is_saved, create_time, last_use_time)
		 VALUES ($1, $2, $3, 0, $4, $5)`,
		userID, queryText, string(m), ts, ts)
	if err != nil {
		return 0, wrapErr("insert history", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrapErr("history id", err)
	}
	return id, nil
}

// Get returns an entry by id.
func (r *Repo) Get(ctx context.Context, id int64) (domhist.Record, error) {
	var row recordRow
	err := r.conn.GetContext(ctx, &row, "SELECT "+columns+" FROM query_history WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return domhist.Record{}, domain.ErrHistoryNotFound
	}
	if err != nil {
		return domhist.Record{}, wrapErr("get history", err)
	}
	rec, err := row.toDomain()
	if err != nil {
		return domhist.Record{}, fmt.Errorf("%w: %w", domain.ErrStoreQueryFailed, err)
	}
	return rec, nil
}

// List returns a user's entries, most recently used first.
func (r *Repo) List(ctx context.Context, userID string, limit int, savedOnly bool) ([]domhist.Record, error) {
	q := "SELECT " + columns + " FROM query_history WHERE user_id = $1"
	if savedOnly {
		q += " AND is_saved = 1"
	}
	q += " ORDER BY last_use_time DESC, id DESC LIMIT $2"

	var rows []recordRow
	if err := r.conn.SelectContext(ctx, &rows, q, userID, domhist.ClampLimit(limit)); err != nil {
		return nil, wrapErr("list history", err)
	}
	return toDomainList(rows)
}

// RecentTexts returns the distinct query texts of a user's latest entries in mode m.
func (r *Repo) RecentTexts(ctx context.Context, userID string, m mode.Mode, limit int) ([]string, error) {
	var texts []string
	err := r.conn.SelectContext(ctx, &texts,
		`SELECT query_text FROM query_history
		 WHERE user_id = $1 AND search_type = $2
		 GROUP BY query_text ORDER BY MAX(last_use_time) DESC LIMIT $3`,
		userID, string(m), limit)
	if err != nil {
		return nil, wrapErr("recent history", err)
	}
	return texts, nil
}

// Stats counts a user's entries. Recent counts entries used at or after since.
func (r *Repo) Stats(ctx context.Context, userID string, since time.Time) (domhist.Stats, error) {
	var row struct {
		Total  int `db:"total"`
		Saved  int `db:"saved"`
		Recent int `db:"recent"`
	}
	err := r.conn.GetContext(ctx, &row,
		`SELECT COUNT(*) AS total,
		        COALESCE(SUM(is_saved), 0) AS saved,
		        COALESCE(SUM(CASE WHEN last_use_time >= $1 THEN 1 ELSE 0 END), 0) AS recent
		 FROM query_history WHERE user_id = $2`,
		sqlite.FormatTime(since), userID)
	if err != nil {
		return domhist.Stats{}, wrapErr("history stats", err)
	}
	return domhist.Stats{Total: row.Total, Saved: row.Saved, Recent: row.Recent}, nil
}

// Update applies a saved flag and name change.
func (r *Repo) Update(ctx context.Context, id int64, u domhist.Update) error {
	var name any
	if u.IsSaved() {
		name = u.Name()
	}
	res, err := r.conn.ExecContext(ctx,
		"UPDATE query_history SET is_saved = $1, query_name = $2 WHERE id = $3",
		u.IsSaved(), name, id)
	if err != nil {
		return wrapErr("update history", err)
	}
	return requireAffected(res)
}

// Touch moves an entry's last use time to at.
func (r *Repo) Touch(ctx context.Context, id int64, at time.Time) error {
	res, err := r.conn.ExecContext(ctx,
		"UPDATE query_history SET last_use_time = $1 WHERE id = $2", sqlite.FormatTime(at), id)
	if err != nil {
		return wrapErr("touch history", err)
	}
	return requireAffected(res)
}

// Delete removes an entry.
func (r *Repo) Delete(ctx context.Context, id int64) error {
	res, err := r.conn.ExecContext(ctx, "DELETE FROM query_history WHERE id = $1", id)
	if err != nil {
		return wrapErr("delete history", err)
	}
	return requireAffected(res)
}

// DeleteAll removes every entry of a user and returns how many were deleted.
func (r *Repo) DeleteAll(ctx context.Context, userID string) (int, error) {
	res, err := r.conn.ExecContext(ctx, "DELETE FROM query_history WHERE user_id = $1", userID)
	if err != nil {
		return 0, wrapErr("delete user history", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrapErr("delete user history", err)
	}
	return int(n), nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr("rows affected", err)
	}
	if n == 0 {
		return domain.ErrHistoryNotFound
	}
	return nil
}

func wrapErr(op string, err error) error {
	if sqlite.IsUnavailable(err) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreQueryFailed, err)
}
