package tradesearch

import (
	"context"
	"time"

	domhist "github.com/kailas-cloud/tradesearch/internal/domain/history"
)

// HistoryService manages one user's stored queries.
type HistoryService struct {
	userID string
	svc    historyUseCase
	obs    *observer
}

// History returns the query history of userID.
func (c *Client) History(userID string) *HistoryService {
	return &HistoryService{userID: userID, svc: c.historySvc, obs: c.obs}
}

// List returns the most recently used entries. limit <= 0 uses the default (50).
func (h *HistoryService) List(ctx context.Context, limit int) (_ []HistoryEntry, err error) {
	start := time.Now()
	defer func() { h.obs.observe("history_list", start, err) }()
	return h.list(ctx, limit, false)
}

// Saved returns saved entries only.
func (h *HistoryService) Saved(ctx context.Context, limit int) (_ []HistoryEntry, err error) {
	start := time.Now()
	defer func() { h.obs.observe("history_saved", start, err) }()
	return h.list(ctx, limit, true)
}

func (h *HistoryService) list(ctx context.Context, limit int, savedOnly bool) ([]HistoryEntry, error) {
	records, err := h.svc.List(ctx, h.userID, limit, savedOnly)
	if err != nil {
		return nil, err
	}
	out := make([]HistoryEntry, 0, len(records))
	for _, r := range records {
		out = append(out, toHistoryEntry(r))
	}
	return out, nil
}

// Stats summarizes the history.
func (h *HistoryService) Stats(ctx context.Context) (_ HistoryStats, err error) {
	start := time.Now()
	defer func() { h.obs.observe("history_stats", start, err) }()

	s, err := h.svc.Stats(ctx, h.userID)
	if err != nil {
		return HistoryStats{}, err
	}
	return HistoryStats{Total: s.Total, Saved: s.Saved, Recent: s.Recent}, nil
}

// Save marks an entry as saved under name. The name is required.
func (h *HistoryService) Save(ctx context.Context, id int64, name string) (HistoryEntry, error) {
	return h.update(ctx, "history_save", id, true, name)
}

// Unsave clears the saved flag and name of an entry.
func (h *HistoryService) Unsave(ctx context.Context, id int64) (HistoryEntry, error) {
	return h.update(ctx, "history_unsave", id, false, "")
}

func (h *HistoryService) update(ctx context.Context, op string, id int64, saved bool, name string) (_ HistoryEntry, err error) {
	start := time.Now()
	defer func() { h.obs.observe(op, start, err) }()

	u, err := domhist.NewUpdate(saved, name)
	if err != nil {
		return HistoryEntry{}, err
	}
	r, err := h.svc.Update(ctx, id, h.userID, u)
	if err != nil {
		return HistoryEntry{}, err
	}
	return toHistoryEntry(r), nil
}

// Touch bumps an entry's last-use time.
func (h *HistoryService) Touch(ctx context.Context, id int64) (err error) {
	start := time.Now()
	defer func() { h.obs.observe("history_touch", start, err) }()
	return h.svc.Touch(ctx, id, h.userID)
}

// Delete removes an entry.
func (h *HistoryService) Delete(ctx context.Context, id int64) (err error) {
	start := time.Now()
	defer func() { h.obs.observe("history_delete", start, err) }()
	return h.svc.Delete(ctx, id, h.userID)
}

// Clear removes every entry and returns how many were deleted.
func (h *HistoryService) Clear(ctx context.Context) (_ int, err error) {
	start := time.Now()
	defer func() { h.obs.observe("history_clear", start, err) }()
	return h.svc.DeleteAll(ctx, h.userID)
}

// Suggest returns autocomplete candidates for a partial query.
func (h *HistoryService) Suggest(ctx context.Context, partial string, limit int) (_ []Suggestion, err error) {
	start := time.Now()
	defer func() { h.obs.observe("history_suggest", start, err) }()

	in, err := h.svc.Suggest(ctx, h.userID, partial, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Suggestion, 0, len(in))
	for _, s := range in {
		out = append(out, Suggestion{Text: s.Text, Category: s.Category, Score: s.Score})
	}
	return out, nil
}

func toHistoryEntry(r domhist.Record) HistoryEntry {
	return HistoryEntry{
		ID:          r.ID(),
		QueryText:   r.QueryText(),
		SearchType:  string(r.Mode()),
		IsSaved:     r.IsSaved(),
		Name:        r.Name(),
		CreateTime:  r.CreateTime(),
		LastUseTime: r.LastUseTime(),
	}
}
