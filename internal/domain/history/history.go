// Package history models per-user query history records.
package history

import (
	"strings"
	"time"

	"github.com/kailas-cloud/tradesearch/internal/domain"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/mode"
)

// MaxNameLength bounds a saved query's display name.
const MaxNameLength = 255

// List limits.
const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// Record is a single history entry.
type Record struct {
	id          int64
	userID      string
	queryText   string
	mode        mode.Mode
	isSaved     bool
	name        string
	createTime  time.Time
	lastUseTime time.Time
}

// Attrs groups the fields needed to hydrate a Record.
type Attrs struct {
	UserID      string
	QueryText   string
	Mode        mode.Mode
	IsSaved     bool
	Name        string
	CreateTime  time.Time
	LastUseTime time.Time
}

// Reconstruct creates a Record without validation (storage hydration).
func Reconstruct(id int64, a Attrs) Record {
	return Record{
		id:          id,
		userID:      a.UserID,
		queryText:   a.QueryText,
		mode:        a.Mode,
		isSaved:     a.IsSaved,
		name:        a.Name,
		createTime:  a.CreateTime,
		lastUseTime: a.LastUseTime,
	}
}

// ID returns the record identifier.
func (r Record) ID() int64 { return r.id }

// UserID returns the owning requester.
func (r Record) UserID() string { return r.userID }

// QueryText returns the search text, or canonical filter JSON for manual searches.
func (r Record) QueryText() string { return r.queryText }

// Mode returns the search mode the entry was recorded for.
func (r Record) Mode() mode.Mode { return r.mode }

// IsSaved reports whether the user pinned the entry.
func (r Record) IsSaved() bool { return r.isSaved }

// Name returns the saved display name. Empty for unsaved entries.
func (r Record) Name() string { return r.name }

// CreateTime returns when the entry was first recorded.
func (r Record) CreateTime() time.Time { return r.createTime }

// LastUseTime returns when the entry was last run.
func (r Record) LastUseTime() time.Time { return r.lastUseTime }

// OwnedBy reports whether userID owns the entry.
func (r Record) OwnedBy(userID string) bool { return r.userID == userID }

// Update is a validated change to the saved flag and name.
type Update struct {
	isSaved bool
	name    string
}

// NewUpdate validates a save/unsave request. Saving requires a name.
func NewUpdate(isSaved bool, name string) (Update, error) {
	name = strings.TrimSpace(name)
	if isSaved && name == "" {
		return Update{}, domain.NewValidationError("query_name", "is required when saving a query")
	}
	if len(name) > MaxNameLength {
		return Update{}, domain.NewValidationError("query_name", "must be at most 255 characters")
	}
	if !isSaved {
		name = ""
	}
	return Update{isSaved: isSaved, name: name}, nil
}

// IsSaved returns the requested saved flag.
func (u Update) IsSaved() bool { return u.isSaved }

// Name returns the trimmed display name.
func (u Update) Name() string { return u.name }

// ClampLimit normalizes a list limit. Non-positive selects the default.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	}
	return limit
}

// Stats summarizes a user's history.
type Stats struct {
	Total  int
	Saved  int
	Recent int // entries used in the last 7 days
}
