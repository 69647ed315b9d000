package request

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/tradesearch/internal/domain"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/filter"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/mode"
)

// Search request limits.
const (
	MinQueryLength = 3
	// MaxQueryLength is the maximum allowed natural-language query length.
	MaxQueryLength  = 1000
	MaxUserIDLength = 255
)

// Request is a validated, immutable search request.
type Request struct {
	userID     string
	searchMode mode.Mode
	queryText  string
	filters    *filter.Manual
}

// New validates a search request.
// Natural-language mode needs at least MinQueryLength non-blank characters;
// manual mode needs a filter set.
func New(userID string, m mode.Mode, queryText string, filters *filter.Manual) (Request, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Request{}, domain.NewValidationError("user_id", "is required")
	}
	if len(userID) > MaxUserIDLength {
		return Request{}, domain.NewValidationError("user_id",
			fmt.Sprintf("too long (max %d chars)", MaxUserIDLength))
	}
	if !m.IsValid() {
		return Request{}, domain.NewValidationError("search_type",
			fmt.Sprintf("must be %q or %q, got %q", mode.NaturalLanguage, mode.Manual, m))
	}

	r := Request{userID: userID, searchMode: m}
	switch m {
	case mode.NaturalLanguage:
		text := strings.TrimSpace(queryText)
		if text == "" {
			return Request{}, domain.NewValidationError("query_text",
				"is required for natural_language search")
		}
		if len([]rune(text)) < MinQueryLength {
			return Request{}, domain.NewValidationError("query_text",
				fmt.Sprintf("must be at least %d characters", MinQueryLength))
		}
		if len(text) > MaxQueryLength {
			return Request{}, domain.NewValidationError("query_text",
				fmt.Sprintf("too long (max %d chars)", MaxQueryLength))
		}
		r.queryText = text
	case mode.Manual:
		if filters == nil {
			return Request{}, domain.NewValidationError("filters", "are required for manual search")
		}
		f := *filters
		r.filters = &f
	}
	return r, nil
}

// UserID returns the requester id.
func (r Request) UserID() string { return r.userID }

// Mode returns the search mode.
func (r Request) Mode() mode.Mode { return r.searchMode }

// QueryText returns the trimmed free text (natural-language mode only).
func (r Request) QueryText() string { return r.queryText }

// Filters returns the manual filter set (manual mode only).
func (r Request) Filters() *filter.Manual { return r.filters }
