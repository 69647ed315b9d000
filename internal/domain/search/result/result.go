package result

import (
	"github.com/kailas-cloud/tradesearch/internal/domain/search/mode"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/params"
	"github.com/kailas-cloud/tradesearch/internal/domain/trade"
)

// Scored is a trade annotated with a relevance score in [0,100].
type Scored struct {
	trade  trade.Trade
	score  float64
	scored bool
}

// New creates a scored record.
func New(t trade.Trade, score float64) Scored {
	return Scored{trade: t, score: score, scored: true}
}

// Unscored wraps a trade whose order was not decided by ranking.
func Unscored(t trade.Trade) Scored {
	return Scored{trade: t}
}

// Trade returns the underlying record.
func (s Scored) Trade() trade.Trade { return s.trade }

// Score returns the relevance score. Zero when unscored.
func (s Scored) Score() float64 { return s.score }

// IsScored reports whether the ranking engine produced the score.
func (s Scored) IsScored() bool { return s.scored }

// Response is the outcome of one search.
type Response struct {
	QueryID         int64
	SearchID        string
	TotalResults    int
	TotalMatches    int
	Truncated       bool
	Results         []Scored
	Mode            mode.Mode
	ExecutionTimeMs int64
	Ranked          bool
	// ExtractedParams is set for natural-language searches only.
	ExtractedParams *params.Extracted
}
