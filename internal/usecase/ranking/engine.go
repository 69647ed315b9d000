// Package ranking scores and reorders search results by status urgency, recency,
// transaction volume and asset-type risk.
package ranking

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tradesearch/internal/domain/ranking"
	"github.com/kailas-cloud/tradesearch/internal/domain/search/result"
	"github.com/kailas-cloud/tradesearch/internal/domain/trade"
	"github.com/kailas-cloud/tradesearch/internal/logger"
	"github.com/kailas-cloud/tradesearch/internal/metrics"
)

// missingTimestampScore is the recency score of a record without any timestamp.
const missingTimestampScore = 50.0

const day = 24 * time.Hour

// Engine is the relevance ranking engine.
type Engine struct {
	enabled bool
	source  *Source
	now     func() time.Time
	logger  *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source used for recency.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine reading its weights from source.
func NewEngine(enabled bool, source *Source, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if source == nil {
		source = NewStaticSource(ranking.Default())
	}
	e := &Engine{enabled: enabled, source: source, now: time.Now, logger: logger}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Enabled reports whether Rank reorders anything: the startup flag and the config file's
// ranking_enabled must both be on.
func (e *Engine) Enabled() bool { return e.enabled && e.source.Enabled() }

// Score computes the weighted relevance of t in [0,100] with the current snapshot.
func (e *Engine) Score(t trade.Trade, activity int) (float64, error) {
	raw, err := score(e.source.Current(), t, activity, e.now())
	if err != nil {
		return 0, err
	}
	return clamp(raw), nil
}

// Rank orders records by descending weighted total, ties keeping input order. Reported
// scores are clamped to [0,100]. applied is false when the engine is disabled or scoring
// failed; records then come back in input order.
func (e *Engine) Rank(ctx context.Context, records []trade.Trade, activity map[int64]int) (ranked []result.Scored, applied bool) {
	if !e.enabled {
		metrics.RankingOutcomeTotal.WithLabelValues("disabled").Inc()
		return unscored(records), false
	}
	if len(records) == 0 {
		return []result.Scored{}, false
	}

	log := logger.FromContextOr(ctx, e.logger)
	defer func() {
		if r := recover(); r != nil {
			log.Warn("Ranking panicked, keeping original order", zap.Any("panic", r))
			metrics.RankingOutcomeTotal.WithLabelValues("fallback").Inc()
			ranked, applied = unscored(records), false
		}
	}()

	snap := e.source.load()
	if !snap.enabled {
		metrics.RankingOutcomeTotal.WithLabelValues("disabled").Inc()
		return unscored(records), false
	}
	now := e.now()
	type entry struct {
		scored result.Scored
		raw    float64
	}
	entries := make([]entry, len(records))
	for i, t := range records {
		raw, err := score(snap.cfg, t, activity[t.ID()], now)
		if err != nil {
			log.Warn("Ranking failed, keeping original order", zap.Int64("trade_id", t.ID()), zap.Error(err))
			metrics.RankingOutcomeTotal.WithLabelValues("fallback").Inc()
			return unscored(records), false
		}
		entries[i] = entry{scored: result.New(t, clamp(raw)), raw: raw}
	}

	// Weights summing past 1 push totals above 100; order on the unclamped value.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].raw > entries[j].raw
	})
	out := make([]result.Scored, len(entries))
	for i, en := range entries {
		out[i] = en.scored
	}
	metrics.RankingOutcomeTotal.WithLabelValues("ranked").Inc()
	return out, true
}

func unscored(records []trade.Trade) []result.Scored {
	out := make([]result.Scored, len(records))
	for i, t := range records {
		out[i] = result.Unscored(t)
	}
	return out
}

// score returns the unclamped weighted total.
func score(cfg ranking.Config, t trade.Trade, activity int, now time.Time) (float64, error) {
	w := cfg.Weights()
	total := w.StatusUrgency*cfg.StatusPriority(t.Status()) +
		w.Recency*recencyScore(cfg.Recency(), lastActivity(t), now) +
		w.TransactionVolume*volumeScore(cfg.Volume(), activity) +
		w.AssetTypeRisk*cfg.AssetPriority(t.AssetType())

	if math.IsNaN(total) || math.IsInf(total, 0) {
		return 0, fmt.Errorf("score for trade %d is not finite", t.ID())
	}
	return total, nil
}

func clamp(score float64) float64 {
	return math.Max(0, math.Min(100, score))
}

func lastActivity(t trade.Trade) time.Time {
	if !t.UpdateTime().IsZero() {
		return t.UpdateTime()
	}
	return t.CreateTime()
}

// recencyScore decays by half every HalfLifeDays and drops to 0 past MaxAgeDays.
func recencyScore(r ranking.Recency, ts, now time.Time) float64 {
	if ts.IsZero() {
		return missingTimestampScore
	}
	ageDays := float64(now.Sub(ts)) / float64(day)
	if ageDays < 0 {
		ageDays = 0
	}
	if ageDays > r.MaxAgeDays {
		return 0
	}
	return 100 * math.Pow(0.5, ageDays/r.HalfLifeDays)
}

// volumeScore maps a transaction count onto [0,100]: baseline below the bonus threshold,
// linear up to the ceiling.
func volumeScore(v ranking.Volume, count int) float64 {
	switch {
	case count <= 0:
		return 0
	case count < v.MinForBonus:
		return v.Baseline
	case count >= v.MaxForScore:
		return 100
	}
	span := float64(v.MaxForScore - v.MinForBonus)
	return v.Baseline + (100-v.Baseline)*float64(count-v.MinForBonus)/span
}
