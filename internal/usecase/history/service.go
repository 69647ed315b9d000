// Package history manages per-user query history: listing, saving, usage tracking
// and typeahead suggestions.
package history

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tradesearch/internal/domain"
	domhist "github.com/kailas-cloud/tradesearch/internal/domain/history"
	"github.com/kailas-cloud/tradesearch/internal/logger"
)

// RecentWindow is the look-back window for Stats.Recent.
const RecentWindow = 7 * 24 * time.Hour

// Service handles query history operations with ownership checks.
type Service struct {
	repo          Repository
	values        ValueSource
	maxCandidates int
	now           func() time.Time
	logger        *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMaxCandidates sets the suggestion candidate budget.
func WithMaxCandidates(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxCandidates = n
		}
	}
}

// New creates a history service.
func New(repo Repository, values ValueSource, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		repo:          repo,
		values:        values,
		maxCandidates: DefaultMaxCandidates,
		now:           time.Now,
		logger:        logger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// List returns a user's entries by most recent use. limit is clamped to [1,100], default 50.
func (s *Service) List(ctx context.Context, userID string, limit int, savedOnly bool) ([]domhist.Record, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	recs, err := s.repo.List(ctx, userID, domhist.ClampLimit(limit), savedOnly)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return recs, nil
}

// Stats summarizes a user's history. Recent counts entries used in the last 7 days.
func (s *Service) Stats(ctx context.Context, userID string) (domhist.Stats, error) {
	if err := requireUser(userID); err != nil {
		return domhist.Stats{}, err
	}
	st, err := s.repo.Stats(ctx, userID, s.now().Add(-RecentWindow))
	if err != nil {
		return domhist.Stats{}, fmt.Errorf("history stats: %w", err)
	}
	return st, nil
}

// Update saves or unsaves an entry owned by userID and returns the updated record.
func (s *Service) Update(ctx context.Context, id int64, userID string, u domhist.Update) (domhist.Record, error) {
	if _, err := s.owned(ctx, id, userID); err != nil {
		return domhist.Record{}, err
	}
	if err := s.repo.Update(ctx, id, u); err != nil {
		return domhist.Record{}, fmt.Errorf("update history %d: %w", id, err)
	}
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return domhist.Record{}, fmt.Errorf("reload history %d: %w", id, err)
	}
	return rec, nil
}

// Touch marks an entry owned by userID as used now.
func (s *Service) Touch(ctx context.Context, id int64, userID string) error {
	if _, err := s.owned(ctx, id, userID); err != nil {
		return err
	}
	if err := s.repo.Touch(ctx, id, s.now()); err != nil {
		return fmt.Errorf("touch history %d: %w", id, err)
	}
	return nil
}

// Delete removes an entry owned by userID.
func (s *Service) Delete(ctx context.Context, id int64, userID string) error {
	if _, err := s.owned(ctx, id, userID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete history %d: %w", id, err)
	}
	return nil
}

// DeleteAll removes every entry of userID and returns how many were removed.
func (s *Service) DeleteAll(ctx context.Context, userID string) (int, error) {
	if err := requireUser(userID); err != nil {
		return 0, err
	}
	n, err := s.repo.DeleteAll(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("delete history: %w", err)
	}
	logger.FromContextOr(ctx, s.logger).Info("History cleared", zap.String("user_id", userID), zap.Int("deleted", n))
	return n, nil
}

// owned loads id and checks it belongs to userID.
func (s *Service) owned(ctx context.Context, id int64, userID string) (domhist.Record, error) {
	if err := requireUser(userID); err != nil {
		return domhist.Record{}, err
	}
	if id <= 0 {
		return domhist.Record{}, domain.NewValidationError("query_id", "must be a positive integer")
	}
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return domhist.Record{}, fmt.Errorf("get history %d: %w", id, err)
	}
	if !rec.OwnedBy(userID) {
		logger.FromContextOr(ctx, s.logger).Warn("History access denied",
			zap.Int64("query_id", id),
			zap.String("user_id", userID),
		)
		return domhist.Record{}, fmt.Errorf("history %d: %w", id, domain.ErrUnauthorizedHistoryAccess)
	}
	return rec, nil
}

func requireUser(userID string) error {
	if userID == "" {
		return domain.NewValidationError("user_id", "is required")
	}
	return nil
}
