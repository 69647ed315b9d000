// Package usage reports model token consumption against the configured budget.
package usage

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/tradesearch/internal/domain/usage"
	"github.com/kailas-cloud/tradesearch/internal/domain/usage/budget"
	"github.com/kailas-cloud/tradesearch/internal/domain/usage/metrics"
)

// Service handles usage reporting.
type Service struct {
	br    BudgetReader
	model string
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for period boundaries.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service. br can be nil (unlimited mode).
func New(br BudgetReader, model string, opts ...Option) *Service {
	s := &Service{br: br, model: model, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// GetReport builds a usage report for the given period.
func (s *Service) GetReport(_ context.Context, period domusage.Period) domusage.Report {
	now := s.now().UTC()
	var start, end int64
	var limit, used, remaining int64

	switch period {
	case domusage.PeriodDay:
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		start = dayStart.UnixMilli()
		end = dayStart.Add(24 * time.Hour).UnixMilli()
		if s.br != nil {
			limit = s.br.DailyLimit()
			used = s.br.DailyUsed()
			remaining = s.br.RemainingDaily()
		}
	case domusage.PeriodMonth:
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		start = monthStart.UnixMilli()
		end = monthStart.AddDate(0, 1, 0).UnixMilli()
		if s.br != nil {
			limit = s.br.MonthlyLimit()
			used = s.br.MonthlyUsed()
			remaining = s.br.RemainingMonthly()
		}
	default:
		// total: no period boundaries; the monthly counter is the widest one kept
		if s.br != nil {
			limit = s.br.MonthlyLimit()
			used = s.br.MonthlyUsed()
			remaining = s.br.RemainingMonthly()
		}
	}

	exhausted := limit > 0 && remaining <= 0

	b := budget.New(int(limit), int(remaining), exhausted, end)
	m := metrics.New(0, int(used), 0) // requests and errors live in Prometheus only

	return domusage.NewReport(period, start, end, s.model, m, b)
}
