// Package usage describes model token consumption reports.
package usage

import (
	"github.com/kailas-cloud/tradesearch/internal/domain/usage/budget"
	"github.com/kailas-cloud/tradesearch/internal/domain/usage/metrics"
)

// Period is the reporting window.
type Period string

// Reporting windows.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
	PeriodTotal Period = "total"
)

// IsValid reports whether p is a known window.
func (p Period) IsValid() bool {
	switch p {
	case PeriodDay, PeriodMonth, PeriodTotal:
		return true
	}
	return false
}

// Report is model usage for one window.
type Report struct {
	period      Period
	periodStart int64
	periodEnd   int64
	model       string
	metrics     metrics.Metrics
	budget      budget.Budget
}

// NewReport creates a usage report. Timestamps are unix millis.
func NewReport(period Period, start, end int64, model string, m metrics.Metrics, b budget.Budget) Report {
	return Report{
		period:      period,
		periodStart: start,
		periodEnd:   end,
		model:       model,
		metrics:     m,
		budget:      b,
	}
}

// Period returns the window.
func (r *Report) Period() Period { return r.period }

// PeriodStart returns the window start (unix millis).
func (r *Report) PeriodStart() int64 { return r.periodStart }

// PeriodEnd returns the window end (unix millis).
func (r *Report) PeriodEnd() int64 { return r.periodEnd }

// Model returns the configured model name.
func (r *Report) Model() string { return r.model }

// Metrics returns consumption counters.
func (r *Report) Metrics() metrics.Metrics { return r.metrics }

// Budget returns budget state for the window.
func (r *Report) Budget() budget.Budget { return r.budget }
