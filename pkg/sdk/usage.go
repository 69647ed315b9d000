package tradesearch

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/tradesearch/internal/domain/usage"
)

// UsagePeriod is the aggregation granularity for usage reports.
type UsagePeriod string

// UsagePeriod constants.
const (
	PeriodDay   UsagePeriod = "day"
	PeriodMonth UsagePeriod = "month"
	PeriodTotal UsagePeriod = "total"
)

// UsageReport contains model token usage for a time period.
type UsageReport struct {
	Period      UsagePeriod
	Model       string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Requests    int
	Tokens      int
	Errors      int
	Budget      BudgetStatus
}

// BudgetStatus tracks token quota state. The embedded client runs without a
// budget, so TokensLimit is always 0.
type BudgetStatus struct {
	TokensLimit     int
	TokensRemaining int
	IsExhausted     bool
	ResetsAt        time.Time
}

// Usage returns a model usage report for the given period.
// Observer always records success: the underlying use-case is in-memory
// and does not produce errors.
func (c *Client) Usage(ctx context.Context, period UsagePeriod) UsageReport {
	start := time.Now()
	defer func() { c.obs.observe("usage", start, nil) }()

	report := c.usageSvc.GetReport(ctx, domusage.Period(period))
	m := report.Metrics()
	b := report.Budget()

	out := UsageReport{
		Period:      UsagePeriod(report.Period()),
		Model:       report.Model(),
		PeriodStart: time.UnixMilli(report.PeriodStart()).UTC(),
		PeriodEnd:   time.UnixMilli(report.PeriodEnd()).UTC(),
		Requests:    m.Requests(),
		Tokens:      m.Tokens(),
		Errors:      m.Errors(),
		Budget: BudgetStatus{
			TokensLimit:     b.TokensLimit(),
			TokensRemaining: b.TokensRemaining(),
			IsExhausted:     b.IsExhausted(),
		},
	}
	if b.ResetsAt() > 0 {
		out.Budget.ResetsAt = time.UnixMilli(b.ResetsAt()).UTC()
	}
	return out
}

// usageUseCase is the internal interface for usage reports.
type usageUseCase interface {
	GetReport(ctx context.Context, period domusage.Period) domusage.Report
}
