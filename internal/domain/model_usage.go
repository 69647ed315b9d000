package domain

import "context"

type modelUsageKey struct{}

// ModelUsage collects model token consumption for one HTTP request.
// The handler installs it, the generator writes to it and the handler reports it in a header.
type ModelUsage struct {
	TotalTokens int
	Used        bool // set on any model call, including cache hits that cost 0 tokens
}

// NewContextWithUsage returns a context carrying a fresh usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *ModelUsage) {
	u := &ModelUsage{}
	return context.WithValue(ctx, modelUsageKey{}, u), u
}

// UsageFromContext returns the collector, or nil if none was installed.
func UsageFromContext(ctx context.Context) *ModelUsage {
	u, _ := ctx.Value(modelUsageKey{}).(*ModelUsage)
	return u
}

// AddTokens records consumed tokens. Safe on a nil receiver.
func (u *ModelUsage) AddTokens(n int) {
	if u != nil {
		u.TotalTokens += n
		u.Used = true
	}
}
