package health

import "context"

// Pinger checks store availability (record store, cache backend).
type Pinger interface {
	Ping(ctx context.Context) error
}

// ModelChecker checks generative model availability.
type ModelChecker interface {
	HealthCheck(ctx context.Context) error
}
