package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names reported in Report.Checks.
const (
	ComponentDatabase = "database"
	ComponentCache    = "cache"
	ComponentModel    = "model"
)

const defaultCheckTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db      Pinger
	cache   Pinger
	model   ModelChecker
	timeout time.Duration
}

// New creates a Service. cache and model can be nil.
func New(db, cache Pinger, model ModelChecker) *Service {
	return &Service{db: db, cache: cache, model: model, timeout: defaultCheckTimeout}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	checks[ComponentDatabase] = s.run(ctx, s.db.Ping)
	if s.cache != nil {
		checks[ComponentCache] = s.run(ctx, s.cache.Ping)
	}
	if s.model != nil {
		checks[ComponentModel] = s.run(ctx, s.model.HealthCheck)
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}

func (s *Service) run(ctx context.Context, check func(context.Context) error) CheckResult {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := check(cctx); err != nil {
		return CheckError
	}
	return CheckOK
}
