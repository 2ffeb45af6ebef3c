package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates the database is reachable.
	Healthy Status = "ok"
	// Degraded indicates the database is not reachable.
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

// Report aggregates health check results.
type Report struct {
	Service            string
	Status             Status
	Database           CheckResult
	AIServiceReachable bool
	Uptime             time.Duration
	Version            string
}

// Healthy reports whether the service can serve requests.
func (r Report) Healthy() bool {
	return r.Status == Healthy
}

// Service coordinates health checks.
type Service struct {
	name    string
	version string
	db      DBPinger
	ai      ReachabilityChecker
	started time.Time
	now     func() time.Time
}

// New creates a Service. ai can be nil.
func New(name, version string, db DBPinger, ai ReachabilityChecker) *Service {
	return &Service{
		name:    name,
		version: version,
		db:      db,
		ai:      ai,
		started: time.Now(),
		now:     time.Now,
	}
}

// Check runs health checks against all components.
// Only the database decides the status; the AI service is reported but optional.
func (s *Service) Check(ctx context.Context) Report {
	r := Report{
		Service:  s.name,
		Status:   Healthy,
		Database: CheckOK,
		Uptime:   s.now().Sub(s.started),
		Version:  s.version,
	}

	if err := s.db.Ping(ctx); err != nil {
		r.Database = CheckError
		r.Status = Degraded
	}

	if s.ai != nil {
		r.AIServiceReachable = s.ai.IsReachable(ctx)
	}

	return r
}
