package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// ReachabilityChecker reports whether the AI service responds.
type ReachabilityChecker interface {
	IsReachable(ctx context.Context) bool
}
