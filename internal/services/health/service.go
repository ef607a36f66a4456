package health

import (
	"context"
	"sort"
	"time"
)

const defaultCheckTimeout = 2 * time.Second

// Checker reports whether one dependency is reachable.
type Checker interface {
	Ping(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Ping(ctx context.Context) error { return f(ctx) }

// Status is the health payload: overall OK plus one entry per dependency.
type Status struct {
	OK     bool              `json:"ok"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Service encapsulates health-related checks.
type Service struct {
	checks  map[string]Checker
	timeout time.Duration
}

// NewService constructs a health service. A service with no checks is always healthy.
func NewService(checks map[string]Checker) *Service {
	copied := make(map[string]Checker, len(checks))
	for name, c := range checks {
		if c != nil {
			copied[name] = c
		}
	}
	return &Service{checks: copied, timeout: defaultCheckTimeout}
}

// Status pings every dependency, each under its own timeout.
func (s *Service) Status(ctx context.Context) Status {
	status := Status{OK: true}
	if s == nil || len(s.checks) == 0 {
		return status
	}
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status.Checks = make(map[string]string, len(names))
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, s.timeout)
		err := s.checks[name].Ping(checkCtx)
		cancel()
		if err != nil {
			status.OK = false
			status.Checks[name] = err.Error()
			continue
		}
		status.Checks[name] = "ok"
	}
	return status
}
