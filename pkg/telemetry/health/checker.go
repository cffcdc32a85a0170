package health

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status values reported by checks and by the overall health.
const (
	StatusOK        = "ok"
	StatusUnhealthy = "unhealthy"
	StatusReady     = "ready"
	StatusDegraded  = "degraded"
)

// CheckFunc is a function that performs a health check for a component.
// It returns nil if the component is healthy, or an error describing the problem.
type CheckFunc func(ctx context.Context) error

// CheckResult represents the result of a single health check.
type CheckResult struct {
	// Status is "ok" or "unhealthy".
	Status string `json:"status"`

	// Message describes the failure for unhealthy checks.
	Message string `json:"message,omitempty"`

	// Duration is how long the check took.
	Duration time.Duration `json:"duration_ns,omitempty"`
}

// HealthStatus represents the overall health of the process.
type HealthStatus struct {
	// Status is "ok" for liveness, "ready" or "degraded" for readiness.
	Status string `json:"status"`

	// Registry describes the active rule registry snapshot, when known.
	Registry *RegistryInfo `json:"registry,omitempty"`

	// Checks contains the status of individual components.
	Checks map[string]CheckResult `json:"checks,omitempty"`

	// Timestamp is when the health check was performed.
	Timestamp time.Time `json:"timestamp"`
}

// Checker manages health checks for process components.
type Checker struct {
	mu       sync.RWMutex
	checks   map[string]CheckFunc
	registry RegistryInfoFunc

	// Timeout for individual checks
	checkTimeout time.Duration
}

// ErrCheckTimeout is returned when a health check times out.
var ErrCheckTimeout = errors.New("health check timeout")

// New creates a new health checker with the specified check timeout.
// If timeout is 0, defaults to 5 seconds per check.
func New(checkTimeout time.Duration) *Checker {
	if checkTimeout == 0 {
		checkTimeout = 5 * time.Second
	}

	return &Checker{
		checks:       make(map[string]CheckFunc),
		checkTimeout: checkTimeout,
	}
}

// RegisterCheck registers a health check function for a named component.
// If a check with the same name already exists, it will be replaced.
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.checks[name] = check
}

// UnregisterCheck removes a health check for a named component.
func (c *Checker) UnregisterCheck(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.checks, name)
}

// SetRegistryInfo installs the function that describes the active snapshot.
func (c *Checker) SetRegistryInfo(fn RegistryInfoFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.registry = fn
}

// CheckLiveness reports that the process is running.
func (c *Checker) CheckLiveness(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    StatusOK,
		Registry:  c.registryInfo(),
		Timestamp: time.Now(),
	}
}

// CheckReadiness runs every registered check concurrently and aggregates
// the results. Any unhealthy check makes the process degraded.
func (c *Checker) CheckReadiness(ctx context.Context) HealthStatus {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	checks := make([]CheckFunc, 0, len(c.checks))
	for name, check := range c.checks {
		names = append(names, name)
		checks = append(checks, check)
	}
	c.mu.RUnlock()

	results := make([]CheckResult, len(checks))
	var g errgroup.Group
	for i, check := range checks {
		g.Go(func() error {
			results[i] = c.runCheck(ctx, check)
			return nil
		})
	}
	_ = g.Wait()

	status := StatusReady
	byName := make(map[string]CheckResult, len(results))
	for i, result := range results {
		byName[names[i]] = result
		if result.Status == StatusUnhealthy {
			status = StatusDegraded
		}
	}

	return HealthStatus{
		Status:    status,
		Registry:  c.registryInfo(),
		Checks:    byName,
		Timestamp: time.Now(),
	}
}

// runCheck executes a single health check with timeout.
func (c *Checker) runCheck(ctx context.Context, check CheckFunc) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, c.checkTimeout)
	defer cancel()

	start := time.Now()

	errChan := make(chan error, 1)
	go func() {
		errChan <- check(checkCtx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return CheckResult{Status: StatusUnhealthy, Message: err.Error(), Duration: time.Since(start)}
		}
		return CheckResult{Status: StatusOK, Duration: time.Since(start)}

	case <-checkCtx.Done():
		return CheckResult{Status: StatusUnhealthy, Message: ErrCheckTimeout.Error(), Duration: time.Since(start)}
	}
}

func (c *Checker) registryInfo() *RegistryInfo {
	c.mu.RLock()
	fn := c.registry
	c.mu.RUnlock()

	if fn == nil {
		return nil
	}
	info := fn()
	return &info
}

// ListChecks returns the sorted names of all registered health checks.
func (c *Checker) ListChecks() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	slices.Sort(names)

	return names
}
