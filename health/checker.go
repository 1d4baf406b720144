package health

import (
	"context"
	"time"
)

// Status grades the health of a component.
type Status int

const (
	// StatusHealthy means the component works as intended.
	StatusHealthy Status = iota

	// StatusDegraded means the component works with reduced capability.
	StatusDegraded

	// StatusUnhealthy means the component cannot do its job.
	StatusUnhealthy
)

// String returns the lower-case name of the status.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Result is the outcome of one check.
type Result struct {
	Status  Status
	Message string

	// Details carries checker-specific measurements for the detailed report.
	Details map[string]any

	// Duration and CheckedAt are stamped by the aggregator.
	Duration  time.Duration
	CheckedAt time.Time

	// Err is set when the check failed outright.
	Err error
}

// Healthy builds a healthy result.
func Healthy(message string) Result {
	return Result{Status: StatusHealthy, Message: message, CheckedAt: time.Now()}
}

// Degraded builds a degraded result.
func Degraded(message string) Result {
	return Result{Status: StatusDegraded, Message: message, CheckedAt: time.Now()}
}

// Unhealthy builds an unhealthy result carrying its cause.
func Unhealthy(message string, err error) Result {
	return Result{Status: StatusUnhealthy, Message: message, Err: err, CheckedAt: time.Now()}
}

// WithDetails returns a copy of r with details attached.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// Checker probes one component.
type Checker interface {
	// Name identifies the component in reports. Names are unique within
	// an aggregator.
	Name() string

	// Check probes the component. It must return rather than hang; the
	// aggregator enforces a deadline around it regardless.
	Check(ctx context.Context) Result
}

// CheckFunc adapts a named function to the Checker interface.
type CheckFunc struct {
	name string
	fn   func(context.Context) Result
}

// NewCheckFunc wraps fn as a checker reporting under name.
func NewCheckFunc(name string, fn func(context.Context) Result) *CheckFunc {
	return &CheckFunc{name: name, fn: fn}
}

// Name returns the checker name.
func (c *CheckFunc) Name() string { return c.name }

// Check calls the wrapped function.
func (c *CheckFunc) Check(ctx context.Context) Result { return c.fn(ctx) }

var _ Checker = (*CheckFunc)(nil)
