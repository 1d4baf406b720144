package health

import "errors"

var (
	// ErrCheckTimeout indicates a check did not finish before its deadline.
	ErrCheckTimeout = errors.New("health: check timed out")

	// ErrCheckerNotFound indicates no checker is registered under the name.
	ErrCheckerNotFound = errors.New("health: checker not found")

	// ErrBacklog indicates the outbox holds more items than its limit.
	ErrBacklog = errors.New("health: outbox backlog over limit")
)
