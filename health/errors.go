package health

import "errors"

var (
	// ErrCheckFailed indicates a health check failed.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout indicates a health check did not finish in time.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCircuitOpen is reported by breaker checks while the circuit is open.
	ErrCircuitOpen = errors.New("health: circuit open")
)
