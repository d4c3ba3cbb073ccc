package service

import "errors"

// Error taxonomy surfaced to the transport layer. Callers classify with
// errors.Is; wrapped messages carry the detail.
var (
	// ErrValidation marks bad caller input (malformed time, empty name,
	// bad day-of-week). Never retried automatically.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a reference to a missing preset or schedule.
	ErrNotFound = errors.New("not found")

	// ErrActuator marks a pump driver failure. The controller stays in its
	// last known safe state when this is returned.
	ErrActuator = errors.New("actuator failure")

	// ErrCooldown rejects a start that arrives before the cooldown after
	// the previous stop has elapsed.
	ErrCooldown = errors.New("pump is in cooldown")
)
