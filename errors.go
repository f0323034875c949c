package qcec

import "errors"

// Error kinds surfaced by the checker. Invalid circuits are rejected before
// any diagram work and never retried. Resource exhaustion and timeouts only
// affect the strategy that hit them.
var (
	// ErrInvalidCircuit indicates a malformed circuit: out-of-range qubit
	// index, duplicate target/control, or a non-finite gate parameter.
	ErrInvalidCircuit = errors.New("invalid circuit")

	// ErrResourceExhausted indicates that a decision diagram grew beyond the
	// configured node limit.
	ErrResourceExhausted = errors.New("resource exhausted")

	// ErrTimeout indicates that the wall-clock budget for a checking task
	// ran out before a verdict was reached.
	ErrTimeout = errors.New("timeout")

	// ErrNumericInstability indicates that a normalization invariant was
	// violated, usually caused by a misconfigured tolerance.
	ErrNumericInstability = errors.New("numeric instability")
)
