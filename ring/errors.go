package ring

import "errors"

var (
	// ErrCapacity is returned by New when the capacity is not a positive
	// power of two.
	ErrCapacity = errors.New("ring: capacity must be a positive power of two")

	// ErrFull is returned by TryClaim when every slot is claimed and not yet
	// released by the consumer.
	ErrFull = errors.New("ring: buffer full")

	// ErrClaimTimeout is returned when a blocking claim gives up.
	ErrClaimTimeout = errors.New("ring: claim timed out")

	// ErrNotStarted is returned for claims made before Start.
	ErrNotStarted = errors.New("ring: buffer not started")

	// ErrClosed is returned for claims made after Close.
	ErrClosed = errors.New("ring: buffer closed")
)
