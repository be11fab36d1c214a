package upscale

import "errors"

// Error taxonomy. Failures local to one execution path are absorbed by
// the engine's fallback; only the sentinels below reach callers, always
// wrapped with context and classifiable via errors.Is.
var (
	// ErrInvalidInput is returned when request parameters are malformed
	// (scale factor < 1, zero-area source, nil image). Rejected before
	// any resource is acquired.
	ErrInvalidInput = errors.New("upscale: invalid input")

	// ErrOutOfMemory is raised internally when a device allocation
	// cannot fit under the memory ceiling. Handled by falling back to
	// the CPU path; callers only observe it if the host path hits its
	// own limit too.
	ErrOutOfMemory = errors.New("upscale: out of memory")

	// ErrImageTooLarge is returned at submission when no feasible plan
	// exists for any memory budget, including the host fallback.
	ErrImageTooLarge = errors.New("upscale: image too large")

	// ErrDeviceFailure indicates a kernel fault or device-lost
	// condition on the accelerated path. It triggers the fallback
	// transition and is surfaced only when the fallback fails as well.
	ErrDeviceFailure = errors.New("upscale: device failure")

	// ErrCancelled is the terminal reason for a caller-cancelled
	// session, honored at the next stage boundary.
	ErrCancelled = errors.New("upscale: cancelled")

	// ErrNotReady is returned by Result before the session completes.
	ErrNotReady = errors.New("upscale: result not ready")

	// ErrFatal indicates host-path resource exhaustion or an internal
	// invariant violation. The session ends in StatusError.
	ErrFatal = errors.New("upscale: fatal")

	// ErrClosed is returned when operating on a closed Upscaler.
	ErrClosed = errors.New("upscale: upscaler closed")

	// ErrSessionNotFound is returned for unknown or released session IDs.
	ErrSessionNotFound = errors.New("upscale: session not found")
)
