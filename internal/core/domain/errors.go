package domain

import "errors"

// Failure taxonomy for the compositing engine. All three are recovered
// locally: the session continues and the previous visual state is kept.
var (
	// ErrFetchUnavailable marks a network/file miss. Treated as "feature
	// absent", never surfaced as a blocking error.
	ErrFetchUnavailable = errors.New("fetch unavailable")

	// ErrDecodeFailure marks a malformed raster or vector payload. Aborts
	// only the affected layer's materialization.
	ErrDecodeFailure = errors.New("decode failure")

	// ErrBoundsUnavailable blocks a cold-path transition; the previously
	// materialized layer stays visible.
	ErrBoundsUnavailable = errors.New("bounds unavailable")
)
