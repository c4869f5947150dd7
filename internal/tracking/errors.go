package tracking

import (
	"errors"

	"vaxbot/internal/shared"
)

// Domain errors, marked with shared kinds so callers and tests can classify
// by kind instead of matching message text.
var (
	// ErrInvalidPostalCodes indicates at least one code is not a 6-digit string.
	ErrInvalidPostalCodes = shared.MarkKind(errors.New("invalid postal codes"), shared.KindValidation)

	// ErrIntervalTooShort indicates the requested polling interval is below MinInterval.
	ErrIntervalTooShort = shared.MarkKind(errors.New("interval too short"), shared.KindValidation)

	// ErrNotRegistered indicates the user has no active tracking entry.
	ErrNotRegistered = shared.MarkKind(errors.New("not registered"), shared.KindNotFound)

	// ErrFetchFailed indicates the availability lookup failed even after the
	// public fallback.
	ErrFetchFailed = shared.MarkKind(errors.New("availability fetch failed"), shared.KindDependencyFailure)
)
