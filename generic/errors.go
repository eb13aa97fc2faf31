/*
errors.go - Centralized error and warning types

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Input errors - Malformed roster documents or settings (client errors)
  2. Store errors - Missing rosters, persistence failures
  3. Warnings - Data-quality findings that never abort a calculation

ERRORS VS WARNINGS:
  Nothing in the calculation itself is fatal. An impossible date, an
  orphaned continuation flight or a trip without an observed departure
  all produce a Warning and the run continues. Only input that cannot be
  decoded at all is an error.

USAGE:
  if errors.Is(err, generic.ErrRosterNotFound) {
      // 404
  }

SEE ALSO:
  - duty/engine.go: Collects warnings
  - api/handlers.go: Maps errors to HTTP status codes
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidDate is returned when a date string cannot be parsed.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidTime is returned when a clock time is not HH:MM.
	ErrInvalidTime = errors.New("invalid time")

	// ErrInvalidRoster is returned when a roster document cannot be decoded.
	ErrInvalidRoster = errors.New("invalid roster document")

	// ErrInvalidSettings is returned when settings fail validation.
	ErrInvalidSettings = errors.New("invalid settings")

	// ErrRosterNotFound is returned when a referenced roster doesn't exist.
	ErrRosterNotFound = errors.New("roster not found")

	// ErrCrewNotFound is returned when a crew member has no stored data.
	ErrCrewNotFound = errors.New("crew member not found")

	// ErrDuplicateRoster is returned when the same roster month is uploaded twice.
	ErrDuplicateRoster = errors.New("roster for this month already stored")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// FieldError reports a single invalid field in an input document.
type FieldError struct {
	Field   string
	Value   string
	Problem string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Field, e.Value, e.Problem)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidRoster
}

// =============================================================================
// WARNINGS - Dismissible data-quality diagnostics
// =============================================================================

type WarningCode string

const (
	WarnInvalidDate         WarningCode = "invalid_date"
	WarnUnknownAirport      WarningCode = "unknown_airport"
	WarnInvalidTime         WarningCode = "invalid_time"
	WarnOrphanContinuation  WarningCode = "orphan_continuation"
	WarnIncompleteTrip      WarningCode = "incomplete_trip"
	WarnUnresolvedAbroadDay WarningCode = "unresolved_abroad_day"
)

// Warning is a non-fatal finding attached to a calculation result.
type Warning struct {
	Code    WarningCode `json:"code"`
	Date    string      `json:"date,omitempty"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	if w.Date == "" {
		return fmt.Sprintf("%s: %s", w.Code, w.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", w.Code, w.Date, w.Message)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRoster) ||
		errors.Is(err, ErrInvalidSettings) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidTime) ||
		errors.Is(err, ErrDuplicateRoster)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRosterNotFound) ||
		errors.Is(err, ErrCrewNotFound)
}
