/*
store.go - Persistence interface for uploaded roster documents and settings

PURPOSE:
  Defines the interface between the HTTP layer and the database. Only INPUTS
  are stored: the roster documents a crew member uploaded and their settings.
  Every calculation result is recomputed from these inputs on each request;
  nothing derived is ever persisted.

KEY INTERFACES:
  RosterStore: Roster documents (one per crew member, month and kind)
               plus the crew member's settings document.

WHY STORE RAW DOCUMENTS?
  The classifier needs backward and forward look-aheads across month
  boundaries (continuation flights, incomplete trips). Storing derived
  state per month would freeze decisions that a later upload changes.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite with goose migrations
  - generic/store/memory.go: In-memory for testing

EXAMPLE:
  err := store.SaveRoster(ctx, generic.RosterRecord{...})
  if errors.Is(err, generic.ErrDuplicateRoster) {
      // replace or reject
  }

SEE ALSO:
  - factory/roster.go: Decodes Document into duty.Roster
  - store/sqlite/sqlite.go: Concrete implementation
*/
package generic

import (
	"context"
	"time"
)

// =============================================================================
// ROSTER STORE
// =============================================================================

// RosterKind distinguishes the two document types crew members upload.
type RosterKind string

const (
	// RosterFlightHours is the monthly flight-hours statement (flights + markers).
	RosterFlightHours   RosterKind = "flight_hours"
	// RosterReimbursement is the employer's tax-free travel reimbursement statement.
	RosterReimbursement RosterKind = "reimbursement"
)

// RosterRecord is one uploaded document, stored as the JSON the parser produced.
type RosterRecord struct {
	ID         RosterID
	CrewID     CrewID
	Kind       RosterKind
	Year       int
	Month      time.Month
	Source     string // original file name
	Document   string // JSON, decoded by factory
	UploadedAt time.Time
}

// RosterStore handles persistence of roster documents and settings.
type RosterStore interface {
	// SaveRoster stores a document. Returns ErrDuplicateRoster if the crew
	// member already has a document of the same kind for that month.
	SaveRoster(ctx context.Context, rec RosterRecord) error

	// ReplaceRoster stores a document in place of any document of the same
	// kind and month, in one step. If it fails the previous document is kept.
	ReplaceRoster(ctx context.Context, rec RosterRecord) error

	// ListRosters returns all documents of a crew member ordered by year, month, kind.
	ListRosters(ctx context.Context, crewID CrewID) ([]RosterRecord, error)

	// GetRoster returns one document or ErrRosterNotFound.
	GetRoster(ctx context.Context, crewID CrewID, id RosterID) (RosterRecord, error)

	// DeleteRoster removes one document or returns ErrRosterNotFound.
	DeleteRoster(ctx context.Context, crewID CrewID, id RosterID) error

	// SaveSettings replaces the crew member's settings document (JSON).
	SaveSettings(ctx context.Context, crewID CrewID, settingsJSON string) error

	// LoadSettings returns the settings document or ErrCrewNotFound.
	LoadSettings(ctx context.Context, crewID CrewID) (string, error)
}
