/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Roster documents are
  accepted in the factory's schema (factory.RosterJSON) unchanged; the
  types here wrap them with ids and metadata, and wrap engine results with
  a run id.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done by the factory and in handlers, not in DTOs.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/roster.go: RosterJSON type
*/
package api

import (
	"encoding/json"

	"github.com/shopspring/decimal"
	"github.com/warp/crewtax/duty"
	"github.com/warp/crewtax/factory"
	"github.com/warp/crewtax/geo"
	"github.com/warp/crewtax/rates"
)

// =============================================================================
// ROSTERS
// =============================================================================

// RosterDTO describes one stored document.
type RosterDTO struct {
	ID         string `json:"id"`
	CrewID     string `json:"crew_id"`
	Kind       string `json:"kind"`
	Year       int    `json:"year"`
	Month      int    `json:"month"`
	Source     string `json:"source,omitempty"`
	Flights    int    `json:"flights"`
	Markers    int    `json:"markers"`
	UploadedAt string `json:"uploaded_at"`
}

// RosterDetailDTO is a stored document including its content.
type RosterDetailDTO struct {
	RosterDTO
	Document factory.RosterJSON `json:"document"`
}

// =============================================================================
// CALCULATION
// =============================================================================

// CalculateRequest is the body of the stateless calculation endpoint.
// Settings may be omitted; missing fields take the server defaults.
type CalculateRequest struct {
	Documents []factory.RosterJSON `json:"documents"`
	Settings  json.RawMessage      `json:"settings,omitempty"`
}

// CalculationDTO wraps one engine run.
type CalculationDTO struct {
	RunID    string        `json:"run_id"`
	CrewID   string        `json:"crew_id,omitempty"`
	Settings duty.Settings `json:"settings"`
	Result   duty.Result   `json:"result"`
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

// RateDTO is a rate-table lookup.
type RateDTO struct {
	rates.Rate
	TipPerNight decimal.Decimal    `json:"tip_per_night"`
	Distance    rates.DistanceRate `json:"distance"`
}

// AirportDTO is a geography lookup.
type AirportDTO struct {
	geo.Location
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo roster set.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// LoadScenarioRequest selects a scenario and the crew member it is loaded for.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
	CrewID     string `json:"crew_id"`
}

// LoadScenarioResponse reports what was stored.
type LoadScenarioResponse struct {
	Scenario ScenarioDTO `json:"scenario"`
	CrewID   string      `json:"crew_id"`
	Rosters  []RosterDTO `json:"rosters"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
