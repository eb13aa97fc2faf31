/*
scenarios.go - Demo roster sets for testing and demonstrations

PURPOSE:
	Provides pre-built roster documents that exercise specific parts of the
	engine. Loading a scenario replaces every stored document and the
	settings of one crew member.

AVAILABLE SCENARIOS:

	long-haul-rotation: New York trip with partial/full/partial days, hotel
	                    nights, commute days and a reimbursement statement
	month-boundary:     Overnight Cape Town flight printed on both January
	                    and February rosters (anchored continuation)
	missing-month:      March roster whose trip started in an un-uploaded
	                    February (orphan continuation, incomplete trip)
	short-haul:         Domestic and European day trips, ground duty and a
	                    training day, one-way commuting
	time-zones:         Delhi trip where the local hotel-night rule matters

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "month-boundary", "crew_id": "demo"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Add its documents and settings to scenarioData

SEE ALSO:
  - handlers.go: saveDocument, calculation handlers
  - factory/roster.go: Document schema
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/warp/crewtax/duty"
	"github.com/warp/crewtax/factory"
	"github.com/warp/crewtax/generic"
)

// DefaultScenarioCrewID is used when a load request names no crew member.
const DefaultScenarioCrewID = "demo"

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "long-haul-rotation",
		Name:        "Long-Haul Rotation",
		Description: "Three-day New York trip, commute days and a reimbursement statement",
		Category:    "allowances",
	},
	{
		ID:          "month-boundary",
		Name:        "Month Boundary",
		Description: "Overnight flight on 31 January printed again on the February roster",
		Category:    "continuation",
	},
	{
		ID:          "missing-month",
		Name:        "Missing Month",
		Description: "March roster whose trip began in a February that was never uploaded",
		Category:    "continuation",
	},
	{
		ID:          "short-haul",
		Name:        "Short Haul",
		Description: "Day trips, ground duty and a training day with one-way commuting",
		Category:    "commute",
	},
	{
		ID:          "time-zones",
		Name:        "Time Zones",
		Description: "Delhi trip where hotel nights follow local time",
		Category:    "hotel",
	},
}

type scenario struct {
	documents []factory.RosterJSON
	settings  func(duty.Settings) duty.Settings
}

// scenarioData builds the documents of every scenario.
func scenarioData() map[string]scenario {
	withDistance := func(km int64, driveMinutes int) func(duty.Settings) duty.Settings {
		return func(s duty.Settings) duty.Settings {
			s.DistanceKm = decimal.NewFromInt(km)
			s.DriveTimeMinutes = driveMinutes
			return s
		}
	}

	return map[string]scenario{
		"long-haul-rotation": {
			documents: []factory.RosterJSON{
				flightHours(2025, 3, "Flugstunden_2025_03.pdf",
					[]duty.RawFlight{
						flight("04.03.2025", "LH400", "FRA", "JFK", "10:00", "8:30", duty.DutyA),
						flight("06.03.2025", "LH401", "JFK", "FRA", "08:00", "7:45", duty.DutyE),
						flight("12.03.2025", "LH100", "FRA", "MUC", "07:00", "1:00", duty.DutyA),
						flight("12.03.2025", "LH101", "MUC", "FRA", "09:00", "1:00", duty.DutyE),
					},
					[]duty.RawMarker{
						{Date: "05.03.2025", Type: duty.MarkerAbroad},
						{Date: "18.03.2025", Type: duty.MarkerMedical},
					},
				),
				reimbursement(2025, 3, "54.00"),
			},
			settings: withDistance(30, 60),
		},

		"month-boundary": {
			documents: []factory.RosterJSON{
				flightHours(2025, 1, "Flugstunden_2025_01.pdf",
					[]duty.RawFlight{
						flight("31.01.2025", "LH576", "FRA", "CPT", "21:30", "11:30", duty.DutyA),
					}, nil,
				),
				flightHours(2025, 2, "Flugstunden_2025_02.pdf",
					[]duty.RawFlight{
						flight("01.02.2025", "LH576/31", "FRA", "CPT", "21:30", "11:30", duty.DutyNone),
						flight("03.02.2025", "LH577", "CPT", "FRA", "19:00", "11:15", duty.DutyE),
					},
					[]duty.RawMarker{
						{Date: "02.02.2025", Type: duty.MarkerAbroad},
					},
				),
			},
			settings: withDistance(42, 45),
		},

		"missing-month": {
			documents: []factory.RosterJSON{
				flightHours(2025, 3, "Flugstunden_2025_03.pdf",
					[]duty.RawFlight{
						flight("01.03.2025", "LH572/28", "FRA", "JNB", "20:45", "10:35", duty.DutyNone),
						flight("03.03.2025", "LH573", "JNB", "FRA", "20:10", "10:45", duty.DutyE),
					},
					[]duty.RawMarker{
						{Date: "02.03.2025", Type: duty.MarkerAbroad},
					},
				),
			},
			settings: withDistance(25, 40),
		},

		"short-haul": {
			documents: []factory.RosterJSON{
				flightHours(2025, 5, "Flugstunden_2025_05.pdf",
					[]duty.RawFlight{
						flight("05.05.2025", "LH1234", "FRA", "LHR", "06:30", "1:40", duty.DutyA),
						flight("05.05.2025", "LH1235", "LHR", "FRA", "10:00", "1:35", duty.DutyE),
						flight("06.05.2025", "LH170", "FRA", "BER", "07:00", "1:10", duty.DutyA),
						flight("06.05.2025", "LH171", "BER", "FRA", "09:30", "1:10", duty.DutyE),
						flight("14.05.2025", "LH180", "FRA", "HAM", "09:00", "1:05", duty.DutyNone),
						flight("14.05.2025", "LH181", "HAM", "FRA", "11:30", "1:05", duty.DutyNone),
					},
					[]duty.RawMarker{
						{Date: "08.05.2025", Type: duty.MarkerEM},
						{Date: "09.05.2025", Type: duty.MarkerRE},
						{Date: "20.05.2025", Type: duty.MarkerMedical},
					},
				),
			},
			settings: func(s duty.Settings) duty.Settings {
				s = withDistance(18, 30)(s)
				s.OneWay = true
				return s
			},
		},

		"time-zones": {
			documents: []factory.RosterJSON{
				flightHours(2025, 6, "Flugstunden_2025_06.pdf",
					[]duty.RawFlight{
						flight("10.06.2025", "LH760", "FRA", "DEL", "13:00", "7:30", duty.DutyA),
						flight("12.06.2025", "LH761", "DEL", "FRA", "02:30", "8:40", duty.DutyE),
					},
					[]duty.RawMarker{
						{Date: "11.06.2025", Type: duty.MarkerAbroad},
					},
				),
			},
			settings: withDistance(55, 75),
		},
	}
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario replaces the documents and settings of a crew member with a
// predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.CrewID == "" {
		req.CrewID = DefaultScenarioCrewID
	}

	var meta *ScenarioDTO
	for i := range scenarios {
		if scenarios[i].ID == req.ScenarioID {
			meta = &scenarios[i]
		}
	}
	sc, ok := scenarioData()[req.ScenarioID]
	if meta == nil || !ok {
		writeError(w, http.StatusNotFound, "Unknown scenario", fmt.Errorf("%q", req.ScenarioID))
		return
	}

	rosters, err := h.loadScenario(r.Context(), generic.CrewID(req.CrewID), sc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.Logger.InfoContext(r.Context(), "scenario loaded", "scenario", req.ScenarioID, "crew_id", req.CrewID, "rosters", len(rosters))
	writeJSON(w, http.StatusOK, LoadScenarioResponse{
		Scenario: *meta,
		CrewID:   req.CrewID,
		Rosters:  rosters,
	})
}

func (h *Handler) loadScenario(ctx context.Context, crewID generic.CrewID, sc scenario) ([]RosterDTO, error) {
	existing, err := h.Store.ListRosters(ctx, crewID)
	if err != nil {
		return nil, err
	}
	for _, rec := range existing {
		if err := h.Store.DeleteRoster(ctx, crewID, rec.ID); err != nil {
			return nil, err
		}
	}

	rosters := make([]RosterDTO, 0, len(sc.documents))
	for _, rj := range sc.documents {
		doc, err := h.Rosters.FromJSON(rj)
		if err != nil {
			return nil, fmt.Errorf("scenario document %d/%d: %w", rj.Year, rj.Month, err)
		}
		rec, err := h.saveDocument(ctx, crewID, doc, false)
		if err != nil {
			return nil, err
		}
		rosters = append(rosters, toRosterDTO(rec, doc))
	}

	settings := h.Settings.Defaults
	if sc.settings != nil {
		settings = sc.settings(settings)
	}
	stored, err := h.Settings.ToJSON(settings)
	if err != nil {
		return nil, err
	}
	if err := h.Store.SaveSettings(ctx, crewID, stored); err != nil {
		return nil, err
	}
	return rosters, nil
}

// =============================================================================
// DOCUMENT BUILDERS
// =============================================================================

func flightHours(year, month int, source string, flights []duty.RawFlight, markers []duty.RawMarker) factory.RosterJSON {
	return factory.RosterJSON{
		Kind:    string(generic.RosterFlightHours),
		Year:    year,
		Month:   month,
		Source:  source,
		Flights: flights,
		Markers: markers,
	}
}

func reimbursement(year, month int, taxFree string) factory.RosterJSON {
	amount := decimal.RequireFromString(taxFree)
	return factory.RosterJSON{
		Kind:    string(generic.RosterReimbursement),
		Year:    year,
		Month:   month,
		Source:  fmt.Sprintf("Streckeneinsatzabrechnung_%d_%02d.pdf", year, month),
		TaxFree: &amount,
	}
}

func flight(date, number, from, to, dep, block string, code duty.DutyCode) duty.RawFlight {
	return duty.RawFlight{
		Date:          date,
		FlightNumber:  number,
		From:          from,
		To:            to,
		DepartureTime: dep,
		BlockTime:     block,
		DutyCode:      code,
	}
}
