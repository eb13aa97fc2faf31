/*
Package factory provides JSON to Go roster and settings conversion.

PURPOSE:
  Converts the JSON documents produced by the document parser (one per
  uploaded PDF) into duty.Roster values the engine can run on, and the
  crew member's settings JSON into duty.Settings.

  The parser itself (PDF text extraction) lives outside this module. The
  factory is the contract boundary: anything it accepts the engine can
  process, and anything structurally broken is rejected here with an
  error wrapping generic.ErrInvalidRoster.

JSON SCHEMA (flight hours overview, Flugstundenübersicht):
  {
    "kind": "flight_hours",
    "year": 2025,
    "month": 3,
    "source": "Flugstunden_2025_03.pdf",
    "flights": [
      {"date": "01.03.2025", "flight_number": "LH400", "from": "FRA",
       "to": "JFK", "departure_time": "08:00", "arrival_time": "16:30",
       "block_time": "8:30", "duty_code": "A"}
    ],
    "markers": [
      {"date": "02.03.2025", "type": "FL"},
      {"date": "10.03.2025", "type": "ME"}
    ]
  }

JSON SCHEMA (expense statement, Streckeneinsatzabrechnung):
  {
    "kind": "reimbursement",
    "year": 2025,
    "month": 3,
    "tax_free": "123.40"
  }

WHAT IS VALIDATED HERE:
  Structure only: kind, year, month, required flight fields, airport code
  shape, marker types. Calendar validity of dates and plausibility of
  times are NOT checked here; the engine skips such records with a
  warning so one bad line does not reject a whole month.

USAGE:
  f := factory.NewRosterFactory()
  doc, err := f.ParseRoster(body)
  roster := factory.Combine(docs...)

SEE ALSO:
  - settings.go: Settings conversion
  - duty/types.go: Roster, RawFlight, RawMarker
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/crewtax/duty"
	"github.com/warp/crewtax/generic"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RosterJSON is the JSON representation of one uploaded document.
type RosterJSON struct {
	Kind    string           `json:"kind"`
	Year    int              `json:"year"`
	Month   int              `json:"month"`
	Source  string           `json:"source,omitempty"`
	Flights []duty.RawFlight `json:"flights,omitempty"`
	Markers []duty.RawMarker `json:"markers,omitempty"`
	TaxFree *decimal.Decimal `json:"tax_free,omitempty"`
}

// RosterDocument is a validated document.
type RosterDocument struct {
	Kind   generic.RosterKind
	Year   int
	Month  time.Month
	Source string
	Roster duty.Roster
}

// =============================================================================
// ROSTER FACTORY
// =============================================================================

// RosterFactory converts JSON roster documents to Go structs.
type RosterFactory struct{}

// NewRosterFactory creates a new roster factory.
func NewRosterFactory() *RosterFactory {
	return &RosterFactory{}
}

// ParseRoster parses a JSON document.
func (f *RosterFactory) ParseRoster(data []byte) (*RosterDocument, error) {
	var rj RosterJSON
	if err := json.Unmarshal(data, &rj); err != nil {
		return nil, fmt.Errorf("%w: %v", generic.ErrInvalidRoster, err)
	}
	return f.FromJSON(rj)
}

// FromJSON validates a RosterJSON and converts it.
func (f *RosterFactory) FromJSON(rj RosterJSON) (*RosterDocument, error) {
	kind, err := parseKind(rj.Kind)
	if err != nil {
		return nil, err
	}
	if rj.Year < 2000 || rj.Year > 2100 {
		return nil, &generic.FieldError{Field: "year", Value: fmt.Sprint(rj.Year), Problem: "out of range"}
	}
	if rj.Month < 1 || rj.Month > 12 {
		return nil, &generic.FieldError{Field: "month", Value: fmt.Sprint(rj.Month), Problem: "must be 1-12"}
	}

	doc := &RosterDocument{
		Kind:   kind,
		Year:   rj.Year,
		Month:  time.Month(rj.Month),
		Source: rj.Source,
	}

	switch kind {
	case generic.RosterFlightHours:
		for i, fl := range rj.Flights {
			fl.DutyCode = duty.DutyCode(strings.ToUpper(strings.TrimSpace(string(fl.DutyCode))))
			if err := validateFlight(i, fl); err != nil {
				return nil, err
			}
			fl.From = strings.ToUpper(strings.TrimSpace(fl.From))
			fl.To = strings.ToUpper(strings.TrimSpace(fl.To))
			doc.Roster.Flights = append(doc.Roster.Flights, fl)
		}
		for i, m := range rj.Markers {
			m.Type = duty.MarkerType(strings.ToUpper(strings.TrimSpace(string(m.Type))))
			if !m.Type.Valid() {
				return nil, &generic.FieldError{Field: fmt.Sprintf("markers[%d].type", i), Value: string(m.Type), Problem: "unknown marker type"}
			}
			if strings.TrimSpace(m.Date) == "" {
				return nil, &generic.FieldError{Field: fmt.Sprintf("markers[%d].date", i), Problem: "required"}
			}
			doc.Roster.Markers = append(doc.Roster.Markers, m)
		}

	case generic.RosterReimbursement:
		if rj.TaxFree == nil {
			return nil, &generic.FieldError{Field: "tax_free", Problem: "required"}
		}
		if rj.TaxFree.IsNegative() {
			return nil, &generic.FieldError{Field: "tax_free", Value: rj.TaxFree.String(), Problem: "must not be negative"}
		}
		doc.Roster.Reimbursements = []duty.Reimbursement{{Year: rj.Year, Month: time.Month(rj.Month), TaxFree: *rj.TaxFree}}
	}
	return doc, nil
}

// ToJSON converts a document back to its JSON representation.
func (f *RosterFactory) ToJSON(doc *RosterDocument) RosterJSON {
	rj := RosterJSON{
		Kind:    string(doc.Kind),
		Year:    doc.Year,
		Month:   int(doc.Month),
		Source:  doc.Source,
		Flights: doc.Roster.Flights,
		Markers: doc.Roster.Markers,
	}
	if len(doc.Roster.Reimbursements) > 0 {
		total := decimal.Zero
		for _, r := range doc.Roster.Reimbursements {
			total = total.Add(r.TaxFree)
		}
		rj.TaxFree = &total
	}
	return rj
}

// Combine merges documents into one roster for a calculation run.
func Combine(docs ...*RosterDocument) duty.Roster {
	var roster duty.Roster
	for _, d := range docs {
		roster = roster.Merge(d.Roster)
	}
	return roster
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseKind(s string) (generic.RosterKind, error) {
	switch generic.RosterKind(s) {
	case generic.RosterFlightHours, "":
		return generic.RosterFlightHours, nil
	case generic.RosterReimbursement:
		return generic.RosterReimbursement, nil
	default:
		return "", &generic.FieldError{Field: "kind", Value: s, Problem: "must be flight_hours or reimbursement"}
	}
}

func validateFlight(i int, fl duty.RawFlight) error {
	field := func(name string) string { return fmt.Sprintf("flights[%d].%s", i, name) }
	switch {
	case strings.TrimSpace(fl.Date) == "":
		return &generic.FieldError{Field: field("date"), Problem: "required"}
	case strings.TrimSpace(fl.FlightNumber) == "":
		return &generic.FieldError{Field: field("flight_number"), Problem: "required"}
	case !isAirportCode(fl.From):
		return &generic.FieldError{Field: field("from"), Value: fl.From, Problem: "not an IATA airport code"}
	case !isAirportCode(fl.To):
		return &generic.FieldError{Field: field("to"), Value: fl.To, Problem: "not an IATA airport code"}
	case strings.TrimSpace(fl.DepartureTime) == "":
		return &generic.FieldError{Field: field("departure_time"), Problem: "required"}
	case fl.DutyCode != duty.DutyNone && fl.DutyCode != duty.DutyA && fl.DutyCode != duty.DutyE:
		return &generic.FieldError{Field: field("duty_code"), Value: string(fl.DutyCode), Problem: "must be A or E"}
	}
	return nil
}

func isAirportCode(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}
