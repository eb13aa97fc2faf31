/*
Package duty is the trip segmentation and daily allowance engine.

PURPOSE:
  Turns a crew member's duty roster (flights plus non-flight marker days)
  into the quantities German tax law cares about:
    - meal allowance per calendar day (Verpflegungsmehraufwand)
    - hotel nights abroad (tip allowance)
    - commute trips (Entfernungspauschale)
    - work days (cleaning costs)

KEY CONCEPTS IN THIS FILE (types.go):
  - Event: Tagged union of Flight and MarkerDay
  - Roster / RawFlight / RawMarker: Input as delivered by the document parser
  - Settings: Per-crew switches that change how days and trips are counted
  - TripSegment, DailyAllowance, HotelNight: Engine outputs

PIPELINE:
  Roster
    -> Normalize         (normalize.go)     sorted []Event
    -> ResolveContinuations (continuation.go) anchors month-boundary fragments
    -> Segment           (segment.go)       []TripSegment
    -> Classify          (allowance.go)     AllowanceMap
    -> CountHotelNights  (hotel.go)         []HotelNight
    -> CountCommutes     (commute.go)       CommuteCount
    -> Summarize         (summary.go)       monthly and yearly totals

  Every stage is a pure function of its inputs. Engine.Run recomputes the
  whole pipeline on every call; nothing is cached between runs.

HOME COUNTRY:
  All segmentation is relative to Settings.HomeCountryCode (default "DE").
  A flight is "outbound" when it leaves home for abroad, "inbound" when it
  comes back, "foreign" when both ends are abroad and "domestic" otherwise.

SEE ALSO:
  - engine.go: Run, the single entry point
  - ../rates: Rate table
  - ../geo: Airport reference
*/
package duty

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/crewtax/generic"
	"github.com/warp/crewtax/geo"
	"github.com/warp/crewtax/rates"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// RateTable answers meal allowance and tip rates. Implemented by rates.Table.
type RateTable interface {
	DailyRate(country string, year int) rates.Rate
	TipPerNight(year int) decimal.Decimal
}

// Geography resolves airport codes. Implemented by geo.Registry.
type Geography interface {
	Airport(code string) (geo.Location, bool)
}

// =============================================================================
// DUTY CODES AND MARKER TYPES
// =============================================================================

// DutyCode marks a flight as the first (A) or last (E) leg of a duty day.
type DutyCode string

const (
	DutyNone DutyCode = ""
	DutyA    DutyCode = "A" // Fahrt zur Arbeit
	DutyE    DutyCode = "E" // Fahrt von der Arbeit
)

// MarkerType is the status code of a non-flight roster day.
type MarkerType string

const (
	MarkerMedical MarkerType = "ME"
	MarkerAbroad  MarkerType = "FL"
	MarkerEM      MarkerType = "EM" // emergency training
	MarkerRE      MarkerType = "RE" // reserve
	MarkerDP      MarkerType = "DP" // office duty
	MarkerDT      MarkerType = "DT" // duty time
	MarkerSI      MarkerType = "SI" // simulator
	MarkerTK      MarkerType = "TK" // technical course
	MarkerSB      MarkerType = "SB" // standby
)

// GroundDutyTypes are the marker types counted as ground duty.
var GroundDutyTypes = []MarkerType{MarkerEM, MarkerRE, MarkerDP, MarkerDT, MarkerSI, MarkerTK, MarkerSB}

// IsGroundDuty reports whether m is one of GroundDutyTypes.
func (m MarkerType) IsGroundDuty() bool {
	for _, g := range GroundDutyTypes {
		if m == g {
			return true
		}
	}
	return false
}

// Valid reports whether m is a known marker type.
func (m MarkerType) Valid() bool {
	return m == MarkerMedical || m == MarkerAbroad || m.IsGroundDuty()
}

// =============================================================================
// EVENT - Flight | MarkerDay
// =============================================================================

// Event is one normalized roster entry. The interface is sealed; switch on
// the concrete type:
//
//	switch ev := e.(type) {
//	case Flight:
//	case MarkerDay:
//	}
type Event interface {
	// Day is the calendar date the event is anchored to.
	Day() generic.TimePoint
	// sortMinute orders events within a day. Markers sort at 00:00.
	sortMinute() int
	event()
}

// Flight is a single flight leg. Times are UTC as printed on the roster.
type Flight struct {
	Date                  generic.TimePoint `json:"date"`
	FlightNumber          string            `json:"flight_number"`
	OriginalFlightNumber  string            `json:"original_flight_number"`
	From                  string            `json:"from"`
	To                    string            `json:"to"`
	FromCountry           string            `json:"from_country"`
	ToCountry             string            `json:"to_country"`
	FromCountryCode       string            `json:"from_country_code"`
	ToCountryCode         string            `json:"to_country_code"`
	FromUTCOffset         float64           `json:"from_utc_offset"`
	ToUTCOffset           float64           `json:"to_utc_offset"`
	DepartureTime         generic.ClockTime `json:"departure_time"`
	ArrivalTime           generic.ClockTime `json:"arrival_time"`
	BlockTimeHours        float64           `json:"block_time_hours"`
	IsContinuation        bool              `json:"is_continuation"`
	ContinuationSourceDay int               `json:"continuation_source_day,omitempty"`
	Anchored              bool              `json:"anchored,omitempty"`
	DutyCode              DutyCode          `json:"duty_code,omitempty"`
}

func (f Flight) Day() generic.TimePoint { return f.Date }
func (f Flight) sortMinute() int        { return f.DepartureTime.Minutes() }
func (Flight) event()                   {}

// Year and Month are those of the roster line, not of the arrival.
func (f Flight) Year() int         { return f.Date.Year() }
func (f Flight) Month() time.Month { return f.Date.Month() }

// MarkerDay is a non-flight roster day. Location and ResolvedCountry are
// only set for FL (abroad) markers.
type MarkerDay struct {
	Date                generic.TimePoint `json:"date"`
	Type                MarkerType        `json:"type"`
	Location            string            `json:"location,omitempty"`
	ResolvedCountry     string            `json:"resolved_country,omitempty"`
	ResolvedCountryCode string            `json:"resolved_country_code,omitempty"`
}

func (m MarkerDay) Day() generic.TimePoint { return m.Date }
func (MarkerDay) sortMinute() int          { return 0 }
func (MarkerDay) event()                   {}

// =============================================================================
// RAW INPUT - As delivered by the document parser
// =============================================================================

// Roster is everything the parser extracted from a crew member's documents.
type Roster struct {
	Flights        []RawFlight     `json:"flights"`
	Markers        []RawMarker     `json:"markers"`
	Reimbursements []Reimbursement `json:"reimbursements,omitempty"`
}

// Merge appends other's records to r.
func (r Roster) Merge(other Roster) Roster {
	return Roster{
		Flights:        append(append([]RawFlight(nil), r.Flights...), other.Flights...),
		Markers:        append(append([]RawMarker(nil), r.Markers...), other.Markers...),
		Reimbursements: append(append([]Reimbursement(nil), r.Reimbursements...), other.Reimbursements...),
	}
}

// RawFlight is one flight line of a Flugstundenübersicht.
type RawFlight struct {
	Date          string   `json:"date"`
	FlightNumber  string   `json:"flight_number"`
	From          string   `json:"from"`
	To            string   `json:"to"`
	DepartureTime string   `json:"departure_time"`
	ArrivalTime   string   `json:"arrival_time,omitempty"`
	BlockTime     string   `json:"block_time"`
	DutyCode      DutyCode `json:"duty_code,omitempty"`
}

// RawMarker is one status day (ME, FL, ground duty).
type RawMarker struct {
	Date string     `json:"date"`
	Type MarkerType `json:"type"`
}

// Reimbursement is the tax-free meal reimbursement the employer paid for a
// month (Streckeneinsatzabrechnung).
type Reimbursement struct {
	Year    int             `json:"year"`
	Month   time.Month      `json:"month"`
	TaxFree decimal.Decimal `json:"tax_free"`
}

// =============================================================================
// SETTINGS
// =============================================================================

// Settings are the crew member's choices that influence counting.
type Settings struct {
	DistanceKm            decimal.Decimal  `json:"distance_km"`
	OneWay                bool             `json:"one_way"`
	CountOnlyAFlag        bool             `json:"count_only_a_flag"`
	CountMedicalAsTrip    bool             `json:"count_medical_as_trip"`
	CountGroundDutyAsTrip bool             `json:"count_ground_duty_as_trip"`
	CountForeignAsWorkDay bool             `json:"count_foreign_as_work_day"`
	DriveTimeMinutes      int              `json:"drive_time_minutes"`
	CleaningCostPerDay    decimal.Decimal  `json:"cleaning_cost_per_day"`
	TipPerNight           *decimal.Decimal `json:"tip_per_night,omitempty"` // nil: statutory rate of the year
	HomeCountryCode       string           `json:"home_country_code"`
}

// DefaultHomeCountryCode is the base country when settings name none.
const DefaultHomeCountryCode = "DE"

// DefaultSettings returns the settings a new crew member starts with.
func DefaultSettings() Settings {
	return Settings{
		DistanceKm:            decimal.Zero,
		CountMedicalAsTrip:    true,
		CountGroundDutyAsTrip: true,
		CountForeignAsWorkDay: false,
		CleaningCostPerDay:    decimal.RequireFromString("1.60"),
		HomeCountryCode:       DefaultHomeCountryCode,
	}
}

func (s Settings) home() string {
	if s.HomeCountryCode == "" {
		return DefaultHomeCountryCode
	}
	return s.HomeCountryCode
}

func (s Settings) driveHours() float64 { return float64(s.DriveTimeMinutes) / 60 }

// Validate rejects settings that cannot produce a meaningful result.
func (s Settings) Validate() error {
	switch {
	case s.DistanceKm.IsNegative():
		return &generic.FieldError{Field: "distance_km", Value: s.DistanceKm.String(), Problem: "must not be negative"}
	case s.DriveTimeMinutes < 0:
		return &generic.FieldError{Field: "drive_time_minutes", Value: decimal.NewFromInt(int64(s.DriveTimeMinutes)).String(), Problem: "must not be negative"}
	case s.CleaningCostPerDay.IsNegative():
		return &generic.FieldError{Field: "cleaning_cost_per_day", Value: s.CleaningCostPerDay.String(), Problem: "must not be negative"}
	case s.TipPerNight != nil && s.TipPerNight.IsNegative():
		return &generic.FieldError{Field: "tip_per_night", Value: s.TipPerNight.String(), Problem: "must not be negative"}
	}
	return nil
}

// =============================================================================
// OUTPUTS
// =============================================================================

// TripSegment is one stay abroad, from leaving home to coming back.
type TripSegment struct {
	StartDate        generic.TimePoint  `json:"start_date"`
	EndDate          generic.TimePoint  `json:"end_date"`
	DepartureDate    *generic.TimePoint `json:"departure_date,omitempty"` // nil when incomplete
	VisitedCountries []string           `json:"visited_countries"`
	Flights          []Flight           `json:"flights"`
	ReturnFlight     *Flight            `json:"return_flight,omitempty"` // nil while still abroad
	IsIncomplete     bool               `json:"is_incomplete"`
	Closed           bool               `json:"closed"`
}

// Contains reports whether d lies within the segment's date range.
func (s TripSegment) Contains(d generic.TimePoint) bool {
	return generic.Period{Start: s.StartDate, End: s.EndDate}.Contains(d)
}

// RateClass is the allowance classification of a day.
type RateClass string

const (
	RateNone    RateClass = "none"
	RatePartial RateClass = "partial"
	RateFull    RateClass = "full"
)

// DailyAllowance is the meal allowance record of one calendar date.
type DailyAllowance struct {
	Date              generic.TimePoint `json:"date"`
	Country           string            `json:"country"`
	Location          string            `json:"location"`
	RateClass         RateClass         `json:"rate_class"`
	Rate              decimal.Decimal   `json:"rate"`
	FallbackRate      bool              `json:"fallback_rate,omitempty"`
	AbsenceHours      float64           `json:"absence_hours,omitempty"`
	IsDepartureDay    bool              `json:"is_departure_day"`
	IsReturnDay       bool              `json:"is_return_day"`
	HasFlightActivity bool              `json:"has_flight_activity"`
	FromMarker        bool              `json:"from_marker,omitempty"`
}

// AllowanceMap holds at most one record per calendar date, keyed by
// TimePoint.Key().
type AllowanceMap map[string]DailyAllowance

// Sorted returns the records in date order.
func (m AllowanceMap) Sorted() []DailyAllowance {
	out := make([]DailyAllowance, 0, len(m))
	for _, a := range m {
		out = append(out, a)
	}
	sortAllowances(out)
	return out
}

// HotelNight is a local-time night spent abroad.
type HotelNight struct {
	Date     generic.TimePoint `json:"date"`
	Country  string            `json:"country"`
	Location string            `json:"location"`
}

// OrphanContinuation is a continuation fragment whose origin flight is not
// in the data.
type OrphanContinuation struct {
	Flight                Flight            `json:"flight"`
	ExpectedDepartureDate generic.TimePoint `json:"expected_departure_date"`
}
