package duty

import (
	"github.com/warp/crewtax/generic"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine runs the full pipeline against a rate table and an airport table.
// It holds no state between runs and is safe for concurrent use as long as
// its collaborators are.
type Engine struct {
	Rates RateTable
	Geo   Geography
}

// NewEngine returns an engine over the given collaborators.
func NewEngine(rates RateTable, geo Geography) *Engine {
	return &Engine{Rates: rates, Geo: geo}
}

// Result is everything one run produces.
type Result struct {
	Flights     []Flight             `json:"flights"`
	Markers     []MarkerDay          `json:"markers"`
	Segments    []TripSegment        `json:"segments"`
	Allowances  AllowanceMap         `json:"allowances"`
	HotelNights []HotelNight         `json:"hotel_nights"`
	Orphans     []OrphanContinuation `json:"orphans"`
	Commute     CommuteCount         `json:"commute"`
	WorkDays    int                  `json:"work_days"`
	Years       []YearSummary        `json:"years"`
	Warnings    []generic.Warning    `json:"warnings"`
}

// Run recomputes everything from the roster. Identical inputs give
// identical results; nothing from a previous run is reused.
func (e *Engine) Run(r Roster, s Settings) Result {
	home := s.home()

	events, warnings := Normalize(r, e.Geo, home)
	events, orphans, w := ResolveContinuations(events)
	warnings = append(warnings, w...)

	segments, w := Segment(events, home)
	warnings = append(warnings, w...)

	allowances := Classify(segments, events, s, e.Rates)
	nights := CountHotelNights(events, home)

	res := Result{
		Flights:     orEmpty(Flights(events)),
		Markers:     orEmpty(Markers(events)),
		Segments:    orEmpty(segments),
		Allowances:  allowances,
		HotelNights: orEmpty(nights),
		Orphans:     orEmpty(orphans),
		Commute:     CountCommutes(events, s),
		WorkDays:    CountWorkDays(events, s),
		Warnings:    orEmpty(warnings),
	}
	res.Years = Summarize(SummaryInput{
		Events:         events,
		Allowances:     allowances,
		HotelNights:    nights,
		Reimbursements: r.Reimbursements,
		Settings:       s,
		Rates:          e.Rates,
	})
	return res
}

// Year returns the summary of one tax year.
func (r Result) Year(year int) (YearSummary, bool) {
	for _, y := range r.Years {
		if y.Year == year {
			return y, true
		}
	}
	return YearSummary{}, false
}

// ForYear restricts the result to one tax year: its summary plus the
// allowance days and hotel nights that fall within it. Segments are kept
// when they touch the year. The second result is false when the year has no
// summary.
func (r Result) ForYear(year int) (Result, bool) {
	summary, ok := r.Year(year)
	if !ok {
		return Result{}, false
	}
	taxYear := generic.TaxYear(year)

	out := r
	out.Years = []YearSummary{summary}
	out.Allowances = make(AllowanceMap)
	for k, a := range r.Allowances {
		if taxYear.Contains(a.Date) {
			out.Allowances[k] = a
		}
	}
	out.HotelNights = []HotelNight{}
	for _, n := range r.HotelNights {
		if taxYear.Contains(n.Date) {
			out.HotelNights = append(out.HotelNights, n)
		}
	}
	out.Segments = []TripSegment{}
	for _, seg := range r.Segments {
		if !seg.EndDate.Before(taxYear.Start) && !seg.StartDate.After(taxYear.End) {
			out.Segments = append(out.Segments, seg)
		}
	}
	return out, true
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
