package duty

import (
	"fmt"

	"github.com/warp/crewtax/generic"
)

// =============================================================================
// LEG CLASSIFICATION
// =============================================================================

type legKind int

const (
	legDomestic legKind = iota // home -> home
	legOutbound                // home -> abroad
	legInbound                 // abroad -> home
	legForeign                 // abroad -> abroad
)

func legOf(f Flight, home string) legKind {
	fromHome := f.FromCountryCode == home
	toHome := f.ToCountryCode == home
	switch {
	case fromHome && toHome:
		return legDomestic
	case fromHome:
		return legOutbound
	case toHome:
		return legInbound
	default:
		return legForeign
	}
}

// =============================================================================
// TRIP SEGMENTER - Home/Abroad fold
// =============================================================================

// Segment partitions the sorted events into stays abroad.
//
// State machine, initial state Home:
//
//	Home   --outbound-->  Abroad   opens a segment at the flight date
//	Abroad --foreign--->  Abroad   extends the segment
//	Abroad --inbound--->  Home     closes the segment at the arrival date
//	Home   --inbound--->  Home     incomplete segment, start inferred
//	Abroad --outbound-->  Abroad   emits the open segment, opens a new one
//
// Domestic legs never change state, and neither do foreign legs seen at
// home: without a departure in the data the trip is only known once the
// return flight arrives. Anchored continuation fragments never
// change state either; while abroad they only extend the end date. A segment
// still open after the last event is emitted as is.
func Segment(events []Event, home string) ([]TripSegment, []generic.Warning) {
	fold := segmentFold{home: home, abroadDays: abroadMarkers(events)}
	for _, ev := range events {
		if f, ok := ev.(Flight); ok {
			fold = fold.step(f)
		}
	}
	return fold.finish()
}

type tripState int

const (
	atHome tripState = iota
	abroad
)

// segmentFold is the accumulator of Segment. step returns the next value;
// the receiver is never modified.
type segmentFold struct {
	home       string
	abroadDays []MarkerDay

	state    tripState
	open     TripSegment
	segments []TripSegment
	warnings []generic.Warning
}

func (s segmentFold) step(f Flight) segmentFold {
	if f.Anchored {
		if s.state == abroad {
			s.open = s.open.with(f, s.home)
		}
		return s
	}

	switch legOf(f, s.home) {
	case legOutbound:
		if s.state == abroad {
			s.segments = append(s.segments, s.open)
		}
		s.open = departFrom(f)
		s.state = abroad

	case legForeign:
		if s.state == abroad {
			s.open = s.open.with(f, s.home)
		}

	case legInbound:
		if s.state == atHome {
			seg := s.inferStart(f)
			s.segments = append(s.segments, seg)
			s.warnings = append(s.warnings, generic.Warning{
				Code:    generic.WarnIncompleteTrip,
				Date:    f.Date.Key(),
				Message: fmt.Sprintf("return flight %s has no departure from home in the data; trip start assumed %s", f.OriginalFlightNumber, seg.StartDate.German()),
			})
			return s
		}
		s.open = s.open.with(f, s.home)
		s.open.ReturnFlight = &f
		s.open.Closed = true
		s.segments = append(s.segments, s.open)
		s.open = TripSegment{}
		s.state = atHome
	}
	return s
}

func (s segmentFold) finish() ([]TripSegment, []generic.Warning) {
	segments := s.segments
	if s.state == abroad {
		segments = append(segments, s.open)
	}
	if segments == nil {
		segments = []TripSegment{}
	}
	return segments, s.warnings
}

// inferStart builds the segment of a return flight whose outbound leg is
// not in the data. The trip is assumed to start on the earliest FL day at
// the return flight's origin, or the day before the return flight.
func (s segmentFold) inferStart(f Flight) TripSegment {
	start := f.Date.AddDays(-1)
	for _, m := range s.abroadDays {
		if m.Date.Before(f.Date) && m.Location == f.From {
			start = m.Date
			break
		}
	}
	return TripSegment{
		StartDate:        start,
		EndDate:          ArrivalDate(f),
		VisitedCountries: []string{f.FromCountry},
		Flights:          []Flight{f},
		ReturnFlight:     &f,
		IsIncomplete:     true,
		Closed:           true,
	}
}

func departFrom(f Flight) TripSegment {
	date := f.Date
	return TripSegment{
		StartDate:        f.Date,
		EndDate:          ArrivalDate(f),
		DepartureDate:    &date,
		VisitedCountries: []string{f.ToCountry},
		Flights:          []Flight{f},
	}
}

// with returns the segment extended by f. Flights and countries are copied
// so earlier values of the fold stay intact.
func (s TripSegment) with(f Flight, home string) TripSegment {
	s.Flights = append(append([]Flight(nil), s.Flights...), f)
	if arr := ArrivalDate(f); arr.After(s.EndDate) {
		s.EndDate = arr
	}
	if f.ToCountryCode != home {
		s.VisitedCountries = appendCountry(append([]string(nil), s.VisitedCountries...), f.ToCountry)
	}
	return s
}

func appendCountry(countries []string, c string) []string {
	for _, existing := range countries {
		if existing == c {
			return countries
		}
	}
	return append(countries, c)
}

// abroadMarkers returns the resolved FL markers, in date order.
func abroadMarkers(events []Event) []MarkerDay {
	var out []MarkerDay
	for _, ev := range events {
		if m, ok := ev.(MarkerDay); ok && m.Type == MarkerAbroad && m.Location != "" {
			out = append(out, m)
		}
	}
	return out
}
