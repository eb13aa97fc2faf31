/*
allowance.go - Daily meal allowance classification (Verpflegungsmehraufwand)

PURPOSE:
  Assigns every calendar day spent abroad exactly one allowance record:
  which country's rate applies and whether the day earns the full rate,
  the partial rate or nothing.

CLASSIFICATION:
  Departure day (Anreisetag) and return day (Abreisetag):
    absence = hours away from home that day, including the drive to or
    from the airport. >= 8 hours earns the partial rate, less earns none.
      departure day: (24 - departure hour) + drive
      return day:    arrival hour + drive
      same-day trip: (arrival hour - departure hour) + 2 x drive

  Every other day of a trip, layover days without flights included, earns
  the full rate.

COUNTRY OF A DAY:
  The rolling country: the destination of the latest flight that arrived
  abroad on or before the day. On the return day it is the origin of the
  return flight (where the crew member spent the day before flying home).

EXCLUSIVITY:
  The map holds at most one record per date. Segments are processed in
  order and a date that already has a record is skipped, so where two
  trips touch the same day the earlier trip wins. Standalone FL days only
  fill dates no trip covers.

SEE ALSO:
  - segment.go: Produces the segments walked here
  - ../rates: The rate table
*/
package duty

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/crewtax/generic"
)

// MinAbsenceHours is the absence a departure or return day needs to earn
// the partial rate.
const MinAbsenceHours = 8.0

// Classify computes the allowance map for all segments plus standalone FL
// marker days.
func Classify(segments []TripSegment, events []Event, settings Settings, table RateTable) AllowanceMap {
	m := make(AllowanceMap)
	home := settings.home()
	for _, seg := range segments {
		classifySegment(m, seg, home, settings.driveHours(), table)
	}

	for _, fl := range abroadMarkers(events) {
		if _, exists := m[fl.Date.Key()]; exists || coveredBySegment(fl.Date, segments) {
			continue
		}
		r := table.DailyRate(fl.ResolvedCountry, fl.Date.Year())
		m[fl.Date.Key()] = DailyAllowance{
			Date:         fl.Date,
			Country:      r.Country,
			Location:     fl.Location,
			RateClass:    RateFull,
			Rate:         r.Full,
			FallbackRate: r.Fallback,
			FromMarker:   true,
		}
	}
	return m
}

type place struct {
	country  string
	location string
}

func classifySegment(m AllowanceMap, seg TripSegment, home string, drive float64, table RateTable) {
	if len(seg.Flights) == 0 {
		return
	}

	// Country after each arrival date, and the days with any flight activity.
	rolling := initialPlace(seg, home)
	arrivals := make(map[string]place)
	active := make(map[string]bool)
	last := rolling
	for _, f := range seg.Flights {
		if f.ToCountryCode != home {
			last = place{country: f.ToCountry, location: f.To}
		}
		arrivals[ArrivalDate(f).Key()] = last
		active[f.Date.Key()] = true
		active[ArrivalDate(f).Key()] = true
	}

	outbound := seg.Flights[0]
	var returnDay generic.TimePoint
	if seg.ReturnFlight != nil {
		returnDay = ArrivalDate(*seg.ReturnFlight)
	}

	for _, day := range (generic.Period{Start: seg.StartDate, End: seg.EndDate}).Days() {
		key := day.Key()
		if p, ok := arrivals[key]; ok {
			rolling = p
		}
		if _, exists := m[key]; exists {
			continue
		}

		isDeparture := seg.DepartureDate != nil && day.Equal(*seg.DepartureDate)
		isReturn := seg.ReturnFlight != nil && day.Equal(returnDay)

		p := rolling
		if isReturn {
			p = place{country: seg.ReturnFlight.FromCountry, location: seg.ReturnFlight.From}
		}
		r := table.DailyRate(p.country, day.Year())

		rec := DailyAllowance{
			Date:              day,
			Country:           r.Country,
			Location:          p.location,
			FallbackRate:      r.Fallback,
			IsDepartureDay:    isDeparture,
			IsReturnDay:       isReturn,
			HasFlightActivity: active[key],
		}

		switch {
		case isDeparture || isReturn:
			rec.AbsenceHours = absenceHours(outbound, seg.ReturnFlight, isDeparture, isReturn, drive)
			if rec.AbsenceHours >= MinAbsenceHours {
				rec.RateClass, rec.Rate = RatePartial, r.Partial
			} else {
				rec.RateClass, rec.Rate = RateNone, decimal.Zero
			}
		default:
			rec.RateClass, rec.Rate = RateFull, r.Full
		}
		m[key] = rec
	}
}

// initialPlace is where a trip starts: the destination of its first flight,
// or its origin when the trip was already under way.
func initialPlace(seg TripSegment, home string) place {
	first := seg.Flights[0]
	if first.ToCountryCode != home {
		return place{country: first.ToCountry, location: first.To}
	}
	return place{country: first.FromCountry, location: first.From}
}

func absenceHours(outbound Flight, ret *Flight, isDeparture, isReturn bool, drive float64) float64 {
	switch {
	case isDeparture && isReturn:
		h := ret.ArrivalTime.Hours() - outbound.DepartureTime.Hours()
		if h < 0 {
			h = 0
		}
		return h + 2*drive
	case isDeparture:
		return 24 - outbound.DepartureTime.Hours() + drive
	default:
		return ret.ArrivalTime.Hours() + drive
	}
}

func coveredBySegment(d generic.TimePoint, segments []TripSegment) bool {
	for _, seg := range segments {
		if seg.Contains(d) {
			return true
		}
	}
	return false
}

func sortAllowances(records []DailyAllowance) {
	sort.Slice(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })
}
