package duty

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/warp/crewtax/generic"
	"github.com/warp/crewtax/geo"
)

// =============================================================================
// DAY-BOUNDARY RULE
// =============================================================================

// IsOvernight reports whether a flight lands on the calendar day after its
// departure: departure hour + block time reaches 24.
func IsOvernight(f Flight) bool {
	return f.DepartureTime.Hours()+f.BlockTimeHours >= 24
}

// ArrivalDate is the calendar date a flight lands. Every component that
// needs to know "which day did we arrive" goes through here.
func ArrivalDate(f Flight) generic.TimePoint {
	if IsOvernight(f) {
		return f.Date.AddDays(1)
	}
	return f.Date
}

// =============================================================================
// NORMALIZER
// =============================================================================

// continuationPattern matches "LH0576/31": base number plus the day of the
// previous month the flight departed on. Any two-digit day is accepted; a
// fragment whose origin is not on the last day of the previous month ends
// up an orphan.
var continuationPattern = regexp.MustCompile(`^([A-Z0-9]{2}\d+[A-Z]?)/(\d{2})$`)

// Normalize turns raw roster records into events sorted by date, then
// departure time. Records with impossible dates or times are skipped with a
// warning. FL markers on flight days are dropped; the remaining ones get a
// location from the surrounding flights.
func Normalize(r Roster, g Geography, home string) ([]Event, []generic.Warning) {
	n := normalizer{geo: g, home: home, unknownAirports: make(map[string]bool)}

	flights := make([]Flight, 0, len(r.Flights))
	for _, raw := range r.Flights {
		if f, ok := n.flight(raw); ok {
			flights = append(flights, f)
		}
	}
	sort.SliceStable(flights, func(i, j int) bool { return flightLess(flights[i], flights[j]) })

	markers := n.markers(r.Markers, flights)

	events := make([]Event, 0, len(flights)+len(markers))
	for _, m := range markers {
		events = append(events, m)
	}
	for _, f := range flights {
		events = append(events, f)
	}
	sortEvents(events)
	return events, n.warnings
}

type normalizer struct {
	geo             Geography
	home            string
	unknownAirports map[string]bool
	warnings        []generic.Warning
}

func (n *normalizer) warn(code generic.WarningCode, date, format string, args ...any) {
	n.warnings = append(n.warnings, generic.Warning{Code: code, Date: date, Message: fmt.Sprintf(format, args...)})
}

func (n *normalizer) flight(raw RawFlight) (Flight, bool) {
	date, err := generic.ParseDate(raw.Date)
	if err != nil {
		n.warn(generic.WarnInvalidDate, raw.Date, "flight %s skipped: %q is not a calendar date", raw.FlightNumber, raw.Date)
		return Flight{}, false
	}

	dep, err := generic.ParseClock(raw.DepartureTime)
	if err != nil {
		n.warn(generic.WarnInvalidTime, date.Key(), "flight %s skipped: departure time %q", raw.FlightNumber, raw.DepartureTime)
		return Flight{}, false
	}

	block, blockGiven, err := parseBlockTime(raw.BlockTime)
	if err != nil {
		n.warn(generic.WarnInvalidTime, date.Key(), "flight %s skipped: block time %q", raw.FlightNumber, raw.BlockTime)
		return Flight{}, false
	}

	var arr generic.ClockTime
	if strings.TrimSpace(raw.ArrivalTime) != "" {
		arr, err = generic.ParseClock(raw.ArrivalTime)
		if err != nil {
			n.warn(generic.WarnInvalidTime, date.Key(), "flight %s skipped: arrival time %q", raw.FlightNumber, raw.ArrivalTime)
			return Flight{}, false
		}
		if !blockGiven {
			block = hoursBetween(dep, arr)
		}
	} else {
		arr = addHours(dep, block)
	}

	number := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw.FlightNumber), " ", ""))
	f := Flight{
		Date:                 date,
		FlightNumber:         number,
		OriginalFlightNumber: raw.FlightNumber,
		DepartureTime:        dep,
		ArrivalTime:          arr,
		BlockTimeHours:       block,
		DutyCode:             DutyCode(strings.ToUpper(strings.TrimSpace(string(raw.DutyCode)))),
	}
	if m := continuationPattern.FindStringSubmatch(number); m != nil {
		f.FlightNumber = m[1]
		f.IsContinuation = true
		f.ContinuationSourceDay, _ = strconv.Atoi(m[2])
	}

	from := n.airport(raw.From, date)
	to := n.airport(raw.To, date)
	f.From, f.FromCountry, f.FromCountryCode, f.FromUTCOffset = from.Code, from.Country, from.CountryCode, from.UTCOffset
	f.To, f.ToCountry, f.ToCountryCode, f.ToUTCOffset = to.Code, to.Country, to.CountryCode, to.UTCOffset
	return f, true
}

func (n *normalizer) airport(code string, date generic.TimePoint) geo.Location {
	loc, ok := n.geo.Airport(code)
	if !ok {
		key := strings.ToUpper(strings.TrimSpace(code))
		if !n.unknownAirports[key] {
			n.unknownAirports[key] = true
			n.warn(generic.WarnUnknownAirport, date.Key(), "airport %q is not in the airport table; treated as abroad with UTC offset 0", key)
		}
	}
	return loc
}

// markers parses marker days, collapses duplicate (date, type) pairs and
// resolves FL locations against the sorted flights.
func (n *normalizer) markers(raws []RawMarker, flights []Flight) []MarkerDay {
	flightDays := make(map[string]bool, len(flights))
	for _, f := range flights {
		flightDays[f.Date.Key()] = true
	}

	seen := make(map[string]bool, len(raws))
	out := make([]MarkerDay, 0, len(raws))
	for _, raw := range raws {
		date, err := generic.ParseDate(raw.Date)
		if err != nil {
			n.warn(generic.WarnInvalidDate, raw.Date, "%s day skipped: %q is not a calendar date", raw.Type, raw.Date)
			continue
		}
		typ := MarkerType(strings.ToUpper(strings.TrimSpace(string(raw.Type))))
		if !typ.Valid() {
			continue
		}
		key := date.Key() + "/" + string(typ)
		if seen[key] {
			continue
		}
		seen[key] = true

		m := MarkerDay{Date: date, Type: typ}
		if typ == MarkerAbroad {
			if flightDays[date.Key()] {
				continue
			}
			loc, ok := n.abroadLocation(date, flights)
			if !ok {
				n.warn(generic.WarnUnresolvedAbroadDay, date.Key(), "FL day has no flight abroad before or after it")
				continue
			}
			m.Location, m.ResolvedCountry, m.ResolvedCountryCode = loc.Code, loc.Country, loc.CountryCode
		}
		out = append(out, m)
	}
	return out
}

// abroadLocation finds where the crew member was on an FL day: the origin of
// the next flight if it departs from abroad, else the destination of the
// previous flight if it arrived abroad.
func (n *normalizer) abroadLocation(date generic.TimePoint, flights []Flight) (geo.Location, bool) {
	next := sort.Search(len(flights), func(i int) bool { return flights[i].Date.After(date) })
	if next < len(flights) {
		if f := flights[next]; f.FromCountryCode != n.home {
			return geo.Location{Code: f.From, Country: f.FromCountry, CountryCode: f.FromCountryCode, UTCOffset: f.FromUTCOffset}, true
		}
	}
	if prev := next - 1; prev >= 0 {
		if f := flights[prev]; f.ToCountryCode != n.home {
			return geo.Location{Code: f.To, Country: f.ToCountry, CountryCode: f.ToCountryCode, UTCOffset: f.ToUTCOffset}, true
		}
	}
	return geo.Location{}, false
}

// =============================================================================
// HELPERS
// =============================================================================

// parseBlockTime accepts decimal hours ("8,33", "8.33") or clock notation
// ("8:20"). The second result is false for an empty string.
func parseBlockTime(s string) (float64, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, nil
	}
	if strings.Contains(s, ":") {
		c, err := generic.ParseClock(s)
		if err != nil {
			return 0, false, err
		}
		return c.Hours(), true, nil
	}
	h, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil || h < 0 {
		return 0, false, fmt.Errorf("%w: block time %q", generic.ErrInvalidTime, s)
	}
	return h, true, nil
}

// hoursBetween is the duration from dep to arr, wrapping past midnight.
func hoursBetween(dep, arr generic.ClockTime) float64 {
	minutes := arr.Minutes() - dep.Minutes()
	if minutes < 0 {
		minutes += 24 * 60
	}
	return float64(minutes) / 60
}

// addHours is the clock time h hours after c, wrapping past midnight.
func addHours(c generic.ClockTime, h float64) generic.ClockTime {
	minutes := (c.Minutes() + int(math.Round(h*60))) % (24 * 60)
	return generic.ClockTime(minutes)
}

func flightLess(a, b Flight) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.Before(b.Date)
	}
	return a.DepartureTime < b.DepartureTime
}

func sortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Day().Equal(b.Day()) {
			return a.Day().Before(b.Day())
		}
		return a.sortMinute() < b.sortMinute()
	})
}

// Flights returns the flights of an event list, in order.
func Flights(events []Event) []Flight {
	var out []Flight
	for _, ev := range events {
		if f, ok := ev.(Flight); ok {
			out = append(out, f)
		}
	}
	return out
}

// Markers returns the marker days of an event list, in order.
func Markers(events []Event) []MarkerDay {
	var out []MarkerDay
	for _, ev := range events {
		if m, ok := ev.(MarkerDay); ok {
			out = append(out, m)
		}
	}
	return out
}
