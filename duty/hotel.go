package duty

import (
	"sort"

	"github.com/warp/crewtax/generic"
)

// =============================================================================
// HOTEL NIGHT COUNTER
// =============================================================================

// CountHotelNights counts the nights spent abroad in local time.
//
// This is a separate legal test from the allowance classification. A night
// is counted for every local calendar date on which the crew member was at a
// foreign station when that date ended:
//
//	leaving home          abroad since = local arrival at the destination
//	abroad -> abroad      nights for since.date <= d < local departure date,
//	                      then abroad since = local arrival at the next station
//	abroad -> home        nights as above, then back home
//
// Standalone FL days not already counted add one night each. Anchored
// continuation fragments repeat a leg already seen and are skipped.
func CountHotelNights(events []Event, home string) []HotelNight {
	c := hotelCounter{seen: make(map[string]bool)}

	var stay *hotelStay
	for _, ev := range events {
		f, ok := ev.(Flight)
		if !ok || f.Anchored {
			continue
		}
		switch legOf(f, home) {
		case legOutbound:
			stay = arriveAt(f)
		case legForeign:
			if stay != nil {
				c.addNights(*stay, departLocal(f).Date)
				stay = arriveAt(f)
			}
		case legInbound:
			if stay != nil {
				c.addNights(*stay, departLocal(f).Date)
				stay = nil
			}
		}
	}

	for _, fl := range abroadMarkers(events) {
		c.add(HotelNight{Date: fl.Date, Country: fl.ResolvedCountry, Location: fl.Location})
	}

	sort.SliceStable(c.nights, func(i, j int) bool { return c.nights[i].Date.Before(c.nights[j].Date) })
	return c.nights
}

type hotelStay struct {
	since    generic.TimePoint // local date of arrival
	country  string
	location string
}

type hotelCounter struct {
	seen   map[string]bool
	nights []HotelNight
}

func (c *hotelCounter) add(n HotelNight) {
	if c.seen[n.Date.Key()] {
		return
	}
	c.seen[n.Date.Key()] = true
	c.nights = append(c.nights, n)
}

func (c *hotelCounter) addNights(stay hotelStay, until generic.TimePoint) {
	for d := stay.since; d.Before(until); d = d.AddDays(1) {
		c.add(HotelNight{Date: d, Country: stay.country, Location: stay.location})
	}
}

func arriveAt(f Flight) *hotelStay {
	local := generic.ShiftHours(ArrivalDate(f), f.ArrivalTime.Hours(), f.ToUTCOffset)
	return &hotelStay{since: local.Date, country: f.ToCountry, location: f.To}
}

func departLocal(f Flight) generic.LocalMoment {
	return generic.ShiftHours(f.Date, f.DepartureTime.Hours(), f.FromUTCOffset)
}
