package duty

import (
	"fmt"

	"github.com/warp/crewtax/generic"
)

// =============================================================================
// CONTINUATION RESOLVER
// =============================================================================

// A flight that departs on the last day of a month and lands on the 1st is
// printed on both monthly rosters. The second roster carries it as a
// continuation fragment, "LH0576/31", naming the day it departed.
//
// ResolveContinuations looks for the origin of every fragment: a
// non-continuation flight with the same base number on the last day of the
// previous month. Found fragments are marked Anchored and stay separate
// records. Fragments without an origin are reported as orphans and remain
// ordinary flights.
//
// Must run before Segment: an anchored fragment repeats the route of a leg
// the segmenter has already seen.
func ResolveContinuations(events []Event) ([]Event, []OrphanContinuation, []generic.Warning) {
	origins := make(map[string]bool)
	for _, ev := range events {
		if f, ok := ev.(Flight); ok && !f.IsContinuation {
			origins[originKey(f.FlightNumber, f.Date)] = true
		}
	}

	out := make([]Event, len(events))
	var orphans []OrphanContinuation
	var warnings []generic.Warning
	for i, ev := range events {
		out[i] = ev
		f, ok := ev.(Flight)
		if !ok || !f.IsContinuation {
			continue
		}

		expected := generic.LastDayOfPreviousMonth(f.Year(), f.Month())
		if origins[originKey(f.FlightNumber, expected)] {
			f.Anchored = true
			out[i] = f
			continue
		}

		orphans = append(orphans, OrphanContinuation{Flight: f, ExpectedDepartureDate: expected})
		warnings = append(warnings, generic.Warning{
			Code:    generic.WarnOrphanContinuation,
			Date:    f.Date.Key(),
			Message: fmt.Sprintf("continuation flight %s has no departure record on %s; upload the roster of %s",
				f.OriginalFlightNumber, expected.German(), expected.Time.Format("01/2006")),
		})
	}
	return out, orphans, warnings
}

func originKey(number string, date generic.TimePoint) string {
	return number + "@" + date.Key()
}
