package generic

import "time"

// =============================================================================
// PERIOD - Inclusive date range
// =============================================================================

// Period is an inclusive [Start, End] date range.
//
// Examples:
//   - A trip abroad: departure day - return day
//   - A tax year: Jan 1 - Dec 31
//   - A roster month: 1st - last day
type Period struct {
	Start TimePoint
	End   TimePoint
}

// Contains returns true if the time point is within the period [Start, End]
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// Days returns all days in the period as a slice of TimePoints.
func (p Period) Days() []TimePoint {
	var days []TimePoint
	current := p.Start
	for current.BeforeOrEqual(p.End) {
		days = append(days, current)
		current = current.AddDays(1)
	}
	return days
}

// TaxYear returns the calendar year as a period. German tax years are
// calendar years.
func TaxYear(year int) Period {
	return Period{Start: NewTimePoint(year, time.January, 1), End: NewTimePoint(year, time.December, 31)}
}

// =============================================================================
// MONTH KEY - Grouping key for monthly summaries
// =============================================================================

type MonthKey struct {
	Year  int
	Month time.Month
}

func MonthOf(tp TimePoint) MonthKey { return MonthKey{Year: tp.Year(), Month: tp.Month()} }

func (m MonthKey) Before(other MonthKey) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}
	return m.Month < other.Month
}
