package generic

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// TIME POINT - Calendar date abstraction (every allowance is keyed by one)
// =============================================================================

// TimePoint is a calendar date. Only the date part of Time is significant.
type TimePoint struct {
	Time time.Time
}

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses "YYYY-MM-DD" or the German roster form "DD.MM.YYYY".
func ParseDate(s string) (TimePoint, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "02.01.2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return NewTimePoint(t.Year(), t.Month(), t.Day()), nil
		}
	}
	return TimePoint{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.normalize().Before(other.normalize()) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.normalize().Equal(other.normalize()) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.normalize().After(other.normalize()) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return tp.Before(other) || tp.Equal(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return tp.After(other) || tp.Equal(other) }

func (tp TimePoint) normalize() time.Time {
	return time.Date(tp.Time.Year(), tp.Time.Month(), tp.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint { return TimePoint{Time: tp.Time.AddDate(0, 0, n)} }

// Properties
func (tp TimePoint) Year() int         { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month { return tp.Time.Month() }

// Key is the canonical map key for a calendar date.
func (tp TimePoint) Key() string { return tp.Time.Format("2006-01-02") }

// German renders the date the way rosters print it (DD.MM.YYYY).
func (tp TimePoint) German() string { return tp.Time.Format("02.01.2006") }

func (tp TimePoint) String() string { return tp.Key() }

func (tp TimePoint) MarshalText() ([]byte, error) { return []byte(tp.Key()), nil }

func (tp *TimePoint) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*tp = parsed
	return nil
}

// =============================================================================
// CLOCK TIME - Minutes after midnight, as printed on a roster ("HH:MM")
// =============================================================================

type ClockTime int

func NewClockTime(hour, minute int) ClockTime { return ClockTime(hour*60 + minute) }

// ParseClock parses "HH:MM". 24:00 is accepted as end of day.
func ParseClock(s string) (ClockTime, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	hour, err1 := strconv.Atoi(h)
	minute, err2 := strconv.Atoi(m)
	if err1 != nil || err2 != nil || hour < 0 || hour > 24 || minute < 0 || minute > 59 || (hour == 24 && minute > 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return NewClockTime(hour, minute), nil
}

func (c ClockTime) Minutes() int   { return int(c) }
func (c ClockTime) Hours() float64 { return float64(c) / 60 }

func (c ClockTime) String() string { return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60) }

func (c ClockTime) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *ClockTime) UnmarshalText(b []byte) error {
	parsed, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// =============================================================================
// LOCAL MOMENT - A date plus fractional hour in some local time zone
// =============================================================================

// LocalMoment is a wall-clock moment at a place with a fixed UTC offset.
type LocalMoment struct {
	Date TimePoint
	Hour float64
}

// ShiftHours moves a (date, hour) pair by offset hours, carrying whole days.
// Offsets may be fractional (India is +5.5).
func ShiftHours(date TimePoint, hour, offset float64) LocalMoment {
	h := hour + offset
	days := 0
	for h >= 24 {
		h -= 24
		days++
	}
	for h < 0 {
		h += 24
		days--
	}
	return LocalMoment{Date: date.AddDays(days), Hour: h}
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

func StartOfMonth(year int, month time.Month) TimePoint { return NewTimePoint(year, month, 1) }

// LastDayOfPreviousMonth returns the last calendar day before the 1st of month.
func LastDayOfPreviousMonth(year int, month time.Month) TimePoint {
	return StartOfMonth(year, month).AddDays(-1)
}
