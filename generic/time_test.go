package generic_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/crewtax/generic"
)

func TestParseDate_BothLayouts(t *testing.T) {
	want := generic.NewTimePoint(2025, time.March, 4)

	for _, s := range []string{"2025-03-04", "04.03.2025", " 04.03.2025 "} {
		got, err := generic.ParseDate(s)
		require.NoError(t, err, s)
		assert.True(t, got.Equal(want), s)
	}
}

func TestParseDate_RejectsImpossibleDates(t *testing.T) {
	for _, s := range []string{"31.02.2025", "00.01.2025", "2025-13-01", "yesterday", ""} {
		_, err := generic.ParseDate(s)
		assert.True(t, errors.Is(err, generic.ErrInvalidDate), s)
	}
}

func TestTimePoint_TextRoundTrip(t *testing.T) {
	tp := generic.NewTimePoint(2025, time.January, 31)

	b, err := json.Marshal(tp)
	require.NoError(t, err)
	assert.Equal(t, `"2025-01-31"`, string(b))
	assert.Equal(t, "31.01.2025", tp.German())

	var back generic.TimePoint
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, back.Equal(tp))
}

func TestClockTime(t *testing.T) {
	c, err := generic.ParseClock("08:50")
	require.NoError(t, err)
	assert.Equal(t, 530, c.Minutes())
	assert.InDelta(t, 8.8333, c.Hours(), 0.001)
	assert.Equal(t, "08:50", c.String())

	for _, s := range []string{"25:00", "24:30", "8:5x", "", "12:60"} {
		_, err := generic.ParseClock(s)
		assert.True(t, errors.Is(err, generic.ErrInvalidTime), s)
	}
}

func TestShiftHours_CarriesDays(t *testing.T) {
	day := generic.NewTimePoint(2025, time.June, 10)

	// 22:00 UTC in Delhi (+5.5) is 03:30 the next day
	m := generic.ShiftHours(day, 22, 5.5)
	assert.True(t, m.Date.Equal(day.AddDays(1)))
	assert.InDelta(t, 3.5, m.Hour, 1e-9)

	// 02:00 UTC in Chicago (-6) is 20:00 the day before
	m = generic.ShiftHours(day, 2, -6)
	assert.True(t, m.Date.Equal(day.AddDays(-1)))
	assert.InDelta(t, 20, m.Hour, 1e-9)
}

func TestLastDayOfPreviousMonth(t *testing.T) {
	assert.True(t, generic.LastDayOfPreviousMonth(2025, time.March).Equal(generic.NewTimePoint(2025, time.February, 28)))
	assert.True(t, generic.LastDayOfPreviousMonth(2024, time.March).Equal(generic.NewTimePoint(2024, time.February, 29)))
	assert.True(t, generic.LastDayOfPreviousMonth(2025, time.January).Equal(generic.NewTimePoint(2024, time.December, 31)))
}

func TestPeriod(t *testing.T) {
	p := generic.Period{Start: generic.NewTimePoint(2025, time.January, 30), End: generic.NewTimePoint(2025, time.February, 2)}

	assert.Len(t, p.Days(), 4)
	assert.True(t, p.Contains(generic.NewTimePoint(2025, time.February, 1)))
	assert.False(t, p.Contains(generic.NewTimePoint(2025, time.February, 3)))

	backwards := generic.Period{Start: p.End, End: p.Start}
	assert.Empty(t, backwards.Days())
}

func TestTaxYear(t *testing.T) {
	y := generic.TaxYear(2024)

	assert.Len(t, y.Days(), 366)
	assert.True(t, y.Contains(generic.NewTimePoint(2024, time.December, 31)))
	assert.False(t, y.Contains(generic.NewTimePoint(2025, time.January, 1)))
}

func TestMonthKey(t *testing.T) {
	feb := generic.MonthOf(generic.NewTimePoint(2024, time.February, 10))

	assert.True(t, feb.Before(generic.MonthKey{Year: 2024, Month: time.March}))
	assert.False(t, feb.Before(generic.MonthKey{Year: 2023, Month: time.December}))
}

func TestRounding(t *testing.T) {
	assert.True(t, generic.Round2(decimal.RequireFromString("19.605")).Equal(decimal.RequireFromString("19.61")))
	assert.True(t, generic.NonNegative(decimal.NewFromInt(-3)).IsZero())
	assert.True(t, generic.NonNegative(decimal.NewFromInt(3)).Equal(decimal.NewFromInt(3)))
}
