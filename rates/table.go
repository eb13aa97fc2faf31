/*
Package rates is the statutory rate table used by the duty engine.

PURPOSE:
  Answers "what is the meal allowance for country X in tax year Y?" and
  carries the other per-year constants the deduction needs: the hotel tip
  allowance per night and the commuting distance rates.

MEAL ALLOWANCE (Verpflegungsmehraufwand):
  Each (year, country) entry holds two rates:
    - full:    absence of 24 hours on a calendar day
    - partial: departure/return day of a multi-day trip, or > 8 hours absence

  Country names follow the BMF tables ("Aegypten", "Suedafrika - Kapstadt").
  Airport tables use other spellings ("Ägypten", "Südafrika-Kapstadt"); the
  aliases section of the data file maps them.

FALLBACK:
  Per BMF, countries missing from the table use the Luxemburg rates. Years
  missing from the table use the default year.

DATA:
  data/allowances.json is embedded at compile time.

SEE ALSO:
  - distance.go: Entfernungspauschale rates per year
  - duty/allowance.go: Consumer of DailyRate
*/
package rates

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

//go:embed data/allowances.json
var allowancesJSON []byte

// =============================================================================
// RATE
// =============================================================================

// Rate is the pair of meal allowance rates for one country and year.
type Rate struct {
	Country  string          `json:"country"`
	Year     int             `json:"year"`
	Full     decimal.Decimal `json:"full"`
	Partial  decimal.Decimal `json:"partial"`
	Fallback bool            `json:"fallback"`
}

// =============================================================================
// TABLE
// =============================================================================

type tableJSON struct {
	DefaultYear     int                            `json:"default_year"`
	FallbackCountry string                         `json:"fallback_country"`
	HomeCountry     string                         `json:"home_country"`
	Aliases         map[string]string              `json:"aliases"`
	Years           map[string]map[string]rateJSON `json:"years"`
	TipPerNight     map[string]decimal.Decimal     `json:"tip_per_night"`
}

type rateJSON struct {
	Full    decimal.Decimal `json:"full"`
	Partial decimal.Decimal `json:"partial"`
}

// Table is an immutable rate table.
type Table struct {
	defaultYear int
	fallback    string
	home        string
	aliases     map[string]string
	years       map[int]map[string]rateJSON
	tips        map[int]decimal.Decimal
}

// Parse decodes a rate table document.
func Parse(data []byte) (*Table, error) {
	var raw tableJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode rate table: %w", err)
	}
	if len(raw.Years) == 0 {
		return nil, fmt.Errorf("rate table has no years")
	}

	t := &Table{
		defaultYear: raw.DefaultYear,
		fallback:    raw.FallbackCountry,
		home:        raw.HomeCountry,
		aliases:     raw.Aliases,
		years:       make(map[int]map[string]rateJSON, len(raw.Years)),
		tips:        make(map[int]decimal.Decimal, len(raw.TipPerNight)),
	}
	for y, entries := range raw.Years {
		year, err := strconv.Atoi(y)
		if err != nil {
			return nil, fmt.Errorf("rate table year %q: %w", y, err)
		}
		t.years[year] = entries
	}
	for y, tip := range raw.TipPerNight {
		year, err := strconv.Atoi(y)
		if err != nil {
			return nil, fmt.Errorf("tip table year %q: %w", y, err)
		}
		t.tips[year] = tip
	}
	if _, ok := t.years[t.defaultYear]; !ok {
		return nil, fmt.Errorf("default year %d missing from rate table", t.defaultYear)
	}
	if _, ok := t.years[t.defaultYear][t.fallback]; !ok {
		return nil, fmt.Errorf("fallback country %q missing from default year", t.fallback)
	}
	return t, nil
}

// Default returns the embedded BMF table (2023-2025).
func Default() (*Table, error) {
	return Parse(allowancesJSON)
}

// MustDefault is Default for wiring; the embedded table is covered by tests.
func MustDefault() *Table {
	t, err := Default()
	if err != nil {
		panic(err)
	}
	return t
}

// DailyRate returns the rates for a country in a tax year. Unknown countries
// resolve to the fallback country's rates with Fallback set.
func (t *Table) DailyRate(country string, year int) Rate {
	entries, ok := t.years[year]
	if !ok {
		year = t.defaultYear
		entries = t.years[year]
	}

	name := t.Normalize(country)
	if r, ok := entries[name]; ok {
		return Rate{Country: name, Year: year, Full: r.Full, Partial: r.Partial}
	}

	r, ok := entries[t.fallback]
	if !ok {
		r = t.years[t.defaultYear][t.fallback]
	}
	return Rate{Country: name, Year: year, Full: r.Full, Partial: r.Partial, Fallback: true}
}

// Normalize maps an airport-table country name onto the rate-table spelling.
// An empty name is the home country.
func (t *Table) Normalize(country string) string {
	country = strings.TrimSpace(country)
	if country == "" {
		return t.home
	}
	if alias, ok := t.aliases[country]; ok {
		return alias
	}
	return country
}

// TipPerNight returns the hotel tip allowance for a year, defaulting to the
// default year's value.
func (t *Table) TipPerNight(year int) decimal.Decimal {
	if tip, ok := t.tips[year]; ok {
		return tip
	}
	return t.tips[t.defaultYear]
}

// WithDefaultYear returns a copy of the table that falls back to year
// instead. Years the table does not cover are rejected.
func (t *Table) WithDefaultYear(year int) (*Table, error) {
	if _, ok := t.years[year]; !ok {
		return nil, fmt.Errorf("year %d not in rate table", year)
	}
	cp := *t
	cp.defaultYear = year
	return &cp, nil
}

// HomeCountry is the rate-table name of the home country.
func (t *Table) HomeCountry() string { return t.home }

// FallbackCountry is the country whose rates apply to unknown countries.
func (t *Table) FallbackCountry() string { return t.fallback }

// DefaultYear is used for years the table does not cover.
func (t *Table) DefaultYear() int { return t.defaultYear }

// Years lists the covered tax years, newest first.
func (t *Table) Years() []int {
	years := make([]int, 0, len(t.years))
	for y := range t.years {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}
