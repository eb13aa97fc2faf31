/*
Package geo is the geography reference used by the duty engine.

PURPOSE:
  Maps IATA airport codes to the country (German name, as printed in the
  BMF rate tables), the ISO country code, the city and the standard-time UTC
  offset of the airport. Offsets may be fractional (Delhi is +5.5, Kathmandu
  +5.75).

DATA:
  data/airports.json is embedded at compile time. Offsets are standard
  (winter) time; daylight saving is deliberately not modelled because the
  hotel-night test only needs to know on which local date a midnight falls.

UNKNOWN AIRPORTS:
  Lookup of an unknown code returns the "Unbekannt" location with country
  code "XX" and offset 0, plus ok=false so callers can emit a warning.
*/
package geo

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

//go:embed data/airports.json
var airportsJSON []byte

// UnknownCountry is the country name used for airports missing from the table.
const UnknownCountry = "Unbekannt"

// Location describes one airport.
type Location struct {
	Code        string  `json:"code"`
	Country     string  `json:"country"`
	CountryCode string  `json:"country_code"`
	City        string  `json:"city"`
	UTCOffset   float64 `json:"utc_offset"`
}

// Registry is an immutable airport table.
type Registry struct {
	airports map[string]Location
}

// New builds a registry from explicit locations (used by tests and custom tables).
func New(locations ...Location) *Registry {
	r := &Registry{airports: make(map[string]Location, len(locations))}
	for _, loc := range locations {
		loc.Code = strings.ToUpper(loc.Code)
		r.airports[loc.Code] = loc
	}
	return r
}

// Default returns the embedded airport table.
func Default() (*Registry, error) {
	var raw map[string]Location
	if err := json.Unmarshal(airportsJSON, &raw); err != nil {
		return nil, fmt.Errorf("decode embedded airports: %w", err)
	}
	locs := make([]Location, 0, len(raw))
	for code, loc := range raw {
		loc.Code = code
		locs = append(locs, loc)
	}
	return New(locs...), nil
}

// MustDefault is Default for package-level wiring; the embedded table is
// validated by tests, so a failure here is a build defect.
func MustDefault() *Registry {
	r, err := Default()
	if err != nil {
		panic(err)
	}
	return r
}

// Airport returns the location of an IATA code.
func (r *Registry) Airport(code string) (Location, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if loc, ok := r.airports[code]; ok {
		return loc, true
	}
	return Location{Code: code, Country: UnknownCountry, CountryCode: "XX", City: code}, false
}

// Codes returns all known IATA codes, sorted.
func (r *Registry) Codes() []string {
	codes := make([]string, 0, len(r.airports))
	for code := range r.airports {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
