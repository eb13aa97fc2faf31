package factory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/warp/crewtax/duty"
	"github.com/warp/crewtax/generic"
)

// =============================================================================
// SETTINGS FACTORY
// =============================================================================

// SettingsFactory converts settings JSON to duty.Settings. Fields missing
// from the document keep the factory's defaults.
//
//	{
//	  "distance_km": "42",
//	  "one_way": false,
//	  "count_medical_as_trip": true,
//	  "drive_time_minutes": 45,
//	  "tip_per_night": "3.60"
//	}
type SettingsFactory struct {
	Defaults duty.Settings
}

// NewSettingsFactory creates a factory over the given defaults.
func NewSettingsFactory(defaults duty.Settings) *SettingsFactory {
	return &SettingsFactory{Defaults: defaults}
}

// ParseSettings parses and validates a settings document. Unknown fields
// are rejected.
func (f *SettingsFactory) ParseSettings(data []byte) (duty.Settings, error) {
	s := f.Defaults
	if len(bytes.TrimSpace(data)) == 0 {
		return s, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return duty.Settings{}, fmt.Errorf("%w: %v", generic.ErrInvalidSettings, err)
	}
	s.HomeCountryCode = strings.ToUpper(strings.TrimSpace(s.HomeCountryCode))
	if s.HomeCountryCode == "" {
		s.HomeCountryCode = f.Defaults.HomeCountryCode
	}
	if err := s.Validate(); err != nil {
		return duty.Settings{}, fmt.Errorf("%w: %w", generic.ErrInvalidSettings, err)
	}
	return s, nil
}

// ToJSON renders settings as stored.
func (f *SettingsFactory) ToJSON(s duty.Settings) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode settings: %w", err)
	}
	return string(b), nil
}
