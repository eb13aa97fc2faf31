// Package store provides RosterStore implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/crewtax/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	rosters  map[generic.CrewID][]generic.RosterRecord
	settings map[generic.CrewID]string
}

func NewMemory() *Memory {
	return &Memory{
		rosters:  make(map[generic.CrewID][]generic.RosterRecord),
		settings: make(map[generic.CrewID]string),
	}
}

// Compile-time check
var _ generic.RosterStore = (*Memory)(nil)

func (m *Memory) SaveRoster(_ context.Context, rec generic.RosterRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	recs := m.rosters[rec.CrewID]
	for _, existing := range recs {
		if existing.Kind == rec.Kind && existing.Year == rec.Year && existing.Month == rec.Month {
			return generic.ErrDuplicateRoster
		}
	}

	// Keep sorted by (year, month, kind) so ListRosters is a copy.
	i := sort.Search(len(recs), func(i int) bool { return rosterLess(rec, recs[i]) })
	recs = append(recs, generic.RosterRecord{})
	copy(recs[i+1:], recs[i:])
	recs[i] = rec
	m.rosters[rec.CrewID] = recs
	return nil
}

func (m *Memory) ReplaceRoster(_ context.Context, rec generic.RosterRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	recs := make([]generic.RosterRecord, 0, len(m.rosters[rec.CrewID])+1)
	for _, existing := range m.rosters[rec.CrewID] {
		if existing.Kind == rec.Kind && existing.Year == rec.Year && existing.Month == rec.Month {
			continue
		}
		recs = append(recs, existing)
	}
	i := sort.Search(len(recs), func(i int) bool { return rosterLess(rec, recs[i]) })
	recs = append(recs, generic.RosterRecord{})
	copy(recs[i+1:], recs[i:])
	recs[i] = rec
	m.rosters[rec.CrewID] = recs
	return nil
}

func (m *Memory) ListRosters(_ context.Context, crewID generic.CrewID) ([]generic.RosterRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]generic.RosterRecord, len(m.rosters[crewID]))
	copy(out, m.rosters[crewID])
	return out, nil
}

func (m *Memory) GetRoster(_ context.Context, crewID generic.CrewID, id generic.RosterID) (generic.RosterRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, rec := range m.rosters[crewID] {
		if rec.ID == id {
			return rec, nil
		}
	}
	return generic.RosterRecord{}, generic.ErrRosterNotFound
}

func (m *Memory) DeleteRoster(_ context.Context, crewID generic.CrewID, id generic.RosterID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	recs := m.rosters[crewID]
	for i, rec := range recs {
		if rec.ID == id {
			m.rosters[crewID] = append(recs[:i:i], recs[i+1:]...)
			return nil
		}
	}
	return generic.ErrRosterNotFound
}

func (m *Memory) SaveSettings(_ context.Context, crewID generic.CrewID, settingsJSON string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[crewID] = settingsJSON
	return nil
}

func (m *Memory) LoadSettings(_ context.Context, crewID generic.CrewID) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.settings[crewID]
	if !ok {
		return "", generic.ErrCrewNotFound
	}
	return s, nil
}

func rosterLess(a, b generic.RosterRecord) bool {
	if a.Year != b.Year {
		return a.Year < b.Year
	}
	if a.Month != b.Month {
		return a.Month < b.Month
	}
	return a.Kind < b.Kind
}
