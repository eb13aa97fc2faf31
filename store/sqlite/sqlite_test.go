package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/crewtax/generic"
	"github.com/warp/crewtax/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func record(id string, kind generic.RosterKind, year int, month time.Month) generic.RosterRecord {
	return generic.RosterRecord{
		ID:         generic.RosterID(id),
		CrewID:     "crew-1",
		Kind:       kind,
		Year:       year,
		Month:      month,
		Source:     id + ".pdf",
		Document:   `{"year":2025}`,
		UploadedAt: time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestStore_SaveAndListOrdered(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.SaveRoster(ctx, record("r3", generic.RosterFlightHours, 2025, time.March)))
	require.NoError(t, s.SaveRoster(ctx, record("r1", generic.RosterReimbursement, 2025, time.January)))
	require.NoError(t, s.SaveRoster(ctx, record("r2", generic.RosterFlightHours, 2025, time.January)))

	recs, err := s.ListRosters(ctx, "crew-1")
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, generic.RosterID("r2"), recs[0].ID)
	assert.Equal(t, generic.RosterID("r1"), recs[1].ID)
	assert.Equal(t, generic.RosterID("r3"), recs[2].ID)
	assert.Equal(t, time.March, recs[2].Month)
	assert.True(t, recs[2].UploadedAt.Equal(time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)))
}

func TestStore_DuplicateMonthRejected(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.SaveRoster(ctx, record("a", generic.RosterFlightHours, 2025, time.March)))
	err := s.SaveRoster(ctx, record("b", generic.RosterFlightHours, 2025, time.March))
	assert.ErrorIs(t, err, generic.ErrDuplicateRoster)

	// Other kind, same month is fine
	assert.NoError(t, s.SaveRoster(ctx, record("c", generic.RosterReimbursement, 2025, time.March)))
}

func TestStore_ReplaceSwapsSameMonth(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.SaveRoster(ctx, record("old", generic.RosterFlightHours, 2025, time.March)))
	require.NoError(t, s.SaveRoster(ctx, record("refund", generic.RosterReimbursement, 2025, time.March)))

	require.NoError(t, s.ReplaceRoster(ctx, record("new", generic.RosterFlightHours, 2025, time.March)))

	recs, err := s.ListRosters(ctx, "crew-1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, generic.RosterID("new"), recs[0].ID)
	assert.Equal(t, generic.RosterID("refund"), recs[1].ID)

	// Nothing to replace: behaves like a save
	require.NoError(t, s.ReplaceRoster(ctx, record("april", generic.RosterFlightHours, 2025, time.April)))
	recs, err = s.ListRosters(ctx, "crew-1")
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestStore_FailedReplaceKeepsPreviousDocument(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.SaveRoster(ctx, record("march", generic.RosterFlightHours, 2025, time.March)))
	require.NoError(t, s.SaveRoster(ctx, record("april", generic.RosterFlightHours, 2025, time.April)))

	// GIVEN: A replacement for March whose id is already taken by April
	// THEN: The insert fails and the March document survives
	err := s.ReplaceRoster(ctx, record("april", generic.RosterFlightHours, 2025, time.March))
	require.Error(t, err)

	rec, err := s.GetRoster(ctx, "crew-1", "march")
	require.NoError(t, err)
	assert.Equal(t, time.March, rec.Month)

	recs, err := s.ListRosters(ctx, "crew-1")
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestStore_GetAndDelete(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.SaveRoster(ctx, record("a", generic.RosterFlightHours, 2025, time.March)))

	rec, err := s.GetRoster(ctx, "crew-1", "a")
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", rec.Source)

	_, err = s.GetRoster(ctx, "crew-2", "a")
	assert.ErrorIs(t, err, generic.ErrRosterNotFound)

	require.NoError(t, s.DeleteRoster(ctx, "crew-1", "a"))
	assert.ErrorIs(t, s.DeleteRoster(ctx, "crew-1", "a"), generic.ErrRosterNotFound)

	recs, err := s.ListRosters(ctx, "crew-1")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestStore_Settings(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.LoadSettings(ctx, "crew-1")
	assert.ErrorIs(t, err, generic.ErrCrewNotFound)

	require.NoError(t, s.SaveSettings(ctx, "crew-1", `{"distance_km":"30"}`))
	require.NoError(t, s.SaveSettings(ctx, "crew-1", `{"distance_km":"42"}`))

	got, err := s.LoadSettings(ctx, "crew-1")
	require.NoError(t, err)
	assert.Equal(t, `{"distance_km":"42"}`, got)
}

func TestStore_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "crewtax.db")

	s, err := sqlite.New(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.SaveRoster(ctx, record("a", generic.RosterFlightHours, 2025, time.March)))
	require.NoError(t, s.Close())

	s, err = sqlite.New(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	recs, err := s.ListRosters(ctx, "crew-1")
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}
