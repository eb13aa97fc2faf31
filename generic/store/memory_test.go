package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/crewtax/generic"
	"github.com/warp/crewtax/generic/store"
)

func TestMemory_OrdersAndRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	save := func(id string, kind generic.RosterKind, month time.Month) error {
		return m.SaveRoster(ctx, generic.RosterRecord{ID: generic.RosterID(id), CrewID: "c", Kind: kind, Year: 2025, Month: month})
	}
	require.NoError(t, save("mar", generic.RosterFlightHours, time.March))
	require.NoError(t, save("jan-r", generic.RosterReimbursement, time.January))
	require.NoError(t, save("jan", generic.RosterFlightHours, time.January))
	assert.ErrorIs(t, save("again", generic.RosterFlightHours, time.March), generic.ErrDuplicateRoster)

	recs, err := m.ListRosters(ctx, "c")
	require.NoError(t, err)
	var ids []generic.RosterID
	for _, r := range recs {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []generic.RosterID{"jan", "jan-r", "mar"}, ids)
}

func TestMemory_DeleteAndSettings(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.SaveRoster(ctx, generic.RosterRecord{ID: "a", CrewID: "c", Kind: generic.RosterFlightHours, Year: 2025, Month: time.May}))

	_, err := m.GetRoster(ctx, "c", "a")
	require.NoError(t, err)
	require.NoError(t, m.DeleteRoster(ctx, "c", "a"))
	assert.ErrorIs(t, m.DeleteRoster(ctx, "c", "a"), generic.ErrRosterNotFound)

	_, err = m.LoadSettings(ctx, "c")
	assert.ErrorIs(t, err, generic.ErrCrewNotFound)
	require.NoError(t, m.SaveSettings(ctx, "c", "{}"))
	got, err := m.LoadSettings(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "{}", got)
}

func TestMemory_ReplaceSwapsSameMonth(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	rec := func(id string, kind generic.RosterKind, month time.Month) generic.RosterRecord {
		return generic.RosterRecord{ID: generic.RosterID(id), CrewID: "c", Kind: kind, Year: 2025, Month: month}
	}
	require.NoError(t, m.SaveRoster(ctx, rec("old", generic.RosterFlightHours, time.March)))
	require.NoError(t, m.SaveRoster(ctx, rec("refund", generic.RosterReimbursement, time.March)))
	require.NoError(t, m.SaveRoster(ctx, rec("feb", generic.RosterFlightHours, time.February)))

	require.NoError(t, m.ReplaceRoster(ctx, rec("new", generic.RosterFlightHours, time.March)))

	recs, err := m.ListRosters(ctx, "c")
	require.NoError(t, err)
	var ids []generic.RosterID
	for _, r := range recs {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []generic.RosterID{"feb", "new", "refund"}, ids)
}
