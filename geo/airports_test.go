package geo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/crewtax/geo"
)

func TestDefault_LoadsEmbeddedTable(t *testing.T) {
	r, err := geo.Default()
	require.NoError(t, err)
	assert.Greater(t, len(r.Codes()), 150)

	fra, ok := r.Airport("FRA")
	require.True(t, ok)
	assert.Equal(t, "Deutschland", fra.Country)
	assert.Equal(t, "DE", fra.CountryCode)
	assert.Equal(t, 1.0, fra.UTCOffset)
}

func TestAirport_FractionalOffset(t *testing.T) {
	r := geo.MustDefault()

	del, ok := r.Airport("del")
	require.True(t, ok, "lookup is case-insensitive")
	assert.Equal(t, 5.5, del.UTCOffset)
	assert.Equal(t, "IN", del.CountryCode)
}

func TestAirport_Unknown(t *testing.T) {
	r := geo.New(geo.Location{Code: "FRA", Country: "Deutschland", CountryCode: "DE", UTCOffset: 1})

	loc, ok := r.Airport("ZZZ")
	assert.False(t, ok)
	assert.Equal(t, geo.UnknownCountry, loc.Country)
	assert.Equal(t, "XX", loc.CountryCode)
	assert.Equal(t, 0.0, loc.UTCOffset)
}
