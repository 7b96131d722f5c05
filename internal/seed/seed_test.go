package seed

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ropacal-telemetry/internal/broadcast"
	"ropacal-telemetry/internal/clock"
	"ropacal-telemetry/internal/telemetry"
)

func newStore() *telemetry.Store {
	c := clock.Fake(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	return telemetry.NewStore(telemetry.NewGenerator(c, rand.New(rand.NewPCG(3, 4))), broadcast.NewBus(), c)
}

func TestSeedBins(t *testing.T) {
	store := newStore()

	n, err := SeedBins(store, "resident-1", 25)
	require.NoError(t, err)
	assert.Equal(t, 25, n)

	records := store.ListAll()
	require.Len(t, records, 25)
	assert.Equal(t, "BIN-001", records[0].BinID)
	assert.Equal(t, "BIN-025", records[24].BinID)
	assert.Equal(t, "325 S 1st St, San Jose", records[0].Location)
	assert.Equal(t, "Recycling", records[1].WasteType)
	require.NotNil(t, records[0].Latitude)
	assert.Equal(t, 37.3329, *records[0].Latitude)
	// sites wrap around
	assert.Equal(t, records[0].Location, records[20].Location)
}

func TestSeedBinsSkipsPopulatedStore(t *testing.T) {
	store := newStore()
	_, err := store.Add("someone", "General", "Elsewhere")
	require.NoError(t, err)

	n, err := SeedBins(store, "resident-1", 12)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, store.Len())
}

func TestSeedBinsPropagatesErrors(t *testing.T) {
	_, err := SeedBins(newStore(), "", 3)
	assert.ErrorIs(t, err, telemetry.ErrMissingOwnerID)
}
