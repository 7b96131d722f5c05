package telemetry

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ropacal-telemetry/internal/broadcast"
	"ropacal-telemetry/internal/clock"
	"ropacal-telemetry/internal/models"
)

type recorder struct {
	mu        sync.Mutex
	snapshots [][]models.BinTelemetryRecord
	ch        chan []models.BinTelemetryRecord
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan []models.BinTelemetryRecord, 64)}
}

func (r *recorder) Notify(snapshot []models.BinTelemetryRecord) error {
	r.mu.Lock()
	r.snapshots = append(r.snapshots, snapshot)
	r.mu.Unlock()
	r.ch <- snapshot
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

func newTestStore(t *testing.T) (*Store, *clock.FakeClock, *recorder) {
	t.Helper()
	c := clock.Fake(morning)
	bus := broadcast.NewBus()
	rec := newRecorder()
	bus.Subscribe("recorder", rec)
	return NewStore(seededGenerator(c), bus, c), c, rec
}

func TestAddAllocatesLowestUnusedID(t *testing.T) {
	store, _, rec := newTestStore(t)

	for i := 0; i < 3; i++ {
		before := len(store.ListAll())
		added, err := store.Add("owner-1", "General", "Main St")
		require.NoError(t, err)
		assert.Len(t, store.ListAll(), before+1)
		assert.Equal(t, "owner-1", added.OwnerID)
	}

	ids := []string{}
	for _, r := range store.ListAll() {
		ids = append(ids, r.BinID)
	}
	assert.Equal(t, []string{"BIN-001", "BIN-002", "BIN-003"}, ids)
	assert.Equal(t, 3, rec.count())

	require.True(t, store.Remove("BIN-002"))
	added, err := store.Add("owner-2", "Recycling", "Side St")
	require.NoError(t, err)
	assert.Equal(t, "BIN-002", added.BinID)
}

func TestAddRequiresOwner(t *testing.T) {
	store, _, rec := newTestStore(t)
	_, err := store.Add("", "General", "Main St")
	assert.ErrorIs(t, err, ErrMissingOwnerID)
	assert.Equal(t, 0, rec.count())
}

func TestAddBagBatch(t *testing.T) {
	store, _, rec := newTestStore(t)

	bag, err := store.AddBagBatch("owner-1", "Garden", 3, "Front gate")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(bag.BinID, "BAG-"))
	assert.True(t, bag.IsBagCollection)
	assert.Equal(t, 0, bag.FillLevel)
	assert.Empty(t, bag.Alerts)
	assert.Equal(t, 3, bag.Quantity)
	assert.Equal(t, 1, rec.count())

	other, err := store.AddBagBatch("owner-1", "Garden", 1, "Front gate")
	require.NoError(t, err)
	assert.NotEqual(t, bag.BinID, other.BinID)

	_, err = store.AddBagBatch("owner-1", "Garden", 0, "Front gate")
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	// bags never take a sequential bin slot
	added, err := store.Add("owner-1", "General", "Main St")
	require.NoError(t, err)
	assert.Equal(t, "BIN-001", added.BinID)
}

func TestRefreshAllSkipsBags(t *testing.T) {
	store, c, rec := newTestStore(t)

	_, err := store.Add("owner-1", "General", "Main St")
	require.NoError(t, err)
	_, err = store.Add("owner-2", "Organic", "Side St")
	require.NoError(t, err)
	bag, err := store.AddBagBatch("owner-1", "Garden", 2, "Front gate")
	require.NoError(t, err)

	before := map[string]models.BinTelemetryRecord{}
	for _, r := range store.ListAll() {
		before[r.BinID] = r
	}
	broadcasts := rec.count()

	c.Advance(time.Second)
	store.RefreshAll()
	assert.Equal(t, broadcasts+1, rec.count(), "one broadcast per refresh")

	// refresh with a frozen clock still advances timestamps
	store.RefreshAll()

	for _, r := range store.ListAll() {
		prev := before[r.BinID]
		if r.IsBagCollection {
			assert.Equal(t, prev, r)
			continue
		}
		assert.True(t, r.LastUpdated.After(prev.LastUpdated), "bin %s lastUpdated did not advance", r.BinID)
		assert.Equal(t, prev.OwnerID, r.OwnerID)
		assert.Equal(t, prev.WasteType, r.WasteType)
		assert.Equal(t, prev.Location, r.Location)
	}

	got, ok := store.Get(bag.BinID)
	require.True(t, ok)
	assert.Equal(t, bag, got)
}

func TestListByOwnerAndCopies(t *testing.T) {
	store, _, _ := newTestStore(t)
	_, _ = store.Add("owner-1", "General", "A")
	_, _ = store.Add("owner-2", "General", "B")
	_, _ = store.Add("owner-1", "General", "C")

	mine := store.ListByOwner("owner-1")
	require.Len(t, mine, 2)
	assert.Equal(t, "BIN-001", mine[0].BinID)
	assert.Equal(t, "BIN-003", mine[1].BinID)

	mine[0].FillLevel = -1
	mine[0].Alerts = append(mine[0].Alerts, models.Alert{Type: "injected"})
	fresh, _ := store.Get("BIN-001")
	assert.NotEqual(t, -1, fresh.FillLevel)
	assert.False(t, fresh.HasAlert("injected"))

	unknown := store.ListByOwner("nobody")
	assert.NotNil(t, unknown)
	assert.Empty(t, unknown)
}

func TestStatsFor(t *testing.T) {
	store, _, _ := newTestStore(t)

	empty := store.StatsFor("")
	assert.Equal(t, models.TelemetryStats{}, empty)

	store.records["BIN-001"] = models.BinTelemetryRecord{BinID: "BIN-001", OwnerID: "a", FillLevel: 95, BatteryLevel: 10, Status: models.BinStatusOverflowing}
	store.records["BIN-002"] = models.BinTelemetryRecord{BinID: "BIN-002", OwnerID: "a", FillLevel: 45, BatteryLevel: 90, Status: models.BinStatusActive}
	store.records["BIN-003"] = models.BinTelemetryRecord{BinID: "BIN-003", OwnerID: "b", FillLevel: 20, BatteryLevel: 50, Status: models.BinStatusActive}
	store.records["BAG-x"] = models.BinTelemetryRecord{BinID: "BAG-x", OwnerID: "a", IsBagCollection: true}

	all := store.StatsFor("")
	assert.Equal(t, 3, all.TotalBins)
	assert.Equal(t, 2, all.ActiveBins)
	assert.Equal(t, 1, all.OverflowingBins)
	assert.Equal(t, 1, all.LowBatteryBins)
	assert.InDelta(t, 160.0/3, all.AverageFillLevel, 1e-9)
	assert.InDelta(t, 50.0, all.AverageBatteryLevel, 1e-9)

	a := store.StatsFor("a")
	assert.Equal(t, 2, a.TotalBins)
	assert.InDelta(t, 70.0, a.AverageFillLevel, 1e-9)

	none := store.StatsFor("nobody")
	assert.Equal(t, 0, none.TotalBins)
	assert.Zero(t, none.AverageFillLevel)
	assert.Zero(t, none.AverageBatteryLevel)
}

func TestRemoveUnknownIsNoop(t *testing.T) {
	store, _, rec := newTestStore(t)
	assert.False(t, store.Remove("BIN-404"))
	assert.Equal(t, 0, rec.count())
}

func waitSnapshot(t *testing.T, rec *recorder) []models.BinTelemetryRecord {
	t.Helper()
	select {
	case s := <-rec.ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for broadcast")
		return nil
	}
}

func drain(rec *recorder) {
	for {
		select {
		case <-rec.ch:
		default:
			return
		}
	}
}

func TestStartUpdatesRefreshesOnTick(t *testing.T) {
	store, c, rec := newTestStore(t)
	_, err := store.Add("owner-1", "General", "Main St")
	require.NoError(t, err)
	drain(rec)

	store.StartUpdates(5 * time.Second)
	defer store.StopUpdates()
	c.WaitForTickers(1)

	c.Advance(5 * time.Second)
	snap := waitSnapshot(t, rec)
	require.Len(t, snap, 1)
	assert.True(t, snap[0].LastUpdated.Equal(c.Now()))
}

func TestStartUpdatesReplacesArmedTimer(t *testing.T) {
	store, c, _ := newTestStore(t)

	store.StartUpdates(time.Second)
	store.StartUpdates(2 * time.Second)
	assert.Equal(t, 1, c.PendingCount(), "re-arming must not leak a second timer")
	assert.True(t, store.IsUpdating())

	store.StopUpdates()
	assert.Equal(t, 0, c.PendingCount())
	assert.False(t, store.IsUpdating())

	assert.NotPanics(t, store.StopUpdates)
}

func TestStopUpdatesPreventsFurtherTicks(t *testing.T) {
	store, c, rec := newTestStore(t)
	_, _ = store.Add("owner-1", "General", "Main St")
	drain(rec)

	store.StartUpdates(time.Second)
	c.WaitForTickers(1)
	store.StopUpdates()

	c.Advance(10 * time.Second)
	select {
	case <-rec.ch:
		t.Fatal("refresh ran after StopUpdates")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFaultySubscriberDoesNotStopTimer(t *testing.T) {
	c := clock.Fake(morning)
	bus := broadcast.NewBus()
	bus.Subscribe("panics", broadcast.SubscriberFunc(func([]models.BinTelemetryRecord) error { panic("ui crashed") }))
	rec := newRecorder()
	bus.Subscribe("recorder", rec)
	store := NewStore(seededGenerator(c), bus, c)

	store.StartUpdates(time.Second)
	defer store.StopUpdates()
	c.WaitForTickers(1)

	c.Advance(time.Second)
	waitSnapshot(t, rec)
	c.Advance(time.Second)
	waitSnapshot(t, rec)
}
