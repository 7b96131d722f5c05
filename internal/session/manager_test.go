package session

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ropacal-telemetry/internal/clock"
)

var nineAM = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type brokenKV struct{}

func (brokenKV) Get(string) (string, bool, error) { return "", false, errors.New("disk gone") }
func (brokenKV) Set(string, string) error         { return errors.New("disk gone") }
func (brokenKV) Remove(string) error              { return errors.New("disk gone") }

func TestInitializeStartsAndPersists(t *testing.T) {
	kv := NewMemoryStore()
	m := NewManager(kv, clock.Fake(nineAM))

	w := m.Initialize()
	assert.Equal(t, "2026-03-10", w.Date)
	assert.True(t, w.StartTime.Equal(nineAM))

	date, ok, err := kv.Get(KeySessionDate)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2026-03-10", date)

	raw, ok, _ := kv.Get(KeySessionStartTime)
	require.True(t, ok)
	assert.Equal(t, strconv.FormatInt(nineAM.UnixMilli(), 10), raw)
}

func TestInitializeResumesTodaysWindow(t *testing.T) {
	kv := NewMemoryStore()
	c := clock.Fake(nineAM)
	first := NewManager(kv, c).Initialize()

	c.Advance(2 * time.Hour)
	resumed := NewManager(kv, c).Initialize()

	assert.Equal(t, first.Date, resumed.Date)
	assert.True(t, resumed.StartTime.Equal(first.StartTime))
}

func TestInitializeReplacesYesterdaysWindow(t *testing.T) {
	kv := NewMemoryStore()
	c := clock.Fake(nineAM)
	NewManager(kv, c).Initialize()

	c.Set(nineAM.Add(24 * time.Hour))
	w := NewManager(kv, c).Initialize()

	assert.Equal(t, "2026-03-11", w.Date)
	assert.True(t, w.StartTime.Equal(c.Now()))
}

func TestInitializeIgnoresMalformedStartTime(t *testing.T) {
	kv := NewMemoryStore()
	require.NoError(t, kv.Set(KeySessionDate, "2026-03-10"))
	require.NoError(t, kv.Set(KeySessionStartTime, "not-a-number"))

	w := NewManager(kv, clock.Fake(nineAM)).Initialize()
	assert.True(t, w.StartTime.Equal(nineAM))
}

func TestInitializeIgnoresStartTimeFromAnotherDay(t *testing.T) {
	kv := NewMemoryStore()
	yesterday := nineAM.Add(-24 * time.Hour)
	require.NoError(t, kv.Set(KeySessionDate, "2026-03-10"))
	require.NoError(t, kv.Set(KeySessionStartTime, strconv.FormatInt(yesterday.UnixMilli(), 10)))

	w := NewManager(kv, clock.Fake(nineAM)).Initialize()
	assert.Equal(t, "2026-03-10", w.Date)
	assert.True(t, w.StartTime.Equal(nineAM), "window restarts instead of resuming yesterday's start")

	raw, ok, err := kv.Get(KeySessionStartTime)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, strconv.FormatInt(nineAM.UnixMilli(), 10), raw)
}

func TestNeedsReset(t *testing.T) {
	kv := NewMemoryStore()
	c := clock.Fake(nineAM)
	m := NewManager(kv, c)

	assert.True(t, m.NeedsReset(), "missing date counts as stale")

	m.Initialize()
	assert.False(t, m.NeedsReset())

	c.Set(time.Date(2026, 3, 10, 23, 59, 59, 0, time.UTC))
	assert.False(t, m.NeedsReset())

	c.Set(time.Date(2026, 3, 11, 0, 0, 1, 0, time.UTC))
	assert.True(t, m.NeedsReset())
}

func TestElapsedTime(t *testing.T) {
	c := clock.Fake(nineAM)
	m := NewManager(nil, c)

	tests := []struct {
		name  string
		start time.Time
		want  string
	}{
		{"ninety minutes ago", nineAM.Add(-90 * time.Minute), "1h 30m"},
		{"just started", nineAM, "0h 0m"},
		{"yesterday", nineAM.Add(-24 * time.Hour), "0h 0m"},
		{"in the future", nineAM.Add(time.Minute), "0h 0m"},
		{"seconds are truncated", nineAM.Add(-(2*time.Hour + 5*time.Minute + 59*time.Second)), "2h 5m"},
		{"zero", time.Time{}, "0h 0m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.ElapsedTime(tt.start))
		})
	}
}

func TestWindowInitializesWhenIdle(t *testing.T) {
	m := NewManager(nil, clock.Fake(nineAM))
	assert.False(t, m.Active())

	w := m.Window()
	assert.True(t, m.Active())
	assert.Equal(t, "2026-03-10", w.Date)
}

func TestEndRemovesPersistedKeys(t *testing.T) {
	kv := NewMemoryStore()
	m := NewManager(kv, clock.Fake(nineAM))
	m.Initialize()

	m.End()
	assert.False(t, m.Active())
	_, ok, _ := kv.Get(KeySessionDate)
	assert.False(t, ok)
	_, ok, _ = kv.Get(KeySessionStartTime)
	assert.False(t, ok)
	assert.True(t, m.NeedsReset())
}

func TestStorageFailureDegradesToMemory(t *testing.T) {
	c := clock.Fake(nineAM)
	m := NewManager(brokenKV{}, c)

	w := m.Initialize()
	assert.Equal(t, "2026-03-10", w.Date)
	assert.False(t, m.NeedsReset(), "in-memory window is still today")

	c.Set(nineAM.Add(24 * time.Hour))
	assert.True(t, m.NeedsReset())

	assert.NotPanics(t, m.End)
}

func TestPreviousWindow(t *testing.T) {
	c := clock.Fake(nineAM)
	m := NewManager(nil, c)
	assert.True(t, m.Previous().IsZero())

	first := m.Initialize()
	c.Set(nineAM.Add(24 * time.Hour))
	m.ResetForNewDay()
	assert.Equal(t, first, m.Previous())
}
