package broadcast

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ropacal-telemetry/internal/models"
)

func TestAsyncQueuesAndDropsWhenBehind(t *testing.T) {
	gate := make(chan struct{})
	entered := make(chan struct{}, 4)
	var mu sync.Mutex
	var got []string

	a := NewAsync("slow", SubscriberFunc(func(snapshot []models.BinTelemetryRecord) error {
		entered <- struct{}{}
		<-gate
		mu.Lock()
		got = append(got, snapshot[0].BinID)
		mu.Unlock()
		return nil
	}), 1)
	defer a.Close()

	start := time.Now()
	require.NoError(t, a.Notify(snapshotOf("BIN-001")))
	<-entered // worker is now stuck in the subscriber
	require.NoError(t, a.Notify(snapshotOf("BIN-002")))
	require.NoError(t, a.Notify(snapshotOf("BIN-003")))
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, uint64(1), a.Dropped())

	close(gate)
	require.Eventually(t, func() bool { return a.Delivered() == 2 }, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"BIN-001", "BIN-002"}, got)
}

func TestAsyncOnBusDoesNotBlockPublish(t *testing.T) {
	gate := make(chan struct{})
	bus := NewBus()
	a := NewAsync("stuck", SubscriberFunc(func([]models.BinTelemetryRecord) error {
		<-gate
		return nil
	}), 0)
	bus.Subscribe("stuck", a)

	var fast int
	bus.Subscribe("fast", SubscriberFunc(func([]models.BinTelemetryRecord) error { fast++; return nil }))

	start := time.Now()
	for i := 0; i < DefaultQueueSize*2; i++ {
		assert.Equal(t, 0, bus.Publish(snapshotOf("BIN-001")))
	}
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, DefaultQueueSize*2, fast)

	close(gate)
	a.Close()
}

func TestAsyncRecoversSubscriberPanic(t *testing.T) {
	calls := 0
	var mu sync.Mutex
	a := NewAsync("panics", SubscriberFunc(func([]models.BinTelemetryRecord) error {
		mu.Lock()
		calls++
		mu.Unlock()
		panic("boom")
	}), 4)
	defer a.Close()

	require.NoError(t, a.Notify(snapshotOf("BIN-001")))
	require.NoError(t, a.Notify(snapshotOf("BIN-002")))
	require.Eventually(t, func() bool { return a.Delivered() == 2 }, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, 2, calls)
	mu.Unlock()
}

func TestAsyncCloseIsIdempotent(t *testing.T) {
	called := make(chan struct{}, 1)
	a := NewAsync("closed", SubscriberFunc(func([]models.BinTelemetryRecord) error {
		called <- struct{}{}
		return nil
	}), 1)

	a.Close()
	a.Close()
	require.NotPanics(t, func() { assert.NoError(t, a.Notify(snapshotOf("BIN-001"))) })

	select {
	case <-called:
		t.Fatal("no delivery after Close")
	case <-time.After(50 * time.Millisecond):
	}
}
