package mqtt

import (
	"encoding/json"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ropacal-telemetry/internal/broadcast"
	"ropacal-telemetry/internal/clock"
	"ropacal-telemetry/internal/models"
	"ropacal-telemetry/internal/telemetry"
)

type fakeToken struct{ err error }

func (t fakeToken) Wait() bool                     { return true }
func (t fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t fakeToken) Error() error { return t.err }

type published struct {
	topic   string
	payload []byte
}

type fakeClient struct {
	mu      sync.Mutex
	msgs    []published
	failFor string
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, published{topic: topic, payload: payload.([]byte)})
	if topic == c.failFor {
		return fakeToken{err: errors.New("broker said no")}
	}
	return fakeToken{}
}

func TestTopicHelpers(t *testing.T) {
	assert.Equal(t, "bins/BIN-007/telemetry", TopicForBin("BIN-007"))

	id, ok := BinIDFromTopic("bins/BIN-007/telemetry")
	assert.True(t, ok)
	assert.Equal(t, "BIN-007", id)

	for _, bad := range []string{"bins/BIN-007", "machine/1/realtime", "bins//telemetry", "bins/a/b/telemetry"} {
		_, ok := BinIDFromTopic(bad)
		assert.False(t, ok, bad)
	}

	id, ok = BinIDFromCollectionTopic("collections/BIN-003")
	assert.True(t, ok)
	assert.Equal(t, "BIN-003", id)
	_, ok = BinIDFromCollectionTopic("collections/")
	assert.False(t, ok)
}

func TestPublisherNotify(t *testing.T) {
	client := &fakeClient{}
	p := NewPublisher(client, func() models.TelemetryStats { return models.TelemetryStats{TotalBins: 2} })

	err := p.Notify([]models.BinTelemetryRecord{
		{BinID: "BIN-001", FillLevel: 40},
		{BinID: "BAG-x", IsBagCollection: true},
		{BinID: "BIN-002", FillLevel: 95},
	})
	require.NoError(t, err)

	require.Len(t, client.msgs, 3)
	assert.Equal(t, "bins/BIN-001/telemetry", client.msgs[0].topic)
	assert.Equal(t, "bins/BIN-002/telemetry", client.msgs[1].topic)
	assert.Equal(t, TopicStats, client.msgs[2].topic)

	var rec models.BinTelemetryRecord
	require.NoError(t, json.Unmarshal(client.msgs[1].payload, &rec))
	assert.Equal(t, 95, rec.FillLevel)

	var stats models.TelemetryStats
	require.NoError(t, json.Unmarshal(client.msgs[2].payload, &stats))
	assert.Equal(t, 2, stats.TotalBins)
}

func TestPublisherReportsFailures(t *testing.T) {
	client := &fakeClient{failFor: "bins/BIN-001/telemetry"}
	p := NewPublisher(client, nil)

	err := p.Notify([]models.BinTelemetryRecord{{BinID: "BIN-001"}, {BinID: "BIN-002"}})
	assert.Error(t, err)
	assert.Len(t, client.msgs, 2, "a failed publish does not stop the rest")
}

func TestDecodeCollection(t *testing.T) {
	e, err := DecodeCollection("collections/BIN-004", []byte(`{"weight":12.5,"status":"Override Collection","time":"2026-03-10T10:00:00Z"}`))
	require.NoError(t, err)
	assert.Equal(t, "BIN-004", e.BinID)
	assert.Equal(t, 12.5, e.Weight)
	assert.Equal(t, models.CollectionStatusOverride, e.Status)
	assert.True(t, e.Timestamp.Equal(time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)))

	e, err = DecodeCollection("collections/BIN-005", []byte(`{"weight":3,"time":"1773136800"}`))
	require.NoError(t, err)
	assert.Equal(t, models.CollectionStatusCollected, e.Status)
	assert.Equal(t, int64(1773136800), e.Timestamp.Unix())

	e, err = DecodeCollection("collections/BIN-006", []byte(`{"weight":1}`))
	require.NoError(t, err)
	assert.True(t, e.Timestamp.IsZero())

	_, err = DecodeCollection("collections/BIN-006", []byte(`{"time":"yesterday"}`))
	assert.Error(t, err)
	_, err = DecodeCollection("bins/BIN-006/telemetry", []byte(`{}`))
	assert.Error(t, err)
	_, err = DecodeCollection("collections/BIN-006", []byte(`not json`))
	assert.Error(t, err)
}

// slowToken never completes until release is closed, like a broker
// that has stopped acknowledging.
type slowToken struct{ release chan struct{} }

func (t slowToken) Wait() bool {
	<-t.release
	return true
}
func (t slowToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.release:
		return true
	case <-time.After(d):
		return false
	}
}
func (t slowToken) Done() <-chan struct{} { return t.release }
func (t slowToken) Error() error          { return nil }

type slowClient struct {
	release chan struct{}
	mu      sync.Mutex
	calls   int
}

func (c *slowClient) Publish(string, byte, bool, interface{}) pahomqtt.Token {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return slowToken{release: c.release}
}

func TestSlowBrokerDoesNotDelayStoreMutations(t *testing.T) {
	client := &slowClient{release: make(chan struct{})}
	c := clock.Fake(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	bus := broadcast.NewBus()
	sink := broadcast.NewAsync("mqtt", NewPublisher(client, nil), 2)
	bus.Subscribe("mqtt", sink)
	store := telemetry.NewStore(telemetry.NewGenerator(c, rand.New(rand.NewPCG(1, 2))), bus, c)

	_, err := store.Add("owner-1", "General", "Main St")
	require.NoError(t, err)

	refreshed := make(chan struct{})
	go func() {
		store.RefreshAll()
		close(refreshed)
	}()

	start := time.Now()
	for i := 0; i < 5; i++ {
		_, err := store.Add("owner-1", "General", "Main St")
		require.NoError(t, err)
	}
	<-refreshed
	assert.Less(t, time.Since(start), time.Second, "store mutations must not wait on the broker")
	assert.Len(t, store.ListAll(), 6)
	assert.Positive(t, sink.Dropped(), "a stuck broker sheds snapshots instead of queueing forever")

	close(client.release)
	sink.Close()
}
