package influx

import (
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ropacal-telemetry/internal/models"
)

func lineFor(p *write.Point) string {
	return write.PointToLineProtocol(p, time.Nanosecond)
}

func TestPointFor(t *testing.T) {
	ts := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	lat, lng := 37.3329, -121.8866
	p := PointFor(models.BinTelemetryRecord{
		BinID:          "BIN-001",
		OwnerID:        "resident-1",
		WasteType:      "Recycling",
		Status:         models.BinStatusOverflowing,
		SignalStrength: models.SignalGood,
		FillLevel:      95,
		BatteryLevel:   80,
		Temperature:    21.5,
		Humidity:       40,
		Pressure:       1012.3,
		Alerts:         []models.Alert{{Type: models.AlertOverflow}},
		Latitude:       &lat,
		Longitude:      &lng,
		LastUpdated:    ts,
	})

	assert.Equal(t, "bin_telemetry", p.Name())
	assert.True(t, p.Time().Equal(ts))

	line := lineFor(p)
	assert.True(t, strings.HasPrefix(line, "bin_telemetry,"))
	assert.Contains(t, line, "binId=BIN-001")
	assert.Contains(t, line, "status=OVERFLOWING")
	assert.Contains(t, line, "fillLevel=95i")
	assert.Contains(t, line, "alerts=1i")
	assert.Contains(t, line, "latitude=37.3329")
}

func TestPointsSkipBags(t *testing.T) {
	points := Points([]models.BinTelemetryRecord{
		{BinID: "BIN-001", LastUpdated: time.Now()},
		{BinID: "BAG-1", IsBagCollection: true},
	})
	require.Len(t, points, 1)
	assert.NotContains(t, lineFor(points[0]), "latitude")

	assert.Empty(t, Points(nil))
}

func TestNewWriterIfConfigured(t *testing.T) {
	_, err := NewWriterIfConfigured("", "", "", "")
	assert.ErrorIs(t, err, ErrNotConfigured)

	w, err := NewWriterIfConfigured("http://localhost:8086", "token", "org", "bucket")
	require.NoError(t, err)
	w.Close()
}
