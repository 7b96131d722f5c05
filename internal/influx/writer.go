package influx

import (
	"context"
	"errors"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"ropacal-telemetry/internal/models"
)

const measurement = "bin_telemetry"

const writeTimeout = 5 * time.Second

// Writer exports every telemetry snapshot to InfluxDB as reading
// history. It implements broadcast.Subscriber.
type Writer struct {
	client influxdb2.Client
	api    api.WriteAPIBlocking
}

// NewWriter creates an InfluxDB write API client. Caller should call Close() when done.
func NewWriter(url, token, org, bucket string) *Writer {
	client := influxdb2.NewClient(url, token)
	return &Writer{client: client, api: client.WriteAPIBlocking(org, bucket)}
}

// Close releases the InfluxDB client.
func (w *Writer) Close() {
	w.client.Close()
}

// Health checks that InfluxDB is reachable and the token is valid.
func (w *Writer) Health(ctx context.Context) error {
	_, err := w.client.Health(ctx)
	return err
}

// Notify writes one point per non-bag record
func (w *Writer) Notify(snapshot []models.BinTelemetryRecord) error {
	points := Points(snapshot)
	if len(points) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := w.api.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("influx write: %w", err)
	}
	return nil
}

// Points converts a snapshot to points, skipping bag records
func Points(snapshot []models.BinTelemetryRecord) []*write.Point {
	points := make([]*write.Point, 0, len(snapshot))
	for _, r := range snapshot {
		if r.IsBagCollection {
			continue
		}
		points = append(points, PointFor(r))
	}
	return points
}

// PointFor maps one record to a bin_telemetry point. Identity and
// categorical values are tags; readings are fields.
func PointFor(r models.BinTelemetryRecord) *write.Point {
	pointTime := r.LastUpdated
	if pointTime.IsZero() {
		pointTime = time.Now()
	}

	p := influxdb2.NewPointWithMeasurement(measurement).
		AddTag("binId", r.BinID).
		AddTag("ownerId", r.OwnerID).
		AddTag("wasteType", r.WasteType).
		AddTag("status", string(r.Status)).
		AddTag("signal", string(r.SignalStrength)).
		AddField("fillLevel", r.FillLevel).
		AddField("batteryLevel", r.BatteryLevel).
		AddField("temperature", r.Temperature).
		AddField("humidity", r.Humidity).
		AddField("pressure", r.Pressure).
		AddField("alerts", len(r.Alerts)).
		SetTime(pointTime)

	if r.Latitude != nil && r.Longitude != nil {
		p.AddField("latitude", *r.Latitude).AddField("longitude", *r.Longitude)
	}
	return p
}

// ErrNotConfigured is returned by FromEnv-style constructors when no
// URL is set.
var ErrNotConfigured = errors.New("influx: url not configured")

// NewWriterIfConfigured returns ErrNotConfigured when url is empty
func NewWriterIfConfigured(url, token, org, bucket string) (*Writer, error) {
	if url == "" {
		return nil, ErrNotConfigured
	}
	return NewWriter(url, token, org, bucket), nil
}
