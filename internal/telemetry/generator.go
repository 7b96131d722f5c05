// Package telemetry simulates bin sensor readings and owns the
// authoritative in-memory set of telemetry records.
package telemetry

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"ropacal-telemetry/internal/clock"
	"ropacal-telemetry/internal/models"
)

var (
	ErrMissingBinID    = errors.New("bin id is required")
	ErrMissingOwnerID  = errors.New("owner id is required")
	ErrInvalidQuantity = errors.New("bag quantity must be at least 1")
)

// Alert thresholds
const (
	OverflowThreshold        = 90 // fill level strictly above this overflows
	LowBatteryThreshold      = 20 // battery strictly below this is low
	HighTemperatureThreshold = 35.0
)

// Ranges bounds every generated reading (inclusive)
type Ranges struct {
	FillMin, FillMax               int
	BatteryMin, BatteryMax         int
	TemperatureMin, TemperatureMax float64
	HumidityMin, HumidityMax       float64
	PressureMin, PressureMax       float64
}

// DefaultRanges are the domain ranges used by the simulator
var DefaultRanges = Ranges{
	FillMin: 20, FillMax: 100,
	BatteryMin: 15, BatteryMax: 100,
	TemperatureMin: 10, TemperatureMax: 40,
	HumidityMin: 30, HumidityMax: 90,
	PressureMin: 980, PressureMax: 1040,
}

// signal buckets weighted towards good reception
var signalWeights = []struct {
	level  models.SignalStrength
	weight int
}{
	{models.SignalExcellent, 30},
	{models.SignalGood, 35},
	{models.SignalFair, 20},
	{models.SignalPoor, 10},
	{models.SignalNone, 5},
}

// damagedChance is the per-generation probability of a DAMAGED status
const damagedChance = 0.02

// Generator produces random readings within Ranges. Safe for concurrent use.
type Generator struct {
	mu     sync.Mutex
	rng    *rand.Rand
	clock  clock.Clock
	ranges Ranges
}

// NewGenerator creates a Generator. A nil rng seeds one from the runtime.
func NewGenerator(c clock.Clock, rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Generator{rng: rng, clock: c, ranges: DefaultRanges}
}

// Ranges returns the configured reading ranges
func (g *Generator) Ranges() Ranges {
	return g.ranges
}

// Generate produces a fresh record for the given bin identity
func (g *Generator) Generate(binID, ownerID, wasteType, location string) (models.BinTelemetryRecord, error) {
	if binID == "" {
		return models.BinTelemetryRecord{}, ErrMissingBinID
	}

	now := g.clock.Now()

	g.mu.Lock()
	fill := g.fillLevel(now)
	battery := g.intIn(g.ranges.BatteryMin, g.ranges.BatteryMax)
	temperature := g.floatIn(g.ranges.TemperatureMin, g.ranges.TemperatureMax)
	humidity := g.floatIn(g.ranges.HumidityMin, g.ranges.HumidityMax)
	pressure := g.floatIn(g.ranges.PressureMin, g.ranges.PressureMax)
	signal := g.signal()
	damaged := g.rng.Float64() < damagedChance
	g.mu.Unlock()

	record := models.BinTelemetryRecord{
		BinID:          binID,
		OwnerID:        ownerID,
		WasteType:      wasteType,
		Location:       location,
		FillLevel:      fill,
		BatteryLevel:   battery,
		Temperature:    temperature,
		Humidity:       humidity,
		Pressure:       pressure,
		SignalStrength: signal,
		LastUpdated:    now,
	}
	record.Status = DeriveStatus(fill, battery, signal, damaged)
	record.Alerts = BuildAlerts(record)
	return record, nil
}

// fillLevel trends upward through the day, clamped to the fill range
func (g *Generator) fillLevel(now time.Time) int {
	base := g.intIn(g.ranges.FillMin, g.ranges.FillMax)
	bias := int(math.Round(float64(now.Hour()) / 23 * 10))
	return clampInt(base+bias, g.ranges.FillMin, g.ranges.FillMax)
}

func (g *Generator) intIn(lo, hi int) int {
	return lo + g.rng.IntN(hi-lo+1)
}

// floatIn returns a value in [lo, hi] rounded to one decimal
func (g *Generator) floatIn(lo, hi float64) float64 {
	v := lo + g.rng.Float64()*(hi-lo)
	return math.Min(hi, math.Max(lo, math.Round(v*10)/10))
}

func (g *Generator) signal() models.SignalStrength {
	total := 0
	for _, w := range signalWeights {
		total += w.weight
	}
	pick := g.rng.IntN(total)
	for _, w := range signalWeights {
		if pick < w.weight {
			return w.level
		}
		pick -= w.weight
	}
	return models.SignalGood
}

// DeriveStatus maps readings to a bin status. Overflow always wins.
func DeriveStatus(fill, battery int, signal models.SignalStrength, damaged bool) models.BinStatus {
	switch {
	case fill > OverflowThreshold:
		return models.BinStatusOverflowing
	case signal == models.SignalNone:
		return models.BinStatusLost
	case battery < LowBatteryThreshold:
		return models.BinStatusMaintenance
	case damaged:
		return models.BinStatusDamaged
	default:
		return models.BinStatusActive
	}
}

// BuildAlerts recomputes the alert list from the record's current
// readings. Previous alerts are never carried over.
func BuildAlerts(r models.BinTelemetryRecord) []models.Alert {
	alerts := make([]models.Alert, 0, 4)
	if r.IsBagCollection {
		return alerts
	}

	if r.FillLevel > OverflowThreshold {
		alerts = append(alerts, models.Alert{
			Type:     models.AlertOverflow,
			Message:  fmt.Sprintf("Bin %s is %d%% full and needs collection", r.BinID, r.FillLevel),
			Severity: models.SeverityCritical,
			Icon:     "🗑️",
		})
	}
	if r.BatteryLevel < LowBatteryThreshold {
		alerts = append(alerts, models.Alert{
			Type:     models.AlertLowBattery,
			Message:  fmt.Sprintf("Sensor battery at %d%%", r.BatteryLevel),
			Severity: models.SeverityWarning,
			Icon:     "🔋",
		})
	}
	if r.SignalStrength.IsWeak() {
		alerts = append(alerts, models.Alert{
			Type:     models.AlertPoorSignal,
			Message:  fmt.Sprintf("Signal strength is %s", r.SignalStrength),
			Severity: models.SeverityWarning,
			Icon:     "📶",
		})
	}
	if r.Temperature > HighTemperatureThreshold {
		alerts = append(alerts, models.Alert{
			Type:     models.AlertHighTemperature,
			Message:  fmt.Sprintf("Bin temperature is %.1f°C", r.Temperature),
			Severity: models.SeverityInfo,
			Icon:     "🌡️",
		})
	}
	return alerts
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
