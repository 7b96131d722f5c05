package models

import "time"

// BinStatus is the derived operating state of a bin
type BinStatus string

const (
	BinStatusActive      BinStatus = "ACTIVE"
	BinStatusDamaged     BinStatus = "DAMAGED"
	BinStatusMaintenance BinStatus = "MAINTENANCE"
	BinStatusLost        BinStatus = "LOST"
	BinStatusOverflowing BinStatus = "OVERFLOWING"
)

// SignalStrength is the bucketed radio quality reported by a bin sensor
type SignalStrength string

const (
	SignalExcellent SignalStrength = "Excellent"
	SignalGood      SignalStrength = "Good"
	SignalFair      SignalStrength = "Fair"
	SignalPoor      SignalStrength = "Poor"
	SignalNone      SignalStrength = "No Signal"
)

// SignalLevels lists every signal bucket from best to worst
var SignalLevels = []SignalStrength{SignalExcellent, SignalGood, SignalFair, SignalPoor, SignalNone}

// IsWeak reports whether the signal warrants a poor_signal alert
func (s SignalStrength) IsWeak() bool {
	return s == SignalPoor || s == SignalNone
}

// Alert types
const (
	AlertOverflow        = "overflow"
	AlertLowBattery      = "low_battery"
	AlertPoorSignal      = "poor_signal"
	AlertHighTemperature = "high_temperature"
)

// Alert severities
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// Alert is one derived warning attached to a telemetry record
type Alert struct {
	Type     string `json:"type" msgpack:"type"`
	Message  string `json:"message" msgpack:"message"`
	Severity string `json:"severity" msgpack:"severity"`
	Icon     string `json:"icon" msgpack:"icon"`
}

// BinTelemetryRecord is the latest simulated sensor reading set for one bin
type BinTelemetryRecord struct {
	BinID          string         `json:"bin_id" msgpack:"bin_id"`
	OwnerID        string         `json:"owner_id" msgpack:"owner_id"`
	WasteType      string         `json:"waste_type" msgpack:"waste_type"`
	Location       string         `json:"location" msgpack:"location"`
	Latitude       *float64       `json:"latitude,omitempty" msgpack:"latitude,omitempty"`
	Longitude      *float64       `json:"longitude,omitempty" msgpack:"longitude,omitempty"`
	FillLevel      int            `json:"fill_level" msgpack:"fill_level"`       // 0-100
	BatteryLevel   int            `json:"battery_level" msgpack:"battery_level"` // 0-100
	Temperature    float64        `json:"temperature" msgpack:"temperature"`     // Celsius
	Humidity       float64        `json:"humidity" msgpack:"humidity"`           // percent
	Pressure       float64        `json:"pressure" msgpack:"pressure"`           // hPa
	SignalStrength SignalStrength `json:"signal_strength" msgpack:"signal_strength"`
	Status         BinStatus      `json:"status" msgpack:"status"`
	Alerts         []Alert        `json:"alerts" msgpack:"alerts"`
	LastUpdated    time.Time      `json:"last_updated" msgpack:"last_updated"`

	// Bag collections are synthetic entries that never refresh
	IsBagCollection bool   `json:"is_bag_collection" msgpack:"is_bag_collection"`
	BagType         string `json:"bag_type,omitempty" msgpack:"bag_type,omitempty"`
	Quantity        int    `json:"quantity,omitempty" msgpack:"quantity,omitempty"`
}

// HasAlert reports whether an alert of the given type is attached
func (r *BinTelemetryRecord) HasAlert(alertType string) bool {
	for _, a := range r.Alerts {
		if a.Type == alertType {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers cannot mutate store-owned state
func (r BinTelemetryRecord) Clone() BinTelemetryRecord {
	out := r
	if r.Alerts != nil {
		out.Alerts = make([]Alert, len(r.Alerts))
		copy(out.Alerts, r.Alerts)
	}
	if r.Latitude != nil {
		lat := *r.Latitude
		out.Latitude = &lat
	}
	if r.Longitude != nil {
		lng := *r.Longitude
		out.Longitude = &lng
	}
	return out
}

// CloneRecords deep-copies a snapshot
func CloneRecords(records []BinTelemetryRecord) []BinTelemetryRecord {
	out := make([]BinTelemetryRecord, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}

// TelemetryStats summarizes a set of non-bag records
type TelemetryStats struct {
	TotalBins           int     `json:"total_bins"`
	ActiveBins          int     `json:"active_bins"`
	OverflowingBins     int     `json:"overflowing_bins"`
	LowBatteryBins      int     `json:"low_battery_bins"`
	AverageFillLevel    float64 `json:"average_fill_level"`
	AverageBatteryLevel float64 `json:"average_battery_level"`
}

// CreateBinRequest is the request body for POST /api/telemetry/bins
type CreateBinRequest struct {
	OwnerID   string   `json:"owner_id"`
	WasteType string   `json:"waste_type"`
	Location  string   `json:"location"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// CreateBagBatchRequest is the request body for POST /api/telemetry/bags
type CreateBagBatchRequest struct {
	OwnerID  string `json:"owner_id"`
	BagType  string `json:"bag_type"`
	Quantity int    `json:"quantity"`
	Location string `json:"location"`
}
