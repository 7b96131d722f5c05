package models

import "time"

// CollectionStatus is the outcome recorded for one bin during a shift
type CollectionStatus string

const (
	CollectionStatusCollected    CollectionStatus = "Collected"
	CollectionStatusMissed       CollectionStatus = "Missed"
	CollectionStatusOverride     CollectionStatus = "Override Collection"
	CollectionStatusManualSensor CollectionStatus = "Manual Entry - Sensor Failed"
)

// Valid reports whether s is one of the known collection statuses
func (s CollectionStatus) Valid() bool {
	switch s {
	case CollectionStatusCollected, CollectionStatusMissed, CollectionStatusOverride, CollectionStatusManualSensor:
		return true
	}
	return false
}

// CollectedBinEvent records one bin being collected, missed, or manually entered
type CollectedBinEvent struct {
	BinID     string           `json:"bin_id"`
	Weight    float64          `json:"weight"` // kg
	Status    CollectionStatus `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
}
