package telemetry

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"ropacal-telemetry/internal/broadcast"
	"ropacal-telemetry/internal/clock"
	"ropacal-telemetry/internal/models"
)

// DefaultUpdateInterval is used when StartUpdates is given a non-positive interval
const DefaultUpdateInterval = 5 * time.Second

// Store holds the authoritative telemetry record per bin id. Every
// mutation is followed by exactly one broadcast of the full snapshot.
type Store struct {
	// opMu serializes mutation+broadcast so snapshots are delivered in
	// mutation order
	opMu sync.Mutex

	mu      sync.RWMutex
	records map[string]models.BinTelemetryRecord

	generator *Generator
	bus       *broadcast.Bus
	clock     clock.Clock

	timerMu    sync.Mutex
	ticker     *clock.Ticker
	stop       chan struct{}
	generation uint64
}

// NewStore creates an empty Store publishing to bus
func NewStore(generator *Generator, bus *broadcast.Bus, c clock.Clock) *Store {
	return &Store{
		records:   make(map[string]models.BinTelemetryRecord),
		generator: generator,
		bus:       bus,
		clock:     c,
	}
}

// Add inserts a new bin under the lowest unused sequential id
func (s *Store) Add(ownerID, wasteType, location string) (models.BinTelemetryRecord, error) {
	return s.AddWithCoordinates(ownerID, wasteType, location, nil, nil)
}

// AddWithCoordinates is Add for bins placed by latitude/longitude
func (s *Store) AddWithCoordinates(ownerID, wasteType, location string, lat, lng *float64) (models.BinTelemetryRecord, error) {
	if ownerID == "" {
		return models.BinTelemetryRecord{}, ErrMissingOwnerID
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	binID := s.nextBinIDLocked()
	record, err := s.generator.Generate(binID, ownerID, wasteType, location)
	if err != nil {
		s.mu.Unlock()
		return models.BinTelemetryRecord{}, fmt.Errorf("failed to generate telemetry for %s: %w", binID, err)
	}
	record.Latitude = lat
	record.Longitude = lng
	s.records[binID] = record
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	log.Printf("🆕 [TELEMETRY] Bin %s added for owner %s (%s)", binID, ownerID, wasteType)
	s.bus.Publish(snapshot)
	return record.Clone(), nil
}

// nextBinIDLocked returns the lowest BIN-NNN id not already present
func (s *Store) nextBinIDLocked() string {
	for n := 1; ; n++ {
		id := fmt.Sprintf("BIN-%03d", n)
		if _, exists := s.records[id]; !exists {
			return id
		}
	}
}

// AddBagBatch inserts a synthetic bag-collection record. Bag records are
// never refreshed and carry no alerts.
func (s *Store) AddBagBatch(ownerID, bagType string, quantity int, location string) (models.BinTelemetryRecord, error) {
	if ownerID == "" {
		return models.BinTelemetryRecord{}, ErrMissingOwnerID
	}
	if quantity < 1 {
		return models.BinTelemetryRecord{}, fmt.Errorf("%w: got %d", ErrInvalidQuantity, quantity)
	}

	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}

	record := models.BinTelemetryRecord{
		BinID:           "BAG-" + id.String(),
		OwnerID:         ownerID,
		WasteType:       bagType,
		Location:        location,
		FillLevel:       0,
		BatteryLevel:    0,
		SignalStrength:  models.SignalNone,
		Status:          models.BinStatusActive,
		Alerts:          []models.Alert{},
		LastUpdated:     s.clock.Now(),
		IsBagCollection: true,
		BagType:         bagType,
		Quantity:        quantity,
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	s.records[record.BinID] = record
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	log.Printf("🛍️  [TELEMETRY] Bag batch %s added for owner %s (%d x %s)", record.BinID, ownerID, quantity, bagType)
	s.bus.Publish(snapshot)
	return record.Clone(), nil
}

// Remove deletes a bin. Unknown ids are a no-op and do not broadcast.
func (s *Store) Remove(binID string) bool {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	if _, ok := s.records[binID]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.records, binID)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	log.Printf("🗑️  [TELEMETRY] Bin %s removed", binID)
	s.bus.Publish(snapshot)
	return true
}

// RefreshAll regenerates every non-bag record and broadcasts once
func (s *Store) RefreshAll() {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	for id, prev := range s.records {
		if prev.IsBagCollection {
			continue
		}
		next, err := s.generator.Generate(id, prev.OwnerID, prev.WasteType, prev.Location)
		if err != nil {
			log.Printf("⚠️  [TELEMETRY] Skipping refresh of %s: %v", id, err)
			continue
		}
		next.Latitude = prev.Latitude
		next.Longitude = prev.Longitude
		if !next.LastUpdated.After(prev.LastUpdated) {
			next.LastUpdated = prev.LastUpdated.Add(time.Millisecond)
		}
		s.records[id] = next
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.bus.Publish(snapshot)
}

// Get returns a copy of one record
func (s *Store) Get(binID string) (models.BinTelemetryRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[binID]
	if !ok {
		return models.BinTelemetryRecord{}, false
	}
	return r.Clone(), true
}

// ListAll returns copies of every record, bins before bags
func (s *Store) ListAll() []models.BinTelemetryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// ListByOwner returns copies of the owner's records. Unknown owners
// yield an empty slice.
func (s *Store) ListByOwner(ownerID string) []models.BinTelemetryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.BinTelemetryRecord, 0)
	for _, r := range s.records {
		if r.OwnerID == ownerID {
			out = append(out, r.Clone())
		}
	}
	sortRecords(out)
	return out
}

// ListByOwnerOrAll is ListAll for an empty owner, ListByOwner otherwise
func (s *Store) ListByOwnerOrAll(ownerID string) []models.BinTelemetryRecord {
	if ownerID == "" {
		return s.ListAll()
	}
	return s.ListByOwner(ownerID)
}

// StatsFor summarizes non-bag records for ownerID, or every owner when
// ownerID is empty. Averages are 0 for an empty set.
func (s *Store) StatsFor(ownerID string) models.TelemetryStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats models.TelemetryStats
	fillSum, batterySum := 0, 0
	for _, r := range s.records {
		if r.IsBagCollection {
			continue
		}
		if ownerID != "" && r.OwnerID != ownerID {
			continue
		}
		stats.TotalBins++
		if r.Status == models.BinStatusActive {
			stats.ActiveBins++
		}
		if r.FillLevel > OverflowThreshold {
			stats.OverflowingBins++
		}
		if r.BatteryLevel < LowBatteryThreshold {
			stats.LowBatteryBins++
		}
		fillSum += r.FillLevel
		batterySum += r.BatteryLevel
	}

	if stats.TotalBins > 0 {
		stats.AverageFillLevel = float64(fillSum) / float64(stats.TotalBins)
		stats.AverageBatteryLevel = float64(batterySum) / float64(stats.TotalBins)
	}
	return stats
}

// Len returns the number of records, bags included
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Store) snapshotLocked() []models.BinTelemetryRecord {
	out := make([]models.BinTelemetryRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Clone())
	}
	sortRecords(out)
	return out
}

// sortRecords orders bins numerically by id, then bag records
func sortRecords(records []models.BinTelemetryRecord) {
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.IsBagCollection != b.IsBagCollection {
			return !a.IsBagCollection
		}
		if len(a.BinID) != len(b.BinID) {
			return len(a.BinID) < len(b.BinID)
		}
		return a.BinID < b.BinID
	})
}

// StartUpdates arms a repeating RefreshAll every interval. An already
// armed timer is cancelled first, so at most one timer is ever live.
func (s *Store) StartUpdates(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultUpdateInterval
	}

	s.timerMu.Lock()
	s.stopLocked()
	s.generation++
	gen := s.generation
	ticker := s.clock.NewTicker(interval)
	stop := make(chan struct{})
	s.ticker = ticker
	s.stop = stop
	s.timerMu.Unlock()

	log.Printf("🔄 [TELEMETRY] Periodic updates armed every %v", interval)
	go s.runUpdates(gen, ticker, stop)
}

// StopUpdates disarms the timer. No-op when already disarmed.
func (s *Store) StopUpdates() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.ticker == nil {
		return
	}
	s.stopLocked()
	s.generation++
	log.Println("⏹️  [TELEMETRY] Periodic updates stopped")
}

// IsUpdating reports whether the periodic timer is armed
func (s *Store) IsUpdating() bool {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	return s.ticker != nil
}

func (s *Store) stopLocked() {
	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.ticker = nil
	s.stop = nil
}

func (s *Store) currentGeneration(gen uint64) bool {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	return s.generation == gen
}

func (s *Store) runUpdates(gen uint64, ticker *clock.Ticker, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !s.currentGeneration(gen) {
				return
			}
			s.RefreshAll()
		}
	}
}
