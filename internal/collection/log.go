// Package collection holds the day's collected-bin events.
package collection

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sync"

	"ropacal-telemetry/internal/clock"
	"ropacal-telemetry/internal/models"
)

var (
	ErrMissingBinID   = errors.New("bin id is required")
	ErrNegativeWeight = errors.New("weight must not be negative")
	ErrUnknownStatus  = errors.New("unknown collection status")
)

type entry struct {
	event models.CollectedBinEvent
	grams int64
}

// Log is an append-only list of collection events with a running
// weight total. The total is kept in whole grams so that it always
// equals the sum of the events it holds.
type Log struct {
	mu         sync.RWMutex
	clock      clock.Clock
	entries    []entry
	totalGrams int64
}

func NewLog(c clock.Clock) *Log {
	if c == nil {
		c = clock.Real()
	}
	return &Log{clock: c}
}

// Validate checks a single event without recording it
func Validate(e models.CollectedBinEvent) error {
	if e.BinID == "" {
		return ErrMissingBinID
	}
	if e.Weight < 0 || math.IsNaN(e.Weight) || math.IsInf(e.Weight, 0) {
		return fmt.Errorf("%w: %v", ErrNegativeWeight, e.Weight)
	}
	if !e.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, e.Status)
	}
	return nil
}

func toGrams(kg float64) int64 {
	return int64(math.Round(kg * 1000))
}

// normalize rounds the weight to the gram and returns it in grams
func normalize(e *models.CollectedBinEvent) int64 {
	g := toGrams(e.Weight)
	e.Weight = float64(g) / 1000
	return g
}

// Append records e and returns the stored event. A zero Timestamp is
// stamped with the current time. Weights are kept to the gram: the
// stored Weight is rounded to three decimals, so anything under half
// a gram is recorded as 0.
func (l *Log) Append(e models.CollectedBinEvent) (models.CollectedBinEvent, error) {
	if err := Validate(e); err != nil {
		return models.CollectedBinEvent{}, err
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = l.clock.Now()
	}
	g := normalize(&e)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry{event: e, grams: g})
	l.totalGrams += g

	log.Printf("📦 [COLLECTION] %s recorded as %q (%.2f kg)", e.BinID, e.Status, e.Weight)
	return e, nil
}

// Remove deletes the first event for binID and reports whether one
// was found.
func (l *Log) Remove(binID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, en := range l.entries {
		if en.event.BinID != binID {
			continue
		}
		l.entries = append(l.entries[:i], l.entries[i+1:]...)
		l.totalGrams -= en.grams
		log.Printf("🗑️  [COLLECTION] Removed event for %s", binID)
		return true
	}
	return false
}

// ReplaceAll swaps the whole log for events. Nothing changes if any
// event is invalid. Weights are rounded to the gram as in Append.
func (l *Log) ReplaceAll(events []models.CollectedBinEvent) error {
	now := l.clock.Now()
	next := make([]entry, 0, len(events))
	var total int64
	for i, e := range events {
		if err := Validate(e); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
		if e.Timestamp.IsZero() {
			e.Timestamp = now
		}
		g := normalize(&e)
		next = append(next, entry{event: e, grams: g})
		total += g
	}

	l.mu.Lock()
	l.entries = next
	l.totalGrams = total
	l.mu.Unlock()

	log.Printf("🔄 [COLLECTION] Log replaced with %d events", len(next))
	return nil
}

// Clear empties the log. Registered as the daily reset callback.
func (l *Log) Clear() {
	l.mu.Lock()
	n := len(l.entries)
	l.entries = nil
	l.totalGrams = 0
	l.mu.Unlock()

	log.Printf("🧹 [COLLECTION] Cleared %d events", n)
}

// SumWeight totals the weights of events in kg, to the gram
func SumWeight(events []models.CollectedBinEvent) float64 {
	var grams int64
	for _, e := range events {
		grams += toGrams(e.Weight)
	}
	return float64(grams) / 1000
}

// Events returns a copy of the log in insertion order
func (l *Log) Events() []models.CollectedBinEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.CollectedBinEvent, len(l.entries))
	for i, en := range l.entries {
		out[i] = en.event
	}
	return out
}

// TotalWeight returns the summed weight in kg
func (l *Log) TotalWeight() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return float64(l.totalGrams) / 1000
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
