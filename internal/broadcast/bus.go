// Package broadcast fans telemetry snapshots out to registered
// subscribers without letting one faulty subscriber affect the rest.
package broadcast

import (
	"fmt"
	"log"
	"sync"

	"ropacal-telemetry/internal/models"
)

// Subscriber receives the full telemetry snapshot after every store
// mutation. Implementations must tolerate an empty snapshot and must
// not mutate the telemetry store from inside Notify.
type Subscriber interface {
	Notify(snapshot []models.BinTelemetryRecord) error
}

// SubscriberFunc adapts a plain function to Subscriber
type SubscriberFunc func(snapshot []models.BinTelemetryRecord) error

// Notify calls f(snapshot)
func (f SubscriberFunc) Notify(snapshot []models.BinTelemetryRecord) error {
	return f(snapshot)
}

// Subscription is the handle returned by Subscribe
type Subscription struct {
	id   uint64
	name string
	bus  *Bus
	once sync.Once
}

// Unsubscribe removes the subscriber. Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.bus.remove(s.id)
	})
}

type entry struct {
	id         uint64
	name       string
	subscriber Subscriber
}

// Bus is an ordered registry of subscribers
type Bus struct {
	mu      sync.RWMutex
	entries []entry
	nextID  uint64
}

// NewBus creates an empty Bus
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers sub under a display name used in fault logs.
// Delivery order follows registration order.
func (b *Bus) Subscribe(name string, sub Subscriber) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.entries = append(b.entries, entry{id: b.nextID, name: name, subscriber: sub})
	log.Printf("✅ [BROADCAST] Subscriber registered: %s (total: %d)", name, len(b.entries))

	return &Subscription{id: b.nextID, name: name, bus: b}
}

// Unsubscribe removes the subscription. Removing twice is a no-op.
func (b *Bus) Unsubscribe(sub *Subscription) {
	sub.Unsubscribe()
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, e := range b.entries {
		if e.id == id {
			b.entries = append(b.entries[:i:i], b.entries[i+1:]...)
			log.Printf("🔴 [BROADCAST] Subscriber removed: %s (remaining: %d)", e.name, len(b.entries))
			return
		}
	}
}

// Len returns the number of registered subscribers
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Publish delivers snapshot to every subscriber synchronously, in
// registration order. Each subscriber gets its own copy. Errors and
// panics are logged and never stop delivery to later subscribers.
// Returns the number of subscribers that failed.
func (b *Bus) Publish(snapshot []models.BinTelemetryRecord) int {
	b.mu.RLock()
	targets := make([]entry, len(b.entries))
	copy(targets, b.entries)
	b.mu.RUnlock()

	failed := 0
	for _, e := range targets {
		if err := deliver(e, models.CloneRecords(snapshot)); err != nil {
			failed++
			log.Printf("❌ [BROADCAST] Subscriber %s failed: %v", e.name, err)
		}
	}
	return failed
}

func deliver(e entry, snapshot []models.BinTelemetryRecord) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return e.subscriber.Notify(snapshot)
}
