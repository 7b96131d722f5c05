package session

import (
	"context"
	"log"
	"sync"
	"time"

	"ropacal-telemetry/internal/clock"
)

// DefaultPollInterval is how often Run checks for a day rollover
const DefaultPollInterval = time.Minute

type namedCallback struct {
	name string
	fn   func()
}

// ResetCoordinator detects calendar-day rollover and runs the
// registered reset callbacks exactly once per transition.
type ResetCoordinator struct {
	pollMu    sync.Mutex
	cbMu      sync.Mutex
	manager   *Manager
	clock     clock.Clock
	callbacks []namedCallback
}

func NewResetCoordinator(manager *Manager, c clock.Clock) *ResetCoordinator {
	if c == nil {
		c = clock.Real()
	}
	return &ResetCoordinator{manager: manager, clock: c}
}

// RegisterCallback adds fn under name. Registering an existing name
// replaces its function and keeps its position.
func (rc *ResetCoordinator) RegisterCallback(name string, fn func()) {
	rc.cbMu.Lock()
	defer rc.cbMu.Unlock()

	for i := range rc.callbacks {
		if rc.callbacks[i].name == name {
			rc.callbacks[i].fn = fn
			return
		}
	}
	rc.callbacks = append(rc.callbacks, namedCallback{name: name, fn: fn})
}

// UnregisterCallback removes the callback registered under name
func (rc *ResetCoordinator) UnregisterCallback(name string) {
	rc.cbMu.Lock()
	defer rc.cbMu.Unlock()

	for i := range rc.callbacks {
		if rc.callbacks[i].name == name {
			rc.callbacks = append(rc.callbacks[:i], rc.callbacks[i+1:]...)
			return
		}
	}
}

// Callbacks returns the registered names in invocation order
func (rc *ResetCoordinator) Callbacks() []string {
	rc.cbMu.Lock()
	defer rc.cbMu.Unlock()
	names := make([]string, len(rc.callbacks))
	for i, cb := range rc.callbacks {
		names[i] = cb.name
	}
	return names
}

// PollAndReset starts a new session window when the day has rolled
// over, then runs onReset and the registered callbacks in order.
// Returns false with no side effects when no reset is due.
func (rc *ResetCoordinator) PollAndReset(onReset func()) bool {
	rc.pollMu.Lock()
	defer rc.pollMu.Unlock()

	if !rc.manager.NeedsReset() {
		return false
	}

	rc.manager.ResetForNewDay()

	if onReset != nil {
		runCallback("onReset", onReset)
	}

	rc.cbMu.Lock()
	callbacks := make([]namedCallback, len(rc.callbacks))
	copy(callbacks, rc.callbacks)
	rc.cbMu.Unlock()

	for _, cb := range callbacks {
		runCallback(cb.name, cb.fn)
	}
	return true
}

// Run polls for rollover every interval until ctx is cancelled
func (rc *ResetCoordinator) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := rc.clock.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("🔄 [SESSION] Reset polling every %v", interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("⏹️  [SESSION] Reset polling stopped")
			return
		case <-ticker.C:
			rc.PollAndReset(nil)
		}
	}
}

func runCallback(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ [SESSION] Reset callback %q panicked: %v", name, r)
		}
	}()
	fn()
}
