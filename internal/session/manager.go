// Package session tracks the day-scoped collection session: when it
// started, how long it has been running, and when it must roll over.
package session

import (
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"ropacal-telemetry/internal/clock"
	"ropacal-telemetry/internal/models"
)

// Manager owns the current SessionWindow and mirrors it into a KVStore.
// Storage failures are logged and the manager keeps working from memory.
type Manager struct {
	mu     sync.Mutex
	kv     KVStore
	clock  clock.Clock
	window models.SessionWindow
	active bool

	// last window replaced by a reset or End
	previous models.SessionWindow
}

// NewManager creates a manager with no active session. A nil kv falls
// back to a MemoryStore.
func NewManager(kv KVStore, c clock.Clock) *Manager {
	if kv == nil {
		kv = NewMemoryStore()
	}
	if c == nil {
		c = clock.Real()
	}
	return &Manager{kv: kv, clock: c}
}

// Initialize resumes the persisted window when it belongs to today,
// otherwise starts and persists a fresh one at the current time.
func (m *Manager) Initialize() models.SessionWindow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initializeLocked()
}

func (m *Manager) initializeLocked() models.SessionWindow {
	now := m.clock.Now()
	today := clock.DateKey(now)

	if w, ok := m.loadLocked(now.Location()); ok && w.Date == today {
		m.window = w
		m.active = true
		log.Printf("✅ [SESSION] Resumed session for %s (started %s)", w.Date, w.StartTime.Format(time.RFC3339))
		return m.window
	}

	return m.startLocked(now)
}

// NeedsReset reports whether the persisted session date differs from
// today. A missing date counts as different.
func (m *Manager) NeedsReset() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	today := clock.DateKey(m.clock.Now())
	date, ok, err := m.kv.Get(KeySessionDate)
	if err != nil {
		log.Printf("⚠️  [SESSION] Failed to read %s, using in-memory window: %v", KeySessionDate, err)
		return !m.active || m.window.Date != today
	}
	return !ok || date != today
}

// ResetForNewDay unconditionally starts and persists a new window at
// the current time.
func (m *Manager) ResetForNewDay() models.SessionWindow {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active {
		m.previous = m.window
	}
	w := m.startLocked(m.clock.Now())
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Printf("🔄 [SESSION] Daily reset: %q -> %q", m.previous.Date, w.Date)
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	return w
}

// Window returns the in-memory window, initializing one if there is
// no active session. It does not check for staleness; callers that
// need a current window go through the ResetCoordinator first.
func (m *Manager) Window() models.SessionWindow {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return m.initializeLocked()
	}
	return m.window
}

// Active reports whether a session window is held in memory
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Previous returns the window most recently replaced by ResetForNewDay
// or End. Zero if none.
func (m *Manager) Previous() models.SessionWindow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.previous
}

// ElapsedTime formats the time since startTime as "<H>h <M>m". A start
// time on another calendar day, or in the future, yields "0h 0m".
func (m *Manager) ElapsedTime(startTime time.Time) string {
	return FormatElapsed(startTime, m.clock.Now())
}

// FormatElapsed is ElapsedTime against an explicit now.
func FormatElapsed(startTime, now time.Time) string {
	if startTime.IsZero() || startTime.After(now) || !clock.SameDay(startTime, now) {
		return "0h 0m"
	}
	d := now.Sub(startTime)
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// End drops the persisted window and returns to the no-session state.
func (m *Manager) End() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range []string{KeySessionDate, KeySessionStartTime} {
		if err := m.kv.Remove(key); err != nil {
			log.Printf("⚠️  [SESSION] Failed to remove %s: %v", key, err)
		}
	}
	if m.active {
		m.previous = m.window
	}
	m.window = models.SessionWindow{}
	m.active = false
	log.Println("🛑 [SESSION] Session ended")
}

func (m *Manager) startLocked(now time.Time) models.SessionWindow {
	m.window = models.SessionWindow{StartTime: now, Date: clock.DateKey(now)}
	m.active = true

	if err := m.kv.Set(KeySessionDate, m.window.Date); err != nil {
		log.Printf("⚠️  [SESSION] Failed to persist %s: %v", KeySessionDate, err)
	}
	if err := m.kv.Set(KeySessionStartTime, strconv.FormatInt(m.window.StartTimeMillis(), 10)); err != nil {
		log.Printf("⚠️  [SESSION] Failed to persist %s: %v", KeySessionStartTime, err)
	}

	log.Printf("✅ [SESSION] New session started for %s", m.window.Date)
	return m.window
}

func (m *Manager) loadLocked(loc *time.Location) (models.SessionWindow, bool) {
	date, ok, err := m.kv.Get(KeySessionDate)
	if err != nil {
		log.Printf("⚠️  [SESSION] Failed to read %s: %v", KeySessionDate, err)
		return models.SessionWindow{}, false
	}
	if !ok || date == "" {
		return models.SessionWindow{}, false
	}

	raw, ok, err := m.kv.Get(KeySessionStartTime)
	if err != nil {
		log.Printf("⚠️  [SESSION] Failed to read %s: %v", KeySessionStartTime, err)
		return models.SessionWindow{}, false
	}
	if !ok {
		return models.SessionWindow{}, false
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Printf("⚠️  [SESSION] Ignoring malformed %s %q: %v", KeySessionStartTime, raw, err)
		return models.SessionWindow{}, false
	}

	start := time.UnixMilli(ms).In(loc)
	if clock.DateKey(start) != date {
		log.Printf("⚠️  [SESSION] Ignoring inconsistent session: %s=%q but start falls on %s", KeySessionDate, date, clock.DateKey(start))
		return models.SessionWindow{}, false
	}
	return models.SessionWindow{StartTime: start, Date: date}, true
}
