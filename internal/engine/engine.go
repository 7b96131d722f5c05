// Package engine wires the telemetry store, session lifecycle and
// collection log into one explicitly owned instance.
package engine

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"ropacal-telemetry/internal/broadcast"
	"ropacal-telemetry/internal/clock"
	"ropacal-telemetry/internal/collection"
	"ropacal-telemetry/internal/models"
	"ropacal-telemetry/internal/routes"
	"ropacal-telemetry/internal/session"
	"ropacal-telemetry/internal/telemetry"
)

const clearCollectionsCallback = "collection.clear"
const recordHistoryCallback = "session.history"

// HistoryRecorder receives a summary of each session replaced by the
// daily reset. database.HistoryStore implements it.
type HistoryRecorder interface {
	RecordSession(window models.SessionWindow, endedAt time.Time, summary models.GlobalSummary) error
}

type Options struct {
	Clock   clock.Clock
	Rand    *rand.Rand
	KV      session.KVStore
	Catalog *routes.Catalog
	History HistoryRecorder

	UpdateInterval    time.Duration
	ResetPollInterval time.Duration
}

type Engine struct {
	Bus         *broadcast.Bus
	Store       *telemetry.Store
	Sessions    *session.Manager
	Resets      *session.ResetCoordinator
	Collections *collection.Log
	Aggregator  *routes.Aggregator

	clock   clock.Clock
	history HistoryRecorder
	opts    Options

	mu      sync.Mutex
	started bool
	closed  bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New builds an engine. Nothing runs until Start.
func New(opts Options) (*Engine, error) {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.KV == nil {
		opts.KV = session.NewMemoryStore()
	}
	if opts.Catalog == nil {
		opts.Catalog = routes.DefaultCatalog()
	}
	if opts.UpdateInterval < 0 || opts.ResetPollInterval < 0 {
		return nil, fmt.Errorf("intervals must not be negative")
	}
	if opts.UpdateInterval == 0 {
		opts.UpdateInterval = telemetry.DefaultUpdateInterval
	}
	if opts.ResetPollInterval == 0 {
		opts.ResetPollInterval = session.DefaultPollInterval
	}

	bus := broadcast.NewBus()
	sessions := session.NewManager(opts.KV, opts.Clock)

	e := &Engine{
		Bus:         bus,
		Store:       telemetry.NewStore(telemetry.NewGenerator(opts.Clock, opts.Rand), bus, opts.Clock),
		Sessions:    sessions,
		Resets:      session.NewResetCoordinator(sessions, opts.Clock),
		Collections: collection.NewLog(opts.Clock),
		Aggregator:  routes.NewAggregator(opts.Catalog, sessions.ElapsedTime),
		clock:       opts.Clock,
		history:     opts.History,
		opts:        opts,
	}
	return e, nil
}

// Start initializes the session, registers the reset callbacks, arms
// periodic telemetry updates and launches reset polling.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return fmt.Errorf("engine is closed")
	}
	if e.started {
		return nil
	}

	window := e.Sessions.Initialize()

	if e.history != nil {
		e.Resets.RegisterCallback(recordHistoryCallback, e.recordPrevious)
	}
	e.Resets.RegisterCallback(clearCollectionsCallback, e.Collections.Clear)

	e.Store.StartUpdates(e.opts.UpdateInterval)

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.Resets.Run(runCtx, e.opts.ResetPollInterval)
	}()

	e.started = true
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Printf("🚀 [ENGINE] Started (session %s, %d bins, updates every %v)", window.Date, e.Store.Len(), e.opts.UpdateInterval)
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	return nil
}

// Close stops the timers and the reset loop. Safe to call more than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	cancel := e.cancel
	e.mu.Unlock()

	e.Store.StopUpdates()
	if cancel != nil {
		cancel()
	}
	e.wg.Wait()

	e.Resets.UnregisterCallback(clearCollectionsCallback)
	e.Resets.UnregisterCallback(recordHistoryCallback)
	log.Println("👋 [ENGINE] Closed")
	return nil
}

// Window returns the current session window, rolling it over first if
// the day has changed.
func (e *Engine) Window() models.SessionWindow {
	e.Resets.PollAndReset(nil)
	return e.Sessions.Window()
}

// Session returns the window plus its formatted elapsed time
func (e *Engine) Session() models.SessionResponse {
	w := e.Window()
	return w.ToSessionResponse(e.Sessions.ElapsedTime(w.StartTime))
}

// ResetSession forces a new window and runs the reset callbacks
func (e *Engine) ResetSession() models.SessionWindow {
	e.Sessions.End()
	e.Resets.PollAndReset(nil)
	return e.Sessions.Window()
}

// CurrentEvents returns the logged events that belong to the current
// window's date. Events with no timestamp are kept.
func (e *Engine) CurrentEvents() []models.CollectedBinEvent {
	w := e.Window()
	return eventsOnDate(e.Collections.Events(), w.Date, e.clock.Now().Location())
}

// CurrentSummary aggregates today's events across all routes
func (e *Engine) CurrentSummary() models.GlobalSummary {
	w := e.Window()
	events := eventsOnDate(e.Collections.Events(), w.Date, e.clock.Now().Location())
	return e.Aggregator.SummaryForAllRoutes(events, w.StartTime)
}

// CurrentRouteSummary aggregates today's events for one route
func (e *Engine) CurrentRouteSummary(routeID string) models.RouteSummary {
	w := e.Window()
	events := eventsOnDate(e.Collections.Events(), w.Date, e.clock.Now().Location())
	return e.Aggregator.SummaryForRoute(events, routeID, w.StartTime)
}

// RouteEvents returns today's events for one route
func (e *Engine) RouteEvents(routeID string) []models.CollectedBinEvent {
	return e.Aggregator.FilterByRoute(e.CurrentEvents(), routeID)
}

func (e *Engine) recordPrevious() {
	prev := e.Sessions.Previous()
	if prev.IsZero() {
		return
	}
	events := eventsOnDate(e.Collections.Events(), prev.Date, e.clock.Now().Location())
	summary := e.Aggregator.SummaryForAllRoutes(events, prev.StartTime)
	if err := e.history.RecordSession(prev, e.clock.Now(), summary); err != nil {
		log.Printf("⚠️  [ENGINE] Failed to record session %s: %v", prev.Date, err)
		return
	}
	log.Printf("📝 [ENGINE] Recorded session %s (%d bins, %.2f kg)", prev.Date, summary.TotalBinsCollected, summary.TotalWeight)
}

func eventsOnDate(events []models.CollectedBinEvent, date string, loc *time.Location) []models.CollectedBinEvent {
	out := make([]models.CollectedBinEvent, 0, len(events))
	for _, ev := range events {
		if ev.Timestamp.IsZero() || clock.DateKey(ev.Timestamp.In(loc)) == date {
			out = append(out, ev)
		}
	}
	return out
}
