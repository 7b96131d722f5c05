package routes

import (
	"math"
	"time"

	"ropacal-telemetry/internal/models"
)

// ElapsedFunc formats the time elapsed since a session start
type ElapsedFunc func(startTime time.Time) string

// Aggregator derives route and global summaries. It holds no state of
// its own beyond the catalog.
type Aggregator struct {
	catalog *Catalog
	elapsed ElapsedFunc
}

func NewAggregator(catalog *Catalog, elapsed ElapsedFunc) *Aggregator {
	if catalog == nil {
		catalog = NewCatalog(nil)
	}
	if elapsed == nil {
		elapsed = func(time.Time) string { return "0h 0m" }
	}
	return &Aggregator{catalog: catalog, elapsed: elapsed}
}

func (a *Aggregator) Catalog() *Catalog { return a.catalog }

// FilterByRoute returns the events whose bin belongs to routeID. An
// unknown route yields an empty slice.
func (a *Aggregator) FilterByRoute(events []models.CollectedBinEvent, routeID string) []models.CollectedBinEvent {
	out := []models.CollectedBinEvent{}
	route, ok := a.catalog.Route(routeID)
	if !ok {
		return out
	}

	members := make(map[string]struct{}, len(route.BinIDs))
	for _, id := range route.BinIDs {
		members[id] = struct{}{}
	}
	for _, e := range events {
		if _, ok := members[e.BinID]; ok {
			out = append(out, e)
		}
	}
	return out
}

// SummaryForRoute summarizes routeID's events. Unknown routes report
// InvalidRouteName with zero counters.
func (a *Aggregator) SummaryForRoute(events []models.CollectedBinEvent, routeID string, startTime time.Time) models.RouteSummary {
	route, ok := a.catalog.Route(routeID)
	if !ok {
		return models.RouteSummary{
			RouteName:   models.InvalidRouteName,
			RouteID:     routeID,
			ElapsedTime: a.elapsed(startTime),
		}
	}

	routeEvents := a.FilterByRoute(events, routeID)
	t := tally(routeEvents)

	summary := models.RouteSummary{
		RouteName:           route.Name,
		RouteID:             route.ID,
		BinsCollected:       len(routeEvents),
		TotalBins:           len(route.BinIDs),
		TotalWeight:         t.weight(),
		MissedBins:          t.missed,
		OverrideCollections: t.override,
		ManualEntries:       t.manual,
		ElapsedTime:         a.elapsed(startTime),
	}
	if summary.TotalBins > 0 {
		summary.CompletionPercentage = int(math.Round(float64(summary.BinsCollected) / float64(summary.TotalBins) * 100))
	}
	return summary
}

// SummaryForAllRoutes builds one summary per configured route, in
// configuration order. Global counters cover the whole log, so events
// for bins outside every route count globally but in no route.
func (a *Aggregator) SummaryForAllRoutes(events []models.CollectedBinEvent, startTime time.Time) models.GlobalSummary {
	t := tally(events)

	summaries := make([]models.RouteSummary, 0, a.catalog.Len())
	for _, r := range a.catalog.routes {
		summaries = append(summaries, a.SummaryForRoute(events, r.ID, startTime))
	}

	return models.GlobalSummary{
		ElapsedTime:              a.elapsed(startTime),
		TotalBinsCollected:       len(events),
		TotalWeight:              t.weight(),
		TotalMissedBins:          t.missed,
		TotalOverrideCollections: t.override,
		TotalManualEntries:       t.manual,
		RouteSummaries:           summaries,
	}
}

type counters struct {
	grams    int64
	missed   int
	override int
	manual   int
}

func (c counters) weight() float64 { return float64(c.grams) / 1000 }

func tally(events []models.CollectedBinEvent) counters {
	var c counters
	for _, e := range events {
		c.grams += int64(math.Round(e.Weight * 1000))
		switch e.Status {
		case models.CollectionStatusMissed:
			c.missed++
		case models.CollectionStatusOverride:
			c.override++
		case models.CollectionStatusManualSensor:
			c.manual++
		}
	}
	return c
}
