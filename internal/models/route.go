package models

// Route is a named, statically configured ordered set of bin ids
type Route struct {
	ID     string   `json:"id" yaml:"id"`
	Name   string   `json:"name" yaml:"name"`
	BinIDs []string `json:"bin_ids" yaml:"bin_ids"`
}

// InvalidRouteName is reported for summaries of unconfigured routes
const InvalidRouteName = "Invalid Route"

// RouteSummary is derived per route from the collection log
type RouteSummary struct {
	RouteName            string  `json:"route_name"`
	RouteID              string  `json:"route_id"`
	BinsCollected        int     `json:"bins_collected"`
	TotalBins            int     `json:"total_bins"`
	CompletionPercentage int     `json:"completion_percentage"`
	TotalWeight          float64 `json:"total_weight"`
	MissedBins           int     `json:"missed_bins"`
	OverrideCollections  int     `json:"override_collections"`
	ManualEntries        int     `json:"manual_entries"`
	ElapsedTime          string  `json:"elapsed_time"`
}

// GlobalSummary aggregates the whole collection log plus every route
type GlobalSummary struct {
	ElapsedTime              string         `json:"elapsed_time"`
	TotalBinsCollected       int            `json:"total_bins_collected"`
	TotalWeight              float64        `json:"total_weight"`
	TotalMissedBins          int            `json:"total_missed_bins"`
	TotalOverrideCollections int            `json:"total_override_collections"`
	TotalManualEntries       int            `json:"total_manual_entries"`
	RouteSummaries           []RouteSummary `json:"route_summaries"`
}
