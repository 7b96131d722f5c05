package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ropacal-telemetry/internal/engine"
	"ropacal-telemetry/pkg/utils"
)

func GetRoutes(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.JSON(w, http.StatusOK, e.Aggregator.Catalog().Routes())
	}
}

func GetGlobalSummary(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.JSON(w, http.StatusOK, e.CurrentSummary())
	}
}

// GetRouteSummary never 404s: unknown routes come back as "Invalid Route"
func GetRouteSummary(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.JSON(w, http.StatusOK, e.CurrentRouteSummary(chi.URLParam(r, "id")))
	}
}

func GetRouteCollections(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.JSON(w, http.StatusOK, e.RouteEvents(chi.URLParam(r, "id")))
	}
}
