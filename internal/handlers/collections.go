package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ropacal-telemetry/internal/collection"
	"ropacal-telemetry/internal/engine"
	"ropacal-telemetry/internal/models"
	"ropacal-telemetry/pkg/utils"
)

type collectionsResponse struct {
	Events      []models.CollectedBinEvent `json:"events"`
	TotalWeight float64                    `json:"total_weight"`
	Count       int                        `json:"count"`
}

// currentCollections lists the current session's events, the same set
// the route summaries aggregate.
func currentCollections(e *engine.Engine) collectionsResponse {
	events := e.CurrentEvents()
	return collectionsResponse{
		Events:      events,
		TotalWeight: collection.SumWeight(events),
		Count:       len(events),
	}
}

func GetCollections(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.JSON(w, http.StatusOK, currentCollections(e))
	}
}

func CreateCollection(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var event models.CollectedBinEvent
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		// make sure a stale window is rolled over before today's first event
		e.Window()

		stored, err := e.Collections.Append(event)
		if err != nil {
			writeCollectionError(w, err)
			return
		}
		utils.JSON(w, http.StatusCreated, stored)
	}
}

// ReplaceCollections bulk-sets the log from an external source of truth
func ReplaceCollections(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var events []models.CollectedBinEvent
		if err := json.NewDecoder(r.Body).Decode(&events); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if err := e.Collections.ReplaceAll(events); err != nil {
			writeCollectionError(w, err)
			return
		}
		utils.JSON(w, http.StatusOK, currentCollections(e))
	}
}

func DeleteCollection(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !e.Collections.Remove(chi.URLParam(r, "binId")) {
			utils.Error(w, http.StatusNotFound, "no collection for bin")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeCollectionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, collection.ErrMissingBinID),
		errors.Is(err, collection.ErrNegativeWeight),
		errors.Is(err, collection.ErrUnknownStatus):
		utils.Error(w, http.StatusBadRequest, err.Error())
	default:
		utils.Error(w, http.StatusInternalServerError, "Failed to record collection")
	}
}
