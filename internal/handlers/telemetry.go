package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ropacal-telemetry/internal/engine"
	"ropacal-telemetry/internal/models"
	"ropacal-telemetry/internal/services"
	"ropacal-telemetry/internal/telemetry"
	"ropacal-telemetry/pkg/utils"
)

// GetTelemetry returns every record, or one owner's with ?owner=.
// ?format=msgpack switches the encoding.
func GetTelemetry(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var records []models.BinTelemetryRecord
		if owner := r.URL.Query().Get("owner"); owner != "" {
			records = e.Store.ListByOwner(owner)
		} else {
			records = e.Store.ListAll()
		}
		utils.Negotiate(w, r, http.StatusOK, records)
	}
}

func GetTelemetryBin(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record, ok := e.Store.Get(chi.URLParam(r, "id"))
		if !ok {
			utils.Error(w, http.StatusNotFound, "bin not found")
			return
		}
		utils.Negotiate(w, r, http.StatusOK, record)
	}
}

func GetTelemetryStats(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.JSON(w, http.StatusOK, e.Store.StatsFor(r.URL.Query().Get("owner")))
	}
}

// Geocoder resolves a free-text location to coordinates
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*services.Address, error)
}

// CreateTelemetryBin registers a bin. When coordinates are missing and a
// geocoder is available, the location is geocoded; a failed lookup
// only means the bin has no coordinates.
func CreateTelemetryBin(e *engine.Engine, geocoder Geocoder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.CreateBinRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if geocoder != nil && req.OwnerID != "" && req.Location != "" && (req.Latitude == nil || req.Longitude == nil) {
			addr, err := geocoder.Geocode(r.Context(), req.Location)
			if err != nil {
				log.Printf("⚠️  Geocoding %q failed: %v", req.Location, err)
			} else {
				lat, lng := addr.Coordinates.Lat, addr.Coordinates.Lng
				req.Latitude, req.Longitude = &lat, &lng
			}
		}

		record, err := e.Store.AddWithCoordinates(req.OwnerID, req.WasteType, req.Location, req.Latitude, req.Longitude)
		if err != nil {
			writeTelemetryError(w, err)
			return
		}
		utils.JSON(w, http.StatusCreated, record)
	}
}

func CreateBagBatch(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.CreateBagBatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		record, err := e.Store.AddBagBatch(req.OwnerID, req.BagType, req.Quantity, req.Location)
		if err != nil {
			writeTelemetryError(w, err)
			return
		}
		utils.JSON(w, http.StatusCreated, record)
	}
}

func DeleteTelemetryBin(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !e.Store.Remove(chi.URLParam(r, "id")) {
			utils.Error(w, http.StatusNotFound, "bin not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeTelemetryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, telemetry.ErrMissingOwnerID),
		errors.Is(err, telemetry.ErrMissingBinID),
		errors.Is(err, telemetry.ErrInvalidQuantity):
		utils.Error(w, http.StatusBadRequest, err.Error())
	default:
		utils.Error(w, http.StatusInternalServerError, "Failed to update telemetry")
	}
}
