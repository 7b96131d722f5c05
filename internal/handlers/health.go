package handlers

import (
	"net/http"

	"ropacal-telemetry/internal/engine"
	"ropacal-telemetry/pkg/utils"
)

type healthResponse struct {
	Status      string `json:"status"`
	Bins        int    `json:"bins"`
	Subscribers int    `json:"subscribers"`
	Updating    bool   `json:"updating"`
	SessionDate string `json:"session_date"`
}

func Health(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.JSON(w, http.StatusOK, healthResponse{
			Status:      "ok",
			Bins:        e.Store.Len(),
			Subscribers: e.Bus.Len(),
			Updating:    e.Store.IsUpdating(),
			SessionDate: e.Window().Date,
		})
	}
}
