package handlers

import (
	"net/http"
	"strconv"

	"github.com/jmoiron/sqlx"

	"ropacal-telemetry/internal/database"
	"ropacal-telemetry/internal/engine"
	"ropacal-telemetry/pkg/utils"
)

func GetSession(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.JSON(w, http.StatusOK, e.Session())
	}
}

// ResetSession starts a new session window now and clears the log
func ResetSession(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e.ResetSession()
		utils.JSON(w, http.StatusOK, e.Session())
	}
}

// GetSessionHistory lists completed sessions, newest first (?limit=, default 30)
func GetSessionHistory(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 30
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				utils.Error(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = n
		}

		history, err := database.RecentSessionHistory(db, limit)
		if err != nil {
			utils.Error(w, http.StatusInternalServerError, "Failed to fetch session history")
			return
		}
		utils.JSON(w, http.StatusOK, history)
	}
}
