package database

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"ropacal-telemetry/internal/models"
)

// SessionHistory is a completed session, recorded when the daily reset
// replaces its window.
type SessionHistory struct {
	ID            int64   `db:"id" json:"id"`
	SessionDate   string  `db:"session_date" json:"session_date"`
	StartTime     int64   `db:"start_time" json:"start_time"`
	EndedAt       int64   `db:"ended_at" json:"ended_at"`
	BinsCollected int     `db:"bins_collected" json:"bins_collected"`
	TotalWeight   float64 `db:"total_weight" json:"total_weight"`
}

// InsertSessionHistory records a finished session
func InsertSessionHistory(db *sqlx.DB, h SessionHistory) (int64, error) {
	res, err := db.NamedExec(`
		INSERT INTO session_history (session_date, start_time, ended_at, bins_collected, total_weight)
		VALUES (:session_date, :start_time, :ended_at, :bins_collected, :total_weight)`, h)
	if err != nil {
		return 0, fmt.Errorf("failed to insert session history: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read session history id: %w", err)
	}
	return id, nil
}

// RecentSessionHistory returns up to limit sessions, newest first
func RecentSessionHistory(db *sqlx.DB, limit int) ([]SessionHistory, error) {
	if limit <= 0 {
		limit = 30
	}
	history := []SessionHistory{}
	err := db.Select(&history, `
		SELECT id, session_date, start_time, ended_at, bins_collected, total_weight
		FROM session_history
		ORDER BY ended_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list session history: %w", err)
	}
	return history, nil
}

// HistoryStore records sessions replaced by the daily reset
type HistoryStore struct {
	db *sqlx.DB
}

func NewHistoryStore(db *sqlx.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

func (h *HistoryStore) RecordSession(window models.SessionWindow, endedAt time.Time, summary models.GlobalSummary) error {
	_, err := InsertSessionHistory(h.db, SessionHistory{
		SessionDate:   window.Date,
		StartTime:     window.StartTimeMillis(),
		EndedAt:       endedAt.UnixMilli(),
		BinsCollected: summary.TotalBinsCollected,
		TotalWeight:   summary.TotalWeight,
	})
	return err
}
