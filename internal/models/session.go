package models

import "time"

// SessionWindow is the calendar-day-scoped start of a worker session
type SessionWindow struct {
	StartTime time.Time `json:"start_time"`
	Date      string    `json:"date"` // YYYY-MM-DD of StartTime
}

// StartTimeMillis returns StartTime as epoch milliseconds
func (w SessionWindow) StartTimeMillis() int64 {
	return w.StartTime.UnixMilli()
}

// IsZero reports whether the window has never been created
func (w SessionWindow) IsZero() bool {
	return w.Date == "" && w.StartTime.IsZero()
}

// SessionResponse is what we send to the client for GET /api/session
type SessionResponse struct {
	Date         string `json:"date"`
	StartTimeIso string `json:"start_time_iso"`
	StartTimeMs  int64  `json:"start_time_ms"`
	ElapsedTime  string `json:"elapsed_time"`
}

// ToSessionResponse converts a SessionWindow to SessionResponse
func (w SessionWindow) ToSessionResponse(elapsed string) SessionResponse {
	return SessionResponse{
		Date:         w.Date,
		StartTimeIso: w.StartTime.Format(time.RFC3339),
		StartTimeMs:  w.StartTimeMillis(),
		ElapsedTime:  elapsed,
	}
}
