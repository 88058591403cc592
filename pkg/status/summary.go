// Package status records job run summaries in Redis so that the last outcome
// can be inspected between invocations. Only final summaries are stored;
// fetch state is never persisted.
package status

import (
	"time"
)

// Redis keys for run summaries.
const (
	RedisKeyLast      = "airmap:status:last"
	RedisKeyHistory   = "airmap:status:history"
	RedisKeyRunsTotal = "airmap:status:runs_total"
)

// DefaultHistoryLength is how many summaries the history list keeps.
const DefaultHistoryLength = 50

// Run states.
const (
	StateSuccess = "success"
	StateFailed  = "failed"
)

// Summary describes one finished job run.
type Summary struct {
	State          string    `json:"state"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	TotalPages     int       `json:"total_pages"`
	PagesCompleted int       `json:"pages_completed"`
	PagesFailed    int       `json:"pages_failed"`
	Items          int       `json:"items"`
	PointsAdded    int       `json:"points_added"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
	Location       string    `json:"location,omitempty"`
	Error          string    `json:"error,omitempty"`
}

// Succeeded reports whether the run ended in success.
func (s *Summary) Succeeded() bool {
	return s.State == StateSuccess
}

// Degraded reports whether a successful run lost pages along the way.
func (s *Summary) Degraded() bool {
	return s.Succeeded() && s.PagesFailed > 0
}

// Age returns how long ago the run finished.
func (s *Summary) Age() time.Duration {
	return time.Since(s.FinishedAt)
}
