package models

import (
	"time"

	"github.com/google/uuid"
)

// Bin is one fixed-width interval of a session's timeline, derived from the
// event ledger. The interval is half-open: [StartMinute, EndMinute).
type Bin struct {
	Index           int     `json:"index"`
	StartMinute     int     `json:"start_minute"`
	EndMinute       int     `json:"end_minute"`
	ClickCount      int     `json:"click_count"`
	UniqueAttendees int     `json:"unique_attendees"`
	Percent         float64 `json:"percent"` // unique attendees in bin / distinct attendees in session * 100
}

// ThresholdStats holds the distribution statistics over bin click counts.
// Population mean and standard deviation, not sample.
type ThresholdStats struct {
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"std_dev"`
	Threshold float64 `json:"threshold"`
}

// AnnotatedNote is a note event annotated with minutes elapsed since activation.
type AnnotatedNote struct {
	AttendeeID     uuid.UUID `json:"attendee_id"`
	Text           string    `json:"text"`
	MinutesElapsed int       `json:"minutes_elapsed"`
	CreatedAt      time.Time `json:"created_at"`
}

// LiveView is the polling payload for the instructor dashboard.
type LiveView struct {
	SessionID       uuid.UUID      `json:"session_id"`
	State           SessionState   `json:"state"`
	TotalClicks     int            `json:"total_clicks"`
	UniqueAttendees int            `json:"unique_attendees"`
	Bins            []Bin          `json:"bins"`
	Stats           ThresholdStats `json:"stats"`
	PeakBins        []Bin          `json:"peak_bins"`
	GeneratedAt     time.Time      `json:"generated_at"`
}

// SummaryView extends the live view with post-session figures and notes.
// Provisional is true when the session has not reached the ended state yet.
type SummaryView struct {
	LiveView
	AvgClicksPerAttendee float64         `json:"avg_clicks_per_attendee"`
	MaxBinPercent        float64         `json:"max_bin_percent"`
	Notes                []AnnotatedNote `json:"notes"`
	Provisional          bool            `json:"provisional"`
}

// SessionReport is a stored post-session summary produced by the worker.
type SessionReport struct {
	ID          uuid.UUID   `json:"id"`
	SessionID   uuid.UUID   `json:"session_id"`
	Summary     SummaryView `json:"summary"`
	GeneratedAt time.Time   `json:"generated_at"`
	CreatedAt   time.Time   `json:"created_at"`
}
