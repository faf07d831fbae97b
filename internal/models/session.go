package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionState is the lifecycle state of a classroom session.
type SessionState string

const (
	// SessionNotStarted means the session exists but has not been activated yet.
	SessionNotStarted SessionState = "not_started"
	// SessionActive means the session is live and accepting clicks and notes.
	SessionActive SessionState = "active"
	// SessionEnded is terminal; the code is freed and no further events are accepted.
	SessionEnded SessionState = "ended"
)

// Session represents one timed classroom session.
type Session struct {
	ID              uuid.UUID    `json:"id"`
	Code            string       `json:"code"` // 4-digit join code, unique among not-ended sessions
	Course          string       `json:"course"`
	SessionDate     time.Time    `json:"session_date"`
	DurationMinutes int          `json:"duration_minutes"`
	CreatorName     string       `json:"creator_name"`
	State           SessionState `json:"state"`
	StartedAt       *time.Time   `json:"started_at,omitempty"` // set exactly once on activation
	EndedAt         *time.Time   `json:"ended_at,omitempty"`   // set exactly once on end
	CreatedAt       time.Time    `json:"created_at"`
}

// IsActive reports whether the session currently accepts events.
func (s *Session) IsActive() bool {
	return s != nil && s.State == SessionActive
}

// Joinable reports whether a join may still issue an attendee identity.
// Joining before activation is allowed; the event ledger gates submissions.
func (s *Session) Joinable() bool {
	return s != nil && s.State != SessionEnded
}
