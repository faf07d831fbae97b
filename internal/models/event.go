package models

import (
	"time"

	"github.com/google/uuid"
)

// EventKind distinguishes confusion clicks from free-text notes.
type EventKind string

const (
	// EventClick is a single anonymous confusion signal.
	EventClick EventKind = "click"
	// EventNote is a click-adjacent short text note.
	EventNote EventKind = "note"
)

// Event is one immutable ledger entry. Ordering within a session is
// created_at ascending, ties broken by the insertion sequence.
type Event struct {
	ID         uuid.UUID `json:"id"`
	SessionID  uuid.UUID `json:"session_id"`
	AttendeeID uuid.UUID `json:"attendee_id"`
	Kind       EventKind `json:"kind"`
	NoteText   string    `json:"note_text,omitempty"` // non-empty only for kind=note
	Seq        int64     `json:"-"`                   // insertion order tiebreaker
	CreatedAt  time.Time `json:"created_at"`
}
