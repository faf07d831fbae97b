package models

import (
	"time"

	"github.com/google/uuid"
)

// Attendee is an anonymous participant identity scoped to one session.
// The identifier is opaque; it carries no account or personal data.
type Attendee struct {
	ID         uuid.UUID `json:"id"`
	SessionID  uuid.UUID `json:"session_id"`
	ClickCount int       `json:"click_count"` // cumulative clicks within the session
	JoinedAt   time.Time `json:"joined_at"`
}
