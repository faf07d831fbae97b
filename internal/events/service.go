// Package events is the append-only ledger of confusion signals. The
// repository owns atomicity (one transaction per event, counter increment
// included); the service owns input validation and logging.
package events

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pulse-classroom/backend/internal/models"
	"github.com/pulse-classroom/backend/pkg/apperrors"
)

// LedgerStore captures the persistence operations the service needs.
type LedgerStore interface {
	RecordClick(ctx context.Context, sessionID, attendeeID uuid.UUID) (int, error)
	RecordNote(ctx context.Context, sessionID, attendeeID uuid.UUID, text string) error
	ListClicks(ctx context.Context, sessionID uuid.UUID) ([]models.Event, error)
	ListNotes(ctx context.Context, sessionID uuid.UUID) ([]models.Event, error)
	CountDistinctAttendees(ctx context.Context, sessionID uuid.UUID) (int, error)
}

// maxNoteLength bounds stored note text; longer notes are rejected, not truncated.
const maxNoteLength = 500

// Service validates and records ledger events.
type Service struct {
	store  LedgerStore
	logger *zap.Logger
}

// NewService creates an events service.
func NewService(store LedgerStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// RecordClick appends one click and returns the attendee's cumulative count
// within the session. The count is monotonically increasing per attendee.
func (s *Service) RecordClick(ctx context.Context, sessionID, attendeeID uuid.UUID) (int, error) {
	count, err := s.store.RecordClick(ctx, sessionID, attendeeID)
	if err != nil {
		return 0, err
	}
	s.logger.Debug("click recorded",
		zap.String("session_id", sessionID.String()),
		zap.String("attendee_id", attendeeID.String()),
		zap.Int("click_count", count))
	return count, nil
}

// RecordNote appends one note. Text that is empty after trimming is a
// validation failure, never a silent drop.
func (s *Service) RecordNote(ctx context.Context, sessionID, attendeeID uuid.UUID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return apperrors.NewValidation("text", "must not be empty")
	}
	if len(text) > maxNoteLength {
		return apperrors.NewValidation("text", "too long")
	}
	return s.store.RecordNote(ctx, sessionID, attendeeID, text)
}

// ListClicks returns click events ordered by creation time, ties in
// insertion order.
func (s *Service) ListClicks(ctx context.Context, sessionID uuid.UUID) ([]models.Event, error) {
	return s.store.ListClicks(ctx, sessionID)
}

// ListNotes returns note events in the same ordering as clicks.
func (s *Service) ListNotes(ctx context.Context, sessionID uuid.UUID) ([]models.Event, error) {
	return s.store.ListNotes(ctx, sessionID)
}

// CountDistinctAttendees returns the session-wide percentage denominator.
func (s *Service) CountDistinctAttendees(ctx context.Context, sessionID uuid.UUID) (int, error) {
	return s.store.CountDistinctAttendees(ctx, sessionID)
}
