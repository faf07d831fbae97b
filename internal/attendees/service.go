// Package attendees is the identity issuer: it turns a valid join code into
// an opaque, session-scoped attendee identity. Identities carry no account
// or personal data; one join, one identity.
package attendees

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pulse-classroom/backend/internal/models"
	"github.com/pulse-classroom/backend/pkg/apperrors"
)

// SessionResolver resolves join codes against the session registry.
type SessionResolver interface {
	ResolveByCode(ctx context.Context, code string) (*models.Session, error)
}

// AttendeeStore captures the persistence operations the issuer needs.
type AttendeeStore interface {
	Insert(ctx context.Context, sessionID uuid.UUID) (*models.Attendee, error)
}

// Service issues attendee identities.
type Service struct {
	sessions SessionResolver
	store    AttendeeStore
	logger   *zap.Logger
}

// NewService creates an attendee service.
func NewService(sessions SessionResolver, store AttendeeStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{sessions: sessions, store: store, logger: logger}
}

// JoinResult is what a successful join returns to the attendee client.
type JoinResult struct {
	Session  *models.Session  `json:"session"`
	Attendee *models.Attendee `json:"attendee"`
}

// Join resolves the code and issues an identity. Joining a not-started
// session is permitted; the event ledger gates submissions until activation.
// Ended sessions are never joinable and never issue an identity.
func (s *Service) Join(ctx context.Context, code string) (*JoinResult, error) {
	session, err := s.sessions.ResolveByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	// codes of ended sessions do not resolve, but guard against the race
	// where the session ends between resolution and the insert
	if !session.Joinable() {
		return nil, apperrors.ErrSessionNotJoinable
	}

	attendee, err := s.store.Insert(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("insert attendee: %w", err)
	}
	s.logger.Info("attendee joined",
		zap.String("session_id", session.ID.String()),
		zap.String("attendee_id", attendee.ID.String()))
	return &JoinResult{Session: session, Attendee: attendee}, nil
}
