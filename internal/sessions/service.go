// Package sessions is the session registry: the single source of truth for
// lifecycle state and for whether a session is accepting input.
package sessions

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pulse-classroom/backend/config"
	"github.com/pulse-classroom/backend/internal/models"
	"github.com/pulse-classroom/backend/pkg/apperrors"
)

// ErrCodeTaken is returned by the repository when a generated join code
// collides with a live session; the service retries with a fresh code.
var ErrCodeTaken = errors.New("session code taken")

// codeGenAttempts bounds retries when generated codes keep colliding.
const codeGenAttempts = 5

var codePattern = regexp.MustCompile(`^[0-9]{4}$`)

// SessionStore captures the persistence operations the service needs.
type SessionStore interface {
	Insert(ctx context.Context, s *models.Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	GetLiveByCode(ctx context.Context, code string) (*models.Session, error)
	List(ctx context.Context, creator string) ([]models.Session, error)
	Transition(ctx context.Context, id uuid.UUID, from, to models.SessionState, at time.Time) (*models.Session, error)
}

// Service orchestrates validation and lifecycle transitions for sessions.
type Service struct {
	store  SessionStore
	cfg    config.EngineConfig
	now    func() time.Time
	logger *zap.Logger
}

// NewService creates a session service. now may be nil for wall-clock time.
func NewService(store SessionStore, cfg config.EngineConfig, now func() time.Time, logger *zap.Logger) *Service {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, cfg: cfg, now: now, logger: logger}
}

// CreateParams are the inputs for creating a session.
type CreateParams struct {
	Course          string
	SessionDate     time.Time
	DurationMinutes int
	CreatorName     string
}

// Create validates input, generates a unique 4-digit join code, and stores
// the session in the not-started state.
func (s *Service) Create(ctx context.Context, params CreateParams) (*models.Session, error) {
	v := &apperrors.ValidationError{}
	if strings.TrimSpace(params.Course) == "" {
		v.Add("course", "required")
	}
	if strings.TrimSpace(params.CreatorName) == "" {
		v.Add("creator_name", "required")
	}
	if params.SessionDate.IsZero() {
		v.Add("session_date", "required")
	}
	if params.DurationMinutes < s.cfg.MinDurationMinutes || params.DurationMinutes > s.cfg.MaxDurationMinutes {
		v.Add("duration_minutes", fmt.Sprintf("must be between %d and %d", s.cfg.MinDurationMinutes, s.cfg.MaxDurationMinutes))
	}
	if v.HasErrors() {
		return nil, v
	}

	session := &models.Session{
		Course:          strings.TrimSpace(params.Course),
		SessionDate:     params.SessionDate,
		DurationMinutes: params.DurationMinutes,
		CreatorName:     strings.TrimSpace(params.CreatorName),
		State:           models.SessionNotStarted,
	}

	// The live-code unique index is the authority; on collision, retry with
	// a fresh code.
	for attempt := 0; attempt < codeGenAttempts; attempt++ {
		code, err := generateCode()
		if err != nil {
			return nil, fmt.Errorf("generate code: %w", err)
		}
		session.Code = code
		err = s.store.Insert(ctx, session)
		if errors.Is(err, ErrCodeTaken) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("insert session: %w", err)
		}
		s.logger.Info("session created",
			zap.String("session_id", session.ID.String()),
			zap.String("course", session.Course))
		return session, nil
	}
	return nil, fmt.Errorf("could not allocate a unique session code after %d attempts", codeGenAttempts)
}

// Activate transitions not-started -> active, stamping started_at exactly once.
func (s *Service) Activate(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	session, err := s.store.Transition(ctx, id, models.SessionNotStarted, models.SessionActive, s.now())
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, s.classifyTransitionFailure(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("session activated", zap.String("session_id", id.String()))
	return session, nil
}

// End transitions active -> ended, stamping ended_at exactly once. Ended is
// terminal and frees the join code for reuse.
func (s *Service) End(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	session, err := s.store.Transition(ctx, id, models.SessionActive, models.SessionEnded, s.now())
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, s.classifyTransitionFailure(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("session ended", zap.String("session_id", id.String()))
	return session, nil
}

// classifyTransitionFailure distinguishes "no such session" from "session
// exists but is in the wrong state" after a conditional update matched no row.
func (s *Service) classifyTransitionFailure(ctx context.Context, id uuid.UUID) error {
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return err
	}
	return apperrors.ErrInvalidState
}

// Get returns a session by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	return s.store.GetByID(ctx, id)
}

// ResolveByCode resolves a 4-digit join code against not-yet-ended sessions.
// Malformed codes never reach the store.
func (s *Service) ResolveByCode(ctx context.Context, code string) (*models.Session, error) {
	code = strings.TrimSpace(code)
	if !codePattern.MatchString(code) {
		return nil, apperrors.NewValidation("code", "must be exactly 4 digits")
	}
	return s.store.GetLiveByCode(ctx, code)
}

// IsActive is the cheap gating check polled by attendee clients.
func (s *Service) IsActive(ctx context.Context, id uuid.UUID) (bool, error) {
	session, err := s.store.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return session.IsActive(), nil
}

// List returns sessions newest first, optionally filtered by creator.
func (s *Service) List(ctx context.Context, creator string) ([]models.Session, error) {
	return s.store.List(ctx, creator)
}

// generateCode draws a uniformly random 4-digit decimal code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}
