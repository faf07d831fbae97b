package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulse-classroom/backend/internal/models"
	"github.com/pulse-classroom/backend/pkg/apperrors"
)

const sessionColumns = `id, code, course, session_date, duration_minutes, creator_name, state, started_at, ended_at, created_at`

// Repository handles session persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a sessions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores a new session in the not-started state. Returns
// ErrCodeTaken when the join code collides with a live session.
func (r *Repository) Insert(ctx context.Context, s *models.Session) error {
	const query = `INSERT INTO sessions (id, code, course, session_date, duration_minutes, creator_name, state)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query, s.Code, s.Course, s.SessionDate, s.DurationMinutes, s.CreatorName, s.State).
		Scan(&s.ID, &s.CreatedAt)
	if isUniqueViolation(err) {
		return ErrCodeTaken
	}
	return err
}

// GetByID returns a session by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	const query = `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// GetLiveByCode resolves a join code against sessions that have not ended.
// Ended sessions release their code, so at most one row can match.
func (r *Repository) GetLiveByCode(ctx context.Context, code string) (*models.Session, error) {
	const query = `SELECT ` + sessionColumns + ` FROM sessions WHERE code = $1 AND state <> 'ended'`
	return r.scanOne(r.pool.QueryRow(ctx, query, code))
}

// List returns sessions newest first, optionally filtered by creator name.
func (r *Repository) List(ctx context.Context, creator string) ([]models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions ORDER BY created_at DESC`
	args := []any{}
	if creator != "" {
		query = `SELECT ` + sessionColumns + ` FROM sessions WHERE creator_name = $1 ORDER BY created_at DESC`
		args = append(args, creator)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

// Transition moves a session from one lifecycle state to the next, stamping
// started_at or ended_at as appropriate. The state check is part of the
// UPDATE, so concurrent transitions cannot both succeed. Returns
// ErrNotFound when no row was in the expected state.
func (r *Repository) Transition(ctx context.Context, id uuid.UUID, from, to models.SessionState, at time.Time) (*models.Session, error) {
	var query string
	switch to {
	case models.SessionActive:
		query = `UPDATE sessions SET state = $3, started_at = $4 WHERE id = $1 AND state = $2 RETURNING ` + sessionColumns
	case models.SessionEnded:
		query = `UPDATE sessions SET state = $3, ended_at = $4 WHERE id = $1 AND state = $2 RETURNING ` + sessionColumns
	default:
		return nil, apperrors.ErrInvalidState
	}
	return r.scanOne(r.pool.QueryRow(ctx, query, id, from, to, at))
}

func (r *Repository) scanOne(row pgx.Row) (*models.Session, error) {
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func scanSession(row pgx.Row) (*models.Session, error) {
	var s models.Session
	err := row.Scan(&s.ID, &s.Code, &s.Course, &s.SessionDate, &s.DurationMinutes,
		&s.CreatorName, &s.State, &s.StartedAt, &s.EndedAt, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
