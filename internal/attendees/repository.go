package attendees

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulse-classroom/backend/internal/models"
)

// Repository handles attendee persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an attendees repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert issues a fresh attendee identity for a session. Every join gets its
// own row; identity values are unique per session by construction.
func (r *Repository) Insert(ctx context.Context, sessionID uuid.UUID) (*models.Attendee, error) {
	const query = `INSERT INTO attendees (id, session_id) VALUES (gen_random_uuid(), $1)
		RETURNING id, session_id, click_count, joined_at`
	var a models.Attendee
	err := r.pool.QueryRow(ctx, query, sessionID).
		Scan(&a.ID, &a.SessionID, &a.ClickCount, &a.JoinedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CountBySession returns how many attendees have joined the session. This is
// the percentage denominator, independent of whether they ever clicked.
func (r *Repository) CountBySession(ctx context.Context, sessionID uuid.UUID) (int, error) {
	const query = `SELECT COUNT(*) FROM attendees WHERE session_id = $1`
	var n int
	err := r.pool.QueryRow(ctx, query, sessionID).Scan(&n)
	return n, err
}
