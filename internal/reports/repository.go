package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulse-classroom/backend/internal/models"
	"github.com/pulse-classroom/backend/pkg/apperrors"
)

// Repository stores finalized post-session reports.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a reports repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert stores the report for a session, replacing any earlier one. The
// worker may retry a job, so the write is idempotent per session.
func (r *Repository) Upsert(ctx context.Context, report *models.SessionReport) error {
	payload, err := json.Marshal(report.Summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	const query = `INSERT INTO session_reports (id, session_id, summary, generated_at)
		VALUES (gen_random_uuid(), $1, $2, $3)
		ON CONFLICT (session_id) DO UPDATE SET summary = EXCLUDED.summary, generated_at = EXCLUDED.generated_at
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query, report.SessionID, payload, report.GeneratedAt).
		Scan(&report.ID, &report.CreatedAt)
}

// GetBySession returns the stored report for a session.
func (r *Repository) GetBySession(ctx context.Context, sessionID uuid.UUID) (*models.SessionReport, error) {
	const query = `SELECT id, session_id, summary, generated_at, created_at FROM session_reports WHERE session_id = $1`
	var (
		report  models.SessionReport
		payload []byte
	)
	err := r.pool.QueryRow(ctx, query, sessionID).
		Scan(&report.ID, &report.SessionID, &payload, &report.GeneratedAt, &report.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &report.Summary); err != nil {
		return nil, fmt.Errorf("unmarshal summary: %w", err)
	}
	return &report, nil
}
