package events

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulse-classroom/backend/internal/models"
	"github.com/pulse-classroom/backend/pkg/apperrors"
)

const eventColumns = `id, seq, session_id, attendee_id, kind, note_text, created_at`

// Repository is the append-only event ledger. Click appends and the
// per-attendee counter increment commit atomically in one transaction, and
// the session-state gate is checked inside that same transaction.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an events repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// RecordClick appends a click event and increments the attendee's counter,
// returning the new cumulative count. Fails with ErrInvalidState unless the
// session is active at commit time, and with ErrNotFound when the session or
// the (session, attendee) pair is unknown.
func (r *Repository) RecordClick(ctx context.Context, sessionID, attendeeID uuid.UUID) (int, error) {
	var count int
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := gateActive(ctx, tx, sessionID); err != nil {
			return err
		}
		// the row update serializes concurrent increments for one attendee
		err := tx.QueryRow(ctx,
			`UPDATE attendees SET click_count = click_count + 1
			 WHERE id = $1 AND session_id = $2 RETURNING click_count`,
			attendeeID, sessionID).Scan(&count)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO events (id, session_id, attendee_id, kind) VALUES (gen_random_uuid(), $1, $2, $3)`,
			sessionID, attendeeID, models.EventClick)
		return err
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// RecordNote appends a note event under the same session-state gate as clicks.
func (r *Repository) RecordNote(ctx context.Context, sessionID, attendeeID uuid.UUID, text string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := gateActive(ctx, tx, sessionID); err != nil {
			return err
		}
		var exists bool
		err := tx.QueryRow(ctx,
			`SELECT TRUE FROM attendees WHERE id = $1 AND session_id = $2`,
			attendeeID, sessionID).Scan(&exists)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO events (id, session_id, attendee_id, kind, note_text) VALUES (gen_random_uuid(), $1, $2, $3, $4)`,
			sessionID, attendeeID, models.EventNote, text)
		return err
	})
}

// gateActive enforces "events only while active" inside the write transaction.
func gateActive(ctx context.Context, tx pgx.Tx, sessionID uuid.UUID) error {
	var state models.SessionState
	err := tx.QueryRow(ctx, `SELECT state FROM sessions WHERE id = $1`, sessionID).Scan(&state)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrNotFound
	}
	if err != nil {
		return err
	}
	if state != models.SessionActive {
		return apperrors.ErrInvalidState
	}
	return nil
}

// ListClicks returns the session's click events in ledger order.
func (r *Repository) ListClicks(ctx context.Context, sessionID uuid.UUID) ([]models.Event, error) {
	return r.listByKind(ctx, sessionID, models.EventClick)
}

// ListNotes returns the session's note events in ledger order.
func (r *Repository) ListNotes(ctx context.Context, sessionID uuid.UUID) ([]models.Event, error) {
	return r.listByKind(ctx, sessionID, models.EventNote)
}

func (r *Repository) listByKind(ctx context.Context, sessionID uuid.UUID, kind models.EventKind) ([]models.Event, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+eventColumns+` FROM events WHERE session_id = $1 AND kind = $2 ORDER BY created_at ASC, seq ASC`,
		sessionID, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEvents(rows)
}

// CountDistinctAttendees returns the percentage denominator: everyone who
// joined the session, whether or not they ever clicked.
func (r *Repository) CountDistinctAttendees(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM attendees WHERE session_id = $1`, sessionID).Scan(&n)
	return n, err
}

// Snapshot is a point-in-time view of a session's ledger.
type Snapshot struct {
	Clicks            []models.Event
	Notes             []models.Event
	DistinctAttendees int
}

// ReadSnapshot reads clicks, notes, and the attendee denominator in one
// REPEATABLE READ read-only transaction, so aggregation never observes a
// partially applied event. Writers are not blocked beyond normal MVCC.
func (r *Repository) ReadSnapshot(ctx context.Context, sessionID uuid.UUID) (*Snapshot, error) {
	var snap Snapshot
	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		for _, part := range []struct {
			kind models.EventKind
			dst  *[]models.Event
		}{
			{models.EventClick, &snap.Clicks},
			{models.EventNote, &snap.Notes},
		} {
			rows, err := tx.Query(ctx,
				`SELECT `+eventColumns+` FROM events WHERE session_id = $1 AND kind = $2 ORDER BY created_at ASC, seq ASC`,
				sessionID, part.kind)
			if err != nil {
				return err
			}
			list, err := collectEvents(rows)
			rows.Close()
			if err != nil {
				return err
			}
			*part.dst = list
		}
		return tx.QueryRow(ctx, `SELECT COUNT(*) FROM attendees WHERE session_id = $1`, sessionID).
			Scan(&snap.DistinctAttendees)
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func collectEvents(rows pgx.Rows) ([]models.Event, error) {
	var list []models.Event
	for rows.Next() {
		var ev models.Event
		if err := rows.Scan(&ev.ID, &ev.Seq, &ev.SessionID, &ev.AttendeeID, &ev.Kind, &ev.NoteText, &ev.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, ev)
	}
	return list, rows.Err()
}
