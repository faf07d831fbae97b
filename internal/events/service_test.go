package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pulse-classroom/backend/internal/models"
	"github.com/pulse-classroom/backend/pkg/apperrors"
)

// ledgerStub mimics the repository contract: state gate inside the write,
// counter increment atomic with the append.
type ledgerStub struct {
	mu      sync.Mutex
	state   models.SessionState
	session uuid.UUID
	counts  map[uuid.UUID]int
	events  []models.Event
}

func newLedgerStub(session uuid.UUID, state models.SessionState) *ledgerStub {
	return &ledgerStub{state: state, session: session, counts: make(map[uuid.UUID]int)}
}

func (l *ledgerStub) gate(sessionID uuid.UUID) error {
	if sessionID != l.session {
		return apperrors.ErrNotFound
	}
	if l.state != models.SessionActive {
		return apperrors.ErrInvalidState
	}
	return nil
}

func (l *ledgerStub) RecordClick(_ context.Context, sessionID, attendeeID uuid.UUID) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.gate(sessionID); err != nil {
		return 0, err
	}
	l.counts[attendeeID]++
	l.events = append(l.events, models.Event{
		ID: uuid.New(), SessionID: sessionID, AttendeeID: attendeeID,
		Kind: models.EventClick, Seq: int64(len(l.events)), CreatedAt: time.Now(),
	})
	return l.counts[attendeeID], nil
}

func (l *ledgerStub) RecordNote(_ context.Context, sessionID, attendeeID uuid.UUID, text string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.gate(sessionID); err != nil {
		return err
	}
	l.events = append(l.events, models.Event{
		ID: uuid.New(), SessionID: sessionID, AttendeeID: attendeeID,
		Kind: models.EventNote, NoteText: text, Seq: int64(len(l.events)), CreatedAt: time.Now(),
	})
	return nil
}

func (l *ledgerStub) listKind(kind models.EventKind) []models.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.Event
	for _, ev := range l.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func (l *ledgerStub) ListClicks(_ context.Context, _ uuid.UUID) ([]models.Event, error) {
	return l.listKind(models.EventClick), nil
}

func (l *ledgerStub) ListNotes(_ context.Context, _ uuid.UUID) ([]models.Event, error) {
	return l.listKind(models.EventNote), nil
}

func (l *ledgerStub) CountDistinctAttendees(context.Context, uuid.UUID) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.counts), nil
}

func TestService_RecordClick(t *testing.T) {
	sessionID := uuid.New()

	t.Run("returns a monotonically increasing per-attendee count", func(t *testing.T) {
		ledger := newLedgerStub(sessionID, models.SessionActive)
		svc := NewService(ledger, nil)
		attendee := uuid.New()

		for want := 1; want <= 4; want++ {
			got, err := svc.RecordClick(context.Background(), sessionID, attendee)
			if err != nil {
				t.Fatalf("click %d: %v", want, err)
			}
			if got != want {
				t.Fatalf("click count = %d, want %d", got, want)
			}
		}

		other := uuid.New()
		if got, _ := svc.RecordClick(context.Background(), sessionID, other); got != 1 {
			t.Fatalf("other attendee count = %d, want 1 (counters are per attendee)", got)
		}
	})

	t.Run("fails outside the active state", func(t *testing.T) {
		for _, state := range []models.SessionState{models.SessionNotStarted, models.SessionEnded} {
			ledger := newLedgerStub(sessionID, state)
			svc := NewService(ledger, nil)
			if _, err := svc.RecordClick(context.Background(), sessionID, uuid.New()); !errors.Is(err, apperrors.ErrInvalidState) {
				t.Errorf("state %s: got %v, want ErrInvalidState", state, err)
			}
			if len(ledger.events) != 0 {
				t.Errorf("state %s: failed ingestion left %d events in the ledger", state, len(ledger.events))
			}
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		svc := NewService(newLedgerStub(sessionID, models.SessionActive), nil)
		if _, err := svc.RecordClick(context.Background(), uuid.New(), uuid.New()); !errors.Is(err, apperrors.ErrNotFound) {
			t.Fatalf("got %v, want ErrNotFound", err)
		}
	})

	t.Run("concurrent clicks lose no updates", func(t *testing.T) {
		ledger := newLedgerStub(sessionID, models.SessionActive)
		svc := NewService(ledger, nil)

		const attendees = 8
		const clicksEach = 25
		var wg sync.WaitGroup
		for i := 0; i < attendees; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				attendee := uuid.New()
				for j := 0; j < clicksEach; j++ {
					if _, err := svc.RecordClick(context.Background(), sessionID, attendee); err != nil {
						t.Errorf("click failed: %v", err)
						return
					}
				}
			}()
		}
		wg.Wait()

		clicks, _ := svc.ListClicks(context.Background(), sessionID)
		if len(clicks) != attendees*clicksEach {
			t.Fatalf("ledger has %d clicks, want %d", len(clicks), attendees*clicksEach)
		}
	})
}

func TestService_RecordNote(t *testing.T) {
	sessionID := uuid.New()

	t.Run("trims and stores note text", func(t *testing.T) {
		ledger := newLedgerStub(sessionID, models.SessionActive)
		svc := NewService(ledger, nil)

		if err := svc.RecordNote(context.Background(), sessionID, uuid.New(), "  lost after slide 3  "); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		notes, _ := svc.ListNotes(context.Background(), sessionID)
		if len(notes) != 1 || notes[0].NoteText != "lost after slide 3" {
			t.Fatalf("notes = %+v, want one trimmed note", notes)
		}
	})

	t.Run("empty-after-trim text is a validation failure, not a silent drop", func(t *testing.T) {
		ledger := newLedgerStub(sessionID, models.SessionActive)
		svc := NewService(ledger, nil)

		for _, text := range []string{"", "   ", "\t\n"} {
			if err := svc.RecordNote(context.Background(), sessionID, uuid.New(), text); !apperrors.IsValidation(err) {
				t.Errorf("text %q: got %v, want ValidationError", text, err)
			}
		}
		if len(ledger.events) != 0 {
			t.Fatal("empty notes must not reach the ledger")
		}
	})

	t.Run("same state gate as clicks", func(t *testing.T) {
		ledger := newLedgerStub(sessionID, models.SessionEnded)
		svc := NewService(ledger, nil)
		if err := svc.RecordNote(context.Background(), sessionID, uuid.New(), "too late"); !errors.Is(err, apperrors.ErrInvalidState) {
			t.Fatalf("got %v, want ErrInvalidState", err)
		}
	})
}
