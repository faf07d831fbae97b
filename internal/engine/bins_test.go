package engine

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pulse-classroom/backend/internal/models"
)

func clickAt(attendee uuid.UUID, start time.Time, elapsed time.Duration) models.Event {
	return models.Event{
		ID:         uuid.New(),
		AttendeeID: attendee,
		Kind:       models.EventClick,
		CreatedAt:  start.Add(elapsed),
	}
}

func TestComputeBins_CoversDurationWithoutGaps(t *testing.T) {
	start := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		duration int
		width    int
		want     int
	}{
		{"sixty one-minute bins", 60, 1, 60},
		{"five-minute bins", 60, 5, 12},
		{"width not dividing duration", 50, 7, 8},
		{"minimum duration", 15, 1, 15},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bins := ComputeBins(start, tc.duration, tc.width, nil, 0)
			if len(bins) != tc.want {
				t.Fatalf("got %d bins, want %d", len(bins), tc.want)
			}
			prevEnd := 0
			for i, b := range bins {
				if b.Index != i {
					t.Fatalf("bin %d has index %d", i, b.Index)
				}
				if b.StartMinute != prevEnd {
					t.Fatalf("bin %d starts at %d, want %d (gap or overlap)", i, b.StartMinute, prevEnd)
				}
				if b.EndMinute <= b.StartMinute {
					t.Fatalf("bin %d has empty interval [%d,%d)", i, b.StartMinute, b.EndMinute)
				}
				prevEnd = b.EndMinute
			}
			if prevEnd != tc.duration {
				t.Fatalf("bins cover [0,%d), want [0,%d)", prevEnd, tc.duration)
			}
		})
	}
}

func TestComputeBins_NoClickLostOrDoubleCounted(t *testing.T) {
	start := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	a := uuid.New()

	var clicks []models.Event
	for _, m := range []int{0, 0, 3, 14, 14, 14, 29} {
		clicks = append(clicks, clickAt(a, start, time.Duration(m)*time.Minute))
	}
	// race with end-session: recorded 2 minutes past the nominal end
	clicks = append(clicks, clickAt(a, start, 32*time.Minute))

	bins := ComputeBins(start, 30, 1, clicks, 1)
	total := 0
	for _, b := range bins {
		total += b.ClickCount
	}
	if total != len(clicks) {
		t.Fatalf("sum of bin counts = %d, want %d", total, len(clicks))
	}
	if bins[29].ClickCount != 2 {
		t.Fatalf("final bin count = %d, want 2 (late click attributed to last bin)", bins[29].ClickCount)
	}
}

func TestComputeBins_PercentUsesSessionDenominator(t *testing.T) {
	start := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	a, b := uuid.New(), uuid.New()
	clicks := []models.Event{
		clickAt(a, start, 5*time.Minute),
		clickAt(b, start, 5*time.Minute),
	}

	// four attendees joined, only two clicked
	bins := ComputeBins(start, 20, 1, clicks, 4)
	if bins[5].UniqueAttendees != 2 {
		t.Fatalf("unique attendees = %d, want 2", bins[5].UniqueAttendees)
	}
	if bins[5].Percent != 50 {
		t.Fatalf("percent = %v, want 50 (2 of 4 joined attendees)", bins[5].Percent)
	}

	empty := ComputeBins(start, 20, 1, clicks, 0)
	if empty[5].Percent != 0 {
		t.Fatalf("percent with no attendees = %v, want 0", empty[5].Percent)
	}
}

func TestComputeBins_Idempotent(t *testing.T) {
	start := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	a := uuid.New()
	clicks := []models.Event{
		clickAt(a, start, time.Minute),
		clickAt(a, start, 7*time.Minute),
	}

	first := ComputeBins(start, 45, 1, clicks, 3)
	second := ComputeBins(start, 45, 1, clicks, 3)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("repeated ComputeBins over an unchanged ledger differ")
	}
}

func TestElapsedMinutes(t *testing.T) {
	start := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		offset time.Duration
		want   int
	}{
		{0, 0},
		{59 * time.Second, 0},
		{60 * time.Second, 1},
		{5*time.Minute + 59*time.Second, 5},
		{-30 * time.Second, -1},
	}
	for _, tc := range cases {
		if got := ElapsedMinutes(start, start.Add(tc.offset)); got != tc.want {
			t.Errorf("ElapsedMinutes(+%v) = %d, want %d", tc.offset, got, tc.want)
		}
	}
}

func TestAnnotateNotes_SortedByElapsedMinute(t *testing.T) {
	start := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	a := uuid.New()
	notes := []models.Event{
		{AttendeeID: a, Kind: models.EventNote, NoteText: "lost at recursion", CreatedAt: start.Add(12 * time.Minute)},
		{AttendeeID: a, Kind: models.EventNote, NoteText: "what is a base case", CreatedAt: start.Add(3 * time.Minute)},
		{AttendeeID: a, Kind: models.EventNote, NoteText: "slide 4 too fast", CreatedAt: start.Add(3*time.Minute + 30*time.Second)},
	}

	got := AnnotateNotes(start, notes)
	if len(got) != 3 {
		t.Fatalf("got %d notes, want 3", len(got))
	}
	wantMinutes := []int{3, 3, 12}
	wantText := []string{"what is a base case", "slide 4 too fast", "lost at recursion"}
	for i := range got {
		if got[i].MinutesElapsed != wantMinutes[i] {
			t.Errorf("note %d at minute %d, want %d", i, got[i].MinutesElapsed, wantMinutes[i])
		}
		if got[i].Text != wantText[i] {
			t.Errorf("note %d text %q, want %q", i, got[i].Text, wantText[i])
		}
	}
}
