// Package engine is the pure confusion-signal aggregation core. It has no
// storage or transport dependencies: callers feed it a session's start time,
// duration, and a snapshot of ledger events, and it returns bins and
// threshold statistics. Live refresh and post-session summaries share the
// exact same code paths here.
package engine

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pulse-classroom/backend/internal/models"
)

// ComputeBins partitions [0, durationMinutes) into fixed-width intervals and
// assigns each click event to one. The result is gap-free: every bin index in
// range appears exactly once, empty bins included. distinctAttendees is the
// session-wide denominator for the percentage column (everyone who joined,
// whether or not they clicked).
func ComputeBins(startedAt time.Time, durationMinutes, binWidthMinutes int, clicks []models.Event, distinctAttendees int) []models.Bin {
	if durationMinutes <= 0 {
		return []models.Bin{}
	}
	if binWidthMinutes <= 0 {
		binWidthMinutes = 1
	}

	numBins := (durationMinutes + binWidthMinutes - 1) / binWidthMinutes
	bins := make([]models.Bin, numBins)
	perBin := make([]map[uuid.UUID]struct{}, numBins)
	for i := range bins {
		start := i * binWidthMinutes
		end := start + binWidthMinutes
		if end > durationMinutes {
			end = durationMinutes
		}
		bins[i] = models.Bin{Index: i, StartMinute: start, EndMinute: end}
	}

	for _, ev := range clicks {
		elapsed := ElapsedMinutes(startedAt, ev.CreatedAt)
		// Late arrivals (race with end-session) land in the final bin rather
		// than being dropped or indexed out of range.
		if elapsed < 0 {
			elapsed = 0
		}
		if elapsed > durationMinutes-1 {
			elapsed = durationMinutes - 1
		}
		idx := elapsed / binWidthMinutes
		bins[idx].ClickCount++
		if perBin[idx] == nil {
			perBin[idx] = make(map[uuid.UUID]struct{})
		}
		perBin[idx][ev.AttendeeID] = struct{}{}
	}

	for i := range bins {
		bins[i].UniqueAttendees = len(perBin[i])
		if distinctAttendees > 0 {
			bins[i].Percent = float64(bins[i].UniqueAttendees) / float64(distinctAttendees) * 100
		}
	}
	return bins
}

// ElapsedMinutes returns whole minutes between the session start and ts,
// floored. Negative when ts precedes the start.
func ElapsedMinutes(startedAt, ts time.Time) int {
	ms := ts.Sub(startedAt).Milliseconds()
	if ms < 0 {
		// integer division truncates toward zero; floor instead
		return int((ms - 59999) / 60000)
	}
	return int(ms / 60000)
}

// AnnotateNotes converts note events into summary annotations ordered by
// minutes elapsed since activation (ascending, stable for ties).
func AnnotateNotes(startedAt time.Time, notes []models.Event) []models.AnnotatedNote {
	out := make([]models.AnnotatedNote, 0, len(notes))
	for _, ev := range notes {
		elapsed := ElapsedMinutes(startedAt, ev.CreatedAt)
		if elapsed < 0 {
			elapsed = 0
		}
		out = append(out, models.AnnotatedNote{
			AttendeeID:     ev.AttendeeID,
			Text:           ev.NoteText,
			MinutesElapsed: elapsed,
			CreatedAt:      ev.CreatedAt,
		})
	}
	// input is ledger-ordered by created_at, so elapsed is already ascending;
	// sort anyway to keep the contract independent of caller ordering
	sort.SliceStable(out, func(i, j int) bool { return out[i].MinutesElapsed < out[j].MinutesElapsed })
	return out
}
