// Package reports assembles aggregator and analyzer output into the views
// the instructor polls: the live dashboard and the post-session summary.
// Both views run through the same engine code paths, so live-refresh and
// terminal-summary numbers can never drift apart.
package reports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pulse-classroom/backend/config"
	"github.com/pulse-classroom/backend/internal/engine"
	"github.com/pulse-classroom/backend/internal/events"
	"github.com/pulse-classroom/backend/internal/models"
)

// SessionGetter fetches sessions from the registry.
type SessionGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Session, error)
}

// LedgerReader provides consistent point-in-time ledger snapshots.
type LedgerReader interface {
	ReadSnapshot(ctx context.Context, sessionID uuid.UUID) (*events.Snapshot, error)
}

// Service computes live and summary views on demand. Pull-based: every call
// recomputes from a fresh snapshot (or serves the short-lived cache).
type Service struct {
	sessions SessionGetter
	ledger   LedgerReader
	cache    *LiveCache
	cfg      config.EngineConfig
	now      func() time.Time
	logger   *zap.Logger
}

// NewService creates a reports service. cache may be nil to disable caching;
// now may be nil for wall-clock time.
func NewService(sessions SessionGetter, ledger LedgerReader, cache *LiveCache, cfg config.EngineConfig, now func() time.Time, logger *zap.Logger) *Service {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{sessions: sessions, ledger: ledger, cache: cache, cfg: cfg, now: now, logger: logger}
}

// Live returns the dashboard view. Results may be cached for up to the
// configured TTL; polling consumers tolerate that staleness by contract.
func (s *Service) Live(ctx context.Context, sessionID uuid.UUID) (*models.LiveView, error) {
	if view, ok := s.cache.Get(ctx, sessionID); ok {
		return view, nil
	}

	view, _, err := s.compute(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, sessionID, view)
	return view, nil
}

// Summary returns the full post-session view. For a session that has not
// ended yet the result is marked provisional; callers must treat it as such.
func (s *Service) Summary(ctx context.Context, sessionID uuid.UUID) (*models.SummaryView, error) {
	view, snap, err := s.compute(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	summary := &models.SummaryView{
		LiveView:    *view,
		Provisional: session.State != models.SessionEnded,
	}
	if view.UniqueAttendees > 0 {
		summary.AvgClicksPerAttendee = float64(view.TotalClicks) / float64(view.UniqueAttendees)
	}
	for _, b := range view.Bins {
		if b.Percent > summary.MaxBinPercent {
			summary.MaxBinPercent = b.Percent
		}
	}
	summary.Notes = []models.AnnotatedNote{}
	if session.StartedAt != nil {
		summary.Notes = engine.AnnotateNotes(*session.StartedAt, snap.Notes)
	}
	return summary, nil
}

// compute runs the engine over one ledger snapshot.
func (s *Service) compute(ctx context.Context, sessionID uuid.UUID) (*models.LiveView, *events.Snapshot, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	snap, err := s.ledger.ReadSnapshot(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	// before activation there is no start timestamp and no events can exist;
	// serve the empty bin grid so dashboards render consistently
	var bins []models.Bin
	if session.StartedAt != nil {
		bins = engine.ComputeBins(*session.StartedAt, session.DurationMinutes, s.cfg.BinWidthMinutes, snap.Clicks, snap.DistinctAttendees)
	} else {
		bins = engine.ComputeBins(s.now(), session.DurationMinutes, s.cfg.BinWidthMinutes, nil, snap.DistinctAttendees)
	}
	stats := engine.ComputeThreshold(bins, s.cfg.ThresholdMultiplier)
	peaks := engine.FlagPeaks(bins, stats.Threshold)

	return &models.LiveView{
		SessionID:       session.ID,
		State:           session.State,
		TotalClicks:     len(snap.Clicks),
		UniqueAttendees: snap.DistinctAttendees,
		Bins:            bins,
		Stats:           stats,
		PeakBins:        peaks,
		GeneratedAt:     s.now(),
	}, snap, nil
}
