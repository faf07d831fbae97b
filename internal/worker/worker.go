// Package worker finalizes ended sessions: it consumes summary report jobs
// and persists the computed report so the instructor's report page does not
// recompute on every visit.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pulse-classroom/backend/internal/models"
	"github.com/pulse-classroom/backend/internal/reports"
	"github.com/pulse-classroom/backend/pkg/apperrors"
	"github.com/pulse-classroom/backend/pkg/queue"
)

// ReportProcessor processes summary report jobs: compute the summary via the
// reporting facade, store it in session_reports.
type ReportProcessor struct {
	reportSvc  *reports.Service
	reportRepo *reports.Repository
	queue      *queue.Queue
	logger     *zap.Logger
}

// NewReportProcessor creates a summary report processor.
func NewReportProcessor(reportSvc *reports.Service, reportRepo *reports.Repository, q *queue.Queue, logger *zap.Logger) *ReportProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportProcessor{reportSvc: reportSvc, reportRepo: reportRepo, queue: q, logger: logger}
}

// Process executes one summary report job.
func (p *ReportProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeSummaryReport {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.SummaryReportPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	summary, err := p.reportSvc.Summary(ctx, payload.SessionID)
	if errors.Is(err, apperrors.ErrNotFound) {
		// session deleted; nothing to finalize, don't retry
		p.logger.Warn("session vanished before report", zap.String("session_id", payload.SessionID.String()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("compute summary: %w", err)
	}
	if summary.Provisional {
		// race: the end transition commits before the job, so this should
		// not happen; retry rather than store a provisional report
		return fmt.Errorf("session %s not ended yet", payload.SessionID)
	}

	report := &models.SessionReport{
		SessionID:   payload.SessionID,
		Summary:     *summary,
		GeneratedAt: summary.GeneratedAt,
	}
	if err := p.reportRepo.Upsert(ctx, report); err != nil {
		return fmt.Errorf("store report: %w", err)
	}

	p.logger.Info("session report stored",
		zap.String("session_id", payload.SessionID.String()),
		zap.Int("total_clicks", summary.TotalClicks),
		zap.Int("peak_bins", len(summary.PeakBins)))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *ReportProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("report worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
