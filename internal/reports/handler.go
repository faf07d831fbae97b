package reports

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pulse-classroom/backend/internal/models"
	"github.com/pulse-classroom/backend/pkg/apperrors"
	"github.com/pulse-classroom/backend/pkg/response"
)

// Handler handles reporting HTTP endpoints.
type Handler struct {
	svc    *Service
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a reports handler. repo may be nil when stored reports
// are disabled; GET /report then always computes on demand.
func NewHandler(svc *Service, repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, repo: repo, logger: logger}
}

// Live handles GET /sessions/:id/live, the instructor dashboard poll.
func (h *Handler) Live(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	view, err := h.svc.Live(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "compute live view")
		return
	}
	response.OK(c, view)
}

// Summary handles GET /sessions/:id/summary. The payload carries a
// provisional flag while the session has not ended.
func (h *Handler) Summary(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	summary, err := h.svc.Summary(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "compute summary")
		return
	}
	response.OK(c, summary)
}

// Report handles GET /sessions/:id/report: the stored post-session report,
// available once the session has ended. Falls back to on-demand computation
// when the worker has not finished (or is not running).
func (h *Handler) Report(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if h.repo != nil {
		report, err := h.repo.GetBySession(ctx, id)
		if err == nil {
			response.OK(c, report)
			return
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			h.logger.Error("load stored report failed", zap.Error(err))
			response.Internal(c, "failed to load report")
			return
		}
	}

	summary, err := h.svc.Summary(ctx, id)
	if err != nil {
		h.respondError(c, err, "compute report")
		return
	}
	if summary.Provisional {
		response.Conflict(c, "session has not ended yet")
		return
	}
	response.OK(c, models.SessionReport{SessionID: id, Summary: *summary, GeneratedAt: summary.GeneratedAt})
}

func (h *Handler) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) respondError(c *gin.Context, err error, op string) {
	if errors.Is(err, apperrors.ErrNotFound) {
		response.NotFound(c, "session not found")
		return
	}
	h.logger.Error(op+" failed", zap.Error(err))
	response.Internal(c, "failed to "+op)
}
