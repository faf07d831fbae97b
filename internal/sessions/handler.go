package sessions

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pulse-classroom/backend/pkg/apperrors"
	"github.com/pulse-classroom/backend/pkg/queue"
	"github.com/pulse-classroom/backend/pkg/response"
)

// CreateRequest is the body for POST /sessions.
type CreateRequest struct {
	Course          string `json:"course" binding:"required"`
	SessionDate     string `json:"session_date" binding:"required"` // YYYY-MM-DD
	DurationMinutes int    `json:"duration_minutes" binding:"required"`
	CreatorName     string `json:"creator_name" binding:"required"`
}

// Handler handles session HTTP endpoints.
type Handler struct {
	svc                 *Service
	jobs                *queue.Queue
	pollIntervalSeconds int
	logger              *zap.Logger
}

// NewHandler creates a sessions handler. jobs may be nil when no worker runs.
func NewHandler(svc *Service, jobs *queue.Queue, pollIntervalSeconds int, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, jobs: jobs, pollIntervalSeconds: pollIntervalSeconds, logger: logger}
}

// Create handles POST /sessions.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	date, err := time.Parse("2006-01-02", req.SessionDate)
	if err != nil {
		response.BadRequest(c, "session_date must be YYYY-MM-DD")
		return
	}

	session, err := h.svc.Create(c.Request.Context(), CreateParams{
		Course:          req.Course,
		SessionDate:     date,
		DurationMinutes: req.DurationMinutes,
		CreatorName:     req.CreatorName,
	})
	if err != nil {
		if apperrors.IsValidation(err) {
			response.BadRequest(c, err.Error())
			return
		}
		h.logger.Error("create session failed", zap.Error(err))
		response.Internal(c, "failed to create session")
		return
	}
	response.Created(c, session)
}

// List handles GET /sessions with optional ?creator= filter.
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), c.Query("creator"))
	if err != nil {
		h.logger.Error("list sessions failed", zap.Error(err))
		response.Internal(c, "failed to list sessions")
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /sessions/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		return
	}
	session, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondSessionError(c, err)
		return
	}
	response.OK(c, session)
}

// Activate handles POST /sessions/:id/activate.
func (h *Handler) Activate(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		return
	}
	session, err := h.svc.Activate(c.Request.Context(), id)
	if err != nil {
		respondSessionError(c, err)
		return
	}
	response.OK(c, session)
}

// End handles POST /sessions/:id/end. Ending a session enqueues the
// post-session summary report job for the worker.
func (h *Handler) End(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		return
	}
	session, err := h.svc.End(c.Request.Context(), id)
	if err != nil {
		respondSessionError(c, err)
		return
	}
	if h.jobs != nil {
		if err := h.jobs.EnqueueSummaryReport(c.Request.Context(), queue.SummaryReportPayload{SessionID: id}); err != nil {
			// report generation falls back to on-demand computation
			h.logger.Warn("enqueue summary report failed", zap.Error(err), zap.String("session_id", id.String()))
		}
	}
	response.OK(c, session)
}

// Active handles GET /sessions/:id/active, the submission-gating poll for
// attendee clients. The poll interval tells clients how often to refresh.
func (h *Handler) Active(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		return
	}
	active, err := h.svc.IsActive(c.Request.Context(), id)
	if err != nil {
		respondSessionError(c, err)
		return
	}
	response.OK(c, gin.H{"active": active, "poll_interval_seconds": h.pollIntervalSeconds})
}

func parseSessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return uuid.Nil, false
	}
	return id, true
}

func respondSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		response.NotFound(c, "session not found")
	case errors.Is(err, apperrors.ErrInvalidState):
		response.Conflict(c, "operation not allowed in current session state")
	case apperrors.IsValidation(err):
		response.BadRequest(c, err.Error())
	default:
		response.Internal(c, "internal error")
	}
}
