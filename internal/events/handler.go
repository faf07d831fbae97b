package events

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pulse-classroom/backend/pkg/apperrors"
	"github.com/pulse-classroom/backend/pkg/response"
)

// ClickRequest is the body for POST /sessions/:id/clicks.
type ClickRequest struct {
	AttendeeID uuid.UUID `json:"attendee_id" binding:"required"`
}

// NoteRequest is the body for POST /sessions/:id/notes.
type NoteRequest struct {
	AttendeeID uuid.UUID `json:"attendee_id" binding:"required"`
	Text       string    `json:"text" binding:"required"`
}

// Handler handles event ingestion HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an events handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// RecordClick handles POST /sessions/:id/clicks. Returns the attendee's
// running click count for the client-side counter.
func (h *Handler) RecordClick(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	var req ClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	count, err := h.svc.RecordClick(c.Request.Context(), sessionID, req.AttendeeID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, gin.H{"click_count": count})
}

// RecordNote handles POST /sessions/:id/notes.
func (h *Handler) RecordNote(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	var req NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	if err := h.svc.RecordNote(c.Request.Context(), sessionID, req.AttendeeID, req.Text); err != nil {
		h.respondError(c, err)
		return
	}
	response.Created(c, gin.H{"recorded": true})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case apperrors.IsValidation(err):
		response.BadRequest(c, err.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		response.NotFound(c, "unknown session or attendee")
	case errors.Is(err, apperrors.ErrInvalidState):
		response.Conflict(c, "session not active")
	default:
		h.logger.Error("record event failed", zap.Error(err))
		response.Internal(c, "failed to record event")
	}
}
