package attendees

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pulse-classroom/backend/pkg/apperrors"
	"github.com/pulse-classroom/backend/pkg/response"
)

// JoinRequest is the body for POST /join.
type JoinRequest struct {
	Code string `json:"code" binding:"required"`
}

// Handler handles attendee HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an attendees handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Join handles POST /join: a 4-digit code in, a session-scoped identity out.
func (h *Handler) Join(c *gin.Context) {
	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	result, err := h.svc.Join(c.Request.Context(), req.Code)
	if err != nil {
		switch {
		case apperrors.IsValidation(err):
			response.BadRequest(c, "code must be exactly 4 digits")
		case errors.Is(err, apperrors.ErrNotFound):
			response.NotFound(c, "invalid or expired code")
		case errors.Is(err, apperrors.ErrSessionNotJoinable):
			response.Conflict(c, "session has already ended")
		default:
			h.logger.Error("join failed", zap.Error(err))
			response.Internal(c, "failed to join session")
		}
		return
	}
	response.Created(c, result)
}
