package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Freeeeeet/coach_scheduler/internal/service"
)

type cancelRequest struct {
	Reason string `json:"reason"`
}

type rescheduleRequest struct {
	NewStart time.Time `json:"new_start" binding:"required"`
}

// GET /sessions
func (h *Handler) listSessions(c *gin.Context) {
	sessions, err := h.svc.Sessions.List(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// GET /sessions/:sessionId
func (h *Handler) getSession(c *gin.Context) {
	id, err := idParam(c, "sessionId")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	detail, err := h.svc.Sessions.Get(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// PATCH /sessions/:sessionId
func (h *Handler) patchSession(c *gin.Context) {
	id, err := idParam(c, "sessionId")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req service.PatchSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	session, err := h.svc.Sessions.Patch(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// POST /sessions/:sessionId/cancel
func (h *Handler) cancelSession(c *gin.Context) {
	id, err := idParam(c, "sessionId")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req cancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}
	}

	session, err := h.svc.Sessions.Cancel(c.Request.Context(), actorFrom(c), id, req.Reason)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// POST /sessions/:sessionId/reschedule
func (h *Handler) rescheduleSession(c *gin.Context) {
	id, err := idParam(c, "sessionId")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req rescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "new_start is required")
		return
	}

	session, err := h.svc.Sessions.Reschedule(c.Request.Context(), actorFrom(c), id, req.NewStart)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, session)
}
