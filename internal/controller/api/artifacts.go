package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Freeeeeet/coach_scheduler/internal/service"
)

// GET /sessions/:sessionId/action-items
func (h *Handler) listActionItems(c *gin.Context) {
	sessionID, err := idParam(c, "sessionId")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	items, err := h.svc.Artifacts.ListActionItems(c.Request.Context(), actorFrom(c), sessionID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"action_items": items})
}

// POST /sessions/:sessionId/action-items
func (h *Handler) createActionItem(c *gin.Context) {
	sessionID, err := idParam(c, "sessionId")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req service.CreateActionItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	item, err := h.svc.Artifacts.CreateActionItem(c.Request.Context(), actorFrom(c), sessionID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// PATCH /sessions/:sessionId/action-items/:itemId
func (h *Handler) updateActionItem(c *gin.Context) {
	sessionID, err := idParam(c, "sessionId")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	itemID, err := idParam(c, "itemId")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req service.UpdateActionItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	item, err := h.svc.Artifacts.UpdateActionItem(c.Request.Context(), actorFrom(c), sessionID, itemID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// DELETE /sessions/:sessionId/action-items/:itemId
func (h *Handler) deleteActionItem(c *gin.Context) {
	sessionID, err := idParam(c, "sessionId")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	itemID, err := idParam(c, "itemId")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if err := h.svc.Artifacts.DeleteActionItem(c.Request.Context(), actorFrom(c), sessionID, itemID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /sessions/:sessionId/review
func (h *Handler) createReview(c *gin.Context) {
	sessionID, err := idParam(c, "sessionId")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req service.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	review, err := h.svc.Artifacts.CreateReview(c.Request.Context(), actorFrom(c), sessionID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

// PATCH /sessions/:sessionId/review
func (h *Handler) updateReview(c *gin.Context) {
	sessionID, err := idParam(c, "sessionId")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req service.UpdateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	review, err := h.svc.Artifacts.UpdateReview(c.Request.Context(), actorFrom(c), sessionID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, review)
}
