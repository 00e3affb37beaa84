package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const linkTokenTTL = 15 * time.Minute

// POST /me/telegram-link - код для /start в боте
func (h *Handler) telegramLink(c *gin.Context) {
	actor := actorFrom(c)
	token, err := h.tokens.IssueLinkToken(actor.UserID, linkTokenTTL)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"command":    "/start " + token,
		"expires_at": time.Now().Add(linkTokenTTL).UTC(),
	})
}
