package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Freeeeeet/coach_scheduler/internal/model"
)

type availabilityRequest struct {
	Settings model.CoachSettings     `json:"settings"`
	Rules    []model.AvailabilityRule `json:"rules"`
}

// GET /coaches/:coachId/availability
func (h *Handler) getAvailability(c *gin.Context) {
	coachID, err := idParam(c, "coachId")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	av, err := h.svc.Availability.GetAvailability(c.Request.Context(), coachID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, av)
}

// PUT /coaches/:coachId/availability
func (h *Handler) setAvailability(c *gin.Context) {
	coachID, err := idParam(c, "coachId")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req availabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	av, err := h.svc.Availability.SetAvailability(c.Request.Context(), actorFrom(c), coachID, req.Settings, req.Rules)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, av)
}

// GET /coaches/:coachId/slots?from=&to=&duration=
func (h *Handler) listSlots(c *gin.Context) {
	coachID, err := idParam(c, "coachId")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	from, err := dateQuery(c, "from", today)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	to, err := dateQuery(c, "to", from.AddDate(0, 0, 6))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	duration, err := intQuery(c, "duration")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	slots, err := h.svc.Availability.ListSlots(c.Request.Context(), coachID, from, to, duration)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if slots == nil {
		slots = []model.Slot{}
	}
	c.JSON(http.StatusOK, gin.H{"slots": slots})
}

// GET /coaches/:coachId/week.png?date=
func (h *Handler) weekImage(c *gin.Context) {
	coachID, err := idParam(c, "coachId")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	day, err := dateQuery(c, "date", time.Now().UTC().Truncate(24*time.Hour))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	// полдень, чтобы дата не съехала в поясе коуча
	img, err := h.svc.Availability.WeekImage(c.Request.Context(), actorFrom(c), coachID, day.Add(12*time.Hour))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Data(http.StatusOK, "image/png", img)
}
