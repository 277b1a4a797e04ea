package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ortaieb/a-hunt-game/internal/api/dto"
	"github.com/ortaieb/a-hunt-game/internal/api/middleware"
	"github.com/ortaieb/a-hunt-game/internal/core/service"
	"github.com/ortaieb/a-hunt-game/internal/observability"
	"github.com/sirupsen/logrus"
)

const defaultUpcomingWindow = time.Hour

// ScheduleHandler serves the in-memory challenge schedule.
type ScheduleHandler struct {
	registry *service.ChallengeRegistry
	now      func() time.Time
	logger   *logrus.Logger
}

func NewScheduleHandler(registry *service.ChallengeRegistry, logger *logrus.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		registry: registry,
		now:      time.Now,
		logger:   observability.OrDefault(logger),
	}
}

// ListSchedule handles GET /schedule
func (h *ScheduleHandler) ListSchedule(c *gin.Context) {
	items := h.registry.ListAll()
	c.JSON(http.StatusOK, dto.ScheduleResponse{
		Items: toScheduleEntries(items),
		Size:  len(items),
	})
}

// Upcoming handles GET /schedule/upcoming?within=1h
func (h *ScheduleHandler) Upcoming(c *gin.Context) {
	within := defaultUpcomingWindow
	if raw := c.Query("within"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			middleware.RespondBadRequest(c, "within must be a positive duration such as 30m or 2h")
			return
		}
		within = d
	}

	items := h.registry.StartingWithin(h.now().UTC(), within)
	c.JSON(http.StatusOK, dto.ScheduleResponse{
		Items: toScheduleEntries(items),
		Size:  len(items),
	})
}

// Flush handles POST /admin/schedule/flush
func (h *ScheduleHandler) Flush(c *gin.Context) {
	if err := h.registry.FlushAll(c.Request.Context()); err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.FlushResponse{
		Status: "reloaded",
		Size:   h.registry.Size(),
	})
}
