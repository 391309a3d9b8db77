package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	httpPlatform "github.com/andreypavlenko/jobber/internal/platform/http"
	"github.com/andreypavlenko/jobber/modules/events/model"
	"github.com/andreypavlenko/jobber/modules/events/service"
)

// EventHandler exposes the read-only audit trail for an application.
type EventHandler struct {
	service *service.EventService
}

func NewEventHandler(s *service.EventService) *EventHandler {
	return &EventHandler{service: s}
}

func (h *EventHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	rg.GET("/applications/:id/events", authMiddleware, h.listByApplication)
}

// listByApplication godoc
// @Summary List audit-log events for an application
// @Tags events
// @Produce json
// @Param id path int true "Application ID"
// @Success 200 {array} model.EventDTO
// @Router /applications/{id}/events [get]
func (h *EventHandler) listByApplication(c *gin.Context) {
	appID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id")
		return
	}
	events, err := h.service.ListByApplication(c.Request.Context(), appID)
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list events")
		return
	}
	dtos := make([]*model.EventDTO, 0, len(events))
	for _, e := range events {
		dtos = append(dtos, model.ToDTO(e))
	}
	httpPlatform.RespondWithData(c, http.StatusOK, dtos)
}
