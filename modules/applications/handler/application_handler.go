package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	httpPlatform "github.com/andreypavlenko/jobber/internal/platform/http"
	"github.com/andreypavlenko/jobber/internal/store"
	"github.com/andreypavlenko/jobber/modules/applications/model"
	"github.com/andreypavlenko/jobber/modules/applications/service"
)

// ApplicationHandler exposes the recruiter-facing view over Applications:
// list, detail, and a manual stage override escape hatch.
type ApplicationHandler struct {
	service *service.ApplicationService
}

func NewApplicationHandler(s *service.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{service: s}
}

func (h *ApplicationHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	applications := rg.Group("/applications", authMiddleware)
	{
		applications.GET("", h.list)
		applications.GET("/:id", h.getByID)
		applications.PATCH("/:id/stage", h.updateStage)
	}
}

// list godoc
// @Summary List applications
// @Tags applications
// @Produce json
// @Param stage query string false "filter by stage"
// @Param job_id query int false "filter by job"
// @Success 200 {object} http.PaginatedResponse
// @Router /applications [get]
func (h *ApplicationHandler) list(c *gin.Context) {
	pag, err := httpPlatform.ParsePaginationParams(c)
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	var jobID int64
	if raw := c.Query("job_id"); raw != "" {
		jobID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid job_id")
			return
		}
	}
	details, total, err := h.service.List(c.Request.Context(), c.Query("stage"), jobID, pag.Limit, pag.Offset)
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list applications")
		return
	}
	dtos := make([]*model.ApplicationDTO, 0, len(details))
	for _, d := range details {
		dtos = append(dtos, model.ToDTO(d.Application, d.Job, d.Candidate))
	}
	httpPlatform.RespondWithPagination(c, http.StatusOK, dtos, pag.Limit, pag.Offset, total)
}

// getByID godoc
// @Summary Get an application
// @Tags applications
// @Produce json
// @Param id path int true "Application ID"
// @Success 200 {object} model.ApplicationDTO
// @Router /applications/{id} [get]
func (h *ApplicationHandler) getByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id")
		return
	}
	d, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrApplicationNotFound) {
			httpPlatform.RespondWithError(c, http.StatusNotFound, "APPLICATION_NOT_FOUND", "application not found")
			return
		}
		httpPlatform.RespondWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to get application")
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, model.ToDTO(d.Application, d.Job, d.Candidate))
}

// updateStage godoc
// @Summary Manually override an application's stage
// @Tags applications
// @Accept json
// @Produce json
// @Param id path int true "Application ID"
// @Param request body model.UpdateStageRequest true "Stage"
// @Success 200 {object} model.ApplicationDTO
// @Router /applications/{id}/stage [patch]
func (h *ApplicationHandler) updateStage(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id")
		return
	}
	var req model.UpdateStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	d, err := h.service.UpdateStage(c.Request.Context(), id, req.Stage)
	if err != nil {
		if errors.Is(err, store.ErrApplicationNotFound) {
			httpPlatform.RespondWithError(c, http.StatusNotFound, "APPLICATION_NOT_FOUND", "application not found")
			return
		}
		httpPlatform.RespondWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to update stage")
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, model.ToDTO(d.Application, d.Job, d.Candidate))
}
