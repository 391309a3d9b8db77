package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	httpPlatform "github.com/andreypavlenko/jobber/internal/platform/http"
	"github.com/andreypavlenko/jobber/internal/store"
	"github.com/andreypavlenko/jobber/modules/jobs/model"
	"github.com/andreypavlenko/jobber/modules/jobs/service"
)

// JobHandler exposes recruiter CRUD over job postings.
type JobHandler struct {
	service *service.JobService
}

func NewJobHandler(s *service.JobService) *JobHandler {
	return &JobHandler{service: s}
}

// RegisterRoutes mounts the job endpoints under an authenticated group.
func (h *JobHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	jobs := rg.Group("/jobs", authMiddleware)
	{
		jobs.POST("", h.create)
		jobs.GET("", h.list)
		jobs.GET("/:id", h.getByID)
		jobs.PATCH("/:id", h.update)
		jobs.POST("/generate-description", h.generateDescription)
	}
}

// create godoc
// @Summary Create a job posting
// @Tags jobs
// @Accept json
// @Produce json
// @Param request body model.CreateJobRequest true "Job"
// @Success 201 {object} model.JobDTO
// @Router /jobs [post]
func (h *JobHandler) create(c *gin.Context) {
	var req model.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	j, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, store.ErrJobCodeExists) {
			httpPlatform.RespondWithError(c, http.StatusConflict, "JOB_CODE_EXISTS", "job code already exists")
			return
		}
		httpPlatform.RespondWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to create job")
		return
	}
	httpPlatform.RespondWithData(c, http.StatusCreated, model.ToDTO(j))
}

// list godoc
// @Summary List job postings
// @Tags jobs
// @Produce json
// @Param status query string false "open|closed|paused|all"
// @Success 200 {object} http.PaginatedResponse
// @Router /jobs [get]
func (h *JobHandler) list(c *gin.Context) {
	pag, err := httpPlatform.ParsePaginationParams(c)
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	status := c.Query("status")
	jobs, total, err := h.service.List(c.Request.Context(), status, pag.Limit, pag.Offset)
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list jobs")
		return
	}
	dtos := make([]*model.JobDTO, 0, len(jobs))
	for _, j := range jobs {
		dtos = append(dtos, model.ToDTO(j))
	}
	httpPlatform.RespondWithPagination(c, http.StatusOK, dtos, pag.Limit, pag.Offset, total)
}

// getByID godoc
// @Summary Get a job posting
// @Tags jobs
// @Produce json
// @Param id path int true "Job ID"
// @Success 200 {object} model.JobDTO
// @Router /jobs/{id} [get]
func (h *JobHandler) getByID(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		return
	}
	j, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			httpPlatform.RespondWithError(c, http.StatusNotFound, "JOB_NOT_FOUND", "job not found")
			return
		}
		httpPlatform.RespondWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to get job")
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, model.ToDTO(j))
}

// update godoc
// @Summary Update a job posting
// @Tags jobs
// @Accept json
// @Produce json
// @Param id path int true "Job ID"
// @Param request body model.UpdateJobRequest true "Job patch"
// @Success 200 {object} model.JobDTO
// @Router /jobs/{id} [patch]
func (h *JobHandler) update(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		return
	}
	var req model.UpdateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	j, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			httpPlatform.RespondWithError(c, http.StatusNotFound, "JOB_NOT_FOUND", "job not found")
			return
		}
		httpPlatform.RespondWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to update job")
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, model.ToDTO(j))
}

// generateDescription godoc
// @Summary Draft a job description from a title
// @Tags jobs
// @Accept json
// @Produce json
// @Param request body model.GenerateDescriptionRequest true "Title"
// @Success 200 {object} oracle.JobGeneratorOutput
// @Router /jobs/generate-description [post]
func (h *JobHandler) generateDescription(c *gin.Context) {
	var req model.GenerateDescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	out := h.service.GenerateDescription(c.Request.Context(), req.Title)
	httpPlatform.RespondWithData(c, http.StatusOK, out)
}

func parseID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id")
		return 0, err
	}
	return id, nil
}
