package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	httpPlatform "github.com/andreypavlenko/jobber/internal/platform/http"
	"github.com/andreypavlenko/jobber/internal/store"
	"github.com/andreypavlenko/jobber/modules/candidates/model"
	"github.com/andreypavlenko/jobber/modules/candidates/service"
)

// CandidateHandler exposes read-only recruiter access to materialized
// candidates. Candidates are never created through this surface — they're
// derived from inbound mail by the ingestion pipeline.
type CandidateHandler struct {
	service *service.CandidateService
}

func NewCandidateHandler(s *service.CandidateService) *CandidateHandler {
	return &CandidateHandler{service: s}
}

func (h *CandidateHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	candidates := rg.Group("/candidates", authMiddleware)
	{
		candidates.GET("", h.list)
		candidates.GET("/:id", h.getByID)
	}
}

// list godoc
// @Summary List candidates
// @Tags candidates
// @Produce json
// @Success 200 {object} http.PaginatedResponse
// @Router /candidates [get]
func (h *CandidateHandler) list(c *gin.Context) {
	pag, err := httpPlatform.ParsePaginationParams(c)
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	candidates, total, err := h.service.List(c.Request.Context(), pag.Limit, pag.Offset)
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list candidates")
		return
	}
	dtos := make([]*model.CandidateDTO, 0, len(candidates))
	for _, cand := range candidates {
		dtos = append(dtos, model.ToDTO(cand))
	}
	httpPlatform.RespondWithPagination(c, http.StatusOK, dtos, pag.Limit, pag.Offset, total)
}

// getByID godoc
// @Summary Get a candidate
// @Tags candidates
// @Produce json
// @Param id path int true "Candidate ID"
// @Success 200 {object} model.CandidateDTO
// @Router /candidates/{id} [get]
func (h *CandidateHandler) getByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id")
		return
	}
	cand, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrCandidateNotFound) {
			httpPlatform.RespondWithError(c, http.StatusNotFound, "CANDIDATE_NOT_FOUND", "candidate not found")
			return
		}
		httpPlatform.RespondWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to get candidate")
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, model.ToDTO(cand))
}
