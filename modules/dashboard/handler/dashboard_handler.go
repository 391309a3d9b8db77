package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andreypavlenko/jobber/internal/decision"
	httpPlatform "github.com/andreypavlenko/jobber/internal/platform/http"
	"github.com/andreypavlenko/jobber/internal/store"
	"github.com/andreypavlenko/jobber/modules/dashboard/model"
	"github.com/andreypavlenko/jobber/modules/dashboard/service"
)

// DashboardHandler exposes the recruiter dashboard's narrow manual-trigger
// surface: everything else (list/filter/export/usage reporting) is out of
// scope. Every route requires the recruiter JWT.
type DashboardHandler struct {
	service *service.DashboardService
}

func NewDashboardHandler(s *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: s}
}

func (h *DashboardHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	dash := rg.Group("/dashboard/screening", authMiddleware)
	{
		dash.POST("/generate-link", h.generateLink)
		dash.POST("/send-link", h.sendLink)
		dash.POST("/book-slot", h.bookSlot)
		dash.POST("/evaluate", h.evaluate)
		dash.POST("/retry", h.retry)
		dash.POST("/reset-attempts", h.resetAttempts)
		dash.POST("/reschedule", h.reschedule)
		dash.POST("/send-rejection", h.sendRejection)
		dash.POST("/send-draft", h.sendDraft)
		dash.POST("/send-custom-email", h.sendCustom)
	}
}

// generateLink godoc
// @Summary Issue a new interview link for an application
// @Tags dashboard
// @Accept json
// @Produce json
// @Param request body model.GenerateLinkRequest true "Application and round"
// @Success 200 {object} model.GenerateLinkResponse
// @Router /dashboard/screening/generate-link [post]
func (h *DashboardHandler) generateLink(c *gin.Context) {
	var req model.GenerateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	link, err := h.service.GenerateLink(c.Request.Context(), req.AppID, req.Round)
	if err != nil {
		respondDashboardError(c, err)
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, &model.GenerateLinkResponse{
		Token:   link.Token,
		LinkURL: h.service.LinkURL(link.Token),
	})
}

// sendLink godoc
// @Summary Email a previously generated interview link to its candidate
// @Tags dashboard
// @Accept json
// @Produce json
// @Param request body model.SendLinkRequest true "Token"
// @Success 200 {object} http.SuccessResponse
// @Router /dashboard/screening/send-link [post]
func (h *DashboardHandler) sendLink(c *gin.Context) {
	var req model.SendLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if err := h.service.SendLink(c.Request.Context(), req.Token); err != nil {
		respondDashboardError(c, err)
		return
	}
	httpPlatform.RespondWithSuccess(c, http.StatusOK, "link sent")
}

// bookSlot godoc
// @Summary Confirm the candidate's interview slot
// @Tags dashboard
// @Accept json
// @Produce json
// @Param request body model.BookSlotRequest true "Application and slot"
// @Success 200 {object} http.SuccessResponse
// @Router /dashboard/screening/book-slot [post]
func (h *DashboardHandler) bookSlot(c *gin.Context) {
	var req model.BookSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if err := h.service.BookSlot(c.Request.Context(), req.AppID, req.Slot); err != nil {
		respondDashboardError(c, err)
		return
	}
	httpPlatform.RespondWithSuccess(c, http.StatusOK, "slot booked")
}

// evaluate godoc
// @Summary Run the decision engine against an application's stored transcript
// @Tags dashboard
// @Accept json
// @Produce json
// @Param request body model.EvaluateRequest true "Application"
// @Success 200 {object} http.SuccessResponse
// @Router /dashboard/screening/evaluate [post]
func (h *DashboardHandler) evaluate(c *gin.Context) {
	var req model.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if err := h.service.Evaluate(c.Request.Context(), req.AppID); err != nil {
		respondDashboardError(c, err)
		return
	}
	httpPlatform.RespondWithSuccess(c, http.StatusOK, "evaluated")
}

// retry godoc
// @Summary Retry a failed voice-interview call leg
// @Tags dashboard
// @Accept json
// @Produce json
// @Param request body model.RetryRequest true "Application"
// @Success 200 {object} http.SuccessResponse
// @Router /dashboard/screening/retry [post]
func (h *DashboardHandler) retry(c *gin.Context) {
	var req model.RetryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if err := h.service.RetryScreening(c.Request.Context(), req.AppID); err != nil {
		respondDashboardError(c, err)
		return
	}
	httpPlatform.RespondWithSuccess(c, http.StatusOK, "retry requested")
}

// resetAttempts godoc
// @Summary Reset a voice-interview call leg's attempt counter
// @Tags dashboard
// @Accept json
// @Produce json
// @Param request body model.RetryRequest true "Application"
// @Success 200 {object} http.SuccessResponse
// @Router /dashboard/screening/reset-attempts [post]
func (h *DashboardHandler) resetAttempts(c *gin.Context) {
	var req model.RetryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if err := h.service.ResetScreeningAttempts(c.Request.Context(), req.AppID); err != nil {
		respondDashboardError(c, err)
		return
	}
	httpPlatform.RespondWithSuccess(c, http.StatusOK, "attempts reset")
}

// reschedule godoc
// @Summary Reschedule a voice-interview call leg to a specific time
// @Tags dashboard
// @Accept json
// @Produce json
// @Param request body model.RescheduleRequest true "Application, slot, reason"
// @Success 200 {object} http.SuccessResponse
// @Router /dashboard/screening/reschedule [post]
func (h *DashboardHandler) reschedule(c *gin.Context) {
	var req model.RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "scheduled_at must be RFC3339")
		return
	}
	if err := h.service.RescheduleScreening(c.Request.Context(), req.AppID, scheduledAt, req.Reason); err != nil {
		respondDashboardError(c, err)
		return
	}
	httpPlatform.RespondWithSuccess(c, http.StatusOK, "rescheduled")
}

// sendRejection godoc
// @Summary Send the standard rejection notice
// @Tags dashboard
// @Accept json
// @Produce json
// @Param request body model.RejectionEmailRequest true "Application"
// @Success 200 {object} http.SuccessResponse
// @Router /dashboard/screening/send-rejection [post]
func (h *DashboardHandler) sendRejection(c *gin.Context) {
	var req model.RejectionEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if err := h.service.SendRejection(c.Request.Context(), req.AppID); err != nil {
		respondDashboardError(c, err)
		return
	}
	httpPlatform.RespondWithSuccess(c, http.StatusOK, "rejection sent")
}

// sendDraft godoc
// @Summary Send the decision engine's drafted advance email verbatim
// @Tags dashboard
// @Accept json
// @Produce json
// @Param request body model.DraftEmailRequest true "Application"
// @Success 200 {object} http.SuccessResponse
// @Router /dashboard/screening/send-draft [post]
func (h *DashboardHandler) sendDraft(c *gin.Context) {
	var req model.DraftEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if err := h.service.SendDraft(c.Request.Context(), req.AppID); err != nil {
		respondDashboardError(c, err)
		return
	}
	httpPlatform.RespondWithSuccess(c, http.StatusOK, "draft sent")
}

// sendCustom godoc
// @Summary Send an operator-authored ad hoc email
// @Tags dashboard
// @Accept json
// @Produce json
// @Param request body model.CustomEmailRequest true "Application, subject, body"
// @Success 200 {object} http.SuccessResponse
// @Router /dashboard/screening/send-custom-email [post]
func (h *DashboardHandler) sendCustom(c *gin.Context) {
	var req model.CustomEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if err := h.service.SendCustom(c.Request.Context(), req.AppID, req.Subject, req.Body); err != nil {
		respondDashboardError(c, err)
		return
	}
	httpPlatform.RespondWithSuccess(c, http.StatusOK, "email sent")
}

func respondDashboardError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrApplicationNotFound):
		httpPlatform.RespondWithError(c, http.StatusNotFound, "APPLICATION_NOT_FOUND", "application not found")
	case errors.Is(err, decision.ErrNoTranscript):
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "NO_TRANSCRIPT", "no transcript available; run screening first")
	default:
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "SCREENING_ACTION_FAILED", err.Error())
	}
}
