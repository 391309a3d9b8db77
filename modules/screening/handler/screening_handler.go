package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	httpPlatform "github.com/andreypavlenko/jobber/internal/platform/http"
	"github.com/andreypavlenko/jobber/internal/screening"
	"github.com/andreypavlenko/jobber/internal/store"
	"github.com/andreypavlenko/jobber/modules/screening/model"
	"github.com/andreypavlenko/jobber/modules/screening/service"
)

// ScreeningHandler exposes the candidate-facing screening surface: no
// authentication, an opaque token in the URL path in its place. Also owns
// the external voice-agent webhook, which authenticates itself via an
// HMAC signature instead.
type ScreeningHandler struct {
	service       *service.ScreeningService
	webhookSecret string
}

func NewScreeningHandler(s *service.ScreeningService, webhookSecret string) *ScreeningHandler {
	return &ScreeningHandler{service: s, webhookSecret: webhookSecret}
}

// RegisterRoutes mounts the public candidate routes and the webhook route.
// Neither group takes the recruiter JWT middleware.
func (h *ScreeningHandler) RegisterRoutes(rg *gin.RouterGroup) {
	link := rg.Group("/screening/link/:token")
	{
		link.GET("", h.validate)
		link.GET("/status", h.status)
		link.POST("/start", h.startInterview)
		link.POST("/face-tracking", h.submitTelemetry)
		link.POST("/transcript", h.submitTranscript)
	}
	rg.POST("/screening/webhook/external", h.webhook)
}

// validate godoc
// @Summary Validate an interview link and fetch the candidate landing page data
// @Tags screening
// @Produce json
// @Param token path string true "Interview link token"
// @Success 200 {object} model.LinkValidationDTO
// @Router /screening/link/{token} [get]
func (h *ScreeningHandler) validate(c *gin.Context) {
	result, err := h.service.Validate(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondLinkError(c, err)
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, &model.LinkValidationDTO{
		CandidateFirstName: result.CandidateFirstName,
		JobTitle:           result.JobTitle,
		CompanyName:        result.CompanyName,
		ExternalAgentID:    result.ExternalAgentID,
		ScreeningQuestions: result.ScreeningQuestions,
	})
}

// status godoc
// @Summary Report the voice-interview call leg's current status
// @Tags screening
// @Produce json
// @Param token path string true "Interview link token"
// @Success 200 {object} model.StatusDTO
// @Router /screening/link/{token}/status [get]
func (h *ScreeningHandler) status(c *gin.Context) {
	a, err := h.service.Status(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondLinkError(c, err)
		return
	}
	maxAttempts := a.Screening.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = store.MaxScreeningAttempts
	}
	httpPlatform.RespondWithData(c, http.StatusOK, &model.StatusDTO{
		AppID:                  a.ID,
		Stage:                  a.Stage,
		ScreeningStatus:        a.Screening.Status,
		ScreeningAttempts:      a.Screening.Attempts,
		ScreeningMaxAttempts:   maxAttempts,
		ScreeningFailureReason: a.Screening.FailureReason,
		ScreeningLastAttemptAt: a.Screening.LastAttemptAt,
		HasTranscript:          a.Transcript != "",
		HasEvaluation:          a.InterviewScoreJSON != nil,
		InterviewScore:         a.InterviewScore,
		CanRetry:               a.Screening.Retryable() && a.Screening.Attempts < maxAttempts,
	})
}

// startInterview godoc
// @Summary Record that the candidate's browser started the voice call
// @Tags screening
// @Accept json
// @Produce json
// @Param token path string true "Interview link token"
// @Param request body model.StartInterviewRequest true "Conversation id"
// @Success 200 {object} http.SuccessResponse
// @Router /screening/link/{token}/start [post]
func (h *ScreeningHandler) startInterview(c *gin.Context) {
	var req model.StartInterviewRequest
	_ = c.ShouldBindJSON(&req)
	if err := h.service.StartInterview(c.Request.Context(), c.Param("token"), req.ConversationID); err != nil {
		respondLinkError(c, err)
		return
	}
	httpPlatform.RespondWithSuccess(c, http.StatusOK, "interview started")
}

// submitTelemetry godoc
// @Summary Submit a face-tracking sample for the running interview
// @Tags screening
// @Accept json
// @Produce json
// @Param token path string true "Interview link token"
// @Param request body model.TelemetryRequest true "Telemetry sample"
// @Success 200 {object} http.SuccessResponse
// @Router /screening/link/{token}/face-tracking [post]
func (h *ScreeningHandler) submitTelemetry(c *gin.Context) {
	var req model.TelemetryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	snap := store.TelemetrySnapshot{
		FacePresent:    req.FacePresent,
		AttentionScore: req.AttentionScore,
		FaceCount:      req.FaceCount,
		Timestamp:      time.Now().UTC(),
	}
	if err := h.service.SubmitTelemetry(c.Request.Context(), c.Param("token"), snap); err != nil {
		respondLinkError(c, err)
		return
	}
	httpPlatform.RespondWithSuccess(c, http.StatusOK, "telemetry recorded")
}

// submitTranscript godoc
// @Summary Submit the completed interview transcript
// @Tags screening
// @Accept json
// @Produce json
// @Param token path string true "Interview link token"
// @Param request body model.TranscriptRequest true "Transcript"
// @Success 200 {object} http.SuccessResponse
// @Router /screening/link/{token}/transcript [post]
func (h *ScreeningHandler) submitTranscript(c *gin.Context) {
	var req model.TranscriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	err := h.service.SubmitTranscript(c.Request.Context(), c.Param("token"), req.Transcript)
	if err != nil {
		if errors.Is(err, screening.ErrTranscriptHeld) {
			httpPlatform.RespondWithSuccess(c, http.StatusOK, "transcript already recorded")
			return
		}
		respondLinkError(c, err)
		return
	}
	httpPlatform.RespondWithSuccess(c, http.StatusOK, "transcript stored")
}

// webhook godoc
// @Summary Receive a post-call event from the external voice-agent
// @Tags screening
// @Accept json
// @Produce json
// @Success 200 {object} http.SuccessResponse
// @Router /screening/webhook/external [post]
func (h *ScreeningHandler) webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "could not read request body")
		return
	}

	if h.webhookSecret != "" {
		signature := c.GetHeader("X-Signature")
		mac := hmac.New(sha256.New, []byte(h.webhookSecret))
		mac.Write(body)
		expected := hex.EncodeToString(mac.Sum(nil))
		if !hmac.Equal([]byte(signature), []byte(expected)) {
			httpPlatform.RespondWithError(c, http.StatusUnauthorized, "INVALID_SIGNATURE", "invalid webhook signature")
			return
		}
	}

	var payload model.CallWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "malformed webhook payload")
		return
	}

	turns := make([]screening.CallEventTurn, 0, len(payload.Data.Transcript))
	for _, t := range payload.Data.Transcript {
		turns = append(turns, screening.CallEventTurn{Role: t.Role, Message: t.Message, TimeInCallSecs: t.TimeInCallSecs})
	}
	callSuccessful := true
	if payload.Data.Analysis.CallSuccessful != nil {
		callSuccessful = *payload.Data.Analysis.CallSuccessful
	}

	ev := screening.CallEvent{
		Type:             payload.Type,
		ConversationID:   payload.Data.ConversationID,
		Transcript:       turns,
		CallSuccessful:   callSuccessful,
		CallDurationSecs: payload.Data.Metadata.CallDurationSecs,
		Summary:          payload.Data.Analysis.TranscriptSummary,
		FailureReason:    payload.Data.FailureReason,
		ErrorMessage:     payload.Data.ErrorMessage,
	}
	if err := h.service.HandleCallEvent(c.Request.Context(), ev); err != nil {
		httpPlatform.RespondWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to process webhook event")
		return
	}
	httpPlatform.RespondWithSuccess(c, http.StatusOK, "received")
}

func respondLinkError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, screening.ErrLinkInvalid), errors.Is(err, store.ErrInterviewLinkNotFound):
		httpPlatform.RespondWithError(c, http.StatusNotFound, "LINK_INVALID", "interview link not found")
	case errors.Is(err, screening.ErrLinkExpired):
		httpPlatform.RespondWithError(c, http.StatusGone, "LINK_EXPIRED", "interview link has expired")
	case errors.Is(err, screening.ErrLinkCompleted):
		httpPlatform.RespondWithError(c, http.StatusConflict, "LINK_COMPLETED", "interview already completed")
	case errors.Is(err, store.ErrApplicationNotFound):
		httpPlatform.RespondWithError(c, http.StatusNotFound, "APPLICATION_NOT_FOUND", "application not found")
	default:
		httpPlatform.RespondWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "screening request failed")
	}
}
