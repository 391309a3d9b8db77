// Package model holds the public (candidate-facing) wire shapes for the
// voice-screening flow.
package model

import "time"

// LinkValidationDTO is what a candidate's browser receives when it opens an
// interview link: enough to render a landing page and hand the browser's
// voice widget the right agent id and opening questions.
type LinkValidationDTO struct {
	CandidateFirstName string   `json:"candidate_first_name"`
	JobTitle           string   `json:"job_title"`
	CompanyName        string   `json:"company_name"`
	ExternalAgentID    string   `json:"external_agent_id"`
	ScreeningQuestions []string `json:"screening_questions"`
}

// StartInterviewRequest carries the external conversation id the candidate's
// browser received once the voice call connected.
type StartInterviewRequest struct {
	ConversationID string `json:"conversation_id"`
}

// TelemetryRequest is one face-tracking sample from the candidate's browser.
type TelemetryRequest struct {
	FacePresent    bool    `json:"face_present"`
	AttentionScore float64 `json:"attention_score" binding:"gte=0,lte=1"`
	FaceCount      int     `json:"face_count"`
}

// TranscriptRequest carries the completed call transcript, submitted either
// by the candidate's browser or relayed from the dashboard after a manual
// review.
type TranscriptRequest struct {
	Transcript string `json:"transcript" binding:"required"`
}

// StatusDTO mirrors original_source's get_screening_status response shape.
type StatusDTO struct {
	AppID                 int64      `json:"app_id"`
	Stage                 string     `json:"stage"`
	ScreeningStatus       string     `json:"screening_status"`
	ScreeningAttempts     int        `json:"screening_attempts"`
	ScreeningMaxAttempts  int        `json:"screening_max_attempts"`
	ScreeningFailureReason string    `json:"screening_failure_reason,omitempty"`
	ScreeningLastAttemptAt *time.Time `json:"screening_last_attempt_at,omitempty"`
	HasTranscript         bool       `json:"has_transcript"`
	HasEvaluation         bool       `json:"has_evaluation"`
	InterviewScore        *float64   `json:"interview_score,omitempty"`
	CanRetry              bool       `json:"can_retry"`
}

// CallWebhookTurn is one transcript turn in the external voice-agent's
// webhook payload.
type CallWebhookTurn struct {
	Role           string  `json:"role"`
	Message        string  `json:"message"`
	TimeInCallSecs float64 `json:"time_in_call_secs"`
}

// CallWebhookPayload is the external voice-agent's post-call webhook body.
// Only the fields this pipeline consumes are modeled; unknown top-level
// event types are accepted and ignored by the handler.
type CallWebhookPayload struct {
	Type string `json:"type"`
	Data struct {
		ConversationID string            `json:"conversation_id"`
		Transcript     []CallWebhookTurn `json:"transcript"`
		FailureReason  string            `json:"failure_reason"`
		ErrorMessage   string            `json:"error_message"`
		Analysis       struct {
			CallSuccessful    *bool  `json:"call_successful"`
			TranscriptSummary string `json:"transcript_summary"`
		} `json:"analysis"`
		Metadata struct {
			CallDurationSecs float64 `json:"call_duration_secs"`
		} `json:"metadata"`
	} `json:"data"`
}
