package model

import (
	"time"

	"github.com/andreypavlenko/jobber/internal/store"
)

// JobNestedDTO is the job slice of an application's detail view.
type JobNestedDTO struct {
	ID    int64  `json:"id"`
	Code  string `json:"code"`
	Title string `json:"title"`
}

// CandidateNestedDTO is the candidate slice of an application's detail view.
type CandidateNestedDTO struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ApplicationDTO is the wire shape for an Application, with its job and
// candidate resolved.
type ApplicationDTO struct {
	ID                  int64                      `json:"id"`
	Job                 *JobNestedDTO              `json:"job"`
	Candidate           *CandidateNestedDTO        `json:"candidate"`
	Stage               string                     `json:"stage"`
	ResumeScore         *float64                   `json:"resume_score,omitempty"`
	ResumeScoreJSON     *store.ResumeScorerResult  `json:"resume_score_detail,omitempty"`
	InterviewScore      *float64                   `json:"interview_score,omitempty"`
	InterviewScoreJSON  *store.InterviewEvaluatorResult `json:"interview_score_detail,omitempty"`
	FinalScore          *float64                   `json:"final_score,omitempty"`
	FinalSummary        string                     `json:"final_summary,omitempty"`
	Recommendation      *string                    `json:"recommendation,omitempty"`
	AINextAction        string                     `json:"ai_next_action,omitempty"`
	InterviewLinkStatus string                     `json:"interview_link_status"`
	Screening           store.ScreeningState       `json:"screening"`
	Telemetry           store.TelemetryAggregate   `json:"telemetry"`
	BookedSlot          *store.BookedSlot          `json:"booked_slot,omitempty"`
	EmailDraftSent      bool                       `json:"email_draft_sent"`
	CreatedAt           time.Time                  `json:"created_at"`
	UpdatedAt           time.Time                  `json:"updated_at"`
}

// ToDTO assembles an ApplicationDTO from its Application, Job and Candidate.
// Transcript is deliberately omitted: it's reachable only through the
// screening-specific endpoints that need it.
func ToDTO(a *store.Application, job *store.Job, candidate *store.Candidate) *ApplicationDTO {
	dto := &ApplicationDTO{
		ID:                  a.ID,
		Stage:               a.Stage,
		ResumeScore:         a.ResumeScore,
		ResumeScoreJSON:     a.ResumeScoreJSON,
		InterviewScore:      a.InterviewScore,
		InterviewScoreJSON:  a.InterviewScoreJSON,
		FinalScore:          a.FinalScore,
		FinalSummary:        a.FinalSummary,
		Recommendation:      a.Recommendation,
		AINextAction:        a.AINextAction,
		InterviewLinkStatus: a.InterviewLinkStatus,
		Screening:           a.Screening,
		Telemetry:           a.Telemetry,
		BookedSlot:          a.BookedSlot,
		EmailDraftSent:      a.EmailDraftSent,
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
	}
	if job != nil {
		dto.Job = &JobNestedDTO{ID: job.ID, Code: job.Code, Title: job.Title}
	}
	if candidate != nil {
		dto.Candidate = &CandidateNestedDTO{ID: candidate.ID, Name: candidate.Name, Email: candidate.Email}
	}
	return dto
}

// UpdateStageRequest lets a recruiter manually override an application's
// stage, e.g. after an off-platform decision.
type UpdateStageRequest struct {
	Stage string `json:"stage" binding:"required"`
}
