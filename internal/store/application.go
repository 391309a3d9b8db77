package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

var (
	ErrApplicationNotFound = errors.New("application not found")
	ErrApplicationExists   = errors.New("application already exists for this candidate and job")
)

// Application stages, in pipeline order.
const (
	StageNew                 = "new"
	StageClassified           = "classified"
	StageMatched              = "matched"
	StageInterviewLinkSent    = "interview_link_sent"
	StageScreeningScheduled   = "screening_scheduled"
	StageScreened             = "screened"
	StageShortlisted          = "shortlisted"
	StageRejected             = "rejected"
)

// Recommendation values shared by the Resume Scorer, Interview Evaluator and
// Decision Engine.
const (
	RecommendationAdvance = "advance"
	RecommendationHold    = "hold"
	RecommendationReject  = "reject"
)

// ScreeningState bundles the voice-interview call-leg's retry bookkeeping,
// supplemented from original_source/backend/routers/screening.py.
type ScreeningState struct {
	Status          string     `json:"status"`
	Attempts        int        `json:"attempts"`
	MaxAttempts     int        `json:"max_attempts"`
	FailureReason   string     `json:"failure_reason,omitempty"`
	LastAttemptAt   *time.Time `json:"last_attempt_at,omitempty"`
}

// MaxScreeningAttempts is the default retry ceiling for the voice-interview
// call leg (original_source's MAX_SCREENING_ATTEMPTS).
const MaxScreeningAttempts = 3

// ScreeningState.Status values.
const (
	ScreeningNoAnswer    = "no_answer"
	ScreeningFailed      = "failed"
	ScreeningVoicemail   = "voicemail"
	ScreeningInProgress  = "in_progress"
	ScreeningCompleted   = "completed"
	ScreeningRescheduled = "rescheduled"
)

// retryableScreeningStatuses may be retried via Engine.RetryScreening.
var retryableScreeningStatuses = map[string]bool{
	ScreeningNoAnswer:  true,
	ScreeningFailed:    true,
	ScreeningVoicemail: true,
	"":                 true,
}

// Retryable reports whether the screening call leg may be retried from its
// current status.
func (s ScreeningState) Retryable() bool {
	return retryableScreeningStatuses[s.Status]
}

// BookedSlot is the candidate's accepted interview slot, extracted from the
// transcript's JSON trailer.
type BookedSlot struct {
	Slot string `json:"slot"`
}

// Application is the recruiting-pipeline aggregate: one candidate scored
// against one job.
type Application struct {
	ID            int64
	CandidateID   int64
	JobID         int64
	Stage         string
	ResumeScore   *float64
	ResumeScoreJSON *ResumeScorerResult
	InterviewScore *float64
	InterviewScoreJSON *InterviewEvaluatorResult
	FinalScore    *float64
	FinalSummary  string
	Recommendation *string
	AINextAction  string
	InterviewLinkStatus string
	Screening     ScreeningState
	Telemetry     TelemetryAggregate
	Transcript    string
	BookedSlot    *BookedSlot
	EmailDraftSent bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ResumeScorerResult is the normalized Resume Scorer oracle output.
type ResumeScorerResult struct {
	Score              float64  `json:"score"`
	Evidence           []string `json:"evidence"`
	Gaps               []string `json:"gaps"`
	Risks              []string `json:"risks"`
	Recommendation     string   `json:"recommendation"`
	ScreeningQuestions []string `json:"screening_questions"`
	Summary            string   `json:"summary"`
	WhyShortlisted     []string `json:"why_shortlisted"`
	KeyStrengths       []string `json:"key_strengths"`
	MainGaps           []string `json:"main_gaps"`
	InterviewFocus     []string `json:"interview_focus"`
}

// InterviewEvaluatorResult is the normalized Interview Evaluator oracle output.
type InterviewEvaluatorResult struct {
	Score               float64  `json:"score"`
	Decision            string   `json:"decision"`
	Strengths           []string `json:"strengths"`
	Concerns            []string `json:"concerns"`
	CommunicationRating float64  `json:"communication_rating"`
	TechnicalDepth      float64  `json:"technical_depth"`
	CulturalFit         float64  `json:"cultural_fit"`
	EmailDraft          string   `json:"email_draft"`
	SchedulingSlots     []string `json:"scheduling_slots"`
	Summary             string   `json:"summary"`
}

// ApplicationRepository persists Application aggregates.
type ApplicationRepository struct{}

func (r *ApplicationRepository) Create(ctx context.Context, q Queryer, a *Application) error {
	if a.Stage == "" {
		a.Stage = StageMatched
	}
	if a.Screening.MaxAttempts == 0 {
		a.Screening.MaxAttempts = MaxScreeningAttempts
	}
	screening, err := marshalJSON(a.Screening)
	if err != nil {
		return err
	}
	resumeJSON, err := marshalJSON(a.ResumeScoreJSON)
	if err != nil {
		return err
	}
	err = q.QueryRow(ctx, `
		INSERT INTO applications (candidate_id, job_id, stage, resume_score, resume_score_json, recommendation, ai_next_action, screening, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8, now(), now())
		RETURNING id, created_at, updated_at
	`, a.CandidateID, a.JobID, a.Stage, a.ResumeScore, resumeJSON, a.Recommendation, a.AINextAction, screening,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrApplicationExists
		}
		return err
	}
	return nil
}

func (r *ApplicationRepository) scan(row pgx.Row) (*Application, error) {
	a := &Application{}
	var resumeJSON, interviewJSON, screening, telemetry, bookedSlot []byte
	err := row.Scan(
		&a.ID, &a.CandidateID, &a.JobID, &a.Stage,
		&a.ResumeScore, &resumeJSON, &a.InterviewScore, &interviewJSON, &a.FinalScore, &a.FinalSummary,
		&a.Recommendation, &a.AINextAction, &a.InterviewLinkStatus, &screening, &telemetry, &a.Transcript,
		&bookedSlot, &a.EmailDraftSent, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	if len(resumeJSON) > 0 && string(resumeJSON) != "null" {
		a.ResumeScoreJSON = &ResumeScorerResult{}
		if err := unmarshalJSON(resumeJSON, a.ResumeScoreJSON); err != nil {
			return nil, err
		}
	}
	if len(interviewJSON) > 0 && string(interviewJSON) != "null" {
		a.InterviewScoreJSON = &InterviewEvaluatorResult{}
		if err := unmarshalJSON(interviewJSON, a.InterviewScoreJSON); err != nil {
			return nil, err
		}
	}
	if err := unmarshalJSON(screening, &a.Screening); err != nil {
		return nil, err
	}
	if len(telemetry) > 0 && string(telemetry) != "null" {
		if err := unmarshalJSON(telemetry, &a.Telemetry); err != nil {
			return nil, err
		}
	}
	if len(bookedSlot) > 0 && string(bookedSlot) != "null" {
		a.BookedSlot = &BookedSlot{}
		if err := unmarshalJSON(bookedSlot, a.BookedSlot); err != nil {
			return nil, err
		}
	}
	return a, nil
}

const applicationColumns = `
	id, candidate_id, job_id, stage,
	resume_score, resume_score_json, interview_score, interview_score_json, final_score, COALESCE(final_summary,''),
	recommendation, ai_next_action, interview_link_status, screening, telemetry, COALESCE(transcript,''),
	booked_slot, email_draft_sent, created_at, updated_at
`

// GetByID reads an Application FOR UPDATE when lockForUpdate is true — used
// by engines that are about to mutate the row inside a WithTx.
func (r *ApplicationRepository) GetByID(ctx context.Context, q Queryer, id int64, lockForUpdate bool) (*Application, error) {
	query := `SELECT` + applicationColumns + `FROM applications WHERE id = $1`
	if lockForUpdate {
		query += ` FOR UPDATE`
	}
	return r.scan(q.QueryRow(ctx, query, id))
}

func (r *ApplicationRepository) GetByCandidateAndJob(ctx context.Context, q Queryer, candidateID, jobID int64) (*Application, error) {
	query := `SELECT` + applicationColumns + `FROM applications WHERE candidate_id = $1 AND job_id = $2`
	return r.scan(q.QueryRow(ctx, query, candidateID, jobID))
}

// ListByStage finds applications in stage, most recently updated first; with
// StageScreeningScheduled it backs _find_app_by_conversation's "most recent
// screening_scheduled" fallback.
func (r *ApplicationRepository) ListByStage(ctx context.Context, q Queryer, stage string, limit int) ([]*Application, error) {
	query := `SELECT` + applicationColumns + `FROM applications WHERE stage = $1 ORDER BY updated_at DESC LIMIT $2`
	rows, err := q.Query(ctx, query, stage, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Application
	for rows.Next() {
		a, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// List returns Applications filtered by stage ("" = no filter) and
// optionally by job, ordered newest first, paginated.
func (r *ApplicationRepository) List(ctx context.Context, q Queryer, stage string, jobID int64, limit, offset int) ([]*Application, int, error) {
	where := []string{}
	args := []any{}
	if stage != "" {
		args = append(args, stage)
		where = append(where, "stage = $"+itoa(len(args)))
	}
	if jobID != 0 {
		args = append(args, jobID)
		where = append(where, "job_id = $"+itoa(len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = "WHERE " + where[0]
		for _, w := range where[1:] {
			clause += " AND " + w
		}
	}

	var total int
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM applications "+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := `SELECT` + applicationColumns + `FROM applications ` + clause +
		` ORDER BY updated_at DESC LIMIT $` + itoa(len(args)-1) + ` OFFSET $` + itoa(len(args))
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Application
	for rows.Next() {
		a, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

// Update persists every mutable field of a.
func (r *ApplicationRepository) Update(ctx context.Context, q Queryer, a *Application) error {
	screening, err := marshalJSON(a.Screening)
	if err != nil {
		return err
	}
	resumeJSON, err := marshalJSON(a.ResumeScoreJSON)
	if err != nil {
		return err
	}
	interviewJSON, err := marshalJSON(a.InterviewScoreJSON)
	if err != nil {
		return err
	}
	bookedSlot, err := marshalJSON(a.BookedSlot)
	if err != nil {
		return err
	}
	telemetry, err := marshalJSON(a.Telemetry)
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx, `
		UPDATE applications SET
			stage=$2, resume_score=$3, resume_score_json=$4, interview_score=$5, interview_score_json=$6,
			final_score=$7, final_summary=$8, recommendation=$9, ai_next_action=$10, interview_link_status=$11,
			screening=$12, telemetry=$13, transcript=$14, booked_slot=$15, email_draft_sent=$16, updated_at=now()
		WHERE id=$1
	`, a.ID, a.Stage, a.ResumeScore, resumeJSON, a.InterviewScore, interviewJSON,
		a.FinalScore, a.FinalSummary, a.Recommendation, a.AINextAction, a.InterviewLinkStatus,
		screening, telemetry, a.Transcript, bookedSlot, a.EmailDraftSent)
	return err
}
