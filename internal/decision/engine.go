// Package decision implements the threshold-based auto-decision engine:
// given a transcript already stored on an Application, evaluate it, compute
// a weighted final score, and drive the Application to its terminal stage
// with the matching outbound side effect. Grounded on
// original_source/backend/routers/screening.py's evaluate_screening and the
// elevenlabs_webhook's inline auto-evaluate branch, unified into one
// function called from both paths.
package decision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/andreypavlenko/jobber/internal/mailer"
	"github.com/andreypavlenko/jobber/internal/oracle"
	"github.com/andreypavlenko/jobber/internal/store"
)

// DefaultThresholds centralizes the decision-engine cutoffs applied when a
// Job's own thresholds are unset.
var DefaultThresholds = store.Thresholds{ResumeMin: 80, InterviewMin: 75, RejectBelow: 50}

var ErrNoTranscript = errors.New("no transcript available; run screening first")

// Engine evaluates completed voice interviews and decides advance/hold/reject.
type Engine struct {
	store      *store.Store
	evaluator  *oracle.InterviewEvaluator
	summarizer *oracle.Summarizer
	mailer     *mailer.Mailer
}

func New(s *store.Store, evaluator *oracle.InterviewEvaluator, summarizer *oracle.Summarizer, m *mailer.Mailer) *Engine {
	return &Engine{store: s, evaluator: evaluator, summarizer: summarizer, mailer: m}
}

// Evaluate runs the 8-step decision algorithm for an Application whose
// transcript is already persisted.
func (e *Engine) Evaluate(ctx context.Context, appID int64) error {
	var app *store.Application
	var job *store.Job
	var candidate *store.Candidate

	err := e.store.WithTx(ctx, func(ctx context.Context, q store.Queryer) error {
		a, err := e.store.Applications.GetByID(ctx, q, appID, false)
		if err != nil {
			return err
		}
		if strings.TrimSpace(a.Transcript) == "" {
			return ErrNoTranscript
		}
		j, err := e.store.Jobs.GetByID(ctx, q, a.JobID)
		if err != nil {
			return err
		}
		c, err := e.store.Candidates.GetByID(ctx, q, a.CandidateID)
		if err != nil {
			return err
		}
		app, job, candidate = a, j, c
		return nil
	})
	if err != nil {
		return err
	}

	resumeSummary := ""
	var keyStrengths, mainGaps []string
	if app.ResumeScoreJSON != nil {
		resumeSummary = app.ResumeScoreJSON.Summary
		keyStrengths = app.ResumeScoreJSON.KeyStrengths
		mainGaps = app.ResumeScoreJSON.MainGaps
	}

	// Step 1: evaluate (slow, fallible leg — runs outside any transaction).
	evalOut := e.evaluator.Evaluate(ctx, oracle.InterviewEvaluatorInput{
		Transcript:     app.Transcript,
		JobTitle:       job.Title,
		JobDescription: job.Description,
		RequiredSkills: job.Skills,
		ResumeScore:    valueOr(app.ResumeScore, 0),
		ResumeSummary:  resumeSummary,
	})

	// Step 3: tolerant preferred-slot extraction from the transcript's JSON trailer.
	slot := extractPreferredSlot(app.Transcript)

	// Step 4: final score law.
	var finalScore *float64
	if app.ResumeScore != nil {
		fs := round1(0.4*(*app.ResumeScore) + 0.6*evalOut.Score)
		finalScore = &fs
	}

	// Step 6: threshold decision.
	thresholds := job.Thresholds(DefaultThresholds)
	decisionOutcome, nextStage := applyThresholds(app.ResumeScore, &evalOut.Score, finalScore, thresholds)

	// Step 5: final-summary generation (template fallback built in).
	summaryOut := e.summarizer.Summarize(ctx, oracle.SummarizerInput{
		CandidateName:    candidate.Name,
		JobTitle:         job.Title,
		ResumeScore:      valueOr(app.ResumeScore, 0),
		InterviewScore:   evalOut.Score,
		HasInterview:     true,
		FinalScore:       valueOr(finalScore, evalOut.Score),
		Recommendation:   decisionOutcome,
		ResumeSummary:    resumeSummary,
		InterviewSummary: evalOut.Summary,
		KeyStrengths:     keyStrengths,
		MainGaps:         mainGaps,
	})

	err = e.store.WithTx(ctx, func(ctx context.Context, q store.Queryer) error {
		a, err := e.store.Applications.GetByID(ctx, q, appID, true)
		if err != nil {
			return err
		}
		a.InterviewScore = &evalOut.Score
		a.InterviewScoreJSON = &store.InterviewEvaluatorResult{
			Score:               evalOut.Score,
			Decision:            evalOut.Decision,
			Strengths:           evalOut.Strengths,
			Concerns:            evalOut.Concerns,
			CommunicationRating: evalOut.CommunicationRating,
			TechnicalDepth:      evalOut.TechnicalDepth,
			CulturalFit:         evalOut.CulturalFit,
			EmailDraft:          evalOut.EmailDraft,
			SchedulingSlots:     evalOut.SchedulingSlots,
			Summary:             evalOut.Summary,
		}
		a.FinalScore = finalScore
		a.FinalSummary = summaryOut.Summary
		rec := decisionOutcome
		a.Recommendation = &rec
		a.AINextAction = nextActionFor(decisionOutcome)
		if nextStage != "" {
			a.Stage = nextStage
		}

		switch decisionOutcome {
		case store.RecommendationAdvance:
			if slot != nil {
				a.BookedSlot = slot
			}
		case store.RecommendationHold:
			a.BookedSlot = nil
		}

		if err := e.store.Applications.Update(ctx, q, a); err != nil {
			return err
		}
		return e.store.Events.Append(ctx, q, &appID, "evaluated", map[string]any{
			"interview_score": evalOut.Score,
			"final_score":     finalScore,
			"decision":        decisionOutcome,
			"stage":           a.Stage,
		})
	})
	if err != nil {
		return err
	}

	// Step 7: best-effort outbound side effects, outside the transaction.
	e.sendOutcomeEmail(ctx, decisionOutcome, candidate, job, evalOut)
	return nil
}

func (e *Engine) sendOutcomeEmail(ctx context.Context, decisionOutcome string, candidate *store.Candidate, job *store.Job, evalOut oracle.InterviewEvaluatorOutput) {
	if e.mailer == nil || candidate.Email == "" {
		return
	}
	var err error
	switch decisionOutcome {
	case store.RecommendationAdvance:
		subject := fmt.Sprintf("Great news about your %s application", job.Title)
		body := evalOut.EmailDraft
		if strings.TrimSpace(body) == "" {
			body = fmt.Sprintf("<p>Hi %s,</p><p>Congratulations — you're advancing in the %s hiring process.</p>", candidate.Name, job.Title)
		}
		err = e.mailer.SendAdvanceEmail(ctx, candidate.Email, subject, body)
		if err == nil {
			_ = e.store.WithTx(ctx, func(ctx context.Context, q store.Queryer) error {
				return markEmailDraftSent(ctx, q, e.store, candidate.ID, job.ID)
			})
		}
	case store.RecommendationReject:
		err = e.mailer.SendRejection(ctx, candidate.Email, candidate.Name, job.Title)
	}
	if err != nil {
		_ = e.store.WithTx(ctx, func(ctx context.Context, q store.Queryer) error {
			a, lookupErr := e.store.Applications.GetByCandidateAndJob(ctx, q, candidate.ID, job.ID)
			if lookupErr != nil {
				return nil
			}
			return e.store.Events.Append(ctx, q, &a.ID, "outbound_email_failed", map[string]any{
				"decision": decisionOutcome,
				"error":    err.Error(),
			})
		})
	}
}

func markEmailDraftSent(ctx context.Context, q store.Queryer, s *store.Store, candidateID, jobID int64) error {
	a, err := s.Applications.GetByCandidateAndJob(ctx, q, candidateID, jobID)
	if err != nil {
		return err
	}
	a.EmailDraftSent = true
	return s.Applications.Update(ctx, q, a)
}

// applyThresholds maps resume/interview/final scores onto an advance/hold/reject
// decision and the Application's next stage.
func applyThresholds(resumeScore, interviewScore, finalScore *float64, t store.Thresholds) (decisionOutcome, nextStage string) {
	if resumeScore != nil && interviewScore != nil &&
		*resumeScore >= t.ResumeMin && *interviewScore >= t.InterviewMin {
		return store.RecommendationAdvance, store.StageShortlisted
	}
	if finalScore != nil && *finalScore < t.RejectBelow {
		return store.RecommendationReject, store.StageRejected
	}
	return store.RecommendationHold, ""
}

func nextActionFor(decisionOutcome string) string {
	switch decisionOutcome {
	case store.RecommendationAdvance:
		return "Schedule in-person interview"
	case store.RecommendationReject:
		return "Send rejection email"
	default:
		return "Place on hold for review"
	}
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}

func valueOr(f *float64, fallback float64) float64 {
	if f == nil {
		return fallback
	}
	return *f
}

// preferredSlotTrailer mirrors the shape a voice-screening transcript may end
// with: {"candidate_name": ..., "availability": {"candidate_preferred_slot": ...}}.
type preferredSlotTrailer struct {
	Availability struct {
		CandidatePreferredSlot string `json:"candidate_preferred_slot"`
	} `json:"availability"`
}

// extractPreferredSlot finds the transcript's trailing JSON object (trying
// each "{" from the end until the rest parses as one value) and reads
// availability.candidate_preferred_slot from it. Absence or malformed
// trailers yield nil.
func extractPreferredSlot(transcript string) *store.BookedSlot {
	end := len(transcript)
	for {
		start := strings.LastIndex(transcript[:end], "{")
		if start < 0 {
			return nil
		}
		var trailer preferredSlotTrailer
		if err := json.Unmarshal([]byte(transcript[start:]), &trailer); err == nil {
			slot := strings.TrimSpace(trailer.Availability.CandidatePreferredSlot)
			if slot == "" {
				return nil
			}
			return &store.BookedSlot{Slot: slot}
		}
		end = start
	}
}

// RetryScreening resets a failed call leg for another attempt, bounded by
// Application.Screening.MaxAttempts.
func (e *Engine) RetryScreening(ctx context.Context, appID int64) error {
	return e.store.WithTx(ctx, func(ctx context.Context, q store.Queryer) error {
		a, err := e.store.Applications.GetByID(ctx, q, appID, true)
		if err != nil {
			return err
		}
		if !a.Screening.Retryable() {
			return fmt.Errorf("cannot retry: current screening status is %q", a.Screening.Status)
		}
		maxAttempts := a.Screening.MaxAttempts
		if maxAttempts == 0 {
			maxAttempts = store.MaxScreeningAttempts
		}
		if a.Screening.Attempts >= maxAttempts {
			return fmt.Errorf("maximum attempts (%d) reached; use ResetScreeningAttempts", maxAttempts)
		}

		previousAttempts, previousFailure := a.Screening.Attempts, a.Screening.FailureReason
		a.Stage = store.StageMatched
		a.Screening.Status = ""
		a.Screening.FailureReason = ""
		if err := e.store.Applications.Update(ctx, q, a); err != nil {
			return err
		}
		return e.store.Events.Append(ctx, q, &appID, "screening_retry_requested", map[string]any{
			"previous_attempts": previousAttempts,
			"previous_failure":  previousFailure,
		})
	})
}

// ResetScreeningAttempts clears the attempt counter (operator override).
func (e *Engine) ResetScreeningAttempts(ctx context.Context, appID int64) error {
	return e.store.WithTx(ctx, func(ctx context.Context, q store.Queryer) error {
		a, err := e.store.Applications.GetByID(ctx, q, appID, true)
		if err != nil {
			return err
		}
		oldAttempts := a.Screening.Attempts
		a.Screening.Attempts = 0
		a.Screening.Status = ""
		a.Screening.FailureReason = ""
		if err := e.store.Applications.Update(ctx, q, a); err != nil {
			return err
		}
		return e.store.Events.Append(ctx, q, &appID, "screening_attempts_reset", map[string]any{
			"old_attempts": oldAttempts,
		})
	})
}

// RescheduleScreening moves the call leg to a specific time slot without
// incrementing the attempt counter.
func (e *Engine) RescheduleScreening(ctx context.Context, appID int64, scheduledAt time.Time, reason string) error {
	if reason == "" {
		reason = "Candidate requested reschedule"
	}
	return e.store.WithTx(ctx, func(ctx context.Context, q store.Queryer) error {
		a, err := e.store.Applications.GetByID(ctx, q, appID, true)
		if err != nil {
			return err
		}
		a.Stage = store.StageScreeningScheduled
		a.Screening.Status = store.ScreeningRescheduled
		a.Screening.FailureReason = ""
		a.AINextAction = fmt.Sprintf("Screening rescheduled — %s", reason)
		if err := e.store.Applications.Update(ctx, q, a); err != nil {
			return err
		}
		return e.store.Events.Append(ctx, q, &appID, "screening_rescheduled", map[string]any{
			"scheduled_at": scheduledAt,
			"reason":       reason,
			"attempt":      a.Screening.Attempts,
		})
	})
}
