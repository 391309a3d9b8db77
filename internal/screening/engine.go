// Package screening implements the interview-link state machine: issuance,
// public validation, telemetry aggregation, and transcript submission.
// Grounded on original_source/backend/routers/screening.py's link lifecycle
// and a single-writer Store discipline to keep link state transitions race-free.
package screening

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/andreypavlenko/jobber/internal/decision"
	"github.com/andreypavlenko/jobber/internal/mailer"
	"github.com/andreypavlenko/jobber/internal/store"
)

var (
	ErrLinkInvalid    = errors.New("link invalid")
	ErrLinkExpired    = errors.New("link expired")
	ErrLinkCompleted  = errors.New("interview already completed")
	ErrTranscriptHeld = errors.New("transcript already submitted")
)

// snapshotBufferSize bounds the in-process telemetry ring buffer per link.
const snapshotBufferSize = 100

// LinkEngine owns the InterviewLink state machine and the telemetry buffers
// that back it.
type LinkEngine struct {
	store    *store.Store
	decision *decision.Engine
	mailer   *mailer.Mailer

	telemetryMu sync.Mutex
	telemetry   map[string][]store.TelemetrySnapshot
}

func New(s *store.Store, d *decision.Engine, m *mailer.Mailer) *LinkEngine {
	return &LinkEngine{
		store:     s,
		decision:  d,
		mailer:    m,
		telemetry: make(map[string][]store.TelemetrySnapshot),
	}
}

// GenerateLink issues a new InterviewLink for appID, expiring any prior
// non-terminal link in the same transaction.
func (e *LinkEngine) GenerateLink(ctx context.Context, appID int64, round int, expiry time.Duration) (*store.InterviewLink, error) {
	var link *store.InterviewLink
	err := e.store.WithTx(ctx, func(ctx context.Context, q store.Queryer) error {
		l, err := e.store.InterviewLinks.Issue(ctx, q, appID, round, expiry)
		if err != nil {
			return err
		}
		a, err := e.store.Applications.GetByID(ctx, q, appID, true)
		if err != nil {
			return err
		}
		a.InterviewLinkStatus = store.LinkGenerated
		if err := e.store.Applications.Update(ctx, q, a); err != nil {
			return err
		}
		link = l
		return e.store.Events.Append(ctx, q, &appID, "interview_link_generated", map[string]any{"token": l.Token, "round": round})
	})
	return link, err
}

// SendLink emails the candidate their interview link and flips the link's
// status to sent. Non-fatal on mail failure: the link remains valid.
func (e *LinkEngine) SendLink(ctx context.Context, token, linkURL string) error {
	var link *store.InterviewLink
	var candidate *store.Candidate
	var job *store.Job
	err := e.store.WithTx(ctx, func(ctx context.Context, q store.Queryer) error {
		l, err := e.store.InterviewLinks.GetByToken(ctx, q, token)
		if err != nil {
			return err
		}
		a, err := e.store.Applications.GetByID(ctx, q, l.AppID, false)
		if err != nil {
			return err
		}
		c, err := e.store.Candidates.GetByID(ctx, q, a.CandidateID)
		if err != nil {
			return err
		}
		j, err := e.store.Jobs.GetByID(ctx, q, a.JobID)
		if err != nil {
			return err
		}
		link, candidate, job = l, c, j
		return nil
	})
	if err != nil {
		return err
	}

	if e.mailer == nil || candidate.Email == "" {
		return nil
	}
	sendErr := e.mailer.SendInterviewLink(ctx, candidate.Email, candidate.Name, job.Title, linkURL)

	return e.store.WithTx(ctx, func(ctx context.Context, q store.Queryer) error {
		l, err := e.store.InterviewLinks.GetByToken(ctx, q, token)
		if err != nil {
			return err
		}
		a, err := e.store.Applications.GetByID(ctx, q, l.AppID, true)
		if err != nil {
			return err
		}
		eventType := "interview_link_emailed"
		payload := map[string]any{"token": token}
		if sendErr != nil {
			eventType = "interview_link_email_failed"
			payload["error"] = sendErr.Error()
		} else {
			l.Status = store.LinkSent
			a.InterviewLinkStatus = store.LinkSent
			if err := e.store.InterviewLinks.Update(ctx, q, l); err != nil {
				return err
			}
			if err := e.store.Applications.Update(ctx, q, a); err != nil {
				return err
			}
		}
		return e.store.Events.Append(ctx, q, &l.AppID, eventType, payload)
	})
}

// PublicValidation is the sanitized shape returned to the candidate browser.
type PublicValidation struct {
	CandidateFirstName string
	JobTitle           string
	CompanyName        string
	ExternalAgentID    string
	ScreeningQuestions []string
}

// Validate checks a token, transitioning a generated/sent link to opened on
// its first successful validation.
func (e *LinkEngine) Validate(ctx context.Context, token, companyName, externalAgentID string) (*PublicValidation, error) {
	var result *PublicValidation
	err := e.store.WithTx(ctx, func(ctx context.Context, q store.Queryer) error {
		l, err := e.store.InterviewLinks.GetByToken(ctx, q, token)
		if err != nil {
			if errors.Is(err, store.ErrInterviewLinkNotFound) {
				return ErrLinkInvalid
			}
			return err
		}
		if l.ExpireIfPast(time.Now().UTC()) {
			_ = e.store.InterviewLinks.Update(ctx, q, l)
			return ErrLinkExpired
		}
		if l.Status == store.LinkExpired {
			return ErrLinkExpired
		}
		if l.Status == store.LinkInterviewCompleted {
			return ErrLinkCompleted
		}

		a, err := e.store.Applications.GetByID(ctx, q, l.AppID, true)
		if err != nil {
			return err
		}
		c, err := e.store.Candidates.GetByID(ctx, q, a.CandidateID)
		if err != nil {
			return err
		}
		j, err := e.store.Jobs.GetByID(ctx, q, a.JobID)
		if err != nil {
			return err
		}

		if l.Status == store.LinkGenerated || l.Status == store.LinkSent {
			now := time.Now().UTC()
			l.Status = store.LinkOpened
			l.OpenedAt = &now
			a.InterviewLinkStatus = store.LinkOpened
			if err := e.store.InterviewLinks.Update(ctx, q, l); err != nil {
				return err
			}
			if err := e.store.Applications.Update(ctx, q, a); err != nil {
				return err
			}
			if err := e.store.Events.Append(ctx, q, &l.AppID, "interview_link_opened", map[string]any{"token": token}); err != nil {
				return err
			}
		}

		var questions []string
		if a.ResumeScoreJSON != nil {
			questions = a.ResumeScoreJSON.ScreeningQuestions
		}
		result = &PublicValidation{
			CandidateFirstName: firstName(c.Name),
			JobTitle:           j.Title,
			CompanyName:        companyName,
			ExternalAgentID:    externalAgentID,
			ScreeningQuestions: questions,
		}
		return nil
	})
	return result, err
}

// StartInterview transitions a link to interview_started, mirroring the
// application's screening status to in_progress.
func (e *LinkEngine) StartInterview(ctx context.Context, token, conversationID string) error {
	return e.store.WithTx(ctx, func(ctx context.Context, q store.Queryer) error {
		l, err := e.store.InterviewLinks.GetByToken(ctx, q, token)
		if err != nil {
			return err
		}
		if l.ExpireIfPast(time.Now().UTC()) {
			_ = e.store.InterviewLinks.Update(ctx, q, l)
			return ErrLinkExpired
		}
		a, err := e.store.Applications.GetByID(ctx, q, l.AppID, true)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		l.Status = store.LinkInterviewStarted
		l.StartedAt = &now
		if conversationID != "" {
			l.ExternalConversationID = conversationID
		}
		a.InterviewLinkStatus = store.LinkInterviewStarted
		a.Screening.Status = store.ScreeningInProgress
		a.Screening.Attempts++
		now2 := now
		a.Screening.LastAttemptAt = &now2

		if err := e.store.InterviewLinks.Update(ctx, q, l); err != nil {
			return err
		}
		if err := e.store.Applications.Update(ctx, q, a); err != nil {
			return err
		}
		return e.store.Events.Append(ctx, q, &l.AppID, "interview_started", map[string]any{"token": token, "conversation_id": conversationID})
	})
}

// SubmitTelemetry appends a face-tracking snapshot to the token's bounded
// ring buffer and recomputes the running aggregates, serialized per token.
func (e *LinkEngine) SubmitTelemetry(ctx context.Context, token string, snap store.TelemetrySnapshot) error {
	e.telemetryMu.Lock()
	buf := append(e.telemetry[token], snap)
	if len(buf) > snapshotBufferSize {
		buf = buf[len(buf)-snapshotBufferSize:]
	}
	e.telemetry[token] = buf
	agg := aggregateTelemetry(buf)
	e.telemetryMu.Unlock()

	return e.store.WithTx(ctx, func(ctx context.Context, q store.Queryer) error {
		l, err := e.store.InterviewLinks.GetByToken(ctx, q, token)
		if err != nil {
			return err
		}
		l.Telemetry = agg
		if err := e.store.InterviewLinks.Update(ctx, q, l); err != nil {
			return err
		}
		a, err := e.store.Applications.GetByID(ctx, q, l.AppID, true)
		if err != nil {
			return err
		}
		a.Telemetry = agg
		return e.store.Applications.Update(ctx, q, a)
	})
}

func aggregateTelemetry(buf []store.TelemetrySnapshot) store.TelemetryAggregate {
	if len(buf) == 0 {
		return store.TelemetryAggregate{}
	}
	var attnSum float64
	var presentCount int
	for _, s := range buf {
		attnSum += s.AttentionScore
		if s.FacePresent {
			presentCount++
		}
	}
	return store.TelemetryAggregate{
		SnapshotCount:      len(buf),
		MeanAttentionScore: attnSum / float64(len(buf)),
		FacePresentPct:     100 * float64(presentCount) / float64(len(buf)),
	}
}

// SubmitTranscript is the idempotence choke point for both the candidate
// browser path and the webhook path. Acquires the per-application lock
// around the "already stored" check so concurrent submissions cannot both
// win. Decision-engine evaluation runs synchronously but its failure never
// rolls back the transcript write.
func (e *LinkEngine) SubmitTranscript(ctx context.Context, token, transcript string) error {
	l, err := e.store.InterviewLinks.GetByToken(ctx, e.store.Pool, token)
	if err != nil {
		return err
	}
	appID := l.AppID

	var alreadyHeld bool
	lockErr := e.store.Locks.With(appID, func() error {
		return e.store.WithTx(ctx, func(ctx context.Context, q store.Queryer) error {
			link, err := e.store.InterviewLinks.GetByToken(ctx, q, token)
			if err != nil {
				return err
			}
			a, err := e.store.Applications.GetByID(ctx, q, appID, true)
			if err != nil {
				return err
			}
			if a.Transcript != "" {
				alreadyHeld = true
				return nil
			}

			now := time.Now().UTC()
			link.Status = store.LinkInterviewCompleted
			link.CompletedAt = &now
			a.Transcript = transcript
			a.Stage = store.StageScreened
			a.InterviewLinkStatus = store.LinkInterviewCompleted
			a.Screening.Status = store.ScreeningCompleted

			if err := e.store.InterviewLinks.Update(ctx, q, link); err != nil {
				return err
			}
			if err := e.store.Applications.Update(ctx, q, a); err != nil {
				return err
			}
			return e.store.Events.Append(ctx, q, &appID, "transcript_submitted", map[string]any{"token": token})
		})
	})
	if lockErr != nil {
		return lockErr
	}
	if alreadyHeld {
		return ErrTranscriptHeld
	}

	if e.decision != nil {
		if err := e.decision.Evaluate(ctx, appID); err != nil {
			_ = e.store.WithTx(ctx, func(ctx context.Context, q store.Queryer) error {
				return e.store.Events.Append(ctx, q, &appID, "evaluation_failed", map[string]any{"error": err.Error()})
			})
		}
	}
	return nil
}

// CallEventTurn is one role/message/timestamp entry from an external
// voice-agent transcript payload.
type CallEventTurn struct {
	Role           string
	Message        string
	TimeInCallSecs float64
}

// CallEvent is the normalized shape of an external voice-agent's post-call
// webhook, independent of the provider's wire format.
type CallEvent struct {
	Type             string // "post_call_transcription", "call_initiation_failure", or anything else (ignored)
	ConversationID   string
	Transcript       []CallEventTurn
	CallSuccessful   bool
	CallDurationSecs float64
	Summary          string
	FailureReason    string
	ErrorMessage     string
}

// shortCallThresholdSecs is the call duration below which an unsuccessful
// call is treated as a no-answer rather than a disappointing conversation.
const shortCallThresholdSecs = 15

// failureReasonStatus maps an external voice-agent's call-failure reason
// onto a ScreeningState.Status.
var failureReasonStatus = map[string]string{
	"no_answer":      store.ScreeningNoAnswer,
	"busy":           store.ScreeningNoAnswer,
	"voicemail":      store.ScreeningVoicemail,
	"invalid_number": store.ScreeningFailed,
	"network_error":  store.ScreeningFailed,
	"timeout":        store.ScreeningNoAnswer,
	"rejected":       store.ScreeningNoAnswer,
	"carrier_error":  store.ScreeningFailed,
}

// failureReasonHuman maps the same reasons onto a recruiter-facing sentence.
var failureReasonHuman = map[string]string{
	"no_answer":      "candidate did not answer the call",
	"busy":            "candidate's line was busy",
	"voicemail":      "call went to voicemail",
	"invalid_number": "phone number is invalid or disconnected",
	"network_error":  "network error during call",
	"timeout":        "call timed out with no response",
	"rejected":       "call was rejected or declined",
	"carrier_error":  "carrier/network error",
}

func formatTranscript(turns []CallEventTurn) string {
	var b strings.Builder
	for _, t := range turns {
		role := t.Role
		if role == "" {
			role = "unknown"
		}
		fmt.Fprintf(&b, "[%.0fs] %s: %s\n", t.TimeInCallSecs, strings.ToUpper(role[:1])+role[1:], t.Message)
	}
	return b.String()
}

// findApplicationByConversation mirrors _find_app_by_conversation: first the
// InterviewLink row carrying the conversation id, then the event log, then
// the most recently updated application still waiting on a call.
func (e *LinkEngine) findApplicationByConversation(ctx context.Context, conversationID string) (*int64, error) {
	if conversationID != "" {
		l, err := e.store.InterviewLinks.GetByConversationID(ctx, e.store.Pool, conversationID)
		if err == nil {
			id := l.AppID
			return &id, nil
		}
		if !errors.Is(err, store.ErrInterviewLinkNotFound) {
			return nil, err
		}
		if appID, err := e.store.Events.FindByConversationID(ctx, e.store.Pool, conversationID); err == nil {
			return appID, nil
		}
	}
	apps, err := e.store.Applications.ListByStage(ctx, e.store.Pool, store.StageScreeningScheduled, 1)
	if err != nil {
		return nil, err
	}
	if len(apps) == 0 {
		return nil, nil
	}
	return &apps[0].ID, nil
}

// HandleCallEvent applies an external voice-agent's post-call webhook. A
// call that failed to connect is recorded with a mapped failure status; a
// short, unsuccessful call is recorded as a no-answer retry candidate; a
// real conversation is stored as the transcript and handed to the decision
// engine. Event types other than the two handled here are accepted and
// ignored, mirroring the original's catch-all "received" response. Mirrors
// the original's elevenlabs_webhook dispatch on payload "type".
func (e *LinkEngine) HandleCallEvent(ctx context.Context, ev CallEvent) error {
	if ev.Type == "call_initiation_failure" {
		return e.handleCallInitiationFailure(ctx, ev)
	}
	if ev.Type != "post_call_transcription" {
		return nil
	}

	appID, err := e.findApplicationByConversation(ctx, ev.ConversationID)
	if err != nil {
		return err
	}
	if appID == nil {
		return nil
	}

	if ev.CallDurationSecs < shortCallThresholdSecs && !ev.CallSuccessful {
		return e.store.WithTx(ctx, func(ctx context.Context, q store.Queryer) error {
			a, err := e.store.Applications.GetByID(ctx, q, *appID, true)
			if err != nil {
				return err
			}
			maxAttempts := a.Screening.MaxAttempts
			if maxAttempts == 0 {
				maxAttempts = store.MaxScreeningAttempts
			}
			a.Screening.Status = store.ScreeningNoAnswer
			a.Screening.FailureReason = "call too short — candidate may not have answered"
			a.AINextAction = fmt.Sprintf("Retry screening (attempt %d/%d)", a.Screening.Attempts, maxAttempts)
			if err := e.store.Applications.Update(ctx, q, a); err != nil {
				return err
			}
			return e.store.Events.Append(ctx, q, appID, "screening_no_answer", map[string]any{
				"conversation_id": ev.ConversationID,
				"duration_secs":   ev.CallDurationSecs,
				"call_successful": false,
				"attempt":         a.Screening.Attempts,
			})
		})
	}

	var alreadyHeld bool
	lockErr := e.store.Locks.With(*appID, func() error {
		return e.store.WithTx(ctx, func(ctx context.Context, q store.Queryer) error {
			a, err := e.store.Applications.GetByID(ctx, q, *appID, true)
			if err != nil {
				return err
			}
			if a.Transcript != "" {
				alreadyHeld = true
				return nil
			}
			a.Transcript = formatTranscript(ev.Transcript)
			a.Stage = store.StageScreened
			a.InterviewLinkStatus = store.LinkInterviewCompleted
			a.Screening.Status = store.ScreeningCompleted
			a.Screening.FailureReason = ""
			if err := e.store.Applications.Update(ctx, q, a); err != nil {
				return err
			}
			if l, err := e.store.InterviewLinks.GetByConversationID(ctx, q, ev.ConversationID); err == nil {
				now := time.Now().UTC()
				l.Status = store.LinkInterviewCompleted
				l.CompletedAt = &now
				if err := e.store.InterviewLinks.Update(ctx, q, l); err != nil {
					return err
				}
			} else if !errors.Is(err, store.ErrInterviewLinkNotFound) {
				return err
			}
			return e.store.Events.Append(ctx, q, appID, "webhook_transcript_received", map[string]any{
				"conversation_id": ev.ConversationID,
				"duration_secs":   ev.CallDurationSecs,
				"call_successful": ev.CallSuccessful,
				"summary":         ev.Summary,
				"attempt":         a.Screening.Attempts,
			})
		})
	})
	if lockErr != nil {
		return lockErr
	}
	if alreadyHeld {
		return nil
	}

	if e.decision != nil {
		if err := e.decision.Evaluate(ctx, *appID); err != nil {
			_ = e.store.WithTx(ctx, func(ctx context.Context, q store.Queryer) error {
				return e.store.Events.Append(ctx, q, appID, "evaluation_failed", map[string]any{"error": err.Error()})
			})
		}
	}
	return nil
}

// handleCallInitiationFailure records a call that never connected, mapping
// the provider's failure reason onto a ScreeningState.Status and, once the
// attempt ceiling is hit on a no_answer/voicemail run, resetting the
// Application to matched so a recruiter can choose an off-platform path.
func (e *LinkEngine) handleCallInitiationFailure(ctx context.Context, ev CallEvent) error {
	appID, err := e.findApplicationByConversation(ctx, ev.ConversationID)
	if err != nil {
		return err
	}
	if appID == nil {
		return nil
	}

	status, ok := failureReasonStatus[ev.FailureReason]
	if !ok {
		status = store.ScreeningFailed
	}
	humanReason, ok := failureReasonHuman[ev.FailureReason]
	if !ok {
		humanReason = fmt.Sprintf("call failed: %s", ev.FailureReason)
	}

	return e.store.WithTx(ctx, func(ctx context.Context, q store.Queryer) error {
		a, err := e.store.Applications.GetByID(ctx, q, *appID, true)
		if err != nil {
			return err
		}
		maxAttempts := a.Screening.MaxAttempts
		if maxAttempts == 0 {
			maxAttempts = store.MaxScreeningAttempts
		}
		attempts := a.Screening.Attempts
		remaining := maxAttempts - attempts

		a.Screening.Status = status
		a.Screening.FailureReason = humanReason
		if remaining > 0 {
			a.AINextAction = fmt.Sprintf("Retry screening call (%d attempts remaining)", remaining)
		} else {
			a.AINextAction = "Maximum call attempts reached — contact candidate via email"
			if status == store.ScreeningNoAnswer || status == store.ScreeningVoicemail {
				a.Stage = store.StageMatched
				a.Screening.Status = "exhausted"
				a.Screening.FailureReason = fmt.Sprintf("candidate unreachable after %d attempts; last reason: %s", maxAttempts, humanReason)
			}
		}
		if err := e.store.Applications.Update(ctx, q, a); err != nil {
			return err
		}
		return e.store.Events.Append(ctx, q, appID, "screening_call_failed", map[string]any{
			"conversation_id":   ev.ConversationID,
			"failure_reason":    ev.FailureReason,
			"error_message":     ev.ErrorMessage,
			"human_reason":      humanReason,
			"attempt":           attempts,
			"remaining_attempts": remaining,
		})
	})
}

func firstName(full string) string {
	for i, r := range full {
		if r == ' ' {
			return full[:i]
		}
	}
	return full
}

