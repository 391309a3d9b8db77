// Package service wires the recruiter dashboard's manual triggers to the
// engines that actually run the pipeline: generating and sending interview
// links, booking a confirmed slot, kicking off the decision engine, and the
// outbound emails an operator sends by hand.
package service

import (
	"context"
	"time"

	"github.com/andreypavlenko/jobber/internal/decision"
	"github.com/andreypavlenko/jobber/internal/mailer"
	"github.com/andreypavlenko/jobber/internal/screening"
	"github.com/andreypavlenko/jobber/internal/store"
)

type DashboardService struct {
	store     *store.Store
	screening *screening.LinkEngine
	decision  *decision.Engine
	mailer    *mailer.Mailer
	linkURLFor func(token string) string
}

func NewDashboardService(s *store.Store, sc *screening.LinkEngine, d *decision.Engine, m *mailer.Mailer, linkURLFor func(token string) string) *DashboardService {
	return &DashboardService{store: s, screening: sc, decision: d, mailer: m, linkURLFor: linkURLFor}
}

func (s *DashboardService) GenerateLink(ctx context.Context, appID int64, round int) (*store.InterviewLink, error) {
	return s.screening.GenerateLink(ctx, appID, round, store.DefaultLinkExpiry)
}

func (s *DashboardService) SendLink(ctx context.Context, token string) error {
	return s.screening.SendLink(ctx, token, s.linkURLFor(token))
}

// LinkURL builds the public URL a token resolves to, for callers that need
// to hand it back to the recruiter directly (e.g. to paste into a manual
// email) rather than have SendLink dispatch it.
func (s *DashboardService) LinkURL(token string) string {
	return s.linkURLFor(token)
}

func (s *DashboardService) Evaluate(ctx context.Context, appID int64) error {
	return s.decision.Evaluate(ctx, appID)
}

func (s *DashboardService) RetryScreening(ctx context.Context, appID int64) error {
	return s.decision.RetryScreening(ctx, appID)
}

func (s *DashboardService) ResetScreeningAttempts(ctx context.Context, appID int64) error {
	return s.decision.ResetScreeningAttempts(ctx, appID)
}

func (s *DashboardService) RescheduleScreening(ctx context.Context, appID int64, scheduledAt time.Time, reason string) error {
	return s.decision.RescheduleScreening(ctx, appID, scheduledAt, reason)
}

// BookSlot records the recruiter-confirmed interview slot on the Application.
func (s *DashboardService) BookSlot(ctx context.Context, appID int64, slot string) error {
	return s.store.WithTx(ctx, func(ctx context.Context, q store.Queryer) error {
		a, err := s.store.Applications.GetByID(ctx, q, appID, true)
		if err != nil {
			return err
		}
		a.BookedSlot = &store.BookedSlot{Slot: slot}
		if err := s.store.Applications.Update(ctx, q, a); err != nil {
			return err
		}
		return s.store.Events.Append(ctx, q, &appID, "slot_booked", map[string]any{"slot": slot})
	})
}

// SendRejection sends the standard rejection notice for an application.
func (s *DashboardService) SendRejection(ctx context.Context, appID int64) error {
	a, candidate, job, err := s.loadTriple(ctx, appID)
	if err != nil {
		return err
	}
	if err := s.mailer.SendRejection(ctx, candidate.Email, candidate.Name, job.Title); err != nil {
		return err
	}
	return s.markEmailSent(ctx, a.ID, "rejection_email_sent", nil)
}

// SendDraft sends the decision engine's drafted advance email verbatim.
func (s *DashboardService) SendDraft(ctx context.Context, appID int64) error {
	a, candidate, _, err := s.loadTriple(ctx, appID)
	if err != nil {
		return err
	}
	if a.InterviewScoreJSON == nil || a.InterviewScoreJSON.EmailDraft == "" {
		return decision.ErrNoTranscript
	}
	subject := "Next steps on your application"
	if err := s.mailer.SendAdvanceEmail(ctx, candidate.Email, subject, a.InterviewScoreJSON.EmailDraft); err != nil {
		return err
	}
	return s.markEmailSent(ctx, a.ID, "draft_email_sent", nil)
}

// SendCustom sends an operator-authored ad hoc email.
func (s *DashboardService) SendCustom(ctx context.Context, appID int64, subject, body string) error {
	a, candidate, _, err := s.loadTriple(ctx, appID)
	if err != nil {
		return err
	}
	if err := s.mailer.SendCustom(ctx, candidate.Email, subject, body); err != nil {
		return err
	}
	return s.markEmailSent(ctx, a.ID, "custom_email_sent", map[string]any{"subject": subject})
}

func (s *DashboardService) loadTriple(ctx context.Context, appID int64) (*store.Application, *store.Candidate, *store.Job, error) {
	a, err := s.store.Applications.GetByID(ctx, s.store.Pool, appID, false)
	if err != nil {
		return nil, nil, nil, err
	}
	candidate, err := s.store.Candidates.GetByID(ctx, s.store.Pool, a.CandidateID)
	if err != nil {
		return nil, nil, nil, err
	}
	job, err := s.store.Jobs.GetByID(ctx, s.store.Pool, a.JobID)
	if err != nil {
		return nil, nil, nil, err
	}
	return a, candidate, job, nil
}

func (s *DashboardService) markEmailSent(ctx context.Context, appID int64, eventType string, extra map[string]any) error {
	return s.store.WithTx(ctx, func(ctx context.Context, q store.Queryer) error {
		a, err := s.store.Applications.GetByID(ctx, q, appID, true)
		if err != nil {
			return err
		}
		a.EmailDraftSent = true
		if err := s.store.Applications.Update(ctx, q, a); err != nil {
			return err
		}
		return s.store.Events.Append(ctx, q, &appID, eventType, extra)
	})
}
