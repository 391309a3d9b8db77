// Package service adapts internal/screening's LinkEngine to the
// candidate-facing and webhook handler surfaces.
package service

import (
	"context"

	"github.com/andreypavlenko/jobber/internal/screening"
	"github.com/andreypavlenko/jobber/internal/store"
)

type ScreeningService struct {
	engine          *screening.LinkEngine
	store           *store.Store
	companyName     string
	externalAgentID string
}

func NewScreeningService(engine *screening.LinkEngine, s *store.Store, companyName, externalAgentID string) *ScreeningService {
	return &ScreeningService{engine: engine, store: s, companyName: companyName, externalAgentID: externalAgentID}
}

func (s *ScreeningService) Validate(ctx context.Context, token string) (*screening.PublicValidation, error) {
	return s.engine.Validate(ctx, token, s.companyName, s.externalAgentID)
}

func (s *ScreeningService) StartInterview(ctx context.Context, token, conversationID string) error {
	return s.engine.StartInterview(ctx, token, conversationID)
}

func (s *ScreeningService) SubmitTelemetry(ctx context.Context, token string, snap store.TelemetrySnapshot) error {
	return s.engine.SubmitTelemetry(ctx, token, snap)
}

func (s *ScreeningService) SubmitTranscript(ctx context.Context, token, transcript string) error {
	return s.engine.SubmitTranscript(ctx, token, transcript)
}

func (s *ScreeningService) HandleCallEvent(ctx context.Context, ev screening.CallEvent) error {
	return s.engine.HandleCallEvent(ctx, ev)
}

// Status resolves the application a token belongs to, so the handler can
// build the original's get_screening_status response.
func (s *ScreeningService) Status(ctx context.Context, token string) (*store.Application, error) {
	link, err := s.store.InterviewLinks.GetByToken(ctx, s.store.Pool, token)
	if err != nil {
		return nil, err
	}
	return s.store.Applications.GetByID(ctx, s.store.Pool, link.AppID, false)
}
