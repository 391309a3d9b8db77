// Package service is the recruiter-facing read layer over the append-only
// event log every engine (ingest, screening, decision) writes to.
package service

import (
	"context"

	"github.com/andreypavlenko/jobber/internal/store"
)

type EventService struct {
	store *store.Store
}

func NewEventService(s *store.Store) *EventService {
	return &EventService{store: s}
}

func (s *EventService) ListByApplication(ctx context.Context, appID int64) ([]*store.Event, error) {
	return s.store.Events.ListByApplication(ctx, s.store.Pool, appID)
}
