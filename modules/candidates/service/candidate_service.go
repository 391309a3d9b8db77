// Package service is the recruiter-facing read layer over materialized
// candidates; materialization itself happens inside internal/ingest.
package service

import (
	"context"

	"github.com/andreypavlenko/jobber/internal/store"
)

type CandidateService struct {
	store *store.Store
}

func NewCandidateService(s *store.Store) *CandidateService {
	return &CandidateService{store: s}
}

func (s *CandidateService) List(ctx context.Context, limit, offset int) ([]*store.Candidate, int, error) {
	return s.store.Candidates.List(ctx, s.store.Pool, limit, offset)
}

func (s *CandidateService) GetByID(ctx context.Context, id int64) (*store.Candidate, error) {
	return s.store.Candidates.GetByID(ctx, s.store.Pool, id)
}
