// Package service is the recruiter-facing read/override layer over
// Applications; the pipeline's own writes go through internal/ingest,
// internal/screening and internal/decision directly.
package service

import (
	"context"

	"github.com/andreypavlenko/jobber/internal/store"
)

type ApplicationService struct {
	store *store.Store
}

func NewApplicationService(s *store.Store) *ApplicationService {
	return &ApplicationService{store: s}
}

// Detail bundles an Application with its resolved Job and Candidate.
type Detail struct {
	Application *store.Application
	Job         *store.Job
	Candidate   *store.Candidate
}

func (s *ApplicationService) resolve(ctx context.Context, a *store.Application) (*Detail, error) {
	job, err := s.store.Jobs.GetByID(ctx, s.store.Pool, a.JobID)
	if err != nil {
		return nil, err
	}
	candidate, err := s.store.Candidates.GetByID(ctx, s.store.Pool, a.CandidateID)
	if err != nil {
		return nil, err
	}
	return &Detail{Application: a, Job: job, Candidate: candidate}, nil
}

func (s *ApplicationService) GetByID(ctx context.Context, id int64) (*Detail, error) {
	a, err := s.store.Applications.GetByID(ctx, s.store.Pool, id, false)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, a)
}

func (s *ApplicationService) List(ctx context.Context, stage string, jobID int64, limit, offset int) ([]*Detail, int, error) {
	apps, total, err := s.store.Applications.List(ctx, s.store.Pool, stage, jobID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	out := make([]*Detail, 0, len(apps))
	for _, a := range apps {
		d, err := s.resolve(ctx, a)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, nil
}

// UpdateStage lets a recruiter manually override the pipeline's stage,
// recording the override in the event log.
func (s *ApplicationService) UpdateStage(ctx context.Context, id int64, stage string) (*Detail, error) {
	var detail *Detail
	err := s.store.WithTx(ctx, func(ctx context.Context, q store.Queryer) error {
		a, err := s.store.Applications.GetByID(ctx, q, id, true)
		if err != nil {
			return err
		}
		previous := a.Stage
		a.Stage = stage
		if err := s.store.Applications.Update(ctx, q, a); err != nil {
			return err
		}
		if err := s.store.Events.Append(ctx, q, &id, "stage_manually_overridden", map[string]any{"from": previous, "to": stage}); err != nil {
			return err
		}
		job, err := s.store.Jobs.GetByID(ctx, q, a.JobID)
		if err != nil {
			return err
		}
		candidate, err := s.store.Candidates.GetByID(ctx, q, a.CandidateID)
		if err != nil {
			return err
		}
		detail = &Detail{Application: a, Job: job, Candidate: candidate}
		return nil
	})
	return detail, err
}
