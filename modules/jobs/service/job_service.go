// Package service implements the recruiter-facing business logic over Job
// postings: CRUD plus an oracle-backed description generator.
package service

import (
	"context"

	"github.com/andreypavlenko/jobber/internal/oracle"
	"github.com/andreypavlenko/jobber/internal/store"
	"github.com/andreypavlenko/jobber/modules/jobs/model"
)

// JobService wraps the Job repository with the validation and default-
// filling a handler shouldn't have to know about.
type JobService struct {
	store     *store.Store
	generator *oracle.JobGenerator
}

func NewJobService(s *store.Store, generator *oracle.JobGenerator) *JobService {
	return &JobService{store: s, generator: generator}
}

func (s *JobService) Create(ctx context.Context, req model.CreateJobRequest) (*store.Job, error) {
	status := store.JobStatusOpen
	j := &store.Job{
		Code:         req.Code,
		Title:        req.Title,
		Department:   req.Department,
		Seniority:    req.Seniority,
		Skills:       req.Skills,
		Description:  req.Description,
		ResumeMin:    req.ResumeMin,
		InterviewMin: req.InterviewMin,
		RejectBelow:  req.RejectBelow,
		Status:       status,
	}
	if err := s.store.Jobs.Create(ctx, s.store.Pool, j); err != nil {
		return nil, err
	}
	return j, nil
}

func (s *JobService) GetByID(ctx context.Context, id int64) (*store.Job, error) {
	return s.store.Jobs.GetByID(ctx, s.store.Pool, id)
}

func (s *JobService) List(ctx context.Context, status string, limit, offset int) ([]*store.Job, int, error) {
	return s.store.Jobs.List(ctx, s.store.Pool, status, limit, offset)
}

func (s *JobService) Update(ctx context.Context, id int64, req model.UpdateJobRequest) (*store.Job, error) {
	j, err := s.store.Jobs.GetByID(ctx, s.store.Pool, id)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		j.Title = *req.Title
	}
	if req.Department != nil {
		j.Department = *req.Department
	}
	if req.Seniority != nil {
		j.Seniority = *req.Seniority
	}
	if req.Skills != nil {
		j.Skills = *req.Skills
	}
	if req.Description != nil {
		j.Description = *req.Description
	}
	if req.ResumeMin != nil {
		j.ResumeMin = *req.ResumeMin
	}
	if req.InterviewMin != nil {
		j.InterviewMin = *req.InterviewMin
	}
	if req.RejectBelow != nil {
		j.RejectBelow = *req.RejectBelow
	}
	if req.Status != nil {
		j.Status = *req.Status
	}
	if err := s.store.Jobs.Update(ctx, s.store.Pool, j); err != nil {
		return nil, err
	}
	return j, nil
}

// GenerateDescription drafts a description/skills/seniority for a bare
// title, for the recruiter to review and hand to Create/Update.
func (s *JobService) GenerateDescription(ctx context.Context, title string) oracle.JobGeneratorOutput {
	return s.generator.Generate(ctx, oracle.JobGeneratorInput{Title: title})
}
