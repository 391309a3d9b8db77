package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

var (
	ErrJobNotFound   = errors.New("job not found")
	ErrJobCodeExists = errors.New("job code already exists")
)

// Seniority levels a Job may require.
const (
	SeniorityJunior = "junior"
	SeniorityMid    = "mid"
	SenioritySenior = "senior"
	SeniorityLead   = "lead"
)

// Job statuses.
const (
	JobStatusOpen   = "open"
	JobStatusClosed = "closed"
	JobStatusPaused = "paused"
)

// Thresholds holds the three decision-engine cutoffs for a Job.
type Thresholds struct {
	ResumeMin    float64
	InterviewMin float64
	RejectBelow  float64
}

// Job is a recruiting job posting.
type Job struct {
	ID          int64
	Code        string
	Title       string
	Department  string
	Seniority   string
	Skills      []string
	Description string
	ResumeMin   float64
	InterviewMin float64
	RejectBelow float64
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Thresholds returns the Job's decision thresholds, falling back to the
// package defaults when the stored values are zero (unset).
func (j *Job) Thresholds(defaults Thresholds) Thresholds {
	t := defaults
	if j.ResumeMin != 0 {
		t.ResumeMin = j.ResumeMin
	}
	if j.InterviewMin != 0 {
		t.InterviewMin = j.InterviewMin
	}
	if j.RejectBelow != 0 {
		t.RejectBelow = j.RejectBelow
	}
	return t
}

// JobRepository persists Job aggregates.
type JobRepository struct{}

func (r *JobRepository) Create(ctx context.Context, q Queryer, j *Job) error {
	err := q.QueryRow(ctx, `
		INSERT INTO jobs (code, title, department, seniority, skills, description, resume_min, interview_min, reject_below, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10, now(), now())
		RETURNING id, created_at, updated_at
	`, j.Code, j.Title, j.Department, j.Seniority, j.Skills, j.Description, j.ResumeMin, j.InterviewMin, j.RejectBelow, j.Status,
	).Scan(&j.ID, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrJobCodeExists
		}
		return err
	}
	return nil
}

func (r *JobRepository) GetByID(ctx context.Context, q Queryer, id int64) (*Job, error) {
	j := &Job{}
	err := q.QueryRow(ctx, `
		SELECT id, code, title, department, seniority, skills, description, resume_min, interview_min, reject_below, status, created_at, updated_at
		FROM jobs WHERE id = $1
	`, id).Scan(&j.ID, &j.Code, &j.Title, &j.Department, &j.Seniority, &j.Skills, &j.Description, &j.ResumeMin, &j.InterviewMin, &j.RejectBelow, &j.Status, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return j, nil
}

// ListOpen returns every Job with status = open.
func (r *JobRepository) ListOpen(ctx context.Context, q Queryer) ([]*Job, error) {
	rows, err := q.Query(ctx, `
		SELECT id, code, title, department, seniority, skills, description, resume_min, interview_min, reject_below, status, created_at, updated_at
		FROM jobs WHERE status = $1 ORDER BY created_at DESC
	`, JobStatusOpen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		j := &Job{}
		if err := rows.Scan(&j.ID, &j.Code, &j.Title, &j.Department, &j.Seniority, &j.Skills, &j.Description, &j.ResumeMin, &j.InterviewMin, &j.RejectBelow, &j.Status, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// List returns Jobs filtered by status ("" or "all" = no filter).
func (r *JobRepository) List(ctx context.Context, q Queryer, status string, limit, offset int) ([]*Job, int, error) {
	where := ""
	args := []any{}
	if status != "" && status != "all" {
		where = "WHERE status = $1"
		args = append(args, status)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM jobs " + where
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	listQuery := `
		SELECT id, code, title, department, seniority, skills, description, resume_min, interview_min, reject_below, status, created_at, updated_at
		FROM jobs ` + where + `
		ORDER BY created_at DESC LIMIT $` + itoa(len(args)-1) + ` OFFSET $` + itoa(len(args))

	rows, err := q.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		j := &Job{}
		if err := rows.Scan(&j.ID, &j.Code, &j.Title, &j.Department, &j.Seniority, &j.Skills, &j.Description, &j.ResumeMin, &j.InterviewMin, &j.RejectBelow, &j.Status, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, j)
	}
	return out, total, rows.Err()
}

func (r *JobRepository) Update(ctx context.Context, q Queryer, j *Job) error {
	_, err := q.Exec(ctx, `
		UPDATE jobs SET title=$2, department=$3, seniority=$4, skills=$5, description=$6,
			resume_min=$7, interview_min=$8, reject_below=$9, status=$10, updated_at=now()
		WHERE id=$1
	`, j.ID, j.Title, j.Department, j.Seniority, j.Skills, j.Description, j.ResumeMin, j.InterviewMin, j.RejectBelow, j.Status)
	return err
}
