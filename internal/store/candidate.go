package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

var ErrCandidateNotFound = errors.New("candidate not found")

// Candidate is a person derived from a classified inbound email.
type Candidate struct {
	ID             int64
	Name           string
	Email          string
	Phone          string
	ResumeText     string
	ResumeFilename string
	SourceEmailID  *int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CandidateRepository persists Candidate aggregates.
type CandidateRepository struct{}

func (r *CandidateRepository) Create(ctx context.Context, q Queryer, c *Candidate) error {
	return q.QueryRow(ctx, `
		INSERT INTO candidates (name, email, phone, resume_text, resume_filename, source_email_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6, now(), now())
		RETURNING id, created_at, updated_at
	`, c.Name, c.Email, c.Phone, c.ResumeText, c.ResumeFilename, c.SourceEmailID,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *CandidateRepository) GetByID(ctx context.Context, q Queryer, id int64) (*Candidate, error) {
	c := &Candidate{}
	err := q.QueryRow(ctx, `
		SELECT id, name, email, phone, resume_text, resume_filename, source_email_id, created_at, updated_at
		FROM candidates WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.ResumeText, &c.ResumeFilename, &c.SourceEmailID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCandidateNotFound
		}
		return nil, err
	}
	return c, nil
}

// List returns Candidates ordered newest first, paginated.
func (r *CandidateRepository) List(ctx context.Context, q Queryer, limit, offset int) ([]*Candidate, int, error) {
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM candidates`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx, `
		SELECT id, name, email, phone, resume_text, resume_filename, source_email_id, created_at, updated_at
		FROM candidates ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Candidate
	for rows.Next() {
		c := &Candidate{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.ResumeText, &c.ResumeFilename, &c.SourceEmailID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// GetBySourceEmail returns the at-most-one Candidate materialized from emailID.
func (r *CandidateRepository) GetBySourceEmail(ctx context.Context, q Queryer, emailID int64) (*Candidate, error) {
	c := &Candidate{}
	err := q.QueryRow(ctx, `
		SELECT id, name, email, phone, resume_text, resume_filename, source_email_id, created_at, updated_at
		FROM candidates WHERE source_email_id = $1
	`, emailID).Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.ResumeText, &c.ResumeFilename, &c.SourceEmailID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCandidateNotFound
		}
		return nil, err
	}
	return c, nil
}
