package model

import (
	"time"

	"github.com/andreypavlenko/jobber/internal/store"
)

// CandidateDTO is the wire shape for a Candidate.
type CandidateDTO struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone,omitempty"`
	ResumeFilename string    `json:"resume_filename,omitempty"`
	SourceEmailID  *int64    `json:"source_email_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ToDTO converts a store.Candidate to its wire shape. Resume text is
// deliberately left off the list/get DTO; it can run to tens of KB and the
// dashboard has no use for the raw extraction.
func ToDTO(c *store.Candidate) *CandidateDTO {
	return &CandidateDTO{
		ID:             c.ID,
		Name:           c.Name,
		Email:          c.Email,
		Phone:          c.Phone,
		ResumeFilename: c.ResumeFilename,
		SourceEmailID:  c.SourceEmailID,
		CreatedAt:      c.CreatedAt,
	}
}
