package model

import (
	"time"

	"github.com/andreypavlenko/jobber/internal/store"
)

// JobDTO is the wire shape for a Job, returned to the recruiter dashboard.
type JobDTO struct {
	ID           int64     `json:"id"`
	Code         string    `json:"code"`
	Title        string    `json:"title"`
	Department   string    `json:"department"`
	Seniority    string    `json:"seniority"`
	Skills       []string  `json:"skills"`
	Description  string    `json:"description"`
	ResumeMin    float64   `json:"resume_min"`
	InterviewMin float64   `json:"interview_min"`
	RejectBelow  float64   `json:"reject_below"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ToDTO converts a store.Job to its wire shape.
func ToDTO(j *store.Job) *JobDTO {
	return &JobDTO{
		ID:           j.ID,
		Code:         j.Code,
		Title:        j.Title,
		Department:   j.Department,
		Seniority:    j.Seniority,
		Skills:       j.Skills,
		Description:  j.Description,
		ResumeMin:    j.ResumeMin,
		InterviewMin: j.InterviewMin,
		RejectBelow:  j.RejectBelow,
		Status:       j.Status,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
	}
}

// CreateJobRequest opens a new posting. Generated descriptions go through
// the job-generator oracle first; this request carries the final text.
type CreateJobRequest struct {
	Code         string   `json:"code" binding:"required,min=1,max=64"`
	Title        string   `json:"title" binding:"required,min=1,max=255"`
	Department   string   `json:"department" binding:"max=255"`
	Seniority    string   `json:"seniority" binding:"omitempty,oneof=junior mid senior lead"`
	Skills       []string `json:"skills"`
	Description  string   `json:"description"`
	ResumeMin    float64  `json:"resume_min"`
	InterviewMin float64  `json:"interview_min"`
	RejectBelow  float64  `json:"reject_below"`
}

// UpdateJobRequest patches a Job's mutable fields.
type UpdateJobRequest struct {
	Title        *string   `json:"title,omitempty"`
	Department   *string   `json:"department,omitempty"`
	Seniority    *string   `json:"seniority,omitempty" binding:"omitempty,oneof=junior mid senior lead"`
	Skills       *[]string `json:"skills,omitempty"`
	Description  *string   `json:"description,omitempty"`
	ResumeMin    *float64  `json:"resume_min,omitempty"`
	InterviewMin *float64  `json:"interview_min,omitempty"`
	RejectBelow  *float64  `json:"reject_below,omitempty"`
	Status       *string   `json:"status,omitempty" binding:"omitempty,oneof=open closed paused"`
}

// GenerateDescriptionRequest asks the job-generator oracle to draft a
// description/skill list from a job title alone.
type GenerateDescriptionRequest struct {
	Title string `json:"title" binding:"required"`
}
