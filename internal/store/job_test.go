package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobRepository_Create(t *testing.T) {
	t.Run("populates id and timestamps on success", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		now := time.Now()
		j := &Job{
			Code: "ENG-01", Title: "Backend Engineer", Department: "Engineering",
			Seniority: SeniorityMid, Skills: []string{"go", "postgres"},
			Description: "Own the pipeline.", ResumeMin: 0.5, InterviewMin: 0.6, RejectBelow: 0.3,
			Status: JobStatusOpen,
		}

		mock.ExpectQuery("INSERT INTO jobs").
			WithArgs(j.Code, j.Title, j.Department, j.Seniority, j.Skills, j.Description, j.ResumeMin, j.InterviewMin, j.RejectBelow, j.Status).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(7), now, now))

		repo := &JobRepository{}
		err = repo.Create(context.Background(), mock, j)

		require.NoError(t, err)
		assert.Equal(t, int64(7), j.ID)
		assert.Equal(t, now, j.CreatedAt)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps a unique violation on code to ErrJobCodeExists", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		j := &Job{Code: "ENG-01", Title: "Backend Engineer", Status: JobStatusOpen}

		mock.ExpectQuery("INSERT INTO jobs").
			WithArgs(j.Code, j.Title, j.Department, j.Seniority, j.Skills, j.Description, j.ResumeMin, j.InterviewMin, j.RejectBelow, j.Status).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		repo := &JobRepository{}
		err = repo.Create(context.Background(), mock, j)

		assert.ErrorIs(t, err, ErrJobCodeExists)
	})
}

func TestJobRepository_GetByID(t *testing.T) {
	t.Run("returns the job on success", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		now := time.Now()
		rows := pgxmock.NewRows([]string{
			"id", "code", "title", "department", "seniority", "skills", "description",
			"resume_min", "interview_min", "reject_below", "status", "created_at", "updated_at",
		}).AddRow(int64(3), "ENG-01", "Backend Engineer", "Engineering", SeniorityMid,
			[]string{"go"}, "desc", 0.5, 0.6, 0.3, JobStatusOpen, now, now)

		mock.ExpectQuery("FROM jobs WHERE id = \\$1").
			WithArgs(int64(3)).
			WillReturnRows(rows)

		repo := &JobRepository{}
		j, err := repo.GetByID(context.Background(), mock, 3)

		require.NoError(t, err)
		assert.Equal(t, "ENG-01", j.Code)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps no rows to ErrJobNotFound", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery("FROM jobs WHERE id = \\$1").
			WithArgs(int64(99)).
			WillReturnError(pgx.ErrNoRows)

		repo := &JobRepository{}
		_, err = repo.GetByID(context.Background(), mock, 99)

		assert.ErrorIs(t, err, ErrJobNotFound)
	})
}
