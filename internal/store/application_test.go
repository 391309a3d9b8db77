package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplicationRepository_Create(t *testing.T) {
	t.Run("defaults stage and max attempts when unset", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		now := time.Now()
		a := &Application{CandidateID: 1, JobID: 2}

		mock.ExpectQuery("INSERT INTO applications").
			WithArgs(a.CandidateID, a.JobID, StageMatched, a.ResumeScore, pgxmock.AnyArg(), a.Recommendation, a.AINextAction, pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(5), now, now))

		repo := &ApplicationRepository{}
		err = repo.Create(context.Background(), mock, a)

		require.NoError(t, err)
		assert.Equal(t, StageMatched, a.Stage)
		assert.Equal(t, MaxScreeningAttempts, a.Screening.MaxAttempts)
		assert.Equal(t, int64(5), a.ID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("preserves an explicit stage", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		now := time.Now()
		a := &Application{CandidateID: 1, JobID: 2, Stage: StageShortlisted}

		mock.ExpectQuery("INSERT INTO applications").
			WithArgs(a.CandidateID, a.JobID, StageShortlisted, a.ResumeScore, pgxmock.AnyArg(), a.Recommendation, a.AINextAction, pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(6), now, now))

		repo := &ApplicationRepository{}
		err = repo.Create(context.Background(), mock, a)

		require.NoError(t, err)
		assert.Equal(t, StageShortlisted, a.Stage)
	})

	t.Run("maps a unique violation to ErrApplicationExists", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		a := &Application{CandidateID: 1, JobID: 2}

		mock.ExpectQuery("INSERT INTO applications").
			WithArgs(a.CandidateID, a.JobID, StageMatched, a.ResumeScore, pgxmock.AnyArg(), a.Recommendation, a.AINextAction, pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		repo := &ApplicationRepository{}
		err = repo.Create(context.Background(), mock, a)

		assert.ErrorIs(t, err, ErrApplicationExists)
	})
}

func TestScreeningState_Retryable(t *testing.T) {
	tests := []struct {
		status   string
		expected bool
	}{
		{"", true},
		{ScreeningNoAnswer, true},
		{ScreeningFailed, true},
		{ScreeningVoicemail, true},
		{ScreeningInProgress, false},
		{ScreeningCompleted, false},
		{"exhausted", false},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			s := ScreeningState{Status: tt.status}
			assert.Equal(t, tt.expected, s.Retryable())
		})
	}
}

func TestJob_Thresholds(t *testing.T) {
	defaults := Thresholds{ResumeMin: 0.5, InterviewMin: 0.6, RejectBelow: 0.3}

	t.Run("uses defaults when job has no overrides", func(t *testing.T) {
		j := &Job{}
		assert.Equal(t, defaults, j.Thresholds(defaults))
	})

	t.Run("overrides only the fields the job sets", func(t *testing.T) {
		j := &Job{ResumeMin: 0.7}
		got := j.Thresholds(defaults)
		assert.Equal(t, 0.7, got.ResumeMin)
		assert.Equal(t, defaults.InterviewMin, got.InterviewMin)
		assert.Equal(t, defaults.RejectBelow, got.RejectBelow)
	})
}
