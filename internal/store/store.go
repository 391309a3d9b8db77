// Package store is the persistence layer for the recruiting pipeline: a thin
// transactional wrapper around pgx plus one repository type per aggregate.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Queryer is satisfied by both *pgxpool.Pool and pgx.Tx, so every repository
// in this package can run either against the pool directly or inside a
// transaction started by WithTx.
type Queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store bundles the connection pool and every aggregate repository.
type Store struct {
	Pool *pgxpool.Pool

	Jobs            *JobRepository
	Candidates      *CandidateRepository
	Emails          *EmailRepository
	Applications    *ApplicationRepository
	InterviewLinks  *InterviewLinkRepository
	Events          *EventRepository
	Settings        *SettingsRepository
	Locks           *AppLocks
}

// New wires a Store over an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{
		Pool:           pool,
		Jobs:           &JobRepository{},
		Candidates:     &CandidateRepository{},
		Emails:         &EmailRepository{},
		Applications:   &ApplicationRepository{},
		InterviewLinks: &InterviewLinkRepository{},
		Events:         &EventRepository{},
		Settings:       &SettingsRepository{},
		Locks:          NewAppLocks(),
	}
}

// WithTx runs fn inside a database transaction, committing on success and
// rolling back on any error or panic. Grounded on cmd/seed's
// pool.Begin(ctx)/tx.Rollback(ctx) pattern, generalized into a reusable
// contract every engine (ingest, screening, decision) can call.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, q Queryer) error) (err error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		err = tx.Commit(ctx)
	}()

	err = fn(ctx, tx)
	return err
}
