package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/andreypavlenko/jobber/internal/config"
	"github.com/andreypavlenko/jobber/internal/platform/logger"
)

// TestRunMigrations_Up runs every migration in ../../../migrations against a
// throwaway Postgres container and asserts the full set applies cleanly,
// then that a second run is a no-change no-op. Grounded on
// correlator-io-correlator/migrations's testcontainers-based migration test.
func TestRunMigrations_Up(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	pgC, err := pgcontainer.Run(ctx,
		"postgres:16-alpine",
		pgcontainer.WithDatabase("jobber_test"),
		pgcontainer.WithUsername("jobber"),
		pgcontainer.WithPassword("jobber"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(120*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(pgC) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := config.DatabaseConfig{
		Host:     host,
		Port:     port.Port(),
		User:     "jobber",
		Password: "jobber",
		DBName:   "jobber_test",
		SSLMode:  "disable",
	}

	log, err := logger.New("error", "console")
	require.NoError(t, err)

	err = RunMigrations(ctx, cfg, log, "../../../migrations")
	require.NoError(t, err, "migrations should apply cleanly to a fresh database")

	err = RunMigrations(ctx, cfg, log, "../../../migrations")
	require.NoError(t, err, "re-running migrations against an up-to-date schema should be a no-op")
}
