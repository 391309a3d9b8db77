package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// ErrSettingNotFound is returned when a settings key has no row.
var ErrSettingNotFound = errors.New("setting not found")

// SettingsRepository is a plain key/value table used for ambient state that
// isn't its own aggregate: the mailbox listener's watermark, feature toggles,
// and the like.
type SettingsRepository struct{}

// Get returns the raw string value for key.
func (r *SettingsRepository) Get(ctx context.Context, q Queryer, key string) (string, error) {
	var value string
	err := q.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrSettingNotFound
		}
		return "", err
	}
	return value, nil
}

// GetOr returns the value for key, or fallback if the key doesn't exist.
func (r *SettingsRepository) GetOr(ctx context.Context, q Queryer, key, fallback string) string {
	v, err := r.Get(ctx, q, key)
	if err != nil {
		return fallback
	}
	return v
}

// Set upserts key to value.
func (r *SettingsRepository) Set(ctx context.Context, q Queryer, key, value string) error {
	_, err := q.Exec(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, key, value)
	return err
}
