package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetRefreshToken returns the stored long-lived calendar credential for
// a user, or ErrNotFound when the user never connected a calendar.
func (s *Store) GetRefreshToken(ctx context.Context, userID string) (string, error) {
	const q = `SELECT refresh_token FROM user_integrations WHERE user_id = ?;`

	var token string
	err := s.db.QueryRowContext(ctx, q, userID).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get refresh token: %w", err)
	}
	return token, nil
}

// SetRefreshToken upserts the long-lived calendar credential for a user.
func (s *Store) SetRefreshToken(ctx context.Context, userID, token string) error {
	const q = `
INSERT INTO user_integrations (user_id, refresh_token, updated_at)
VALUES (?, ?, ?)
ON CONFLICT (user_id) DO UPDATE SET
    refresh_token = excluded.refresh_token,
    updated_at = excluded.updated_at;
`
	_, err := s.db.ExecContext(ctx, q, userID, token, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}
	return nil
}
