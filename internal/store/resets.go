package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Reset is a pending password reset
type Reset struct {
	UserID    int64
	Token     string
	ExpiresAt time.Time
}

// Expired reports whether the reset can no longer be used at now
func (r *Reset) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// CreateReset stores a reset token for a user
func (s *Store) CreateReset(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	_, err := s.exec(ctx,
		`INSERT INTO password_resets (user_id, token, expires_at) VALUES (?, ?, ?)`,
		userID, token, expiresAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}
	return nil
}

// ResetByToken looks up a reset by its token
func (s *Store) ResetByToken(ctx context.Context, token string) (*Reset, error) {
	var r Reset
	var expires int64
	err := s.queryRow(ctx,
		`SELECT user_id, token, expires_at FROM password_resets WHERE token = ?`, token).
		Scan(&r.UserID, &r.Token, &expires)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load reset token: %w", err)
	}
	r.ExpiresAt = time.Unix(expires, 0)
	return &r, nil
}

// DeleteReset removes a reset token
func (s *Store) DeleteReset(ctx context.Context, token string) error {
	if _, err := s.exec(ctx, `DELETE FROM password_resets WHERE token = ?`, token); err != nil {
		return fmt.Errorf("failed to delete reset token: %w", err)
	}
	return nil
}
