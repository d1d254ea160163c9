package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// User is a registered account
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
}

// CreateUser inserts an account. ErrConflict is returned when the username or
// email is taken.
func (s *Store) CreateUser(ctx context.Context, username, email, passwordHash string) (*User, error) {
	id, err := s.insert(ctx,
		`INSERT INTO users (username, password, email) VALUES (?, ?, ?)`,
		username, passwordHash, email)
	if err != nil {
		if s.dialect.isUnique(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &User{ID: id, Username: username, Email: email, PasswordHash: passwordHash}, nil
}

// UserByUsername looks up an account by username
func (s *Store) UserByUsername(ctx context.Context, username string) (*User, error) {
	return s.scanUser(s.queryRow(ctx,
		`SELECT id, username, email, password FROM users WHERE username = ?`, username))
}

// UserByEmail looks up an account by email
func (s *Store) UserByEmail(ctx context.Context, email string) (*User, error) {
	return s.scanUser(s.queryRow(ctx,
		`SELECT id, username, email, password FROM users WHERE email = ?`, email))
}

// UserByID looks up an account by id
func (s *Store) UserByID(ctx context.Context, id int64) (*User, error) {
	return s.scanUser(s.queryRow(ctx,
		`SELECT id, username, email, password FROM users WHERE id = ?`, id))
}

// UpdatePassword replaces the password hash of an account
func (s *Store) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	res, err := s.exec(ctx, `UPDATE users SET password = ? WHERE id = ?`, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) scanUser(row *sql.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &u, nil
}
